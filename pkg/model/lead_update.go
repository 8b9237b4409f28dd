package model

// LeadUpdate carries a partial edit of lead details. Nil or zero fields
// are left untouched by the merge; pointer fields distinguish "clear"
// from "not provided" where both are meaningful.
type LeadUpdate struct {
	TripType        string  `json:"trip_type,omitempty"`
	DepartureCity   string  `json:"departure_city,omitempty"`
	Destination     string  `json:"destination,omitempty"`
	TravelDate      string  `json:"travel_date,omitempty"`
	Duration        string  `json:"duration,omitempty"`
	Guests          int     `json:"guests,omitempty"`
	Budget          float64 `json:"budget,omitempty"`
	SpecialRequests *string `json:"special_requests,omitempty"`
	Notes           *string `json:"notes,omitempty"`
	Source          string  `json:"source,omitempty"`

	Itinerary             *[]ItineraryItem `json:"itinerary,omitempty"`
	ItineraryPDFURL       *string          `json:"itinerary_pdf_url,omitempty"`
	Documents             *[]string        `json:"documents,omitempty"`
	TravelDocumentsPDFURL *string          `json:"travel_documents_pdf_url,omitempty"`
	Inclusions            *[]string        `json:"inclusions,omitempty"`
	Exclusions            *[]string        `json:"exclusions,omitempty"`

	PaymentStatus string   `json:"payment_status,omitempty"`
	PaymentAmount *float64 `json:"payment_amount,omitempty"`
	TripCost      *float64 `json:"trip_cost,omitempty"`
}
