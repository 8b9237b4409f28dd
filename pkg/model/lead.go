package model

import (
	"time"
)

const (
	TripTypeDomestic      = "domestic"
	TripTypeInternational = "international"

	SourceWebsite     = "website"
	SourceReferral    = "referral"
	SourceSocialMedia = "social_media"
	SourcePhone       = "phone"
	SourceEmail       = "email"
	SourceWalkIn      = "walk_in"
	SourceManual      = "manual"
	SourceOther       = "other"

	// Known payment statuses. Other strings may arrive from older
	// records and are carried as-is, never rejected.
	PaymentPending = "pending"
	PaymentPartial = "partial"
	PaymentPaid    = "paid"

	MaxGuests    = 50
	MaxTravelers = 50
)

// DocumentSet holds uploaded identity-proof URLs grouped by kind. The
// service stores only URLs returned by the upload provider, never file
// content.
type DocumentSet struct {
	AadhaarCard []string `json:"aadhaar_card,omitempty" bson:"aadhaar_card,omitempty"`
	PANCard     []string `json:"pan_card,omitempty" bson:"pan_card,omitempty"`
	Passport    []string `json:"passport,omitempty" bson:"passport,omitempty"`
}

func (d DocumentSet) HasAadhaar() bool {
	return len(d.AadhaarCard) > 0
}

func (d DocumentSet) HasPassport() bool {
	return len(d.Passport) > 0
}

type Traveler struct {
	Name      string      `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Age       int         `json:"age" bson:"age" validate:"required,min=1,max=120"`
	Gender    string      `json:"gender" bson:"gender" validate:"required,oneof=male female other"`
	Email     string      `json:"email,omitempty" bson:"email,omitempty" validate:"omitempty,email"`
	Phone     string      `json:"phone,omitempty" bson:"phone,omitempty"`
	MemberID  string      `json:"member_id,omitempty" bson:"member_id,omitempty" validate:"omitempty,mongodb"`
	Documents DocumentSet `json:"documents,omitempty" bson:"documents,omitempty"`
}

type ItineraryItem struct {
	Day         int    `json:"day" bson:"day" validate:"required,min=1"`
	Title       string `json:"title" bson:"title" validate:"required,min=2,max=200"`
	Description string `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=2000"`
}

type LeadComment struct {
	Text      string    `json:"text" bson:"text"`
	AgentID   string    `json:"agent_id" bson:"agent_id"`
	AgentName string    `json:"agent_name" bson:"agent_name"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Lead is one travel inquiry moving through the sales pipeline. Leads
// are never hard-deleted in the normal flow; only an admin delete
// removes one.
type Lead struct {
	ID string `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`

	// Trip attributes from the inquiry form.
	TripType        string     `json:"trip_type" bson:"trip_type" validate:"required,oneof=domestic international"`
	DepartureCity   string     `json:"departure_city" bson:"departure_city" validate:"required,min=2,max=100"`
	Destination     string     `json:"destination" bson:"destination" validate:"required,min=2,max=100"`
	TravelDate      string     `json:"travel_date" bson:"travel_date" validate:"required"`
	Duration        string     `json:"duration" bson:"duration" validate:"required"`
	Guests          int        `json:"guests" bson:"guests" validate:"required,min=1,max=50"`
	Budget          float64    `json:"budget" bson:"budget" validate:"required,min=1"`
	SpecialRequests string     `json:"special_requests,omitempty" bson:"special_requests,omitempty" validate:"omitempty,max=500"`
	Travelers       []Traveler `json:"travelers" bson:"travelers" validate:"required,min=1,dive"`

	// Pipeline attributes.
	Stage         Stage  `json:"stage" bson:"stage"`
	PreviousStage Stage  `json:"previous_stage,omitempty" bson:"previous_stage,omitempty"`
	Source        string `json:"source" bson:"source"`
	Notes         string `json:"notes,omitempty" bson:"notes,omitempty"`
	AgentID       string `json:"agent_id,omitempty" bson:"agent_id,omitempty"`
	CustomerID    string `json:"customer_id,omitempty" bson:"customer_id,omitempty"`

	// Fulfilment attributes maintained by the owning agent.
	Itinerary             []ItineraryItem `json:"itinerary,omitempty" bson:"itinerary,omitempty"`
	ItineraryPDFURL       string          `json:"itinerary_pdf_url,omitempty" bson:"itinerary_pdf_url,omitempty"`
	Documents             []string        `json:"documents,omitempty" bson:"documents,omitempty"`
	TravelDocumentsPDFURL string          `json:"travel_documents_pdf_url,omitempty" bson:"travel_documents_pdf_url,omitempty"`
	Inclusions            []string        `json:"inclusions,omitempty" bson:"inclusions,omitempty"`
	Exclusions            []string        `json:"exclusions,omitempty" bson:"exclusions,omitempty"`

	PaymentStatus string  `json:"payment_status,omitempty" bson:"payment_status,omitempty"`
	PaymentAmount float64 `json:"payment_amount,omitempty" bson:"payment_amount,omitempty"`
	TripCost      float64 `json:"trip_cost,omitempty" bson:"trip_cost,omitempty"`

	Comments []LeadComment `json:"comments,omitempty" bson:"comments,omitempty"`

	LastActivityAt time.Time `json:"last_activity_at" bson:"last_activity_at"`
	StageUpdatedAt time.Time `json:"stage_updated_at,omitempty" bson:"stage_updated_at,omitempty"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at"`
}

// HasItinerary reports whether any itinerary exists, either structured
// entries or an uploaded PDF.
func (l *Lead) HasItinerary() bool {
	return len(l.Itinerary) > 0 || l.ItineraryPDFURL != ""
}

// HasTravelDocuments reports whether travel documents exist, either as
// a URL list or an uploaded PDF bundle.
func (l *Lead) HasTravelDocuments() bool {
	return len(l.Documents) > 0 || l.TravelDocumentsPDFURL != ""
}

func (l *Lead) IsInternational() bool {
	return l.TripType == TripTypeInternational
}
