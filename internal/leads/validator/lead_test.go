package validator

import (
	"testing"

	"tripdesk/pkg/model"
)

func validLead() *model.Lead {
	return &model.Lead{
		TripType:      model.TripTypeDomestic,
		DepartureCity: "Mumbai",
		Destination:   "Goa",
		TravelDate:    "2026-11-10",
		Duration:      "4 days",
		Guests:        2,
		Budget:        45000,
		Source:        model.SourceWebsite,
		Travelers: []model.Traveler{
			{Name: "Asha Rao", Age: 34, Gender: "female", Phone: "+919876500000"},
		},
	}
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	if err == nil {
		t.Fatal("expected a validation error, got nil")
	}
	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T (%v)", err, err)
	}
	return verrs.Fields()
}

func TestValidate_AcceptsValidLead(t *testing.T) {
	v := NewLeadValidator()

	if err := v.Validate(validLead()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_MissingRequiredFields(t *testing.T) {
	v := NewLeadValidator()

	lead := validLead()
	lead.Destination = ""
	lead.Budget = 0

	fields := fieldsOf(t, v.Validate(lead))
	if fields["destination"] != "is required" {
		t.Errorf("expected destination required, got %q", fields["destination"])
	}
	if fields["budget"] != "is required" {
		t.Errorf("expected budget required, got %q", fields["budget"])
	}
}

func TestValidate_TripTypeEnum(t *testing.T) {
	v := NewLeadValidator()

	lead := validLead()
	lead.TripType = "lunar"

	fields := fieldsOf(t, v.Validate(lead))
	if fields["trip_type"] != "must be one of: domestic, international" {
		t.Errorf("unexpected trip_type message: %q", fields["trip_type"])
	}
}

func TestValidate_NestedTravelerFieldNames(t *testing.T) {
	v := NewLeadValidator()

	lead := validLead()
	lead.Travelers[0].Name = "A"
	lead.Travelers[0].Gender = "unknown"

	fields := fieldsOf(t, v.Validate(lead))
	if fields["travelers[0].name"] != "must be at least 2" {
		t.Errorf("unexpected traveler name message: %q", fields["travelers[0].name"])
	}
	if _, ok := fields["travelers[0].gender"]; !ok {
		t.Errorf("expected a travelers[0].gender error, got %v", fields)
	}
}

func TestValidate_TravelersExceedGuests(t *testing.T) {
	v := NewLeadValidator()

	lead := validLead()
	lead.Guests = 1
	lead.Travelers = append(lead.Travelers, model.Traveler{
		Name: "Ravi Rao", Age: 36, Gender: "male",
	})

	fields := fieldsOf(t, v.Validate(lead))
	if _, ok := fields["travelers"]; !ok {
		t.Errorf("expected a travelers count error, got %v", fields)
	}
}

func TestValidate_UnknownSource(t *testing.T) {
	v := NewLeadValidator()

	lead := validLead()
	lead.Source = "billboard"

	fields := fieldsOf(t, v.Validate(lead))
	if _, ok := fields["source"]; !ok {
		t.Errorf("expected a source error, got %v", fields)
	}
}

func TestValidate_EmptySourceAllowed(t *testing.T) {
	v := NewLeadValidator()

	lead := validLead()
	lead.Source = ""

	if err := v.Validate(lead); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_DuplicateItineraryDays(t *testing.T) {
	v := NewLeadValidator()

	lead := validLead()
	lead.Itinerary = []model.ItineraryItem{
		{Day: 1, Title: "Arrival and beach walk"},
		{Day: 1, Title: "Fort tour"},
	}

	fields := fieldsOf(t, v.Validate(lead))
	if _, ok := fields["itinerary"]; !ok {
		t.Errorf("expected an itinerary error, got %v", fields)
	}
}

func TestValidateTraveler_InvalidMemberID(t *testing.T) {
	v := NewLeadValidator()

	traveler := model.Traveler{
		Name:     "Ravi Rao",
		Age:      36,
		Gender:   "male",
		MemberID: "not-an-object-id",
	}

	err := v.ValidateTraveler(&traveler)
	fields := fieldsOf(t, err)
	if fields["member_id"] != "must be a valid object ID" {
		t.Errorf("unexpected member_id message: %q", fields["member_id"])
	}
}

func TestValidateTraveler_Valid(t *testing.T) {
	v := NewLeadValidator()

	traveler := model.Traveler{Name: "Ravi Rao", Age: 36, Gender: "male"}
	if err := v.ValidateTraveler(&traveler); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
