package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	usererrors "tripdesk/internal/users/errors"
	"tripdesk/pkg/auth"
	apperrors "tripdesk/pkg/errors"
	"tripdesk/pkg/model"
)

// TravelerDocumentStatus is the per-traveler slice of a document
// readiness report.
type TravelerDocumentStatus struct {
	Name     string   `json:"name"`
	Primary  bool     `json:"primary"`
	Complete bool     `json:"complete"`
	Missing  []string `json:"missing,omitempty"`
}

// DocumentReport summarizes whether every traveler on a lead has the
// identity documents the trip type requires.
type DocumentReport struct {
	LeadID    string                   `json:"lead_id"`
	TripType  string                   `json:"trip_type"`
	Complete  bool                     `json:"complete"`
	Travelers []TravelerDocumentStatus `json:"travelers"`
}

func (s *leadService) AddTraveler(ctx context.Context, actor auth.Session, leadID string, traveler model.Traveler) (*model.Lead, error) {
	if !actor.IsStaff() {
		return nil, apperrors.Forbidden("Only staff can manage travelers")
	}

	lead, err := s.loadForActor(ctx, actor, leadID, true)
	if err != nil {
		return nil, err
	}

	if len(lead.Travelers) >= lead.Guests {
		return nil, apperrors.Conflict(fmt.Sprintf(
			"Lead already has all %d travelers", lead.Guests,
		))
	}

	sanitizeTraveler(&traveler)
	if err := s.validator.ValidateTraveler(&traveler); err != nil {
		return nil, validationError("Traveler validation failed", err)
	}

	for _, existing := range lead.Travelers {
		if sameTraveler(existing, traveler) {
			return nil, apperrors.Conflict(fmt.Sprintf(
				"Traveler %q is already on this lead", traveler.Name,
			))
		}
	}

	// A member reference must resolve on the customer profile and the
	// names must agree; the saved documents carry over.
	if traveler.MemberID != "" {
		member, err := s.resolveMember(ctx, lead, traveler.MemberID)
		if err != nil {
			return nil, err
		}
		if !strings.EqualFold(member.Name, traveler.Name) {
			return nil, apperrors.Validation("Traveler does not match the referenced member", map[string]string{
				"name": fmt.Sprintf("expected %q for this member", member.Name),
			})
		}
		if isEmptyDocumentSet(traveler.Documents) {
			traveler.Documents = member.Documents
		}
	}

	travelers := append(append([]model.Traveler{}, lead.Travelers...), traveler)
	now := time.Now().UTC().Truncate(time.Millisecond)

	if err := s.repo.SetTravelers(ctx, leadID, travelers, now); err != nil {
		s.cfg.Log.Error("Failed to add traveler", "lead_id", leadID, "error", err)
		return nil, apperrors.Internal("Failed to add traveler", err)
	}

	s.recordActivity(ctx, &model.LeadActivity{
		LeadID:  leadID,
		UserID:  actor.UserID,
		Action:  model.ActionDetailsUpdated,
		Details: fmt.Sprintf("traveler %q added", traveler.Name),
	})

	lead.Travelers = travelers
	lead.LastActivityAt = now
	lead.UpdatedAt = now

	return lead, nil
}

// RemoveTraveler drops a traveler identified by member reference or,
// failing that, exact name. The first traveler is the primary contact
// for the inquiry and cannot be removed.
func (s *leadService) RemoveTraveler(ctx context.Context, actor auth.Session, leadID, ref string) (*model.Lead, error) {
	if !actor.IsStaff() {
		return nil, apperrors.Forbidden("Only staff can manage travelers")
	}

	lead, err := s.loadForActor(ctx, actor, leadID, true)
	if err != nil {
		return nil, err
	}

	index := travelerIndex(lead.Travelers, ref)
	if index < 0 {
		return nil, apperrors.NotFoundWithID("Traveler", ref)
	}
	if index == 0 {
		return nil, apperrors.Conflict("The primary traveler cannot be removed")
	}

	removed := lead.Travelers[index]
	travelers := append(append([]model.Traveler{}, lead.Travelers[:index]...), lead.Travelers[index+1:]...)
	now := time.Now().UTC().Truncate(time.Millisecond)

	if err := s.repo.SetTravelers(ctx, leadID, travelers, now); err != nil {
		s.cfg.Log.Error("Failed to remove traveler", "lead_id", leadID, "error", err)
		return nil, apperrors.Internal("Failed to remove traveler", err)
	}

	s.recordActivity(ctx, &model.LeadActivity{
		LeadID:  leadID,
		UserID:  actor.UserID,
		Action:  model.ActionDetailsUpdated,
		Details: fmt.Sprintf("traveler %q removed", removed.Name),
	})

	lead.Travelers = travelers
	lead.LastActivityAt = now
	lead.UpdatedAt = now

	return lead, nil
}

// DocumentStatus reports document readiness per traveler. International
// trips require a passport for everyone; domestic trips accept an
// Aadhaar card. The primary traveler falls back to the customer profile
// documents, companions to their referenced member's documents.
func (s *leadService) DocumentStatus(ctx context.Context, actor auth.Session, leadID string) (*DocumentReport, error) {
	lead, err := s.loadForActor(ctx, actor, leadID, false)
	if err != nil {
		return nil, err
	}

	var customer *model.User
	if lead.CustomerID != "" {
		customer, err = s.users.FindByID(ctx, lead.CustomerID)
		if err != nil && !errors.Is(err, usererrors.ErrNotFound) && !errors.Is(err, usererrors.ErrInvalidID) {
			s.cfg.Log.Error("Failed to load customer for document status",
				"lead_id", leadID,
				"customer_id", lead.CustomerID,
				"error", err,
			)
			return nil, apperrors.Internal("Failed to check document status", err)
		}
	}

	report := &DocumentReport{
		LeadID:   lead.ID,
		TripType: lead.TripType,
		Complete: true,
	}

	for i, traveler := range lead.Travelers {
		docs := traveler.Documents
		if isEmptyDocumentSet(docs) {
			switch {
			case i == 0 && customer != nil:
				docs = customer.Documents
			case traveler.MemberID != "" && customer != nil:
				if member := customer.MemberByID(traveler.MemberID); member != nil {
					docs = member.Documents
				}
			}
		}

		status := TravelerDocumentStatus{
			Name:     traveler.Name,
			Primary:  i == 0,
			Complete: true,
		}

		if lead.IsInternational() {
			if !docs.HasPassport() {
				status.Missing = append(status.Missing, "passport")
			}
		} else {
			if !docs.HasAadhaar() {
				status.Missing = append(status.Missing, "aadhaar_card")
			}
		}

		if len(status.Missing) > 0 {
			status.Complete = false
			report.Complete = false
		}
		report.Travelers = append(report.Travelers, status)
	}

	return report, nil
}

// resolveMember loads the lead's customer and finds the referenced
// saved companion.
func (s *leadService) resolveMember(ctx context.Context, lead *model.Lead, memberID string) (*model.Member, error) {
	if lead.CustomerID == "" {
		return nil, apperrors.InvalidInput("Lead has no customer profile to reference members from")
	}

	customer, err := s.users.FindByID(ctx, lead.CustomerID)
	if err != nil {
		if errors.Is(err, usererrors.ErrNotFound) || errors.Is(err, usererrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Customer", lead.CustomerID)
		}
		s.cfg.Log.Error("Failed to load customer", "customer_id", lead.CustomerID, "error", err)
		return nil, apperrors.Internal("Failed to resolve member", err)
	}

	member := customer.MemberByID(memberID)
	if member == nil {
		return nil, apperrors.NotFoundWithID("Member", memberID)
	}

	return member, nil
}

// travelerIndex resolves a removal reference: member id first, then
// exact name. Returns -1 when nothing matches.
func travelerIndex(travelers []model.Traveler, ref string) int {
	for i, t := range travelers {
		if t.MemberID != "" && t.MemberID == ref {
			return i
		}
	}
	for i, t := range travelers {
		if t.Name == ref {
			return i
		}
	}
	return -1
}

// sameTraveler treats two travelers as duplicates when they reference
// the same member or agree on name, age and gender.
func sameTraveler(a, b model.Traveler) bool {
	if a.MemberID != "" && a.MemberID == b.MemberID {
		return true
	}
	return strings.EqualFold(a.Name, b.Name) && a.Age == b.Age && a.Gender == b.Gender
}

func isEmptyDocumentSet(d model.DocumentSet) bool {
	return len(d.AadhaarCard) == 0 && len(d.PANCard) == 0 && len(d.Passport) == 0
}
