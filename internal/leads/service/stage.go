package service

import (
	"context"
	"fmt"
	"time"

	"tripdesk/pkg/auth"
	apperrors "tripdesk/pkg/errors"
	"tripdesk/pkg/events"
	"tripdesk/pkg/model"
)

// ChangeStage moves a lead to a new pipeline stage. Any stage-to-stage
// move is allowed, including backwards; only the won stage has entry
// conditions, since winning commits the trip to fulfilment.
func (s *leadService) ChangeStage(ctx context.Context, actor auth.Session, id string, stage model.Stage) (*model.Lead, error) {
	if !actor.IsStaff() {
		return nil, apperrors.Forbidden("Only staff can change lead stages")
	}
	if !stage.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown stage %q", stage))
	}

	lead, err := s.loadForActor(ctx, actor, id, true)
	if err != nil {
		return nil, err
	}

	if lead.Stage == stage {
		return lead, nil
	}

	if stage == model.StageWon {
		if err := wonGuards(lead); err != nil {
			return nil, err
		}
	}

	from := lead.Stage
	now := time.Now().UTC().Truncate(time.Millisecond)

	if err := s.repo.SetStage(ctx, id, stage, from, now); err != nil {
		s.cfg.Log.Error("Failed to change lead stage",
			"id", id,
			"from", from,
			"to", stage,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to change lead stage", err)
	}

	action := model.ActionStageChanged
	if from == model.StageStale {
		action = model.ActionStaleRecovered
	}
	s.recordActivity(ctx, &model.LeadActivity{
		LeadID:    id,
		UserID:    actor.UserID,
		Action:    action,
		FromStage: from,
		ToStage:   stage,
	})
	s.publish(ctx, events.LeadEvent{
		Type:      events.TypeStageChanged,
		LeadID:    id,
		ActorID:   actor.UserID,
		FromStage: string(from),
		ToStage:   string(stage),
	})

	s.cfg.Log.Info("Lead stage changed",
		"id", id,
		"from", from,
		"to", stage,
		"changed_by", actor.UserID,
	)

	lead.PreviousStage = from
	lead.Stage = stage
	lead.StageUpdatedAt = now
	lead.LastActivityAt = now
	lead.UpdatedAt = now

	return lead, nil
}

// wonGuards checks the entry conditions for the won stage: a priced
// trip, an itinerary, and travel documents must all be in place.
func wonGuards(lead *model.Lead) error {
	fields := map[string]string{}

	if lead.TripCost <= 0 {
		fields["trip_cost"] = "trip cost must be set before marking a lead as won"
	}
	if !lead.HasItinerary() {
		fields["itinerary"] = "an itinerary is required before marking a lead as won"
	}
	if !lead.HasTravelDocuments() {
		fields["documents"] = "travel documents are required before marking a lead as won"
	}

	if len(fields) > 0 {
		return apperrors.Validation("Lead is not ready to be marked as won", fields)
	}
	return nil
}
