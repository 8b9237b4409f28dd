package service

import (
	"context"
	"testing"
	"time"

	apperrors "tripdesk/pkg/errors"
	"tripdesk/pkg/events"
	"tripdesk/pkg/model"
)

func TestChangeStage_UnknownStageRejected(t *testing.T) {
	svc := newTestService(testDeps{})

	_, err := svc.ChangeStage(context.Background(), adminSession(), leadID, "archived")
	assertAppErrorCode(t, err, apperrors.CodeInvalidInput)
}

func TestChangeStage_CustomerForbidden(t *testing.T) {
	svc := newTestService(testDeps{})

	_, err := svc.ChangeStage(context.Background(), customerSession(), leadID, model.StageContacted)
	assertAppErrorCode(t, err, apperrors.CodeForbidden)
}

func TestChangeStage_WonGuardsBlockUnreadyLead(t *testing.T) {
	lead := sampleLead()
	lead.TripCost = 0
	lead.Itinerary = nil
	lead.Documents = nil
	repo := &mockLeadRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Lead, error) {
			return lead, nil
		},
	}
	svc := newTestService(testDeps{repo: repo})

	_, err := svc.ChangeStage(context.Background(), agentSession(), leadID, model.StageWon)
	assertAppErrorCode(t, err, apperrors.CodeValidation)

	appErr := apperrors.AsAppError(err)
	for _, field := range []string{"trip_cost", "itinerary", "documents"} {
		if _, ok := appErr.FieldErrors[field]; !ok {
			t.Errorf("expected field error for %q, got %v", field, appErr.FieldErrors)
		}
	}
}

func TestChangeStage_WonSucceedsWhenReady(t *testing.T) {
	lead := sampleLead()
	lead.TripCost = 95000
	lead.Itinerary = []model.ItineraryItem{{Day: 1, Title: "Arrival"}}
	lead.Documents = []string{"https://files.example/tickets.pdf"}
	lead.Stage = model.StageNegotiation

	var gotStage, gotPrevious model.Stage
	repo := &mockLeadRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Lead, error) {
			return lead, nil
		},
		setStageFunc: func(ctx context.Context, id string, stage, previous model.Stage, at time.Time) error {
			gotStage, gotPrevious = stage, previous
			return nil
		},
	}
	publisher := &mockPublisher{}
	svc := newTestService(testDeps{repo: repo, publisher: publisher})

	updated, err := svc.ChangeStage(context.Background(), agentSession(), leadID, model.StageWon)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotStage != model.StageWon || gotPrevious != model.StageNegotiation {
		t.Errorf("expected negotiation->won, got %s->%s", gotPrevious, gotStage)
	}
	if updated.Stage != model.StageWon || updated.PreviousStage != model.StageNegotiation {
		t.Errorf("expected returned lead updated, got stage=%s previous=%s", updated.Stage, updated.PreviousStage)
	}
	if len(publisher.events) != 1 || publisher.events[0].Type != events.TypeStageChanged {
		t.Errorf("expected one stage_changed event, got %+v", publisher.events)
	}
}

func TestChangeStage_SameStageIsNoop(t *testing.T) {
	lead := sampleLead()
	repo := &mockLeadRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Lead, error) {
			return lead, nil
		},
		setStageFunc: func(ctx context.Context, id string, stage, previous model.Stage, at time.Time) error {
			t.Error("stage write should be skipped for a same-stage change")
			return nil
		},
	}
	svc := newTestService(testDeps{repo: repo})

	if _, err := svc.ChangeStage(context.Background(), agentSession(), leadID, lead.Stage); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestChangeStage_StaleRecoveryAction(t *testing.T) {
	lead := sampleLead()
	lead.Stage = model.StageStale
	lead.PreviousStage = model.StageProposalSent

	activity := &mockActivityRepository{}
	repo := &mockLeadRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Lead, error) {
			return lead, nil
		},
	}
	svc := newTestService(testDeps{repo: repo, activity: activity})

	if _, err := svc.ChangeStage(context.Background(), agentSession(), leadID, model.StageProposalSent); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(activity.recorded) != 1 {
		t.Fatalf("expected one activity, got %d", len(activity.recorded))
	}
	if activity.recorded[0].Action != model.ActionStaleRecovered {
		t.Errorf("expected stale_recovered action, got %s", activity.recorded[0].Action)
	}
	if activity.recorded[0].FromStage != model.StageStale {
		t.Errorf("expected from_stage stale, got %s", activity.recorded[0].FromStage)
	}
}

func TestPipelineIndex_ExceptionStages(t *testing.T) {
	for _, stage := range []model.Stage{model.StageLost, model.StageStale, "bogus"} {
		if got := stage.PipelineIndex(); got != -1 {
			t.Errorf("expected index -1 for %q, got %d", stage, got)
		}
	}
	if got := model.StageWon.PipelineIndex(); got != 5 {
		t.Errorf("expected won at index 5, got %d", got)
	}
}
