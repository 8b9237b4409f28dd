package service

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	apperrors "tripdesk/pkg/errors"
	"tripdesk/pkg/events"
	"tripdesk/pkg/model"
)

// SweepStale expires every active lead whose last activity is older
// than the configured threshold. Each swept lead keeps its current
// stage as previous_stage so staff can recover it where it left off.
// The sweep runs under a scheduler, not a user session.
func (s *leadService) SweepStale(ctx context.Context) (*StaleSweepResult, error) {
	cutoff := time.Now().UTC().Add(-s.cfg.StaleThreshold)
	now := time.Now().UTC().Truncate(time.Millisecond)

	var swept []*model.Lead

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		candidates, err := s.repo.FindStale(sessCtx, cutoff)
		if err != nil {
			return fmt.Errorf("failed to find stale leads: %w", err)
		}
		if len(candidates) == 0 {
			return nil
		}

		ids := make([]string, 0, len(candidates))
		for _, lead := range candidates {
			ids = append(ids, lead.ID)
		}

		if _, err := s.repo.MarkStale(sessCtx, ids, now); err != nil {
			return fmt.Errorf("failed to mark leads stale: %w", err)
		}

		swept = candidates
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Stale sweep failed", "error", err)
		return nil, apperrors.Internal("Failed to sweep stale leads", err)
	}

	if len(swept) > 0 {
		activities := make([]*model.LeadActivity, 0, len(swept))
		for _, lead := range swept {
			activities = append(activities, &model.LeadActivity{
				LeadID:    lead.ID,
				Action:    model.ActionAutoStale,
				Details:   fmt.Sprintf("no activity since %s", lead.LastActivityAt.Format(time.RFC3339)),
				FromStage: lead.Stage,
				ToStage:   model.StageStale,
			})
		}
		if err := s.activities.CreateMany(context.WithoutCancel(ctx), activities); err != nil {
			s.cfg.Log.Warn("Failed to record stale sweep activities", "error", err)
		}

		for _, lead := range swept {
			s.publish(ctx, events.LeadEvent{
				Type:      events.TypeLeadStale,
				LeadID:    lead.ID,
				FromStage: string(lead.Stage),
				ToStage:   string(model.StageStale),
			})
		}
	}

	s.cfg.Log.Info("Stale sweep completed",
		"marked", len(swept),
		"cutoff", cutoff,
	)

	return &StaleSweepResult{Marked: int64(len(swept))}, nil
}
