package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	leaderrors "tripdesk/internal/leads/errors"
	usererrors "tripdesk/internal/users/errors"
	"tripdesk/pkg/auth"
	apperrors "tripdesk/pkg/errors"
	"tripdesk/pkg/events"
	"tripdesk/pkg/model"
)

func (s *leadService) Assign(ctx context.Context, actor auth.Session, leadID, agentID string) (*AssignResult, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Only administrators can assign leads")
	}

	agent, err := s.resolveAssignableAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}

	lead, err := s.loadForActor(ctx, actor, leadID, true)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	if _, err := s.repo.SetAgent(ctx, []string{leadID}, agent.ID, now); err != nil {
		s.cfg.Log.Error("Failed to assign lead",
			"lead_id", leadID,
			"agent_id", agent.ID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to assign lead", err)
	}

	s.recordActivity(ctx, &model.LeadActivity{
		LeadID:  leadID,
		UserID:  actor.UserID,
		Action:  model.ActionAgentAssigned,
		Details: fmt.Sprintf("assigned to %s", agent.Name),
	})
	s.publish(ctx, events.LeadEvent{
		Type:    events.TypeAgentAssigned,
		LeadID:  leadID,
		ActorID: actor.UserID,
		AgentID: agent.ID,
	})

	result := &AssignResult{Assigned: 1}
	result.Warning = s.notifyAgent(agent, []*model.Lead{lead})

	s.cfg.Log.Info("Lead assigned",
		"lead_id", leadID,
		"agent_id", agent.ID,
		"assigned_by", actor.UserID,
	)

	return result, nil
}

// BulkAssign hands a batch of leads to one agent atomically: either
// every lead is reassigned or none are.
func (s *leadService) BulkAssign(ctx context.Context, actor auth.Session, leadIDs []string, agentID string) (*AssignResult, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Only administrators can assign leads")
	}
	if len(leadIDs) == 0 {
		return nil, apperrors.InvalidInput("At least one lead ID is required")
	}

	agent, err := s.resolveAssignableAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	var leads []*model.Lead

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		leads = leads[:0]
		for _, id := range leadIDs {
			lead, err := s.repo.FindByID(sessCtx, id)
			if err != nil {
				if errors.Is(err, leaderrors.ErrNotFound) {
					return apperrors.NotFoundWithID("Lead", id)
				}
				if errors.Is(err, leaderrors.ErrInvalidID) {
					return apperrors.InvalidInput("Invalid lead ID format: " + id)
				}
				return fmt.Errorf("failed to load lead %s: %w", id, err)
			}
			leads = append(leads, lead)
		}

		if _, err := s.repo.SetAgent(sessCtx, leadIDs, agent.ID, now); err != nil {
			return fmt.Errorf("failed to assign leads: %w", err)
		}
		return nil
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		s.cfg.Log.Error("Bulk assignment failed",
			"lead_count", len(leadIDs),
			"agent_id", agent.ID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to assign leads", err)
	}

	activities := make([]*model.LeadActivity, 0, len(leadIDs))
	for _, id := range leadIDs {
		activities = append(activities, &model.LeadActivity{
			LeadID:  id,
			UserID:  actor.UserID,
			Action:  model.ActionAgentAssigned,
			Details: fmt.Sprintf("assigned to %s", agent.Name),
		})
	}
	if err := s.activities.CreateMany(context.WithoutCancel(ctx), activities); err != nil {
		s.cfg.Log.Warn("Failed to record assignment activities", "error", err)
	}

	for _, id := range leadIDs {
		s.publish(ctx, events.LeadEvent{
			Type:    events.TypeAgentAssigned,
			LeadID:  id,
			ActorID: actor.UserID,
			AgentID: agent.ID,
		})
	}

	result := &AssignResult{Assigned: int64(len(leadIDs))}
	result.Warning = s.notifyAgent(agent, leads)

	s.cfg.Log.Info("Leads bulk assigned",
		"lead_count", len(leadIDs),
		"agent_id", agent.ID,
		"assigned_by", actor.UserID,
	)

	return result, nil
}

func (s *leadService) Unassign(ctx context.Context, actor auth.Session, leadID string) error {
	if !actor.IsAdmin() {
		return apperrors.Forbidden("Only administrators can unassign leads")
	}

	lead, err := s.loadForActor(ctx, actor, leadID, true)
	if err != nil {
		return err
	}
	if lead.AgentID == "" {
		return nil
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	if _, err := s.repo.SetAgent(ctx, []string{leadID}, "", now); err != nil {
		s.cfg.Log.Error("Failed to unassign lead", "lead_id", leadID, "error", err)
		return apperrors.Internal("Failed to unassign lead", err)
	}

	s.recordActivity(ctx, &model.LeadActivity{
		LeadID: leadID,
		UserID: actor.UserID,
		Action: model.ActionAgentUnassigned,
	})

	s.cfg.Log.Info("Lead unassigned", "lead_id", leadID, "unassigned_by", actor.UserID)

	return nil
}

// resolveAssignableAgent loads the target agent and checks eligibility:
// only active, verified agents can receive leads.
func (s *leadService) resolveAssignableAgent(ctx context.Context, agentID string) (*model.User, error) {
	if agentID == "" {
		return nil, apperrors.InvalidInput("Agent ID cannot be empty")
	}

	agent, err := s.users.FindByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, usererrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Agent", agentID)
		}
		if errors.Is(err, usererrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid agent ID format")
		}
		s.cfg.Log.Error("Failed to resolve agent", "agent_id", agentID, "error", err)
		return nil, apperrors.Internal("Failed to resolve agent", err)
	}

	if !agent.IsAssignableAgent() {
		fields := map[string]string{}
		if agent.Role != model.RoleAgent {
			fields["role"] = "user is not an agent"
		}
		if agent.Status != model.StatusActive {
			fields["status"] = "agent is not active"
		}
		if !agent.IsVerified {
			fields["is_verified"] = "agent is not verified"
		}
		return nil, apperrors.Validation("Agent cannot receive lead assignments", fields)
	}

	return agent, nil
}

// notifyAgent emails the agent about new assignments. Delivery is best
// effort; the returned warning is surfaced to the caller when the mail
// could not be sent.
func (s *leadService) notifyAgent(agent *model.User, leads []*model.Lead) string {
	if s.mailer == nil {
		return "Assignment saved, but email notifications are not configured"
	}

	for _, lead := range leads {
		if err := s.mailer.SendLeadAssigned(agent.Email, agent.Name, lead.Destination, lead.ID); err != nil {
			s.cfg.Log.Warn("Failed to send assignment notification",
				"agent_id", agent.ID,
				"lead_id", lead.ID,
				"error", err,
			)
			return "Assignment saved, but the agent notification email could not be sent"
		}
	}

	return ""
}
