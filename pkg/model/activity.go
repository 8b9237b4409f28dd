package model

import (
	"time"
)

// Activity action labels. The set is closed at the validation boundary.
const (
	ActionCreated         = "created"
	ActionStageChanged    = "stage_changed"
	ActionAgentAssigned   = "agent_assigned"
	ActionAgentUnassigned = "agent_unassigned"
	ActionNoteAdded       = "note_added"
	ActionDetailsUpdated  = "details_updated"
	ActionAutoStale       = "auto_stale"
	ActionStaleRecovered  = "stale_recovered"
)

// LeadActivity is one append-only audit entry for a lead. Activities
// are never mutated or deleted.
type LeadActivity struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty"`
	LeadID    string    `json:"lead_id" bson:"lead_id" validate:"required,mongodb"`
	UserID    string    `json:"user_id,omitempty" bson:"user_id,omitempty" validate:"omitempty,mongodb"`
	Action    string    `json:"action" bson:"action" validate:"required,oneof=created stage_changed agent_assigned agent_unassigned note_added details_updated auto_stale stale_recovered"`
	Details   string    `json:"details,omitempty" bson:"details,omitempty"`
	FromStage Stage     `json:"from_stage,omitempty" bson:"from_stage,omitempty"`
	ToStage   Stage     `json:"to_stage,omitempty" bson:"to_stage,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
