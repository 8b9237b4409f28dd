package model

// Stage is the pipeline position of a lead. The value set is closed:
// anything outside it is rejected at the boundary, never persisted.
type Stage string

const (
	StageNew          Stage = "new"
	StageContacted    Stage = "contacted"
	StageQualified    Stage = "qualified"
	StageProposalSent Stage = "proposal_sent"
	StageNegotiation  Stage = "negotiation"
	StageWon          Stage = "won"
	StageLost         Stage = "lost"
	StageStale        Stage = "stale"
)

// PipelineStages is the linear sales progression in display order.
// Lost and stale are exception states and deliberately not part of it.
var PipelineStages = []Stage{
	StageNew,
	StageContacted,
	StageQualified,
	StageProposalSent,
	StageNegotiation,
	StageWon,
}

// AllStages is every value a persisted lead may carry.
var AllStages = []Stage{
	StageNew,
	StageContacted,
	StageQualified,
	StageProposalSent,
	StageNegotiation,
	StageWon,
	StageLost,
	StageStale,
}

var stageLabels = map[Stage]string{
	StageNew:          "Inquiry Received",
	StageContacted:    "Agent Reviewing",
	StageQualified:    "Under Review",
	StageProposalSent: "Proposal Ready",
	StageNegotiation:  "Finalizing",
	StageWon:          "Trip Confirmed",
	StageLost:         "Cancelled",
	StageStale:        "Expired",
}

func (s Stage) Valid() bool {
	for _, stage := range AllStages {
		if s == stage {
			return true
		}
	}
	return false
}

// IsException reports whether the stage sits outside the linear
// progression. Exception stages are terminal: no further progression
// is expected from them.
func (s Stage) IsException() bool {
	return s == StageLost || s == StageStale
}

// PipelineIndex returns the position of the stage in the linear
// progression, or -1 for exception stages and unknown values. Callers
// must treat -1 as "no progress to show", not as an error.
func (s Stage) PipelineIndex() int {
	for i, stage := range PipelineStages {
		if s == stage {
			return i
		}
	}
	return -1
}

// Compare orders two pipeline stages: negative when s comes before
// other, zero when equal. Exception and unknown stages compare as -1
// index and therefore sort before every pipeline stage.
func (s Stage) Compare(other Stage) int {
	return s.PipelineIndex() - other.PipelineIndex()
}

// Label returns the customer-facing name for a stage. Unknown stages
// fall back to the raw value rather than failing.
func (s Stage) Label() string {
	if label, ok := stageLabels[s]; ok {
		return label
	}
	return string(s)
}
