package finding

// Decision is the automatic-transformation verdict for one finding.
type Decision string

const (
	DecisionEligible      Decision = "eligible"
	DecisionBlocked       Decision = "blocked"
	DecisionSkipCompliant Decision = "skip-compliant"
	DecisionSkipPhase     Decision = "skip-phase"
)

// Phase selects which origin/media subset a refactoring run touches.
type Phase string

const (
	PhaseAttributeExtraction Phase = "attribute-extraction"
	PhaseBlockExtraction     Phase = "block-extraction"
	PhaseStyleExtraction     Phase = "style-extraction"
)

// Phases lists every known phase, for CLI validation.
func Phases() []Phase {
	return []Phase{PhaseAttributeExtraction, PhaseBlockExtraction, PhaseStyleExtraction}
}

// TransformationPlan is the planner's verdict for one finding. TargetArtifact
// is only set for eligible extractions and is a deterministic function of the
// finding's file path and line range.
type TransformationPlan struct {
	Finding        Finding  `json:"finding"`
	Decision       Decision `json:"decision"`
	Reason         string   `json:"reason"`
	TargetArtifact string   `json:"target_artifact,omitempty"`
}
