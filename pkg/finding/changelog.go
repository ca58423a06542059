package finding

import "time"

// ExecutionMode selects whether the executor writes anything.
type ExecutionMode string

const (
	ModeDryRun ExecutionMode = "dry-run"
	ModeApply  ExecutionMode = "apply"
)

// Action records what the executor actually did for one entry.
type Action string

const (
	ActionExtracted Action = "extracted"
	ActionTagged    Action = "tagged, not extracted"
	ActionNone      Action = "none"
)

// ChangeLogEntry is the durable record of one finding's outcome in one run.
// Entries are created exactly once per processed finding and never edited.
type ChangeLogEntry struct {
	FilePath  string   `json:"file_path"`
	StartLine int      `json:"start_line"`
	EndLine   int      `json:"end_line"`
	Decision  Decision `json:"decision"`
	Action    Action   `json:"action"`

	ResolvedPath string `json:"resolved_path,omitempty"`
	Artifact     string `json:"artifact,omitempty"`
	Error        string `json:"error,omitempty"`
}

// ChangeLog is the only durable core output of a refactoring run. It is
// append-only and one entry is emitted per finding per run.
type ChangeLog struct {
	RunID     string           `json:"run_id"`
	Mode      ExecutionMode    `json:"mode"`
	Phase     Phase            `json:"phase,omitempty"`
	StartedAt time.Time        `json:"started_at"`
	Entries   []ChangeLogEntry `json:"entries"`
}

// Append adds one entry. Existing entries are never modified.
func (c *ChangeLog) Append(e ChangeLogEntry) {
	c.Entries = append(c.Entries, e)
}

// HasErrors reports whether any entry recorded a recoverable error.
func (c *ChangeLog) HasErrors() bool {
	for _, e := range c.Entries {
		if e.Error != "" {
			return true
		}
	}
	return false
}
