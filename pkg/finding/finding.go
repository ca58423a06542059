package finding

// Origin describes where in the source a violation candidate lives.
type Origin string

const (
	OriginInlineAttribute Origin = "inline-attribute"
	OriginInternalBlock   Origin = "internal-block"
	OriginExternalFile    Origin = "external-file"
)

// MediaKind distinguishes script content from style content.
type MediaKind string

const (
	MediaScript MediaKind = "script"
	MediaStyle  MediaKind = "style"
)

// ServerDependency grades how much a finding's correctness depends on
// server-side template evaluation that cannot be checked statically.
type ServerDependency string

const (
	DependencyNone   ServerDependency = "none"
	DependencyLow    ServerDependency = "low"
	DependencyMedium ServerDependency = "medium"
	DependencyHigh   ServerDependency = "high"
)

// Capability classifies what a script finding is able to do at runtime.
type Capability string

const (
	CapabilityDataExchange  Capability = "data-exchange"
	CapabilityUIInjection   Capability = "ui-injection"
	CapabilityScriptLoading Capability = "script-loading"
	CapabilityEventConfig   Capability = "event-config"
	CapabilityUnknown       Capability = "unknown"
)

// Difficulty is the derived remediation effort for a finding.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// RuleIDScanError marks the synthetic finding emitted for unreadable or
// undecodable files. Such findings carry no byte range beyond line 1 and are
// never eligible for transformation.
const RuleIDScanError = "scan-error"

// Finding is one candidate CSP violation at a specific file location.
// A Finding maps to exactly one physical byte range in one file at scan time
// and is never mutated after creation, only superseded by a re-scan.
type Finding struct {
	RuleID    string `json:"rule_id"`
	FilePath  string `json:"file_path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`

	Origin    Origin    `json:"origin"`
	MediaKind MediaKind `json:"media_kind"`

	Snippet     string `json:"snippet,omitempty"`
	FullContext string `json:"full_context,omitempty"`

	// Resource holds the referenced URL or path for external-file findings.
	Resource string `json:"resource,omitempty"`

	ServerDependency ServerDependency `json:"server_dependency"`
	Capability       Capability       `json:"capability,omitempty"`
	Difficulty       Difficulty       `json:"difficulty"`

	// LogicalRequests counts transmission-pattern matches inside the finding's
	// range. Construct and configuration matches are excluded.
	LogicalRequests int `json:"logical_requests,omitempty"`

	// GlobalScope is set when a configuration capability was matched outside
	// any function body.
	GlobalScope bool `json:"global_scope,omitempty"`

	// Malformed is set when a block delimiter had no matching close before
	// end of file. Malformed findings are never auto-transformed.
	Malformed bool `json:"malformed,omitempty"`

	// ScanError carries the read/decode failure message for scan-error findings.
	ScanError string `json:"scan_error,omitempty"`
}

// IsScanError reports whether the finding records a read or decode failure
// instead of a pattern match.
func (f Finding) IsScanError() bool {
	return f.RuleID == RuleIDScanError
}

// DeriveDifficulty computes the remediation difficulty from the finding's
// origin, server dependency and capability. It is a pure function so that
// classification runs stay reproducible.
func DeriveDifficulty(origin Origin, dep ServerDependency, capability Capability, globalScope bool) Difficulty {
	if dep == DependencyHigh {
		return DifficultyHard
	}
	if capability == CapabilityScriptLoading {
		return DifficultyHard
	}
	if capability == CapabilityEventConfig && globalScope {
		return DifficultyHard
	}
	if origin == OriginExternalFile {
		return DifficultyMedium
	}
	if dep == DependencyNone {
		return DifficultyEasy
	}
	return DifficultyMedium
}

// LogicalRequestCount sums transmission-pattern matches across findings.
// Setup and configuration matches never contribute, so one open + one send
// counts as a single logical request.
func LogicalRequestCount(findings []Finding) int {
	total := 0
	for _, f := range findings {
		total += f.LogicalRequests
	}
	return total
}
