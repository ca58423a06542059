package refactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-web/cspaudit/pkg/finding"
)

func blockFinding(dep finding.ServerDependency) finding.Finding {
	return finding.Finding{
		RuleID:           "script-block",
		FilePath:         "views/orders.aspx",
		StartLine:        10,
		EndLine:          20,
		Origin:           finding.OriginInternalBlock,
		MediaKind:        finding.MediaScript,
		ServerDependency: dep,
	}
}

func TestPlan_HighDependencyIsAlwaysBlocked(t *testing.T) {
	f := blockFinding(finding.DependencyHigh)

	for _, phase := range finding.Phases() {
		plans := Plan([]finding.Finding{f}, phase)
		require.Len(t, plans, 1)
		assert.Equal(t, finding.DecisionBlocked, plans[0].Decision, "phase %s", phase)
		assert.Equal(t, "unresolved server dependency", plans[0].Reason)
	}
}

func TestPlan_ExternalFileIsSkipCompliant(t *testing.T) {
	f := finding.Finding{
		Origin:    finding.OriginExternalFile,
		MediaKind: finding.MediaScript,
		FilePath:  "views/orders.aspx",
		Resource:  "/js/site.js",
	}
	plans := Plan([]finding.Finding{f}, finding.PhaseBlockExtraction)
	require.Len(t, plans, 1)
	assert.Equal(t, finding.DecisionSkipCompliant, plans[0].Decision)
}

func TestPlan_MalformedIsBlocked(t *testing.T) {
	f := blockFinding(finding.DependencyNone)
	f.Malformed = true

	plans := Plan([]finding.Finding{f}, finding.PhaseBlockExtraction)
	require.Len(t, plans, 1)
	assert.Equal(t, finding.DecisionBlocked, plans[0].Decision)
	assert.Equal(t, "unterminated block", plans[0].Reason)
}

func TestPlan_ScanErrorIsBlocked(t *testing.T) {
	f := finding.Finding{RuleID: finding.RuleIDScanError, FilePath: "bad.html", StartLine: 1, EndLine: 1}
	plans := Plan([]finding.Finding{f}, finding.PhaseBlockExtraction)
	require.Len(t, plans, 1)
	assert.Equal(t, finding.DecisionBlocked, plans[0].Decision)
}

func TestPlan_PhaseScope(t *testing.T) {
	attr := finding.Finding{Origin: finding.OriginInlineAttribute, MediaKind: finding.MediaScript, FilePath: "a.html", StartLine: 1, EndLine: 1}
	block := blockFinding(finding.DependencyNone)
	style := finding.Finding{Origin: finding.OriginInternalBlock, MediaKind: finding.MediaStyle, FilePath: "a.html", StartLine: 3, EndLine: 5}

	plans := Plan([]finding.Finding{attr, block, style}, finding.PhaseBlockExtraction)
	require.Len(t, plans, 3)
	assert.Equal(t, finding.DecisionSkipPhase, plans[0].Decision)
	assert.Equal(t, finding.DecisionEligible, plans[1].Decision)
	assert.Equal(t, finding.DecisionSkipPhase, plans[2].Decision)

	plans = Plan([]finding.Finding{attr, block, style}, finding.PhaseAttributeExtraction)
	assert.Equal(t, finding.DecisionEligible, plans[0].Decision)
	assert.Empty(t, plans[0].TargetArtifact, "attribute findings are tagged, not extracted")
	assert.Equal(t, finding.DecisionSkipPhase, plans[1].Decision)

	plans = Plan([]finding.Finding{attr, block, style}, finding.PhaseStyleExtraction)
	assert.Equal(t, finding.DecisionEligible, plans[2].Decision)
	assert.NotEmpty(t, plans[2].TargetArtifact)
}

func TestPlan_EveryFindingGetsExactlyOneDecision(t *testing.T) {
	findings := []finding.Finding{
		blockFinding(finding.DependencyNone),
		blockFinding(finding.DependencyLow),
		blockFinding(finding.DependencyHigh),
		{Origin: finding.OriginExternalFile, FilePath: "a.html"},
		{Origin: finding.OriginInlineAttribute, MediaKind: finding.MediaScript, FilePath: "a.html"},
		{RuleID: finding.RuleIDScanError, FilePath: "bad.html"},
	}

	plans := Plan(findings, finding.PhaseBlockExtraction)
	require.Len(t, plans, len(findings))
	for i, p := range plans {
		assert.NotEmpty(t, p.Decision, "plan %d has no decision", i)
		assert.NotEmpty(t, p.Reason, "plan %d has no reason", i)
	}
}

func TestPlan_BlockedDependencySafety(t *testing.T) {
	findings := []finding.Finding{
		blockFinding(finding.DependencyHigh),
		{Origin: finding.OriginInlineAttribute, MediaKind: finding.MediaScript, ServerDependency: finding.DependencyHigh, FilePath: "a.html"},
	}
	for _, phase := range finding.Phases() {
		for _, p := range Plan(findings, phase) {
			assert.NotEqual(t, finding.DecisionEligible, p.Decision,
				"high server dependency must never be eligible (phase %s)", phase)
		}
	}
}

func TestArtifactPath_Deterministic(t *testing.T) {
	f := blockFinding(finding.DependencyNone)

	first := ArtifactPath(f)
	second := ArtifactPath(f)
	assert.Equal(t, first, second)
	assert.Contains(t, first, "views/")
	assert.Contains(t, first, "orders.extracted.")
	assert.Contains(t, first, ".js")

	f.StartLine = 11
	assert.NotEqual(t, first, ArtifactPath(f), "different range must yield a different artifact")

	f.MediaKind = finding.MediaStyle
	assert.Contains(t, ArtifactPath(f), ".css")
}
