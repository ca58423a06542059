package refactor

import (
	"crypto/sha256"
	"fmt"
	"path"
	"strings"

	"github.com/scan-web/cspaudit/pkg/finding"
)

// Plan decides, per finding, whether the selected phase may transform it.
// The decision table is total and ordered; every finding resolves to exactly
// one decision. Plan performs no I/O so the table is testable without a
// file system.
func Plan(findings []finding.Finding, phase finding.Phase) []finding.TransformationPlan {
	plans := make([]finding.TransformationPlan, 0, len(findings))
	for _, f := range findings {
		plans = append(plans, planOne(f, phase))
	}
	return plans
}

func planOne(f finding.Finding, phase finding.Phase) finding.TransformationPlan {
	p := finding.TransformationPlan{Finding: f}

	switch {
	case f.IsScanError():
		p.Decision = finding.DecisionBlocked
		p.Reason = "unreadable source"
	case f.ServerDependency == finding.DependencyHigh:
		p.Decision = finding.DecisionBlocked
		p.Reason = "unresolved server dependency"
	case f.Origin == finding.OriginExternalFile:
		p.Decision = finding.DecisionSkipCompliant
		p.Reason = "external file, whitelist action only"
	case f.Malformed:
		p.Decision = finding.DecisionBlocked
		p.Reason = "unterminated block"
	case !inPhase(f, phase):
		p.Decision = finding.DecisionSkipPhase
		p.Reason = fmt.Sprintf("origin %s/%s outside phase %s", f.Origin, f.MediaKind, phase)
	default:
		p.Decision = finding.DecisionEligible
		p.Reason = "eligible for transformation"
		if f.Origin == finding.OriginInternalBlock {
			p.TargetArtifact = ArtifactPath(f)
		}
	}

	return p
}

// inPhase reports whether a finding's origin and media kind are in scope for
// the requested phase.
func inPhase(f finding.Finding, phase finding.Phase) bool {
	switch phase {
	case finding.PhaseAttributeExtraction:
		return f.Origin == finding.OriginInlineAttribute
	case finding.PhaseBlockExtraction:
		return f.Origin == finding.OriginInternalBlock && f.MediaKind == finding.MediaScript
	case finding.PhaseStyleExtraction:
		return f.Origin == finding.OriginInternalBlock && f.MediaKind == finding.MediaStyle
	default:
		return false
	}
}

// ArtifactPath computes the extraction target for a block finding. The name
// is a deterministic function of the finding's file path and line range, so
// repeated planning for the same input yields the same artifact.
func ArtifactPath(f finding.Finding) string {
	dir := path.Dir(f.FilePath)
	base := strings.TrimSuffix(path.Base(f.FilePath), path.Ext(f.FilePath))

	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%d", f.FilePath, f.StartLine, f.EndLine)))
	tag := fmt.Sprintf("%x", sum[:4])

	ext := ".js"
	if f.MediaKind == finding.MediaStyle {
		ext = ".css"
	}

	name := fmt.Sprintf("%s.extracted.%s%s", base, tag, ext)
	if dir == "." {
		return name
	}
	return path.Join(dir, name)
}
