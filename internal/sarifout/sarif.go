package sarifout

import (
	"fmt"
	"io"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/scan-web/cspaudit/pkg/finding"
)

const toolName = "cspaudit"

// Write renders findings as a SARIF 2.1.0 report. Each distinct rule ID
// becomes a reporting descriptor; each finding becomes one result with its
// file, line region and a level derived from the refactoring difficulty.
func Write(findings []finding.Finding, toolVersion string, w io.Writer) error {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return fmt.Errorf("cannot create sarif report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(toolName, "https://github.com/scan-web/cspaudit")
	run.Tool.Driver.Version = &toolVersion

	for _, f := range findings {
		rule := run.AddRule(f.RuleID).
			WithDescription(ruleDescription(f.RuleID))

		props := sarif.NewPropertyBag()
		props.Add("origin", string(f.Origin))
		props.Add("media_kind", string(f.MediaKind))
		props.Add("server_dependency", string(f.ServerDependency))
		props.Add("difficulty", string(f.Difficulty))
		if f.Capability != "" {
			props.Add("capability", string(f.Capability))
		}

		result := run.CreateResultForRule(rule.ID).
			WithLevel(levelFor(f)).
			WithMessage(sarif.NewTextMessage(messageFor(f)))
		result.AddLocation(sarif.NewLocationWithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewSimpleArtifactLocation(f.FilePath)).
				WithRegion(sarif.NewRegion().
					WithStartLine(f.StartLine).
					WithEndLine(f.EndLine)),
		))
		result.AttachPropertyBag(props)
	}

	report.AddRun(run)
	return report.PrettyWrite(w)
}

// levelFor maps refactoring difficulty onto SARIF result levels.
func levelFor(f finding.Finding) string {
	if f.IsScanError() {
		return "error"
	}
	switch f.Difficulty {
	case finding.DifficultyHard:
		return "error"
	case finding.DifficultyMedium:
		return "warning"
	default:
		return "note"
	}
}

func messageFor(f finding.Finding) string {
	if f.IsScanError() {
		return fmt.Sprintf("file could not be scanned: %s", f.ScanError)
	}
	msg := fmt.Sprintf("inline %s content (%s)", f.MediaKind, f.Origin)
	if f.Origin == finding.OriginExternalFile && f.Resource != "" {
		msg = fmt.Sprintf("external %s reference %s", f.MediaKind, f.Resource)
	}
	if f.ServerDependency != finding.DependencyNone && f.ServerDependency != "" {
		msg += fmt.Sprintf(", server dependency %s", f.ServerDependency)
	}
	return msg
}

func ruleDescription(ruleID string) string {
	descriptions := map[string]string{
		"inline-event-handler":   "Inline event handler attribute incompatible with a strict content security policy",
		"javascript-url":         "javascript: URL in a markup attribute",
		"inline-style-attribute": "Inline style attribute",
		"script-block":           "Internal script block",
		"external-script":        "External script reference",
		"style-block":            "Internal style block",
		"external-stylesheet":    "External stylesheet reference",
		finding.RuleIDScanError:  "Source file could not be scanned",
	}
	if d, ok := descriptions[ruleID]; ok {
		return d
	}
	return ruleID
}
