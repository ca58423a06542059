package refactor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/scan-web/cspaudit/pkg/finding"
	"github.com/scan-web/cspaudit/pkg/shared/config"
	"github.com/scan-web/cspaudit/pkg/shared/files"
	refErrors "github.com/scan-web/cspaudit/pkg/shared/errors"
)

const defaultMarker = "cspaudit:"

var (
	reOpenScript  = regexp.MustCompile(`(?i)<script\b[^>]*>`)
	reCloseScript = regexp.MustCompile(`(?i)</script\s*>`)
	reOpenStyle   = regexp.MustCompile(`(?i)<style\b[^>]*>`)
	reCloseStyle  = regexp.MustCompile(`(?i)</style\s*>`)
)

// Executor applies transformation plans to a copy of the source tree. It
// never mutates the source root: the output root is populated as a full copy
// first and patched in place. The executor is single-threaded per output
// tree so no two writers race on the same copied file.
type Executor struct {
	cfg    *config.Config
	logger hclog.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(cfg *config.Config, logger hclog.Logger) *Executor {
	return &Executor{cfg: cfg, logger: logger}
}

// editOp is one pending eligible transformation, remembered so edits can be
// applied per file in descending line order, keeping earlier findings' line
// numbers valid.
type editOp struct {
	entryIdx int
	plan     finding.TransformationPlan
	resolved string
}

// Apply executes the plans against outputRoot. In dry-run mode the full
// decision and path-resolution logic runs but nothing is written; the
// changelog has the same shape either way. A cancelled run returns the
// changelog accumulated so far together with the context error.
func (e *Executor) Apply(ctx context.Context, plans []finding.TransformationPlan, sourceRoot, outputRoot string, mode finding.ExecutionMode, phase finding.Phase) (*finding.ChangeLog, error) {
	if err := files.ValidateDir(sourceRoot); err != nil {
		return nil, refErrors.NewConfigError("sourceRoot", "%v", err)
	}
	if outputRoot == "" {
		return nil, refErrors.NewConfigError("outputRoot", "output root must be set")
	}
	if abs, err := files.EnsureWithinRoot(sourceRoot, outputRoot); err == nil {
		return nil, refErrors.NewConfigError("outputRoot", "%q lies inside the source root", abs)
	}

	log := &finding.ChangeLog{
		RunID:     uuid.NewString(),
		Mode:      mode,
		Phase:     phase,
		StartedAt: time.Now().UTC(),
	}

	resolveRoot := outputRoot
	if _, err := os.Stat(outputRoot); os.IsNotExist(err) {
		if mode == finding.ModeApply {
			e.logger.Info("populating output tree", "source", sourceRoot, "output", outputRoot)
			if err := files.CopyTree(sourceRoot, outputRoot); err != nil {
				return nil, fmt.Errorf("failed to populate output tree: %w", err)
			}
		} else {
			// Dry runs must not create the output tree; decisions are made
			// against the source state instead.
			resolveRoot = sourceRoot
		}
	}

	var ops []editOp
	for _, p := range plans {
		entry := finding.ChangeLogEntry{
			FilePath:  p.Finding.FilePath,
			StartLine: p.Finding.StartLine,
			EndLine:   p.Finding.EndLine,
			Decision:  p.Decision,
			Action:    finding.ActionNone,
		}

		if p.Decision != finding.DecisionEligible {
			log.Append(entry)
			continue
		}

		resolved, err := e.resolvePath(resolveRoot, p.Finding.FilePath)
		if err != nil {
			e.logger.Warn("path resolution failed", "path", p.Finding.FilePath, "error", err)
			entry.Error = err.Error()
			log.Append(entry)
			continue
		}
		entry.ResolvedPath = resolved

		content, err := os.ReadFile(resolved)
		if err != nil {
			entry.Error = fmt.Sprintf("cannot read resolved file: %v", err)
			log.Append(entry)
			continue
		}

		if e.alreadyTransformed(p, string(content)) {
			// A repeat run reports the same action and artifact as the run
			// that transformed it; only the decision differs.
			entry.Decision = finding.DecisionSkipCompliant
			if p.Finding.Origin == finding.OriginInlineAttribute {
				entry.Action = finding.ActionTagged
			} else {
				entry.Action = finding.ActionExtracted
				entry.Artifact = filepath.Join(filepath.Dir(resolved), filepath.Base(p.TargetArtifact))
			}
			log.Append(entry)
			continue
		}

		log.Append(entry)
		ops = append(ops, editOp{entryIdx: len(log.Entries) - 1, plan: p, resolved: resolved})
	}

	// Bottom-up within each file so line numbers of pending edits stay valid.
	sort.SliceStable(ops, func(i, j int) bool {
		if ops[i].resolved != ops[j].resolved {
			return ops[i].resolved < ops[j].resolved
		}
		return ops[i].plan.Finding.StartLine > ops[j].plan.Finding.StartLine
	})

	var runErr error
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		entry := &log.Entries[op.entryIdx]
		if err := e.applyOne(op, resolveRoot, mode, entry); err != nil {
			entry.Error = err.Error()
		}
	}

	if runErr != nil {
		e.logger.Warn("refactoring run cancelled, changelog is partial", "entries", len(log.Entries))
	}
	return log, runErr
}

// applyOne performs (or, in dry-run, simulates) a single transformation and
// updates its changelog entry.
func (e *Executor) applyOne(op editOp, resolveRoot string, mode finding.ExecutionMode, entry *finding.ChangeLogEntry) error {
	f := op.plan.Finding

	content, err := os.ReadFile(op.resolved)
	if err != nil {
		return fmt.Errorf("cannot read resolved file: %v", err)
	}
	lines := strings.Split(string(content), "\n")
	if f.StartLine < 1 || f.EndLine > len(lines) {
		return fmt.Errorf("line range %d-%d no longer exists in %s", f.StartLine, f.EndLine, entry.ResolvedPath)
	}

	switch f.Origin {
	case finding.OriginInternalBlock:
		return e.extractBlock(op, lines, resolveRoot, mode, entry)
	case finding.OriginInlineAttribute:
		return e.tagAttribute(op, lines, mode, entry)
	default:
		return refErrors.NewUnsupportedTransformationError(string(f.Origin), string(e.phaseOf(op)))
	}
}

func (e *Executor) phaseOf(op editOp) finding.Phase {
	switch {
	case op.plan.Finding.Origin == finding.OriginInlineAttribute:
		return finding.PhaseAttributeExtraction
	case op.plan.Finding.MediaKind == finding.MediaStyle:
		return finding.PhaseStyleExtraction
	default:
		return finding.PhaseBlockExtraction
	}
}

// extractBlock removes the block's byte range from the host file, writes the
// body verbatim to the target artifact and inserts a single reference at the
// original location.
func (e *Executor) extractBlock(op editOp, lines []string, resolveRoot string, mode finding.ExecutionMode, entry *finding.ChangeLogEntry) error {
	f := op.plan.Finding
	segment := strings.Join(lines[f.StartLine-1:f.EndLine], "\n")

	openRe, closeRe := reOpenScript, reCloseScript
	if f.MediaKind == finding.MediaStyle {
		openRe, closeRe = reOpenStyle, reCloseStyle
	}

	openLoc := openRe.FindStringIndex(segment)
	closeLoc := closeRe.FindStringIndex(segment)
	if openLoc == nil || closeLoc == nil || closeLoc[0] < openLoc[1] {
		return fmt.Errorf("block delimiters no longer match at %s:%d-%d", f.FilePath, f.StartLine, f.EndLine)
	}
	body := segment[openLoc[1]:closeLoc[0]]

	artifactBase := filepath.Base(op.plan.TargetArtifact)
	artifactPath := filepath.Join(filepath.Dir(op.resolved), artifactBase)

	indent := leadingWhitespace(lines[f.StartLine-1])
	ref := indent + fmt.Sprintf(`<script src="%s"></script>`, artifactBase)
	if f.MediaKind == finding.MediaStyle {
		ref = indent + fmt.Sprintf(`<link rel="stylesheet" href="%s">`, artifactBase)
	}

	entry.Action = finding.ActionExtracted
	entry.Artifact = artifactPath

	if mode == finding.ModeDryRun {
		return nil
	}

	if _, err := files.EnsureWithinRoot(resolveRoot, artifactPath); err != nil {
		return err
	}
	if err := os.WriteFile(artifactPath, []byte(body), 0644); err != nil {
		return fmt.Errorf("cannot write artifact: %v", err)
	}

	patched := append([]string{}, lines[:f.StartLine-1]...)
	patched = append(patched, ref)
	patched = append(patched, lines[f.EndLine:]...)
	if err := os.WriteFile(op.resolved, []byte(strings.Join(patched, "\n")), 0644); err != nil {
		return fmt.Errorf("cannot patch host file: %v", err)
	}

	e.logger.Debug("extracted block", "host", entry.ResolvedPath, "artifact", artifactPath)
	return nil
}

// tagAttribute inserts an advisory marker comment before the element. Inline
// handlers are never extracted automatically: removing the attribute would
// change element semantics without a companion binding mechanism.
func (e *Executor) tagAttribute(op editOp, lines []string, mode finding.ExecutionMode, entry *finding.ChangeLogEntry) error {
	f := op.plan.Finding
	marker := e.markerFor(f)
	indent := leadingWhitespace(lines[f.StartLine-1])

	entry.Action = finding.ActionTagged

	if mode == finding.ModeDryRun {
		return nil
	}

	patched := append([]string{}, lines[:f.StartLine-1]...)
	patched = append(patched, indent+marker)
	patched = append(patched, lines[f.StartLine-1:]...)
	if err := os.WriteFile(op.resolved, []byte(strings.Join(patched, "\n")), 0644); err != nil {
		return fmt.Errorf("cannot patch host file: %v", err)
	}

	e.logger.Debug("tagged inline attribute", "host", entry.ResolvedPath, "line", f.StartLine)
	return nil
}

// alreadyTransformed detects a previous run's marker or artifact reference,
// making re-application idempotent: the finding is reported skip-compliant
// instead of being transformed twice.
func (e *Executor) alreadyTransformed(p finding.TransformationPlan, content string) bool {
	if p.Finding.Origin == finding.OriginInlineAttribute {
		return strings.Contains(content, e.markerFor(p.Finding))
	}
	if p.TargetArtifact == "" {
		return false
	}
	return strings.Contains(content, filepath.Base(p.TargetArtifact))
}

// markerFor builds the advisory marker for an inline finding. The original
// path and line range make the marker stable across runs even after earlier
// insertions shift line numbers.
func (e *Executor) markerFor(f finding.Finding) string {
	text := e.cfg.Refactor.MarkerText
	if text == "" {
		text = defaultMarker
	}
	return fmt.Sprintf("<!-- %s inline %s flagged for extraction (%s:%d-%d) -->",
		text, f.MediaKind, f.FilePath, f.StartLine, f.EndLine)
}

// resolvePath locates the physical file for a finding under root, in strict
// order: exact relative path, path with a known project-name prefix
// stripped, then a recursive basename search. The first success wins.
func (e *Executor) resolvePath(root, rel string) (string, error) {
	rel = filepath.FromSlash(rel)

	candidate := filepath.Join(root, rel)
	if isFile(candidate) {
		return candidate, nil
	}

	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) > 1 {
		for _, prefix := range e.cfg.Refactor.ProjectPrefixes {
			if strings.EqualFold(parts[0], prefix) {
				stripped := filepath.Join(root, filepath.Join(parts[1:]...))
				if isFile(stripped) {
					return stripped, nil
				}
				break
			}
		}
	}

	base := filepath.Base(rel)
	var found string
	errStop := errors.New("stop")
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && d.Name() == base {
			found = path
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return "", fmt.Errorf("search under %q failed: %w", root, err)
	}
	if found == "" {
		return "", refErrors.NewPathResolutionError(rel, root)
	}
	return found, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func leadingWhitespace(s string) string {
	return s[:len(s)-len(strings.TrimLeft(s, " \t"))]
}
