package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-web/cspaudit/internal/classifier"
	"github.com/scan-web/cspaudit/pkg/finding"
	"github.com/scan-web/cspaudit/pkg/shared/config"
	scanerrors "github.com/scan-web/cspaudit/pkg/shared/errors"
)

// Report is the outcome of one classification pass over a source tree.
type Report struct {
	Root       string            `json:"root"`
	Files      int               `json:"files"`
	ScanErrors int               `json:"scan_errors"`
	Findings   []finding.Finding `json:"findings"`

	// Partial is set when the run was cancelled; the findings collected so
	// far are still valid.
	Partial bool `json:"partial,omitempty"`
}

// Scanner walks a source tree and classifies every audit-relevant file with a
// bounded worker pool. Each worker owns its file end-to-end; findings are
// merged and ordered only after all workers complete.
type Scanner struct {
	cfg        *config.Config
	classifier *classifier.Classifier
	logger     hclog.Logger
}

// New creates a Scanner.
func New(cfg *config.Config, cl *classifier.Classifier, logger hclog.Logger) *Scanner {
	return &Scanner{cfg: cfg, classifier: cl, logger: logger}
}

// Scan classifies every matching file under root. Cancellation stops
// dispatching new files but lets in-flight classifications finish, so a
// cancelled run still returns a valid partial report.
func (s *Scanner) Scan(ctx context.Context, root string) (*Report, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, scanerrors.NewConfigError("sourceRoot", "cannot access %q: %v", root, err)
	}

	paths, err := s.collectFiles(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk source tree: %w", err)
	}
	s.logger.Debug("collected scan targets", "root", root, "files", len(paths))

	threads := s.cfg.Scanner.Threads
	if threads <= 0 {
		threads = 1
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		findings []finding.Finding
	)

	guard := make(chan struct{}, threads)
	cancelled := false

	for _, path := range paths {
		select {
		case <-ctx.Done():
			cancelled = true
		default:
		}
		if cancelled {
			break
		}

		guard <- struct{}{}
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			defer func() { <-guard }()

			result := s.scanFile(root, path)

			mu.Lock()
			findings = append(findings, result...)
			mu.Unlock()
		}(path)
	}
	wg.Wait()

	// Deterministic output regardless of worker interleaving.
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].FilePath != findings[j].FilePath {
			return findings[i].FilePath < findings[j].FilePath
		}
		if findings[i].StartLine != findings[j].StartLine {
			return findings[i].StartLine < findings[j].StartLine
		}
		return findings[i].RuleID < findings[j].RuleID
	})

	report := &Report{
		Root:     root,
		Files:    len(paths),
		Findings: findings,
		Partial:  cancelled,
	}
	for _, f := range findings {
		if f.IsScanError() {
			report.ScanErrors++
		}
	}

	if cancelled {
		s.logger.Warn("scan cancelled, returning partial report", "files", report.Files, "findings", len(findings))
		return report, ctx.Err()
	}
	return report, nil
}

// scanFile reads and classifies one file. A read failure becomes a scan-error
// finding, never a retried operation or an aborted run.
func (s *Scanner) scanFile(root, path string) []finding.Finding {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn("unreadable file recorded as scan error", "path", rel, "error", err)
		return []finding.Finding{classifier.ScanErrorFinding(rel, err.Error())}
	}

	return s.classifier.Classify(rel, string(data))
}

// collectFiles walks the tree and keeps files whose extension is on the
// configured audit list.
func (s *Scanner) collectFiles(root string) ([]string, error) {
	exts := s.cfg.Scanner.Extensions
	if len(exts) == 0 {
		exts = config.Default().Scanner.Extensions
	}
	wanted := make(map[string]bool, len(exts))
	for _, ext := range exts {
		wanted[strings.ToLower(ext)] = true
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if wanted[strings.ToLower(filepath.Ext(d.Name()))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
