package refactor

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/scan-web/cspaudit/pkg/finding"
)

// changeLogLine is the persisted form of one changelog entry: a single JSON
// line carrying its run metadata, so the file stays human-diffable and can
// only grow.
type changeLogLine struct {
	RunID     string                 `json:"run_id"`
	Mode      finding.ExecutionMode  `json:"mode"`
	Phase     finding.Phase          `json:"phase,omitempty"`
	Timestamp string                 `json:"timestamp"`
	Entry     finding.ChangeLogEntry `json:"entry"`
}

// WriteChangeLog appends the run's entries to the changelog file, one JSON
// line per entry. Existing lines are never rewritten.
func WriteChangeLog(path string, log *finding.ChangeLog) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("cannot open changelog %q: %w", path, err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	defer w.Flush()

	enc := json.NewEncoder(w)
	ts := log.StartedAt.UTC().Format(time.RFC3339)
	for _, e := range log.Entries {
		line := changeLogLine{
			RunID:     log.RunID,
			Mode:      log.Mode,
			Phase:     log.Phase,
			Timestamp: ts,
			Entry:     e,
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("cannot append changelog entry: %w", err)
		}
	}
	return nil
}

// ReadChangeLog loads every entry line from a changelog file. Blank lines
// are tolerated so hand-edited files still parse.
func ReadChangeLog(path string) ([]finding.ChangeLogEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read changelog %q: %w", path, err)
	}

	var entries []finding.ChangeLogEntry
	for i, raw := range strings.Split(string(data), "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		var line changeLogLine
		if err := json.Unmarshal([]byte(raw), &line); err != nil {
			return nil, fmt.Errorf("changelog line %d is not valid JSON: %w", i+1, err)
		}
		entries = append(entries, line.Entry)
	}
	return entries, nil
}
