package refactor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-web/cspaudit/internal/refactor"
	"github.com/scan-web/cspaudit/pkg/finding"
	"github.com/scan-web/cspaudit/pkg/shared/config"
)

func TestRunRefactorCommand_InterruptedRunStillPersistsChangeLog(t *testing.T) {
	src := t.TempDir()
	page := `<html>
<script>
var x = 1;
</script>
</html>`
	require.NoError(t, os.WriteFile(filepath.Join(src, "page.html"), []byte(page), 0644))

	findings := []finding.Finding{{
		RuleID:           "script-block",
		FilePath:         "page.html",
		StartLine:        2,
		EndLine:          4,
		Origin:           finding.OriginInternalBlock,
		MediaKind:        finding.MediaScript,
		ServerDependency: finding.DependencyNone,
	}}
	data, err := json.Marshal(findings)
	require.NoError(t, err)
	findingsFile := filepath.Join(t.TempDir(), "findings.json")
	require.NoError(t, os.WriteFile(findingsFile, data, 0644))

	changeLogFile := filepath.Join(t.TempDir(), "changelog.jsonl")
	outputRoot := filepath.Join(t.TempDir(), "out")

	Init(config.Default())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	RefactorCmd.SetArgs([]string{
		"--findings", findingsFile,
		"--phase", string(finding.PhaseBlockExtraction),
		"--source-root", src,
		"--output-root", outputRoot,
		"--mode", "apply",
		"--changelog", changeLogFile,
	})
	err = RefactorCmd.ExecuteContext(ctx)
	require.ErrorIs(t, err, context.Canceled)

	entries, readErr := refactor.ReadChangeLog(changeLogFile)
	require.NoError(t, readErr, "an interrupted run must still persist its changelog")
	require.Len(t, entries, 1)
	assert.Equal(t, "page.html", entries[0].FilePath)
	assert.Equal(t, finding.DecisionEligible, entries[0].Decision)
}
