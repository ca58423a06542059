package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-web/cspaudit/internal/classifier"
	"github.com/scan-web/cspaudit/pkg/shared/config"
)

func newTestScanner(threads int) *Scanner {
	cfg := config.Default()
	cfg.Scanner.Threads = threads
	return New(cfg, classifier.New(classifier.Options{}), hclog.NewNullLogger())
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func TestScan_MergesAndOrdersFindings(t *testing.T) {
	root := writeTree(t, map[string]string{
		"b/page.html":  `<button onclick="b()">B</button>`,
		"a/page.html":  `<button onclick="a()">A</button>`,
		"a/notes.txt":  `onclick="ignored()"`,
		"js/legacy.js": `var x = 1;`,
	})

	report, err := newTestScanner(4).Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Files, "txt files are not audit targets")
	require.Len(t, report.Findings, 2)
	assert.Equal(t, "a/page.html", report.Findings[0].FilePath)
	assert.Equal(t, "b/page.html", report.Findings[1].FilePath)
	assert.False(t, report.Partial)
}

func TestScan_DeterministicAcrossThreadCounts(t *testing.T) {
	files := map[string]string{}
	for _, name := range []string{"one", "two", "three", "four", "five"} {
		files[name+".html"] = `<div onclick="` + name + `()"></div><script>fetch('/x');</script>`
	}
	root := writeTree(t, files)

	serial, err := newTestScanner(1).Scan(context.Background(), root)
	require.NoError(t, err)
	parallel, err := newTestScanner(8).Scan(context.Background(), root)
	require.NoError(t, err)

	require.Equal(t, len(serial.Findings), len(parallel.Findings))
	for i := range serial.Findings {
		assert.Equal(t, serial.Findings[i], parallel.Findings[i])
	}
}

func TestScan_UnreadableFileBecomesScanError(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}
	root := writeTree(t, map[string]string{
		"ok.html": `<div onclick="x()"></div>`,
	})
	bad := filepath.Join(root, "bad.html")
	require.NoError(t, os.WriteFile(bad, []byte("<html>"), 0000))

	report, err := newTestScanner(2).Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 1, report.ScanErrors)
	var sawScanError bool
	for _, f := range report.Findings {
		if f.IsScanError() {
			sawScanError = true
			assert.Equal(t, "bad.html", f.FilePath)
		}
	}
	assert.True(t, sawScanError)
}

func TestScan_MissingRootIsFatalConfigError(t *testing.T) {
	_, err := newTestScanner(1).Scan(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestScan_CancelledRunReturnsPartialReport(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < 50; i++ {
		files[filepath.Join("d", string(rune('a'+i%26))+".html")] = `<div onclick="x()"></div>`
	}
	root := writeTree(t, files)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newTestScanner(2).Scan(ctx, root)
	require.Error(t, err)
	require.NotNil(t, report)
	assert.True(t, report.Partial, "cancelled run must yield a valid partial result")
}
