package crawl

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-web/cspaudit/pkg/shared/config"
)

func TestRunCrawlCommand_InterruptedRunStillWritesResourceList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><script src="/js/app.js"></script></html>`)
	}))
	t.Cleanup(srv.Close)

	outFile := filepath.Join(t.TempDir(), "resources.json")

	Init(config.Default())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	CrawlCmd.SetArgs([]string{"--output", outFile, srv.URL + "/"})
	err := CrawlCmd.ExecuteContext(ctx)
	require.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(outFile)
	assert.NoError(t, statErr, "an interrupted crawl must still write the partial resource list")
}
