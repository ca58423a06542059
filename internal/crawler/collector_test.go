package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-web/cspaudit/pkg/finding"
)

func newTestCollector() *Collector {
	return NewCollector(resty.New(), hclog.NewNullLogger())
}

func serveSite(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, body := range pages {
		content := body
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, content)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCollect_HarvestsScriptsAndStylesheets(t *testing.T) {
	srv := serveSite(t, map[string]string{
		"/": `<html><head>
<link rel="stylesheet" href="/css/site.css">
<script src="/js/app.js"></script>
<script src="https://cdn.example.com/lib.js"></script>
</head></html>`,
	})

	resources, err := newTestCollector().Collect(context.Background(), srv.URL+"/", 5)
	require.NoError(t, err)
	require.Len(t, resources, 3)

	byURL := map[string]finding.RuntimeResource{}
	for _, r := range resources {
		byURL[r.URL] = r
	}

	app := byURL[srv.URL+"/js/app.js"]
	assert.Equal(t, finding.MediaScript, app.MediaKind)
	assert.True(t, app.SameOrigin)

	css := byURL[srv.URL+"/css/site.css"]
	assert.Equal(t, finding.MediaStyle, css.MediaKind)
	assert.True(t, css.SameOrigin)

	cdn := byURL["https://cdn.example.com/lib.js"]
	assert.Equal(t, finding.MediaScript, cdn.MediaKind)
	assert.False(t, cdn.SameOrigin, "cross-origin reference is recorded, not followed")
}

func TestCollect_FollowsSameOriginLinksOnly(t *testing.T) {
	srv := serveSite(t, map[string]string{
		"/": `<html>
<a href="/orders">Orders</a>
<a href="https://other.example.com/away">Away</a>
</html>`,
		"/orders": `<html><script src="/js/orders.js"></script></html>`,
	})

	resources, err := newTestCollector().Collect(context.Background(), srv.URL+"/", 10)
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, srv.URL+"/js/orders.js", resources[0].URL)
}

func TestCollect_DeduplicatesAcrossPages(t *testing.T) {
	shared := `<script src="/js/shared.js"></script>`
	srv := serveSite(t, map[string]string{
		"/":    `<html>` + shared + `<a href="/two">two</a></html>`,
		"/two": `<html>` + shared + `</html>`,
	})

	resources, err := newTestCollector().Collect(context.Background(), srv.URL+"/", 10)
	require.NoError(t, err)
	assert.Len(t, resources, 1)
}

func TestCollect_RespectsPageBound(t *testing.T) {
	pages := map[string]string{}
	for i := 0; i < 10; i++ {
		pages[fmt.Sprintf("/p%d", i)] = fmt.Sprintf(
			`<html><script src="/js/p%d.js"></script><a href="/p%d">next</a></html>`, i, i+1)
	}
	srv := serveSite(t, pages)

	resources, err := newTestCollector().Collect(context.Background(), srv.URL+"/p0", 3)
	require.NoError(t, err)
	assert.Len(t, resources, 3, "only the first three pages are fetched")
}

func TestCollect_CancelledContextReturnsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := serveSite(t, map[string]string{"/": `<html></html>`})
	resources, err := newTestCollector().Collect(ctx, srv.URL+"/", 5)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, resources)
}

func TestCollect_RejectsInvalidStartURL(t *testing.T) {
	_, err := newTestCollector().Collect(context.Background(), "::not a url::", 1)
	require.Error(t, err)
}

func TestCollect_SkipsNonPageSchemes(t *testing.T) {
	srv := serveSite(t, map[string]string{
		"/": `<html>
<a href="javascript:void(0)">noop</a>
<a href="mailto:x@example.com">mail</a>
<a href="#frag">frag</a>
<script src="/js/app.js"></script>
</html>`,
	})

	resources, err := newTestCollector().Collect(context.Background(), srv.URL+"/", 10)
	require.NoError(t, err)
	assert.Len(t, resources, 1, "non-navigable link schemes are ignored")
}
