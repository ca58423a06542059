package crawler

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/scan-web/cspaudit/pkg/finding"
)

var (
	reScriptSrc = regexp.MustCompile(`(?i)<script\b[^>]*\bsrc\s*=\s*["']([^"']+)["']`)
	reLinkTag   = regexp.MustCompile(`(?i)<link\b[^>]*>`)
	reHrefValue = regexp.MustCompile(`(?i)\bhref\s*=\s*["']([^"']+)["']`)
	reRelValue  = regexp.MustCompile(`(?i)\brel\s*=\s*["']([^"']+)["']`)
	reAnchor    = regexp.MustCompile(`(?i)<a\b[^>]*\bhref\s*=\s*["']([^"']+)["']`)
)

// Collector walks a running deployment of the audited site and records the
// script and stylesheet resources its pages actually reference. The result is
// the runtime half of a reconciliation: resources the crawl sees but the
// source scan does not, and vice versa.
type Collector struct {
	client *resty.Client
	logger hclog.Logger
}

// NewCollector creates a Collector on top of a configured resty client.
func NewCollector(client *resty.Client, logger hclog.Logger) *Collector {
	return &Collector{client: client, logger: logger}
}

// Collect crawls breadth-first from startURL, following same-origin page
// links only, and returns the distinct script and stylesheet resources found.
// maxPages bounds the number of pages fetched; zero or negative means a
// single page. Cancellation returns the resources collected so far together
// with the context error.
func (c *Collector) Collect(ctx context.Context, startURL string, maxPages int) ([]finding.RuntimeResource, error) {
	start, err := url.Parse(startURL)
	if err != nil || start.Host == "" {
		return nil, fmt.Errorf("invalid start URL %q", startURL)
	}
	if maxPages < 1 {
		maxPages = 1
	}

	queue := []*url.URL{start}
	visited := map[string]bool{pageKey(start): true}
	seen := map[string]bool{}
	var resources []finding.RuntimeResource

	fetched := 0
	for len(queue) > 0 && fetched < maxPages {
		if err := ctx.Err(); err != nil {
			return resources, err
		}

		page := queue[0]
		queue = queue[1:]
		fetched++

		body, err := c.fetchPage(ctx, page)
		if err != nil {
			c.logger.Warn("page fetch failed", "url", page.String(), "error", err)
			continue
		}

		for _, res := range c.harvest(page, start, body) {
			key := string(res.MediaKind) + "|" + res.URL
			if seen[key] {
				continue
			}
			seen[key] = true
			resources = append(resources, res)
		}

		for _, next := range pageLinks(page, start, body) {
			key := pageKey(next)
			if visited[key] {
				continue
			}
			visited[key] = true
			queue = append(queue, next)
		}
	}

	sort.Slice(resources, func(i, j int) bool {
		if resources[i].URL != resources[j].URL {
			return resources[i].URL < resources[j].URL
		}
		return resources[i].MediaKind < resources[j].MediaKind
	})

	c.logger.Info("crawl finished", "pages", fetched, "resources", len(resources))
	return resources, nil
}

func (c *Collector) fetchPage(ctx context.Context, page *url.URL) (string, error) {
	resp, err := c.client.R().SetContext(ctx).Get(page.String())
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("unexpected status %s", resp.Status())
	}
	contentType := resp.Header().Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "html") {
		return "", fmt.Errorf("not an HTML page (%s)", contentType)
	}
	return string(resp.Body()), nil
}

// harvest extracts the script and stylesheet references of one page.
func (c *Collector) harvest(page, origin *url.URL, body string) []finding.RuntimeResource {
	var out []finding.RuntimeResource

	for _, m := range reScriptSrc.FindAllStringSubmatch(body, -1) {
		if res, ok := resourceFor(page, origin, m[1], finding.MediaScript); ok {
			out = append(out, res)
		}
	}

	for _, tag := range reLinkTag.FindAllString(body, -1) {
		rel := reRelValue.FindStringSubmatch(tag)
		if rel == nil || !strings.EqualFold(strings.TrimSpace(rel[1]), "stylesheet") {
			continue
		}
		href := reHrefValue.FindStringSubmatch(tag)
		if href == nil {
			continue
		}
		if res, ok := resourceFor(page, origin, href[1], finding.MediaStyle); ok {
			out = append(out, res)
		}
	}

	return out
}

func resourceFor(page, origin *url.URL, raw string, kind finding.MediaKind) (finding.RuntimeResource, bool) {
	resolved, ok := resolveRef(page, raw)
	if !ok {
		return finding.RuntimeResource{}, false
	}
	return finding.RuntimeResource{
		URL:        resolved.String(),
		MediaKind:  kind,
		SameOrigin: sameOrigin(resolved, origin),
	}, true
}

// pageLinks returns the same-origin anchors of a page, normalized for the
// visited set. Cross-origin links are recorded as resources by harvest when
// referenced, but never followed.
func pageLinks(page, origin *url.URL, body string) []*url.URL {
	var out []*url.URL
	for _, m := range reAnchor.FindAllStringSubmatch(body, -1) {
		resolved, ok := resolveRef(page, m[1])
		if !ok || !sameOrigin(resolved, origin) {
			continue
		}
		resolved.Fragment = ""
		out = append(out, resolved)
	}
	return out
}

func resolveRef(page *url.URL, raw string) (*url.URL, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(strings.ToLower(raw), "javascript:") ||
		strings.HasPrefix(strings.ToLower(raw), "mailto:") ||
		strings.HasPrefix(raw, "#") {
		return nil, false
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return nil, false
	}
	resolved := page.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return nil, false
	}
	return resolved, true
}

func sameOrigin(u, origin *url.URL) bool {
	return strings.EqualFold(u.Host, origin.Host)
}

func pageKey(u *url.URL) string {
	return strings.ToLower(u.Host) + u.Path + "?" + u.RawQuery
}
