package reconcile

import (
	"net/url"
	"strings"

	"github.com/scan-web/cspaudit/pkg/finding"
)

// Correlate partitions runtime resources and static findings into matched,
// web-only and code-only records. It is a pure function: deterministic for a
// given input pair, no side effects.
//
// Matching is one-to-one: once a resource is matched to a finding neither
// participates in a second match. This guarantees
// |matched| + |web-only| = |resources| and
// |matched| + |code-only| = |eligible findings|.
func Correlate(findings []finding.Finding, resources []finding.RuntimeResource) []finding.ReconciliationRecord {
	eligible := eligibleFindings(findings)

	// Index findings by normalized identity, preserving input order.
	byIdentity := make(map[string][]int, len(eligible))
	for i, f := range eligible {
		id := NormalizeFindingIdentity(f)
		byIdentity[id] = append(byIdentity[id], i)
	}

	matchedFinding := make(map[int]bool, len(eligible))
	records := make([]finding.ReconciliationRecord, 0, len(eligible)+len(resources))

	for ri := range resources {
		res := resources[ri]
		id := NormalizeResourceIdentity(res)

		matched := false
		for _, fi := range byIdentity[id] {
			if matchedFinding[fi] {
				continue
			}
			matchedFinding[fi] = true
			matched = true
			f := eligible[fi]
			records = append(records, finding.ReconciliationRecord{
				Status:   finding.StatusMatched,
				Identity: id,
				Finding:  &f,
				Resource: &res,
			})
			break
		}
		if !matched {
			records = append(records, finding.ReconciliationRecord{
				Status:   finding.StatusWebOnly,
				Identity: id,
				Resource: &res,
			})
		}
	}

	for fi := range eligible {
		if matchedFinding[fi] {
			continue
		}
		f := eligible[fi]
		records = append(records, finding.ReconciliationRecord{
			Status:   finding.StatusCodeOnly,
			Identity: NormalizeFindingIdentity(f),
			Finding:  &f,
		})
	}

	return records
}

// EligibleCount returns the number of findings that participate in
// correlation: only external-file findings carry a resource identity.
func EligibleCount(findings []finding.Finding) int {
	return len(eligibleFindings(findings))
}

func eligibleFindings(findings []finding.Finding) []finding.Finding {
	var out []finding.Finding
	for _, f := range findings {
		if f.Origin == finding.OriginExternalFile && f.Resource != "" {
			out = append(out, f)
		}
	}
	return out
}

// NormalizeResourceIdentity computes the comparison identity for a crawled
// resource. Same-origin resources are reduced to their path, compared
// case-insensitively; cross-origin URLs keep the full URL with a lowercased
// host.
func NormalizeResourceIdentity(r finding.RuntimeResource) string {
	if r.SameOrigin {
		return normalizePath(stripOrigin(r.URL))
	}
	return lowercaseHost(r.URL)
}

// NormalizeFindingIdentity computes the comparison identity for an
// external-file finding's referenced resource.
func NormalizeFindingIdentity(f finding.Finding) string {
	res := f.Resource
	if strings.Contains(res, "://") || strings.HasPrefix(res, "//") {
		return lowercaseHost(res)
	}
	return normalizePath(res)
}

// stripOrigin removes the scheme and host from an absolute URL, leaving the
// path and query.
func stripOrigin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.Host == "" {
		return raw
	}
	out := u.Path
	if u.RawQuery != "" {
		out += "?" + u.RawQuery
	}
	return out
}

// normalizePath canonicalizes a relative resource path. The audited source
// trees are served case-insensitively, so the whole path folds to lower case.
func normalizePath(p string) string {
	p = strings.TrimPrefix(p, "~")
	p = strings.ReplaceAll(p, "\\", "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.ToLower(p)
}

// lowercaseHost lowercases the scheme and host of an absolute URL, leaving
// the remainder untouched for exact comparison.
func lowercaseHost(raw string) string {
	withScheme := raw
	if strings.HasPrefix(raw, "//") {
		withScheme = "https:" + raw
	}
	u, err := url.Parse(withScheme)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return u.String()
}
