package classifier

import (
	"sort"

	"github.com/scan-web/cspaudit/pkg/finding"
)

// document caches per-file derived data shared by every rule: line offsets,
// HTML comment ranges and whether the file contains server template markers
// at all.
type document struct {
	path string
	text string

	lineOffsets []int
	comments    [][2]int
	hasMarkers  bool
}

func newDocument(path, text string) *document {
	doc := &document{path: path, text: text}

	doc.lineOffsets = append(doc.lineOffsets, 0)
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			doc.lineOffsets = append(doc.lineOffsets, i+1)
		}
	}

	for _, loc := range reHTMLComment.FindAllStringIndex(text, -1) {
		doc.comments = append(doc.comments, [2]int{loc[0], loc[1]})
	}

	doc.hasMarkers = anyMatch(serverMarkerPatterns, text)
	return doc
}

// lineAt returns the 1-based line number containing the byte offset.
func (d *document) lineAt(offset int) int {
	if offset < 0 {
		offset = 0
	}
	i := sort.Search(len(d.lineOffsets), func(i int) bool {
		return d.lineOffsets[i] > offset
	})
	return i
}

// context returns the lines around the given 1-based range, one line of
// margin on each side.
func (d *document) context(startLine, endLine int) string {
	first := startLine - 2
	if first < 0 {
		first = 0
	}
	last := endLine + 1
	if last > len(d.lineOffsets) {
		last = len(d.lineOffsets)
	}

	from := d.lineOffsets[first]
	to := len(d.text)
	if last < len(d.lineOffsets) {
		to = d.lineOffsets[last] - 1
	}
	return d.text[from:to]
}

// bodyDependency grades server dependency for executable script or style
// bodies: a marker inside the body means the tool cannot evaluate what the
// server will emit there, so the dependency is high. A marker elsewhere in
// the same file still taints the finding, at low.
func (d *document) bodyDependency(body string) finding.ServerDependency {
	if anyMatch(serverMarkerPatterns, body) {
		return finding.DependencyHigh
	}
	if d.hasMarkers {
		return finding.DependencyLow
	}
	return finding.DependencyNone
}

// attributeDependency grades server dependency for markup-attribute contexts,
// where a marker renders into an attribute value rather than into executable
// statements: medium instead of high.
func (d *document) attributeDependency(attrText string) finding.ServerDependency {
	if anyMatch(serverMarkerPatterns, attrText) {
		return finding.DependencyMedium
	}
	if d.hasMarkers {
		return finding.DependencyLow
	}
	return finding.DependencyNone
}

// dropCommented removes matches whose whole byte range lies inside an HTML
// comment. Matches that only touch a comment are kept.
func (d *document) dropCommented(matches []match) []match {
	if len(d.comments) == 0 {
		return matches
	}
	out := matches[:0]
	for _, m := range matches {
		if !d.inComment(m.start, m.end) {
			out = append(out, m)
		}
	}
	return out
}

func (d *document) inComment(start, end int) bool {
	for _, c := range d.comments {
		if start >= c[0] && end <= c[1] {
			return true
		}
	}
	return false
}
