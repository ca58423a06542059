package classifier

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/scan-web/cspaudit/pkg/finding"
)

const (
	defaultSnippetLimit = 200
	defaultContextLimit = 500
)

// Options configures a Classifier. The zero value gives the default
// zero-miss behavior: matches inside comments and string literals are
// retained and surfaced to the reviewer rather than silently dropped.
type Options struct {
	// SuppressCommented drops findings whose whole match lies inside an HTML
	// comment. Off by default.
	SuppressCommented bool

	SnippetLimit int
	ContextLimit int
}

// Classifier applies the tiered pattern rule table to file contents. It is
// immutable after construction, so classification runs are reproducible.
type Classifier struct {
	opts Options
}

// New creates a Classifier with the given options.
func New(opts Options) *Classifier {
	if opts.SnippetLimit <= 0 {
		opts.SnippetLimit = defaultSnippetLimit
	}
	if opts.ContextLimit <= 0 {
		opts.ContextLimit = defaultContextLimit
	}
	return &Classifier{opts: opts}
}

// ScanErrorFinding builds the synthetic finding recorded for an unreadable or
// undecodable file. The scan continues; nothing is raised.
func ScanErrorFinding(filePath, message string) finding.Finding {
	return finding.Finding{
		RuleID:           finding.RuleIDScanError,
		FilePath:         filePath,
		StartLine:        1,
		EndLine:          1,
		Origin:           finding.OriginInternalBlock,
		MediaKind:        finding.MediaScript,
		ServerDependency: finding.DependencyNone,
		Difficulty:       finding.DifficultyHard,
		ScanError:        message,
	}
}

// match pairs a finding with the byte range it was built from. The byte range
// is needed for comment suppression and duplicate elimination and is dropped
// from the output.
type match struct {
	f          finding.Finding
	start, end int
}

// Classify applies the rule table to one file's text and returns the findings
// ordered by start line. Undecodable text produces a single scan-error
// finding.
func (c *Classifier) Classify(filePath, text string) []finding.Finding {
	if !utf8.ValidString(text) {
		return []finding.Finding{ScanErrorFinding(filePath, "file content is not valid UTF-8")}
	}

	doc := newDocument(filePath, text)

	var matches []match
	matches = append(matches, c.scriptFindings(doc)...)
	matches = append(matches, c.styleFindings(doc)...)
	matches = append(matches, c.attributeFindings(doc)...)

	if c.opts.SuppressCommented {
		matches = doc.dropCommented(matches)
	}

	matches = dedupe(matches)
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].start != matches[j].start {
			return matches[i].start < matches[j].start
		}
		if matches[i].end != matches[j].end {
			return matches[i].end < matches[j].end
		}
		return matches[i].f.RuleID < matches[j].f.RuleID
	})

	out := make([]finding.Finding, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.f)
	}
	return out
}

// scriptFindings walks <script> open tags. A tag with a src attribute is an
// external-file finding spanning the tag itself; otherwise the finding spans
// the whole block. An unterminated block runs to end of file and is flagged
// malformed instead of being dropped.
func (c *Classifier) scriptFindings(doc *document) []match {
	var out []match
	pos := 0
	for pos < len(doc.text) {
		loc := reScriptOpen.FindStringIndex(doc.text[pos:])
		if loc == nil {
			break
		}
		openStart := pos + loc[0]
		openEnd := pos + loc[1]
		tag := doc.text[openStart:openEnd]

		if src := reSrcAttr.FindStringSubmatch(tag); src != nil {
			f := c.newFinding(doc, RuleExternalScript, openStart, openEnd, finding.OriginExternalFile, finding.MediaScript, false)
			f.Resource = src[1]
			f.Capability = finding.CapabilityUnknown
			f.ServerDependency = doc.attributeDependency(tag)
			f.Difficulty = finding.DeriveDifficulty(f.Origin, f.ServerDependency, f.Capability, false)
			out = append(out, match{f: f, start: openStart, end: openEnd})
			pos = openEnd
			continue
		}

		blockEnd, bodyEnd, malformed := findClose(doc.text, openEnd, reScriptClose)
		body := doc.text[openEnd:bodyEnd]

		f := c.newFinding(doc, RuleScriptBlock, openStart, blockEnd, finding.OriginInternalBlock, finding.MediaScript, malformed)
		capability, requests, globalScope := analyzeScriptBody(body)
		f.Capability = capability
		f.LogicalRequests = requests
		f.GlobalScope = globalScope
		f.ServerDependency = doc.bodyDependency(body)
		f.Difficulty = finding.DeriveDifficulty(f.Origin, f.ServerDependency, f.Capability, globalScope)
		out = append(out, match{f: f, start: openStart, end: blockEnd})
		pos = blockEnd
	}
	return out
}

// styleFindings collects <style> blocks and <link rel=stylesheet> references.
func (c *Classifier) styleFindings(doc *document) []match {
	var out []match
	pos := 0
	for pos < len(doc.text) {
		loc := reStyleOpen.FindStringIndex(doc.text[pos:])
		if loc == nil {
			break
		}
		openStart := pos + loc[0]
		openEnd := pos + loc[1]

		blockEnd, bodyEnd, malformed := findClose(doc.text, openEnd, reStyleClose)
		body := doc.text[openEnd:bodyEnd]

		f := c.newFinding(doc, RuleStyleBlock, openStart, blockEnd, finding.OriginInternalBlock, finding.MediaStyle, malformed)
		f.ServerDependency = doc.bodyDependency(body)
		f.Difficulty = finding.DeriveDifficulty(f.Origin, f.ServerDependency, "", false)
		out = append(out, match{f: f, start: openStart, end: blockEnd})
		pos = blockEnd
	}

	for _, loc := range reStylesheetLink.FindAllStringIndex(doc.text, -1) {
		tag := doc.text[loc[0]:loc[1]]
		href := reHrefAttr.FindStringSubmatch(tag)
		if href == nil {
			continue
		}
		f := c.newFinding(doc, RuleExternalStylesheet, loc[0], loc[1], finding.OriginExternalFile, finding.MediaStyle, false)
		f.Resource = href[1]
		f.ServerDependency = doc.attributeDependency(tag)
		f.Difficulty = finding.DeriveDifficulty(f.Origin, f.ServerDependency, "", false)
		out = append(out, match{f: f, start: loc[0], end: loc[1]})
	}
	return out
}

// attributeFindings collects inline event handlers, javascript: URLs and
// inline style attributes.
func (c *Classifier) attributeFindings(doc *document) []match {
	var out []match

	for _, loc := range reEventAttr.FindAllStringSubmatchIndex(doc.text, -1) {
		whole := doc.text[loc[0]:loc[1]]
		value := trimQuotes(doc.text[loc[2]:loc[3]])
		f := c.newFinding(doc, RuleInlineEventHandler, loc[0], loc[1], finding.OriginInlineAttribute, finding.MediaScript, false)
		capability, requests, _ := analyzeScriptBody(value)
		f.Capability = capability
		f.LogicalRequests = requests
		f.ServerDependency = doc.attributeDependency(whole)
		f.Difficulty = finding.DeriveDifficulty(f.Origin, f.ServerDependency, f.Capability, false)
		out = append(out, match{f: f, start: loc[0], end: loc[1]})
	}

	for _, loc := range reJavascriptURL.FindAllStringIndex(doc.text, -1) {
		whole := doc.text[loc[0]:loc[1]]
		f := c.newFinding(doc, RuleJavascriptURL, loc[0], loc[1], finding.OriginInlineAttribute, finding.MediaScript, false)
		capability, requests, _ := analyzeScriptBody(whole)
		f.Capability = capability
		f.LogicalRequests = requests
		f.ServerDependency = doc.attributeDependency(whole)
		f.Difficulty = finding.DeriveDifficulty(f.Origin, f.ServerDependency, f.Capability, false)
		out = append(out, match{f: f, start: loc[0], end: loc[1]})
	}

	for _, loc := range reStyleAttr.FindAllStringIndex(doc.text, -1) {
		whole := doc.text[loc[0]:loc[1]]
		f := c.newFinding(doc, RuleInlineStyleAttr, loc[0], loc[1], finding.OriginInlineAttribute, finding.MediaStyle, false)
		f.ServerDependency = doc.attributeDependency(whole)
		f.Difficulty = finding.DeriveDifficulty(f.Origin, f.ServerDependency, "", false)
		out = append(out, match{f: f, start: loc[0], end: loc[1]})
	}

	return out
}

// newFinding fills the location and capture fields common to all rules.
func (c *Classifier) newFinding(doc *document, ruleID string, start, end int, origin finding.Origin, media finding.MediaKind, malformed bool) finding.Finding {
	startLine := doc.lineAt(start)
	endLine := doc.lineAt(end - 1)
	if end <= start {
		endLine = startLine
	}
	return finding.Finding{
		RuleID:      ruleID,
		FilePath:    doc.path,
		StartLine:   startLine,
		EndLine:     endLine,
		Origin:      origin,
		MediaKind:   media,
		Snippet:     truncate(doc.text[start:end], c.opts.SnippetLimit),
		FullContext: truncate(doc.context(startLine, endLine), c.opts.ContextLimit),
		Malformed:   malformed,
	}
}

// analyzeScriptBody tags a script body with its dominant capability and counts
// logical requests. Construct and configuration matches never count as
// traffic: one open + one send is one logical request, not two.
func analyzeScriptBody(body string) (finding.Capability, int, bool) {
	requests := countMatches(transmissionPatterns, body)

	globalScope := false
	constructs := 0
	for _, re := range constructPatterns {
		for _, loc := range re.FindAllStringIndex(body, -1) {
			constructs++
			if braceDepthAt(body, loc[0]) == 0 {
				globalScope = true
			}
		}
	}

	var capability finding.Capability
	switch {
	case anyMatch(scriptLoadingPatterns, body):
		capability = finding.CapabilityScriptLoading
	case requests > 0:
		capability = finding.CapabilityDataExchange
	case anyMatch(uiInjectionPatterns, body):
		capability = finding.CapabilityUIInjection
	case constructs > 0:
		capability = finding.CapabilityEventConfig
	default:
		capability = finding.CapabilityUnknown
	}

	return capability, requests, globalScope
}

// braceDepthAt approximates lexical scope: depth zero means the offset is
// outside any curly-brace body, which is as close to "global scope" as a
// pattern pass can establish without parsing.
func braceDepthAt(s string, idx int) int {
	depth := 0
	for i := 0; i < idx && i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		}
	}
	return depth
}

// findClose locates the close tag after openEnd. Without one the block spans
// to end of file and is reported malformed.
func findClose(text string, openEnd int, closeRe *regexp.Regexp) (blockEnd, bodyEnd int, malformed bool) {
	loc := closeRe.FindStringIndex(text[openEnd:])
	if loc == nil {
		return len(text), len(text), true
	}
	return openEnd + loc[1], openEnd + loc[0], false
}

func dedupe(matches []match) []match {
	seen := make(map[string]bool, len(matches))
	out := matches[:0]
	for _, m := range matches {
		key := fmt.Sprintf("%d:%d:%s", m.start, m.end, m.f.Origin)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m)
	}
	return out
}

func trimQuotes(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return strings.ToValidUTF8(s[:limit], "")
}
