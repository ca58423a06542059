package classifier

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-web/cspaudit/pkg/finding"
)

func classify(t *testing.T, text string) []finding.Finding {
	t.Helper()
	return New(Options{}).Classify("views/page.aspx", text)
}

func findByRule(findings []finding.Finding, ruleID string) []finding.Finding {
	var out []finding.Finding
	for _, f := range findings {
		if f.RuleID == ruleID {
			out = append(out, f)
		}
	}
	return out
}

func TestClassify_InlineEventHandler(t *testing.T) {
	findings := classify(t, `<html><body>
<button onclick="go()">Go</button>
</body></html>`)

	handlers := findByRule(findings, RuleInlineEventHandler)
	require.Len(t, handlers, 1)
	f := handlers[0]
	assert.Equal(t, finding.OriginInlineAttribute, f.Origin)
	assert.Equal(t, finding.MediaScript, f.MediaKind)
	assert.Equal(t, finding.DependencyNone, f.ServerDependency)
	assert.Equal(t, finding.DifficultyEasy, f.Difficulty)
	assert.Equal(t, 2, f.StartLine)
	assert.Equal(t, 2, f.EndLine)
}

func TestClassify_InternalScriptBlock(t *testing.T) {
	findings := classify(t, `<p>hello</p>
<script>
function greet() { alert("hi"); }
</script>`)

	blocks := findByRule(findings, RuleScriptBlock)
	require.Len(t, blocks, 1)
	f := blocks[0]
	assert.Equal(t, finding.OriginInternalBlock, f.Origin)
	assert.False(t, f.Malformed)
	assert.Equal(t, 2, f.StartLine)
	assert.Equal(t, 4, f.EndLine)
	assert.Equal(t, finding.DifficultyEasy, f.Difficulty)
}

func TestClassify_ExternalScript(t *testing.T) {
	findings := classify(t, `<script src="/js/site.js"></script>`)

	ext := findByRule(findings, RuleExternalScript)
	require.Len(t, ext, 1)
	assert.Equal(t, finding.OriginExternalFile, ext[0].Origin)
	assert.Equal(t, "/js/site.js", ext[0].Resource)
	assert.Equal(t, finding.DifficultyMedium, ext[0].Difficulty)

	// A script tag with src must not also produce an internal-block finding.
	assert.Empty(t, findByRule(findings, RuleScriptBlock))
}

func TestClassify_UnterminatedBlockIsMalformed(t *testing.T) {
	findings := classify(t, `<script>
var x = 1;
// close tag never arrives`)

	blocks := findByRule(findings, RuleScriptBlock)
	require.Len(t, blocks, 1)
	assert.True(t, blocks[0].Malformed)
	assert.Equal(t, 1, blocks[0].StartLine)
	assert.Equal(t, 3, blocks[0].EndLine, "malformed block spans to end of file")
}

func TestClassify_ConstructVersusLogicalRequest(t *testing.T) {
	findings := classify(t, `<script>
var xhr = new XMLHttpRequest();
xhr.open("POST", "/api/orders");
xhr.setRequestHeader("Content-Type", "application/json");
xhr.send(payload);
</script>`)

	blocks := findByRule(findings, RuleScriptBlock)
	require.Len(t, blocks, 1)
	f := blocks[0]

	// One construct, one open, one header setup and one send must count as a
	// single logical request, not four.
	assert.Equal(t, finding.CapabilityDataExchange, f.Capability)
	assert.Equal(t, 1, finding.LogicalRequestCount(findings))
}

func TestClassify_ConfigOnlyBlockIsEventConfig(t *testing.T) {
	findings := classify(t, `<script>
$.ajaxSetup({ cache: false });
</script>`)

	blocks := findByRule(findings, RuleScriptBlock)
	require.Len(t, blocks, 1)
	f := blocks[0]
	assert.Equal(t, finding.CapabilityEventConfig, f.Capability)
	assert.True(t, f.GlobalScope)
	assert.Equal(t, finding.DifficultyHard, f.Difficulty, "global-scope configuration hooks are hard")
	assert.Zero(t, finding.LogicalRequestCount(findings), "configuration is not traffic")
}

func TestClassify_ScopedEventConfigIsNotHard(t *testing.T) {
	findings := classify(t, `<script>
function wire() { document.addEventListener("click", onClick); }
</script>`)

	blocks := findByRule(findings, RuleScriptBlock)
	require.Len(t, blocks, 1)
	assert.Equal(t, finding.CapabilityEventConfig, blocks[0].Capability)
	assert.False(t, blocks[0].GlobalScope)
	assert.Equal(t, finding.DifficultyEasy, blocks[0].Difficulty)
}

func TestClassify_ScriptLoadingIsHard(t *testing.T) {
	findings := classify(t, `<script>
var s = document.createElement('script');
s.setAttribute('src', host + '/tracker.js');
</script>`)

	blocks := findByRule(findings, RuleScriptBlock)
	require.Len(t, blocks, 1)
	assert.Equal(t, finding.CapabilityScriptLoading, blocks[0].Capability)
	assert.Equal(t, finding.DifficultyHard, blocks[0].Difficulty)
}

func TestClassify_ServerMarkerInScriptBodyIsHigh(t *testing.T) {
	findings := classify(t, `<script>
var userId = '@Model.UserId';
</script>`)

	blocks := findByRule(findings, RuleScriptBlock)
	require.Len(t, blocks, 1)
	assert.Equal(t, finding.DependencyHigh, blocks[0].ServerDependency)
	assert.Equal(t, finding.DifficultyHard, blocks[0].Difficulty)
}

func TestClassify_ServerMarkerInAttributeIsMedium(t *testing.T) {
	findings := classify(t, `<button onclick="remove('@Model.Id')">X</button>`)

	handlers := findByRule(findings, RuleInlineEventHandler)
	require.Len(t, handlers, 1)
	assert.Equal(t, finding.DependencyMedium, handlers[0].ServerDependency)
	assert.Equal(t, finding.DifficultyMedium, handlers[0].Difficulty)
}

func TestClassify_MarkerElsewhereInFileIsLow(t *testing.T) {
	findings := classify(t, `<h1><%= Title %></h1>
<script>
var x = 1;
</script>`)

	blocks := findByRule(findings, RuleScriptBlock)
	require.Len(t, blocks, 1)
	assert.Equal(t, finding.DependencyLow, blocks[0].ServerDependency)
	assert.Equal(t, finding.DifficultyMedium, blocks[0].Difficulty)
}

func TestClassify_JavascriptURL(t *testing.T) {
	findings := classify(t, `<a href="javascript:submitForm()">send</a>`)

	urls := findByRule(findings, RuleJavascriptURL)
	require.Len(t, urls, 1)
	assert.Equal(t, finding.OriginInlineAttribute, urls[0].Origin)
}

func TestClassify_StyleBlockAndStylesheetLink(t *testing.T) {
	findings := classify(t, `<style>
body { color: red; }
</style>
<link rel="stylesheet" href="/css/site.css">`)

	blocks := findByRule(findings, RuleStyleBlock)
	require.Len(t, blocks, 1)
	assert.Equal(t, finding.MediaStyle, blocks[0].MediaKind)

	links := findByRule(findings, RuleExternalStylesheet)
	require.Len(t, links, 1)
	assert.Equal(t, "/css/site.css", links[0].Resource)
	assert.Equal(t, finding.OriginExternalFile, links[0].Origin)
}

func TestClassify_CommentedMatchesRetainedByDefault(t *testing.T) {
	text := `<!-- <button onclick="legacy()">old</button> -->`

	findings := New(Options{}).Classify("page.html", text)
	assert.NotEmpty(t, findByRule(findings, RuleInlineEventHandler), "zero-miss policy keeps commented matches")

	suppressed := New(Options{SuppressCommented: true}).Classify("page.html", text)
	assert.Empty(t, findByRule(suppressed, RuleInlineEventHandler))
}

func TestClassify_UndecodableTextYieldsScanError(t *testing.T) {
	findings := New(Options{}).Classify("page.html", "<html>\xff\xfe</html>")

	require.Len(t, findings, 1)
	assert.True(t, findings[0].IsScanError())
	assert.NotEmpty(t, findings[0].ScanError)
}

func TestClassify_LineRangeAndUniquenessInvariants(t *testing.T) {
	findings := classify(t, `<body onload="init()">
<script>
fetch('/api');
</script>
<div onclick="a()"></div>
<div onclick="a()"></div>
<style>.x{}</style>
</body>`)

	require.NotEmpty(t, findings)
	seen := map[string]bool{}
	for _, f := range findings {
		assert.GreaterOrEqual(t, f.EndLine, f.StartLine)
		key := fmt.Sprintf("%s:%d:%d:%s", f.FilePath, f.StartLine, f.EndLine, f.Origin)
		assert.False(t, seen[key], "duplicate finding tuple %s", key)
		seen[key] = true
	}
}

func TestClassify_SnippetsAreBounded(t *testing.T) {
	long := "<script>"
	for i := 0; i < 100; i++ {
		long += "var padding_variable_" + fmt.Sprint(i) + " = 'some long content here';\n"
	}
	long += "</script>"

	findings := New(Options{SnippetLimit: 64, ContextLimit: 128}).Classify("page.html", long)
	blocks := findByRule(findings, RuleScriptBlock)
	require.Len(t, blocks, 1)
	assert.LessOrEqual(t, len(blocks[0].Snippet), 64)
	assert.LessOrEqual(t, len(blocks[0].FullContext), 128)
}
