package classifier

import "regexp"

// Rule identifiers. One rule produces at most one finding per matched range.
const (
	RuleInlineEventHandler = "inline-event-handler"
	RuleJavascriptURL      = "javascript-url"
	RuleInlineStyleAttr    = "inline-style-attribute"
	RuleScriptBlock        = "script-block"
	RuleExternalScript     = "external-script"
	RuleStyleBlock         = "style-block"
	RuleExternalStylesheet = "external-stylesheet"
)

// Tier 1: client script/style surfaces in markup.
var (
	reEventAttr     = regexp.MustCompile(`(?i)\bon[a-z]{3,}\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)
	reJavascriptURL = regexp.MustCompile(`(?i)\b(?:href|src|action)\s*=\s*["']\s*javascript:[^"']*["']`)
	reStyleAttr     = regexp.MustCompile(`(?i)\bstyle\s*=\s*("[^"]*"|'[^']*')`)

	reScriptOpen  = regexp.MustCompile(`(?i)<script\b[^>]*>`)
	reScriptClose = regexp.MustCompile(`(?i)</script\s*>`)
	reStyleOpen   = regexp.MustCompile(`(?i)<style\b[^>]*>`)
	reStyleClose  = regexp.MustCompile(`(?i)</style\s*>`)

	reSrcAttr        = regexp.MustCompile(`(?i)\bsrc\s*=\s*["']?([^"'\s>]+)`)
	reHrefAttr       = regexp.MustCompile(`(?i)\bhref\s*=\s*["']?([^"'\s>]+)`)
	reStylesheetLink = regexp.MustCompile(`(?i)<link\b[^>]*\brel\s*=\s*["']?stylesheet["']?[^>]*>`)

	reHTMLComment = regexp.MustCompile(`(?s)<!--.*?(?:-->|$)`)
)

// Tier 2: network/traffic primitives inside script bodies. Construct and
// configuration patterns only set up a future call; they are tagged
// event-config and excluded from the logical-request aggregate. Only the
// transmission patterns count as traffic.
var (
	constructPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bnew\s+XMLHttpRequest\b`),
		regexp.MustCompile(`\bnew\s+(?:WebSocket|EventSource)\b`),
		regexp.MustCompile(`\.open\s*\(`),
		regexp.MustCompile(`\$\.ajaxSetup\s*\(`),
		regexp.MustCompile(`\baddEventListener\s*\(`),
		regexp.MustCompile(`\bsetRequestHeader\s*\(`),
	}

	transmissionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\.send\s*\(`),
		regexp.MustCompile(`\$\.(?:ajax|get|post|getJSON|load)\s*\(`),
		regexp.MustCompile(`\bfetch\s*\(`),
		regexp.MustCompile(`\.postMessage\s*\(`),
	}

	uiInjectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bdocument\.write(?:ln)?\s*\(`),
		regexp.MustCompile(`\.innerHTML\s*=`),
		regexp.MustCompile(`\.outerHTML\s*=`),
		regexp.MustCompile(`\.insertAdjacentHTML\s*\(`),
	}

	scriptLoadingPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bcreateElement\s*\(\s*["']script["']`),
		regexp.MustCompile(`\beval\s*\(`),
		regexp.MustCompile(`\bnew\s+Function\s*\(`),
		regexp.MustCompile(`\.setAttribute\s*\(\s*["']src["']`),
	}
)

// Tier 3: server-side template markers. A marker inside a tier-1 match
// refines that finding's server dependency instead of producing a second
// finding.
var serverMarkerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)<%.*?(?:%>|$)`),
	regexp.MustCompile(`@(?:Model|Html|ViewBag|ViewData|Url|Request|Session|Resources)\b`),
	regexp.MustCompile(`(?s)\{\{.*?\}\}`),
	regexp.MustCompile(`<\?(?:php\b|=)`),
}

func anyMatch(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func countMatches(patterns []*regexp.Regexp, s string) int {
	n := 0
	for _, re := range patterns {
		n += len(re.FindAllStringIndex(s, -1))
	}
	return n
}
