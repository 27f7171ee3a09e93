package engine

import (
	"fmt"
	"strings"

	"github.com/adguard-like/filtercore/internal/rule"
	"github.com/adguard-like/filtercore/internal/rulelist"
)

// maxStylesheetRulesPerChunk mirrors rulelist's global-stylesheet chunking,
// applied here to the per-page selector list, per spec.md §4.8 "chunked at
// 1000 selectors per CSS rule".
const maxStylesheetRulesPerChunk = 1000

// cspMetaTemplate is injected into domain_javascript's output when any
// blocking filter matches the page URL with the InlineScript bit set, per
// spec.md §4.8.
const cspMetaTemplate = `<meta http-equiv="Content-Security-Policy" content="script-src 'unsafe-eval' * blob: data:">`

// dynamicInjectionTemplate is the fixed wrapper around domain_javascript's
// assembled body, per spec.md §4.8 "Wrap the whole string in the fixed
// dynamic-injection template".
const dynamicInjectionTemplate = "<script type=\"text/javascript\">\n%s\n</script>"

// DomainStylesheet implements spec.md §4.8's domain_stylesheet(url): the
// domain_style selectors applicable to url's host, chunked at 1000
// selectors per declaration, followed by every applicable custom_style
// filter verbatim. Results are cached in an LRU keyed by host.
func (e *Engine) DomainStylesheet(pageURL string) string {
	host := hostOf(pageURL)

	if v, err := e.styleCache.Get(host); err == nil {
		return v.(string)
	}

	sheet := buildDomainStylesheet(e.current(), host)
	_ = e.styleCache.Set(host, sheet)

	return sheet
}

func buildDomainStylesheet(c *rulelist.Container, host string) string {
	var sb strings.Builder
	sb.WriteString("<style>")

	pending := 0
	var chunk strings.Builder

	flush := func() {
		if pending == 0 {
			return
		}

		sb.WriteString(strings.TrimSuffix(chunk.String(), ","))
		sb.WriteString("{ display: none !important; } ")
		chunk.Reset()
		pending = 0
	}

	for _, f := range c.DomainStyleFilters(host) {
		if pending >= maxStylesheetRulesPerChunk {
			flush()
		}

		chunk.WriteString(f.EvalString)
		chunk.WriteString(",")
		pending++
	}

	flush()

	for _, f := range c.CustomStyleFilters(host) {
		sb.WriteString(f.EvalString)
	}

	sb.WriteString("</style>")

	return sb.String()
}

// DomainJavascript implements spec.md §4.8's domain_javascript(url):
// concatenated domain_js bodies, an injected CSP meta tag if any blocking
// filter matches url with the InlineScript bit set, and any matching
// csp-filter directive, all wrapped in the fixed injection template.
// Results are cached in an LRU keyed by host.
func (e *Engine) DomainJavascript(pageURL string) string {
	host := hostOf(pageURL)

	if v, err := e.jsCache.Get(host); err == nil {
		return v.(string)
	}

	body := buildDomainJavascript(e.current(), pageURL, host)
	_ = e.jsCache.Set(host, body)

	return body
}

func buildDomainJavascript(c *rulelist.Container, pageURL, host string) string {
	var sb strings.Builder

	for _, f := range c.DomainJSFilters(host) {
		sb.WriteString(f.EvalString)
		sb.WriteString("\n")
	}

	secondLevelDomain := rule.SecondLevelDomain(host)
	if c.HasInlineScriptMatch(secondLevelDomain, pageURL, pageURL, host) {
		sb.WriteString(cspMetaTemplate)
	}

	if directive, ok := c.MatchingCSP(pageURL, pageURL, host); ok {
		fmt.Fprintf(&sb, "<meta http-equiv=\"Content-Security-Policy\" content=%q>", directive)
	}

	return fmt.Sprintf(dynamicInjectionTemplate, sb.String())
}

// GenericStylesheet implements spec.md §4.8's generic_stylesheet(url): the
// empty string if any generic_hide filter matches url, otherwise the
// pre-built global stylesheet.
func (e *Engine) GenericStylesheet(pageURL string) string {
	c := e.current()
	secondLevelDomain := rule.SecondLevelDomain(hostOf(pageURL))

	if c.HasGenericHideFilter(pageURL, secondLevelDomain) {
		return ""
	}

	return c.GlobalStylesheet()
}
