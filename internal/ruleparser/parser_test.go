package ruleparser_test

import (
	"testing"

	"github.com/adguard-like/filtercore/internal/rule"
	"github.com/adguard-like/filtercore/internal/ruleparser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_domainRule(t *testing.T) {
	t.Parallel()

	f := ruleparser.Parse("||doubleclick.net^$image,third-party")
	require.Equal(t, rule.CategoryDomain, f.Category)
	assert.Equal(t, "doubleclick.net", f.EvalString)
	assert.True(t, f.BlockedTypes.Has(rule.Image))
	assert.True(t, f.BlockedTypes.Has(rule.ThirdParty))
}

func TestParse_domainStartRule(t *testing.T) {
	t.Parallel()

	f := ruleparser.Parse("||ads.example.com/banner")
	assert.Equal(t, rule.CategoryDomainStart, f.Category)
	assert.Equal(t, "ads.example.com/banner", f.EvalString)
}

func TestParse_exactMatch(t *testing.T) {
	t.Parallel()

	f := ruleparser.Parse("|http://example.com/ad.js|")
	assert.Equal(t, rule.CategoryStringExactMatch, f.Category)
	assert.Equal(t, "http://example.com/ad.js", f.EvalString)
}

func TestParse_startMatch(t *testing.T) {
	t.Parallel()

	f := ruleparser.Parse("|http://example.com/ad")
	assert.Equal(t, rule.CategoryStringStartMatch, f.Category)
	assert.Equal(t, "http://example.com/ad", f.EvalString)
}

func TestParse_endMatch(t *testing.T) {
	t.Parallel()

	f := ruleparser.Parse("ad.swf|")
	assert.Equal(t, rule.CategoryStringEndMatch, f.Category)
	assert.Equal(t, "ad.swf", f.EvalString)
}

func TestParse_stringContainsDefault(t *testing.T) {
	t.Parallel()

	f := ruleparser.Parse("/banner/ad_")
	assert.Equal(t, rule.CategoryStringContains, f.Category)
	assert.Equal(t, "/banner/ad_", f.EvalString)
	assert.NotZero(t, f.NeedleHash)
}

func TestParse_regexLiteral(t *testing.T) {
	t.Parallel()

	f := ruleparser.Parse(`/banner\d+/`)
	require.Equal(t, rule.CategoryRegExp, f.Category)
	require.NotNil(t, f.Regex)
	assert.True(t, f.Regex.MatchString("banner123"))
}

func TestParse_wildcardRegexFallback(t *testing.T) {
	t.Parallel()

	f := ruleparser.Parse("||ads.example.com/*/pixel^")
	require.Equal(t, rule.CategoryRegExp, f.Category)
	require.NotNil(t, f.Regex)
	assert.True(t, f.Regex.MatchString("https://ads.example.com/x/pixel?id=1"))
	assert.False(t, f.Regex.MatchString("https://safe.example.com/x/pixel"))
}

func TestParse_matchAll(t *testing.T) {
	t.Parallel()

	f := ruleparser.Parse("*$script")
	assert.True(t, f.MatchAll)
	assert.True(t, f.BlockedTypes.Has(rule.Script))
}

func TestParse_exceptionRule(t *testing.T) {
	t.Parallel()

	f := ruleparser.Parse("@@||example.com^$document")
	assert.True(t, f.Exception)
	assert.True(t, f.Disabled, "exception blocking the Document type must disable itself")
}

func TestParse_importantIgnoredOnException(t *testing.T) {
	t.Parallel()

	f := ruleparser.Parse("@@||example.com^$important")
	assert.False(t, f.Important)
}

func TestParse_domainOption(t *testing.T) {
	t.Parallel()

	f := ruleparser.Parse("/ads/$domain=example.com|~sub.example.com")
	assert.Contains(t, f.DomainBlacklist, "example.com")
	assert.Contains(t, f.DomainWhitelist, "sub.example.com")
}

func TestParse_cspOption(t *testing.T) {
	t.Parallel()

	f := ruleparser.Parse("||example.com^$csp=script-src 'self'")
	assert.True(t, f.BlockedTypes.Has(rule.CSP))
	assert.Equal(t, "script-src 'self'", f.ContentSecurityPolicy)
}

func TestParse_redirectOptions(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		rule string
		name string
	}{
		{rule: "||example.com/ads.js$redirect=noopjs", name: "noopjs"},
		{rule: "||example.com/ads.js$empty", name: "nooptext"},
		{rule: "||example.com/ads.mp4$mp4", name: "noopmp4-1s"},
	}

	for _, tc := range testCases {
		f := ruleparser.Parse(tc.rule)
		assert.True(t, f.Redirect, tc.rule)
		assert.Equal(t, tc.name, f.RedirectName, tc.rule)
	}
}

func TestParse_badFilterStripsSuffix(t *testing.T) {
	t.Parallel()

	f := ruleparser.Parse("||example.com^$badfilter")
	assert.True(t, f.BlockedTypes.Has(rule.BadFilter))
	assert.Equal(t, "||example.com^", f.RuleString)
}

func TestParse_firstPartySetsAllowedThirdParty(t *testing.T) {
	t.Parallel()

	f := ruleparser.Parse("||example.com^$first-party")
	assert.True(t, f.AllowedTypes.Has(rule.ThirdParty))
}

func TestParse_blobConvertedToCSPDomain(t *testing.T) {
	t.Parallel()

	f := ruleparser.Parse("blob:$script")
	assert.Equal(t, rule.CategoryDomain, f.Category)
	assert.True(t, f.BlockedTypes.Has(rule.CSP))
	assert.NotEmpty(t, f.ContentSecurityPolicy)
}

func TestParse_cosmeticPlain(t *testing.T) {
	t.Parallel()

	f := ruleparser.Parse("example.com,~sub.example.com##.ad-banner")
	assert.Equal(t, rule.CategoryStylesheet, f.Category)
	assert.Equal(t, ".ad-banner", f.EvalString)
	assert.Contains(t, f.DomainBlacklist, "example.com")
	assert.Contains(t, f.DomainWhitelist, "sub.example.com")
}

func TestParse_cosmeticException(t *testing.T) {
	t.Parallel()

	f := ruleparser.Parse("example.com#@#.ad-banner")
	assert.True(t, f.Exception)
	assert.Equal(t, rule.CategoryStylesheet, f.Category)
}

func TestParse_cosmeticStyleCustom(t *testing.T) {
	t.Parallel()

	f := ruleparser.Parse("example.com##.ad:style(display: none)")
	assert.Equal(t, rule.CategoryStylesheetCustom, f.Category)
	assert.Equal(t, ".ad { display: none }", f.EvalString)
}

func TestParse_cosmeticProcedural(t *testing.T) {
	t.Parallel()

	f := ruleparser.Parse(`example.com##div.ad:has-text(Sponsored)`)
	assert.Equal(t, rule.CategoryStylesheetJS, f.Category)
	assert.Equal(t, "hideNodes(hasText, 'div.ad', 'Sponsored')", f.EvalString)
}

func TestParse_cosmeticScriptlet(t *testing.T) {
	t.Parallel()

	f := ruleparser.Parse("example.com##+js(set-constant, foo, bar)")
	assert.Equal(t, rule.CategoryScriptlet, f.Category)
	assert.Equal(t, "+js(set-constant, foo, bar)", f.EvalString)
}

func TestParse_cosmeticScriptletRequiresDomain(t *testing.T) {
	t.Parallel()

	// No domain owner: "+js(...)" is just an unusual selector text, not a
	// scriptlet, per spec.md §4.1 step 1.
	f := ruleparser.Parse("##+js(set-constant, foo, bar)")
	assert.Equal(t, rule.CategoryStylesheet, f.Category)
}

func TestParse_caseInsensitiveNetworkRule(t *testing.T) {
	t.Parallel()

	f := ruleparser.Parse("AdBanner")
	assert.Equal(t, rule.CategoryStringContains, f.Category)
	assert.Equal(t, "adbanner", f.EvalString)
}

func TestParse_matchCasePreservesCase(t *testing.T) {
	t.Parallel()

	f := ruleparser.Parse("AdBanner$match-case")
	assert.True(t, f.MatchCase)
	assert.Equal(t, "AdBanner", f.EvalString)
}
