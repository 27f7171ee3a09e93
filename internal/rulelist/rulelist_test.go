package rulelist_test

import (
	"strconv"
	"strings"
	"testing"

	"github.com/adguard-like/filtercore/internal/rule"
	"github.com/adguard-like/filtercore/internal/ruleparser"
	"github.com/adguard-like/filtercore/internal/rulelist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseAll(t *testing.T, lines ...string) []*rule.Filter {
	t.Helper()

	filters := make([]*rule.Filter, len(lines))
	for i, l := range lines {
		filters[i] = ruleparser.Parse(l)
	}

	return filters
}

func TestBuild_blockByDomainLookup(t *testing.T) {
	t.Parallel()

	filters := parseAll(t, "||ads.example.com^")
	c := rulelist.Build(filters, nil)

	f := c.FindBlockingFilter("example.com", "https://site.example/", "https://ads.example.com/a.js", "ads.example.com", rule.Script)
	require.NotNil(t, f)
	assert.Equal(t, rule.CategoryDomain, f.Category)
}

func TestBuild_importantOverridesAllow(t *testing.T) {
	t.Parallel()

	filters := parseAll(t, "annoyance-ad$important", "@@||example.com^")
	c := rulelist.Build(filters, nil)

	f := c.FindImportantBlock("https://example.com/", "https://cdn.example/annoyance-ad.js", "example.com", rule.Script)
	require.NotNil(t, f)
	assert.True(t, f.Important)
}

func TestBuild_genericHideException(t *testing.T) {
	t.Parallel()

	filters := parseAll(t, "@@||example.com^$generichide")
	c := rulelist.Build(filters, nil)

	assert.True(t, c.HasGenericHideFilter("https://example.com/page", "example.com"))
	assert.False(t, c.HasGenericHideFilter("https://other.example/page", "other.example"))
}

func TestBuild_badFilterRemovesTarget(t *testing.T) {
	t.Parallel()

	filters := parseAll(t, "annoying-tracker", "annoying-tracker$badfilter")
	c := rulelist.Build(filters, nil)

	f := c.FindBlockingFilter("", "https://site.example/", "https://cdn.example/annoying-tracker", "cdn.example", rule.Script)
	assert.Nil(t, f)
}

func TestBuild_stylesheetExceptionMergesIntoWhitelist(t *testing.T) {
	t.Parallel()

	filters := parseAll(t, "##.ad-banner", "good.example#@#.ad-banner")
	c := rulelist.Build(filters, nil)

	// The exception's blacklist merges into the blocker's whitelist, which
	// moves the blocker from the global stylesheet into domainStyle, then
	// excludes it from "good.example" specifically.
	assert.NotContains(t, c.GlobalStylesheet(), ".ad-banner")
	assert.Empty(t, c.DomainStyleFilters("good.example"))
	assert.NotEmpty(t, c.DomainStyleFilters("other.example"))
}

func TestBuild_globalStylesheetChunking(t *testing.T) {
	t.Parallel()

	lines := make([]string, 0, 1500)
	for i := 0; i < 1500; i++ {
		lines = append(lines, "##.sel"+strconv.Itoa(i))
	}

	c := rulelist.Build(parseAll(t, lines...), nil)

	sheet := c.GlobalStylesheet()
	assert.Contains(t, sheet, "<style>")
	assert.Contains(t, sheet, "</style>")
	assert.GreaterOrEqual(t, strings.Count(sheet, "display: none !important;"), 2)
}

func TestBuild_domainJSWithScriptletResolution(t *testing.T) {
	t.Parallel()

	lookup := stubLookup{"noopjs": "(function(){})();"}

	filters := parseAll(t, "example.com##+js(noopjs)")
	c := rulelist.Build(filters, lookup)

	js := c.DomainJSFilters("example.com")
	require.Len(t, js, 1)
	assert.Contains(t, js[0].EvalString, "(function(){})();")
}

func TestBuild_cspFilterMatches(t *testing.T) {
	t.Parallel()

	filters := parseAll(t, "||ads.example.com^$csp=script-src 'none'")
	c := rulelist.Build(filters, nil)

	directive, ok := c.MatchingCSP("https://ads.example.com/", "https://ads.example.com/a.js", "ads.example.com")
	require.True(t, ok)
	assert.Equal(t, "script-src 'none'", directive)
}

type stubLookup map[string]string

func (s stubLookup) Resource(name string) (body string, ok bool) {
	body, ok = s[name]

	return body, ok
}
