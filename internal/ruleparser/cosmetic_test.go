package ruleparser_test

import (
	"testing"

	"github.com/adguard-like/filtercore/internal/ruleparser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewriteProcedural(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		selector string
		want     string
	}{{
		name:     "has",
		selector: "div.ad:has(span.label)",
		want:     "hideIfHas('div.ad', 'span.label')",
	}, {
		name:     "has_text_alias",
		selector: "div.ad:-abp-contains(Sponsored)",
		want:     "hideNodes(hasText, 'div.ad', 'Sponsored')",
	}, {
		name:     "if_alias",
		selector: "div.ad:-abp-has(.label)",
		want:     "hideIfHas('div.ad', '.label')",
	}, {
		name:     "if_not",
		selector: ".post:if-not(.sponsored)",
		want:     "hideIfNotHas('.post', '.sponsored')",
	}, {
		name:     "not_in_procedural_context",
		selector: ".post:not(.safe)",
		want:     "hideIfNotHas('.post', '.safe')",
	}, {
		name:     "matches_css_before",
		selector: ".ad:matches-css-before(content: /ad/)",
		want:     "hideNodes(matchesCSSBefore, '.ad', 'content: /ad/')",
	}, {
		name:     "xpath_with_selector",
		selector: ".ad:xpath(//div[@class=\"x\"])",
		want:     `hideNodes(doXPath, '.ad', '//div[@class="x"]')`,
	}, {
		name:     "xpath_bare",
		selector: `:xpath(//div[@id="x"])`,
		want:     `hideNodes(doXPath, "document", '//div[@id="x"]')`,
	}, {
		name:     "nth_ancestor",
		selector: "span.label:nth-ancestor(3)",
		want:     "hideNodes(nthAncestor, 'span.label', '3')",
	}, {
		name:     "min_text_length",
		selector: "p:min-text-length(50)",
		want:     "hideNodes(minTextLength, 'p', '50')",
	}, {
		name:     "upward",
		selector: "span:upward(.ad-container)",
		want:     "hideNodes(upwardMatch, 'span', '.ad-container')",
	}, {
		name:     "remove",
		selector: ".overlay:remove()",
		want:     "hideNodes(removeNodes, '.overlay', '')",
	}, {
		name:     "regex_argument_unquoted",
		selector: "div:has-text(/^Ad\\b/)",
		want:     "hideNodes(hasText, 'div', /^Ad\\b/)",
	}, {
		name:     "ext_has_rewritten",
		selector: `div[-ext-has="span.label"]`,
		want:     "hideIfHas('div', 'span.label')",
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, ok := ruleparser.RewriteProcedural(tc.selector)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRewriteProcedural_noDirective(t *testing.T) {
	t.Parallel()

	_, ok := ruleparser.RewriteProcedural(".ad-banner")
	assert.False(t, ok)
}

func TestRewriteProcedural_chaining(t *testing.T) {
	t.Parallel()

	got, ok := ruleparser.RewriteProcedural("div.card:if(:has-text(Ad))")
	require.True(t, ok)
	assert.Equal(t, "hideIfChain('div.card', 'hasText', 'Ad')", got)

	got, ok = ruleparser.RewriteProcedural("div.card:if-not(:has-text(Ad))")
	require.True(t, ok)
	assert.Equal(t, "hideIfNotChain('div.card', 'hasText', 'Ad')", got)
}

func TestRewriteProcedural_hasCannotChain(t *testing.T) {
	t.Parallel()

	// :has cannot be chained per spec.md §4.5, so its argument is carried
	// verbatim even though it looks like another directive call.
	got, ok := ruleparser.RewriteProcedural("div:has(:has-text(x))")
	require.True(t, ok)
	assert.Equal(t, "hideIfHas('div', ':has-text(x)')", got)
}

func TestRewriteStyleCustom(t *testing.T) {
	t.Parallel()

	got, ok := ruleparser.RewriteStyleCustom(".ad:style(display: none !important)")
	require.True(t, ok)
	assert.Equal(t, ".ad { display: none !important }", got)

	_, ok = ruleparser.RewriteStyleCustom(".ad")
	assert.False(t, ok)
}

func TestRewriteScriptlet(t *testing.T) {
	t.Parallel()

	lookup := stubLookup{"set-constant": "window[{{1}}] = {{2}};"}

	body, name, ok := ruleparser.RewriteScriptlet("+js(set-constant, foo, true)", lookup)
	require.True(t, ok)
	assert.Equal(t, "set-constant", name)
	assert.Contains(t, body, "window['foo'] = 'true';")
	assert.Contains(t, body, "try {")
	assert.Contains(t, body, "} catch (ex)")
}

func TestRewriteScriptlet_legacySyntax(t *testing.T) {
	t.Parallel()

	lookup := stubLookup{"noop": "(function(){})();"}

	body, name, ok := ruleparser.RewriteScriptlet("script:inject(noop)", lookup)
	require.True(t, ok)
	assert.Equal(t, "noop", name)
	assert.Contains(t, body, "(function(){})();")
}

func TestRewriteScriptlet_missingResourceIsInert(t *testing.T) {
	t.Parallel()

	body, name, ok := ruleparser.RewriteScriptlet("+js(unknown-scriptlet)", stubLookup{})
	require.True(t, ok)
	assert.Equal(t, "unknown-scriptlet", name)
	assert.Empty(t, body)
}

func TestRewriteScriptlet_notAScriptlet(t *testing.T) {
	t.Parallel()

	_, _, ok := ruleparser.RewriteScriptlet(".ad-banner", stubLookup{})
	assert.False(t, ok)
}

type stubLookup map[string]string

func (s stubLookup) Resource(name string) (string, bool) {
	body, ok := s[name]

	return body, ok
}
