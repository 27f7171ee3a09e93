package ruleparser

import (
	"regexp"
	"strings"

	"github.com/adguard-like/filtercore/internal/rule"
)

// cosmeticSeparators are recognized in the order they are searched, per
// spec.md §4.1 step 1: "#@#" (exception), "#?#" (procedural, treated the
// same as "##" here since the cosmetic rewriter decides procedural-ness on
// its own), then "##".
var cosmeticSeparators = []struct {
	sep       string
	exception bool
}{
	{sep: "#@#", exception: true},
	{sep: "#?#"},
	{sep: "##"},
}

// Parse translates one logical rule line into a [rule.Filter].  It never
// returns an error: unrecognized syntax produces a record with
// Category == rule.CategoryNotImplemented, per spec.md §4.1 "Failure
// semantics" and §7.  Scriptlet resource bodies are not resolved here: a
// [rule.CategoryScriptlet] filter's EvalString stays as the raw
// "+js(name, a, b)" call text, resolved later by the filter container
// (which owns the resource store) via [RewriteScriptlet].
func Parse(line string) *rule.Filter {
	line = strings.TrimSpace(line)

	if f, ok := parseStylesheet(line); ok {
		return f
	}

	return parseNetwork(line)
}

// parseStylesheet implements spec.md §4.1 step 1.  ok is false if line does
// not contain a cosmetic separator, in which case the caller proceeds to
// network-rule parsing.
func parseStylesheet(line string) (f *rule.Filter, ok bool) {
	// HTML-filtering, JS-injection and extended-CSS separators contain none
	// of the separators below; such rules are kept as NotImplemented.
	for _, sep := range []string{"#%#", "#@%#", "#$#", "#@$#"} {
		if strings.Contains(line, sep) {
			return &rule.Filter{RuleString: line, Category: rule.CategoryNotImplemented}, true
		}
	}

	for _, sep := range cosmeticSeparators {
		idx := strings.Index(line, sep.sep)
		if idx == -1 {
			continue
		}

		domainPart := line[:idx]
		evalString := line[idx+len(sep.sep):]

		f := &rule.Filter{RuleString: line, Exception: sep.exception}
		f.DomainBlacklist, f.DomainWhitelist = parseCosmeticDomains(domainPart)

		classifyStylesheet(f, evalString)

		return f, true
	}

	return nil, false
}

// parseCosmeticDomains splits a cosmetic rule's domain list by "," into
// blacklist/whitelist entries, folding a "~" prefix to whitelist and a
// trailing ".*" entity marker to the engine's trailing-dot form.
func parseCosmeticDomains(domainPart string) (blacklist, whitelist []string) {
	if domainPart == "" {
		return nil, nil
	}

	for _, d := range strings.Split(domainPart, ",") {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}

		neg := strings.HasPrefix(d, "~")
		if neg {
			d = d[1:]
		}

		d = NormalizeEntityDomainName(d)

		if neg {
			whitelist = append(whitelist, d)
		} else {
			blacklist = append(blacklist, d)
		}
	}

	return blacklist, whitelist
}

// NormalizeEntityDomainName normalizes a "example.*" entity pattern to the
// engine's canonical trailing-dot form; re-exported here since the cosmetic
// domain list uses the same normalization as [rule.NormalizeEntityDomain].
func NormalizeEntityDomainName(d string) string {
	return rule.NormalizeEntityDomain(d)
}

// classifyStylesheet fills in f.Category and f.EvalString/ContentSecurityPolicy
// for a cosmetic rule body, per spec.md §4.1 step 1's sub-branches.
func classifyStylesheet(f *rule.Filter, evalString string) {
	hasDomainOwner := len(f.DomainBlacklist) != 0 || len(f.DomainWhitelist) != 0

	isScriptletCall := strings.HasPrefix(evalString, "+js(") || strings.HasPrefix(evalString, "script:inject(")
	if isScriptletCall && hasDomainOwner {
		f.Category = rule.CategoryScriptlet
		f.EvalString = evalString

		return
	}

	if rewritten, isStyle := RewriteStyleCustom(evalString); isStyle {
		f.Category = rule.CategoryStylesheetCustom
		f.EvalString = rewritten

		return
	}

	// "##^" (HTML filtering) reaches this point as an evalString starting
	// with "^"; parseStylesheet has already turned "#%#", "#@%#", "#$#" and
	// "#@$#" rules into NotImplemented filters.  ":-abp-properties(...)"
	// selectors are likewise classified NotImplemented, not translated.
	if isUnsupportedStylesheetVariant(evalString) || strings.Contains(evalString, ":-abp-properties(") {
		f.Category = rule.CategoryNotImplemented

		return
	}

	if jsCall, isProcedural := RewriteProcedural(evalString); isProcedural {
		f.Category = rule.CategoryStylesheetJS
		f.EvalString = jsCall

		return
	}

	f.Category = rule.CategoryStylesheet
	f.EvalString = evalString
}

func isUnsupportedStylesheetVariant(evalString string) bool {
	return strings.HasPrefix(evalString, "^") ||
		strings.HasPrefix(evalString, "%#") ||
		strings.HasPrefix(evalString, "@%#") ||
		strings.HasPrefix(evalString, "$#") ||
		strings.HasPrefix(evalString, "@$#")
}

// parseNetwork implements spec.md §4.1 steps 2-12 for a non-cosmetic rule.
func parseNetwork(line string) *rule.Filter {
	f := &rule.Filter{RuleString: line}

	residue := line

	if strings.HasPrefix(residue, "@@") {
		f.Exception = true
		residue = residue[2:]
	}

	residue = parseOptions(f, residue)

	if strings.TrimSpace(residue) == "" || residue == "*" {
		f.MatchAll = true

		return finalizeNetwork(f)
	}

	if rx, isRegexLiteral := asRegexLiteral(residue); isRegexLiteral {
		re, err := compileRegexLiteral(rx, f.MatchCase)
		if err != nil {
			f.Category = rule.CategoryNotImplemented

			return f
		}

		f.Category = rule.CategoryRegExp
		f.Regex = re

		return finalizeNetwork(f)
	}

	residue = strings.Trim(residue, "*")

	if category, evalString, ok := classifyAnchored(residue); ok {
		if !f.MatchCase {
			evalString = strings.ToLower(evalString)
		}

		f.Category = category
		f.EvalString = evalString

		return finalizeNetwork(f)
	}

	if needsRegexFallback(residue) {
		re, err := compileFallbackRegex(residue, f.MatchCase)
		if err != nil {
			f.Category = rule.CategoryNotImplemented

			return f
		}

		f.Category = rule.CategoryRegExp
		f.Regex = re

		return finalizeNetwork(f)
	}

	evalString := residue
	if !f.MatchCase {
		evalString = strings.ToLower(evalString)
	}

	rule.NewStringContainsFilter(f, evalString)

	return finalizeNetwork(f)
}

// asRegexLiteral reports whether residue is a "/.../ " regex literal (step
// 5): begins and ends with "/" and has length > 1.
func asRegexLiteral(residue string) (inner string, ok bool) {
	if len(residue) > 1 && strings.HasPrefix(residue, "/") && strings.HasSuffix(residue, "/") {
		return residue[1 : len(residue)-1], true
	}

	return "", false
}

func compileRegexLiteral(src string, matchCase bool) (*regexp.Regexp, error) {
	if !matchCase {
		src = "(?i)" + src
	}

	return regexp.Compile(src)
}

// classifyAnchored implements steps 7-9: the Domain/DomainStart categories
// and the prefix/suffix/exact string-match categories.
func classifyAnchored(residue string) (category rule.Category, evalString string, ok bool) {
	if strings.HasPrefix(residue, "||") {
		interior := residue[2:]

		if strings.HasSuffix(interior, "^") {
			body := interior[:len(interior)-1]
			if !strings.ContainsAny(body, "/:?=&*") {
				return rule.CategoryDomain, body, true
			}
		}

		if !strings.ContainsAny(interior, "*^") {
			return rule.CategoryDomainStart, interior, true
		}

		return rule.CategoryNone, "", false
	}

	hasLeadingAnchor := strings.HasPrefix(residue, "|")
	hasTrailingAnchor := strings.HasSuffix(residue, "|")

	if hasLeadingAnchor && hasTrailingAnchor && len(residue) >= 2 {
		body := residue[1 : len(residue)-1]
		if !needsRegexFallback(body) {
			return rule.CategoryStringExactMatch, body, true
		}

		return rule.CategoryNone, "", false
	}

	if hasLeadingAnchor {
		body := residue[1:]
		if !needsRegexFallback(body) {
			return rule.CategoryStringStartMatch, body, true
		}

		return rule.CategoryNone, "", false
	}

	if hasTrailingAnchor {
		body := residue[:len(residue)-1]
		if !needsRegexFallback(body) {
			return rule.CategoryStringEndMatch, body, true
		}

		return rule.CategoryNone, "", false
	}

	return rule.CategoryNone, "", false
}

// finalizeNetwork applies the filter-wide invariants and conversions that
// run regardless of category: the blob:/data: → CSP-Domain conversion of
// step 12, and the exception/Document/important invariants of spec.md §3.
func finalizeNetwork(f *rule.Filter) *rule.Filter {
	if strings.HasPrefix(f.EvalString, "blob:") || strings.HasPrefix(f.EvalString, "data:") {
		convertToBlobCSP(f)
	}

	if f.BlockedTypes.Has(rule.BadFilter) {
		f.RuleString = strings.TrimSuffix(f.RuleString, ",badfilter")
		f.RuleString = strings.TrimSuffix(f.RuleString, "$badfilter")
	}

	if f.Exception {
		f.Important = false

		if f.BlockedTypes.Has(rule.Document) {
			f.Disabled = true
		}
	}

	if f.BlockedTypes.Has(rule.NotImplemented) {
		// cname/popunder are recognized but inert, per spec.md §3/§9 and
		// Open Question #3: the filter must never reach IsMatch as an
		// active block/allow rule.
		f.Category = rule.CategoryNotImplemented
	}

	return f
}

// convertToBlobCSP implements spec.md §4.1 step 12: a blob:/data: rule is
// converted to a CSP-injecting Domain-category filter synthesizing a
// script-src/frame-src/default-src directive, keyed by the request's
// eventual base domain rather than by literal URL content.
func convertToBlobCSP(f *rule.Filter) {
	directive := "default-src"
	if f.BlockedTypes.Has(rule.Script) {
		directive = "script-src"
	} else if f.BlockedTypes.Has(rule.Subdocument) {
		directive = "frame-src"
	}

	f.Category = rule.CategoryDomain
	f.ContentSecurityPolicy = directive + " 'self'"
	f.BlockedTypes |= rule.CSP
}
