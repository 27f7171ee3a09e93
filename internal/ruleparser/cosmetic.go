// Package ruleparser translates one subscription-file line into a
// [rule.Filter], per spec.md §4.1, including the procedural cosmetic
// rewriter of §4.5 and the regex-translation fallback of §4.1 step 10.
package ruleparser

import (
	"fmt"
	"strings"
)

// procDirective names one supported procedural pseudo-class and the JS
// callback it corresponds to, per the table in spec.md §4.5.
type procDirective struct {
	// name is the canonical pseudo-class name, without the leading ":".
	name string
	// aliases are other tokens that mean the same directive.
	aliases []string
	// callback is the JS callback name used inside a hideNodes(...) call, or
	// "" for directives that use hideIfHas/hideIfNotHas directly instead.
	callback string
	// kind selects which wrapper function is used for a non-chained,
	// non-hideNodes rewrite.
	kind directiveKind
}

type directiveKind int

const (
	kindHideNodes directiveKind = iota
	kindHideIfHas
	kindHideIfNotHas
	kindRemove
)

var directives = []procDirective{
	{name: "has", kind: kindHideIfHas},
	{name: "has-text", aliases: []string{"-abp-contains"}, callback: "hasText", kind: kindHideNodes},
	{name: "if", aliases: []string{"-abp-has"}, kind: kindHideIfHas},
	{name: "if-not", kind: kindHideIfNotHas},
	{name: "not", kind: kindHideIfNotHas},
	{name: "matches-css", callback: "matchesCSS", kind: kindHideNodes},
	{name: "matches-css-before", callback: "matchesCSSBefore", kind: kindHideNodes},
	{name: "matches-css-after", callback: "matchesCSSAfter", kind: kindHideNodes},
	{name: "xpath", callback: "doXPath", kind: kindHideNodes},
	{name: "nth-ancestor", callback: "nthAncestor", kind: kindHideNodes},
	{name: "min-text-length", callback: "minTextLength", kind: kindHideNodes},
	{name: "upward", callback: "upwardMatch", kind: kindHideNodes},
	{name: "remove", kind: kindRemove},
}

// directiveByToken finds the directive named by token (without the leading
// ":"), matching either its canonical name or one of its aliases.
func directiveByToken(token string) (d procDirective, ok bool) {
	for _, d := range directives {
		if d.name == token {
			return d, true
		}

		for _, a := range d.aliases {
			if a == token {
				return d, true
			}
		}
	}

	return procDirective{}, false
}

// procToken is one parsed ":name(arg)" occurrence within a selector string.
type procToken struct {
	name  string
	arg   string
	start int
	end   int

	// callback is the inner directive's JS callback name; it is set only on
	// the nested token returned by chainCandidate.
	callback string
}

// rewriteExtHasAttr rewrites AdGuard's "[-ext-has="arg"]" attribute syntax
// in-place to ":if(arg)", per spec.md §4.5.
func rewriteExtHasAttr(selector string) string {
	const prefix = "[-ext-has="
	for {
		idx := strings.Index(selector, prefix)
		if idx == -1 {
			return selector
		}

		rest := selector[idx+len(prefix):]
		if len(rest) == 0 {
			return selector
		}

		quote := rest[0]
		if quote != '\'' && quote != '"' {
			return selector
		}

		end := strings.IndexByte(rest[1:], quote)
		if end == -1 {
			return selector
		}

		arg := rest[1 : 1+end]
		closeIdx := 1 + end + 1
		if closeIdx >= len(rest) || rest[closeIdx] != ']' {
			return selector
		}

		replacement := ":if(" + arg + ")"
		selector = selector[:idx] + replacement + rest[closeIdx+1:]
	}
}

// findFirstProcToken finds the first ":name(" token in selector that names a
// known procedural directive, returning its parsed form and ok=true.  It
// correctly balances nested parentheses so an argument may itself contain
// another directive call.
func findFirstProcToken(selector string) (tok procToken, ok bool) {
	for i := 0; i < len(selector); i++ {
		if selector[i] != ':' {
			continue
		}

		nameEnd := i + 1
		for nameEnd < len(selector) && (isNameByte(selector[nameEnd])) {
			nameEnd++
		}

		name := selector[i+1 : nameEnd]
		if name == "" || nameEnd >= len(selector) || selector[nameEnd] != '(' {
			continue
		}

		if _, known := directiveByToken(name); !known {
			continue
		}

		argStart := nameEnd + 1
		depth := 1
		j := argStart
		for ; j < len(selector) && depth > 0; j++ {
			switch selector[j] {
			case '(':
				depth++
			case ')':
				depth--
			}
		}

		if depth != 0 {
			continue
		}

		argEnd := j - 1

		return procToken{
			name:  name,
			arg:   selector[argStart:argEnd],
			start: i,
			end:   j,
		}, true
	}

	return procToken{}, false
}

func isNameByte(b byte) bool {
	return b == '-' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// RewriteProcedural attempts to translate a procedural cosmetic selector
// (spec.md §4.5) into a canonical JS call string.  ok is false if selector
// contains no recognized procedural directive, in which case it should be
// treated as a plain CSS selector.
func RewriteProcedural(selector string) (jsCall string, ok bool) {
	selector = rewriteExtHasAttr(selector)

	tok, found := findFirstProcToken(selector)
	if !found {
		return "", false
	}

	dir, _ := directiveByToken(tok.name)
	base := strings.TrimSpace(selector[:tok.start])

	switch dir.kind {
	case kindHideIfHas:
		if nested, isChain := chainCandidate(dir, tok.arg); isChain {
			return fmt.Sprintf("hideIfChain(%s, %s, %s)", quoteSelector(base), quoteArg(nested.callback), quoteArg(nested.arg)), true
		}

		return fmt.Sprintf("hideIfHas(%s, %s)", quoteSelector(base), quoteArg(tok.arg)), true
	case kindHideIfNotHas:
		if nested, isChain := chainCandidate(dir, tok.arg); isChain {
			return fmt.Sprintf("hideIfNotChain(%s, %s, %s)", quoteSelector(base), quoteArg(nested.callback), quoteArg(nested.arg)), true
		}

		return fmt.Sprintf("hideIfNotHas(%s, %s)", quoteSelector(base), quoteArg(tok.arg)), true
	case kindRemove:
		return fmt.Sprintf("hideNodes(removeNodes, %s, '')", quoteSelector(base)), true
	default: // kindHideNodes
		sel := quoteSelector(base)
		if dir.name == "xpath" && base == "" {
			sel = `"document"`
		}

		return fmt.Sprintf("hideNodes(%s, %s, %s)", dir.callback, sel, quoteArg(tok.arg)), true
	}
}

// chainCandidate implements the chaining rule of spec.md §4.5: when the
// outer directive is :if/:if-not/:not and its argument itself contains
// another supported directive, the inner directive's callback and argument
// are carried separately.  :has cannot be chained, so outer must not be
// "has".
func chainCandidate(outer procDirective, arg string) (nested procToken, isChain bool) {
	if outer.name == "has" {
		return procToken{}, false
	}

	inner, found := findFirstProcToken(arg)
	if !found {
		return procToken{}, false
	}

	innerDir, _ := directiveByToken(inner.name)
	if innerDir.callback == "" {
		// Nested hideIfHas/hideIfNotHas/remove directives have no bare
		// callback name to carry; only hideNodes-style directives chain.
		return procToken{}, false
	}

	return procToken{name: inner.name, arg: inner.arg, callback: innerDir.callback}, true
}

// quoteArg implements the argument-quoting rule of spec.md §4.5: a regex
// literal ("/.../ ") is emitted verbatim; anything else is single-quoted
// with internal single quotes backslash-escaped.  Numeric arguments (for
// nth-ancestor/min-text-length) are quoted the same way, since the spec's
// quoting rule carries no numeric exception.
func quoteArg(arg string) string {
	if len(arg) >= 2 && arg[0] == '/' && arg[len(arg)-1] == '/' {
		return arg
	}

	return "'" + strings.ReplaceAll(arg, "'", "\\'") + "'"
}

// quoteSelector quotes a base CSS selector the same way as an argument,
// since the canonical JS calls pass it as a string literal too.
func quoteSelector(selector string) string {
	return quoteArg(selector)
}

// RewriteStyleCustom rewrites a ":style(arg)" cosmetic rule into
// "selector { arg }", per spec.md §4.1 step 1.  ok is false if selector does
// not contain a ":style(...)" call.
func RewriteStyleCustom(selector string) (rewritten string, ok bool) {
	const name = "style"

	idx := strings.Index(selector, ":"+name+"(")
	if idx == -1 {
		return "", false
	}

	argStart := idx + len(name) + 2
	depth := 1
	j := argStart
	for ; j < len(selector) && depth > 0; j++ {
		switch selector[j] {
		case '(':
			depth++
		case ')':
			depth--
		}
	}

	if depth != 0 {
		return "", false
	}

	base := strings.TrimSpace(selector[:idx])
	arg := selector[argStart : j-1]

	return fmt.Sprintf("%s { %s }", base, arg), true
}

// RewriteScriptlet rewrites a "+js(name, a, b)" / "script:inject(name, a, b)"
// scriptlet reference into the body of the named resource, with "{{i}}"
// placeholders replaced by the quoted call arguments, wrapped in a
// try/catch so a malformed rule cannot break other scripts on the page, per
// spec.md §4.5.  ok is false if eval is not a scriptlet call.
func RewriteScriptlet(eval string, lookup ResourceLookup) (body string, name string, ok bool) {
	name, args, isScriptlet := parseScriptletCall(eval)
	if !isScriptlet {
		return "", "", false
	}

	tmpl, found := lookup.Resource(name)
	if !found {
		// Missing resource: the scriptlet becomes inert, per spec.md §7.
		return "", name, true
	}

	body = tmpl
	for i, a := range args {
		placeholder := fmt.Sprintf("{{%d}}", i+1)
		body = strings.ReplaceAll(body, placeholder, quoteArg(a))
	}

	wrapped := "try { " + body + " } catch (ex) { /* log */ }"

	return wrapped, name, true
}

// parseScriptletCall parses "+js(name, a, b)" or "script:inject(name, a, b)"
// into its resource name and comma-separated arguments.
func parseScriptletCall(eval string) (name string, args []string, ok bool) {
	var rest string
	switch {
	case strings.HasPrefix(eval, "+js("):
		rest = strings.TrimPrefix(eval, "+js(")
	case strings.HasPrefix(eval, "script:inject("):
		rest = strings.TrimPrefix(eval, "script:inject(")
	default:
		return "", nil, false
	}

	rest = strings.TrimSuffix(strings.TrimSpace(rest), ")")

	parts := splitArgs(rest)
	if len(parts) == 0 {
		return "", nil, false
	}

	return strings.TrimSpace(parts[0]), trimAll(parts[1:]), true
}

// splitArgs splits a comma-separated argument list, respecting that
// arguments may not themselves contain commas (the subset this engine
// needs to support).
func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	return strings.Split(s, ",")
}

func trimAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.TrimSpace(s)
	}

	return out
}

// ResourceLookup is the capability the parser needs to resolve scriptlet
// bodies, passed in by the caller rather than a whole engine reference; see
// spec.md §9 "Cyclic references between parser and engine".
type ResourceLookup interface {
	// Resource returns the text body registered under name, if any.
	Resource(name string) (body string, ok bool)
}

// NoResources is a [ResourceLookup] that never finds anything, useful for
// parsing contexts that only need classification, not scriptlet bodies.
type NoResources struct{}

// Resource implements the [ResourceLookup] interface for NoResources.
func (NoResources) Resource(string) (string, bool) { return "", false }

var _ ResourceLookup = NoResources{}
