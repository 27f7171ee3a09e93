package rule

// Category is the mutually exclusive classification of a parsed filter.  It
// is set exactly once, during parsing, and never changes afterwards.
type Category int

// Filter categories, as defined in spec.md §3.
const (
	// CategoryNone is the zero value; it is never assigned to a successfully
	// parsed filter.
	CategoryNone Category = iota

	// CategoryStylesheet is a plain "##" cosmetic rule.
	CategoryStylesheet

	// CategoryStylesheetJS is a procedural cosmetic rule rewritten into a JS
	// call by the cosmetic rewriter.
	CategoryStylesheetJS

	// CategoryStylesheetCustom is a ":style(...)" cosmetic rule.
	CategoryStylesheetCustom

	// CategoryDomain is a "||host^" rule with no path pattern.
	CategoryDomain

	// CategoryDomainStart is a "||..." rule with no wildcards.
	CategoryDomainStart

	// CategoryStringStartMatch is a "|..." rule.
	CategoryStringStartMatch

	// CategoryStringEndMatch is a "...|" rule.
	CategoryStringEndMatch

	// CategoryStringExactMatch is a "|...|" rule.
	CategoryStringExactMatch

	// CategoryStringContains is a literal-substring rule, the most common
	// category in practice.
	CategoryStringContains

	// CategoryRegExp is a rule whose eval_string is a compiled regular
	// expression.
	CategoryRegExp

	// CategoryScriptlet is a uBO "+js(...)" / "script:inject(...)" rule
	// bound to a named resource.
	CategoryScriptlet

	// CategoryNotImplemented marks a rule the engine recognizes the syntax
	// of but does not evaluate.
	CategoryNotImplemented
)

// String implements the [fmt.Stringer] interface for Category.
func (c Category) String() (s string) {
	switch c {
	case CategoryNone:
		return "none"
	case CategoryStylesheet:
		return "stylesheet"
	case CategoryStylesheetJS:
		return "stylesheet-js"
	case CategoryStylesheetCustom:
		return "stylesheet-custom"
	case CategoryDomain:
		return "domain"
	case CategoryDomainStart:
		return "domain-start"
	case CategoryStringStartMatch:
		return "string-start-match"
	case CategoryStringEndMatch:
		return "string-end-match"
	case CategoryStringExactMatch:
		return "string-exact-match"
	case CategoryStringContains:
		return "string-contains"
	case CategoryRegExp:
		return "regexp"
	case CategoryScriptlet:
		return "scriptlet"
	case CategoryNotImplemented:
		return "not-implemented"
	default:
		return "unknown"
	}
}

// IsCosmetic reports whether c is one of the cosmetic or scriptlet
// categories, which spec.md §4.4 and §8 require to never match a network
// request.
func (c Category) IsCosmetic() bool {
	switch c {
	case CategoryStylesheet, CategoryStylesheetJS, CategoryStylesheetCustom, CategoryScriptlet:
		return true
	default:
		return false
	}
}
