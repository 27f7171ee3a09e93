package ruleparser

import (
	"regexp"
	"strings"
)

// wildcardToRegex translates a residual Adblock pattern into the regex
// source described in spec.md §4.1 step 10: "*" becomes "[^ ]*?", "^"
// becomes a separator class, a leading "||" becomes a scheme+domain
// prefix, a leading/trailing "|" becomes an anchor, and everything else
// that is not a word character is escaped.
func wildcardToRegex(pattern string) string {
	var b strings.Builder

	rest := pattern
	switch {
	case strings.HasPrefix(rest, "||"):
		b.WriteString(`^[a-z-]+://(?:[^/?#]+\.)?`)
		rest = rest[2:]
	case strings.HasPrefix(rest, "|"):
		b.WriteString("^")
		rest = rest[1:]
	}

	hasTrailingAnchor := strings.HasSuffix(rest, "|")
	if hasTrailingAnchor {
		rest = rest[:len(rest)-1]
	}

	for _, r := range rest {
		switch r {
		case '*':
			b.WriteString(`[^ ]*?`)
		case '^':
			b.WriteString(`(?:[^%.a-zA-Z0-9_-]|$)`)
		default:
			if isWordRune(r) {
				b.WriteRune(r)
			} else {
				b.WriteString(regexp.QuoteMeta(string(r)))
			}
		}
	}

	if hasTrailingAnchor {
		b.WriteString("$")
	}

	return b.String()
}

func isWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
}

// compileFallbackRegex compiles the regex source produced by
// wildcardToRegex, case-insensitively unless matchCase is set.  A compile
// failure is never fatal: the caller falls back to CategoryNotImplemented,
// per spec.md §7.
func compileFallbackRegex(pattern string, matchCase bool) (*regexp.Regexp, error) {
	src := wildcardToRegex(pattern)
	if !matchCase {
		src = "(?i)" + src
	}

	return regexp.Compile(src)
}

// needsRegexFallback reports whether the residual pattern still contains
// "*", "^", or "|" after the anchor-stripping steps of spec.md §4.1, and so
// must fall back to a translated regex (step 10) rather than a literal
// category.
func needsRegexFallback(pattern string) bool {
	return strings.ContainsAny(pattern, "*^|")
}
