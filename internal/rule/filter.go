package rule

import (
	"regexp"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
)

// ErrNotImplemented marks a filter whose category is [CategoryNotImplemented].
// It is never returned as a parse failure: parsing never throws, per
// spec.md §4.1 "Failure semantics" and §7.
const ErrNotImplemented errors.Error = "rule not implemented"

// Filter is an immutable (after parsing) bundle of match data for one rule,
// as specified in spec.md §3 "Filter record".
type Filter struct {
	// Regex is the compiled regular expression, present iff Category is
	// [CategoryRegExp].
	Regex *regexp.Regexp

	// Category is the mutually exclusive classification of the filter.  It
	// is set exactly once, during parsing.
	Category Category

	// RuleString is the original rule text, used for $badfilter
	// de-duplication.
	RuleString string

	// EvalString is the portion of the rule used for content matching.  Its
	// meaning depends on Category.  It is lower-cased unless MatchCase is
	// set.
	EvalString string

	// ContentSecurityPolicy is the optional CSP directive text carried by a
	// csp= option or synthesized from a blob:/data: rule.
	ContentSecurityPolicy string

	// RedirectName is the resource key to redirect to, set iff Redirect is
	// true.
	RedirectName string

	// DomainBlacklist and DomainWhitelist are unordered sets of domain
	// strings.  A domain ending in "." is an entity pattern; see
	// [DomainMatches].
	DomainBlacklist []string
	DomainWhitelist []string

	// DenyAllowDomains holds the parsed denyallow= domain list.  Per
	// spec.md §9 Open Questions, this is recognized syntactically but never
	// consulted by IsMatch.
	DenyAllowDomains []string

	// AllowedTypes and BlockedTypes are element-type bitfields.
	AllowedTypes ElementType
	BlockedTypes ElementType

	// NeedleHash and DifferenceHash are pre-computed Rabin–Karp values, used
	// only when Category == CategoryStringContains.
	NeedleHash     uint64
	DifferenceHash uint64

	Exception bool
	Important bool
	Disabled  bool
	Redirect  bool
	MatchCase bool
	MatchAll  bool
}

// computeRabinKarp computes and stores the Rabin–Karp hashes for
// f.EvalString.  It must be called once, after EvalString is finalized, for
// every filter of category [CategoryStringContains].
func (f *Filter) computeRabinKarp() {
	f.NeedleHash = NeedleHash(f.EvalString)
	f.DifferenceHash = DifferenceHash(len(f.EvalString))
}

// NewStringContainsFilter builds the portion of a Filter needed to evaluate
// the default, most common category: a literal substring match.  It is
// exported so the parser's last resort (spec.md §4.1 step 11) and tests can
// both construct a well-formed record without duplicating the hash
// computation.
func NewStringContainsFilter(f *Filter, evalString string) {
	f.Category = CategoryStringContains
	f.EvalString = evalString
	f.computeRabinKarp()
}

// IsMatch implements the matching algorithm of spec.md §4.4.  baseURL is the
// first-party URL (used for domain restriction checks), requestURL is the
// full URL of the resource being requested, requestDomain is its host, and
// typeMask is the element-type bitfield describing
// the request.
func (f *Filter) IsMatch(baseURL, requestURL, requestDomain string, typeMask ElementType) bool {
	if f.Disabled {
		return false
	}

	if len(f.DomainBlacklist) != 0 || len(f.DomainWhitelist) != 0 {
		if !DomainListMatches(baseDomainOf(baseURL), f.DomainBlacklist, f.DomainWhitelist) {
			return false
		}
	}

	if typeMask.Has(InlineScript) && !f.BlockedTypes.Has(InlineScript) && !f.AllowedTypes.Has(InlineScript) {
		return false
	}

	wantThirdParty := typeMask.Has(ThirdParty)
	blockedThirdParty := f.BlockedTypes.Has(ThirdParty)
	allowedThirdParty := f.AllowedTypes.Has(ThirdParty)
	if blockedThirdParty && !wantThirdParty {
		return false
	}

	if allowedThirdParty && wantThirdParty {
		return false
	}

	if !f.matchesContent(requestURL, requestDomain) {
		return false
	}

	return f.resolveTypeMask(typeMask)
}

// matchesContent dispatches on f.Category to decide whether the
// content-matching portion of the rule (ignoring domain and type
// restrictions) is satisfied.
func (f *Filter) matchesContent(requestURL, requestDomain string) bool {
	if f.MatchAll {
		return true
	}

	switch f.Category {
	case CategoryDomain:
		return DomainMatches(requestDomain, f.EvalString)
	case CategoryDomainStart:
		return matchesDomainStart(requestURL, requestDomain, f.EvalString)
	case CategoryStringStartMatch:
		return compareCase(requestURL, f.EvalString, f.MatchCase, strings.HasPrefix)
	case CategoryStringEndMatch:
		return compareCase(requestURL, f.EvalString, f.MatchCase, strings.HasSuffix)
	case CategoryStringExactMatch:
		return compareCase(requestURL, f.EvalString, f.MatchCase, func(s, p string) bool { return s == p })
	case CategoryStringContains:
		haystack := requestURL
		if !f.MatchCase {
			haystack = strings.ToLower(haystack)
		}

		return RabinKarpContains(haystack, f.EvalString, f.NeedleHash, f.DifferenceHash)
	case CategoryRegExp:
		return f.Regex != nil && f.Regex.MatchString(requestURL)
	default:
		// Stylesheet*, Scriptlet, NotImplemented, None: never match a
		// network request; see spec.md §4.4 step 4 and §8.
		return false
	}
}

// matchesDomainStart implements spec.md §4.4's CategoryDomainStart case: the
// request URL contains eval_string preceded by "." or "/", or eval_string
// itself contains the request's second-level domain.
func matchesDomainStart(requestURL, requestDomain, evalString string) bool {
	idx := strings.Index(requestURL, evalString)
	for idx != -1 {
		if idx > 0 && (requestURL[idx-1] == '.' || requestURL[idx-1] == '/') {
			return true
		}

		next := strings.Index(requestURL[idx+1:], evalString)
		if next == -1 {
			break
		}

		idx = idx + 1 + next
	}

	return requestDomain != "" && strings.Contains(evalString, requestDomain)
}

// compareCase runs cmp over s and pattern, folding s to lower case first
// unless matchCase is set; pattern is assumed to already be in the right
// case (the parser lower-cases it at parse time when match-case is absent).
func compareCase(s, pattern string, matchCase bool, cmp func(s, pattern string) bool) bool {
	if !matchCase {
		s = strings.ToLower(s)
	}

	return cmp(s, pattern)
}

// resolveTypeMask implements step 5 of spec.md §4.4: walk the defined
// element-type bits, in order, looking for the first one present in
// typeMask that the filter has an opinion about.
func (f *Filter) resolveTypeMask(typeMask ElementType) bool {
	for _, bit := range typeBits {
		if !typeMask.Has(bit) {
			continue
		}

		if f.AllowedTypes.Has(bit) {
			return false
		}

		if f.BlockedTypes.Has(bit) {
			return true
		}
	}

	// No type bit of the request resolved.  GenericHide is left out of the
	// restriction test because it marks generic-hide exceptions, which are
	// looked up with a plain Other mask.
	if f.BlockedTypes&^(nonRestrictingBits|GenericHide) != 0 {
		return false
	}

	return true
}

// baseDomainOf is a small helper extracting a usable host from a URL-ish
// string for domain-restriction checks; it tolerates both bare hosts and
// full URLs, since callers pass either.
func baseDomainOf(baseURL string) string {
	s := baseURL
	if i := strings.Index(s, "://"); i != -1 {
		s = s[i+3:]
	}

	if i := strings.IndexAny(s, "/?#"); i != -1 {
		s = s[:i]
	}

	if i := strings.LastIndexByte(s, '@'); i != -1 {
		s = s[i+1:]
	}

	if i := strings.LastIndexByte(s, ':'); i != -1 {
		s = s[:i]
	}

	return strings.ToLower(s)
}
