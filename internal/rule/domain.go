package rule

import "strings"

// DomainMatches reports whether domain d matches pattern p, per the three
// rules of spec.md §4.6:
//
//  1. p ends with "." (an entity pattern) and the label-prefix of d up to its
//     last "." equals p with the trailing dot removed;
//  2. d == p; or
//  3. d ends with p and the character preceding p in d is "." (p is a proper
//     suffix on a label boundary).
func DomainMatches(d, p string) bool {
	if p == "" {
		return false
	}

	if strings.HasSuffix(p, ".") {
		entity := p[:len(p)-1]
		i := strings.LastIndexByte(d, '.')
		if i == -1 {
			return d == entity
		}

		return d[:i] == entity
	}

	if d == p {
		return true
	}

	if strings.HasSuffix(d, p) {
		i := len(d) - len(p)

		return i > 0 && d[i-1] == '.'
	}

	return false
}

// DomainListMatches applies the domain-restriction rule of spec.md §4.4
// step 2 to a filter's domain blacklist/whitelist against base domain d:
//
//   - a whitelist hit makes the filter inapplicable;
//   - an empty blacklist with a non-empty whitelist makes the filter
//     applicable unless there is a whitelist hit;
//   - a blacklist hit makes the filter applicable;
//   - otherwise the filter is not applicable.
//
// If both lists are empty, none of the rules above applies and the result is
// false; such a filter carries no domain restriction, so callers skip this
// call and treat the filter as applicable (see [Filter.IsMatch]).
func DomainListMatches(d string, blacklist, whitelist []string) (applies bool) {
	for _, p := range whitelist {
		if DomainMatches(d, p) {
			return false
		}
	}

	if len(blacklist) == 0 {
		return len(whitelist) > 0
	}

	for _, p := range blacklist {
		if DomainMatches(d, p) {
			return true
		}
	}

	return false
}

// SecondLevelDomain extracts the registrable second-level domain from a host,
// using a simple two-label heuristic: the last two dot-separated labels, or
// the whole host if it has fewer than two labels.  This is intentionally
// simple; a full public-suffix-list lookup is outside the scope of the core
// (spec.md §1 lists subscription download and network concerns as external).
func SecondLevelDomain(host string) string {
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return ""
	}

	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return host
	}

	return strings.Join(labels[len(labels)-2:], ".")
}

// NormalizeEntityDomain normalizes a "google.*" style entity pattern (or any
// pattern with a trailing ".*") to the engine's canonical trailing-dot form
// used throughout spec.md §4.1 step 1 and §4.6.
func NormalizeEntityDomain(p string) string {
	if strings.HasSuffix(p, ".*") {
		return p[:len(p)-1]
	}

	return p
}
