package ruleparser

import (
	"strings"

	"github.com/adguard-like/filtercore/internal/rule"
)

// allTypesMask is the fixed subset of blocked_types set by the "all"
// option, per spec.md §4.1 step 3.
const allTypesMask = rule.Script | rule.Image | rule.Stylesheet | rule.Object |
	rule.XMLHTTPRequest | rule.Subdocument | rule.Ping | rule.WebSocket | rule.Other

// parseOptions implements spec.md §4.1 step 3: if a "$" appears followed by
// a letter, the trailing option string is split by "," and applied to f.
// It returns the residue with the option suffix (and separating "$")
// removed.
func parseOptions(f *rule.Filter, residue string) string {
	idx := findOptionsSeparator(residue)
	if idx == -1 {
		return residue
	}

	body, opts := residue[:idx], residue[idx+1:]

	for _, opt := range splitOptions(opts) {
		applyOption(f, opt)
	}

	return body
}

// findOptionsSeparator finds the "$" introducing the options string, per
// spec.md §4.1 step 3: the first "$" immediately followed by a letter.
func findOptionsSeparator(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] != '$' {
			continue
		}

		if i+1 < len(s) && isLetter(s[i+1]) {
			return i
		}
	}

	return -1
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// splitOptions splits an option string on every ",".  Domain lists inside
// domain= are "|"-separated and unaffected; a literal "," inside an option
// value (for example a csp= directive) is split like any other.
func splitOptions(s string) []string {
	return strings.Split(s, ",")
}

// applyOption applies one option token (already split on ",") to f, per
// spec.md §4.1 step 3.
func applyOption(f *rule.Filter, opt string) {
	opt = strings.TrimSpace(opt)
	if opt == "" {
		return
	}

	name, value, hasValue := strings.Cut(opt, "=")

	switch strings.ToLower(name) {
	case "domain":
		if hasValue {
			applyDomainOption(f, value)
		}

		return
	case "csp":
		f.BlockedTypes |= rule.CSP
		if hasValue {
			f.ContentSecurityPolicy = value
		}

		return
	case "redirect", "redirect-rule":
		if hasValue {
			f.Redirect = true
			f.RedirectName = value
		}

		return
	case "empty":
		f.Redirect = true
		f.RedirectName = "nooptext"

		return
	case "mp4":
		f.Redirect = true
		f.RedirectName = "noopmp4-1s"

		return
	case "first-party", "1p":
		f.AllowedTypes |= rule.ThirdParty

		return
	case "all":
		f.BlockedTypes |= allTypesMask

		return
	case "important":
		if !f.Exception {
			f.Important = true
		}

		return
	case "badfilter":
		f.BlockedTypes |= rule.BadFilter

		return
	case "match-case":
		f.MatchCase = true
		f.BlockedTypes |= rule.MatchCase

		return
	case "denyallow":
		if hasValue {
			f.DenyAllowDomains = append(f.DenyAllowDomains, strings.Split(value, "|")...)
		}

		return
	}

	neg := strings.HasPrefix(name, "~")
	bareName := strings.TrimPrefix(name, "~")

	bit, ok := rule.ParseElementTypeName(bareName)
	if !ok {
		// Unknown option name: ignored, not fatal, per spec.md §7.
		return
	}

	if neg {
		f.AllowedTypes |= bit
	} else {
		f.BlockedTypes |= bit
	}
}

// applyDomainOption implements the "domain=v1|v2|~v3|…" option: entries
// prefixed with "~" go to the whitelist, others to the blacklist, with
// entity ("example.*") normalization applied uniformly.
func applyDomainOption(f *rule.Filter, value string) {
	for _, d := range strings.Split(value, "|") {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}

		neg := strings.HasPrefix(d, "~")
		if neg {
			d = d[1:]
		}

		d = rule.NormalizeEntityDomain(d)

		if neg {
			f.DomainWhitelist = append(f.DomainWhitelist, d)
		} else {
			f.DomainBlacklist = append(f.DomainBlacklist, d)
		}
	}
}
