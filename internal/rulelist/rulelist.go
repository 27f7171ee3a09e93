// Package rulelist implements the filter container of spec.md §4.2: it
// ingests every parsed filter across all enabled subscriptions and
// partitions them into category-specific indexes for fast lookup, applies
// bad-filter removal and stylesheet-exception resolution, and pre-builds
// the global element-hiding stylesheet.
package rulelist

import (
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/AdguardTeam/golibs/container"
	"github.com/adguard-like/filtercore/internal/rule"
	"github.com/adguard-like/filtercore/internal/ruleparser"
)

// maxStylesheetRulesPerChunk is the maximum number of selectors grouped
// under one "{ display: none !important; }" declaration in the global
// stylesheet, to avoid pathologically large CSS rules.
const maxStylesheetRulesPerChunk = 1000

// record pairs a parsed filter with its container-local hit counter. The
// counter, not the filter itself, is the only thing rulelist ever mutates
// after a Container is built.
type record struct {
	filter *rule.Filter
	hits   atomic.Uint64
}

// orderedList is a move-to-front list of records, per spec.md §4.2's
// "move-to-front discipline".
type orderedList struct {
	mu      sync.Mutex
	records []*record
}

func newOrderedList(filters []*rule.Filter) *orderedList {
	l := &orderedList{records: make([]*record, len(filters))}
	for i, f := range filters {
		l.records[i] = &record{filter: f}
	}

	return l
}

// find scans l for the first record whose filter matches, moving it to the
// front of the list on a hit.
func (l *orderedList) find(baseURL, requestURL, requestDomain string, typeMask rule.ElementType) *rule.Filter {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, r := range l.records {
		if !r.filter.IsMatch(baseURL, requestURL, requestDomain, typeMask) {
			continue
		}

		r.hits.Add(1)

		if i != 0 {
			copy(l.records[1:i+1], l.records[:i])
			l.records[0] = r
		}

		return r.filter
	}

	return nil
}

func (l *orderedList) any(baseURL, requestURL, requestDomain string, typeMask rule.ElementType) bool {
	return l.find(baseURL, requestURL, requestDomain, typeMask) != nil
}

// Container is the built, immutable-after-construction filter container of
// spec.md §4.2. Only move-to-front reordering and hit-counter increments
// happen after [Build] returns; callers that need to add or remove filters
// rebuild a new Container and swap it in atomically.
type Container struct {
	importantBlock *orderedList
	blockByDomain  map[string]*orderedList
	blockByPattern *orderedList
	blockOther     *orderedList
	allow          *orderedList
	genericHide    *orderedList
	csp            *orderedList
	domainStyle    []*rule.Filter
	customStyle    []*rule.Filter
	domainJS       []*rule.Filter

	globalStylesheet string
}

// Build partitions filters into a new Container, per spec.md §4.2. Scriptlet
// bodies referenced by CategoryScriptlet filters are resolved against
// resources at this point, since this is where container assembly happens;
// see DESIGN.md's "Scriptlet resolution point" entry.
func Build(filters []*rule.Filter, resources ruleparser.ResourceLookup) *Container {
	var importantBlock, blockByPattern, blockOther, allow, genericHide, csp []*rule.Filter
	blockByDomain := map[string][]*rule.Filter{}

	stylesheetBlock := map[string]*rule.Filter{}
	stylesheetException := map[string]*rule.Filter{}

	var domainStyle, customStyle, domainJS []*rule.Filter

	badFilters := container.NewMapSet[string]()

	for _, f := range filters {
		if f.Disabled {
			// Disabled filters are dropped before the bad-filter set is
			// computed, so a disabled filter never masks the removal of
			// another; see SPEC_FULL.md's "$badfilter de-duplication against
			// disabled filters" entry.
			continue
		}

		switch {
		case f.Category == rule.CategoryStylesheet:
			if f.Exception {
				stylesheetException[f.EvalString] = f
			} else {
				stylesheetBlock[f.EvalString] = f
			}
		case f.Category == rule.CategoryStylesheetJS || f.Category == rule.CategoryScriptlet:
			domainJS = append(domainJS, resolveScriptlet(f, resources))
		case f.Category == rule.CategoryStylesheetCustom:
			customStyle = append(customStyle, f)
		case f.BlockedTypes.Has(rule.BadFilter):
			badFilters.Add(strings.TrimSuffix(strings.TrimSuffix(f.RuleString, ",badfilter"), "$badfilter"))
		case f.BlockedTypes.Has(rule.CSP) && !f.BlockedTypes.Has(rule.PopUp) && !f.Exception:
			csp = append(csp, f)
		case f.Exception:
			if f.BlockedTypes.Has(rule.GenericHide) {
				genericHide = append(genericHide, f)
			} else {
				allow = append(allow, f)
			}
		case f.Important:
			if f.BlockedTypes.Has(rule.GenericHide) {
				// An important filter that also requests generic-hide
				// exemption is contradictory; the original drops it
				// rather than classifying it either way.
				continue
			}

			importantBlock = append(importantBlock, f)
		case f.Category == rule.CategoryStringContains:
			blockByPattern = append(blockByPattern, f)
		case f.Category == rule.CategoryDomain:
			key := rule.SecondLevelDomain(f.EvalString)
			blockByDomain[key] = append(blockByDomain[key], f)
		default:
			blockOther = append(blockOther, f)
		}
	}

	badFilterRemove := func(fs []*rule.Filter) []*rule.Filter {
		out := fs[:0]
		for _, f := range fs {
			if !badFilters.Has(f.RuleString) {
				out = append(out, f)
			}
		}

		return out
	}

	allow = badFilterRemove(allow)
	blockByPattern = badFilterRemove(blockByPattern)
	blockOther = badFilterRemove(blockOther)
	csp = badFilterRemove(csp)
	genericHide = badFilterRemove(genericHide)

	for k, fs := range blockByDomain {
		blockByDomain[k] = badFilterRemove(fs)
	}

	for evalString, exc := range stylesheetException {
		blocker, ok := stylesheetBlock[evalString]
		if !ok {
			continue
		}

		merged := *blocker
		merged.DomainWhitelist = append(slices.Clone(blocker.DomainWhitelist), exc.DomainBlacklist...)
		stylesheetBlock[evalString] = &merged
	}

	var sb strings.Builder
	sb.WriteString("<style>")

	pending := 0

	flushChunk := func() {
		if pending == 0 {
			return
		}

		s := sb.String()
		sb.Reset()
		sb.WriteString(strings.TrimSuffix(s, ","))
		sb.WriteString("{ display: none !important; } ")
		pending = 0
	}

	for _, f := range stylesheetBlock {
		if len(f.DomainBlacklist) != 0 || len(f.DomainWhitelist) != 0 {
			domainStyle = append(domainStyle, f)

			continue
		}

		if pending >= maxStylesheetRulesPerChunk {
			flushChunk()
		}

		sb.WriteString(f.EvalString)
		sb.WriteString(",")
		pending++
	}

	flushChunk()
	sb.WriteString("</style>")

	blockByDomainOrdered := make(map[string]*orderedList, len(blockByDomain))
	for k, fs := range blockByDomain {
		blockByDomainOrdered[k] = newOrderedList(fs)
	}

	return &Container{
		importantBlock:   newOrderedList(importantBlock),
		blockByDomain:    blockByDomainOrdered,
		blockByPattern:   newOrderedList(blockByPattern),
		blockOther:       newOrderedList(blockOther),
		allow:            newOrderedList(allow),
		genericHide:      newOrderedList(genericHide),
		csp:              newOrderedList(csp),
		domainStyle:      domainStyle,
		customStyle:      customStyle,
		domainJS:         domainJS,
		globalStylesheet: sb.String(),
	}
}

// resolveScriptlet returns a copy of a CategoryScriptlet filter whose raw
// "+js(...)" / "script:inject(...)" EvalString is replaced by its final
// injected JS body; f itself is not modified. Filters that are not
// scriptlets, and every filter when resources is nil, are returned as they
// are. A scriptlet whose referenced resource is missing gets an empty
// EvalString, since RewriteScriptlet degrades to an empty, inert result in
// that case.
func resolveScriptlet(f *rule.Filter, resources ruleparser.ResourceLookup) *rule.Filter {
	if f.Category != rule.CategoryScriptlet || resources == nil {
		return f
	}

	body, _, ok := ruleparser.RewriteScriptlet(f.EvalString, resources)
	if !ok {
		return f
	}

	resolved := *f
	resolved.EvalString = body

	return &resolved
}

// FindImportantBlock scans the important-block list, per spec.md §4.7 step
// 2.
func (c *Container) FindImportantBlock(baseURL, requestURL, requestDomain string, typeMask rule.ElementType) *rule.Filter {
	return c.importantBlock.find(baseURL, requestURL, requestDomain, typeMask)
}

// FindBlockingFilter scans block_by_domain[requestSecondLevelDomain], then
// block_other, then block_by_pattern, per spec.md §4.7 step 3.
func (c *Container) FindBlockingFilter(
	requestSecondLevelDomain, baseURL, requestURL, requestDomain string,
	typeMask rule.ElementType,
) *rule.Filter {
	if byDomain, ok := c.blockByDomain[requestSecondLevelDomain]; ok {
		if f := byDomain.find(baseURL, requestURL, requestDomain, typeMask); f != nil {
			return f
		}
	}

	if f := c.blockOther.find(baseURL, requestURL, requestDomain, typeMask); f != nil {
		return f
	}

	return c.blockByPattern.find(baseURL, requestURL, requestDomain, typeMask)
}

// FindAllowFilter scans the allow list, per spec.md §4.7 step 4.
func (c *Container) FindAllowFilter(baseURL, requestURL, requestDomain string, typeMask rule.ElementType) *rule.Filter {
	return c.allow.find(baseURL, requestURL, requestDomain, typeMask)
}

// HasInlineScriptMatch reports whether any blocking container (important,
// the per-domain bucket, block_other, or block_by_pattern) has a filter
// matching the request with the InlineScript type bit set, per spec.md
// §4.8 domain_javascript's CSP-injection condition.
func (c *Container) HasInlineScriptMatch(requestSecondLevelDomain, baseURL, requestURL, requestDomain string) bool {
	mask := rule.InlineScript

	if c.importantBlock.any(baseURL, requestURL, requestDomain, mask) {
		return true
	}

	if byDomain, ok := c.blockByDomain[requestSecondLevelDomain]; ok {
		if byDomain.any(baseURL, requestURL, requestDomain, mask) {
			return true
		}
	}

	if c.blockOther.any(baseURL, requestURL, requestDomain, mask) {
		return true
	}

	return c.blockByPattern.any(baseURL, requestURL, requestDomain, mask)
}

// HasGenericHideFilter reports whether any generic-hide exception matches,
// per spec.md §4.8 generic_stylesheet.
func (c *Container) HasGenericHideFilter(requestURL, secondLevelDomain string) bool {
	return c.genericHide.any(requestURL, requestURL, secondLevelDomain, rule.Other)
}

// MatchingCSP returns the content-security-policy directive of the first csp
// filter matching the request, if any, per spec.md §4.8 domain_javascript's
// "append any csp-filter directives that match the URL".
func (c *Container) MatchingCSP(baseURL, requestURL, requestDomain string) (directive string, ok bool) {
	return c.csp.findCSP(baseURL, requestURL, requestDomain)
}

// findCSP is like find but returns the matched filter's CSP directive.
func (l *orderedList) findCSP(baseURL, requestURL, requestDomain string) (directive string, ok bool) {
	f := l.find(baseURL, requestURL, requestDomain, rule.CSP)
	if f == nil {
		return "", false
	}

	return f.ContentSecurityPolicy, true
}

// DomainStyleFilters returns every domain-restricted Stylesheet-category
// filter whose domain constraints match d, per spec.md §4.8
// domain_stylesheet.
func (c *Container) DomainStyleFilters(d string) []*rule.Filter {
	return filterByDomain(c.domainStyle, d)
}

// CustomStyleFilters returns every StylesheetCustom filter whose domain
// constraints match d.
func (c *Container) CustomStyleFilters(d string) []*rule.Filter {
	return filterByDomain(c.customStyle, d)
}

// DomainJSFilters returns every StylesheetJS/Scriptlet filter whose domain
// constraints match d, per spec.md §4.8 domain_javascript.
func (c *Container) DomainJSFilters(d string) []*rule.Filter {
	return filterByDomain(c.domainJS, d)
}

func filterByDomain(fs []*rule.Filter, d string) []*rule.Filter {
	var out []*rule.Filter

	for _, f := range fs {
		if len(f.DomainBlacklist) == 0 && len(f.DomainWhitelist) == 0 {
			out = append(out, f)

			continue
		}

		if rule.DomainListMatches(d, f.DomainBlacklist, f.DomainWhitelist) {
			out = append(out, f)
		}
	}

	return out
}

// Stats is one filter's hit count, per the "Filter hit counters"
// supplemented feature (AdBlockFilter::hitCount_ in the original).
type Stats struct {
	RuleString string
	Hits       uint64
}

// Stats returns the hit count of every filter held in a move-to-front list
// (important_block, block_by_domain, block_by_pattern, block_other, allow,
// generic_hide, csp). domain_style/custom_style/domain_js filters are not
// included: they are never evaluated through IsMatch against a network
// request, only selected for per-page cosmetic assembly, so the original's
// request-matching hit counter has no analog for them.
func (c *Container) Stats() []Stats {
	var out []Stats

	collect := func(l *orderedList) {
		l.mu.Lock()
		defer l.mu.Unlock()

		for _, r := range l.records {
			out = append(out, Stats{RuleString: r.filter.RuleString, Hits: r.hits.Load()})
		}
	}

	collect(c.importantBlock)
	collect(c.blockByPattern)
	collect(c.blockOther)
	collect(c.allow)
	collect(c.genericHide)
	collect(c.csp)

	for _, l := range c.blockByDomain {
		collect(l)
	}

	return out
}

// GlobalStylesheet returns the pre-built "<style>...</style>" string
// assembled from every non-domain-restricted Stylesheet filter, chunked at
// [maxStylesheetRulesPerChunk] selectors per declaration.
func (c *Container) GlobalStylesheet() string {
	return c.globalStylesheet
}
