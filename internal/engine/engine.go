// Package engine implements the top-level request handler of spec.md §1 and
// §4.7, and the per-page cosmetic assembly of §4.8: it owns the active
// [rulelist.Container], the resource store, the request log, and the
// LRU-cached per-domain stylesheet/JS output, and wires them together into
// should_block and the page-render queries.
package engine

import (
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AdguardTeam/golibs/mathutil"
	"github.com/bluele/gcache"

	"github.com/adguard-like/filtercore/internal/reqlog"
	"github.com/adguard-like/filtercore/internal/resource"
	"github.com/adguard-like/filtercore/internal/rule"
	"github.com/adguard-like/filtercore/internal/rulelist"
	"github.com/adguard-like/filtercore/internal/ruleparser"
)

// cosmeticCacheSize is the LRU capacity of the per-host stylesheet/JS
// caches, per spec.md §4.8 "Cache ... in an LRU keyed by host (capacity
// 24)".
const cosmeticCacheSize = 24

// bypassSchemes are whitelisted a priori per spec.md §4.7 step 1 and never
// reach the filter container.
var bypassSchemes = map[string]struct{}{
	"file":    {},
	"qrc":     {},
	"blocked": {},
	"viper":   {},
}

// DecisionKind is the outcome of [Engine.ShouldBlock], per spec.md §4.7.
type DecisionKind int

// Recognized decision kinds.
const (
	Allow DecisionKind = iota
	Block
	Redirect
)

// String implements the [fmt.Stringer] interface for DecisionKind.
func (k DecisionKind) String() string {
	switch k {
	case Allow:
		return "allow"
	case Block:
		return "block"
	case Redirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decision is the result of [Engine.ShouldBlock].
type Decision struct {
	Kind DecisionKind

	// RedirectName names the resource the request should be redirected to.
	// It is set iff Kind == Redirect.
	RedirectName string
}

// RequestInfo describes one network request, per spec.md §4.7 step 1. Type
// is the host's notion of the request's resource category; it must not
// include [rule.ThirdParty] or [rule.WebSocket], which the engine derives
// itself.
type RequestInfo struct {
	URL    string
	Scheme string
	Type   rule.ElementType
}

// Engine is the request handler and per-page cosmetic assembler of
// spec.md §1. It is safe for concurrent use: the active container is
// swapped atomically (spec.md §5), and the cosmetic caches and counters are
// independently synchronized.
type Engine struct {
	logger *slog.Logger

	container atomic.Pointer[rulelist.Container]
	resources *resource.Store
	log       *reqlog.Log

	blockedCount atomic.Uint64
	enabled      atomic.Uint32

	perFirstPartyMu sync.Mutex
	perFirstParty   map[string]uint64

	styleCache gcache.Cache
	jsCache    gcache.Cache
}

// Config configures a new [Engine].
type Config struct {
	// Logger receives diagnostic messages. It must not be nil.
	Logger *slog.Logger

	// Resources resolves $redirect= targets and scriptlet bodies. It may be
	// nil, in which case redirect/scriptlet filters are left unresolved.
	Resources *resource.Store

	// Log records every block/redirect decision, per spec.md §4.9. It may
	// be nil, in which case decisions are not logged.
	Log *reqlog.Log
}

// New creates an Engine with an empty filter container. Call [Engine.Rebuild]
// once subscriptions are loaded.
func New(c *Config) *Engine {
	e := &Engine{
		logger:        c.Logger,
		resources:     c.Resources,
		log:           c.Log,
		perFirstParty: map[string]uint64{},
		styleCache:    gcache.New(cosmeticCacheSize).LRU().Build(),
		jsCache:       gcache.New(cosmeticCacheSize).LRU().Build(),
	}
	e.container.Store(rulelist.Build(nil, c.Resources))
	e.enabled.Store(1)

	return e
}

// SetEnabled toggles whether [Engine.ShouldBlock] consults the filter
// container at all, mirroring the teacher's DNSFilter enabled flag.
func (e *Engine) SetEnabled(enabled bool) {
	e.enabled.Store(mathutil.BoolToNumber[uint32](enabled))
}

// IsEnabled reports the engine's current enabled state.
func (e *Engine) IsEnabled() bool {
	return e.enabled.Load() != 0
}

// Rebuild partitions filters into a new [rulelist.Container] and swaps it in
// atomically, per spec.md §5's "container replacement is atomic"
// requirement. The cosmetic caches are purged, since their entries were
// computed against the old container.
func (e *Engine) Rebuild(filters []*rule.Filter) {
	var resources ruleparser.ResourceLookup
	if e.resources != nil {
		resources = e.resources
	}

	e.container.Store(rulelist.Build(filters, resources))
	e.styleCache.Purge()
	e.jsCache.Purge()
}

func (e *Engine) current() *rulelist.Container {
	return e.container.Load()
}

// BlockedCount returns the global block/redirect counter, per spec.md §4.7
// step 5.
func (e *Engine) BlockedCount() uint64 {
	return e.blockedCount.Load()
}

// BlockedCountFor returns the per-first-party block/redirect counter for
// firstPartyURL.
func (e *Engine) BlockedCountFor(firstPartyURL string) uint64 {
	e.perFirstPartyMu.Lock()
	defer e.perFirstPartyMu.Unlock()

	return e.perFirstParty[firstPartyURL]
}

// AllLogEntries returns every request-log entry recorded so far, sorted by
// timestamp, per spec.md §4.9 get_all_entries. It returns nil if the engine
// was built without a [reqlog.Log].
func (e *Engine) AllLogEntries() []reqlog.Entry {
	if e.log == nil {
		return nil
	}

	return e.log.AllEntries()
}

// Stats returns per-filter hit counts from the active container, per the
// "Filter hit counters" supplemented feature.
func (e *Engine) Stats() []rulelist.Stats {
	return e.current().Stats()
}

// ShouldBlock implements spec.md §4.7's five-step algorithm.
func (e *Engine) ShouldBlock(req RequestInfo, firstPartyURL string) Decision {
	if !e.IsEnabled() {
		return Decision{Kind: Allow}
	}

	if _, bypass := bypassSchemes[strings.ToLower(req.Scheme)]; bypass {
		return Decision{Kind: Allow}
	}

	requestDomain := hostOf(req.URL)
	secondLevelDomain := rule.SecondLevelDomain(requestDomain)

	typeMask := req.Type
	if scheme := strings.ToLower(req.Scheme); scheme == "ws" || scheme == "wss" {
		typeMask |= rule.WebSocket
	}

	if isThirdParty(firstPartyURL, secondLevelDomain) {
		typeMask |= rule.ThirdParty
	}

	c := e.current()

	if f := c.FindImportantBlock(firstPartyURL, req.URL, requestDomain, typeMask); f != nil {
		return e.apply(f, firstPartyURL, req.URL, typeMask)
	}

	candidate := c.FindBlockingFilter(secondLevelDomain, firstPartyURL, req.URL, requestDomain, typeMask)
	if candidate == nil {
		return Decision{Kind: Allow}
	}

	if f := c.FindAllowFilter(firstPartyURL, req.URL, requestDomain, typeMask); f != nil {
		return Decision{Kind: Allow}
	}

	return e.apply(candidate, firstPartyURL, req.URL, typeMask)
}

// apply turns a matched filter into a Decision, per spec.md §4.7 steps 2 and
// 5: a redirect filter yields Redirect(redirect_name), otherwise Block. Both
// cases increment the block counters and append a log entry.
func (e *Engine) apply(f *rule.Filter, firstPartyURL, requestURL string, typeMask rule.ElementType) Decision {
	e.blockedCount.Add(1)

	e.perFirstPartyMu.Lock()
	e.perFirstParty[firstPartyURL]++
	e.perFirstPartyMu.Unlock()

	d := Decision{Kind: Block}
	action := reqlog.Block

	if f.Redirect {
		d = Decision{Kind: Redirect, RedirectName: f.RedirectName}
		action = reqlog.Redirect
	}

	if e.log != nil {
		e.log.AddEntry(action, firstPartyURL, requestURL, typeMask, f.RuleString, time.Now())
	}

	return d
}

// isThirdParty reports whether a request whose second-level domain is
// requestDomain is third-party with respect to firstPartyURL, per
// spec.md §4.6: the domains differ, or the first-party URL is empty or
// opaque.
func isThirdParty(firstPartyURL, requestDomain string) bool {
	host := hostOf(firstPartyURL)
	if host == "" {
		return true
	}

	return rule.SecondLevelDomain(host) != requestDomain
}

// hostOf extracts the lower-cased host from a URL string, returning "" if
// the URL is empty or opaque (no authority component).
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}

	return strings.ToLower(u.Hostname())
}
