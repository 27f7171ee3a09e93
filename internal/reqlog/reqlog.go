// Package reqlog implements the request log of spec.md §4.9: an in-memory
// mapping from first-party URL to an ordered list of log entries, pruned by
// a periodic task.
package reqlog

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/adguard-like/filtercore/internal/rule"
)

// PruneInterval is the age at which an entry is pruned, and the period of
// the background pruning task, per spec.md §4.9.
const PruneInterval = 30 * time.Minute

// Action is the decision an [Entry] records, mirroring the request
// handler's Decision kinds.
type Action int

// Recognized log actions.
const (
	Allow Action = iota
	Block
	Redirect
)

// String implements the [fmt.Stringer] interface for Action.
func (a Action) String() string {
	switch a {
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

// Entry is one logged network-request decision, per spec.md §3 "Log entry".
type Entry struct {
	Action        Action
	FirstPartyURL string
	RequestURL    string
	ResourceType  rule.ElementType
	Rule          string
	Timestamp     time.Time
}

// Log is a first-party-URL-keyed mapping of ordered [Entry] lists. It is
// safe for concurrent use.
type Log struct {
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string][]Entry
}

// Config configures a [Log].
type Config struct {
	// Logger is used to log pruning activity and goroutine panics. It must
	// not be nil.
	Logger *slog.Logger
}

// New creates an empty request log.
func New(c *Config) *Log {
	return &Log{
		logger:  c.Logger,
		entries: map[string][]Entry{},
	}
}

// AddEntry appends a log entry under firstPartyURL.
func (l *Log) AddEntry(
	action Action,
	firstPartyURL, requestURL string,
	resourceType rule.ElementType,
	ruleString string,
	timestamp time.Time,
) {
	e := Entry{
		Action:        action,
		FirstPartyURL: firstPartyURL,
		RequestURL:    requestURL,
		ResourceType:  resourceType,
		Rule:          ruleString,
		Timestamp:     timestamp,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[firstPartyURL] = append(l.entries[firstPartyURL], e)
}

// EntriesFor returns the entries logged under firstPartyURL, in insertion
// order.
func (l *Log) EntriesFor(firstPartyURL string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := l.entries[firstPartyURL]
	out := make([]Entry, len(entries))
	copy(out, entries)

	return out
}

// AllEntries returns every logged entry across all first-party URLs, sorted
// by timestamp, oldest first.
func (l *Log) AllEntries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var all []Entry
	for _, entries := range l.entries {
		all = append(all, entries...)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp.Before(all[j].Timestamp) })

	return all
}

// Prune removes every entry older than [PruneInterval] relative to now, per
// spec.md §4.9.
func (l *Log) Prune(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for url, entries := range l.entries {
		kept := entries[:0]
		for _, e := range entries {
			if now.Sub(e.Timestamp) < PruneInterval {
				kept = append(kept, e)
			}
		}

		if len(kept) == 0 {
			delete(l.entries, url)
		} else {
			l.entries[url] = kept
		}
	}
}

// RunPruner runs the periodic prune task until ctx is canceled. It is
// intended to be started as a goroutine.
func (l *Log) RunPruner(ctx context.Context) {
	defer slogutil.RecoverAndLog(ctx, l.logger)

	ticker := time.NewTicker(PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Prune(now)
			l.logger.DebugContext(ctx, "pruned request log")
		}
	}
}
