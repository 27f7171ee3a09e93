// Package subscription implements the "Subscription" type of spec.md §3: an
// ordered list of filter records parsed from one list file, plus metadata
// (display name, source URL, enabled flag, last/next update timestamps,
// file path).
package subscription

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/syncutil"
	"github.com/adguard-like/filtercore/internal/rule"
	"github.com/adguard-like/filtercore/internal/ruleparser"
	"github.com/c2h5oh/datasize"
	"github.com/google/uuid"
)

// lineBufPool pools the scan buffers used by [readLines] across subscription
// loads, mirroring the teacher's bufPool for filtering-rule list parsing.
var lineBufPool = syncutil.NewSlicePool[byte](64 * 1024)

// DefaultMaxSize is the default maximum accepted size of a subscription
// file, mirrored from the teacher's DefaultMaxRuleListSize.
const DefaultMaxSize = 64 * datasize.MB

// ErrTooLarge is returned by [Load] when the input exceeds the configured
// maximum size.
const ErrTooLarge errors.Error = "subscription file too large"

// UID is a unique subscription identifier.
type UID uuid.UUID

// NewUID returns a new subscription UID. Any error is from the
// cryptographic randomness reader.
func NewUID() (UID, error) {
	id, err := uuid.NewV7()

	return UID(id), err
}

// String implements the [fmt.Stringer] interface for UID.
func (id UID) String() string { return uuid.UUID(id).String() }

// Subscription is an ordered list of filter records parsed from one list
// file, plus its metadata. The core treats it as immutable input once
// loaded; only [Load] mutates it, and only the caller invokes that.
type Subscription struct {
	ID         UID
	Name       string
	SourceURL  string
	FilePath   string
	Enabled    bool
	LastUpdate time.Time
	NextUpdate time.Time
	Filters    []*rule.Filter
}

// Config configures how a subscription file is read.
type Config struct {
	// FilePath is the on-disk path used to derive a fallback display name
	// when the file carries no "! Title:" metadata.
	FilePath string

	// SourceURL is the subscription's origin URL, recorded verbatim.
	SourceURL string

	// MaxSize caps the number of bytes read from the subscription file.
	// Zero means [DefaultMaxSize].
	MaxSize datasize.ByteSize
}

// Load parses a subscription file from r into a new, enabled Subscription.
// Per spec.md §7, a corrupt subscription file is never fatal: lines that
// cannot be parsed become [rule.CategoryNotImplemented] records, and other
// lines load normally.
func Load(r io.Reader, c *Config) (*Subscription, error) {
	maxSize := c.MaxSize
	if maxSize == 0 {
		maxSize = DefaultMaxSize
	}

	id, err := NewUID()
	if err != nil {
		return nil, fmt.Errorf("generating subscription id: %w", err)
	}

	s := &Subscription{
		ID:         id,
		SourceURL:  c.SourceURL,
		FilePath:   c.FilePath,
		Enabled:    true,
		LastUpdate: time.Time{},
	}

	physicalLines, err := readLines(r, maxSize)
	if err != nil {
		return nil, err
	}

	var title string
	var expiresDays int

	for _, line := range ruleparser.JoinContinuations(physicalLines) {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "!") {
			if title == "" {
				if t, ok := parseTitle(trimmed); ok {
					title = t
				}
			}

			if d, ok := parseExpiresDays(trimmed); ok {
				expiresDays = d
			}

			continue
		}

		if ruleparser.IsIgnorableLine(trimmed) {
			continue
		}

		s.Filters = append(s.Filters, ruleparser.Parse(trimmed))
	}

	if title == "" {
		title = filepath.Base(s.FilePath)
	}

	s.Name = title

	if expiresDays > 0 {
		s.NextUpdate = s.LastUpdate.AddDate(0, 0, expiresDays)
	}

	return s, nil
}

// readLines reads r's lines while enforcing maxSize, per spec.md §6.
func readLines(r io.Reader, maxSize datasize.ByteSize) ([]string, error) {
	limited := io.LimitReader(r, int64(maxSize)+1)

	bufp := lineBufPool.Get()
	defer lineBufPool.Put(bufp)

	scanner := bufio.NewScanner(limited)
	scanner.Buffer((*bufp)[:0], 8*1024*1024)

	var lines []string
	var total int64

	for scanner.Scan() {
		total += int64(len(scanner.Bytes())) + 1
		if total > int64(maxSize) {
			return nil, ErrTooLarge
		}

		lines = append(lines, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading subscription file: %w", err)
	}

	return lines, nil
}

// parseTitle recognizes a "! Title: <name>" metadata line, per spec.md §6.
func parseTitle(line string) (title string, ok bool) {
	idx := strings.Index(line, "Title:")
	if idx < 0 {
		return "", false
	}

	return strings.TrimSpace(line[idx+len("Title:"):]), true
}

// parseExpiresDays recognizes a "! Expires: <n> day[s]" metadata line, per
// spec.md §6.
func parseExpiresDays(line string) (days int, ok bool) {
	if !strings.HasPrefix(line, "! Expires:") {
		return 0, false
	}

	rest := strings.TrimPrefix(line, "! Expires:")

	dayIdx := strings.Index(rest, " day")
	if dayIdx < 0 {
		return 0, false
	}

	n, err := strconv.Atoi(strings.TrimSpace(rest[:dayIdx]))
	if err != nil || n == 0 {
		return 0, false
	}

	return n, true
}
