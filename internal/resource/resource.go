// Package resource implements the resource store of spec.md §4 component I
// and §6 "Resource file format": a mapping from resource name to textual
// body and MIME type, used to resolve $redirect= targets and scriptlet
// bodies referenced by +js(...) / script:inject(...) cosmetic rules.
package resource

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/c2h5oh/datasize"
)

// ErrResourceTooLarge is returned by [Store.Load] when an input exceeds the
// configured MaxSize.
const ErrResourceTooLarge errors.Error = "resource file too large"

// entry is one loaded resource: its body text and declared MIME type.
type entry struct {
	body string
	mime string
}

// Store maps resource names to bodies and MIME types, per spec.md §6. It is
// safe for concurrent use: [Store.Load] swaps in its parsed contents under
// a write lock, and lookups take a read lock.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	maxSize datasize.ByteSize
}

// Config configures a [Store].
type Config struct {
	// MaxSize is the maximum total size of a resource file that [Store.Load]
	// will accept. Zero means unlimited.
	MaxSize datasize.ByteSize
}

// NewStore creates an empty resource store.
func NewStore(c *Config) *Store {
	s := &Store{entries: map[string]entry{}}
	if c != nil {
		s.maxSize = c.MaxSize
	}

	return s
}

// Resource returns the body registered under name. It implements
// ruleparser.ResourceLookup.
func (s *Store) Resource(name string) (body string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[name]

	return e.body, ok
}

// MIME returns the MIME type registered under name, if any.
func (s *Store) MIME(name string) (mime string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[name]

	return e.mime, ok
}

// Len reports the number of loaded resources.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// Load parses the resource file format of spec.md §6 from r and replaces
// the store's contents wholesale: concatenated blocks, each beginning with
// a header line "<name> <mime-type>" (or just "<name>"), followed by body
// lines, terminated by a blank line. Bodies whose MIME type contains
// "javascript" preserve internal newlines; all others are concatenated
// without them.
func (s *Store) Load(r io.Reader) error {
	if s.maxSize > 0 {
		data, err := io.ReadAll(io.LimitReader(r, int64(s.maxSize)+1))
		if err != nil {
			return fmt.Errorf("reading resource file: %w", err)
		}

		if int64(len(data)) > int64(s.maxSize) {
			return ErrResourceTooLarge
		}

		r = strings.NewReader(string(data))
	}

	entries, err := parseResourceBlocks(r)
	if err != nil {
		return fmt.Errorf("parsing resource file: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = entries

	return nil
}

func parseResourceBlocks(r io.Reader) (map[string]entry, error) {
	entries := map[string]entry{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	var name, mime string
	var body strings.Builder
	inBlock := false

	flush := func() {
		if inBlock && name != "" {
			b := body.String()
			if !strings.Contains(mime, "javascript") {
				b = strings.ReplaceAll(b, "\n", "")
			} else {
				b = strings.TrimSuffix(b, "\n")
			}

			entries[name] = entry{body: b, mime: mime}
		}

		name, mime = "", ""
		body.Reset()
		inBlock = false
	}

	for scanner.Scan() {
		line := scanner.Text()

		if strings.TrimSpace(line) == "" {
			flush()

			continue
		}

		if !inBlock {
			name, mime, _ = strings.Cut(line, " ")
			inBlock = true

			continue
		}

		body.WriteString(line)
		body.WriteString("\n")
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	flush()

	return entries, nil
}
