package subscription

import (
	"encoding/json"
	"fmt"
	"io"
)

// CatalogueEntry is one known recommended subscription: its source list URL
// and, optionally, a companion resource file URL.
type CatalogueEntry struct {
	Source   string `json:"source"`
	Resource string `json:"resource,omitempty"`
}

// Catalogue is a read-only lookup table of recommended subscriptions, keyed
// by display name, per spec.md §6. It performs no network fetch, and neither
// [Load] nor engine-state loading consults it.
type Catalogue map[string]CatalogueEntry

// LoadCatalogue parses the recommended-subscription catalogue JSON format of
// spec.md §6: a single JSON object mapping a subscription name to an object
// with a "source" URL and an optional "resource" URL.
func LoadCatalogue(r io.Reader) (Catalogue, error) {
	var c Catalogue

	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("parsing recommended subscription catalogue: %w", err)
	}

	return c, nil
}

// Lookup reports whether name is a known recommended subscription, and if
// so, its catalogue entry.
func (c Catalogue) Lookup(name string) (entry CatalogueEntry, ok bool) {
	entry, ok = c[name]

	return entry, ok
}
