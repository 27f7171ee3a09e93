package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/google/renameio/v2"
)

// requestsBlockedKey is the one non-subscription key in the engine-state
// object, per spec.md §6.
const requestsBlockedKey = "requests_blocked"

// SubscriptionState is one subscription's persisted entry in the
// engine-state file, keyed by its absolute file path, per spec.md §6.
type SubscriptionState struct {
	Enabled    bool   `json:"enabled"`
	LastUpdate int64  `json:"last_update"`
	NextUpdate int64  `json:"next_update"`
	Source     string `json:"source"`
}

// State is the engine-state configuration file of spec.md §6: the global
// block counter plus one [SubscriptionState] per subscription file path.
// It marshals to and from the flat JSON object spec.md §6 specifies, where
// "requests_blocked" sits as a sibling key alongside the subscription-path
// keys rather than nested under its own object.
type State struct {
	RequestsBlocked uint64
	Subscriptions   map[string]SubscriptionState
}

// MarshalJSON implements [json.Marshaler], producing the flat object shape
// of spec.md §6.
func (s *State) MarshalJSON() ([]byte, error) {
	raw := make(map[string]any, len(s.Subscriptions)+1)
	raw[requestsBlockedKey] = strconv.FormatUint(s.RequestsBlocked, 10)

	for path, sub := range s.Subscriptions {
		raw[path] = sub
	}

	return json.Marshal(raw)
}

// UnmarshalJSON implements [json.Unmarshaler], splitting the flat object's
// "requests_blocked" key from the remaining subscription-path keys.
func (s *State) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.Subscriptions = make(map[string]SubscriptionState, len(raw))

	for key, value := range raw {
		if key == requestsBlockedKey {
			var str string
			if err := json.Unmarshal(value, &str); err != nil {
				return fmt.Errorf("parsing %q: %w", requestsBlockedKey, err)
			}

			n, err := strconv.ParseUint(str, 10, 64)
			if err != nil {
				return fmt.Errorf("parsing %q: %w", requestsBlockedKey, err)
			}

			s.RequestsBlocked = n

			continue
		}

		var sub SubscriptionState
		if err := json.Unmarshal(value, &sub); err != nil {
			return fmt.Errorf("parsing subscription state for %q: %w", key, err)
		}

		s.Subscriptions[key] = sub
	}

	return nil
}

// LoadState parses the engine-state JSON format of spec.md §6 from r.
func LoadState(r io.Reader) (*State, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading engine state: %w", err)
	}

	s := &State{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing engine state: %w", err)
	}

	return s, nil
}

// SaveState writes s to w in the engine-state JSON format of spec.md §6.
func SaveState(w io.Writer, s *State) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(s)
}

// SaveStateFile writes s to the engine-state file at path, replacing any
// existing file atomically, mirroring the teacher's own config-save
// convention of never leaving a half-written config file behind a crash
// mid-write.
func SaveStateFile(path string, s *State) (err error) {
	f, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("creating pending engine state file: %w", err)
	}

	err = SaveState(f, s)
	if err != nil {
		return errors.WithDeferred(err, f.Cleanup())
	}

	return errors.WithDeferred(nil, f.CloseAtomicallyReplace())
}

// LoadStateFile reads the engine-state file at path. Per spec.md §7, a
// missing or corrupt file is never fatal: it is treated as "no
// subscriptions" and an empty, disabled-but-functional State is returned
// instead of an error.
func LoadStateFile(ctx context.Context, logger *slog.Logger, path string) *State {
	f, err := os.Open(path)
	if err != nil {
		logger.WarnContext(ctx, "opening engine state, starting with no subscriptions", slogutil.KeyError, err)

		return &State{Subscriptions: map[string]SubscriptionState{}}
	}
	defer func() { _ = f.Close() }()

	s, err := LoadState(f)
	if err != nil {
		logger.WarnContext(ctx, "parsing engine state, starting with no subscriptions", slogutil.KeyError, err)

		return &State{Subscriptions: map[string]SubscriptionState{}}
	}

	return s
}
