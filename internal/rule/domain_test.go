package rule_test

import (
	"testing"

	"github.com/adguard-like/filtercore/internal/rule"
	"github.com/stretchr/testify/assert"
)

func TestDomainMatches(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		domain string
		pat    string
		want   bool
	}{{
		name:   "exact",
		domain: "example.com",
		pat:    "example.com",
		want:   true,
	}, {
		name:   "subdomain",
		domain: "developers.slashdot.org",
		pat:    "slashdot.org",
		want:   true,
	}, {
		name:   "not_label_boundary",
		domain: "notslashdot.org",
		pat:    "slashdot.org",
		want:   false,
	}, {
		name:   "unrelated",
		domain: "example.com",
		pat:    "example.net",
		want:   false,
	}, {
		name:   "entity_match",
		domain: "google.com",
		pat:    "google.",
		want:   true,
	}, {
		name:   "entity_subdomain_no_match",
		domain: "maps.google.com",
		pat:    "google.",
		want:   false,
	}, {
		name:   "entity_mismatch",
		domain: "googlee.com",
		pat:    "google.",
		want:   false,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, rule.DomainMatches(tc.domain, tc.pat))
		})
	}
}

func TestDomainListMatches(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		domain    string
		blacklist []string
		whitelist []string
		want      bool
	}{{
		name:      "whitelist_hit_wins",
		domain:    "watchvid.com",
		blacklist: []string{"watchvid.com"},
		whitelist: []string{"watchvid.com"},
		want:      false,
	}, {
		name:      "empty_blacklist_nonempty_whitelist_no_hit",
		domain:    "example.com",
		blacklist: nil,
		whitelist: []string{"other.com"},
		want:      true,
	}, {
		name:      "blacklist_hit",
		domain:    "watchvid.com",
		blacklist: []string{"watchvid.com"},
		whitelist: nil,
		want:      true,
	}, {
		name:      "no_hit_at_all",
		domain:    "example.com",
		blacklist: []string{"other.com"},
		whitelist: nil,
		want:      false,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := rule.DomainListMatches(tc.domain, tc.blacklist, tc.whitelist)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSecondLevelDomain(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		host string
		want string
	}{
		{host: "developers.slashdot.org", want: "slashdot.org"},
		{host: "slashdot.org", want: "slashdot.org"},
		{host: "a.b.c.example.com", want: "example.com"},
		{host: "localhost", want: "localhost"},
		{host: "", want: ""},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, rule.SecondLevelDomain(tc.host), tc.host)
	}
}
