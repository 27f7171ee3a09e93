package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execRoot runs rootCmd with args, resetting the package-level flag
// variables first since cobra flags are bound to shared globals across
// test cases in this package.
func execRoot(t *testing.T, args ...string) string {
	t.Helper()

	subscriptionFiles = nil
	resourceFile = ""
	firstPartyURL = ""
	requestType = "other"
	requestScheme = "https"
	logRequests = nil

	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	require.NoError(t, err)

	return buf.String()
}

func writeTempList(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "list.txt")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	return path
}

func TestLoad_reportsRuleCounts(t *testing.T) {
	path := writeTempList(t, "! Title: test list\n||ads.example.com^\n##.ad-banner\n")

	out := execRoot(t, "load", "--list", path)
	assert.Contains(t, out, "\"test list\"")
	assert.Contains(t, out, "2 rules")
	assert.Contains(t, out, "total: 2 rules across 1 lists")
}

func TestCheck_blocksMatchingRequest(t *testing.T) {
	path := writeTempList(t, "||ads.example.com^\n")

	out := execRoot(t, "check", "--list", path, "--type", "script", "https://ads.example.com/a.js")
	assert.Contains(t, out, "block")
}

func TestCheck_allowsUnmatchedRequest(t *testing.T) {
	path := writeTempList(t, "||ads.example.com^\n")

	out := execRoot(t, "check", "--list", path, "--type", "script", "https://cdn.example.com/app.js")
	assert.Contains(t, out, "allow")
}

func TestCosmetics_printsAllThreeSections(t *testing.T) {
	path := writeTempList(t, "example.com##.ad-banner\n")

	out := execRoot(t, "cosmetics", "--list", path, "https://example.com/page")
	assert.Contains(t, out, "# generic_stylesheet")
	assert.Contains(t, out, "# domain_stylesheet")
	assert.Contains(t, out, "# domain_javascript")
	assert.Contains(t, out, ".ad-banner")
}

func TestLog_evaluatesRequestsThenDumps(t *testing.T) {
	path := writeTempList(t, "||ads.example.com^\n")

	out := execRoot(t, "log", "--list", path,
		"--request", "https://ads.example.com/a.js",
		"--first-party", "https://site.example/",
		"--type", "script")

	assert.Contains(t, out, "block")
	assert.Contains(t, out, "https://site.example/")
	assert.Contains(t, out, "https://ads.example.com/a.js")
}
