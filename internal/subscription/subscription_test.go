package subscription_test

import (
	"strings"
	"testing"

	"github.com/adguard-like/filtercore/internal/rule"
	"github.com/adguard-like/filtercore/internal/subscription"
	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleList = `! Title: Example List
! Expires: 4 days
! Some comment
[Adblock Plus 2.0]
||ads.example.com^
##.ad-banner
@@||example.com/allow^
`

func TestLoad(t *testing.T) {
	t.Parallel()

	s, err := subscription.Load(strings.NewReader(sampleList), &subscription.Config{
		FilePath:  "/lists/example.txt",
		SourceURL: "https://example.com/list.txt",
	})
	require.NoError(t, err)

	assert.Equal(t, "Example List", s.Name)
	assert.Equal(t, "https://example.com/list.txt", s.SourceURL)
	assert.True(t, s.Enabled)
	assert.NotEqual(t, subscription.UID{}, s.ID)
	assert.False(t, s.NextUpdate.IsZero())

	require.Len(t, s.Filters, 3)
	assert.Equal(t, rule.CategoryDomain, s.Filters[0].Category)
	assert.Equal(t, rule.CategoryStylesheet, s.Filters[1].Category)
	assert.True(t, s.Filters[2].Exception)
}

func TestLoad_fallbackNameFromPath(t *testing.T) {
	t.Parallel()

	const noTitle = "||ads.example.com^\n"

	s, err := subscription.Load(strings.NewReader(noTitle), &subscription.Config{
		FilePath: "/lists/untitled.txt",
	})
	require.NoError(t, err)

	assert.Equal(t, "untitled.txt", s.Name)
}

func TestLoad_continuationLine(t *testing.T) {
	t.Parallel()

	lines := "! Title: Wrapped\n" + `||example.com/a` + ` \` + "\n" + `    b` + "\n"

	s, err := subscription.Load(strings.NewReader(lines), &subscription.Config{})
	require.NoError(t, err)

	require.Len(t, s.Filters, 1)
	assert.Equal(t, rule.CategoryDomainStart, s.Filters[0].Category)
	assert.Equal(t, "example.com/ab", s.Filters[0].EvalString)
}

func TestLoad_tooLarge(t *testing.T) {
	t.Parallel()

	_, err := subscription.Load(strings.NewReader(sampleList), &subscription.Config{
		MaxSize: 4 * datasize.B,
	})
	assert.ErrorIs(t, err, subscription.ErrTooLarge)
}

func TestNewUID_unique(t *testing.T) {
	t.Parallel()

	a, err := subscription.NewUID()
	require.NoError(t, err)

	b, err := subscription.NewUID()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotEmpty(t, a.String())
}
