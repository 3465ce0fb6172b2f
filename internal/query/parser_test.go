package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStructuredFilters(t *testing.T) {
	q, err := Parse("type:bug type:feature status:Open priority:high tag:backend")
	require.NoError(t, err)
	assert.Equal(t, []string{"bug", "feature"}, q.Types)
	assert.Equal(t, []string{"Open"}, q.Statuses)
	assert.Equal(t, []string{"HIGH"}, q.Priorities)
	assert.Equal(t, []string{"backend"}, q.Tags)
	assert.Empty(t, q.FreeText)
}

func TestParseFreeTextOnly(t *testing.T) {
	q, err := Parse("urgent database migration")
	require.NoError(t, err)
	assert.Equal(t, []string{"urgent", "database", "migration"}, q.FreeText)
	assert.True(t, !q.Empty())
}

func TestParseEmptyQueryIsEmpty(t *testing.T) {
	q, err := Parse("")
	require.NoError(t, err)
	assert.True(t, q.Empty())
}

func TestParseDateRange(t *testing.T) {
	q, err := Parse("created:range:2024-01-01..2024-06-30")
	require.NoError(t, err)
	require.Len(t, q.Ranges, 1)
	assert.Equal(t, "created", q.Ranges[0].Field)
	assert.Equal(t, 2024, q.Ranges[0].From.Year())
	assert.Equal(t, time.June, q.Ranges[0].To.Month())
}

func TestParseUnrecognizedKeyDegradesToFreeText(t *testing.T) {
	q, err := Parse("bogus:value")
	require.NoError(t, err)
	assert.Equal(t, []string{"bogus:value"}, q.FreeText)
	assert.Empty(t, q.Ranges)
}

func TestParseMalformedRangeDegradesToFreeText(t *testing.T) {
	q, err := Parse("created:range:not-a-date..also-not")
	require.NoError(t, err)
	assert.Empty(t, q.Ranges)
	assert.Equal(t, []string{"created:range:not-a-date..also-not"}, q.FreeText)
}

func TestParseMixedStructuredAndFreeText(t *testing.T) {
	q, err := Parse(`type:bug "needs review" tag:backend urgent`)
	require.NoError(t, err)
	assert.Equal(t, []string{"bug"}, q.Types)
	assert.Equal(t, []string{"backend"}, q.Tags)
	assert.Equal(t, []string{"needs review", "urgent"}, q.FreeText)
}
