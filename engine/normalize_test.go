package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMalformedTimestampCoercesToAbsent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LookbackDays = 30

	rows := []RawRow{baseRow(map[string]any{"merged_at": "not-a-date"})}
	eng := newTestEngine(t, rows, nil, cfg)

	summary, err := eng.Aggregate(orgView(t, eng), "")
	require.NoError(t, err)
	require.Len(t, summary, 1)

	// The record survives (recency falls back to created_at) but
	// contributes nothing merge-derived.
	assert.Equal(t, 1, summary[0].TotalPRs)
	assert.Equal(t, 0, summary[0].TotalMergedPRs)
	assert.Nil(t, summary[0].LeadTimeMedianHrs)
}

func TestMalformedFlagCoercesToAbsentAndRecordIsKept(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LookbackDays = 30

	rows := []RawRow{baseRow(map[string]any{"is_bot": "maybe"})}
	eng := newTestEngine(t, rows, nil, cfg)

	// An unknown flag state is not grounds for exclusion, even with
	// the bot filter on.
	assert.Equal(t, []string{"alice"}, eng.AvailableAuthors())
}

func TestTimestampCoercionAcceptsCommonShapes(t *testing.T) {
	when := time.Date(2026, 2, 1, 15, 30, 0, 0, time.UTC)

	parsed := asTime("2026-02-01T15:30:00Z")
	require.NotNil(t, parsed)
	assert.Equal(t, when, *parsed)

	parsed = asTime("2026-02-01 15:30:00")
	require.NotNil(t, parsed)
	assert.Equal(t, when, *parsed)

	parsed = asTime(when.In(time.FixedZone("CET", 3600)))
	require.NotNil(t, parsed)
	assert.Equal(t, when, *parsed)

	assert.Nil(t, asTime(nil))
	assert.Nil(t, asTime(42))
}

func TestBoolCoercion(t *testing.T) {
	require.NotNil(t, asBool(true))
	assert.True(t, *asBool(true))

	require.NotNil(t, asBool("false"))
	assert.False(t, *asBool("false"))

	assert.Nil(t, asBool("maybe"))
	assert.Nil(t, asBool(nil))
}

func TestNormalizationDoesNotMutateRawRows(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LookbackDays = 30

	row := baseRow(nil)
	delete(row, "repository")
	row["repo"] = "legacy/name"
	rows := []RawRow{row}

	eng := newTestEngine(t, rows, nil, cfg)
	_ = eng.AvailableRepos()
	_ = eng.AvailableRepos()

	// The alias rename happens on the derived view only.
	_, hasCanonical := row["repository"]
	assert.False(t, hasCanonical)
	assert.Equal(t, "legacy/name", row["repo"])
}
