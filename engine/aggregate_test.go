package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orgView(t *testing.T, eng *Engine) View {
	t.Helper()
	view, err := eng.ScopedView(ScopeSelection{Scope: ScopeOrg})
	require.NoError(t, err)
	return view
}

func TestMedianLeadTimeAndReviewLatency(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LookbackDays = 30

	first := testNow.AddDate(0, 0, -3)
	second := testNow.AddDate(0, 0, -2)
	rows := []RawRow{
		baseRow(map[string]any{
			"created_at":          ts(first),
			"merged_at":           ts(first.Add(10 * time.Hour)),
			"review_requested_at": ts(first.Add(1 * time.Hour)),
			"first_reviewed_at":   ts(first.Add(3 * time.Hour)),
		}),
		baseRow(map[string]any{
			"created_at":          ts(second),
			"merged_at":           ts(second.Add(20 * time.Hour)),
			"review_requested_at": ts(second.Add(2 * time.Hour)),
			"first_reviewed_at":   ts(second.Add(6 * time.Hour)),
		}),
	}

	eng := newTestEngine(t, rows, nil, cfg)
	summary, err := eng.Aggregate(orgView(t, eng), "")
	require.NoError(t, err)
	require.Len(t, summary, 1)

	row := summary[0]
	assert.Equal(t, "all", row.Key)
	assert.Equal(t, 2, row.TotalPRs)
	assert.Equal(t, 2, row.TotalMergedPRs)
	require.NotNil(t, row.LeadTimeMedianHrs)
	assert.Equal(t, 15.0, *row.LeadTimeMedianHrs)
	require.NotNil(t, row.ReviewLatencyMedianHrs)
	assert.Equal(t, 3.0, *row.ReviewLatencyMedianHrs)
}

func TestUnmergedRecordsExcludedFromLeadTimeMedian(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LookbackDays = 30

	created := testNow.AddDate(0, 0, -2)
	rows := []RawRow{
		baseRow(map[string]any{
			"created_at": ts(created),
			"merged_at":  ts(created.Add(10 * time.Hour)),
		}),
		baseRow(map[string]any{
			"created_at": ts(created),
			"merged_at":  nil,
		}),
	}

	eng := newTestEngine(t, rows, nil, cfg)
	summary, err := eng.Aggregate(orgView(t, eng), "")
	require.NoError(t, err)
	require.Len(t, summary, 1)

	row := summary[0]
	assert.Equal(t, 2, row.TotalPRs)
	assert.Equal(t, 1, row.TotalMergedPRs)
	require.NotNil(t, row.LeadTimeMedianHrs)
	assert.Equal(t, 10.0, *row.LeadTimeMedianHrs)
}

func TestNoSignalMediansAreAbsent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LookbackDays = 30

	rows := []RawRow{baseRow(map[string]any{
		"merged_at":           nil,
		"review_requested_at": nil,
		"first_reviewed_at":   nil,
	})}

	eng := newTestEngine(t, rows, nil, cfg)
	summary, err := eng.Aggregate(orgView(t, eng), "")
	require.NoError(t, err)
	require.Len(t, summary, 1)

	assert.Nil(t, summary[0].LeadTimeMedianHrs)
	assert.Nil(t, summary[0].ReviewLatencyMedianHrs)
}

func TestSizeClassBoundaries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LookbackDays = 30

	rows := []RawRow{
		baseRow(map[string]any{"additions": 49}),
		baseRow(map[string]any{"additions": 50}),
		baseRow(map[string]any{"additions": 299}),
		baseRow(map[string]any{"additions": 300}),
	}

	eng := newTestEngine(t, rows, nil, cfg)
	summary, err := eng.Aggregate(orgView(t, eng), "")
	require.NoError(t, err)
	require.Len(t, summary, 1)

	assert.Equal(t, 1, summary[0].PRsSmall)
	assert.Equal(t, 2, summary[0].PRsMedium)
	assert.Equal(t, 1, summary[0].PRsLarge)
}

func TestCodeChurnAverage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LookbackDays = 30

	rows := []RawRow{
		baseRow(map[string]any{"additions": 10, "deletions": 5}),
		baseRow(map[string]any{"additions": 0, "deletions": 3}),
	}

	eng := newTestEngine(t, rows, nil, cfg)
	summary, err := eng.Aggregate(orgView(t, eng), "")
	require.NoError(t, err)
	require.Len(t, summary, 1)

	// (5/11 + 3/1) / 2; the denominator carries the +1 smoothing.
	want := (5.0/11.0 + 3.0) / 2.0
	assert.InDelta(t, want, summary[0].CodeChurnAvg, 1e-9)
}

func TestGroupByAuthorSortedAscending(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LookbackDays = 30

	rows := []RawRow{
		baseRow(map[string]any{"author": "carol"}),
		baseRow(map[string]any{"author": "alice"}),
		baseRow(map[string]any{"author": "bob"}),
		baseRow(map[string]any{"author": "alice"}),
	}

	eng := newTestEngine(t, rows, nil, cfg)
	summary, err := eng.Aggregate(orgView(t, eng), "author")
	require.NoError(t, err)
	require.Len(t, summary, 3)

	assert.Equal(t, "alice", summary[0].Key)
	assert.Equal(t, 2, summary[0].TotalPRs)
	assert.Equal(t, "bob", summary[1].Key)
	assert.Equal(t, "carol", summary[2].Key)
}

func TestGroupByUnknownColumnFails(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LookbackDays = 30
	eng := newTestEngine(t, []RawRow{baseRow(nil)}, nil, cfg)

	_, err := eng.Aggregate(orgView(t, eng), "nonexistent")
	var missing *MissingColumnError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "nonexistent", missing.Column)
}

func TestGroupByMetricColumnIsNotGroupable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LookbackDays = 30
	eng := newTestEngine(t, []RawRow{baseRow(nil)}, nil, cfg)

	// Metric-bearing columns exist on every record but are not
	// grouping dimensions.
	for _, column := range []string{"additions", "created_at", "number"} {
		_, err := eng.Aggregate(orgView(t, eng), column)
		var missing *MissingColumnError
		require.True(t, errors.As(err, &missing), column)
		assert.Equal(t, column, missing.Column)
	}
}

func TestGroupByTeamWithoutTeamColumnFails(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LookbackDays = 30
	eng := newTestEngine(t, []RawRow{baseRow(nil)}, nil, cfg)

	_, err := eng.Aggregate(orgView(t, eng), "team")
	var missing *MissingColumnError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "team", missing.Column)
}

func TestAggregateEmptySelectionYieldsNoRows(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LookbackDays = 30
	eng := newTestEngine(t, []RawRow{baseRow(nil)}, nil, cfg)

	view, err := eng.ScopedView(ScopeSelection{Scope: ScopeIndividual})
	require.NoError(t, err)

	summary, err := eng.Aggregate(view, "")
	require.NoError(t, err)
	assert.Empty(t, summary)
}

func TestConfigurableSizeThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LookbackDays = 30
	cfg.SmallMaxAdditions = 10
	cfg.LargeMinAdditions = 20

	rows := []RawRow{
		baseRow(map[string]any{"additions": 9}),
		baseRow(map[string]any{"additions": 15}),
		baseRow(map[string]any{"additions": 25}),
	}

	eng := newTestEngine(t, rows, nil, cfg)
	summary, err := eng.Aggregate(orgView(t, eng), "")
	require.NoError(t, err)
	require.Len(t, summary, 1)

	assert.Equal(t, 1, summary[0].PRsSmall)
	assert.Equal(t, 1, summary[0].PRsMedium)
	assert.Equal(t, 1, summary[0].PRsLarge)
}
