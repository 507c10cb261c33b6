package engine

import "time"

// RawRow is one pull request row exactly as decoded from the fetch
// job's output. Values keep their wire representation; coercion into
// typed fields happens during normalization, never here.
type RawRow map[string]any

// TeamEntry maps a contributor to a team, optionally within an org.
type TeamEntry struct {
	Author string
	Team   string
	Org    string
}

// TeamMapping is the contributor-to-team dataset. HasOrg records
// whether the source carried an org column; the join key includes org
// only when both the records and the mapping have it, which lets the
// same author belong to different teams in different orgs.
type TeamMapping struct {
	Entries []TeamEntry
	HasOrg  bool
}

// Scope is the audience granularity of a query.
type Scope string

const (
	ScopeOrg        Scope = "org"
	ScopeTeam       Scope = "team"
	ScopeIndividual Scope = "individual"
)

// ScopeSelection selects the slice of records a query runs over. It is
// built per query and discarded after use.
type ScopeSelection struct {
	Scope Scope
	Team  string
	User  string
}

// Record is a normalized pull request row. Optional timestamps and
// flags are pointers; nil means the value was absent or unparseable.
type Record struct {
	Author            string
	Org               string
	Repository        string
	Number            int
	Team              string
	CreatedAt         *time.Time
	MergedAt          *time.Time
	ReviewRequestedAt *time.Time
	FirstReviewedAt   *time.Time
	Additions         int
	Deletions         int
	IsFork            *bool
	IsArchived        *bool
	IsBot             *bool
}

// columns is the schema descriptor of a view: which optional columns
// the underlying dataset actually carries. Checked once during
// normalization so business logic never probes rows for presence.
type columns struct {
	Org  bool
	Team bool
}

// View is an immutable, already normalized and filtered slice of
// records. Each query derives its own view; views never share state
// with the engine or with each other.
type View struct {
	rows []Record
	cols columns
}

// Len returns the number of records in the view.
func (v View) Len() int { return len(v.rows) }

// Empty reports whether the view has no records.
func (v View) Empty() bool { return len(v.rows) == 0 }

// HasColumn reports whether the view carries the named column.
func (v View) HasColumn(name string) bool {
	switch name {
	case ColumnOrg:
		return v.cols.Org
	case ColumnTeam:
		return v.cols.Team
	case ColumnAuthor, ColumnRepository:
		return true
	}
	return false
}

// SummaryRow is one aggregated output row. The medians are nil when no
// record in the group carries the underlying signal.
type SummaryRow struct {
	Key                    string   `json:"key"`
	TotalMergedPRs         int      `json:"total_merged_prs"`
	TotalPRs               int      `json:"total_prs"`
	LeadTimeMedianHrs      *float64 `json:"lead_time_median_hrs"`
	ReviewLatencyMedianHrs *float64 `json:"review_latency_median_hrs"`
	CodeChurnAvg           float64  `json:"code_churn_avg"`
	PRsSmall               int      `json:"prs_small"`
	PRsMedium              int      `json:"prs_medium"`
	PRsLarge               int      `json:"prs_large"`
}

// Config controls filtering and classification. The size thresholds
// are inherited policy values; tune them in configuration rather than
// editing call sites.
type Config struct {
	LookbackDays      int
	ExcludeForks      bool
	ExcludeArchived   bool
	ExcludeBots       bool
	SmallMaxAdditions int
	LargeMinAdditions int
}

// DefaultConfig returns the stock configuration: 180 day lookback, all
// exclusions on, size classes split at 50 and 300 additions.
func DefaultConfig() Config {
	return Config{
		LookbackDays:      180,
		ExcludeForks:      true,
		ExcludeArchived:   true,
		ExcludeBots:       true,
		SmallMaxAdditions: 50,
		LargeMinAdditions: 300,
	}
}
