// Package engine computes engineering-effectiveness summaries from
// pull request records: lead time, review latency, code churn and size
// distribution, scoped to an org, a team or an individual contributor.
//
// The engine is a pure function of (records, team mapping, config,
// reference time). It holds the raw record set immutably and re-derives
// a working view for every query, so concurrent queries against one
// instance never interfere.
package engine

import (
	"sort"
	"time"
)

// Engine answers scoped metric queries over an immutable pull request
// dataset.
type Engine struct {
	raw   []RawRow
	teams *TeamMapping
	cfg   Config
	now   time.Time
}

// New validates the dataset schema and returns a query engine. teams
// may be nil when no contributor-to-team mapping exists. now is the
// reference time for the recency filter; the zero value means the
// current UTC time. Schema validation runs here once, not per query.
func New(prs []RawRow, teams *TeamMapping, cfg Config, now time.Time) (*Engine, error) {
	if err := validateSchema(prs); err != nil {
		return nil, err
	}
	if now.IsZero() {
		now = time.Now()
	}
	if cfg.SmallMaxAdditions <= 0 {
		cfg.SmallMaxAdditions = DefaultConfig().SmallMaxAdditions
	}
	if cfg.LargeMinAdditions <= 0 {
		cfg.LargeMinAdditions = DefaultConfig().LargeMinAdditions
	}
	return &Engine{raw: prs, teams: teams, cfg: cfg, now: now.UTC()}, nil
}

// baseView re-derives the normalized, filtered, team-joined view from
// the stored raw rows. Every query starts here.
func (e *Engine) baseView() View {
	rows, cols := normalize(e.raw)
	rows = applyFilters(rows, e.cfg, e.now)
	rows, cols = joinTeams(rows, cols, e.teams)
	return View{rows: rows, cols: cols}
}

// AvailableAuthors returns the sorted distinct authors of the base view.
func (e *Engine) AvailableAuthors() []string {
	return distinct(e.baseView().rows, func(r Record) string { return r.Author })
}

// AvailableTeams returns the sorted distinct teams of the base view,
// or an empty list when no team column is derivable.
func (e *Engine) AvailableTeams() []string {
	v := e.baseView()
	if !v.cols.Team {
		return []string{}
	}
	return distinct(v.rows, func(r Record) string { return r.Team })
}

// AvailableRepos returns the sorted distinct repositories of the base view.
func (e *Engine) AvailableRepos() []string {
	return distinct(e.baseView().rows, func(r Record) string { return r.Repository })
}

// ScopedView narrows the base view per the selection. A selection with
// nothing chosen yet yields an empty view, not an error; that state is
// expected mid-flow in interactive use.
func (e *Engine) ScopedView(sel ScopeSelection) (View, error) {
	v := e.baseView()
	switch sel.Scope {
	case ScopeIndividual:
		if sel.User == "" {
			return View{cols: v.cols}, nil
		}
		return v.where(func(r Record) bool { return r.Author == sel.User }), nil
	case ScopeTeam:
		if !v.cols.Team {
			return View{}, &ScopeError{Msg: "team data not available; provide a team mapping or team column"}
		}
		if sel.Team == "" {
			return View{cols: v.cols}, nil
		}
		return v.where(func(r Record) bool { return r.Team == sel.Team }), nil
	default:
		return v, nil
	}
}

// where returns a view holding the records matching the predicate.
func (v View) where(pred func(Record) bool) View {
	out := View{cols: v.cols}
	for _, r := range v.rows {
		if pred(r) {
			out.rows = append(out.rows, r)
		}
	}
	return out
}

func distinct(rows []Record, key func(Record) string) []string {
	seen := make(map[string]bool)
	values := []string{}
	for _, r := range rows {
		k := key(r)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		values = append(values, k)
	}
	sort.Strings(values)
	return values
}
