package engine

import "time"

// applyFilters runs the fixed-order exclusion pipeline: recency first,
// then the three independent toggles. Every predicate only narrows the
// working set, so reapplying the same filters is a no-op.
func applyFilters(rows []Record, cfg Config, now time.Time) []Record {
	cutoff := now.UTC().AddDate(0, 0, -cfg.LookbackDays)
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		ts := r.MergedAt
		if ts == nil {
			ts = r.CreatedAt
		}
		if ts == nil || ts.Before(cutoff) {
			continue
		}
		if cfg.ExcludeForks && flagged(r.IsFork) {
			continue
		}
		if cfg.ExcludeArchived && flagged(r.IsArchived) {
			continue
		}
		if cfg.ExcludeBots && flagged(r.IsBot) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// flagged reports whether an exclusion flag is present and true.
// Records with an absent flag are kept; a missing flag is a
// data-quality problem, not grounds for exclusion.
func flagged(flag *bool) bool { return flag != nil && *flag }

type joinKey struct {
	author string
	org    string
}

// joinTeams attaches a team to each record via a left join, keyed on
// (author, org) when both sides carry org and on author alone
// otherwise. Every record survives; unmatched authors keep an absent
// team and are excluded later by team-scope selection, never dropped
// here. Pre-joined data is authoritative: an existing team column
// skips the join entirely.
func joinTeams(rows []Record, cols columns, teams *TeamMapping) ([]Record, columns) {
	if cols.Team || teams == nil {
		return rows, cols
	}
	useOrg := cols.Org && teams.HasOrg
	byKey := make(map[joinKey]string, len(teams.Entries))
	for _, e := range teams.Entries {
		k := joinKey{author: e.Author}
		if useOrg {
			k.org = e.Org
		}
		if _, dup := byKey[k]; !dup {
			byKey[k] = e.Team
		}
	}
	out := make([]Record, len(rows))
	for i, r := range rows {
		k := joinKey{author: r.Author}
		if useOrg {
			k.org = r.Org
		}
		r.Team = byKey[k]
		out[i] = r
	}
	cols.Team = true
	return out, cols
}
