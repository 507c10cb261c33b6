package engine

import "sort"

// SizeClass buckets a pull request by its line additions.
type SizeClass string

const (
	SizeSmall  SizeClass = "Small"
	SizeMedium SizeClass = "Medium"
	SizeLarge  SizeClass = "Large"
)

// classifySize buckets a record by additions. Applied at aggregation
// time only; size classes are never written back onto the view.
func classifySize(additions int, cfg Config) SizeClass {
	switch {
	case additions < cfg.SmallMaxAdditions:
		return SizeSmall
	case additions < cfg.LargeMinAdditions:
		return SizeMedium
	default:
		return SizeLarge
	}
}

// Aggregate reduces a scoped view to one SummaryRow per distinct value
// of groupBy, sorted ascending by key. An empty groupBy produces a
// single row under the synthetic "all" key. Records with an absent
// group value fall into the empty key, which sorts first.
//
// The groupable columns are the identity dimensions: author,
// repository, team and org (the latter two only when the view carries
// them). Metric-bearing columns such as additions or created_at are
// inputs to the summary, not grouping keys, and are rejected the same
// way as a column that does not exist.
func (e *Engine) Aggregate(v View, groupBy string) ([]SummaryRow, error) {
	key, err := groupKey(v, groupBy)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]Record)
	for _, r := range v.rows {
		k := key(r)
		groups[k] = append(groups[k], r)
	}

	rows := make([]SummaryRow, 0, len(groups))
	for k, recs := range groups {
		rows = append(rows, e.summarize(k, recs))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return rows, nil
}

// groupKey resolves a group-by dimension to a key extractor, or fails
// with MissingColumnError when the view carries no such dimension.
func groupKey(v View, groupBy string) (func(Record) string, error) {
	switch groupBy {
	case "":
		return func(Record) string { return "all" }, nil
	case ColumnAuthor:
		return func(r Record) string { return r.Author }, nil
	case ColumnRepository:
		return func(r Record) string { return r.Repository }, nil
	case ColumnTeam:
		if !v.cols.Team {
			return nil, &MissingColumnError{Column: ColumnTeam}
		}
		return func(r Record) string { return r.Team }, nil
	case ColumnOrg:
		if !v.cols.Org {
			return nil, &MissingColumnError{Column: ColumnOrg}
		}
		return func(r Record) string { return r.Org }, nil
	default:
		return nil, &MissingColumnError{Column: groupBy}
	}
}

func (e *Engine) summarize(key string, recs []Record) SummaryRow {
	row := SummaryRow{Key: key, TotalPRs: len(recs)}

	var leadTimes, latencies []float64
	var churnTotal float64
	for _, r := range recs {
		if r.MergedAt != nil {
			row.TotalMergedPRs++
			if r.CreatedAt != nil {
				leadTimes = append(leadTimes, r.MergedAt.Sub(*r.CreatedAt).Hours())
			}
		}
		if r.ReviewRequestedAt != nil && r.FirstReviewedAt != nil {
			latencies = append(latencies, r.FirstReviewedAt.Sub(*r.ReviewRequestedAt).Hours())
		}
		// The +1 is a deliberate smoothing constant, not a bug.
		churnTotal += float64(r.Deletions) / float64(r.Additions+1)

		switch classifySize(r.Additions, e.cfg) {
		case SizeSmall:
			row.PRsSmall++
		case SizeMedium:
			row.PRsMedium++
		default:
			row.PRsLarge++
		}
	}

	row.LeadTimeMedianHrs = median(leadTimes)
	row.ReviewLatencyMedianHrs = median(latencies)
	if len(recs) > 0 {
		row.CodeChurnAvg = churnTotal / float64(len(recs))
	}
	return row
}

// median returns the exact median (mean of the two middle values for
// even-length input), or nil for an empty sample. Records without the
// underlying signal never reach here; they are excluded, not zeroed.
func median(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	m := sorted[mid]
	if len(sorted)%2 == 0 {
		m = (sorted[mid-1] + sorted[mid]) / 2
	}
	return &m
}
