package engine

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Canonical column names of the pull request dataset.
const (
	ColumnAuthor            = "author"
	ColumnOrg               = "org"
	ColumnRepository        = "repository"
	ColumnRepositoryAlias   = "repo" // legacy name, renamed during normalization
	ColumnNumber            = "number"
	ColumnTeam              = "team"
	ColumnCreatedAt         = "created_at"
	ColumnMergedAt          = "merged_at"
	ColumnReviewRequestedAt = "review_requested_at"
	ColumnFirstReviewedAt   = "first_reviewed_at"
	ColumnAdditions         = "additions"
	ColumnDeletions         = "deletions"
	ColumnIsFork            = "is_fork"
	ColumnIsArchived        = "is_archived"
	ColumnIsBot             = "is_bot"
)

var requiredColumns = []string{
	ColumnAuthor,
	ColumnCreatedAt,
	ColumnMergedAt,
	ColumnReviewRequestedAt,
	ColumnFirstReviewedAt,
	ColumnAdditions,
	ColumnDeletions,
	ColumnIsFork,
	ColumnIsArchived,
	ColumnIsBot,
}

// datasetColumns returns the set of column names present anywhere in
// the raw rows. The fetch job emits uniform rows, but hand-assembled
// datasets may not, so presence is the union over all rows.
func datasetColumns(rows []RawRow) map[string]bool {
	cols := make(map[string]bool)
	for _, row := range rows {
		for name := range row {
			cols[name] = true
		}
	}
	return cols
}

// validateSchema checks required column presence once, at engine
// construction. The repository identifier may arrive under its legacy
// alias instead of the canonical name.
func validateSchema(rows []RawRow) error {
	cols := datasetColumns(rows)
	var missing []string
	for _, name := range requiredColumns {
		if !cols[name] {
			missing = append(missing, name)
		}
	}
	if !cols[ColumnRepository] && !cols[ColumnRepositoryAlias] {
		missing = append(missing, ColumnRepository)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &SchemaError{Missing: missing}
	}
	return nil
}

// normalize produces the canonical typed view of the raw rows. The raw
// rows themselves are never touched, so repeated queries with
// different scope or configuration always see identical input.
func normalize(rows []RawRow) ([]Record, columns) {
	cols := datasetColumns(rows)
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := Record{
			Author:            asString(row[ColumnAuthor]),
			Org:               asString(row[ColumnOrg]),
			Repository:        asString(row[ColumnRepository]),
			Number:            asInt(row[ColumnNumber]),
			Team:              asString(row[ColumnTeam]),
			CreatedAt:         asTime(row[ColumnCreatedAt]),
			MergedAt:          asTime(row[ColumnMergedAt]),
			ReviewRequestedAt: asTime(row[ColumnReviewRequestedAt]),
			FirstReviewedAt:   asTime(row[ColumnFirstReviewedAt]),
			Additions:         asInt(row[ColumnAdditions]),
			Deletions:         asInt(row[ColumnDeletions]),
			IsFork:            asBool(row[ColumnIsFork]),
			IsArchived:        asBool(row[ColumnIsArchived]),
			IsBot:             asBool(row[ColumnIsBot]),
		}
		if rec.Repository == "" {
			rec.Repository = asString(row[ColumnRepositoryAlias])
		}
		out = append(out, rec)
	}
	return out, columns{Org: cols[ColumnOrg], Team: cols[ColumnTeam]}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// asTime coerces a timestamp-bearing value, tolerantly. Malformed
// values become absent rather than failing the row; all results are
// UTC-normalized at this boundary so later comparisons never need to
// reason about zones.
func asTime(v any) *time.Time {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return nil
		}
		u := t.UTC()
		return &u
	case *time.Time:
		if t == nil || t.IsZero() {
			return nil
		}
		u := t.UTC()
		return &u
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				u := parsed.UTC()
				return &u
			}
		}
	}
	return nil
}

// asBool coerces a flag-bearing value; malformed values become absent.
func asBool(v any) *bool {
	switch b := v.(type) {
	case bool:
		return &b
	case string:
		switch strings.ToLower(b) {
		case "true", "1":
			t := true
			return &t
		case "false", "0":
			f := false
			return &f
		}
	}
	return nil
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return 0
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
