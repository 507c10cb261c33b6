package dataset

import "time"

// PRRecord is the canonical pull request record emitted by the fetch
// clients and persisted to prs.json. JSON field names are the
// dataset's column names; optional timestamps serialize as null so the
// columns stay present on every row.
type PRRecord struct {
	Org               string     `json:"org,omitempty"`
	Author            string     `json:"author"`
	Repository        string     `json:"repository"`
	Number            int        `json:"number"`
	CreatedAt         *time.Time `json:"created_at"`
	MergedAt          *time.Time `json:"merged_at"`
	ReviewRequestedAt *time.Time `json:"review_requested_at"`
	FirstReviewedAt   *time.Time `json:"first_reviewed_at"`
	Additions         int        `json:"additions"`
	Deletions         int        `json:"deletions"`
	IsFork            bool       `json:"is_fork"`
	IsArchived        bool       `json:"is_archived"`
	IsBot             bool       `json:"is_bot"`
	HTMLURL           string     `json:"html_url,omitempty"`
}

// TeamRecord is one contributor-to-team mapping row (teams.csv).
type TeamRecord struct {
	Org    string `json:"org"`
	Author string `json:"author"`
	Team   string `json:"team"`
}
