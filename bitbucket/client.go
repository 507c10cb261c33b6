// Package bitbucket ingests pull request records from a Bitbucket
// Server instance, emitting the same record schema as the GitHub
// client so the engine does not care where records came from.
package bitbucket

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"enginsights/dataset"
)

const pageLimit = 100

// Client talks to the Bitbucket Server REST API.
type Client struct {
	baseURL    string
	project    string
	repo       string
	token      string
	httpClient *http.Client
}

// NewClient creates a Bitbucket client for one project/repo pair.
func NewClient(baseURL, project, repo, token string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		project:    project,
		repo:       repo,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Bitbucket API response structures
type repoInfoResponse struct {
	Archived bool `json:"archived"`
	Origin   *struct {
		Slug string `json:"slug"`
	} `json:"origin"`
}

type prsResponse struct {
	IsLastPage bool `json:"isLastPage"`
	Values     []struct {
		ID          int    `json:"id"`
		State       string `json:"state"` // OPEN, MERGED, DECLINED
		CreatedDate int64  `json:"createdDate"`
		UpdatedDate int64  `json:"updatedDate"`
		ClosedDate  int64  `json:"closedDate"`
		Author      struct {
			User struct {
				Name string `json:"name"`
			} `json:"user"`
		} `json:"author"`
		Reviewers []struct {
			User struct {
				Name string `json:"name"`
			} `json:"user"`
			Approved bool `json:"approved"`
		} `json:"reviewers"`
		Links struct {
			Self []struct {
				Href string `json:"href"`
			} `json:"self"`
		} `json:"links"`
	} `json:"values"`
	NextPageStart int `json:"nextPageStart"`
}

type prDiffResponse struct {
	Diffs []struct {
		Hunks []struct {
			Segments []struct {
				Type  string `json:"type"` // ADDED, REMOVED, CONTEXT
				Lines []struct {
					Line string `json:"line"`
				} `json:"lines"`
			} `json:"segments"`
		} `json:"hunks"`
	} `json:"diffs"`
}

func (c *Client) makeRequest(url string) ([]byte, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}

// FetchPullRequests retrieves pull request records within the lookback
// window. Review timestamps are approximations: Bitbucket preassigns
// reviewers at creation, so the request time is the creation time, and
// the first approval is dated by the PR's last update.
func (c *Client) FetchPullRequests(lookbackDays int) ([]dataset.PRRecord, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -lookbackDays)

	repoInfo, err := c.fetchRepoInfo()
	if err != nil {
		return nil, fmt.Errorf("error fetching repo info: %w", err)
	}

	var records []dataset.PRRecord
	start := 0
	for {
		url := fmt.Sprintf("%s/rest/api/1.0/projects/%s/repos/%s/pull-requests?state=ALL&limit=%d&start=%d",
			c.baseURL, c.project, c.repo, pageLimit, start)

		body, err := c.makeRequest(url)
		if err != nil {
			return nil, fmt.Errorf("error fetching PRs: %w", err)
		}

		var response prsResponse
		if err := json.Unmarshal(body, &response); err != nil {
			return nil, fmt.Errorf("error parsing PRs response: %w", err)
		}

		for _, pr := range response.Values {
			createdAt := millisToUTC(pr.CreatedDate)
			updatedAt := millisToUTC(pr.UpdatedDate)
			if createdAt.Before(cutoff) && updatedAt.Before(cutoff) {
				continue
			}

			var mergedAt *time.Time
			if pr.State == "MERGED" && pr.ClosedDate > 0 {
				t := millisToUTC(pr.ClosedDate)
				mergedAt = &t
			}

			var requestedAt, firstReviewedAt *time.Time
			if len(pr.Reviewers) > 0 {
				requestedAt = &createdAt
			}
			for _, reviewer := range pr.Reviewers {
				if reviewer.Approved {
					firstReviewedAt = &updatedAt
					break
				}
			}

			additions, deletions := c.fetchDiffCounts(pr.ID)

			var htmlURL string
			if len(pr.Links.Self) > 0 {
				htmlURL = pr.Links.Self[0].Href
			}

			records = append(records, dataset.PRRecord{
				Org:               c.project,
				Author:            pr.Author.User.Name,
				Repository:        c.project + "/" + c.repo,
				Number:            pr.ID,
				CreatedAt:         &createdAt,
				MergedAt:          mergedAt,
				ReviewRequestedAt: requestedAt,
				FirstReviewedAt:   firstReviewedAt,
				Additions:         additions,
				Deletions:         deletions,
				IsFork:            repoInfo.Origin != nil,
				IsArchived:        repoInfo.Archived,
				IsBot:             botAuthor(pr.Author.User.Name),
				HTMLURL:           htmlURL,
			})
		}

		if response.IsLastPage {
			break
		}
		start = response.NextPageStart
	}

	return records, nil
}

func (c *Client) fetchRepoInfo() (repoInfoResponse, error) {
	url := fmt.Sprintf("%s/rest/api/1.0/projects/%s/repos/%s", c.baseURL, c.project, c.repo)
	body, err := c.makeRequest(url)
	if err != nil {
		return repoInfoResponse{}, err
	}
	var info repoInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return repoInfoResponse{}, err
	}
	return info, nil
}

// fetchDiffCounts walks the PR diff and counts added and removed
// lines. A failed diff fetch yields zero counts rather than failing
// the whole ingestion.
func (c *Client) fetchDiffCounts(prID int) (additions, deletions int) {
	url := fmt.Sprintf("%s/rest/api/1.0/projects/%s/repos/%s/pull-requests/%d/diff",
		c.baseURL, c.project, c.repo, prID)

	body, err := c.makeRequest(url)
	if err != nil {
		return 0, 0
	}
	var diffResp prDiffResponse
	if err := json.Unmarshal(body, &diffResp); err != nil {
		return 0, 0
	}
	return countDiffLines(diffResp)
}

func countDiffLines(diff prDiffResponse) (additions, deletions int) {
	for _, d := range diff.Diffs {
		for _, hunk := range d.Hunks {
			for _, segment := range hunk.Segments {
				switch segment.Type {
				case "ADDED":
					additions += len(segment.Lines)
				case "REMOVED":
					deletions += len(segment.Lines)
				}
			}
		}
	}
	return additions, deletions
}

func botAuthor(name string) bool {
	return strings.HasSuffix(name, "[bot]") || strings.HasSuffix(name, "-bot")
}

func millisToUTC(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
