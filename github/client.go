// Package github ingests pull request records and team memberships
// from the GitHub REST API using direct HTTP calls.
package github

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"enginsights/dataset"
)

const pageSize = 100

// Client talks to the GitHub REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a GitHub client. baseURL defaults to the public
// API when empty.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchOptions select what to ingest.
type FetchOptions struct {
	Orgs         []string
	Repositories []string // "repo" or "org/repo"; plain names apply to every org
	LookbackDays int
	Now          time.Time // zero means current UTC time
}

// GitHub API response structures
type repoResponse struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Fork     bool   `json:"fork"`
	Archived bool   `json:"archived"`
}

type userResponse struct {
	Login string `json:"login"`
	Type  string `json:"type"`
}

// prResponse covers both the list and the detail payloads. The list
// endpoint omits additions/deletions; those only arrive on the
// single-PR detail response.
type prResponse struct {
	Number    int           `json:"number"`
	State     string        `json:"state"`
	User      *userResponse `json:"user"`
	CreatedAt *time.Time    `json:"created_at"`
	UpdatedAt *time.Time    `json:"updated_at"`
	MergedAt  *time.Time    `json:"merged_at"`
	Additions int           `json:"additions"`
	Deletions int           `json:"deletions"`
	HTMLURL   string        `json:"html_url"`
}

type issueEventResponse struct {
	Event     string     `json:"event"`
	CreatedAt *time.Time `json:"created_at"`
}

type reviewResponse struct {
	State       string     `json:"state"`
	SubmittedAt *time.Time `json:"submitted_at"`
}

type teamResponse struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// makeRequest makes an authenticated GET request.
func (c *Client) makeRequest(url string) ([]byte, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "enginsights")

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

func (c *Client) getJSON(url string, out any) error {
	body, err := c.makeRequest(url)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

// FetchPullRequests retrieves pull request records for the selected
// orgs and repos, stopping each repo's listing at the lookback cutoff.
func (c *Client) FetchPullRequests(opts FetchOptions) ([]dataset.PRRecord, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	cutoff := now.AddDate(0, 0, -opts.LookbackDays)

	repoMap, err := mapReposByOrg(opts.Orgs, opts.Repositories)
	if err != nil {
		return nil, err
	}

	var records []dataset.PRRecord
	for _, org := range opts.Orgs {
		repos, err := c.listRepos(org, repoMap[org])
		if err != nil {
			return nil, fmt.Errorf("error listing repos for org %s: %w", org, err)
		}
		for _, repo := range repos {
			recs, err := c.fetchRepoPulls(org, repo, cutoff)
			if err != nil {
				return nil, fmt.Errorf("error fetching PRs for %s: %w", repo.FullName, err)
			}
			records = append(records, recs...)
		}
	}
	return records, nil
}

// listRepos returns the selected repos of an org, or all of them when
// no selection was given. Repos that cannot be fetched are skipped.
func (c *Client) listRepos(org string, names []string) ([]repoResponse, error) {
	if len(names) > 0 {
		var repos []repoResponse
		for _, name := range names {
			var repo repoResponse
			url := fmt.Sprintf("%s/repos/%s/%s", c.baseURL, org, name)
			if err := c.getJSON(url, &repo); err != nil {
				slog.Warn("repo not found in org, skipping", slog.String("repo", name), slog.String("org", org))
				continue
			}
			repos = append(repos, repo)
		}
		return repos, nil
	}

	var repos []repoResponse
	page := 1
	for {
		url := fmt.Sprintf("%s/orgs/%s/repos?type=all&page=%d&per_page=%d", c.baseURL, org, page, pageSize)
		var list []repoResponse
		if err := c.getJSON(url, &list); err != nil {
			return nil, err
		}
		repos = append(repos, list...)
		if len(list) < pageSize {
			break
		}
		page++
	}
	return repos, nil
}

// fetchRepoPulls pages through a repo's pull requests newest-update
// first and stops as soon as a PR falls entirely before the cutoff.
func (c *Client) fetchRepoPulls(org string, repo repoResponse, cutoff time.Time) ([]dataset.PRRecord, error) {
	var records []dataset.PRRecord
	page := 1
	for {
		url := fmt.Sprintf("%s/repos/%s/pulls?state=all&sort=updated&direction=desc&page=%d&per_page=%d",
			c.baseURL, repo.FullName, page, pageSize)
		var prList []prResponse
		if err := c.getJSON(url, &prList); err != nil {
			return nil, err
		}

		for _, pr := range prList {
			if beforeCutoff(cutoff, pr.UpdatedAt, pr.CreatedAt, pr.MergedAt) {
				return records, nil
			}

			author := "unknown"
			isBot := false
			if pr.User != nil {
				author = pr.User.Login
				isBot = botAuthor(pr.User.Login, pr.User.Type)
			}

			requestedAt := c.reviewRequestedAt(repo.FullName, pr.Number)
			firstReviewedAt := c.firstReviewedAt(repo.FullName, pr.Number, requestedAt)
			additions, deletions, err := c.fetchDiffStats(repo.FullName, pr.Number)
			if err != nil {
				return nil, fmt.Errorf("error fetching details of %s#%d: %w", repo.FullName, pr.Number, err)
			}

			records = append(records, dataset.PRRecord{
				Org:               org,
				Author:            author,
				Repository:        repo.FullName,
				Number:            pr.Number,
				CreatedAt:         utc(pr.CreatedAt),
				MergedAt:          utc(pr.MergedAt),
				ReviewRequestedAt: requestedAt,
				FirstReviewedAt:   firstReviewedAt,
				Additions:         additions,
				Deletions:         deletions,
				IsFork:            repo.Fork,
				IsArchived:        repo.Archived,
				IsBot:             isBot,
				HTMLURL:           pr.HTMLURL,
			})
		}

		if len(prList) < pageSize {
			break
		}
		page++
	}
	return records, nil
}

// fetchDiffStats retrieves additions and deletions from the single-PR
// detail endpoint; the list response never carries them. Unlike the
// review lookups this failure is fatal: size classes and churn are
// meaningless over zeroed counts.
func (c *Client) fetchDiffStats(fullName string, number int) (additions, deletions int, err error) {
	url := fmt.Sprintf("%s/repos/%s/pulls/%d", c.baseURL, fullName, number)
	var pr prResponse
	if err := c.getJSON(url, &pr); err != nil {
		return 0, 0, err
	}
	return pr.Additions, pr.Deletions, nil
}

// reviewRequestedAt returns the earliest review_requested issue event,
// or nil when the endpoint fails or no request exists.
func (c *Client) reviewRequestedAt(fullName string, number int) *time.Time {
	var earliest *time.Time
	page := 1
	for {
		url := fmt.Sprintf("%s/repos/%s/issues/%d/events?page=%d&per_page=%d",
			c.baseURL, fullName, number, page, pageSize)
		var events []issueEventResponse
		if err := c.getJSON(url, &events); err != nil {
			return nil
		}
		for _, event := range events {
			if event.Event != "review_requested" || event.CreatedAt == nil {
				continue
			}
			ts := event.CreatedAt.UTC()
			if earliest == nil || ts.Before(*earliest) {
				earliest = &ts
			}
		}
		if len(events) < pageSize {
			break
		}
		page++
	}
	return earliest
}

// firstReviewedAt returns the earliest qualifying review submitted at
// or after the review request. Earlier candidates are discarded here
// so the engine never sees a review preceding its request.
func (c *Client) firstReviewedAt(fullName string, number int, requestedAt *time.Time) *time.Time {
	url := fmt.Sprintf("%s/repos/%s/pulls/%d/reviews?per_page=%d", c.baseURL, fullName, number, pageSize)
	var reviews []reviewResponse
	if err := c.getJSON(url, &reviews); err != nil {
		return nil
	}

	var earliest *time.Time
	for _, review := range reviews {
		if review.State != "COMMENTED" && review.State != "APPROVED" {
			continue
		}
		if review.SubmittedAt == nil {
			continue
		}
		ts := review.SubmittedAt.UTC()
		if requestedAt != nil && ts.Before(*requestedAt) {
			continue
		}
		if earliest == nil || ts.Before(*earliest) {
			earliest = &ts
		}
	}
	return earliest
}

// FetchTeamMapping retrieves the contributor-to-team mapping for the
// given orgs. teamField selects whether the slug or the display name
// identifies a team.
func (c *Client) FetchTeamMapping(orgs []string, teamField string) ([]dataset.TeamRecord, error) {
	var records []dataset.TeamRecord
	for _, org := range orgs {
		url := fmt.Sprintf("%s/orgs/%s/teams?per_page=%d", c.baseURL, org, pageSize)
		var teams []teamResponse
		if err := c.getJSON(url, &teams); err != nil {
			return nil, fmt.Errorf("error fetching teams for org %s: %w", org, err)
		}

		for _, team := range teams {
			teamValue := team.Slug
			if teamField == "name" {
				teamValue = team.Name
			}

			membersURL := fmt.Sprintf("%s/orgs/%s/teams/%s/members?per_page=%d", c.baseURL, org, team.Slug, pageSize)
			var members []userResponse
			if err := c.getJSON(membersURL, &members); err != nil {
				return nil, fmt.Errorf("error fetching members of team %s: %w", team.Slug, err)
			}
			for _, member := range members {
				records = append(records, dataset.TeamRecord{
					Org:    org,
					Author: member.Login,
					Team:   teamValue,
				})
			}
		}
	}
	return records, nil
}

// beforeCutoff reports whether every provided timestamp is absent or
// older than the cutoff. With pulls sorted by update descending this
// is the pagination stop condition.
func beforeCutoff(cutoff time.Time, timestamps ...*time.Time) bool {
	for _, ts := range timestamps {
		if ts != nil && !ts.Before(cutoff) {
			return false
		}
	}
	return true
}

func botAuthor(login, userType string) bool {
	if userType == "Bot" {
		return true
	}
	return strings.HasSuffix(login, "[bot]")
}

func utc(ts *time.Time) *time.Time {
	if ts == nil {
		return nil
	}
	u := ts.UTC()
	return &u
}

// mapReposByOrg distributes the --repos argument across orgs:
// org-qualified names go to their org, plain names to every org.
func mapReposByOrg(orgs, repoArgs []string) (map[string][]string, error) {
	repoMap := make(map[string][]string, len(orgs))
	for _, org := range orgs {
		repoMap[org] = nil
	}
	if len(repoArgs) == 0 {
		return repoMap, nil
	}

	var plain []string
	for _, value := range repoArgs {
		if org, name, ok := strings.Cut(value, "/"); ok {
			if _, known := repoMap[org]; !known {
				return nil, fmt.Errorf("repo %s does not match provided orgs: %s", value, strings.Join(orgs, ", "))
			}
			repoMap[org] = append(repoMap[org], name)
			continue
		}
		plain = append(plain, value)
	}
	for _, org := range orgs {
		repoMap[org] = append(repoMap[org], plain...)
	}
	return repoMap, nil
}
