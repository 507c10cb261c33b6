// Package dataset persists and loads the pull request records and the
// contributor-to-team mapping that the engine consumes. Pull requests
// live in a JSON array file, the team mapping in a small CSV.
package dataset

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"enginsights/engine"
)

// LoadPullRequests reads a pull request dataset from a JSON array
// file. The rows stay in their raw decoded form; the engine normalizes
// them per query.
func LoadPullRequests(path string) ([]engine.RawRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pr dataset not found at %s: %w", path, err)
	}
	var rows []engine.RawRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("error parsing pr dataset %s: %w", path, err)
	}
	return rows, nil
}

// LoadTeamMapping reads the contributor-to-team CSV. A missing file is
// not an error: it returns (nil, nil) and team-scoped queries are
// simply unavailable.
func LoadTeamMapping(path string) (*engine.TeamMapping, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	mapping, err := readTeamCSV(file)
	if err != nil {
		return nil, fmt.Errorf("error parsing team mapping %s: %w", path, err)
	}
	return mapping, nil
}

func readTeamCSV(r io.Reader) (*engine.TeamMapping, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err == io.EOF {
		return &engine.TeamMapping{}, nil
	}
	if err != nil {
		return nil, err
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	authorIdx, hasAuthor := idx["author"]
	teamIdx, hasTeam := idx["team"]
	if !hasAuthor || !hasTeam {
		return nil, fmt.Errorf("team mapping requires author and team columns, got: %s", strings.Join(header, ", "))
	}
	orgIdx, hasOrg := idx["org"]

	mapping := &engine.TeamMapping{HasOrg: hasOrg}
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		entry := engine.TeamEntry{Author: rec[authorIdx], Team: rec[teamIdx]}
		if hasOrg {
			entry.Org = rec[orgIdx]
		}
		mapping.Entries = append(mapping.Entries, entry)
	}
	return mapping, nil
}

// SavePullRequests writes the fetched records as an indented JSON
// array, creating the directory if needed.
func SavePullRequests(records []PRRecord, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SaveTeamMapping writes the team mapping as CSV with an
// author,team,org header.
func SaveTeamMapping(records []TeamRecord, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"author", "team", "org"}); err != nil {
		return err
	}
	for _, rec := range records {
		if err := writer.Write([]string{rec.Author, rec.Team, rec.Org}); err != nil {
			return err
		}
	}
	return nil
}

// RawRows converts fetched records into the engine's raw row form,
// the same shape they would have after a save/load round trip, so the
// in-process path and the disk path feed the engine identically.
func RawRows(records []PRRecord) ([]engine.RawRow, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return nil, err
	}
	var rows []engine.RawRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
