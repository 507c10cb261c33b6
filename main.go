package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"enginsights/bitbucket"
	"enginsights/config"
	"enginsights/dataset"
	"enginsights/engine"
	"enginsights/github"
	"enginsights/report"

	"github.com/joho/godotenv"
)

const (
	envLocal = "local"
	envProd  = "prod"
)

func main() {
	_ = godotenv.Load()

	var (
		source    = flag.String("source", "github", "Record source: github or bitbucket")
		orgsArg   = flag.String("orgs", "", "Comma-separated GitHub organizations")
		reposArg  = flag.String("repos", "", "Comma-separated repo names (repo or org/repo; plain names apply to all orgs)")
		lookback  = flag.Int("lookback", 0, "Lookback window in days (default from config)")
		output    = flag.String("output", "data", "Output directory for prs.json and teams.csv")
		noTeams   = flag.Bool("no-teams", false, "Skip fetching the team mapping")
		teamField = flag.String("team-field", "slug", "Team identifier to store: slug or name")
		cfgPath   = flag.String("config", "", "Path to config.yaml (also CONFIG_PATH)")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}
	log := setupLogger(cfg.Env)

	days := cfg.Analytics.LookbackDays
	if *lookback > 0 {
		days = *lookback
	}
	log.Info("fetching pull request data", slog.String("source", *source), slog.Int("lookback_days", days))

	var records []dataset.PRRecord
	var teams []dataset.TeamRecord

	switch *source {
	case "github":
		if cfg.GitHub.Token == "" {
			log.Error("missing GITHUB_TOKEN environment variable")
			os.Exit(1)
		}
		orgs := splitList(*orgsArg)
		if len(orgs) == 0 {
			log.Error("provide at least one org via --orgs")
			os.Exit(1)
		}

		client := github.NewClient(cfg.GitHub.APIURL, cfg.GitHub.Token)
		records, err = client.FetchPullRequests(github.FetchOptions{
			Orgs:         orgs,
			Repositories: splitList(*reposArg),
			LookbackDays: days,
		})
		if err != nil {
			log.Error("failed to fetch pull requests", slog.Any("err", err))
			os.Exit(1)
		}

		if !*noTeams {
			teams, err = client.FetchTeamMapping(orgs, *teamField)
			if err != nil {
				log.Error("failed to fetch team mapping", slog.Any("err", err))
				os.Exit(1)
			}
		}
	case "bitbucket":
		if cfg.Bitbucket.URL == "" || cfg.Bitbucket.Token == "" {
			log.Error("missing BITBUCKET_URL or BITBUCKET_TOKEN")
			os.Exit(1)
		}
		client := bitbucket.NewClient(cfg.Bitbucket.URL, cfg.Bitbucket.Project, cfg.Bitbucket.Repo, cfg.Bitbucket.Token)
		records, err = client.FetchPullRequests(days)
		if err != nil {
			log.Error("failed to fetch pull requests", slog.Any("err", err))
			os.Exit(1)
		}
	default:
		log.Error("unknown source", slog.String("source", *source))
		os.Exit(1)
	}

	log.Info("fetched pull requests", slog.Int("count", len(records)))

	prsPath := filepath.Join(*output, "prs.json")
	if err := dataset.SavePullRequests(records, prsPath); err != nil {
		log.Error("failed to save pr dataset", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("saved pr dataset", slog.String("path", prsPath))

	if len(teams) > 0 {
		teamsPath := filepath.Join(*output, "teams.csv")
		if err := dataset.SaveTeamMapping(teams, teamsPath); err != nil {
			log.Error("failed to save team mapping", slog.Any("err", err))
			os.Exit(1)
		}
		log.Info("saved team mapping", slog.String("path", teamsPath), slog.Int("members", len(teams)))
	}

	printSnapshot(log, cfg, records, days)
}

// printSnapshot prints an org-wide summary of what was just fetched.
// Failures here never fail the fetch; the datasets are already saved.
func printSnapshot(log *slog.Logger, cfg config.Config, records []dataset.PRRecord, days int) {
	if len(records) == 0 {
		return
	}
	rows, err := dataset.RawRows(records)
	if err != nil {
		log.Warn("skipping summary snapshot", slog.Any("err", err))
		return
	}

	engCfg := cfg.Engine()
	engCfg.LookbackDays = days
	eng, err := engine.New(rows, nil, engCfg, time.Time{})
	if err != nil {
		log.Warn("skipping summary snapshot", slog.Any("err", err))
		return
	}

	view, err := eng.ScopedView(engine.ScopeSelection{Scope: engine.ScopeOrg})
	if err != nil {
		return
	}
	summary, err := eng.Aggregate(view, "")
	if err != nil {
		return
	}
	report.PrintSummary(summary, "")
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
