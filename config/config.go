// Package config holds the application configuration, read from a
// YAML file with environment overrides. API tokens come from the
// environment only; never put them in the file.
package config

import (
	"os"
	"time"

	"enginsights/engine"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the full application configuration.
type Config struct {
	Env        string `yaml:"env" env:"APP_ENV" env-default:"local"`
	HTTPServer struct {
		Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
		Timeout     time.Duration `yaml:"timeout" env-default:"10s"`
		IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	} `yaml:"http_server"`
	GitHub struct {
		APIURL string `yaml:"api_url" env:"GITHUB_API_URL" env-default:"https://api.github.com"`
		Token  string `env:"GITHUB_TOKEN"`
	} `yaml:"github"`
	Bitbucket struct {
		URL     string `yaml:"url" env:"BITBUCKET_URL"`
		Project string `yaml:"project" env:"BITBUCKET_PROJECT"`
		Repo    string `yaml:"repo" env:"BITBUCKET_REPO"`
		Token   string `env:"BITBUCKET_TOKEN"`
	} `yaml:"bitbucket"`
	Analytics struct {
		LookbackDays int `yaml:"lookback_days" env:"LOOKBACK_DAYS" env-default:"180"`
		// The exclusion toggles carry no env-default: cleanenv applies
		// defaults to zero-valued fields after reading the file, which
		// would flip an explicit false back to true. They are seeded in
		// Load instead.
		ExcludeForks      bool `yaml:"exclude_forks" env:"EXCLUDE_FORKS"`
		ExcludeArchived   bool `yaml:"exclude_archived" env:"EXCLUDE_ARCHIVED"`
		ExcludeBots       bool `yaml:"exclude_bots" env:"EXCLUDE_BOTS"`
		SmallMaxAdditions int  `yaml:"small_max_additions" env-default:"50"`
		LargeMinAdditions int  `yaml:"large_min_additions" env-default:"300"`
	} `yaml:"analytics"`
	Data struct {
		PRsPath   string `yaml:"prs_path" env:"PRS_PATH" env-default:"data/prs.json"`
		TeamsPath string `yaml:"teams_path" env:"TEAMS_PATH" env-default:"data/teams.csv"`
	} `yaml:"data"`
}

// Load reads configuration from path, falling back to CONFIG_PATH and
// then to environment variables alone when no file exists.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	var cfg Config
	cfg.Analytics.ExcludeForks = true
	cfg.Analytics.ExcludeArchived = true
	cfg.Analytics.ExcludeBots = true
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return Config{}, err
			}
			return cfg, nil
		}
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Engine maps the analytics block onto the engine's configuration.
func (c Config) Engine() engine.Config {
	return engine.Config{
		LookbackDays:      c.Analytics.LookbackDays,
		ExcludeForks:      c.Analytics.ExcludeForks,
		ExcludeArchived:   c.Analytics.ExcludeArchived,
		ExcludeBots:       c.Analytics.ExcludeBots,
		SmallMaxAdditions: c.Analytics.SmallMaxAdditions,
		LargeMinAdditions: c.Analytics.LargeMinAdditions,
	}
}
