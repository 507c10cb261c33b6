package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"enginsights/config"
	"enginsights/dataset"
	"enginsights/engine"
	"enginsights/web"

	"github.com/joho/godotenv"
)

const (
	envLocal = "local"
	envProd  = "prod"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to config.yaml (also CONFIG_PATH)")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}
	log := setupLogger(cfg.Env)
	log.Info("starting enginsights dashboard", slog.String("env", cfg.Env))

	rows, err := dataset.LoadPullRequests(cfg.Data.PRsPath)
	if err != nil {
		log.Error("failed to load pr dataset; run the fetch job first", slog.Any("err", err))
		os.Exit(1)
	}
	teams, err := dataset.LoadTeamMapping(cfg.Data.TeamsPath)
	if err != nil {
		log.Error("failed to load team mapping", slog.Any("err", err))
		os.Exit(1)
	}
	if teams == nil {
		log.Info("no team mapping found; team scope disabled", slog.String("path", cfg.Data.TeamsPath))
	}

	eng, err := engine.New(rows, teams, cfg.Engine(), time.Time{})
	if err != nil {
		log.Error("invalid pr dataset", slog.Any("err", err))
		os.Exit(1)
	}

	server := web.NewServer(eng, log)
	log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      server.Router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}
	if err := srv.ListenAndServe(); err != nil {
		log.Error("server stopped", slog.Any("err", err))
		os.Exit(1)
	}
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
