// Package web serves the engine's query contract over HTTP for the
// interactive dashboard.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"enginsights/engine"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server handles HTTP requests against one engine instance. The
// engine is immutable, so the server needs no locking.
type Server struct {
	Router *chi.Mux
	engine *engine.Engine
	log    *slog.Logger
}

// NewServer wires routes around an already-constructed engine.
// Building the engine from datasets is the caller's concern.
func NewServer(eng *engine.Engine, log *slog.Logger) *Server {
	s := &Server{engine: eng, log: log}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Minute))

	r.Get("/health", s.healthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/options", s.getOptions)
		r.Get("/summary", s.getSummary)
	})

	s.Router = r
}

// healthCheck returns server health status.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   "enginsights-api",
		"timestamp": time.Now().UTC(),
	})
}

// getOptions returns the selector values for the dashboard dropdowns.
func (s *Server) getOptions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"authors": s.engine.AvailableAuthors(),
		"teams":   s.engine.AvailableTeams(),
		"repos":   s.engine.AvailableRepos(),
	})
}

// getSummary runs one scoped query: scope selection, the ungrouped KPI
// row, and optionally grouped rows. An empty selection is a valid
// state and returns no_data rather than an error.
func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	scope := engine.Scope(q.Get("scope"))
	if scope == "" {
		scope = engine.ScopeOrg
	}
	switch scope {
	case engine.ScopeOrg, engine.ScopeTeam, engine.ScopeIndividual:
	default:
		s.writeError(w, http.StatusBadRequest, "unknown scope: "+string(scope))
		return
	}

	selection := engine.ScopeSelection{
		Scope: scope,
		Team:  q.Get("team"),
		User:  q.Get("user"),
	}

	view, err := s.engine.ScopedView(selection)
	var scopeErr *engine.ScopeError
	if errors.As(err, &scopeErr) {
		s.writeError(w, http.StatusUnprocessableEntity, scopeErr.Error())
		return
	}
	if err != nil {
		s.log.Error("scoped view failed", slog.Any("err", err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if view.Empty() {
		s.writeJSON(w, http.StatusOK, map[string]any{
			"no_data": true,
			"groups":  []engine.SummaryRow{},
		})
		return
	}

	kpis, err := s.engine.Aggregate(view, "")
	if err != nil {
		s.log.Error("kpi aggregation failed", slog.Any("err", err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	response := map[string]any{
		"no_data": false,
		"kpis":    kpis[0],
	}

	if groupBy := q.Get("group_by"); groupBy != "" {
		groups, err := s.engine.Aggregate(view, groupBy)
		var missing *engine.MissingColumnError
		if errors.As(err, &missing) {
			s.writeError(w, http.StatusBadRequest, missing.Error())
			return
		}
		if err != nil {
			s.log.Error("grouped aggregation failed", slog.Any("err", err))
			s.writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		response["groups"] = groups
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("failed to encode response", slog.Any("err", err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
