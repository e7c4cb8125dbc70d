package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds API router configuration
type Config struct {
	Snapshotter      Snapshotter
	Watcher          WatchStatus
	EnvironmentCount int
	Logger           *slog.Logger
}

// NewRouter creates a new HTTP router with all API routes
func NewRouter(cfg Config) (http.Handler, error) {
	schema, err := NewSchema(cfg.Snapshotter)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	// Base middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	handlers := NewHandlers(cfg.Snapshotter, cfg.Watcher, cfg.EnvironmentCount, cfg.Logger)
	gql := NewGraphQLHandler(schema, cfg.Logger)

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	// Health and utility endpoints (no version prefix)
	r.Get("/health", handlers.Health)
	r.Get("/ping", handlers.Ping)
	r.Get("/version", handlers.Version)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Get("/graphql", gql.ServeHTTP)
	r.Post("/graphql", gql.ServeHTTP)

	r.Get("/api/v1/environments", handlers.Environments)

	return r, nil
}
