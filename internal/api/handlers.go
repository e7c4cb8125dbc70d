package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/bragidiscovery/server/internal/domain"
)

// Build information (set at compile time)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Snapshotter probes every configured environment
type Snapshotter interface {
	Snapshot(ctx context.Context) domain.AggregateSnapshot
}

// WatchStatus exposes the state of the background watcher
type WatchStatus interface {
	LastRunAt() time.Time
	LastRunDuration() time.Duration
	Latest() (domain.AggregateSnapshot, bool)
}

// Handlers provides HTTP handlers for the API
type Handlers struct {
	snapshotter      Snapshotter
	watcher          WatchStatus
	environmentCount int
	logger           *slog.Logger
}

// NewHandlers creates a new handlers instance. watcher may be nil.
func NewHandlers(snapshotter Snapshotter, watcher WatchStatus, environmentCount int, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		snapshotter:      snapshotter,
		watcher:          watcher,
		environmentCount: environmentCount,
		logger:           logger,
	}
}

// Environments probes every environment and returns the aggregate
func (h *Handlers) Environments(w http.ResponseWriter, r *http.Request) {
	agg := h.snapshotter.Snapshot(r.Context())
	writeJSON(w, http.StatusOK, domain.NewEnvironmentsResponse(agg))
}

// Health returns health check information. It never probes; with the
// watcher enabled it reports on the latest background run.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := domain.HealthResponse{
		Status:           "ok",
		EnvironmentCount: h.environmentCount,
		WatcherEnabled:   h.watcher != nil,
	}

	if h.watcher != nil {
		if last := h.watcher.LastRunAt(); !last.IsZero() {
			resp.LastWatchAt = last.UTC().Format(time.RFC3339)
			resp.LastWatchDuration = h.watcher.LastRunDuration().String()
		}
		if agg, ok := h.watcher.Latest(); ok && agg.Count > 0 && !anyAvailable(agg) {
			resp.Status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Ping returns a simple pong response
func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.PingResponse{Pong: true})
}

// Version returns build version information
func (h *Handlers) Version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, BuildVersion())
}

// BuildVersion returns the version stamped at link time, falling back to
// the module build info.
func BuildVersion() domain.VersionResponse {
	version := Version
	commit := GitCommit
	buildTime := BuildTime

	if info, ok := debug.ReadBuildInfo(); ok && version == "dev" {
		if info.Main.Version != "" {
			version = info.Main.Version
		}
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				commit = setting.Value
			case "vcs.time":
				buildTime = setting.Value
			}
		}
	}

	return domain.VersionResponse{
		Version:   version,
		GitCommit: commit,
		BuildTime: buildTime,
	}
}

// MethodNotAllowed rejects anything but reads
func (h *Handlers) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed",
		"This service is read-only: "+r.Method+" is not supported on "+r.URL.Path)
}

// NotFound returns a JSON 404
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not Found", "No route for "+r.URL.Path)
}

func anyAvailable(agg domain.AggregateSnapshot) bool {
	for _, env := range agg.Environments {
		if env.Status == domain.EnvironmentAvailable {
			return true
		}
	}
	return false
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, title, detail string) {
	resp := domain.ErrorResponse{
		Status: status,
		Title:  title,
		Detail: detail,
	}
	writeJSON(w, status, resp)
}
