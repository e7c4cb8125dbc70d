// Package watch polls every environment in the background and logs status
// transitions between consecutive runs.
package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bragidiscovery/server/internal/domain"
)

// Snapshotter produces an aggregate snapshot of every environment
type Snapshotter interface {
	Snapshot(ctx context.Context) domain.AggregateSnapshot
}

// Watcher runs the snapshotter on a fixed interval and on demand
type Watcher struct {
	snapshotter  Snapshotter
	pollInterval time.Duration
	debounce     time.Duration
	logger       *slog.Logger

	triggerChan  chan struct{}
	mu           sync.Mutex
	running      bool
	lastRunAt    time.Time
	lastDuration time.Duration
	latest       *domain.AggregateSnapshot
	statuses     map[string]domain.EnvironmentStatus
}

// Config holds watcher configuration
type Config struct {
	Snapshotter  Snapshotter
	PollInterval time.Duration
	Debounce     time.Duration
	Logger       *slog.Logger
}

// NewWatcher creates a new watcher
func NewWatcher(cfg Config) *Watcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Watcher{
		snapshotter:  cfg.Snapshotter,
		pollInterval: cfg.PollInterval,
		debounce:     cfg.Debounce,
		logger:       cfg.Logger,
		triggerChan:  make(chan struct{}, 1),
		statuses:     make(map[string]domain.EnvironmentStatus),
	}
}

// Start runs one probe immediately, then polls until ctx is done
func (w *Watcher) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("watcher started",
		"poll_interval", w.pollInterval,
		"debounce", w.debounce,
	)

	w.run(ctx, "startup")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped")
			return

		case <-ticker.C:
			w.run(ctx, "poll")

		case <-w.triggerChan:
			w.debounceRun(ctx)
		}
	}
}

// Trigger requests an out-of-schedule run
func (w *Watcher) Trigger() {
	select {
	case w.triggerChan <- struct{}{}:
		w.logger.Debug("watch run triggered")
	default:
		w.logger.Debug("watch run already pending")
	}
}

// LastRunAt returns when the last run finished
func (w *Watcher) LastRunAt() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastRunAt
}

// LastRunDuration returns how long the last run took
func (w *Watcher) LastRunDuration() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastDuration
}

// Latest returns the snapshot of the last run, if any
func (w *Watcher) Latest() (domain.AggregateSnapshot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.latest == nil {
		return domain.AggregateSnapshot{}, false
	}
	return *w.latest, true
}

// IsRunning returns whether a run is in progress
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) debounceRun(ctx context.Context) {
	w.mu.Lock()
	if time.Since(w.lastRunAt) < w.debounce {
		w.mu.Unlock()
		w.logger.Debug("watch run debounced", "last_run", w.lastRunAt)
		return
	}
	w.mu.Unlock()

	w.run(ctx, "trigger")
}

func (w *Watcher) run(ctx context.Context, source string) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		w.logger.Debug("watch run already in progress")
		return
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	start := time.Now()
	agg := w.snapshotter.Snapshot(ctx)
	elapsed := time.Since(start)

	w.mu.Lock()
	previous := w.statuses
	w.statuses = make(map[string]domain.EnvironmentStatus, len(agg.Environments))
	for _, env := range agg.Environments {
		w.statuses[env.Label] = env.Status
	}
	w.latest = &agg
	w.lastRunAt = time.Now()
	w.lastDuration = elapsed
	w.mu.Unlock()

	for _, env := range agg.Environments {
		before, seen := previous[env.Label]
		if seen && before == env.Status {
			continue
		}
		w.logTransition(env, before, seen)
	}

	w.logger.Debug("watch run completed",
		"source", source,
		"environments", agg.Count,
		"duration", elapsed,
	)
}

func (w *Watcher) logTransition(env domain.EnvironmentSnapshot, before domain.EnvironmentStatus, seen bool) {
	attrs := []any{
		"environment", env.Label,
		"status", env.Status,
	}
	if seen {
		attrs = append(attrs, "previous_status", before)
	}

	if env.Status == domain.EnvironmentAvailable {
		w.logger.Info("environment status changed", attrs...)
		return
	}
	w.logger.Warn("environment status changed", attrs...)
}
