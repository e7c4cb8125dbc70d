package discovery

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/bragidiscovery/server/internal/domain"
	"github.com/bragidiscovery/server/internal/middleware"
)

var environmentStatuses = []domain.EnvironmentStatus{
	domain.EnvironmentAvailable,
	domain.EnvironmentBragiNotAvailable,
	domain.EnvironmentElasticNotAvailable,
}

// Prober produces the snapshot of a single environment
type Prober interface {
	Probe(ctx context.Context, env domain.EnvironmentSpec, startedAt time.Time) domain.EnvironmentSnapshot
}

// Coordinator fans a probe out to every configured environment and gathers
// the results, in configuration order, into one aggregate snapshot.
type Coordinator struct {
	prober         Prober
	environments   []domain.EnvironmentSpec
	deadline       time.Duration
	maxConcurrency int
	now            func() time.Time
	logger         *slog.Logger

	runs      atomic.Int64
	lastRunAt atomic.Value // time.Time
}

// Config holds coordinator configuration
type Config struct {
	Prober         Prober
	Environments   []domain.EnvironmentSpec
	Deadline       time.Duration
	MaxConcurrency int
	Now            func() time.Time
	Logger         *slog.Logger
}

// NewCoordinator creates a new coordinator. A zero Deadline leaves runs
// bounded only by the caller's context.
func NewCoordinator(cfg Config) (*Coordinator, error) {
	if cfg.Prober == nil {
		return nil, errors.New("prober is required")
	}
	if cfg.Deadline < 0 {
		return nil, errors.New("deadline must not be negative")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	envs := make([]domain.EnvironmentSpec, len(cfg.Environments))
	copy(envs, cfg.Environments)

	c := &Coordinator{
		prober:         cfg.Prober,
		environments:   envs,
		deadline:       cfg.Deadline,
		maxConcurrency: cfg.MaxConcurrency,
		now:            cfg.Now,
		logger:         cfg.Logger,
	}
	c.lastRunAt.Store(time.Time{})

	return c, nil
}

// Environments returns a copy of the configured environment list
func (c *Coordinator) Environments() []domain.EnvironmentSpec {
	envs := make([]domain.EnvironmentSpec, len(c.environments))
	copy(envs, c.environments)
	return envs
}

// Runs returns the number of completed runs
func (c *Coordinator) Runs() int64 {
	return c.runs.Load()
}

// LastRunAt returns the start time of the most recent run
func (c *Coordinator) LastRunAt() time.Time {
	return c.lastRunAt.Load().(time.Time)
}

// Snapshot probes every configured environment and returns the aggregate.
func (c *Coordinator) Snapshot(ctx context.Context) domain.AggregateSnapshot {
	return domain.NewAggregate(c.run(ctx, c.environments))
}

// SnapshotOf probes only the given environments, in the order given.
func (c *Coordinator) SnapshotOf(ctx context.Context, envs []domain.EnvironmentSpec) domain.AggregateSnapshot {
	return domain.NewAggregate(c.run(ctx, envs))
}

// outcome is what a single probe task hands back to its run.
type outcome struct {
	snap domain.EnvironmentSnapshot
	late bool
}

func (c *Coordinator) run(ctx context.Context, envs []domain.EnvironmentSpec) []domain.EnvironmentSnapshot {
	startedAt := c.now()
	start := time.Now()
	runID := uuid.NewString()

	ctx, span := tracer.Start(ctx, "probe.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("run.environments", len(envs)),
		),
	)
	defer span.End()

	if c.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.deadline)
		defer cancel()
	}

	// One buffered slot per environment: a probe finishing after the
	// deadline never blocks and its result is simply dropped.
	slots := make([]chan outcome, len(envs))
	for i := range slots {
		slots[i] = make(chan outcome, 1)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)

		var g errgroup.Group
		if c.maxConcurrency > 0 {
			g.SetLimit(c.maxConcurrency)
		}
		for i, env := range envs {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				snap := c.prober.Probe(ctx, env, startedAt)
				// A probe that returns once ctx is done was cut short in
				// some stage; its snapshot is not trusted.
				slots[i] <- outcome{snap: snap, late: ctx.Err() != nil}
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	results := make([]domain.EnvironmentSnapshot, 0, len(envs))
	late := 0
	for i, env := range envs {
		select {
		case out := <-slots[i]:
			if !out.late {
				results = append(results, out.snap)
				continue
			}
		default:
		}
		late++
		results = append(results, domain.FrontendUnavailable(env, startedAt))
	}

	c.record(results)
	c.runs.Add(1)
	c.lastRunAt.Store(startedAt)

	elapsed := time.Since(start)
	middleware.ProbeRunDuration.Observe(elapsed.Seconds())
	span.SetAttributes(attribute.Int("run.late", late))

	if late > 0 {
		middleware.ProbeDeadlineExceeded.Add(float64(late))
		c.logger.Warn("probe run deadline exceeded",
			"run_id", runID,
			"environments", len(envs),
			"late", late,
			"deadline", c.deadline,
		)
	}

	c.logger.Debug("probe run completed",
		"run_id", runID,
		"environments", len(envs),
		"available", countAvailable(results),
		"duration_ms", elapsed.Milliseconds(),
	)

	return results
}

func (c *Coordinator) record(results []domain.EnvironmentSnapshot) {
	for _, snap := range results {
		for _, status := range environmentStatuses {
			v := 0.0
			if snap.Status == status {
				v = 1
			}
			middleware.EnvironmentAvailable.WithLabelValues(snap.Label, string(status)).Set(v)
		}
		if snap.Backend != nil && snap.Backend.Status == domain.BackendAvailable {
			middleware.EnvironmentIndices.WithLabelValues(snap.Label).Set(float64(len(snap.Backend.Indices)))
		}
	}
}

func countAvailable(results []domain.EnvironmentSnapshot) int {
	n := 0
	for _, snap := range results {
		if snap.Status == domain.EnvironmentAvailable {
			n++
		}
	}
	return n
}
