package discovery

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bragidiscovery/server/internal/bragi"
	"github.com/bragidiscovery/server/internal/domain"
	"github.com/bragidiscovery/server/internal/elastic"
	"github.com/bragidiscovery/server/internal/inspector"
	"github.com/bragidiscovery/server/internal/middleware"
)

const (
	stageFrontend = "frontend"
	stageBackend  = "backend"
)

var tracer = otel.Tracer(middleware.ServiceName)

// FrontendProbe reports the status of a Bragi frontend
type FrontendProbe interface {
	Probe(ctx context.Context, baseURL string) bragi.Result
}

// BackendProbe reports the identity and index listing of a search cluster
type BackendProbe interface {
	Probe(ctx context.Context, loc domain.BackendLocation) elastic.Result
}

// ProberConfig holds EnvironmentProber configuration
type ProberConfig struct {
	Frontend      FrontendProbe
	Backend       BackendProbe
	LastKnownSize int
	Logger        *slog.Logger
}

// EnvironmentProber probes one environment end to end: frontend, then
// backend, then index inspection. It always yields a snapshot.
type EnvironmentProber struct {
	frontend  FrontendProbe
	backend   BackendProbe
	lastKnown *lastKnown
	logger    *slog.Logger
}

// NewProber creates a new environment prober
func NewProber(cfg ProberConfig) (*EnvironmentProber, error) {
	if cfg.Frontend == nil {
		return nil, errors.New("frontend probe is required")
	}
	if cfg.Backend == nil {
		return nil, errors.New("backend probe is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	lk, err := newLastKnown(cfg.LastKnownSize)
	if err != nil {
		return nil, err
	}

	return &EnvironmentProber{
		frontend:  cfg.Frontend,
		backend:   cfg.Backend,
		lastKnown: lk,
		logger:    cfg.Logger,
	}, nil
}

// Probe runs the probe chain for env. Every snapshot of the run is stamped
// with startedAt.
func (p *EnvironmentProber) Probe(ctx context.Context, env domain.EnvironmentSpec, startedAt time.Time) domain.EnvironmentSnapshot {
	ctx, span := tracer.Start(ctx, "probe.environment",
		trace.WithAttributes(
			attribute.String("environment.name", env.Name),
			attribute.String("environment.url", env.BaseURL),
		),
	)
	defer span.End()

	front := p.probeFrontend(ctx, env)
	if !front.Reachable {
		span.SetAttributes(attribute.String("environment.status", string(domain.EnvironmentBragiNotAvailable)))
		return domain.FrontendUnavailable(env, startedAt)
	}

	snap := domain.EnvironmentSnapshot{
		Label:      env.Name,
		URL:        env.BaseURL,
		Version:    front.Version,
		Status:     domain.EnvironmentAvailable,
		ObservedAt: startedAt,
	}

	// backend failures surface only in the backend snapshot
	if front.Backend != nil {
		backend := p.probeBackend(ctx, env, *front.Backend, startedAt)
		snap.Backend = &backend
	}

	span.SetAttributes(attribute.String("environment.status", string(snap.Status)))
	return snap
}

func (p *EnvironmentProber) probeFrontend(ctx context.Context, env domain.EnvironmentSpec) bragi.Result {
	ctx, span := tracer.Start(ctx, "probe.frontend")
	defer span.End()

	start := time.Now()
	res := p.frontend.Probe(ctx, env.BaseURL)
	middleware.ProbeStageDuration.WithLabelValues(stageFrontend).Observe(time.Since(start).Seconds())

	if !res.Reachable {
		middleware.ProbeStageFailures.WithLabelValues(stageFrontend).Inc()
		recordFailure(span, res.Err)
		p.logger.Debug("frontend unreachable",
			"environment", env.Name,
			"stage", stageFrontend,
			"url", env.BaseURL,
			"error", res.Err,
		)
		return res
	}

	if res.Err != nil {
		p.logger.Warn("frontend reported an unusable backend location",
			"environment", env.Name,
			"error", res.Err,
		)
	}
	span.SetAttributes(attribute.String("bragi.version", res.Version))
	return res
}

func (p *EnvironmentProber) probeBackend(ctx context.Context, env domain.EnvironmentSpec, loc domain.BackendLocation, startedAt time.Time) domain.BackendSnapshot {
	ctx, span := tracer.Start(ctx, "probe.backend",
		trace.WithAttributes(attribute.String("elasticsearch.url", loc.URL)),
	)
	defer span.End()

	snap := domain.BackendSnapshot{
		Label:       domain.BackendLabel(env.Name),
		URL:         loc.URL,
		Status:      domain.BackendNotAvailable,
		Indices:     []domain.IndexSnapshot{},
		IndexPrefix: loc.IndexPrefix,
		ObservedAt:  startedAt,
	}

	start := time.Now()
	res := p.backend.Probe(ctx, loc)
	middleware.ProbeStageDuration.WithLabelValues(stageBackend).Observe(time.Since(start).Seconds())

	if !res.Reachable {
		middleware.ProbeStageFailures.WithLabelValues(stageBackend).Inc()
		recordFailure(span, res.Err)
		p.logger.Debug("backend unreachable",
			"environment", env.Name,
			"stage", stageBackend,
			"url", loc.URL,
			"error", res.Err,
		)
		snap.Name, snap.Version = p.lastKnown.recall(loc.URL)
		return snap
	}

	p.lastKnown.remember(loc.URL, res.Name, res.Version)

	indices, skipped := inspector.InspectAll(res.Indices, loc.IndexPrefix, startedAt)
	if skipped > 0 {
		middleware.IndicesSkipped.WithLabelValues(env.Name).Add(float64(skipped))
		p.logger.Debug("skipped malformed indices",
			"environment", env.Name,
			"prefix", loc.IndexPrefix,
			"skipped", skipped,
		)
	}

	snap.Name = res.Name
	snap.Version = res.Version
	snap.Status = domain.BackendAvailable
	snap.Indices = indices
	span.SetAttributes(
		attribute.Int("elasticsearch.indices", len(indices)),
		attribute.Int("elasticsearch.indices_skipped", skipped),
	)
	return snap
}

func recordFailure(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Error, "unreachable")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
