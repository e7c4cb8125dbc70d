package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bragidiscovery/server/internal/api"
	"github.com/bragidiscovery/server/internal/bragi"
	"github.com/bragidiscovery/server/internal/config"
	"github.com/bragidiscovery/server/internal/discovery"
	"github.com/bragidiscovery/server/internal/domain"
	"github.com/bragidiscovery/server/internal/elastic"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := rootCmd().Execute(); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

// options are the flags shared by every subcommand
type options struct {
	envFile string
	debug   bool
}

func rootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:           "discovery",
		Short:         "Report the availability of Bragi environments and their Elasticsearch indices",
		Version:       api.BuildVersion().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, &opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "Environments file (overrides ENVIRONMENTS_FILE)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.AddCommand(serveCmd(&opts))
	cmd.AddCommand(probeCmd(&opts))
	return cmd
}

// setup loads configuration, installs the process logger and reads the
// environments file.
func setup(opts *options, logOut io.Writer) (*config.Config, *slog.Logger, []domain.EnvironmentSpec, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.envFile != "" {
		cfg.EnvironmentsFile = opts.envFile
	}
	if opts.debug {
		cfg.LogLevel = "debug"
	}

	logger := newLogger(cfg, logOut)
	slog.SetDefault(logger)

	envs, err := config.LoadEnvironments(cfg.EnvironmentsFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load environments: %w", err)
	}
	if len(envs) == 0 {
		logger.Warn("environments file lists no environments", "path", cfg.EnvironmentsFile)
	}

	return cfg, logger, envs, nil
}

func newLogger(cfg *config.Config, out io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(out, opts))
	}
	return slog.New(slog.NewJSONHandler(out, opts))
}

// newCoordinator wires both probe clients, over one shared transport, into
// a coordinator for envs.
func newCoordinator(cfg *config.Config, envs []domain.EnvironmentSpec, logger *slog.Logger) (*discovery.Coordinator, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 4
	transport.IdleConnTimeout = 90 * time.Second

	prober, err := discovery.NewProber(discovery.ProberConfig{
		Frontend: bragi.NewClient(bragi.Config{
			Timeout:   cfg.BragiTimeout,
			Transport: transport,
		}),
		Backend: elastic.NewClient(elastic.Config{
			Timeout:   cfg.ElasticTimeout,
			Transport: transport,
		}),
		LastKnownSize: cfg.LastKnownCacheSize,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create prober: %w", err)
	}

	coordinator, err := discovery.NewCoordinator(discovery.Config{
		Prober:         prober,
		Environments:   envs,
		Deadline:       cfg.ProbeDeadline,
		MaxConcurrency: cfg.MaxConcurrency,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create coordinator: %w", err)
	}
	return coordinator, nil
}
