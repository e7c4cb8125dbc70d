package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/bragidiscovery/server/internal/domain"
)

// Config holds all application configuration
type Config struct {
	// Environments file: a JSON or YAML list of {env, url}
	EnvironmentsFile string `env:"ENVIRONMENTS_FILE" envDefault:"env.json"`

	// Probe settings
	BragiTimeout       time.Duration `env:"BRAGI_TIMEOUT" envDefault:"3s" validate:"gt=0"`
	ElasticTimeout     time.Duration `env:"ELASTICSEARCH_TIMEOUT" envDefault:"3s" validate:"gt=0"`
	ProbeDeadline      time.Duration `env:"PROBE_DEADLINE" envDefault:"10s" validate:"gte=0"`
	MaxConcurrency     int           `env:"MAX_CONCURRENCY" envDefault:"0" validate:"gte=0"`
	LastKnownCacheSize int           `env:"LAST_KNOWN_CACHE_SIZE" envDefault:"256" validate:"gt=0"`

	// Watcher; zero disables background polling
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"0s" validate:"gte=0"`

	// Server settings
	Port int `env:"PORT" envDefault:"8080" validate:"gt=0,lte=65535"`

	// Observability
	OTLPEndpoint string `env:"OTLP_ENDPOINT"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogFormat    string `env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json text"`
}

// Load reads configuration from environment variables. A .env file in the
// working directory, when present, is applied first without overriding
// variables that are already set.
func Load() (*Config, error) {
	// the .env file is optional
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	if err := domain.ValidateStruct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SlogLevel maps LogLevel to a slog level
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadEnvironments reads and validates the environments file
func LoadEnvironments(path string) ([]domain.EnvironmentSpec, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read environments file: %w", err)
	}
	return ParseEnvironments(content)
}

// ParseEnvironments decodes a JSON or YAML environment list. Names must be
// unique; order is kept.
func ParseEnvironments(content []byte) ([]domain.EnvironmentSpec, error) {
	var envs []domain.EnvironmentSpec
	if err := yaml.Unmarshal(content, &envs); err != nil {
		return nil, fmt.Errorf("failed to parse environments file: %w", err)
	}

	seen := make(map[string]bool, len(envs))
	var errs []error
	for i := range envs {
		env := &envs[i]
		env.Name = strings.TrimSpace(env.Name)
		env.BaseURL = strings.TrimRight(strings.TrimSpace(env.BaseURL), "/")

		if err := domain.ValidateEnvironment(env); err != nil {
			errs = append(errs, fmt.Errorf("environment %d (%q): %w", i, env.Name, err))
			continue
		}
		if seen[env.Name] {
			errs = append(errs, fmt.Errorf("environment %d: duplicate name %q", i, env.Name))
			continue
		}
		seen[env.Name] = true
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if envs == nil {
		envs = []domain.EnvironmentSpec{}
	}
	return envs, nil
}
