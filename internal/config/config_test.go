package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bragidiscovery/server/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "env.json", cfg.EnvironmentsFile)
	assert.Equal(t, 3*time.Second, cfg.BragiTimeout)
	assert.Equal(t, 3*time.Second, cfg.ElasticTimeout)
	assert.Equal(t, 10*time.Second, cfg.ProbeDeadline)
	assert.Equal(t, 0, cfg.MaxConcurrency)
	assert.Equal(t, 256, cfg.LastKnownCacheSize)
	assert.Equal(t, time.Duration(0), cfg.PollInterval)
	assert.Equal(t, 8080, cfg.Port)
	assert.Empty(t, cfg.OTLPEndpoint)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENTS_FILE", "/etc/discovery/envs.yaml")
	t.Setenv("BRAGI_TIMEOUT", "500ms")
	t.Setenv("ELASTICSEARCH_TIMEOUT", "2s")
	t.Setenv("PROBE_DEADLINE", "5s")
	t.Setenv("MAX_CONCURRENCY", "4")
	t.Setenv("POLL_INTERVAL", "1m")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/etc/discovery/envs.yaml", cfg.EnvironmentsFile)
	assert.Equal(t, 500*time.Millisecond, cfg.BragiTimeout)
	assert.Equal(t, 2*time.Second, cfg.ElasticTimeout)
	assert.Equal(t, 5*time.Second, cfg.ProbeDeadline)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.Equal(t, time.Minute, cfg.PollInterval)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unparsable duration", "BRAGI_TIMEOUT", "soon"},
		{"zero timeout", "ELASTICSEARCH_TIMEOUT", "0s"},
		{"negative deadline", "PROBE_DEADLINE", "-1s"},
		{"port out of range", "PORT", "70000"},
		{"unknown log level", "LOG_LEVEL", "verbose"},
		{"unknown log format", "LOG_FORMAT", "xml"},
		{"negative concurrency", "MAX_CONCURRENCY", "-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestParseEnvironments_JSON(t *testing.T) {
	content := []byte(`[` +
		`{"env": "dev", "url": "http://dev.example:4000/"},` +
		`{"env": "prod", "url": "https://bragi.example"}` +
		`]`)

	envs, err := ParseEnvironments(content)
	require.NoError(t, err)

	assert.Equal(t, []domain.EnvironmentSpec{
		{Name: "dev", BaseURL: "http://dev.example:4000"},
		{Name: "prod", BaseURL: "https://bragi.example"},
	}, envs)
}

func TestParseEnvironments_YAML(t *testing.T) {
	content := []byte(`
- env: staging
  url: http://staging.example
`)

	envs, err := ParseEnvironments(content)
	require.NoError(t, err)
	require.Len(t, envs, 1)
	assert.Equal(t, "staging", envs[0].Name)
}

func TestParseEnvironments_Empty(t *testing.T) {
	envs, err := ParseEnvironments([]byte(`[]`))
	require.NoError(t, err)
	assert.NotNil(t, envs)
	assert.Empty(t, envs)
}

func TestParseEnvironments_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not a list", `{"env": "dev"}`},
		{"missing url", `[{"env": "dev"}]`},
		{"missing name", `[{"url": "http://dev.example"}]`},
		{"bad url", `[{"env": "dev", "url": "dev.example"}]`},
		{"bad name", `[{"env": "dev env", "url": "http://dev.example"}]`},
		{"duplicate", `[{"env": "dev", "url": "http://a.example"}, {"env": "dev", "url": "http://b.example"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEnvironments([]byte(tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadEnvironments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"env":"dev","url":"http://dev.example"}]`), 0o600))

	envs, err := LoadEnvironments(path)
	require.NoError(t, err)
	require.Len(t, envs, 1)
	assert.Equal(t, "dev", envs[0].Name)

	_, err = LoadEnvironments(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
