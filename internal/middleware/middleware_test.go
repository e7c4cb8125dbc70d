package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"":                       "/",
		"/":                      "/",
		"/api/v1/environments":   "/api/v1/environments",
		"/api/v1/environments/":  "/api/v1/environments",
		"/graphql":               "/graphql",
		"/metrics":               "/metrics",
		"/wp-admin/setup.php":    "other",
		"/api/v1/environments/x": "other",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizePath(in), "path %q", in)
	}
}

func TestChain_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}), logger)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request completed", entry["msg"])
	assert.Equal(t, "/ping", entry["path"])
	assert.EqualValues(t, http.StatusTeapot, entry["status"])
	assert.EqualValues(t, len("short and stout"), entry["bytes"])
}

func TestInitTracer_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracer("", "dev")
	assert.NoError(t, err)
	assert.Nil(t, shutdown)
}

func TestTracing_NamesSpanAfterMatchedRoute(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := tracer
	tracer = tp.Tracer(ServiceName)
	t.Cleanup(func() { tracer = prev })

	var name string
	router := chi.NewRouter()
	router.Get("/api/v1/environments/{name}", func(w http.ResponseWriter, r *http.Request) {
		name = chi.URLParam(r, "name")
		w.WriteHeader(http.StatusOK)
	})
	handler := Tracing(router)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/environments/dev", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dev", name)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wp-admin/setup.php", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "GET /api/v1/environments/{name}", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("http.route", "/api/v1/environments/{name}"))
	assert.Contains(t, spans[0].Attributes(), attribute.Int("http.status_code", http.StatusOK))
	assert.Equal(t, "GET other", spans[1].Name())
	assert.Contains(t, spans[1].Attributes(), attribute.String("http.route", "other"))
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "/ping", routeLabel(nil, "/ping/"))
	assert.Equal(t, "other", routeLabel(chi.NewRouteContext(), "/nope"))

	rctx := chi.NewRouteContext()
	rctx.RoutePatterns = []string{"/api/v1/*", "/environments/{name}"}
	assert.Equal(t, "/api/v1/environments/{name}", routeLabel(rctx, "/api/v1/environments/dev"))
}
