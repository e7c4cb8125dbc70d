package bragi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bragidiscovery/server/internal/domain"
)

const (
	endpointStatus   = "/status"
	maxResponseBytes = 1 << 20
)

var (
	// ErrUnexpectedStatus is returned for non-2xx responses
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrMalformedBody is returned when the status payload cannot be decoded
	ErrMalformedBody = errors.New("malformed status body")
	// ErrInvalidBackendURL is returned when the reported backend URL is unusable
	ErrInvalidBackendURL = errors.New("invalid backend url")
)

// StatusDetails is the payload of GET /status
type StatusDetails struct {
	Version       string `json:"version" validate:"required"`
	Elasticsearch string `json:"es"`
	Status        string `json:"status"`
}

// Result is the outcome of one frontend probe. When Reachable is false the
// other fields are empty and Err holds the cause. Backend is nil when the
// frontend does not say where its search cluster is.
type Result struct {
	Reachable bool
	Version   string
	Backend   *domain.BackendLocation
	Err       error
}

// Config holds Client configuration
type Config struct {
	Timeout   time.Duration
	Transport http.RoundTripper
}

// Client probes Bragi frontends
type Client struct {
	http    *http.Client
	timeout time.Duration
}

// NewClient creates a frontend probe client
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}
	return &Client{
		http:    &http.Client{Transport: cfg.Transport},
		timeout: cfg.Timeout,
	}
}

// Probe asks the frontend at baseURL for its status. Every failure is folded
// into an unreachable Result.
func (c *Client) Probe(ctx context.Context, baseURL string) Result {
	details, err := c.GetStatus(ctx, baseURL)
	if err != nil {
		return Result{Err: err}
	}

	res := Result{
		Reachable: true,
		Version:   details.Version,
	}
	if details.Elasticsearch == "" {
		return res
	}

	loc, err := ParseBackendLocation(details.Elasticsearch)
	if err != nil {
		// the frontend answered, only its backend pointer is unusable
		res.Err = err
		return res
	}
	res.Backend = &loc
	return res
}

// GetStatus fetches and decodes GET <baseURL>/status within the client timeout
func (c *Client) GetStatus(ctx context.Context, baseURL string) (*StatusDetails, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	statusURL := strings.TrimRight(baseURL, "/") + endpointStatus
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w %d from %s", ErrUnexpectedStatus, resp.StatusCode, statusURL)
	}

	var details StatusDetails
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	if err := domain.ValidateStruct(&details); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	return &details, nil
}

// ParseBackendLocation splits a backend URL such as http://es:9200/munin into
// the cluster base URL and the index prefix. The prefix defaults to
// domain.DefaultIndexPrefix when the URL has no path.
func ParseBackendLocation(raw string) (domain.BackendLocation, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return domain.BackendLocation{}, fmt.Errorf("%w %q: %w", ErrInvalidBackendURL, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return domain.BackendLocation{}, fmt.Errorf("%w %q: unsupported scheme", ErrInvalidBackendURL, raw)
	}
	if u.Hostname() == "" {
		return domain.BackendLocation{}, fmt.Errorf("%w %q: host is required", ErrInvalidBackendURL, raw)
	}

	prefix := domain.DefaultIndexPrefix
	if segment, _, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/"); segment != "" {
		prefix = segment
	}

	return domain.BackendLocation{
		URL:         u.Scheme + "://" + u.Host,
		IndexPrefix: prefix,
	}, nil
}
