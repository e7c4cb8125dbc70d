package elastic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/bragidiscovery/server/internal/domain"
)

const maxResponseBytes = 32 * 1024 * 1024

// catIndicesColumns are requested explicitly so that the listing keeps the
// cluster's own order and only carries what the inspector reads.
var catIndicesColumns = []string{"index", "health", "status", "docs.count", "creation.date"}

var (
	// ErrUnexpectedStatus is returned for non-2xx responses
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrMalformedBody is returned when a payload cannot be decoded or misses required fields
	ErrMalformedBody = errors.New("malformed body")
)

// Result is the outcome of one backend probe. Partial success is not
// modelled: if either call fails Reachable is false and Err holds the cause.
type Result struct {
	Reachable   bool
	Name        string
	Version     string
	IndexPrefix string
	Indices     []IndexRecord
	Err         error
}

// Config holds Client configuration
type Config struct {
	Timeout   time.Duration
	Transport http.RoundTripper
}

// Client probes search clusters
type Client struct {
	transport http.RoundTripper
	timeout   time.Duration
}

// NewClient creates a backend probe client. Timeout bounds each request
// separately.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}
	return &Client{
		transport: cfg.Transport,
		timeout:   cfg.Timeout,
	}
}

// Probe queries cluster info then the index listing of the cluster at loc.
func (c *Client) Probe(ctx context.Context, loc domain.BackendLocation) Result {
	client, err := c.newSearchClient(loc.URL)
	if err != nil {
		return Result{Err: err}
	}

	info, err := c.GetInfo(ctx, client)
	if err != nil {
		return Result{Err: err}
	}

	indices, err := c.GetIndices(ctx, client)
	if err != nil {
		return Result{Err: err}
	}

	return Result{
		Reachable:   true,
		Name:        info.ClusterName,
		Version:     info.Version.Number,
		IndexPrefix: loc.IndexPrefix,
		Indices:     indices,
	}
}

func (c *Client) newSearchClient(baseURL string) (*opensearch.Client, error) {
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses:    []string{strings.TrimRight(baseURL, "/")},
		Transport:    c.transport,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create search client: %w", err)
	}
	return client, nil
}

// GetInfo fetches cluster identity from GET /.
func (c *Client) GetInfo(ctx context.Context, client *opensearch.Client) (*ClusterInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("GetInfo: %w", err)
	}

	var info ClusterInfo
	if err := decode(res, &info); err != nil {
		return nil, fmt.Errorf("GetInfo: %w", err)
	}
	if err := domain.ValidateStruct(&info); err != nil {
		return nil, fmt.Errorf("GetInfo: %w: %w", ErrMalformedBody, err)
	}
	return &info, nil
}

// GetIndices fetches the index listing from /_cat/indices.
func (c *Client) GetIndices(ctx context.Context, client *opensearch.Client) ([]IndexRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := client.Cat.Indices(
		client.Cat.Indices.WithContext(ctx),
		client.Cat.Indices.WithFormat("json"),
		client.Cat.Indices.WithH(catIndicesColumns...),
	)
	if err != nil {
		return nil, fmt.Errorf("GetIndices: %w", err)
	}

	var records []IndexRecord
	if err := decode(res, &records); err != nil {
		return nil, fmt.Errorf("GetIndices: %w", err)
	}
	if records == nil {
		records = []IndexRecord{}
	}
	return records, nil
}

func decode(res *opensearchapi.Response, v any) error {
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, res.StatusCode, truncate(body, 200))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
