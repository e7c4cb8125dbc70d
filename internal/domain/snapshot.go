package domain

import "time"

// DefaultIndexPrefix is used when the frontend's backend URL carries no path.
const DefaultIndexPrefix = "munin"

// EnvironmentStatus is the availability of one environment as a whole
type EnvironmentStatus string

const (
	EnvironmentAvailable           EnvironmentStatus = "AVAILABLE"
	EnvironmentBragiNotAvailable   EnvironmentStatus = "BRAGI_NOT_AVAILABLE"
	EnvironmentElasticNotAvailable EnvironmentStatus = "ELASTICSEARCH_NOT_AVAILABLE"
)

// BackendStatus is the availability of a search cluster
type BackendStatus string

const (
	BackendAvailable    BackendStatus = "AVAILABLE"
	BackendNotAvailable BackendStatus = "NOT_AVAILABLE"
)

// Visibility tells whether an index holds a private or public data source
type Visibility string

const (
	VisibilityPrivate Visibility = "PRIVATE"
	VisibilityPublic  Visibility = "PUBLIC"
)

// EnvironmentSpec is one configured environment
type EnvironmentSpec struct {
	Name    string `json:"env" yaml:"env" validate:"required,env_name"`
	BaseURL string `json:"url" yaml:"url" validate:"required,http_url"`
}

// BackendLocation is where a frontend says its search cluster lives
type BackendLocation struct {
	URL         string
	IndexPrefix string
}

// IndexSnapshot describes one managed index on a cluster
type IndexSnapshot struct {
	Label         string
	PlaceType     string
	Coverage      string
	Visibility    Visibility
	DocumentCount int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BackendSnapshot describes a search cluster as observed during one run.
// An unavailable backend has no indices; Name and Version are the last
// values seen for its URL, or empty.
type BackendSnapshot struct {
	Label       string
	URL         string
	Name        string
	Status      BackendStatus
	Version     string
	Indices     []IndexSnapshot
	IndexPrefix string
	ObservedAt  time.Time
}

// EnvironmentSnapshot is the outcome of probing one environment.
// Backend is set only when the frontend reported a backend location.
type EnvironmentSnapshot struct {
	Label      string
	URL        string
	Version    string
	Status     EnvironmentStatus
	ObservedAt time.Time
	Backend    *BackendSnapshot
}

// AggregateSnapshot is the result of one probe run over every environment
type AggregateSnapshot struct {
	Environments []EnvironmentSnapshot
	Count        int
}

// NewAggregate builds an aggregate whose Count always matches its content
func NewAggregate(envs []EnvironmentSnapshot) AggregateSnapshot {
	if envs == nil {
		envs = []EnvironmentSnapshot{}
	}
	return AggregateSnapshot{
		Environments: envs,
		Count:        len(envs),
	}
}

// FrontendUnavailable is the snapshot of an environment whose frontend could
// not be reached, or whose probe did not finish in time.
func FrontendUnavailable(env EnvironmentSpec, observedAt time.Time) EnvironmentSnapshot {
	return EnvironmentSnapshot{
		Label:      env.Name,
		URL:        env.BaseURL,
		Status:     EnvironmentBragiNotAvailable,
		ObservedAt: observedAt,
	}
}

// BackendLabel returns the label of the backend belonging to an environment
func BackendLabel(envName string) string {
	return "elasticsearch_" + envName
}
