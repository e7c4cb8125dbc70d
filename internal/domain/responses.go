package domain

import "time"

// EnvironmentsResponse is the body of the environments query
type EnvironmentsResponse struct {
	Environments      []EnvironmentInfo `json:"environments"`
	EnvironmentsCount int               `json:"environmentsCount"`
}

// EnvironmentInfo is the external view of an EnvironmentSnapshot
type EnvironmentInfo struct {
	Label         string            `json:"label"`
	URL           string            `json:"url"`
	Version       string            `json:"version"`
	Status        EnvironmentStatus `json:"status"`
	UpdatedAt     time.Time         `json:"updatedAt"`
	Elasticsearch *BackendInfo      `json:"elasticsearch"`
}

// BackendInfo is the external view of a BackendSnapshot
type BackendInfo struct {
	Label       string        `json:"label"`
	URL         string        `json:"url"`
	Name        string        `json:"name"`
	Status      BackendStatus `json:"status"`
	Version     string        `json:"version"`
	Indices     []IndexInfo   `json:"indices"`
	IndexPrefix string        `json:"indexPrefix"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// IndexInfo is the external view of an IndexSnapshot
type IndexInfo struct {
	Label     string     `json:"label"`
	PlaceType string     `json:"placeType"`
	Coverage  string     `json:"coverage"`
	Private   Visibility `json:"private"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Count     int64      `json:"count"`
}

// NewEnvironmentsResponse converts an aggregate into its external form
func NewEnvironmentsResponse(agg AggregateSnapshot) EnvironmentsResponse {
	envs := make([]EnvironmentInfo, 0, len(agg.Environments))
	for _, env := range agg.Environments {
		envs = append(envs, newEnvironmentInfo(env))
	}
	return EnvironmentsResponse{
		Environments:      envs,
		EnvironmentsCount: agg.Count,
	}
}

func newEnvironmentInfo(env EnvironmentSnapshot) EnvironmentInfo {
	info := EnvironmentInfo{
		Label:     env.Label,
		URL:       env.URL,
		Version:   env.Version,
		Status:    env.Status,
		UpdatedAt: env.ObservedAt,
	}
	if env.Backend != nil {
		backend := newBackendInfo(*env.Backend)
		info.Elasticsearch = &backend
	}
	return info
}

func newBackendInfo(b BackendSnapshot) BackendInfo {
	indices := make([]IndexInfo, 0, len(b.Indices))
	for _, idx := range b.Indices {
		indices = append(indices, IndexInfo{
			Label:     idx.Label,
			PlaceType: idx.PlaceType,
			Coverage:  idx.Coverage,
			Private:   idx.Visibility,
			CreatedAt: idx.CreatedAt,
			UpdatedAt: idx.UpdatedAt,
			Count:     idx.DocumentCount,
		})
	}
	return BackendInfo{
		Label:       b.Label,
		URL:         b.URL,
		Name:        b.Name,
		Status:      b.Status,
		Version:     b.Version,
		Indices:     indices,
		IndexPrefix: b.IndexPrefix,
		UpdatedAt:   b.ObservedAt,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status            string `json:"status"`
	EnvironmentCount  int    `json:"environment_count"`
	WatcherEnabled    bool   `json:"watcher_enabled"`
	LastWatchAt       string `json:"last_watch_at,omitempty"`
	LastWatchDuration string `json:"last_watch_duration,omitempty"`
}

// PingResponse represents the ping response
type PingResponse struct {
	Pong bool `json:"pong"`
}

// VersionResponse represents the version info response
type VersionResponse struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}
