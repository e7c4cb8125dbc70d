package elastic

// ClusterInfo represents the response from GET /.
type ClusterInfo struct {
	Name        string `json:"name"`
	ClusterName string `json:"cluster_name" validate:"required"`
	Version     struct {
		Number string `json:"number" validate:"required"`
	} `json:"version"`
}

// IndexRecord represents a single index entry from /_cat/indices.
// Columns the cluster did not report, or reported as null (closed indices),
// are nil.
type IndexRecord struct {
	Index        string  `json:"index"`
	Health       string  `json:"health,omitempty"`
	Status       string  `json:"status,omitempty"`
	DocsCount    *string `json:"docs.count,omitempty"`
	CreationDate *string `json:"creation.date,omitempty"`
}
