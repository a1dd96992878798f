// Package cluster groups normalized texts into semantic clusters. The
// primary path delegates to an external clustering service (embeddings +
// DBSCAN) over a JSON subprocess protocol; on any failure the gateway falls
// back to a deterministic keyword-bucket heuristic and, as a last resort,
// a single catch-all group.
package cluster

import "context"

// Request is the wire contract sent to the clustering service.
type Request struct {
	Texts      []string `json:"texts"`
	Eps        float64  `json:"eps"`
	MinSamples int      `json:"min_samples"`
	MinLength  int      `json:"min_length"`
}

// Group is one cluster as reported by the service.
type Group struct {
	RepresentativeText string   `json:"representative_text,omitempty"`
	Size               int      `json:"size"`
	Texts              []string `json:"texts"`
}

// Response is the wire contract returned by the clustering service. Any
// transport failure and success=false are treated identically by the
// gateway.
type Response struct {
	Success       bool    `json:"success"`
	Clusters      []Group `json:"clusters"`
	TotalClusters int     `json:"total_clusters"`
	TotalTexts    int     `json:"total_texts"`
	Error         string  `json:"error,omitempty"`
}

// Service is the external clustering collaborator.
type Service interface {
	Cluster(ctx context.Context, req Request) (Response, error)
}
