// Package jobs owns the analysis job lifecycle: the in-memory job table,
// the per-job pipeline task, and the read-only status projection polled by
// clients.
package jobs

import (
	"errors"
	"time"

	"github.com/joelkehle/painradar/internal/painpoint"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusFailed }

// FailureClass labels why a job failed. Only the coarse class is machine
// readable; clients see the human string in Job.Error.
type FailureClass string

const (
	FailureNone              FailureClass = ""
	FailureSourceUnavailable FailureClass = "source_unavailable"
	FailureFetch             FailureClass = "fetch_failure"
	FailureClusteringEmpty   FailureClass = "clustering_empty"
	FailureProcess           FailureClass = "process_failure"
)

var (
	ErrInvalidInput = errors.New("keywords must be a non-empty list of non-blank strings")
	ErrNotFound     = errors.New("job not found")
)

// Request is everything a caller specifies when creating a job. Limit caps
// the per-keyword shallow fetch, MaxItems caps total texts across keywords,
// and DeepCrawl asks for a comment-level crawl when the source supports one.
type Request struct {
	Keywords            []string `json:"keywords"`
	Limit               int      `json:"limit,omitempty"`
	Source              string   `json:"source,omitempty"`
	DeepCrawl           bool     `json:"deep_crawl,omitempty"`
	MaxItems            int      `json:"max_items,omitempty"`
	MaxVideos           int      `json:"max_videos,omitempty"`
	MaxCommentsPerVideo int      `json:"max_comments_per_video,omitempty"`
}

// Job is one analysis run. Mutated only by its own pipeline task through the
// store; once Status is terminal no further mutation occurs.
type Job struct {
	ID           string
	Request      Request
	Status       Status
	Progress     string
	StartedAt    time.Time
	FinishedAt   time.Time
	Results      []painpoint.AnalysisResult
	Quality      *painpoint.DataQuality
	Error        string
	FailureClass FailureClass
	Degraded     bool // clustering or analysis fell back at least once
}

// Snapshot is the polling surface. Results and data quality are exposed only
// on completed jobs; a failed job carries just the error string.
type Snapshot struct {
	JobID       string                     `json:"job_id"`
	Status      Status                     `json:"status"`
	Progress    string                     `json:"progress"`
	Results     []painpoint.AnalysisResult `json:"results,omitempty"`
	DataQuality *painpoint.DataQuality     `json:"data_quality,omitempty"`
	Error       string                     `json:"error,omitempty"`
}

func (j Job) Snapshot() Snapshot {
	s := Snapshot{JobID: j.ID, Status: j.Status, Progress: j.Progress}
	if j.Status == StatusCompleted {
		s.Results = j.Results
		s.DataQuality = j.Quality
	}
	if j.Status == StatusFailed {
		s.Error = j.Error
	}
	return s
}
