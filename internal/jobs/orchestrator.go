package jobs

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joelkehle/painradar/internal/insight"
	"github.com/joelkehle/painradar/internal/painpoint"
	"github.com/joelkehle/painradar/internal/source"
)

// Clusterer is the clustering gateway surface the pipeline needs. The bool
// reports whether a fallback path was engaged.
type Clusterer interface {
	Cluster(ctx context.Context, texts []string, modality painpoint.Modality) ([]painpoint.Cluster, bool)
}

// ClusterAnalyzer produces one payload per cluster and never fails; degraded
// payloads are flagged internally.
type ClusterAnalyzer interface {
	Analyze(ctx context.Context, in insight.ClusterInput) painpoint.AnalysisPayload
}

// RunArchiver persists a finished job as an audit record. Archiving is
// best-effort; a failure is logged and does not affect the job.
type RunArchiver interface {
	SaveRun(ctx context.Context, job Job) error
}

type OrchestratorConfig struct {
	MaxRepresentatives int           // texts sent per cluster analysis
	AnalysisDelay      time.Duration // fixed delay between consecutive analysis calls
	Archiver           RunArchiver   // optional
	Sleep              func(time.Duration)
}

func (c OrchestratorConfig) withDefaults() OrchestratorConfig {
	if c.MaxRepresentatives <= 0 {
		c.MaxRepresentatives = 6
	}
	if c.AnalysisDelay <= 0 {
		c.AnalysisDelay = 1 * time.Second
	}
	if c.Sleep == nil {
		c.Sleep = time.Sleep
	}
	return c
}

// Orchestrator sequences the full pipeline per job: fetch, normalize,
// cluster, analyze, score, grade. Each job runs as one detached goroutine;
// the creator only receives the id.
type Orchestrator struct {
	store     *Store
	sources   *source.Registry
	clusterer Clusterer
	analyzer  ClusterAnalyzer
	cfg       OrchestratorConfig
}

func NewOrchestrator(store *Store, sources *source.Registry, clusterer Clusterer, analyzer ClusterAnalyzer, cfg OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		store:     store,
		sources:   sources,
		clusterer: clusterer,
		analyzer:  analyzer,
		cfg:       cfg.withDefaults(),
	}
}

// CreateJob validates the request, stores the initial record synchronously,
// launches the pipeline, and returns immediately.
func (o *Orchestrator) CreateJob(req Request) (string, error) {
	if len(req.Keywords) == 0 {
		return "", ErrInvalidInput
	}
	for _, kw := range req.Keywords {
		if strings.TrimSpace(kw) == "" {
			return "", ErrInvalidInput
		}
	}
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if req.Source == "" {
		req.Source = "douyin"
	}

	id := uuid.NewString()
	o.store.Create(Job{
		ID:        id,
		Request:   req,
		Status:    StatusProcessing,
		Progress:  "initializing",
		StartedAt: time.Now(),
	})
	go o.runJob(context.Background(), id, req)
	return id, nil
}

func (o *Orchestrator) GetJob(id string) (Snapshot, error) {
	job, ok := o.store.Get(id)
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return job.Snapshot(), nil
}

func (o *Orchestrator) ListJobs() []Snapshot {
	jobs := o.store.List()
	out := make([]Snapshot, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Snapshot())
	}
	return out
}

func (o *Orchestrator) runJob(ctx context.Context, id string, req Request) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("job %s: pipeline panic: %v", id, r)
			o.fail(id, FailureProcess, fmt.Sprintf("internal error: %v", r))
		}
	}()

	o.setProgress(id, "validating source")
	src, err := o.sources.Get(req.Source)
	if err != nil {
		o.fail(id, FailureSourceUnavailable, err.Error())
		return
	}
	if src.Capabilities().Has(source.CapAvailabilityCheck) && !src.CheckAvailability(ctx) {
		o.fail(id, FailureSourceUnavailable, fmt.Sprintf("data source %s reports itself unavailable", src.Name()))
		return
	}

	videoTexts, commentTexts := o.collect(ctx, id, src, req)
	if len(videoTexts)+len(commentTexts) == 0 {
		o.fail(id, FailureFetch, fmt.Sprintf("no usable text collected for keywords %v", req.Keywords))
		return
	}

	o.setProgress(id, "clustering")
	degraded := false
	videoClusters, deg := o.clusterer.Cluster(ctx, videoTexts, painpoint.ModalityVideo)
	degraded = degraded || deg
	commentClusters, deg := o.clusterer.Cluster(ctx, commentTexts, painpoint.ModalityComment)
	degraded = degraded || deg
	clusters := append(videoClusters, commentClusters...)
	if len(clusters) == 0 {
		o.fail(id, FailureClusteringEmpty, "clustering produced no usable groups")
		return
	}

	totalSize := len(videoTexts) + len(commentTexts)
	results := make([]painpoint.AnalysisResult, 0, len(clusters))
	for i, c := range clusters {
		o.setProgress(id, fmt.Sprintf("analyzing cluster %d/%d", i+1, len(clusters)))
		reps := painpoint.SelectRepresentatives(c.Texts, o.cfg.MaxRepresentatives)
		payload := o.analyzer.Analyze(ctx, insight.ClusterInput{
			Texts:      reps,
			Keywords:   req.Keywords,
			SampleSize: totalSize,
		})
		degraded = degraded || payload.Degraded
		score := painpoint.CalculatePriority(c.Size(), totalSize, payload)
		results = append(results, painpoint.AnalysisResult{
			ClusterID:       i,
			ClusterSize:     c.Size(),
			Modality:        c.Modality,
			Analysis:        payload,
			Representatives: reps,
			Priority:        &score,
		})
		if i < len(clusters)-1 {
			o.cfg.Sleep(o.cfg.AnalysisDelay)
		}
	}

	// Rank by overall score; stable so ties keep cluster order.
	sort.SliceStable(results, func(i, k int) bool {
		return results[i].Priority.Overall > results[k].Priority.Overall
	})

	quality := painpoint.GradeDataQuality(totalSize, clusters)
	o.setProgress(id, "done")
	o.store.Update(id, func(j *Job) {
		j.Status = StatusCompleted
		j.Results = results
		j.Quality = &quality
		j.Degraded = degraded
		j.FinishedAt = time.Now()
	})
	o.archive(ctx, id)
}

// collect fetches and normalizes texts per keyword, keeping modalities
// separate. Per-keyword fetch errors are logged and skipped; only a fully
// empty harvest is fatal, decided by the caller.
func (o *Orchestrator) collect(ctx context.Context, id string, src source.DataSource, req Request) (videoTexts, commentTexts []string) {
	var videoItems, commentItems []painpoint.RawItem
	deep := req.DeepCrawl && src.Capabilities().Has(source.CapDeepFetch)
	for i, kw := range req.Keywords {
		o.setProgress(id, fmt.Sprintf("fetching %q (%d/%d)", kw, i+1, len(req.Keywords)))
		if deep {
			result, err := src.SearchWithComments(ctx, kw, source.DeepFetchOptions{
				MaxVideos:           req.MaxVideos,
				MaxCommentsPerVideo: req.MaxCommentsPerVideo,
			})
			if err != nil {
				log.Printf("job %s: deep fetch %q failed: %v", id, kw, err)
				continue
			}
			videoItems = append(videoItems, result.VideoItems()...)
			commentItems = append(commentItems, result.CommentItems()...)
			continue
		}
		result, err := src.SearchAndFetch(ctx, kw, req.Limit)
		if err != nil {
			log.Printf("job %s: fetch %q failed: %v", id, kw, err)
			continue
		}
		videoItems = append(videoItems, result.Items()...)
	}

	videoTexts = painpoint.Normalize(painpoint.ItemTexts(videoItems))
	commentTexts = painpoint.Normalize(painpoint.ItemTexts(commentItems))
	if req.MaxItems > 0 {
		if len(videoTexts) > req.MaxItems {
			videoTexts = videoTexts[:req.MaxItems]
		}
		remaining := req.MaxItems - len(videoTexts)
		if len(commentTexts) > remaining {
			commentTexts = commentTexts[:remaining]
		}
	}
	return videoTexts, commentTexts
}

func (o *Orchestrator) setProgress(id, label string) {
	o.store.Update(id, func(j *Job) { j.Progress = label })
}

func (o *Orchestrator) fail(id string, class FailureClass, msg string) {
	log.Printf("job %s failed (%s): %s", id, class, msg)
	o.store.Update(id, func(j *Job) {
		j.Status = StatusFailed
		j.Error = msg
		j.FailureClass = class
		j.FinishedAt = time.Now()
	})
	o.archive(context.Background(), id)
}

func (o *Orchestrator) archive(ctx context.Context, id string) {
	if o.cfg.Archiver == nil {
		return
	}
	job, ok := o.store.Get(id)
	if !ok {
		return
	}
	if err := o.cfg.Archiver.SaveRun(ctx, job); err != nil {
		log.Printf("job %s: archive failed: %v", id, err)
	}
}
