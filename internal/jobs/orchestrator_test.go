package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/joelkehle/painradar/internal/cluster"
	"github.com/joelkehle/painradar/internal/insight"
	"github.com/joelkehle/painradar/internal/painpoint"
	"github.com/joelkehle/painradar/internal/source"
)

// fakeSource returns a fixed number of texts per keyword.
type fakeSource struct {
	name         string
	caps         source.Capability
	textsPerKw   int
	available    bool
	fetchErr     error
	deepComments int
}

func (f *fakeSource) Name() string                    { return f.name }
func (f *fakeSource) Capabilities() source.Capability { return f.caps }

func (f *fakeSource) SearchAndFetch(_ context.Context, keyword string, _ int) (source.FetchResult, error) {
	if f.fetchErr != nil {
		return source.FetchResult{}, f.fetchErr
	}
	var r source.FetchResult
	for i := 0; i < f.textsPerKw; i++ {
		r.RawTexts = append(r.RawTexts, fmt.Sprintf("%s 的价格太贵了，真的用不起 %d", keyword, i))
	}
	r.Count = len(r.RawTexts)
	return r, nil
}

func (f *fakeSource) SearchWithComments(_ context.Context, keyword string, _ source.DeepFetchOptions) (source.DeepFetchResult, error) {
	if f.fetchErr != nil {
		return source.DeepFetchResult{}, f.fetchErr
	}
	r := source.DeepFetchResult{
		Videos: []source.Video{{Title: keyword + " 的价格太贵了，真的用不起"}},
	}
	for i := 0; i < f.deepComments; i++ {
		r.AllComments = append(r.AllComments, source.Comment{
			VideoTitle:  r.Videos[0].Title,
			CommentText: fmt.Sprintf("质量也太差了吧，用两天就坏 %d", i),
		})
	}
	r.VideoCount = 1
	r.CommentCount = len(r.AllComments)
	return r, nil
}

func (f *fakeSource) CheckAvailability(context.Context) bool { return f.available }

// fakeClusterer puts every text into one cluster per modality.
type fakeClusterer struct {
	degraded bool
	empty    bool
}

func (f *fakeClusterer) Cluster(_ context.Context, texts []string, modality painpoint.Modality) ([]painpoint.Cluster, bool) {
	if f.empty || len(texts) == 0 {
		return nil, false
	}
	return []painpoint.Cluster{{Modality: modality, Texts: texts}}, f.degraded
}

// fakeAnalyzer returns a payload with a controllable market score so tests
// can steer the final ranking.
type fakeAnalyzer struct {
	calls  int
	scores []float64
}

func (f *fakeAnalyzer) Analyze(_ context.Context, in insight.ClusterInput) painpoint.AnalysisPayload {
	score := 2.5
	if f.calls < len(f.scores) {
		score = f.scores[f.calls]
	}
	f.calls++
	return painpoint.AnalysisPayload{
		PainStatement:   "太贵了",
		PaidInterest:    painpoint.PaidInterestMedium,
		Rationale:       "r",
		ProductConcept:  "p",
		PainDepth:       &painpoint.PainDepth{EmotionalIntensity: 3, Frequency: "daily", CurrentWorkaround: "none"},
		MarketLandscape: &painpoint.MarketLandscape{MarketSizeScore: score, ExistingSolutions: []string{"A"}, Gaps: "g"},
		MVPPlan:         &painpoint.MVPPlan{CoreFeature: "f", Channel: "c", PricingModel: "m", FirstStep: "s"},
		Relevance:       &painpoint.Relevance{Score: 80, Reason: "match"},
	}
}

func newTestOrchestrator(src source.DataSource, c Clusterer, a ClusterAnalyzer) (*Orchestrator, *Store) {
	store := NewStore(StoreConfig{})
	reg := source.NewRegistry()
	if src != nil {
		reg.Register(src)
	}
	o := NewOrchestrator(store, reg, c, a, OrchestratorConfig{
		AnalysisDelay: time.Nanosecond,
		Sleep:         func(time.Duration) {},
	})
	return o, store
}

func waitTerminal(t *testing.T, o *Orchestrator, id string) Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := o.GetJob(id)
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		if snap.Status.Terminal() {
			return snap
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state")
	return Snapshot{}
}

func TestCreateJobValidation(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeSource{name: "douyin"}, &fakeClusterer{}, &fakeAnalyzer{})
	cases := [][]string{nil, {}, {""}, {"   "}, {"咖啡机", " "}}
	for _, kws := range cases {
		if _, err := o.CreateJob(Request{Keywords: kws}); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("keywords %q: expected ErrInvalidInput, got %v", kws, err)
		}
	}
}

func TestJobCompletesWithPreliminaryQuality(t *testing.T) {
	// Scenario: 3 keywords, 20 distinct texts each = 60 total.
	src := &fakeSource{name: "douyin", caps: source.CapFetch, textsPerKw: 20}
	o, _ := newTestOrchestrator(src, &fakeClusterer{}, &fakeAnalyzer{})

	id, err := o.CreateJob(Request{Keywords: []string{"咖啡机", "吹风机", "空气炸锅"}})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	snap := waitTerminal(t, o, id)
	if snap.Status != StatusCompleted {
		t.Fatalf("status %s: %s", snap.Status, snap.Error)
	}
	if len(snap.Results) == 0 {
		t.Fatal("completed job must carry results")
	}
	if snap.DataQuality == nil || snap.DataQuality.Level != painpoint.QualityPreliminary {
		t.Fatalf("data quality: %+v", snap.DataQuality)
	}
	if snap.DataQuality.SampleSize != 60 {
		t.Fatalf("sample size: %d", snap.DataQuality.SampleSize)
	}
}

func TestJobFailsOnZeroTexts(t *testing.T) {
	src := &fakeSource{name: "douyin", caps: source.CapFetch, textsPerKw: 0}
	o, store := newTestOrchestrator(src, &fakeClusterer{}, &fakeAnalyzer{})

	id, _ := o.CreateJob(Request{Keywords: []string{"咖啡机"}})
	snap := waitTerminal(t, o, id)
	if snap.Status != StatusFailed || snap.Error == "" {
		t.Fatalf("expected failed with message: %+v", snap)
	}
	job, _ := store.Get(id)
	if job.FailureClass != FailureFetch {
		t.Fatalf("failure class: %s", job.FailureClass)
	}
	if snap.Results != nil {
		t.Fatal("failed job must not expose results")
	}
}

func TestJobFailsOnUnavailableSource(t *testing.T) {
	src := &fakeSource{name: "xiaohongshu", caps: source.CapFetch | source.CapAvailabilityCheck, available: false}
	o, store := newTestOrchestrator(src, &fakeClusterer{}, &fakeAnalyzer{})

	id, _ := o.CreateJob(Request{Keywords: []string{"咖啡机"}, Source: "xiaohongshu"})
	snap := waitTerminal(t, o, id)
	if snap.Status != StatusFailed {
		t.Fatalf("expected failed: %+v", snap)
	}
	job, _ := store.Get(id)
	if job.FailureClass != FailureSourceUnavailable {
		t.Fatalf("failure class: %s", job.FailureClass)
	}
}

func TestJobFailsOnUnknownSource(t *testing.T) {
	o, store := newTestOrchestrator(&fakeSource{name: "douyin", caps: source.CapFetch, textsPerKw: 5}, &fakeClusterer{}, &fakeAnalyzer{})
	id, _ := o.CreateJob(Request{Keywords: []string{"k"}, Source: "weibo"})
	snap := waitTerminal(t, o, id)
	if snap.Status != StatusFailed {
		t.Fatalf("expected failed: %+v", snap)
	}
	job, _ := store.Get(id)
	if job.FailureClass != FailureSourceUnavailable {
		t.Fatalf("failure class: %s", job.FailureClass)
	}
}

func TestJobCompletesViaClusteringFallback(t *testing.T) {
	// Real gateway with a service that always times out: the keyword
	// heuristic must carry the job to completion.
	src := &fakeSource{name: "douyin", caps: source.CapFetch, textsPerKw: 10}
	gw := cluster.NewGateway(failingService{}, cluster.Config{})
	o, store := newTestOrchestrator(src, gw, &fakeAnalyzer{})

	id, _ := o.CreateJob(Request{Keywords: []string{"咖啡机"}})
	snap := waitTerminal(t, o, id)
	if snap.Status != StatusCompleted {
		t.Fatalf("fallback should complete the job: %+v", snap)
	}
	job, _ := store.Get(id)
	if !job.Degraded {
		t.Fatal("degraded flag should be set when fallback engaged")
	}
}

type failingService struct{}

func (failingService) Cluster(context.Context, cluster.Request) (cluster.Response, error) {
	return cluster.Response{}, context.DeadlineExceeded
}

func TestJobCompletesWithDegradedAnalysis(t *testing.T) {
	// The real analyzer with a caller that always returns malformed JSON:
	// the cluster still contributes a fully-populated placeholder result.
	src := &fakeSource{name: "douyin", caps: source.CapFetch, textsPerKw: 10}
	analyzer := insight.NewAnalyzer(brokenCaller{})
	o, _ := newTestOrchestrator(src, &fakeClusterer{}, analyzer)

	id, _ := o.CreateJob(Request{Keywords: []string{"咖啡机"}})
	snap := waitTerminal(t, o, id)
	if snap.Status != StatusCompleted {
		t.Fatalf("degraded analysis must not fail the job: %+v", snap)
	}
	r := snap.Results[0]
	if r.Analysis.PainStatement == "" || r.Analysis.PainDepth == nil || r.Priority == nil {
		t.Fatalf("placeholder result incomplete: %+v", r)
	}
}

type brokenCaller struct{}

func (brokenCaller) GenerateJSON(context.Context, string) (string, error) {
	return "I cannot produce JSON today.", nil
}

func TestJobFailsOnEmptyClustering(t *testing.T) {
	src := &fakeSource{name: "douyin", caps: source.CapFetch, textsPerKw: 10}
	o, store := newTestOrchestrator(src, &fakeClusterer{empty: true}, &fakeAnalyzer{})

	id, _ := o.CreateJob(Request{Keywords: []string{"咖啡机"}})
	snap := waitTerminal(t, o, id)
	if snap.Status != StatusFailed {
		t.Fatalf("expected failed: %+v", snap)
	}
	job, _ := store.Get(id)
	if job.FailureClass != FailureClusteringEmpty {
		t.Fatalf("failure class: %s", job.FailureClass)
	}
}

func TestResultsSortedByOverallDescending(t *testing.T) {
	// Two modalities give two clusters; steer market scores so the comment
	// cluster outranks the video cluster.
	src := &fakeSource{name: "douyin", caps: source.CapFetch | source.CapDeepFetch, deepComments: 30}
	analyzer := &fakeAnalyzer{scores: []float64{0.5, 5.0}}
	o, _ := newTestOrchestrator(src, &fakeClusterer{}, analyzer)

	id, _ := o.CreateJob(Request{Keywords: []string{"咖啡机"}, DeepCrawl: true})
	snap := waitTerminal(t, o, id)
	if snap.Status != StatusCompleted {
		t.Fatalf("status: %+v", snap)
	}
	if len(snap.Results) != 2 {
		t.Fatalf("expected 2 results, got %+v", snap.Results)
	}
	if snap.Results[0].Priority.Overall < snap.Results[1].Priority.Overall {
		t.Fatalf("results not sorted: %+v", snap.Results)
	}
	if snap.Results[0].Modality != painpoint.ModalityComment {
		t.Fatalf("higher-scored comment cluster should rank first: %+v", snap.Results[0])
	}
}

func TestVideoClustersPrecedeCommentClustersInIDOrder(t *testing.T) {
	src := &fakeSource{name: "douyin", caps: source.CapFetch | source.CapDeepFetch, deepComments: 30}
	o, _ := newTestOrchestrator(src, &fakeClusterer{}, &fakeAnalyzer{})

	id, _ := o.CreateJob(Request{Keywords: []string{"咖啡机"}, DeepCrawl: true})
	snap := waitTerminal(t, o, id)
	if snap.Status != StatusCompleted {
		t.Fatalf("status: %+v", snap)
	}
	for _, r := range snap.Results {
		if r.Modality == painpoint.ModalityVideo && r.ClusterID != 0 {
			t.Fatalf("video cluster should be first in cluster order: %+v", r)
		}
	}
}

func TestArchiverReceivesCompletedJob(t *testing.T) {
	src := &fakeSource{name: "douyin", caps: source.CapFetch, textsPerKw: 10}
	arch := &recordingArchiver{done: make(chan Job, 1)}
	store := NewStore(StoreConfig{})
	reg := source.NewRegistry()
	reg.Register(src)
	o := NewOrchestrator(store, reg, &fakeClusterer{}, &fakeAnalyzer{}, OrchestratorConfig{
		Sleep:    func(time.Duration) {},
		Archiver: arch,
	})

	id, _ := o.CreateJob(Request{Keywords: []string{"咖啡机"}})
	waitTerminal(t, o, id)
	select {
	case job := <-arch.done:
		if job.ID != id || job.Status != StatusCompleted {
			t.Fatalf("archived job: %+v", job)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("archiver not invoked")
	}
}

type recordingArchiver struct{ done chan Job }

func (a *recordingArchiver) SaveRun(_ context.Context, job Job) error {
	a.done <- job
	return nil
}

func TestMaxItemsCapsCollectedTexts(t *testing.T) {
	src := &fakeSource{name: "douyin", caps: source.CapFetch, textsPerKw: 50}
	o, _ := newTestOrchestrator(src, &fakeClusterer{}, &fakeAnalyzer{})

	id, _ := o.CreateJob(Request{Keywords: []string{"咖啡机"}, MaxItems: 10})
	snap := waitTerminal(t, o, id)
	if snap.Status != StatusCompleted {
		t.Fatalf("status: %+v", snap)
	}
	if snap.DataQuality.SampleSize != 10 {
		t.Fatalf("max items not applied: %+v", snap.DataQuality)
	}
}
