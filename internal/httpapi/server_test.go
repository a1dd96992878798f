package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/joelkehle/painradar/internal/insight"
	"github.com/joelkehle/painradar/internal/jobs"
	"github.com/joelkehle/painradar/internal/painpoint"
	"github.com/joelkehle/painradar/internal/source"
)

type stubSource struct{ texts int }

func (s *stubSource) Name() string                    { return "douyin" }
func (s *stubSource) Capabilities() source.Capability { return source.CapFetch }
func (s *stubSource) CheckAvailability(context.Context) bool {
	return true
}
func (s *stubSource) SearchWithComments(context.Context, string, source.DeepFetchOptions) (source.DeepFetchResult, error) {
	return source.DeepFetchResult{}, source.ErrUnsupported
}
func (s *stubSource) SearchAndFetch(_ context.Context, keyword string, _ int) (source.FetchResult, error) {
	var r source.FetchResult
	for i := 0; i < s.texts; i++ {
		r.RawTexts = append(r.RawTexts, fmt.Sprintf("%s 价格太贵了完全用不起 %d", keyword, i))
	}
	r.Count = len(r.RawTexts)
	return r, nil
}

type stubClusterer struct{}

func (stubClusterer) Cluster(_ context.Context, texts []string, m painpoint.Modality) ([]painpoint.Cluster, bool) {
	if len(texts) == 0 {
		return nil, false
	}
	return []painpoint.Cluster{{Modality: m, Texts: texts}}, false
}

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(context.Context, insight.ClusterInput) painpoint.AnalysisPayload {
	return insight.DegradedPayload(insight.ClusterInput{Texts: []string{"价格太贵"}})
}

func newTestServer(t *testing.T, texts int) (http.Handler, *jobs.Orchestrator) {
	t.Helper()
	reg := source.NewRegistry()
	reg.Register(&stubSource{texts: texts})
	orch := jobs.NewOrchestrator(jobs.NewStore(jobs.StoreConfig{}), reg, stubClusterer{}, stubAnalyzer{}, jobs.OrchestratorConfig{
		Sleep: func(time.Duration) {},
	})
	return NewServer(orch, reg), orch
}

func postJob(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateJobAccepted(t *testing.T) {
	h, _ := newTestServer(t, 10)
	rec := postJob(t, h, `{"keywords": ["咖啡机"]}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		OK     bool   `json:"ok"`
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.OK || resp.JobID == "" || resp.Status != "processing" {
		t.Fatalf("response: %+v", resp)
	}
}

func TestCreateJobRejectsInvalidKeywords(t *testing.T) {
	h, _ := newTestServer(t, 10)
	for _, body := range []string{`{}`, `{"keywords": []}`, `{"keywords": ["  "]}`, `not json`} {
		rec := postJob(t, h, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status %d", body, rec.Code)
			continue
		}
		var resp struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.Error.Code != "invalid_input" {
			t.Errorf("body %q: error code %q", body, resp.Error.Code)
		}
	}
}

func TestGetJobPollsToCompletion(t *testing.T) {
	h, _ := newTestServer(t, 10)
	rec := postJob(t, h, `{"keywords": ["咖啡机"]}`)
	var created struct {
		JobID string `json:"job_id"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &created)

	deadline := time.Now().Add(5 * time.Second)
	for {
		req := httptest.NewRequest(http.MethodGet, "/v1/jobs/"+created.JobID, nil)
		poll := httptest.NewRecorder()
		h.ServeHTTP(poll, req)
		if poll.Code != http.StatusOK {
			t.Fatalf("poll status %d: %s", poll.Code, poll.Body.String())
		}
		var snap jobs.Snapshot
		if err := json.Unmarshal(poll.Body.Bytes(), &snap); err != nil {
			t.Fatalf("decode snapshot: %v", err)
		}
		if snap.Status.Terminal() {
			if snap.Status != jobs.StatusCompleted {
				t.Fatalf("job failed: %s", snap.Error)
			}
			if len(snap.Results) == 0 || snap.DataQuality == nil {
				t.Fatalf("completed snapshot incomplete: %+v", snap)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("job never finished")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestGetJobNotFound(t *testing.T) {
	h, _ := newTestServer(t, 10)
	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/nope", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestListJobs(t *testing.T) {
	h, _ := newTestServer(t, 10)
	postJob(t, h, `{"keywords": ["咖啡机"]}`)
	postJob(t, h, `{"keywords": ["吹风机"]}`)

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp struct {
		Jobs []jobs.Snapshot `json:"jobs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Jobs) != 2 {
		t.Fatalf("jobs: %+v", resp.Jobs)
	}
}

func TestSourcesAndHealth(t *testing.T) {
	h, _ := newTestServer(t, 10)

	req := httptest.NewRequest(http.MethodGet, "/v1/sources", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "douyin") {
		t.Fatalf("sources: %d %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newTestServer(t, 10)
	req := httptest.NewRequest(http.MethodDelete, "/v1/jobs", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status %d", rec.Code)
	}
}
