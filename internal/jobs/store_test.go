package jobs

import (
	"testing"
	"time"
)

func TestStoreCreateGet(t *testing.T) {
	s := NewStore(StoreConfig{})
	s.Create(Job{ID: "j1", Status: StatusProcessing, Progress: "initializing"})

	job, ok := s.Get("j1")
	if !ok || job.ID != "j1" || job.Status != StatusProcessing {
		t.Fatalf("Get: %+v ok=%v", job, ok)
	}
	if _, ok := s.Get("missing"); ok {
		t.Fatal("missing job must not be found")
	}
}

func TestStoreUpdate(t *testing.T) {
	s := NewStore(StoreConfig{})
	s.Create(Job{ID: "j1", Status: StatusProcessing})

	if !s.Update("j1", func(j *Job) { j.Progress = "clustering" }) {
		t.Fatal("update on live job should succeed")
	}
	job, _ := s.Get("j1")
	if job.Progress != "clustering" {
		t.Fatalf("progress: %q", job.Progress)
	}
	if s.Update("missing", func(j *Job) {}) {
		t.Fatal("update on missing job should report false")
	}
}

func TestStoreTerminalJobsAreImmutable(t *testing.T) {
	s := NewStore(StoreConfig{})
	s.Create(Job{ID: "j1", Status: StatusProcessing})
	s.Update("j1", func(j *Job) {
		j.Status = StatusFailed
		j.Error = "no usable text collected"
	})

	if s.Update("j1", func(j *Job) { j.Error = "overwritten" }) {
		t.Fatal("terminal job must reject updates")
	}
	job, _ := s.Get("j1")
	if job.Error != "no usable text collected" {
		t.Fatalf("terminal state mutated: %+v", job)
	}
}

func TestStoreSweepEvictsOldTerminalJobs(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	s := NewStore(StoreConfig{
		RetentionAge: 24 * time.Hour,
		Clock:        func() time.Time { return now },
	})
	s.Create(Job{ID: "old-done", Status: StatusProcessing, StartedAt: now.Add(-48 * time.Hour)})
	s.Update("old-done", func(j *Job) { j.Status = StatusCompleted })
	s.Create(Job{ID: "old-running", Status: StatusProcessing, StartedAt: now.Add(-48 * time.Hour)})
	s.Create(Job{ID: "fresh", Status: StatusProcessing, StartedAt: now.Add(-1 * time.Hour)})
	s.Update("fresh", func(j *Job) { j.Status = StatusFailed })

	if n := s.Sweep(); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if _, ok := s.Get("old-done"); ok {
		t.Fatal("old terminal job should be evicted")
	}
	if _, ok := s.Get("old-running"); !ok {
		t.Fatal("in-flight job must never be evicted")
	}
	if _, ok := s.Get("fresh"); !ok {
		t.Fatal("fresh terminal job must be kept")
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	s := NewStore(StoreConfig{})
	s.Create(Job{ID: "a", StartedAt: base})
	s.Create(Job{ID: "b", StartedAt: base.Add(time.Minute)})

	list := s.List()
	if len(list) != 2 || list[0].ID != "b" || list[1].ID != "a" {
		t.Fatalf("list order: %+v", list)
	}
}

func TestSnapshotHidesResultsUntilCompleted(t *testing.T) {
	j := Job{ID: "j1", Status: StatusProcessing, Progress: "clustering"}
	j.Results = nil
	snap := j.Snapshot()
	if snap.Results != nil || snap.DataQuality != nil || snap.Error != "" {
		t.Fatalf("processing snapshot leaks fields: %+v", snap)
	}

	j.Status = StatusFailed
	j.Error = "boom"
	snap = j.Snapshot()
	if snap.Error != "boom" || snap.Results != nil {
		t.Fatalf("failed snapshot: %+v", snap)
	}
}
