package jobs

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"
)

type StoreConfig struct {
	RetentionAge  time.Duration // terminal jobs older than this are evicted
	SweepInterval time.Duration
	Clock         func() time.Time
}

func (c StoreConfig) withDefaults() StoreConfig {
	if c.RetentionAge <= 0 {
		c.RetentionAge = 24 * time.Hour
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 1 * time.Hour
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}

// Store is the mutex-guarded job table. Each job's record is written only by
// that job's own task; reads return copies so pollers never observe an
// in-flight write.
type Store struct {
	mu   sync.Mutex
	cfg  StoreConfig
	jobs map[string]*Job
}

func NewStore(cfg StoreConfig) *Store {
	return &Store{cfg: cfg.withDefaults(), jobs: map[string]*Job{}}
}

func (s *Store) Create(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := job
	s.jobs[job.ID] = &j
}

// Get returns a copy of the job. Slice fields are shared with the stored
// record but are only ever replaced wholesale, never appended to in place.
func (s *Store) Get(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// Update applies fn to the job under the lock. Terminal jobs are immutable:
// fn is not invoked once the job has completed or failed.
func (s *Store) Update(id string, fn func(*Job)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.Status.Terminal() {
		return false
	}
	fn(j)
	return true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// List returns copies of all jobs, newest first.
func (s *Store) List() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, *j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].StartedAt.After(out[k].StartedAt) })
	return out
}

// Sweep evicts terminal jobs whose run started more than RetentionAge ago.
// In-flight jobs are never evicted.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.cfg.Clock().Add(-s.cfg.RetentionAge)
	evicted := 0
	for id, j := range s.jobs {
		if j.Status.Terminal() && j.StartedAt.Before(cutoff) {
			delete(s.jobs, id)
			evicted++
		}
	}
	return evicted
}

// Run sweeps periodically until the context is cancelled.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				log.Printf("job store sweep evicted %d job(s)", n)
			}
		}
	}
}
