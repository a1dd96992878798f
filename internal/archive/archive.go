// Package archive persists finished analysis runs to SQLite as audit
// records. Jobs themselves stay memory-resident; the archive is a
// write-once log consulted by reporting tools, never read back into the job
// table.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/joelkehle/painradar/internal/jobs"
	"github.com/joelkehle/painradar/internal/painpoint"
)

var ErrRunNotFound = errors.New("archived run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	job_id        TEXT PRIMARY KEY,
	status        TEXT NOT NULL,
	keywords      TEXT NOT NULL DEFAULT '[]',
	source        TEXT NOT NULL DEFAULT '',
	deep_crawl    INTEGER NOT NULL DEFAULT 0,
	degraded      INTEGER NOT NULL DEFAULT 0,
	error         TEXT NOT NULL DEFAULT '',
	failure_class TEXT NOT NULL DEFAULT '',
	sample_size   INTEGER NOT NULL DEFAULT 0,
	quality_level TEXT NOT NULL DEFAULT '',
	started_at    TEXT NOT NULL,
	finished_at   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS run_results (
	job_id       TEXT NOT NULL,
	position     INTEGER NOT NULL,
	cluster_id   INTEGER NOT NULL,
	cluster_size INTEGER NOT NULL,
	modality     TEXT NOT NULL,
	overall      REAL NOT NULL DEFAULT 0,
	level        TEXT NOT NULL DEFAULT '',
	payload      TEXT NOT NULL,
	PRIMARY KEY (job_id, position)
);
`

// Store is the SQLite-backed run archive. It implements jobs.RunArchiver.
type Store struct {
	db *sqlx.DB
}

func Open(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// SaveRun writes the run header and its ranked results in one transaction.
// Re-archiving the same job id replaces the previous record.
func (s *Store) SaveRun(ctx context.Context, job jobs.Job) error {
	keywords, err := json.Marshal(job.Request.Keywords)
	if err != nil {
		return fmt.Errorf("encode keywords: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer tx.Rollback()

	sampleSize := 0
	qualityLevel := ""
	if job.Quality != nil {
		sampleSize = job.Quality.SampleSize
		qualityLevel = string(job.Quality.Level)
	}
	finishedAt := ""
	if !job.FinishedAt.IsZero() {
		finishedAt = job.FinishedAt.UTC().Format("2006-01-02T15:04:05Z")
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
		(job_id, status, keywords, source, deep_crawl, degraded, error, failure_class,
		 sample_size, quality_level, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, string(job.Status), string(keywords), job.Request.Source,
		job.Request.DeepCrawl, job.Degraded, job.Error, string(job.FailureClass),
		sampleSize, qualityLevel,
		job.StartedAt.UTC().Format("2006-01-02T15:04:05Z"), finishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_results WHERE job_id = ?`, job.ID); err != nil {
		return fmt.Errorf("clear run results: %w", err)
	}
	for i, r := range job.Results {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode result %d: %w", i, err)
		}
		overall := 0.0
		level := ""
		if r.Priority != nil {
			overall = r.Priority.Overall
			level = string(r.Priority.Level)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_results
			(job_id, position, cluster_id, cluster_size, modality, overall, level, payload)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			job.ID, i, r.ClusterID, r.ClusterSize, string(r.Modality), overall, level, string(payload),
		)
		if err != nil {
			return fmt.Errorf("insert result %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// RunRecord is one archived run header.
type RunRecord struct {
	JobID        string   `db:"job_id"`
	Status       string   `db:"status"`
	Keywords     []string `db:"-"`
	RawKeywords  string   `db:"keywords"`
	Source       string   `db:"source"`
	DeepCrawl    bool     `db:"deep_crawl"`
	Degraded     bool     `db:"degraded"`
	Error        string   `db:"error"`
	FailureClass string   `db:"failure_class"`
	SampleSize   int      `db:"sample_size"`
	QualityLevel string   `db:"quality_level"`
	StartedAt    string   `db:"started_at"`
	FinishedAt   string   `db:"finished_at"`
}

// GetRun loads one archived run and its results in stored (ranked) order.
func (s *Store) GetRun(ctx context.Context, jobID string) (RunRecord, []painpoint.AnalysisResult, error) {
	var rec RunRecord
	err := s.db.GetContext(ctx, &rec, `SELECT * FROM runs WHERE job_id = ?`, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, nil, ErrRunNotFound
	}
	if err != nil {
		return RunRecord{}, nil, fmt.Errorf("load run: %w", err)
	}
	if err := json.Unmarshal([]byte(rec.RawKeywords), &rec.Keywords); err != nil {
		return RunRecord{}, nil, fmt.Errorf("decode keywords: %w", err)
	}

	var payloads []string
	err = s.db.SelectContext(ctx, &payloads,
		`SELECT payload FROM run_results WHERE job_id = ? ORDER BY position`, jobID)
	if err != nil {
		return RunRecord{}, nil, fmt.Errorf("load run results: %w", err)
	}
	results := make([]painpoint.AnalysisResult, 0, len(payloads))
	for i, p := range payloads {
		var r painpoint.AnalysisResult
		if err := json.Unmarshal([]byte(p), &r); err != nil {
			return RunRecord{}, nil, fmt.Errorf("decode result %d: %w", i, err)
		}
		results = append(results, r)
	}
	return rec, results, nil
}

// ListRuns returns run headers, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var recs []RunRecord
	err := s.db.SelectContext(ctx, &recs,
		`SELECT * FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	for i := range recs {
		if err := json.Unmarshal([]byte(recs[i].RawKeywords), &recs[i].Keywords); err != nil {
			return nil, fmt.Errorf("decode keywords: %w", err)
		}
	}
	return recs, nil
}
