// Package runindex keeps a local SQLite history of consolidation runs.
//
// The index is derived data: everything in it can be rebuilt from the
// change log and the versioned artifacts. It exists so `lasso history`
// can answer "what ran, over which inputs, and what came out" without
// re-parsing artifacts.
package runindex

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	periods TEXT NOT NULL,
	threshold INTEGER NOT NULL,
	scorer TEXT NOT NULL,
	samples INTEGER NOT NULL,
	clusters INTEGER NOT NULL,
	version INTEGER,
	output_hash TEXT NOT NULL,
	changes INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS run_inputs (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	period TEXT NOT NULL,
	checksum TEXT NOT NULL,
	PRIMARY KEY (run_id, period)
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Run is one recorded consolidation.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Periods    []string
	Threshold  int
	Scorer     string
	Samples    int
	Clusters   int
	Version    int // 0 when the run allocated no new version
	OutputHash string
	Changes    int
	Inputs     map[string]string // period -> input checksum
}

// Store is a handle on the run-index database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the index at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("failed to open run index: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping run index: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize run index schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one run and its per-period inputs atomically.
func (s *Store) Record(ctx context.Context, run *Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var version sql.NullInt64
	if run.Version > 0 {
		version = sql.NullInt64{Int64: int64(run.Version), Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, periods, threshold, scorer,
			samples, clusters, version, output_hash, changes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339),
		strings.Join(run.Periods, ","),
		run.Threshold,
		run.Scorer,
		run.Samples,
		run.Clusters,
		version,
		run.OutputHash,
		run.Changes,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for period, checksum := range run.Inputs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_inputs (run_id, period, checksum)
			VALUES (?, ?, ?)`,
			run.ID, period, checksum,
		); err != nil {
			return fmt.Errorf("failed to insert run input %s: %w", period, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first, inputs included.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, periods, threshold, scorer,
			samples, clusters, version, output_hash, changes
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var startedAt, finishedAt, periods string
		var version sql.NullInt64
		if err := rows.Scan(&run.ID, &startedAt, &finishedAt, &periods, &run.Threshold,
			&run.Scorer, &run.Samples, &run.Clusters, &version, &run.OutputHash, &run.Changes); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt, err = time.Parse(time.RFC3339, startedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse started_at: %w", err)
		}
		run.FinishedAt, err = time.Parse(time.RFC3339, finishedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse finished_at: %w", err)
		}
		if periods != "" {
			run.Periods = strings.Split(periods, ",")
		}
		if version.Valid {
			run.Version = int(version.Int64)
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	for _, run := range runs {
		inputs, err := s.runInputs(ctx, run.ID)
		if err != nil {
			return nil, err
		}
		run.Inputs = inputs
	}
	return runs, nil
}

func (s *Store) runInputs(ctx context.Context, runID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT period, checksum FROM run_inputs WHERE run_id = ? ORDER BY period`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run inputs: %w", err)
	}
	defer rows.Close()

	inputs := make(map[string]string)
	for rows.Next() {
		var period, checksum string
		if err := rows.Scan(&period, &checksum); err != nil {
			return nil, fmt.Errorf("failed to scan run input: %w", err)
		}
		inputs[period] = checksum
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate run inputs: %w", err)
	}
	return inputs, nil
}

// Prune deletes runs that started before cutoff, cascading to their
// recorded inputs. It returns the number of runs removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE started_at < ?`, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned runs: %w", err)
	}
	return n, nil
}
