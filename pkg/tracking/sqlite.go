package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/TungPhamDuy/azmlproject3/pkg/common"
	"github.com/google/uuid"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// DefaultExperiment names runs started without an experiment id.
const DefaultExperiment = "Default"

// Store is the offline run store backed by SQLite.
type Store struct {
	db     *sql.DB
	dbPath string
}

// OpenStore opens (and creates if needed) the SQLite database at dbPath.
func OpenStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: tracking database path is empty", common.ErrInvalidConfig)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun inserts a new RUNNING run.
func (s *Store) StartRun(ctx context.Context, experiment, name string) (*SQLiteRun, error) {
	if experiment == "" {
		experiment = DefaultExperiment
	}
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, experiment, name, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, experiment, name, string(StatusRunning), time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to insert run: %w", common.ErrTracking, err)
	}
	return &SQLiteRun{store: s, id: id}, nil
}

// RunRecord is a stored run with everything logged against it.
type RunRecord struct {
	ID         string
	Experiment string
	Name       string
	Status     Status
	StartedAt  time.Time
	EndedAt    *time.Time
	Metrics    map[string][]float64 // values in step order
	Params     map[string]string
	Tags       map[string]string
	Artifacts  []string
}

// GetRun loads a run and its logged values.
func (s *Store) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	rec := &RunRecord{
		Metrics: map[string][]float64{},
		Params:  map[string]string{},
		Tags:    map[string]string{},
	}

	var status string
	var ended sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, experiment, name, status, started_at, ended_at FROM runs WHERE id = ?`, id).
		Scan(&rec.ID, &rec.Experiment, &rec.Name, &status, &rec.StartedAt, &ended)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	rec.Status = Status(status)
	if ended.Valid {
		rec.EndedAt = &ended.Time
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM metrics WHERE run_id = ? ORDER BY key, step`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load metrics: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var value float64
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		rec.Metrics[key] = append(rec.Metrics[key], value)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.loadPairs(ctx, `SELECT key, value FROM params WHERE run_id = ?`, id, rec.Params); err != nil {
		return nil, err
	}
	if err := s.loadPairs(ctx, `SELECT key, value FROM tags WHERE run_id = ?`, id, rec.Tags); err != nil {
		return nil, err
	}

	artifacts, err := s.db.QueryContext(ctx,
		`SELECT path FROM artifacts WHERE run_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load artifacts: %w", err)
	}
	defer artifacts.Close()
	for artifacts.Next() {
		var path string
		if err := artifacts.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		rec.Artifacts = append(rec.Artifacts, path)
	}
	return rec, artifacts.Err()
}

func (s *Store) loadPairs(ctx context.Context, query, id string, into map[string]string) error {
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to query run values: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return fmt.Errorf("failed to scan run value: %w", err)
		}
		into[k] = v
	}
	return rows.Err()
}

// SQLiteRun is a run recorded in the local store.
type SQLiteRun struct {
	store     *Store
	id        string
	ownsStore bool
}

func (r *SQLiteRun) ID() string { return r.id }

// LogMetric appends a value; repeated keys get increasing steps.
func (r *SQLiteRun) LogMetric(ctx context.Context, key string, value float64) error {
	_, err := r.store.db.ExecContext(ctx,
		`INSERT INTO metrics (run_id, key, value, step, logged_at)
		 VALUES (?, ?, ?, (SELECT COUNT(*) FROM metrics WHERE run_id = ? AND key = ?), ?)`,
		r.id, key, value, r.id, key, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: failed to log metric %q: %w", common.ErrTracking, key, err)
	}
	return nil
}

func (r *SQLiteRun) LogParam(ctx context.Context, key, value string) error {
	_, err := r.store.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO params (run_id, key, value) VALUES (?, ?, ?)`, r.id, key, value)
	if err != nil {
		return fmt.Errorf("%w: failed to log param %q: %w", common.ErrTracking, key, err)
	}
	return nil
}

func (r *SQLiteRun) SetTag(ctx context.Context, key, value string) error {
	_, err := r.store.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO tags (run_id, key, value) VALUES (?, ?, ?)`, r.id, key, value)
	if err != nil {
		return fmt.Errorf("%w: failed to set tag %q: %w", common.ErrTracking, key, err)
	}
	return nil
}

// LogArtifact records the absolute path of a file produced by the run.
func (r *SQLiteRun) LogArtifact(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve artifact path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("%w: artifact %s: %w", common.ErrTracking, abs, err)
	}
	_, err = r.store.db.ExecContext(ctx,
		`INSERT INTO artifacts (run_id, path) VALUES (?, ?)`, r.id, abs)
	if err != nil {
		return fmt.Errorf("%w: failed to log artifact: %w", common.ErrTracking, err)
	}
	return nil
}

// End sets the terminal status. A run opened through Start also closes its store.
func (r *SQLiteRun) End(ctx context.Context, status Status) error {
	_, err := r.store.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, ended_at = ? WHERE id = ?`, string(status), time.Now().UTC(), r.id)
	if err != nil {
		err = fmt.Errorf("%w: failed to end run: %w", common.ErrTracking, err)
	}
	if r.ownsStore {
		if cerr := r.store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
