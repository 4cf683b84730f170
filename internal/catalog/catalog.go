// Package catalog indexes ensemble runs and their first-passage times in
// a SQLite database so distributions can be rebuilt and pooled later.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/san-kum/langevin/internal/config"
	"github.com/san-kum/langevin/internal/ensemble"
)

// FileName is the catalog's file name inside the data directory.
const FileName = "catalog.db"

// timeLayout is fixed-width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Run struct {
	ID       string
	Created  time.Time
	Units    string
	Trials   int
	Absorbed int
	Censored int
	Seed     uint64
	Wall     float64
	Dt       float64
	Duration float64
}

type Sample struct {
	Trial int
	Time  float64
}

// FromEnsemble builds the catalog rows of a finished ensemble.
func FromEnsemble(id string, created time.Time, cfg config.Config, res *ensemble.Result) (Run, []Sample) {
	run := Run{
		ID:       id,
		Created:  created,
		Units:    cfg.Units,
		Trials:   res.Trials,
		Absorbed: res.Absorbed,
		Censored: res.Censored,
		Seed:     cfg.Seed,
		Wall:     cfg.Wall,
		Dt:       cfg.Dt,
		Duration: cfg.Duration,
	}
	samples := make([]Sample, 0, res.Absorbed)
	for _, o := range res.Outcomes {
		if o.Absorbed {
			samples = append(samples, Sample{Trial: o.Index, Time: o.PassageTime})
		}
	}
	return run, samples
}

type Catalog struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func New(path string) *Catalog {
	return &Catalog{path: path}
}

func (c *Catalog) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.path == "" {
		return errors.New("catalog path is required")
	}
	if c.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", c.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	c.db = db
	return nil
}

func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

func (c *Catalog) getDB() (*sql.DB, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.db == nil {
		return nil, errors.New("catalog is not initialized")
	}
	return c.db, nil
}

// RecordRun stores a run and its samples atomically. Recording the same
// run id twice replaces the earlier rows.
func (c *Catalog) RecordRun(ctx context.Context, run Run, samples []Sample) (err error) {
	db, err := c.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM passage_times WHERE run_id = ?`, run.ID); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, created, units, trials, absorbed, censored, seed, wall, dt, duration)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created = excluded.created,
			units = excluded.units,
			trials = excluded.trials,
			absorbed = excluded.absorbed,
			censored = excluded.censored,
			seed = excluded.seed,
			wall = excluded.wall,
			dt = excluded.dt,
			duration = excluded.duration
	`, run.ID, run.Created.UTC().Format(timeLayout), run.Units, run.Trials, run.Absorbed,
		run.Censored, int64(run.Seed), run.Wall, run.Dt, run.Duration)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO passage_times (run_id, trial, time) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range samples {
		if _, err = stmt.ExecContext(ctx, run.ID, s.Trial, s.Time); err != nil {
			return fmt.Errorf("insert sample %d of %s: %w", s.Trial, run.ID, err)
		}
	}
	return tx.Commit()
}

// Runs lists every recorded run, oldest first.
func (c *Catalog) Runs(ctx context.Context) ([]Run, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, created, units, trials, absorbed, censored, seed, wall, dt, duration
		FROM runs ORDER BY created, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (c *Catalog) GetRun(ctx context.Context, id string) (Run, bool, error) {
	db, err := c.getDB()
	if err != nil {
		return Run{}, false, err
	}

	row := db.QueryRowContext(ctx, `
		SELECT id, created, units, trials, absorbed, censored, seed, wall, dt, duration
		FROM runs WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, false, nil
		}
		return Run{}, false, err
	}
	return run, true, nil
}

// Samples returns the pooled first-passage times of the given runs, or of
// every run when no id is given.
func (c *Catalog) Samples(ctx context.Context, runIDs ...string) ([]float64, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}

	query := `SELECT time FROM passage_times`
	args := make([]any, 0, len(runIDs))
	if len(runIDs) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?,", len(runIDs)), ",")
		query += ` WHERE run_id IN (` + marks + `)`
		for _, id := range runIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY run_id, trial`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	samples := make([]float64, 0)
	for rows.Next() {
		var t float64
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		samples = append(samples, t)
	}
	return samples, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		run     Run
		created string
		seed    int64
	)
	err := s.Scan(&run.ID, &created, &run.Units, &run.Trials, &run.Absorbed, &run.Censored,
		&seed, &run.Wall, &run.Dt, &run.Duration)
	if err != nil {
		return Run{}, err
	}
	run.Seed = uint64(seed)
	run.Created, err = time.Parse(timeLayout, created)
	if err != nil {
		return Run{}, fmt.Errorf("run %s: bad timestamp: %w", run.ID, err)
	}
	return run, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created TEXT NOT NULL,
			units TEXT NOT NULL,
			trials INTEGER NOT NULL,
			absorbed INTEGER NOT NULL,
			censored INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			wall REAL NOT NULL,
			dt REAL NOT NULL,
			duration REAL NOT NULL
		);
		CREATE TABLE IF NOT EXISTS passage_times (
			run_id TEXT NOT NULL REFERENCES runs(id),
			trial INTEGER NOT NULL,
			time REAL NOT NULL,
			PRIMARY KEY (run_id, trial)
		);
	`)
	return err
}
