// Package storage records evolution runs in a SQLite database.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// Run is one row of the runs table.
type Run struct {
	ID            string
	Seed          int64
	ConfigPath    string
	StartedAt     time.Time
	FinishedAt    time.Time
	State         string
	WinnerKey     int
	WinnerFitness float64
	Winner        []byte // encoded network, empty until FinishRun
}

// GenerationRow holds the population statistics of one generation.
type GenerationRow struct {
	Generation  int
	Best        float64
	Mean        float64
	Stdev       float64
	Species     int
	Population  int
	BestGenome  int
	BestSpecies int
}

type RunStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewRunStore(path string) *RunStore {
	return &RunStore{path: path}
}

func (s *RunStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
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

	s.db = db
	return nil
}

// CreateRun inserts a new run and returns its id.
func (s *RunStore) CreateRun(ctx context.Context, seed int64, configPath string) (string, error) {
	db, err := s.getDB()
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, seed, config_path, started_at, state)
		VALUES (?, ?, ?, ?, ?)
	`, id, seed, configPath, time.Now().UTC().Format(time.RFC3339Nano), "running")
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	return id, nil
}

func (s *RunStore) AppendGeneration(ctx context.Context, runID string, row GenerationRow) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO generations (run_id, generation, best, mean, stdev, species, population, best_genome, best_species)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, generation) DO UPDATE SET
			best = excluded.best,
			mean = excluded.mean,
			stdev = excluded.stdev,
			species = excluded.species,
			population = excluded.population,
			best_genome = excluded.best_genome,
			best_species = excluded.best_species
	`, runID, row.Generation, row.Best, row.Mean, row.Stdev, row.Species, row.Population, row.BestGenome, row.BestSpecies)
	return err
}

// FinishRun stores the final state and, when non-empty, the encoded winner.
func (s *RunStore) FinishRun(ctx context.Context, runID, state string, winnerKey int, winnerFitness float64, winner []byte) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, state = ?, winner_key = ?, winner_fitness = ?, winner = ?
		WHERE id = ?
	`, time.Now().UTC().Format(time.RFC3339Nano), state, winnerKey, winnerFitness, winner, runID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

func (s *RunStore) GetRun(ctx context.Context, runID string) (Run, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return Run{}, false, err
	}

	var (
		run        Run
		startedAt  string
		finishedAt sql.NullString
		winnerKey  sql.NullInt64
		fitness    sql.NullFloat64
	)
	err = db.QueryRowContext(ctx, `
		SELECT id, seed, config_path, started_at, finished_at, state, winner_key, winner_fitness, winner
		FROM runs WHERE id = ?
	`, runID).Scan(&run.ID, &run.Seed, &run.ConfigPath, &startedAt, &finishedAt, &run.State, &winnerKey, &fitness, &run.Winner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, false, nil
		}
		return Run{}, false, err
	}

	if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return Run{}, false, fmt.Errorf("run %s: %w", runID, err)
	}
	if finishedAt.Valid {
		if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt.String); err != nil {
			return Run{}, false, fmt.Errorf("run %s: %w", runID, err)
		}
	}
	run.WinnerKey = int(winnerKey.Int64)
	run.WinnerFitness = fitness.Float64
	return run, true, nil
}

// Generations returns the recorded generations of a run in order.
func (s *RunStore) Generations(ctx context.Context, runID string) ([]GenerationRow, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT generation, best, mean, stdev, species, population, best_genome, best_species
		FROM generations WHERE run_id = ? ORDER BY generation
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GenerationRow
	for rows.Next() {
		var r GenerationRow
		if err := rows.Scan(&r.Generation, &r.Best, &r.Mean, &r.Stdev, &r.Species, &r.Population, &r.BestGenome, &r.BestSpecies); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *RunStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *RunStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			config_path TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			state TEXT NOT NULL,
			winner_key INTEGER,
			winner_fitness REAL,
			winner BLOB
		);
		CREATE TABLE IF NOT EXISTS generations (
			run_id TEXT NOT NULL REFERENCES runs(id),
			generation INTEGER NOT NULL,
			best REAL NOT NULL,
			mean REAL NOT NULL,
			stdev REAL NOT NULL,
			species INTEGER NOT NULL,
			population INTEGER NOT NULL,
			best_genome INTEGER NOT NULL,
			best_species INTEGER NOT NULL,
			PRIMARY KEY (run_id, generation)
		);
	`)
	return err
}
