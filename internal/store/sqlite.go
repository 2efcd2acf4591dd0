// Package store persists the output of each pipeline stage in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tsawler/sentimen"
	_ "modernc.org/sqlite" // SQLite driver
)

// Store is a SQLite database holding the dataset, its preprocessing, the
// train/test split and classification results. Every Save replaces the
// previous contents of its table in a single transaction.
type Store struct {
	mu sync.RWMutex
	db *sql.DB
}

// Open opens or creates the database at path. The special path ":memory:"
// opens a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS dataset (
		id INTEGER PRIMARY KEY,
		full_text TEXT NOT NULL,
		sentiment_pakar TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS preprocessing (
		id INTEGER PRIMARY KEY,
		full_text TEXT NOT NULL,
		case_folding TEXT NOT NULL,
		cleansing TEXT NOT NULL,
		tokenizing TEXT NOT NULL,
		normalized TEXT NOT NULL,
		stopwords TEXT NOT NULL,
		stemming TEXT NOT NULL,
		sentiment_pakar TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS split_data (
		id INTEGER PRIMARY KEY,
		teks TEXT NOT NULL,
		sentiment_pakar TEXT NOT NULL,
		data_type TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_split_data_type ON split_data(data_type);
	CREATE TABLE IF NOT EXISTS classification_results (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		teks TEXT NOT NULL,
		sentimen_aktual TEXT NOT NULL,
		sentimen_prediksi TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_results_run ON classification_results(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// replace runs fill inside a transaction after emptying table.
func (s *Store) replace(ctx context.Context, table string, fill func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clearing %s: %w", table, err)
	}
	if err := fill(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveDataset replaces the ingested dataset.
func (s *Store) SaveDataset(ctx context.Context, records []sentimen.Record) error {
	return s.replace(ctx, "dataset", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO dataset (id, full_text, sentiment_pakar) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer stmt.Close()
		for _, r := range records {
			if _, err := stmt.ExecContext(ctx, r.ID, r.Text, string(r.Label)); err != nil {
				return fmt.Errorf("inserting record %d: %w", r.ID, err)
			}
		}
		return nil
	})
}

// Dataset returns the stored dataset ordered by id.
func (s *Store) Dataset(ctx context.Context) ([]sentimen.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, full_text, sentiment_pakar FROM dataset ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying dataset: %w", err)
	}
	defer rows.Close()

	var out []sentimen.Record
	for rows.Next() {
		var r sentimen.Record
		var label string
		if err := rows.Scan(&r.ID, &r.Text, &label); err != nil {
			return nil, fmt.Errorf("scanning dataset: %w", err)
		}
		r.Label = sentimen.Label(label)
		out = append(out, r)
	}
	return out, rows.Err()
}

// SavePreprocessing replaces the stored normalization output.
func (s *Store) SavePreprocessing(ctx context.Context, records []sentimen.NormalizedRecord) error {
	return s.replace(ctx, "preprocessing", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO preprocessing
				(id, full_text, case_folding, cleansing, tokenizing, normalized, stopwords, stemming, sentiment_pakar)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer stmt.Close()
		for _, r := range records {
			_, err := stmt.ExecContext(ctx,
				r.ID, r.Text, r.CaseFolded, r.Cleansed,
				r.Tokenized, r.Normalized, r.Filtered, r.Stemmed,
				string(r.Label),
			)
			if err != nil {
				return fmt.Errorf("inserting record %d: %w", r.ID, err)
			}
		}
		return nil
	})
}

// Preprocessed returns the stored normalization output as labeled samples,
// ordered by id.
func (s *Store) Preprocessed(ctx context.Context) ([]sentimen.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, stemming, sentiment_pakar FROM preprocessing
		WHERE sentiment_pakar != ''
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying preprocessing: %w", err)
	}
	defer rows.Close()
	return scanSamples(rows)
}

// SaveSplit replaces the stored train/test split.
func (s *Store) SaveSplit(ctx context.Context, split *sentimen.SplitResult) error {
	return s.replace(ctx, "split_data", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO split_data (id, teks, sentiment_pakar, data_type) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer stmt.Close()
		insert := func(samples []sentimen.Sample, part sentimen.Partition) error {
			for _, smp := range samples {
				if _, err := stmt.ExecContext(ctx, smp.ID, smp.Text, string(smp.Label), string(part)); err != nil {
					return fmt.Errorf("inserting sample %d: %w", smp.ID, err)
				}
			}
			return nil
		}
		if err := insert(split.Train, sentimen.Training); err != nil {
			return err
		}
		return insert(split.Test, sentimen.Testing)
	})
}

// Split returns the stored partitions, each ordered by id.
func (s *Store) Split(ctx context.Context) (train, test []sentimen.Sample, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	load := func(part sentimen.Partition) ([]sentimen.Sample, error) {
		rows, err := s.db.QueryContext(ctx,
			`SELECT id, teks, sentiment_pakar FROM split_data WHERE data_type = ? ORDER BY id`, string(part))
		if err != nil {
			return nil, fmt.Errorf("querying split_data: %w", err)
		}
		defer rows.Close()
		return scanSamples(rows)
	}
	if train, err = load(sentimen.Training); err != nil {
		return nil, nil, err
	}
	if test, err = load(sentimen.Testing); err != nil {
		return nil, nil, err
	}
	return train, test, nil
}

func scanSamples(rows *sql.Rows) ([]sentimen.Sample, error) {
	var out []sentimen.Sample
	for rows.Next() {
		var smp sentimen.Sample
		var label string
		if err := rows.Scan(&smp.ID, &smp.Text, &label); err != nil {
			return nil, fmt.Errorf("scanning sample: %w", err)
		}
		smp.Label = sentimen.Label(label)
		out = append(out, smp)
	}
	return out, rows.Err()
}

// SaveResults replaces the stored classification results with those of one
// run. An empty runID is replaced by a fresh one, which is returned.
func (s *Store) SaveResults(ctx context.Context, runID string, predictions []sentimen.Prediction) (string, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	now := time.Now().UTC()
	err := s.replace(ctx, "classification_results", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO classification_results (run_id, teks, sentimen_aktual, sentimen_prediksi, created_at)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer stmt.Close()
		for i, p := range predictions {
			if _, err := stmt.ExecContext(ctx, runID, p.Text, string(p.Actual), string(p.Predicted), now); err != nil {
				return fmt.Errorf("inserting prediction %d: %w", i, err)
			}
		}
		return nil
	})
	return runID, err
}

// Results returns the stored predictions of runID in insertion order.
func (s *Store) Results(ctx context.Context, runID string) ([]sentimen.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT teks, sentimen_aktual, sentimen_prediksi FROM classification_results
		WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var out []sentimen.Prediction
	for rows.Next() {
		var p sentimen.Prediction
		var actual, predicted string
		if err := rows.Scan(&p.Text, &actual, &predicted); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		p.Actual, p.Predicted = sentimen.Label(actual), sentimen.Label(predicted)
		out = append(out, p)
	}
	return out, rows.Err()
}
