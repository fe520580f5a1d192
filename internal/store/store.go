package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/omr-tools/markwise/internal/model"

	_ "modernc.org/sqlite"
)

// Store persists per-sheet scores and run metadata in SQLite.
type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS results (
		file_id TEXT PRIMARY KEY,
		score REAL NOT NULL DEFAULT 0,
		evaluation TEXT NOT NULL DEFAULT '',
		scored_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS run_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveResult upserts one sheet's score. Rescoring the same file id
// replaces the previous result.
func (s *Store) SaveResult(r model.Result) error {
	scoredAt := r.ScoredAt
	if scoredAt.IsZero() {
		scoredAt = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO results (file_id, score, evaluation, scored_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(file_id) DO UPDATE SET score = ?, evaluation = ?, scored_at = ?`,
		r.FileID, r.Score, r.Evaluation, scoredAt, r.Score, r.Evaluation, scoredAt,
	)
	return err
}

// GetResult returns the result for a file id, or nil if absent.
func (s *Store) GetResult(fileID string) (*model.Result, error) {
	var r model.Result
	err := s.db.QueryRow(
		`SELECT file_id, score, evaluation, scored_at FROM results WHERE file_id = ?`, fileID,
	).Scan(&r.FileID, &r.Score, &r.Evaluation, &r.ScoredAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListResults returns all results ordered by file id.
func (s *Store) ListResults() ([]model.Result, error) {
	rows, err := s.db.Query(`SELECT file_id, score, evaluation, scored_at FROM results ORDER BY file_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.Result
	for rows.Next() {
		var r model.Result
		if err := rows.Scan(&r.FileID, &r.Score, &r.Evaluation, &r.ScoredAt); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ResultCount returns the number of stored results.
func (s *Store) ResultCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM results`).Scan(&count)
	return count, err
}
