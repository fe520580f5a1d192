package store

import (
	"database/sql"
	"strconv"

	"github.com/omr-tools/markwise/internal/model"
)

// SetMetadata upserts a key-value pair in the run_metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO run_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM run_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetRunInfo stores all RunInfo fields as metadata rows.
func (s *Store) SetRunInfo(info model.RunInfo) error {
	pairs := []struct{ k, v string }{
		{"eval_id", info.EvalID},
		{"subject", info.Subject},
		{"date", info.Date},
		{"num_questions", strconv.Itoa(info.NumQuestions)},
	}
	for _, p := range pairs {
		if err := s.SetMetadata(p.k, p.v); err != nil {
			return err
		}
	}
	return nil
}

// GetRunInfo reads all RunInfo fields from metadata.
func (s *Store) GetRunInfo() (model.RunInfo, error) {
	var info model.RunInfo
	var err error

	if info.EvalID, err = s.GetMetadata("eval_id"); err != nil {
		return info, err
	}
	if info.Subject, err = s.GetMetadata("subject"); err != nil {
		return info, err
	}
	if info.Date, err = s.GetMetadata("date"); err != nil {
		return info, err
	}
	nq, err := s.GetMetadata("num_questions")
	if err != nil {
		return info, err
	}
	if nq != "" {
		info.NumQuestions, err = strconv.Atoi(nq)
		if err != nil {
			return info, err
		}
	}
	return info, nil
}
