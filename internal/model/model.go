package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Response is one sheet's concatenated response: a mapping from every
// answer-key question id to the marked value read off the sheet. The
// "no mark" sentinel value is owned by the template configuration, not
// by this package.
type Response map[string]string

// responseFile is the on-disk shape produced by the image-processing
// stage. A bare map is also accepted.
type responseFile struct {
	ConcatenatedResponse Response `json:"concatenated_response"`
}

// LoadResponse reads a concatenated response from a JSON file.
func LoadResponse(path string) (Response, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", path, err)
	}

	var rf responseFile
	if err := json.Unmarshal(data, &rf); err == nil && rf.ConcatenatedResponse != nil {
		return rf.ConcatenatedResponse, nil
	}

	var bare Response
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("parse response %s: %w", path, err)
	}
	return bare, nil
}

// FileID derives the identifier for a response file: the base name
// without its extension.
func FileID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Result is one scored sheet.
type Result struct {
	FileID     string    `json:"file_id"`
	Score      float64   `json:"score"`
	Evaluation string    `json:"evaluation"`
	ScoredAt   time.Time `json:"scored_at"`
}

// RunInfo describes one scoring run, stored alongside its results.
type RunInfo struct {
	EvalID       string
	Subject      string
	Date         string
	NumQuestions int
}

// ResultsExport is the top-level JSON structure for result export.
type ResultsExport struct {
	EvalID       string   `json:"eval_id"`
	Subject      string   `json:"subject"`
	Date         string   `json:"date"`
	NumQuestions int      `json:"num_questions"`
	Results      []Result `json:"results"`
}
