package store

import (
	"fmt"

	"github.com/omr-tools/markwise/internal/model"
)

// ExportAll builds an export-ready view of all stored results together
// with the run metadata.
func (s *Store) ExportAll() (*model.ResultsExport, error) {
	info, err := s.GetRunInfo()
	if err != nil {
		return nil, fmt.Errorf("get run info: %w", err)
	}
	results, err := s.ListResults()
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return &model.ResultsExport{
		EvalID:       info.EvalID,
		Subject:      info.Subject,
		Date:         info.Date,
		NumQuestions: info.NumQuestions,
		Results:      results,
	}, nil
}
