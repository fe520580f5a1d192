// Package compare checks produced OMR outputs against a ground-truth
// dataset reviewed by hand, reporting aggregate accuracy.
package compare

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
)

// fileIDColumn keys both datasets.
const fileIDColumn = "file_id"

// RowResult records whether one sheet's output matched the ground truth
// on every shared column.
type RowResult struct {
	FileID string
	Match  bool
}

// Report aggregates one comparison run.
type Report struct {
	Total             int
	Matched           int
	Accuracy          float64 // rounded to 6 decimals, valid when complete
	DuplicatesDropped int     // ground-truth rows dropped for repeated file ids
	MissingIDs        []string
	Rows              []RowResult
}

// Complete reports whether the ground truth covered every output row.
// Accuracy is only meaningful for complete comparisons.
func (r *Report) Complete() bool { return len(r.MissingIDs) == 0 }

type dataset struct {
	columns []string            // response columns, file_id excluded
	rows    map[string][]string // file id -> values parallel to columns
	order   []string            // file ids in file order
}

// Files compares an outputs CSV against a ground-truth CSV. Both carry a
// file_id column; the outputs header defines the compared columns. If the
// ground truth misses any output id, the report carries the sorted
// missing ids instead of an accuracy figure.
func Files(truthPath, outputsPath string) (*Report, error) {
	outputs, err := readDataset(outputsPath, nil)
	if err != nil {
		return nil, err
	}

	truth, err := readDataset(truthPath, outputs.columns)
	if err != nil {
		return nil, err
	}

	report := &Report{Total: len(outputs.order)}

	// Ground-truth duplicates: keep the first row per file id.
	seen := make(map[string]struct{}, len(truth.order))
	for _, id := range truth.order {
		if _, ok := seen[id]; ok {
			report.DuplicatesDropped++
			continue
		}
		seen[id] = struct{}{}
	}
	if report.DuplicatesDropped > 0 {
		slog.Warn("duplicate file ids in ground truth, keeping first occurrence",
			"file", truthPath,
			"dropped", report.DuplicatesDropped,
			"remaining", len(truth.rows))
	}

	for _, id := range outputs.order {
		if _, ok := truth.rows[id]; !ok {
			report.MissingIDs = append(report.MissingIDs, id)
		}
	}
	if len(report.MissingIDs) > 0 {
		sort.Strings(report.MissingIDs)
		slog.Error("insufficient ground-truth data", "missing_file_ids", report.MissingIDs)
		return report, nil
	}

	for _, id := range outputs.order {
		match := rowsEqual(outputs.rows[id], truth.rows[id])
		if match {
			report.Matched++
		}
		report.Rows = append(report.Rows, RowResult{FileID: id, Match: match})
	}
	if report.Total > 0 {
		report.Accuracy = math.Round(float64(report.Matched)/float64(report.Total)*1e6) / 1e6
	}
	return report, nil
}

// readDataset reads a CSV with a header row containing file_id. When
// columns is non-nil only those columns are read, and all must exist.
func readDataset(path string, columns []string) (*dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty file, expected a header row", path)
	}

	header := records[0]
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	idIdx, ok := index[fileIDColumn]
	if !ok {
		return nil, fmt.Errorf("%s: missing %q column", path, fileIDColumn)
	}

	if columns == nil {
		for i, name := range header {
			if i == idIdx {
				continue
			}
			columns = append(columns, name)
		}
	} else {
		for _, name := range columns {
			if _, ok := index[name]; !ok {
				return nil, fmt.Errorf("%s: missing column %q", path, name)
			}
		}
	}

	ds := &dataset{columns: columns, rows: make(map[string][]string)}
	for n, rec := range records[1:] {
		if idIdx >= len(rec) {
			return nil, fmt.Errorf("%s: row %d: missing %q value", path, n+2, fileIDColumn)
		}
		id := rec[idIdx]
		values := make([]string, len(columns))
		for i, name := range columns {
			if ci := index[name]; ci < len(rec) {
				values[i] = rec[ci]
			}
		}
		ds.order = append(ds.order, id)
		// Keep the first row for duplicated ids.
		if _, ok := ds.rows[id]; !ok {
			ds.rows[id] = values
		}
	}
	return ds, nil
}

func rowsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
