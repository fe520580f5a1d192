package compare

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestFilesAllMatch(t *testing.T) {
	dir := t.TempDir()
	truth := writeCSV(t, dir, "truth.csv",
		"file_id,q1,q2\nsheet1,A,B\nsheet2,C,D\n")
	outputs := writeCSV(t, dir, "outputs.csv",
		"file_id,q1,q2\nsheet1,A,B\nsheet2,C,D\n")

	report, err := Files(truth, outputs)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if !report.Complete() {
		t.Fatalf("expected complete report, missing %v", report.MissingIDs)
	}
	if report.Total != 2 || report.Matched != 2 {
		t.Errorf("total/matched = %d/%d, want 2/2", report.Total, report.Matched)
	}
	if report.Accuracy != 1.0 {
		t.Errorf("accuracy = %v, want 1", report.Accuracy)
	}
}

func TestFilesPartialMatch(t *testing.T) {
	dir := t.TempDir()
	truth := writeCSV(t, dir, "truth.csv",
		"file_id,q1,q2\nsheet1,A,B\nsheet2,C,D\nsheet3,E,F\n")
	outputs := writeCSV(t, dir, "outputs.csv",
		"file_id,q1,q2\nsheet1,A,B\nsheet2,C,X\nsheet3,E,F\n")

	report, err := Files(truth, outputs)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if report.Matched != 2 {
		t.Errorf("matched = %d, want 2", report.Matched)
	}
	if want := 0.666667; report.Accuracy != want {
		t.Errorf("accuracy = %v, want %v (6 decimals)", report.Accuracy, want)
	}

	var mismatched []string
	for _, row := range report.Rows {
		if !row.Match {
			mismatched = append(mismatched, row.FileID)
		}
	}
	if !reflect.DeepEqual(mismatched, []string{"sheet2"}) {
		t.Errorf("mismatched = %v, want [sheet2]", mismatched)
	}
}

func TestFilesMissingIDs(t *testing.T) {
	dir := t.TempDir()
	truth := writeCSV(t, dir, "truth.csv",
		"file_id,q1\nsheet1,A\n")
	outputs := writeCSV(t, dir, "outputs.csv",
		"file_id,q1\nsheet1,A\nsheet3,C\nsheet2,B\n")

	report, err := Files(truth, outputs)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if report.Complete() {
		t.Fatal("expected incomplete report")
	}
	if !reflect.DeepEqual(report.MissingIDs, []string{"sheet2", "sheet3"}) {
		t.Errorf("MissingIDs = %v, want sorted [sheet2 sheet3]", report.MissingIDs)
	}
}

func TestFilesDuplicateTruthRows(t *testing.T) {
	dir := t.TempDir()
	// The first sheet1 row is authoritative; the second is dropped.
	truth := writeCSV(t, dir, "truth.csv",
		"file_id,q1\nsheet1,A\nsheet1,Z\nsheet2,B\n")
	outputs := writeCSV(t, dir, "outputs.csv",
		"file_id,q1\nsheet1,A\nsheet2,B\n")

	report, err := Files(truth, outputs)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if report.DuplicatesDropped != 1 {
		t.Errorf("DuplicatesDropped = %d, want 1", report.DuplicatesDropped)
	}
	if report.Matched != 2 {
		t.Errorf("matched = %d, want 2 (first duplicate row wins)", report.Matched)
	}
}

func TestFilesColumnSubset(t *testing.T) {
	dir := t.TempDir()
	// Ground truth may carry extra columns; only output columns compare.
	truth := writeCSV(t, dir, "truth.csv",
		"file_id,reviewer,q1\nsheet1,alice,A\n")
	outputs := writeCSV(t, dir, "outputs.csv",
		"file_id,q1\nsheet1,A\n")

	report, err := Files(truth, outputs)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if report.Matched != 1 {
		t.Errorf("matched = %d, want 1", report.Matched)
	}
}

func TestFilesMissingColumn(t *testing.T) {
	dir := t.TempDir()
	truth := writeCSV(t, dir, "truth.csv", "file_id,q1\nsheet1,A\n")
	outputs := writeCSV(t, dir, "outputs.csv", "file_id,q1,q2\nsheet1,A,B\n")

	if _, err := Files(truth, outputs); err == nil {
		t.Fatal("expected error for ground truth missing column q2")
	}
}

func TestFilesMissingFileIDColumn(t *testing.T) {
	dir := t.TempDir()
	truth := writeCSV(t, dir, "truth.csv", "id,q1\nsheet1,A\n")
	outputs := writeCSV(t, dir, "outputs.csv", "file_id,q1\nsheet1,A\n")

	if _, err := Files(truth, outputs); err == nil {
		t.Fatal("expected error for missing file_id column")
	}
}
