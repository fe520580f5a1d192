package evaluation

import (
	"errors"
	"math"
	"testing"

	"github.com/omr-tools/markwise/internal/model"
)

func TestEvaluateDefaultSection(t *testing.T) {
	cfg := loadTestConfig(t, "evaluation.json", defaultOnlyEval)

	score, err := Evaluate(model.Response{"q1": "A", "q2": "C"}, cfg)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if math.Abs(score-0.75) > 1e-9 {
		t.Errorf("score = %v, want 0.75", score)
	}
}

func TestEvaluateStreakSchedule(t *testing.T) {
	cfg := loadTestConfig(t, "evaluation.json", `{
	  "source_type": "custom",
	  "options": {
	    "questions_in_order": ["q1..5"],
	    "answers_in_order": ["A", "A", "A", "A", "A"]
	  },
	  "marking_scheme": {
	    "DEFAULT": {"correct": 1, "incorrect": [0, -1, -2], "unmarked": 0}
	  }
	}`)

	// q1..q3 walk the schedule (0, -1, -2), q4 clamps (-2), q5 is correct (+1).
	response := model.Response{"q1": "B", "q2": "B", "q3": "B", "q4": "B", "q5": "A"}
	score, err := Evaluate(response, cfg)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if want := -4.0; score != want {
		t.Errorf("score = %v, want %v", score, want)
	}
}

func TestEvaluateSectionsAndCatchAll(t *testing.T) {
	cfg := loadTestConfig(t, "evaluation.json", `{
	  "source_type": "custom",
	  "options": {
	    "questions_in_order": ["q1..3"],
	    "answers_in_order": ["A", "B", "C"]
	  },
	  "marking_scheme": {
	    "DEFAULT": {"correct": 1, "incorrect": 0, "unmarked": 0},
	    "WEIGHTED": {
	      "questions": ["q1"],
	      "marking": {"correct": 5, "incorrect": -1, "unmarked": 0}
	    }
	  }
	}`)

	// q1 scores under WEIGHTED, q2 and q3 fall to the catch-all.
	score, err := Evaluate(model.Response{"q1": "A", "q2": "B", "q3": "X"}, cfg)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if want := 6.0; score != want {
		t.Errorf("score = %v, want %v", score, want)
	}
}

func TestEvaluateUnmarkedSentinel(t *testing.T) {
	path := writeTestFile(t, t.TempDir(), "evaluation.json", defaultOnlyEval)
	cfg, err := Load(path, "--")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	score, err := Evaluate(model.Response{"q1": "--", "q2": "B"}, cfg)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	// q1 unmarked (0), q2 correct (+1).
	if want := 1.0; score != want {
		t.Errorf("score = %v, want %v", score, want)
	}
}

func TestEvaluateValidatesFirst(t *testing.T) {
	cfg := loadTestConfig(t, "evaluation.json", defaultOnlyEval)

	_, err := Evaluate(model.Response{"q1": "A"}, cfg)
	var respErr *ResponseCoverageError
	if !errors.As(err, &respErr) {
		t.Fatalf("error = %v, want ResponseCoverageError", err)
	}
	// No partial state: the failed call must not advance streaks.
	for _, v := range Verdicts {
		if got := cfg.DefaultScheme().Streak(v); got != 0 {
			t.Errorf("Streak(%v) after failed validation = %d, want 0", v, got)
		}
	}
}

func TestEvaluateTrace(t *testing.T) {
	cfg := loadTestConfig(t, "evaluation.json", `{
	  "source_type": "custom",
	  "options": {
	    "should_explain_scoring": true,
	    "questions_in_order": ["q1", "q2", "q3"],
	    "answers_in_order": ["A", "B", "C"]
	  },
	  "marking_scheme": {
	    "DEFAULT": {"correct": 1, "incorrect": -0.25, "unmarked": 0}
	  }
	}`)

	_, err := Evaluate(model.Response{"q1": "A", "q2": "X", "q3": ""}, cfg)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	rows := cfg.Trace()
	if len(rows) != 3 {
		t.Fatalf("trace rows = %d, want 3", len(rows))
	}

	want := []ExplainRow{
		{Question: "q1", Marked: "A", Correct: "A", Verdict: "Correct", Delta: 1, Score: 1, Section: "DEFAULT", Streak: 1},
		{Question: "q2", Marked: "X", Correct: "B", Verdict: "Incorrect", Delta: -0.25, Score: 0.75, Section: "DEFAULT", Streak: 1},
		{Question: "q3", Marked: "", Correct: "C", Verdict: "Unmarked", Delta: 0, Score: 0.75, Section: "DEFAULT", Streak: 1},
	}
	for i, w := range want {
		got := rows[i]
		if got.Question != w.Question || got.Marked != w.Marked || got.Correct != w.Correct ||
			got.Verdict != w.Verdict || got.Section != w.Section || got.Streak != w.Streak {
			t.Errorf("row %d = %+v, want %+v", i, got, w)
		}
		if math.Abs(got.Delta-w.Delta) > 1e-9 || math.Abs(got.Score-w.Score) > 1e-9 {
			t.Errorf("row %d delta/score = %v/%v, want %v/%v", i, got.Delta, got.Score, w.Delta, w.Score)
		}
	}
}

func TestEvaluateTraceDisabled(t *testing.T) {
	cfg := loadTestConfig(t, "evaluation.json", defaultOnlyEval)

	if _, err := Evaluate(fullDefaultResponse(), cfg); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if rows := cfg.Trace(); len(rows) != 0 {
		t.Errorf("trace rows = %d, want 0 when explanation is off", len(rows))
	}
}

func fullDefaultResponse() model.Response {
	return model.Response{"q1": "A", "q2": "B"}
}

func TestSchemeLookupUnmappedQuestion(t *testing.T) {
	scheme, err := newSectionScheme("PART_A", sectionDef{
		Questions: []string{"q1"},
		Marking:   map[string]any{"correct": 1.0, "incorrect": 0.0, "unmarked": 0.0},
	}, "")
	if err != nil {
		t.Fatalf("newSectionScheme: %v", err)
	}
	cfg := &Config{
		questions: []string{"q1", "q2"},
		answers:   []string{"A", "B"},
		sections:  []*SectionScheme{scheme},
	}

	_, err = schemeLookup(cfg)
	var unmappedErr *UnmappedQuestionError
	if !errors.As(err, &unmappedErr) {
		t.Fatalf("error = %v, want UnmappedQuestionError", err)
	}
	if unmappedErr.Question != "q2" {
		t.Errorf("question = %q, want q2", unmappedErr.Question)
	}
}

func TestStreaksPersistAcrossEvaluations(t *testing.T) {
	cfg := loadTestConfig(t, "evaluation.json", `{
	  "source_type": "custom",
	  "options": {
	    "questions_in_order": ["q1"],
	    "answers_in_order": ["A"]
	  },
	  "marking_scheme": {
	    "DEFAULT": {"correct": 1, "incorrect": [0, -1], "unmarked": 0}
	  }
	}`)

	// Without Reset, streaks carry over between response sets on one
	// Config: the caller owns the single-pass precondition.
	score1, err := Evaluate(model.Response{"q1": "X"}, cfg)
	if err != nil {
		t.Fatalf("first Evaluate: %v", err)
	}
	score2, err := Evaluate(model.Response{"q1": "X"}, cfg)
	if err != nil {
		t.Fatalf("second Evaluate: %v", err)
	}
	if score1 != 0 || score2 != -1 {
		t.Errorf("scores = %v, %v, want 0 then -1 (carried streak)", score1, score2)
	}

	cfg.Reset()
	score3, err := Evaluate(model.Response{"q1": "X"}, cfg)
	if err != nil {
		t.Fatalf("third Evaluate: %v", err)
	}
	if score3 != 0 {
		t.Errorf("score after Reset = %v, want 0", score3)
	}
}
