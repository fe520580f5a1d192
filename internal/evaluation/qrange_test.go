package evaluation

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseQuestionToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  []string
	}{
		{"bare id", "q4", []string{"q4"}},
		{"bare id with suffix", "q23b", []string{"q23b"}},
		{"two-dot range", "q1..4", []string{"q1", "q2", "q3", "q4"}},
		{"three-dot range", "Q1...5", []string{"Q1", "Q2", "Q3", "Q4", "Q5"}},
		{"multi-char prefix", "sec2_11..13", []string{"sec2_11", "sec2_12", "sec2_13"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQuestionToken(tt.token)
			if err != nil {
				t.Fatalf("ParseQuestionToken(%q): %v", tt.token, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseQuestionToken(%q) = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}

func TestParseQuestionTokenInvalid(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"start above end", "Q5...1"},
		{"start equals end", "q3..3"},
		{"malformed range", "q1."},
		{"missing prefix", "1..5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuestionToken(tt.token)
			var rangeErr *RangeDefinitionError
			if !errors.As(err, &rangeErr) {
				t.Fatalf("ParseQuestionToken(%q) error = %v, want RangeDefinitionError", tt.token, err)
			}
			if rangeErr.Token != tt.token {
				t.Errorf("error token = %q, want %q", rangeErr.Token, tt.token)
			}
		})
	}
}

func TestParseQuestions(t *testing.T) {
	got, err := ParseQuestions("SUBJECT", []string{"q1..3", "q7", "q10..11"})
	if err != nil {
		t.Fatalf("ParseQuestions: %v", err)
	}
	want := []string{"q1", "q2", "q3", "q7", "q10", "q11"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseQuestions = %v, want %v", got, want)
	}
}

func TestParseQuestionsOverlap(t *testing.T) {
	tokens := []string{"q1..4", "q3..6"}
	_, err := ParseQuestions("SUBJECT", tokens)
	var overlapErr *QuestionOverlapError
	if !errors.As(err, &overlapErr) {
		t.Fatalf("error = %v, want QuestionOverlapError", err)
	}
	if overlapErr.Token != "q3..6" {
		t.Errorf("offending token = %q, want q3..6", overlapErr.Token)
	}
	if overlapErr.SectionKey != "SUBJECT" {
		t.Errorf("section key = %q, want SUBJECT", overlapErr.SectionKey)
	}
	if !reflect.DeepEqual(overlapErr.Tokens, tokens) {
		t.Errorf("token list = %v, want %v", overlapErr.Tokens, tokens)
	}
}

func TestParseQuestionsDuplicateBareIDs(t *testing.T) {
	_, err := ParseQuestions("SUBJECT", []string{"q1", "q2", "q1"})
	var overlapErr *QuestionOverlapError
	if !errors.As(err, &overlapErr) {
		t.Fatalf("error = %v, want QuestionOverlapError", err)
	}
}
