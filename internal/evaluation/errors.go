package evaluation

import (
	"fmt"
	"strings"
)

// RangeDefinitionError reports an invalid question-range token.
type RangeDefinitionError struct {
	Token string
	Start int
	End   int
}

func (e *RangeDefinitionError) Error() string {
	if e.Start == 0 && e.End == 0 {
		return fmt.Sprintf("invalid question range token %q", e.Token)
	}
	return fmt.Sprintf("invalid range in question token %q: start %d is not less than end %d", e.Token, e.Start, e.End)
}

// QuestionOverlapError reports duplicate question ids, either between
// tokens of one section or between two sections of the marking scheme.
type QuestionOverlapError struct {
	SectionKey string
	Token      string   // offending token, empty for cross-section overlaps
	Tokens     []string // full token list of the section, if known
	Questions  []string // the overlapping ids
}

func (e *QuestionOverlapError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("question token %q overlaps with other questions in section %q: %v",
			e.Token, e.SectionKey, e.Tokens)
	}
	return fmt.Sprintf("section %q has overlapping question(s) with other sections: %s",
		e.SectionKey, strings.Join(e.Questions, ", "))
}

// SchemeCoverageError reports a directional set mismatch between the
// answer key and the marking scheme's covered questions.
type SchemeCoverageError struct {
	MissingFrom string // "marking scheme" or "answer key"
	Missing     []string
}

func (e *SchemeCoverageError) Error() string {
	return fmt.Sprintf("missing %s for: %s", e.MissingFrom, strings.Join(e.Missing, ", "))
}

// ResponseCoverageError reports answer-key questions absent from a response.
type ResponseCoverageError struct {
	Missing []string
}

func (e *ResponseCoverageError) Error() string {
	return fmt.Sprintf("missing OMR response for: %s", strings.Join(e.Missing, ", "))
}

// AnswerKeyError reports a missing or unreadable external answer key file.
type AnswerKeyError struct {
	Path string
	Err  error
}

func (e *AnswerKeyError) Error() string {
	return fmt.Sprintf("answer key %q: %v", e.Path, e.Err)
}

func (e *AnswerKeyError) Unwrap() error { return e.Err }

// UnmappedQuestionError reports a question with neither an explicit
// section nor a default marking scheme.
type UnmappedQuestionError struct {
	Question string
}

func (e *UnmappedQuestionError) Error() string {
	return fmt.Sprintf("question %q has no marking scheme and no default section is defined", e.Question)
}
