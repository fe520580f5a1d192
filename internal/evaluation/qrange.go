package evaluation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Question tokens are either bare ids ("q12") or contiguous ranges
// sharing a prefix ("q1..4", "Q1...5").
var rangeTokenRe = regexp.MustCompile(`^([^.\d]+)(\d+)\.{2,3}(\d+)$`)

// ParseQuestionToken expands a single question token into explicit ids.
func ParseQuestionToken(token string) ([]string, error) {
	if !strings.Contains(token, ".") {
		return []string{token}, nil
	}

	m := rangeTokenRe.FindStringSubmatch(token)
	if m == nil {
		return nil, &RangeDefinitionError{Token: token}
	}
	prefix := m[1]
	start, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, &RangeDefinitionError{Token: token}
	}
	end, err := strconv.Atoi(m[3])
	if err != nil {
		return nil, &RangeDefinitionError{Token: token}
	}
	if start >= end {
		return nil, &RangeDefinitionError{Token: token, Start: start, End: end}
	}

	questions := make([]string, 0, end-start+1)
	for n := start; n <= end; n++ {
		questions = append(questions, fmt.Sprintf("%s%d", prefix, n))
	}
	return questions, nil
}

// ParseQuestions expands and flattens a section's question tokens,
// preserving order. Tokens expanding to intersecting id sets fail with a
// QuestionOverlapError naming the offending token.
func ParseQuestions(sectionKey string, tokens []string) ([]string, error) {
	var parsed []string
	seen := make(map[string]struct{})
	for _, token := range tokens {
		questions, err := ParseQuestionToken(token)
		if err != nil {
			return nil, err
		}
		for _, q := range questions {
			if _, ok := seen[q]; ok {
				return nil, &QuestionOverlapError{
					SectionKey: sectionKey,
					Token:      token,
					Tokens:     tokens,
				}
			}
		}
		for _, q := range questions {
			seen[q] = struct{}{}
		}
		parsed = append(parsed, questions...)
	}
	return parsed, nil
}
