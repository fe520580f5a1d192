package evaluation

import (
	"fmt"
	"log/slog"
	"strings"
)

const (
	// DefaultSectionKey is the reserved key for the catch-all section.
	DefaultSectionKey = "DEFAULT"
	// BonusSectionPrefix marks sections allowed to award positive marks
	// for incorrect answers.
	BonusSectionPrefix = "BONUS_"
)

// SectionScheme holds one section's question set and marking rules, and
// owns that section's streak state.
type SectionScheme struct {
	Key       string
	Questions []string // nil for the catch-all section

	marking  [numVerdicts]MarkingRule
	streaks  streakSet
	emptyVal string
}

// sectionDef is the raw decoded shape of one non-default section.
type sectionDef struct {
	Questions []string `json:"questions" yaml:"questions"`
	Marking   map[string]any
}

// newSectionScheme builds an explicit section from its decoded definition.
func newSectionScheme(key string, def sectionDef, emptyVal string) (*SectionScheme, error) {
	questions, err := ParseQuestions(key, def.Questions)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("section %q has no questions", key)
	}
	s := &SectionScheme{Key: key, Questions: questions, emptyVal: emptyVal}
	if err := s.parseMarking(def.Marking); err != nil {
		return nil, err
	}
	return s, nil
}

// newDefaultScheme builds the catch-all section from a bare marking map.
func newDefaultScheme(marking map[string]any, emptyVal string) (*SectionScheme, error) {
	s := &SectionScheme{Key: DefaultSectionKey, emptyVal: emptyVal}
	if err := s.parseMarking(marking); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SectionScheme) parseMarking(marking map[string]any) error {
	for _, v := range Verdicts {
		raw, ok := marking[v.String()]
		if !ok {
			return fmt.Errorf("section %q: marking for %q is missing", s.Key, v)
		}
		rule, err := parseMarkingRule(raw)
		if err != nil {
			return fmt.Errorf("section %q: marking for %q: %w", s.Key, v, err)
		}
		if v == VerdictIncorrect && rule.FirstDelta() > 0 && !strings.HasPrefix(s.Key, BonusSectionPrefix) {
			slog.Warn("positive marks for incorrect answers outside a bonus section",
				"section", s.Key,
				"delta", rule.FirstDelta(),
				"hint", "prefix the section key with "+BonusSectionPrefix+" if this is intended")
		}
		s.marking[v] = rule
	}
	return nil
}

// VerdictFor classifies a marked answer against the correct one by exact
// string comparison.
func (s *SectionScheme) VerdictFor(marked, correct string) Verdict {
	switch marked {
	case s.emptyVal:
		return VerdictUnmarked
	case correct:
		return VerdictCorrect
	default:
		return VerdictIncorrect
	}
}

// MatchAnswer scores one question: it resolves the verdict, reads the
// verdict's streak as it stood before this question, resolves the delta
// from the rule, and only then commits the streak update.
func (s *SectionScheme) MatchAnswer(marked, correct string) (float64, Verdict) {
	verdict := s.VerdictFor(marked, correct)
	run := s.streaks.Peek(verdict)
	delta := s.marking[verdict].DeltaFor(run)
	s.streaks.Commit(verdict)
	return delta, verdict
}

// Streak returns the current (post-commit) run counter for a verdict.
func (s *SectionScheme) Streak(v Verdict) int {
	return s.streaks.Peek(v)
}

// ResetStreaks zeroes the section's streak counters.
func (s *SectionScheme) ResetStreaks() {
	s.streaks.Reset()
}
