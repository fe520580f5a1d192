package evaluation

import (
	"fmt"
	"math/big"
	"strings"
)

// Verdict classifies one answered question.
type Verdict int

const (
	VerdictCorrect Verdict = iota
	VerdictIncorrect
	VerdictUnmarked
	numVerdicts
)

// Verdicts lists all verdict kinds in their canonical order.
var Verdicts = []Verdict{VerdictCorrect, VerdictIncorrect, VerdictUnmarked}

func (v Verdict) String() string {
	switch v {
	case VerdictCorrect:
		return "correct"
	case VerdictIncorrect:
		return "incorrect"
	case VerdictUnmarked:
		return "unmarked"
	}
	return fmt.Sprintf("verdict(%d)", int(v))
}

// Title returns the verdict name with the first letter capitalized, as
// shown in explanation tables.
func (v Verdict) Title() string {
	s := v.String()
	return strings.ToUpper(s[:1]) + s[1:]
}

// MarkingRule is the resolved delta rule for one verdict kind: either a
// constant delta or a streak schedule indexed by the run length of
// consecutive same-verdict answers, clamped to its last entry.
type MarkingRule struct {
	constant float64
	schedule []float64 // nil for constant rules
}

// Constant returns a rule awarding the same delta regardless of streaks.
func Constant(delta float64) MarkingRule {
	return MarkingRule{constant: delta}
}

// Schedule returns a streak-indexed rule. The schedule must be non-empty.
func Schedule(deltas []float64) MarkingRule {
	return MarkingRule{schedule: deltas}
}

// IsSchedule reports whether the rule is streak-indexed.
func (r MarkingRule) IsSchedule() bool { return r.schedule != nil }

// DeltaFor returns the delta for a question whose verdict already ran
// streak consecutive times before it.
func (r MarkingRule) DeltaFor(streak int) float64 {
	if r.schedule == nil {
		return r.constant
	}
	if streak >= len(r.schedule) {
		streak = len(r.schedule) - 1
	}
	return r.schedule[streak]
}

// FirstDelta returns the delta a fresh streak would receive. Used for the
// bonus-section misconfiguration warning.
func (r MarkingRule) FirstDelta() float64 { return r.DeltaFor(0) }

// parseMarkValue parses one marking literal: a JSON/YAML number or an
// exact rational in "a/b" form.
func parseMarkValue(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		rat, ok := new(big.Rat).SetString(v)
		if !ok {
			return 0, fmt.Errorf("invalid marking value %q", v)
		}
		f, _ := rat.Float64()
		return f, nil
	default:
		return 0, fmt.Errorf("invalid marking value of type %T", raw)
	}
}

// parseMarkingRule resolves a raw marking entry (number, "a/b" string, or
// a list of either) into a tagged MarkingRule.
func parseMarkingRule(raw any) (MarkingRule, error) {
	if list, ok := raw.([]any); ok {
		if len(list) == 0 {
			return MarkingRule{}, fmt.Errorf("empty marking schedule")
		}
		deltas := make([]float64, len(list))
		for i, item := range list {
			d, err := parseMarkValue(item)
			if err != nil {
				return MarkingRule{}, err
			}
			deltas[i] = d
		}
		return Schedule(deltas), nil
	}
	d, err := parseMarkValue(raw)
	if err != nil {
		return MarkingRule{}, err
	}
	return Constant(d), nil
}

// streakSet holds one section's per-verdict run counters. The three
// counters are mutually exclusive: committing one verdict zeroes the
// other two.
type streakSet [numVerdicts]int

// Peek returns the current run length for a verdict, before the question
// being scored is folded in.
func (s *streakSet) Peek(v Verdict) int { return s[v] }

// Commit records one more occurrence of v and resets the other counters.
// Peek must be consulted before Commit: the delta for a question reflects
// the run length preceding it.
func (s *streakSet) Commit(v Verdict) {
	next := s[v] + 1
	for i := range s {
		s[i] = 0
	}
	s[v] = next
}

// Reset zeroes all counters.
func (s *streakSet) Reset() {
	for i := range s {
		s[i] = 0
	}
}
