package evaluation

// ExplainRow is one entry of the per-question scoring trace, recorded
// only when explanation mode is on.
type ExplainRow struct {
	Question string  `json:"question"`
	Marked   string  `json:"marked"`
	Correct  string  `json:"correct"`
	Verdict  string  `json:"verdict"` // title-cased
	Delta    float64 `json:"delta"`   // this question's contribution
	Score    float64 `json:"score"`   // running total after folding in Delta
	Section  string  `json:"section"`
	Streak   int     `json:"section_streak"` // post-commit counter for the verdict
}

// Trace returns the explanation rows recorded so far.
func (c *Config) Trace() []ExplainRow { return c.trace }

func (c *Config) addExplanation(question, marked, correct string, verdict Verdict, delta, score float64, scheme *SectionScheme) {
	if !c.ExplainScoring {
		return
	}
	c.trace = append(c.trace, ExplainRow{
		Question: question,
		Marked:   marked,
		Correct:  correct,
		Verdict:  verdict.Title(),
		Delta:    delta,
		Score:    score,
		Section:  scheme.Key,
		Streak:   scheme.Streak(verdict),
	})
}
