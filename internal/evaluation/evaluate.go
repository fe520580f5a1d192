package evaluation

import (
	"github.com/omr-tools/markwise/internal/model"
)

// Evaluate scores one concatenated response against the configuration
// and returns the final score. Streak counters on cfg carry the scoring
// state: score each response set against a fresh (or Reset) Config.
func Evaluate(response model.Response, cfg *Config) (float64, error) {
	if err := cfg.ValidateAll(response); err != nil {
		return 0, err
	}

	schemes, err := schemeLookup(cfg)
	if err != nil {
		return 0, err
	}

	score := 0.0
	for i, question := range cfg.questions {
		correct := cfg.answers[i]
		marked := response[question]

		scheme := schemes[question]
		if scheme == nil {
			scheme = cfg.defaultScheme
		}

		delta, verdict := scheme.MatchAnswer(marked, correct)
		score += delta
		cfg.addExplanation(question, marked, correct, verdict, delta, score, scheme)
	}
	return score, nil
}

// schemeLookup maps every answer-key question to its applicable section,
// leaving catch-all questions unmapped. A question with neither an
// explicit section nor a catch-all fails.
func schemeLookup(cfg *Config) (map[string]*SectionScheme, error) {
	schemes := make(map[string]*SectionScheme)
	for _, section := range cfg.sections {
		for _, q := range section.Questions {
			schemes[q] = section
		}
	}
	for _, q := range cfg.questions {
		if schemes[q] == nil && cfg.defaultScheme == nil {
			return nil, &UnmappedQuestionError{Question: q}
		}
	}
	return schemes, nil
}
