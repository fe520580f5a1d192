package evaluation

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/omr-tools/markwise/internal/model"
)

// Source types for the answer key.
const (
	SourceCSV    = "csv"
	SourceCustom = "custom"
)

// evalFile is the decoded shape of an evaluation definition file.
type evalFile struct {
	SourceType    string         `json:"source_type" yaml:"source_type"`
	Options       evalOptions    `json:"options" yaml:"options"`
	MarkingScheme map[string]any `json:"marking_scheme" yaml:"marking_scheme"`
}

type evalOptions struct {
	ShouldExplainScoring bool     `json:"should_explain_scoring" yaml:"should_explain_scoring"`
	AnswerKeyPath        string   `json:"answer_key_path" yaml:"answer_key_path"`
	QuestionsInOrder     []string `json:"questions_in_order" yaml:"questions_in_order"`
	AnswersInOrder       []string `json:"answers_in_order" yaml:"answers_in_order"`
}

// Config holds one parsed and immutable evaluation definition, plus the
// mutable per-section streak state and the optional explanation trace.
//
// A Config must not be shared between concurrently scored response sets:
// streak counters and the trace are mutable state owned by one scoring
// pass. Call Reset between passes, or load a fresh Config.
type Config struct {
	// ExplainScoring enables the per-question explanation trace.
	ExplainScoring bool

	questions []string
	answers   []string

	sections      []*SectionScheme // explicit sections, sorted by key
	defaultScheme *SectionScheme   // optional catch-all

	emptyVal string
	trace    []ExplainRow
}

// Load reads an evaluation definition from a JSON or YAML file. JSON
// files are validated against the embedded schema first. emptyVal is the
// externally supplied "no mark" sentinel.
func Load(path string, emptyVal string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read evaluation file: %w", err)
	}

	var file evalFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse evaluation file %s: %w", path, err)
		}
	default:
		if err := validateEvalJSON(data); err != nil {
			return nil, fmt.Errorf("evaluation file %s: %w", path, err)
		}
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse evaluation file %s: %w", path, err)
		}
	}

	cfg := &Config{
		ExplainScoring: file.Options.ShouldExplainScoring,
		emptyVal:       emptyVal,
	}

	switch file.SourceType {
	case SourceCSV:
		keyPath := file.Options.AnswerKeyPath
		if !filepath.IsAbs(keyPath) {
			keyPath = filepath.Join(filepath.Dir(path), keyPath)
		}
		cfg.questions, cfg.answers, err = readAnswerKeyCSV(keyPath)
		if err != nil {
			return nil, err
		}
	case SourceCustom:
		cfg.questions, err = ParseQuestions("questions_in_order", file.Options.QuestionsInOrder)
		if err != nil {
			return nil, err
		}
		cfg.answers = file.Options.AnswersInOrder
	default:
		return nil, fmt.Errorf("unknown source_type %q", file.SourceType)
	}

	if err := cfg.parseMarkingScheme(file.MarkingScheme); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) parseMarkingScheme(scheme map[string]any) error {
	if len(scheme) == 0 {
		return fmt.Errorf("marking_scheme is empty")
	}

	keys := make([]string, 0, len(scheme))
	for key := range scheme {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if key == DefaultSectionKey {
			// The default section is a marking shorthand with no
			// question list.
			marking, ok := toStringMap(scheme[key])
			if !ok {
				return fmt.Errorf("section %q: expected a marking map", key)
			}
			def, err := newDefaultScheme(marking, c.emptyVal)
			if err != nil {
				return err
			}
			c.defaultScheme = def
			continue
		}

		raw, ok := toStringMap(scheme[key])
		if !ok {
			return fmt.Errorf("section %q: expected an object with questions and marking", key)
		}
		tokens, ok := toStringSlice(raw["questions"])
		if !ok {
			return fmt.Errorf("section %q: questions must be a list of strings", key)
		}
		marking, ok := toStringMap(raw["marking"])
		if !ok {
			return fmt.Errorf("section %q: marking must be a map", key)
		}
		section, err := newSectionScheme(key, sectionDef{Questions: tokens, Marking: marking}, c.emptyVal)
		if err != nil {
			return err
		}
		c.sections = append(c.sections, section)
	}
	return nil
}

// readAnswerKeyCSV reads a two-column (question id, answer) file with no
// header row and no type coercion beyond string.
func readAnswerKeyCSV(path string) (questions, answers []string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, &AnswerKeyError{Path: path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, &AnswerKeyError{Path: path, Err: err}
	}
	for i, rec := range records {
		if len(rec) < 2 {
			return nil, nil, &AnswerKeyError{
				Path: path,
				Err:  fmt.Errorf("row %d: expected question id and answer, got %d column(s)", i+1, len(rec)),
			}
		}
		questions = append(questions, rec[0])
		answers = append(answers, rec[1])
	}
	return questions, answers, nil
}

// Questions returns the answer key's question ids in declared order.
func (c *Config) Questions() []string { return c.questions }

// Answers returns the correct answers, parallel to Questions.
func (c *Config) Answers() []string { return c.answers }

// Sections returns the explicit (non-default) sections.
func (c *Config) Sections() []*SectionScheme { return c.sections }

// DefaultScheme returns the catch-all section, or nil if none is defined.
func (c *Config) DefaultScheme() *SectionScheme { return c.defaultScheme }

// ValidateAll runs the three-way consistency check between answer key,
// marking scheme, and response, before any scoring. All failures are
// fatal: scoring never proceeds on a partially-invalid configuration.
func (c *Config) ValidateAll(response model.Response) error {
	if len(c.questions) != len(c.answers) {
		slog.Error("unequal answer key lengths",
			"questions_in_order", c.questions,
			"answers_in_order", c.answers)
		return fmt.Errorf("unequal lengths for questions_in_order (%d) and answers_in_order (%d)",
			len(c.questions), len(c.answers))
	}

	sectionQuestions := make(map[string]string) // question id -> section key
	for _, section := range c.sections {
		var overlap []string
		for _, q := range section.Questions {
			if _, ok := sectionQuestions[q]; ok {
				overlap = append(overlap, q)
			}
		}
		if len(overlap) > 0 {
			sort.Strings(overlap)
			return &QuestionOverlapError{SectionKey: section.Key, Questions: overlap}
		}
		for _, q := range section.Questions {
			sectionQuestions[q] = section.Key
		}
	}

	answerKey := make(map[string]struct{}, len(c.questions))
	for _, q := range c.questions {
		answerKey[q] = struct{}{}
	}

	// Questions unclaimed by explicit sections fall to the catch-all;
	// without one, every answer-key question needs an explicit section.
	if c.defaultScheme == nil {
		if missing := missingFrom(answerKey, keySet(sectionQuestions)); len(missing) > 0 {
			slog.Error("missing marking scheme", "questions", missing)
			return &SchemeCoverageError{MissingFrom: "marking scheme", Missing: missing}
		}
	}
	if missing := missingFrom(keySet(sectionQuestions), answerKey); len(missing) > 0 {
		slog.Error("missing answer key", "questions", missing)
		return &SchemeCoverageError{MissingFrom: "answer key", Missing: missing}
	}

	responseSet := make(map[string]struct{}, len(response))
	for q := range response {
		responseSet[q] = struct{}{}
	}
	if missing := missingFrom(answerKey, responseSet); len(missing) > 0 {
		slog.Error("missing OMR response", "questions", missing)
		return &ResponseCoverageError{Missing: missing}
	}

	return nil
}

// Reset zeroes all streak counters and clears the explanation trace,
// preparing the Config for scoring another response set.
func (c *Config) Reset() {
	for _, s := range c.sections {
		s.ResetStreaks()
	}
	if c.defaultScheme != nil {
		c.defaultScheme.ResetStreaks()
	}
	c.trace = nil
}

// missingFrom returns the sorted elements of want absent from got.
func missingFrom(want, got map[string]struct{}) []string {
	var missing []string
	for q := range want {
		if _, ok := got[q]; !ok {
			missing = append(missing, q)
		}
	}
	sort.Strings(missing)
	return missing
}

func keySet(m map[string]string) map[string]struct{} {
	set := make(map[string]struct{}, len(m))
	for k := range m {
		set[k] = struct{}{}
	}
	return set
}

// toStringMap normalizes a decoded JSON/YAML object.
func toStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	default:
		return nil, false
	}
}

// toStringSlice normalizes a decoded JSON/YAML list of strings.
func toStringSlice(v any) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		return s, true
	case []any:
		out := make([]string, len(s))
		for i, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			out[i] = str
		}
		return out, true
	default:
		return nil, false
	}
}

// evalSchema validates the overall shape of a JSON evaluation file before
// decoding. Marking values are numbers, "a/b" strings, or lists of either.
const evalSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["source_type", "options", "marking_scheme"],
  "properties": {
    "source_type": {"enum": ["csv", "custom"]},
    "options": {
      "type": "object",
      "properties": {
        "should_explain_scoring": {"type": "boolean"},
        "answer_key_path": {"type": "string"},
        "questions_in_order": {"type": "array", "items": {"type": "string"}},
        "answers_in_order": {"type": "array", "items": {"type": "string"}}
      }
    },
    "marking_scheme": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {
        "type": "object"
      }
    }
  }
}`

func validateEvalJSON(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(evalSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return fmt.Errorf("schema validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}
