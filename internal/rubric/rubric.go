// Package rubric holds the single scoring and cleanup table shared by the
// review engine, the rule learner, and the humanizer. The table ships as
// embedded YAML and is compiled once into regular expressions.
package rubric

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed rubric.yaml
var embedded []byte

// ErrInvalidRubric wraps every validation failure from Parse.
var ErrInvalidRubric = errors.New("invalid rubric")

// Issue codes emitted by the automated checks and the qualitative review.
const (
	CodeAIVocabulary         = "AI_VOCABULARY"
	CodeColonInTitle         = "COLON_IN_TITLE"
	CodeForbiddenOpening     = "FORBIDDEN_OPENING"
	CodeFAQTooLong           = "FAQ_TOO_LONG"
	CodeSectionTooLong       = "SECTION_TOO_LONG"
	CodeMissingMidCTAs       = "MISSING_MID_CTAS"
	CodeColonAfterBold       = "COLON_AFTER_BOLD"
	CodeTitleContentMismatch = "TITLE_CONTENT_MISMATCH"
	CodeNoContrarianTake     = "NO_CONTRARIAN_TAKE"
	CodeWeakHook             = "WEAK_HOOK"
	CodeTooFormal            = "TOO_FORMAL"
	CodeHedgeWords           = "HEDGE_WORDS"
	CodeMissingContractions  = "MISSING_CONTRACTIONS"
)

// Limits are the structural word and count thresholds.
type Limits struct {
	FAQAnswerWords int `yaml:"faq_answer_words"`
	SectionWords   int `yaml:"section_words"`
	MinMidCTAs     int `yaml:"min_mid_ctas"`
}

// Criterion is one weighted rubric line. Negative weights are penalties,
// positive weights are bonuses.
type Criterion struct {
	Code          string `yaml:"code"`
	Weight        int    `yaml:"weight"`
	PerOccurrence bool   `yaml:"per_occurrence"`
	Automated     bool   `yaml:"automated"`
	Description   string `yaml:"description"`
}

// Term is a forbidden vocabulary entry and its plain-language replacements.
type Term struct {
	Word     string   `yaml:"word"`
	Synonyms []string `yaml:"synonyms"`
}

// Contraction maps an expanded phrase to its contracted form. Matching is case-sensitive.
type Contraction struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Matcher pairs a source entry with its compiled pattern.
type Matcher[T any] struct {
	Entry   T
	Pattern *regexp.Regexp
}

// Rubric is the parsed and compiled table.
type Rubric struct {
	BaseScore     int           `yaml:"base_score"`
	PassThreshold int           `yaml:"pass_threshold"`
	Limits        Limits        `yaml:"limits"`
	Criteria      []Criterion   `yaml:"criteria"`
	Vocabulary    []Term        `yaml:"vocabulary"`
	Openings      []string      `yaml:"openings"`
	Transitions   []string      `yaml:"transitions"`
	Hedges        []string      `yaml:"hedges"`
	Contractions  []Contraction `yaml:"contractions"`

	weights      map[string]int
	vocabulary   []Matcher[Term]
	openings     []Matcher[string]
	transitions  []Matcher[string]
	contractions []Matcher[Contraction]
}

var loadDefault = sync.OnceValue(func() *Rubric {
	r, err := Parse(embedded)
	if err != nil {
		panic(fmt.Sprintf("embedded rubric: %v", err))
	}
	return r
})

// Default returns the embedded rubric. The result is shared and must not be mutated.
func Default() *Rubric {
	return loadDefault()
}

// Parse decodes and compiles a rubric table.
func Parse(data []byte) (*Rubric, error) {
	var r Rubric
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRubric, err)
	}
	if err := r.compile(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRubric, err)
	}
	return &r, nil
}

// Weight returns the configured weight for code.
func (r *Rubric) Weight(code string) (int, bool) {
	w, ok := r.weights[code]
	return w, ok
}

// Penalties returns the negative-weight criteria in table order.
func (r *Rubric) Penalties() []Criterion {
	var out []Criterion
	for _, c := range r.Criteria {
		if c.Weight < 0 {
			out = append(out, c)
		}
	}
	return out
}

// Bonuses returns the positive-weight criteria in table order.
func (r *Rubric) Bonuses() []Criterion {
	var out []Criterion
	for _, c := range r.Criteria {
		if c.Weight > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Passes reports whether score meets the pass threshold.
func (r *Rubric) Passes(score int) bool {
	return score >= r.PassThreshold
}

// VocabularyMatchers returns case-insensitive word-boundary matchers in table order.
func (r *Rubric) VocabularyMatchers() []Matcher[Term] {
	return r.vocabulary
}

// ContractionMatchers returns case-sensitive phrase matchers in table order.
func (r *Rubric) ContractionMatchers() []Matcher[Contraction] {
	return r.contractions
}

// TransitionMatchers return patterns matching each transition at the start of
// the text or of a sentence, with any trailing comma or period and whitespace.
// The first submatch is the sentence boundary to keep.
func (r *Rubric) TransitionMatchers() []Matcher[string] {
	return r.transitions
}

// MatchOpening returns the first banned opening that s starts with.
func (r *Rubric) MatchOpening(s string) (string, bool) {
	for _, m := range r.openings {
		if m.Pattern.MatchString(s) {
			return m.Entry, true
		}
	}
	return "", false
}

func (r *Rubric) compile() error {
	if r.BaseScore <= 0 {
		return fmt.Errorf("base_score must be positive")
	}
	if r.PassThreshold < 0 || r.PassThreshold > r.BaseScore {
		return fmt.Errorf("pass_threshold must be within [0, base_score]")
	}
	if r.Limits.FAQAnswerWords < 1 || r.Limits.SectionWords < 1 || r.Limits.MinMidCTAs < 0 {
		return fmt.Errorf("limits must be positive")
	}

	r.weights = make(map[string]int, len(r.Criteria))
	for _, c := range r.Criteria {
		if c.Code == "" {
			return fmt.Errorf("criterion code required")
		}
		if _, dup := r.weights[c.Code]; dup {
			return fmt.Errorf("duplicate criterion %s", c.Code)
		}
		r.weights[c.Code] = c.Weight
	}

	r.vocabulary = make([]Matcher[Term], 0, len(r.Vocabulary))
	for _, t := range r.Vocabulary {
		if len(t.Synonyms) == 0 {
			return fmt.Errorf("vocabulary %q has no synonyms", t.Word)
		}
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(t.Word) + `\b`)
		if err != nil {
			return fmt.Errorf("vocabulary %q: %w", t.Word, err)
		}
		r.vocabulary = append(r.vocabulary, Matcher[Term]{Entry: t, Pattern: re})
	}

	r.openings = make([]Matcher[string], 0, len(r.Openings))
	for _, o := range r.Openings {
		re, err := regexp.Compile(`(?i)^` + o)
		if err != nil {
			return fmt.Errorf("opening %q: %w", o, err)
		}
		r.openings = append(r.openings, Matcher[string]{Entry: o, Pattern: re})
	}

	r.transitions = make([]Matcher[string], 0, len(r.Transitions))
	for _, t := range r.Transitions {
		re, err := regexp.Compile(`(?i)(^|\. )` + regexp.QuoteMeta(t) + `[,.]?\s*`)
		if err != nil {
			return fmt.Errorf("transition %q: %w", t, err)
		}
		r.transitions = append(r.transitions, Matcher[string]{Entry: t, Pattern: re})
	}

	r.contractions = make([]Matcher[Contraction], 0, len(r.Contractions))
	for _, c := range r.Contractions {
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(c.From) + `\b`)
		if err != nil {
			return fmt.Errorf("contraction %q: %w", c.From, err)
		}
		r.contractions = append(r.contractions, Matcher[Contraction]{Entry: c, Pattern: re})
	}

	return nil
}
