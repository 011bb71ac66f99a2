package rubric_test

import (
	"errors"
	"testing"

	"github.com/JaimeStill/scribe/internal/rubric"
)

func TestDefault(t *testing.T) {
	r := rubric.Default()

	if r.BaseScore != 100 || r.PassThreshold != 70 {
		t.Errorf("base/threshold = %d/%d, want 100/70", r.BaseScore, r.PassThreshold)
	}

	want := rubric.Limits{FAQAnswerWords: 25, SectionWords: 150, MinMidCTAs: 2}
	if r.Limits != want {
		t.Errorf("Limits = %+v, want %+v", r.Limits, want)
	}

	if r != rubric.Default() {
		t.Error("Default should return the same instance")
	}
}

func TestWeights(t *testing.T) {
	r := rubric.Default()

	tests := []struct {
		code string
		want int
	}{
		{rubric.CodeColonInTitle, -25},
		{rubric.CodeAIVocabulary, -10},
		{rubric.CodeForbiddenOpening, -20},
		{rubric.CodeFAQTooLong, -5},
		{rubric.CodeSectionTooLong, -5},
		{rubric.CodeMissingMidCTAs, -15},
		{rubric.CodeColonAfterBold, -5},
		{rubric.CodeTitleContentMismatch, -20},
		{rubric.CodeWeakHook, -15},
		{"SPECIFIC_NUMBERS", 5},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, ok := r.Weight(tt.code)
			if !ok || got != tt.want {
				t.Errorf("Weight(%s) = %d, %v; want %d", tt.code, got, ok, tt.want)
			}
		})
	}

	if _, ok := r.Weight("UNKNOWN"); ok {
		t.Error("unknown code should have no weight")
	}
	if len(r.Bonuses()) != 3 {
		t.Errorf("len(Bonuses) = %d, want 3", len(r.Bonuses()))
	}
	for _, c := range r.Penalties() {
		if c.Weight >= 0 {
			t.Errorf("penalty %s has non-negative weight", c.Code)
		}
	}
}

func TestVocabularyMatchers(t *testing.T) {
	r := rubric.Default()

	var leverage, paradigm rubric.Matcher[rubric.Term]
	for _, m := range r.VocabularyMatchers() {
		switch m.Entry.Word {
		case "leverage":
			leverage = m
		case "paradigm shift":
			paradigm = m
		}
	}

	if leverage.Pattern == nil || paradigm.Pattern == nil {
		t.Fatal("expected leverage and paradigm shift matchers")
	}

	tests := []struct {
		text string
		want int
	}{
		{"Leverage your data and leverage it again.", 2},
		{"leveraged teams", 0},
		{"LEVERAGE", 1},
		{"deleverage", 0},
	}
	for _, tt := range tests {
		if got := len(leverage.Pattern.FindAllString(tt.text, -1)); got != tt.want {
			t.Errorf("leverage matches in %q = %d, want %d", tt.text, got, tt.want)
		}
	}

	if !paradigm.Pattern.MatchString("A true Paradigm Shift.") {
		t.Error("paradigm shift should match case-insensitively")
	}
}

func TestMatchOpening(t *testing.T) {
	r := rubric.Default()

	tests := []struct {
		hook string
		want bool
	}{
		{"In today's fast world, teams struggle.", true},
		{"In todays market", true},
		{"in this ultimate guide we cover", true},
		{"Let's dive into hiring.", true},
		{"You see, most founders wait.", true},
		{"Picture this: a launch.", true},
		{"Most teams hire too late.", false},
		{"Teams in today's market struggle.", false},
		{"You seem tired", false},
	}

	for _, tt := range tests {
		t.Run(tt.hook, func(t *testing.T) {
			_, got := r.MatchOpening(tt.hook)
			if got != tt.want {
				t.Errorf("MatchOpening(%q) = %v, want %v", tt.hook, got, tt.want)
			}
		})
	}
}

func TestContractionMatchersCaseSensitive(t *testing.T) {
	r := rubric.Default()

	for _, m := range r.ContractionMatchers() {
		if m.Entry.From == "it is" {
			if m.Pattern.MatchString("It is late") {
				t.Error(`"it is" should not match "It is"`)
			}
			if !m.Pattern.MatchString("and it is late") {
				t.Error(`"it is" should match lowercase phrase`)
			}
			if m.Pattern.MatchString("bit is") {
				t.Error(`"it is" should respect word boundaries`)
			}
			return
		}
	}
	t.Fatal(`missing "it is" contraction`)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed yaml", "base_score: [oops"},
		{"missing base", "pass_threshold: 70\nlimits: {faq_answer_words: 25, section_words: 150, min_mid_ctas: 2}"},
		{"threshold above base", "base_score: 100\npass_threshold: 120\nlimits: {faq_answer_words: 25, section_words: 150, min_mid_ctas: 2}"},
		{"bad opening regex", "base_score: 100\npass_threshold: 70\nlimits: {faq_answer_words: 25, section_words: 150, min_mid_ctas: 2}\nopenings: ['(unclosed']"},
		{"term without synonyms", "base_score: 100\npass_threshold: 70\nlimits: {faq_answer_words: 25, section_words: 150, min_mid_ctas: 2}\nvocabulary: [{word: delve}]"},
		{"duplicate criterion", "base_score: 100\npass_threshold: 70\nlimits: {faq_answer_words: 25, section_words: 150, min_mid_ctas: 2}\ncriteria: [{code: A, weight: -1}, {code: A, weight: -2}]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rubric.Parse([]byte(tt.data))
			if !errors.Is(err, rubric.ErrInvalidRubric) {
				t.Errorf("Parse error = %v, want ErrInvalidRubric", err)
			}
		})
	}
}
