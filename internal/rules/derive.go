package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/JaimeStill/scribe/internal/rubric"
)

var (
	quoted    = regexp.MustCompile(`["']([^"']+)["']`)
	wordCount = regexp.MustCompile(`(\d+)\s*words`)
)

type deriver func(rubric.Issue) (Key, string, bool)

func fixed(k Key, reason string) deriver {
	return func(rubric.Issue) (Key, string, bool) {
		return k, reason, true
	}
}

func lengthRule(target string, limit int, label string) deriver {
	return func(i rubric.Issue) (Key, string, bool) {
		m := wordCount.FindStringSubmatch(i.Message)
		if m == nil {
			return Key{}, "", false
		}
		k := Key{CategoryStructure, TypeMaxLength, fmt.Sprintf("%s:%d", target, limit)}
		return k, fmt.Sprintf("%s exceeded %d words (was %s words)", label, limit, m[1]), true
	}
}

// derivers maps issue codes to rule extraction. Legacy spellings of the CTA
// and opening codes map to the same rules.
var derivers = map[string]deriver{
	rubric.CodeAIVocabulary: func(i rubric.Issue) (Key, string, bool) {
		m := quoted.FindStringSubmatch(i.Message)
		if m == nil {
			return Key{}, "", false
		}
		return Key{CategoryVocabulary, TypeForbiddenWord, strings.ToLower(m[1])},
			fmt.Sprintf(`Flagged as AI vocabulary: "%s"`, i.Message), true
	},
	rubric.CodeHedgeWords: func(i rubric.Issue) (Key, string, bool) {
		m := quoted.FindStringSubmatch(i.Message)
		if m == nil {
			return Key{}, "", false
		}
		return Key{CategoryTone, TypeForbiddenPhrase, strings.ToLower(m[1])},
			fmt.Sprintf("Hedge phrase weakens authority: %q", m[1]), true
	},
	rubric.CodeForbiddenOpening: fixed(
		Key{CategoryTone, TypeForbiddenPattern, "generic_opening"},
		"Content started with a forbidden AI-style opening pattern",
	),
	"FORBIDDEN_OPENING_PATTERN": fixed(
		Key{CategoryTone, TypeForbiddenPattern, "generic_opening"},
		"Content started with a forbidden AI-style opening pattern",
	),
	rubric.CodeSectionTooLong: lengthRule("section", 150, "Section"),
	rubric.CodeFAQTooLong:     lengthRule("faq_answer", 25, "FAQ answer"),
	rubric.CodeMissingMidCTAs: fixed(
		Key{CategoryCTA, TypeMinCount, "mid_article_cta:2"},
		"Missing mid-article CTAs (need 2-3 per post)",
	),
	"MISSING_MID_ARTICLE_CTAS": fixed(
		Key{CategoryCTA, TypeMinCount, "mid_article_cta:2"},
		"Missing mid-article CTAs (need 2-3 per post)",
	),
	rubric.CodeColonInTitle: fixed(
		Key{CategorySEO, TypeForbiddenPattern, "colon_in_title"},
		"Title contained colon (AI pattern)",
	),
	rubric.CodeTitleContentMismatch: func(i rubric.Issue) (Key, string, bool) {
		return Key{CategoryContent, TypeRequiredPattern, "title_promise_fulfillment"}, i.Message, true
	},
	rubric.CodeColonAfterBold: fixed(
		Key{CategoryFormatting, TypeForbiddenPattern, "bold_colon"},
		`Used "**Bold:** text" pattern instead of "**Bold.** text"`,
	),
	rubric.CodeMissingContractions: fixed(
		Key{CategoryTone, TypeRequiredPattern, "use_contractions"},
		"Content should use contractions (don't, won't, it's) for natural voice",
	),
	rubric.CodeTooFormal: fixed(
		Key{CategoryTone, TypeRequiredPattern, "use_contractions"},
		"Content should use contractions (don't, won't, it's) for natural voice",
	),
}

// Derive maps an issue to the rule it generalizes to, if any.
func Derive(i rubric.Issue) (Learning, bool) {
	d, ok := derivers[strings.ToUpper(i.Code)]
	if !ok {
		return Learning{}, false
	}

	k, reason, ok := d(i)
	if !ok {
		return Learning{}, false
	}

	return Learning{Key: k, Reason: reason, IssueCode: i.Code}, true
}
