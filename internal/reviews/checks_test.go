package reviews_test

import (
	"strings"
	"testing"

	"github.com/JaimeStill/scribe/internal/posts"
	"github.com/JaimeStill/scribe/internal/reviews"
	"github.com/JaimeStill/scribe/internal/rubric"
)

func cleanContent() posts.Content {
	return posts.Content{
		Title: "How Small Teams Cut Cloud Bills",
		Slug:  "cut-cloud-bills",
		Meta: posts.Meta{
			Title:       "Cut Cloud Bills",
			Description: "Where the money goes and how to get it back.",
		},
		Hero: posts.Hero{Hook: "Most teams overpay for cloud by a third."},
		Sections: []posts.Section{
			{ID: "idle", Heading: "Find idle servers", Level: 2, Content: "Start with the servers nobody uses.", CTA: posts.TextCTA("Run a free audit")},
			{ID: "reserve", Heading: "Buy reserved capacity", Level: 2, Content: "Commit where load is steady.", CTA: posts.TextCTA("See pricing")},
			{ID: "egress", Heading: "Watch egress", Level: 2, Content: "Data transfer adds up fast."},
		},
		FAQ:        []posts.FAQ{{Question: "How long does it take?", Answer: "About two weeks."}},
		Conclusion: posts.Conclusion{Summary: "Small steps add up."},
	}
}

func codes(issues []rubric.Issue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.Code
	}
	return out
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func TestCheckCleanContent(t *testing.T) {
	if issues := reviews.Check(cleanContent()); len(issues) != 0 {
		t.Fatalf("clean content produced issues: %+v", issues)
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*posts.Content)
		code     string
		penalty  int
		location string
	}{
		{
			name:     "colon in title",
			mutate:   func(c *posts.Content) { c.Title = "Cloud Bills: A Guide" },
			code:     rubric.CodeColonInTitle,
			penalty:  -25,
			location: "title",
		},
		{
			name:    "vocabulary counted per occurrence",
			mutate:  func(c *posts.Content) { c.Sections[2].Content = "Delve in. Then delve deeper." },
			code:    rubric.CodeAIVocabulary,
			penalty: -20,
		},
		{
			name:     "forbidden opening",
			mutate:   func(c *posts.Content) { c.Hero.Hook = "In today's market every dollar counts." },
			code:     rubric.CodeForbiddenOpening,
			penalty:  -20,
			location: "hero.hook",
		},
		{
			name:     "faq over limit",
			mutate:   func(c *posts.Content) { c.FAQ[0].Answer = words(26) },
			code:     rubric.CodeFAQTooLong,
			penalty:  -5,
			location: "faq:1",
		},
		{
			name:     "section over limit",
			mutate:   func(c *posts.Content) { c.Sections[1].Content = words(151) },
			code:     rubric.CodeSectionTooLong,
			penalty:  -5,
			location: "section:reserve",
		},
		{
			name:    "one cta",
			mutate:  func(c *posts.Content) { c.Sections[1].CTA = posts.CTA{} },
			code:    rubric.CodeMissingMidCTAs,
			penalty: -15,
		},
		{
			name:    "bold colon per occurrence",
			mutate:  func(c *posts.Content) { c.Sections[2].Content = "**Tip:** check it. **Also:** log it." },
			code:    rubric.CodeColonAfterBold,
			penalty: -10,
		},
		{
			name: "numbered title without numbered sections",
			mutate: func(c *posts.Content) {
				c.Title = "3 Ways Small Teams Cut Cloud Bills"
				c.Sections[0].Heading = "1. Find idle servers"
				c.Sections[1].Heading = "2) Buy reserved capacity"
			},
			code:     rubric.CodeTitleContentMismatch,
			penalty:  -20,
			location: "sections",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cleanContent()
			tt.mutate(&c)
			issues := reviews.Check(c)

			if len(issues) != 1 {
				t.Fatalf("issues = %v, want exactly one %s", codes(issues), tt.code)
			}
			got := issues[0]
			if got.Code != tt.code {
				t.Errorf("code = %s, want %s", got.Code, tt.code)
			}
			if got.Penalty != tt.penalty {
				t.Errorf("penalty = %d, want %d", got.Penalty, tt.penalty)
			}
			if got.Location != tt.location {
				t.Errorf("location = %q, want %q", got.Location, tt.location)
			}
		})
	}
}

func TestCheckFAQBoundary(t *testing.T) {
	c := cleanContent()
	c.FAQ = []posts.FAQ{
		{Question: "Short?", Answer: words(25)},
		{Question: "Long?", Answer: words(26)},
	}

	issues := reviews.Check(c)
	if len(issues) != 1 {
		t.Fatalf("issues = %v, want one FAQ_TOO_LONG", codes(issues))
	}
	if issues[0].Location != "faq:2" {
		t.Errorf("location = %q, want faq:2", issues[0].Location)
	}
	if want := "FAQ #2 answer is 26 words (max 25)"; issues[0].Message != want {
		t.Errorf("message = %q, want %q", issues[0].Message, want)
	}
}

func TestCheckNumberedTitleSatisfied(t *testing.T) {
	c := cleanContent()
	c.Title = "3 Ways Small Teams Cut Cloud Bills"
	c.Sections[0].Heading = "1. Find idle servers"
	c.Sections[1].Heading = "2) Buy reserved capacity"
	c.Sections[2].Heading = "3 Watch egress"

	if issues := reviews.Check(c); len(issues) != 0 {
		t.Errorf("issues = %v, want none", codes(issues))
	}
}

func TestCheckObjectCTACounts(t *testing.T) {
	c := cleanContent()
	c.Sections[1].CTA = posts.CTA{Object: []byte(`{"text":"Talk to us"}`)}

	if issues := reviews.Check(c); len(issues) != 0 {
		t.Errorf("issues = %v, want none", codes(issues))
	}
}

func TestCheckOrder(t *testing.T) {
	c := cleanContent()
	c.Title = "Cloud Bills: 5 Tips"
	c.Hero.Hook = "Let's dive into costs."
	c.Sections[2].Content = "We leverage alerts."
	c.Sections[1].CTA = posts.CTA{}

	got := codes(reviews.Check(c))
	want := []string{
		rubric.CodeColonInTitle,
		rubric.CodeAIVocabulary,
		rubric.CodeForbiddenOpening,
		rubric.CodeMissingMidCTAs,
	}

	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", got, want)
	}
}

// Three uses of one forbidden word cost exactly the 30 points between a
// perfect score and the pass threshold.
func TestLeverageScenarioPassesAtBoundary(t *testing.T) {
	c := cleanContent()
	c.Sections[2].Content = "We leverage spot pricing, leverage reserved plans, and leverage alerts."

	issues := reviews.Check(c)
	score, passed := reviews.Score(rubric.Default(), issues, nil)

	if score != 70 {
		t.Errorf("score = %d, want 70", score)
	}
	if !passed {
		t.Error("passed = false, want true at the threshold")
	}
}
