package rewrite

import (
	"fmt"
	"strings"

	"github.com/JaimeStill/scribe/internal/posts"
	"github.com/JaimeStill/scribe/internal/reviews"
	"github.com/JaimeStill/scribe/internal/rubric"
)

const contentSchema = `{
  "title": "string",
  "slug": "string",
  "meta": {"title": "string", "description": "string", "keywords": ["string"]},
  "hero": {"hook": "string", "subtitle": "string"},
  "sections": [
    {"id": "string", "heading": "string", "level": 2, "content": "string", "keyTakeaway": "string or null", "cta": "string or null"}
  ],
  "faq": [{"question": "string", "answer": "string"}],
  "conclusion": {"summary": "string", "cta": {"text": "string", "buttonText": "string", "action": "string"}},
  "internalLinks": ["string"],
  "estimatedReadingMinutes": 5
}`

const (
	strictSystem = "You must output valid JSON only. No markdown, no explanation. Start with { and end with }."
	strictPrompt = "Fix this JSON and return valid JSON:\n"
)

// forbiddenShown caps how many vocabulary entries are listed in the prompt.
const forbiddenShown = 14

func systemPrompt(r *rubric.Rubric, keyword string, attempt int, learned string) string {
	var b strings.Builder

	b.WriteString("You edit machine-written blog posts until they read like expert human writing.\n\n")
	fmt.Fprintf(&b, "This is rewrite attempt %d of %d. A post that fails after the last attempt is deleted.\n\n", attempt, posts.MaxRewrites)
	b.WriteString("Fix every listed issue while keeping the post useful and optimized for search.\n")

	if learned != "" {
		b.WriteString("\n")
		b.WriteString(learned)
		b.WriteString("\n")
	}

	b.WriteString("\nThe output must match this JSON structure exactly:\n")
	b.WriteString(contentSchema)
	b.WriteString("\n\nRules:\n")
	b.WriteString("1. Fix every issue listed.\n")
	fmt.Fprintf(&b, "2. Keep the keyword focus on %q.\n", keyword)
	b.WriteString("3. Keep the core information and cut words aggressively.\n")
	b.WriteString("4. Keep every field. Do not remove or rename keys.\n")
	b.WriteString("5. Keep \"level\" a number, 2 or 3.\n")
	b.WriteString("6. Keep \"cta\" and \"keyTakeaway\" a string or null.\n")

	b.WriteString("\nWord limits:\n")
	fmt.Fprintf(&b, "- Each section under %d words.\n", r.Limits.SectionWords)
	fmt.Fprintf(&b, "- Each FAQ answer under %d words.\n", r.Limits.FAQAnswerWords)
	b.WriteString("- Delete sentences until under the limit.\n")

	b.WriteString("\nForbidden:\n")
	words := make([]string, 0, forbiddenShown)
	for i, t := range r.Vocabulary {
		if i == forbiddenShown {
			break
		}
		words = append(words, fmt.Sprintf("%q", t.Word))
	}
	fmt.Fprintf(&b, "- Words: %s\n", strings.Join(words, ", "))
	b.WriteString("- Colons in titles or headings\n")
	b.WriteString("- The \"**Bold:** text\" pattern\n")
	b.WriteString("- Openings like \"In today's...\", \"Let's dive...\", \"In this article...\"\n")
	fmt.Fprintf(&b, "- Hedges: %s\n", quoteAll(r.Hedges))

	b.WriteString("\nRequired:\n")
	b.WriteString("- Contractions throughout (don't, won't, it's, you'll)\n")
	fmt.Fprintf(&b, "- Calls to action in at least %d middle sections, in the \"cta\" field\n", r.Limits.MinMidCTAs)
	b.WriteString("- A title promising N items has N numbered sections")

	return b.String()
}

func userPrompt(r *rubric.Rubric, rv reviews.Review, attempt int, content string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "CURRENT SCORE: %d/%d (%d needed to pass)\n", rv.Score, r.BaseScore, r.PassThreshold)
	fmt.Fprintf(&b, "ATTEMPT: %d of %d\n\n", attempt, posts.MaxRewrites)

	b.WriteString("ISSUES TO FIX:\n")
	for _, i := range rv.Issues {
		fmt.Fprintf(&b, "- %s: %s", i.Code, i.Message)
		if i.Location != "" {
			fmt.Fprintf(&b, " (at %s)", i.Location)
		}
		if i.Suggestion != "" {
			fmt.Fprintf(&b, " → Fix: %s", i.Suggestion)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nREVIEWER INSTRUCTIONS:\n")
	if rv.RewriteInstructions != nil && *rv.RewriteInstructions != "" {
		b.WriteString(*rv.RewriteInstructions)
	} else {
		b.WriteString("Fix all issues listed above.")
	}

	b.WriteString("\n\nCONTENT TO REWRITE:\n")
	b.WriteString(content)
	b.WriteString("\n\nReturn only the fixed JSON with the same keys and types. Start with '{' and end with '}'.")

	return b.String()
}

func quoteAll(ss []string) string {
	q := make([]string, len(ss))
	for i, s := range ss {
		q[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(q, ", ")
}
