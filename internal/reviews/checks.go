package reviews

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/JaimeStill/scribe/internal/posts"
	"github.com/JaimeStill/scribe/internal/rubric"
)

var (
	boldColon     = regexp.MustCompile(`\*\*[^*]+\*\*:\s`)
	numberedTitle = regexp.MustCompile(`^(\d+)\s`)
	ordinalMarker = regexp.MustCompile(`^\d+[.)\s]`)
)

// Checker runs the automated, non-LLM rubric checks.
type Checker struct {
	rubric *rubric.Rubric
}

func NewChecker(r *rubric.Rubric) Checker {
	return Checker{rubric: r}
}

// Check runs the automated checks against content using the default rubric.
func Check(c posts.Content) []rubric.Issue {
	return NewChecker(rubric.Default()).Check(c)
}

// Check returns automated issues in a fixed order: title colon, vocabulary,
// opening, FAQ length, section length, mid-article CTAs, bold colons, and
// numbered-title mismatch.
func (k Checker) Check(c posts.Content) []rubric.Issue {
	var issues []rubric.Issue
	text := c.FullText()

	if strings.Contains(c.Title, ":") {
		issues = append(issues, rubric.Issue{
			Code:       rubric.CodeColonInTitle,
			Message:    fmt.Sprintf("Title contains colon: %q", c.Title),
			Penalty:    k.weight(rubric.CodeColonInTitle, 1),
			Location:   "title",
			Suggestion: `Rewrite without colon. Use "How to X" or "X That Y" format instead.`,
		})
	}

	for _, m := range k.rubric.VocabularyMatchers() {
		n := len(m.Pattern.FindAllStringIndex(text, -1))
		if n == 0 {
			continue
		}
		issues = append(issues, rubric.Issue{
			Code:       rubric.CodeAIVocabulary,
			Message:    fmt.Sprintf("AI vocabulary found: %q (%d %s)", m.Entry.Word, n, plural(n, "instance")),
			Penalty:    k.weight(rubric.CodeAIVocabulary, n),
			Suggestion: fmt.Sprintf("Replace %q with a more natural alternative.", m.Entry.Word),
		})
	}

	if _, ok := k.rubric.MatchOpening(c.Hero.Hook); ok {
		issues = append(issues, rubric.Issue{
			Code:       rubric.CodeForbiddenOpening,
			Message:    fmt.Sprintf("Opening hook uses forbidden pattern: %q", truncate(c.Hero.Hook, 50)+"..."),
			Penalty:    k.weight(rubric.CodeForbiddenOpening, 1),
			Location:   "hero.hook",
			Suggestion: "Start with pain point, surprising stat, bold claim, or story instead.",
		})
	}

	maxFAQ := k.rubric.Limits.FAQAnswerWords
	for i, f := range c.FAQ {
		if n := wordCount(f.Answer); n > maxFAQ {
			issues = append(issues, rubric.Issue{
				Code:       rubric.CodeFAQTooLong,
				Message:    fmt.Sprintf("FAQ #%d answer is %d words (max %d)", i+1, n, maxFAQ),
				Penalty:    k.weight(rubric.CodeFAQTooLong, 1),
				Location:   fmt.Sprintf("faq:%d", i+1),
				Suggestion: "Cut to one punchy sentence. Lead with direct answer.",
			})
		}
	}

	maxSection := k.rubric.Limits.SectionWords
	for _, s := range c.Sections {
		if n := wordCount(s.Content); n > maxSection {
			issues = append(issues, rubric.Issue{
				Code:       rubric.CodeSectionTooLong,
				Message:    fmt.Sprintf("Section %q is %d words (max %d)", s.Heading, n, maxSection),
				Penalty:    k.weight(rubric.CodeSectionTooLong, 1),
				Location:   "section:" + s.ID,
				Suggestion: "Split into two sections or cut ruthlessly.",
			})
		}
	}

	ctas := 0
	for _, s := range c.Sections {
		if s.CTA.Present() {
			ctas++
		}
	}
	if minCTAs := k.rubric.Limits.MinMidCTAs; ctas < minCTAs {
		issues = append(issues, rubric.Issue{
			Code:       rubric.CodeMissingMidCTAs,
			Message:    fmt.Sprintf("Only %d sections have CTAs (need %d-%d)", ctas, minCTAs, minCTAs+1),
			Penalty:    k.weight(rubric.CodeMissingMidCTAs, 1),
			Suggestion: "Add short CTAs to sections 3, 5, and 7.",
		})
	}

	if n := len(boldColon.FindAllStringIndex(text, -1)); n > 0 {
		issues = append(issues, rubric.Issue{
			Code:       rubric.CodeColonAfterBold,
			Message:    fmt.Sprintf(`Uses "**bold:** text" pattern (%d %s)`, n, plural(n, "instance")),
			Penalty:    k.weight(rubric.CodeColonAfterBold, n),
			Suggestion: `Change to "**bold.** text" instead.`,
		})
	}

	if m := numberedTitle.FindStringSubmatch(c.Title); m != nil {
		want, _ := strconv.Atoi(m[1])
		got := 0
		for _, s := range c.Sections {
			if ordinalMarker.MatchString(s.Heading) {
				got++
			}
		}
		if got < want {
			issues = append(issues, rubric.Issue{
				Code:       rubric.CodeTitleContentMismatch,
				Message:    fmt.Sprintf("Title promises %d items but only %d numbered sections found", want, got),
				Penalty:    k.weight(rubric.CodeTitleContentMismatch, 1),
				Location:   "sections",
				Suggestion: fmt.Sprintf("Add %d more numbered sections or change the title.", want-got),
			})
		}
	}

	return issues
}

// weight returns the signed penalty for n occurrences of code.
func (k Checker) weight(code string, n int) int {
	w, _ := k.rubric.Weight(code)
	return -abs(w) * n
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
