package reviews

import (
	"strings"

	"github.com/JaimeStill/scribe/internal/rubric"
)

// Score folds issues and bonuses with r and applies the pass threshold.
func Score(r *rubric.Rubric, issues []rubric.Issue, bonuses []rubric.Bonus) (int, bool) {
	s := r.Score(issues, bonuses)
	return s, r.Passes(s)
}

var guidelines = []string{
	"- Remove ALL AI vocabulary",
	"- Ensure contractions throughout (don't, won't, it's)",
	"- Add specific numbers and examples",
	"- Include at least one contrarian take",
	"- Keep FAQ answers under 25 words",
	"- Keep sections under 150 words",
}

// Instructions renders the rewrite brief for a failed review. The output
// depends only on its inputs.
func Instructions(issues []rubric.Issue, llm string) string {
	lines := []string{
		"## REWRITE REQUIRED",
		"",
		"### Issues to Fix:",
	}

	for _, i := range issues {
		line := "- **" + i.Code + "**: " + i.Message
		if i.Suggestion != "" {
			line += "\n  → " + i.Suggestion
		}
		lines = append(lines, line)
	}
	lines = append(lines, "")

	if llm = strings.TrimSpace(llm); llm != "" {
		lines = append(lines, "### Additional Instructions:", llm, "")
	}

	lines = append(lines, "### General Guidelines:")
	lines = append(lines, guidelines...)

	return strings.Join(lines, "\n")
}

// Assess combines automated and qualitative findings into an Assessment.
func Assess(r *rubric.Rubric, automated []rubric.Issue, q Qualitative) Assessment {
	issues := make([]rubric.Issue, 0, len(automated)+len(q.Issues))
	issues = append(issues, automated...)
	issues = append(issues, q.Issues...)

	score, passed := Score(r, issues, q.Bonuses)

	a := Assessment{
		Score:   score,
		Passed:  passed,
		Issues:  issues,
		Bonuses: q.Bonuses,
	}
	if !passed {
		text := Instructions(issues, q.RewriteInstructions)
		a.RewriteInstructions = &text
	}
	return a
}
