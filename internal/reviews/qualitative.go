package reviews

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JaimeStill/scribe/internal/completion"
	"github.com/JaimeStill/scribe/internal/posts"
	"github.com/JaimeStill/scribe/internal/rubric"
	"github.com/JaimeStill/scribe/pkg/formatting"
)

// Generator produces text completions.
type Generator interface {
	GenerateText(ctx context.Context, req completion.Request) (string, error)
}

// Qualitative is the parsed result of the LLM review. Its Score is kept for
// logging only and never replaces the folded score.
type Qualitative struct {
	Score               int            `json:"score"`
	Passed              bool           `json:"passed"`
	Issues              []rubric.Issue `json:"issues"`
	Bonuses             []rubric.Bonus `json:"bonuses"`
	RewriteInstructions string         `json:"rewriteInstructions"`
}

type qualitativeResponse struct {
	Score               float64        `json:"score"`
	Passed              bool           `json:"passed"`
	Issues              []rubric.Issue `json:"issues"`
	Bonuses             []rubric.Bonus `json:"bonuses"`
	RewriteInstructions *string        `json:"rewriteInstructions"`
}

const (
	qualitativeTemperature = 0.3
	qualitativeMaxTokens   = 4096
)

// QualitativeCheck asks the model for a rubric review of c. Penalties are
// normalized negative, bonuses positive, and the model score is clamped.
func QualitativeCheck(
	ctx context.Context,
	gen Generator,
	r *rubric.Rubric,
	c posts.Content,
	keyword string,
) (Qualitative, error) {
	body, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return Qualitative{}, fmt.Errorf("encode content: %w", err)
	}

	raw, err := gen.GenerateText(ctx, completion.Request{
		System:      reviewerSystem(r),
		Prompt:      reviewerPrompt(keyword, string(body)),
		Temperature: qualitativeTemperature,
		MaxTokens:   qualitativeMaxTokens,
	})
	if err != nil {
		return Qualitative{}, fmt.Errorf("qualitative review: %w", err)
	}

	res := formatting.Recover[qualitativeResponse](raw)
	if !res.Ok() {
		return Qualitative{}, fmt.Errorf("qualitative review: %w", res.Err)
	}

	return normalize(r, res.Value), nil
}

func normalize(r *rubric.Rubric, resp qualitativeResponse) Qualitative {
	q := Qualitative{
		Score:   r.Clamp(rubric.Round(resp.Score)),
		Passed:  resp.Passed,
		Issues:  make([]rubric.Issue, 0, len(resp.Issues)),
		Bonuses: make([]rubric.Bonus, 0, len(resp.Bonuses)),
	}

	for _, i := range resp.Issues {
		i.Code = strings.ToUpper(strings.TrimSpace(i.Code))
		if i.Code == "" {
			continue
		}
		i.Penalty = -abs(i.Penalty)
		q.Issues = append(q.Issues, i)
	}

	for _, b := range resp.Bonuses {
		b.Amount = abs(b.Amount)
		if b.Amount == 0 {
			continue
		}
		q.Bonuses = append(q.Bonuses, b)
	}

	if resp.RewriteInstructions != nil {
		q.RewriteInstructions = strings.TrimSpace(*resp.RewriteInstructions)
	}

	return q
}

func reviewerSystem(r *rubric.Rubric) string {
	var b strings.Builder

	b.WriteString("You review blog posts for quality. Posts must read like expert human writing and convert readers.\n")
	b.WriteString("Content that sounds machine-written fails.\n\n")
	fmt.Fprintf(&b, "Start at %d and deduct penalties:\n", r.BaseScore)
	for _, c := range r.Penalties() {
		per := ""
		if c.PerOccurrence {
			per = " per instance"
		}
		fmt.Fprintf(&b, "- %s: %d%s. %s\n", c.Code, c.Weight, per, c.Description)
	}

	b.WriteString("\nBonuses:\n")
	for _, c := range r.Bonuses() {
		fmt.Fprintf(&b, "- %s: +%d. %s\n", c.Code, c.Weight, c.Description)
	}

	fmt.Fprintf(&b, "\nPass threshold: %d/%d.\n\n", r.PassThreshold, r.BaseScore)
	b.WriteString(`Respond with JSON only:
{
  "score": <0-100>,
  "passed": <boolean>,
  "issues": [{"code": "<CODE>", "message": "<what and where>", "penalty": <negative>, "location": "<title|section:id|faq:n>", "suggestion": "<fix>"}],
  "bonuses": [{"code": "<CODE>", "message": "<what worked>", "bonus": <positive>}],
  "rewriteInstructions": "<instructions when failed, null when passed>"
}
Name the exact words and locations in every issue.`)

	return b.String()
}

func reviewerPrompt(keyword, content string) string {
	return "PRIMARY KEYWORD: " + keyword + "\n\nCONTENT TO REVIEW:\n" + content +
		"\n\nScore the content against the rubric. Output valid JSON only, without markdown fences."
}
