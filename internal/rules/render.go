package rules

import (
	"fmt"
	"strings"
)

const banner = "═══════════════════════════════════════════════════════════════"

// Render turns active rules into the prompt block injected ahead of
// generation and rewrite prompts. Rules are grouped by category and keep
// their input order within each group. Returns "" when no block renders.
func Render(rules []Rule) string {
	if len(rules) == 0 {
		return ""
	}

	groups := make(map[Category][]Rule)
	total := 0
	for _, r := range rules {
		groups[r.Category] = append(groups[r.Category], r)
		total += r.FailureCount
	}

	var blocks []string
	for _, c := range Categories {
		if block := renderers[c](groups[c]); block != "" {
			blocks = append(blocks, block)
		}
	}

	if len(blocks) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n" + banner + "\n")
	fmt.Fprintf(&b, "LEARNED RULES FROM PAST FAILURES (%d rules, %d total violations)\n", len(rules), total)
	b.WriteString("These rules were learned from content that failed review. FOLLOW THEM STRICTLY.\n")
	b.WriteString(banner + "\n\n")
	b.WriteString(strings.Join(blocks, "\n\n"))
	b.WriteString("\n\n" + banner + "\n")
	return b.String()
}

var renderers = map[Category]func([]Rule) string{
	CategoryVocabulary: renderVocabulary,
	CategoryStructure:  renderStructure,
	CategoryCTA:        renderCTA,
	CategoryTone:       renderTone,
	CategoryFormatting: renderFormatting,
	CategorySEO:        renderSEO,
	CategoryContent:    renderContent,
}

func renderVocabulary(rules []Rule) string {
	var (
		lines    []string
		failures int
	)
	for _, r := range rules {
		failures += r.FailureCount
		if r.Type == TypeForbiddenWord {
			lines = append(lines, fmt.Sprintf("- %q", r.Value))
		}
	}
	if len(lines) == 0 {
		return ""
	}

	return fmt.Sprintf("LEARNED FORBIDDEN WORDS (failed %d times total):\n", failures) +
		strings.Join(lines, "\n") +
		"\nNEVER use these words. They are detected as AI-generated patterns."
}

func renderStructure(rules []Rule) string {
	var lines []string
	for _, r := range rules {
		if r.Type != TypeMaxLength {
			continue
		}
		target, limit, ok := strings.Cut(r.Value, ":")
		if !ok {
			limit = "150"
		}
		if target == "" {
			target = "item"
		}
		lines = append(lines, fmt.Sprintf("- %s: Maximum %s words (violated %dx)", strings.ToUpper(target), limit, r.FailureCount))
	}
	if len(lines) == 0 {
		return ""
	}

	return "STRICT LENGTH LIMITS (these have been violated multiple times):\n" +
		strings.Join(lines, "\n") +
		"\nCOUNT YOUR WORDS. Exceeding these limits will cause rejection."
}

func renderCTA(rules []Rule) string {
	for _, r := range rules {
		if r.Type != TypeMinCount {
			continue
		}
		_, count, _ := strings.Cut(r.Value, ":")
		return fmt.Sprintf("REQUIRED CTAs (missing in %d posts):\n", r.FailureCount) +
			fmt.Sprintf("- Include at least %s mid-article CTAs spread across sections\n", count) +
			"- Each CTA should be a natural call to action, not generic\n" +
			`- Example: "Want help building your dev team? Let's talk." in the section's cta field`
	}
	return ""
}

func renderTone(rules []Rule) string {
	var lines []string
	for _, r := range rules {
		if r.Type == TypeForbiddenPhrase || r.Type == TypeForbiddenPattern {
			if r.Value == "generic_opening" {
				lines = append(lines, `- NO generic openings like "In today's...", "Let's dive into...", "In this article..."`)
			} else {
				lines = append(lines, fmt.Sprintf("- Avoid: %q", r.Value))
			}
		}
	}
	for _, r := range rules {
		if r.Type == TypeRequiredPattern && r.Value == "use_contractions" {
			lines = append(lines, "- ALWAYS use contractions: don't, won't, can't, it's, you're, we've")
		}
	}
	if len(lines) == 0 {
		return ""
	}

	return "TONE & VOICE REQUIREMENTS:\n" + strings.Join(lines, "\n")
}

func renderFormatting(rules []Rule) string {
	return renderFixed("FORMATTING RULES:", rules, map[string]func(Rule) string{
		"bold_colon": func(Rule) string {
			return `- NEVER use "**Bold:** text". Use "**Bold.** text" instead`
		},
	})
}

func renderSEO(rules []Rule) string {
	return renderFixed("SEO & TITLE RULES:", rules, map[string]func(Rule) string{
		"colon_in_title": func(r Rule) string {
			return fmt.Sprintf(`- NO colons in titles (rejected %dx). Use "How to X" or "X That Y" formats.`, r.FailureCount)
		},
	})
}

func renderContent(rules []Rule) string {
	return renderFixed("CONTENT STRUCTURE:", rules, map[string]func(Rule) string{
		"title_promise_fulfillment": func(Rule) string {
			return `- If title promises N items (e.g., "7 Mistakes"), include exactly N clearly numbered sections`
		},
	})
}

func renderFixed(header string, rules []Rule, lines map[string]func(Rule) string) string {
	var out []string
	for _, r := range rules {
		if fn, ok := lines[r.Value]; ok {
			out = append(out, fn(r))
		}
	}
	if len(out) == 0 {
		return ""
	}
	return header + "\n" + strings.Join(out, "\n")
}
