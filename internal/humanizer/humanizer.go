// Package humanizer is a deterministic cleanup pass over generated posts.
// It swaps flagged vocabulary for plain synonyms, contracts stiff phrasing,
// strips markup, and restructures colon titles. It performs no I/O.
package humanizer

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/JaimeStill/scribe/internal/posts"
	"github.com/JaimeStill/scribe/internal/rubric"
)

// Chooser picks an index in [0, n). *rand.Rand from math/rand/v2 satisfies it.
type Chooser interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

var (
	htmlTag    = regexp.MustCompile(`</?[a-zA-Z][^<>]*>`)
	bold       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicStar = regexp.MustCompile(`\*([^*\n]+)\*`)
	italicBar  = regexp.MustCompile(`_([^_\n]+)_`)
	header     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	colon      = regexp.MustCompile(`(\w):\s+([A-Z])`)
	emDash     = regexp.MustCompile(`\s*—\s*`)
	spacedDash = regexp.MustCompile(`\s+-\s+`)

	whitespace  = regexp.MustCompile(`\s+`)
	doubleComma = regexp.MustCompile(`,\s*,`)
	doubleDot   = regexp.MustCompile(`\.\s*\.`)
	commaDot    = regexp.MustCompile(`,\s*\.`)
)

const openingSuggestion = "Start with a bold claim, specific number, or direct statement instead"

// Result is humanized content and the operator-facing change log.
type Result struct {
	Content posts.Content `json:"content"`
	Changes []string      `json:"changes"`
}

// Humanizer applies the cleanup pass. It is safe for concurrent use when
// its Chooser is.
type Humanizer struct {
	rubric *rubric.Rubric
	choose Chooser
}

// New creates a Humanizer. A nil rubric uses rubric.Default and a nil
// chooser uses the global random source.
func New(r *rubric.Rubric, ch Chooser) *Humanizer {
	if r == nil {
		r = rubric.Default()
	}
	if ch == nil {
		ch = globalRand{}
	}
	return &Humanizer{rubric: r, choose: ch}
}

// Humanize runs the default Humanizer over c.
func Humanize(c posts.Content) Result {
	return New(nil, nil).Humanize(c)
}

type tally struct {
	vocabulary   int
	contractions int
	colons       int
	emDashes     int
	markdown     int
	html         int
}

// Humanize returns a cleaned copy of c. The input is not modified.
func (h *Humanizer) Humanize(c posts.Content) Result {
	out := c.Clone()
	var t tally
	var changes []string

	colons := t.colons
	out.Title = h.processTitle(out.Title, &t)
	if t.colons > colons {
		changes = append(changes, "Removed colon from title")
	}

	colons = t.colons
	out.Meta.Title = h.processTitle(out.Meta.Title, &t)
	if t.colons > colons {
		changes = append(changes, "Removed colon from meta title")
	}

	out.Meta.Description = h.processText(out.Meta.Description, &t)
	out.Hero.Hook = h.processText(out.Hero.Hook, &t)
	out.Hero.Subtitle = h.processText(out.Hero.Subtitle, &t)

	for i := range out.Sections {
		s := &out.Sections[i]
		s.Heading = h.processTitle(s.Heading, &t)
		s.Content = h.processText(s.Content, &t)
		if s.KeyTakeaway != nil {
			kt := h.processText(*s.KeyTakeaway, &t)
			s.KeyTakeaway = &kt
		}
		if s.CTA.Text != "" {
			s.CTA.Text = h.processText(s.CTA.Text, &t)
		}
	}

	for i := range out.FAQ {
		out.FAQ[i].Question = h.processText(out.FAQ[i].Question, &t)
		out.FAQ[i].Answer = h.processText(out.FAQ[i].Answer, &t)
	}

	out.Conclusion.Summary = h.processText(out.Conclusion.Summary, &t)
	out.Conclusion.CTA.Text = h.processText(out.Conclusion.CTA.Text, &t)
	out.Conclusion.CTA.ButtonText = h.processTitle(out.Conclusion.CTA.ButtonText, &t)

	counted := []struct {
		n      int
		format string
	}{
		{t.vocabulary, "Replaced %d AI vocabulary instances"},
		{t.contractions, "Added %d contractions"},
		{t.colons, "Removed %d colons"},
		{t.emDashes, "Removed %d em dashes"},
		{t.markdown, "Removed %d markdown formatting instances"},
		{t.html, "Removed %d HTML tags"},
	}
	for _, c := range counted {
		if c.n > 0 {
			changes = append(changes, fmt.Sprintf(c.format, c.n))
		}
	}

	return Result{Content: out, Changes: changes}
}

// CheckOpening reports whether hook starts with a banned opening and, if so,
// how to fix it.
func (h *Humanizer) CheckOpening(hook string) (bool, string) {
	if _, ok := h.rubric.MatchOpening(hook); ok {
		return true, openingSuggestion
	}
	return false, ""
}

// fixTitle removes colons and em dashes from a title-like string by
// restructuring it. The longer side of a colon wins unless both sides fit
// together in under 60 characters.
func (h *Humanizer) fixTitle(title string, t *tally) string {
	result := title

	if strings.Contains(result, ":") {
		parts := strings.Split(result, ":")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
			first, second := parts[0], parts[1]
			switch {
			case len(second) > len(first):
				result = second
			case len(first)+len(second) < 60:
				result = first + " and " + second
			default:
				result = first
			}
		} else {
			kept := parts[:0]
			for _, p := range parts {
				if p != "" {
					kept = append(kept, p)
				}
			}
			result = strings.Join(kept, " and ")
		}
		t.colons++
	}

	if strings.Contains(result, "—") {
		result = emDash.ReplaceAllString(result, " and ")
		t.emDashes++
	}

	return spacedDash.ReplaceAllString(result, " and ")
}

// processTitle cleans a title-like field. It shares the vocabulary,
// contraction and markup passes with body text, then restructures colons
// instead of turning them into sentence breaks.
func (h *Humanizer) processTitle(title string, t *tally) string {
	if title == "" {
		return title
	}
	result := stripHTML(title, t)
	result = h.replaceVocabulary(result, t)
	result = h.contract(result, t)
	result = stripMarkdown(result, t)
	return cleanup(h.fixTitle(result, t))
}

func (h *Humanizer) processText(text string, t *tally) string {
	if text == "" {
		return text
	}
	result := text

	result = stripHTML(result, t)
	result = h.replaceVocabulary(result, t)
	result = h.contract(result, t)
	result = stripMarkdown(result, t)

	for {
		n := len(colon.FindAllStringIndex(result, -1))
		if n == 0 {
			break
		}
		t.colons += n
		result = colon.ReplaceAllString(result, "$1. $2")
	}

	if n := len(emDash.FindAllStringIndex(result, -1)); n > 0 {
		t.emDashes += n
		result = emDash.ReplaceAllString(result, ", ")
	}

	for _, m := range h.rubric.TransitionMatchers() {
		result = m.Pattern.ReplaceAllString(result, "${1}")
	}

	return cleanup(result)
}

func (h *Humanizer) contract(text string, t *tally) string {
	for _, m := range h.rubric.ContractionMatchers() {
		if n := len(m.Pattern.FindAllStringIndex(text, -1)); n > 0 {
			t.contractions += n
			text = m.Pattern.ReplaceAllLiteralString(text, m.Entry.To)
		}
	}
	return text
}

// replaceVocabulary swaps every flagged word for one synonym chosen per
// word per text, keeping an initial capital.
func (h *Humanizer) replaceVocabulary(text string, t *tally) string {
	for _, m := range h.rubric.VocabularyMatchers() {
		n := len(m.Pattern.FindAllStringIndex(text, -1))
		if n == 0 {
			continue
		}
		t.vocabulary += n

		syn := m.Entry.Synonyms[h.choose.IntN(len(m.Entry.Synonyms))]
		text = m.Pattern.ReplaceAllStringFunc(text, func(match string) string {
			r, _ := utf8.DecodeRuneInString(match)
			if unicode.IsUpper(r) {
				return capitalize(syn)
			}
			return syn
		})
	}
	return text
}

func stripHTML(text string, t *tally) string {
	n := len(htmlTag.FindAllStringIndex(text, -1))
	if n == 0 {
		return text
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return text
	}

	t.html += n
	return doc.Text()
}

func stripMarkdown(text string, t *tally) string {
	if n := len(bold.FindAllStringIndex(text, -1)); n > 0 {
		t.markdown += n
		text = bold.ReplaceAllString(text, "$1")
	}

	for _, re := range []*regexp.Regexp{italicStar, italicBar} {
		if n := len(re.FindAllStringIndex(text, -1)); n > 0 {
			t.markdown += n
			text = re.ReplaceAllString(text, "$1")
		}
	}

	if n := len(header.FindAllStringIndex(text, -1)); n > 0 {
		t.markdown += n
		text = header.ReplaceAllString(text, "")
	}

	return text
}

// cleanup collapses whitespace and doubled punctuation until stable.
func cleanup(text string) string {
	for {
		next := whitespace.ReplaceAllString(text, " ")
		next = doubleComma.ReplaceAllString(next, ",")
		next = doubleDot.ReplaceAllString(next, ".")
		next = commaDot.ReplaceAllString(next, ".")
		if next == text {
			return strings.TrimSpace(next)
		}
		text = next
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
