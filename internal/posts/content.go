package posts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Content is the structured post document exchanged with the completion
// model. Field names follow the camelCase wire schema the model is prompted with.
type Content struct {
	Title                   string     `json:"title"`
	Slug                    string     `json:"slug"`
	Meta                    Meta       `json:"meta"`
	Hero                    Hero       `json:"hero"`
	Sections                []Section  `json:"sections"`
	FAQ                     []FAQ      `json:"faq"`
	Conclusion              Conclusion `json:"conclusion"`
	InternalLinks           []string   `json:"internalLinks"`
	EstimatedReadingMinutes int        `json:"estimatedReadingMinutes"`
}

type Meta struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

type Hero struct {
	Hook     string `json:"hook"`
	Subtitle string `json:"subtitle"`
}

// Section is one body block. Level is 2 or 3.
type Section struct {
	ID          string  `json:"id"`
	Heading     string  `json:"heading"`
	Level       int     `json:"level"`
	Content     string  `json:"content"`
	KeyTakeaway *string `json:"keyTakeaway"`
	CTA         CTA     `json:"cta"`
}

type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Conclusion struct {
	Summary string        `json:"summary"`
	CTA     ConclusionCTA `json:"cta"`
}

type ConclusionCTA struct {
	Text       string `json:"text"`
	ButtonText string `json:"buttonText"`
	Action     string `json:"action"`
}

// CTA is a section call to action. The model may emit a string, an object,
// or null; an object is kept verbatim.
type CTA struct {
	Text   string
	Object json.RawMessage
}

// TextCTA builds a plain string call to action.
func TextCTA(s string) CTA {
	return CTA{Text: s}
}

// Present reports whether the section carries a usable call to action.
// Any object counts; a string counts when it is not blank.
func (c CTA) Present() bool {
	return len(c.Object) > 0 || strings.TrimSpace(c.Text) != ""
}

func (c CTA) MarshalJSON() ([]byte, error) {
	switch {
	case len(c.Object) > 0:
		return c.Object, nil
	case c.Text != "":
		return json.Marshal(c.Text)
	default:
		return []byte("null"), nil
	}
}

func (c *CTA) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*c = CTA{}

	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		return nil
	case trimmed[0] == '"':
		return json.Unmarshal(trimmed, &c.Text)
	case trimmed[0] == '{':
		c.Object = append(json.RawMessage(nil), trimmed...)
		return nil
	default:
		return fmt.Errorf("%w: cta must be a string, object, or null", ErrInvalidContent)
	}
}

// FullText joins every reader-visible text field for lexical scanning.
func (c *Content) FullText() string {
	parts := []string{
		c.Title,
		c.Meta.Title,
		c.Meta.Description,
		c.Hero.Hook,
		c.Hero.Subtitle,
	}
	for _, s := range c.Sections {
		parts = append(parts, s.Heading+" "+s.Content)
	}
	for _, f := range c.FAQ {
		parts = append(parts, f.Question+" "+f.Answer)
	}
	parts = append(parts, c.Conclusion.Summary, c.Conclusion.CTA.Text)

	nonEmpty := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

// Validate checks the structural schema a generated or rewritten post must
// satisfy. Every key of the generation schema must be present; list fields
// may be empty but not missing.
func (c *Content) Validate() error {
	var problems []string
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			problems = append(problems, name+" is required")
		}
	}
	present := func(name string, missing bool) {
		if missing {
			problems = append(problems, name+" is required")
		}
	}

	require("title", c.Title)
	require("slug", c.Slug)
	require("meta.title", c.Meta.Title)
	require("meta.description", c.Meta.Description)
	present("meta.keywords", c.Meta.Keywords == nil)
	require("hero.hook", c.Hero.Hook)
	require("hero.subtitle", c.Hero.Subtitle)

	if len(c.Sections) == 0 {
		problems = append(problems, "at least one section is required")
	}
	for i, s := range c.Sections {
		require(fmt.Sprintf("sections[%d].heading", i), s.Heading)
		require(fmt.Sprintf("sections[%d].content", i), s.Content)
		if s.Level != 2 && s.Level != 3 {
			problems = append(problems, fmt.Sprintf("sections[%d].level must be 2 or 3, got %d", i, s.Level))
		}
	}

	present("faq", c.FAQ == nil)
	for i, f := range c.FAQ {
		require(fmt.Sprintf("faq[%d].question", i), f.Question)
		require(fmt.Sprintf("faq[%d].answer", i), f.Answer)
	}

	require("conclusion.summary", c.Conclusion.Summary)
	require("conclusion.cta.text", c.Conclusion.CTA.Text)
	require("conclusion.cta.buttonText", c.Conclusion.CTA.ButtonText)
	require("conclusion.cta.action", c.Conclusion.CTA.Action)
	present("internalLinks", c.InternalLinks == nil)

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidContent, strings.Join(problems, "; "))
	}
	return nil
}

// Clone returns a deep copy.
func (c Content) Clone() Content {
	out := c
	out.Meta.Keywords = slices.Clone(c.Meta.Keywords)
	out.InternalLinks = slices.Clone(c.InternalLinks)
	out.FAQ = slices.Clone(c.FAQ)
	out.Sections = make([]Section, len(c.Sections))
	for i, s := range c.Sections {
		if s.KeyTakeaway != nil {
			kt := *s.KeyTakeaway
			s.KeyTakeaway = &kt
		}
		if s.CTA.Object != nil {
			s.CTA.Object = append(json.RawMessage(nil), s.CTA.Object...)
		}
		out.Sections[i] = s
	}
	if c.Sections == nil {
		out.Sections = nil
	}
	return out
}
