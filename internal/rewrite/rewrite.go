// Package rewrite asks the completion model to correct a post that failed
// review, validates the result strictly, humanizes it and returns the post
// to draft for another review.
package rewrite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/scribe/internal/completion"
	"github.com/JaimeStill/scribe/internal/humanizer"
	"github.com/JaimeStill/scribe/internal/posts"
	"github.com/JaimeStill/scribe/internal/reviews"
	"github.com/JaimeStill/scribe/internal/rubric"
	"github.com/JaimeStill/scribe/pkg/formatting"
)

const (
	rewriteTemperature = 0.7
	strictTemperature  = 0.3
	maxTokens          = 8192
)

// System rewrites posts awaiting correction.
type System interface {
	Handler() *Handler

	// Rewrite reports false without writing anything when the model output
	// fails validation twice.
	Rewrite(ctx context.Context, postID uuid.UUID) (bool, error)
}

// Posts is the post persistence the controller needs.
type Posts interface {
	Find(ctx context.Context, id uuid.UUID) (*posts.Post, error)
	ReplaceContent(ctx context.Context, id uuid.UUID, c posts.Content) (*posts.Post, error)
}

// Reviews exposes the latest review of a post.
type Reviews interface {
	Latest(ctx context.Context, postID uuid.UUID) (*reviews.Review, error)
}

// Rules renders the active learned rules for the prompt.
type Rules interface {
	GeneratePromptRules(ctx context.Context) (string, error)
}

// Generator produces text completions.
type Generator interface {
	GenerateText(ctx context.Context, req completion.Request) (string, error)
}

type Config struct {
	Posts     Posts
	Reviews   Reviews
	Rules     Rules
	Generator Generator
	Humanizer *humanizer.Humanizer
	Rubric    *rubric.Rubric
}

type controller struct {
	posts     Posts
	reviews   Reviews
	rules     Rules
	gen       Generator
	humanizer *humanizer.Humanizer
	rubric    *rubric.Rubric
	logger    *slog.Logger
}

func New(cfg Config, logger *slog.Logger) System {
	r := cfg.Rubric
	if r == nil {
		r = rubric.Default()
	}
	h := cfg.Humanizer
	if h == nil {
		h = humanizer.New(r, nil)
	}

	return &controller{
		posts:     cfg.Posts,
		reviews:   cfg.Reviews,
		rules:     cfg.Rules,
		gen:       cfg.Generator,
		humanizer: h,
		rubric:    r,
		logger:    logger.With("system", "rewrite"),
	}
}

func (c *controller) Handler() *Handler {
	return NewHandler(c, c.posts, c.logger)
}

func (c *controller) Rewrite(ctx context.Context, postID uuid.UUID) (bool, error) {
	if c.gen == nil {
		return false, completion.ErrUnavailable
	}

	p, err := c.posts.Find(ctx, postID)
	if err != nil {
		return false, err
	}
	if p.Status != posts.StatusRewrite {
		return false, fmt.Errorf("%w: %s is %s", ErrNotRewritable, postID, p.Status)
	}

	rv, err := c.reviews.Latest(ctx, postID)
	if err != nil {
		if errors.Is(err, reviews.ErrNotFound) {
			return false, ErrNoFailedReview
		}
		return false, err
	}
	if rv.Passed {
		return false, ErrNoFailedReview
	}

	learned := ""
	if c.rules != nil {
		if learned, err = c.rules.GeneratePromptRules(ctx); err != nil {
			c.logger.Warn("learned rules unavailable", "post_id", postID, "error", err)
			learned = ""
		}
	}

	body, err := json.MarshalIndent(p.Content, "", "  ")
	if err != nil {
		return false, fmt.Errorf("encode content: %w", err)
	}

	attempt := p.RewriteCount
	c.logger.Info("rewriting post",
		"post_id", p.ID,
		"title", p.Title,
		"attempt", attempt,
		"max", posts.MaxRewrites,
	)

	raw, err := c.gen.GenerateText(ctx, completion.Request{
		System:      systemPrompt(c.rubric, p.Keyword, attempt, learned),
		Prompt:      userPrompt(c.rubric, *rv, attempt, string(body)),
		Temperature: rewriteTemperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return false, fmt.Errorf("generate rewrite: %w", err)
	}

	content, err := decode(raw)
	if err != nil {
		c.logger.Warn("rewrite output invalid, retrying strictly", "post_id", p.ID, "error", err)

		raw, err = c.gen.GenerateText(ctx, completion.Request{
			System:      strictSystem,
			Prompt:      strictPrompt + raw,
			Temperature: strictTemperature,
			MaxTokens:   maxTokens,
		})
		if err != nil {
			return false, fmt.Errorf("generate strict rewrite: %w", err)
		}

		if content, err = decode(raw); err != nil {
			c.logger.Error("rewrite output invalid after retry", "post_id", p.ID, "error", err)
			return false, nil
		}
	}

	res := c.humanizer.Humanize(content)
	if len(res.Changes) > 0 {
		c.logger.Info("post humanized", "post_id", p.ID, "changes", res.Changes)
	}

	updated, err := c.posts.ReplaceContent(ctx, p.ID, res.Content)
	if err != nil {
		return false, err
	}

	c.logger.Info("post rewritten",
		"post_id", updated.ID,
		"title", updated.Title,
		"from", posts.StatusRewrite,
		"to", updated.Status,
	)
	return true, nil
}

// decode parses raw with recovery and validates the structure. Output that
// only parses after truncation salvage is rejected.
func decode(raw string) (posts.Content, error) {
	res := formatting.Recover[posts.Content](raw)
	if err := res.Complete(); err != nil {
		return posts.Content{}, fmt.Errorf("%w: %w", ErrInvalidContent, err)
	}
	if err := res.Value.Validate(); err != nil {
		return posts.Content{}, fmt.Errorf("%w: %w", ErrInvalidContent, err)
	}
	return res.Value, nil
}
