package api

import (
	"github.com/JaimeStill/scribe/internal/humanizer"
	"github.com/JaimeStill/scribe/internal/pipeline"
	"github.com/JaimeStill/scribe/internal/posts"
	"github.com/JaimeStill/scribe/internal/reviews"
	"github.com/JaimeStill/scribe/internal/rewrite"
	"github.com/JaimeStill/scribe/internal/rubric"
	"github.com/JaimeStill/scribe/internal/rules"
	"github.com/JaimeStill/scribe/internal/similarity"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Posts     posts.System
	Reviews   reviews.System
	Rules     rules.System
	Rewrite   rewrite.System
	Humanizer *humanizer.Humanizer
	Pipeline  *pipeline.Runner
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	db := runtime.Database.Connection()
	table := rubric.Default()
	h := humanizer.New(table, nil)

	postsSystem := posts.New(db, runtime.Logger, runtime.Pagination)
	rulesSystem := rules.New(rules.NewStore(db), runtime.Logger, runtime.Pagination)

	reviewsCfg := reviews.Config{
		Store:      reviews.NewStore(db),
		Posts:      postsSystem,
		Learner:    rulesSystem,
		Rubric:     table,
		Pagination: runtime.Pagination,
	}
	rewriteCfg := rewrite.Config{
		Posts:     postsSystem,
		Rules:     rulesSystem,
		Humanizer: h,
		Rubric:    table,
	}
	if runtime.Completion != nil {
		reviewsCfg.Generator = runtime.Completion
		rewriteCfg.Generator = runtime.Completion
	}

	reviewsSystem := reviews.New(reviewsCfg, runtime.Logger)
	rewriteCfg.Reviews = reviewsSystem
	rewriteSystem := rewrite.New(rewriteCfg, runtime.Logger)

	pipelineCfg := pipeline.Config{
		Posts:              postsSystem,
		Reviews:            reviewsSystem,
		Rewrites:           rewriteSystem,
		Humanizer:          h,
		ReviewBatch:        runtime.Pipeline.ReviewBatch,
		RewriteBatch:       runtime.Pipeline.RewriteBatch,
		DuplicateThreshold: runtime.Pipeline.DuplicateThreshold,
	}
	if runtime.Limiter != nil {
		pipelineCfg.Usage = runtime.Limiter
	}
	if runtime.Completion != nil {
		pipelineCfg.Embedder = runtime.Completion
		pipelineCfg.Embeddings = similarity.NewStore(db, similarity.DefaultWindow)
	}

	return &Domain{
		Posts:     postsSystem,
		Reviews:   reviewsSystem,
		Rules:     rulesSystem,
		Rewrite:   rewriteSystem,
		Humanizer: h,
		Pipeline:  pipeline.New(pipelineCfg, runtime.Logger),
	}
}

// Tasks returns the scheduled pipeline tasks configured for this runtime.
func (d *Domain) Tasks(runtime *Runtime) []pipeline.Task {
	return d.Pipeline.Tasks(pipeline.Intervals{
		Review:  runtime.Pipeline.ReviewIntervalDuration(),
		Rewrite: runtime.Pipeline.RewriteIntervalDuration(),
		Sweep:   runtime.Pipeline.SweepIntervalDuration(),
		Cleanup: runtime.Pipeline.CleanupIntervalDuration(),
	})
}
