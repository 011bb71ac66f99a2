// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/JaimeStill/scribe/internal/config"
	"github.com/JaimeStill/scribe/internal/infrastructure"
	"github.com/JaimeStill/scribe/internal/pipeline"
	"github.com/JaimeStill/scribe/pkg/middleware"
	"github.com/JaimeStill/scribe/pkg/module"
)

// API is the mounted HTTP module plus the scheduler that drives the
// review loop in the background.
type API struct {
	Module    *module.Module
	Domain    *Domain
	Scheduler *pipeline.Scheduler
}

// NewModule creates the API module with all domain handlers and middleware.
// The scheduler carries no tasks when the pipeline is disabled.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*API, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain, runtime)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(
		middleware.CORS(&cfg.API.CORS),
		middleware.Logger(runtime.Logger),
		middleware.MaxBody(cfg.API.MaxBodySizeBytes()),
	)

	var tasks []pipeline.Task
	if cfg.Pipeline.Enabled {
		tasks = domain.Tasks(runtime)
	}

	return &API{
		Module:    m,
		Domain:    domain,
		Scheduler: pipeline.NewScheduler(runtime.Logger, tasks...),
	}, nil
}
