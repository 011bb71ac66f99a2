package api

import (
	"net/http"

	"github.com/JaimeStill/scribe/internal/humanizer"
	"github.com/JaimeStill/scribe/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain, runtime *Runtime) {
	groups := []routes.Group{
		domain.Posts.Handler().Routes(),
		domain.Reviews.Handler().Routes(),
		domain.Rules.Handler().Routes(),
		domain.Rewrite.Handler().Routes(),
		humanizer.NewHandler(domain.Humanizer, runtime.Logger).Routes(),
		domain.Pipeline.Handler().Routes(),
	}

	routes.Register(mux, groups...)
	runtime.Logger.Debug("routes registered", "patterns", routes.Patterns(groups...))
}
