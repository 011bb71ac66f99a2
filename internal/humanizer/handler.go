package humanizer

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/scribe/internal/posts"
	"github.com/JaimeStill/scribe/pkg/handlers"
	"github.com/JaimeStill/scribe/pkg/routes"
)

const maxBodyBytes = 1 << 20

// Response is the humanize endpoint body. Opening carries a suggestion when
// the hook starts with a banned phrase.
type Response struct {
	Result
	Opening string `json:"opening,omitempty"`
}

type Handler struct {
	h      *Humanizer
	logger *slog.Logger
}

func NewHandler(h *Humanizer, logger *slog.Logger) *Handler {
	return &Handler{
		h:      h,
		logger: logger.With("handler", "humanizer"),
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/humanize",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Humanize},
		},
	}
}

// Humanize runs the cleanup pass over posted content without persisting it.
func (h *Handler) Humanize(w http.ResponseWriter, r *http.Request) {
	c, err := handlers.DecodeJSON[posts.Content](w, r, maxBodyBytes)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, posts.ErrInvalidContent)
		return
	}

	res := Response{Result: h.h.Humanize(c)}
	if banned, suggestion := h.h.CheckOpening(res.Content.Hero.Hook); banned {
		res.Opening = suggestion
	}

	handlers.RespondJSON(w, http.StatusOK, res)
}
