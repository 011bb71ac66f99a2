package rewrite

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/scribe/internal/posts"
	"github.com/JaimeStill/scribe/pkg/handlers"
	"github.com/JaimeStill/scribe/pkg/routes"
)

// Response reports whether a rewrite was stored and the post afterwards.
type Response struct {
	Rewritten bool        `json:"rewritten"`
	Post      *posts.Post `json:"post,omitempty"`
}

type Handler struct {
	sys    System
	posts  Posts
	logger *slog.Logger
}

func NewHandler(sys System, p Posts, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		posts:  p,
		logger: logger.With("handler", "rewrites"),
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/rewrites",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/{postId}", Handler: h.Rewrite},
		},
	}
}

func (h *Handler) Rewrite(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("postId"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, posts.ErrNotFound)
		return
	}

	ok, err := h.sys.Rewrite(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	resp := Response{Rewritten: ok}
	if ok {
		p, err := h.posts.Find(r.Context(), id)
		if err != nil {
			handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
			return
		}
		resp.Post = p
	}

	handlers.RespondJSON(w, http.StatusOK, resp)
}
