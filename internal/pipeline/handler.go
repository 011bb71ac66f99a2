package pipeline

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JaimeStill/scribe/internal/posts"
	"github.com/JaimeStill/scribe/pkg/handlers"
	"github.com/JaimeStill/scribe/pkg/routes"
)

const maxIngestBytes = 1 << 20

// IngestRequest is generated content and its primary keyword.
type IngestRequest struct {
	Keyword string        `json:"keyword"`
	Content posts.Content `json:"content"`
}

type Handler struct {
	runner *Runner
	logger *slog.Logger
}

func NewHandler(runner *Runner, logger *slog.Logger) *Handler {
	return &Handler{
		runner: runner,
		logger: logger.With("handler", "pipeline"),
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/pipeline",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/review", Handler: h.Review},
			{Method: "POST", Pattern: "/rewrite", Handler: h.Rewrite},
			{Method: "POST", Pattern: "/sweep", Handler: h.Sweep},
			{Method: "POST", Pattern: "/ingest", Handler: h.Ingest},
			{Method: "GET", Pattern: "/usage", Handler: h.Usage},
		},
	}
}

// limit reads ?limit=N, returning zero when absent or invalid.
func limit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	sum, err := h.runner.ReviewDrafts(r.Context(), limit(r))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, sum)
}

func (h *Handler) Rewrite(w http.ResponseWriter, r *http.Request) {
	sum, err := h.runner.RewritePending(r.Context(), limit(r))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, sum)
}

func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	n, err := h.runner.SweepDeleted(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// Ingest stores humanized generated content as a new draft.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	req, err := handlers.DecodeJSON[IngestRequest](w, r, maxIngestBytes)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, posts.ErrInvalidContent)
		return
	}

	res, err := h.runner.Ingest(r.Context(), req.Keyword, req.Content)
	if err != nil {
		handlers.RespondError(w, h.logger, ingestStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusCreated, res)
}

func ingestStatus(err error) int {
	if errors.Is(err, ErrDuplicateContent) {
		return http.StatusConflict
	}
	return posts.MapHTTPStatus(err)
}

func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	report, err := h.runner.Usage(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, report)
}
