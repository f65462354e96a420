package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"molecule/internal/evaluator"
	"molecule/internal/selection"
	"molecule/pkg/domain"
	"molecule/pkg/platform/httputil"
	"molecule/pkg/requestcontext"
)

// Evaluator answers address checks.
type Evaluator interface {
	Evaluate(ctx context.Context, sel selection.Selection, addr common.Address) (*evaluator.Result, error)
	CheckSession(ctx context.Context, c *selection.Context, addr common.Address) (*evaluator.Result, error)
}

// Sessions tracks per-caller selections.
type Sessions interface {
	Open() (*selection.Context, error)
	Get(id domain.SessionID) (*selection.Context, error)
	Close(id domain.SessionID) error
}

type Handler struct {
	evaluator Evaluator
	sessions  Sessions
	logger    *slog.Logger
}

func New(evaluator Evaluator, sessions Sessions, logger *slog.Logger) *Handler {
	return &Handler{evaluator: evaluator, sessions: sessions, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/sessions", h.HandleOpenSession)
	r.Delete("/sessions/{id}", h.HandleCloseSession)
	r.Put("/sessions/{id}/selection", h.HandleSelect)
	r.Get("/sessions/{id}/selection", h.HandleGetSelection)
	r.Get("/sessions/{id}/check/{address}", h.HandleSessionCheck)
	r.Post("/check", h.HandleCheck)
}

func (h *Handler) HandleOpenSession(w http.ResponseWriter, r *http.Request) {
	c, err := h.sessions.Open()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toSessionResponse(c.ID(), c.Snapshot()))
}

func (h *Handler) HandleCloseSession(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.sessions.Close(id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	c, ok := h.session(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SelectRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	sel, err := c.Select(ctx, req.parsed)
	if err != nil {
		h.logger.WarnContext(ctx, "select failed",
			"request_id", requestID,
			"session_id", c.ID().String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(c.ID(), sel))
}

func (h *Handler) HandleGetSelection(w http.ResponseWriter, r *http.Request) {
	c, ok := h.session(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(c.ID(), c.Snapshot()))
}

func (h *Handler) HandleSessionCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, ok := h.session(w, r)
	if !ok {
		return
	}
	addr, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.evaluator.CheckSession(ctx, c, addr)
	if err != nil {
		h.logger.WarnContext(ctx, "session check failed",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", c.ID().String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCheckResponse(result))
}

func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CheckRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	result, err := h.evaluator.Evaluate(ctx, selection.Of(req.parsedIDs...), req.parsedAddress)
	if err != nil {
		h.logger.WarnContext(ctx, "check failed", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCheckResponse(result))
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*selection.Context, bool) {
	id, err := domain.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	c, err := h.sessions.Get(id)
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	return c, true
}
