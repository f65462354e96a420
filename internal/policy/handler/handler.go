package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"molecule/internal/policy/models"
	"molecule/pkg/domain"
	"molecule/pkg/platform/httputil"
	"molecule/pkg/requestcontext"
)

// Service defines the registry operations the handler needs.
type Service interface {
	AddLogic(ctx context.Context, req models.AddLogicRequest) (*models.Record, error)
	AddLogicBatch(ctx context.Context, reqs []models.AddLogicRequest) ([]*models.Record, error)
	RemoveLogic(ctx context.Context, id domain.PolicyID) error
	RemoveLogicBatch(ctx context.Context, ids []domain.PolicyID) error
	SetStatus(ctx context.Context, id domain.PolicyID, enabled bool) (*models.Record, error)
	Get(ctx context.Context, id domain.PolicyID) (*models.Record, error)
	List(ctx context.Context) ([]*models.Record, error)
}

// Handler exposes registry administration and queries.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterAdmin mounts mutating routes. The caller applies admin auth.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/policies", h.HandleAdd)
	r.Post("/admin/policies/batch", h.HandleAddBatch)
	r.Post("/admin/policies/batch-delete", h.HandleRemoveBatch)
	r.Delete("/admin/policies/{id}", h.HandleRemove)
	r.Put("/admin/policies/{id}/status", h.HandleSetStatus)
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/policies", h.HandleList)
	r.Get("/policies/{id}", h.HandleGet)
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AddPolicyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	record, err := h.service.AddLogic(ctx, req.parsed)
	if err != nil {
		h.logger.WarnContext(ctx, "add policy failed",
			"request_id", requestID,
			"policy_id", req.ID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toPolicyResponse(record))
}

func (h *Handler) HandleAddBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AddPolicyBatchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	records, err := h.service.AddLogicBatch(ctx, req.parsed)
	if err != nil {
		h.logger.WarnContext(ctx, "add policy batch failed",
			"request_id", requestID,
			"size", len(req.parsed),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toPolicyListResponse(records))
}

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParsePolicyID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.RemoveLogic(ctx, id); err != nil {
		h.logger.WarnContext(ctx, "remove policy failed",
			"request_id", requestcontext.RequestID(ctx),
			"policy_id", id.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRemoveBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RemovePolicyBatchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.service.RemoveLogicBatch(ctx, req.parsed); err != nil {
		h.logger.WarnContext(ctx, "remove policy batch failed", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, err := domain.ParsePolicyID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[SetStatusRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	record, err := h.service.SetStatus(ctx, id, *req.Enabled)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPolicyResponse(record))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPolicyListResponse(records))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParsePolicyID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	record, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPolicyResponse(record))
}
