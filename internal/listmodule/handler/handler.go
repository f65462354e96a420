package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"molecule/internal/listmodule"
	"molecule/internal/listmodule/models"
	"molecule/pkg/domain"
	"molecule/pkg/platform/httputil"
	"molecule/pkg/requestcontext"
)

// Service defines the list operations the handler needs.
type Service interface {
	Create(ctx context.Context, name string) (*listmodule.List, error)
	CreateAt(ctx context.Context, ref common.Address, name string) (*listmodule.List, error)
	Get(ref common.Address) (*listmodule.List, error)
	Lists() []models.ListInfo
	AddToList(ctx context.Context, ref common.Address, addrs []common.Address) error
	RemoveFromList(ctx context.Context, ref common.Address, addrs []common.Address) error
	Contains(ref common.Address, addr common.Address) (bool, error)
}

// Handler exposes list administration and membership queries.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterAdmin mounts mutating routes. The caller applies admin auth.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/lists", h.HandleCreate)
	r.Post("/admin/lists/{ref}/add", h.HandleAdd)
	r.Post("/admin/lists/{ref}/remove", h.HandleRemove)
}

// Register mounts read-only routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/lists", h.HandleList)
	r.Get("/lists/{ref}", h.HandleGet)
	r.Get("/lists/{ref}/members/{address}", h.HandleMembership)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateListRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	var (
		list *listmodule.List
		err  error
	)
	if req.parsedRef != nil {
		list, err = h.service.CreateAt(ctx, *req.parsedRef, req.Name)
	} else {
		list, err = h.service.Create(ctx, req.Name)
	}
	if err != nil {
		h.logger.WarnContext(ctx, "create list failed", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toListResponse(list.Info(), list.Len()))
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	h.handleUpdate(w, r, h.service.AddToList)
}

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	h.handleUpdate(w, r, h.service.RemoveFromList)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request,
	apply func(ctx context.Context, ref common.Address, addrs []common.Address) error,
) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	ref, err := domain.ParseAddress(chi.URLParam(r, "ref"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateListRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := apply(ctx, ref, req.parsed); err != nil {
		h.logger.WarnContext(ctx, "list update failed",
			"request_id", requestID,
			"list", ref.Hex(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	infos := h.service.Lists()
	resp := make([]ListResponse, 0, len(infos))
	for _, info := range infos {
		size := 0
		if list, err := h.service.Get(info.Ref); err == nil {
			size = list.Len()
		}
		resp = append(resp, toListResponse(info, size))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ref, err := domain.ParseAddress(chi.URLParam(r, "ref"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	list, err := h.service.Get(ref)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toListResponse(list.Info(), list.Len()))
}

func (h *Handler) HandleMembership(w http.ResponseWriter, r *http.Request) {
	ref, err := domain.ParseAddress(chi.URLParam(r, "ref"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	addr, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	member, err := h.service.Contains(ref, addr)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, MembershipResponse{
		List:    ref.Hex(),
		Address: addr.Hex(),
		Member:  member,
	})
}
