package order

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-photoedit/internal/common"
	"github.com/noah-isme/backend-photoedit/internal/lock"
	"github.com/noah-isme/backend-photoedit/internal/pricing"
)

// Handler serves the customer-facing order endpoints.
type Handler struct {
	Svc *Service
}

type revisionRequestBody struct {
	Photos []RevisionPhoto `json:"photos" validate:"required,min=1,dive"`
}

// Submit handles POST /orders.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	var in SubmitInput
	if err := common.DecodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	o, err := h.Svc.Submit(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/orders/"+o.ID.String())
	common.Data(w, http.StatusCreated, o)
}

// List handles GET /orders.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	page := common.ParsePagination(r, 20)
	orders, total, err := h.Svc.List(r.Context(), userID, page.PerPage, page.Offset())
	if err != nil {
		writeError(w, err)
		return
	}
	common.Page(w, orders, page, total)
}

// Get handles GET /orders/{orderId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := orderIDParam(w, r, "orderId")
	if !ok {
		return
	}
	o, err := h.Svc.Get(r.Context(), userID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, o)
}

// RequestRevision handles POST /orders/{orderId}/revisions.
func (h *Handler) RequestRevision(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := orderIDParam(w, r, "orderId")
	if !ok {
		return
	}
	var body revisionRequestBody
	if err := common.DecodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	rev, err := h.Svc.RequestRevision(r.Context(), userID, id, body.Photos)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, rev)
}

// ListRevisions handles GET /orders/{orderId}/revisions.
func (h *Handler) ListRevisions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := orderIDParam(w, r, "orderId")
	if !ok {
		return
	}
	revs, err := h.Svc.Revisions(r.Context(), userID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if revs == nil {
		revs = []RevisionRequest{}
	}
	common.Data(w, http.StatusOK, revs)
}

// Timeline handles GET /orders/{orderId}/events.
func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := orderIDParam(w, r, "orderId")
	if !ok {
		return
	}
	evs, err := h.Svc.Timeline(r.Context(), userID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, evs)
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return "", false
	}
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return "", false
	}
	return userID, true
}

func orderIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return uuid.Nil, false
	}
	return id, true
}

var errorRules = []common.ErrorRule{
	{Target: pricing.ErrInvalidInput, Status: http.StatusBadRequest, Code: "INVALID_INPUT"},
	{Target: ErrNotFound, Status: http.StatusNotFound, Code: "NOT_FOUND", Message: "order not found"},
	{Target: ErrInvalidTransition, Status: http.StatusConflict, Code: "INVALID_STATE"},
	{Target: ErrNotCompleted, Status: http.StatusConflict, Code: "INVALID_STATE"},
	{Target: ErrDuplicate, Status: http.StatusConflict, Code: "CONFLICT", Message: "record already exists"},
	{Target: lock.ErrNotAcquired, Status: http.StatusConflict, Code: "ORDER_BUSY", Message: "order is being updated, retry shortly"},
}

func writeError(w http.ResponseWriter, err error) {
	common.WriteErrorWith(w, err, errorRules...)
}
