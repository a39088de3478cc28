package order

import (
	"net/http"

	"github.com/noah-isme/backend-photoedit/internal/common"
)

// AdminHandler provides administrative order management endpoints.
type AdminHandler struct {
	Svc *Service
}

type patchStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending processing completed failed"`
}

type patchPaymentRequest struct {
	Status string `json:"status" validate:"required,oneof=pending processing succeeded failed"`
}

// PatchStatus handles PATCH /admin/orders/{id}/status.
func (h *AdminHandler) PatchStatus(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return
	}
	id, ok := orderIDParam(w, r, "id")
	if !ok {
		return
	}
	var req patchStatusRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	o, err := h.Svc.TransitionStatus(r.Context(), id, Status(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, o)
}

// PatchPaymentStatus handles PATCH /admin/orders/{id}/payment-status.
func (h *AdminHandler) PatchPaymentStatus(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return
	}
	id, ok := orderIDParam(w, r, "id")
	if !ok {
		return
	}
	var req patchPaymentRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	o, err := h.Svc.UpdatePaymentStatus(r.Context(), id, PaymentStatus(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, o)
}
