package order

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-resto/internal/common"
)

// AdminHandler provides administrative order management endpoints.
type AdminHandler struct {
	Service *Service
}

type patchStatusRequest struct {
	Status string `json:"status"`
}

// PatchStatus moves an order forward through received, preparing, out-for-delivery and delivered.
func (h *AdminHandler) PatchStatus(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return
	}
	var req patchStatusRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	if req.Status == "" {
		common.WriteAppError(w, common.ErrValidation("status", "status is required"))
		return
	}
	order, err := h.Service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": order})
}
