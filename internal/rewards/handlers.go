package rewards

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-resto/internal/common"
)

// Handler exposes the rewards page.
type Handler struct {
	Svc *Service
}

// ForUser handles GET /api/rewards/user/{userId}.
func (h *Handler) ForUser(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "rewards service not configured", nil)
		return
	}
	userID := chi.URLParam(r, "userId")
	if !common.IsSelf(r.Context(), userID) {
		common.WriteAppError(w, common.ErrForbidden())
		return
	}
	summary, err := h.Svc.Summary(r.Context(), userID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": summary})
}
