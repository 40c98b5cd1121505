package reviews

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-resto/internal/common"
)

type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type createRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=1000"`
}

// Create handles POST /api/dishes/{id}/reviews.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "review service not configured", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var req createRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	v := h.Validate
	if v == nil {
		v = validator.New(validator.WithRequiredStructEnabled())
	}
	if err := v.Struct(req); err != nil {
		common.WriteAppError(w, common.FromValidator(err))
		return
	}
	created, err := h.Svc.Create(r.Context(), userID, chi.URLParam(r, "id"), req.Rating, req.Comment)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

// List handles GET /api/dishes/{id}/reviews.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "review service not configured", nil)
		return
	}
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), defaultListLimit)
	reviews, err := h.Svc.List(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": reviews})
}
