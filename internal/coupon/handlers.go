package coupon

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-resto/internal/common"
)

// Handler exposes coupon endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type previewRequest struct {
	Code     string          `json:"code" validate:"required,max=32"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// List handles GET /api/coupons?active=true.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon service not configured", nil)
		return
	}
	activeOnly := false
	if raw := strings.TrimSpace(r.URL.Query().Get("active")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			common.WriteAppError(w, common.ErrValidation("active", "active must be true or false"))
			return
		}
		activeOnly = parsed
	}
	coupons, err := h.Svc.List(r.Context(), activeOnly)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list coupons", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": coupons})
}

// Preview handles POST /api/coupons/preview and reports the discount a code would give.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon service not configured", nil)
		return
	}
	var req previewRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := h.validator().Struct(req); err != nil {
		common.WriteAppError(w, common.FromValidator(err))
		return
	}
	if req.Subtotal.IsNegative() {
		common.WriteAppError(w, common.ErrValidation("subtotal", "subtotal must not be negative"))
		return
	}
	result, err := h.Svc.Preview(r.Context(), req.Code, req.Subtotal)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to evaluate coupon", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

func (h *Handler) validator() *validator.Validate {
	if h.Validate != nil {
		return h.Validate
	}
	return validator.New(validator.WithRequiredStructEnabled())
}
