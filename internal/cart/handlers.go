package cart

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-resto/internal/catalog"
	"github.com/noah-isme/backend-resto/internal/common"
	"github.com/noah-isme/backend-resto/internal/coupon"
	"github.com/noah-isme/backend-resto/internal/pricing"
)

// Handler wires cart services to HTTP. Every route requires an authenticated user.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type addItemRequest struct {
	DishID   string `json:"dishId" validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"gte=0,lte=99"`
}

type quantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0,lte=99"`
}

type couponRequest struct {
	Code string `json:"code" validate:"required,max=32"`
}

type pointsRequest struct {
	Points *int `json:"points" validate:"required,gte=0"`
}

// Get returns the session with its live quote.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.begin(w, r)
	if !ok {
		return
	}
	view, err := h.Svc.Quote(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Quote returns only the pricing summary.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.begin(w, r)
	if !ok {
		return
	}
	view, err := h.Svc.Quote(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view.Summary})
}

// AddItem handles POST /api/cart/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.begin(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	sess, err := h.Svc.AddItem(r.Context(), userID, req.DishID, req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sess})
}

// UpdateItem handles PATCH /api/cart/items/{dishId}.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.begin(w, r)
	if !ok {
		return
	}
	var req quantityRequest
	if !h.decode(w, r, &req) {
		return
	}
	sess, err := h.Svc.SetQuantity(r.Context(), userID, chi.URLParam(r, "dishId"), *req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sess})
}

// RemoveItem handles DELETE /api/cart/items/{dishId}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.begin(w, r)
	if !ok {
		return
	}
	sess, err := h.Svc.RemoveItem(r.Context(), userID, chi.URLParam(r, "dishId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sess})
}

// ApplyCoupon handles PUT /api/cart/coupon.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.begin(w, r)
	if !ok {
		return
	}
	var req couponRequest
	if !h.decode(w, r, &req) {
		return
	}
	sess, err := h.Svc.ApplyCoupon(r.Context(), userID, req.Code)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sess})
}

// RemoveCoupon handles DELETE /api/cart/coupon.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.begin(w, r)
	if !ok {
		return
	}
	sess, err := h.Svc.RemoveCoupon(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sess})
}

// SetPoints handles PUT /api/cart/points.
func (h *Handler) SetPoints(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.begin(w, r)
	if !ok {
		return
	}
	var req pointsRequest
	if !h.decode(w, r, &req) {
		return
	}
	sess, err := h.Svc.SetRewardPoints(r.Context(), userID, *req.Points)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sess})
}

// Clear handles DELETE /api/cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.begin(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Clear(r.Context(), userID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) begin(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return "", false
	}
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.WriteAppError(w, common.ErrUnauthorized("authentication required"))
		return "", false
	}
	return userID, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := common.DecodeJSON(r, dst); err != nil {
		common.WriteError(w, err)
		return false
	}
	v := h.Validate
	if v == nil {
		v = validator.New(validator.WithRequiredStructEnabled())
	}
	if err := v.Struct(dst); err != nil {
		common.WriteAppError(w, common.FromValidator(err))
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var redemption *pricing.InvalidRedemptionError
	switch {
	case errors.Is(err, ErrLineNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidPoints), errors.Is(err, ErrCouponRequired):
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, catalog.ErrDishNotFound):
		common.JSONError(w, http.StatusUnprocessableEntity, "DISH_UNAVAILABLE", err.Error(), nil)
	case errors.Is(err, coupon.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "COUPON_NOT_FOUND", "coupon not found", nil)
	case errors.As(err, &redemption):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_REDEMPTION", redemption.Error(), map[string]any{
			"requested": redemption.Requested,
			"available": redemption.Available,
			"max":       redemption.Max,
		})
	case errors.Is(err, ErrConflict):
		common.JSONError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	default:
		common.WriteError(w, err)
	}
}
