package order

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-resto/internal/common"
)

// Handler serves the customer order endpoints. Every route requires authentication.
type Handler struct {
	Service  *Service
	Validate *validator.Validate
}

type placeRequest struct {
	UserID           string           `json:"userId" validate:"omitempty,uuid"`
	AddressID        string           `json:"addressId" validate:"omitempty,uuid"`
	Items            json.RawMessage  `json:"items"`
	Subtotal         *decimal.Decimal `json:"subtotal"`
	Discount         *decimal.Decimal `json:"discount"`
	DeliveryFee      *decimal.Decimal `json:"deliveryFee"`
	Total            *decimal.Decimal `json:"total"`
	CouponCode       *string          `json:"couponCode" validate:"omitempty,max=32"`
	RewardPointsUsed int              `json:"rewardPointsUsed" validate:"gte=0"`
	Status           string           `json:"status" validate:"omitempty,eq=received"`
	ScheduledFor     *time.Time       `json:"scheduledFor"`
	// EstimatedDeliveryTime is accepted for compatibility and replaced by the server value.
	EstimatedDeliveryTime string `json:"estimatedDeliveryTime"`
}

// Place handles POST /api/orders.
func (h *Handler) Place(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req placeRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := h.validator().Struct(req); err != nil {
		common.WriteAppError(w, common.FromValidator(err))
		return
	}
	lines, err := ParseItems(req.Items)
	if err != nil {
		common.WriteAppError(w, common.ErrValidation("items", "items must be a JSON array of {dishId, quantity}"))
		return
	}
	in := PlaceInput{
		UserID:           req.UserID,
		AddressID:        req.AddressID,
		Lines:            lines,
		RewardPointsUsed: req.RewardPointsUsed,
		ScheduledFor:     req.ScheduledFor,
		Subtotal:         req.Subtotal,
		Discount:         req.Discount,
		DeliveryFee:      req.DeliveryFee,
		Total:            req.Total,
	}
	if req.CouponCode != nil {
		in.CouponCode = *req.CouponCode
	}
	order, err := h.Service.Place(r.Context(), userID, in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": order})
}

// ListByUser handles GET /api/orders/user/{userId}.
func (h *Handler) ListByUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.caller(w, r); !ok {
		return
	}
	userID := chi.URLParam(r, "userId")
	if !common.IsSelf(r.Context(), userID) {
		common.WriteAppError(w, common.ErrForbidden())
		return
	}
	page, perPage := common.ParsePagination(r, 20, 100)
	orders, total, err := h.Service.ListByUser(r.Context(), userID, perPage, common.Offset(page, perPage))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data": orders,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: int(total),
		},
	})
}

// Get handles GET /api/orders/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	order, err := h.Service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": order})
}

// Statuses handles GET /api/orders/statuses.
func (h *Handler) Statuses(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, map[string]any{"data": Statuses()})
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return "", false
	}
	userID, ok := common.UserID(r.Context())
	if !ok || userID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return "", false
	}
	return userID, true
}

func (h *Handler) validator() *validator.Validate {
	if h.Validate != nil {
		return h.Validate
	}
	return validator.New(validator.WithRequiredStructEnabled())
}
