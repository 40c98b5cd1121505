package pricing

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon kinds.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

var (
	// ErrCouponInactive is returned when the coupon has been switched off.
	ErrCouponInactive = errors.New("coupon is not active")
	// ErrCouponExpired is returned once the coupon expiry has passed.
	ErrCouponExpired = errors.New("coupon has expired")
	// ErrMinimumOrderUnmet indicates the subtotal is below the coupon minimum.
	ErrMinimumOrderUnmet = errors.New("order value below coupon minimum")
	// ErrUnknownDiscountType guards against unsupported discount kinds.
	ErrUnknownDiscountType = errors.New("coupon discount type not supported")
)

// Coupon captures the constraints and value of a discount code.
type Coupon struct {
	Code          string
	Description   string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	MinOrderValue decimal.NullDecimal
	MaxDiscount   decimal.NullDecimal
	ExpiresAt     time.Time
	IsActive      bool
}

// Check reports why the coupon does not apply to the subtotal at the given instant, or nil.
func (c Coupon) Check(subtotal decimal.Decimal, at time.Time) error {
	if !c.IsActive {
		return ErrCouponInactive
	}
	if !c.ExpiresAt.IsZero() && !at.Before(c.ExpiresAt) {
		return ErrCouponExpired
	}
	if c.MinOrderValue.Valid && subtotal.LessThan(c.MinOrderValue.Decimal) {
		return ErrMinimumOrderUnmet
	}
	switch normalizeType(c.DiscountType) {
	case DiscountPercentage, DiscountFixed:
		return nil
	default:
		return ErrUnknownDiscountType
	}
}

// DiscountFor computes the coupon discount without checking applicability.
func (c Coupon) DiscountFor(subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch normalizeType(c.DiscountType) {
	case DiscountPercentage:
		discount = subtotal.Mul(c.DiscountValue).Div(decimal.NewFromInt(100)).Round(2)
		if c.MaxDiscount.Valid && discount.GreaterThan(c.MaxDiscount.Decimal) {
			discount = c.MaxDiscount.Decimal
		}
	case DiscountFixed:
		discount = c.DiscountValue
	default:
		return decimal.Zero
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return discount
}

// ExpiringSoon reports whether the coupon expires within the window after at.
func (c Coupon) ExpiringSoon(at time.Time, window time.Duration) bool {
	if c.ExpiresAt.IsZero() || !at.Before(c.ExpiresAt) {
		return false
	}
	return c.ExpiresAt.Sub(at) < window
}

func normalizeType(t DiscountType) DiscountType {
	return DiscountType(strings.ToLower(strings.TrimSpace(string(t))))
}
