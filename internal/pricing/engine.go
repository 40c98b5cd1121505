package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RedemptionPolicy controls how requests for more points than allowed are handled.
type RedemptionPolicy string

const (
	// PolicyClamp reduces an oversized request to the redeemable maximum.
	PolicyClamp RedemptionPolicy = "clamp"
	// PolicyStrict rejects oversized requests with an InvalidRedemptionError.
	PolicyStrict RedemptionPolicy = "strict"
)

// ErrInvalidLine is returned for cart lines carrying a negative unit price.
var ErrInvalidLine = errors.New("pricing: invalid cart line")

// InvalidRedemptionError reports a reward point request the engine refused.
type InvalidRedemptionError struct {
	Requested int
	Available int
	Max       int
}

func (e *InvalidRedemptionError) Error() string {
	if e.Requested < 0 {
		return fmt.Sprintf("pricing: reward points must not be negative (requested %d)", e.Requested)
	}
	return fmt.Sprintf("pricing: requested %d reward points, %d available, %d redeemable", e.Requested, e.Available, e.Max)
}

// Config carries the tunable constants of the pricing rules.
type Config struct {
	FreeDeliveryThreshold decimal.Decimal
	DeliveryFee           decimal.Decimal
	RedeemCapRatio        decimal.Decimal
	PointValue            decimal.Decimal
	EarnDivisor           int64
	WelcomeBonus          int
	Policy                RedemptionPolicy
}

// DefaultConfig returns the storefront defaults: free delivery above 500, otherwise 40;
// redemption capped at 20% of the subtotal; one point is worth 0.1 and one point is earned
// per 10 spent; 150 welcome points.
func DefaultConfig() Config {
	return Config{
		FreeDeliveryThreshold: decimal.NewFromInt(500),
		DeliveryFee:           decimal.NewFromInt(40),
		RedeemCapRatio:        decimal.RequireFromString("0.2"),
		PointValue:            decimal.RequireFromString("0.1"),
		EarnDivisor:           10,
		WelcomeBonus:          150,
		Policy:                PolicyClamp,
	}
}

// Line is a single priced cart entry.
type Line struct {
	DishID    string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Input gathers everything needed to price an order.
type Input struct {
	Lines           []Line
	Coupon          *Coupon
	RequestedPoints int
	AvailablePoints int
	// At is the instant used to evaluate coupon expiry.
	At time.Time
}

// Summary is the priced breakdown of an order.
type Summary struct {
	Subtotal            decimal.Decimal `json:"subtotal"`
	DeliveryFee         decimal.Decimal `json:"deliveryFee"`
	CouponDiscount      decimal.Decimal `json:"couponDiscount"`
	RewardDiscount      decimal.Decimal `json:"rewardDiscount"`
	Discount            decimal.Decimal `json:"discount"`
	Total               decimal.Decimal `json:"total"`
	PointsRedeemed      int             `json:"pointsRedeemed"`
	MaxRedeemablePoints int             `json:"maxRedeemablePoints"`
	PointsEarned        int             `json:"pointsEarned"`
	CouponCode          string          `json:"couponCode,omitempty"`
	CouponApplied       bool            `json:"couponApplied"`
	CouponReason        string          `json:"couponReason,omitempty"`
}

// Engine evaluates the pricing rules. The zero value is not usable; construct with NewEngine.
type Engine struct {
	cfg Config
}

// NewEngine returns an engine, filling unset configuration with defaults.
func NewEngine(cfg Config) Engine {
	def := DefaultConfig()
	// A zero fee is valid on its own; both zero means the delivery rule was never configured.
	if cfg.FreeDeliveryThreshold.IsZero() && cfg.DeliveryFee.IsZero() {
		cfg.FreeDeliveryThreshold = def.FreeDeliveryThreshold
		cfg.DeliveryFee = def.DeliveryFee
	}
	if cfg.FreeDeliveryThreshold.IsNegative() {
		cfg.FreeDeliveryThreshold = def.FreeDeliveryThreshold
	}
	if cfg.DeliveryFee.IsNegative() {
		cfg.DeliveryFee = def.DeliveryFee
	}
	if !cfg.RedeemCapRatio.IsPositive() {
		cfg.RedeemCapRatio = def.RedeemCapRatio
	}
	if !cfg.PointValue.IsPositive() {
		cfg.PointValue = def.PointValue
	}
	if cfg.EarnDivisor <= 0 {
		cfg.EarnDivisor = def.EarnDivisor
	}
	if cfg.WelcomeBonus <= 0 {
		cfg.WelcomeBonus = def.WelcomeBonus
	}
	if cfg.Policy != PolicyStrict {
		cfg.Policy = PolicyClamp
	}
	return Engine{cfg: cfg}
}

// Config exposes the effective configuration.
func (e Engine) Config() Config { return e.cfg }

// Subtotal sums unit price times quantity, ignoring lines with a non-positive quantity.
func Subtotal(lines []Line) (decimal.Decimal, error) {
	subtotal := decimal.Zero
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		if line.UnitPrice.IsNegative() {
			return decimal.Zero, fmt.Errorf("%w: dish %s has negative price", ErrInvalidLine, line.DishID)
		}
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return subtotal, nil
}

// DeliveryFeeFor returns the delivery fee owed for the subtotal.
func (e Engine) DeliveryFeeFor(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(e.cfg.FreeDeliveryThreshold) {
		return decimal.Zero
	}
	return e.cfg.DeliveryFee
}

// MaxRedeemable returns floor(min(available, subtotal × cap ratio)).
func (e Engine) MaxRedeemable(subtotal decimal.Decimal, available int) int {
	if available <= 0 || !subtotal.IsPositive() {
		return 0
	}
	limit := subtotal.Mul(e.cfg.RedeemCapRatio)
	avail := decimal.NewFromInt(int64(available))
	if avail.LessThan(limit) {
		limit = avail
	}
	return int(limit.Floor().IntPart())
}

// PointsEarned returns floor(total / earn divisor).
func (e Engine) PointsEarned(total decimal.Decimal) int {
	if !total.IsPositive() {
		return 0
	}
	return int(total.Div(decimal.NewFromInt(e.cfg.EarnDivisor)).Floor().IntPart())
}

// Compute prices the input. It has no side effects; identical inputs give identical summaries.
func (e Engine) Compute(in Input) (Summary, error) {
	subtotal, err := Subtotal(in.Lines)
	if err != nil {
		return Summary{}, err
	}
	available := in.AvailablePoints
	if available < 0 {
		available = 0
	}
	maxPoints := e.MaxRedeemable(subtotal, available)
	redeemed, err := e.redeem(in.RequestedPoints, available, maxPoints)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		Subtotal:            subtotal,
		DeliveryFee:         e.DeliveryFeeFor(subtotal),
		CouponDiscount:      decimal.Zero,
		RewardDiscount:      e.cfg.PointValue.Mul(decimal.NewFromInt(int64(redeemed))),
		PointsRedeemed:      redeemed,
		MaxRedeemablePoints: maxPoints,
	}
	if in.Coupon != nil {
		sum.CouponCode = in.Coupon.Code
		if reason := in.Coupon.Check(subtotal, in.At); reason != nil {
			sum.CouponReason = reason.Error()
		} else {
			sum.CouponApplied = true
			sum.CouponDiscount = in.Coupon.DiscountFor(subtotal)
		}
	}
	sum.Discount = sum.CouponDiscount.Add(sum.RewardDiscount)
	total := sum.Subtotal.Add(sum.DeliveryFee).Sub(sum.Discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	sum.Total = total
	sum.PointsEarned = e.PointsEarned(total)
	return sum.rounded(), nil
}

func (e Engine) redeem(requested, available, maxPoints int) (int, error) {
	if requested < 0 {
		return 0, &InvalidRedemptionError{Requested: requested, Available: available, Max: maxPoints}
	}
	if requested <= maxPoints {
		return requested, nil
	}
	if e.cfg.Policy == PolicyStrict {
		return 0, &InvalidRedemptionError{Requested: requested, Available: available, Max: maxPoints}
	}
	return maxPoints, nil
}

func (s Summary) rounded() Summary {
	s.Subtotal = s.Subtotal.Round(2)
	s.DeliveryFee = s.DeliveryFee.Round(2)
	s.CouponDiscount = s.CouponDiscount.Round(2)
	s.RewardDiscount = s.RewardDiscount.Round(2)
	s.Discount = s.Discount.Round(2)
	s.Total = s.Total.Round(2)
	return s
}
