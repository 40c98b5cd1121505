package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
	"github.com/noah-isme/backend-resto/internal/obs"
	"github.com/noah-isme/backend-resto/internal/pricing"
)

// ExpiringSoonWindow is how close to expiry a coupon is flagged in listings.
const ExpiringSoonWindow = 24 * time.Hour

// ErrNotFound is returned when no coupon carries the requested code.
var ErrNotFound = errors.New("coupon not found")

// Querier captures the database methods required by the coupon service.
type Querier interface {
	GetCouponByCode(ctx context.Context, code string) (dbgen.Coupon, error)
	ListCoupons(ctx context.Context) ([]dbgen.Coupon, error)
	ListActiveCoupons(ctx context.Context, now pgtype.Timestamptz) ([]dbgen.Coupon, error)
}

// View is the public coupon payload.
type View struct {
	Code          string              `json:"code"`
	Description   string              `json:"description"`
	DiscountType  string              `json:"discountType"`
	DiscountValue decimal.Decimal     `json:"discountValue"`
	MinOrderValue decimal.NullDecimal `json:"minOrderValue"`
	MaxDiscount   decimal.NullDecimal `json:"maxDiscount"`
	ExpiresAt     time.Time           `json:"expiresAt"`
	IsActive      bool                `json:"isActive"`
	ExpiringSoon  bool                `json:"expiringSoon"`
}

// PreviewResult describes the outcome of evaluating a coupon against a subtotal without side effects.
type PreviewResult struct {
	Code     string          `json:"code"`
	Valid    bool            `json:"valid"`
	Discount decimal.Decimal `json:"discount"`
	Reason   string          `json:"reason,omitempty"`
}

// Service reads coupons and converts them to pricing rules.
type Service struct {
	Q   Querier
	Now func() time.Time
}

// List returns coupons ordered by expiry. activeOnly restricts the list to
// coupons that are active and unexpired now.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]View, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("coupon service not configured")
	}
	now := s.now()
	var (
		rows []dbgen.Coupon
		err  error
	)
	if activeOnly {
		rows, err = s.Q.ListActiveCoupons(ctx, pgtype.Timestamptz{Time: now, Valid: true})
	} else {
		rows, err = s.Q.ListCoupons(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	out := make([]View, 0, len(rows))
	for _, row := range rows {
		rule := RuleFromModel(row)
		out = append(out, View{
			Code:          rule.Code,
			Description:   rule.Description,
			DiscountType:  string(rule.DiscountType),
			DiscountValue: rule.DiscountValue,
			MinOrderValue: rule.MinOrderValue,
			MaxDiscount:   rule.MaxDiscount,
			ExpiresAt:     rule.ExpiresAt,
			IsActive:      rule.IsActive,
			ExpiringSoon:  rule.IsActive && rule.ExpiringSoon(now, ExpiringSoonWindow),
		})
	}
	return out, nil
}

// Lookup resolves a code case-insensitively. An empty code yields (nil, nil).
func (s *Service) Lookup(ctx context.Context, code string) (*pricing.Coupon, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("coupon service not configured")
	}
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil, nil
	}
	row, err := s.Q.GetCouponByCode(ctx, trimmed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, trimmed)
		}
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	rule := RuleFromModel(row)
	return &rule, nil
}

// Preview evaluates code against subtotal at the current time.
func (s *Service) Preview(ctx context.Context, code string, subtotal decimal.Decimal) (PreviewResult, error) {
	rule, err := s.Lookup(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			obs.RecordCouponApplication("unknown")
			return PreviewResult{Code: strings.ToUpper(strings.TrimSpace(code)), Reason: ErrNotFound.Error()}, nil
		}
		return PreviewResult{}, err
	}
	if rule == nil {
		return PreviewResult{}, errors.New("code is required")
	}
	if reason := rule.Check(subtotal, s.now()); reason != nil {
		obs.RecordCouponApplication("rejected")
		return PreviewResult{Code: rule.Code, Reason: reason.Error(), Discount: decimal.Zero}, nil
	}
	obs.RecordCouponApplication("preview")
	return PreviewResult{Code: rule.Code, Valid: true, Discount: rule.DiscountFor(subtotal)}, nil
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// RuleFromModel converts the generated sqlc model into the pricing coupon rule.
func RuleFromModel(c dbgen.Coupon) pricing.Coupon {
	rule := pricing.Coupon{
		Code:          c.Code,
		Description:   c.Description,
		DiscountType:  pricing.DiscountType(c.DiscountType),
		DiscountValue: c.DiscountValue,
		MinOrderValue: c.MinOrderValue,
		MaxDiscount:   c.MaxDiscount,
		IsActive:      c.IsActive,
	}
	if c.ExpiresAt.Valid {
		rule.ExpiresAt = c.ExpiresAt.Time
	}
	return rule
}
