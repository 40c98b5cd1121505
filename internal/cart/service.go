package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-resto/internal/catalog"
	"github.com/noah-isme/backend-resto/internal/coupon"
	"github.com/noah-isme/backend-resto/internal/obs"
	"github.com/noah-isme/backend-resto/internal/pricing"
)

// DishLookup resolves dishes by id with current prices. Ids no longer on the
// menu are absent from the result.
type DishLookup interface {
	Find(ctx context.Context, ids []string) (map[string]catalog.Dish, error)
}

// CouponLookup resolves coupon codes.
type CouponLookup interface {
	Lookup(ctx context.Context, code string) (*pricing.Coupon, error)
}

// PointsBalance reports a user's spendable reward points.
type PointsBalance interface {
	Balance(ctx context.Context, userID string) (int, error)
}

// ErrInvalidPoints is returned for negative reward point requests.
var ErrInvalidPoints = errors.New("reward points must not be negative")

// ErrCouponRequired is returned when applying an empty coupon code.
var ErrCouponRequired = errors.New("coupon code is required")

// Item is a priced cart line.
type Item struct {
	DishID    string          `json:"dishId"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"imageUrl"`
	IsVeg     bool            `json:"isVeg"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// View is the cart as shown in the cart drawer: stored session, priced lines and totals.
// Unavailable lists dishes that left the menu and were dropped from the session.
type View struct {
	Session     Session         `json:"session"`
	Items       []Item          `json:"items"`
	Unavailable []string        `json:"unavailable"`
	Summary     pricing.Summary `json:"summary"`
}

// Service implements the cart operations on top of Store.
type Service struct {
	Store   *Store
	Dishes  DishLookup
	Coupons CouponLookup
	Points  PointsBalance
	Engine  pricing.Engine
	Now     func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// AddItem adds qty of dishID, verifying the dish exists.
func (s *Service) AddItem(ctx context.Context, userID, dishID string, qty int) (Session, error) {
	if qty == 0 {
		qty = 1
	}
	found, err := s.Dishes.Find(ctx, []string{dishID})
	if err != nil {
		return Session{}, err
	}
	if _, ok := found[strings.ToLower(dishID)]; !ok {
		return Session{}, fmt.Errorf("%w: %s", catalog.ErrDishNotFound, dishID)
	}
	return s.Store.Update(ctx, userID, func(sess *Session) error {
		return sess.Add(strings.ToLower(dishID), qty)
	})
}

// SetQuantity sets the quantity of an existing line; zero removes it.
func (s *Service) SetQuantity(ctx context.Context, userID, dishID string, qty int) (Session, error) {
	return s.Store.Update(ctx, userID, func(sess *Session) error {
		return sess.SetQuantity(strings.ToLower(dishID), qty)
	})
}

// RemoveItem drops the line for dishID.
func (s *Service) RemoveItem(ctx context.Context, userID, dishID string) (Session, error) {
	return s.Store.Update(ctx, userID, func(sess *Session) error {
		return sess.Remove(strings.ToLower(dishID))
	})
}

// ApplyCoupon stores a known coupon code on the session. Applicability is reported by the quote.
func (s *Service) ApplyCoupon(ctx context.Context, userID, code string) (Session, error) {
	rule, err := s.Coupons.Lookup(ctx, code)
	if err != nil {
		return Session{}, err
	}
	if rule == nil {
		return Session{}, ErrCouponRequired
	}
	return s.Store.Update(ctx, userID, func(sess *Session) error {
		sess.CouponCode = rule.Code
		return nil
	})
}

// RemoveCoupon clears the session coupon.
func (s *Service) RemoveCoupon(ctx context.Context, userID string) (Session, error) {
	return s.Store.Update(ctx, userID, func(sess *Session) error {
		sess.CouponCode = ""
		return nil
	})
}

// SetRewardPoints records how many points the user wants to spend.
func (s *Service) SetRewardPoints(ctx context.Context, userID string, points int) (Session, error) {
	if points < 0 {
		return Session{}, ErrInvalidPoints
	}
	return s.Store.Update(ctx, userID, func(sess *Session) error {
		sess.RewardPoints = points
		return nil
	})
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.Store.Clear(ctx, userID)
}

// Quote prices the stored session with current dish prices, the session coupon
// and the user's reward balance.
func (s *Service) Quote(ctx context.Context, userID string) (View, error) {
	sess, err := s.Store.Load(ctx, userID)
	if err != nil {
		return View{}, err
	}
	dishes, err := s.Dishes.Find(ctx, sess.DishIDs())
	if err != nil {
		return View{}, err
	}
	unavailable := []string{}
	for _, l := range sess.Lines {
		if _, ok := dishes[l.DishID]; !ok {
			unavailable = append(unavailable, l.DishID)
		}
	}
	if len(unavailable) > 0 {
		sess = s.dropStale(ctx, userID, sess, unavailable)
	}
	items := make([]Item, 0, len(sess.Lines))
	lines := make([]pricing.Line, 0, len(sess.Lines))
	for _, l := range sess.Lines {
		d, ok := dishes[l.DishID]
		if !ok {
			continue
		}
		items = append(items, Item{
			DishID:    l.DishID,
			Name:      d.Name,
			ImageURL:  d.ImageURL,
			IsVeg:     d.IsVeg,
			UnitPrice: d.Price,
			Quantity:  l.Quantity,
			LineTotal: d.Price.Mul(decimal.NewFromInt(int64(l.Quantity))),
		})
		lines = append(lines, pricing.Line{DishID: l.DishID, UnitPrice: d.Price, Quantity: l.Quantity})
	}

	in := pricing.Input{Lines: lines, RequestedPoints: sess.RewardPoints, At: s.now()}
	couponMissing := false
	if sess.CouponCode != "" {
		rule, err := s.Coupons.Lookup(ctx, sess.CouponCode)
		switch {
		case err == nil:
			in.Coupon = rule
		case errors.Is(err, coupon.ErrNotFound):
			couponMissing = true
		default:
			return View{}, err
		}
	}
	if s.Points != nil && sess.RewardPoints > 0 {
		available, err := s.Points.Balance(ctx, userID)
		if err != nil {
			return View{}, err
		}
		in.AvailablePoints = available
	}
	summary, err := s.Engine.Compute(in)
	if err != nil {
		return View{}, err
	}
	if couponMissing {
		summary.CouponCode = sess.CouponCode
		summary.CouponReason = "coupon not found"
	}
	return View{Session: sess, Items: items, Unavailable: unavailable, Summary: summary}, nil
}

// dropStale removes lines for dishes that left the menu. A failed write only
// costs the user the same notice on the next load.
func (s *Service) dropStale(ctx context.Context, userID string, sess Session, stale []string) Session {
	updated, err := s.Store.Update(ctx, userID, func(cur *Session) error {
		for _, id := range stale {
			if err := cur.Remove(id); err != nil && !errors.Is(err, ErrLineNotFound) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		obs.Logger(ctx).Warn().Err(err).Str("user_id", userID).Strs("dish_ids", stale).Msg("drop unavailable cart lines failed")
		return sess
	}
	return updated
}
