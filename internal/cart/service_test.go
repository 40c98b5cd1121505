package cart_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-resto/internal/cart"
	"github.com/noah-isme/backend-resto/internal/catalog"
	"github.com/noah-isme/backend-resto/internal/common"
	"github.com/noah-isme/backend-resto/internal/coupon"
	"github.com/noah-isme/backend-resto/internal/pricing"
)

const (
	userID    = "6f1c2d3e-0000-4000-8000-000000000001"
	paneerID  = "11111111-1111-4111-8111-111111111111"
	lassiID   = "22222222-2222-4222-8222-222222222222"
	missingID = "33333333-3333-4333-8333-333333333333"
)

var now = time.Date(2026, 6, 1, 19, 0, 0, 0, time.UTC)

type fakeDishes map[string]catalog.Dish

func (f fakeDishes) Find(_ context.Context, ids []string) (map[string]catalog.Dish, error) {
	out := make(map[string]catalog.Dish, len(ids))
	for _, id := range ids {
		if d, ok := f[id]; ok {
			out[id] = d
		}
	}
	return out, nil
}

type fakeCoupons map[string]pricing.Coupon

func (f fakeCoupons) Lookup(_ context.Context, code string) (*pricing.Coupon, error) {
	c, ok := f[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", coupon.ErrNotFound, code)
	}
	return &c, nil
}

type fixedBalance int

func (b fixedBalance) Balance(context.Context, string) (int, error) { return int(b), nil }

func newService(t *testing.T, balance int) (*cart.Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return &cart.Service{
		Store: &cart.Store{Client: client, TTL: time.Hour, Now: func() time.Time { return now }},
		Dishes: fakeDishes{
			paneerID: {ID: paneerID, Name: "Paneer Tikka", Price: decimal.NewFromInt(100), IsVeg: true},
			lassiID:  {ID: lassiID, Name: "Mango Lassi", Price: decimal.NewFromInt(50), IsVeg: true},
		},
		Coupons: fakeCoupons{
			"FLAT50": {Code: "FLAT50", DiscountType: pricing.DiscountFixed, DiscountValue: decimal.NewFromInt(50), ExpiresAt: now.Add(time.Hour), IsActive: true},
		},
		Points: fixedBalance(balance),
		Engine: pricing.NewEngine(pricing.DefaultConfig()),
		Now:    func() time.Time { return now },
	}, mr
}

func TestAddItemMergesLinesAndPersistsWithTTL(t *testing.T) {
	svc, mr := newService(t, 0)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, userID, paneerID, 1)
	require.NoError(t, err)
	sess, err := svc.AddItem(ctx, userID, paneerID, 0)
	require.NoError(t, err)
	sess, err = svc.AddItem(ctx, userID, lassiID, 1)
	require.NoError(t, err)

	require.Equal(t, []cart.Line{{DishID: paneerID, Quantity: 2}, {DishID: lassiID, Quantity: 1}}, sess.Lines)
	require.True(t, mr.Exists("cart:"+userID))
	require.Equal(t, time.Hour, mr.TTL("cart:"+userID))
}

func TestAddUnknownDishFails(t *testing.T) {
	svc, _ := newService(t, 0)
	_, err := svc.AddItem(context.Background(), userID, missingID, 1)
	require.ErrorIs(t, err, catalog.ErrDishNotFound)
}

func TestSetQuantityZeroRemovesLine(t *testing.T) {
	svc, _ := newService(t, 0)
	ctx := context.Background()
	_, err := svc.AddItem(ctx, userID, paneerID, 3)
	require.NoError(t, err)

	sess, err := svc.SetQuantity(ctx, userID, paneerID, 0)
	require.NoError(t, err)
	require.True(t, sess.Empty())

	_, err = svc.SetQuantity(ctx, userID, paneerID, 2)
	require.ErrorIs(t, err, cart.ErrLineNotFound)
}

func TestQuoteUsesSessionCouponAndPoints(t *testing.T) {
	svc, _ := newService(t, 1000)
	ctx := context.Background()
	_, err := svc.AddItem(ctx, userID, paneerID, 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, userID, lassiID, 1)
	require.NoError(t, err)

	view, err := svc.Quote(ctx, userID)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(290).Equal(view.Summary.Total))
	require.Len(t, view.Items, 2)
	require.True(t, decimal.NewFromInt(200).Equal(view.Items[0].LineTotal))

	_, err = svc.ApplyCoupon(ctx, userID, "flat50")
	require.NoError(t, err)
	_, err = svc.SetRewardPoints(ctx, userID, 100)
	require.NoError(t, err)

	view, err = svc.Quote(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, "FLAT50", view.Session.CouponCode)
	require.True(t, view.Summary.CouponApplied)
	require.Equal(t, 50, view.Summary.PointsRedeemed)
	// 250 + 40 - 50 - 5
	require.True(t, decimal.NewFromInt(235).Equal(view.Summary.Total))
}

func TestQuoteDropsDishesRemovedFromMenu(t *testing.T) {
	svc, mr := newService(t, 0)
	ctx := context.Background()
	_, err := svc.AddItem(ctx, userID, paneerID, 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, userID, lassiID, 1)
	require.NoError(t, err)

	delete(svc.Dishes.(fakeDishes), lassiID)

	view, err := svc.Quote(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, []string{lassiID}, view.Unavailable)
	require.Len(t, view.Items, 1)
	require.Equal(t, paneerID, view.Items[0].DishID)
	require.Equal(t, []cart.Line{{DishID: paneerID, Quantity: 2}}, view.Session.Lines)
	// 200 + 40 delivery
	require.True(t, decimal.NewFromInt(240).Equal(view.Summary.Total))

	stored, err := mr.Get("cart:" + userID)
	require.NoError(t, err)
	require.NotContains(t, stored, lassiID)

	view, err = svc.Quote(ctx, userID)
	require.NoError(t, err)
	require.Empty(t, view.Unavailable)
	require.Len(t, view.Items, 1)
}

func TestQuoteWithOnlyRemovedDishesLeavesEmptyCart(t *testing.T) {
	svc, _ := newService(t, 0)
	ctx := context.Background()
	_, err := svc.AddItem(ctx, userID, lassiID, 3)
	require.NoError(t, err)

	delete(svc.Dishes.(fakeDishes), lassiID)

	view, err := svc.Quote(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, []string{lassiID}, view.Unavailable)
	require.Empty(t, view.Items)
	require.True(t, view.Session.Empty())
}

func TestApplyUnknownCoupon(t *testing.T) {
	svc, _ := newService(t, 0)
	_, err := svc.ApplyCoupon(context.Background(), userID, "NOPE")
	require.ErrorIs(t, err, coupon.ErrNotFound)
}

func TestClearRemovesSession(t *testing.T) {
	svc, mr := newService(t, 0)
	ctx := context.Background()
	_, err := svc.AddItem(ctx, userID, paneerID, 1)
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx, userID))
	require.False(t, mr.Exists("cart:"+userID))

	sess, err := svc.Store.Load(ctx, userID)
	require.NoError(t, err)
	require.True(t, sess.Empty())
}

func TestHandlerRequiresAuthentication(t *testing.T) {
	svc, _ := newService(t, 0)
	h := &cart.Handler{Svc: svc}
	rr := httptest.NewRecorder()
	h.Get(rr, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandlerUpdateItem(t *testing.T) {
	svc, _ := newService(t, 0)
	h := &cart.Handler{Svc: svc}
	ctx := common.WithUserID(context.Background(), userID)

	req := httptest.NewRequest(http.MethodPost, "/api/cart/items", strings.NewReader(`{"dishId":"`+paneerID+`","quantity":2}`)).WithContext(ctx)
	rr := httptest.NewRecorder()
	h.AddItem(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("dishId", paneerID)
	req = httptest.NewRequest(http.MethodPatch, "/api/cart/items/"+paneerID, strings.NewReader(`{"quantity":120}`))
	req = req.WithContext(context.WithValue(ctx, chi.RouteCtxKey, rctx))
	rr = httptest.NewRecorder()
	h.UpdateItem(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rctx = chi.NewRouteContext()
	rctx.URLParams.Add("dishId", lassiID)
	req = httptest.NewRequest(http.MethodPatch, "/api/cart/items/"+lassiID, strings.NewReader(`{"quantity":1}`))
	req = req.WithContext(context.WithValue(ctx, chi.RouteCtxKey, rctx))
	rr = httptest.NewRecorder()
	h.UpdateItem(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerStrictRedemptionIsUnprocessable(t *testing.T) {
	svc, _ := newService(t, 1000)
	cfg := pricing.DefaultConfig()
	cfg.Policy = pricing.PolicyStrict
	svc.Engine = pricing.NewEngine(cfg)
	ctx := common.WithUserID(context.Background(), userID)
	_, err := svc.AddItem(ctx, userID, paneerID, 2)
	require.NoError(t, err)
	_, err = svc.SetRewardPoints(ctx, userID, 100)
	require.NoError(t, err)

	h := &cart.Handler{Svc: svc}
	rr := httptest.NewRecorder()
	h.Quote(rr, httptest.NewRequest(http.MethodGet, "/api/cart/quote", nil).WithContext(ctx))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Contains(t, rr.Body.String(), "INVALID_REDEMPTION")
}
