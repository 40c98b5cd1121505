package order_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-resto/internal/cart"
	"github.com/noah-isme/backend-resto/internal/catalog"
	"github.com/noah-isme/backend-resto/internal/common"
	"github.com/noah-isme/backend-resto/internal/coupon"
	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
	"github.com/noah-isme/backend-resto/internal/events"
	"github.com/noah-isme/backend-resto/internal/lock"
	"github.com/noah-isme/backend-resto/internal/order"
	"github.com/noah-isme/backend-resto/internal/pricing"
)

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type memStore struct {
	dbgen.Querier

	mu        sync.Mutex
	users     map[pgtype.UUID]*dbgen.User
	addresses map[pgtype.UUID]dbgen.Address
	orders    []dbgen.Order
	history   []dbgen.RewardHistory
	events    []dbgen.DomainEvent
}

func newMemStore() *memStore {
	return &memStore{
		users:     make(map[pgtype.UUID]*dbgen.User),
		addresses: make(map[pgtype.UUID]dbgen.Address),
	}
}

func newID() pgtype.UUID { return pgtype.UUID{Bytes: uuid.New(), Valid: true} }

func (m *memStore) addUser(points int32) pgtype.UUID {
	id := newID()
	m.users[id] = &dbgen.User{ID: id, Name: "Asha", Email: "asha@example.com", RewardPoints: points}
	return id
}

func (m *memStore) addAddress(userID pgtype.UUID, isDefault bool) pgtype.UUID {
	id := newID()
	m.addresses[id] = dbgen.Address{ID: id, UserID: userID, Type: "home", AddressLine1: "1 MG Road", City: "Pune", State: "MH", Pincode: "411001", IsDefault: isDefault}
	return id
}

func (m *memStore) GetUserForUpdate(_ context.Context, id pgtype.UUID) (dbgen.User, error) {
	u, ok := m.users[id]
	if !ok {
		return dbgen.User{}, pgx.ErrNoRows
	}
	return *u, nil
}

func (m *memStore) GetDefaultAddress(_ context.Context, userID pgtype.UUID) (dbgen.Address, error) {
	for _, a := range m.addresses {
		if a.UserID == userID && a.IsDefault {
			return a, nil
		}
	}
	return dbgen.Address{}, pgx.ErrNoRows
}

func (m *memStore) GetAddressByID(_ context.Context, id pgtype.UUID) (dbgen.Address, error) {
	a, ok := m.addresses[id]
	if !ok {
		return dbgen.Address{}, pgx.ErrNoRows
	}
	return a, nil
}

func (m *memStore) CreateOrder(_ context.Context, arg dbgen.CreateOrderParams) (dbgen.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts := pgtype.Timestamptz{Time: fixedNow.Add(time.Duration(len(m.orders)) * time.Minute), Valid: true}
	row := dbgen.Order{
		ID:                    newID(),
		UserID:                arg.UserID,
		AddressID:             arg.AddressID,
		AddressSnapshot:       arg.AddressSnapshot,
		Items:                 arg.Items,
		Subtotal:              arg.Subtotal,
		Discount:              arg.Discount,
		CouponDiscount:        arg.CouponDiscount,
		RewardDiscount:        arg.RewardDiscount,
		DeliveryFee:           arg.DeliveryFee,
		Total:                 arg.Total,
		CouponCode:            arg.CouponCode,
		RewardPointsUsed:      arg.RewardPointsUsed,
		PointsEarned:          arg.PointsEarned,
		Status:                arg.Status,
		ScheduledFor:          arg.ScheduledFor,
		EstimatedDeliveryTime: arg.EstimatedDeliveryTime,
		CreatedAt:             ts,
		UpdatedAt:             ts,
	}
	m.orders = append(m.orders, row)
	return row, nil
}

func (m *memStore) GetOrderByID(_ context.Context, id pgtype.UUID) (dbgen.Order, error) {
	for _, o := range m.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return dbgen.Order{}, pgx.ErrNoRows
}

func (m *memStore) UpdateOrderStatus(_ context.Context, arg dbgen.UpdateOrderStatusParams) (dbgen.Order, error) {
	for i, o := range m.orders {
		if o.ID == arg.ID {
			m.orders[i].Status = arg.Status
			return m.orders[i], nil
		}
	}
	return dbgen.Order{}, pgx.ErrNoRows
}

func (m *memStore) CountOrdersByUser(_ context.Context, userID pgtype.UUID) (int64, error) {
	var n int64
	for _, o := range m.orders {
		if o.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListOrdersByUser(_ context.Context, arg dbgen.ListOrdersByUserParams) ([]dbgen.Order, error) {
	var out []dbgen.Order
	for i := len(m.orders) - 1; i >= 0; i-- {
		if m.orders[i].UserID == arg.UserID {
			out = append(out, m.orders[i])
		}
	}
	return out, nil
}

func (m *memStore) AdjustUserRewardPoints(_ context.Context, arg dbgen.AdjustUserRewardPointsParams) (int32, error) {
	u, ok := m.users[arg.ID]
	if !ok || u.RewardPoints+arg.Delta < 0 {
		return 0, pgx.ErrNoRows
	}
	u.RewardPoints += arg.Delta
	return u.RewardPoints, nil
}

func (m *memStore) InsertRewardHistory(_ context.Context, arg dbgen.InsertRewardHistoryParams) (dbgen.RewardHistory, error) {
	row := dbgen.RewardHistory{ID: newID(), UserID: arg.UserID, Points: arg.Points, Reason: arg.Reason, OrderID: arg.OrderID}
	m.history = append(m.history, row)
	return row, nil
}

func (m *memStore) InsertDomainEvent(_ context.Context, arg dbgen.InsertDomainEventParams) (dbgen.DomainEvent, error) {
	ev := dbgen.DomainEvent{ID: newID(), Topic: arg.Topic, AggregateID: arg.AggregateID, Payload: arg.Payload}
	m.events = append(m.events, ev)
	return ev, nil
}

type menu map[string]catalog.Dish

func (d menu) Lookup(_ context.Context, ids []string) (map[string]catalog.Dish, error) {
	out := make(map[string]catalog.Dish, len(ids))
	for _, id := range ids {
		dish, ok := d[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", catalog.ErrDishNotFound, id)
		}
		out[id] = dish
	}
	return out, nil
}

type coupons map[string]pricing.Coupon

func (c coupons) Lookup(_ context.Context, code string) (*pricing.Coupon, error) {
	rule, ok := c[strings.ToUpper(code)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", coupon.ErrNotFound, code)
	}
	return &rule, nil
}

type recordingCarts struct{ cleared []string }

func (r *recordingCarts) Clear(_ context.Context, userID string) error {
	r.cleared = append(r.cleared, userID)
	return nil
}

type recordingNotifier struct{ topics []string }

func (r *recordingNotifier) Notify(_ context.Context, ev dbgen.DomainEvent) error {
	r.topics = append(r.topics, ev.Topic)
	return nil
}

type fixture struct {
	mr       *miniredis.Miniredis
	redis    *redis.Client
	store    *memStore
	svc      *order.Service
	carts    *recordingCarts
	notifier *recordingNotifier
	userID   pgtype.UUID
	addrID   pgtype.UUID
	paneer   string
	naan     string
}

func newFixture(t *testing.T, points int32) *fixture {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := newMemStore()
	userID := store.addUser(points)
	addrID := store.addAddress(userID, true)

	paneer, naan := uuid.NewString(), uuid.NewString()
	dishes := menu{
		paneer: {ID: paneer, Name: "Paneer Tikka", Price: decimal.NewFromInt(200), IsVeg: true},
		naan:   {ID: naan, Name: "Butter Naan", Price: decimal.NewFromInt(150), IsVeg: true},
	}
	expires := fixedNow.Add(48 * time.Hour)
	rules := coupons{
		"FLAT50": {Code: "FLAT50", DiscountType: pricing.DiscountFixed, DiscountValue: decimal.NewFromInt(50), ExpiresAt: expires, IsActive: true},
		"BIG1000": {
			Code: "BIG1000", DiscountType: pricing.DiscountPercentage, DiscountValue: decimal.NewFromInt(10),
			MinOrderValue: decimal.NewNullDecimal(decimal.NewFromInt(1000)), ExpiresAt: expires, IsActive: true,
		},
	}

	carts := &recordingCarts{}
	notifier := &recordingNotifier{}
	svc := &order.Service{
		Q:                 store,
		Bus:               &events.Bus{Store: store, Notifiers: []events.Notifier{notifier}},
		Dishes:            dishes,
		Coupons:           rules,
		Carts:             carts,
		Locker:            lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond},
		Engine:            pricing.NewEngine(pricing.DefaultConfig()),
		EstimatedDelivery: "35-45 mins",
		Now:               func() time.Time { return fixedNow },
	}
	return &fixture{mr: mr, redis: client, store: store, svc: svc, carts: carts, notifier: notifier, userID: userID, addrID: addrID, paneer: paneer, naan: naan}
}

func (f *fixture) caller() string { return common.UUIDString(f.userID) }

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func requireCode(t *testing.T, err error, status int, code string) {
	t.Helper()
	require.Error(t, err)
	appErr := common.AsAppError(err)
	require.Equal(t, status, appErr.HTTPStatus, appErr.Message)
	require.Equal(t, code, appErr.Code)
}

func TestPlaceRepricesRedeemsAndEarns(t *testing.T) {
	f := newFixture(t, 100)

	placed, err := f.svc.Place(context.Background(), f.caller(), order.PlaceInput{
		UserID:           f.caller(),
		Lines:            []order.LineRequest{{DishID: f.paneer, Quantity: 2}, {DishID: f.naan, Quantity: 1}},
		RewardPointsUsed: 100,
		Subtotal:         dec("550"),
		DeliveryFee:      dec("0"),
		Total:            dec("540"),
	})
	require.NoError(t, err)

	require.True(t, placed.Subtotal.Equal(decimal.NewFromInt(550)))
	require.True(t, placed.DeliveryFee.IsZero())
	require.True(t, placed.RewardDiscount.Equal(decimal.NewFromInt(10)))
	require.True(t, placed.Total.Equal(decimal.NewFromInt(540)))
	require.Equal(t, 100, placed.RewardPointsUsed)
	require.Equal(t, 54, placed.PointsEarned)
	require.Equal(t, order.StatusReceived, placed.Status)
	require.Equal(t, "Order Received", placed.StatusInfo.Label)
	require.Equal(t, "35-45 mins", placed.EstimatedDeliveryTime)
	require.Equal(t, common.UUIDString(f.addrID), placed.AddressID)
	require.Contains(t, string(placed.Address), `"addressLine1":"1 MG Road"`)
	require.Len(t, placed.Items, 2)
	require.Equal(t, "Paneer Tikka", placed.Items[0].Name)
	require.True(t, placed.Items[0].LineTotal.Equal(decimal.NewFromInt(400)))

	require.Equal(t, int32(54), f.store.users[f.userID].RewardPoints)
	require.Len(t, f.store.history, 2)
	require.Equal(t, "order_redeemed", f.store.history[0].Reason)
	require.Equal(t, int32(-100), f.store.history[0].Points)
	require.Equal(t, "order_earned", f.store.history[1].Reason)

	require.Len(t, f.store.events, 1)
	var payload events.OrderPlaced
	require.NoError(t, json.Unmarshal(f.store.events[0].Payload, &payload))
	require.Equal(t, placed.ID, payload.OrderID)
	require.Equal(t, "asha@example.com", payload.Email)
	require.Equal(t, 3, payload.ItemCount)
	require.Equal(t, []string{events.TopicOrderPlaced}, f.notifier.topics)
	require.Equal(t, []string{f.caller()}, f.carts.cleared)
}

func TestPlaceClampsRedemptionToCap(t *testing.T) {
	f := newFixture(t, 1000)

	placed, err := f.svc.Place(context.Background(), f.caller(), order.PlaceInput{
		Lines:            []order.LineRequest{{DishID: f.naan, Quantity: 2}},
		RewardPointsUsed: 1000,
	})
	require.NoError(t, err)
	// 20% of 300 is 60 points, worth 6.
	require.Equal(t, 60, placed.RewardPointsUsed)
	require.True(t, placed.DeliveryFee.Equal(decimal.NewFromInt(40)))
	require.True(t, placed.Total.Equal(decimal.NewFromInt(334)))
	require.Equal(t, 33, placed.PointsEarned)
	require.Equal(t, int32(1000-60+33), f.store.users[f.userID].RewardPoints)
}

func TestPlaceRejectsStaleClientTotals(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.svc.Place(context.Background(), f.caller(), order.PlaceInput{
		Lines:    []order.LineRequest{{DishID: f.paneer, Quantity: 1}},
		Subtotal: dec("180"),
		Total:    dec("220"),
	})
	requireCode(t, err, http.StatusUnprocessableEntity, "PRICING_MISMATCH")
	details, ok := common.AsAppError(err).Details.(map[string]any)
	require.True(t, ok)
	server, ok := details["server"].(pricing.Summary)
	require.True(t, ok)
	require.True(t, server.Total.Equal(decimal.NewFromInt(240)))

	require.Empty(t, f.store.orders)
	require.Empty(t, f.store.events)
	require.Empty(t, f.carts.cleared)
}

func TestPlaceCoupon(t *testing.T) {
	t.Run("applied", func(t *testing.T) {
		f := newFixture(t, 0)
		placed, err := f.svc.Place(context.Background(), f.caller(), order.PlaceInput{
			Lines:      []order.LineRequest{{DishID: f.paneer, Quantity: 3}},
			CouponCode: "flat50",
		})
		require.NoError(t, err)
		require.Equal(t, "FLAT50", placed.CouponCode)
		require.True(t, placed.CouponDiscount.Equal(decimal.NewFromInt(50)))
		require.True(t, placed.Total.Equal(decimal.NewFromInt(550)))
	})

	t.Run("minimum not met", func(t *testing.T) {
		f := newFixture(t, 0)
		_, err := f.svc.Place(context.Background(), f.caller(), order.PlaceInput{
			Lines:      []order.LineRequest{{DishID: f.paneer, Quantity: 1}},
			CouponCode: "BIG1000",
		})
		requireCode(t, err, http.StatusUnprocessableEntity, "COUPON_NOT_APPLICABLE")
		details := common.AsAppError(err).Details.(map[string]any)
		require.Equal(t, pricing.ErrMinimumOrderUnmet.Error(), details["reason"])
		require.Empty(t, f.store.orders)
	})

	t.Run("unknown", func(t *testing.T) {
		f := newFixture(t, 0)
		_, err := f.svc.Place(context.Background(), f.caller(), order.PlaceInput{
			Lines:      []order.LineRequest{{DishID: f.paneer, Quantity: 1}},
			CouponCode: "NOPE",
		})
		requireCode(t, err, http.StatusUnprocessableEntity, "COUPON_NOT_APPLICABLE")
	})
}

func TestPlaceValidation(t *testing.T) {
	f := newFixture(t, 0)
	other := f.store.addUser(0)
	foreignAddr := f.store.addAddress(other, true)
	ctx := context.Background()

	tests := []struct {
		name   string
		in     order.PlaceInput
		status int
		code   string
	}{
		{
			name:   "empty",
			in:     order.PlaceInput{},
			status: http.StatusUnprocessableEntity,
			code:   "CART_EMPTY",
		},
		{
			name:   "unknown dish",
			in:     order.PlaceInput{Lines: []order.LineRequest{{DishID: uuid.NewString(), Quantity: 1}}},
			status: http.StatusUnprocessableEntity,
			code:   "VALIDATION_ERROR",
		},
		{
			name:   "zero quantity",
			in:     order.PlaceInput{Lines: []order.LineRequest{{DishID: f.paneer, Quantity: 0}}},
			status: http.StatusUnprocessableEntity,
			code:   "VALIDATION_ERROR",
		},
		{
			name:   "someone else's user id",
			in:     order.PlaceInput{UserID: common.UUIDString(other), Lines: []order.LineRequest{{DishID: f.paneer, Quantity: 1}}},
			status: http.StatusForbidden,
			code:   "FORBIDDEN",
		},
		{
			name:   "someone else's address",
			in:     order.PlaceInput{AddressID: common.UUIDString(foreignAddr), Lines: []order.LineRequest{{DishID: f.paneer, Quantity: 1}}},
			status: http.StatusNotFound,
			code:   "NOT_FOUND",
		},
		{
			name:   "scheduled in the past",
			in:     order.PlaceInput{ScheduledFor: &time.Time{}, Lines: []order.LineRequest{{DishID: f.paneer, Quantity: 1}}},
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Place(ctx, f.caller(), tt.in)
			requireCode(t, err, tt.status, tt.code)
		})
	}
	require.Empty(t, f.store.orders)
}

func TestPlaceRejectsOversizedQuantities(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	tests := []struct {
		name  string
		lines []order.LineRequest
	}{
		{name: "one over the cap", lines: []order.LineRequest{{DishID: f.paneer, Quantity: cart.MaxQuantity + 1}}},
		{name: "huge single line", lines: []order.LineRequest{{DishID: f.paneer, Quantity: 1 << 40}}},
		{name: "duplicates that would overflow", lines: []order.LineRequest{{DishID: f.paneer, Quantity: 1 << 62}, {DishID: f.paneer, Quantity: 1 << 62}}},
		{name: "duplicates summing past the cap", lines: []order.LineRequest{{DishID: f.paneer, Quantity: 60}, {DishID: strings.ToUpper(f.paneer), Quantity: 40}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Place(ctx, f.caller(), order.PlaceInput{Lines: tt.lines})
			requireCode(t, err, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
		})
	}
	require.Empty(t, f.store.orders)
	require.Empty(t, f.store.history)

	placed, err := f.svc.Place(ctx, f.caller(), order.PlaceInput{
		Lines: []order.LineRequest{{DishID: f.paneer, Quantity: 50}, {DishID: f.paneer, Quantity: 49}},
	})
	require.NoError(t, err)
	require.Len(t, placed.Items, 1)
	require.Equal(t, cart.MaxQuantity, placed.Items[0].Quantity)
}

func TestPlaceWhileAnotherOrderHoldsTheLock(t *testing.T) {
	f := newFixture(t, 0)
	key := "lock:order:" + f.caller()
	require.NoError(t, f.mr.Set(key, "other-request"))
	f.svc.Locker = lock.Locker{R: f.redis, RetryBackoff: 5 * time.Millisecond, MaxWait: 30 * time.Millisecond}

	_, err := f.svc.Place(context.Background(), f.caller(), order.PlaceInput{
		Lines: []order.LineRequest{{DishID: f.paneer, Quantity: 1}},
	})
	requireCode(t, err, http.StatusConflict, "ORDER_IN_PROGRESS")
	require.Empty(t, f.store.orders)
	require.Empty(t, f.store.events)
	require.Empty(t, f.carts.cleared)

	holder, err := f.mr.Get(key)
	require.NoError(t, err)
	require.Equal(t, "other-request", holder)
}

func TestFromModelLogsCorruptItems(t *testing.T) {
	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(context.Background())

	got := order.FromModel(ctx, dbgen.Order{ID: newID(), Items: []byte(`{"not":"a list"`), Status: order.StatusReceived})
	require.Empty(t, got.Items)
	require.NotNil(t, got.Items)
	require.Contains(t, buf.String(), "order_items_snapshot_corrupt")
}

func TestPlaceWithoutAddress(t *testing.T) {
	f := newFixture(t, 0)
	delete(f.store.addresses, f.addrID)

	_, err := f.svc.Place(context.Background(), f.caller(), order.PlaceInput{
		Lines: []order.LineRequest{{DishID: f.paneer, Quantity: 1}},
	})
	requireCode(t, err, http.StatusUnprocessableEntity, "ADDRESS_REQUIRED")
}

func TestUpdateStatusMovesForwardOnly(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	placed, err := f.svc.Place(ctx, f.caller(), order.PlaceInput{Lines: []order.LineRequest{{DishID: f.paneer, Quantity: 1}}})
	require.NoError(t, err)

	updated, err := f.svc.UpdateStatus(ctx, placed.ID, "Out-For-Delivery")
	require.NoError(t, err)
	require.Equal(t, order.StatusOutForDelivery, updated.Status)
	require.Equal(t, 3, updated.StatusInfo.Step)
	require.Equal(t, []string{events.TopicOrderPlaced, events.TopicOrderStatusChanged}, f.notifier.topics)

	_, err = f.svc.UpdateStatus(ctx, placed.ID, order.StatusPreparing)
	requireCode(t, err, http.StatusUnprocessableEntity, "INVALID_STATUS_TRANSITION")

	_, err = f.svc.UpdateStatus(ctx, placed.ID, "cancelled")
	requireCode(t, err, http.StatusBadRequest, "VALIDATION_ERROR")

	_, err = f.svc.UpdateStatus(ctx, uuid.NewString(), order.StatusDelivered)
	requireCode(t, err, http.StatusNotFound, "NOT_FOUND")
}

func TestGetHidesOtherUsersOrders(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	placed, err := f.svc.Place(ctx, f.caller(), order.PlaceInput{Lines: []order.LineRequest{{DishID: f.naan, Quantity: 1}}})
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, f.caller(), placed.ID)
	require.NoError(t, err)
	require.Equal(t, placed.ID, got.ID)

	_, err = f.svc.Get(ctx, uuid.NewString(), placed.ID)
	requireCode(t, err, http.StatusNotFound, "NOT_FOUND")
}

func TestParseItems(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []order.LineRequest
	}{
		{name: "array", raw: `[{"dishId":"a","quantity":2}]`, want: []order.LineRequest{{DishID: "a", Quantity: 2}}},
		{name: "string", raw: `"[{\"dishId\":\"a\",\"quantity\":3}]"`, want: []order.LineRequest{{DishID: "a", Quantity: 3}}},
		{name: "nested dish", raw: `"[{\"dish\":{\"id\":\"b\",\"price\":\"120\"},\"quantity\":1}]"`, want: []order.LineRequest{{DishID: "b", Quantity: 1}}},
		{name: "default quantity", raw: `[{"dishId":"c"}]`, want: []order.LineRequest{{DishID: "c", Quantity: 1}}},
		{name: "null", raw: `null`, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := order.ParseItems(json.RawMessage(tt.raw))
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := order.ParseItems(json.RawMessage(`"not json"`))
	require.Error(t, err)
}

func TestCanTransition(t *testing.T) {
	require.True(t, order.CanTransition(order.StatusReceived, order.StatusPreparing))
	require.True(t, order.CanTransition(order.StatusReceived, order.StatusDelivered))
	require.False(t, order.CanTransition(order.StatusDelivered, order.StatusReceived))
	require.False(t, order.CanTransition(order.StatusPreparing, order.StatusPreparing))
	require.False(t, order.CanTransition("lost", order.StatusDelivered))
	require.Len(t, order.Statuses(), 4)
}

func TestPlaceHandlerAcceptsStringItems(t *testing.T) {
	f := newFixture(t, 0)
	h := &order.Handler{Service: f.svc}
	items, err := json.Marshal(fmt.Sprintf(`[{"dish":{"id":%q},"quantity":2}]`, f.paneer))
	require.NoError(t, err)
	body := fmt.Sprintf(`{"userId":%q,"addressId":%q,"items":%s,"subtotal":"400","discount":"0","deliveryFee":"40","total":"440","couponCode":null,"rewardPointsUsed":0,"status":"received","scheduledFor":null,"estimatedDeliveryTime":"30-40 mins"}`,
		f.caller(), common.UUIDString(f.addrID), items)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	req = req.WithContext(common.WithUserID(req.Context(), f.caller()))
	rec := httptest.NewRecorder()
	h.Place(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Data order.Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Data.Total.Equal(decimal.NewFromInt(440)))
	require.Equal(t, "35-45 mins", resp.Data.EstimatedDeliveryTime)
}

func TestListHandlerRequiresSelf(t *testing.T) {
	f := newFixture(t, 0)
	h := &order.Handler{Service: f.svc}
	_, err := f.svc.Place(context.Background(), f.caller(), order.PlaceInput{Lines: []order.LineRequest{{DishID: f.naan, Quantity: 1}}})
	require.NoError(t, err)

	list := func(owner string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/orders/user/"+owner, nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("userId", owner)
		req = req.WithContext(context.WithValue(common.WithUserID(req.Context(), f.caller()), chi.RouteCtxKey, rctx))
		rec := httptest.NewRecorder()
		h.ListByUser(rec, req)
		return rec
	}

	rec := list(f.caller())
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "1", rec.Header().Get("X-Total-Count"))
	require.Contains(t, rec.Body.String(), `"label":"Order Received"`)

	rec = list(uuid.NewString())
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminPatchStatus(t *testing.T) {
	f := newFixture(t, 0)
	placed, err := f.svc.Place(context.Background(), f.caller(), order.PlaceInput{Lines: []order.LineRequest{{DishID: f.naan, Quantity: 1}}})
	require.NoError(t, err)
	h := &order.AdminHandler{Service: f.svc}

	patch := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, "/api/admin/orders/"+placed.ID+"/status", strings.NewReader(body))
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", placed.ID)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
		rec := httptest.NewRecorder()
		h.PatchStatus(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, patch(`{"status":"preparing"}`).Code)
	require.Equal(t, http.StatusUnprocessableEntity, patch(`{"status":"received"}`).Code)
	require.Equal(t, http.StatusBadRequest, patch(`{}`).Code)
}
