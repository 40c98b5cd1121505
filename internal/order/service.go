package order

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-resto/internal/cart"
	"github.com/noah-isme/backend-resto/internal/catalog"
	"github.com/noah-isme/backend-resto/internal/common"
	"github.com/noah-isme/backend-resto/internal/coupon"
	"github.com/noah-isme/backend-resto/internal/db"
	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
	"github.com/noah-isme/backend-resto/internal/events"
	"github.com/noah-isme/backend-resto/internal/lock"
	"github.com/noah-isme/backend-resto/internal/obs"
	"github.com/noah-isme/backend-resto/internal/pricing"
	"github.com/noah-isme/backend-resto/internal/rewards"
	"github.com/noah-isme/backend-resto/internal/user"
)

const (
	defaultEstimatedDelivery = "30-40 mins"
	defaultLockTTL           = 10 * time.Second
	lockKeyPrefix            = "lock:order:"
)

// DishLookup resolves dishes with their current prices.
type DishLookup interface {
	Lookup(ctx context.Context, ids []string) (map[string]catalog.Dish, error)
}

// CouponLookup resolves coupon codes.
type CouponLookup interface {
	Lookup(ctx context.Context, code string) (*pricing.Coupon, error)
}

// CartClearer empties a user's cart session once the order is placed.
type CartClearer interface {
	Clear(ctx context.Context, userID string) error
}

// Locker serialises work under a key. lock.Locker satisfies it.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Item is a frozen order line: the dish as it was priced at placement.
type Item struct {
	DishID    string          `json:"dishId"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"imageUrl,omitempty"`
	IsVeg     bool            `json:"isVeg"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// Order is the API representation of an order.
type Order struct {
	ID                    string           `json:"id"`
	UserID                string           `json:"userId"`
	AddressID             string           `json:"addressId,omitempty"`
	Address               json.RawMessage  `json:"address,omitempty"`
	Items                 []Item           `json:"items"`
	Subtotal              decimal.Decimal  `json:"subtotal"`
	Discount              decimal.Decimal  `json:"discount"`
	CouponDiscount        decimal.Decimal  `json:"couponDiscount"`
	RewardDiscount        decimal.Decimal  `json:"rewardDiscount"`
	DeliveryFee           decimal.Decimal  `json:"deliveryFee"`
	Total                 decimal.Decimal  `json:"total"`
	CouponCode            string           `json:"couponCode,omitempty"`
	RewardPointsUsed      int              `json:"rewardPointsUsed"`
	PointsEarned          int              `json:"pointsEarned"`
	Status                string           `json:"status"`
	StatusInfo            StatusDescriptor `json:"statusInfo"`
	ScheduledFor          *time.Time       `json:"scheduledFor,omitempty"`
	EstimatedDeliveryTime string           `json:"estimatedDeliveryTime"`
	CreatedAt             time.Time        `json:"createdAt"`
	UpdatedAt             time.Time        `json:"updatedAt"`
}

// LineRequest is one requested dish and quantity.
type LineRequest struct {
	DishID   string
	Quantity int
}

// PlaceInput is a validated order submission. Client totals are optional and only
// used to detect a stale checkout.
type PlaceInput struct {
	UserID           string
	AddressID        string
	Lines            []LineRequest
	CouponCode       string
	RewardPointsUsed int
	ScheduledFor     *time.Time

	Subtotal    *decimal.Decimal
	Discount    *decimal.Decimal
	DeliveryFee *decimal.Decimal
	Total       *decimal.Decimal
}

// Service places orders and serves order history.
type Service struct {
	Q                 dbgen.Querier
	Tx                db.TxRunner
	Bus               *events.Bus
	Dishes            DishLookup
	Coupons           CouponLookup
	Carts             CartClearer
	Locker            Locker
	Engine            pricing.Engine
	EstimatedDelivery string
	LockTTL           time.Duration
	Now               func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) tx() db.TxRunner {
	if s.Tx != nil {
		return s.Tx
	}
	return db.Direct{Q: s.Q}
}

// Place prices the submission against current dish prices and the caller's balance,
// persists the order and moves reward points in one transaction, then publishes
// order.placed and clears the cart.
func (s *Service) Place(ctx context.Context, callerID string, in PlaceInput) (Order, error) {
	if s == nil || s.Q == nil || s.Dishes == nil || s.Coupons == nil {
		return Order{}, errors.New("order service not configured")
	}
	if in.UserID != "" && !strings.EqualFold(in.UserID, callerID) {
		return Order{}, common.ErrForbidden()
	}
	uid, err := common.ParseUUID(callerID)
	if err != nil {
		return Order{}, common.ErrUnauthorized("unauthorized")
	}
	if len(in.Lines) == 0 {
		return Order{}, cartEmpty()
	}
	if in.RewardPointsUsed < 0 {
		return Order{}, common.ErrValidation("rewardPointsUsed", "rewardPointsUsed must not be negative")
	}
	now := s.now()
	if in.ScheduledFor != nil && in.ScheduledFor.Before(now) {
		return Order{}, common.ErrValidation("scheduledFor", "scheduledFor must be in the future")
	}

	lines, items, err := s.priceLines(ctx, in.Lines)
	if err != nil {
		return Order{}, err
	}

	var rule *pricing.Coupon
	if code := strings.TrimSpace(in.CouponCode); code != "" {
		rule, err = s.Coupons.Lookup(ctx, code)
		if err != nil {
			if errors.Is(err, coupon.ErrNotFound) {
				obs.RecordCouponApplication("unknown")
				return Order{}, couponNotApplicable(strings.ToUpper(code), coupon.ErrNotFound.Error())
			}
			return Order{}, err
		}
	}

	var (
		created dbgen.Order
		event   dbgen.DomainEvent
		summary pricing.Summary
	)
	place := func(ctx context.Context) error {
		return s.tx().InTx(ctx, func(q dbgen.Querier) error {
			u, err := q.GetUserForUpdate(ctx, uid)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return common.ErrUnauthorized("unauthorized")
				}
				return fmt.Errorf("lock user: %w", err)
			}
			summary, err = s.Engine.Compute(pricing.Input{
				Lines:           lines,
				Coupon:          rule,
				RequestedPoints: in.RewardPointsUsed,
				AvailablePoints: int(u.RewardPoints),
				At:              now,
			})
			if err != nil {
				var redemption *pricing.InvalidRedemptionError
				if errors.As(err, &redemption) {
					return common.ErrUnprocessable("INVALID_REDEMPTION", redemption.Error(), err).
						WithDetails(map[string]any{"requested": redemption.Requested, "available": redemption.Available, "max": redemption.Max})
				}
				return err
			}
			if rule != nil && !summary.CouponApplied {
				obs.RecordCouponApplication("rejected")
				return couponNotApplicable(rule.Code, summary.CouponReason)
			}
			if err := checkClientTotals(in, summary); err != nil {
				return err
			}

			address, err := resolveAddress(ctx, q, uid, in.AddressID)
			if err != nil {
				return err
			}
			snapshot, err := json.Marshal(user.FromModel(address))
			if err != nil {
				return fmt.Errorf("encode address snapshot: %w", err)
			}
			frozen, err := json.Marshal(items)
			if err != nil {
				return fmt.Errorf("encode items: %w", err)
			}

			params := dbgen.CreateOrderParams{
				UserID:                uid,
				AddressID:             address.ID,
				AddressSnapshot:       snapshot,
				Items:                 frozen,
				Subtotal:              summary.Subtotal,
				Discount:              summary.Discount,
				CouponDiscount:        summary.CouponDiscount,
				RewardDiscount:        summary.RewardDiscount,
				DeliveryFee:           summary.DeliveryFee,
				Total:                 summary.Total,
				RewardPointsUsed:      int32(summary.PointsRedeemed),
				PointsEarned:          int32(summary.PointsEarned),
				Status:                StatusReceived,
				EstimatedDeliveryTime: s.estimatedDelivery(),
			}
			if summary.CouponApplied {
				params.CouponCode = common.OptionalText(summary.CouponCode)
			}
			if in.ScheduledFor != nil {
				params.ScheduledFor = pgtype.Timestamptz{Time: in.ScheduledFor.UTC(), Valid: true}
			}
			created, err = q.CreateOrder(ctx, params)
			if err != nil {
				return fmt.Errorf("create order: %w", err)
			}

			ledger := rewards.NewLedger(q)
			if _, err := ledger.Redeem(ctx, uid, created.ID, summary.PointsRedeemed); err != nil {
				if errors.Is(err, rewards.ErrInsufficientPoints) {
					return common.ErrUnprocessable("INSUFFICIENT_POINTS", err.Error(), err)
				}
				return fmt.Errorf("redeem points: %w", err)
			}
			if _, err := ledger.Earn(ctx, uid, created.ID, summary.PointsEarned); err != nil {
				return fmt.Errorf("earn points: %w", err)
			}

			event, err = events.Record(ctx, q, events.TopicOrderPlaced, created.ID, events.OrderPlaced{
				OrderID:               common.UUIDString(created.ID),
				UserID:                common.UUIDString(uid),
				Email:                 u.Email,
				Name:                  u.Name,
				ItemCount:             itemCount(items),
				Total:                 summary.Total,
				PointsEarned:          summary.PointsEarned,
				PointsRedeemed:        summary.PointsRedeemed,
				CouponCode:            params.CouponCode.String,
				EstimatedDeliveryTime: created.EstimatedDeliveryTime,
			})
			return err
		})
	}

	if s.Locker != nil {
		ttl := s.LockTTL
		if ttl <= 0 {
			ttl = defaultLockTTL
		}
		err = s.Locker.WithLock(ctx, lockKeyPrefix+common.UUIDString(uid), ttl, place)
		if errors.Is(err, lock.ErrBusy) {
			err = common.NewAppError("ORDER_IN_PROGRESS", "another order for this account is being placed", http.StatusConflict, err)
		}
	} else {
		err = place(ctx)
	}
	if err != nil {
		obs.RecordOrderPlaced(outcome(err), 0)
		return Order{}, err
	}

	s.Bus.PublishLogged(ctx, event)
	if s.Carts != nil {
		if err := s.Carts.Clear(ctx, callerID); err != nil {
			obs.Logger(ctx).Warn().Err(err).Str("user_id", callerID).Msg("clear cart after order failed")
		}
	}
	if summary.CouponApplied {
		obs.RecordCouponApplication("applied")
	}
	obs.RecordOrderPlaced("success", summary.Total.InexactFloat64())
	obs.RecordRewardPoints(string(rewards.ReasonRedeemed), summary.PointsRedeemed)
	obs.RecordRewardPoints(string(rewards.ReasonEarned), summary.PointsEarned)
	obs.Logger(ctx).Info().
		Str("order_id", common.UUIDString(created.ID)).
		Str("user_id", callerID).
		Str("total", summary.Total.StringFixed(2)).
		Int("points_earned", summary.PointsEarned).
		Msg("order_placed")

	return FromModel(ctx, created), nil
}

// ListByUser returns the user's orders newest first and the total count.
func (s *Service) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, int64, error) {
	uid, err := common.ParseUUID(userID)
	if err != nil {
		return nil, 0, common.ErrUnauthorized("unauthorized")
	}
	total, err := s.Q.CountOrdersByUser(ctx, uid)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	rows, err := s.Q.ListOrdersByUser(ctx, dbgen.ListOrdersByUserParams{UserID: uid, Limit: int32(limit), Offset: int32(offset)})
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	out := make([]Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(ctx, row))
	}
	return out, total, nil
}

// Get returns an order owned by userID. Orders of other users are reported as missing.
func (s *Service) Get(ctx context.Context, userID, orderID string) (Order, error) {
	row, err := s.load(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if common.UUIDString(row.UserID) != strings.ToLower(userID) {
		return Order{}, common.ErrNotFound("order", nil)
	}
	return FromModel(ctx, row), nil
}

// UpdateStatus moves an order forward in its lifecycle and publishes order.status_changed.
func (s *Service) UpdateStatus(ctx context.Context, orderID, status string) (Order, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !KnownStatus(status) {
		return Order{}, common.ErrValidation("status", "status must be one of received, preparing, out-for-delivery, delivered")
	}
	oid, err := common.ParseUUID(orderID)
	if err != nil {
		return Order{}, common.ErrNotFound("order", err)
	}
	var (
		updated dbgen.Order
		event   dbgen.DomainEvent
	)
	err = s.tx().InTx(ctx, func(q dbgen.Querier) error {
		current, err := q.GetOrderByID(ctx, oid)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return common.ErrNotFound("order", err)
			}
			return fmt.Errorf("get order: %w", err)
		}
		if !CanTransition(current.Status, status) {
			return common.NewAppError("INVALID_STATUS_TRANSITION", fmt.Sprintf("cannot move order from %s to %s", current.Status, status), http.StatusUnprocessableEntity, nil)
		}
		updated, err = q.UpdateOrderStatus(ctx, dbgen.UpdateOrderStatusParams{ID: oid, Status: status})
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		event, err = events.Record(ctx, q, events.TopicOrderStatusChanged, oid, events.OrderStatusChanged{
			OrderID: common.UUIDString(oid),
			UserID:  common.UUIDString(current.UserID),
			From:    current.Status,
			To:      status,
		})
		return err
	})
	if err != nil {
		return Order{}, err
	}
	s.Bus.PublishLogged(ctx, event)
	return FromModel(ctx, updated), nil
}

func (s *Service) load(ctx context.Context, orderID string) (dbgen.Order, error) {
	oid, err := common.ParseUUID(orderID)
	if err != nil {
		return dbgen.Order{}, common.ErrNotFound("order", err)
	}
	row, err := s.Q.GetOrderByID(ctx, oid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dbgen.Order{}, common.ErrNotFound("order", err)
		}
		return dbgen.Order{}, fmt.Errorf("get order: %w", err)
	}
	return row, nil
}

func (s *Service) estimatedDelivery() string {
	if s.EstimatedDelivery != "" {
		return s.EstimatedDelivery
	}
	return defaultEstimatedDelivery
}

func quantityTooLarge(dishID string) error {
	return common.ErrUnprocessable("VALIDATION_ERROR", fmt.Sprintf("at most %d of each dish per order", cart.MaxQuantity), nil).
		WithDetails(map[string]any{"dishId": dishID, "max": cart.MaxQuantity})
}

// priceLines merges duplicate dishes and prices every line from the dish table.
func (s *Service) priceLines(ctx context.Context, requested []LineRequest) ([]pricing.Line, []Item, error) {
	merged := make([]LineRequest, 0, len(requested))
	index := make(map[string]int, len(requested))
	for _, l := range requested {
		id := strings.ToLower(strings.TrimSpace(l.DishID))
		if id == "" {
			return nil, nil, common.ErrUnprocessable("VALIDATION_ERROR", "every item needs a dishId", nil)
		}
		if l.Quantity <= 0 {
			return nil, nil, common.ErrUnprocessable("VALIDATION_ERROR", "item quantity must be positive", nil).
				WithDetails(map[string]any{"dishId": id})
		}
		if l.Quantity > cart.MaxQuantity {
			return nil, nil, quantityTooLarge(id)
		}
		if i, ok := index[id]; ok {
			// both operands are at most MaxQuantity, so the sum cannot overflow
			if merged[i].Quantity+l.Quantity > cart.MaxQuantity {
				return nil, nil, quantityTooLarge(id)
			}
			merged[i].Quantity += l.Quantity
			continue
		}
		index[id] = len(merged)
		merged = append(merged, LineRequest{DishID: id, Quantity: l.Quantity})
	}

	ids := make([]string, 0, len(merged))
	for _, l := range merged {
		ids = append(ids, l.DishID)
	}
	dishes, err := s.Dishes.Lookup(ctx, ids)
	if err != nil {
		if errors.Is(err, catalog.ErrDishNotFound) {
			return nil, nil, common.ErrUnprocessable("VALIDATION_ERROR", "order references an unknown dish", err)
		}
		return nil, nil, err
	}

	lines := make([]pricing.Line, 0, len(merged))
	items := make([]Item, 0, len(merged))
	for _, l := range merged {
		d, ok := dishes[l.DishID]
		if !ok {
			return nil, nil, common.ErrUnprocessable("VALIDATION_ERROR", "order references an unknown dish", nil).
				WithDetails(map[string]any{"dishId": l.DishID})
		}
		lines = append(lines, pricing.Line{DishID: d.ID, UnitPrice: d.Price, Quantity: l.Quantity})
		items = append(items, Item{
			DishID:    d.ID,
			Name:      d.Name,
			ImageURL:  d.ImageURL,
			IsVeg:     d.IsVeg,
			UnitPrice: d.Price,
			Quantity:  l.Quantity,
			LineTotal: d.Price.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2),
		})
	}
	return lines, items, nil
}

// resolveAddress returns the requested address when the user owns it, or the default.
func resolveAddress(ctx context.Context, q dbgen.Querier, uid pgtype.UUID, addressID string) (dbgen.Address, error) {
	if strings.TrimSpace(addressID) == "" {
		row, err := q.GetDefaultAddress(ctx, uid)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return dbgen.Address{}, common.ErrUnprocessable("ADDRESS_REQUIRED", "add a delivery address before ordering", err)
			}
			return dbgen.Address{}, fmt.Errorf("get default address: %w", err)
		}
		return row, nil
	}
	aid, err := common.ParseUUID(addressID)
	if err != nil {
		return dbgen.Address{}, common.ErrNotFound("address", err)
	}
	row, err := q.GetAddressByID(ctx, aid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dbgen.Address{}, common.ErrNotFound("address", err)
		}
		return dbgen.Address{}, fmt.Errorf("get address: %w", err)
	}
	if row.UserID != uid {
		return dbgen.Address{}, common.ErrNotFound("address", nil)
	}
	return row, nil
}

// checkClientTotals rejects a submission whose totals disagree with the server's.
func checkClientTotals(in PlaceInput, sum pricing.Summary) error {
	type figure struct {
		name   string
		client *decimal.Decimal
		server decimal.Decimal
	}
	figures := []figure{
		{"subtotal", in.Subtotal, sum.Subtotal},
		{"discount", in.Discount, sum.Discount},
		{"deliveryFee", in.DeliveryFee, sum.DeliveryFee},
		{"total", in.Total, sum.Total},
	}
	client := map[string]decimal.Decimal{}
	mismatched := false
	for _, f := range figures {
		if f.client == nil {
			continue
		}
		client[f.name] = *f.client
		if !f.client.Round(2).Equal(f.server) {
			mismatched = true
		}
	}
	if !mismatched {
		return nil
	}
	return common.ErrUnprocessable("PRICING_MISMATCH", "order totals are out of date; review the cart and try again", nil).
		WithDetails(map[string]any{"client": client, "server": sum})
}

func couponNotApplicable(code, reason string) *common.AppError {
	return common.ErrUnprocessable("COUPON_NOT_APPLICABLE", "coupon cannot be applied to this order", nil).
		WithDetails(map[string]any{"code": code, "reason": reason})
}

func cartEmpty() *common.AppError {
	return common.ErrUnprocessable("CART_EMPTY", "order has no items", nil)
}

func itemCount(items []Item) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

func outcome(err error) string {
	if common.AsAppError(err).HTTPStatus < http.StatusInternalServerError {
		return "rejected"
	}
	return "error"
}

// FromModel maps an orders row to the API payload. A corrupt items snapshot is logged and
// decodes as an empty list.
func FromModel(ctx context.Context, row dbgen.Order) Order {
	out := Order{
		ID:                    common.UUIDString(row.ID),
		UserID:                common.UUIDString(row.UserID),
		AddressID:             common.UUIDString(row.AddressID),
		Subtotal:              row.Subtotal,
		Discount:              row.Discount,
		CouponDiscount:        row.CouponDiscount,
		RewardDiscount:        row.RewardDiscount,
		DeliveryFee:           row.DeliveryFee,
		Total:                 row.Total,
		CouponCode:            common.TextValue(row.CouponCode),
		RewardPointsUsed:      int(row.RewardPointsUsed),
		PointsEarned:          int(row.PointsEarned),
		Status:                row.Status,
		StatusInfo:            Describe(row.Status),
		EstimatedDeliveryTime: row.EstimatedDeliveryTime,
		Items:                 []Item{},
	}
	if len(row.Items) > 0 {
		if err := json.Unmarshal(row.Items, &out.Items); err != nil {
			obs.Logger(ctx).Error().Err(err).Str("order_id", common.UUIDString(row.ID)).Msg("order_items_snapshot_corrupt")
			out.Items = []Item{}
		}
	}
	if len(row.AddressSnapshot) > 0 && json.Valid(row.AddressSnapshot) {
		out.Address = json.RawMessage(row.AddressSnapshot)
	}
	if row.ScheduledFor.Valid {
		t := row.ScheduledFor.Time
		out.ScheduledFor = &t
	}
	if row.CreatedAt.Valid {
		out.CreatedAt = row.CreatedAt.Time
	}
	if row.UpdatedAt.Valid {
		out.UpdatedAt = row.UpdatedAt.Time
	}
	return out
}

// ParseItems accepts the items field either as a JSON array or as a string holding one.
// Each line carries dishId and quantity; a nested dish object with an id is accepted in
// place of dishId. A missing quantity defaults to 1.
func ParseItems(raw json.RawMessage) ([]LineRequest, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, err
		}
		inner = strings.TrimSpace(inner)
		if inner == "" {
			return nil, nil
		}
		raw = json.RawMessage(inner)
	}
	var wire []struct {
		DishID   string `json:"dishId"`
		Quantity *int   `json:"quantity"`
		Dish     *struct {
			ID string `json:"id"`
		} `json:"dish"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, err
	}
	out := make([]LineRequest, 0, len(wire))
	for _, w := range wire {
		id := w.DishID
		if id == "" && w.Dish != nil {
			id = w.Dish.ID
		}
		qty := 1
		if w.Quantity != nil {
			qty = *w.Quantity
		}
		out = append(out, LineRequest{DishID: id, Quantity: qty})
	}
	return out, nil
}
