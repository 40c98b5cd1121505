package rewards

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
	"github.com/noah-isme/backend-resto/internal/obs"
)

// Reason labels a reward_history row.
type Reason string

const (
	ReasonWelcome  Reason = "welcome_bonus"
	ReasonEarned   Reason = "order_earned"
	ReasonRedeemed Reason = "order_redeemed"
	ReasonReview   Reason = "review_bonus"
)

var (
	// ErrInsufficientPoints is returned when a debit would take the balance below zero.
	ErrInsufficientPoints = errors.New("insufficient reward points")
	// ErrInvalidPoints is returned for non-positive point amounts.
	ErrInvalidPoints = errors.New("reward points must be positive")
)

// LedgerQuerier is the subset of queries a ledger writes through.
type LedgerQuerier interface {
	AdjustUserRewardPoints(ctx context.Context, arg dbgen.AdjustUserRewardPointsParams) (int32, error)
	InsertRewardHistory(ctx context.Context, arg dbgen.InsertRewardHistoryParams) (dbgen.RewardHistory, error)
	InsertWelcomeBonus(ctx context.Context, arg dbgen.InsertWelcomeBonusParams) (dbgen.RewardHistory, error)
}

// Ledger appends reward_history rows and moves users.reward_points with them. Build it over
// transaction-bound queries so the row and the balance change commit together.
type Ledger struct {
	Q LedgerQuerier
}

// NewLedger returns a ledger writing through q.
func NewLedger(q LedgerQuerier) Ledger {
	return Ledger{Q: q}
}

// Earn credits points earned by an order. Zero points is a no-op.
func (l Ledger) Earn(ctx context.Context, userID, orderID pgtype.UUID, points int) (int, error) {
	if points == 0 {
		return l.balance(ctx, userID)
	}
	return l.move(ctx, userID, orderID, ReasonEarned, points)
}

// Redeem debits points spent on an order. Zero points is a no-op.
func (l Ledger) Redeem(ctx context.Context, userID, orderID pgtype.UUID, points int) (int, error) {
	if points == 0 {
		return l.balance(ctx, userID)
	}
	return l.move(ctx, userID, orderID, ReasonRedeemed, -points)
}

// Bonus credits a one-off grant that is not tied to an order.
func (l Ledger) Bonus(ctx context.Context, userID pgtype.UUID, reason Reason, points int) (int, error) {
	return l.move(ctx, userID, pgtype.UUID{}, reason, points)
}

// GrantWelcome credits the welcome bonus at most once per user. granted is false
// when the user already received it; nothing is credited in that case.
func (l Ledger) GrantWelcome(ctx context.Context, userID pgtype.UUID, points int) (granted bool, balance int, err error) {
	if points <= 0 {
		return false, 0, ErrInvalidPoints
	}
	if _, err := l.Q.InsertWelcomeBonus(ctx, dbgen.InsertWelcomeBonusParams{UserID: userID, Points: int32(points)}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			bal, berr := l.balance(ctx, userID)
			return false, bal, berr
		}
		return false, 0, fmt.Errorf("insert welcome bonus: %w", err)
	}
	bal, err := l.Q.AdjustUserRewardPoints(ctx, dbgen.AdjustUserRewardPointsParams{Delta: int32(points), ID: userID})
	if err != nil {
		return false, 0, fmt.Errorf("credit welcome bonus: %w", err)
	}
	obs.RecordRewardPoints(string(ReasonWelcome), points)
	return true, int(bal), nil
}

func (l Ledger) move(ctx context.Context, userID, orderID pgtype.UUID, reason Reason, delta int) (int, error) {
	if delta == 0 {
		return 0, ErrInvalidPoints
	}
	if reason != ReasonRedeemed && delta < 0 {
		return 0, ErrInvalidPoints
	}
	bal, err := l.Q.AdjustUserRewardPoints(ctx, dbgen.AdjustUserRewardPointsParams{Delta: int32(delta), ID: userID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrInsufficientPoints
		}
		return 0, fmt.Errorf("adjust reward points: %w", err)
	}
	if _, err := l.Q.InsertRewardHistory(ctx, dbgen.InsertRewardHistoryParams{
		UserID:  userID,
		Points:  int32(delta),
		Reason:  string(reason),
		OrderID: orderID,
	}); err != nil {
		return 0, fmt.Errorf("insert reward history: %w", err)
	}
	obs.RecordRewardPoints(string(reason), delta)
	return int(bal), nil
}

// balance reads the current balance through a zero adjustment so it stays inside the caller's tx.
func (l Ledger) balance(ctx context.Context, userID pgtype.UUID) (int, error) {
	bal, err := l.Q.AdjustUserRewardPoints(ctx, dbgen.AdjustUserRewardPointsParams{Delta: 0, ID: userID})
	if err != nil {
		return 0, fmt.Errorf("read reward points: %w", err)
	}
	return int(bal), nil
}
