package rewards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-resto/internal/common"
	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
)

// DefaultMilestoneStep is the spacing of reward milestones.
const DefaultMilestoneStep = 500

// ErrUserNotFound is returned when the user does not exist.
var ErrUserNotFound = errors.New("user not found")

// Querier captures the read queries used by the rewards service.
type Querier interface {
	GetUserByID(ctx context.Context, id pgtype.UUID) (dbgen.User, error)
	ListRewardHistoryByUser(ctx context.Context, arg dbgen.ListRewardHistoryByUserParams) ([]dbgen.RewardHistory, error)
}

// Entry is a single ledger row.
type Entry struct {
	ID        string    `json:"id"`
	Points    int       `json:"points"`
	Reason    string    `json:"reason"`
	OrderID   string    `json:"orderId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary is the rewards page payload.
type Summary struct {
	Points            int     `json:"points"`
	NextMilestone     int     `json:"nextMilestone"`
	PointsToMilestone int     `json:"pointsToMilestone"`
	History           []Entry `json:"history"`
}

// Service reads balances and history.
type Service struct {
	Q             Querier
	MilestoneStep int
	HistoryLimit  int
}

// NextMilestone rounds points up to the next multiple of step; zero points yields step.
func NextMilestone(points, step int) int {
	if step <= 0 {
		step = DefaultMilestoneStep
	}
	if points <= 0 {
		return step
	}
	return ((points + step - 1) / step) * step
}

// Balance returns the user's spendable points.
func (s *Service) Balance(ctx context.Context, userID string) (int, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return 0, err
	}
	return int(user.RewardPoints), nil
}

// Summary returns the balance, milestone progress and recent history.
func (s *Service) Summary(ctx context.Context, userID string) (Summary, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	limit := s.HistoryLimit
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Q.ListRewardHistoryByUser(ctx, dbgen.ListRewardHistoryByUserParams{UserID: user.ID, Limit: int32(limit)})
	if err != nil {
		return Summary{}, fmt.Errorf("list reward history: %w", err)
	}
	history := make([]Entry, 0, len(rows))
	for _, row := range rows {
		history = append(history, Entry{
			ID:        common.UUIDString(row.ID),
			Points:    int(row.Points),
			Reason:    row.Reason,
			OrderID:   common.UUIDString(row.OrderID),
			CreatedAt: row.CreatedAt.Time,
		})
	}
	points := int(user.RewardPoints)
	next := NextMilestone(points, s.MilestoneStep)
	return Summary{
		Points:            points,
		NextMilestone:     next,
		PointsToMilestone: next - points,
		History:           history,
	}, nil
}

func (s *Service) user(ctx context.Context, userID string) (dbgen.User, error) {
	if s == nil || s.Q == nil {
		return dbgen.User{}, errors.New("rewards service not configured")
	}
	id, err := common.ParseUUID(userID)
	if err != nil {
		return dbgen.User{}, common.ErrValidation("userId", "invalid user id")
	}
	user, err := s.Q.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dbgen.User{}, common.ErrNotFound("user", ErrUserNotFound)
		}
		return dbgen.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
