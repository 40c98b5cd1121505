package reviews

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-resto/internal/common"
	"github.com/noah-isme/backend-resto/internal/db"
	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
	"github.com/noah-isme/backend-resto/internal/events"
	"github.com/noah-isme/backend-resto/internal/obs"
	"github.com/noah-isme/backend-resto/internal/rewards"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxCommentLength = 1000
)

// CacheInvalidator drops cached dish listings after a rating change.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Review is the public review payload.
type Review struct {
	ID        string    `json:"id"`
	DishID    string    `json:"dishId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Created is returned after posting a review: the review plus the dish's refreshed rating.
type Created struct {
	Review        Review          `json:"review"`
	DishRating    decimal.Decimal `json:"dishRating"`
	ReviewCount   int             `json:"reviewCount"`
	PointsAwarded int             `json:"pointsAwarded"`
}

// Service manages dish reviews.
type Service struct {
	Q           dbgen.Querier
	Tx          db.TxRunner
	Bus         *events.Bus
	Catalog     CacheInvalidator
	ReviewBonus int
}

// Create stores a review, recomputes the dish rating and credits the review bonus in one
// transaction. A user may review a dish once.
func (s *Service) Create(ctx context.Context, userID, dishID string, rating int, comment string) (Created, error) {
	if s == nil || s.Q == nil {
		return Created{}, errors.New("review service not configured")
	}
	uid, err := common.ParseUUID(userID)
	if err != nil {
		return Created{}, common.ErrUnauthorized("unauthorized")
	}
	did, err := common.ParseUUID(dishID)
	if err != nil {
		return Created{}, common.ErrNotFound("dish", err)
	}
	if rating < 1 || rating > 5 {
		return Created{}, common.ErrValidation("rating", "rating must be between 1 and 5")
	}
	comment = strings.TrimSpace(comment)
	if len(comment) > maxCommentLength {
		return Created{}, common.ErrValidation("comment", "comment is too long")
	}

	tx := s.Tx
	if tx == nil {
		tx = db.Direct{Q: s.Q}
	}
	var (
		out   Created
		event dbgen.DomainEvent
	)
	err = tx.InTx(ctx, func(q dbgen.Querier) error {
		if _, err := q.GetDishByID(ctx, did); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return common.ErrNotFound("dish", err)
			}
			return fmt.Errorf("get dish: %w", err)
		}
		row, err := q.CreateReview(ctx, dbgen.CreateReviewParams{
			DishID:  did,
			UserID:  uid,
			Rating:  int32(rating),
			Comment: common.OptionalText(comment),
		})
		if err != nil {
			if db.IsUniqueViolation(err) {
				return common.NewAppError("ALREADY_REVIEWED", "you have already reviewed this dish", http.StatusConflict, err)
			}
			return fmt.Errorf("create review: %w", err)
		}
		dish, err := q.RefreshDishRating(ctx, did)
		if err != nil {
			return fmt.Errorf("refresh dish rating: %w", err)
		}
		out = Created{
			Review:      fromModel(row),
			DishRating:  dish.Rating,
			ReviewCount: int(dish.ReviewCount),
		}
		if s.ReviewBonus > 0 {
			if _, err := rewards.NewLedger(q).Bonus(ctx, uid, rewards.ReasonReview, s.ReviewBonus); err != nil {
				return fmt.Errorf("credit review bonus: %w", err)
			}
			out.PointsAwarded = s.ReviewBonus
		}
		event, err = events.Record(ctx, q, events.TopicReviewCreated, row.ID, events.ReviewCreated{
			ReviewID: out.Review.ID,
			DishID:   out.Review.DishID,
			UserID:   out.Review.UserID,
			Rating:   rating,
		})
		return err
	})
	if err != nil {
		return Created{}, err
	}

	s.Bus.PublishLogged(ctx, event)
	if s.Catalog != nil {
		if err := s.Catalog.Invalidate(ctx); err != nil {
			obs.Logger(ctx).Warn().Err(err).Msg("catalog cache invalidation failed")
		}
	}
	obs.Logger(ctx).Info().Str("dish_id", out.Review.DishID).Int("rating", rating).Msg("review_created")
	return out, nil
}

// List returns a dish's reviews newest first.
func (s *Service) List(ctx context.Context, dishID string, limit int) ([]Review, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("review service not configured")
	}
	did, err := common.ParseUUID(dishID)
	if err != nil {
		return nil, common.ErrNotFound("dish", err)
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	rows, err := s.Q.ListReviewsByDish(ctx, dbgen.ListReviewsByDishParams{DishID: did, Limit: int32(limit)})
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	out := make([]Review, 0, len(rows))
	for _, row := range rows {
		r := Review{
			ID:       common.UUIDString(row.ID),
			DishID:   common.UUIDString(row.DishID),
			UserID:   common.UUIDString(row.UserID),
			UserName: row.UserName,
			Rating:   int(row.Rating),
			Comment:  common.TextValue(row.Comment),
		}
		if row.CreatedAt.Valid {
			r.CreatedAt = row.CreatedAt.Time
		}
		out = append(out, r)
	}
	return out, nil
}

func fromModel(row dbgen.Review) Review {
	r := Review{
		ID:      common.UUIDString(row.ID),
		DishID:  common.UUIDString(row.DishID),
		UserID:  common.UUIDString(row.UserID),
		Rating:  int(row.Rating),
		Comment: common.TextValue(row.Comment),
	}
	if row.CreatedAt.Valid {
		r.CreatedAt = row.CreatedAt.Time
	}
	return r
}
