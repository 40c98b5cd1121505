package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-resto/internal/app"
	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
	"github.com/noah-isme/backend-resto/internal/obs"
)

func main() {
	_ = godotenv.Load()
	logger := obs.NewLogger(envOrDefault("OBS_LOG_FORMAT", "console"), envOrDefault("OBS_LOG_LEVEL", "info")).
		With().Str("component", "seeder").Logger()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}

	if err := app.RunMigrations(dbURL); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	q := dbgen.New(pool)

	if err := seedDishes(ctx, q, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed dishes")
	}
	if err := seedCoupons(ctx, q, time.Now(), logger); err != nil {
		logger.Fatal().Err(err).Msg("seed coupons")
	}
	logger.Info().Msg("seeding completed")
}

func seedDishes(ctx context.Context, q dbgen.Querier, logger zerolog.Logger) error {
	perCategory := map[string]int{}
	for i, d := range menu {
		_, err := q.UpsertDish(ctx, dbgen.UpsertDishParams{
			Name:          d.Name,
			Description:   d.Description,
			Category:      d.Category,
			Price:         decimal.RequireFromString(d.Price),
			ImageUrl:      "/images/dishes/" + slug(d.Name) + ".jpg",
			IsVeg:         d.Veg,
			IsPopular:     d.Popular,
			IsNew:         d.New,
			IsChefSpecial: d.ChefSpecial,
			SortOrder:     int32(i + 1),
		})
		if err != nil {
			return err
		}
		perCategory[d.Category]++
	}
	ev := logger.Info().Int("dishes", len(menu))
	for category, n := range perCategory {
		ev = ev.Int(category, n)
	}
	ev.Msg("dishes upserted")
	return nil
}

func seedCoupons(ctx context.Context, q dbgen.Querier, now time.Time, logger zerolog.Logger) error {
	for _, c := range coupons {
		params := dbgen.UpsertCouponParams{
			Code:          c.Code,
			Description:   c.Description,
			DiscountType:  c.Type,
			DiscountValue: decimal.RequireFromString(c.Value),
			ExpiresAt:     pgtype.Timestamptz{Time: now.Add(c.ValidFor), Valid: true},
			IsActive:      c.Active,
		}
		if c.MinOrder != "" {
			params.MinOrderValue = decimal.NewNullDecimal(decimal.RequireFromString(c.MinOrder))
		}
		if c.MaxDiscount != "" {
			params.MaxDiscount = decimal.NewNullDecimal(decimal.RequireFromString(c.MaxDiscount))
		}
		if _, err := q.UpsertCoupon(ctx, params); err != nil {
			return err
		}
	}
	logger.Info().Int("coupons", len(coupons)).Msg("coupons upserted")
	return nil
}

func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
