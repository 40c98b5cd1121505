package ratelimit

import (
	"fmt"
	"net/http"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/backend-resto/internal/common"
	"github.com/noah-isme/backend-resto/internal/obs"
)

// NewStore returns a ulule limiter store backed by Redis.
func NewStore(rdb *redis.Client) (limiter.Store, error) {
	return limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "ratelimit:global"})
}

// Global builds the per-IP fixed window middleware for the whole API from a formatted
// rate such as "300-M". The ulule middleware stops the chain on store errors, so those
// answer 503 rather than silently bypassing the limit.
func Global(store limiter.Store, rate string) (func(http.Handler) http.Handler, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("parse global rate %q: %w", rate, err)
	}
	mw := stdlib.NewMiddleware(
		limiter.New(store, parsed),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, _ *http.Request) {
			obs.RecordRateLimitRejection("global")
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, try again later", nil)
		}),
		stdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			obs.Logger(r.Context()).Warn().Err(err).Msg("global rate limiter unavailable")
			common.JSONError(w, http.StatusServiceUnavailable, "INTERNAL", "rate limiter unavailable", nil)
		}),
	)
	return mw.Handler, nil
}
