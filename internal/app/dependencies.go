// Package app opens the shared infrastructure used by the API, the worker and the seeder.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/backend-resto/internal/config"
	"github.com/noah-isme/backend-resto/internal/db"
	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
	"github.com/noah-isme/backend-resto/internal/db/migrations"
	"github.com/noah-isme/backend-resto/internal/obs"
	"github.com/noah-isme/backend-resto/internal/ratelimit"
)

// Options tunes Open for the calling binary.
type Options struct {
	// AppName is reported to Postgres as application_name.
	AppName string
	// Migrate applies pending migrations before the pool is returned.
	Migrate bool
	// RedisMetrics enables redisotel metrics alongside tracing.
	RedisMetrics bool
	Logger       zerolog.Logger
}

// Dependencies enumerates the infrastructure shared across modules.
type Dependencies struct {
	DB           *pgxpool.Pool
	Redis        *redis.Client
	Queries      *dbgen.Queries
	Tx           db.TxRunner
	LimiterStore limiter.Store
	TaskClient   *asynq.Client

	logger zerolog.Logger
}

// Open connects to Postgres and Redis, optionally migrates, and builds the limiter store
// and task client. Callers must Close the result.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*Dependencies, error) {
	if opts.Migrate {
		if err := RunMigrations(cfg.DatabaseURL); err != nil {
			return nil, err
		}
		opts.Logger.Info().Msg("migrations applied")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	if opts.AppName != "" {
		poolConfig.ConnConfig.RuntimeParams["application_name"] = opts.AppName
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		opts.Logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if opts.RedisMetrics {
		if err := redisotel.InstrumentMetrics(rdb); err != nil {
			opts.Logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	store, err := ratelimit.NewStore(rdb)
	if err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("limiter store: %w", err)
	}

	taskOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("parse task queue redis url: %w", err)
	}

	queries := dbgen.New(pool)
	return &Dependencies{
		DB:           pool,
		Redis:        rdb,
		Queries:      queries,
		Tx:           db.PoolTx{Pool: pool, Queries: queries},
		LimiterStore: store,
		TaskClient:   asynq.NewClient(taskOpt),
		logger:       opts.Logger,
	}, nil
}

// Close releases every connection held by d.
func (d *Dependencies) Close() {
	if d == nil {
		return
	}
	if d.TaskClient != nil {
		if err := d.TaskClient.Close(); err != nil {
			d.logger.Error().Err(err).Msg("close task client")
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.logger.Error().Err(err).Msg("close redis")
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
}

// RunMigrations applies the embedded migrations to databaseURL.
func RunMigrations(databaseURL string) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, MigrateURL(databaseURL))
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	defer func() { _, _ = m.Close() }()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// MigrateURL rewrites a postgres URL to the pgx5 scheme the migrate driver registers.
func MigrateURL(databaseURL string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(databaseURL, prefix) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, prefix)
		}
	}
	return databaseURL
}
