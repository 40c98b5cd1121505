package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-resto/internal/pricing"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	DBAutoMigrate      bool
	RedisURL           string
	CORSAllowedOrigins []string

	Auth      AuthConfig
	Pricing   PricingConfig
	Rewards   RewardsConfig
	Orders    OrdersConfig
	RateLimit RateLimitConfig
	Upload    UploadConfig
	Kafka     KafkaConfig
	Worker    WorkerConfig

	CatalogCacheTTL time.Duration
	CartTTL         time.Duration
	IdempotencyTTL  time.Duration
}

// AuthConfig configures token issuance and the refresh cookie.
type AuthConfig struct {
	JWTSecret         string
	Issuer            string
	Audience          string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	RefreshCookieName string
	CookieDomain      string
	CookieSecure      bool
	CookieSameSite    http.SameSite
}

// PricingConfig carries the raw pricing knobs.
type PricingConfig struct {
	FreeDeliveryThreshold decimal.Decimal
	DeliveryFee           decimal.Decimal
	RedeemCapRatio        decimal.Decimal
	PointValue            decimal.Decimal
	EarnDivisor           int64
	RedemptionPolicy      string
}

// RewardsConfig configures loyalty point grants.
type RewardsConfig struct {
	WelcomeBonus  int
	ReviewBonus   int
	MilestoneStep int
}

// OrdersConfig configures order placement.
type OrdersConfig struct {
	EstimatedDelivery string
	LockTTL           time.Duration
}

// RateLimitConfig configures the global and auth limiters.
type RateLimitConfig struct {
	// Global is a ulule limiter formatted rate such as "300-M".
	Global     string
	AuthMax    int
	AuthWindow time.Duration
}

// UploadConfig configures address proof image uploads.
type UploadConfig struct {
	Dir          string
	MaxBytes     int64
	MaxDimension int
	PublicBase   string
}

// KafkaConfig configures the event notifier. Empty Brokers disables it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// WorkerConfig configures the background worker.
type WorkerConfig struct {
	Concurrency int
	EmailFrom   string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		DBAutoMigrate:      parseBoolDefault(k.String("DB_AUTO_MIGRATE"), true),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		Auth: AuthConfig{
			JWTSecret:         k.String("JWT_SECRET"),
			Issuer:            valueOrDefault(k.String("JWT_ISSUER"), "backend-resto"),
			Audience:          valueOrDefault(k.String("JWT_AUDIENCE"), "resto-web"),
			AccessTokenTTL:    parseDuration(k.String("ACCESS_TOKEN_TTL"), "15m"),
			RefreshTokenTTL:   parseDuration(k.String("REFRESH_TOKEN_TTL"), "720h"),
			RefreshCookieName: valueOrDefault(k.String("REFRESH_COOKIE_NAME"), "refresh_token"),
			CookieDomain:      strings.TrimSpace(k.String("COOKIE_DOMAIN")),
			CookieSecure:      parseBoolDefault(k.String("COOKIE_SECURE"), false),
			CookieSameSite:    parseSameSite(k.String("COOKIE_SAMESITE")),
		},
		Pricing: PricingConfig{
			FreeDeliveryThreshold: parseDecimal(k.String("PRICING_FREE_DELIVERY_THRESHOLD"), "500"),
			DeliveryFee:           parseDecimal(k.String("PRICING_DELIVERY_FEE"), "40"),
			RedeemCapRatio:        parseDecimal(k.String("PRICING_REDEEM_CAP_RATIO"), "0.2"),
			PointValue:            parseDecimal(k.String("PRICING_POINT_VALUE"), "0.1"),
			EarnDivisor:           int64(parseInt(k.String("PRICING_EARN_DIVISOR"), 10)),
			RedemptionPolicy:      strings.ToLower(valueOrDefault(k.String("PRICING_REDEMPTION_POLICY"), string(pricing.PolicyClamp))),
		},
		Rewards: RewardsConfig{
			WelcomeBonus:  parseInt(k.String("REWARDS_WELCOME_BONUS"), 150),
			ReviewBonus:   parseInt(k.String("REWARDS_REVIEW_BONUS"), 50),
			MilestoneStep: parseInt(k.String("REWARDS_MILESTONE_STEP"), 500),
		},
		Orders: OrdersConfig{
			EstimatedDelivery: valueOrDefault(k.String("ORDER_ESTIMATED_DELIVERY"), "30-40 mins"),
			LockTTL:           parseDuration(k.String("ORDER_LOCK_TTL"), "10s"),
		},
		RateLimit: RateLimitConfig{
			Global:     valueOrDefault(k.String("RATE_LIMIT_GLOBAL"), "300-M"),
			AuthMax:    parseInt(k.String("AUTH_RATE_LIMIT_MAX"), 10),
			AuthWindow: parseDuration(k.String("AUTH_RATE_LIMIT_WINDOW"), "1m"),
		},
		Upload: UploadConfig{
			Dir:          valueOrDefault(k.String("UPLOAD_DIR"), "./uploads"),
			MaxBytes:     int64(parseInt(k.String("UPLOAD_MAX_BYTES"), 5<<20)),
			MaxDimension: parseInt(k.String("UPLOAD_MAX_DIMENSION"), 1600),
			PublicBase:   strings.TrimRight(valueOrDefault(k.String("UPLOAD_PUBLIC_BASE"), "/uploads"), "/"),
		},
		Kafka: KafkaConfig{
			Brokers: splitAndTrim(k.String("KAFKA_BROKERS")),
			Topic:   valueOrDefault(k.String("KAFKA_TOPIC"), "resto.orders"),
		},
		Worker: WorkerConfig{
			Concurrency: parseInt(k.String("WORKER_CONCURRENCY"), 10),
			EmailFrom:   valueOrDefault(k.String("NOTIFY_EMAIL_FROM"), "orders@resto.local"),
		},
		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		CartTTL:         parseDuration(k.String("CART_TTL"), "72h"),
		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
	}

	if cfg.Auth.CookieSameSite == http.SameSiteDefaultMode {
		cfg.Auth.CookieSameSite = http.SameSiteLaxMode
	}

	var errs []error
	if cfg.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if cfg.RedisURL == "" {
		errs = append(errs, errors.New("REDIS_URL is required"))
	}
	if cfg.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch pricing.RedemptionPolicy(cfg.Pricing.RedemptionPolicy) {
	case pricing.PolicyClamp, pricing.PolicyStrict:
	default:
		errs = append(errs, fmt.Errorf("PRICING_REDEMPTION_POLICY must be clamp or strict, got %q", cfg.Pricing.RedemptionPolicy))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// PricingEngineConfig converts the loaded knobs into the engine configuration.
func (c *Config) PricingEngineConfig() pricing.Config {
	return pricing.Config{
		FreeDeliveryThreshold: c.Pricing.FreeDeliveryThreshold,
		DeliveryFee:           c.Pricing.DeliveryFee,
		RedeemCapRatio:        c.Pricing.RedeemCapRatio,
		PointValue:            c.Pricing.PointValue,
		EarnDivisor:           c.Pricing.EarnDivisor,
		WelcomeBonus:          c.Rewards.WelcomeBonus,
		Policy:                pricing.RedemptionPolicy(c.Pricing.RedemptionPolicy),
	}
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func splitAndTrim(value string) []string {
	var result []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	d, err := time.ParseDuration(valueOrDefault(value, fallback))
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseDecimal(value, fallback string) decimal.Decimal {
	d, err := decimal.NewFromString(valueOrDefault(value, fallback))
	if err != nil || d.IsNegative() {
		return decimal.RequireFromString(fallback)
	}
	return d
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []error
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
