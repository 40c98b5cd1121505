package config_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-resto/internal/config"
	"github.com/noah-isme/backend-resto/internal/pricing"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL": "postgres://localhost/resto",
		"REDIS_URL":    "redis://localhost:6379/0",
		"JWT_SECRET":   "secret",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(baseEnv())
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	require.Equal(t, http.SameSiteLaxMode, cfg.Auth.CookieSameSite)
	require.Equal(t, "30-40 mins", cfg.Orders.EstimatedDelivery)
	require.Equal(t, 150, cfg.Rewards.WelcomeBonus)

	engineCfg := cfg.PricingEngineConfig()
	require.True(t, engineCfg.DeliveryFee.Equal(pricing.DefaultConfig().DeliveryFee))
	require.Equal(t, pricing.PolicyClamp, engineCfg.Policy)
}

func TestLoadRequiresSecrets(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{"DATABASE_URL": "", "REDIS_URL": "", "JWT_SECRET": ""})
	require.Error(t, err)
	require.ErrorContains(t, err, "DATABASE_URL is required")
	require.ErrorContains(t, err, "JWT_SECRET is required")
}

func TestLoadRejectsUnknownRedemptionPolicy(t *testing.T) {
	env := baseEnv()
	env["PRICING_REDEMPTION_POLICY"] = "generous"
	_, err := config.LoadForTests(env)
	require.ErrorContains(t, err, "PRICING_REDEMPTION_POLICY")
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["PRICING_DELIVERY_FEE"] = "25"
	env["PRICING_REDEMPTION_POLICY"] = "strict"
	env["KAFKA_BROKERS"] = "a:9092, b:9092"
	env["CART_TTL"] = "bogus"
	cfg, err := config.LoadForTests(env)
	require.NoError(t, err)

	require.Equal(t, "25", cfg.Pricing.DeliveryFee.String())
	require.Equal(t, pricing.PolicyStrict, cfg.PricingEngineConfig().Policy)
	require.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	require.Equal(t, 72*time.Hour, cfg.CartTTL)
}
