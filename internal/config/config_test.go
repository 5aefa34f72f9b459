package config

import (
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "0.18", cfg.Policy.TaxRate.String())
	assert.Equal(t, "200000", cfg.Policy.FreeShippingThreshold.String())
	assert.Equal(t, "1000", cfg.Policy.FlatShippingFee.String())
	assert.True(t, cfg.Policy.DiscountRate.IsZero())
	assert.Equal(t, 10, cfg.MaxLineQuantity)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 15*time.Minute, cfg.CartCacheTTL)
	assert.Equal(t, 10*time.Second, cfg.MongoConnectTimeout)
	assert.Equal(t, 100, cfg.MongoMaxPoolSize)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TAX_RATE", "0.05")
	t.Setenv("FLAT_SHIPPING_FEE", "49.99")
	t.Setenv("MAX_LINE_QUANTITY", "5")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("PAYMENT_TIMEOUT", "750ms")
	t.Setenv("CURRENCY", "usd")
	t.Setenv("MONGO_CONNECT_TIMEOUT", "2s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.05", cfg.Policy.TaxRate.String())
	assert.Equal(t, "49.99", cfg.Policy.FlatShippingFee.String())
	assert.Equal(t, 5, cfg.MaxLineQuantity)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 750*time.Millisecond, cfg.PaymentTimeout)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, 2*time.Second, cfg.MongoConnectTimeout)
}

func TestLoad_InvalidPolicy(t *testing.T) {
	t.Setenv("TAX_RATE", "18")

	_, err := Load()
	assert.ErrorIs(t, err, domain.ErrInvalidPolicy)
}

func TestLoad_MalformedValues(t *testing.T) {
	cases := map[string]string{
		"TAX_RATE":            "eighteen",
		"POSTGRES_PORT":       "five",
		"REQUEST_TIMEOUT":     "soon",
		"MAX_LINE_QUANTITY":   "0",
		"MONGO_MAX_POOL_SIZE": "-1",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
