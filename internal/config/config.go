package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type Config struct {
	Service  string
	Env      string
	LogLevel string

	HTTPPort           string
	GRPCPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	MongoURI            string
	MongoDBName         string
	MongoConnectTimeout time.Duration
	MongoMaxPoolSize    int

	RedisAddr     string
	RedisPassword string
	CartCacheTTL  time.Duration

	CatalogDBPath         string
	CatalogMigrationsPath string

	Postgres PostgresConfig

	KafkaBrokers       []string
	OrderPlacedTopic   string
	CartConsumerGroup  string
	PaymentServiceURL  string
	PaymentAPIKey      string
	PaymentTimeout     time.Duration
	OrderCreateTimeout time.Duration

	Policy          domain.Policy
	Currency        string
	MaxLineQuantity int
	PromoCodes      string
}

type PostgresConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string
	MigrationsPath string
}

// Load reads the configuration from the environment. Unset variables take
// their defaults; malformed values are an error.
func Load() (*Config, error) {
	var p parser

	cfg := &Config{
		Service:  getEnv("SERVICE_NAME", "storefront"),
		Env:      getEnv("APP_ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		GRPCPort:           getEnv("GRPC_PORT", "50051"),
		RequestTimeout:     p.duration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    p.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: 1 << 20, // 1MB

		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName: getEnv("MONGO_DB_NAME", "cartdb"),

		MongoConnectTimeout: p.duration("MONGO_CONNECT_TIMEOUT", 10*time.Second),
		MongoMaxPoolSize:    p.integer("MONGO_MAX_POOL_SIZE", 100),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		CartCacheTTL:  p.duration("CART_CACHE_TTL", 15*time.Minute),

		CatalogDBPath:         getEnv("CATALOG_DB_PATH", "./catalog.db"),
		CatalogMigrationsPath: getEnv("CATALOG_MIGRATIONS_PATH", "./internal/catalog/migrations"),

		Postgres: PostgresConfig{
			Host:           getEnv("POSTGRES_HOST", "localhost"),
			Port:           p.integer("POSTGRES_PORT", 5432),
			User:           getEnv("POSTGRES_USER", "postgres"),
			Password:       getEnv("POSTGRES_PASSWORD", "postgres"),
			DBName:         getEnv("POSTGRES_DB", "orders"),
			MigrationsPath: getEnv("ORDERS_MIGRATIONS_PATH", "./internal/orders/migrations"),
		},

		KafkaBrokers:       splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		OrderPlacedTopic:   getEnv("ORDER_PLACED_TOPIC", "order-placed"),
		CartConsumerGroup:  getEnv("CART_CONSUMER_GROUP", "storefront-cart-cleaner"),
		PaymentServiceURL:  getEnv("PAYMENT_SERVICE_URL", "http://localhost:8090"),
		PaymentAPIKey:      getEnv("PAYMENT_API_KEY", ""),
		PaymentTimeout:     p.duration("PAYMENT_TIMEOUT", 5*time.Second),
		OrderCreateTimeout: p.duration("ORDER_CREATE_TIMEOUT", 5*time.Second),

		Policy: domain.Policy{
			TaxRate:               p.decimal("TAX_RATE", "0.18"),
			FreeShippingThreshold: p.decimal("FREE_SHIPPING_THRESHOLD", "200000"),
			FlatShippingFee:       p.decimal("FLAT_SHIPPING_FEE", "1000"),
		},
		Currency:        strings.ToUpper(getEnv("CURRENCY", "INR")),
		MaxLineQuantity: p.integer("MAX_LINE_QUANTITY", 10),
		PromoCodes:      getEnv("PROMO_CODES", ""),
	}

	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	if cfg.MongoMaxPoolSize < 1 {
		return nil, fmt.Errorf("MONGO_MAX_POOL_SIZE must be at least 1, got %d", cfg.MongoMaxPoolSize)
	}
	if cfg.MaxLineQuantity < 1 {
		return nil, fmt.Errorf("MAX_LINE_QUANTITY must be at least 1, got %d", cfg.MaxLineQuantity)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parser keeps the first parse error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s=%q: %w", key, value, err)
	}
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return d
}

func (p *parser) integer(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return n
}

func (p *parser) decimal(key, def string) decimal.Decimal {
	raw := getEnv(key, def)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		p.fail(key, raw, err)
		return decimal.RequireFromString(def)
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
