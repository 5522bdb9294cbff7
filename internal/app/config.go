package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-pipeline/internal/domain/freight"
	"github.com/xenking/order-pipeline/internal/messaging/kafka"
	"github.com/xenking/order-pipeline/internal/storage/postgres"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (ORDERS_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (ORDERS_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Pool        PoolConfig
	Workers     int `default:"16" usage:"Concurrent database operations across all requests"`
	Kafka       KafkaConfig
	Redis       RedisConfig
	Freight     FreightConfig
	RateLimit   RateLimitConfig
	Graceful    GracefulConfig
}

// PoolConfig tunes the pgx pool and connection acquisition retries.
type PoolConfig struct {
	MaxConns        int32         `default:"16" usage:"Maximum pool size"`
	MinConns        int32         `default:"2" usage:"Minimum idle connections"`
	ConnectTimeout  time.Duration `default:"5s" usage:"Dial timeout for new connections"`
	MaxConnIdleTime time.Duration `default:"5m" usage:"Close connections idle longer than this"`
	MaxConnLifetime time.Duration `default:"1h" usage:"Recycle connections older than this"`
	AcquireAttempts int           `default:"3" usage:"Connection acquisition attempts before giving up"`
	AcquireBackoff  time.Duration `default:"100ms" usage:"Base delay between acquisition attempts, multiplied by attempt number"`
}

// KafkaConfig enables order-created events when Brokers is set.
type KafkaConfig struct {
	Brokers      []string      `usage:"Kafka bootstrap brokers; empty disables event publishing"`
	WriteTimeout time.Duration `default:"5s" usage:"Kafka write timeout"`
}

// RedisConfig enables the reconciliation failure ledger when URL is set.
type RedisConfig struct {
	URL string `usage:"Redis URL for the inventory failure ledger (ORDERS_REDIS_URL or REDIS_URL)"`
	Key string `default:"orders:inventory:failed" usage:"Sorted set holding failed adjustments"`
}

// FreightConfig overrides default freight rates. Overrides map a two digit
// state code to an amount, e.g. "35=12.50,33=18".
type FreightConfig struct {
	Overrides string `usage:"Comma separated code=amount freight overrides"`
}

// RateLimitConfig controls the per-customer order submission limiter.
type RateLimitConfig struct {
	Max    int           `default:"30" usage:"Order submissions allowed per window"`
	Window time.Duration `default:"1m" usage:"Rate limit window duration"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s" usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "ORDERS",
		Files:     []string{"config.yaml", "/etc/orders/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps DATABASE_URL, REDIS_URL and PORT as set by
// hosting platforms onto the ORDERS_ configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.Redis.URL == "" {
		c.Redis.URL = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set ORDERS_DATABASE_URL or DATABASE_URL")
	}
	if c.Workers < 1 {
		return errors.Errorf("workers must be positive, got %d", c.Workers)
	}
	if _, err := c.Freight.Table(); err != nil {
		return errors.Wrap(err, "freight overrides")
	}
	return nil
}

// RetryConfig returns the connection acquisition retry policy.
func (p PoolConfig) RetryConfig() postgres.RetryConfig {
	return postgres.RetryConfig{
		MaxAttempts: p.AcquireAttempts,
		BaseDelay:   p.AcquireBackoff,
	}
}

// PoolOptions returns the pgx pool tuning.
func (p PoolConfig) PoolOptions() postgres.PoolConfig {
	return postgres.PoolConfig{
		MaxConns:        p.MaxConns,
		MinConns:        p.MinConns,
		ConnectTimeout:  p.ConnectTimeout,
		MaxConnIdleTime: p.MaxConnIdleTime,
		MaxConnLifetime: p.MaxConnLifetime,
	}
}

// Publisher returns the Kafka publisher config.
func (k KafkaConfig) Publisher() kafka.Config {
	return kafka.Config{
		Brokers:      k.Brokers,
		WriteTimeout: k.WriteTimeout,
	}
}

// Table builds the freight table with overrides applied.
func (f FreightConfig) Table() (*freight.Table, error) {
	overrides, err := parseOverrides(f.Overrides)
	if err != nil {
		return nil, err
	}
	return freight.Default().WithOverrides(overrides)
}

func parseOverrides(s string) (map[int]decimal.Decimal, error) {
	out := make(map[int]decimal.Decimal)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, errors.Errorf("override %q: want code=amount", pair)
		}
		code, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return nil, errors.Wrapf(err, "override %q: code", pair)
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil, errors.Wrapf(err, "override %q: amount", pair)
		}
		out[code] = amount
	}
	return out, nil
}
