package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Pricing      PricingConfig
	Storage      StorageConfig
	FeatureFlags FeatureFlagsConfig
	Kafka        KafkaConfig
	Outbox       OutboxConfig
	RateLimit    RateLimitConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FOODHALL_APP_ENV" required:"true"`
	Port         string `envconfig:"FOODHALL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FOODHALL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FOODHALL_LOG_WARN_STACK" default:"false"`
	// MetricsAddr is the worker /metrics listen address; empty disables it.
	MetricsAddr string `envconfig:"FOODHALL_METRICS_ADDR"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"FOODHALL_DB_DSN"`
	Driver string `envconfig:"FOODHALL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FOODHALL_DB_HOST"`
	LegacyPort     int    `envconfig:"FOODHALL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FOODHALL_DB_USER"`
	LegacyPassword string `envconfig:"FOODHALL_DB_PASSWORD"`
	LegacyName     string `envconfig:"FOODHALL_DB_NAME"`
	LegacySSLMode  string `envconfig:"FOODHALL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FOODHALL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FOODHALL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FOODHALL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FOODHALL_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQuery time.Duration `envconfig:"FOODHALL_DB_SLOW_QUERY" default:"200ms"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite dialect.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"FOODHALL_REDIS_URL"`
	Address      string        `envconfig:"FOODHALL_REDIS_ADDR"`
	Password     string        `envconfig:"FOODHALL_REDIS_PASSWORD"`
	DB           int           `envconfig:"FOODHALL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FOODHALL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FOODHALL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FOODHALL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FOODHALL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FOODHALL_REDIS_WRITE_TIMEOUT" default:"5s"`
	CouponTTL    time.Duration `envconfig:"FOODHALL_REDIS_COUPON_TTL" default:"5m"`
	UserLockTTL  time.Duration `envconfig:"FOODHALL_REDIS_USER_LOCK_TTL" default:"30s"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret string `envconfig:"FOODHALL_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"FOODHALL_JWT_ISSUER" required:"true"`
}

// PricingConfig holds the single authoritative delivery fee used for every quote and order.
type PricingConfig struct {
	DeliveryFee string `envconfig:"FOODHALL_DELIVERY_FEE" default:"29.99"`
	Currency    string `envconfig:"FOODHALL_CURRENCY" default:"TRY"`
}

// DeliveryFeeAmount parses the configured delivery fee.
func (p PricingConfig) DeliveryFeeAmount() decimal.Decimal {
	fee, err := decimal.NewFromString(strings.TrimSpace(p.DeliveryFee))
	if err != nil {
		return decimal.Zero
	}
	return fee.Round(2)
}

func (p PricingConfig) validate() error {
	fee, err := decimal.NewFromString(strings.TrimSpace(p.DeliveryFee))
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", EnvDeliveryFee, p.DeliveryFee, err)
	}
	if fee.IsNegative() {
		return fmt.Errorf("%s must be non-negative", EnvDeliveryFee)
	}
	return nil
}

type StorageConfig struct {
	Backend string `envconfig:"FOODHALL_STORAGE_BACKEND" default:"db"`
}

// InMemory reports whether repositories should be served from process memory.
func (s StorageConfig) InMemory() bool {
	return strings.EqualFold(strings.TrimSpace(s.Backend), StorageBackendMemory)
}

func (s StorageConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Backend)) {
	case StorageBackendDB, StorageBackendMemory:
		return nil
	default:
		return fmt.Errorf("invalid %s %q", EnvStorageBackend, s.Backend)
	}
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FOODHALL_AUTO_MIGRATE" default:"false"`
}

type KafkaConfig struct {
	Brokers      string        `envconfig:"FOODHALL_KAFKA_BROKERS" default:"localhost:9092"`
	OrdersTopic  string        `envconfig:"FOODHALL_KAFKA_ORDERS_TOPIC" default:"foodhall.orders"`
	WalletTopic  string        `envconfig:"FOODHALL_KAFKA_WALLET_TOPIC" default:"foodhall.wallet"`
	WriteTimeout time.Duration `envconfig:"FOODHALL_KAFKA_WRITE_TIMEOUT" default:"10s"`
}

// BrokerList splits the comma separated broker list.
func (k KafkaConfig) BrokerList() []string {
	var out []string
	for _, broker := range strings.Split(k.Brokers, ",") {
		if trimmed := strings.TrimSpace(broker); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FOODHALL_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FOODHALL_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FOODHALL_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// RateLimitConfig throttles order placement. A zero limit disables that dimension.
type RateLimitConfig struct {
	CheckoutWindow    time.Duration `envconfig:"FOODHALL_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutIPLimit   int           `envconfig:"FOODHALL_RATE_LIMIT_CHECKOUT_IP" default:"30"`
	CheckoutUserLimit int           `envconfig:"FOODHALL_RATE_LIMIT_CHECKOUT_USER" default:"10"`
}

// CronConfig drives the maintenance worker.
type CronConfig struct {
	Interval            time.Duration `envconfig:"FOODHALL_CRON_INTERVAL" default:"5m"`
	PendingOrderTTL     time.Duration `envconfig:"FOODHALL_CRON_PENDING_ORDER_TTL" default:"30m"`
	OutboxRetentionDays int           `envconfig:"FOODHALL_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file::memory:?cache=shared"
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
