package config

const EnvPrefix = "FOODHALL"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	StorageBackendDB     = "db"
	StorageBackendMemory = "memory"
)

const (
	EnvAppEnv       = "FOODHALL_APP_ENV"
	EnvPort         = "FOODHALL_APP_PORT"
	EnvMetricsAddr  = "FOODHALL_METRICS_ADDR"
	EnvLogLevel     = "FOODHALL_LOG_LEVEL"
	EnvLogWarnStack = "FOODHALL_LOG_WARN_STACK"

	EnvDBDSN      = "FOODHALL_DB_DSN"
	EnvDBDriver   = "FOODHALL_DB_DRIVER"
	EnvDBHost     = "FOODHALL_DB_HOST"
	EnvDBPort     = "FOODHALL_DB_PORT"
	EnvDBUser     = "FOODHALL_DB_USER"
	EnvDBPassword = "FOODHALL_DB_PASSWORD"
	EnvDBName     = "FOODHALL_DB_NAME"
	EnvDBSSLMode  = "FOODHALL_DB_SSLMODE"

	EnvRedisURL  = "FOODHALL_REDIS_URL"
	EnvRedisAddr = "FOODHALL_REDIS_ADDR"

	EnvJWTSecret = "FOODHALL_JWT_SECRET"
	EnvJWTIssuer = "FOODHALL_JWT_ISSUER"

	EnvDeliveryFee    = "FOODHALL_DELIVERY_FEE"
	EnvCurrency       = "FOODHALL_CURRENCY"
	EnvStorageBackend = "FOODHALL_STORAGE_BACKEND"
	EnvAutoMigrate    = "FOODHALL_AUTO_MIGRATE"

	EnvKafkaBrokers     = "FOODHALL_KAFKA_BROKERS"
	EnvKafkaOrdersTopic = "FOODHALL_KAFKA_ORDERS_TOPIC"
	EnvKafkaWalletTopic = "FOODHALL_KAFKA_WALLET_TOPIC"

	EnvOutboxBatchSize   = "FOODHALL_OUTBOX_PUBLISH_BATCH_SIZE"
	EnvOutboxPollMS      = "FOODHALL_OUTBOX_PUBLISH_POLL_MS"
	EnvOutboxMaxAttempts = "FOODHALL_OUTBOX_MAX_ATTEMPTS"

	EnvRateLimitCheckoutWindow = "FOODHALL_RATE_LIMIT_CHECKOUT_WINDOW"
	EnvRateLimitCheckoutIP     = "FOODHALL_RATE_LIMIT_CHECKOUT_IP"
	EnvRateLimitCheckoutUser   = "FOODHALL_RATE_LIMIT_CHECKOUT_USER"

	EnvCronInterval            = "FOODHALL_CRON_INTERVAL"
	EnvCronPendingOrderTTL     = "FOODHALL_CRON_PENDING_ORDER_TTL"
	EnvCronOutboxRetentionDays = "FOODHALL_CRON_OUTBOX_RETENTION_DAYS"
)

// legacyDBEnvVars must all be set when no DSN is provided.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
