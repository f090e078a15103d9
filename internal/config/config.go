package config

import (
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/khatape/khata-ledger/pkg/logger"
	"github.com/khatape/khata-ledger/pkg/pg"
	"github.com/khatape/khata-ledger/pkg/redis"
	"github.com/pkg/errors"
)

var config *Config

// Config holds every setting of the api, customer app, reconciler and cli.
// Nothing else in the module reads the environment directly.
type Config struct {
	AppEnv   string `env:"APP_ENV,default=dev"`
	AppName  string `env:"APP_NAME,default=khata_ledger"`
	AppDebug bool   `env:"APP_DEBUG"`
	LogLevel string `env:"LOG_LEVEL"`

	MetricsListenAddr string `env:"METRICS_LISTEN_ADDR"`
	MetricsURI        string `env:"METRICS_URI,default=/metrics"`
	PromNamespace     string `env:"PROM_NAMESPACE,default=khata"`

	HttpListenAddr            string `env:"HTTP_LISTEN_ADDR,default=:8080"`
	HttpServerReadTimeout     int    `env:"HTTP_SERVER_READ_TIMEOUT"`
	HttpServerWriteTimeout    int    `env:"HTTP_SERVER_WRITE_TIMEOUT"`
	HttpServerReadBufferSize  int    `env:"HTTP_SERVER_READ_BUFFER_SIZE"`
	HttpServerWriteBufferSize int    `env:"HTTP_SERVER_WRITE_BUFFER_SIZE"`

	CustomerHttpListenAddr string `env:"CUSTOMER_HTTP_LISTEN_ADDR,default=:8081"`
	CustomerAllowedOrigins string `env:"CUSTOMER_ALLOWED_ORIGINS,default=*"`
	CustomerAppURL         string `env:"CUSTOMER_APP_URL,default=http://localhost:8081"`
	PublicPortalURL        string `env:"PUBLIC_PORTAL_URL,default=https://www.khatape.tech"`
	CustomerInboxSize      int    `env:"CUSTOMER_INBOX_SIZE,default=50"`
	CustomerInboxCustomers int    `env:"CUSTOMER_INBOX_CUSTOMERS,default=10000"`

	NotifyTimeout          time.Duration `env:"NOTIFY_TIMEOUT,default=5s"`
	NotifyMaxRetries       int           `env:"NOTIFY_MAX_RETRIES,default=2"`
	NotifyBreakerThreshold int           `env:"NOTIFY_BREAKER_THRESHOLD,default=5"`
	NotifyBreakerCooldown  time.Duration `env:"NOTIFY_BREAKER_COOLDOWN,default=30s"`

	NewRelicAppName    string `env:"NEW_RELIC_APP_NAME,default=khata-customer"`
	NewRelicLicenseKey string `env:"NEW_RELIC_LICENSE_KEY"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	PostgresSSLMode string `env:"POSTGRES_SSLMODE,default=disable"`

	MigrationsDir string `env:"MIGRATIONS_DIR,default=migrations"`

	RedisAddr               string `env:"REDIS_ADDR"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX,default=khata:"`

	QueueName              string        `env:"QUEUE_NAME,default=reconcile"`
	QueueConsumerGroup     string        `env:"QUEUE_CONSUMER_GROUP,default=reconcilers"`
	QueueConsumerName      string        `env:"QUEUE_CONSUMER_NAME"`
	QueueMaxRetries        int           `env:"QUEUE_MAX_RETRIES,default=3"`
	QueueVisibilityTimeout time.Duration `env:"QUEUE_VISIBILITY_TIMEOUT,default=30s"`
	QueuePollInterval      time.Duration `env:"QUEUE_POLL_INTERVAL,default=1s"`
	QueueBatchSize         int64         `env:"QUEUE_BATCH_SIZE,default=20"`
	QueueMaxLen            int64         `env:"QUEUE_MAX_LEN,default=100000"`
	QueueEnableDLQ         bool          `env:"QUEUE_ENABLE_DLQ,default=true"`

	ReconcileWorkers   int           `env:"RECONCILE_WORKERS,default=8"`
	ReconcileLockTTL   time.Duration `env:"RECONCILE_LOCK_TTL,default=30s"`
	ReconcileDebounce  time.Duration `env:"RECONCILE_DEBOUNCE,default=2s"`
	ReconcileAllOnBoot bool          `env:"RECONCILE_ALL_ON_BOOT"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return errors.Wrapf(err, "failed to load configuration file %s", path)
		}
	}

	c, err := Parse()
	if err != nil {
		return err
	}
	config = c
	return nil
}

// Parse maps the current environment onto a fresh Config without installing it.
func Parse() (*Config, error) {
	c := &Config{}
	if _, err := env.UnmarshalFromEnviron(c); err != nil {
		return nil, errors.Wrap(err, "failed to map env variables to configuration")
	}
	return c, nil
}

func Set(c *Config) {
	config = c
}

func Get() *Config {
	if config == nil {
		logger.Panic("config is not initialized")
	}
	return config
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// LoggerOptions configures pkg/logger for one binary. APP_DEBUG forces debug level.
func (c *Config) LoggerOptions(service string) logger.Options {
	level := c.LogLevel
	if c.AppDebug {
		level = "debug"
	}
	return logger.Options{Production: c.IsProduction(), Level: level, Service: service}
}

func (c *Config) PostgresRead() pg.Config {
	return pg.Config{
		User:     c.PostgresReadUser,
		Host:     c.PostgresReadHost,
		Port:     c.PostgresReadPort,
		Password: c.PostgresReadPassword,
		Database: c.PostgresReadDatabase,
		SSLMode:  c.PostgresSSLMode,
	}
}

func (c *Config) PostgresWrite() pg.Config {
	return pg.Config{
		User:     c.PostgresWriteUser,
		Host:     c.PostgresWriteHost,
		Port:     c.PostgresWritePort,
		Password: c.PostgresWritePassword,
		Database: c.PostgresWriteDatabase,
		SSLMode:  c.PostgresSSLMode,
	}
}

// PgDebug turns on gorm SQL logging outside production-like environments.
func (c *Config) PgDebug() bool {
	return c.AppEnv == "dev" || c.AppDebug
}

func (c *Config) RedisOptions(clientName string) *redis.Options {
	return &redis.Options{
		Addrs:      []string{c.RedisAddr},
		ClientName: clientName,
		DB:         c.RedisDatabase,
		Username:   c.RedisUsername,
		Password:   c.RedisPassword,
	}
}
