package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Secrets      SecretsConfig
	Outbox       OutboxConfig
	Webhooks     WebhooksConfig
	Providers    ProvidersConfig
	Retention    RetentionConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SCHOOLOPS_APP_ENV" required:"true"`
	Port         string `envconfig:"SCHOOLOPS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SCHOOLOPS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SCHOOLOPS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SCHOOLOPS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SCHOOLOPS_DB_DSN"`
	Driver string `envconfig:"SCHOOLOPS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SCHOOLOPS_DB_HOST"`
	LegacyPort     int    `envconfig:"SCHOOLOPS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SCHOOLOPS_DB_USER"`
	LegacyPassword string `envconfig:"SCHOOLOPS_DB_PASSWORD"`
	LegacyName     string `envconfig:"SCHOOLOPS_DB_NAME"`
	LegacySSLMode  string `envconfig:"SCHOOLOPS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SCHOOLOPS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SCHOOLOPS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SCHOOLOPS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SCHOOLOPS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SCHOOLOPS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SCHOOLOPS_REDIS_ADDR"`
	Password     string        `envconfig:"SCHOOLOPS_REDIS_PASSWORD"`
	DB           int           `envconfig:"SCHOOLOPS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SCHOOLOPS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SCHOOLOPS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SCHOOLOPS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SCHOOLOPS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SCHOOLOPS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SCHOOLOPS_AUTO_MIGRATE" default:"false"`
}

// SecretsConfig controls credential sealing at rest. Key must be 32 bytes of
// base64 when set; when empty, credentials degrade to a tagged plaintext
// encoding that is always distinguishable from the sealed form.
type SecretsConfig struct {
	CredentialsKey string `envconfig:"SCHOOLOPS_CREDENTIALS_KEY"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"SCHOOLOPS_OUTBOX_BATCH_SIZE" default:"25"`
	PollInterval   time.Duration `envconfig:"SCHOOLOPS_OUTBOX_POLL_INTERVAL" default:"2s"`
	MaxAttempts    int           `envconfig:"SCHOOLOPS_OUTBOX_MAX_ATTEMPTS" default:"5"`
	BaseBackoff    time.Duration `envconfig:"SCHOOLOPS_OUTBOX_BASE_BACKOFF" default:"3s"`
	MaxErrorLength int           `envconfig:"SCHOOLOPS_OUTBOX_MAX_ERROR_LENGTH" default:"500"`
	MetricsPort    string        `envconfig:"SCHOOLOPS_OUTBOX_METRICS_PORT" default:"9090"`
}

type WebhooksConfig struct {
	IdempotencyTTL time.Duration `envconfig:"SCHOOLOPS_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`

	// Receipt callbacks arrive unauthenticated; the rate limit bounds
	// what a misbehaving provider can push per window.
	ReceiptRateLimit  int64         `envconfig:"SCHOOLOPS_WEBHOOK_RECEIPT_RATE_LIMIT" default:"300"`
	ReceiptRateWindow time.Duration `envconfig:"SCHOOLOPS_WEBHOOK_RECEIPT_RATE_WINDOW" default:"1m"`
}

// ProvidersConfig holds channel provider endpoints. Credentials are per
// school and live in the integration_credentials table, not here.
type ProvidersConfig struct {
	EmailEndpoint string        `envconfig:"SCHOOLOPS_PROVIDER_EMAIL_ENDPOINT"`
	SMSEndpoint   string        `envconfig:"SCHOOLOPS_PROVIDER_SMS_ENDPOINT"`
	ChatEndpoint  string        `envconfig:"SCHOOLOPS_PROVIDER_CHAT_ENDPOINT"`
	SendTimeout   time.Duration `envconfig:"SCHOOLOPS_PROVIDER_SEND_TIMEOUT" default:"15s"`
}

type RetentionConfig struct {
	OutboxDays   int           `envconfig:"SCHOOLOPS_OUTBOX_RETENTION_DAYS" default:"30"`
	CronInterval time.Duration `envconfig:"SCHOOLOPS_CRON_INTERVAL" default:"24h"`
	CronLockTTL  time.Duration `envconfig:"SCHOOLOPS_CRON_LOCK_TTL" default:"25h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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
