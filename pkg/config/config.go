package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Password  PasswordConfig
	Billing   BillingConfig
	RateLimit RateLimitConfig
	Square    SquareConfig
	GCP       GCPConfig
	PubSub    PubSubConfig
	Outbox    OutboxConfig
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
	Env          string `envconfig:"SCENTHQ_APP_ENV" required:"true"`
	Port         string `envconfig:"SCENTHQ_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SCENTHQ_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SCENTHQ_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"SCENTHQ_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SCENTHQ_DB_DSN"`
	Driver string `envconfig:"SCENTHQ_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SCENTHQ_DB_HOST"`
	LegacyPort     int    `envconfig:"SCENTHQ_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SCENTHQ_DB_USER"`
	LegacyPassword string `envconfig:"SCENTHQ_DB_PASSWORD"`
	LegacyName     string `envconfig:"SCENTHQ_DB_NAME"`
	LegacySSLMode  string `envconfig:"SCENTHQ_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SCENTHQ_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SCENTHQ_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SCENTHQ_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SCENTHQ_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SCENTHQ_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SCENTHQ_REDIS_ADDR"`
	Password     string        `envconfig:"SCENTHQ_REDIS_PASSWORD"`
	DB           int           `envconfig:"SCENTHQ_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SCENTHQ_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SCENTHQ_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SCENTHQ_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SCENTHQ_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SCENTHQ_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SCENTHQ_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SCENTHQ_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SCENTHQ_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SCENTHQ_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SCENTHQ_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SCENTHQ_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SCENTHQ_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SCENTHQ_ARGON_KEY_LEN" default:"32"`
}

// BillingConfig carries the billing engine's tunable rules. TaxRateBasisPoints
// is the sole source of the tax rate.
type BillingConfig struct {
	TaxRateBasisPoints int `envconfig:"SCENTHQ_BILLING_TAX_RATE_BPS" default:"800"`
	RefundWindowDays   int `envconfig:"SCENTHQ_BILLING_REFUND_WINDOW_DAYS" default:"30"`
}

type RateLimitConfig struct {
	BillingWindow   time.Duration `envconfig:"SCENTHQ_RATE_LIMIT_BILLING_WINDOW" default:"1m"`
	BillingIPLimit  int           `envconfig:"SCENTHQ_RATE_LIMIT_BILLING_IP_LIMIT" default:"120"`
	BillingOrgLimit int           `envconfig:"SCENTHQ_RATE_LIMIT_BILLING_ORG_LIMIT" default:"60"`
}

type SquareConfig struct {
	AccessToken string `envconfig:"SCENTHQ_SQUARE_ACCESS_TOKEN"`
	Env         string `envconfig:"SCENTHQ_SQUARE_ENV" default:"sandbox"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type GCPConfig struct {
	ProjectID string `envconfig:"SCENTHQ_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	BillingTopic string `envconfig:"SCENTHQ_PUBSUB_BILLING_TOPIC" default:"shq-billing-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SCENTHQ_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SCENTHQ_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SCENTHQ_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
