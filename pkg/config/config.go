package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "scpay"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv = "SCPAY_APP_ENV"
	EnvDBDSN  = "SCPAY_DB_DSN"
	EnvDBHost = "SCPAY_DB_HOST"
	EnvDBUser = "SCPAY_DB_USER"
	EnvDBName = "SCPAY_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Platform      PlatformConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
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
	Env          string `envconfig:"SCPAY_APP_ENV" required:"true"`
	Port         string `envconfig:"SCPAY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SCPAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SCPAY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SCPAY_DB_DSN"`
	Driver string `envconfig:"SCPAY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SCPAY_DB_HOST"`
	LegacyPort     int    `envconfig:"SCPAY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SCPAY_DB_USER"`
	LegacyPassword string `envconfig:"SCPAY_DB_PASSWORD"`
	LegacyName     string `envconfig:"SCPAY_DB_NAME"`
	LegacySSLMode  string `envconfig:"SCPAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SCPAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SCPAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SCPAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SCPAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SCPAY_REDIS_URL"`
	Address      string        `envconfig:"SCPAY_REDIS_ADDR"`
	Password     string        `envconfig:"SCPAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"SCPAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SCPAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SCPAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SCPAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SCPAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SCPAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SCPAY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SCPAY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SCPAY_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SCPAY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SCPAY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SCPAY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SCPAY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SCPAY_ARGON_KEY_LEN" default:"32"`
}

// PlatformConfig carries escrow platform defaults applied when the ledger row
// is first seeded, plus the hard caps enforced by the core.
type PlatformConfig struct {
	DefaultFeePercent int `envconfig:"SCPAY_PLATFORM_DEFAULT_FEE_PERCENT" default:"1"`
	MaxFeePercent     int `envconfig:"SCPAY_PLATFORM_MAX_FEE_PERCENT" default:"10"`
	MaxMilestones     int `envconfig:"SCPAY_PLATFORM_MAX_MILESTONES" default:"20"`
}

// AuthRateLimitConfig throttles credential endpoints per source IP and per
// submitted email. A zero window disables the corresponding policy.
type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"SCPAY_AUTH_RL_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit       int           `envconfig:"SCPAY_AUTH_RL_LOGIN_IP_LIMIT" default:"20"`
	LoginEmailLimit    int           `envconfig:"SCPAY_AUTH_RL_LOGIN_EMAIL_LIMIT" default:"5"`
	RegisterWindow     time.Duration `envconfig:"SCPAY_AUTH_RL_REGISTER_WINDOW" default:"1h"`
	RegisterIPLimit    int           `envconfig:"SCPAY_AUTH_RL_REGISTER_IP_LIMIT" default:"10"`
	RegisterEmailLimit int           `envconfig:"SCPAY_AUTH_RL_REGISTER_EMAIL_LIMIT" default:"3"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SCPAY_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SCPAY_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"SCPAY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"SCPAY_PUBSUB_DOMAIN_TOPIC" default:"scpay-domain-events"`
	DomainSubscription string `envconfig:"SCPAY_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SCPAY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SCPAY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SCPAY_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
