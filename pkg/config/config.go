package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Invitations   InvitationConfig
	Notifications NotificationConfig
	Cron          CronConfig
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
	Env          string `envconfig:"CARENEST_APP_ENV" required:"true"`
	Port         string `envconfig:"CARENEST_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CARENEST_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CARENEST_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CARENEST_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CARENEST_DB_DSN"`
	Driver string `envconfig:"CARENEST_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CARENEST_DB_HOST"`
	LegacyPort     int    `envconfig:"CARENEST_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CARENEST_DB_USER"`
	LegacyPassword string `envconfig:"CARENEST_DB_PASSWORD"`
	LegacyName     string `envconfig:"CARENEST_DB_NAME"`
	LegacySSLMode  string `envconfig:"CARENEST_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CARENEST_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CARENEST_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CARENEST_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CARENEST_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CARENEST_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CARENEST_REDIS_ADDR"`
	Password     string        `envconfig:"CARENEST_REDIS_PASSWORD"`
	DB           int           `envconfig:"CARENEST_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CARENEST_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CARENEST_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CARENEST_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CARENEST_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CARENEST_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"CARENEST_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"CARENEST_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"CARENEST_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"CARENEST_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CARENEST_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CARENEST_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CARENEST_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CARENEST_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CARENEST_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"CARENEST_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"CARENEST_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"CARENEST_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"CARENEST_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"CARENEST_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"CARENEST_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CARENEST_AUTO_MIGRATE" default:"false"`
}

type InvitationConfig struct {
	TTLDays int `envconfig:"CARENEST_INVITATION_TTL_DAYS" default:"7"`
}

// TTL returns the invitation validity window.
func (i InvitationConfig) TTL() time.Duration {
	days := i.TTLDays
	if days <= 0 {
		days = 7
	}
	return time.Duration(days) * 24 * time.Hour
}

type NotificationConfig struct {
	RetentionDays  int           `envconfig:"CARENEST_NOTIFICATION_RETENTION_DAYS" default:"30"`
	IdempotencyTTL time.Duration `envconfig:"CARENEST_NOTIFICATION_IDEMPOTENCY_TTL" default:"720h"`
}

type CronConfig struct {
	Interval          time.Duration `envconfig:"CARENEST_CRON_INTERVAL" default:"15m"`
	ReminderLookahead time.Duration `envconfig:"CARENEST_REMINDER_LOOKAHEAD" default:"30m"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"CARENEST_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"CARENEST_PUBSUB_NOTIFICATION_TOPIC" default:"cn-notification-events"`
	NotificationSubscription string `envconfig:"CARENEST_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"CARENEST_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"CARENEST_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"CARENEST_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
