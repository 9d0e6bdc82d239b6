package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "SPG"

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Gateway       GatewayConfig
	Orders        OrdersConfig
	Notifications NotificationsConfig
	Sendgrid      SendgridConfig
	SMS           SMSConfig
	Push          PushConfig
	Cron          CronConfig
	FeatureFlags  FeatureFlagsConfig
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
	Env          string `envconfig:"SPG_APP_ENV" required:"true"`
	Port         string `envconfig:"SPG_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SPG_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SPG_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SPG_DB_DSN"`
	Driver string `envconfig:"SPG_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"SPG_DB_HOST"`
	Port     int    `envconfig:"SPG_DB_PORT" default:"5432"`
	User     string `envconfig:"SPG_DB_USER"`
	Password string `envconfig:"SPG_DB_PASSWORD"`
	Name     string `envconfig:"SPG_DB_NAME"`
	SSLMode  string `envconfig:"SPG_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SPG_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SPG_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SPG_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SPG_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SPG_REDIS_URL"`
	Address      string        `envconfig:"SPG_REDIS_ADDR"`
	Password     string        `envconfig:"SPG_REDIS_PASSWORD"`
	DB           int           `envconfig:"SPG_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SPG_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SPG_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SPG_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SPG_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SPG_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SPG_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SPG_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SPG_JWT_EXPIRATION_MINUTES" default:"60"`
}

// GatewayConfig holds the payment gateway credentials and policy knobs.
type GatewayConfig struct {
	BaseURL            string        `envconfig:"SPG_GATEWAY_BASE_URL" required:"true"`
	APIKey             string        `envconfig:"SPG_GATEWAY_API_KEY" required:"true"`
	WebhookSecret      string        `envconfig:"SPG_GATEWAY_WEBHOOK_SECRET" required:"true"`
	MinAmountCents     int64         `envconfig:"SPG_GATEWAY_MIN_AMOUNT_CENTS" default:"150000"`
	Currency           string        `envconfig:"SPG_GATEWAY_CURRENCY" default:"COP"`
	SessionTTL         time.Duration `envconfig:"SPG_GATEWAY_SESSION_TTL" default:"1h"`
	ReturnURL          string        `envconfig:"SPG_GATEWAY_RETURN_URL" required:"true"`
	RequestTimeout     time.Duration `envconfig:"SPG_GATEWAY_REQUEST_TIMEOUT" default:"10s"`
	SignatureTolerance time.Duration `envconfig:"SPG_GATEWAY_SIGNATURE_TOLERANCE" default:"5m"`
}

type OrdersConfig struct {
	ReviewDelay time.Duration `envconfig:"SPG_ORDERS_REVIEW_DELAY" default:"24h"`
}

type NotificationsConfig struct {
	RetentionDays int `envconfig:"SPG_NOTIFICATIONS_RETENTION_DAYS" default:"30"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"SPG_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"SPG_SENDGRID_FROM_EMAIL" default:"notificaciones@comercializadoraspg.com"`
}

type SMSConfig struct {
	APIURL string `envconfig:"SPG_SMS_API_URL"`
	APIKey string `envconfig:"SPG_SMS_API_KEY"`
}

type PushConfig struct {
	APIURL string `envconfig:"SPG_PUSH_API_URL"`
	APIKey string `envconfig:"SPG_PUSH_API_KEY"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"SPG_CRON_INTERVAL" default:"24h"`
	LockTTL  time.Duration `envconfig:"SPG_CRON_LOCK_TTL" default:"25h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SPG_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		"SPG_DB_HOST": db.Host,
		"SPG_DB_USER": db.User,
		"SPG_DB_NAME": db.Name,
	}
	for _, key := range []string{"SPG_DB_HOST", "SPG_DB_USER", "SPG_DB_NAME"} {
		if values[key] == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either SPG_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
