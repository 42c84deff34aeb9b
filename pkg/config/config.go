package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is intentionally empty: every field carries its fully qualified
// SHOPSTACK_* variable name in its envconfig tag.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "SHOPSTACK_DB_DSN"
	EnvDBHost = "SHOPSTACK_DB_HOST"
	EnvDBUser = "SHOPSTACK_DB_USER"
	EnvDBName = "SHOPSTACK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Razorpay     RazorpayConfig
	GCP          GCPConfig
	GCS          GCSConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"SHOPSTACK_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOPSTACK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SHOPSTACK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPSTACK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SHOPSTACK_DB_DSN"`
	Driver string `envconfig:"SHOPSTACK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SHOPSTACK_DB_HOST"`
	LegacyPort     int    `envconfig:"SHOPSTACK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SHOPSTACK_DB_USER"`
	LegacyPassword string `envconfig:"SHOPSTACK_DB_PASSWORD"`
	LegacyName     string `envconfig:"SHOPSTACK_DB_NAME"`
	LegacySSLMode  string `envconfig:"SHOPSTACK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHOPSTACK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOPSTACK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOPSTACK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOPSTACK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOPSTACK_REDIS_URL" required:"true"`
	Password     string        `envconfig:"SHOPSTACK_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPSTACK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPSTACK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPSTACK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPSTACK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPSTACK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPSTACK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SHOPSTACK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SHOPSTACK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SHOPSTACK_JWT_EXPIRATION_MINUTES" required:"true"`
}

// AccessTokenTTL returns the access token lifetime configured in minutes.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type RazorpayConfig struct {
	KeyID     string `envconfig:"SHOPSTACK_RAZORPAY_KEY_ID" required:"true"`
	KeySecret string `envconfig:"SHOPSTACK_RAZORPAY_KEY_SECRET" required:"true"`
	Currency  string `envconfig:"SHOPSTACK_RAZORPAY_CURRENCY" default:"USD"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"SHOPSTACK_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"SHOPSTACK_GCP_CREDENTIALS_JSON"`
	CredentialsFile string `envconfig:"SHOPSTACK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"SHOPSTACK_GCS_BUCKET_NAME" required:"true"`
	DownloadURLExpiry time.Duration `envconfig:"SHOPSTACK_GCS_DOWNLOAD_URL_EXPIRY" default:"5m"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SHOPSTACK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SHOPSTACK_AUTO_MIGRATE" default:"false"`
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
