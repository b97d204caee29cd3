package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration, parsed from the environment.
type Config struct {
	Server      Server
	Database    Database
	Redis       RedisConfig
	Kafka       Kafka
	Stratum     Stratum
	Informer    Informer
	Mailjet     Mailjet
	Twilio      Twilio
	ObjectStore ObjectStore
	Auth        Auth
	Workflow    Workflow
	RateLimit   RateLimit
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr        string `env:"UNIONHUB_ADDR" envDefault:":8080"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"text"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	PublicURL   string `env:"PUBLIC_URL" envDefault:"http://localhost:3000"`
}

// Database selects the relational store. An empty URL runs in-memory stores.
type Database struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
	TxTimeout       time.Duration `env:"DATABASE_TX_TIMEOUT" envDefault:"10s"`
}

// RedisConfig configures the optional send-once guard backend.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
	GuardTTL     time.Duration `env:"REDIS_SEND_GUARD_TTL" envDefault:"24h"`
}

// Kafka configures the email/sms queues.
type Kafka struct {
	Brokers       []string `env:"KAFKA_BROKERS" envSeparator:","`
	EmailTopic    string   `env:"KAFKA_EMAIL_TOPIC" envDefault:"notifications.email"`
	SMSTopic      string   `env:"KAFKA_SMS_TOPIC" envDefault:"notifications.sms"`
	ConsumerGroup string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"unionhub-delivery"`
	Partitions    int32    `env:"KAFKA_TOPIC_PARTITIONS" envDefault:"3"`
}

// Enabled reports whether a broker list was supplied.
func (k Kafka) Enabled() bool { return len(k.Brokers) > 0 }

// Stratum configures the legacy XML membership gateway.
type Stratum struct {
	Endpoint    string        `env:"STRATUM_ENDPOINT"`
	SecurityKey string        `env:"STRATUM_SECURITY_KEY"`
	Timeout     time.Duration `env:"STRATUM_TIMEOUT" envDefault:"15s"`
}

// Enabled reports whether the gateway endpoint and key are set.
func (s Stratum) Enabled() bool { return s.Endpoint != "" && s.SecurityKey != "" }

// Informer configures the external dataset API and its scheduled sync.
// Datasets maps a source tag to the dataset token synced under it, e.g.
// INFORMER_DATASETS=INFORMER_EMAIL_MEMBERS=abc123,INFORMER_SMS_MEMBERS=def456.
type Informer struct {
	BaseURL  string            `env:"INFORMER_BASE_URL"`
	Timeout  time.Duration     `env:"INFORMER_TIMEOUT" envDefault:"30s"`
	SyncCron string            `env:"INFORMER_SYNC_CRON"`
	Datasets map[string]string `env:"INFORMER_DATASETS" envSeparator:"," envKeyValSeparator:"="`
}

// Mailjet configures final email delivery from the queue.
type Mailjet struct {
	APIKey    string `env:"MAILJET_API_KEY"`
	APISecret string `env:"MAILJET_API_SECRET"`
	FromEmail string `env:"MAILJET_FROM_EMAIL" envDefault:"noreply@example.org"`
	FromName  string `env:"MAILJET_FROM_NAME" envDefault:"Union Events"`
	BaseURL   string `env:"MAILJET_BASE_URL" envDefault:"https://api.mailjet.com"`
}

func (m Mailjet) Enabled() bool { return m.APIKey != "" && m.APISecret != "" }

// Twilio configures final SMS delivery from the queue.
type Twilio struct {
	AccountSID string `env:"TWILIO_ACCOUNT_SID"`
	AuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	FromNumber string `env:"TWILIO_FROM_NUMBER"`
}

func (t Twilio) Enabled() bool { return t.AccountSID != "" && t.AuthToken != "" }

// ObjectStore configures ticket artifact storage.
type ObjectStore struct {
	Endpoint  string `env:"STORAGE_ENDPOINT"`
	AccessKey string `env:"STORAGE_ACCESS_KEY"`
	SecretKey string `env:"STORAGE_SECRET_KEY"`
	Bucket    string `env:"STORAGE_BUCKET" envDefault:"tickets"`
	Region    string `env:"STORAGE_REGION"`
	UseSSL    bool   `env:"STORAGE_USE_SSL" envDefault:"false"`
	PublicURL string `env:"STORAGE_PUBLIC_URL"`
}

func (s ObjectStore) Enabled() bool {
	return s.Endpoint != "" && s.AccessKey != "" && s.SecretKey != "" && s.Bucket != ""
}

// Auth configures admin session tokens.
type Auth struct {
	JWTSigningKey string        `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	Issuer        string        `env:"JWT_ISSUER" envDefault:"unionhub"`
	TokenTTL      time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"8h"`
}

// RateLimit sets per client IP budgets on the public endpoints. Redis backs
// the counters when configured.
type RateLimit struct {
	Disabled           bool          `env:"RATE_LIMIT_DISABLED" envDefault:"false"`
	Window             time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	PublicRequests     int           `env:"RATE_LIMIT_PUBLIC_REQUESTS" envDefault:"120"`
	CredentialRequests int           `env:"RATE_LIMIT_CREDENTIAL_REQUESTS" envDefault:"10"`
}

// Workflow points at the optional YAML file overriding BMM defaults.
type Workflow struct {
	ConfigPath string `env:"BMM_CONFIG_PATH"`
}

// Load reads .env (when present) and parses the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// IsProduction reports whether the process runs with production defaults.
func (c Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
