package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig       `envconfig:"SERVER"`
	Database     DatabaseConfig     `envconfig:"DATABASE"`
	Kafka        KafkaConfig        `envconfig:"KAFKA"`
	Redis        RedisConfig        `envconfig:"REDIS"`
	Scanner      ScannerConfig      `envconfig:"SCANNER"`
	Subscription SubscriptionConfig `envconfig:"SUBSCRIPTION"`
	Logging      LoggingConfig      `envconfig:"LOGGING"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string        `envconfig:"SERVER_PORT" default:"8080"`
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"15s"`
	// RequireSubscription gates signal and alignment reads behind wallet access
	RequireSubscription bool `envconfig:"SERVER_REQUIRE_SUBSCRIPTION" default:"false"`
	// AdminToken authorizes subscription activation and permanent grants
	AdminToken string `envconfig:"SERVER_ADMIN_TOKEN"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string `envconfig:"DB_HOST" default:"localhost"`
	Port           string `envconfig:"DB_PORT" default:"5432"`
	User           string `envconfig:"DB_USER" default:"postgres"`
	Password       string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName         string `envconfig:"DB_NAME" default:"ichimoku"`
	SSLMode        string `envconfig:"DB_SSLMODE" default:"disable"`
	MigrationsPath string `envconfig:"DB_MIGRATIONS_PATH" default:"file://db/migrations"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled        bool     `envconfig:"KAFKA_ENABLED" default:"true"`
	Brokers        []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	SignalsTopic   string   `envconfig:"KAFKA_SIGNALS_TOPIC" default:"ichimoku-signals"`
	AlignmentTopic string   `envconfig:"KAFKA_ALIGNMENT_TOPIC" default:"ichimoku-alignment"`
	GroupID        string   `envconfig:"KAFKA_GROUP_ID" default:"ichimoku-signal-service"`
}

// RedisConfig holds analysis cache configuration
type RedisConfig struct {
	Enabled  bool          `envconfig:"REDIS_ENABLED" default:"true"`
	Addr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string        `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	TTL      time.Duration `envconfig:"REDIS_TTL" default:"5m"`
}

// ScannerConfig controls the periodic alignment recompute
type ScannerConfig struct {
	Interval  time.Duration `envconfig:"SCANNER_INTERVAL" default:"1m"`
	Retention time.Duration `envconfig:"SCANNER_RETENTION" default:"720h"`
}

// SubscriptionConfig holds trial and paid period lengths
type SubscriptionConfig struct {
	TrialDays int `envconfig:"SUBSCRIPTION_TRIAL_DAYS" default:"7"`
	PaidDays  int `envconfig:"SUBSCRIPTION_PAID_DAYS" default:"30"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	File  string `envconfig:"LOG_FILE"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("at least one kafka broker is required")
	}
	if c.Scanner.Interval <= 0 {
		return fmt.Errorf("scanner interval must be positive")
	}
	if c.Subscription.TrialDays <= 0 || c.Subscription.PaidDays <= 0 {
		return fmt.Errorf("subscription periods must be positive")
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.DBName,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

// Address returns the HTTP listen address
func (s *ServerConfig) Address() string {
	return s.Host + ":" + s.Port
}
