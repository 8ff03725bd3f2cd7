// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN. Empty runs the API on in-memory stores (development only).
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment ("development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is the zap level (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// ServiceName names the service in traces, logs and metrics.
	ServiceName string `mapstructure:"SERVICE_NAME"`

	// RedisAddr enables the Redis broadcast channel; empty uses the in-process hub.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	// BroadcastChannel is the Redis pub/sub channel for transfer notifications.
	BroadcastChannel string `mapstructure:"BROADCAST_CHANNEL"`

	// TransferCodeTTL is how long a code stays redeemable (e.g. "5m").
	TransferCodeTTL string `mapstructure:"TRANSFER_CODE_TTL"`
	// TransferGenerationAttempts bounds retries on code value collisions.
	TransferGenerationAttempts int `mapstructure:"TRANSFER_GENERATION_ATTEMPTS"`
	// TransferSweepInterval is the expiry sweeper period (e.g. "60s").
	TransferSweepInterval string `mapstructure:"TRANSFER_SWEEP_INTERVAL"`
	// TransferNotifyTimeout bounds each async notification.
	TransferNotifyTimeout string `mapstructure:"TRANSFER_NOTIFY_TIMEOUT"`

	// RedeemRateLimitRPS and RedeemRateLimitBurst throttle code redemption per client IP.
	RedeemRateLimitRPS   float64 `mapstructure:"REDEEM_RATE_LIMIT_RPS"`
	RedeemRateLimitBurst int     `mapstructure:"REDEEM_RATE_LIMIT_BURST"`

	// VAPID keys (base64url) for Web Push. Both empty disables push delivery.
	VAPIDPublicKey  string `mapstructure:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `mapstructure:"VAPID_PRIVATE_KEY"`
	// VAPIDSubscriber is the mailto: or https: contact sent to push services.
	VAPIDSubscriber string `mapstructure:"VAPID_SUBSCRIBER"`
	// PushTTLSeconds is how long push services may hold an undelivered message.
	PushTTLSeconds int `mapstructure:"PUSH_TTL_SECONDS"`

	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file for admin tokens.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; derived from the private key when empty.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	JWTIssuer    string `mapstructure:"JWT_ISSUER"`
	JWTAudience  string `mapstructure:"JWT_AUDIENCE"`
	// JWTAdminTTL is the admin token lifetime (e.g. "12h").
	JWTAdminTTL string `mapstructure:"JWT_ADMIN_TTL"`
	// AdminPolicyFile is an optional Rego module replacing the built-in authorization policy.
	AdminPolicyFile string `mapstructure:"ADMIN_POLICY_FILE"`

	// Telemetry (optional). When Kafka brokers are set, the API emits transfer events to Kafka.
	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	TelemetryKafkaTopic   string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`
	// Worker-only: Loki URL for the telemetry worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the telemetry worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	// OTelEndpoint is the OTLP/gRPC collector; empty disables export.
	OTelEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVICE_NAME", "festival-transfer")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("BROADCAST_CHANNEL", "festival:broadcast")
	v.SetDefault("TRANSFER_CODE_TTL", "5m")
	v.SetDefault("TRANSFER_GENERATION_ATTEMPTS", 5)
	v.SetDefault("TRANSFER_SWEEP_INTERVAL", "60s")
	v.SetDefault("TRANSFER_NOTIFY_TIMEOUT", "10s")
	v.SetDefault("REDEEM_RATE_LIMIT_RPS", 0.2)
	v.SetDefault("REDEEM_RATE_LIMIT_BURST", 5)
	v.SetDefault("VAPID_PUBLIC_KEY", "")
	v.SetDefault("VAPID_PRIVATE_KEY", "")
	v.SetDefault("VAPID_SUBSCRIBER", "mailto:ops@festival.local")
	v.SetDefault("PUSH_TTL_SECONDS", 300)
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "festival-admin")
	v.SetDefault("JWT_AUDIENCE", "festival-api")
	v.SetDefault("JWT_ADMIN_TTL", "12h")
	v.SetDefault("ADMIN_POLICY_FILE", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "festival-transfer-events")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "festival-telemetry-worker")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.TransferGenerationAttempts < 1 {
		return errors.New("config: TRANSFER_GENERATION_ATTEMPTS must be at least 1")
	}
	if c.RedeemRateLimitRPS <= 0 || c.RedeemRateLimitBurst < 1 {
		return errors.New("config: REDEEM_RATE_LIMIT_RPS must be positive and REDEEM_RATE_LIMIT_BURST at least 1")
	}
	if (c.VAPIDPublicKey == "") != (c.VAPIDPrivateKey == "") {
		return errors.New("config: VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY must be set together")
	}
	if c.IsProduction() {
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required when APP_ENV=production")
		}
		if c.JWTPrivateKey == "" {
			return errors.New("config: JWT_PRIVATE_KEY is required when APP_ENV=production")
		}
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// CodeTTL parses TransferCodeTTL. Returns 5m if unset or invalid.
func (c *Config) CodeTTL() time.Duration {
	return parseDuration(c.TransferCodeTTL, 5*time.Minute)
}

// SweepInterval parses TransferSweepInterval. Returns 60s if unset or invalid.
func (c *Config) SweepInterval() time.Duration {
	return parseDuration(c.TransferSweepInterval, time.Minute)
}

// NotifyTimeout parses TransferNotifyTimeout. Returns 10s if unset or invalid.
func (c *Config) NotifyTimeout() time.Duration {
	return parseDuration(c.TransferNotifyTimeout, 10*time.Second)
}

// AdminTTL parses JWTAdminTTL. Returns 12h if unset or invalid.
func (c *Config) AdminTTL() time.Duration {
	return parseDuration(c.JWTAdminTTL, 12*time.Hour)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if telemetry is enabled (non-empty list) and to create the producer.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil || c.TelemetryKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.TelemetryKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
