package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration. It is loaded and validated once
// at process start and passed by reference into handlers and services;
// nothing reads the environment after Load returns.
type Config struct {
	Environment string
	Server      ServerConfig
	Logging     LoggingConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Stripe      StripeConfig
	Google      GoogleConfig
	Admin       AdminConfig
}

type ServerConfig struct {
	Port         int
	TLSPort      int
	EnableTLS    bool
	AutoCert     bool
	Domain       string
	CertFile     string
	KeyFile      string
	AutoCertDir  string
	Email        string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig is optional; when URL is empty the rate limiter uses its
// in-memory ledger (single-instance semantics only).
type RedisConfig struct {
	URL string
}

// KafkaConfig is optional; when Brokers is empty audit events are dropped.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type StripeConfig struct {
	SecretKey     string
	SuccessURL    string
	CancelURL     string
	PortalReturn  string
	PaymentBypass bool
	Tiers         map[string]Tier
}

// Tier describes one subscription tier. PriceID is preferred when set;
// otherwise checkout falls back to an inline ad-hoc price definition.
type Tier struct {
	Name     string
	Currency string
	Amount   int64
	Interval string
	PriceID  string
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AdminPageURL string
	CalendarID   string
}

type AdminConfig struct {
	SetupSecret string
}

// Load reads configuration from the environment, applying .env in
// non-production environments, and validates required keys.
func Load() (*Config, error) {
	env := getEnv("ENVIRONMENT", "development")
	if env != "production" {
		// Best effort: a missing .env file is fine
		_ = godotenv.Load()
	}

	cfg := &Config{
		Environment: env,
		Server: ServerConfig{
			Port:         getEnvInt("SERVER_PORT", 8080),
			TLSPort:      getEnvInt("SERVER_TLS_PORT", 8443),
			EnableTLS:    getEnvBool("SERVER_ENABLE_TLS", false),
			AutoCert:     getEnvBool("SERVER_AUTO_CERT", false),
			Domain:       getEnv("SERVER_DOMAIN", "localhost"),
			CertFile:     getEnv("SERVER_CERT_FILE", ""),
			KeyFile:      getEnv("SERVER_KEY_FILE", ""),
			AutoCertDir:  getEnv("SERVER_AUTOCERT_DIR", "/var/cache/autocert"),
			Email:        getEnv("SERVER_ACME_EMAIL", ""),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Database: DatabaseConfig{
			URL:          getEnv("DATABASE_URL", ""),
			MaxOpenConns: getEnvInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_AUDIT_TOPIC", "membership.audit"),
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			SuccessURL:    getEnv("STRIPE_SUCCESS_URL", "https://localhost/membership/success"),
			CancelURL:     getEnv("STRIPE_CANCEL_URL", "https://localhost/membership/cancelled"),
			PortalReturn:  getEnv("STRIPE_PORTAL_RETURN_URL", "https://localhost/account"),
			PaymentBypass: getEnvBool("PAYMENT_BYPASS", false),
			Tiers: map[string]Tier{
				"standard": {
					Name:     "Standard membership",
					Currency: "gbp",
					Amount:   2500,
					Interval: "month",
					PriceID:  getEnv("STRIPE_PRICE_STANDARD", ""),
				},
				"premium": {
					Name:     "Premium membership",
					Currency: "gbp",
					Amount:   4500,
					Interval: "month",
					PriceID:  getEnv("STRIPE_PRICE_PREMIUM", ""),
				},
			},
		},
		Google: GoogleConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
			AdminPageURL: getEnv("ADMIN_PAGE_URL", "https://localhost/admin/calendar"),
			CalendarID:   getEnv("GOOGLE_CALENDAR_ID", "primary"),
		},
		Admin: AdminConfig{
			SetupSecret: getEnv("ADMIN_SETUP_SECRET", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string

	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Admin.SetupSecret == "" {
		missing = append(missing, "ADMIN_SETUP_SECRET")
	}
	if c.Stripe.SecretKey == "" && !c.Stripe.PaymentBypass {
		missing = append(missing, "STRIPE_SECRET_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.IsProduction() && c.Stripe.PaymentBypass {
		return fmt.Errorf("PAYMENT_BYPASS must not be enabled in production")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// CalendarConfigured reports whether the Google OAuth client is usable.
func (c *Config) CalendarConfigured() bool {
	return c.Google.ClientID != "" && c.Google.ClientSecret != "" && c.Google.RedirectURL != ""
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
