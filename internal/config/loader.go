package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "salon"

// Database drivers accepted by SALON_DATABASE_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Config captures environment driven configuration values for the salon service.
type Config struct {
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	DatabaseDriver string `envconfig:"DATABASE_DRIVER" default:"sqlite"`
	DatabaseURL    string `envconfig:"DATABASE_URL" default:"file:salon.db?_pragma=foreign_keys(1)"`
	MongoDatabase  string `envconfig:"MONGO_DATABASE" default:"salon"`

	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`

	SendGridAPIKey   string `envconfig:"SENDGRID_API_KEY"`
	SenderEmail      string `envconfig:"SENDER_EMAIL"`
	AdminEmail       string `envconfig:"ADMIN_EMAIL"`
	SenderName       string `envconfig:"SENDER_NAME" default:"Diamond Salon Bookings"`
	SystemSenderName string `envconfig:"SYSTEM_SENDER_NAME" default:"Diamond Salon System"`

	BookingFeeCents int64  `envconfig:"BOOKING_FEE_CENTS" default:"5000"`
	Currency        string `envconfig:"CURRENCY" default:"usd"`
	Timezone        string `envconfig:"TIMEZONE" default:"UTC"`

	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"24h"`

	RedisURL        string        `envconfig:"REDIS_URL"`
	WebhookEventTTL time.Duration `envconfig:"WEBHOOK_EVENT_TTL" default:"72h"`

	RabbitURL      string `envconfig:"RABBIT_URL"`
	EventsExchange string `envconfig:"EVENTS_EXCHANGE" default:"salon.events"`

	OTLPEndpoint string `envconfig:"OTLP_ENDPOINT"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`

	location *time.Location
}

// Load reads optional .env files, then the process environment, and validates
// the result. Missing env files are ignored.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", file, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every missing or malformed setting at once.
func (c *Config) Validate() error {
	missing := make([]string, 0, 6)
	invalid := make([]string, 0, 4)

	required := []struct {
		name  string
		value string
	}{
		{"SALON_STRIPE_SECRET_KEY", c.StripeSecretKey},
		{"SALON_STRIPE_WEBHOOK_SECRET", c.StripeWebhookSecret},
		{"SALON_SENDGRID_API_KEY", c.SendGridAPIKey},
		{"SALON_SENDER_EMAIL", c.SenderEmail},
		{"SALON_ADMIN_EMAIL", c.AdminEmail},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.name)
		}
	}

	if c.SenderEmail != "" {
		if _, err := mail.ParseAddress(c.SenderEmail); err != nil {
			invalid = append(invalid, "SALON_SENDER_EMAIL")
		}
	}
	if c.AdminEmail != "" {
		if _, err := mail.ParseAddress(c.AdminEmail); err != nil {
			invalid = append(invalid, "SALON_ADMIN_EMAIL")
		}
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		invalid = append(invalid, "SALON_HTTP_PORT")
	}
	switch c.DatabaseDriver {
	case DriverSQLite, DriverPostgres, DriverMongo, DriverMemory:
	default:
		invalid = append(invalid, "SALON_DATABASE_DRIVER")
	}
	if c.DatabaseDriver != DriverMemory && strings.TrimSpace(c.DatabaseURL) == "" {
		missing = append(missing, "SALON_DATABASE_URL")
	}
	if c.BookingFeeCents <= 0 {
		invalid = append(invalid, "SALON_BOOKING_FEE_CENTS")
	}
	if len(strings.TrimSpace(c.Currency)) != 3 {
		invalid = append(invalid, "SALON_CURRENCY")
	}
	if c.SessionTTL <= 0 {
		invalid = append(invalid, "SALON_SESSION_TTL")
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		invalid = append(invalid, "SALON_LOG_LEVEL")
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		invalid = append(invalid, "SALON_TIMEZONE")
	} else {
		c.location = loc
	}

	if len(missing) > 0 {
		return fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}
	c.Currency = strings.ToLower(strings.TrimSpace(c.Currency))
	return nil
}

// Location returns the salon timezone resolved by Validate.
func (c Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// SlogLevel converts LogLevel to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
