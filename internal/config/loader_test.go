package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"SALON_HTTP_PORT", "SALON_DATABASE_DRIVER", "SALON_DATABASE_URL", "SALON_MONGO_DATABASE",
	"SALON_STRIPE_SECRET_KEY", "SALON_STRIPE_WEBHOOK_SECRET", "SALON_SENDGRID_API_KEY",
	"SALON_SENDER_EMAIL", "SALON_ADMIN_EMAIL", "SALON_SENDER_NAME", "SALON_SYSTEM_SENDER_NAME",
	"SALON_BOOKING_FEE_CENTS", "SALON_CURRENCY", "SALON_TIMEZONE", "SALON_SESSION_TTL",
	"SALON_REDIS_URL", "SALON_WEBHOOK_EVENT_TTL", "SALON_RABBIT_URL", "SALON_EVENTS_EXCHANGE",
	"SALON_OTLP_ENDPOINT", "SALON_LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SALON_STRIPE_SECRET_KEY", "sk_test")
	t.Setenv("SALON_STRIPE_WEBHOOK_SECRET", "whsec_test")
	t.Setenv("SALON_SENDGRID_API_KEY", "SG.test")
	t.Setenv("SALON_SENDER_EMAIL", "bookings@salon.test")
	t.Setenv("SALON_ADMIN_EMAIL", "admin@salon.test")
}

func missingFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoad(t *testing.T) {
	t.Run("applies defaults when optional variables are missing", func(t *testing.T) {
		clearEnv(t)
		setRequired(t)

		cfg, err := Load(missingFile(t))
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.HTTPPort)
		assert.Equal(t, DriverSQLite, cfg.DatabaseDriver)
		assert.Equal(t, "file:salon.db?_pragma=foreign_keys(1)", cfg.DatabaseURL)
		assert.EqualValues(t, 5000, cfg.BookingFeeCents)
		assert.Equal(t, "usd", cfg.Currency)
		assert.Equal(t, "Diamond Salon Bookings", cfg.SenderName)
		assert.Equal(t, "Diamond Salon System", cfg.SystemSenderName)
		assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
		assert.Equal(t, 72*time.Hour, cfg.WebhookEventTTL)
		assert.Equal(t, "salon.events", cfg.EventsExchange)
		assert.Equal(t, time.UTC, cfg.Location())
		assert.Equal(t, ":8080", cfg.Addr())
		assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	})

	t.Run("lists every missing required variable", func(t *testing.T) {
		clearEnv(t)

		_, err := Load(missingFile(t))
		require.Error(t, err)
		for _, key := range []string{"SALON_STRIPE_SECRET_KEY", "SALON_STRIPE_WEBHOOK_SECRET", "SALON_SENDGRID_API_KEY", "SALON_SENDER_EMAIL", "SALON_ADMIN_EMAIL"} {
			assert.Contains(t, err.Error(), key)
		}
	})

	t.Run("reports invalid values", func(t *testing.T) {
		clearEnv(t)
		setRequired(t)
		t.Setenv("SALON_ADMIN_EMAIL", "not-an-address")
		t.Setenv("SALON_BOOKING_FEE_CENTS", "0")
		t.Setenv("SALON_TIMEZONE", "Mars/Olympus")
		t.Setenv("SALON_DATABASE_DRIVER", "oracle")
		t.Setenv("SALON_LOG_LEVEL", "chatty")

		_, err := Load(missingFile(t))
		require.Error(t, err)
		msg := err.Error()
		assert.True(t, strings.HasPrefix(msg, "environment variables have invalid values"), msg)
		for _, key := range []string{"SALON_ADMIN_EMAIL", "SALON_BOOKING_FEE_CENTS", "SALON_TIMEZONE", "SALON_DATABASE_DRIVER", "SALON_LOG_LEVEL"} {
			assert.Contains(t, msg, key)
		}
	})

	t.Run("rejects unparsable durations", func(t *testing.T) {
		clearEnv(t)
		setRequired(t)
		t.Setenv("SALON_SESSION_TTL", "forever")

		_, err := Load(missingFile(t))
		assert.Error(t, err)
	})

	t.Run("reads values from an env file without overriding the environment", func(t *testing.T) {
		clearEnv(t)
		setRequired(t)
		t.Setenv("SALON_HTTP_PORT", "9090")
		t.Setenv("SALON_LOG_LEVEL", "debug")

		path := filepath.Join(t.TempDir(), ".env")
		content := "SALON_HTTP_PORT=7070\nSALON_TIMEZONE=America/New_York\nSALON_CURRENCY=EUR\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		t.Cleanup(func() {
			_ = os.Unsetenv("SALON_TIMEZONE")
			_ = os.Unsetenv("SALON_CURRENCY")
		})

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.HTTPPort)
		assert.Equal(t, "America/New_York", cfg.Location().String())
		assert.Equal(t, "eur", cfg.Currency)
		assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	})
}
