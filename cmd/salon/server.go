package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/salon-booking/internal/application"
	"github.com/example/salon-booking/internal/cache"
	"github.com/example/salon-booking/internal/config"
	"github.com/example/salon-booking/internal/events"
	httptransport "github.com/example/salon-booking/internal/http"
	"github.com/example/salon-booking/internal/logging"
	"github.com/example/salon-booking/internal/mailer"
	"github.com/example/salon-booking/internal/obs"
	"github.com/example/salon-booking/internal/payment"
	"github.com/example/salon-booking/internal/persistence"
	"github.com/example/salon-booking/internal/persistence/memory"
	"github.com/example/salon-booking/internal/persistence/mongostore"
	"github.com/example/salon-booking/internal/persistence/sqldb"
)

const serviceName = "salon-booking"

func newLogger(level slog.Level) *slog.Logger {
	return logging.New(os.Stdout, level, serviceName, Version)
}

func runMigrate(ctx context.Context, envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger := newLogger(cfg.SlogLevel())

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore(store, logger)

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("migrations applied", "driver", cfg.DatabaseDriver)
	return nil
}

func runServe(parent context.Context, envFile string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger := newLogger(cfg.SlogLevel())

	shutdownTracer, err := obs.InitTracer(ctx, obs.TracerConfig{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Endpoint:       cfg.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Error("failed to flush traces", "error", err)
		}
	}()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore(store, logger)

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	gateway, err := payment.NewGateway(payment.Config{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
	})
	if err != nil {
		return err
	}

	sender, err := mailer.New(cfg.SendGridAPIKey, logger)
	if err != nil {
		return err
	}

	deps := appDeps{
		Store:    store,
		Payments: gateway,
		Mailer:   sender,
		Config:   cfg,
		Logger:   logger,
	}

	if cfg.RedisURL != "" {
		ledger, client, err := cache.Open(ctx, cfg.RedisURL, cfg.WebhookEventTTL)
		if err != nil {
			return err
		}
		defer client.Close()
		deps.Ledger = ledger
		logger.Info("webhook event ledger enabled")
	}

	if cfg.RabbitURL != "" {
		publisher, err := events.NewPublisher(cfg.RabbitURL, cfg.EventsExchange)
		if err != nil {
			return err
		}
		defer publisher.Close()
		deps.Events = publisher
		logger.Info("booking event publishing enabled", "exchange", cfg.EventsExchange)
	}

	handler, err := newHandler(deps)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("salon API listening", "addr", server.Addr, "driver", cfg.DatabaseDriver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}

// appDeps carries the collaborators newHandler wires into services. Ledger and
// Events are optional.
type appDeps struct {
	Store    persistence.Store
	Payments application.PaymentGateway
	Mailer   application.Mailer
	Ledger   application.EventLedger
	Events   application.EventPublisher
	Config   config.Config
	Logger   *slog.Logger

	IDGenerator    func() string
	TokenGenerator func() string
	Now            func() time.Time
	HashPassword   application.PasswordHasher
}

func newHandler(deps appDeps) (http.Handler, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = uuid.NewString
	}
	if deps.TokenGenerator == nil {
		deps.TokenGenerator = func() string { return randomHex(32) }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.HashPassword == nil {
		deps.HashPassword = application.HashPassword
	}
	cfg := deps.Config

	notifier, err := application.NewNotifier(deps.Mailer, application.NotifierSettings{
		SenderAddress:    cfg.SenderEmail,
		SenderName:       cfg.SenderName,
		SystemSenderName: cfg.SystemSenderName,
		AdminAddress:     cfg.AdminEmail,
		Location:         cfg.Location(),
	})
	if err != nil {
		return nil, err
	}

	bookingService := application.NewBookingServiceWithLogger(application.BookingDependencies{
		Bookings:    newBookingRepositoryAdapter(deps.Store),
		Payments:    deps.Payments,
		Notifier:    notifier,
		Events:      deps.Events,
		Ledger:      deps.Ledger,
		IDGenerator: deps.IDGenerator,
		Now:         deps.Now,
		Settings:    application.BookingSettings{AmountCents: cfg.BookingFeeCents, Currency: cfg.Currency},
	}, logger)
	contactService := application.NewContactServiceWithLogger(newContactRepositoryAdapter(deps.Store), notifier, deps.IDGenerator, deps.Now, logger)
	userService := application.NewUserServiceWithLogger(newUserRepositoryAdapter(deps.Store), deps.HashPassword, deps.IDGenerator, deps.Now, logger)
	authService := application.NewAuthServiceWithLogger(application.AuthDependencies{
		Credentials:    newCredentialStoreAdapter(deps.Store),
		Sessions:       newSessionRepositoryAdapter(deps.Store),
		TokenGenerator: deps.TokenGenerator,
		Now:            deps.Now,
		SessionTTL:     cfg.SessionTTL,
	}, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Bookings: httptransport.NewBookingHandler(bookingService, cfg.Location(), logger),
		Contact:  httptransport.NewContactHandler(contactService, logger),
		Users:    httptransport.NewUserHandler(userService, logger),
		Auth:     httptransport.NewAuthHandler(authService, logger),
		Sessions: authService,
		HealthCheck: func(r *http.Request) error {
			return deps.Store.Ping(r.Context())
		},
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})
	return router, nil
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (persistence.Store, error) {
	switch cfg.DatabaseDriver {
	case config.DriverMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		return memory.New(), nil
	case config.DriverMongo:
		store, err := mongostore.Open(ctx, cfg.DatabaseURL, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("open mongo storage: %w", err)
		}
		return store, nil
	case config.DriverSQLite, config.DriverPostgres:
		db, err := sqldb.Open(ctx, sqldb.Options{
			Dialect:         sqldb.Dialect(cfg.DatabaseDriver),
			DSN:             cfg.DatabaseURL,
			MaxOpenConns:    10,
			ConnMaxLifetime: 30 * time.Minute,
			Logger:          logger,
		})
		if err != nil {
			return nil, fmt.Errorf("open %s storage: %w", cfg.DatabaseDriver, err)
		}
		return sqldb.NewStore(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}

func closeStore(store persistence.Store, logger *slog.Logger) {
	if err := store.Close(); err != nil {
		logger.Error("failed to close storage", "error", err)
	}
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(buf)
}
