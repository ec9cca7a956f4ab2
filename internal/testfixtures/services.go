package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/salon-booking/internal/application"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// NewBookingService fills missing ids, clock and settings from the factory.
// Settings default to a 5000 cent USD fee.
func (f *ServiceFactory) NewBookingService(deps application.BookingDependencies, logger *slog.Logger) *application.BookingService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = f.IDGenerator.NextFunc()
	}
	if deps.Now == nil {
		deps.Now = f.Clock.NowFunc()
	}
	if deps.Settings.AmountCents == 0 {
		deps.Settings = application.BookingSettings{AmountCents: 5000, Currency: "usd"}
	}
	return application.NewBookingServiceWithLogger(deps, logger)
}

// ContactServiceDeps captures dependencies for constructing a contact service.
type ContactServiceDeps struct {
	Messages application.ContactRepository
	Notifier application.ContactNotifier
	Logger   *slog.Logger
}

// NewContactService builds a contact service using the factory ids and clock.
func (f *ServiceFactory) NewContactService(deps ContactServiceDeps) *application.ContactService {
	return application.NewContactServiceWithLogger(deps.Messages, deps.Notifier, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), deps.Logger)
}

// UserServiceDeps captures dependencies for constructing a user service.
type UserServiceDeps struct {
	Users  application.UserRepository
	Hasher application.PasswordHasher
	Logger *slog.Logger
}

// NewUserService builds a user service using the supplied dependencies.
func (f *ServiceFactory) NewUserService(deps UserServiceDeps) *application.UserService {
	return application.NewUserServiceWithLogger(deps.Users, deps.Hasher, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), deps.Logger)
}

// NewAuthService builds an auth service, defaulting tokens and clock to the factory.
func (f *ServiceFactory) NewAuthService(deps application.AuthDependencies, logger *slog.Logger) *application.AuthService {
	if deps.TokenGenerator == nil {
		deps.TokenGenerator = f.IDGenerator.NextFunc()
	}
	if deps.Now == nil {
		deps.Now = f.Clock.NowFunc()
	}
	return application.NewAuthServiceWithLogger(deps, logger)
}

// NewNotifier builds a notifier that sends through mailer with test addresses.
func NewNotifier(mailer application.Mailer) *application.Notifier {
	notifier, err := application.NewNotifier(mailer, application.NotifierSettings{
		SenderAddress: "bookings@salon.test",
		AdminAddress:  "admin@salon.test",
		Location:      time.UTC,
	})
	if err != nil {
		panic(err)
	}
	return notifier
}
