package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/example/salon-booking/internal/application"

// BookingRepository captures the persistence operations needed by the booking service.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	GetBookingByPaymentIntent(ctx context.Context, id, paymentIntentID string) (Booking, error)
	TransitionStatus(ctx context.Context, transition StatusTransition) (Booking, bool, error)
	SaveBooking(ctx context.Context, booking Booking) error
}

// PaymentGateway creates payment intents and verifies provider webhooks.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (PaymentIntent, error)
	ParseWebhookEvent(payload []byte, signature string) (WebhookEvent, error)
}

// BookingNotifier sends the customer and admin emails for a booking.
type BookingNotifier interface {
	NotifyBooking(ctx context.Context, booking Booking) error
}

// EventPublisher publishes booking lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event BookingEvent) error
}

// EventLedger remembers webhook events that were fully processed.
type EventLedger interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

// BookingDependencies wires the collaborators of BookingService. Events and
// Ledger are optional.
type BookingDependencies struct {
	Bookings    BookingRepository
	Payments    PaymentGateway
	Notifier    BookingNotifier
	Events      EventPublisher
	Ledger      EventLedger
	IDGenerator func() string
	Now         func() time.Time
	Settings    BookingSettings
}

// BookingService runs the paid booking flow, webhook reconciliation and the
// direct booking path.
type BookingService struct {
	bookings    BookingRepository
	payments    PaymentGateway
	notifier    BookingNotifier
	events      EventPublisher
	ledger      EventLedger
	idGenerator func() string
	now         func() time.Time
	settings    BookingSettings
	logger      *slog.Logger
	tracer      trace.Tracer
}

// NewBookingService constructs a BookingService.
func NewBookingService(deps BookingDependencies) *BookingService {
	return NewBookingServiceWithLogger(deps, nil)
}

// NewBookingServiceWithLogger constructs a BookingService with a specified logger.
func NewBookingServiceWithLogger(deps BookingDependencies, logger *slog.Logger) *BookingService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "" }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if strings.TrimSpace(deps.Settings.Currency) == "" {
		deps.Settings.Currency = "usd"
	}
	return &BookingService{
		bookings:    deps.Bookings,
		payments:    deps.Payments,
		notifier:    deps.Notifier,
		events:      deps.Events,
		ledger:      deps.Ledger,
		idGenerator: deps.IDGenerator,
		now:         deps.Now,
		settings:    deps.Settings,
		logger:      defaultLogger(logger),
		tracer:      otel.Tracer(tracerName),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// InitiatePayment creates a pending booking and a payment intent for it.
func (s *BookingService) InitiatePayment(ctx context.Context, input BookingInput) (result PaymentInitiation, err error) {
	const op = "InitiatePayment"
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	ctx, span := s.tracer.Start(ctx, "BookingService.InitiatePayment")
	defer span.End()

	normalized := normalizeBookingInput(input)
	logger := s.loggerWith(ctx, op, "customer_email", normalized.Email)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, ErrorKind(err))
			logger.ErrorContext(ctx, "payment initiation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		span.SetAttributes(
			attribute.String("booking.id", result.BookingID),
			attribute.String("payment_intent.id", result.PaymentIntentID),
		)
		logger.With(
			"booking_id", result.BookingID,
			"payment_intent_id", result.PaymentIntentID,
		).InfoContext(ctx, "payment initiated")
	}()

	if vErr := validateBookingInput(normalized); vErr.HasErrors() {
		err = vErr
		return
	}
	if s.bookings == nil || s.payments == nil {
		err = NewError(KindConfiguration, op, "booking store or payment gateway not configured", nil)
		return
	}
	if s.settings.AmountCents <= 0 {
		err = NewError(KindConfiguration, op, "booking fee must be positive", nil)
		return
	}

	now := s.now()
	booking := Booking{
		ID:            s.idGenerator(),
		CustomerName:  normalized.Name,
		CustomerEmail: normalized.Email,
		AppointmentAt: normalized.Date,
		Message:       normalized.Message,
		AmountCents:   s.settings.AmountCents,
		Currency:      s.settings.Currency,
		Channel:       ChannelOnlinePayment,
		PaymentStatus: PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err = s.bookings.CreateBooking(ctx, booking); err != nil {
		err = NewError(KindPersistenceFailure, op, "failed to create booking", err)
		return
	}

	var intent PaymentIntent
	intent, err = s.payments.CreatePaymentIntent(ctx, PaymentIntentRequest{
		BookingID:      booking.ID,
		AmountCents:    booking.AmountCents,
		Currency:       booking.Currency,
		CustomerEmail:  booking.CustomerEmail,
		CustomerName:   booking.CustomerName,
		IdempotencyKey: "booking-" + booking.ID,
	})
	if err != nil {
		if KindOf(err) == "" {
			err = NewError(KindCollaboratorFailure, op, "failed to create payment intent", err)
		}
		logger.WarnContext(ctx, "booking left pending without payment intent", "booking_id", booking.ID)
		return
	}

	booking.PaymentIntentID = intent.ID
	booking.UpdatedAt = s.now()
	if saveErr := s.bookings.SaveBooking(ctx, booking); saveErr != nil {
		// Reconciliation recovers the booking through the bookingId metadata.
		logger.ErrorContext(ctx, "payment intent created but not saved on booking",
			"booking_id", booking.ID,
			"payment_intent_id", intent.ID,
			"error", saveErr,
			"error_kind", ErrorKind(saveErr),
		)
	}

	s.publish(ctx, logger, newBookingEvent(EventBookingCreated, booking, booking.UpdatedAt))

	result = PaymentInitiation{
		BookingID:       booking.ID,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
	}
	return
}

// CreateDirectBooking stores a booking taken without payment and sends both
// confirmation emails. When the emails fail the persisted booking is returned
// together with a collaborator failure.
func (s *BookingService) CreateDirectBooking(ctx context.Context, input BookingInput) (booking Booking, err error) {
	const op = "CreateDirectBooking"
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	normalized := normalizeBookingInput(input)
	logger := s.loggerWith(ctx, op, "customer_email", normalized.Email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "direct booking failed", "booking_id", booking.ID, "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(bookingAttrs(booking)...).InfoContext(ctx, "direct booking created")
	}()

	if vErr := validateBookingInput(normalized); vErr.HasErrors() {
		err = vErr
		return
	}
	if s.bookings == nil || s.notifier == nil {
		err = NewError(KindConfiguration, op, "booking store or notifier not configured", nil)
		return
	}

	now := s.now()
	candidate := Booking{
		ID:            s.idGenerator(),
		CustomerName:  normalized.Name,
		CustomerEmail: normalized.Email,
		AppointmentAt: normalized.Date,
		Message:       normalized.Message,
		Currency:      s.settings.Currency,
		Channel:       ChannelDirect,
		PaymentStatus: PaymentStatusNotApplicable,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err = s.bookings.CreateBooking(ctx, candidate); err != nil {
		err = NewError(KindPersistenceFailure, op, "failed to create booking", err)
		return
	}
	booking = candidate

	s.publish(ctx, logger, newBookingEvent(EventBookingCreated, booking, now))

	if notifyErr := s.notifier.NotifyBooking(ctx, booking); notifyErr != nil {
		err = NewError(KindCollaboratorFailure, op, "booking saved but confirmation emails could not be sent", notifyErr)
		return
	}
	return
}

func (s *BookingService) publish(ctx context.Context, logger *slog.Logger, event BookingEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		logger.WarnContext(ctx, "failed to publish booking event",
			"event_type", event.Type,
			"booking_id", event.BookingID,
			"error", err,
		)
	}
}

func normalizeBookingInput(input BookingInput) BookingInput {
	return BookingInput{
		Name:    strings.TrimSpace(input.Name),
		Email:   strings.ToLower(strings.TrimSpace(input.Email)),
		Date:    input.Date,
		Message: strings.TrimSpace(input.Message),
	}
}

func validateBookingInput(input BookingInput) *ValidationError {
	vErr := &ValidationError{}

	if input.Name == "" {
		vErr.add("name", "name is required")
	}
	if input.Email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		vErr.add("email", "email is invalid")
	}
	if input.Date.IsZero() {
		vErr.add("date", "date is required")
	}

	return vErr
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
