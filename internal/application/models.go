package application

import "time"

// PaymentStatus is the payment state of a booking.
type PaymentStatus string

const (
	PaymentStatusPending        PaymentStatus = "pending"
	PaymentStatusSucceeded      PaymentStatus = "succeeded"
	PaymentStatusFailed         PaymentStatus = "failed"
	PaymentStatusRequiresAction PaymentStatus = "requires_action"
	// PaymentStatusNotApplicable marks bookings taken without payment.
	PaymentStatusNotApplicable PaymentStatus = "not_applicable"
)

// Channel identifies how a booking was taken.
type Channel string

const (
	ChannelOnlinePayment Channel = "online_payment"
	ChannelDirect        Channel = "direct"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
	Email  string
}

// BookingInput captures caller provided booking fields.
type BookingInput struct {
	Name    string
	Email   string
	Date    time.Time
	Message string
}

// Booking represents a persisted appointment request.
type Booking struct {
	ID              string
	CustomerName    string
	CustomerEmail   string
	AppointmentAt   time.Time
	Message         string
	AmountCents     int64
	Currency        string
	Channel         Channel
	PaymentStatus   PaymentStatus
	PaymentIntentID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Paid reports whether the booking went through the online payment flow.
func (b Booking) Paid() bool {
	return b.Channel == ChannelOnlinePayment
}

// StatusTransition describes a conditional payment status change.
type StatusTransition struct {
	BookingID                 string
	PaymentIntentID           string
	RequirePaymentIntentMatch bool
	From                      []PaymentStatus
	To                        PaymentStatus
	At                        time.Time
}

// BookingSettings carries the pricing applied to paid bookings.
type BookingSettings struct {
	AmountCents int64
	Currency    string
}

// PaymentInitiation is returned to the browser to complete payment.
type PaymentInitiation struct {
	BookingID       string
	PaymentIntentID string
	ClientSecret    string
}

// PaymentIntentRequest asks the payment gateway for a new payment intent.
type PaymentIntentRequest struct {
	BookingID      string
	AmountCents    int64
	Currency       string
	CustomerEmail  string
	CustomerName   string
	IdempotencyKey string
}

// PaymentIntent is the subset of the provider's payment intent the services use.
type PaymentIntent struct {
	ID             string
	ClientSecret   string
	Status         string
	Metadata       map[string]string
	FailureMessage string
}

// Webhook event types handled by reconciliation.
const (
	EventPaymentIntentSucceeded = "payment_intent.succeeded"
	EventPaymentIntentFailed    = "payment_intent.payment_failed"
)

// WebhookEvent is a verified provider notification.
type WebhookEvent struct {
	ID            string
	Type          string
	PaymentIntent PaymentIntent
}

// WebhookOutcome labels what reconciliation did with an event.
type WebhookOutcome string

const (
	OutcomeConfirmed        WebhookOutcome = "confirmed"
	OutcomeAlreadyProcessed WebhookOutcome = "already_processed"
	OutcomeMarkedFailed     WebhookOutcome = "marked_failed"
	OutcomeUnmatched        WebhookOutcome = "unmatched"
	OutcomeNotRecorded      WebhookOutcome = "not_recorded"
	OutcomeIgnored          WebhookOutcome = "ignored"
	OutcomeDuplicateEvent   WebhookOutcome = "duplicate_event"
)

// ReconcileResult is the acknowledgement returned for a webhook event.
type ReconcileResult struct {
	EventID            string
	EventType          string
	Outcome            WebhookOutcome
	BookingID          string
	EmailDispatchError string
}

// Booking lifecycle event types published to the message broker.
const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventPaymentFailed    = "payment.failed"
)

// BookingEvent is published when a booking changes state.
type BookingEvent struct {
	Type            string
	BookingID       string
	Channel         Channel
	PaymentStatus   PaymentStatus
	PaymentIntentID string
	AmountCents     int64
	Currency        string
	OccurredAt      time.Time
}

func newBookingEvent(eventType string, booking Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:            eventType,
		BookingID:       booking.ID,
		Channel:         booking.Channel,
		PaymentStatus:   booking.PaymentStatus,
		PaymentIntentID: booking.PaymentIntentID,
		AmountCents:     booking.AmountCents,
		Currency:        booking.Currency,
		OccurredAt:      at,
	}
}

// ContactInput captures contact form fields.
type ContactInput struct {
	Name    string
	Email   string
	Phone   string
	Message string
}

// ContactMessage represents a stored contact form submission.
type ContactMessage struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Message   string
	IsRead    bool
	CreatedAt time.Time
}

// User represents a registered customer account.
type User struct {
	ID          string
	Email       string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RegisterParams captures the data required to register a user.
type RegisterParams struct {
	Email       string
	Password    string
	DisplayName string
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID          string
	UserID      string
	Token       string
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email       string
	Password    string
	Fingerprint string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    User
	Session Session
}
