package persistence

import (
	"context"
	"time"
)

// BookingRepository stores bookings and applies payment status changes.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	// GetBookingByPaymentIntent matches on both the booking id and the stored payment intent.
	GetBookingByPaymentIntent(ctx context.Context, id, paymentIntentID string) (Booking, error)
	// TransitionStatus applies the transition atomically and returns the
	// booking as stored afterwards together with whether the change applied.
	TransitionStatus(ctx context.Context, transition StatusTransition) (Booking, bool, error)
	// SaveBooking overwrites mutable fields. It returns ErrConflict instead of
	// replacing a stored payment intent with a different one.
	SaveBooking(ctx context.Context, booking Booking) error
}

// ContactRepository stores contact form submissions.
type ContactRepository interface {
	CreateContactMessage(ctx context.Context, message ContactMessage) error
	GetContactMessage(ctx context.Context, id string) (ContactMessage, error)
}

// UserRepository stores registered customer accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// Store bundles every repository together with lifecycle hooks.
type Store interface {
	BookingRepository
	ContactRepository
	UserRepository
	SessionRepository
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
