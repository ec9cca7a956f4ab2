// Package memory provides a map backed persistence.Store used for local
// development and tests.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/example/salon-booking/internal/persistence"
)

// Storage keeps every record in process memory.
type Storage struct {
	mu       sync.RWMutex
	bookings map[string]persistence.Booking
	contacts map[string]persistence.ContactMessage
	users    map[string]persistence.User
	sessions map[string]persistence.Session
}

var _ persistence.Store = (*Storage)(nil)

// New returns an empty Storage.
func New() *Storage {
	return &Storage{
		bookings: make(map[string]persistence.Booking),
		contacts: make(map[string]persistence.ContactMessage),
		users:    make(map[string]persistence.User),
		sessions: make(map[string]persistence.Session),
	}
}

// Close is a no-op.
func (s *Storage) Close() error { return nil }

// Migrate is a no-op.
func (s *Storage) Migrate(context.Context) error { return nil }

// Ping always succeeds.
func (s *Storage) Ping(context.Context) error { return nil }

// --- BookingRepository implementation ---

// CreateBooking stores a new booking.
func (s *Storage) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[booking.ID]; ok {
		return persistence.ErrDuplicate
	}
	s.bookings[booking.ID] = booking
	return nil
}

// GetBooking retrieves a booking by ID.
func (s *Storage) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	booking, ok := s.bookings[id]
	if !ok {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	return booking, nil
}

// GetBookingByPaymentIntent retrieves a booking only when both identifiers match.
func (s *Storage) GetBookingByPaymentIntent(ctx context.Context, id, paymentIntentID string) (persistence.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	booking, ok := s.bookings[id]
	if !ok || paymentIntentID == "" || booking.PaymentIntentID != paymentIntentID {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	return booking, nil
}

// TransitionStatus applies a conditional status change under the write lock.
func (s *Storage) TransitionStatus(ctx context.Context, transition persistence.StatusTransition) (persistence.Booking, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	booking, ok := s.bookings[transition.BookingID]
	if !ok {
		return persistence.Booking{}, false, persistence.ErrNotFound
	}
	if transition.RequirePaymentIntentMatch && (transition.PaymentIntentID == "" || booking.PaymentIntentID != transition.PaymentIntentID) {
		return persistence.Booking{}, false, persistence.ErrNotFound
	}
	if !transition.Allows(booking.PaymentStatus) {
		return booking, false, nil
	}

	booking.PaymentStatus = transition.To
	if booking.PaymentIntentID == "" {
		booking.PaymentIntentID = transition.PaymentIntentID
	}
	booking.UpdatedAt = transition.At
	s.bookings[booking.ID] = booking
	return booking, true, nil
}

// SaveBooking overwrites the mutable fields of an existing booking.
func (s *Storage) SaveBooking(ctx context.Context, booking persistence.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.bookings[booking.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	if current.PaymentIntentID != "" && current.PaymentIntentID != booking.PaymentIntentID {
		return persistence.ErrConflict
	}

	booking.CreatedAt = current.CreatedAt
	booking.Channel = current.Channel
	s.bookings[booking.ID] = booking
	return nil
}

// --- ContactRepository implementation ---

// CreateContactMessage stores a contact form submission.
func (s *Storage) CreateContactMessage(ctx context.Context, message persistence.ContactMessage) error {
	if message.ID == "" {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contacts[message.ID]; ok {
		return persistence.ErrDuplicate
	}
	s.contacts[message.ID] = message
	return nil
}

// GetContactMessage retrieves a contact message by ID.
func (s *Storage) GetContactMessage(ctx context.Context, id string) (persistence.ContactMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	message, ok := s.contacts[id]
	if !ok {
		return persistence.ContactMessage{}, persistence.ErrNotFound
	}
	return message, nil
}

// --- UserRepository implementation ---

// CreateUser stores a new user, rejecting duplicate IDs and emails.
func (s *Storage) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return persistence.ErrDuplicate
	}
	lower := strings.ToLower(user.Email)
	for _, existing := range s.users {
		if strings.ToLower(existing.Email) == lower {
			return persistence.ErrDuplicate
		}
	}

	user.Email = lower
	s.users[user.ID] = user
	return nil
}

// GetUser retrieves a user by ID.
func (s *Storage) GetUser(ctx context.Context, id string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

// GetUserByEmail retrieves a user by case-insensitive email address.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lower := strings.ToLower(strings.TrimSpace(email))
	for _, user := range s.users {
		if user.Email == lower {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

// --- SessionRepository implementation ---

// CreateSession stores a session keyed by token.
func (s *Storage) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if session.ID == "" || session.UserID == "" || strings.TrimSpace(session.Token) == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.Token]; ok {
		return persistence.Session{}, persistence.ErrDuplicate
	}
	s.sessions[session.Token] = cloneSession(session)
	return cloneSession(session), nil
}

// GetSession retrieves a session by token.
func (s *Storage) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[strings.TrimSpace(token)]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return cloneSession(session), nil
}

// RevokeSession marks a session as revoked.
func (s *Storage) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[strings.TrimSpace(token)]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	revoked := revokedAt
	session.RevokedAt = &revoked
	session.UpdatedAt = revokedAt
	s.sessions[session.Token] = session
	return cloneSession(session), nil
}

// DeleteExpiredSessions removes sessions that expired at or before reference.
func (s *Storage) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, session := range s.sessions {
		if !session.ExpiresAt.After(reference) {
			delete(s.sessions, token)
		}
	}
	return nil
}

func cloneSession(session persistence.Session) persistence.Session {
	clone := session
	if session.RevokedAt != nil {
		revoked := *session.RevokedAt
		clone.RevokedAt = &revoked
	}
	return clone
}
