package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/salon-booking/internal/application"
	"github.com/example/salon-booking/internal/persistence"
)

// mapPersistenceError translates storage sentinels into the errors the
// application layer classifies, keeping the original cause in the chain.
func mapPersistenceError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return fmt.Errorf("%w: %w", application.ErrNotFound, err)
	case errors.Is(err, persistence.ErrDuplicate):
		return fmt.Errorf("%w: %w", application.ErrAlreadyExists, err)
	case errors.Is(err, persistence.ErrConflict):
		return fmt.Errorf("%w: %w", application.ErrConflict, err)
	default:
		return err
	}
}

type bookingRepositoryAdapter struct {
	repo persistence.BookingRepository
}

func newBookingRepositoryAdapter(repo persistence.BookingRepository) *bookingRepositoryAdapter {
	return &bookingRepositoryAdapter{repo: repo}
}

func (a *bookingRepositoryAdapter) CreateBooking(ctx context.Context, booking application.Booking) error {
	return mapPersistenceError(a.repo.CreateBooking(ctx, toPersistenceBooking(booking)))
}

func (a *bookingRepositoryAdapter) GetBooking(ctx context.Context, id string) (application.Booking, error) {
	stored, err := a.repo.GetBooking(ctx, id)
	if err != nil {
		return application.Booking{}, mapPersistenceError(err)
	}
	return toApplicationBooking(stored), nil
}

func (a *bookingRepositoryAdapter) GetBookingByPaymentIntent(ctx context.Context, id, paymentIntentID string) (application.Booking, error) {
	stored, err := a.repo.GetBookingByPaymentIntent(ctx, id, paymentIntentID)
	if err != nil {
		return application.Booking{}, mapPersistenceError(err)
	}
	return toApplicationBooking(stored), nil
}

func (a *bookingRepositoryAdapter) TransitionStatus(ctx context.Context, transition application.StatusTransition) (application.Booking, bool, error) {
	from := make([]string, 0, len(transition.From))
	for _, status := range transition.From {
		from = append(from, string(status))
	}
	stored, applied, err := a.repo.TransitionStatus(ctx, persistence.StatusTransition{
		BookingID:                 transition.BookingID,
		PaymentIntentID:           transition.PaymentIntentID,
		RequirePaymentIntentMatch: transition.RequirePaymentIntentMatch,
		From:                      from,
		To:                        string(transition.To),
		At:                        transition.At,
	})
	if err != nil {
		return application.Booking{}, false, mapPersistenceError(err)
	}
	return toApplicationBooking(stored), applied, nil
}

func (a *bookingRepositoryAdapter) SaveBooking(ctx context.Context, booking application.Booking) error {
	return mapPersistenceError(a.repo.SaveBooking(ctx, toPersistenceBooking(booking)))
}

type contactRepositoryAdapter struct {
	repo persistence.ContactRepository
}

func newContactRepositoryAdapter(repo persistence.ContactRepository) *contactRepositoryAdapter {
	return &contactRepositoryAdapter{repo: repo}
}

func (a *contactRepositoryAdapter) CreateContactMessage(ctx context.Context, message application.ContactMessage) error {
	return mapPersistenceError(a.repo.CreateContactMessage(ctx, persistence.ContactMessage{
		ID:        message.ID,
		Name:      message.Name,
		Email:     message.Email,
		Phone:     message.Phone,
		Message:   message.Message,
		IsRead:    message.IsRead,
		CreatedAt: message.CreatedAt,
	}))
}

type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, credentials application.UserCredentials) error {
	return mapPersistenceError(a.repo.CreateUser(ctx, toPersistenceUser(credentials)))
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, mapPersistenceError(err)
	}
	return toApplicationUser(stored), nil
}

type credentialStoreAdapter struct {
	*userRepositoryAdapter
}

func newCredentialStoreAdapter(repo persistence.UserRepository) *credentialStoreAdapter {
	return &credentialStoreAdapter{userRepositoryAdapter: newUserRepositoryAdapter(repo)}
}

func (a *credentialStoreAdapter) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, mapPersistenceError(err)
	}
	return application.UserCredentials{User: toApplicationUser(stored), PasswordHash: stored.PasswordHash}, nil
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, mapPersistenceError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, mapPersistenceError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, mapPersistenceError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return mapPersistenceError(a.repo.DeleteExpiredSessions(ctx, reference))
}

func toPersistenceBooking(booking application.Booking) persistence.Booking {
	return persistence.Booking{
		ID:              booking.ID,
		CustomerName:    booking.CustomerName,
		CustomerEmail:   booking.CustomerEmail,
		AppointmentAt:   booking.AppointmentAt,
		Message:         booking.Message,
		AmountCents:     booking.AmountCents,
		Currency:        booking.Currency,
		Channel:         string(booking.Channel),
		PaymentStatus:   string(booking.PaymentStatus),
		PaymentIntentID: booking.PaymentIntentID,
		CreatedAt:       booking.CreatedAt,
		UpdatedAt:       booking.UpdatedAt,
	}
}

func toApplicationBooking(model persistence.Booking) application.Booking {
	return application.Booking{
		ID:              model.ID,
		CustomerName:    model.CustomerName,
		CustomerEmail:   model.CustomerEmail,
		AppointmentAt:   model.AppointmentAt,
		Message:         model.Message,
		AmountCents:     model.AmountCents,
		Currency:        model.Currency,
		Channel:         application.Channel(model.Channel),
		PaymentStatus:   application.PaymentStatus(model.PaymentStatus),
		PaymentIntentID: model.PaymentIntentID,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

func toPersistenceUser(credentials application.UserCredentials) persistence.User {
	return persistence.User{
		ID:           credentials.User.ID,
		Email:        credentials.User.Email,
		DisplayName:  credentials.User.DisplayName,
		PasswordHash: credentials.PasswordHash,
		CreatedAt:    credentials.User.CreatedAt,
		UpdatedAt:    credentials.User.UpdatedAt,
	}
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:          model.ID,
		Email:       model.Email,
		DisplayName: model.DisplayName,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:          session.ID,
		UserID:      session.UserID,
		Token:       session.Token,
		Fingerprint: session.Fingerprint,
		ExpiresAt:   session.ExpiresAt,
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
		RevokedAt:   copyTimePtr(session.RevokedAt),
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:          model.ID,
		UserID:      model.UserID,
		Token:       model.Token,
		Fingerprint: model.Fingerprint,
		ExpiresAt:   model.ExpiresAt,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
		RevokedAt:   copyTimePtr(model.RevokedAt),
	}
}

func copyTimePtr(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	v := *src
	return &v
}
