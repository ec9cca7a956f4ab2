// Package persistencetest holds the behavioural contract every persistence.Store
// backend must satisfy. Backend packages call Run from their own tests.
package persistencetest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/salon-booking/internal/persistence"
)

// Factory returns a fresh, migrated store. Cleanup is registered on t.
type Factory func(t *testing.T) persistence.Store

var sequence atomic.Uint64

// uniqueID keeps ids distinct across subtests that share a database.
func uniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), sequence.Add(1))
}

var reference = time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)

func newBooking(status string) persistence.Booking {
	return persistence.Booking{
		ID:            uniqueID("booking"),
		CustomerName:  "Ada Lovelace",
		CustomerEmail: "ada@example.com",
		AppointmentAt: reference.Add(72 * time.Hour),
		Message:       "Balayage please",
		AmountCents:   5000,
		Currency:      "usd",
		Channel:       persistence.ChannelOnlinePayment,
		PaymentStatus: status,
		CreatedAt:     reference,
		UpdatedAt:     reference,
	}
}

func succeed(bookingID, paymentIntentID string, at time.Time) persistence.StatusTransition {
	return persistence.StatusTransition{
		BookingID:       bookingID,
		PaymentIntentID: paymentIntentID,
		From:            []string{persistence.StatusPending, persistence.StatusFailed, persistence.StatusRequiresAction},
		To:              persistence.StatusSucceeded,
		At:              at,
	}
}

func fail(bookingID, paymentIntentID string, at time.Time) persistence.StatusTransition {
	return persistence.StatusTransition{
		BookingID:                 bookingID,
		PaymentIntentID:           paymentIntentID,
		RequirePaymentIntentMatch: true,
		From:                      []string{persistence.StatusPending, persistence.StatusRequiresAction},
		To:                        persistence.StatusFailed,
		At:                        at,
	}
}

// Run exercises the full repository contract against stores built by factory.
func Run(t *testing.T, factory Factory) {
	t.Run("bookings", func(t *testing.T) { runBookings(t, factory) })
	t.Run("contact messages", func(t *testing.T) { runContacts(t, factory) })
	t.Run("users", func(t *testing.T) { runUsers(t, factory) })
	t.Run("sessions", func(t *testing.T) { runSessions(t, factory) })
}

func runBookings(t *testing.T, factory Factory) {
	ctx := context.Background()

	t.Run("create and get round trip", func(t *testing.T) {
		store := factory(t)
		booking := newBooking(persistence.StatusPending)
		require.NoError(t, store.CreateBooking(ctx, booking))

		got, err := store.GetBooking(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, booking.CustomerName, got.CustomerName)
		assert.Equal(t, booking.CustomerEmail, got.CustomerEmail)
		assert.True(t, booking.AppointmentAt.Equal(got.AppointmentAt))
		assert.Equal(t, booking.AmountCents, got.AmountCents)
		assert.Equal(t, persistence.StatusPending, got.PaymentStatus)
		assert.Empty(t, got.PaymentIntentID)

		assert.ErrorIs(t, store.CreateBooking(ctx, booking), persistence.ErrDuplicate)
	})

	t.Run("missing booking is not found", func(t *testing.T) {
		store := factory(t)
		_, err := store.GetBooking(ctx, uniqueID("missing"))
		assert.ErrorIs(t, err, persistence.ErrNotFound)
	})

	t.Run("save sets payment intent once", func(t *testing.T) {
		store := factory(t)
		booking := newBooking(persistence.StatusPending)
		require.NoError(t, store.CreateBooking(ctx, booking))

		booking.PaymentIntentID = "pi_first"
		booking.UpdatedAt = reference.Add(time.Minute)
		require.NoError(t, store.SaveBooking(ctx, booking))

		// Saving the same reference again is allowed.
		require.NoError(t, store.SaveBooking(ctx, booking))

		booking.PaymentIntentID = "pi_second"
		assert.ErrorIs(t, store.SaveBooking(ctx, booking), persistence.ErrConflict)

		got, err := store.GetBookingByPaymentIntent(ctx, booking.ID, "pi_first")
		require.NoError(t, err)
		assert.Equal(t, "pi_first", got.PaymentIntentID)

		_, err = store.GetBookingByPaymentIntent(ctx, booking.ID, "pi_second")
		assert.ErrorIs(t, err, persistence.ErrNotFound)

		missing := newBooking(persistence.StatusPending)
		assert.ErrorIs(t, store.SaveBooking(ctx, missing), persistence.ErrNotFound)
	})

	t.Run("success transition is idempotent and backfills the reference", func(t *testing.T) {
		store := factory(t)
		booking := newBooking(persistence.StatusPending)
		require.NoError(t, store.CreateBooking(ctx, booking))

		at := reference.Add(time.Hour)
		got, applied, err := store.TransitionStatus(ctx, succeed(booking.ID, "pi_backfill", at))
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, persistence.StatusSucceeded, got.PaymentStatus)
		assert.Equal(t, "pi_backfill", got.PaymentIntentID)
		assert.True(t, at.Equal(got.UpdatedAt))

		again, applied, err := store.TransitionStatus(ctx, succeed(booking.ID, "pi_backfill", at.Add(time.Hour)))
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Equal(t, persistence.StatusSucceeded, again.PaymentStatus)
		assert.True(t, at.Equal(again.UpdatedAt), "no-op must not touch updated_at")
	})

	t.Run("success keeps an existing reference", func(t *testing.T) {
		store := factory(t)
		booking := newBooking(persistence.StatusPending)
		booking.PaymentIntentID = "pi_original"
		require.NoError(t, store.CreateBooking(ctx, booking))

		got, applied, err := store.TransitionStatus(ctx, succeed(booking.ID, "pi_other", reference))
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, "pi_original", got.PaymentIntentID)
	})

	t.Run("failure requires id and reference match", func(t *testing.T) {
		store := factory(t)
		booking := newBooking(persistence.StatusPending)
		booking.PaymentIntentID = "pi_match"
		require.NoError(t, store.CreateBooking(ctx, booking))

		_, _, err := store.TransitionStatus(ctx, fail(booking.ID, "pi_wrong", reference))
		assert.ErrorIs(t, err, persistence.ErrNotFound)

		got, applied, err := store.TransitionStatus(ctx, fail(booking.ID, "pi_match", reference))
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, persistence.StatusFailed, got.PaymentStatus)
	})

	t.Run("failure never downgrades a succeeded booking", func(t *testing.T) {
		store := factory(t)
		booking := newBooking(persistence.StatusPending)
		booking.PaymentIntentID = "pi_done"
		require.NoError(t, store.CreateBooking(ctx, booking))

		_, applied, err := store.TransitionStatus(ctx, succeed(booking.ID, "pi_done", reference))
		require.NoError(t, err)
		require.True(t, applied)

		got, applied, err := store.TransitionStatus(ctx, fail(booking.ID, "pi_done", reference.Add(time.Minute)))
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Equal(t, persistence.StatusSucceeded, got.PaymentStatus)
	})

	t.Run("late capture moves failed to succeeded", func(t *testing.T) {
		store := factory(t)
		booking := newBooking(persistence.StatusPending)
		booking.PaymentIntentID = "pi_late"
		require.NoError(t, store.CreateBooking(ctx, booking))

		_, applied, err := store.TransitionStatus(ctx, fail(booking.ID, "pi_late", reference))
		require.NoError(t, err)
		require.True(t, applied)

		got, applied, err := store.TransitionStatus(ctx, succeed(booking.ID, "pi_late", reference.Add(time.Minute)))
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, persistence.StatusSucceeded, got.PaymentStatus)
	})

	t.Run("transition on missing booking is not found", func(t *testing.T) {
		store := factory(t)
		_, _, err := store.TransitionStatus(ctx, succeed(uniqueID("missing"), "pi_x", reference))
		assert.ErrorIs(t, err, persistence.ErrNotFound)
	})

	t.Run("concurrent success deliveries apply exactly once", func(t *testing.T) {
		store := factory(t)
		booking := newBooking(persistence.StatusPending)
		require.NoError(t, store.CreateBooking(ctx, booking))

		const workers = 8
		var (
			wg      sync.WaitGroup
			applied atomic.Int32
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, ok, err := store.TransitionStatus(ctx, succeed(booking.ID, "pi_race", reference))
				if err == nil && ok {
					applied.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), applied.Load())
	})
}

func runContacts(t *testing.T, factory Factory) {
	ctx := context.Background()

	t.Run("create and get round trip", func(t *testing.T) {
		store := factory(t)
		message := persistence.ContactMessage{
			ID:        uniqueID("contact"),
			Name:      "Grace",
			Email:     "grace@example.com",
			Phone:     "555-0100",
			Message:   "Do you do colour corrections?",
			CreatedAt: reference,
		}
		require.NoError(t, store.CreateContactMessage(ctx, message))

		got, err := store.GetContactMessage(ctx, message.ID)
		require.NoError(t, err)
		assert.Equal(t, message.Message, got.Message)
		assert.Equal(t, message.Phone, got.Phone)
		assert.False(t, got.IsRead)

		_, err = store.GetContactMessage(ctx, uniqueID("missing"))
		assert.ErrorIs(t, err, persistence.ErrNotFound)
	})
}

func runUsers(t *testing.T, factory Factory) {
	ctx := context.Background()

	t.Run("emails are unique and case insensitive", func(t *testing.T) {
		store := factory(t)
		email := uniqueID("user") + "@Example.com"
		user := persistence.User{
			ID:           uniqueID("user"),
			Email:        email,
			DisplayName:  "Linus",
			PasswordHash: "hash",
			CreatedAt:    reference,
			UpdatedAt:    reference,
		}
		require.NoError(t, store.CreateUser(ctx, user))

		got, err := store.GetUserByEmail(ctx, email)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)

		byID, err := store.GetUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "hash", byID.PasswordHash)

		duplicate := user
		duplicate.ID = uniqueID("user")
		assert.ErrorIs(t, store.CreateUser(ctx, duplicate), persistence.ErrDuplicate)

		_, err = store.GetUser(ctx, uniqueID("missing"))
		assert.ErrorIs(t, err, persistence.ErrNotFound)
	})
}

func runSessions(t *testing.T, factory Factory) {
	ctx := context.Background()

	t.Run("create, revoke and prune", func(t *testing.T) {
		store := factory(t)
		user := persistence.User{
			ID:           uniqueID("user"),
			Email:        uniqueID("session") + "@example.com",
			PasswordHash: "hash",
			CreatedAt:    reference,
			UpdatedAt:    reference,
		}
		require.NoError(t, store.CreateUser(ctx, user))

		active := persistence.Session{
			ID:        uniqueID("session"),
			UserID:    user.ID,
			Token:     uniqueID("token"),
			ExpiresAt: reference.Add(time.Hour),
			CreatedAt: reference,
			UpdatedAt: reference,
		}
		expired := active
		expired.ID = uniqueID("session")
		expired.Token = uniqueID("token")
		expired.ExpiresAt = reference.Add(-time.Minute)

		_, err := store.CreateSession(ctx, active)
		require.NoError(t, err)
		_, err = store.CreateSession(ctx, expired)
		require.NoError(t, err)

		revoked, err := store.RevokeSession(ctx, active.Token, reference.Add(time.Minute))
		require.NoError(t, err)
		require.NotNil(t, revoked.RevokedAt)

		got, err := store.GetSession(ctx, active.Token)
		require.NoError(t, err)
		require.NotNil(t, got.RevokedAt)

		require.NoError(t, store.DeleteExpiredSessions(ctx, reference))
		_, err = store.GetSession(ctx, expired.Token)
		assert.ErrorIs(t, err, persistence.ErrNotFound)

		_, err = store.RevokeSession(ctx, uniqueID("missing"), reference)
		assert.ErrorIs(t, err, persistence.ErrNotFound)
	})
}
