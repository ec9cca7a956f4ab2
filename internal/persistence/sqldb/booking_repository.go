package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/example/salon-booking/internal/persistence"
)

const bookingColumns = `id, customer_name, customer_email, appointment_at, message, amount_cents, currency, channel, payment_status, payment_intent_id, created_at, updated_at`

// BookingRepository implements persistence.BookingRepository.
type BookingRepository struct {
	db *DB
}

// NewBookingRepository creates a booking repository on db.
func NewBookingRepository(db *DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// CreateBooking inserts a new booking row.
func (r *BookingRepository) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.exec(ctx, r.db.db, query,
		booking.ID,
		booking.CustomerName,
		booking.CustomerEmail,
		formatTime(booking.AppointmentAt),
		booking.Message,
		booking.AmountCents,
		booking.Currency,
		booking.Channel,
		booking.PaymentStatus,
		booking.PaymentIntentID,
		formatTime(booking.CreatedAt),
		formatTime(booking.UpdatedAt),
	)
	return r.db.mapper.MapError(err)
}

// GetBooking retrieves a booking by ID.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	return r.scanBooking(r.db.queryRow(ctx, r.db.db, query, id))
}

// GetBookingByPaymentIntent retrieves a booking matching both the id and the stored payment intent.
func (r *BookingRepository) GetBookingByPaymentIntent(ctx context.Context, id, paymentIntentID string) (persistence.Booking, error) {
	if strings.TrimSpace(paymentIntentID) == "" {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ? AND payment_intent_id = ?`
	return r.scanBooking(r.db.queryRow(ctx, r.db.db, query, id, paymentIntentID))
}

// TransitionStatus applies the conditional update as a single UPDATE and
// reads the resulting row back in the same transaction.
func (r *BookingRepository) TransitionStatus(ctx context.Context, transition persistence.StatusTransition) (persistence.Booking, bool, error) {
	if transition.BookingID == "" || transition.To == "" || len(transition.From) == 0 {
		return persistence.Booking{}, false, persistence.ErrConstraintViolation
	}
	if transition.RequirePaymentIntentMatch && transition.PaymentIntentID == "" {
		return persistence.Booking{}, false, persistence.ErrNotFound
	}

	var (
		booking persistence.Booking
		applied bool
	)

	err := r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(transition.From)), ", ")
		update := `
			UPDATE bookings
			SET payment_status = ?,
				payment_intent_id = CASE WHEN payment_intent_id = '' THEN ? ELSE payment_intent_id END,
				updated_at = ?
			WHERE id = ? AND payment_status IN (` + placeholders + `)`
		args := []any{transition.To, transition.PaymentIntentID, formatTime(transition.At), transition.BookingID}
		for _, from := range transition.From {
			args = append(args, from)
		}
		if transition.RequirePaymentIntentMatch {
			update += ` AND payment_intent_id = ?`
			args = append(args, transition.PaymentIntentID)
		}

		result, err := r.db.exec(ctx, tx, update, args...)
		if err != nil {
			return r.db.mapper.MapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		applied = affected > 0

		query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
		readArgs := []any{transition.BookingID}
		if transition.RequirePaymentIntentMatch {
			query += ` AND payment_intent_id = ?`
			readArgs = append(readArgs, transition.PaymentIntentID)
		}
		booking, err = r.scanBooking(r.db.queryRow(ctx, tx, query, readArgs...))
		return err
	})
	if err != nil {
		return persistence.Booking{}, false, err
	}
	return booking, applied, nil
}

// SaveBooking overwrites mutable fields. The WHERE clause guards the stored
// payment intent so it can only move from empty to a value.
func (r *BookingRepository) SaveBooking(ctx context.Context, booking persistence.Booking) error {
	query := `
		UPDATE bookings
		SET customer_name = ?, customer_email = ?, appointment_at = ?, message = ?,
			amount_cents = ?, currency = ?, payment_status = ?, payment_intent_id = ?, updated_at = ?
		WHERE id = ? AND (payment_intent_id = '' OR payment_intent_id = ?)
	`
	result, err := r.db.exec(ctx, r.db.db, query,
		booking.CustomerName,
		booking.CustomerEmail,
		formatTime(booking.AppointmentAt),
		booking.Message,
		booking.AmountCents,
		booking.Currency,
		booking.PaymentStatus,
		booking.PaymentIntentID,
		formatTime(booking.UpdatedAt),
		booking.ID,
		booking.PaymentIntentID,
	)
	if err != nil {
		return r.db.mapper.MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	if _, err := r.GetBooking(ctx, booking.ID); err != nil {
		return err
	}
	return persistence.ErrConflict
}

func (r *BookingRepository) scanBooking(row *sql.Row) (persistence.Booking, error) {
	var (
		booking                             persistence.Booking
		appointmentAt, createdAt, updatedAt string
	)
	err := row.Scan(
		&booking.ID,
		&booking.CustomerName,
		&booking.CustomerEmail,
		&appointmentAt,
		&booking.Message,
		&booking.AmountCents,
		&booking.Currency,
		&booking.Channel,
		&booking.PaymentStatus,
		&booking.PaymentIntentID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Booking{}, persistence.ErrNotFound
		}
		return persistence.Booking{}, r.db.mapper.MapError(err)
	}

	if booking.AppointmentAt, err = parseTime("appointment_at", appointmentAt); err != nil {
		return persistence.Booking{}, err
	}
	if booking.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Booking{}, err
	}
	if booking.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Booking{}, err
	}
	return booking, nil
}
