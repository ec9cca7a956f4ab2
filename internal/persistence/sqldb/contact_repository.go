package sqldb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/example/salon-booking/internal/persistence"
)

// ContactRepository implements persistence.ContactRepository.
type ContactRepository struct {
	db *DB
}

// NewContactRepository creates a contact message repository on db.
func NewContactRepository(db *DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// CreateContactMessage inserts a contact form submission.
func (r *ContactRepository) CreateContactMessage(ctx context.Context, message persistence.ContactMessage) error {
	if message.ID == "" {
		return persistence.ErrConstraintViolation
	}
	query := `
		INSERT INTO contact_messages (id, name, email, phone, message, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.exec(ctx, r.db.db, query,
		message.ID,
		message.Name,
		message.Email,
		message.Phone,
		message.Message,
		boolToInt(message.IsRead),
		formatTime(message.CreatedAt),
	)
	return r.db.mapper.MapError(err)
}

// GetContactMessage retrieves a contact message by ID.
func (r *ContactRepository) GetContactMessage(ctx context.Context, id string) (persistence.ContactMessage, error) {
	query := `SELECT id, name, email, phone, message, is_read, created_at FROM contact_messages WHERE id = ?`

	var (
		message   persistence.ContactMessage
		isRead    int
		createdAt string
	)
	err := r.db.queryRow(ctx, r.db.db, query, id).Scan(
		&message.ID,
		&message.Name,
		&message.Email,
		&message.Phone,
		&message.Message,
		&isRead,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.ContactMessage{}, persistence.ErrNotFound
		}
		return persistence.ContactMessage{}, r.db.mapper.MapError(err)
	}

	message.IsRead = isRead != 0
	if message.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.ContactMessage{}, err
	}
	return message, nil
}
