package mongostore

import (
	"time"

	"github.com/example/salon-booking/internal/persistence"
)

type bookingDocument struct {
	ID              string    `bson:"_id"`
	CustomerName    string    `bson:"name"`
	CustomerEmail   string    `bson:"email"`
	AppointmentAt   time.Time `bson:"date"`
	Message         string    `bson:"message,omitempty"`
	AmountCents     int64     `bson:"amount"`
	Currency        string    `bson:"currency"`
	Channel         string    `bson:"channel"`
	PaymentStatus   string    `bson:"paymentStatus"`
	PaymentIntentID string    `bson:"paymentIntentId"`
	CreatedAt       time.Time `bson:"createdAt"`
	UpdatedAt       time.Time `bson:"updatedAt"`
}

func toBookingDocument(b persistence.Booking) bookingDocument {
	return bookingDocument{
		ID:              b.ID,
		CustomerName:    b.CustomerName,
		CustomerEmail:   b.CustomerEmail,
		AppointmentAt:   b.AppointmentAt.UTC(),
		Message:         b.Message,
		AmountCents:     b.AmountCents,
		Currency:        b.Currency,
		Channel:         b.Channel,
		PaymentStatus:   b.PaymentStatus,
		PaymentIntentID: b.PaymentIntentID,
		CreatedAt:       b.CreatedAt.UTC(),
		UpdatedAt:       b.UpdatedAt.UTC(),
	}
}

func (d bookingDocument) model() persistence.Booking {
	return persistence.Booking{
		ID:              d.ID,
		CustomerName:    d.CustomerName,
		CustomerEmail:   d.CustomerEmail,
		AppointmentAt:   d.AppointmentAt.UTC(),
		Message:         d.Message,
		AmountCents:     d.AmountCents,
		Currency:        d.Currency,
		Channel:         d.Channel,
		PaymentStatus:   d.PaymentStatus,
		PaymentIntentID: d.PaymentIntentID,
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}
}

type contactDocument struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	Phone     string    `bson:"phone,omitempty"`
	Message   string    `bson:"message"`
	IsRead    bool      `bson:"isRead"`
	CreatedAt time.Time `bson:"createdAt"`
}

func toContactDocument(m persistence.ContactMessage) contactDocument {
	return contactDocument{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Phone:     m.Phone,
		Message:   m.Message,
		IsRead:    m.IsRead,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

func (d contactDocument) model() persistence.ContactMessage {
	return persistence.ContactMessage{
		ID:        d.ID,
		Name:      d.Name,
		Email:     d.Email,
		Phone:     d.Phone,
		Message:   d.Message,
		IsRead:    d.IsRead,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

type userDocument struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	DisplayName  string    `bson:"name,omitempty"`
	PasswordHash string    `bson:"password"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func toUserDocument(u persistence.User) userDocument {
	return userDocument{
		ID:           u.ID,
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
	}
}

func (d userDocument) model() persistence.User {
	return persistence.User{
		ID:           d.ID,
		Email:        d.Email,
		DisplayName:  d.DisplayName,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

type sessionDocument struct {
	ID          string     `bson:"_id"`
	UserID      string     `bson:"userId"`
	Token       string     `bson:"token"`
	Fingerprint string     `bson:"fingerprint,omitempty"`
	ExpiresAt   time.Time  `bson:"expiresAt"`
	RevokedAt   *time.Time `bson:"revokedAt,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt"`
}

func toSessionDocument(s persistence.Session) sessionDocument {
	doc := sessionDocument{
		ID:          s.ID,
		UserID:      s.UserID,
		Token:       s.Token,
		Fingerprint: s.Fingerprint,
		ExpiresAt:   s.ExpiresAt.UTC(),
		CreatedAt:   s.CreatedAt.UTC(),
		UpdatedAt:   s.UpdatedAt.UTC(),
	}
	if s.RevokedAt != nil {
		revoked := s.RevokedAt.UTC()
		doc.RevokedAt = &revoked
	}
	return doc
}

func (d sessionDocument) model() persistence.Session {
	session := persistence.Session{
		ID:          d.ID,
		UserID:      d.UserID,
		Token:       d.Token,
		Fingerprint: d.Fingerprint,
		ExpiresAt:   d.ExpiresAt.UTC(),
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
	if d.RevokedAt != nil {
		revoked := d.RevokedAt.UTC()
		session.RevokedAt = &revoked
	}
	return session
}
