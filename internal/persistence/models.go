package persistence

import "time"

// Booking status and channel values as stored by every backend.
const (
	StatusPending        = "pending"
	StatusSucceeded      = "succeeded"
	StatusFailed         = "failed"
	StatusRequiresAction = "requires_action"
	StatusNotApplicable  = "not_applicable"

	ChannelOnlinePayment = "online_payment"
	ChannelDirect        = "direct"
)

// Booking is an appointment request, optionally tied to a payment intent.
type Booking struct {
	ID              string
	CustomerName    string
	CustomerEmail   string
	AppointmentAt   time.Time
	Message         string
	AmountCents     int64
	Currency        string
	Channel         string
	PaymentStatus   string
	PaymentIntentID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// StatusTransition describes a conditional payment status change.
//
// The change applies only when the stored status is one of From and, if
// RequirePaymentIntentMatch is set, the stored payment intent equals
// PaymentIntentID. An empty stored payment intent is backfilled with
// PaymentIntentID whenever the change applies.
type StatusTransition struct {
	BookingID                 string
	PaymentIntentID           string
	RequirePaymentIntentMatch bool
	From                      []string
	To                        string
	At                        time.Time
}

// Allows reports whether the transition may move a booking in the given status.
func (t StatusTransition) Allows(status string) bool {
	for _, from := range t.From {
		if from == status {
			return true
		}
	}
	return false
}

// ContactMessage is a message left through the contact form.
type ContactMessage struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Message   string
	IsRead    bool
	CreatedAt time.Time
}

// User is a registered customer account.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session represents an authentication session persisted for a user.
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
