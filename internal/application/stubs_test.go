package application

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// bookingRepositoryStub is an in-memory BookingRepository with the same
// conditional update semantics as the real stores.
type bookingRepositoryStub struct {
	mu          sync.Mutex
	bookings    map[string]Booking
	createErr   error
	saveErr     error
	transErr    error
	saves       int
	transitions []StatusTransition
}

func newBookingRepositoryStub() *bookingRepositoryStub {
	return &bookingRepositoryStub{bookings: make(map[string]Booking)}
}

func (r *bookingRepositoryStub) seed(booking Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[booking.ID] = booking
}

func (r *bookingRepositoryStub) get(id string) (Booking, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	return b, ok
}

func (r *bookingRepositoryStub) CreateBooking(ctx context.Context, booking Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, exists := r.bookings[booking.ID]; exists {
		return ErrAlreadyExists
	}
	r.bookings[booking.ID] = booking
	return nil
}

func (r *bookingRepositoryStub) GetBooking(ctx context.Context, id string) (Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return Booking{}, ErrNotFound
	}
	return b, nil
}

func (r *bookingRepositoryStub) GetBookingByPaymentIntent(ctx context.Context, id, paymentIntentID string) (Booking, error) {
	b, err := r.GetBooking(ctx, id)
	if err != nil {
		return Booking{}, err
	}
	if b.PaymentIntentID != paymentIntentID {
		return Booking{}, ErrNotFound
	}
	return b, nil
}

func (r *bookingRepositoryStub) TransitionStatus(ctx context.Context, transition StatusTransition) (Booking, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, transition)
	if r.transErr != nil {
		return Booking{}, false, r.transErr
	}
	b, ok := r.bookings[transition.BookingID]
	if !ok {
		return Booking{}, false, ErrNotFound
	}
	if transition.RequirePaymentIntentMatch && b.PaymentIntentID != transition.PaymentIntentID {
		return Booking{}, false, ErrNotFound
	}
	if !slices.Contains(transition.From, b.PaymentStatus) {
		return b, false, nil
	}
	b.PaymentStatus = transition.To
	if b.PaymentIntentID == "" {
		b.PaymentIntentID = transition.PaymentIntentID
	}
	b.UpdatedAt = transition.At
	r.bookings[b.ID] = b
	return b, true, nil
}

func (r *bookingRepositoryStub) SaveBooking(ctx context.Context, booking Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.saveErr != nil {
		return r.saveErr
	}
	current, ok := r.bookings[booking.ID]
	if !ok {
		return ErrNotFound
	}
	if current.PaymentIntentID != "" && current.PaymentIntentID != booking.PaymentIntentID {
		return ErrConflict
	}
	r.bookings[booking.ID] = booking
	return nil
}

// paymentGatewayStub returns canned intents and events.
type paymentGatewayStub struct {
	mu        sync.Mutex
	intent    PaymentIntent
	createErr error
	requests  []PaymentIntentRequest
	event     WebhookEvent
	parseErr  error
}

func (g *paymentGatewayStub) CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.createErr != nil {
		return PaymentIntent{}, g.createErr
	}
	return g.intent, nil
}

func (g *paymentGatewayStub) ParseWebhookEvent(payload []byte, signature string) (WebhookEvent, error) {
	if g.parseErr != nil {
		return WebhookEvent{}, g.parseErr
	}
	return g.event, nil
}

func (g *paymentGatewayStub) requestCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

// bookingNotifierStub counts booking notifications.
type bookingNotifierStub struct {
	mu       sync.Mutex
	err      error
	bookings []Booking
}

func (n *bookingNotifierStub) NotifyBooking(ctx context.Context, booking Booking) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bookings = append(n.bookings, booking)
	return n.err
}

func (n *bookingNotifierStub) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.bookings)
}

// mailerStub records sent emails and can fail by recipient.
type mailerStub struct {
	mu     sync.Mutex
	sent   []Email
	failTo map[string]error
}

func (m *mailerStub) Send(ctx context.Context, email Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failTo[email.ToAddress]; ok {
		return err
	}
	m.sent = append(m.sent, email)
	return nil
}

func (m *mailerStub) bySubjectPrefix(prefix string) (Email, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.sent {
		if len(e.Subject) >= len(prefix) && e.Subject[:len(prefix)] == prefix {
			return e, true
		}
	}
	return Email{}, false
}

// publisherStub records published events.
type publisherStub struct {
	mu     sync.Mutex
	err    error
	events []BookingEvent
}

func (p *publisherStub) Publish(ctx context.Context, event BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *publisherStub) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// ledgerStub is an in-memory EventLedger.
type ledgerStub struct {
	mu        sync.Mutex
	processed map[string]bool
	seenErr   error
}

func newLedgerStub() *ledgerStub {
	return &ledgerStub{processed: make(map[string]bool)}
}

func (l *ledgerStub) Seen(ctx context.Context, eventID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seenErr != nil {
		return false, l.seenErr
	}
	return l.processed[eventID], nil
}

func (l *ledgerStub) MarkProcessed(ctx context.Context, eventID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.processed[eventID] = true
	return nil
}

type sequenceIDs struct {
	mu   sync.Mutex
	ids  []string
	next int
}

func (s *sequenceIDs) generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next < len(s.ids) {
		id := s.ids[s.next]
		s.next++
		return id
	}
	s.next++
	return fmt.Sprintf("generated-%d", s.next)
}

var errBoom = errors.New("boom")

func fixedNow() time.Time {
	return time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
}
