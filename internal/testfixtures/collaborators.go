package testfixtures

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/example/salon-booking/internal/application"
)

// RecordingMailer captures outgoing emails. Sends to addresses listed in
// FailTo return an error.
type RecordingMailer struct {
	mu     sync.Mutex
	sent   []application.Email
	FailTo map[string]bool
}

// NewRecordingMailer returns an empty RecordingMailer.
func NewRecordingMailer() *RecordingMailer {
	return &RecordingMailer{FailTo: map[string]bool{}}
}

func (m *RecordingMailer) Send(ctx context.Context, email application.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailTo[strings.ToLower(email.ToAddress)] {
		return fmt.Errorf("mailbox %s unavailable", email.ToAddress)
	}
	m.sent = append(m.sent, email)
	return nil
}

// Sent returns a copy of the delivered emails.
func (m *RecordingMailer) Sent() []application.Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]application.Email(nil), m.sent...)
}

// SentTo counts the emails delivered to address.
func (m *RecordingMailer) SentTo(address string) int {
	count := 0
	for _, email := range m.Sent() {
		if strings.EqualFold(email.ToAddress, address) {
			count++
		}
	}
	return count
}

// ErrBadSignature is returned by StubGateway for signatures other than its secret.
var ErrBadSignature = errors.New("stub gateway: signature mismatch")

// StubGateway is an in-process payment gateway. Intents are numbered pi_1,
// pi_2 and so on; webhook payloads use the provider event JSON shape and are
// accepted when the signature equals Secret.
type StubGateway struct {
	mu       sync.Mutex
	Secret   string
	CreateFn func(req application.PaymentIntentRequest) error
	requests []application.PaymentIntentRequest
	keys     map[string]application.PaymentIntent
}

// NewStubGateway returns a StubGateway accepting the given webhook secret.
func NewStubGateway(secret string) *StubGateway {
	return &StubGateway{Secret: secret, keys: map[string]application.PaymentIntent{}}
}

func (g *StubGateway) CreatePaymentIntent(ctx context.Context, req application.PaymentIntentRequest) (application.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.CreateFn != nil {
		if err := g.CreateFn(req); err != nil {
			return application.PaymentIntent{}, err
		}
	}
	if intent, ok := g.keys[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return intent, nil
	}

	g.requests = append(g.requests, req)
	id := fmt.Sprintf("pi_%d", len(g.requests))
	intent := application.PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       "requires_payment_method",
		Metadata:     map[string]string{"bookingId": req.BookingID},
	}
	if req.IdempotencyKey != "" {
		g.keys[req.IdempotencyKey] = intent
	}
	return intent, nil
}

// Requests returns the distinct intent requests received.
func (g *StubGateway) Requests() []application.PaymentIntentRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]application.PaymentIntentRequest(nil), g.requests...)
}

func (g *StubGateway) ParseWebhookEvent(payload []byte, signature string) (application.WebhookEvent, error) {
	if signature == "" || signature != g.Secret {
		return application.WebhookEvent{}, application.NewError(application.KindAuthentication, "ParseWebhookEvent", "Webhook Error: signature mismatch", ErrBadSignature)
	}

	var evt stubEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return application.WebhookEvent{}, application.NewError(application.KindAuthentication, "ParseWebhookEvent", "Webhook Error: malformed payload", err)
	}
	failure := ""
	if evt.Data.Object.LastPaymentError != nil {
		failure = evt.Data.Object.LastPaymentError.Message
	}
	return application.WebhookEvent{
		ID:   evt.ID,
		Type: evt.Type,
		PaymentIntent: application.PaymentIntent{
			ID:             evt.Data.Object.ID,
			Status:         evt.Data.Object.Status,
			Metadata:       evt.Data.Object.Metadata,
			FailureMessage: failure,
		},
	}, nil
}

// EventPayload renders a payment_intent event in the provider JSON shape.
func EventPayload(eventID, eventType, intentID, bookingID string) []byte {
	evt := stubEvent{ID: eventID, Type: eventType}
	evt.Data.Object.ID = intentID
	if bookingID != "" {
		evt.Data.Object.Metadata = map[string]string{"bookingId": bookingID}
	}
	switch eventType {
	case application.EventPaymentIntentSucceeded:
		evt.Data.Object.Status = "succeeded"
	case application.EventPaymentIntentFailed:
		evt.Data.Object.Status = "requires_payment_method"
		evt.Data.Object.LastPaymentError = &stubPaymentError{Message: "Your card was declined."}
	}
	payload, _ := json.Marshal(evt)
	return payload
}

type stubEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID               string            `json:"id"`
			Status           string            `json:"status"`
			Metadata         map[string]string `json:"metadata,omitempty"`
			LastPaymentError *stubPaymentError `json:"last_payment_error,omitempty"`
		} `json:"object"`
	} `json:"data"`
}

type stubPaymentError struct {
	Message string `json:"message"`
}
