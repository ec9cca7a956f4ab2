// Package payment adapts Stripe payment intents and webhook verification to
// the application's PaymentGateway.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/example/salon-booking/internal/application"
)

// Config configures the Stripe gateway.
type Config struct {
	SecretKey     string
	WebhookSecret string
	// Tolerance bounds the age of a signed webhook; zero uses Stripe's default.
	Tolerance time.Duration
	// Backends overrides the Stripe API endpoints, mainly for tests.
	Backends *stripe.Backends
}

// Gateway implements application.PaymentGateway on Stripe.
type Gateway struct {
	api           *client.API
	webhookSecret string
	tolerance     time.Duration
}

var _ application.PaymentGateway = (*Gateway)(nil)

// NewGateway validates cfg and builds a Stripe client.
func NewGateway(cfg Config) (*Gateway, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, application.NewError(application.KindConfiguration, "payment.NewGateway", "stripe secret key is required", nil)
	}
	if strings.TrimSpace(cfg.WebhookSecret) == "" {
		return nil, application.NewError(application.KindConfiguration, "payment.NewGateway", "stripe webhook secret is required", nil)
	}
	tolerance := cfg.Tolerance
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &Gateway{
		api:           client.New(cfg.SecretKey, cfg.Backends),
		webhookSecret: cfg.WebhookSecret,
		tolerance:     tolerance,
	}, nil
}

// CreatePaymentIntent creates a payment intent carrying the booking
// correlation metadata. The idempotency key makes retries return the same intent.
func (g *Gateway) CreatePaymentIntent(ctx context.Context, req application.PaymentIntentRequest) (application.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.CustomerEmail != "" {
		params.ReceiptEmail = stripe.String(req.CustomerEmail)
	}
	params.AddMetadata("bookingId", req.BookingID)
	params.AddMetadata("customerEmail", req.CustomerEmail)
	params.AddMetadata("customerName", req.CustomerName)
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return application.PaymentIntent{}, mapStripeError("CreatePaymentIntent", err)
	}
	return toPaymentIntent(pi), nil
}

// ParseWebhookEvent verifies the Stripe-Signature header over the raw payload
// and decodes payment intent events.
func (g *Gateway) ParseWebhookEvent(payload []byte, signature string) (application.WebhookEvent, error) {
	const op = "ParseWebhookEvent"

	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                g.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return application.WebhookEvent{}, application.NewError(application.KindAuthentication, op, "Webhook Error: "+err.Error(), err)
	}

	out := application.WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if !strings.HasPrefix(out.Type, "payment_intent.") || event.Data == nil {
		return out, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return application.WebhookEvent{}, application.NewError(application.KindValidation, op, "malformed payment intent payload", err)
	}
	out.PaymentIntent = toPaymentIntent(&pi)
	return out, nil
}

func toPaymentIntent(pi *stripe.PaymentIntent) application.PaymentIntent {
	if pi == nil {
		return application.PaymentIntent{}
	}
	out := application.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Metadata:     pi.Metadata,
	}
	if pi.LastPaymentError != nil {
		out.FailureMessage = pi.LastPaymentError.Msg
	}
	return out
}

func mapStripeError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		detail := fmt.Sprintf("stripe %s error", stripeErr.Type)
		if stripeErr.Msg != "" {
			detail = detail + ": " + stripeErr.Msg
		}
		if stripeErr.HTTPStatusCode == http.StatusUnauthorized {
			return application.NewError(application.KindConfiguration, "payment."+op, detail, err)
		}
		return application.NewError(application.KindCollaboratorFailure, "payment."+op, detail, err)
	}
	return application.NewError(application.KindCollaboratorFailure, "payment."+op, "stripe request failed", err)
}
