package payment

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/example/salon-booking/internal/application"
)

const testWebhookSecret = "whsec_test_secret"

func newTestGateway(t *testing.T, handler http.HandlerFunc) *Gateway {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	gw, err := NewGateway(Config{
		SecretKey:     "sk_test_123",
		WebhookSecret: testWebhookSecret,
		Backends:      &stripe.Backends{API: backend, Connect: backend, Uploads: backend},
	})
	require.NoError(t, err)
	return gw
}

func TestNewGateway_RequiresSecrets(t *testing.T) {
	t.Parallel()

	_, err := NewGateway(Config{WebhookSecret: "whsec"})
	assert.Equal(t, application.KindConfiguration, application.KindOf(err))

	_, err = NewGateway(Config{SecretKey: "sk"})
	assert.Equal(t, application.KindConfiguration, application.KindOf(err))
}

func TestGateway_CreatePaymentIntent(t *testing.T) {
	t.Parallel()

	t.Run("sends amount, metadata and idempotency key", func(t *testing.T) {
		t.Parallel()

		var form url.Values
		var idempotencyKey string
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/payment_intents", r.URL.Path)
			body, _ := io.ReadAll(r.Body)
			form, _ = url.ParseQuery(string(body))
			idempotencyKey = r.Header.Get("Idempotency-Key")

			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"id":"pi_123","object":"payment_intent","client_secret":"pi_123_secret_456","status":"requires_payment_method"}`)
		})

		intent, err := gw.CreatePaymentIntent(context.Background(), application.PaymentIntentRequest{
			BookingID:      "b-1",
			AmountCents:    5000,
			Currency:       "USD",
			CustomerEmail:  "ada@example.com",
			CustomerName:   "Ada",
			IdempotencyKey: "booking-b-1",
		})
		require.NoError(t, err)

		assert.Equal(t, "pi_123", intent.ID)
		assert.Equal(t, "pi_123_secret_456", intent.ClientSecret)
		assert.Equal(t, "5000", form.Get("amount"))
		assert.Equal(t, "usd", form.Get("currency"))
		assert.Equal(t, "true", form.Get("automatic_payment_methods[enabled]"))
		assert.Equal(t, "b-1", form.Get("metadata[bookingId]"))
		assert.Equal(t, "ada@example.com", form.Get("metadata[customerEmail]"))
		assert.Equal(t, "Ada", form.Get("metadata[customerName]"))
		assert.Equal(t, "ada@example.com", form.Get("receipt_email"))
		assert.Equal(t, "booking-b-1", idempotencyKey)
	})

	t.Run("invalid API key is a configuration error", func(t *testing.T) {
		t.Parallel()

		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":{"type":"invalid_request_error","message":"Invalid API Key provided"}}`)
		})

		_, err := gw.CreatePaymentIntent(context.Background(), application.PaymentIntentRequest{BookingID: "b-1", AmountCents: 5000, Currency: "usd"})
		require.Error(t, err)
		assert.Equal(t, application.KindConfiguration, application.KindOf(err))
	})

	t.Run("card errors are collaborator failures", func(t *testing.T) {
		t.Parallel()

		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusPaymentRequired)
			_, _ = io.WriteString(w, `{"error":{"type":"card_error","message":"Your card was declined."}}`)
		})

		_, err := gw.CreatePaymentIntent(context.Background(), application.PaymentIntentRequest{BookingID: "b-1", AmountCents: 5000, Currency: "usd"})
		require.Error(t, err)
		assert.Equal(t, application.KindCollaboratorFailure, application.KindOf(err))
		assert.Contains(t, err.Error(), "Your card was declined.")
	})
}

func signedPayload(t *testing.T, payload string, ts time.Time) string {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: ts,
	})
	return signed.Header
}

func TestGateway_ParseWebhookEvent(t *testing.T) {
	t.Parallel()

	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected API call %s", r.URL.Path)
	})

	succeeded := `{"id":"evt_1","object":"event","api_version":"2020-08-27","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","object":"payment_intent","status":"succeeded","metadata":{"bookingId":"b-1"}}}}`
	failed := `{"id":"evt_2","object":"event","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_1","object":"payment_intent","metadata":{"bookingId":"b-1"},"last_payment_error":{"message":"Your card was declined."}}}}`

	t.Run("decodes succeeded intents regardless of API version", func(t *testing.T) {
		event, err := gw.ParseWebhookEvent([]byte(succeeded), signedPayload(t, succeeded, time.Now()))
		require.NoError(t, err)
		assert.Equal(t, "evt_1", event.ID)
		assert.Equal(t, application.EventPaymentIntentSucceeded, event.Type)
		assert.Equal(t, "pi_1", event.PaymentIntent.ID)
		assert.Equal(t, "b-1", event.PaymentIntent.Metadata["bookingId"])
	})

	t.Run("exposes the failure message", func(t *testing.T) {
		event, err := gw.ParseWebhookEvent([]byte(failed), signedPayload(t, failed, time.Now()))
		require.NoError(t, err)
		assert.Equal(t, "Your card was declined.", event.PaymentIntent.FailureMessage)
	})

	t.Run("rejects tampered payloads", func(t *testing.T) {
		header := signedPayload(t, succeeded, time.Now())
		tampered := `{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_evil","metadata":{"bookingId":"b-1"}}}}`

		_, err := gw.ParseWebhookEvent([]byte(tampered), header)
		assert.Equal(t, application.KindAuthentication, application.KindOf(err))
	})

	t.Run("rejects stale signatures", func(t *testing.T) {
		_, err := gw.ParseWebhookEvent([]byte(succeeded), signedPayload(t, succeeded, time.Now().Add(-time.Hour)))
		assert.Equal(t, application.KindAuthentication, application.KindOf(err))
	})

	t.Run("other event types carry no payment intent", func(t *testing.T) {
		other := `{"id":"evt_3","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`
		event, err := gw.ParseWebhookEvent([]byte(other), signedPayload(t, other, time.Now()))
		require.NoError(t, err)
		assert.Equal(t, "customer.created", event.Type)
		assert.Empty(t, event.PaymentIntent.ID)
	})
}
