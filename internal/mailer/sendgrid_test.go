package mailer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sendgrid/sendgrid-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/salon-booking/internal/application"
)

func newTestMailer(t *testing.T, handler http.HandlerFunc) *SendGrid {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	req := sendgrid.GetRequest("SG.test", "/v3/mail/send", srv.URL)
	req.Method = "POST"
	return NewWithClient(&sendgrid.Client{Request: req}, nil)
}

func testEmail() application.Email {
	return application.Email{
		FromName:    "Diamond Salon Bookings",
		FromAddress: "bookings@salon.test",
		ToName:      "Ada",
		ToAddress:   "ada@example.com",
		Subject:     "Your Booking Confirmation - Ada",
		PlainText:   "confirmed",
		HTML:        "<h1>Booking Confirmed!</h1>",
	}
}

func TestNew_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := New(" ", nil)
	assert.Equal(t, application.KindConfiguration, application.KindOf(err))
}

func TestSendGrid_Send(t *testing.T) {
	t.Parallel()

	t.Run("posts a v3 mail payload", func(t *testing.T) {
		t.Parallel()

		var payload struct {
			From struct {
				Email string `json:"email"`
				Name  string `json:"name"`
			} `json:"from"`
			Subject          string `json:"subject"`
			Personalizations []struct {
				To []struct {
					Email string `json:"email"`
				} `json:"to"`
			} `json:"personalizations"`
			Content []struct {
				Type  string `json:"type"`
				Value string `json:"value"`
			} `json:"content"`
		}
		var auth string

		m := newTestMailer(t, func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &payload)
			w.WriteHeader(http.StatusAccepted)
		})

		require.NoError(t, m.Send(context.Background(), testEmail()))
		assert.Equal(t, "Bearer SG.test", auth)
		assert.Equal(t, "bookings@salon.test", payload.From.Email)
		assert.Equal(t, "Diamond Salon Bookings", payload.From.Name)
		assert.Equal(t, "Your Booking Confirmation - Ada", payload.Subject)
		require.Len(t, payload.Personalizations, 1)
		assert.Equal(t, "ada@example.com", payload.Personalizations[0].To[0].Email)
		require.Len(t, payload.Content, 2)
		assert.Equal(t, "text/html", payload.Content[1].Type)
	})

	t.Run("surfaces provider error messages", func(t *testing.T) {
		t.Parallel()

		m := newTestMailer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"errors":[{"message":"The from address does not match a verified Sender Identity."}]}`)
		})

		err := m.Send(context.Background(), testEmail())
		require.Error(t, err)
		assert.Equal(t, application.KindCollaboratorFailure, application.KindOf(err))
		assert.Contains(t, err.Error(), "verified Sender Identity")
	})

	t.Run("transport failures are collaborator failures", func(t *testing.T) {
		t.Parallel()

		req := sendgrid.GetRequest("SG.test", "/v3/mail/send", "http://127.0.0.1:1")
		req.Method = "POST"
		m := NewWithClient(&sendgrid.Client{Request: req}, nil)

		err := m.Send(context.Background(), testEmail())
		assert.Equal(t, application.KindCollaboratorFailure, application.KindOf(err))
	})
}
