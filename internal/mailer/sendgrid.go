// Package mailer delivers application emails through SendGrid.
package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/example/salon-booking/internal/application"
)

// SendGrid implements application.Mailer.
type SendGrid struct {
	client *sendgrid.Client
	logger *slog.Logger
}

var _ application.Mailer = (*SendGrid)(nil)

// New builds a mailer authenticated with apiKey.
func New(apiKey string, logger *slog.Logger) (*SendGrid, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, application.NewError(application.KindConfiguration, "mailer.New", "sendgrid API key is required", nil)
	}
	return NewWithClient(sendgrid.NewSendClient(apiKey), logger), nil
}

// NewWithClient wraps an existing SendGrid client.
func NewWithClient(client *sendgrid.Client, logger *slog.Logger) *SendGrid {
	if logger == nil {
		logger = slog.Default()
	}
	return &SendGrid{client: client, logger: logger}
}

// Send delivers email, treating any non-2xx response as a failure.
func (s *SendGrid) Send(ctx context.Context, email application.Email) error {
	msg := mail.NewSingleEmail(
		mail.NewEmail(email.FromName, email.FromAddress),
		email.Subject,
		mail.NewEmail(email.ToName, email.ToAddress),
		email.PlainText,
		email.HTML,
	)

	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return application.NewError(application.KindCollaboratorFailure, "mailer.Send", "sendgrid request failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := responseErrors(resp)
		s.logger.ErrorContext(ctx, "sendgrid rejected message",
			"status", resp.StatusCode,
			"subject", email.Subject,
			"details", detail,
		)
		return application.NewError(application.KindCollaboratorFailure, "mailer.Send",
			fmt.Sprintf("sendgrid responded %d: %s", resp.StatusCode, detail), nil)
	}

	s.logger.DebugContext(ctx, "email accepted", "subject", email.Subject, "status", resp.StatusCode)
	return nil
}

type sendgridErrorBody struct {
	Errors []struct {
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"errors"`
}

func responseErrors(resp *rest.Response) string {
	var body sendgridErrorBody
	if err := json.Unmarshal([]byte(resp.Body), &body); err != nil || len(body.Errors) == 0 {
		if strings.TrimSpace(resp.Body) == "" {
			return "Unknown SendGrid error"
		}
		return strings.TrimSpace(resp.Body)
	}
	messages := make([]string, 0, len(body.Errors))
	for _, e := range body.Errors {
		messages = append(messages, e.Message)
	}
	return strings.Join(messages, ", ")
}
