package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
)

// ContactRepository stores contact form submissions.
type ContactRepository interface {
	CreateContactMessage(ctx context.Context, message ContactMessage) error
}

// ContactNotifier alerts the salon about a new contact message.
type ContactNotifier interface {
	NotifyContact(ctx context.Context, message ContactMessage) error
}

// ContactService validates and stores contact form submissions.
type ContactService struct {
	messages    ContactRepository
	notifier    ContactNotifier
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewContactService wires dependencies for the contact service.
func NewContactService(messages ContactRepository, notifier ContactNotifier, idGenerator func() string, now func() time.Time) *ContactService {
	return NewContactServiceWithLogger(messages, notifier, idGenerator, now, nil)
}

// NewContactServiceWithLogger wires dependencies with a specified logger.
func NewContactServiceWithLogger(messages ContactRepository, notifier ContactNotifier, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ContactService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ContactService{
		messages:    messages,
		notifier:    notifier,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// SubmitMessage stores a contact message. The admin email is best effort.
func (s *ContactService) SubmitMessage(ctx context.Context, input ContactInput) (ContactMessage, error) {
	const op = "SubmitMessage"
	if s == nil {
		return ContactMessage{}, fmt.Errorf("ContactService is nil")
	}

	normalized := normalizeContactInput(input)
	logger := serviceLogger(ctx, s.logger, "ContactService", op, "email", normalized.Email)

	if vErr := validateContactInput(normalized); vErr.HasErrors() {
		logger.ErrorContext(ctx, "contact message rejected", "error", vErr, "error_kind", ErrorKind(vErr))
		return ContactMessage{}, vErr
	}
	if s.messages == nil {
		return ContactMessage{}, NewError(KindConfiguration, op, "contact repository not configured", nil)
	}

	message := ContactMessage{
		ID:        s.idGenerator(),
		Name:      normalized.Name,
		Email:     normalized.Email,
		Phone:     normalized.Phone,
		Message:   normalized.Message,
		IsRead:    false,
		CreatedAt: s.now(),
	}

	if err := s.messages.CreateContactMessage(ctx, message); err != nil {
		err = NewError(KindPersistenceFailure, op, "failed to save contact message", err)
		logger.ErrorContext(ctx, "contact message not saved", "error", err, "error_kind", ErrorKind(err))
		return ContactMessage{}, err
	}

	logger = logger.With("message_id", message.ID)
	if s.notifier != nil {
		if err := s.notifier.NotifyContact(ctx, message); err != nil {
			logger.WarnContext(ctx, "admin notification for contact message failed", "error", err)
		}
	}

	logger.InfoContext(ctx, "contact message saved")
	return message, nil
}

func normalizeContactInput(input ContactInput) ContactInput {
	return ContactInput{
		Name:    strings.TrimSpace(input.Name),
		Email:   strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:   strings.TrimSpace(input.Phone),
		Message: strings.TrimSpace(input.Message),
	}
}

func validateContactInput(input ContactInput) *ValidationError {
	vErr := &ValidationError{}

	if input.Name == "" {
		vErr.add("name", "name is required")
	}
	if input.Email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		vErr.add("email", "please provide a valid email address")
	}
	if input.Message == "" {
		vErr.add("message", "message is required")
	}

	return vErr
}
