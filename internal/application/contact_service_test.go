package application

import (
	"context"
	"errors"
	"testing"
)

type contactRepositoryStub struct {
	messages []ContactMessage
	err      error
}

func (r *contactRepositoryStub) CreateContactMessage(ctx context.Context, message ContactMessage) error {
	if r.err != nil {
		return r.err
	}
	r.messages = append(r.messages, message)
	return nil
}

type contactNotifierStub struct {
	calls int
	err   error
}

func (n *contactNotifierStub) NotifyContact(ctx context.Context, message ContactMessage) error {
	n.calls++
	return n.err
}

func TestContactService_SubmitMessage(t *testing.T) {
	t.Parallel()

	t.Run("stores normalized unread message", func(t *testing.T) {
		t.Parallel()

		repo := &contactRepositoryStub{}
		notifier := &contactNotifierStub{}
		svc := NewContactService(repo, notifier, func() string { return "msg-1" }, fixedNow)

		msg, err := svc.SubmitMessage(context.Background(), ContactInput{
			Name:    " Grace ",
			Email:   " Grace@Example.COM ",
			Message: " Hello ",
		})
		if err != nil {
			t.Fatalf("SubmitMessage failed: %v", err)
		}
		if msg.ID != "msg-1" || msg.Email != "grace@example.com" || msg.Name != "Grace" || msg.IsRead {
			t.Fatalf("unexpected message %+v", msg)
		}
		if len(repo.messages) != 1 || notifier.calls != 1 {
			t.Fatalf("expected one stored message and one notification")
		}
	})

	t.Run("reports every missing field", func(t *testing.T) {
		t.Parallel()

		svc := NewContactService(&contactRepositoryStub{}, nil, nil, nil)
		_, err := svc.SubmitMessage(context.Background(), ContactInput{Email: "bad"})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"name", "email", "message"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s error, got %#v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("notification failure is not surfaced", func(t *testing.T) {
		t.Parallel()

		svc := NewContactService(&contactRepositoryStub{}, &contactNotifierStub{err: errBoom}, func() string { return "msg-1" }, fixedNow)
		if _, err := svc.SubmitMessage(context.Background(), ContactInput{Name: "A", Email: "a@example.com", Message: "hi"}); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
	})

	t.Run("persistence failure is tagged", func(t *testing.T) {
		t.Parallel()

		notifier := &contactNotifierStub{}
		svc := NewContactService(&contactRepositoryStub{err: errBoom}, notifier, nil, nil)
		_, err := svc.SubmitMessage(context.Background(), ContactInput{Name: "A", Email: "a@example.com", Message: "hi"})
		if KindOf(err) != KindPersistenceFailure || !errors.Is(err, errBoom) {
			t.Fatalf("expected tagged persistence failure, got %v", err)
		}
		if notifier.calls != 0 {
			t.Fatalf("expected no notification when the message was not stored")
		}
	})
}
