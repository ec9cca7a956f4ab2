package application

import (
	"errors"
	"io"
	"log/slog"
	"testing"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := map[string]error{
		"":                     nil,
		"unexpected":           errors.New("x"),
		"invalid_credentials":  ErrInvalidCredentials,
		"session_revoked":      ErrSessionRevoked,
		"persistence_failure":  NewError(KindPersistenceFailure, "op", "", nil),
		"validation":           &ValidationError{},
		"collaborator_failure": NewError(KindCollaboratorFailure, "op", "", nil),
	}
	for want, err := range cases {
		if got := ErrorKind(err); got != want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", err, got, want)
		}
	}
}

func TestBookingAttrs(t *testing.T) {
	t.Parallel()

	direct := bookingAttrs(Booking{ID: "bk-1", Channel: ChannelDirect, PaymentStatus: PaymentStatusNotApplicable})
	if len(direct) != 6 {
		t.Fatalf("expected three pairs without payment intent, got %v", direct)
	}

	paid := bookingAttrs(Booking{ID: "bk-2", Channel: ChannelOnlinePayment, PaymentStatus: PaymentStatusPending, PaymentIntentID: "pi_1"})
	if len(paid) != 8 || paid[6] != "payment_intent_id" || paid[7] != "pi_1" {
		t.Fatalf("expected payment intent pair, got %v", paid)
	}
	for _, v := range paid {
		if v == "customer_email" {
			t.Fatalf("customer email must not be logged")
		}
	}
}
