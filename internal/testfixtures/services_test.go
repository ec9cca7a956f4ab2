package testfixtures

import (
	"context"
	"testing"

	"github.com/example/salon-booking/internal/application"
)

func TestServiceFactoryNewBookingService(t *testing.T) {
	factory := NewServiceFactory(WithIDGenerator(NewIDGenerator("booking")))
	store := &memoryBookings{}
	gateway := NewStubGateway("whsec")

	svc := factory.NewBookingService(application.BookingDependencies{
		Bookings: store,
		Payments: gateway,
		Notifier: NewNotifier(NewRecordingMailer()),
	}, nil)

	result, err := svc.InitiatePayment(context.Background(), NewBookingFixture().Input())
	if err != nil {
		t.Fatalf("InitiatePayment returned error: %v", err)
	}
	if result.BookingID != "booking-1" {
		t.Fatalf("expected generated ID booking-1, got %q", result.BookingID)
	}
	if result.ClientSecret != "pi_1_secret" {
		t.Fatalf("unexpected client secret %q", result.ClientSecret)
	}
	stored := store.bookings[result.BookingID]
	if !stored.CreatedAt.Equal(factory.Clock.Peek()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Peek(), stored.CreatedAt)
	}
	if stored.AmountCents != 5000 || stored.PaymentIntentID != "pi_1" {
		t.Fatalf("unexpected stored booking %+v", stored)
	}
}

func TestStubGatewayWebhooks(t *testing.T) {
	gateway := NewStubGateway("whsec")

	if _, err := gateway.ParseWebhookEvent(EventPayload("evt_1", application.EventPaymentIntentSucceeded, "pi_1", "bk"), "forged"); application.KindOf(err) != application.KindAuthentication {
		t.Fatalf("expected authentication error, got %v", err)
	}

	event, err := gateway.ParseWebhookEvent(EventPayload("evt_2", application.EventPaymentIntentFailed, "pi_2", "bk"), "whsec")
	if err != nil {
		t.Fatalf("ParseWebhookEvent returned error: %v", err)
	}
	if event.PaymentIntent.Metadata["bookingId"] != "bk" || event.PaymentIntent.FailureMessage == "" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestStubGatewayHonoursIdempotencyKeys(t *testing.T) {
	gateway := NewStubGateway("whsec")
	req := application.PaymentIntentRequest{BookingID: "bk", AmountCents: 100, Currency: "usd", IdempotencyKey: "booking-bk"}

	first, _ := gateway.CreatePaymentIntent(context.Background(), req)
	second, _ := gateway.CreatePaymentIntent(context.Background(), req)

	if first.ID != second.ID || len(gateway.Requests()) != 1 {
		t.Fatalf("expected a single intent, got %q and %q", first.ID, second.ID)
	}
}

type memoryBookings struct {
	bookings map[string]application.Booking
}

func (m *memoryBookings) CreateBooking(ctx context.Context, booking application.Booking) error {
	if m.bookings == nil {
		m.bookings = map[string]application.Booking{}
	}
	m.bookings[booking.ID] = booking
	return nil
}

func (m *memoryBookings) GetBooking(ctx context.Context, id string) (application.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return application.Booking{}, application.ErrNotFound
	}
	return b, nil
}

func (m *memoryBookings) GetBookingByPaymentIntent(ctx context.Context, id, paymentIntentID string) (application.Booking, error) {
	b, err := m.GetBooking(ctx, id)
	if err != nil || b.PaymentIntentID != paymentIntentID {
		return application.Booking{}, application.ErrNotFound
	}
	return b, nil
}

func (m *memoryBookings) TransitionStatus(ctx context.Context, transition application.StatusTransition) (application.Booking, bool, error) {
	b, err := m.GetBooking(ctx, transition.BookingID)
	return b, false, err
}

func (m *memoryBookings) SaveBooking(ctx context.Context, booking application.Booking) error {
	m.bookings[booking.ID] = booking
	return nil
}
