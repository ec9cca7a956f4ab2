package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/salon-booking/internal/application"
)

func sampleEvent() application.BookingEvent {
	return application.BookingEvent{
		Type:            application.EventBookingConfirmed,
		BookingID:       "b-1",
		Channel:         application.ChannelOnlinePayment,
		PaymentStatus:   application.PaymentStatusSucceeded,
		PaymentIntentID: "pi_1",
		AmountCents:     5000,
		Currency:        "usd",
		OccurredAt:      time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestBuildPublishing(t *testing.T) {
	t.Parallel()

	msg, err := buildPublishing(sampleEvent())
	require.NoError(t, err)

	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "booking.confirmed:b-1", msg.MessageId)
	assert.Equal(t, "booking.confirmed", msg.Type)

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Body, &body))
	assert.Equal(t, "b-1", body["bookingId"])
	assert.Equal(t, "succeeded", body["paymentStatus"])
	assert.Equal(t, "pi_1", body["paymentIntentId"])
	assert.EqualValues(t, 5000, body["amount"])
}

func TestBuildPublishing_OmitsEmptyIntent(t *testing.T) {
	t.Parallel()

	event := sampleEvent()
	event.Type = application.EventBookingCreated
	event.Channel = application.ChannelDirect
	event.PaymentIntentID = ""

	msg, err := buildPublishing(event)
	require.NoError(t, err)
	assert.NotContains(t, string(msg.Body), "paymentIntentId")
}

func TestPublisher_RoundTrip(t *testing.T) {
	url := os.Getenv("SALON_TEST_RABBIT_URL")
	if url == "" {
		t.Skip("SALON_TEST_RABBIT_URL not set")
	}

	exchange := fmt.Sprintf("salon.test.%d", time.Now().UnixNano())
	pub, err := NewPublisher(url, exchange)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })

	conn, err := amqp.Dial(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	ch, err := conn.Channel()
	require.NoError(t, err)

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, "booking.*", exchange, false, nil))
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, pub.Publish(ctx, sampleEvent()))

	select {
	case d := <-deliveries:
		assert.Equal(t, "booking.confirmed", d.RoutingKey)
	case <-ctx.Done():
		t.Fatal("timed out waiting for delivery")
	}
}
