// Package events publishes booking lifecycle events to a RabbitMQ topic exchange.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/salon-booking/internal/application"
)

// Publisher implements application.EventPublisher.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

var _ application.EventPublisher = (*Publisher)(nil)

// NewPublisher dials url and declares a durable topic exchange.
func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// Publish sends event with its type as the routing key. Channels are not
// safe for concurrent publishing, hence the mutex.
func (p *Publisher) Publish(ctx context.Context, event application.BookingEvent) error {
	msg, err := buildPublishing(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, p.exchange, event.Type, false, false, msg); err != nil {
		return application.NewError(application.KindCollaboratorFailure, "events.Publish", "publish "+event.Type, err)
	}
	return nil
}

// Close closes the channel and connection.
func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

type bookingEventBody struct {
	Type            string    `json:"type"`
	BookingID       string    `json:"bookingId"`
	Channel         string    `json:"channel"`
	PaymentStatus   string    `json:"paymentStatus"`
	PaymentIntentID string    `json:"paymentIntentId,omitempty"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency,omitempty"`
	OccurredAt      time.Time `json:"occurredAt"`
}

func buildPublishing(event application.BookingEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(bookingEventBody{
		Type:            event.Type,
		BookingID:       event.BookingID,
		Channel:         string(event.Channel),
		PaymentStatus:   string(event.PaymentStatus),
		PaymentIntentID: event.PaymentIntentID,
		Amount:          event.AmountCents,
		Currency:        event.Currency,
		OccurredAt:      event.OccurredAt.UTC(),
	})
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.Type + ":" + event.BookingID,
		Timestamp:    event.OccurredAt.UTC(),
		Type:         event.Type,
		Body:         body,
	}, nil
}
