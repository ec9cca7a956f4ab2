// Package cache keeps a Redis ledger of processed webhook events.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/salon-booking/internal/application"
)

const keyPrefix = "salon:webhook-event:"

// EventLedger implements application.EventLedger on Redis.
type EventLedger struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ application.EventLedger = (*EventLedger)(nil)

// Open parses a redis:// URL and verifies connectivity.
func Open(ctx context.Context, url string, ttl time.Duration) (*EventLedger, *redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewEventLedger(client, ttl), client, nil
}

// NewEventLedger wraps client. Entries expire after ttl (72h when unset).
func NewEventLedger(client redis.UniversalClient, ttl time.Duration) *EventLedger {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &EventLedger{client: client, ttl: ttl}
}

// Seen reports whether eventID was recorded as processed.
func (l *EventLedger) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := l.client.Exists(ctx, keyPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("lookup event %s: %w", eventID, err)
	}
	return n > 0, nil
}

// MarkProcessed records eventID. Recording an existing entry is not an error.
func (l *EventLedger) MarkProcessed(ctx context.Context, eventID string) error {
	if err := l.client.SetNX(ctx, keyPrefix+eventID, "processed", l.ttl).Err(); err != nil {
		return fmt.Errorf("record event %s: %w", eventID, err)
	}
	return nil
}
