package ports

import (
	"context"

	"fulfillment/internal/pkg/outbox"
)

// OutboxRepository writes events in the caller's transaction and hands
// pending ones to the relay.
type OutboxRepository interface {
	Add(ctx context.Context, events ...outbox.Event) error

	// LockPending returns up to limit pending events in insertion order. Rows
	// locked by another relay are skipped.
	LockPending(ctx context.Context, limit int) ([]outbox.Event, error)

	MarkSent(ctx context.Context, ids []int64) error

	// MarkFailed records the error and bumps the retry count; after
	// outbox.MaxAttempts the event is parked as failed.
	MarkFailed(ctx context.Context, id int64, reason string) error
}

// EventPublisher delivers one event to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, event outbox.Event) error
}
