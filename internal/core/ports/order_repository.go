// Package ports defines the contracts between the fulfillment core and its
// adapters: persistence, the read side, and event publishing.
package ports

import (
	"context"
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
)

// OrderRepository is the write-side store of order aggregates. The state
// machine is its only writer.
type OrderRepository interface {
	// Add persists a new order together with its items.
	Add(ctx context.Context, aggregate *order.Order) error

	// Update persists a changed order and its new audit entries. It fails with
	// errs.ErrConcurrentModification when the stored version is no longer the
	// one the order was loaded at.
	Update(ctx context.Context, aggregate *order.Order) error

	// Get loads an order with its audit trail. Inside a transaction the row
	// stays locked until commit or rollback. Returns errs.ErrObjectNotFound
	// for an unknown id.
	Get(ctx context.Context, id kernel.UUID) (*order.Order, error)

	// GetAllWithActiveCodeIssuedBefore returns ReadyForPickup orders whose
	// handover code is still active and was issued before the given instant.
	GetAllWithActiveCodeIssuedBefore(ctx context.Context, before time.Time) ([]*order.Order, error)
}
