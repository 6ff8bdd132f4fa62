package ports

import (
	"context"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/ledger"
)

// CancellationRepository stores one ledger entry per cancelled order.
type CancellationRepository interface {
	// Add fails if the order already has an entry.
	Add(ctx context.Context, entry ledger.Entry) error
	Get(ctx context.Context, orderID kernel.UUID) (ledger.Entry, error)
}
