package ports

import (
	"context"
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/ledger"
	"fulfillment/internal/core/domain/model/order"
)

// OrderSummary is one card on the operator board.
type OrderSummary struct {
	ID              kernel.UUID
	CounterpartyRef string
	State           order.State
	TotalAmount     kernel.Money
	RequiresOTP     bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderReadModel answers queries from committed data only.
type OrderReadModel interface {
	ListSummaries(ctx context.Context) ([]OrderSummary, error)
	GetOrder(ctx context.Context, id kernel.UUID) (*order.Order, error)
	ListRefundIntents(ctx context.Context) ([]ledger.RefundIntent, error)
}
