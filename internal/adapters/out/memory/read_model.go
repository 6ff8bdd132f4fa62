package memory

import (
	"context"
	"sort"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/ledger"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/core/ports"
	"fulfillment/internal/pkg/errs"
)

type OrderReadModel struct {
	store *Store
}

func NewOrderReadModel(store *Store) *OrderReadModel {
	return &OrderReadModel{store: store}
}

var _ ports.OrderReadModel = (*OrderReadModel)(nil)

func (r *OrderReadModel) ListSummaries(_ context.Context) ([]ports.OrderSummary, error) {
	snaps := r.store.orderSnapshots()
	summaries := make([]ports.OrderSummary, 0, len(snaps))
	for _, snap := range snaps {
		o, err := order.Restore(snap)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, ports.OrderSummary{
			ID:              o.ID(),
			CounterpartyRef: o.CounterpartyRef(),
			State:           o.State(),
			TotalAmount:     o.TotalAmount(),
			RequiresOTP:     o.RequiresOTPHandover(),
			CreatedAt:       o.CreatedAt(),
			UpdatedAt:       o.UpdatedAt(),
		})
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

func (r *OrderReadModel) GetOrder(_ context.Context, id kernel.UUID) (*order.Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	snap, ok := r.store.order(id.String())
	if !ok {
		return nil, errs.NewObjectNotFoundError("order", id.String())
	}
	return order.Restore(snap)
}

func (r *OrderReadModel) ListRefundIntents(_ context.Context) ([]ledger.RefundIntent, error) {
	intents := make([]ledger.RefundIntent, 0)
	for _, entry := range r.store.cancellationEntries() {
		if intent, ok := entry.RefundIntent(); ok {
			intents = append(intents, intent)
		}
	}
	sort.SliceStable(intents, func(i, j int) bool {
		return intents[i].CreatedAt.After(intents[j].CreatedAt)
	})
	return intents, nil
}
