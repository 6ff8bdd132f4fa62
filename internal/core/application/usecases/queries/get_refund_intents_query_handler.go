package queries

import (
	"context"
	"sort"

	"fulfillment/internal/core/domain/model/ledger"
	"fulfillment/internal/core/ports"
)

type GetRefundIntentsQueryHandler struct {
	readModel ports.OrderReadModel
}

func NewGetRefundIntentsQueryHandler(readModel ports.OrderReadModel) GetRefundIntentsQueryHandler {
	return GetRefundIntentsQueryHandler{readModel: readModel}
}

func (h GetRefundIntentsQueryHandler) Handle(ctx context.Context, query GetRefundIntentsQuery) ([]ledger.RefundIntent, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	intents, err := h.readModel.ListRefundIntents(ctx)
	if err != nil {
		return nil, err
	}
	if intents == nil {
		intents = []ledger.RefundIntent{}
	}
	sort.SliceStable(intents, func(i, j int) bool {
		return intents[i].CreatedAt.After(intents[j].CreatedAt)
	})
	return intents, nil
}
