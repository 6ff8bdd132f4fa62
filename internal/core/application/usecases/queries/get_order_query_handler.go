package queries

import (
	"context"

	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/core/ports"
)

// GetOrderQueryHandler returns errs.ErrObjectNotFound for an unknown id.
type GetOrderQueryHandler struct {
	readModel ports.OrderReadModel
}

func NewGetOrderQueryHandler(readModel ports.OrderReadModel) GetOrderQueryHandler {
	return GetOrderQueryHandler{readModel: readModel}
}

func (h GetOrderQueryHandler) Handle(ctx context.Context, query GetOrderQuery) (*order.Order, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	return h.readModel.GetOrder(ctx, query.OrderID())
}
