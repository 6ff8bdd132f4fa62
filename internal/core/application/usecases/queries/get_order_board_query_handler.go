package queries

import (
	"context"
	"sort"

	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/core/ports"
)

type GetOrderBoardQueryHandler struct {
	readModel ports.OrderReadModel
}

func NewGetOrderBoardQueryHandler(readModel ports.OrderReadModel) GetOrderBoardQueryHandler {
	return GetOrderBoardQueryHandler{readModel: readModel}
}

func (h GetOrderBoardQueryHandler) Handle(ctx context.Context, query GetOrderBoardQuery) (GetOrderBoardQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return GetOrderBoardQueryResponse{}, err
	}

	summaries, err := h.readModel.ListSummaries(ctx)
	if err != nil {
		return GetOrderBoardQueryResponse{}, err
	}

	byState := make(map[order.State][]ports.OrderSummary, len(order.AllStates()))
	for _, s := range summaries {
		byState[s.State] = append(byState[s.State], s)
	}

	response := GetOrderBoardQueryResponse{
		Tabs:  make([]BoardTab, 0, len(order.AllStates())),
		Total: len(summaries),
	}
	for _, state := range order.AllStates() {
		orders := byState[state]
		if orders == nil {
			orders = []ports.OrderSummary{}
		}
		sort.SliceStable(orders, func(i, j int) bool {
			return orders[i].UpdatedAt.After(orders[j].UpdatedAt)
		})
		response.Tabs = append(response.Tabs, BoardTab{State: state, Count: len(orders), Orders: orders})
	}

	return response, nil
}
