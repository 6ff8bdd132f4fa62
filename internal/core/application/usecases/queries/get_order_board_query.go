// Package queries contains the read side: projections over committed orders.
// Nothing here writes, and nothing is cached; every call reads the store.
package queries

import (
	"errors"

	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/core/ports"
	"fulfillment/internal/pkg/guard"
)

var ErrGetOrderBoardQueryIsNotConstructed = errors.New(
	"GetOrderBoardQuery must be created via NewGetOrderBoardQuery constructor",
)

// GetOrderBoardQuery builds the operator board: one tab per lifecycle state.
//
// Example:
//
//	board, err := handler.Handle(ctx, NewGetOrderBoardQuery())
//	for _, tab := range board.Tabs {
//	    fmt.Printf("%s (%d)\n", tab.State, tab.Count)
//	}
type GetOrderBoardQuery struct {
	guard guard.ConstructorGuard
}

func NewGetOrderBoardQuery() GetOrderBoardQuery {
	return GetOrderBoardQuery{guard: guard.NewConstructorGuard()}
}

func (q GetOrderBoardQuery) Validate() error {
	return q.guard.Validate(ErrGetOrderBoardQueryIsNotConstructed)
}

// BoardTab groups the orders of one state, most recently updated first.
type BoardTab struct {
	State  order.State
	Count  int
	Orders []ports.OrderSummary
}

// GetOrderBoardQueryResponse always has one tab per state, in lifecycle
// order, including empty ones.
type GetOrderBoardQueryResponse struct {
	Tabs  []BoardTab
	Total int
}
