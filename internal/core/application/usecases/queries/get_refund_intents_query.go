package queries

import (
	"errors"

	"fulfillment/internal/pkg/guard"
)

var ErrGetRefundIntentsQueryIsNotConstructed = errors.New(
	"GetRefundIntentsQuery must be created via NewGetRefundIntentsQuery constructor",
)

// GetRefundIntentsQuery lists refund intents recorded for cancelled orders,
// newest first.
type GetRefundIntentsQuery struct {
	guard guard.ConstructorGuard
}

func NewGetRefundIntentsQuery() GetRefundIntentsQuery {
	return GetRefundIntentsQuery{guard: guard.NewConstructorGuard()}
}

func (q GetRefundIntentsQuery) Validate() error {
	return q.guard.Validate(ErrGetRefundIntentsQueryIsNotConstructed)
}
