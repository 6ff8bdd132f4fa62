package commands

import (
	"errors"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/guard"
)

var ErrReissueHandoverCodeCommandIsNotConstructed = errors.New(
	"ReissueHandoverCodeCommand must be created via NewReissueHandoverCodeCommand constructor",
)

// ReissueHandoverCodeCommand replaces an expired handover code of an order
// that is still waiting for pickup.
type ReissueHandoverCodeCommand struct { //nolint:recvcheck //using for validation
	orderID kernel.UUID
	actor   order.Actor

	guard guard.ConstructorGuard
}

func NewReissueHandoverCodeCommand(orderID kernel.UUID, actor order.Actor) (ReissueHandoverCodeCommand, error) {
	if err := orderID.Validate(); err != nil {
		return ReissueHandoverCodeCommand{}, err
	}
	if actor.ID() == "" || !actor.Party().IsKnown() {
		return ReissueHandoverCodeCommand{}, errs.NewValueIsRequiredError("actor")
	}
	return ReissueHandoverCodeCommand{
		orderID: orderID,
		actor:   actor,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

func (c ReissueHandoverCodeCommand) Validate() error {
	return c.guard.Validate(ErrReissueHandoverCodeCommandIsNotConstructed)
}

func (c ReissueHandoverCodeCommand) OrderID() kernel.UUID { return c.orderID }
func (c ReissueHandoverCodeCommand) Actor() order.Actor   { return c.actor }
