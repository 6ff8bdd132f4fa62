package commands

import (
	"errors"
	"math"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/guard"
)

var ErrRequestTransitionCommandIsNotConstructed = errors.New(
	"RequestTransitionCommand must be created via NewRequestTransitionCommand constructor",
)

// RequestTransitionCommand asks for one lifecycle transition of one order.
// Whether the evidence is sufficient is decided by the order's guards, not here.
//
// Example:
//
//	actor, _ := order.NewActor("shop-17", order.PartyShop)
//	cmd, err := NewRequestTransitionCommand(orderID, order.ActionReject, actor,
//	    order.Evidence{RejectionReason: order.ReasonOutOfStock})
type RequestTransitionCommand struct { //nolint:recvcheck //using for validation
	orderID  kernel.UUID
	action   order.Action
	actor    order.Actor
	evidence order.Evidence
	// expectedVersion is the version the caller last saw; 0 means unconditional.
	expectedVersion int64

	guard guard.ConstructorGuard
}

func NewRequestTransitionCommand(
	orderID kernel.UUID,
	action order.Action,
	actor order.Actor,
	evidence order.Evidence,
) (RequestTransitionCommand, error) {
	cmd := RequestTransitionCommand{
		evidence: evidence,
		guard:    guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setOrderID(orderID),
		cmd.setAction(action),
		cmd.setActor(actor),
	); err != nil {
		return RequestTransitionCommand{}, err
	}

	return cmd, nil
}

func (c RequestTransitionCommand) Validate() error {
	return c.guard.Validate(ErrRequestTransitionCommandIsNotConstructed)
}

func (c RequestTransitionCommand) OrderID() kernel.UUID     { return c.orderID }
func (c RequestTransitionCommand) Action() order.Action     { return c.action }
func (c RequestTransitionCommand) Actor() order.Actor       { return c.actor }
func (c RequestTransitionCommand) Evidence() order.Evidence { return c.evidence }
func (c RequestTransitionCommand) ExpectedVersion() int64   { return c.expectedVersion }

// WithExpectedVersion makes the transition conditional on the order still
// being at version v when it is loaded. Two callers acting on the same view of
// an order then cannot both succeed.
func (c RequestTransitionCommand) WithExpectedVersion(v int64) (RequestTransitionCommand, error) {
	if v < 0 {
		return RequestTransitionCommand{}, errs.NewValueIsOutOfRangeError("expectedVersion", v, 0, int64(math.MaxInt64))
	}
	c.expectedVersion = v
	return c, nil
}

func (c *RequestTransitionCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}
	c.orderID = orderID
	return nil
}

func (c *RequestTransitionCommand) setAction(action order.Action) error {
	if err := action.Validate(); err != nil {
		return err
	}
	c.action = action
	return nil
}

func (c *RequestTransitionCommand) setActor(actor order.Actor) error {
	if actor.ID() == "" || !actor.Party().IsKnown() {
		return errs.NewValueIsRequiredError("actor")
	}
	c.actor = actor
	return nil
}
