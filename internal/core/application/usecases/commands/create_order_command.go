package commands

import (
	"errors"
	"strings"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/guard"
)

var ErrCreateOrderCommandIsNotConstructed = errors.New(
	"CreateOrderCommand must be created via NewCreateOrderCommand constructor",
)

// CreateOrderCommand registers an order placed on the marketplace. Items are
// the catalog snapshot taken at checkout. RequiresOTP nil means the service
// default applies.
//
// Example:
//
//	item, _ := order.NewItem("wire", 2, kernel.MustMoney("120"))
//	cmd, err := NewCreateOrderCommand(kernel.NewUUID(), "pro-4", []order.Item{item}, nil)
//	if err != nil {
//	    return err
//	}
//	err = handler.Handle(ctx, cmd)
type CreateOrderCommand struct { //nolint:recvcheck //using for validation
	orderID         kernel.UUID
	counterpartyRef string
	items           []order.Item
	requiresOTP     *bool

	guard guard.ConstructorGuard
}

func NewCreateOrderCommand(
	orderID kernel.UUID,
	counterpartyRef string,
	items []order.Item,
	requiresOTP *bool,
) (CreateOrderCommand, error) {
	cmd := CreateOrderCommand{
		requiresOTP: requiresOTP,
		guard:       guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setOrderID(orderID),
		cmd.setCounterpartyRef(counterpartyRef),
		cmd.setItems(items),
	); err != nil {
		return CreateOrderCommand{}, err
	}

	return cmd, nil
}

func (c CreateOrderCommand) Validate() error {
	return c.guard.Validate(ErrCreateOrderCommandIsNotConstructed)
}

func (c CreateOrderCommand) OrderID() kernel.UUID    { return c.orderID }
func (c CreateOrderCommand) CounterpartyRef() string { return c.counterpartyRef }
func (c CreateOrderCommand) Items() []order.Item     { return append([]order.Item(nil), c.items...) }
func (c CreateOrderCommand) RequiresOTP() *bool      { return c.requiresOTP }

func (c *CreateOrderCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}
	c.orderID = orderID
	return nil
}

func (c *CreateOrderCommand) setCounterpartyRef(ref string) error {
	if strings.TrimSpace(ref) == "" {
		return errs.NewValueIsRequiredError("counterpartyRef")
	}
	c.counterpartyRef = ref
	return nil
}

func (c *CreateOrderCommand) setItems(items []order.Item) error {
	if len(items) == 0 {
		return errs.NewValueIsRequiredError("items")
	}
	c.items = append([]order.Item(nil), items...)
	return nil
}
