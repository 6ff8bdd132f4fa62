package order

import (
	"fmt"
	"strings"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/errs"
)

// Item is one catalog line captured when the order was placed.
type Item struct {
	productRef string
	quantity   int
	unitPrice  kernel.Money
}

// NewItem validates a line: a product reference and a positive quantity.
// Money is already non-negative by construction.
func NewItem(productRef string, quantity int, unitPrice kernel.Money) (Item, error) {
	if strings.TrimSpace(productRef) == "" {
		return Item{}, errs.NewValueIsRequiredError("productRef")
	}
	if quantity <= 0 {
		return Item{}, errs.NewValueIsInvalidErrorWithCause("quantity is invalid", fmt.Errorf("%d is not greater than 0", quantity))
	}
	return Item{productRef: productRef, quantity: quantity, unitPrice: unitPrice}, nil
}

func (i Item) ProductRef() string      { return i.productRef }
func (i Item) Quantity() int           { return i.quantity }
func (i Item) UnitPrice() kernel.Money { return i.unitPrice }

// Subtotal is quantity × unit price.
func (i Item) Subtotal() kernel.Money {
	return i.unitPrice.Times(i.quantity)
}
