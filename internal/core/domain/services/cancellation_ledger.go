package services

import (
	"errors"
	"fmt"
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/ledger"
	"fulfillment/internal/core/domain/model/order"
)

// ErrOrderIsNotCancelled is returned when the ledger is asked about a live order.
var ErrOrderIsNotCancelled = errors.New("order is not cancelled")

// CancellationLedger computes the ledger entry for a cancelled order.
//
// Refund rules:
//   - ended from New (a rejection, or a cancel before acceptance): no refund,
//     nothing was captured against accepted work
//   - cancelled from Accepted, Processing or ReadyForPickup: refund of the full
//     total amount, flagged for the payment collaborator
type CancellationLedger struct{}

func NewCancellationLedger() CancellationLedger {
	return CancellationLedger{}
}

// Record returns the entry and, when one is owed, the refund intent.
func (CancellationLedger) Record(o *order.Order, at time.Time) (ledger.Entry, *ledger.RefundIntent, error) {
	if err := o.Validate(); err != nil {
		return ledger.Entry{}, nil, err
	}
	c := o.Cancellation()
	if o.State() != order.Cancelled || c == nil {
		return ledger.Entry{}, nil, fmt.Errorf("%w: %s is %s", ErrOrderIsNotCancelled, o.ID(), o.State())
	}

	eligible := IsRefundEligible(c.Kind, c.From)
	amount := kernel.Zero
	if eligible {
		amount = o.TotalAmount()
	}

	entry, err := ledger.NewEntry(
		o.ID(), c.Kind, c.From, c.CancelledBy, c.RejectionReason, c.Reason, eligible, amount, at,
	)
	if err != nil {
		return ledger.Entry{}, nil, err
	}

	if intent, ok := entry.RefundIntent(); ok {
		return entry, &intent, nil
	}
	return entry, nil, nil
}

// IsRefundEligible applies the refund rule to how and from where an order ended.
func IsRefundEligible(kind order.CancellationKind, from order.State) bool {
	if kind != order.KindCancelled {
		return false
	}
	switch from {
	case order.Accepted, order.Processing, order.ReadyForPickup:
		return true
	default:
		return false
	}
}
