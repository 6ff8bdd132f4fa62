// Package ledger holds the cancellation facts and refund intents produced when
// an order ends in Cancelled. Entries are written once per order and never
// updated; refund intents are handed to the payment collaborator and never
// executed here.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/pkg/errs"
)

var ErrEntryIsNotConstructed = errors.New("Entry must be created via NewEntry constructor")

// Entry records who ended an order, from which state, why, and what refund is owed.
type Entry struct {
	orderID         kernel.UUID
	kind            order.CancellationKind
	from            order.State
	cancelledBy     order.Party
	rejectionReason order.RejectionReason
	reason          string
	refundEligible  bool
	refundAmount    kernel.Money
	recordedAt      time.Time
	isConstructed   bool
}

// NewEntry validates the facts of a cancellation. A refund is only allowed for
// cancelled (not rejected) orders.
func NewEntry(
	orderID kernel.UUID,
	kind order.CancellationKind,
	from order.State,
	cancelledBy order.Party,
	rejectionReason order.RejectionReason,
	reason string,
	refundEligible bool,
	refundAmount kernel.Money,
	recordedAt time.Time,
) (Entry, error) {
	if err := orderID.Validate(); err != nil {
		return Entry{}, err
	}
	if kind != order.KindRejected && kind != order.KindCancelled {
		return Entry{}, errs.NewValueIsInvalidErrorWithCause("cancellation kind", fmt.Errorf("%q", kind))
	}
	if err := from.Validate(); err != nil {
		return Entry{}, err
	}
	if !cancelledBy.IsKnown() {
		return Entry{}, errs.NewValueIsInvalidErrorWithCause("cancelledBy", fmt.Errorf("%q", cancelledBy))
	}
	if refundEligible && kind == order.KindRejected {
		return Entry{}, errs.NewValueIsInvalidErrorWithCause("refundEligible", errors.New("rejected orders are never refunded"))
	}
	if !refundEligible {
		refundAmount = kernel.Zero
	}
	return Entry{
		orderID:         orderID,
		kind:            kind,
		from:            from,
		cancelledBy:     cancelledBy,
		rejectionReason: rejectionReason,
		reason:          reason,
		refundEligible:  refundEligible,
		refundAmount:    refundAmount,
		recordedAt:      recordedAt,
		isConstructed:   true,
	}, nil
}

func (e Entry) Validate() error {
	if !e.isConstructed {
		return ErrEntryIsNotConstructed
	}
	return nil
}

func (e Entry) OrderID() kernel.UUID                   { return e.orderID }
func (e Entry) Kind() order.CancellationKind           { return e.kind }
func (e Entry) From() order.State                      { return e.from }
func (e Entry) CancelledBy() order.Party               { return e.cancelledBy }
func (e Entry) RejectionReason() order.RejectionReason { return e.rejectionReason }
func (e Entry) Reason() string                         { return e.reason }
func (e Entry) RefundEligible() bool                   { return e.refundEligible }
func (e Entry) RefundAmount() kernel.Money             { return e.refundAmount }
func (e Entry) RecordedAt() time.Time                  { return e.recordedAt }

// RefundIntent is the instruction handed to the payment collaborator.
type RefundIntent struct {
	OrderID     kernel.UUID
	Amount      kernel.Money
	Reason      string
	CancelledBy order.Party
	CreatedAt   time.Time
}

// RefundIntent derives the intent from an eligible entry.
func (e Entry) RefundIntent() (RefundIntent, bool) {
	if !e.refundEligible {
		return RefundIntent{}, false
	}
	return RefundIntent{
		OrderID:     e.orderID,
		Amount:      e.refundAmount,
		Reason:      e.reason,
		CancelledBy: e.cancelledBy,
		CreatedAt:   e.recordedAt,
	}, true
}
