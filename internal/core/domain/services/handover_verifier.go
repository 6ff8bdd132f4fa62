package services

import "fulfillment/internal/core/domain/model/order"

// HandoverVerifier checks a supplied code against an order's handover code.
//
// Outcomes:
//   - nil: verified; the caller consumes the code in the same step
//   - NoCodeIssued: the order has no code
//   - AlreadyConsumed: the code was used or discarded with the order
//   - HandoverCodeExpired: the expiry job discarded the code
//   - CodeMismatch: the code is active but differs
type HandoverVerifier struct{}

func NewHandoverVerifier() HandoverVerifier {
	return HandoverVerifier{}
}

// Verify returns nil or an order.TransitionError wrapping order.ErrEvidenceRejected.
func (HandoverVerifier) Verify(from order.State, code *order.HandoverCode, supplied string) error {
	if code == nil {
		return order.NewHandoverRejectedError(from, order.NoCodeIssued)
	}

	switch code.Status() {
	case order.CodeConsumed, order.CodeRevoked:
		return order.NewHandoverRejectedError(from, order.AlreadyConsumed)
	case order.CodeExpired:
		return order.NewHandoverRejectedError(from, order.HandoverCodeExpired)
	case order.CodeActive:
	default:
		return order.NewHandoverRejectedError(from, order.NoCodeIssued)
	}

	if !code.Matches(supplied) {
		return order.NewHandoverRejectedError(from, order.CodeMismatch)
	}
	return nil
}
