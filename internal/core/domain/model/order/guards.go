package order

import "strings"

// Guards decide whether an action is legal from a state with the supplied
// evidence. They do no I/O and never mutate anything; state is always checked
// before evidence, so replaying an applied request yields ErrInvalidTransition.

// GuardAccept allows accepting a New order.
func GuardAccept(s State, _ Evidence) error {
	_, err := s.Accept()
	return err
}

// GuardPack allows packing an Accepted order.
func GuardPack(s State, _ Evidence) error {
	_, err := s.Pack()
	return err
}

// GuardMarkReady allows marking a Processing order ready.
func GuardMarkReady(s State, _ Evidence) error {
	_, err := s.MarkReady()
	return err
}

// GuardReject allows rejecting a New order with a reason from the closed
// vocabulary; Other needs a non-blank note.
func GuardReject(s State, ev Evidence) error {
	if _, err := s.Reject(); err != nil {
		return err
	}
	if ev.RejectionReason == "" {
		return missingEvidence(ActionReject, s, "rejectionReason", "a rejection reason is required")
	}
	if !ev.RejectionReason.IsKnown() {
		return evidenceRejected(ActionReject, s, InvalidReasonCode,
			"rejection reason must be one of OutOfStock, WrongQuantity, CannotFulfill or Other")
	}
	if ev.RejectionReason == ReasonOther && strings.TrimSpace(ev.RejectionNote) == "" {
		return missingEvidence(ActionReject, s, "rejectionNote", "reason Other needs a description")
	}
	return nil
}

// GuardCancel allows cancelling a non-terminal order when the cancelling
// party and a non-blank reason are given.
func GuardCancel(s State, ev Evidence) error {
	if _, err := s.Cancel(); err != nil {
		return err
	}
	if ev.CancelledBy == "" {
		return missingEvidence(ActionCancel, s, "cancelledBy", "the cancelling party is required")
	}
	if !ev.CancelledBy.IsKnown() {
		return evidenceRejected(ActionCancel, s, InvalidParty,
			"cancelling party must be one of Shop, Professional, Customer or System")
	}
	if strings.TrimSpace(ev.CancellationReason) == "" {
		return missingEvidence(ActionCancel, s, "cancellationReason", "a cancellation reason is required")
	}
	return nil
}

// GuardConfirmHandover allows completing a ReadyForPickup order. When the
// order requires OTP handover the code must be supplied; checking it is the
// HandoverVerification's job.
func GuardConfirmHandover(s State, ev Evidence, requiresOTP bool) error {
	if _, err := s.Handover(); err != nil {
		return err
	}
	if requiresOTP && strings.TrimSpace(ev.OTP) == "" {
		return missingEvidence(ActionConfirmHandover, s, "otp", "this order requires the handover code")
	}
	return nil
}

// CheckTransition runs the guard for action.
func CheckTransition(action Action, s State, ev Evidence, requiresOTP bool) error {
	switch action {
	case ActionAccept:
		return GuardAccept(s, ev)
	case ActionReject:
		return GuardReject(s, ev)
	case ActionPack:
		return GuardPack(s, ev)
	case ActionMarkReady:
		return GuardMarkReady(s, ev)
	case ActionConfirmHandover:
		return GuardConfirmHandover(s, ev, requiresOTP)
	case ActionCancel:
		return GuardCancel(s, ev)
	default:
		return action.Validate()
	}
}
