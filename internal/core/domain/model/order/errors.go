package order

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrMissingEvidence   = errors.New("missing evidence")
	ErrEvidenceRejected  = errors.New("evidence rejected")
)

// HandoverRejection explains why a handover code was not accepted.
type HandoverRejection string

const (
	CodeMismatch        HandoverRejection = "CodeMismatch"
	NoCodeIssued        HandoverRejection = "NoCodeIssued"
	AlreadyConsumed     HandoverRejection = "AlreadyConsumed"
	HandoverCodeExpired HandoverRejection = "CodeExpired"
)

// Evidence rejection reasons that are not about handover codes.
const (
	InvalidReasonCode = "InvalidReasonCode"
	InvalidParty      = "InvalidParty"
)

// TransitionError is the typed refusal of a transition request. Kind is one of
// ErrInvalidTransition, ErrMissingEvidence or ErrEvidenceRejected and is what
// errors.Is matches; Reason names the field or the rejection cause.
type TransitionError struct {
	Kind    error
	Action  Action
	From    State
	Reason  string
	Message string
}

func (e *TransitionError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = fmt.Sprintf("cannot %s an order in %s state", e.Action, e.From)
	}
	if e.Reason != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Reason, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *TransitionError) Unwrap() error {
	return e.Kind
}

func invalidTransition(action Action, from State) *TransitionError {
	te := &TransitionError{Kind: ErrInvalidTransition, Action: action, From: from}
	if from.IsTerminal() {
		te.Message = fmt.Sprintf("cannot %s an order that is already %s", action, from)
	}
	return te
}

func missingEvidence(action Action, from State, field, message string) *TransitionError {
	return &TransitionError{Kind: ErrMissingEvidence, Action: action, From: from, Reason: field, Message: message}
}

func evidenceRejected(action Action, from State, reason, message string) *TransitionError {
	return &TransitionError{Kind: ErrEvidenceRejected, Action: action, From: from, Reason: reason, Message: message}
}

// NewHandoverRejectedError builds the EvidenceRejected error for a refused code.
func NewHandoverRejectedError(from State, reason HandoverRejection) *TransitionError {
	messages := map[HandoverRejection]string{
		CodeMismatch:        "OTP does not match",
		NoCodeIssued:        "no handover code has been issued for this order",
		AlreadyConsumed:     "handover code was already used",
		HandoverCodeExpired: "handover code has expired, request a new one",
	}
	return evidenceRejected(ActionConfirmHandover, from, string(reason), messages[reason])
}
