package order

import (
	"fmt"

	"fulfillment/internal/pkg/errs"
)

// State is the lifecycle position of an order.
//
// Transitions:
//
//	New ──accept──> Accepted ──pack──> Processing ──markReady──> ReadyForPickup ──handover──> Completed
//	 │                 │                   │                          │
//	 ├──reject──┐      └───────────────────┴────────cancel────────────┴──────────> Cancelled
//	 └──cancel──┴────────────────────────────────────────────────────────────────> Cancelled
//
// Completed and Cancelled are terminal.
type State int

const (
	// Unknown catches uninitialized values.
	Unknown State = iota
	New
	Accepted
	Processing
	ReadyForPickup
	Completed
	Cancelled
)

var stateNames = map[State]string{
	New:            "New",
	Accepted:       "Accepted",
	Processing:     "Processing",
	ReadyForPickup: "ReadyForPickup",
	Completed:      "Completed",
	Cancelled:      "Cancelled",
}

// AllStates lists the valid states in lifecycle order, which is also the
// order of the operator board tabs.
func AllStates() []State {
	return []State{New, Accepted, Processing, ReadyForPickup, Completed, Cancelled}
}

// ParseState maps a state name back to its value.
func ParseState(s string) (State, error) {
	for state, name := range stateNames {
		if name == s {
			return state, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("state is invalid", fmt.Errorf("%q is not a known state", s))
}

// Validate rejects Unknown and out-of-range values.
func (s State) Validate() error {
	if _, ok := stateNames[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("state is invalid", fmt.Errorf("%d is not a valid state", s))
	}
	return nil
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// IsTerminal reports whether no further transitions are possible.
func (s State) IsTerminal() bool {
	return s == Completed || s == Cancelled
}

// Accept moves New to Accepted.
func (s State) Accept() (State, error) {
	if s != New {
		return Unknown, invalidTransition(ActionAccept, s)
	}
	return Accepted, nil
}

// Pack moves Accepted to Processing.
func (s State) Pack() (State, error) {
	if s != Accepted {
		return Unknown, invalidTransition(ActionPack, s)
	}
	return Processing, nil
}

// MarkReady moves Processing to ReadyForPickup.
func (s State) MarkReady() (State, error) {
	if s != Processing {
		return Unknown, invalidTransition(ActionMarkReady, s)
	}
	return ReadyForPickup, nil
}

// Handover moves ReadyForPickup to Completed.
func (s State) Handover() (State, error) {
	if s != ReadyForPickup {
		return Unknown, invalidTransition(ActionConfirmHandover, s)
	}
	return Completed, nil
}

// Reject ends an order that was never accepted.
// Accepted work must be cancelled instead, since the counterparty already committed to it.
func (s State) Reject() (State, error) {
	switch s {
	case New:
		return Cancelled, nil
	case Accepted, Processing, ReadyForPickup:
		return Unknown, &TransitionError{
			Kind:    ErrInvalidTransition,
			Action:  ActionReject,
			From:    s,
			Message: "cannot reject an order that was already accepted, cancel it instead",
		}
	default:
		return Unknown, invalidTransition(ActionReject, s)
	}
}

// Cancel ends any non-terminal order.
func (s State) Cancel() (State, error) {
	if s.Validate() != nil || s.IsTerminal() {
		return Unknown, invalidTransition(ActionCancel, s)
	}
	return Cancelled, nil
}

// Next dispatches an action to its transition.
func (s State) Next(action Action) (State, error) {
	switch action {
	case ActionAccept:
		return s.Accept()
	case ActionReject:
		return s.Reject()
	case ActionPack:
		return s.Pack()
	case ActionMarkReady:
		return s.MarkReady()
	case ActionConfirmHandover:
		return s.Handover()
	case ActionCancel:
		return s.Cancel()
	default:
		return Unknown, action.Validate()
	}
}
