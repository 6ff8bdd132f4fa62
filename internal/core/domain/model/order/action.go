package order

import (
	"fmt"

	"fulfillment/internal/pkg/errs"
)

// Action is a transition request verb.
type Action string

const (
	ActionAccept          Action = "Accept"
	ActionReject          Action = "Reject"
	ActionPack            Action = "Pack"
	ActionMarkReady       Action = "MarkReady"
	ActionConfirmHandover Action = "ConfirmHandover"
	ActionCancel          Action = "Cancel"
)

// AllActions lists the closed action set.
func AllActions() []Action {
	return []Action{ActionAccept, ActionReject, ActionPack, ActionMarkReady, ActionConfirmHandover, ActionCancel}
}

// ParseAction validates a wire value.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if err := a.Validate(); err != nil {
		return "", err
	}
	return a, nil
}

func (a Action) Validate() error {
	for _, known := range AllActions() {
		if a == known {
			return nil
		}
	}
	return errs.NewValueIsInvalidErrorWithCause("action is invalid", fmt.Errorf("%q is not a known action", string(a)))
}

func (a Action) String() string {
	return string(a)
}
