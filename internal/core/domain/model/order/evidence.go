package order

import (
	"fmt"
	"strings"

	"fulfillment/internal/pkg/errs"
)

// RejectionReason is the closed vocabulary a shop picks from when rejecting a new order.
type RejectionReason string

const (
	ReasonOutOfStock    RejectionReason = "OutOfStock"
	ReasonWrongQuantity RejectionReason = "WrongQuantity"
	ReasonCannotFulfill RejectionReason = "CannotFulfill"
	// ReasonOther requires a free-text note.
	ReasonOther RejectionReason = "Other"
)

func (r RejectionReason) IsKnown() bool {
	switch r {
	case ReasonOutOfStock, ReasonWrongQuantity, ReasonCannotFulfill, ReasonOther:
		return true
	default:
		return false
	}
}

// Party identifies which side of the marketplace acted.
type Party string

const (
	PartyShop         Party = "Shop"
	PartyProfessional Party = "Professional"
	PartyCustomer     Party = "Customer"
	PartySystem       Party = "System"
)

func (p Party) IsKnown() bool {
	switch p {
	case PartyShop, PartyProfessional, PartyCustomer, PartySystem:
		return true
	default:
		return false
	}
}

// Actor is whoever submitted a transition request.
type Actor struct {
	id    string
	party Party
}

// NewActor requires a non-blank id and a known party.
func NewActor(id string, party Party) (Actor, error) {
	if strings.TrimSpace(id) == "" {
		return Actor{}, errs.NewValueIsRequiredError("actor id")
	}
	if !party.IsKnown() {
		return Actor{}, errs.NewValueIsInvalidErrorWithCause("actor party", fmt.Errorf("%q is not a known party", string(party)))
	}
	return Actor{id: id, party: party}, nil
}

// SystemActor is used by scheduled jobs.
func SystemActor(id string) Actor {
	return Actor{id: id, party: PartySystem}
}

func (a Actor) ID() string   { return a.id }
func (a Actor) Party() Party { return a.party }

func (a Actor) String() string {
	return string(a.party) + ":" + a.id
}

// Evidence carries what a transition needs to be authorized. Which fields
// matter depends on the action:
//   - Reject: RejectionReason, plus RejectionNote when the reason is Other
//   - Cancel: CancelledBy and CancellationReason
//   - ConfirmHandover: OTP when the order requires OTP handover
//   - MarkReady: RequireOTP optionally overrides the order's handover setting
type Evidence struct {
	RejectionReason    RejectionReason
	RejectionNote      string
	CancelledBy        Party
	CancellationReason string
	OTP                string
	RequireOTP         *bool
}

// Ref is the audit description of the evidence. The OTP never appears; the
// handover entry is described by the order itself.
func (e Evidence) Ref(action Action) string {
	switch action {
	case ActionReject:
		if e.RejectionReason == ReasonOther {
			return fmt.Sprintf("reason=%s note=%q", e.RejectionReason, e.RejectionNote)
		}
		return "reason=" + string(e.RejectionReason)
	case ActionCancel:
		return fmt.Sprintf("cancelledBy=%s reason=%q", e.CancelledBy, e.CancellationReason)
	case ActionMarkReady:
		if e.RequireOTP != nil {
			return fmt.Sprintf("requireOtp=%t", *e.RequireOTP)
		}
		return ""
	default:
		return ""
	}
}
