package order_test

import (
	"errors"
	"testing"

	"fulfillment/internal/core/domain/model/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireTransitionError(t *testing.T, err error, kind error, reason string) {
	t.Helper()
	require.ErrorIs(t, err, kind)
	var te *order.TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, reason, te.Reason)
}

func TestGuardReject(t *testing.T) {
	tests := []struct {
		name   string
		state  order.State
		ev     order.Evidence
		kind   error
		reason string
	}{
		{"known reason", order.New, order.Evidence{RejectionReason: order.ReasonOutOfStock}, nil, ""},
		{"other with note", order.New, order.Evidence{RejectionReason: order.ReasonOther, RejectionNote: "supplier strike"}, nil, ""},
		{"missing reason", order.New, order.Evidence{}, order.ErrMissingEvidence, "rejectionReason"},
		{"unknown reason", order.New, order.Evidence{RejectionReason: "TooFar"}, order.ErrEvidenceRejected, order.InvalidReasonCode},
		{"other without note", order.New, order.Evidence{RejectionReason: order.ReasonOther, RejectionNote: "  "}, order.ErrMissingEvidence, "rejectionNote"},
		{"after accept", order.Accepted, order.Evidence{RejectionReason: order.ReasonOutOfStock}, order.ErrInvalidTransition, ""},
		{"state checked before evidence", order.Processing, order.Evidence{}, order.ErrInvalidTransition, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := order.GuardReject(tt.state, tt.ev)
			if tt.kind == nil {
				assert.NoError(t, err)
				return
			}
			requireTransitionError(t, err, tt.kind, tt.reason)
		})
	}
}

func TestGuardCancel(t *testing.T) {
	valid := order.Evidence{CancelledBy: order.PartyProfessional, CancellationReason: "Shop closed"}

	for _, s := range []order.State{order.New, order.Accepted, order.Processing, order.ReadyForPickup} {
		assert.NoError(t, order.GuardCancel(s, valid), s.String())
	}

	requireTransitionError(t, order.GuardCancel(order.Completed, valid), order.ErrInvalidTransition, "")
	requireTransitionError(t, order.GuardCancel(order.Cancelled, valid), order.ErrInvalidTransition, "")
	requireTransitionError(t, order.GuardCancel(order.Accepted, order.Evidence{CancellationReason: "x"}),
		order.ErrMissingEvidence, "cancelledBy")
	requireTransitionError(t, order.GuardCancel(order.Accepted, order.Evidence{CancelledBy: "Courier", CancellationReason: "x"}),
		order.ErrEvidenceRejected, order.InvalidParty)
	requireTransitionError(t, order.GuardCancel(order.Accepted, order.Evidence{CancelledBy: order.PartyShop}),
		order.ErrMissingEvidence, "cancellationReason")
}

func TestGuardConfirmHandover(t *testing.T) {
	assert.NoError(t, order.GuardConfirmHandover(order.ReadyForPickup, order.Evidence{}, false))
	assert.NoError(t, order.GuardConfirmHandover(order.ReadyForPickup, order.Evidence{OTP: "123456"}, true))

	requireTransitionError(t, order.GuardConfirmHandover(order.ReadyForPickup, order.Evidence{}, true),
		order.ErrMissingEvidence, "otp")
	requireTransitionError(t, order.GuardConfirmHandover(order.Processing, order.Evidence{OTP: "123456"}, true),
		order.ErrInvalidTransition, "")
}

func TestCheckTransition_EvidenceFreeActions(t *testing.T) {
	assert.NoError(t, order.CheckTransition(order.ActionAccept, order.New, order.Evidence{}, false))
	assert.NoError(t, order.CheckTransition(order.ActionPack, order.Accepted, order.Evidence{}, false))
	assert.NoError(t, order.CheckTransition(order.ActionMarkReady, order.Processing, order.Evidence{}, true))

	assert.ErrorIs(t, order.CheckTransition(order.ActionAccept, order.Accepted, order.Evidence{}, false), order.ErrInvalidTransition)
	assert.ErrorIs(t, order.CheckTransition(order.ActionPack, order.New, order.Evidence{}, false), order.ErrInvalidTransition)
}

func TestEvidence_RefNeverContainsOTP(t *testing.T) {
	ev := order.Evidence{OTP: "483920", CancelledBy: order.PartyShop, CancellationReason: "closed"}

	for _, a := range order.AllActions() {
		assert.NotContains(t, ev.Ref(a), "483920")
	}
}
