package commands_test

import (
	"testing"

	"fulfillment/internal/core/application/usecases/commands"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestTransitionCommand(t *testing.T) {
	actor, err := order.NewActor("shop-17", order.PartyShop)
	require.NoError(t, err)
	id := kernel.NewUUID()
	ev := order.Evidence{RejectionReason: order.ReasonOutOfStock}

	cmd, err := commands.NewRequestTransitionCommand(id, order.ActionReject, actor, ev)

	require.NoError(t, err)
	require.NoError(t, cmd.Validate())
	assert.Equal(t, id, cmd.OrderID())
	assert.Equal(t, order.ActionReject, cmd.Action())
	assert.Equal(t, actor, cmd.Actor())
	assert.Equal(t, ev, cmd.Evidence())
}

func TestNewRequestTransitionCommand_InvalidInput(t *testing.T) {
	_, err := commands.NewRequestTransitionCommand(kernel.UUID{}, "Teleport", order.Actor{}, order.Evidence{})

	require.Error(t, err)
	assert.ErrorIs(t, err, kernel.ErrUUIDIsNotConstructed)
	assert.ErrorIs(t, err, errs.ErrValueIsInvalid)
	assert.ErrorIs(t, err, errs.ErrValueIsRequired)
}

func TestNewRequestTransitionCommand_EvidenceIsNotJudgedHere(t *testing.T) {
	actor, _ := order.NewActor("shop-17", order.PartyShop)

	_, err := commands.NewRequestTransitionCommand(kernel.NewUUID(), order.ActionReject, actor, order.Evidence{})

	assert.NoError(t, err)
}

func TestRequestTransitionCommand_WithExpectedVersion(t *testing.T) {
	actor, _ := order.NewActor("shop-17", order.PartyShop)
	cmd, err := commands.NewRequestTransitionCommand(kernel.NewUUID(), order.ActionAccept, actor, order.Evidence{})
	require.NoError(t, err)
	assert.Zero(t, cmd.ExpectedVersion())

	conditional, err := cmd.WithExpectedVersion(3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), conditional.ExpectedVersion())
	require.NoError(t, conditional.Validate())
	assert.Zero(t, cmd.ExpectedVersion(), "original command is unchanged")

	_, err = cmd.WithExpectedVersion(-1)
	assert.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
}
