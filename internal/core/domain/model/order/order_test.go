package order_test

import (
	"math/rand"
	"testing"
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/core/domain/services"
	"fulfillment/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	now      = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	shop     = mustActor("shop-17", order.PartyShop)
	pro      = mustActor("pro-4", order.PartyProfessional)
	verifier = services.NewHandoverVerifier()
)

func mustActor(id string, p order.Party) order.Actor {
	a, err := order.NewActor(id, p)
	if err != nil {
		panic(err)
	}
	return a
}

func mustItem(t *testing.T, ref string, qty int, price string) order.Item {
	t.Helper()
	item, err := order.NewItem(ref, qty, kernel.MustMoney(price))
	require.NoError(t, err)
	return item
}

func newOrder(t *testing.T, requiresOTP bool) *order.Order {
	t.Helper()
	o, err := order.NewOrder(
		kernel.NewUUID(),
		"pro-4",
		[]order.Item{mustItem(t, "wire", 2, "120"), mustItem(t, "tape", 1, "80")},
		requiresOTP,
		now,
	)
	require.NoError(t, err)
	return o
}

func readyOrder(t *testing.T, requiresOTP bool, code string) *order.Order {
	t.Helper()
	o := newOrder(t, requiresOTP)
	require.NoError(t, o.Accept(shop, now))
	require.NoError(t, o.Pack(shop, now))
	require.NoError(t, o.MarkReady(shop, order.Evidence{}, services.FixedCodeGenerator(code), now))
	return o
}

func TestNewOrder(t *testing.T) {
	t.Run("should create order in New with derived total", func(t *testing.T) {
		o := newOrder(t, true)

		require.NoError(t, o.Validate())
		assert.Equal(t, order.New, o.State())
		assert.True(t, o.TotalAmount().IsEqual(kernel.MustMoney("320")))
		assert.Equal(t, int64(1), o.Version())
		assert.Empty(t, o.History())
		assert.Nil(t, o.HandoverCode())
		assert.Nil(t, o.Cancellation())
	})

	t.Run("should fail without items", func(t *testing.T) {
		o, err := order.NewOrder(kernel.NewUUID(), "pro-4", nil, false, now)

		require.ErrorIs(t, err, errs.ErrValueIsRequired)
		assert.Nil(t, o)
	})

	t.Run("should join every validation error", func(t *testing.T) {
		o, err := order.NewOrder(kernel.UUID{}, " ", []order.Item{{}}, false, now)

		require.Error(t, err)
		assert.Nil(t, o)
		assert.ErrorIs(t, err, kernel.ErrUUIDIsNotConstructed)
		assert.Contains(t, err.Error(), "counterpartyRef")
		assert.Contains(t, err.Error(), "was not created via NewItem")
	})

	t.Run("should fail with zero quantity item", func(t *testing.T) {
		_, err := order.NewItem("wire", 0, kernel.MustMoney("1"))
		assert.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})
}

func TestOrder_OTPHandover(t *testing.T) {
	o := readyOrder(t, true, "483920")
	require.Equal(t, "483920", o.HandoverOTP())

	err := o.ConfirmHandover(pro, order.Evidence{OTP: "000000"}, verifier, now)

	requireTransitionError(t, err, order.ErrEvidenceRejected, string(order.CodeMismatch))
	assert.Equal(t, order.ReadyForPickup, o.State())
	assert.Equal(t, "483920", o.HandoverOTP())
	assert.Len(t, o.History(), 3)

	err = o.ConfirmHandover(pro, order.Evidence{OTP: "483920"}, verifier, now.Add(time.Minute))

	require.NoError(t, err)
	assert.Equal(t, order.Completed, o.State())
	assert.Empty(t, o.HandoverOTP())
	assert.Equal(t, order.CodeConsumed, o.HandoverCode().Status())
	last, _ := o.LastTransition()
	assert.Equal(t, "otp=verified", last.EvidenceRef())
	assert.Equal(t, 4, last.Seq())

	t.Run("should answer AlreadyConsumed when the code is reused", func(t *testing.T) {
		err := o.ConfirmHandover(pro, order.Evidence{OTP: "483920"}, verifier, now.Add(2*time.Minute))

		requireTransitionError(t, err, order.ErrEvidenceRejected, string(order.AlreadyConsumed))
		assert.Len(t, o.History(), 4)
	})

	t.Run("should answer InvalidTransition without a code", func(t *testing.T) {
		err := o.ConfirmHandover(pro, order.Evidence{}, verifier, now)
		assert.ErrorIs(t, err, order.ErrInvalidTransition)
	})
}

func TestOrder_OTPRequiredButMissing(t *testing.T) {
	o := readyOrder(t, true, "111111")

	err := o.ConfirmHandover(pro, order.Evidence{}, verifier, now)

	requireTransitionError(t, err, order.ErrMissingEvidence, "otp")
	assert.Equal(t, order.ReadyForPickup, o.State())
}

func TestOrder_RejectFromNew(t *testing.T) {
	o := newOrder(t, false)

	err := o.Reject(shop, order.Evidence{RejectionReason: order.ReasonOutOfStock}, now)

	require.NoError(t, err)
	assert.Equal(t, order.Cancelled, o.State())
	require.NotNil(t, o.Cancellation())
	assert.Equal(t, order.KindRejected, o.Cancellation().Kind)
	assert.Equal(t, order.New, o.Cancellation().From)
	assert.Equal(t, order.PartyShop, o.Cancellation().CancelledBy)
	assert.Equal(t, order.ReasonOutOfStock, o.Cancellation().RejectionReason)

	_, refund, err := services.NewCancellationLedger().Record(o, now)
	require.NoError(t, err)
	assert.Nil(t, refund)
}

func TestOrder_CancelFromProcessing(t *testing.T) {
	o := newOrder(t, false)
	require.NoError(t, o.Accept(shop, now))
	require.NoError(t, o.Pack(shop, now))

	err := o.Cancel(pro, order.Evidence{CancelledBy: order.PartyProfessional, CancellationReason: "Shop closed"}, now)

	require.NoError(t, err)
	assert.Equal(t, order.Cancelled, o.State())
	assert.Equal(t, order.PartyProfessional, o.Cancellation().CancelledBy)
	assert.Equal(t, order.Processing, o.Cancellation().From)

	entry, refund, err := services.NewCancellationLedger().Record(o, now)
	require.NoError(t, err)
	require.NotNil(t, refund)
	assert.True(t, refund.Amount.IsEqual(kernel.MustMoney("320")))
	assert.Equal(t, order.PartyProfessional, refund.CancelledBy)
	assert.True(t, entry.RefundEligible())
}

func TestOrder_DirectHandover(t *testing.T) {
	o := readyOrder(t, false, "")

	err := o.ConfirmHandover(pro, order.Evidence{}, verifier, now)

	require.NoError(t, err)
	assert.Equal(t, order.Completed, o.State())
	assert.Nil(t, o.HandoverCode())
	last, _ := o.LastTransition()
	assert.Equal(t, "handover=direct", last.EvidenceRef())
}

func TestOrder_MarkReadyOverride(t *testing.T) {
	o := newOrder(t, false)
	require.NoError(t, o.Accept(shop, now))
	require.NoError(t, o.Pack(shop, now))
	requireOTP := true

	err := o.MarkReady(shop, order.Evidence{RequireOTP: &requireOTP}, services.FixedCodeGenerator("222222"), now)

	require.NoError(t, err)
	assert.True(t, o.RequiresOTPHandover())
	assert.Equal(t, "222222", o.HandoverOTP())
}

func TestOrder_MarkReadyRejectsMalformedCode(t *testing.T) {
	o := newOrder(t, true)
	require.NoError(t, o.Accept(shop, now))
	require.NoError(t, o.Pack(shop, now))

	err := o.MarkReady(shop, order.Evidence{}, services.FixedCodeGenerator("12ab"), now)

	require.Error(t, err)
	assert.Equal(t, order.Processing, o.State())
	assert.Len(t, o.History(), 2)
}

func TestOrder_ReplayIsInvalidTransition(t *testing.T) {
	o := newOrder(t, true)
	require.NoError(t, o.Accept(shop, now))
	require.NoError(t, o.Pack(shop, now))
	require.NoError(t, o.MarkReady(shop, order.Evidence{}, services.FixedCodeGenerator("333333"), now))
	versionBefore := o.Version()

	err := o.MarkReady(shop, order.Evidence{}, services.FixedCodeGenerator("444444"), now)

	assert.ErrorIs(t, err, order.ErrInvalidTransition)
	assert.Equal(t, "333333", o.HandoverOTP(), "a replay must not issue a second code")
	assert.Equal(t, versionBefore, o.Version())
	assert.ErrorIs(t, o.Accept(shop, now), order.ErrInvalidTransition)
	assert.Len(t, o.History(), 3)
}

func TestOrder_CancelRevokesActiveCode(t *testing.T) {
	o := readyOrder(t, true, "555555")

	require.NoError(t, o.Cancel(shop, order.Evidence{CancelledBy: order.PartyShop, CancellationReason: "damaged"}, now))

	assert.Equal(t, order.CodeRevoked, o.HandoverCode().Status())
	assert.Empty(t, o.HandoverOTP())
	err := o.ConfirmHandover(pro, order.Evidence{OTP: "555555"}, verifier, now)
	assert.ErrorIs(t, err, order.ErrInvalidTransition)
}

func TestOrder_ExpireAndReissue(t *testing.T) {
	o := readyOrder(t, true, "666666")
	ttl := 30 * time.Minute

	assert.False(t, o.ExpireHandoverCode(now.Add(10*time.Minute), ttl))
	assert.False(t, o.ExpireHandoverCode(now.Add(time.Hour), 0), "zero ttl disables expiry")
	require.True(t, o.ExpireHandoverCode(now.Add(time.Hour), ttl))
	assert.Equal(t, order.CodeExpired, o.HandoverCode().Status())

	err := o.ConfirmHandover(pro, order.Evidence{OTP: "666666"}, verifier, now.Add(time.Hour))
	requireTransitionError(t, err, order.ErrEvidenceRejected, string(order.HandoverCodeExpired))
	assert.Equal(t, order.ReadyForPickup, o.State())

	require.NoError(t, o.ReissueHandoverCode(services.FixedCodeGenerator("777777"), now.Add(time.Hour)))
	assert.Equal(t, "777777", o.HandoverOTP())
	assert.ErrorIs(t, o.ReissueHandoverCode(services.FixedCodeGenerator("888888"), now), order.ErrHandoverCodeNotReissuable)

	require.NoError(t, o.ConfirmHandover(pro, order.Evidence{OTP: "777777"}, verifier, now.Add(time.Hour)))
	assert.Len(t, o.History(), 4, "expiry and reissue are not lifecycle transitions")
}

func TestOrder_ReissueRequiresOTPOrder(t *testing.T) {
	o := readyOrder(t, false, "")
	assert.ErrorIs(t, o.ReissueHandoverCode(services.FixedCodeGenerator("123456"), now), order.ErrHandoverCodeNotReissuable)
}

func TestOrder_VersionBumpsOncePerUnitOfWork(t *testing.T) {
	o := newOrder(t, false)
	require.NoError(t, o.Accept(shop, now))
	require.NoError(t, o.Pack(shop, now))
	assert.Equal(t, int64(1), o.Version(), "a new order is stored at version 1")

	restored, err := order.Restore(snapshotOf(o))
	require.NoError(t, err)
	require.NoError(t, restored.MarkReady(shop, order.Evidence{}, nil, now))

	assert.Equal(t, int64(1), restored.StoredVersion())
	assert.Equal(t, int64(2), restored.Version())
	assert.Len(t, restored.NewAuditEntries(), 1)
	assert.Equal(t, 3, restored.NewAuditEntries()[0].Seq())
}

func TestOrder_MarkPersistedStartsNextUnitOfWork(t *testing.T) {
	o := newOrder(t, false)
	require.NoError(t, o.Accept(shop, now))

	o.MarkPersisted()
	assert.Equal(t, int64(1), o.StoredVersion())
	assert.Empty(t, o.NewAuditEntries())

	require.NoError(t, o.Pack(shop, now))
	assert.Equal(t, int64(2), o.Version())
	require.Len(t, o.NewAuditEntries(), 1)
	assert.Equal(t, order.ActionPack, o.NewAuditEntries()[0].Action())
}

func TestRestore_ChecksConsistency(t *testing.T) {
	code, err := order.NewHandoverCode("123456", now)
	require.NoError(t, err)

	_, err = order.Restore(order.Snapshot{
		ID:              kernel.NewUUID(),
		CounterpartyRef: "pro-4",
		Items:           []order.Item{mustItem(t, "wire", 1, "1")},
		State:           order.Completed,
		Handover:        code,
		CreatedAt:       now,
		Version:         3,
	})
	assert.ErrorIs(t, err, errs.ErrValueIsInvalid)

	_, err = order.Restore(order.Snapshot{
		ID:              kernel.NewUUID(),
		CounterpartyRef: "pro-4",
		Items:           []order.Item{mustItem(t, "wire", 1, "1")},
		State:           order.Cancelled,
		CreatedAt:       now,
		Version:         3,
	})
	assert.ErrorIs(t, err, errs.ErrValueIsInvalid)
}

func TestOrder_ApplyRandomSequences(t *testing.T) {
	rnd := rand.New(rand.NewSource(20250314))
	actions := order.AllActions()
	evidences := []order.Evidence{
		{},
		{RejectionReason: order.ReasonCannotFulfill},
		{RejectionReason: order.ReasonOther},
		{CancelledBy: order.PartyCustomer, CancellationReason: "changed mind"},
		{CancelledBy: "Alien", CancellationReason: "x"},
		{OTP: "999999"},
		{OTP: "000001"},
	}

	for run := 0; run < 300; run++ {
		o := newOrder(t, rnd.Intn(2) == 0)

		for step := 0; step < 12; step++ {
			action := actions[rnd.Intn(len(actions))]
			ev := evidences[rnd.Intn(len(evidences))]
			before := o.State()
			historyBefore := len(o.History())

			err := o.Apply(action, shop, ev, services.FixedCodeGenerator("999999"), verifier, now)

			if err != nil {
				assert.Equal(t, before, o.State(), "a refused request must not change state")
				assert.Len(t, o.History(), historyBefore)
				continue
			}
			want, legal := edges[before][action]
			require.True(t, legal, "committed illegal edge %s -%s->", before, action)
			require.Equal(t, want, o.State())
			require.Len(t, o.History(), historyBefore+1)
		}

		for i, entry := range o.History() {
			assert.Equal(t, i+1, entry.Seq())
			assert.NotContains(t, entry.EvidenceRef(), "999999")
		}
		if o.HandoverCode().IsActive() {
			assert.Equal(t, order.ReadyForPickup, o.State())
		}
		assert.Equal(t, o.State() == order.Cancelled, o.Cancellation() != nil)
	}
}

func snapshotOf(o *order.Order) order.Snapshot {
	return o.Snapshot()
}

func TestOrder_SnapshotDoesNotAlias(t *testing.T) {
	o := readyOrder(t, true, "483920")
	snap := o.Snapshot()

	require.NoError(t, o.ConfirmHandover(pro, order.Evidence{OTP: "483920"}, verifier, now))

	assert.Equal(t, order.ReadyForPickup, snap.State)
	assert.Equal(t, order.CodeActive, snap.Handover.Status())
	assert.Equal(t, "483920", snap.Handover.Value())
	assert.Len(t, snap.History, 3)

	restored, err := order.Restore(snap)
	require.NoError(t, err)
	require.NoError(t, restored.ConfirmHandover(pro, order.Evidence{OTP: "483920"}, verifier, now))
	assert.Equal(t, order.CodeActive, snap.Handover.Status(), "restore copies the code")
}
