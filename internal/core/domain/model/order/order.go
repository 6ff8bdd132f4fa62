package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/errs"
)

var (
	// ErrOrderIsNotConstructed is returned for an Order not built by NewOrder or Restore.
	ErrOrderIsNotConstructed = errors.New("Order must be created via NewOrder constructor")
	// ErrHandoverCodeNotReissuable is returned when a code cannot be reissued in the current situation.
	ErrHandoverCodeNotReissuable = errors.New("handover code cannot be reissued")
)

// CancellationKind distinguishes a rejection (the order was never accepted)
// from a cancellation of accepted work.
type CancellationKind string

const (
	KindRejected  CancellationKind = "Rejected"
	KindCancelled CancellationKind = "Cancelled"
)

// Cancellation records how an order ended in Cancelled.
type Cancellation struct {
	Kind            CancellationKind
	From            State
	CancelledBy     Party
	RejectionReason RejectionReason
	Reason          string
	At              time.Time
}

// HandoverVerification checks a supplied handover code against the stored one.
// A nil error means the code is verified.
type HandoverVerification interface {
	Verify(from State, code *HandoverCode, supplied string) error
}

// Order is the aggregate root of the fulfillment lifecycle. Its state only
// changes through the transition methods below, each of which appends exactly
// one audit entry.
//
// Invariants:
//   - at least one item; the total is always the sum of item subtotals
//   - a handover code is active only while the order is ReadyForPickup
//   - cancellation details exist only in the Cancelled state
//   - Completed and Cancelled accept no further transitions
type Order struct {
	id              kernel.UUID
	counterpartyRef string
	items           []Item
	state           State
	requiresOTP     bool
	handover        *HandoverCode
	cancellation    *Cancellation
	createdAt       time.Time
	updatedAt       time.Time
	history         []AuditEntry
	persistedAudit  int
	version         int64
	storedVersion   int64
	isConstructed   bool
}

// NewOrder creates an order in New from the catalog snapshot supplied by the caller.
func NewOrder(
	id kernel.UUID,
	counterpartyRef string,
	items []Item,
	requiresOTP bool,
	createdAt time.Time,
) (*Order, error) {
	o := &Order{
		state:         New,
		requiresOTP:   requiresOTP,
		createdAt:     createdAt,
		updatedAt:     createdAt,
		version:       1,
		isConstructed: true,
	}

	if err := errors.Join(
		o.setID(id),
		o.setCounterparty(counterpartyRef),
		o.setItems(items),
	); err != nil {
		return nil, err
	}

	return o, nil
}

// Snapshot is the full persisted shape of an order.
type Snapshot struct {
	ID              kernel.UUID
	CounterpartyRef string
	Items           []Item
	State           State
	RequiresOTP     bool
	Handover        *HandoverCode
	Cancellation    *Cancellation
	CreatedAt       time.Time
	UpdatedAt       time.Time
	History         []AuditEntry
	Version         int64
}

// Restore rebuilds an order from persistence and re-checks its invariants.
func Restore(s Snapshot) (*Order, error) {
	o := &Order{
		state:          s.State,
		requiresOTP:    s.RequiresOTP,
		handover:       s.Handover.clone(),
		cancellation:   s.Cancellation.clone(),
		createdAt:      s.CreatedAt,
		updatedAt:      s.UpdatedAt,
		history:        append([]AuditEntry(nil), s.History...),
		persistedAudit: len(s.History),
		version:        s.Version,
		storedVersion:  s.Version,
		isConstructed:  true,
	}

	if err := errors.Join(
		o.setID(s.ID),
		o.setCounterparty(s.CounterpartyRef),
		o.setItems(s.Items),
		s.State.Validate(),
		o.checkStateConsistency(),
	); err != nil {
		return nil, err
	}

	return o, nil
}

// Snapshot copies the order's persisted shape. Nothing in it aliases the order.
func (o *Order) Snapshot() Snapshot {
	return Snapshot{
		ID:              o.id,
		CounterpartyRef: o.counterpartyRef,
		Items:           o.Items(),
		State:           o.state,
		RequiresOTP:     o.requiresOTP,
		Handover:        o.handover.clone(),
		Cancellation:    o.cancellation.clone(),
		CreatedAt:       o.createdAt,
		UpdatedAt:       o.updatedAt,
		History:         o.History(),
		Version:         o.version,
	}
}

func (c *Cancellation) clone() *Cancellation {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// Validate ensures the Order was built by NewOrder or Restore.
func (o *Order) Validate() error {
	if o == nil || !o.isConstructed {
		return ErrOrderIsNotConstructed
	}
	return nil
}

func (o *Order) ID() kernel.UUID             { return o.id }
func (o *Order) CounterpartyRef() string     { return o.counterpartyRef }
func (o *Order) State() State                { return o.state }
func (o *Order) RequiresOTPHandover() bool   { return o.requiresOTP }
func (o *Order) HandoverCode() *HandoverCode { return o.handover }
func (o *Order) Cancellation() *Cancellation { return o.cancellation }
func (o *Order) CreatedAt() time.Time        { return o.createdAt }
func (o *Order) UpdatedAt() time.Time        { return o.updatedAt }
func (o *Order) Version() int64              { return o.version }
func (o *Order) StoredVersion() int64        { return o.storedVersion }
func (o *Order) IsEqual(other *Order) bool   { return other != nil && o.id.IsEqual(other.id) }
func (o *Order) Items() []Item               { return append([]Item(nil), o.items...) }
func (o *Order) History() []AuditEntry       { return append([]AuditEntry(nil), o.history...) }

// HandoverOTP is the plain code while it can still be used.
func (o *Order) HandoverOTP() string {
	if o.state != ReadyForPickup {
		return ""
	}
	return o.handover.Value()
}

// TotalAmount is derived from the items on every call.
func (o *Order) TotalAmount() kernel.Money {
	total := kernel.Zero
	for _, item := range o.items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// NewAuditEntries returns entries appended since the order was loaded, created
// or last marked persisted.
func (o *Order) NewAuditEntries() []AuditEntry {
	return append([]AuditEntry(nil), o.history[o.persistedAudit:]...)
}

// MarkPersisted is called by a unit of work once the order's writes are
// committed. The current version becomes the stored one and the audit trail
// has nothing pending.
func (o *Order) MarkPersisted() {
	o.storedVersion = o.version
	o.persistedAudit = len(o.history)
}

// LastTransition returns the most recent audit entry.
func (o *Order) LastTransition() (AuditEntry, bool) {
	if len(o.history) == 0 {
		return AuditEntry{}, false
	}
	return o.history[len(o.history)-1], true
}

// Accept commits the shop to fulfilling the order.
func (o *Order) Accept(actor Actor, at time.Time) error {
	return o.transition(ActionAccept, actor, Evidence{}, at, nil)
}

// Pack starts preparing an accepted order.
func (o *Order) Pack(actor Actor, at time.Time) error {
	return o.transition(ActionPack, actor, Evidence{}, at, nil)
}

// Reject ends a New order with a reason from the closed vocabulary.
func (o *Order) Reject(actor Actor, ev Evidence, at time.Time) error {
	from := o.state
	return o.transition(ActionReject, actor, ev, at, func() {
		o.cancellation = &Cancellation{
			Kind:            KindRejected,
			From:            from,
			CancelledBy:     actor.Party(),
			RejectionReason: ev.RejectionReason,
			Reason:          strings.TrimSpace(ev.RejectionNote),
			At:              at,
		}
	})
}

// Cancel ends a non-terminal order. An active handover code is revoked.
func (o *Order) Cancel(actor Actor, ev Evidence, at time.Time) error {
	from := o.state
	return o.transition(ActionCancel, actor, ev, at, func() {
		if o.handover.IsActive() {
			o.handover.close(CodeRevoked, at)
		}
		o.cancellation = &Cancellation{
			Kind:        KindCancelled,
			From:        from,
			CancelledBy: ev.CancelledBy,
			Reason:      strings.TrimSpace(ev.CancellationReason),
			At:          at,
		}
	})
}

// MarkReady makes the order available for pickup. The OTP requirement is
// fixed here, from the evidence override or the order's setting, and a fresh
// code is issued when it is required.
func (o *Order) MarkReady(actor Actor, ev Evidence, codes CodeGenerator, at time.Time) error {
	if err := CheckTransition(ActionMarkReady, o.state, ev, o.requiresOTP); err != nil {
		return err
	}

	requiresOTP := o.requiresOTP
	if ev.RequireOTP != nil {
		requiresOTP = *ev.RequireOTP
	}

	var code *HandoverCode
	if requiresOTP {
		value, err := codes.Generate()
		if err != nil {
			return fmt.Errorf("generate handover code: %w", err)
		}
		if code, err = NewHandoverCode(value, at); err != nil {
			return err
		}
	}

	return o.transition(ActionMarkReady, actor, ev, at, func() {
		o.requiresOTP = requiresOTP
		o.handover = code
	})
}

// ConfirmHandover completes the order. With OTP handover the supplied code is
// checked by verifier and consumed in the same step; without it the handover
// is direct and needs no evidence.
func (o *Order) ConfirmHandover(actor Actor, ev Evidence, verifier HandoverVerification, at time.Time) error {
	if o.state == Completed && o.requiresOTP && strings.TrimSpace(ev.OTP) != "" {
		if err := verifier.Verify(o.state, o.handover, ev.OTP); err != nil {
			return err
		}
	}

	if err := CheckTransition(ActionConfirmHandover, o.state, ev, o.requiresOTP); err != nil {
		return err
	}

	ref := "handover=direct"
	if o.requiresOTP {
		if err := verifier.Verify(o.state, o.handover, strings.TrimSpace(ev.OTP)); err != nil {
			return err
		}
		ref = "otp=verified"
	}

	return o.transitionWithRef(ActionConfirmHandover, actor, ref, at, func() {
		if o.requiresOTP {
			o.handover.close(CodeConsumed, at)
		}
	})
}

// ExpireHandoverCode discards an active code issued more than ttl before now.
// It reports whether the code was expired. This is not a lifecycle transition.
func (o *Order) ExpireHandoverCode(now time.Time, ttl time.Duration) bool {
	if o.state != ReadyForPickup || !o.handover.IsStale(now, ttl) {
		return false
	}
	o.handover.close(CodeExpired, now)
	o.touch(now)
	return true
}

// ReissueHandoverCode replaces an expired code on an order still waiting for
// an OTP handover. An active code is never replaced.
func (o *Order) ReissueHandoverCode(codes CodeGenerator, at time.Time) error {
	if o.state != ReadyForPickup || !o.requiresOTP {
		return fmt.Errorf("%w: order is %s and requires OTP handover: %t", ErrHandoverCodeNotReissuable, o.state, o.requiresOTP)
	}
	if o.handover.IsActive() {
		return fmt.Errorf("%w: current code is still active", ErrHandoverCodeNotReissuable)
	}

	value, err := codes.Generate()
	if err != nil {
		return fmt.Errorf("generate handover code: %w", err)
	}
	code, err := NewHandoverCode(value, at)
	if err != nil {
		return err
	}

	o.handover = code
	o.touch(at)
	return nil
}

// Apply dispatches a transition request. MarkReady and ConfirmHandover need
// their collaborators; the other actions ignore them.
func (o *Order) Apply(
	action Action,
	actor Actor,
	ev Evidence,
	codes CodeGenerator,
	verifier HandoverVerification,
	at time.Time,
) error {
	if err := o.Validate(); err != nil {
		return err
	}
	switch action {
	case ActionAccept:
		return o.Accept(actor, at)
	case ActionReject:
		return o.Reject(actor, ev, at)
	case ActionPack:
		return o.Pack(actor, at)
	case ActionMarkReady:
		return o.MarkReady(actor, ev, codes, at)
	case ActionConfirmHandover:
		return o.ConfirmHandover(actor, ev, verifier, at)
	case ActionCancel:
		return o.Cancel(actor, ev, at)
	default:
		return action.Validate()
	}
}

func (o *Order) transition(action Action, actor Actor, ev Evidence, at time.Time, effects func()) error {
	if err := CheckTransition(action, o.state, ev, o.requiresOTP); err != nil {
		return err
	}
	return o.transitionWithRef(action, actor, ev.Ref(action), at, effects)
}

func (o *Order) transitionWithRef(action Action, actor Actor, ref string, at time.Time, effects func()) error {
	next, err := o.state.Next(action)
	if err != nil {
		return err
	}

	from := o.state
	if effects != nil {
		effects()
	}
	o.state = next
	o.history = append(o.history, AuditEntry{
		seq:         len(o.history) + 1,
		action:      action,
		actor:       actor,
		from:        from,
		to:          next,
		at:          at,
		evidenceRef: ref,
	})
	o.touch(at)
	return nil
}

func (o *Order) touch(at time.Time) {
	o.updatedAt = at
	if o.version == o.storedVersion {
		o.version++
	}
}

func (o *Order) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	o.id = id
	return nil
}

func (o *Order) setCounterparty(ref string) error {
	if strings.TrimSpace(ref) == "" {
		return errs.NewValueIsRequiredError("counterpartyRef")
	}
	o.counterpartyRef = ref
	return nil
}

func (o *Order) setItems(items []Item) error {
	if len(items) == 0 {
		return errs.NewValueIsRequiredErrorWithCause("items", errors.New("an order needs at least one item"))
	}
	for i, item := range items {
		if item.quantity <= 0 || item.productRef == "" {
			return errs.NewValueIsInvalidErrorWithCause("items", fmt.Errorf("item %d was not created via NewItem", i))
		}
	}
	o.items = append([]Item(nil), items...)
	return nil
}

func (o *Order) checkStateConsistency() error {
	if o.handover.IsActive() && o.state != ReadyForPickup {
		return errs.NewValueIsInvalidErrorWithCause("handover code",
			fmt.Errorf("an active code is not allowed in %s state", o.state))
	}
	if (o.cancellation != nil) != (o.state == Cancelled) {
		return errs.NewValueIsInvalidErrorWithCause("cancellation",
			fmt.Errorf("cancellation details do not match %s state", o.state))
	}
	return nil
}
