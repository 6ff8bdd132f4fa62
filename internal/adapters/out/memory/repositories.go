package memory

import (
	"context"
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/ledger"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/outbox"
)

type orderRepository struct {
	uow *UnitOfWork
}

func (r *orderRepository) Add(_ context.Context, o *order.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}
	snap := o.Snapshot()
	id := snap.ID.String()

	err := r.uow.stage(func(s *Store) (func(), error) {
		if _, exists := s.orders[id]; exists {
			return nil, errs.NewObjectAlreadyExistsError("order", id)
		}
		s.orders[id] = snap
		return func() { delete(s.orders, id) }, nil
	})
	if err != nil {
		return err
	}
	r.uow.track(o)
	return nil
}

func (r *orderRepository) Update(_ context.Context, o *order.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}
	snap := o.Snapshot()
	id := snap.ID.String()
	loadedAt := o.StoredVersion()

	err := r.uow.stage(func(s *Store) (func(), error) {
		previous, exists := s.orders[id]
		if !exists {
			return nil, errs.NewObjectNotFoundError("order", id)
		}
		if previous.Version != loadedAt {
			return nil, errs.NewConcurrentModificationError("order", id, loadedAt)
		}
		s.orders[id] = snap
		return func() { s.orders[id] = previous }, nil
	})
	if err != nil {
		return err
	}
	r.uow.track(o)
	return nil
}

// Get reads the committed order. There is no row lock; a conflicting commit
// is caught by the version check in Update.
func (r *orderRepository) Get(_ context.Context, id kernel.UUID) (*order.Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	snap, ok := r.uow.store.order(id.String())
	if !ok {
		return nil, errs.NewObjectNotFoundError("order", id.String())
	}
	return order.Restore(snap)
}

func (r *orderRepository) GetAllWithActiveCodeIssuedBefore(_ context.Context, before time.Time) ([]*order.Order, error) {
	found := make([]*order.Order, 0)
	for _, snap := range r.uow.store.orderSnapshots() {
		if snap.State != order.ReadyForPickup || !snap.Handover.IsActive() || snap.Handover.IssuedAt().After(before) {
			continue
		}
		o, err := order.Restore(snap)
		if err != nil {
			return nil, err
		}
		found = append(found, o)
	}
	return found, nil
}

type cancellationRepository struct {
	uow *UnitOfWork
}

func (r *cancellationRepository) Add(_ context.Context, entry ledger.Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	id := entry.OrderID().String()

	return r.uow.stage(func(s *Store) (func(), error) {
		if _, exists := s.cancellations[id]; exists {
			return nil, errs.NewObjectAlreadyExistsError("cancellation", id)
		}
		s.cancellations[id] = entry
		return func() { delete(s.cancellations, id) }, nil
	})
}

func (r *cancellationRepository) Get(_ context.Context, orderID kernel.UUID) (ledger.Entry, error) {
	entry, ok := r.uow.store.cancellation(orderID.String())
	if !ok {
		return ledger.Entry{}, errs.NewObjectNotFoundError("cancellation", orderID.String())
	}
	return entry, nil
}

type outboxRepository struct {
	uow *UnitOfWork
}

func (r *outboxRepository) Add(_ context.Context, events ...outbox.Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := append([]outbox.Event(nil), events...)

	return r.uow.stage(func(s *Store) (func(), error) {
		before, nextID := len(s.events), s.nextEventID
		for _, e := range batch {
			s.nextEventID++
			e.ID = s.nextEventID
			e.Status = outbox.StatusPending
			s.events = append(s.events, e)
		}
		return func() {
			s.events = s.events[:before]
			s.nextEventID = nextID
		}, nil
	})
}

// LockPending returns pending events without locking them; the relay job runs
// one batch at a time.
func (r *outboxRepository) LockPending(_ context.Context, limit int) ([]outbox.Event, error) {
	return r.uow.store.pendingEvents(limit), nil
}

func (r *outboxRepository) MarkSent(_ context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.uow.stage(func(s *Store) (func(), error) {
		return s.updateEvents(ids, func(e *outbox.Event) {
			e.Status = outbox.StatusSent
		}), nil
	})
}

func (r *outboxRepository) MarkFailed(_ context.Context, id int64, reason string) error {
	return r.uow.stage(func(s *Store) (func(), error) {
		return s.updateEvents([]int64{id}, func(e *outbox.Event) {
			e.RetryCount++
			e.LastError = &reason
			if e.RetryCount >= outbox.MaxAttempts {
				e.Status = outbox.StatusFailed
			} else {
				e.Status = outbox.StatusPending
			}
		}), nil
	})
}

// updateEvents must be called with s.mu held.
func (s *Store) updateEvents(ids []int64, change func(e *outbox.Event)) func() {
	wanted := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	previous := make(map[int]outbox.Event)
	for i := range s.events {
		if _, ok := wanted[s.events[i].ID]; ok {
			previous[i] = s.events[i]
			change(&s.events[i])
		}
	}
	return func() {
		for i, e := range previous {
			s.events[i] = e
		}
	}
}
