package memory

import (
	"context"
	"errors"

	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/core/ports"
)

var ErrNoTransaction = errors.New("no transaction in progress")

type UnitOfWorkFactory struct {
	store *Store
}

func NewUnitOfWorkFactory(store *Store) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{store: store}
}

func (f *UnitOfWorkFactory) Create() ports.UnitOfWork {
	return &UnitOfWork{store: f.store}
}

// UnitOfWork stages writes until Commit. Outside Begin/Commit every write is
// applied immediately, like a statement in autocommit mode.
type UnitOfWork struct {
	store   *Store
	active  bool
	staged  []write
	written []*order.Order
}

func (u *UnitOfWork) Begin(_ context.Context) error {
	if u.active {
		return nil
	}
	u.active = true
	u.staged = nil
	u.written = nil
	return nil
}

func (u *UnitOfWork) Commit(_ context.Context) error {
	if !u.active {
		return ErrNoTransaction
	}
	staged, written := u.staged, u.written
	u.active = false
	u.staged = nil
	u.written = nil
	if err := u.store.apply(staged); err != nil {
		return err
	}
	for _, o := range written {
		o.MarkPersisted()
	}
	return nil
}

func (u *UnitOfWork) Rollback(_ context.Context) error {
	if !u.active {
		return ErrNoTransaction
	}
	u.active = false
	u.staged = nil
	u.written = nil
	return nil
}

// track marks o persisted at commit, or at once in autocommit mode.
func (u *UnitOfWork) track(o *order.Order) {
	if !u.active {
		o.MarkPersisted()
		return
	}
	u.written = append(u.written, o)
}

func (u *UnitOfWork) stage(w write) error {
	if !u.active {
		return u.store.apply([]write{w})
	}
	u.staged = append(u.staged, w)
	return nil
}

func (u *UnitOfWork) OrderRepository() ports.OrderRepository {
	return &orderRepository{uow: u}
}

func (u *UnitOfWork) CancellationRepository() ports.CancellationRepository {
	return &cancellationRepository{uow: u}
}

func (u *UnitOfWork) OutboxRepository() ports.OutboxRepository {
	return &outboxRepository{uow: u}
}
