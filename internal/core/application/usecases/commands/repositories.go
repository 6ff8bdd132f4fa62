// Package commands contains the operations that change order state. Every
// handler runs in one unit of work: load, decide, persist the aggregate, its
// audit entries, ledger entries and outbox events, then commit.
package commands

import (
	"context"
	"time"

	"fulfillment/internal/core/ports"
)

type (
	// TxManager handles the transaction lifecycle.
	TxManager interface {
		Begin(ctx context.Context) error
		Commit(ctx context.Context) error
		Rollback(ctx context.Context) error
	}

	OrderRepoFactory interface {
		OrderRepository() ports.OrderRepository
	}

	CancellationRepoFactory interface {
		CancellationRepository() ports.CancellationRepository
	}

	OutboxRepoFactory interface {
		OutboxRepository() ports.OutboxRepository
	}

	// UoW covers everything a state change writes.
	//
	// Example:
	//   uow := factory.Create()
	//   err := uow.Begin(ctx)
	//   defer uow.Rollback(ctx)
	//
	//   o, err := uow.OrderRepository().Get(ctx, id)
	//   // ... apply the transition
	//   err = uow.OrderRepository().Update(ctx, o)
	//   err = uow.OutboxRepository().Add(ctx, events...)
	//
	//   err = uow.Commit(ctx)
	UoW interface {
		TxManager
		OrderRepoFactory
		CancellationRepoFactory
		OutboxRepoFactory
	}

	UoWFactory interface {
		Create() UoW
	}

	// OutboxUoW is used by the relay, which never touches orders.
	OutboxUoW interface {
		TxManager
		OutboxRepoFactory
	}

	OutboxUoWFactory interface {
		Create() OutboxUoW
	}
)

// Clock returns the current time. Handlers fall back to time.Now when nil.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c()
}
