package ports

import (
	"context"
)

// UnitOfWork is the transaction boundary of one command. Everything written
// through its repositories becomes visible together on Commit.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() OrderRepository
	CancellationRepository() CancellationRepository
	OutboxRepository() OutboxRepository
}

// UnitOfWorkFactory creates a fresh UnitOfWork per command.
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
