package jobs

import (
	"context"
	"log/slog"

	"fulfillment/internal/core/application/usecases/commands"
)

type OutboxRelayer interface {
	Handle(ctx context.Context, cmd commands.RelayOutboxCommand) (int, error)
}

// OutboxRelayJob drains the outbox to the event broker. Each run keeps
// relaying batches until one comes back short, so a backlog is cleared
// without waiting for further ticks.
type OutboxRelayJob struct {
	scheduledJob
	handler OutboxRelayer
	cmd     commands.RelayOutboxCommand
}

func NewOutboxRelayJob(
	handler OutboxRelayer,
	batchSize int,
	schedule string,
	logger *slog.Logger,
) (*OutboxRelayJob, error) {
	cmd, err := commands.NewRelayOutboxCommand(batchSize)
	if err != nil {
		return nil, err
	}

	j := &OutboxRelayJob{handler: handler, cmd: cmd}
	j.scheduledJob = newScheduledJob(
		"outbox_relay_job", schedule, j.Run,
		logger.With("component", "outbox_relay_job"),
	)
	return j, nil
}

// Run relays batches until the outbox has no more pending events or a batch
// fails.
func (j *OutboxRelayJob) Run(ctx context.Context) {
	total := 0
	for ctx.Err() == nil {
		published, err := j.handler.Handle(ctx, j.cmd)
		if err != nil {
			j.logger.ErrorContext(ctx, "outbox relay failed", "error", err)
			break
		}
		total += published
		if published < j.cmd.BatchSize() {
			break
		}
	}

	if total > 0 {
		j.logger.DebugContext(ctx, "outbox events relayed", "count", total)
	}
}
