package jobs

import (
	"context"
	"log/slog"
	"time"

	"fulfillment/internal/core/application/usecases/commands"
)

type HandoverCodeExpirer interface {
	Handle(ctx context.Context, cmd commands.ExpireHandoverCodesCommand) (int, error)
}

// HandoverCodeExpiryJob discards handover codes that stayed unused for
// longer than the configured TTL. Orders stay in ReadyForPickup; the shop
// can issue a new code on request.
type HandoverCodeExpiryJob struct {
	scheduledJob
	handler HandoverCodeExpirer
	cmd     commands.ExpireHandoverCodesCommand
}

func NewHandoverCodeExpiryJob(
	handler HandoverCodeExpirer,
	ttl time.Duration,
	schedule string,
	logger *slog.Logger,
) (*HandoverCodeExpiryJob, error) {
	cmd, err := commands.NewExpireHandoverCodesCommand(ttl)
	if err != nil {
		return nil, err
	}

	j := &HandoverCodeExpiryJob{handler: handler, cmd: cmd}
	j.scheduledJob = newScheduledJob(
		"handover_code_expiry_job", schedule, j.Run,
		logger.With("component", "handover_code_expiry_job"),
	)
	return j, nil
}

// Run performs one expiry pass.
func (j *HandoverCodeExpiryJob) Run(ctx context.Context) {
	expired, err := j.handler.Handle(ctx, j.cmd)
	if err != nil {
		j.logger.ErrorContext(ctx, "handover code expiry failed", "error", err)
		return
	}
	if expired > 0 {
		j.logger.InfoContext(ctx, "handover codes expired", "count", expired, "ttl", j.cmd.TTL().String())
	}
}
