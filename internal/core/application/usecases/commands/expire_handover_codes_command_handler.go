package commands

import (
	"context"
	"log/slog"

	"fulfillment/internal/pkg/metrics"
)

// ExpireHandoverCodesCommandHandler is the scheduled expiry of handover codes.
// Orders locked by an in-flight transition are skipped and picked up on the
// next run.
type ExpireHandoverCodesCommandHandler struct {
	uowFactory UoWFactory
	clock      Clock
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewExpireHandoverCodesCommandHandler(
	uowFactory UoWFactory,
	clock Clock,
	m *metrics.Metrics,
	logger *slog.Logger,
) ExpireHandoverCodesCommandHandler {
	return ExpireHandoverCodesCommandHandler{
		uowFactory: uowFactory,
		clock:      clock,
		metrics:    m,
		logger:     logger.With("component", "handover-code-expiry"),
	}
}

// Handle returns how many codes were expired.
func (h ExpireHandoverCodesCommandHandler) Handle(ctx context.Context, cmd ExpireHandoverCodesCommand) (int, error) {
	if err := cmd.Validate(); err != nil {
		return 0, err
	}

	now := h.clock.now()

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	orderRepo := uow.OrderRepository()

	orders, err := orderRepo.GetAllWithActiveCodeIssuedBefore(ctx, now.Add(-cmd.TTL()))
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, o := range orders {
		if !o.ExpireHandoverCode(now, cmd.TTL()) {
			continue
		}
		if err = orderRepo.Update(ctx, o); err != nil {
			return 0, err
		}
		expired++
		h.logger.InfoContext(ctx, "handover code expired", "order_id", o.ID().String())
	}

	if expired == 0 {
		return 0, nil
	}

	if err = uow.Commit(ctx); err != nil {
		return 0, err
	}

	h.metrics.HandoverCodesExpired.Add(float64(expired))
	return expired, nil
}
