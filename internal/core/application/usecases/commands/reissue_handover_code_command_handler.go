package commands

import (
	"context"
	"log/slog"

	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/pkg/metrics"
)

// ReissueHandoverCodeCommandHandler issues a fresh code and hands it to the
// OTP delivery collaborator through the outbox. It is not a lifecycle
// transition and adds no audit entry. Fails with
// order.ErrHandoverCodeNotReissuable while the current code is still usable.
type ReissueHandoverCodeCommandHandler struct {
	uowFactory UoWFactory
	codes      order.CodeGenerator
	clock      Clock
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewReissueHandoverCodeCommandHandler(
	uowFactory UoWFactory,
	codes order.CodeGenerator,
	clock Clock,
	m *metrics.Metrics,
	logger *slog.Logger,
) ReissueHandoverCodeCommandHandler {
	return ReissueHandoverCodeCommandHandler{
		uowFactory: uowFactory,
		codes:      codes,
		clock:      clock,
		metrics:    m,
		logger:     logger.With("component", "handover-code-reissue"),
	}
}

func (h ReissueHandoverCodeCommandHandler) Handle(ctx context.Context, cmd ReissueHandoverCodeCommand) (*order.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	orderRepo := uow.OrderRepository()

	o, err := orderRepo.Get(ctx, cmd.OrderID())
	if err != nil {
		return nil, err
	}

	if err = o.ReissueHandoverCode(h.codes, h.clock.now()); err != nil {
		return nil, err
	}

	if err = orderRepo.Update(ctx, o); err != nil {
		return nil, err
	}

	event, err := handoverCodeIssuedEvent(ctx, o)
	if err != nil {
		return nil, err
	}

	if err = uow.OutboxRepository().Add(ctx, event); err != nil {
		return nil, err
	}

	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}

	h.metrics.HandoverCodesIssued.Inc()
	h.logger.InfoContext(ctx, "handover code reissued",
		"order_id", o.ID().String(),
		"actor", cmd.Actor().String(),
	)
	return o, nil
}
