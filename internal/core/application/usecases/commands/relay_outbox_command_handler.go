package commands

import (
	"context"
	"log/slog"

	"fulfillment/internal/core/ports"
	"fulfillment/internal/pkg/metrics"
)

// RelayOutboxCommandHandler locks a batch of pending events, publishes them
// and records the result. A publish failure marks only that event; the rest
// of the batch still goes out. Delivery is at least once.
type RelayOutboxCommandHandler struct {
	uowFactory OutboxUoWFactory
	publisher  ports.EventPublisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewRelayOutboxCommandHandler(
	uowFactory OutboxUoWFactory,
	publisher ports.EventPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) RelayOutboxCommandHandler {
	return RelayOutboxCommandHandler{
		uowFactory: uowFactory,
		publisher:  publisher,
		metrics:    m,
		logger:     logger.With("component", "outbox-relay"),
	}
}

// Handle returns the number of events published.
func (h RelayOutboxCommandHandler) Handle(ctx context.Context, cmd RelayOutboxCommand) (int, error) {
	if err := cmd.Validate(); err != nil {
		return 0, err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	outboxRepo := uow.OutboxRepository()

	events, err := outboxRepo.LockPending(ctx, cmd.BatchSize())
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	sent := make([]int64, 0, len(events))
	for _, event := range events {
		if pubErr := h.publisher.Publish(ctx, event); pubErr != nil {
			h.logger.ErrorContext(ctx, "outbox dispatch failed",
				"event_id", event.ID,
				"type", event.Type,
				"attempt", event.RetryCount+1,
				"err", pubErr,
			)
			h.metrics.OutboxPublished.WithLabelValues(event.Type, "failed").Inc()
			if err = outboxRepo.MarkFailed(ctx, event.ID, pubErr.Error()); err != nil {
				return 0, err
			}
			continue
		}
		h.metrics.OutboxPublished.WithLabelValues(event.Type, "sent").Inc()
		sent = append(sent, event.ID)
	}

	if len(sent) > 0 {
		if err = outboxRepo.MarkSent(ctx, sent); err != nil {
			return 0, err
		}
	}

	if err = uow.Commit(ctx); err != nil {
		return 0, err
	}

	h.logger.DebugContext(ctx, "outbox batch relayed", "sent", len(sent), "failed", len(events)-len(sent))
	return len(sent), nil
}
