package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/core/domain/services"
	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/metrics"
	"fulfillment/internal/pkg/outbox"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RequestTransitionCommandHandler is the single authority over order state.
// For one request it loads the order under the per-order lock, runs the guard
// and the transition, and commits the new state together with the audit
// entry, the ledger entry and the outbox events. A refused request changes
// nothing.
//
// Example:
//
//	handler := NewRequestTransitionCommandHandler(uowFactory, services.NewRandomCodeGenerator(), nil, m, logger)
//	o, err := handler.Handle(ctx, cmd)
//	switch {
//	case errors.Is(err, order.ErrInvalidTransition):
//	    // already applied, or not legal from the current state
//	case errors.Is(err, errs.ErrConcurrentModification):
//	    // re-read and retry
//	}
type RequestTransitionCommandHandler struct {
	uowFactory UoWFactory
	codes      order.CodeGenerator
	verifier   services.HandoverVerifier
	ledger     services.CancellationLedger
	clock      Clock
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	logger     *slog.Logger
}

func NewRequestTransitionCommandHandler(
	uowFactory UoWFactory,
	codes order.CodeGenerator,
	clock Clock,
	m *metrics.Metrics,
	logger *slog.Logger,
) RequestTransitionCommandHandler {
	return RequestTransitionCommandHandler{
		uowFactory: uowFactory,
		codes:      codes,
		verifier:   services.NewHandoverVerifier(),
		ledger:     services.NewCancellationLedger(),
		clock:      clock,
		metrics:    m,
		tracer:     otel.Tracer("fulfillment/commands"),
		logger:     logger.With("component", "state-machine"),
	}
}

// Handle returns the order as committed.
func (h RequestTransitionCommandHandler) Handle(ctx context.Context, cmd RequestTransitionCommand) (*order.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	ctx, span := h.tracer.Start(ctx, "RequestTransition", trace.WithAttributes(
		attribute.String("order.id", cmd.OrderID().String()),
		attribute.String("order.action", cmd.Action().String()),
		attribute.String("actor.party", string(cmd.Actor().Party())),
	))
	defer span.End()

	start := time.Now()
	o, err := h.handle(ctx, cmd)
	h.metrics.TransitionLatency.WithLabelValues(cmd.Action().String()).Observe(time.Since(start).Seconds())

	outcome := outcomeOf(err)
	h.metrics.Transitions.WithLabelValues(cmd.Action().String(), outcome).Inc()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		h.logger.InfoContext(ctx, "transition not applied",
			"order_id", cmd.OrderID().String(),
			"action", cmd.Action().String(),
			"actor", cmd.Actor().String(),
			"outcome", outcome,
			"err", err,
		)
		return nil, err
	}

	last, _ := o.LastTransition()
	span.SetAttributes(attribute.String("order.state", o.State().String()))
	h.logger.InfoContext(ctx, "transition applied",
		"order_id", o.ID().String(),
		"action", cmd.Action().String(),
		"from", last.From().String(),
		"to", last.To().String(),
		"seq", last.Seq(),
		"actor", cmd.Actor().String(),
	)
	return o, nil
}

func (h RequestTransitionCommandHandler) handle(ctx context.Context, cmd RequestTransitionCommand) (*order.Order, error) {
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
	if expected := cmd.ExpectedVersion(); expected != 0 && o.Version() != expected {
		return nil, errs.NewConcurrentModificationError("order", o.ID().String(), expected)
	}

	at := h.clock.now()
	if err = o.Apply(cmd.Action(), cmd.Actor(), cmd.Evidence(), h.codes, h.verifier, at); err != nil {
		return nil, err
	}

	if err = orderRepo.Update(ctx, o); err != nil {
		return nil, err
	}

	events, err := h.sideEffects(ctx, uow, o, at)
	if err != nil {
		return nil, err
	}

	if err = uow.OutboxRepository().Add(ctx, events...); err != nil {
		return nil, err
	}

	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}

	return o, nil
}

// sideEffects records the ledger entry of a cancelled order and builds the
// events announcing the transition.
func (h RequestTransitionCommandHandler) sideEffects(
	ctx context.Context,
	uow UoW,
	o *order.Order,
	at time.Time,
) ([]outbox.Event, error) {
	last, _ := o.LastTransition()

	event, err := orderTransitionedEvent(ctx, o, last)
	if err != nil {
		return nil, err
	}
	events := []outbox.Event{event}

	switch o.State() {
	case order.ReadyForPickup:
		if o.HandoverOTP() != "" {
			if event, err = handoverCodeIssuedEvent(ctx, o); err != nil {
				return nil, err
			}
			events = append(events, event)
			h.metrics.HandoverCodesIssued.Inc()
		}

	case order.Completed:
		if event, err = orderCompletedEvent(ctx, o); err != nil {
			return nil, err
		}
		events = append(events, event)

	case order.Cancelled:
		entry, intent, err := h.ledger.Record(o, at)
		if err != nil {
			return nil, err
		}
		if err = uow.CancellationRepository().Add(ctx, entry); err != nil {
			return nil, err
		}
		if intent != nil {
			if event, err = refundRequestedEvent(ctx, *intent); err != nil {
				return nil, err
			}
			events = append(events, event)
			h.metrics.RefundIntents.Inc()
		}
	}

	return events, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeApplied
	case errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, order.ErrMissingEvidence),
		errors.Is(err, order.ErrEvidenceRejected):
		return metrics.OutcomeRefused
	case errors.Is(err, errs.ErrConcurrentModification):
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeError
	}
}
