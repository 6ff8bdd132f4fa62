package commands

import (
	"context"
	"log/slog"

	"fulfillment/internal/core/domain/model/order"
)

// CreateOrderCommandHandler stores a new order in New and announces it.
type CreateOrderCommandHandler struct {
	uowFactory          UoWFactory
	requireOTPByDefault bool
	clock               Clock
	logger              *slog.Logger
}

func NewCreateOrderCommandHandler(
	uowFactory UoWFactory,
	requireOTPByDefault bool,
	clock Clock,
	logger *slog.Logger,
) CreateOrderCommandHandler {
	return CreateOrderCommandHandler{
		uowFactory:          uowFactory,
		requireOTPByDefault: requireOTPByDefault,
		clock:               clock,
		logger:              logger.With("component", "create-order"),
	}
}

// Handle fails with errs.ErrObjectAlreadyExists when the id is taken.
func (h CreateOrderCommandHandler) Handle(ctx context.Context, cmd CreateOrderCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	requiresOTP := h.requireOTPByDefault
	if cmd.RequiresOTP() != nil {
		requiresOTP = *cmd.RequiresOTP()
	}

	o, err := order.NewOrder(cmd.OrderID(), cmd.CounterpartyRef(), cmd.Items(), requiresOTP, h.clock.now())
	if err != nil {
		return err
	}

	event, err := orderCreatedEvent(ctx, o)
	if err != nil {
		return err
	}

	uow := h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err = uow.OrderRepository().Add(ctx, o); err != nil {
		return err
	}

	if err = uow.OutboxRepository().Add(ctx, event); err != nil {
		return err
	}

	if err = uow.Commit(ctx); err != nil {
		return err
	}

	h.logger.InfoContext(ctx, "order created",
		"order_id", o.ID().String(),
		"total", o.TotalAmount().String(),
		"requires_otp", requiresOTP,
	)
	return nil
}
