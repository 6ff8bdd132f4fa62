package commands

import (
	"context"
	"time"

	"fulfillment/internal/core/domain/model/ledger"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/pkg/outbox"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

type orderCreatedPayload struct {
	OrderID         string    `json:"orderId"`
	CounterpartyRef string    `json:"counterpartyRef"`
	TotalAmount     string    `json:"totalAmount"`
	RequiresOTP     bool      `json:"requiresOtpHandover"`
	CreatedAt       time.Time `json:"createdAt"`
}

type orderTransitionedPayload struct {
	OrderID string    `json:"orderId"`
	Action  string    `json:"action"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	Actor   string    `json:"actor"`
	Seq     int       `json:"seq"`
	At      time.Time `json:"at"`
}

type handoverCodeIssuedPayload struct {
	OrderID         string    `json:"orderId"`
	CounterpartyRef string    `json:"counterpartyRef"`
	Code            string    `json:"code"`
	IssuedAt        time.Time `json:"issuedAt"`
}

type refundRequestedPayload struct {
	OrderID     string    `json:"orderId"`
	Amount      string    `json:"amount"`
	Reason      string    `json:"reason"`
	CancelledBy string    `json:"cancelledBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

type orderCompletedPayload struct {
	OrderID         string    `json:"orderId"`
	CounterpartyRef string    `json:"counterpartyRef"`
	TotalAmount     string    `json:"totalAmount"`
	CompletedAt     time.Time `json:"completedAt"`
}

// traceHeaders carries the active trace context into the outbox so the relay
// can continue it on the broker.
func traceHeaders(ctx context.Context) map[string]string {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	if len(carrier) == 0 {
		return nil
	}
	return carrier
}

func orderCreatedEvent(ctx context.Context, o *order.Order) (outbox.Event, error) {
	return outbox.NewEvent(o.ID().String(), outbox.TypeOrderCreated, orderCreatedPayload{
		OrderID:         o.ID().String(),
		CounterpartyRef: o.CounterpartyRef(),
		TotalAmount:     o.TotalAmount().String(),
		RequiresOTP:     o.RequiresOTPHandover(),
		CreatedAt:       o.CreatedAt(),
	}, traceHeaders(ctx), o.CreatedAt())
}

func orderTransitionedEvent(ctx context.Context, o *order.Order, entry order.AuditEntry) (outbox.Event, error) {
	return outbox.NewEvent(o.ID().String(), outbox.TypeOrderTransitioned, orderTransitionedPayload{
		OrderID: o.ID().String(),
		Action:  entry.Action().String(),
		From:    entry.From().String(),
		To:      entry.To().String(),
		Actor:   entry.Actor().String(),
		Seq:     entry.Seq(),
		At:      entry.At(),
	}, traceHeaders(ctx), entry.At())
}

func handoverCodeIssuedEvent(ctx context.Context, o *order.Order) (outbox.Event, error) {
	code := o.HandoverCode()
	return outbox.NewEvent(o.ID().String(), outbox.TypeHandoverCodeIssued, handoverCodeIssuedPayload{
		OrderID:         o.ID().String(),
		CounterpartyRef: o.CounterpartyRef(),
		Code:            code.Value(),
		IssuedAt:        code.IssuedAt(),
	}, traceHeaders(ctx), code.IssuedAt())
}

func refundRequestedEvent(ctx context.Context, intent ledger.RefundIntent) (outbox.Event, error) {
	return outbox.NewEvent(intent.OrderID.String(), outbox.TypeOrderRefundRequested, refundRequestedPayload{
		OrderID:     intent.OrderID.String(),
		Amount:      intent.Amount.String(),
		Reason:      intent.Reason,
		CancelledBy: string(intent.CancelledBy),
		CreatedAt:   intent.CreatedAt,
	}, traceHeaders(ctx), intent.CreatedAt)
}

func orderCompletedEvent(ctx context.Context, o *order.Order) (outbox.Event, error) {
	return outbox.NewEvent(o.ID().String(), outbox.TypeOrderCompleted, orderCompletedPayload{
		OrderID:         o.ID().String(),
		CounterpartyRef: o.CounterpartyRef(),
		TotalAmount:     o.TotalAmount().String(),
		CompletedAt:     o.UpdatedAt(),
	}, traceHeaders(ctx), o.UpdatedAt())
}
