package http

import (
	"time"

	"fulfillment/internal/core/application/usecases/queries"
	"fulfillment/internal/core/domain/model/ledger"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/core/ports"

	"github.com/shopspring/decimal"
)

type Error struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
}

type NewItem struct {
	ProductRef string          `json:"productRef"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
}

// NewOrder is the body of POST /api/v1/orders. ID is optional; the caller
// may supply the marketplace order id to keep both systems in step.
type NewOrder struct {
	ID                  string    `json:"id,omitempty"`
	CounterpartyRef     string    `json:"counterpartyRef"`
	Items               []NewItem `json:"items"`
	RequiresOtpHandover *bool     `json:"requiresOtpHandover,omitempty"`
}

type Actor struct {
	ID    string `json:"id"`
	Party string `json:"party"`
}

type Evidence struct {
	RejectionReason    string `json:"rejectionReason,omitempty"`
	ReasonText         string `json:"reasonText,omitempty"`
	CancelledBy        string `json:"cancelledBy,omitempty"`
	CancellationReason string `json:"cancellationReason,omitempty"`
	OTP                string `json:"otp,omitempty"`
	RequireOtp         *bool  `json:"requireOtp,omitempty"`
}

// TransitionRequest is the body of POST /api/v1/orders/:id/transitions.
// ExpectedVersion may also be sent as an If-Match header.
type TransitionRequest struct {
	Action          string   `json:"action"`
	Actor           Actor    `json:"actor"`
	Evidence        Evidence `json:"evidence"`
	ExpectedVersion *int64   `json:"expectedVersion,omitempty"`
}

type ReissueRequest struct {
	Actor Actor `json:"actor"`
}

type Item struct {
	ProductRef string `json:"productRef"`
	Quantity   int    `json:"quantity"`
	UnitPrice  string `json:"unitPrice"`
	Subtotal   string `json:"subtotal"`
}

// HandoverCode never carries the code itself; it reaches the customer
// through the OTP delivery service only.
type HandoverCode struct {
	Status   string     `json:"status"`
	IssuedAt time.Time  `json:"issuedAt"`
	ClosedAt *time.Time `json:"closedAt,omitempty"`
}

type Cancellation struct {
	Kind            string    `json:"kind"`
	From            string    `json:"from"`
	CancelledBy     string    `json:"cancelledBy"`
	RejectionReason string    `json:"rejectionReason,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	At              time.Time `json:"at"`
}

type AuditEntry struct {
	Seq         int       `json:"seq"`
	Action      string    `json:"action"`
	Actor       Actor     `json:"actor"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	At          time.Time `json:"at"`
	EvidenceRef string    `json:"evidenceRef,omitempty"`
}

type Order struct {
	ID                  string        `json:"id"`
	CounterpartyRef     string        `json:"counterpartyRef"`
	State               string        `json:"state"`
	RequiresOtpHandover bool          `json:"requiresOtpHandover"`
	TotalAmount         string        `json:"totalAmount"`
	Items               []Item        `json:"items"`
	HandoverCode        *HandoverCode `json:"handoverCode,omitempty"`
	Cancellation        *Cancellation `json:"cancellation,omitempty"`
	Version             int64         `json:"version"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
	History             []AuditEntry  `json:"history"`
}

type OrderSummary struct {
	ID                  string    `json:"id"`
	CounterpartyRef     string    `json:"counterpartyRef"`
	State               string    `json:"state"`
	TotalAmount         string    `json:"totalAmount"`
	RequiresOtpHandover bool      `json:"requiresOtpHandover"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

type BoardTab struct {
	State  string         `json:"state"`
	Count  int            `json:"count"`
	Orders []OrderSummary `json:"orders"`
}

type Board struct {
	Tabs  []BoardTab `json:"tabs"`
	Total int        `json:"total"`
}

type RefundIntent struct {
	OrderID     string    `json:"orderId"`
	Amount      string    `json:"amount"`
	Reason      string    `json:"reason"`
	CancelledBy string    `json:"cancelledBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toOrder(o *order.Order) Order {
	resp := Order{
		ID:                  o.ID().String(),
		CounterpartyRef:     o.CounterpartyRef(),
		State:               o.State().String(),
		RequiresOtpHandover: o.RequiresOTPHandover(),
		TotalAmount:         o.TotalAmount().String(),
		Version:             o.Version(),
		CreatedAt:           o.CreatedAt(),
		UpdatedAt:           o.UpdatedAt(),
	}

	for _, item := range o.Items() {
		resp.Items = append(resp.Items, Item{
			ProductRef: item.ProductRef(),
			Quantity:   item.Quantity(),
			UnitPrice:  item.UnitPrice().String(),
			Subtotal:   item.Subtotal().String(),
		})
	}

	if code := o.HandoverCode(); code != nil {
		resp.HandoverCode = &HandoverCode{
			Status:   code.Status().String(),
			IssuedAt: code.IssuedAt(),
			ClosedAt: code.ClosedAt(),
		}
	}

	if c := o.Cancellation(); c != nil {
		resp.Cancellation = &Cancellation{
			Kind:            string(c.Kind),
			From:            c.From.String(),
			CancelledBy:     string(c.CancelledBy),
			RejectionReason: string(c.RejectionReason),
			Reason:          c.Reason,
			At:              c.At,
		}
	}

	resp.History = make([]AuditEntry, 0, len(o.History()))
	for _, e := range o.History() {
		resp.History = append(resp.History, AuditEntry{
			Seq:         e.Seq(),
			Action:      e.Action().String(),
			Actor:       Actor{ID: e.Actor().ID(), Party: string(e.Actor().Party())},
			From:        e.From().String(),
			To:          e.To().String(),
			At:          e.At(),
			EvidenceRef: e.EvidenceRef(),
		})
	}

	return resp
}

func toSummary(s ports.OrderSummary) OrderSummary {
	return OrderSummary{
		ID:                  s.ID.String(),
		CounterpartyRef:     s.CounterpartyRef,
		State:               s.State.String(),
		TotalAmount:         s.TotalAmount.String(),
		RequiresOtpHandover: s.RequiresOTP,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
}

func toBoard(b queries.GetOrderBoardQueryResponse) Board {
	resp := Board{Tabs: make([]BoardTab, len(b.Tabs)), Total: b.Total}
	for i, tab := range b.Tabs {
		orders := make([]OrderSummary, len(tab.Orders))
		for j, s := range tab.Orders {
			orders[j] = toSummary(s)
		}
		resp.Tabs[i] = BoardTab{State: tab.State.String(), Count: tab.Count, Orders: orders}
	}
	return resp
}

func toRefundIntents(intents []ledger.RefundIntent) []RefundIntent {
	resp := make([]RefundIntent, len(intents))
	for i, intent := range intents {
		resp[i] = RefundIntent{
			OrderID:     intent.OrderID.String(),
			Amount:      intent.Amount.String(),
			Reason:      intent.Reason,
			CancelledBy: string(intent.CancelledBy),
			CreatedAt:   intent.CreatedAt,
		}
	}
	return resp
}

func (a Actor) toDomain() (order.Actor, error) {
	return order.NewActor(a.ID, order.Party(a.Party))
}

func (e Evidence) toDomain() order.Evidence {
	return order.Evidence{
		RejectionReason:    order.RejectionReason(e.RejectionReason),
		RejectionNote:      e.ReasonText,
		CancelledBy:        order.Party(e.CancelledBy),
		CancellationReason: e.CancellationReason,
		OTP:                e.OTP,
		RequireOTP:         e.RequireOtp,
	}
}
