// Package outbox holds the event envelope written next to state changes and
// relayed to the broker afterwards.
package outbox

import (
	"encoding/json"
	"fmt"
	"time"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Event types emitted by the fulfillment service.
const (
	TypeOrderCreated         = "order.created"
	TypeOrderTransitioned    = "order.transitioned"
	TypeHandoverCodeIssued   = "order.handover_code_issued"
	TypeOrderRefundRequested = "order.refund_requested"
	TypeOrderCompleted       = "order.completed"
)

// AggregateTypeOrder is the only aggregate that emits events.
const AggregateTypeOrder = "order"

// MaxAttempts is how many failed publishes an event gets before the relay gives up on it.
const MaxAttempts = 5

type Event struct {
	ID            int64
	AggregateType string
	AggregateID   string
	Type          string
	Payload       []byte
	Headers       map[string]string
	CreatedAt     time.Time
	Status        Status
	RetryCount    int
	LastError     *string
}

// NewEvent marshals payload as JSON into a pending event.
func NewEvent(aggregateID, eventType string, payload any, headers map[string]string, at time.Time) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		AggregateType: AggregateTypeOrder,
		AggregateID:   aggregateID,
		Type:          eventType,
		Payload:       data,
		Headers:       headers,
		CreatedAt:     at,
		Status:        StatusPending,
	}, nil
}
