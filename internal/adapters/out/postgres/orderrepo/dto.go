package orderrepo

import (
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderDTO is the orders row. Items and audit entries live in their own
// tables; total_amount is a copy for read projections and is recomputed from
// the items on load.
type OrderDTO struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CounterpartyRef string          `gorm:"not null"`
	State           int             `gorm:"not null;index"`
	RequiresOTP     bool            `gorm:"not null"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Handover        HandoverDTO     `gorm:"embedded;embeddedPrefix:handover_"`
	Cancellation    CancellationDTO `gorm:"embedded;embeddedPrefix:cancellation_"`
	CreatedAt       time.Time       `gorm:"not null;autoCreateTime:false"`
	UpdatedAt       time.Time       `gorm:"not null;autoUpdateTime:false"`
	Version         int64           `gorm:"not null"`

	Items   []ItemDTO       `gorm:"foreignKey:OrderID"`
	History []AuditEntryDTO `gorm:"foreignKey:OrderID"`
}

func (OrderDTO) TableName() string {
	return "orders"
}

type HandoverDTO struct {
	Code     string
	Status   *int       `gorm:"index:idx_orders_active_code,priority:1"`
	IssuedAt *time.Time `gorm:"index:idx_orders_active_code,priority:2"`
	ClosedAt *time.Time
}

type CancellationDTO struct {
	Kind            *string
	FromState       *int
	CancelledBy     *string
	RejectionReason *string
	Reason          *string
	At              *time.Time
}

type ItemDTO struct {
	ID         uint64          `gorm:"primaryKey;autoIncrement"`
	OrderID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position   int             `gorm:"not null"`
	ProductRef string          `gorm:"not null"`
	Quantity   int             `gorm:"not null"`
	UnitPrice  decimal.Decimal `gorm:"type:numeric(14,2);not null"`
}

func (ItemDTO) TableName() string {
	return "order_items"
}

// AuditEntryDTO is append-only and keyed by (order_id, seq).
type AuditEntryDTO struct {
	OrderID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	Seq         int       `gorm:"primaryKey"`
	Action      string    `gorm:"not null"`
	ActorID     string    `gorm:"not null"`
	ActorParty  string    `gorm:"not null"`
	FromState   int       `gorm:"not null"`
	ToState     int       `gorm:"not null"`
	At          time.Time `gorm:"not null"`
	EvidenceRef string
}

func (AuditEntryDTO) TableName() string {
	return "order_audit"
}

func fromDomain(o *order.Order) OrderDTO {
	dto := OrderDTO{
		ID:              o.ID().Bytes(),
		CounterpartyRef: o.CounterpartyRef(),
		State:           int(o.State()),
		RequiresOTP:     o.RequiresOTPHandover(),
		TotalAmount:     o.TotalAmount().Decimal(),
		CreatedAt:       o.CreatedAt(),
		UpdatedAt:       o.UpdatedAt(),
		Version:         o.Version(),
	}

	if code := o.HandoverCode(); code != nil {
		status := int(code.Status())
		issuedAt := code.IssuedAt()
		dto.Handover = HandoverDTO{
			Code:     code.Value(),
			Status:   &status,
			IssuedAt: &issuedAt,
			ClosedAt: code.ClosedAt(),
		}
	}

	if c := o.Cancellation(); c != nil {
		kind := string(c.Kind)
		from := int(c.From)
		by := string(c.CancelledBy)
		reason := c.Reason
		at := c.At
		dto.Cancellation = CancellationDTO{
			Kind:        &kind,
			FromState:   &from,
			CancelledBy: &by,
			Reason:      &reason,
			At:          &at,
		}
		if c.RejectionReason != "" {
			rr := string(c.RejectionReason)
			dto.Cancellation.RejectionReason = &rr
		}
	}

	for i, item := range o.Items() {
		dto.Items = append(dto.Items, ItemDTO{
			OrderID:    dto.ID,
			Position:   i,
			ProductRef: item.ProductRef(),
			Quantity:   item.Quantity(),
			UnitPrice:  item.UnitPrice().Decimal(),
		})
	}

	return dto
}

func auditFromDomain(orderID uuid.UUID, entries []order.AuditEntry) []AuditEntryDTO {
	dtos := make([]AuditEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, AuditEntryDTO{
			OrderID:     orderID,
			Seq:         e.Seq(),
			Action:      e.Action().String(),
			ActorID:     e.Actor().ID(),
			ActorParty:  string(e.Actor().Party()),
			FromState:   int(e.From()),
			ToState:     int(e.To()),
			At:          e.At(),
			EvidenceRef: e.EvidenceRef(),
		})
	}
	return dtos
}

func toDomain(dto OrderDTO) (*order.Order, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}

	items := make([]order.Item, 0, len(dto.Items))
	for _, itemDTO := range dto.Items {
		price, priceErr := kernel.NewMoney(itemDTO.UnitPrice)
		if priceErr != nil {
			return nil, priceErr
		}
		item, itemErr := order.NewItem(itemDTO.ProductRef, itemDTO.Quantity, price)
		if itemErr != nil {
			return nil, itemErr
		}
		items = append(items, item)
	}

	var handover *order.HandoverCode
	if dto.Handover.Status != nil && dto.Handover.IssuedAt != nil {
		handover, err = order.RestoreHandoverCode(
			dto.Handover.Code,
			*dto.Handover.IssuedAt,
			order.CodeStatus(*dto.Handover.Status),
			dto.Handover.ClosedAt,
		)
		if err != nil {
			return nil, err
		}
	}

	var cancellation *order.Cancellation
	if c := dto.Cancellation; c.Kind != nil {
		cancellation = &order.Cancellation{
			Kind:        order.CancellationKind(*c.Kind),
			From:        order.State(deref(c.FromState)),
			CancelledBy: order.Party(deref(c.CancelledBy)),
			Reason:      deref(c.Reason),
			At:          deref(c.At),
		}
		if c.RejectionReason != nil {
			cancellation.RejectionReason = order.RejectionReason(*c.RejectionReason)
		}
	}

	history := make([]order.AuditEntry, 0, len(dto.History))
	for _, e := range dto.History {
		actor, actorErr := order.NewActor(e.ActorID, order.Party(e.ActorParty))
		if actorErr != nil {
			return nil, actorErr
		}
		history = append(history, order.RestoreAuditEntry(
			e.Seq, order.Action(e.Action), actor, order.State(e.FromState), order.State(e.ToState), e.At, e.EvidenceRef,
		))
	}

	return order.Restore(order.Snapshot{
		ID:              id,
		CounterpartyRef: dto.CounterpartyRef,
		Items:           items,
		State:           order.State(dto.State),
		RequiresOTP:     dto.RequiresOTP,
		Handover:        handover,
		Cancellation:    cancellation,
		CreatedAt:       dto.CreatedAt,
		UpdatedAt:       dto.UpdatedAt,
		History:         history,
		Version:         dto.Version,
	})
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
