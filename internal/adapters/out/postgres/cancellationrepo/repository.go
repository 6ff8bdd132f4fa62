// Package cancellationrepo stores the cancellation ledger: one row per
// cancelled order, written in the same transaction as the transition.
package cancellationrepo

import (
	"context"
	"errors"
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/ledger"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/pkg/errs"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CancellationDTO struct {
	OrderID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Kind            string    `gorm:"not null"`
	FromState       int       `gorm:"not null"`
	CancelledBy     string    `gorm:"not null"`
	RejectionReason string
	Reason          string
	RefundEligible  bool            `gorm:"not null;index"`
	RefundAmount    decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	RecordedAt      time.Time       `gorm:"not null"`
}

func (CancellationDTO) TableName() string {
	return "order_cancellations"
}

type GormCancellationRepository struct {
	db *gorm.DB
}

func NewGormCancellationRepository(db *gorm.DB) *GormCancellationRepository {
	return &GormCancellationRepository{db: db}
}

func (r *GormCancellationRepository) Add(ctx context.Context, entry ledger.Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	dto := CancellationDTO{
		OrderID:         entry.OrderID().Bytes(),
		Kind:            string(entry.Kind()),
		FromState:       int(entry.From()),
		CancelledBy:     string(entry.CancelledBy()),
		RejectionReason: string(entry.RejectionReason()),
		Reason:          entry.Reason(),
		RefundEligible:  entry.RefundEligible(),
		RefundAmount:    entry.RefundAmount().Decimal(),
		RecordedAt:      entry.RecordedAt(),
	}
	if err := r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.NewObjectAlreadyExistsError("cancellation", entry.OrderID().String())
		}
		return err
	}
	return nil
}

func (r *GormCancellationRepository) Get(ctx context.Context, orderID kernel.UUID) (ledger.Entry, error) {
	var dto CancellationDTO
	if err := r.db.WithContext(ctx).First(&dto, "order_id = ?", orderID.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledger.Entry{}, errs.NewObjectNotFoundError("cancellation", orderID.String())
		}
		return ledger.Entry{}, err
	}

	amount, err := kernel.NewMoney(dto.RefundAmount)
	if err != nil {
		return ledger.Entry{}, err
	}

	return ledger.NewEntry(
		orderID,
		order.CancellationKind(dto.Kind),
		order.State(dto.FromState),
		order.Party(dto.CancelledBy),
		order.RejectionReason(dto.RejectionReason),
		dto.Reason,
		dto.RefundEligible,
		amount,
		dto.RecordedAt,
	)
}
