package orderrepo

import (
	"context"
	"errors"
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/ledger"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/core/ports"
	"fulfillment/internal/pkg/errs"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormOrderReadModel serves the query side straight from committed rows. It
// never locks, so reads do not wait for transitions in flight.
type GormOrderReadModel struct {
	db *gorm.DB
}

func NewGormOrderReadModel(db *gorm.DB) *GormOrderReadModel {
	return &GormOrderReadModel{db: db}
}

var _ ports.OrderReadModel = (*GormOrderReadModel)(nil)

func (r *GormOrderReadModel) ListSummaries(ctx context.Context) ([]ports.OrderSummary, error) {
	rows, err := r.db.WithContext(ctx).Raw(`
		SELECT
			id,
			counterparty_ref,
			state,
			total_amount,
			requires_otp,
			created_at,
			updated_at
		FROM orders
		ORDER BY updated_at DESC, id
	`).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]ports.OrderSummary, 0)
	for rows.Next() {
		var (
			id          uuid.UUID
			summary     ports.OrderSummary
			state       int
			totalAmount decimal.Decimal
		)
		if err = rows.Scan(
			&id,
			&summary.CounterpartyRef,
			&state,
			&totalAmount,
			&summary.RequiresOTP,
			&summary.CreatedAt,
			&summary.UpdatedAt,
		); err != nil {
			return nil, err
		}

		if summary.ID, err = kernel.UUIDFromBytes(id[:]); err != nil {
			return nil, err
		}
		summary.State = order.State(state)
		if summary.TotalAmount, err = kernel.NewMoney(totalAmount); err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}

func (r *GormOrderReadModel) GetOrder(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto OrderDTO
	if err := r.db.WithContext(ctx).First(&dto, "id = ?", id.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("order", id.String())
		}
		return nil, err
	}

	return loadChildren(ctx, r.db, dto)
}

func (r *GormOrderReadModel) ListRefundIntents(ctx context.Context) ([]ledger.RefundIntent, error) {
	rows, err := r.db.WithContext(ctx).Raw(`
		SELECT
			order_id,
			refund_amount,
			reason,
			cancelled_by,
			recorded_at
		FROM order_cancellations
		WHERE refund_eligible
		ORDER BY recorded_at DESC
	`).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	intents := make([]ledger.RefundIntent, 0)
	for rows.Next() {
		var (
			id          uuid.UUID
			amount      decimal.Decimal
			reason      string
			cancelledBy string
			recordedAt  time.Time
		)
		if err = rows.Scan(&id, &amount, &reason, &cancelledBy, &recordedAt); err != nil {
			return nil, err
		}

		orderID, idErr := kernel.UUIDFromBytes(id[:])
		if idErr != nil {
			return nil, idErr
		}
		money, moneyErr := kernel.NewMoney(amount)
		if moneyErr != nil {
			return nil, moneyErr
		}
		intents = append(intents, ledger.RefundIntent{
			OrderID:     orderID,
			Amount:      money,
			Reason:      reason,
			CancelledBy: order.Party(cancelledBy),
			CreatedAt:   recordedAt,
		})
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return intents, nil
}
