package orderrepo

import (
	"context"
	"errors"
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/pkg/errs"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository is the write-side order store. Get takes no row lock;
// Update only applies when the stored version is still the one the order was
// loaded at. Of two transitions racing on the same order, the second UPDATE
// waits for the first to commit, then matches no row and fails with
// ErrConcurrentModification.
type GormOrderRepository struct {
	db      *gorm.DB
	tracker writeTracker
}

// writeTracker learns about every order written, so the unit of work can mark
// it persisted after commit.
type writeTracker interface {
	TrackOrder(o *order.Order)
}

func NewGormOrderRepository(db *gorm.DB, tracker writeTracker) *GormOrderRepository {
	return &GormOrderRepository{
		db:      db,
		tracker: tracker,
	}
}

func (r *GormOrderRepository) Add(ctx context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	db := r.db.WithContext(ctx)

	if err := db.Omit(clause.Associations).Create(&dto).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.NewObjectAlreadyExistsError("order", aggregate.ID().String())
		}
		return err
	}

	if err := db.Create(&dto.Items).Error; err != nil {
		return err
	}

	if err := r.appendAudit(ctx, dto.ID, aggregate.History()); err != nil {
		return err
	}

	r.tracker.TrackOrder(aggregate)
	return nil
}

func (r *GormOrderRepository) Update(ctx context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	result := r.db.WithContext(ctx).
		Model(&OrderDTO{}).
		Where("id = ? AND version = ?", dto.ID, aggregate.StoredVersion()).
		Select("*").
		Omit(clause.Associations, "id", "created_at", "counterparty_ref").
		Updates(&dto)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&OrderDTO{}).Where("id = ?", dto.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return errs.NewObjectNotFoundError("order", aggregate.ID().String())
		}
		return errs.NewConcurrentModificationError("order", aggregate.ID().String(), aggregate.StoredVersion())
	}

	if err := r.appendAudit(ctx, dto.ID, aggregate.NewAuditEntries()); err != nil {
		return err
	}

	r.tracker.TrackOrder(aggregate)
	return nil
}

// appendAudit inserts entries; a duplicate (order_id, seq) means another
// writer already appended that step.
func (r *GormOrderRepository) appendAudit(ctx context.Context, orderID uuid.UUID, entries []order.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}
	dtos := auditFromDomain(orderID, entries)
	if err := r.db.WithContext(ctx).Create(&dtos).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.NewConcurrentModificationError("order", orderID.String(), int64(entries[0].Seq()-1))
		}
		return err
	}
	return nil
}

func (r *GormOrderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto OrderDTO
	err := r.db.WithContext(ctx).First(&dto, "id = ?", id.Bytes()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("order", id.String())
		}
		return nil, err
	}

	return loadChildren(ctx, r.db, dto)
}

// GetAllWithActiveCodeIssuedBefore skips orders locked by an in-flight
// transition; they are picked up on a later run.
func (r *GormOrderRepository) GetAllWithActiveCodeIssuedBefore(ctx context.Context, before time.Time) ([]*order.Order, error) {
	var dtos []OrderDTO
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("state = ? AND handover_status = ? AND handover_issued_at <= ?",
			int(order.ReadyForPickup), int(order.CodeActive), before).
		Order("handover_issued_at").
		Find(&dtos).Error
	if err != nil {
		return nil, err
	}

	orders := make([]*order.Order, 0, len(dtos))
	for _, dto := range dtos {
		o, loadErr := loadChildren(ctx, r.db, dto)
		if loadErr != nil {
			return nil, loadErr
		}
		orders = append(orders, o)
	}

	return orders, nil
}

func loadChildren(ctx context.Context, db *gorm.DB, dto OrderDTO) (*order.Order, error) {
	if err := db.WithContext(ctx).Where("order_id = ?", dto.ID).Order("position").Find(&dto.Items).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Where("order_id = ?", dto.ID).Order("seq").Find(&dto.History).Error; err != nil {
		return nil, err
	}
	return toDomain(dto)
}
