// Package outboxrepo is the transactional outbox on Postgres.
package outboxrepo

import (
	"context"
	"time"

	"fulfillment/internal/pkg/outbox"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EventDTO struct {
	ID            int64             `gorm:"primaryKey;autoIncrement"`
	AggregateType string            `gorm:"not null"`
	AggregateID   string            `gorm:"not null;index"`
	Type          string            `gorm:"not null"`
	Payload       []byte            `gorm:"type:bytea;not null"`
	Headers       map[string]string `gorm:"type:jsonb;serializer:json"`
	Status        string            `gorm:"not null;index"`
	RetryCount    int               `gorm:"not null;default:0"`
	LastError     *string
	CreatedAt     time.Time `gorm:"not null;autoCreateTime:false"`
	SentAt        *time.Time
}

func (EventDTO) TableName() string {
	return "outbox"
}

type GormOutboxRepository struct {
	db *gorm.DB
}

func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

func (r *GormOutboxRepository) Add(ctx context.Context, events ...outbox.Event) error {
	if len(events) == 0 {
		return nil
	}
	dtos := make([]EventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, EventDTO{
			AggregateType: e.AggregateType,
			AggregateID:   e.AggregateID,
			Type:          e.Type,
			Payload:       e.Payload,
			Headers:       e.Headers,
			Status:        string(outbox.StatusPending),
			CreatedAt:     e.CreatedAt,
		})
	}
	return r.db.WithContext(ctx).Create(&dtos).Error
}

// LockPending must run inside a transaction; the rows stay locked until it ends.
func (r *GormOutboxRepository) LockPending(ctx context.Context, limit int) ([]outbox.Event, error) {
	var dtos []EventDTO
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", string(outbox.StatusPending)).
		Order("id").
		Limit(limit).
		Find(&dtos).Error
	if err != nil {
		return nil, err
	}

	events := make([]outbox.Event, 0, len(dtos))
	for _, dto := range dtos {
		events = append(events, outbox.Event{
			ID:            dto.ID,
			AggregateType: dto.AggregateType,
			AggregateID:   dto.AggregateID,
			Type:          dto.Type,
			Payload:       dto.Payload,
			Headers:       dto.Headers,
			CreatedAt:     dto.CreatedAt,
			Status:        outbox.Status(dto.Status),
			RetryCount:    dto.RetryCount,
			LastError:     dto.LastError,
		})
	}
	return events, nil
}

func (r *GormOutboxRepository) MarkSent(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&EventDTO{}).
		Where("id IN ?", ids).
		Updates(map[string]any{"status": string(outbox.StatusSent), "sent_at": time.Now().UTC()}).Error
}

func (r *GormOutboxRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	return r.db.WithContext(ctx).
		Model(&EventDTO{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"retry_count": gorm.Expr("retry_count + 1"),
			"last_error":  reason,
			"status": gorm.Expr("CASE WHEN retry_count + 1 >= ? THEN ? ELSE ? END",
				outbox.MaxAttempts, string(outbox.StatusFailed), string(outbox.StatusPending)),
		}).Error
}
