package repository

import (
	"context"

	"github.com/weftlab/texpass/internal/dpp/entity"
	"gorm.io/gorm"
)

// EventRepository 护照事件仓库（只追加）
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// FindByDpp 查询护照事件时间线，旧的在前
func (r *EventRepository) FindByDpp(ctx context.Context, dppID string) ([]entity.DppEvent, error) {
	var events []entity.DppEvent
	err := r.db.WithContext(ctx).
		Where("dpp_id = ?", dppID).
		Order("timestamp ASC, id ASC").
		Find(&events).Error
	return events, err
}

// Create 追加事件
func (r *EventRepository) Create(ctx context.Context, event *entity.DppEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}
