package repository

import (
	"context"

	"github.com/weftlab/texpass/internal/dpp/entity"
	"gorm.io/gorm"
)

// AccessLogRepository 护照访问审计仓库（只追加）
type AccessLogRepository struct {
	db *gorm.DB
}

func NewAccessLogRepository(db *gorm.DB) *AccessLogRepository {
	return &AccessLogRepository{db: db}
}

// FindByDpp 查询护照访问日志，新的在前
func (r *AccessLogRepository) FindByDpp(ctx context.Context, dppID string, page, pageSize int) ([]entity.DppAccessLog, int64, error) {
	var items []entity.DppAccessLog
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.DppAccessLog{}).Where("dpp_id = ?", dppID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("timestamp DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error
	return items, total, err
}

// FindAllByDpp 查询护照全部访问日志（导出用）
func (r *AccessLogRepository) FindAllByDpp(ctx context.Context, dppID string) ([]entity.DppAccessLog, error) {
	var items []entity.DppAccessLog
	err := r.db.WithContext(ctx).
		Where("dpp_id = ?", dppID).
		Order("timestamp ASC").
		Find(&items).Error
	return items, err
}

// Create 追加访问日志
func (r *AccessLogRepository) Create(ctx context.Context, log *entity.DppAccessLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}
