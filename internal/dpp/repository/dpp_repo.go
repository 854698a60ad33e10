package repository

import (
	"context"
	"errors"

	"github.com/weftlab/texpass/internal/dpp/entity"
	"gorm.io/gorm"
)

// DppRepository 护照仓库
type DppRepository struct {
	db *gorm.DB
}

func NewDppRepository(db *gorm.DB) *DppRepository {
	return &DppRepository{db: db}
}

// FindAll 查询护照列表
func (r *DppRepository) FindAll(ctx context.Context, tenantID string, page, pageSize int, filters map[string]string) ([]entity.Dpp, int64, error) {
	var items []entity.Dpp
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Dpp{}).Where("tenant_id = ?", tenantID)

	if search := filters["search"]; search != "" {
		query = query.Where("style_ref ILIKE ? OR product_sku ILIKE ? OR brand ILIKE ?",
			"%"+search+"%", "%"+search+"%", "%"+search+"%")
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找护照（租户隔离）
func (r *DppRepository) FindByID(ctx context.Context, tenantID, id string) (*entity.Dpp, error) {
	var dpp entity.Dpp
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&dpp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &dpp, nil
}

// FindPublished 公共端点查找：仅返回published状态，其余一律视为不存在
func (r *DppRepository) FindPublished(ctx context.Context, id string) (*entity.Dpp, error) {
	var dpp entity.Dpp
	err := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, entity.DppStatusPublished).
		First(&dpp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &dpp, nil
}

// Create 创建护照
func (r *DppRepository) Create(ctx context.Context, dpp *entity.Dpp) error {
	return r.db.WithContext(ctx).Create(dpp).Error
}

// Update 更新护照
func (r *DppRepository) Update(ctx context.Context, dpp *entity.Dpp) error {
	return r.db.WithContext(ctx).Save(dpp).Error
}
