package repository

import (
	"context"
	"errors"

	"github.com/weftlab/texpass/internal/lot/entity"
	"gorm.io/gorm"
)

// LotRepository 批次仓库
type LotRepository struct {
	db *gorm.DB
}

func NewLotRepository(db *gorm.DB) *LotRepository {
	return &LotRepository{db: db}
}

// FindAll 查询批次列表
func (r *LotRepository) FindAll(ctx context.Context, tenantID string, page, pageSize int, filters map[string]string) ([]entity.Lot, int64, error) {
	var items []entity.Lot
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Lot{}).Where("tenant_id = ?", tenantID)

	if search := filters["search"]; search != "" {
		query = query.Where("style_ref ILIKE ?", "%"+search+"%")
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

// FindByID 根据ID查找批次（租户隔离）
func (r *LotRepository) FindByID(ctx context.Context, tenantID, id string) (*entity.Lot, error) {
	var lot entity.Lot
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&lot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &lot, nil
}

// FindByIDWithSuppliers 查找批次并预加载供应商指派及其工序
func (r *LotRepository) FindByIDWithSuppliers(ctx context.Context, tenantID, id string) (*entity.Lot, error) {
	var lot entity.Lot
	err := r.db.WithContext(ctx).
		Preload("Suppliers", func(db *gorm.DB) *gorm.DB {
			return db.Order("lot_factories.sequence ASC, lot_factories.created_at ASC")
		}).
		Preload("Suppliers.Factory").
		Preload("Suppliers.Roles", func(db *gorm.DB) *gorm.DB {
			return db.Order("lot_factory_roles.sequence ASC, lot_factory_roles.created_at ASC, lot_factory_roles.id ASC")
		}).
		Preload("Suppliers.Roles.Role").
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&lot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &lot, nil
}

// Create 创建批次
func (r *LotRepository) Create(ctx context.Context, lot *entity.Lot) error {
	return r.db.WithContext(ctx).Create(lot).Error
}

// Update 更新批次
func (r *LotRepository) Update(ctx context.Context, lot *entity.Lot) error {
	return r.db.WithContext(ctx).Save(lot).Error
}

// UpdateStatus 更新批次状态
func (r *LotRepository) UpdateStatus(ctx context.Context, tenantID, id, status string) error {
	result := r.db.WithContext(ctx).
		Model(&entity.Lot{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateDefectRate 回写批次不良率
func (r *LotRepository) UpdateDefectRate(ctx context.Context, tenantID, id string, rate float64) error {
	return r.db.WithContext(ctx).
		Model(&entity.Lot{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Update("defect_rate", rate).Error
}

// Delete 删除批次
func (r *LotRepository) Delete(ctx context.Context, tenantID, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Delete(&entity.Lot{}).Error
}
