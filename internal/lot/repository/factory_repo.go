package repository

import (
	"context"
	"errors"

	"github.com/weftlab/texpass/internal/lot/entity"
	"gorm.io/gorm"
)

// FactoryRepository 工厂仓库
type FactoryRepository struct {
	db *gorm.DB
}

func NewFactoryRepository(db *gorm.DB) *FactoryRepository {
	return &FactoryRepository{db: db}
}

// FindAll 查询工厂列表
func (r *FactoryRepository) FindAll(ctx context.Context, tenantID string, page, pageSize int, filters map[string]string) ([]entity.Factory, int64, error) {
	var items []entity.Factory
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Factory{}).Where("tenant_id = ?", tenantID)

	if search := filters["search"]; search != "" {
		query = query.Where("name ILIKE ? OR country ILIKE ?", "%"+search+"%", "%"+search+"%")
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

// FindByID 根据ID查找工厂（租户隔离）
func (r *FactoryRepository) FindByID(ctx context.Context, tenantID, id string) (*entity.Factory, error) {
	var factory entity.Factory
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&factory).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &factory, nil
}

// FindByIDs 批量查找工厂
func (r *FactoryRepository) FindByIDs(ctx context.Context, tenantID string, ids []string) ([]entity.Factory, error) {
	var factories []entity.Factory
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&factories).Error
	return factories, err
}

// Create 创建工厂
func (r *FactoryRepository) Create(ctx context.Context, factory *entity.Factory) error {
	return r.db.WithContext(ctx).Create(factory).Error
}

// Update 更新工厂
func (r *FactoryRepository) Update(ctx context.Context, factory *entity.Factory) error {
	return r.db.WithContext(ctx).Save(factory).Error
}

// Delete 删除工厂
func (r *FactoryRepository) Delete(ctx context.Context, tenantID, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Delete(&entity.Factory{}).Error
}
