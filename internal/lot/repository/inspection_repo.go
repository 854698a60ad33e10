package repository

import (
	"context"
	"errors"

	"github.com/weftlab/texpass/internal/lot/entity"
	"gorm.io/gorm"
)

// InspectionRepository 检验仓库
type InspectionRepository struct {
	db *gorm.DB
}

func NewInspectionRepository(db *gorm.DB) *InspectionRepository {
	return &InspectionRepository{db: db}
}

// FindByLot 查询批次的检验记录，按创建时间排列，预加载缺陷
func (r *InspectionRepository) FindByLot(ctx context.Context, tenantID, lotID string) ([]entity.Inspection, error) {
	var items []entity.Inspection
	err := r.db.WithContext(ctx).
		Preload("Defects", func(db *gorm.DB) *gorm.DB {
			return db.Order("inspection_defects.created_at ASC")
		}).
		Where("lot_id = ? AND tenant_id = ?", lotID, tenantID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// FindByID 根据ID查找检验（租户隔离）
func (r *InspectionRepository) FindByID(ctx context.Context, tenantID, id string) (*entity.Inspection, error) {
	var inspection entity.Inspection
	err := r.db.WithContext(ctx).
		Preload("Defects").
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&inspection).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inspection, nil
}

// Create 创建检验
func (r *InspectionRepository) Create(ctx context.Context, inspection *entity.Inspection) error {
	return r.db.WithContext(ctx).Create(inspection).Error
}

// Update 更新检验
func (r *InspectionRepository) Update(ctx context.Context, inspection *entity.Inspection) error {
	return r.db.WithContext(ctx).Save(inspection).Error
}

// CreateDefect 创建缺陷记录
func (r *InspectionRepository) CreateDefect(ctx context.Context, defect *entity.InspectionDefect) error {
	return r.db.WithContext(ctx).Create(defect).Error
}
