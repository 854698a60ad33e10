package repository

import (
	"context"

	"github.com/weftlab/texpass/internal/lot/entity"
	"gorm.io/gorm"
)

// LotFactoryRepository 批次供应商指派仓库
type LotFactoryRepository struct {
	db *gorm.DB
}

func NewLotFactoryRepository(db *gorm.DB) *LotFactoryRepository {
	return &LotFactoryRepository{db: db}
}

// FindByLot 查询批次的供应商指派，按链路顺序排列，预加载工厂与工序
func (r *LotFactoryRepository) FindByLot(ctx context.Context, tenantID, lotID string) ([]entity.LotFactory, error) {
	var items []entity.LotFactory
	err := r.db.WithContext(ctx).
		Preload("Factory").
		Preload("Roles", func(db *gorm.DB) *gorm.DB {
			return db.Order("lot_factory_roles.sequence ASC, lot_factory_roles.created_at ASC, lot_factory_roles.id ASC")
		}).
		Preload("Roles.Role").
		Where("lot_id = ? AND tenant_id = ?", lotID, tenantID).
		Order("sequence ASC, created_at ASC").
		Find(&items).Error
	return items, err
}

// DeleteByLot 删除批次的全部指派及工序（指派重写时使用，需在事务内调用）
func (r *LotFactoryRepository) DeleteByLot(ctx context.Context, tx *gorm.DB, tenantID, lotID string) error {
	var ids []string
	if err := tx.WithContext(ctx).
		Model(&entity.LotFactory{}).
		Where("lot_id = ? AND tenant_id = ?", lotID, tenantID).
		Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if err := tx.WithContext(ctx).
		Where("lot_factory_id IN ?", ids).
		Delete(&entity.LotFactoryRole{}).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&entity.LotFactory{}).Error
}
