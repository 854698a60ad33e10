package repository

import (
	"context"
	"errors"

	"github.com/weftlab/texpass/internal/lot/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoleRepository 供应链工序目录仓库
type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// ListAll 按默认顺序返回全部工序
func (r *RoleRepository) ListAll(ctx context.Context) ([]entity.SupplyChainRole, error) {
	var roles []entity.SupplyChainRole
	err := r.db.WithContext(ctx).
		Order("default_sequence ASC, key ASC").
		Find(&roles).Error
	return roles, err
}

// FindByKey 按key查找工序
func (r *RoleRepository) FindByKey(ctx context.Context, key string) (*entity.SupplyChainRole, error) {
	var role entity.SupplyChainRole
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

// FindByIDs 批量查找工序
func (r *RoleRepository) FindByIDs(ctx context.Context, ids []string) ([]entity.SupplyChainRole, error) {
	var roles []entity.SupplyChainRole
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&roles).Error
	return roles, err
}

// Seed 幂等写入工序目录（已存在的key不覆盖）
func (r *RoleRepository) Seed(ctx context.Context, roles []entity.SupplyChainRole) error {
	if len(roles) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).
		Create(&roles).Error
}
