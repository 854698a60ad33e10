package repository

import (
	"errors"

	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 仓库集合
type Repositories struct {
	Role       *RoleRepository
	Factory    *FactoryRepository
	Lot        *LotRepository
	LotFactory *LotFactoryRepository
	Approval   *ApprovalRepository
	Inspection *InspectionRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Role:       NewRoleRepository(db),
		Factory:    NewFactoryRepository(db),
		Lot:        NewLotRepository(db),
		LotFactory: NewLotFactoryRepository(db),
		Approval:   NewApprovalRepository(db),
		Inspection: NewInspectionRepository(db),
	}
}
