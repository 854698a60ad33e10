package service

import (
	"github.com/weftlab/texpass/internal/lot/repository"
	"github.com/weftlab/texpass/internal/shared/storage"
	"gorm.io/gorm"
)

// Services 批次域服务集合
type Services struct {
	Catalog    *CatalogService
	Factory    *FactoryService
	Lot        *LotService
	Chain      *ChainService
	Approval   *ApprovalService
	Inspection *InspectionService
}

// NewServices 创建服务集合
func NewServices(db *gorm.DB, repos *repository.Repositories, store *storage.ObjectStorage) *Services {
	chainSvc := NewChainService(db)
	return &Services{
		Catalog:    NewCatalogService(repos.Role),
		Factory:    NewFactoryService(repos.Factory),
		Lot:        NewLotService(db, repos.Lot, repos.Factory, repos.Role, repos.LotFactory, chainSvc),
		Chain:      chainSvc,
		Approval:   NewApprovalService(db, repos.Approval),
		Inspection: NewInspectionService(db, repos.Inspection, repos.Lot, store),
	}
}
