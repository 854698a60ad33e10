package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/weftlab/texpass/internal/lot/entity"
	"github.com/weftlab/texpass/internal/lot/repository"
)

// CatalogService 供应链工序目录服务
type CatalogService struct {
	repo *repository.RoleRepository
}

// NewCatalogService 创建目录服务
func NewCatalogService(repo *repository.RoleRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

// ListRoles 获取工序目录
func (s *CatalogService) ListRoles(ctx context.Context) ([]entity.SupplyChainRole, error) {
	return s.repo.ListAll(ctx)
}

// GetRoleByKey 按key获取工序
func (s *CatalogService) GetRoleByKey(ctx context.Context, key string) (*entity.SupplyChainRole, error) {
	return s.repo.FindByKey(ctx, key)
}

// SeedDefaults 种子化默认纺织工序目录（幂等，启动时调用）
func (s *CatalogService) SeedDefaults(ctx context.Context) error {
	defaults := []struct {
		key   string
		name  string
		seq   int
		co2Kg float64
	}{
		{entity.RoleKeySpinning, "Spinning", 10, 2.1},
		{entity.RoleKeyDyeing, "Dyeing", 20, 3.8},
		{entity.RoleKeyWeaving, "Weaving", 30, 1.6},
		{entity.RoleKeyKnitting, "Knitting", 40, 1.4},
		{entity.RoleKeyPrinting, "Printing", 50, 0.9},
		{entity.RoleKeyCutting, "Cutting", 60, 0.3},
		{entity.RoleKeySewing, "Sewing", 70, 0.6},
		{entity.RoleKeyWashing, "Washing", 80, 1.2},
		{entity.RoleKeyQA, "Quality Assurance", 90, 0.1},
		{entity.RoleKeyPacking, "Packing", 100, 0.2},
	}

	roles := make([]entity.SupplyChainRole, 0, len(defaults))
	for _, d := range defaults {
		roles = append(roles, entity.SupplyChainRole{
			ID:              uuid.New().String()[:32],
			Key:             d.key,
			Name:            d.name,
			DefaultSequence: d.seq,
			DefaultCo2Kg:    d.co2Kg,
		})
	}
	return s.repo.Seed(ctx, roles)
}
