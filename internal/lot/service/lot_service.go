package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/weftlab/texpass/internal/lot/entity"
	"github.com/weftlab/texpass/internal/lot/repository"
	"gorm.io/gorm"
)

// ErrDuplicateRole 同一供应商在一次指派请求中重复列出同一工序
var ErrDuplicateRole = errors.New("duplicate role in supplier assignment")

// LotService 批次服务
type LotService struct {
	db             *gorm.DB
	repo           *repository.LotRepository
	factoryRepo    *repository.FactoryRepository
	roleRepo       *repository.RoleRepository
	lotFactoryRepo *repository.LotFactoryRepository
	chainSvc       *ChainService
}

// NewLotService 创建批次服务
func NewLotService(db *gorm.DB, repo *repository.LotRepository, factoryRepo *repository.FactoryRepository,
	roleRepo *repository.RoleRepository, lotFactoryRepo *repository.LotFactoryRepository, chainSvc *ChainService) *LotService {
	return &LotService{
		db:             db,
		repo:           repo,
		factoryRepo:    factoryRepo,
		roleRepo:       roleRepo,
		lotFactoryRepo: lotFactoryRepo,
		chainSvc:       chainSvc,
	}
}

// ListLots 获取批次列表
func (s *LotService) ListLots(ctx context.Context, tenantID string, page, pageSize int, filters map[string]string) ([]entity.Lot, int64, error) {
	return s.repo.FindAll(ctx, tenantID, page, pageSize, filters)
}

// GetLot 获取批次详情（含供应商指派）
func (s *LotService) GetLot(ctx context.Context, tenantID, id string) (*entity.Lot, error) {
	return s.repo.FindByIDWithSuppliers(ctx, tenantID, id)
}

// CreateLotRequest 创建批次请求
type CreateLotRequest struct {
	StyleRef            string             `json:"style_ref" binding:"required"`
	QuantityTotal       int                `json:"quantity_total"`
	MaterialComposition *entity.JSONBArray `json:"material_composition"`
	DyeLot              string             `json:"dye_lot"`
	Certifications      *entity.JSONBArray `json:"certifications"`
	DppMetadata         entity.JSONB       `json:"dpp_metadata"`
	Notes               string             `json:"notes"`
}

// CreateLot 创建批次
func (s *LotService) CreateLot(ctx context.Context, tenantID, userID string, req *CreateLotRequest) (*entity.Lot, error) {
	lot := &entity.Lot{
		ID:                  uuid.New().String()[:32],
		TenantID:            tenantID,
		StyleRef:            req.StyleRef,
		QuantityTotal:       req.QuantityTotal,
		Status:              entity.LotStatusPlanned,
		MaterialComposition: req.MaterialComposition,
		DyeLot:              req.DyeLot,
		Certifications:      req.Certifications,
		DppMetadata:         req.DppMetadata,
		CreatedBy:           userID,
		Notes:               req.Notes,
	}
	if err := s.repo.Create(ctx, lot); err != nil {
		return nil, fmt.Errorf("创建批次失败: %w", err)
	}
	return lot, nil
}

// UpdateLotRequest 更新批次请求
type UpdateLotRequest struct {
	StyleRef            *string            `json:"style_ref"`
	QuantityTotal       *int               `json:"quantity_total"`
	Status              *string            `json:"status"`
	MaterialComposition *entity.JSONBArray `json:"material_composition"`
	DyeLot              *string            `json:"dye_lot"`
	Certifications      *entity.JSONBArray `json:"certifications"`
	DppMetadata         entity.JSONB       `json:"dpp_metadata"`
	Notes               *string            `json:"notes"`
}

// UpdateLot 更新批次
func (s *LotService) UpdateLot(ctx context.Context, tenantID, id string, req *UpdateLotRequest) (*entity.Lot, error) {
	lot, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if req.StyleRef != nil {
		lot.StyleRef = *req.StyleRef
	}
	if req.QuantityTotal != nil {
		lot.QuantityTotal = *req.QuantityTotal
	}
	if req.Status != nil {
		lot.Status = *req.Status
	}
	if req.MaterialComposition != nil {
		lot.MaterialComposition = req.MaterialComposition
	}
	if req.DyeLot != nil {
		lot.DyeLot = *req.DyeLot
	}
	if req.Certifications != nil {
		lot.Certifications = req.Certifications
	}
	if req.DppMetadata != nil {
		lot.DppMetadata = req.DppMetadata
	}
	if req.Notes != nil {
		lot.Notes = *req.Notes
	}

	if err := s.repo.Update(ctx, lot); err != nil {
		return nil, err
	}
	return lot, nil
}

// DeleteLot 删除批次
func (s *LotService) DeleteLot(ctx context.Context, tenantID, id string) error {
	if _, err := s.repo.FindByID(ctx, tenantID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, tenantID, id)
}

// AssignRoleRequest 供应商工序指派
type AssignRoleRequest struct {
	RoleKey  string   `json:"role_key" binding:"required"`
	Sequence *int     `json:"sequence"`
	Co2Kg    *float64 `json:"co2_kg"`
	Notes    string   `json:"notes"`
}

// AssignSupplierRequest 供应商指派
type AssignSupplierRequest struct {
	FactoryID string              `json:"factory_id" binding:"required"`
	Sequence  *int                `json:"sequence"`
	Stage     string              `json:"stage"`
	IsPrimary bool                `json:"is_primary"`
	Roles     []AssignRoleRequest `json:"roles"`
}

// AssignSuppliers 重写批次的供应商指派并初始化链路。
// 单事务完成：删除旧指派、写入新指派、Initialize。
// 恰好一个供应商为主供应商，未标记时默认第一个。
// 工序sequence与CO2缺省回落到目录默认值。
func (s *LotService) AssignSuppliers(ctx context.Context, tenantID, lotID string, reqs []AssignSupplierRequest) (*entity.Lot, error) {
	if _, err := s.repo.FindByID(ctx, tenantID, lotID); err != nil {
		return nil, err
	}

	// 校验工厂归属与工序key，预取目录默认值；
	// 同一供应商重复列出同一工序在此拦下，不让它撞(lot_factory_id, role_id)唯一索引
	roleByKey := make(map[string]*entity.SupplyChainRole)
	for _, req := range reqs {
		if _, err := s.factoryRepo.FindByID(ctx, tenantID, req.FactoryID); err != nil {
			return nil, fmt.Errorf("工厂 %s: %w", req.FactoryID, err)
		}
		seen := make(map[string]bool)
		for _, roleReq := range req.Roles {
			if seen[roleReq.RoleKey] {
				return nil, fmt.Errorf("工序 %s: %w", roleReq.RoleKey, ErrDuplicateRole)
			}
			seen[roleReq.RoleKey] = true
			if _, ok := roleByKey[roleReq.RoleKey]; ok {
				continue
			}
			role, err := s.roleRepo.FindByKey(ctx, roleReq.RoleKey)
			if err != nil {
				return nil, fmt.Errorf("工序 %s: %w", roleReq.RoleKey, err)
			}
			roleByKey[roleReq.RoleKey] = role
		}
	}

	primaryCount := 0
	for _, req := range reqs {
		if req.IsPrimary {
			primaryCount++
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lotFactoryRepo.DeleteByLot(ctx, tx, tenantID, lotID); err != nil {
			return fmt.Errorf("清理旧指派失败: %w", err)
		}

		for i, req := range reqs {
			sequence := i
			if req.Sequence != nil {
				sequence = *req.Sequence
			}
			isPrimary := req.IsPrimary
			if primaryCount == 0 && i == 0 {
				// 无人标记主供应商时默认第一个
				isPrimary = true
			} else if primaryCount > 1 {
				// 多个标记时只保留第一个
				isPrimary = false
				for j := range reqs {
					if reqs[j].IsPrimary {
						isPrimary = i == j
						break
					}
				}
			}

			lf := &entity.LotFactory{
				ID:        uuid.New().String()[:32],
				TenantID:  tenantID,
				LotID:     lotID,
				FactoryID: req.FactoryID,
				Sequence:  sequence,
				Stage:     req.Stage,
				IsPrimary: isPrimary,
			}
			if err := tx.Create(lf).Error; err != nil {
				return fmt.Errorf("写入供应商指派失败: %w", err)
			}

			for _, roleReq := range req.Roles {
				role := roleByKey[roleReq.RoleKey]
				roleSeq := role.DefaultSequence
				if roleReq.Sequence != nil {
					roleSeq = *roleReq.Sequence
				}
				co2 := role.DefaultCo2Kg
				if roleReq.Co2Kg != nil {
					co2 = *roleReq.Co2Kg
				}
				lfr := &entity.LotFactoryRole{
					ID:           uuid.New().String()[:32],
					LotFactoryID: lf.ID,
					RoleID:       role.ID,
					Sequence:     roleSeq,
					Co2Kg:        co2,
					Notes:        roleReq.Notes,
					Status:       entity.RoleStatusNotStarted,
				}
				if err := tx.Create(lfr).Error; err != nil {
					return fmt.Errorf("写入工序指派失败: %w", err)
				}
			}
		}

		return s.chainSvc.InitializeTx(tx, tenantID, lotID)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.FindByIDWithSuppliers(ctx, tenantID, lotID)
}
