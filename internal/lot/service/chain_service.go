package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/weftlab/texpass/internal/lot/entity"
	"github.com/weftlab/texpass/internal/lot/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 错误定义
var (
	// ErrConflict 并发推进冲突（被乐观校验拦下，调用方可重试）
	ErrConflict = errors.New("concurrent chain advance conflict")
)

// ChainService 供应链推进引擎。
// 批次的全部工序按 (供应商sequence, 工序sequence, created_at, id) 构成一条全序链路，
// 任意时刻至多一道工序处于 in_progress。
type ChainService struct {
	db *gorm.DB
}

// NewChainService 创建推进引擎
func NewChainService(db *gorm.DB) *ChainService {
	return &ChainService{db: db}
}

// ChainAdvanceResult 单次推进的结果
type ChainAdvanceResult struct {
	Completed *entity.LotFactoryRole `json:"completed"`
	Started   *entity.LotFactoryRole `json:"started"`
	// Exhausted 链路已走完：最后一道工序完成后不再有 in_progress 工序
	Exhausted bool `json:"exhausted"`
}

// Initialize 初始化批次链路：第一道工序置为 in_progress。
// 任何工序已有进度时为幂等空操作，指派编辑后的重复调用不会回退进度。
func (s *ChainService) Initialize(ctx context.Context, tenantID, lotID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockLot(tx, tenantID, lotID); err != nil {
			return err
		}
		return s.InitializeTx(tx, tenantID, lotID)
	})
}

// InitializeTx 在既有事务内初始化链路（指派重写时与写入同事务调用）
func (s *ChainService) InitializeTx(tx *gorm.DB, tenantID, lotID string) error {
	roles, err := orderedChainRoles(tx, tenantID, lotID)
	if err != nil {
		return err
	}
	if len(roles) == 0 {
		// 批次未配置供应链跟踪，无事可做
		return nil
	}

	for _, role := range roles {
		if role.Status != entity.RoleStatusNotStarted {
			// 已有进度，保持现状
			return nil
		}
	}

	now := time.Now()
	first := roles[0]
	return tx.Model(&entity.LotFactoryRole{}).
		Where("id = ?", first.ID).
		Updates(map[string]interface{}{
			"status":     entity.RoleStatusInProgress,
			"started_at": now,
			"updated_at": now,
		}).Error
}

// Advance 推进批次链路：完成当前 in_progress 工序，开启全序中的下一道。
// 没有 in_progress 工序（包括零工序批次）时为空操作。
// 链路走完时在同一事务内将批次状态推向 pending_approval。
func (s *ChainService) Advance(ctx context.Context, tenantID, lotID string) (*ChainAdvanceResult, error) {
	result := &ChainAdvanceResult{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 锁批次行，同一批次的并发推进在此串行化，不同批次互不竞争
		var lot entity.Lot
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND tenant_id = ?", lotID, tenantID).
			First(&lot).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrNotFound
			}
			return err
		}

		roles, err := orderedChainRoles(tx, tenantID, lotID)
		if err != nil {
			return err
		}

		currentIdx := -1
		for i, role := range roles {
			if role.Status == entity.RoleStatusInProgress {
				currentIdx = i
				break
			}
		}
		if currentIdx < 0 {
			// 无可推进工序
			return nil
		}

		now := time.Now()
		current := roles[currentIdx]

		// 乐观校验：仅当该工序仍为 in_progress 时完成它
		res := tx.Model(&entity.LotFactoryRole{}).
			Where("id = ? AND status = ?", current.ID, entity.RoleStatusInProgress).
			Updates(map[string]interface{}{
				"status":       entity.RoleStatusCompleted,
				"completed_at": now,
				"updated_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		current.Status = entity.RoleStatusCompleted
		current.CompletedAt = &now
		result.Completed = &current

		// 全序中严格在其后的第一道 not_started 工序
		for i := currentIdx + 1; i < len(roles); i++ {
			if roles[i].Status == entity.RoleStatusNotStarted {
				next := roles[i]
				if err := tx.Model(&entity.LotFactoryRole{}).
					Where("id = ?", next.ID).
					Updates(map[string]interface{}{
						"status":     entity.RoleStatusInProgress,
						"started_at": now,
						"updated_at": now,
					}).Error; err != nil {
					return err
				}
				next.Status = entity.RoleStatusInProgress
				next.StartedAt = &now
				result.Started = &next
				return nil
			}
		}

		// 链路走完，批次进入待审批
		result.Exhausted = true
		switch lot.Status {
		case entity.LotStatusPendingApproval, entity.LotStatusApproved,
			entity.LotStatusRejected, entity.LotStatusCompleted:
			// 已在审批流或终态，不回拨
		default:
			if err := tx.Model(&entity.Lot{}).
				Where("id = ?", lot.ID).
				Update("status", entity.LotStatusPendingApproval).Error; err != nil {
				return fmt.Errorf("更新批次状态失败: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CurrentRole 返回当前 in_progress 的工序（派生查询，不落冗余指针）
func (s *ChainService) CurrentRole(ctx context.Context, tenantID, lotID string) (*entity.LotFactoryRole, error) {
	roles, err := orderedChainRoles(s.db.WithContext(ctx), tenantID, lotID)
	if err != nil {
		return nil, err
	}
	for _, role := range roles {
		if role.Status == entity.RoleStatusInProgress {
			r := role
			return &r, nil
		}
	}
	return nil, nil
}

// lockLot 以行锁读取批次，校验存在性与租户归属
func lockLot(tx *gorm.DB, tenantID, lotID string) error {
	var lot entity.Lot
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND tenant_id = ?", lotID, tenantID).
		First(&lot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrNotFound
	}
	return err
}

// orderedChainRoles 返回批次全部工序的扁平全序：
// (lot_factories.sequence, lot_factory_roles.sequence, created_at, id) 升序。
// created_at/id 作为显式次级键，避免依赖存储顺序打破平局。
func orderedChainRoles(tx *gorm.DB, tenantID, lotID string) ([]entity.LotFactoryRole, error) {
	var roles []entity.LotFactoryRole
	err := tx.
		Joins("JOIN lot_factories ON lot_factories.id = lot_factory_roles.lot_factory_id").
		Where("lot_factories.lot_id = ? AND lot_factories.tenant_id = ?", lotID, tenantID).
		Order("lot_factories.sequence ASC, lot_factory_roles.sequence ASC, lot_factory_roles.created_at ASC, lot_factory_roles.id ASC").
		Find(&roles).Error
	return roles, err
}
