package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/weftlab/texpass/internal/lot/entity"
	"github.com/weftlab/texpass/internal/lot/repository"
	"gorm.io/gorm"
)

// ApprovalService 批次放行闸口。
// 审批记录按追加写入保留为决定历史，读取时取最新一条。
// 对批次当前状态不设前置校验：非 pending_approval 的批次同样可以审批。
type ApprovalService struct {
	db   *gorm.DB
	repo *repository.ApprovalRepository
}

// NewApprovalService 创建审批服务
func NewApprovalService(db *gorm.DB, repo *repository.ApprovalRepository) *ApprovalService {
	return &ApprovalService{db: db, repo: repo}
}

// Approve 批准批次
func (s *ApprovalService) Approve(ctx context.Context, tenantID, lotID, approverID, note string) (*entity.LotApproval, error) {
	return s.decide(ctx, tenantID, lotID, approverID, note, entity.ApprovalDecisionApprove)
}

// Reject 驳回批次
func (s *ApprovalService) Reject(ctx context.Context, tenantID, lotID, approverID, note string) (*entity.LotApproval, error) {
	return s.decide(ctx, tenantID, lotID, approverID, note, entity.ApprovalDecisionReject)
}

// ListApprovals 获取批次审批历史
func (s *ApprovalService) ListApprovals(ctx context.Context, tenantID, lotID string) ([]entity.LotApproval, error) {
	return s.repo.FindByLot(ctx, tenantID, lotID)
}

// decide 写入一条审批决定并在同一事务内迁移批次状态
func (s *ApprovalService) decide(ctx context.Context, tenantID, lotID, approverID, note, decision string) (*entity.LotApproval, error) {
	approval := &entity.LotApproval{
		ID:         uuid.New().String()[:32],
		TenantID:   tenantID,
		LotID:      lotID,
		ApprovedBy: approverID,
		Decision:   decision,
		Note:       note,
		DecidedAt:  time.Now(),
	}

	lotStatus := entity.LotStatusApproved
	if decision == entity.ApprovalDecisionReject {
		lotStatus = entity.LotStatusRejected
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lot entity.Lot
		if err := tx.Where("id = ? AND tenant_id = ?", lotID, tenantID).First(&lot).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrNotFound
			}
			return err
		}

		if err := tx.Create(approval).Error; err != nil {
			return fmt.Errorf("写入审批记录失败: %w", err)
		}

		return tx.Model(&entity.Lot{}).
			Where("id = ?", lot.ID).
			Update("status", lotStatus).Error
	})
	if err != nil {
		return nil, err
	}
	return approval, nil
}
