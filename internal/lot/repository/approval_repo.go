package repository

import (
	"context"
	"errors"

	"github.com/weftlab/texpass/internal/lot/entity"
	"gorm.io/gorm"
)

// ApprovalRepository 批次审批仓库
type ApprovalRepository struct {
	db *gorm.DB
}

func NewApprovalRepository(db *gorm.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// FindByLot 查询批次的审批历史，新的在前
func (r *ApprovalRepository) FindByLot(ctx context.Context, tenantID, lotID string) ([]entity.LotApproval, error) {
	var items []entity.LotApproval
	err := r.db.WithContext(ctx).
		Where("lot_id = ? AND tenant_id = ?", lotID, tenantID).
		Order("decided_at DESC, id DESC").
		Find(&items).Error
	return items, err
}

// FindLatestByLot 查询批次最新一条审批决定
func (r *ApprovalRepository) FindLatestByLot(ctx context.Context, tenantID, lotID string) (*entity.LotApproval, error) {
	var approval entity.LotApproval
	err := r.db.WithContext(ctx).
		Where("lot_id = ? AND tenant_id = ?", lotID, tenantID).
		Order("decided_at DESC, id DESC").
		First(&approval).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &approval, nil
}
