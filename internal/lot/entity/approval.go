package entity

import "time"

// LotApproval 批次放行决定。按追加写入保留历史，读取时取最新一条
type LotApproval struct {
	ID         string    `json:"id" gorm:"primaryKey;size:32"`
	TenantID   string    `json:"tenant_id" gorm:"size:32;not null;index"`
	LotID      string    `json:"lot_id" gorm:"size:32;not null;index"`
	ApprovedBy string    `json:"approved_by" gorm:"size:32;not null"`
	Decision   string    `json:"decision" gorm:"size:20;not null"`
	Note       string    `json:"note" gorm:"type:text"`
	DecidedAt  time.Time `json:"decided_at"`
}

func (LotApproval) TableName() string {
	return "lot_approvals"
}

// 审批决定
const (
	ApprovalDecisionApprove = "approve"
	ApprovalDecisionReject  = "reject"
)
