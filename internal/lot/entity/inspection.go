package entity

import "time"

// Inspection 批次检验任务
type Inspection struct {
	ID       string `json:"id" gorm:"primaryKey;size:32"`
	TenantID string `json:"tenant_id" gorm:"size:32;not null;index"`
	LotID    string `json:"lot_id" gorm:"size:32;not null;index"`

	// 检验信息
	SampleQty   int    `json:"sample_qty" gorm:"default:0"`
	PassedQty   int    `json:"passed_qty" gorm:"default:0"`
	RejectedQty int    `json:"rejected_qty" gorm:"default:0"`
	Status      string `json:"status" gorm:"size:20;default:pending"`
	Result      string `json:"result" gorm:"size:20"`

	// 报告附件（对象存储key）
	ReportURL string `json:"report_url" gorm:"size:500"`

	InspectorID *string    `json:"inspector_id" gorm:"size:32"`
	InspectedAt *time.Time `json:"inspected_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Notes     string    `json:"notes" gorm:"type:text"`

	// 关联
	Defects []InspectionDefect `json:"defects,omitempty" gorm:"foreignKey:InspectionID"`
}

func (Inspection) TableName() string {
	return "inspections"
}

// 检验状态
const (
	InspectionStatusPending    = "pending"
	InspectionStatusInProgress = "in_progress"
	InspectionStatusCompleted  = "completed"
)

// 检验结果
const (
	InspectionResultPassed      = "passed"
	InspectionResultFailed      = "failed"
	InspectionResultConditional = "conditional"
)

// InspectionDefect 检验缺陷记录
type InspectionDefect struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	InspectionID string    `json:"inspection_id" gorm:"size:32;not null;index"`
	DefectType   string    `json:"defect_type" gorm:"size:100;not null"`
	Severity     string    `json:"severity" gorm:"size:20"` // critical/major/minor
	Quantity     int       `json:"quantity" gorm:"default:1"`
	PhotoURL     string    `json:"photo_url" gorm:"size:500"`
	CreatedAt    time.Time `json:"created_at"`
	Notes        string    `json:"notes" gorm:"type:text"`
}

func (InspectionDefect) TableName() string {
	return "inspection_defects"
}
