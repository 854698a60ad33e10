package entity

import "time"

// Lot 生产批次
type Lot struct {
	ID            string `json:"id" gorm:"primaryKey;size:32"`
	TenantID      string `json:"tenant_id" gorm:"size:32;not null;index"`
	StyleRef      string `json:"style_ref" gorm:"size:100;not null"`
	QuantityTotal int    `json:"quantity_total" gorm:"not null;default:0"`
	Status        string `json:"status" gorm:"size:20;default:planned"`

	// 面料与工艺
	MaterialComposition *JSONBArray `json:"material_composition" gorm:"type:jsonb"`
	DyeLot              string      `json:"dye_lot" gorm:"size:100"`
	Certifications      *JSONBArray `json:"certifications" gorm:"type:jsonb"`
	DppMetadata         JSONB       `json:"dpp_metadata" gorm:"type:jsonb"`

	// 质量指标（检验完成时回写）
	DefectRate float64 `json:"defect_rate" gorm:"type:decimal(5,2);default:0"`

	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Notes     string    `json:"notes" gorm:"type:text"`

	// 关联
	Suppliers []LotFactory `json:"suppliers,omitempty" gorm:"foreignKey:LotID"`
}

func (Lot) TableName() string {
	return "lots"
}

// 批次状态
const (
	LotStatusPlanned         = "planned"
	LotStatusInProduction    = "in_production"
	LotStatusInspection      = "inspection"
	LotStatusPendingApproval = "pending_approval"
	LotStatusApproved        = "approved"
	LotStatusRejected        = "rejected"
	LotStatusCompleted       = "completed"
)
