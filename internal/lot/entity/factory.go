package entity

import "time"

// Factory 工厂主数据
type Factory struct {
	ID       string `json:"id" gorm:"primaryKey;size:32"`
	TenantID string `json:"tenant_id" gorm:"size:32;not null;index"`
	Name     string `json:"name" gorm:"size:200;not null"`
	Country  string `json:"country" gorm:"size:50"`
	City     string `json:"city" gorm:"size:50"`
	Address  string `json:"address" gorm:"size:500"`

	// 联系信息
	ContactName  string `json:"contact_name" gorm:"size:100"`
	ContactEmail string `json:"contact_email" gorm:"size:200"`
	ContactPhone string `json:"contact_phone" gorm:"size:50"`

	// 认证标签
	Certifications *JSONBArray `json:"certifications" gorm:"type:jsonb"`

	Status    string    `json:"status" gorm:"size:20;default:active"`
	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Notes     string    `json:"notes" gorm:"type:text"`
}

func (Factory) TableName() string {
	return "factories"
}

// 工厂状态
const (
	FactoryStatusActive    = "active"
	FactoryStatusSuspended = "suspended"
)
