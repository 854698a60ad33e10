package entity

import "time"

// LotFactory 批次-工厂指派（一个工厂承担批次的一段工序）
type LotFactory struct {
	ID        string `json:"id" gorm:"primaryKey;size:32"`
	TenantID  string `json:"tenant_id" gorm:"size:32;not null;index"`
	LotID     string `json:"lot_id" gorm:"size:32;not null;index:idx_lot_factories_lot"`
	FactoryID string `json:"factory_id" gorm:"size:32;not null"`
	Sequence  int    `json:"sequence" gorm:"not null;default:0"`
	Stage     string `json:"stage" gorm:"size:100"`
	IsPrimary bool   `json:"is_primary" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Factory *Factory         `json:"factory,omitempty" gorm:"foreignKey:FactoryID"`
	Roles   []LotFactoryRole `json:"roles,omitempty" gorm:"foreignKey:LotFactoryID"`
}

func (LotFactory) TableName() string {
	return "lot_factories"
}

// LotFactoryRole 指派工厂的具体工序。(lot_factory_id, role_id) 唯一
type LotFactoryRole struct {
	ID           string `json:"id" gorm:"primaryKey;size:32"`
	LotFactoryID string `json:"lot_factory_id" gorm:"size:32;not null;uniqueIndex:uniq_lot_factory_role"`
	RoleID       string `json:"role_id" gorm:"size:32;not null;uniqueIndex:uniq_lot_factory_role"`
	Sequence     int    `json:"sequence" gorm:"not null;default:0"`
	Co2Kg        float64 `json:"co2_kg" gorm:"type:decimal(10,3);default:0"`
	Notes        string  `json:"notes" gorm:"type:text"`

	Status      string     `json:"status" gorm:"size:20;default:not_started"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Role *SupplyChainRole `json:"role,omitempty" gorm:"foreignKey:RoleID"`
}

func (LotFactoryRole) TableName() string {
	return "lot_factory_roles"
}

// 工序状态
const (
	RoleStatusNotStarted = "not_started"
	RoleStatusInProgress = "in_progress"
	RoleStatusCompleted  = "completed"
)
