package entity

import "time"

// SupplyChainRole 供应链工序目录（全局参考数据，启动时种子化，运行期只读）
type SupplyChainRole struct {
	ID              string    `json:"id" gorm:"primaryKey;size:32"`
	Key             string    `json:"key" gorm:"size:50;uniqueIndex;not null"`
	Name            string    `json:"name" gorm:"size:100;not null"`
	DefaultSequence int       `json:"default_sequence" gorm:"not null;default:0"`
	DefaultCo2Kg    float64   `json:"default_co2_kg" gorm:"type:decimal(10,3);default:0"`
	CreatedAt       time.Time `json:"created_at"`
}

func (SupplyChainRole) TableName() string {
	return "supply_chain_roles"
}

// 内置工序key
const (
	RoleKeySpinning = "spinning"
	RoleKeyDyeing   = "dyeing"
	RoleKeyWeaving  = "weaving"
	RoleKeyKnitting = "knitting"
	RoleKeyPrinting = "printing"
	RoleKeyCutting  = "cutting"
	RoleKeySewing   = "sewing"
	RoleKeyWashing  = "washing"
	RoleKeyQA       = "qa"
	RoleKeyPacking  = "packing"
)
