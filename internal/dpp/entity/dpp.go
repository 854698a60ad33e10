package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONB JSONB类型
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan JSONB: %v", value)
	}
	return json.Unmarshal(bytes, j)
}

// Dpp 数字产品护照。public/restricted 双受众载荷，仅 draft 状态可编辑
type Dpp struct {
	ID            string `json:"id" gorm:"primaryKey;size:32"`
	TenantID      string `json:"tenant_id" gorm:"size:32;not null;index"`
	SchemaVersion string `json:"schema_version" gorm:"size:20;default:1.0"`
	ProductSku    string `json:"product_sku" gorm:"size:100"`
	GTIN          string `json:"gtin" gorm:"size:50"`
	Brand         string `json:"brand" gorm:"size:100"`
	StyleRef      string `json:"style_ref" gorm:"size:100;not null"`

	PublicPayload     JSONB  `json:"public_payload" gorm:"type:jsonb"`
	RestrictedPayload JSONB  `json:"restricted_payload" gorm:"type:jsonb"`
	Status            string `json:"status" gorm:"size:20;default:draft"`

	CreatedBy   string     `json:"created_by" gorm:"size:32"`
	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Dpp) TableName() string {
	return "dpps"
}

// 护照状态。draft → published → archived，archived为终态
const (
	DppStatusDraft     = "draft"
	DppStatusPublished = "published"
	DppStatusArchived  = "archived"
)

// DppEvent 护照生命周期事件，只追加不修改
type DppEvent struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	DppID     string    `json:"dpp_id" gorm:"size:32;not null;index"`
	Type      string    `json:"type" gorm:"size:20;not null"`
	Actor     string    `json:"actor" gorm:"size:100"`
	Location  string    `json:"location" gorm:"size:200"`
	Timestamp time.Time `json:"timestamp"`
	Data      JSONB     `json:"data" gorm:"type:jsonb"`
}

func (DppEvent) TableName() string {
	return "dpp_events"
}

// 事件类型
const (
	DppEventCreated    = "created"
	DppEventPublished  = "published"
	DppEventProduction = "production"
	DppEventInspection = "inspection"
	DppEventPacking    = "packing"
	DppEventShipment   = "shipment"
	DppEventRepair     = "repair"
	DppEventRecycle    = "recycle"
	DppEventOther      = "other"
)

// DppAccessLog 护照读取审计，只追加不修改
type DppAccessLog struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	DppID     string    `json:"dpp_id" gorm:"size:32;not null;index"`
	View      string    `json:"view" gorm:"size:20;not null"`
	IP        string    `json:"ip" gorm:"size:50"`
	UserAgent string    `json:"user_agent" gorm:"size:500"`
	UserID    *string   `json:"user_id" gorm:"size:32"`
	Endpoint  string    `json:"endpoint" gorm:"size:200"`
	Timestamp time.Time `json:"timestamp"`
}

func (DppAccessLog) TableName() string {
	return "dpp_access_logs"
}

// 访问视图
const (
	DppViewPublic     = "public"
	DppViewRestricted = "restricted"
)
