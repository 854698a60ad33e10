package repository

import (
	"errors"

	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 护照域仓库集合
type Repositories struct {
	Dpp       *DppRepository
	Event     *EventRepository
	AccessLog *AccessLogRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Dpp:       NewDppRepository(db),
		Event:     NewEventRepository(db),
		AccessLog: NewAccessLogRepository(db),
	}
}
