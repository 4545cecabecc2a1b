package models

import (
	"time"

	"gorm.io/datatypes"
)

// JournalConfig 日志盘参数配置，单行表
type JournalConfig struct {
	ID                string                      `gorm:"primaryKey;size:26" json:"id"`
	TrackedUnderlying datatypes.JSONSlice[string] `gorm:"type:json" json:"tracked_underlyings"` // 需要回补行情的标的
	BackfillDays      int                         `json:"backfill_days"`                        // 行情回补天数
	ReportEnabled     bool                        `json:"report_enabled"`                       // 是否定时生成AI报告
	CreatedAt         time.Time                   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (JournalConfig) TableName() string {
	return "journal_config"
}
