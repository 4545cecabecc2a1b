package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Report AI复盘报告记录
type Report struct {
	ID               string         `gorm:"primaryKey;type:varchar(26)" json:"id"`
	Period           string         `gorm:"type:varchar(20);not null;index" json:"period"` // daily/weekly/manual
	Content          string         `gorm:"type:text" json:"content"`                      // AI生成的复盘内容
	Stats            datatypes.JSON `gorm:"type:json" json:"stats"`                        // 生成时的统计快照
	Model            string         `gorm:"type:varchar(50)" json:"model"`                 // 使用的模型
	Provider         string         `gorm:"type:varchar(20)" json:"provider"`              // openai/google
	PromptTokens     int            `json:"prompt_tokens"`
	CompletionTokens int            `json:"completion_tokens"`
	GeneratedAt      time.Time      `gorm:"not null;index" json:"generated_at"` // 生成时间
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (Report) TableName() string {
	return "reports"
}
