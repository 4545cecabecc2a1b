package models

import (
	"time"

	"gorm.io/gorm"
)

// Excursion 已平仓回合的波动分析缓存，按平仓交易指纹唯一。
// 是派生数据：账本重算时整体失效重建，始终可由 trades + candles 复现。
// 行情缺失时指标字段为 NULL，区别于“零波动”。
type Excursion struct {
	ID          string         `gorm:"primaryKey;type:varchar(26)" json:"id"`
	Fingerprint string         `gorm:"type:varchar(64);not null;uniqueIndex" json:"fingerprint"` // 平仓交易指纹
	Symbol      string         `gorm:"type:varchar(40);not null;index" json:"symbol"`
	Underlying  string         `gorm:"type:varchar(20);not null;index" json:"underlying"`
	Direction   string         `gorm:"type:varchar(5);not null" json:"direction"` // long/short
	Quantity    float64        `gorm:"type:decimal(20,8);not null" json:"quantity"`
	EntryDate   time.Time      `gorm:"not null" json:"entry_date"`
	EntryPrice  float64        `gorm:"type:decimal(20,8);not null" json:"entry_price"`
	ExitDate    time.Time      `gorm:"not null;index" json:"exit_date"`
	ExitPrice   float64        `gorm:"type:decimal(20,8);not null" json:"exit_price"`
	RealizedPnl float64        `gorm:"type:decimal(20,8)" json:"realized_pnl"`
	MFE         *float64       `gorm:"type:decimal(12,6)" json:"mfe"`        // 最大有利波动，行情缺失为NULL
	MAE         *float64       `gorm:"type:decimal(12,6)" json:"mae"`        // 最大不利波动
	Efficiency  *float64       `gorm:"type:decimal(12,6)" json:"efficiency"` // 交易效率
	MAEInATR    *float64       `gorm:"type:decimal(12,6)" json:"mae_in_atr"` // MAE的ATR倍数
	HoldingDays int            `gorm:"type:int" json:"holding_days"`
	ComputedAt  time.Time      `gorm:"not null" json:"computed_at"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (Excursion) TableName() string {
	return "excursions"
}
