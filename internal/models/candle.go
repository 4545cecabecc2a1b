package models

import (
	"time"
)

// Candle 日线行情，按(标的, 日期)唯一。
// 由行情协作方推送或定时回补写入，缺口不做插值。
type Candle struct {
	ID         string    `gorm:"primaryKey;type:varchar(26)" json:"id"`
	Underlying string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_underlying_date" json:"underlying"` // 标的
	Date       time.Time `gorm:"not null;uniqueIndex:idx_underlying_date" json:"date"`                        // 交易日
	Open       float64   `gorm:"type:decimal(20,8);not null" json:"open"`
	High       float64   `gorm:"type:decimal(20,8);not null" json:"high"`
	Low        float64   `gorm:"type:decimal(20,8);not null" json:"low"`
	Close      float64   `gorm:"type:decimal(20,8);not null" json:"close"`
	Volume     float64   `gorm:"type:decimal(24,8)" json:"volume"`
	Source     string    `gorm:"type:varchar(20)" json:"source"` // push/binance
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Candle) TableName() string {
	return "candles"
}
