package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// TradeSide 成交方向
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// IsValid 是否合法方向
func (s TradeSide) IsValid() bool {
	return s == TradeSideBuy || s == TradeSideSell
}

// Trade 成交记录，账本的唯一事实来源。
// 入库后除 realized_pnl（由FIFO重算写入）外全部不可变。
type Trade struct {
	ID          string         `gorm:"primaryKey;type:varchar(26)" json:"id"`
	Fingerprint string         `gorm:"type:varchar(64);not null;uniqueIndex" json:"fingerprint"` // 内容指纹，去重依据
	Symbol      string         `gorm:"type:varchar(40);not null;index" json:"symbol"`            // 原始代码
	Side        TradeSide      `gorm:"type:varchar(10);not null" json:"side"`                    // buy/sell
	Quantity    float64        `gorm:"type:decimal(20,8);not null" json:"quantity"`              // 无符号数量，符号由方向推导
	Price       float64        `gorm:"type:decimal(20,8);not null" json:"price"`                 // 成交价格
	Commission  float64        `gorm:"type:decimal(20,8)" json:"commission"`                     // 手续费
	Kind        string         `gorm:"type:varchar(10);not null" json:"kind"`                    // stock/option/futures
	Underlying  string         `gorm:"type:varchar(20);not null;index" json:"underlying"`        // 标的
	Strike      float64        `gorm:"type:decimal(20,8)" json:"strike"`                         // 行权价（期权）
	Expiry      *time.Time     `json:"expiry,omitempty"`                                         // 到期日（期权/期货）
	Right       string         `gorm:"type:varchar(5)" json:"right"`                             // call/put
	Multiplier  float64        `gorm:"type:decimal(10,2);not null;default:1" json:"multiplier"`  // 合约乘数
	RealizedPnl float64        `gorm:"type:decimal(20,8)" json:"realized_pnl"`                   // 已实现盈亏，FIFO重算写入
	ExecutedAt  time.Time      `gorm:"not null;index" json:"executed_at"`                        // 执行时间
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (Trade) TableName() string {
	return "trades"
}

// SignedQuantity 带符号数量：买入为正，卖出为负
func (t *Trade) SignedQuantity() float64 {
	if t.Side == TradeSideSell {
		return -t.Quantity
	}
	return t.Quantity
}

// TradeFingerprint 对不可变内容字段计算稳定指纹。
// realized_pnl 不参与，重算写盈亏不会改变交易身份。
func TradeFingerprint(executedAt time.Time, symbol string, side TradeSide, quantity, price float64) string {
	payload := fmt.Sprintf("%d|%s|%s|%.8f|%.8f",
		executedAt.UTC().Unix(), symbol, side, quantity, price)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
