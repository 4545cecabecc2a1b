package repo

import (
	"context"
	"errors"
	"time"

	"github.com/dushixiang/tally/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewTradeRepo(db *gorm.DB) *TradeRepo {
	return &TradeRepo{
		Repository: orz.NewRepository[models.Trade, string](db),
	}
}

type TradeRepo struct {
	orz.Repository[models.Trade, string]
}

// TradeFilter 查询过滤条件，零值字段不参与过滤
type TradeFilter struct {
	Symbol     string
	Underlying string
	Side       models.TradeSide
	Kind       string
	Since      time.Time
	Until      time.Time
	Limit      int
}

// FindOrdered 按执行时间升序返回交易，FIFO重算依赖这个顺序
func (r TradeRepo) FindOrdered(ctx context.Context, filter TradeFilter) ([]models.Trade, error) {
	var trades []models.Trade
	db := r.GetDB(ctx).Table(r.GetTableName())
	if filter.Symbol != "" {
		db = db.Where("symbol = ?", filter.Symbol)
	}
	if filter.Underlying != "" {
		db = db.Where("underlying = ?", filter.Underlying)
	}
	if filter.Side != "" {
		db = db.Where("side = ?", filter.Side)
	}
	if filter.Kind != "" {
		db = db.Where("kind = ?", filter.Kind)
	}
	if !filter.Since.IsZero() {
		db = db.Where("executed_at >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		db = db.Where("executed_at <= ?", filter.Until)
	}
	if filter.Limit > 0 {
		db = db.Limit(filter.Limit)
	}
	err := db.Order("executed_at ASC, created_at ASC").Find(&trades).Error
	return trades, err
}

// ExistsByFingerprint 指纹是否已存在
func (r TradeRepo) ExistsByFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	trade, err := r.FindByFingerprint(ctx, fingerprint)
	if err != nil {
		return false, err
	}
	return trade != nil, nil
}

// FindByFingerprint 按指纹查询交易，不存在时返回 nil
func (r TradeRepo) FindByFingerprint(ctx context.Context, fingerprint string) (*models.Trade, error) {
	var trade models.Trade
	err := r.GetDB(ctx).Table(r.GetTableName()).
		Where("fingerprint = ?", fingerprint).
		First(&trade).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &trade, nil
}

// UpdateRealizedPnl 写入一笔交易的已实现盈亏
func (r TradeRepo) UpdateRealizedPnl(ctx context.Context, fingerprint string, pnl float64) error {
	return r.GetDB(ctx).Table(r.GetTableName()).
		Where("fingerprint = ?", fingerprint).
		Update("realized_pnl", pnl).Error
}

// DeleteAll 清空账本（不可逆，仅用于完整重置）
func (r TradeRepo) DeleteAll(ctx context.Context) error {
	return r.GetDB(ctx).Unscoped().Where("1 = 1").Delete(&models.Trade{}).Error
}
