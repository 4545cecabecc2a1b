package repo

import (
	"context"
	"time"

	"github.com/dushixiang/tally/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func NewCandleRepo(db *gorm.DB) *CandleRepo {
	return &CandleRepo{
		Repository: orz.NewRepository[models.Candle, string](db),
	}
}

type CandleRepo struct {
	orz.Repository[models.Candle, string]
}

// Upsert 按 (underlying, date) 幂等写入日线
func (r CandleRepo) Upsert(ctx context.Context, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	return r.GetDB(ctx).Table(r.GetTableName()).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "underlying"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume", "source"}),
		}).
		Create(&candles).Error
}

// FindRange 查询某标的在日期区间内的日线，升序
func (r CandleRepo) FindRange(ctx context.Context, underlying string, start, end time.Time) ([]models.Candle, error) {
	var candles []models.Candle
	err := r.GetDB(ctx).Table(r.GetTableName()).
		Where("underlying = ? AND date >= ? AND date <= ?", underlying, start, end).
		Order("date ASC").
		Find(&candles).Error
	return candles, err
}

// FindLatestDate 某标的最新一根日线的日期
func (r CandleRepo) FindLatestDate(ctx context.Context, underlying string) (time.Time, error) {
	var candle models.Candle
	err := r.GetDB(ctx).Table(r.GetTableName()).
		Where("underlying = ?", underlying).
		Order("date DESC").
		First(&candle).Error
	if err != nil {
		return time.Time{}, err
	}
	return candle.Date, nil
}
