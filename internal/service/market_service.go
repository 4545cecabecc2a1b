package service

import (
	"context"
	"time"

	"github.com/dushixiang/tally/internal/models"
	"github.com/dushixiang/tally/internal/repo"
	"github.com/dushixiang/tally/internal/xe"
	"github.com/dushixiang/tally/pkg/pricefeed"
	"github.com/dushixiang/tally/pkg/ta"
	"github.com/go-orz/orz"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MarketService 行情服务：接收协作方推送的日线，或从Binance回补。
// 行情只进不出，缺口不做插值，波动分析用NULL表达行情缺失。
type MarketService struct {
	logger *zap.Logger

	*orz.Service

	candleRepo    *repo.CandleRepo
	configRepo    *repo.JournalConfigRepo
	binanceClient *pricefeed.BinanceClient
}

// NewMarketService 创建行情服务，binanceClient 可以为 nil（仅手工推送模式）
func NewMarketService(db *gorm.DB, logger *zap.Logger, binanceClient *pricefeed.BinanceClient) *MarketService {
	return &MarketService{
		logger:        logger,
		Service:       orz.NewService(db),
		candleRepo:    repo.NewCandleRepo(db),
		configRepo:    repo.NewJournalConfigRepo(db),
		binanceClient: binanceClient,
	}
}

// CandleInput 推送的单根日线
type CandleInput struct {
	Underlying string    `json:"underlying" validate:"required"`
	Date       time.Time `json:"date" validate:"required"`
	Open       float64   `json:"open" validate:"required"`
	High       float64   `json:"high" validate:"required"`
	Low        float64   `json:"low" validate:"required"`
	Close      float64   `json:"close" validate:"required"`
	Volume     float64   `json:"volume"`
}

// PushCandles 接收协作方推送的日线，按(标的, 日期)幂等覆盖
func (s *MarketService) PushCandles(ctx context.Context, inputs []CandleInput) (int, error) {
	if len(inputs) == 0 {
		return 0, xe.ErrCandleRangeEmpty
	}

	candles := make([]models.Candle, 0, len(inputs))
	for _, in := range inputs {
		if in.Underlying == "" || in.Date.IsZero() {
			return 0, xe.ErrInvalidParams
		}
		candles = append(candles, models.Candle{
			ID:         ulid.Make().String(),
			Underlying: in.Underlying,
			Date:       truncateDay(in.Date),
			Open:       in.Open,
			High:       in.High,
			Low:        in.Low,
			Close:      in.Close,
			Volume:     in.Volume,
			Source:     "push",
		})
	}

	if err := s.candleRepo.Upsert(ctx, candles); err != nil {
		return 0, err
	}
	s.logger.Info("candles pushed", zap.Int("count", len(candles)))
	return len(candles), nil
}

// GetCandles 查询某标的在日期区间内的日线
func (s *MarketService) GetCandles(ctx context.Context, underlying string, start, end time.Time) ([]models.Candle, error) {
	if end.IsZero() {
		end = time.Now()
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -90)
	}
	return s.candleRepo.FindRange(ctx, underlying, start, end)
}

// Backfill 为配置里跟踪的标的从Binance回补日线。
// 单个标的失败只记日志，不影响其他标的。
func (s *MarketService) Backfill(ctx context.Context, backfillDays int) error {
	if s.binanceClient == nil {
		s.logger.Debug("binance client disabled, skip backfill")
		return nil
	}
	config, err := s.configRepo.Get(ctx)
	if err != nil {
		return err
	}
	if config == nil || len(config.TrackedUnderlying) == 0 {
		return nil
	}
	if backfillDays <= 0 {
		backfillDays = config.BackfillDays
	}
	if backfillDays <= 0 {
		backfillDays = 90
	}

	end := time.Now()
	for _, underlying := range config.TrackedUnderlying {
		start := end.AddDate(0, 0, -backfillDays)
		// 已有行情的标的只补最新缺口
		if latest, err := s.candleRepo.FindLatestDate(ctx, underlying); err == nil && latest.After(start) {
			start = latest
		}

		bars, err := s.binanceClient.GetDailyBars(ctx, underlying, start, end, 0)
		if err != nil {
			s.logger.Error("backfill failed",
				zap.String("underlying", underlying),
				zap.Error(err))
			continue
		}
		if len(bars) == 0 {
			continue
		}

		candles := make([]models.Candle, 0, len(bars))
		for _, b := range bars {
			candles = append(candles, models.Candle{
				ID:         ulid.Make().String(),
				Underlying: underlying,
				Date:       truncateDay(b.Date),
				Open:       b.Open,
				High:       b.High,
				Low:        b.Low,
				Close:      b.Close,
				Volume:     b.Volume,
				Source:     "binance",
			})
		}
		if err := s.candleRepo.Upsert(ctx, candles); err != nil {
			s.logger.Error("persist candles failed",
				zap.String("underlying", underlying),
				zap.Error(err))
			continue
		}
		s.logger.Info("candles backfilled",
			zap.String("underlying", underlying),
			zap.Int("count", len(candles)))
	}
	return nil
}

// IndicatorContext 标的的技术指标上下文，供复盘报告引用
type IndicatorContext struct {
	Underlying string    `json:"underlying"`
	LastClose  float64   `json:"last_close"`
	EMA20      *float64  `json:"ema20,omitempty"`
	RSI14      *float64  `json:"rsi14,omitempty"`
	ATR14      *float64  `json:"atr14,omitempty"`
	MACDSeries []float64 `json:"macd_series,omitempty"` // 最近10个MACD值
}

// GetIndicatorContext 计算某标的最近日线上的常用指标，数据不足的指标为 nil
func (s *MarketService) GetIndicatorContext(ctx context.Context, underlying string) (*IndicatorContext, error) {
	end := time.Now()
	candles, err := s.candleRepo.FindRange(ctx, underlying, end.AddDate(0, 0, -120), end)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, xe.ErrCandleRangeEmpty
	}

	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	ic := &IndicatorContext{
		Underlying: underlying,
		LastClose:  closes[len(closes)-1],
	}
	if ema := ta.EMA(closes, 20); len(ema) > 0 {
		v := ta.Last(ema, 0)
		ic.EMA20 = &v
	}
	if rsi := ta.RSI(closes, 14); len(rsi) > 0 {
		v := ta.Last(rsi, 0)
		ic.RSI14 = &v
	}
	if atr := ta.ATR(highs, lows, closes, 14); len(atr) > 0 {
		v := ta.Last(atr, 0)
		ic.ATR14 = &v
	}
	if macd, _, _ := ta.MACD(closes, 12, 26, 9); len(macd) > 0 {
		ic.MACDSeries = ta.LastValues(macd, 10)
	}
	return ic, nil
}

// GetConfig 读取日志盘配置，不存在时返回缺省值
func (s *MarketService) GetConfig(ctx context.Context) (*models.JournalConfig, error) {
	config, err := s.configRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if config == nil {
		config = &models.JournalConfig{
			ID:           ulid.Make().String(),
			BackfillDays: 90,
		}
	}
	return config, nil
}

// SaveConfig 保存日志盘配置
func (s *MarketService) SaveConfig(ctx context.Context, config *models.JournalConfig) error {
	if config.ID == "" {
		existing, err := s.configRepo.Get(ctx)
		if err != nil {
			return err
		}
		if existing != nil {
			config.ID = existing.ID
		} else {
			config.ID = ulid.Make().String()
		}
	}
	return s.configRepo.Save(ctx, config)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
