package service

import (
	"context"
	"time"

	"github.com/dushixiang/tally/internal/models"
	"github.com/dushixiang/tally/internal/repo"
	"github.com/dushixiang/tally/pkg/excursion"
	"github.com/dushixiang/tally/pkg/fifo"
	"github.com/dushixiang/tally/pkg/instrument"
	"github.com/go-orz/orz"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ATR需要入场前的历史K线，多取一些日历日覆盖节假日
const atrLookbackDays = 45

// ExcursionService 波动分析缓存服务。
// 对每个已平仓回合在标的日线上计算 MFE/MAE/交易效率，
// 整表随账本重算失效重建，永远可由 trades + candles 复现。
type ExcursionService struct {
	logger *zap.Logger

	*orz.Service

	excursionRepo *repo.ExcursionRepo
	candleRepo    *repo.CandleRepo
}

// NewExcursionService 创建波动分析服务
func NewExcursionService(db *gorm.DB, logger *zap.Logger) *ExcursionService {
	return &ExcursionService{
		logger:        logger,
		Service:       orz.NewService(db),
		excursionRepo: repo.NewExcursionRepo(db),
		candleRepo:    repo.NewCandleRepo(db),
	}
}

// Rebuild 用最新的回合列表重建整张缓存表，返回成功计算指标的条数。
// 行情缺失的回合仍然入库，指标字段为 NULL。
func (s *ExcursionService) Rebuild(ctx context.Context, roundTrips []fifo.RoundTrip) (int, error) {
	var computed int
	err := s.Transaction(ctx, func(ctx context.Context) error {
		if err := s.excursionRepo.DeleteAll(ctx); err != nil {
			return err
		}

		for _, rt := range roundTrips {
			row, ok := s.analyzeRoundTrip(ctx, rt)
			if row == nil {
				continue
			}
			if err := s.excursionRepo.Create(ctx, row); err != nil {
				return err
			}
			if ok {
				computed++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("excursions rebuilt",
		zap.Int("round_trips", len(roundTrips)),
		zap.Int("computed", computed))
	return computed, nil
}

// analyzeRoundTrip 计算单个回合的波动指标，第二个返回值表示指标是否有效
func (s *ExcursionService) analyzeRoundTrip(ctx context.Context, rt fifo.RoundTrip) (*models.Excursion, bool) {
	desc := instrument.Parse(rt.Symbol)

	// 波动分析基于标的日线，期权回合看的是标的的走势
	start := rt.EntryTime.AddDate(0, 0, -atrLookbackDays)
	candles, err := s.candleRepo.FindRange(ctx, desc.Underlying, start, rt.ExitTime)
	if err != nil {
		s.logger.Error("load candles failed",
			zap.String("underlying", desc.Underlying),
			zap.Error(err))
		candles = nil
	}

	bars := make([]excursion.Bar, 0, len(candles))
	for _, c := range candles {
		bars = append(bars, excursion.Bar{
			Date:   c.Date,
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Volume,
		})
	}

	// 已实现收益率 = 盈亏 ÷ 入场名义价值
	var realizedPct float64
	if notional := rt.EntryPrice * rt.Quantity * rt.Multiplier; notional != 0 {
		realizedPct = rt.RealizedPnl / notional
	}

	result := excursion.Analyze(excursion.Input{
		EntryDate:   rt.EntryTime,
		EntryPrice:  rt.EntryPrice,
		ExitDate:    rt.ExitTime,
		ExitPrice:   rt.ExitPrice,
		Direction:   rt.Direction,
		RealizedPct: realizedPct,
	}, bars)

	row := &models.Excursion{
		ID:          ulid.Make().String(),
		Fingerprint: rt.Fingerprint,
		Symbol:      rt.Symbol,
		Underlying:  desc.Underlying,
		Direction:   rt.Direction,
		Quantity:    rt.Quantity,
		EntryDate:   rt.EntryTime,
		EntryPrice:  rt.EntryPrice,
		ExitDate:    rt.ExitTime,
		ExitPrice:   rt.ExitPrice,
		RealizedPnl: rt.RealizedPnl,
		MFE:         result.MFE,
		MAE:         result.MAE,
		Efficiency:  result.Efficiency,
		MAEInATR:    result.MAEInATR,
		HoldingDays: result.HoldingDays,
		ComputedAt:  time.Now(),
	}
	return row, result.MFE != nil
}

// GetExcursions 查询波动分析结果，最近平仓的在前
func (s *ExcursionService) GetExcursions(ctx context.Context, underlying string) ([]models.Excursion, error) {
	return s.excursionRepo.FindOrdered(ctx, underlying)
}
