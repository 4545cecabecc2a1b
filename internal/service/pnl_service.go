package service

import (
	"context"
	"sort"
	"time"

	"github.com/dushixiang/tally/internal/models"
	"github.com/dushixiang/tally/internal/repo"
	"github.com/dushixiang/tally/pkg/fifo"
	"github.com/go-orz/orz"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PnlService 盈亏重算服务。
// 每次都从空队列对完整账本做全量FIFO重算，从不增量更新，
// 保证修正单、回补、乱序导入之后的结果全局一致。
type PnlService struct {
	logger *zap.Logger

	*orz.Service

	tradeRepo        *repo.TradeRepo
	excursionService *ExcursionService
}

// NewPnlService 创建盈亏重算服务
func NewPnlService(db *gorm.DB, logger *zap.Logger, excursionService *ExcursionService) *PnlService {
	return &PnlService{
		logger:           logger,
		Service:          orz.NewService(db),
		tradeRepo:        repo.NewTradeRepo(db),
		excursionService: excursionService,
	}
}

func toFifoTrades(trades []models.Trade) []fifo.Trade {
	inputs := make([]fifo.Trade, 0, len(trades))
	for _, t := range trades {
		inputs = append(inputs, fifo.Trade{
			Fingerprint: t.Fingerprint,
			Symbol:      t.Symbol,
			Time:        t.ExecutedAt,
			Quantity:    t.SignedQuantity(),
			Price:       t.Price,
			Multiplier:  t.Multiplier,
		})
	}
	return inputs
}

// RecomputeSummary 一次全量重算的摘要
type RecomputeSummary struct {
	Trades       int     `json:"trades"`
	RoundTrips   int     `json:"round_trips"`
	OpenSymbols  int     `json:"open_symbols"`
	TotalPnl     float64 `json:"total_pnl"`
	ExcursionsOK int     `json:"excursions_ok"`
}

// Recompute 全量重算：FIFO撮合 -> 回写每笔平仓盈亏 -> 重建波动分析缓存
func (s *PnlService) Recompute(ctx context.Context) (*RecomputeSummary, error) {
	trades, err := s.tradeRepo.FindOrdered(ctx, repo.TradeFilter{})
	if err != nil {
		return nil, err
	}

	result := fifo.RecomputeAll(toFifoTrades(trades))

	summary := &RecomputeSummary{
		Trades:     len(trades),
		RoundTrips: len(result.RoundTrips),
	}
	for _, lots := range result.OpenLots {
		if len(lots) > 0 {
			summary.OpenSymbols++
		}
	}

	// 盈亏回写：平仓交易写撮合结果，其余清零。
	// 整体在一个事务里完成，避免出现新旧混合的中间态。
	err = s.Transaction(ctx, func(ctx context.Context) error {
		for _, t := range trades {
			pnl := result.RealizedPnl[t.Fingerprint]
			if t.RealizedPnl == pnl {
				continue
			}
			if err := s.tradeRepo.UpdateRealizedPnl(ctx, t.Fingerprint, pnl); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, pnl := range result.RealizedPnl {
		summary.TotalPnl += pnl
	}

	ok, err := s.excursionService.Rebuild(ctx, result.RoundTrips)
	if err != nil {
		// 波动分析是派生缓存，失败不影响盈亏结果
		s.logger.Error("excursion rebuild failed", zap.Error(err))
	} else {
		summary.ExcursionsOK = ok
	}

	s.logger.Info("ledger recomputed",
		zap.Int("trades", summary.Trades),
		zap.Int("round_trips", summary.RoundTrips),
		zap.Float64("total_pnl", summary.TotalPnl))
	return summary, nil
}

// DailyPnl 单日已实现盈亏
type DailyPnl struct {
	Date       string  `json:"date"`
	Pnl        float64 `json:"pnl"`
	Cumulative float64 `json:"cumulative"`
}

// Stats 账本统计
type Stats struct {
	TotalTrades   int        `json:"total_trades"`
	ClosedTrades  int        `json:"closed_trades"`
	TotalPnl      float64    `json:"total_pnl"`
	WinCount      int        `json:"win_count"`
	LossCount     int        `json:"loss_count"`
	WinRate       float64    `json:"win_rate"`
	AvgWin        float64    `json:"avg_win"`
	AvgLoss       float64    `json:"avg_loss"`
	ProfitFactor  float64    `json:"profit_factor"`
	LargestWin    float64    `json:"largest_win"`
	LargestLoss   float64    `json:"largest_loss"`
	TotalFees     float64    `json:"total_fees"`
	FirstTradeAt  *time.Time `json:"first_trade_at,omitempty"`
	LatestTradeAt *time.Time `json:"latest_trade_at,omitempty"`
}

// GetStats 基于FIFO平仓回合计算账本统计。
// 胜负按回合逐个计，保本回合计入平仓数但既不算赢也不算输
func (s *PnlService) GetStats(ctx context.Context, filter repo.TradeFilter) (*Stats, error) {
	trades, err := s.tradeRepo.FindOrdered(ctx, filter)
	if err != nil {
		return nil, err
	}

	stats := &Stats{TotalTrades: len(trades)}
	for i, t := range trades {
		stats.TotalFees += t.Commission
		if i == 0 {
			at := t.ExecutedAt
			stats.FirstTradeAt = &at
		}
		if i == len(trades)-1 {
			at := t.ExecutedAt
			stats.LatestTradeAt = &at
		}
	}

	result := fifo.RecomputeAll(toFifoTrades(trades))

	var grossWin, grossLoss float64
	for _, rt := range result.RoundTrips {
		stats.ClosedTrades++
		stats.TotalPnl += rt.RealizedPnl
		switch {
		case rt.RealizedPnl > 0:
			stats.WinCount++
			grossWin += rt.RealizedPnl
			if rt.RealizedPnl > stats.LargestWin {
				stats.LargestWin = rt.RealizedPnl
			}
		case rt.RealizedPnl < 0:
			stats.LossCount++
			grossLoss += -rt.RealizedPnl
			if rt.RealizedPnl < stats.LargestLoss {
				stats.LargestLoss = rt.RealizedPnl
			}
		}
	}
	if stats.WinCount+stats.LossCount > 0 {
		stats.WinRate = float64(stats.WinCount) / float64(stats.WinCount+stats.LossCount)
	}
	if stats.WinCount > 0 {
		stats.AvgWin = grossWin / float64(stats.WinCount)
	}
	if stats.LossCount > 0 {
		stats.AvgLoss = -grossLoss / float64(stats.LossCount)
	}
	if grossLoss > 0 {
		stats.ProfitFactor = grossWin / grossLoss
	}
	return stats, nil
}

// GetEquityCurve 按日聚合已实现盈亏并累加成权益曲线
func (s *PnlService) GetEquityCurve(ctx context.Context, filter repo.TradeFilter) ([]DailyPnl, error) {
	trades, err := s.tradeRepo.FindOrdered(ctx, filter)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]float64)
	for _, t := range trades {
		if t.RealizedPnl == 0 {
			continue
		}
		day := t.ExecutedAt.UTC().Format("2006-01-02")
		byDay[day] += t.RealizedPnl
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	curve := make([]DailyPnl, 0, len(days))
	var cumulative float64
	for _, day := range days {
		cumulative += byDay[day]
		curve = append(curve, DailyPnl{
			Date:       day,
			Pnl:        byDay[day],
			Cumulative: cumulative,
		})
	}
	return curve, nil
}
