package service

import (
	"context"
	"testing"
	"time"

	"github.com/dushixiang/tally/internal/config"
	"github.com/dushixiang/tally/internal/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestJournal(t *testing.T) (*LedgerService, *PnlService, *ExcursionService, *MarketService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	logger := zap.NewNop()
	ledger := NewLedgerService(db, logger, &config.Config{})
	excursionService := NewExcursionService(db, logger)
	pnlService := NewPnlService(db, logger, excursionService)
	marketService := NewMarketService(db, logger, nil)
	return ledger, pnlService, excursionService, marketService, db
}

func seedTrade(t *testing.T, ledger *LedgerService, symbol, side string, qty, price float64, at time.Time) {
	t.Helper()
	_, _, err := ledger.AddTrade(context.Background(), TradeInput{
		Symbol:     symbol,
		Side:       side,
		Quantity:   qty,
		Price:      price,
		ExecutedAt: at,
	})
	require.NoError(t, err)
}

func TestPnlServiceRecompute(t *testing.T) {
	ledger, pnlService, _, _, db := newTestJournal(t)
	ctx := context.Background()

	entry := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)
	exit := time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC)
	seedTrade(t, ledger, "AAPL", "buy", 100, 100, entry)
	seedTrade(t, ledger, "AAPL", "sell", 100, 110, exit)

	summary, err := pnlService.Recompute(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Trades)
	assert.Equal(t, 1, summary.RoundTrips)
	assert.Equal(t, 0, summary.OpenSymbols)
	assert.InDelta(t, 1000, summary.TotalPnl, 1e-9)

	trades, err := repo.NewTradeRepo(db).FindOrdered(ctx, repo.TradeFilter{})
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Zero(t, trades[0].RealizedPnl)
	assert.InDelta(t, 1000, trades[1].RealizedPnl, 1e-9)
}

func TestPnlServiceRecomputeIdempotent(t *testing.T) {
	ledger, pnlService, _, _, _ := newTestJournal(t)
	ctx := context.Background()

	entry := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)
	seedTrade(t, ledger, "AAPL", "buy", 100, 100, entry)
	seedTrade(t, ledger, "AAPL", "sell", 40, 110, entry.Add(24*time.Hour))

	first, err := pnlService.Recompute(ctx)
	require.NoError(t, err)
	second, err := pnlService.Recompute(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.TotalPnl, second.TotalPnl)
	assert.Equal(t, first.RoundTrips, second.RoundTrips)
	assert.Equal(t, 1, second.OpenSymbols)
}

func TestPnlServiceExcursionRebuild(t *testing.T) {
	ledger, pnlService, excursionService, marketService, _ := newTestJournal(t)
	ctx := context.Background()

	entry := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)
	exit := time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC)
	seedTrade(t, ledger, "AAPL", "buy", 100, 100, entry)
	seedTrade(t, ledger, "AAPL", "sell", 100, 110, exit)
	// TSLA回合没有任何行情
	seedTrade(t, ledger, "TSLA", "buy", 10, 200, entry)
	seedTrade(t, ledger, "TSLA", "sell", 10, 210, exit)

	// 持有期间最高115、最低98
	var candles []CandleInput
	for d := 0; d <= 8; d++ {
		date := time.Date(2025, 6, 2+d, 0, 0, 0, 0, time.UTC)
		candles = append(candles, CandleInput{
			Underlying: "AAPL",
			Date:       date,
			Open:       100, High: 115, Low: 98, Close: 110,
		})
	}
	_, err := marketService.PushCandles(ctx, candles)
	require.NoError(t, err)

	_, err = pnlService.Recompute(ctx)
	require.NoError(t, err)

	excursions, err := excursionService.GetExcursions(ctx, "")
	require.NoError(t, err)
	require.Len(t, excursions, 2)

	byUnderlying := map[string]int{}
	for i, e := range excursions {
		byUnderlying[e.Underlying] = i
	}

	aapl := excursions[byUnderlying["AAPL"]]
	require.NotNil(t, aapl.MFE)
	require.NotNil(t, aapl.MAE)
	require.NotNil(t, aapl.Efficiency)
	assert.InDelta(t, 0.15, *aapl.MFE, 1e-9)
	assert.InDelta(t, -0.02, *aapl.MAE, 1e-9)
	assert.InDelta(t, 0.1/0.15, *aapl.Efficiency, 1e-9)
	assert.Equal(t, 9, aapl.HoldingDays)

	tsla := excursions[byUnderlying["TSLA"]]
	assert.Nil(t, tsla.MFE)
	assert.Nil(t, tsla.MAE)
	assert.Nil(t, tsla.Efficiency)
}

func TestPnlServiceStats(t *testing.T) {
	ledger, pnlService, _, _, _ := newTestJournal(t)
	ctx := context.Background()

	at := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)
	seedTrade(t, ledger, "AAPL", "buy", 100, 100, at)
	seedTrade(t, ledger, "AAPL", "sell", 100, 110, at.Add(24*time.Hour)) // +1000
	seedTrade(t, ledger, "TSLA", "buy", 10, 200, at.Add(48*time.Hour))
	seedTrade(t, ledger, "TSLA", "sell", 10, 150, at.Add(72*time.Hour)) // -500

	_, err := pnlService.Recompute(ctx)
	require.NoError(t, err)

	stats, err := pnlService.GetStats(ctx, repo.TradeFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalTrades)
	assert.Equal(t, 2, stats.ClosedTrades)
	assert.InDelta(t, 500, stats.TotalPnl, 1e-9)
	assert.Equal(t, 1, stats.WinCount)
	assert.Equal(t, 1, stats.LossCount)
	assert.InDelta(t, 0.5, stats.WinRate, 1e-9)
	assert.InDelta(t, 2.0, stats.ProfitFactor, 1e-9)
	assert.InDelta(t, 1000, stats.LargestWin, 1e-9)
	assert.InDelta(t, -500, stats.LargestLoss, 1e-9)
}

func TestPnlServiceStatsBreakEvenRoundTrip(t *testing.T) {
	ledger, pnlService, _, _, _ := newTestJournal(t)
	ctx := context.Background()

	// 原价买进卖出，平仓回合盈亏为零
	at := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)
	seedTrade(t, ledger, "AAPL", "buy", 100, 100, at)
	seedTrade(t, ledger, "AAPL", "sell", 100, 100, at.Add(24*time.Hour))

	_, err := pnlService.Recompute(ctx)
	require.NoError(t, err)

	stats, err := pnlService.GetStats(ctx, repo.TradeFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalTrades)
	// 保本回合也是平仓，但不计入胜负
	assert.Equal(t, 1, stats.ClosedTrades)
	assert.Equal(t, 0, stats.WinCount)
	assert.Equal(t, 0, stats.LossCount)
	assert.Zero(t, stats.TotalPnl)
	assert.Zero(t, stats.WinRate)
}

func TestPnlServiceEquityCurve(t *testing.T) {
	ledger, pnlService, _, _, _ := newTestJournal(t)
	ctx := context.Background()

	at := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)
	seedTrade(t, ledger, "AAPL", "buy", 100, 100, at)
	seedTrade(t, ledger, "AAPL", "sell", 100, 110, at.Add(24*time.Hour))
	seedTrade(t, ledger, "TSLA", "buy", 10, 200, at.Add(48*time.Hour))
	seedTrade(t, ledger, "TSLA", "sell", 10, 150, at.Add(96*time.Hour))

	_, err := pnlService.Recompute(ctx)
	require.NoError(t, err)

	curve, err := pnlService.GetEquityCurve(ctx, repo.TradeFilter{})
	require.NoError(t, err)
	require.Len(t, curve, 2)
	assert.Equal(t, "2025-06-03", curve[0].Date)
	assert.InDelta(t, 1000, curve[0].Cumulative, 1e-9)
	assert.Equal(t, "2025-06-06", curve[1].Date)
	assert.InDelta(t, 500, curve[1].Cumulative, 1e-9)
}

func TestPositionServiceViews(t *testing.T) {
	ledger, pnlService, _, _, db := newTestJournal(t)
	ctx := context.Background()

	at := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)
	seedTrade(t, ledger, "AAPL", "buy", 100, 150, at)
	_, _, err := ledger.AddTrade(ctx, TradeInput{
		Symbol:     "AAPL250620C00160000",
		Side:       "sell",
		Quantity:   1,
		Price:      3.5,
		ExecutedAt: at.Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = pnlService.Recompute(ctx)
	require.NoError(t, err)

	positionService := NewPositionService(db, zap.NewNop())
	views, err := positionService.GetPositions(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "AAPL", views[0].Underlying)
	assert.Equal(t, "covered_call", views[0].Strategy.Tag)

	view, err := positionService.GetPosition(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, float64(100), view.StockQuantity)

	missing, err := positionService.GetPosition(ctx, "TSLA")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
