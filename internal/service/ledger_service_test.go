package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dushixiang/tally/internal/config"
	"github.com/dushixiang/tally/internal/models"
	"github.com/dushixiang/tally/internal/repo"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		models.Trade{}, models.Candle{}, models.Excursion{},
		models.Report{}, models.JournalConfig{},
	))
	return db
}

func newTestLedger(t *testing.T) (*LedgerService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc := NewLedgerService(db, zap.NewNop(), &config.Config{})
	return svc, db
}

func TestLedgerServiceAddTrade(t *testing.T) {
	svc, _ := newTestLedger(t)
	ctx := context.Background()

	trade, accepted, err := svc.AddTrade(ctx, TradeInput{
		Symbol:     "AAPL",
		Side:       "BOT",
		Quantity:   100,
		Price:      150,
		ExecutedAt: time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.Equal(t, models.TradeSideBuy, trade.Side)
	assert.Equal(t, "stock", trade.Kind)
	assert.Equal(t, "AAPL", trade.Underlying)
	assert.Equal(t, float64(1), trade.Multiplier)
	assert.NotEmpty(t, trade.Fingerprint)
}

func TestLedgerServiceNegativeQuantityFlipsSide(t *testing.T) {
	svc, _ := newTestLedger(t)
	ctx := context.Background()

	trade, _, err := svc.AddTrade(ctx, TradeInput{
		Symbol:     "AAPL",
		Side:       "buy",
		Quantity:   -100,
		Price:      150,
		ExecutedAt: time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, models.TradeSideSell, trade.Side)
	assert.Equal(t, float64(100), trade.Quantity)
	assert.Equal(t, float64(-100), trade.SignedQuantity())
}

func TestLedgerServiceOptionDefaults(t *testing.T) {
	svc, _ := newTestLedger(t)
	ctx := context.Background()

	trade, _, err := svc.AddTrade(ctx, TradeInput{
		Symbol:     "AAPL250620C00150000",
		Side:       "SLD",
		Quantity:   2,
		Price:      3.5,
		Multiplier: 0,
		ExecutedAt: time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "option", trade.Kind)
	assert.Equal(t, "AAPL", trade.Underlying)
	assert.Equal(t, float64(150), trade.Strike)
	assert.Equal(t, "call", trade.Right)
	assert.Equal(t, float64(100), trade.Multiplier)
	require.NotNil(t, trade.Expiry)
	assert.Equal(t, 2025, trade.Expiry.Year())
}

func TestLedgerServiceDuplicateIsIdempotent(t *testing.T) {
	svc, db := newTestLedger(t)
	ctx := context.Background()

	input := TradeInput{
		Symbol:     "AAPL",
		Side:       "buy",
		Quantity:   100,
		Price:      150,
		ExecutedAt: time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC),
	}
	first, accepted, err := svc.AddTrade(ctx, input)
	require.NoError(t, err)
	require.True(t, accepted)

	// 重复指纹不是错误，幂等返回已存在的记录
	second, accepted, err := svc.AddTrade(ctx, input)
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)

	trades, err := repo.NewTradeRepo(db).FindOrdered(ctx, repo.TradeFilter{})
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

func TestLedgerServiceInvalidInputs(t *testing.T) {
	svc, _ := newTestLedger(t)
	ctx := context.Background()
	at := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)

	cases := []struct {
		name  string
		input TradeInput
	}{
		{"empty symbol", TradeInput{Side: "buy", Quantity: 1, Price: 1, ExecutedAt: at}},
		{"bad side", TradeInput{Symbol: "AAPL", Side: "hold", Quantity: 1, Price: 1, ExecutedAt: at}},
		{"zero quantity", TradeInput{Symbol: "AAPL", Side: "buy", Quantity: 0, Price: 1, ExecutedAt: at}},
		{"negative price", TradeInput{Symbol: "AAPL", Side: "buy", Quantity: 1, Price: -1, ExecutedAt: at}},
		{"zero price", TradeInput{Symbol: "AAPL", Side: "buy", Quantity: 1, ExecutedAt: at}},
		{"zero time", TradeInput{Symbol: "AAPL", Side: "buy", Quantity: 1, Price: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.AddTrade(ctx, tc.input)
			assert.Error(t, err)
		})
	}
}

func TestLedgerServiceImportTrades(t *testing.T) {
	svc, _ := newTestLedger(t)
	ctx := context.Background()
	at := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)

	inputs := []TradeInput{
		{Symbol: "AAPL", Side: "buy", Quantity: 100, Price: 150, ExecutedAt: at},
		{Symbol: "AAPL", Side: "sell", Quantity: 100, Price: 160, ExecutedAt: at.Add(time.Hour)},
		{Symbol: "AAPL", Side: "buy", Quantity: 100, Price: 150, ExecutedAt: at}, // 批内重复
		{Symbol: "", Side: "buy", Quantity: 1, Price: 1, ExecutedAt: at},         // 坏记录
	}

	result, err := svc.ImportTrades(ctx, inputs)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Accepted)
	assert.Equal(t, 1, result.Duplicated)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, 3, result.Rejected[0].Index)

	// 重放同一批次应该全部按重复处理
	result, err = svc.ImportTrades(ctx, inputs[:2])
	require.NoError(t, err)
	assert.Equal(t, 0, result.Accepted)
	assert.Equal(t, 2, result.Duplicated)
}

func TestLedgerServiceClearAll(t *testing.T) {
	svc, db := newTestLedger(t)
	ctx := context.Background()

	_, _, err := svc.AddTrade(ctx, TradeInput{
		Symbol:     "AAPL",
		Side:       "buy",
		Quantity:   100,
		Price:      150,
		ExecutedAt: time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.NoError(t, svc.ClearAll(ctx))

	trades, err := repo.NewTradeRepo(db).FindOrdered(ctx, repo.TradeFilter{})
	require.NoError(t, err)
	assert.Empty(t, trades)
}
