package fifo

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2025, 1, n, 0, 0, 0, 0, time.UTC)
}

func trade(fp, symbol string, t time.Time, qty, price, mult float64) Trade {
	return Trade{Fingerprint: fp, Symbol: symbol, Time: t, Quantity: qty, Price: price, Multiplier: mult}
}

func TestZeroSumRoundTrip(t *testing.T) {
	trades := []Trade{
		trade("t1", "AAPL", day(1), 100, 150, 1),
		trade("t2", "AAPL", day(2), -100, 150, 1),
	}

	r := RecomputeAll(trades)

	assert.Equal(t, 0.0, r.RealizedPnl["t1"])
	assert.Equal(t, 0.0, r.RealizedPnl["t2"])
	assert.Empty(t, r.OpenLots)
}

func TestSimpleLongProfit(t *testing.T) {
	// 规格场景：买100@150，卖100@160 -> 平仓盈亏 1000
	trades := []Trade{
		trade("t1", "AAPL", day(1), 100, 150, 1),
		trade("t2", "AAPL", day(10), -100, 160, 1),
	}

	r := RecomputeAll(trades)

	assert.Equal(t, 1000.0, r.RealizedPnl["t2"])
	require.Len(t, r.RoundTrips, 1)
	rt := r.RoundTrips[0]
	assert.Equal(t, "long", rt.Direction)
	assert.Equal(t, 150.0, rt.EntryPrice)
	assert.Equal(t, day(1), rt.EntryTime)
	assert.Equal(t, 160.0, rt.ExitPrice)
	assert.Equal(t, 100.0, rt.Quantity)
}

func TestShortCoverProfit(t *testing.T) {
	trades := []Trade{
		trade("t1", "TSLA", day(1), -50, 200, 1),
		trade("t2", "TSLA", day(5), 50, 180, 1),
	}

	r := RecomputeAll(trades)

	assert.Equal(t, 1000.0, r.RealizedPnl["t2"])
	require.Len(t, r.RoundTrips, 1)
	assert.Equal(t, "short", r.RoundTrips[0].Direction)
}

func TestFIFOOrderAcrossLots(t *testing.T) {
	// 两个批次不同成本，先进先出：先平最早的100@10
	trades := []Trade{
		trade("t1", "X", day(1), 100, 10, 1),
		trade("t2", "X", day(2), 100, 20, 1),
		trade("t3", "X", day(3), -150, 30, 1),
	}

	r := RecomputeAll(trades)

	// 100*(30-10) + 50*(30-20) = 2500
	assert.Equal(t, 2500.0, r.RealizedPnl["t3"])
	assert.Equal(t, 50.0, r.NetQuantity("X"))
	require.Len(t, r.RoundTrips, 1)
	// 加权平均入场价 (100*10+50*20)/150
	assert.InDelta(t, 13.333333, r.RoundTrips[0].EntryPrice, 1e-6)
}

func TestDrainThenFlip(t *testing.T) {
	// 超量平仓：排空多头后剩余部分反手开空
	trades := []Trade{
		trade("t1", "X", day(1), 100, 10, 1),
		trade("t2", "X", day(2), -150, 12, 1),
	}

	r := RecomputeAll(trades)

	assert.Equal(t, 200.0, r.RealizedPnl["t2"])
	assert.Equal(t, -50.0, r.NetQuantity("X"))
	lots := r.OpenLots["X"]
	require.Len(t, lots, 1)
	assert.Equal(t, 12.0, lots[0].Price)
}

func TestOptionMultiplier(t *testing.T) {
	trades := []Trade{
		trade("t1", "AAPL250620C00150000", day(1), 10, 5, 100),
		trade("t2", "AAPL250620C00150000", day(3), -10, 7.5, 100),
	}

	r := RecomputeAll(trades)

	// (7.5-5)*10*100
	assert.Equal(t, 2500.0, r.RealizedPnl["t2"])
}

func TestZeroMultiplierDefaultsToOne(t *testing.T) {
	trades := []Trade{
		trade("t1", "X", day(1), 10, 100, 0),
		trade("t2", "X", day(2), -10, 101, 0),
	}

	r := RecomputeAll(trades)
	assert.Equal(t, 10.0, r.RealizedPnl["t2"])
}

func TestConservation(t *testing.T) {
	// 任意交易序列下，未平仓批次带符号数量之和等于所有交易带符号数量之和
	trades := []Trade{
		trade("t1", "X", day(1), 100, 10, 1),
		trade("t2", "X", day(2), -30, 11, 1),
		trade("t3", "X", day(3), 50, 12, 1),
		trade("t4", "X", day(4), -200, 13, 1),
		trade("t5", "X", day(5), 25, 9, 1),
	}

	r := RecomputeAll(trades)

	var net float64
	for _, tr := range trades {
		net += tr.Quantity
	}
	assert.InDelta(t, net, r.NetQuantity("X"), 1e-9)
}

func TestIdempotence(t *testing.T) {
	trades := []Trade{
		trade("t1", "X", day(1), 100, 10, 1),
		trade("t2", "Y", day(1), -40, 55, 1),
		trade("t3", "X", day(2), -60, 12, 1),
		trade("t4", "Y", day(3), 40, 50, 1),
	}

	first := RecomputeAll(trades)
	second := RecomputeAll(trades)

	assert.Equal(t, first.RealizedPnl, second.RealizedPnl)
	assert.Equal(t, first.OpenLots, second.OpenLots)
}

func TestPartialCloseKeepsHeadInPlace(t *testing.T) {
	trades := []Trade{
		trade("t1", "X", day(1), 100, 10, 1),
		trade("t2", "X", day(2), -40, 11, 1),
	}

	r := RecomputeAll(trades)

	assert.Equal(t, 40.0, r.RealizedPnl["t2"])
	lots := r.OpenLots["X"]
	require.Len(t, lots, 1)
	assert.Equal(t, 60.0, lots[0].Quantity)
	assert.Equal(t, 10.0, lots[0].Price)
}

func TestSymbolsAreIndependent(t *testing.T) {
	var trades []Trade
	for i := 0; i < 5; i++ {
		sym := fmt.Sprintf("S%d", i)
		trades = append(trades,
			trade(sym+"-open", sym, day(1), 10, float64(100+i), 1),
			trade(sym+"-close", sym, day(2), -10, float64(110+i), 1),
		)
	}

	r := RecomputeAll(trades)

	for i := 0; i < 5; i++ {
		sym := fmt.Sprintf("S%d", i)
		assert.Equal(t, 100.0, r.RealizedPnl[sym+"-close"], sym)
	}
	assert.Empty(t, r.OpenLots)
}

func TestPnlRounding(t *testing.T) {
	trades := []Trade{
		trade("t1", "X", day(1), 3, 10.111, 1),
		trade("t2", "X", day(2), -3, 10.222, 1),
	}

	r := RecomputeAll(trades)
	// 3*0.111 = 0.333 -> 0.33
	assert.Equal(t, 0.33, r.RealizedPnl["t2"])
}
