package position

import (
	"testing"
	"time"

	"github.com/dushixiang/tally/pkg/instrument"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2025, 3, n, 0, 0, 0, 0, time.UTC)
}

func TestBuildWeightedAverageCost(t *testing.T) {
	trades := []Trade{
		{Symbol: "AAPL", Time: day(1), Quantity: 100, Price: 150},
		{Symbol: "AAPL", Time: day(2), Quantity: 100, Price: 160},
	}

	positions := Build(trades)

	c := positions["AAPL"]
	require.NotNil(t, c)
	assert.Equal(t, 200.0, c.StockQuantity)
	assert.InDelta(t, 155.0, c.StockAvgCost, 1e-9)
}

func TestBuildSellKeepsAvgCost(t *testing.T) {
	trades := []Trade{
		{Symbol: "AAPL", Time: day(1), Quantity: 100, Price: 150},
		{Symbol: "AAPL", Time: day(2), Quantity: -40, Price: 180},
	}

	positions := Build(trades)

	c := positions["AAPL"]
	require.NotNil(t, c)
	assert.Equal(t, 60.0, c.StockQuantity)
	assert.InDelta(t, 150.0, c.StockAvgCost, 1e-9)
}

func TestBuildOptionLegsGroupedAndNetted(t *testing.T) {
	trades := []Trade{
		{Symbol: "AAPL250620C00150000", Time: day(1), Quantity: -10, Price: 5},
		{Symbol: "AAPL250620C00150000", Time: day(2), Quantity: 4, Price: 3},
		{Symbol: "AAPL250620P00140000", Time: day(1), Quantity: 2, Price: 2.5},
	}

	positions := Build(trades)

	c := positions["AAPL"]
	require.NotNil(t, c)
	require.Len(t, c.Legs, 2)

	// 按行权价排序：140 put 在前
	put := c.Legs[0]
	assert.True(t, put.IsPut())
	assert.Equal(t, 2.0, put.Quantity)

	call := c.Legs[1]
	assert.True(t, call.IsCall())
	assert.Equal(t, -6.0, call.Quantity)
}

func TestBuildDropsFlatUnderlyings(t *testing.T) {
	trades := []Trade{
		{Symbol: "AAPL", Time: day(1), Quantity: 100, Price: 150},
		{Symbol: "AAPL", Time: day(2), Quantity: -100, Price: 160, RealizedPnl: 1000},
		{Symbol: "TSLA250620C00200000", Time: day(1), Quantity: 5, Price: 3},
		{Symbol: "TSLA250620C00200000", Time: day(3), Quantity: -5, Price: 4},
	}

	positions := Build(trades)

	assert.NotContains(t, positions, "AAPL")
	assert.NotContains(t, positions, "TSLA")
}

func TestBuildStockPlusLegsSameUnderlying(t *testing.T) {
	trades := []Trade{
		{Symbol: "MSFT", Time: day(1), Quantity: 200, Price: 400},
		{Symbol: "MSFT250620C00420000", Time: day(1), Quantity: -2, Price: 6},
	}

	positions := Build(trades)

	c := positions["MSFT"]
	require.NotNil(t, c)
	assert.True(t, c.HasStock())
	require.Len(t, c.Legs, 1)
	assert.Equal(t, instrument.RightCall, c.Legs[0].Right)
	assert.True(t, c.Legs[0].IsShort())
}

func TestBuildAccumulatesRealizedPnl(t *testing.T) {
	trades := []Trade{
		{Symbol: "NVDA", Time: day(1), Quantity: 50, Price: 100},
		{Symbol: "NVDA", Time: day(2), Quantity: -20, Price: 120, RealizedPnl: 400},
		{Symbol: "NVDA250620P00090000", Time: day(3), Quantity: 1, Price: 2, RealizedPnl: 0},
	}

	positions := Build(trades)

	c := positions["NVDA"]
	require.NotNil(t, c)
	assert.Equal(t, 400.0, c.RealizedPnl)
}

func TestBuildIsStateless(t *testing.T) {
	trades := []Trade{
		{Symbol: "AAPL", Time: day(1), Quantity: 100, Price: 150},
	}

	first := Build(trades)
	second := Build(trades)

	assert.Equal(t, first["AAPL"].StockQuantity, second["AAPL"].StockQuantity)
	// 修改一份结果不影响另一份
	first["AAPL"].StockQuantity = 0
	assert.Equal(t, 100.0, second["AAPL"].StockQuantity)
}
