package excursion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2025, 1, n, 0, 0, 0, 0, time.UTC)
}

func bar(n int, high, low float64) Bar {
	return Bar{Date: day(n), Open: (high + low) / 2, High: high, Low: low, Close: (high + low) / 2}
}

func TestAnalyzeLongScenario(t *testing.T) {
	// 规格场景：入场150，出场160，窗口内最高165
	// MFE = (165-150)/150 = 10%，效率 = 6.67%/10% ≈ 0.667
	bars := []Bar{
		bar(1, 152, 149),
		bar(3, 158, 151),
		bar(6, 165, 156),
		bar(10, 161, 158),
	}
	in := Input{
		EntryDate:  day(1),
		EntryPrice: 150,
		ExitDate:   day(10),
		ExitPrice:  160,
		Direction:  "long",
		RealizedPct: 1000.0 / (150 * 100),
	}

	r := Analyze(in, bars)

	require.NotNil(t, r.MFE)
	assert.InDelta(t, 0.10, *r.MFE, 1e-9)
	require.NotNil(t, r.Efficiency)
	assert.InDelta(t, 0.6667, *r.Efficiency, 1e-3)
	assert.Equal(t, 10, r.HoldingDays)
}

func TestAnalyzeMFEClampedAtZero(t *testing.T) {
	// 多头价格从未超过入场价：MFE 必须等于 0
	bars := []Bar{
		bar(1, 99, 95),
		bar(2, 98, 94),
	}
	in := Input{EntryDate: day(1), EntryPrice: 100, ExitDate: day(2), ExitPrice: 96, Direction: "long", RealizedPct: -0.04}

	r := Analyze(in, bars)

	require.NotNil(t, r.MFE)
	assert.Equal(t, 0.0, *r.MFE)
	require.NotNil(t, r.MAE)
	assert.InDelta(t, -0.06, *r.MAE, 1e-9)
	// MFE=0 且亏损：效率为 0
	require.NotNil(t, r.Efficiency)
	assert.Equal(t, 0.0, *r.Efficiency)
}

func TestAnalyzeFlatTradeFullEfficiency(t *testing.T) {
	// MFE=0 且不亏：效率记 1
	bars := []Bar{bar(1, 100, 100)}
	in := Input{EntryDate: day(1), EntryPrice: 100, ExitDate: day(1), ExitPrice: 100, Direction: "long", RealizedPct: 0}

	r := Analyze(in, bars)

	require.NotNil(t, r.Efficiency)
	assert.Equal(t, 1.0, *r.Efficiency)
}

func TestAnalyzeShortDirection(t *testing.T) {
	bars := []Bar{
		bar(1, 102, 98),
		bar(2, 105, 90),
	}
	in := Input{EntryDate: day(1), EntryPrice: 100, ExitDate: day(2), ExitPrice: 95, Direction: "short", RealizedPct: 0.05}

	r := Analyze(in, bars)

	require.NotNil(t, r.MFE)
	assert.InDelta(t, 0.10, *r.MFE, 1e-9) // (100-90)/100
	require.NotNil(t, r.MAE)
	assert.InDelta(t, -0.05, *r.MAE, 1e-9) // (100-105)/100
}

func TestAnalyzeNoDataYieldsNilMetrics(t *testing.T) {
	// 区间内无K线：返回 nil 指标而不是合成零值
	bars := []Bar{bar(20, 100, 99)}
	in := Input{EntryDate: day(1), EntryPrice: 100, ExitDate: day(5), ExitPrice: 101, Direction: "long", RealizedPct: 0.01}

	r := Analyze(in, bars)

	assert.Nil(t, r.MFE)
	assert.Nil(t, r.MAE)
	assert.Nil(t, r.Efficiency)
	assert.Equal(t, 5, r.HoldingDays)
}

func TestAnalyzeIgnoresBarsOutsideWindow(t *testing.T) {
	bars := []Bar{
		bar(1, 300, 50), // 窗口之前的极端行情不应影响结果
	}
	for n := 2; n <= 5; n++ {
		bars = append(bars, bar(n, 101, 99))
	}
	in := Input{EntryDate: day(2), EntryPrice: 100, ExitDate: day(5), ExitPrice: 100, Direction: "long", RealizedPct: 0}

	r := Analyze(in, bars)

	require.NotNil(t, r.MFE)
	assert.InDelta(t, 0.01, *r.MFE, 1e-9)
}

func TestAnalyzeATRNormalizationNeedsHistory(t *testing.T) {
	// 入场前不足 ATR 周期：MAEInATR 为 nil
	bars := []Bar{bar(1, 101, 99), bar(2, 102, 98)}
	in := Input{EntryDate: day(2), EntryPrice: 100, ExitDate: day(2), ExitPrice: 100, Direction: "long", RealizedPct: 0}

	r := Analyze(in, bars)
	assert.Nil(t, r.MAEInATR)

	// 充足的入场前历史则可以折算
	var history []Bar
	for n := 1; n <= 20; n++ {
		history = append(history, bar(n, 102, 98))
	}
	history = append(history, bar(21, 101, 95))
	in2 := Input{EntryDate: day(21), EntryPrice: 100, ExitDate: day(21), ExitPrice: 96, Direction: "long", RealizedPct: -0.04}

	r2 := Analyze(in2, history)
	require.NotNil(t, r2.MAEInATR)
	assert.Less(t, *r2.MAEInATR, 0.0)
}
