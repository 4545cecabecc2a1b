// Package excursion 基于日线行情对已平仓回合做最大有利/不利波动分析。
package excursion

import (
	"time"

	"github.com/dushixiang/tally/pkg/ta"
)

// Bar 一根日线K线
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Input 一次已平仓回合
type Input struct {
	EntryDate  time.Time
	EntryPrice float64
	ExitDate   time.Time
	ExitPrice  float64
	// long/short，被平仓方向
	Direction string
	// 已实现收益率（已实现盈亏 ÷ 入场名义价值）
	RealizedPct float64
}

// Result 波动分析结果。
// 行情缺失时 MFE/MAE/Efficiency 为 nil，调用方必须区分
// “无信号”与“零波动”两种情况。
type Result struct {
	EntryDate  time.Time `json:"entry_date"`
	EntryPrice float64   `json:"entry_price"`
	ExitDate   time.Time `json:"exit_date"`
	ExitPrice  float64   `json:"exit_price"`
	Direction  string    `json:"direction"`
	// 最大有利波动（比例，≥0）
	MFE *float64 `json:"mfe"`
	// 最大不利波动（比例，≤0）
	MAE *float64 `json:"mae"`
	// 交易效率 = 已实现收益率 ÷ MFE，截断到 [0, 1]
	Efficiency *float64 `json:"efficiency"`
	// MAE 折算成 ATR(14) 倍数，入场前行情不足时为 nil
	MAEInATR *float64 `json:"mae_in_atr"`
	// 持有天数（日历日，入场当天算1天）
	HoldingDays int `json:"holding_days"`
}

const atrPeriod = 14

// Analyze 在 [entry, exit] 区间的K线上计算 MFE/MAE 与交易效率。
// bars 必须按日期升序；区间之外的K线会被忽略，缺口不做插值。
func Analyze(in Input, bars []Bar) Result {
	result := Result{
		EntryDate:   in.EntryDate,
		EntryPrice:  in.EntryPrice,
		ExitDate:    in.ExitDate,
		ExitPrice:   in.ExitPrice,
		Direction:   in.Direction,
		HoldingDays: holdingDays(in.EntryDate, in.ExitDate),
	}

	if in.EntryPrice <= 0 {
		return result
	}

	var highs, lows []float64
	for _, b := range bars {
		if b.Date.Before(truncateDay(in.EntryDate)) || b.Date.After(in.ExitDate) {
			continue
		}
		highs = append(highs, b.High)
		lows = append(lows, b.Low)
	}
	if len(highs) == 0 {
		// 行情缺失：无信号，不是零波动
		return result
	}

	var mfe, mae float64
	if in.Direction == "short" {
		mfe = (in.EntryPrice - ta.Lowest(lows, len(lows))) / in.EntryPrice
		mae = (in.EntryPrice - ta.Highest(highs, len(highs))) / in.EntryPrice
	} else {
		mfe = (ta.Highest(highs, len(highs)) - in.EntryPrice) / in.EntryPrice
		mae = (ta.Lowest(lows, len(lows)) - in.EntryPrice) / in.EntryPrice
	}
	if mfe < 0 {
		mfe = 0
	}
	if mae > 0 {
		mae = 0
	}

	efficiency := computeEfficiency(in.RealizedPct, mfe)

	result.MFE = &mfe
	result.MAE = &mae
	result.Efficiency = &efficiency
	result.MAEInATR = maeInATR(in, mae, bars)
	return result
}

// computeEfficiency 计算已实现收益占最大有利波动的比例。
// MFE 为零时避免除零：不亏即记满分，亏损记零分。
func computeEfficiency(realizedPct, mfe float64) float64 {
	if mfe <= 0 {
		if realizedPct >= 0 {
			return 1
		}
		return 0
	}
	eff := realizedPct / mfe
	if eff < 0 {
		return 0
	}
	if eff > 1 {
		return 1
	}
	return eff
}

// maeInATR 把 MAE 折算为入场时 ATR(14) 的倍数，
// 入场前K线不足 ATR 周期时返回 nil。
func maeInATR(in Input, mae float64, bars []Bar) *float64 {
	var highs, lows, closes []float64
	for _, b := range bars {
		if b.Date.Before(truncateDay(in.EntryDate)) {
			highs = append(highs, b.High)
			lows = append(lows, b.Low)
			closes = append(closes, b.Close)
		}
	}
	series := ta.ATR(highs, lows, closes, atrPeriod)
	if len(series) == 0 {
		return nil
	}
	atr := ta.Last(series, 0)
	if atr <= 0 {
		return nil
	}
	v := (mae * in.EntryPrice) / atr
	return &v
}

func holdingDays(entry, exit time.Time) int {
	days := int(truncateDay(exit).Sub(truncateDay(entry)).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	return days
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
