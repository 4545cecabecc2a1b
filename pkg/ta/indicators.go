package ta

import (
	talib "github.com/markcheno/go-talib"
)

// EMA 指数移动平均
func EMA(closes []float64, period int) []float64 {
	if len(closes) < period {
		return nil
	}
	return talib.Ema(closes, period)
}

// RSI 相对强弱指数
func RSI(closes []float64, period int) []float64 {
	if len(closes) <= period {
		return nil
	}
	return talib.Rsi(closes, period)
}

// ATR 平均真实波幅
func ATR(highs, lows, closes []float64, period int) []float64 {
	if len(closes) <= period {
		return nil
	}
	return talib.Atr(highs, lows, closes, period)
}

// MACD 指数平滑异同移动平均线，返回 macd/signal/hist
func MACD(closes []float64, fast, slow, signal int) ([]float64, []float64, []float64) {
	if len(closes) < slow+signal {
		return nil, nil, nil
	}
	return talib.Macd(closes, fast, slow, signal)
}
