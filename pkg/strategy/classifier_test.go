package strategy

import (
	"testing"
	"time"

	"github.com/dushixiang/tally/pkg/instrument"
	"github.com/dushixiang/tally/pkg/position"
	"github.com/stretchr/testify/assert"
)

var expiry = time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
var laterExpiry = time.Date(2025, 9, 19, 0, 0, 0, 0, time.UTC)

func leg(right instrument.Right, strike, qty float64) position.OptionLeg {
	return position.OptionLeg{Right: right, Strike: strike, Expiry: expiry, Quantity: qty}
}

func legAt(right instrument.Right, strike, qty float64, exp time.Time) position.OptionLeg {
	return position.OptionLeg{Right: right, Strike: strike, Expiry: exp, Quantity: qty}
}

func composite(stockQty float64, legs ...position.OptionLeg) *position.Composite {
	return &position.Composite{Underlying: "AAPL", StockQuantity: stockQty, StockAvgCost: 50, Legs: legs}
}

func TestClassifyTable(t *testing.T) {
	call := instrument.RightCall
	put := instrument.RightPut

	tests := []struct {
		name string
		pos  *position.Composite
		tag  string
		tier RiskTier
	}{
		// 规格场景：200股 + 卖55看涨 + 买45看跌，同到期日 -> 领口
		{"collar", composite(200, leg(call, 55, -1), leg(put, 45, 1)), "collar", RiskDefined},
		{"covered strangle", composite(100, leg(call, 60, -1), leg(put, 40, -1)), "covered_strangle", RiskDefined},
		{"covered call", composite(100, leg(call, 55, -1)), "covered_call", RiskDefined},
		{"protective put", composite(100, leg(put, 45, 1)), "protective_put", RiskDefined},
		{"covered put", composite(-100, leg(put, 45, -1)), "covered_put", RiskUnlimited},
		{"protective call", composite(-100, leg(call, 55, 1)), "protective_call", RiskDefined},

		{"iron condor", composite(0, leg(put, 40, 1), leg(put, 45, -1), leg(call, 55, -1), leg(call, 60, 1)), "iron_condor", RiskDefined},
		{"iron butterfly", composite(0, leg(put, 45, 1), leg(put, 50, -1), leg(call, 50, -1), leg(call, 55, 1)), "iron_butterfly", RiskDefined},

		{"bull call spread", composite(0, leg(call, 50, 1), leg(call, 55, -1)), "bull_call_spread", RiskDefined},
		{"bear call spread", composite(0, leg(call, 55, 1), leg(call, 50, -1)), "bear_call_spread", RiskDefined},
		{"bull put spread", composite(0, leg(put, 45, 1), leg(put, 50, -1)), "bull_put_spread", RiskDefined},
		{"bear put spread", composite(0, leg(put, 50, 1), leg(put, 45, -1)), "bear_put_spread", RiskDefined},

		{"calendar spread", composite(0, leg(call, 50, -1), legAt(call, 50, 1, laterExpiry)), "calendar_spread", RiskDefined},
		{"diagonal spread", composite(0, leg(call, 50, -1), legAt(call, 55, 1, laterExpiry)), "diagonal_spread", RiskDefined},

		{"long straddle", composite(0, leg(call, 50, 1), leg(put, 50, 1)), "long_straddle", RiskPremium},
		{"short straddle", composite(0, leg(call, 50, -1), leg(put, 50, -1)), "short_straddle", RiskUnlimited},
		{"long strangle", composite(0, leg(call, 55, 1), leg(put, 45, 1)), "long_strangle", RiskPremium},
		{"short strangle", composite(0, leg(call, 55, -1), leg(put, 45, -1)), "short_strangle", RiskUnlimited},

		{"call ratio spread", composite(0, leg(call, 50, 1), leg(call, 55, -2)), "call_ratio_spread", RiskUnlimited},
		{"put ratio spread", composite(0, leg(put, 50, 1), leg(put, 45, -2)), "put_ratio_spread", RiskUnlimited},
		{"call backspread", composite(0, leg(call, 50, -1), leg(call, 55, 2)), "call_backspread", RiskDefined},
		{"put backspread", composite(0, leg(put, 50, -1), leg(put, 45, 2)), "put_backspread", RiskDefined},

		{"synthetic long", composite(0, leg(call, 50, 1), leg(put, 50, -1)), "synthetic_long", RiskDefined},
		{"synthetic short", composite(0, leg(call, 50, -1), leg(put, 50, 1)), "synthetic_short", RiskUnlimited},

		// 规格场景：卖10张看涨，无股票无保护腿 -> 裸卖看涨
		{"naked call", composite(0, leg(call, 150, -10)), "naked_call", RiskUnlimited},
		{"cash secured put", composite(0, leg(put, 45, -1)), "cash_secured_put", RiskDefined},
		{"long call", composite(0, leg(call, 55, 1)), "long_call", RiskPremium},
		{"long put", composite(0, leg(put, 45, 1)), "long_put", RiskPremium},

		{"stock with options fallback", composite(100, leg(call, 50, 1), leg(call, 55, 1)), "stock_with_options", RiskNone},
		{"multi leg fallback", composite(0, leg(call, 50, 1), leg(call, 55, 1), leg(call, 60, 1)), "multi_leg_options", RiskNone},
		{"long stock", composite(100), "long_stock", RiskNone},
		{"short stock", composite(-100), "short_stock", RiskUnlimited},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := Classify(tc.pos)
			assert.Equal(t, tc.tag, c.Tag)
			assert.Equal(t, tc.tier, c.RiskTier)
			assert.Equal(t, 1.0, c.Confidence)
		})
	}
}

func TestClassifyEmptyPosition(t *testing.T) {
	c := Classify(&position.Composite{Underlying: "AAPL"})
	assert.Equal(t, "unknown", c.Tag)
	assert.Equal(t, 0.0, c.Confidence)

	c = Classify(nil)
	assert.Equal(t, "unknown", c.Tag)
}

func TestClassifyPriorityOrder(t *testing.T) {
	// 同时满足备兑看涨与股票加期权兜底的持仓，必须命中高优先级的备兑看涨
	pos := composite(100, leg(instrument.RightCall, 55, -1))
	c := Classify(pos)
	assert.Equal(t, "covered_call", c.Tag)

	// 铁蝶同时满足铁鹰以下的各种两腿规则失败后的兜底，必须先于兜底命中
	pos = composite(0,
		leg(instrument.RightPut, 45, 1), leg(instrument.RightPut, 50, -1),
		leg(instrument.RightCall, 50, -1), leg(instrument.RightCall, 55, 1))
	assert.Equal(t, "iron_butterfly", Classify(pos).Tag)
}

func TestTagsCoverTaxonomy(t *testing.T) {
	tags := Tags()
	assert.GreaterOrEqual(t, len(tags), 30)
	assert.Equal(t, "collar", tags[0])
	assert.Equal(t, "unknown", tags[len(tags)-1])
}

func TestDescribe(t *testing.T) {
	desc, err := Describe("covered_call")
	assert.NoError(t, err)
	assert.NotEmpty(t, desc)

	_, err = Describe("nope")
	assert.Error(t, err)
}
