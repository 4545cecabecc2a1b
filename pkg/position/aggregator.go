// Package position 从全量成交记录重建按标的聚合的组合持仓。
package position

import (
	"sort"
	"time"

	"github.com/dushixiang/tally/pkg/instrument"
)

// Trade 聚合器的输入：一笔成交记录
type Trade struct {
	Symbol      string
	Time        time.Time
	Quantity    float64 // 带符号：买入为正
	Price       float64
	RealizedPnl float64
}

// OptionLeg 组合持仓中的一条期权腿
type OptionLeg struct {
	Symbol   string           `json:"symbol"`
	Right    instrument.Right `json:"right"`
	Strike   float64          `json:"strike"`
	Expiry   time.Time        `json:"expiry"`
	Quantity float64          `json:"quantity"` // 带符号：正为多头腿
	AvgPrice float64          `json:"avg_price"`
}

// IsLong 是否多头腿
func (l OptionLeg) IsLong() bool { return l.Quantity > 0 }

// IsShort 是否空头腿
func (l OptionLeg) IsShort() bool { return l.Quantity < 0 }

// IsCall 是否看涨腿
func (l OptionLeg) IsCall() bool { return l.Right == instrument.RightCall }

// IsPut 是否看跌腿
func (l OptionLeg) IsPut() bool { return l.Right == instrument.RightPut }

// Composite 按标的聚合的组合持仓：净股票仓位 + 未平仓期权腿。
// 这是一个视图，每次请求从交易集合全量重建，从不增量修改。
type Composite struct {
	Underlying    string      `json:"underlying"`
	StockQuantity float64     `json:"stock_quantity"`
	StockAvgCost  float64     `json:"stock_avg_cost"`
	StockPrice    float64     `json:"stock_price"`
	Legs          []OptionLeg `json:"legs"`
	RealizedPnl   float64     `json:"realized_pnl"`
}

// HasStock 是否持有股票仓位
func (c *Composite) HasStock() bool { return c.StockQuantity != 0 }

// LongLegs 多头期权腿
func (c *Composite) LongLegs() []OptionLeg { return c.filterLegs(func(l OptionLeg) bool { return l.IsLong() }) }

// ShortLegs 空头期权腿
func (c *Composite) ShortLegs() []OptionLeg {
	return c.filterLegs(func(l OptionLeg) bool { return l.IsShort() })
}

// Calls 看涨腿
func (c *Composite) Calls() []OptionLeg { return c.filterLegs(func(l OptionLeg) bool { return l.IsCall() }) }

// Puts 看跌腿
func (c *Composite) Puts() []OptionLeg { return c.filterLegs(func(l OptionLeg) bool { return l.IsPut() }) }

func (c *Composite) filterLegs(keep func(OptionLeg) bool) []OptionLeg {
	var out []OptionLeg
	for _, l := range c.Legs {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

type legKey struct {
	strike float64
	expiry time.Time
	right  instrument.Right
}

type legState struct {
	symbol   string
	quantity float64
	cost     float64 // 多头腿累计成本，用于均价
	bought   float64
}

// Build 单次遍历全部交易，按解析出的标的分组重建组合持仓。
// 股票均价只在买入时上移（卖出只减数量不动均价）；
// 期权按(strike, expiry, right)归并，净数量为零的腿被移除；
// 既无股票又无期权腿的标的不出现在结果中。
func Build(trades []Trade) map[string]*Composite {
	type stockState struct {
		quantity float64
		cost     float64 // 累计成本
	}

	stocks := make(map[string]*stockState)
	legs := make(map[string]map[legKey]*legState)
	realized := make(map[string]float64)

	for _, t := range trades {
		desc := instrument.Parse(t.Symbol)
		underlying := desc.Underlying
		realized[underlying] += t.RealizedPnl

		if desc.IsOption() {
			byKey := legs[underlying]
			if byKey == nil {
				byKey = make(map[legKey]*legState)
				legs[underlying] = byKey
			}
			key := legKey{strike: desc.Strike, expiry: desc.Expiry, right: desc.Right}
			state := byKey[key]
			if state == nil {
				state = &legState{symbol: t.Symbol}
				byKey[key] = state
			}
			state.quantity += t.Quantity
			if t.Quantity > 0 {
				state.cost += t.Price * t.Quantity
				state.bought += t.Quantity
			}
			continue
		}

		// 股票与期货同样按加权平均成本处理
		state := stocks[underlying]
		if state == nil {
			state = &stockState{}
			stocks[underlying] = state
		}
		if t.Quantity > 0 {
			state.cost += t.Price * t.Quantity
			state.quantity += t.Quantity
		} else {
			// 卖出只减数量，单位成本不变
			if state.quantity > 0 {
				avg := state.cost / state.quantity
				state.quantity += t.Quantity
				state.cost = avg * state.quantity
			} else {
				state.quantity += t.Quantity
			}
		}
	}

	result := make(map[string]*Composite)

	add := func(underlying string) *Composite {
		c := result[underlying]
		if c == nil {
			c = &Composite{Underlying: underlying}
			result[underlying] = c
		}
		return c
	}

	for underlying, state := range stocks {
		if state.quantity == 0 {
			continue
		}
		c := add(underlying)
		c.StockQuantity = state.quantity
		if state.quantity > 0 {
			c.StockAvgCost = state.cost / state.quantity
		}
	}

	for underlying, byKey := range legs {
		var open []OptionLeg
		for key, state := range byKey {
			if state.quantity == 0 {
				continue
			}
			leg := OptionLeg{
				Symbol:   state.symbol,
				Right:    key.right,
				Strike:   key.strike,
				Expiry:   key.expiry,
				Quantity: state.quantity,
			}
			if state.bought > 0 {
				leg.AvgPrice = state.cost / state.bought
			}
			open = append(open, leg)
		}
		if len(open) == 0 {
			continue
		}
		sort.Slice(open, func(i, j int) bool {
			if open[i].Strike != open[j].Strike {
				return open[i].Strike < open[j].Strike
			}
			if !open[i].Expiry.Equal(open[j].Expiry) {
				return open[i].Expiry.Before(open[j].Expiry)
			}
			return open[i].Right < open[j].Right
		})
		c := add(underlying)
		c.Legs = open
	}

	// 只有已实现盈亏、没有任何持仓的标的不构成持仓
	for underlying, c := range result {
		c.RealizedPnl = realized[underlying]
		if !c.HasStock() && len(c.Legs) == 0 {
			delete(result, underlying)
		}
	}

	return result
}
