// Package strategy 把组合持仓归类到固定的期权策略分类表。
//
// 分类器是一张按优先级排列的结构化规则表：自上而下找到第一条
// 结构条件匹配的规则即为结果，平局只看优先级，从不打分。
// 结构无法识别的组合落入通用兜底分类，而不是猜一个具体策略。
package strategy

import (
	"fmt"

	"github.com/dushixiang/tally/pkg/position"
)

// RiskTier 风险层级
type RiskTier string

const (
	// RiskDefined 最大亏损有界（价差宽度、权利金与担保范围内）
	RiskDefined RiskTier = "defined"
	// RiskPremium 最大亏损不超过已付权利金
	RiskPremium RiskTier = "premium"
	// RiskUnlimited 含裸卖空敞口，亏损无上界
	RiskUnlimited RiskTier = "unlimited"
	// RiskNone 纯股票或无法评估
	RiskNone RiskTier = "none"
)

// Classification 策略分类结果
type Classification struct {
	Tag         string   `json:"tag"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	RiskTier    RiskTier `json:"risk_tier"`
	Confidence  float64  `json:"confidence"`
}

type rule struct {
	tag   string
	name  string
	tier  RiskTier
	desc  string
	match func(*shape) bool
}

// Classify 对组合持仓做首次匹配即命中的结构化分类。
// 所有谓词均为纯函数且对任意输入全定义；空持仓返回 unknown。
func Classify(c *position.Composite) Classification {
	if c == nil || (!c.HasStock() && len(c.Legs) == 0) {
		return Classification{
			Tag:         "unknown",
			Name:        "未知",
			Description: "空持仓，无法分类",
			RiskTier:    RiskNone,
		}
	}

	s := newShape(c)
	for _, r := range rules {
		if r.match(s) {
			return Classification{
				Tag:         r.tag,
				Name:        r.name,
				Description: r.desc,
				RiskTier:    r.tier,
				Confidence:  1,
			}
		}
	}

	// 规则表以全覆盖兜底结尾，理论上到不了这里
	return Classification{Tag: "unknown", Name: "未知", RiskTier: RiskNone}
}

// shape 预展开的持仓结构，避免每条规则重复扫描
type shape struct {
	c          *position.Composite
	longCalls  []position.OptionLeg
	shortCalls []position.OptionLeg
	longPuts   []position.OptionLeg
	shortPuts  []position.OptionLeg
}

func newShape(c *position.Composite) *shape {
	s := &shape{c: c}
	for _, l := range c.Legs {
		switch {
		case l.IsCall() && l.IsLong():
			s.longCalls = append(s.longCalls, l)
		case l.IsCall() && l.IsShort():
			s.shortCalls = append(s.shortCalls, l)
		case l.IsPut() && l.IsLong():
			s.longPuts = append(s.longPuts, l)
		default:
			s.shortPuts = append(s.shortPuts, l)
		}
	}
	return s
}

func (s *shape) legCount() int       { return len(s.c.Legs) }
func (s *shape) stockLong() bool     { return s.c.StockQuantity > 0 }
func (s *shape) stockShort() bool    { return s.c.StockQuantity < 0 }
func (s *shape) noStock() bool       { return s.c.StockQuantity == 0 }
func (s *shape) callsOnly() bool     { return len(s.longPuts)+len(s.shortPuts) == 0 && len(s.longCalls)+len(s.shortCalls) > 0 }
func (s *shape) putsOnly() bool      { return len(s.longCalls)+len(s.shortCalls) == 0 && len(s.longPuts)+len(s.shortPuts) > 0 }
func (s *shape) counts() (lc, sc, lp, sp int) {
	return len(s.longCalls), len(s.shortCalls), len(s.longPuts), len(s.shortPuts)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func totalQty(legs []position.OptionLeg) float64 {
	var sum float64
	for _, l := range legs {
		sum += abs(l.Quantity)
	}
	return sum
}

func sameExpiry(a, b position.OptionLeg) bool { return a.Expiry.Equal(b.Expiry) }
func sameQty(a, b position.OptionLeg) bool    { return abs(a.Quantity) == abs(b.Quantity) }

// twoLegSpread 恰好两条腿、同一方向权利、一多一空
func (s *shape) twoLegSpread() (long, short position.OptionLeg, isCall, ok bool) {
	lc, sc, lp, sp := s.counts()
	if s.legCount() != 2 || !s.noStock() {
		return
	}
	if lc == 1 && sc == 1 && lp == 0 && sp == 0 {
		return s.longCalls[0], s.shortCalls[0], true, true
	}
	if lp == 1 && sp == 1 && lc == 0 && sc == 0 {
		return s.longPuts[0], s.shortPuts[0], false, true
	}
	return
}

// 规则表按优先级排列，先匹配先命中。
// 顺序：股票+期权组合 -> 四腿限亏价差 -> 两腿垂直价差 -> 跨期/对角 ->
// 通用两腿价差 -> 跨式/宽跨式 -> 比例价差/反向比例 -> 合成仓位 ->
// 单腿 -> 通用兜底。
var rules = []rule{
	{
		tag: "collar", name: "领口", tier: RiskDefined,
		desc: "持有股票，卖出较高行权价看涨并买入较低行权价看跌保护",
		match: func(s *shape) bool {
			lc, sc, lp, sp := s.counts()
			return s.stockLong() && lc == 0 && sc == 1 && lp == 1 && sp == 0 &&
				s.longPuts[0].Strike < s.shortCalls[0].Strike &&
				sameExpiry(s.longPuts[0], s.shortCalls[0])
		},
	},
	{
		tag: "covered_strangle", name: "备兑宽跨式", tier: RiskDefined,
		desc: "持有股票，同时卖出看涨与看跌收取双份权利金",
		match: func(s *shape) bool {
			lc, sc, lp, sp := s.counts()
			return s.stockLong() && lc == 0 && sc == 1 && lp == 0 && sp == 1
		},
	},
	{
		tag: "covered_call", name: "备兑看涨", tier: RiskDefined,
		desc: "持有股票并卖出看涨期权收取权利金",
		match: func(s *shape) bool {
			lc, sc, lp, sp := s.counts()
			return s.stockLong() && lc == 0 && sc >= 1 && lp == 0 && sp == 0
		},
	},
	{
		tag: "protective_put", name: "保护性看跌", tier: RiskDefined,
		desc: "持有股票并买入看跌期权对冲下行风险",
		match: func(s *shape) bool {
			lc, sc, lp, sp := s.counts()
			return s.stockLong() && lc == 0 && sc == 0 && lp >= 1 && sp == 0
		},
	},
	{
		tag: "covered_put", name: "备兑看跌", tier: RiskUnlimited,
		desc: "做空股票并卖出看跌期权，上行方向敞口未对冲",
		match: func(s *shape) bool {
			lc, sc, lp, sp := s.counts()
			return s.stockShort() && lc == 0 && sc == 0 && lp == 0 && sp >= 1
		},
	},
	{
		tag: "protective_call", name: "保护性看涨", tier: RiskDefined,
		desc: "做空股票并买入看涨期权对冲上行风险",
		match: func(s *shape) bool {
			lc, sc, lp, sp := s.counts()
			return s.stockShort() && lc >= 1 && sc == 0 && lp == 0 && sp == 0
		},
	},
	{
		tag: "iron_condor", name: "铁鹰", tier: RiskDefined,
		desc: "卖出一组看涨价差与一组看跌价差，四腿限定最大亏损",
		match: func(s *shape) bool {
			lc, sc, lp, sp := s.counts()
			if !s.noStock() || s.legCount() != 4 || lc != 1 || sc != 1 || lp != 1 || sp != 1 {
				return false
			}
			return s.shortPuts[0].Strike < s.shortCalls[0].Strike &&
				s.longPuts[0].Strike < s.shortPuts[0].Strike &&
				s.longCalls[0].Strike > s.shortCalls[0].Strike
		},
	},
	{
		tag: "iron_butterfly", name: "铁蝶", tier: RiskDefined,
		desc: "同一行权价卖出跨式，两侧买入翅膀限定亏损",
		match: func(s *shape) bool {
			lc, sc, lp, sp := s.counts()
			if !s.noStock() || s.legCount() != 4 || lc != 1 || sc != 1 || lp != 1 || sp != 1 {
				return false
			}
			return s.shortPuts[0].Strike == s.shortCalls[0].Strike &&
				s.longPuts[0].Strike < s.shortPuts[0].Strike &&
				s.longCalls[0].Strike > s.shortCalls[0].Strike
		},
	},
	{
		tag: "bull_call_spread", name: "牛市看涨价差", tier: RiskDefined,
		desc: "买入较低行权价看涨、卖出较高行权价看涨",
		match: func(s *shape) bool {
			long, short, isCall, ok := s.twoLegSpread()
			return ok && isCall && sameExpiry(long, short) && sameQty(long, short) &&
				long.Strike < short.Strike
		},
	},
	{
		tag: "bear_call_spread", name: "熊市看涨价差", tier: RiskDefined,
		desc: "卖出较低行权价看涨、买入较高行权价看涨",
		match: func(s *shape) bool {
			long, short, isCall, ok := s.twoLegSpread()
			return ok && isCall && sameExpiry(long, short) && sameQty(long, short) &&
				long.Strike > short.Strike
		},
	},
	{
		tag: "bull_put_spread", name: "牛市看跌价差", tier: RiskDefined,
		desc: "卖出较高行权价看跌、买入较低行权价看跌",
		match: func(s *shape) bool {
			long, short, isCall, ok := s.twoLegSpread()
			return ok && !isCall && sameExpiry(long, short) && sameQty(long, short) &&
				long.Strike < short.Strike
		},
	},
	{
		tag: "bear_put_spread", name: "熊市看跌价差", tier: RiskDefined,
		desc: "买入较高行权价看跌、卖出较低行权价看跌",
		match: func(s *shape) bool {
			long, short, isCall, ok := s.twoLegSpread()
			return ok && !isCall && sameExpiry(long, short) && sameQty(long, short) &&
				long.Strike > short.Strike
		},
	},
	{
		tag: "calendar_spread", name: "跨期价差", tier: RiskDefined,
		desc: "同一行权价、不同到期日的一多一空",
		match: func(s *shape) bool {
			long, short, _, ok := s.twoLegSpread()
			return ok && sameQty(long, short) && long.Strike == short.Strike &&
				!sameExpiry(long, short)
		},
	},
	{
		tag: "diagonal_spread", name: "对角价差", tier: RiskDefined,
		desc: "不同行权价且不同到期日的一多一空",
		match: func(s *shape) bool {
			long, short, _, ok := s.twoLegSpread()
			return ok && sameQty(long, short) && long.Strike != short.Strike &&
				!sameExpiry(long, short)
		},
	},
	{
		tag: "call_spread", name: "看涨价差", tier: RiskDefined,
		desc: "两腿看涨一多一空的通用价差",
		match: func(s *shape) bool {
			long, short, isCall, ok := s.twoLegSpread()
			return ok && isCall && sameQty(long, short)
		},
	},
	{
		tag: "put_spread", name: "看跌价差", tier: RiskDefined,
		desc: "两腿看跌一多一空的通用价差",
		match: func(s *shape) bool {
			long, short, isCall, ok := s.twoLegSpread()
			return ok && !isCall && sameQty(long, short)
		},
	},
	{
		tag: "long_straddle", name: "买入跨式", tier: RiskPremium,
		desc: "同一行权价同时买入看涨与看跌，双向押注波动",
		match: func(s *shape) bool {
			lc, sc, lp, sp := s.counts()
			return s.noStock() && lc == 1 && lp == 1 && sc == 0 && sp == 0 &&
				s.longCalls[0].Strike == s.longPuts[0].Strike &&
				sameExpiry(s.longCalls[0], s.longPuts[0])
		},
	},
	{
		tag: "short_straddle", name: "卖出跨式", tier: RiskUnlimited,
		desc: "同一行权价同时卖出看涨与看跌",
		match: func(s *shape) bool {
			lc, sc, lp, sp := s.counts()
			return s.noStock() && sc == 1 && sp == 1 && lc == 0 && lp == 0 &&
				s.shortCalls[0].Strike == s.shortPuts[0].Strike &&
				sameExpiry(s.shortCalls[0], s.shortPuts[0])
		},
	},
	{
		tag: "long_strangle", name: "买入宽跨式", tier: RiskPremium,
		desc: "不同行权价买入看涨与看跌",
		match: func(s *shape) bool {
			lc, sc, lp, sp := s.counts()
			return s.noStock() && lc == 1 && lp == 1 && sc == 0 && sp == 0 &&
				s.longCalls[0].Strike != s.longPuts[0].Strike
		},
	},
	{
		tag: "short_strangle", name: "卖出宽跨式", tier: RiskUnlimited,
		desc: "不同行权价卖出看涨与看跌",
		match: func(s *shape) bool {
			lc, sc, lp, sp := s.counts()
			return s.noStock() && sc == 1 && sp == 1 && lc == 0 && lp == 0 &&
				s.shortCalls[0].Strike != s.shortPuts[0].Strike
		},
	},
	{
		tag: "call_ratio_spread", name: "看涨比例价差", tier: RiskUnlimited,
		desc: "卖出的看涨数量多于买入，超出部分为裸卖空",
		match: func(s *shape) bool {
			return s.noStock() && s.callsOnly() &&
				len(s.longCalls) > 0 && len(s.shortCalls) > 0 &&
				totalQty(s.shortCalls) > totalQty(s.longCalls)
		},
	},
	{
		tag: "put_ratio_spread", name: "看跌比例价差", tier: RiskUnlimited,
		desc: "卖出的看跌数量多于买入，超出部分为裸卖空",
		match: func(s *shape) bool {
			return s.noStock() && s.putsOnly() &&
				len(s.longPuts) > 0 && len(s.shortPuts) > 0 &&
				totalQty(s.shortPuts) > totalQty(s.longPuts)
		},
	},
	{
		tag: "call_backspread", name: "看涨反向比例", tier: RiskDefined,
		desc: "买入的看涨数量多于卖出",
		match: func(s *shape) bool {
			return s.noStock() && s.callsOnly() &&
				len(s.longCalls) > 0 && len(s.shortCalls) > 0 &&
				totalQty(s.longCalls) > totalQty(s.shortCalls)
		},
	},
	{
		tag: "put_backspread", name: "看跌反向比例", tier: RiskDefined,
		desc: "买入的看跌数量多于卖出",
		match: func(s *shape) bool {
			return s.noStock() && s.putsOnly() &&
				len(s.longPuts) > 0 && len(s.shortPuts) > 0 &&
				totalQty(s.longPuts) > totalQty(s.shortPuts)
		},
	},
	{
		tag: "synthetic_long", name: "合成多头", tier: RiskDefined,
		desc: "买入看涨加卖出看跌复制股票多头",
		match: func(s *shape) bool {
			lc, sc, lp, sp := s.counts()
			return s.noStock() && lc == 1 && sp == 1 && sc == 0 && lp == 0 &&
				s.longCalls[0].Strike == s.shortPuts[0].Strike
		},
	},
	{
		tag: "synthetic_short", name: "合成空头", tier: RiskUnlimited,
		desc: "卖出看涨加买入看跌复制股票空头",
		match: func(s *shape) bool {
			lc, sc, lp, sp := s.counts()
			return s.noStock() && sc == 1 && lp == 1 && lc == 0 && sp == 0 &&
				s.shortCalls[0].Strike == s.longPuts[0].Strike
		},
	},
	{
		tag: "cash_secured_put", name: "现金担保看跌", tier: RiskDefined,
		desc: "单腿卖出看跌期权",
		match: func(s *shape) bool {
			lc, sc, lp, sp := s.counts()
			return s.noStock() && sp == 1 && lc == 0 && sc == 0 && lp == 0
		},
	},
	{
		tag: "naked_call", name: "裸卖看涨", tier: RiskUnlimited,
		desc: "单腿卖出看涨期权，无股票或多头腿保护",
		match: func(s *shape) bool {
			lc, sc, lp, sp := s.counts()
			return s.noStock() && sc == 1 && lc == 0 && lp == 0 && sp == 0
		},
	},
	{
		tag: "long_call", name: "买入看涨", tier: RiskPremium,
		desc: "单腿买入看涨期权",
		match: func(s *shape) bool {
			lc, sc, lp, sp := s.counts()
			return s.noStock() && lc == 1 && sc == 0 && lp == 0 && sp == 0
		},
	},
	{
		tag: "long_put", name: "买入看跌", tier: RiskPremium,
		desc: "单腿买入看跌期权",
		match: func(s *shape) bool {
			lc, sc, lp, sp := s.counts()
			return s.noStock() && lp == 1 && lc == 0 && sc == 0 && sp == 0
		},
	},
	{
		tag: "stock_with_options", name: "股票加期权", tier: RiskNone,
		desc: "股票与期权的混合持仓，结构未匹配到具体策略",
		match: func(s *shape) bool {
			return !s.noStock() && s.legCount() > 0
		},
	},
	{
		tag: "multi_leg_options", name: "多腿期权组合", tier: RiskNone,
		desc: "纯期权持仓，结构未匹配到具体策略",
		match: func(s *shape) bool {
			return s.noStock() && s.legCount() > 0
		},
	},
	{
		tag: "long_stock", name: "股票多头", tier: RiskNone,
		desc: "纯股票多头持仓",
		match: func(s *shape) bool {
			return s.stockLong() && s.legCount() == 0
		},
	},
	{
		tag: "short_stock", name: "股票空头", tier: RiskUnlimited,
		desc: "纯股票空头持仓",
		match: func(s *shape) bool {
			return s.stockShort() && s.legCount() == 0
		},
	},
}

// Tags 返回全部策略标签，按优先级排列（供前端展示分类表）
func Tags() []string {
	out := make([]string, 0, len(rules)+1)
	for _, r := range rules {
		out = append(out, r.tag)
	}
	return append(out, "unknown")
}

// Describe 按标签查找策略名称与说明
func Describe(tag string) (string, error) {
	for _, r := range rules {
		if r.tag == tag {
			return fmt.Sprintf("%s：%s", r.name, r.desc), nil
		}
	}
	return "", fmt.Errorf("unknown strategy tag: %s", tag)
}
