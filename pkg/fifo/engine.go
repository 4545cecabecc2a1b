// Package fifo 实现先进先出批次撮合，计算每笔平仓交易的已实现盈亏。
package fifo

import (
	"math"
	"time"
)

// Trade 撮合引擎的输入：一笔已按时间升序排列的成交记录
type Trade struct {
	Fingerprint string
	Symbol      string
	Time        time.Time
	// 带符号数量：买入为正，卖出为负
	Quantity   float64
	Price      float64
	Multiplier float64
}

// Lot 未平仓批次：一笔开仓交易尚未被对冲的剩余部分
type Lot struct {
	Price      float64
	Quantity   float64 // 带符号剩余数量
	Multiplier float64
	OpenedAt   time.Time
}

// RoundTrip 一次完整的平仓回合，由一笔平仓交易与其消耗的批次组成
type RoundTrip struct {
	Symbol      string
	Fingerprint string  // 平仓交易指纹
	Direction   string  // long/short，被平掉的方向
	Quantity    float64 // 本次平掉的数量（无符号）
	EntryPrice  float64 // 被消耗批次的加权平均入场价
	EntryTime   time.Time
	ExitPrice   float64
	ExitTime    time.Time
	Multiplier  float64
	RealizedPnl float64
}

// Result 全量重算的输出
type Result struct {
	// 平仓交易指纹 -> 已实现盈亏（保留2位小数）
	RealizedPnl map[string]float64
	RoundTrips  []RoundTrip
	// 重算结束后每个symbol的未平仓批次
	OpenLots map[string][]Lot
}

// RecomputeAll 对完整的有序交易历史做全量重算。
// 永远从空队列开始重建，保证修正、回补、乱序导入后结果全局一致；
// 对相同输入重复执行结果完全相同。
func RecomputeAll(trades []Trade) *Result {
	result := &Result{
		RealizedPnl: make(map[string]float64),
		OpenLots:    make(map[string][]Lot),
	}

	queues := make(map[string][]Lot)

	for _, t := range trades {
		mult := t.Multiplier
		if mult == 0 {
			mult = 1
		}
		if t.Quantity == 0 {
			result.RealizedPnl[t.Fingerprint] = 0
			continue
		}

		queue := queues[t.Symbol]

		// 队列为空或同向：纯开仓，盈亏贡献为零
		if len(queue) == 0 || sameSign(queue[0].Quantity, t.Quantity) {
			queues[t.Symbol] = append(queue, Lot{
				Price:      t.Price,
				Quantity:   t.Quantity,
				Multiplier: mult,
				OpenedAt:   t.Time,
			})
			result.RealizedPnl[t.Fingerprint] = 0
			continue
		}

		// 反向交易：从队头逐批消耗
		remaining := math.Abs(t.Quantity)
		closingLong := queue[0].Quantity > 0

		var pnl float64
		var closedQty float64
		var entryNotional float64
		entryTime := queue[0].OpenedAt

		for remaining > 0 && len(queue) > 0 {
			head := &queue[0]
			available := math.Abs(head.Quantity)
			consumed := math.Min(available, remaining)

			if head.Quantity > 0 {
				pnl += (t.Price - head.Price) * consumed * head.Multiplier
			} else {
				pnl += (head.Price - t.Price) * consumed * head.Multiplier
			}

			closedQty += consumed
			entryNotional += head.Price * consumed
			if head.OpenedAt.Before(entryTime) {
				entryTime = head.OpenedAt
			}

			remaining -= consumed
			if consumed >= available {
				queue = queue[1:]
			} else {
				if head.Quantity > 0 {
					head.Quantity -= consumed
				} else {
					head.Quantity += consumed
				}
			}
		}

		// 超量平仓：对侧排空后剩余部分反手成为新方向的批次
		if remaining > 0 {
			flip := remaining
			if t.Quantity < 0 {
				flip = -remaining
			}
			queue = append(queue, Lot{
				Price:      t.Price,
				Quantity:   flip,
				Multiplier: mult,
				OpenedAt:   t.Time,
			})
		}

		queues[t.Symbol] = queue

		rounded := round2(pnl)
		result.RealizedPnl[t.Fingerprint] = rounded

		if closedQty > 0 {
			direction := "long"
			if !closingLong {
				direction = "short"
			}
			result.RoundTrips = append(result.RoundTrips, RoundTrip{
				Symbol:      t.Symbol,
				Fingerprint: t.Fingerprint,
				Direction:   direction,
				Quantity:    closedQty,
				EntryPrice:  entryNotional / closedQty,
				EntryTime:   entryTime,
				ExitPrice:   t.Price,
				ExitTime:    t.Time,
				Multiplier:  mult,
				RealizedPnl: rounded,
			})
		}
	}

	for symbol, queue := range queues {
		if len(queue) > 0 {
			result.OpenLots[symbol] = queue
		}
	}

	return result
}

// NetQuantity 某symbol所有未平仓批次的带符号数量之和
func (r *Result) NetQuantity(symbol string) float64 {
	var net float64
	for _, lot := range r.OpenLots[symbol] {
		net += lot.Quantity
	}
	return net
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
