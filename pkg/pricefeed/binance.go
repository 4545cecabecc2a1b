// Package pricefeed 提供日线历史行情的外部数据源。
// 行情是波动分析的前置输入，核心引擎从不在计算过程中发起取数。
package pricefeed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
)

// Bar 日线行情
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// BinanceClient Binance现货行情客户端，只读取K线，不做任何交易操作
type BinanceClient struct {
	client *binance.Client
}

// NewBinanceClient 创建Binance行情客户端
func NewBinanceClient(apiKey, secretKey, proxyURL string) *BinanceClient {
	var client *binance.Client
	if proxyURL != "" {
		client = binance.NewProxiedClient(apiKey, secretKey, proxyURL)
	} else {
		client = binance.NewClient(apiKey, secretKey)
	}
	return &BinanceClient{client: client}
}

// GetDailyBars 获取指定交易对的日线K线，按时间升序返回
func (c *BinanceClient) GetDailyBars(ctx context.Context, symbol string, start, end time.Time, limit int) ([]Bar, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}

	svc := c.client.NewKlinesService().
		Symbol(symbol).
		Interval("1d").
		Limit(limit)
	if !start.IsZero() {
		svc = svc.StartTime(start.UnixMilli())
	}
	if !end.IsZero() {
		svc = svc.EndTime(end.UnixMilli())
	}

	klines, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily klines for %s: %w", symbol, err)
	}

	bars := make([]Bar, 0, len(klines))
	for _, k := range klines {
		bar, err := convertKline(k)
		if err != nil {
			return nil, fmt.Errorf("failed to parse kline for %s: %w", symbol, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func convertKline(k *binance.Kline) (Bar, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return Bar{}, err
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return Bar{}, err
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return Bar{}, err
	}
	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return Bar{}, err
	}
	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return Bar{}, err
	}

	return Bar{
		Date:   time.UnixMilli(k.OpenTime).UTC().Truncate(24 * time.Hour),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}, nil
}
