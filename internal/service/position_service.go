package service

import (
	"context"
	"sort"
	"time"

	"github.com/dushixiang/tally/internal/repo"
	"github.com/dushixiang/tally/pkg/position"
	"github.com/dushixiang/tally/pkg/strategy"
	"github.com/go-orz/orz"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PositionService 组合持仓视图服务。
// 持仓不落库，每次请求从完整账本重建并打上策略标签。
type PositionService struct {
	logger *zap.Logger

	*orz.Service

	tradeRepo  *repo.TradeRepo
	candleRepo *repo.CandleRepo
}

// NewPositionService 创建持仓视图服务
func NewPositionService(db *gorm.DB, logger *zap.Logger) *PositionService {
	return &PositionService{
		logger:     logger,
		Service:    orz.NewService(db),
		tradeRepo:  repo.NewTradeRepo(db),
		candleRepo: repo.NewCandleRepo(db),
	}
}

// PositionView 带策略标签的组合持仓
type PositionView struct {
	*position.Composite
	Strategy strategy.Classification `json:"strategy"`
}

// GetPositions 重建全部组合持仓，按标的字母序返回
func (s *PositionService) GetPositions(ctx context.Context) ([]PositionView, error) {
	trades, err := s.tradeRepo.FindOrdered(ctx, repo.TradeFilter{})
	if err != nil {
		return nil, err
	}

	inputs := make([]position.Trade, 0, len(trades))
	for _, t := range trades {
		inputs = append(inputs, position.Trade{
			Symbol:      t.Symbol,
			Time:        t.ExecutedAt,
			Quantity:    t.SignedQuantity(),
			Price:       t.Price,
			RealizedPnl: t.RealizedPnl,
		})
	}

	composites := position.Build(inputs)

	views := make([]PositionView, 0, len(composites))
	for _, c := range composites {
		s.fillMarkPrice(ctx, c)
		views = append(views, PositionView{
			Composite: c,
			Strategy:  strategy.Classify(c),
		})
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].Underlying < views[j].Underlying
	})
	return views, nil
}

// GetPosition 单个标的的组合持仓，空仓时返回 nil
func (s *PositionService) GetPosition(ctx context.Context, underlying string) (*PositionView, error) {
	views, err := s.GetPositions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range views {
		if views[i].Underlying == underlying {
			return &views[i], nil
		}
	}
	return nil, nil
}

// fillMarkPrice 用最近一根日线的收盘价作为标的现价，没有行情就保持为零
func (s *PositionService) fillMarkPrice(ctx context.Context, c *position.Composite) {
	end := time.Now()
	start := end.AddDate(0, 0, -14)
	candles, err := s.candleRepo.FindRange(ctx, c.Underlying, start, end)
	if err != nil || len(candles) == 0 {
		return
	}
	c.StockPrice = candles[len(candles)-1].Close
}
