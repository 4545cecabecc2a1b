package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dushixiang/tally/internal/config"
	"github.com/dushixiang/tally/internal/models"
	"github.com/dushixiang/tally/internal/repo"
	"github.com/dushixiang/tally/internal/xe"
	"github.com/dushixiang/tally/pkg/instrument"
	"github.com/go-orz/orz"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LedgerService 账本服务，负责成交记录的录入、查询与重置。
// 成交入库后不可变，所有派生数据（盈亏/持仓/波动分析）由重算产生。
type LedgerService struct {
	logger *zap.Logger

	*orz.Service

	tradeRepo     *repo.TradeRepo
	excursionRepo *repo.ExcursionRepo
	maxBatchSize  int
}

// NewLedgerService 创建账本服务
func NewLedgerService(db *gorm.DB, logger *zap.Logger, conf *config.Config) *LedgerService {
	maxBatchSize := conf.Journal.MaxBatchSize
	if maxBatchSize <= 0 {
		maxBatchSize = 1000
	}
	return &LedgerService{
		logger:        logger,
		Service:       orz.NewService(db),
		tradeRepo:     repo.NewTradeRepo(db),
		excursionRepo: repo.NewExcursionRepo(db),
		maxBatchSize:  maxBatchSize,
	}
}

// TradeInput 成交录入请求，字段尽量宽容，规整逻辑见 normalize
type TradeInput struct {
	Symbol     string    `json:"symbol" validate:"required"`
	Side       string    `json:"side" validate:"required"`
	Quantity   float64   `json:"quantity" validate:"required"`
	Price      float64   `json:"price"`
	Commission float64   `json:"commission"`
	Multiplier float64   `json:"multiplier"`
	ExecutedAt time.Time `json:"executed_at" validate:"required"`
}

// ImportResult 批量导入结果
type ImportResult struct {
	Accepted   int           `json:"accepted"`
	Duplicated int           `json:"duplicated"`
	Rejected   []ImportError `json:"rejected"`
}

// ImportError 单条被拒绝的记录及原因
type ImportError struct {
	Index  int    `json:"index"`
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// normalizeSide 宽容解析买卖方向，兼容券商流水里的各种写法
func normalizeSide(raw string) (models.TradeSide, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "buy", "bot", "b", "long":
		return models.TradeSideBuy, true
	case "sell", "sld", "s", "short":
		return models.TradeSideSell, true
	}
	return "", false
}

// normalize 校验并规整单条成交，返回可入库的模型
func (s *LedgerService) normalize(in TradeInput) (*models.Trade, error) {
	symbol := strings.TrimSpace(in.Symbol)
	if symbol == "" {
		return nil, xe.ErrInvalidSymbol
	}

	side, ok := normalizeSide(in.Side)
	if !ok {
		return nil, xe.ErrInvalidSide
	}

	// 负数量视为方向已编码在符号里，取绝对值并翻转方向
	quantity := in.Quantity
	if quantity < 0 {
		quantity = -quantity
		if side == models.TradeSideBuy {
			side = models.TradeSideSell
		} else {
			side = models.TradeSideBuy
		}
	}
	if quantity == 0 {
		return nil, xe.ErrInvalidQuantity
	}
	if in.Price <= 0 {
		return nil, xe.ErrInvalidPrice
	}
	if in.ExecutedAt.IsZero() {
		return nil, xe.ErrInvalidParams
	}

	desc := instrument.Parse(symbol)

	// 乘数规整：显式给出的乘数优先，但期权的0/1按缺省处理
	multiplier := in.Multiplier
	if desc.IsOption() {
		if multiplier <= 1 {
			multiplier = desc.Multiplier
		}
	} else if desc.Kind == instrument.KindStock {
		multiplier = 1
	} else if multiplier <= 0 {
		multiplier = desc.Multiplier
	}

	trade := &models.Trade{
		ID:          ulid.Make().String(),
		Fingerprint: models.TradeFingerprint(in.ExecutedAt, desc.Symbol, side, quantity, in.Price),
		Symbol:      desc.Symbol,
		Side:        side,
		Quantity:    quantity,
		Price:       in.Price,
		Commission:  in.Commission,
		Kind:        string(desc.Kind),
		Underlying:  desc.Underlying,
		Strike:      desc.Strike,
		Right:       string(desc.Right),
		Multiplier:  multiplier,
		ExecutedAt:  in.ExecutedAt,
	}
	if !desc.Expiry.IsZero() {
		expiry := desc.Expiry
		trade.Expiry = &expiry
	}
	return trade, nil
}

// AddTrade 录入单条成交，重复指纹静默幂等：
// 不视为错误，返回已存在的记录且 accepted=false。
func (s *LedgerService) AddTrade(ctx context.Context, in TradeInput) (*models.Trade, bool, error) {
	trade, err := s.normalize(in)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.tradeRepo.FindByFingerprint(ctx, trade.Fingerprint)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	if err := s.tradeRepo.Create(ctx, trade); err != nil {
		return nil, false, err
	}

	s.logger.Info("trade recorded",
		zap.String("symbol", trade.Symbol),
		zap.String("side", string(trade.Side)),
		zap.Float64("quantity", trade.Quantity),
		zap.Float64("price", trade.Price))
	return trade, true, nil
}

// ImportTrades 批量导入成交。逐条规整，坏记录跳过并收集原因，
// 重复记录计数但不报错，保证导入可以安全重放。
func (s *LedgerService) ImportTrades(ctx context.Context, inputs []TradeInput) (*ImportResult, error) {
	if len(inputs) > s.maxBatchSize {
		return nil, xe.ErrBatchTooLarge
	}

	result := &ImportResult{}
	seen := make(map[string]bool, len(inputs))

	err := s.Transaction(ctx, func(ctx context.Context) error {
		for i, in := range inputs {
			trade, err := s.normalize(in)
			if err != nil {
				result.Rejected = append(result.Rejected, ImportError{
					Index:  i,
					Symbol: in.Symbol,
					Reason: err.Error(),
				})
				continue
			}

			// 同一批次内的重复也按幂等处理
			if seen[trade.Fingerprint] {
				result.Duplicated++
				continue
			}
			exists, err := s.tradeRepo.ExistsByFingerprint(ctx, trade.Fingerprint)
			if err != nil {
				return err
			}
			if exists {
				result.Duplicated++
				continue
			}

			if err := s.tradeRepo.Create(ctx, trade); err != nil {
				return err
			}
			seen[trade.Fingerprint] = true
			result.Accepted++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("trades imported",
		zap.Int("accepted", result.Accepted),
		zap.Int("duplicated", result.Duplicated),
		zap.Int("rejected", len(result.Rejected)))
	return result, nil
}

// GetTrades 按过滤条件查询成交，时间升序
func (s *LedgerService) GetTrades(ctx context.Context, filter repo.TradeFilter) ([]models.Trade, error) {
	return s.tradeRepo.FindOrdered(ctx, filter)
}

// ClearAll 清空账本与派生缓存
func (s *LedgerService) ClearAll(ctx context.Context) error {
	return s.Transaction(ctx, func(ctx context.Context) error {
		if err := s.tradeRepo.DeleteAll(ctx); err != nil {
			return fmt.Errorf("clear trades: %w", err)
		}
		if err := s.excursionRepo.DeleteAll(ctx); err != nil {
			return fmt.Errorf("clear excursions: %w", err)
		}
		s.logger.Warn("ledger cleared")
		return nil
	})
}
