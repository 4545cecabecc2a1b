package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dushixiang/tally/internal/models"
	"github.com/dushixiang/tally/internal/repo"
	"github.com/dushixiang/tally/internal/service"
	"github.com/dushixiang/tally/internal/xe"
	"github.com/dushixiang/tally/pkg/strategy"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// JournalHandler 交易日志HTTP处理器
type JournalHandler struct {
	ledgerService    *service.LedgerService
	pnlService       *service.PnlService
	positionService  *service.PositionService
	excursionService *service.ExcursionService
	marketService    *service.MarketService
	reportService    *service.ReportService
	logger           *zap.Logger
}

// NewJournalHandler 创建日志处理器
func NewJournalHandler(
	ledgerService *service.LedgerService,
	pnlService *service.PnlService,
	positionService *service.PositionService,
	excursionService *service.ExcursionService,
	marketService *service.MarketService,
	reportService *service.ReportService,
	logger *zap.Logger,
) *JournalHandler {
	return &JournalHandler{
		ledgerService:    ledgerService,
		pnlService:       pnlService,
		positionService:  positionService,
		excursionService: excursionService,
		marketService:    marketService,
		reportService:    reportService,
		logger:           logger,
	}
}

// ImportTrades 批量导入成交并触发重算
// POST /api/journal/trades
func (h *JournalHandler) ImportTrades(c echo.Context) error {
	ctx := c.Request().Context()

	var inputs []service.TradeInput
	if err := c.Bind(&inputs); err != nil {
		return xe.ErrInvalidParams
	}

	result, err := h.ledgerService.ImportTrades(ctx, inputs)
	if err != nil {
		return err
	}

	// 账本变了，派生数据立即重算
	if result.Accepted > 0 {
		if _, err := h.pnlService.Recompute(ctx); err != nil {
			h.logger.Error("recompute after import failed", zap.Error(err))
		}
	}

	return c.JSON(http.StatusOK, result)
}

// AddTrade 录入单条成交并触发重算
// POST /api/journal/trade
func (h *JournalHandler) AddTrade(c echo.Context) error {
	ctx := c.Request().Context()

	var input service.TradeInput
	if err := c.Bind(&input); err != nil {
		return xe.ErrInvalidParams
	}
	if err := c.Validate(&input); err != nil {
		return xe.ErrInvalidParams
	}

	trade, accepted, err := h.ledgerService.AddTrade(ctx, input)
	if err != nil {
		return err
	}

	if accepted {
		if _, err := h.pnlService.Recompute(ctx); err != nil {
			h.logger.Error("recompute after add failed", zap.Error(err))
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"accepted": accepted,
		"trade":    trade,
	})
}

// GetTrades 查询成交流水
// GET /api/journal/trades
func (h *JournalHandler) GetTrades(c echo.Context) error {
	ctx := c.Request().Context()

	filter := repo.TradeFilter{
		Symbol:     c.QueryParam("symbol"),
		Underlying: c.QueryParam("underlying"),
		Kind:       c.QueryParam("kind"),
		Side:       models.TradeSide(c.QueryParam("side")),
	}
	if v := c.QueryParam("since"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.Since = t
		}
	}
	if v := c.QueryParam("until"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.Until = t
		}
	}
	if v := c.QueryParam("limit"); v != "" {
		fmt.Sscanf(v, "%d", &filter.Limit)
	}

	trades, err := h.ledgerService.GetTrades(ctx, filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":  len(trades),
		"trades": trades,
	})
}

// ClearTrades 清空账本与全部派生数据
// DELETE /api/journal/trades
func (h *JournalHandler) ClearTrades(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.ledgerService.ClearAll(ctx); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "账本已清空",
	})
}

// Recompute 手动触发全量重算
// POST /api/journal/recompute
func (h *JournalHandler) Recompute(c echo.Context) error {
	ctx := c.Request().Context()
	summary, err := h.pnlService.Recompute(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

// GetPositions 当前全部组合持仓（带策略标签）
// GET /api/journal/positions
func (h *JournalHandler) GetPositions(c echo.Context) error {
	ctx := c.Request().Context()
	views, err := h.positionService.GetPositions(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":     len(views),
		"positions": views,
	})
}

// GetPosition 单个标的的组合持仓
// GET /api/journal/positions/:underlying
func (h *JournalHandler) GetPosition(c echo.Context) error {
	ctx := c.Request().Context()
	view, err := h.positionService.GetPosition(ctx, c.Param("underlying"))
	if err != nil {
		return err
	}
	if view == nil {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "该标的当前空仓",
		})
	}
	return c.JSON(http.StatusOK, view)
}

// GetStrategies 策略分类表，按匹配优先级排列
// GET /api/journal/strategies
func (h *JournalHandler) GetStrategies(c echo.Context) error {
	tags := strategy.Tags()
	items := make([]map[string]interface{}, 0, len(tags))
	for _, tag := range tags {
		desc, err := strategy.Describe(tag)
		if err != nil {
			desc = "未识别的持仓结构"
		}
		items = append(items, map[string]interface{}{
			"tag":         tag,
			"description": desc,
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":      len(items),
		"strategies": items,
	})
}

// GetStats 账本统计
// GET /api/journal/stats
func (h *JournalHandler) GetStats(c echo.Context) error {
	ctx := c.Request().Context()
	stats, err := h.pnlService.GetStats(ctx, repo.TradeFilter{
		Underlying: c.QueryParam("underlying"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// GetEquityCurve 已实现盈亏的权益曲线
// GET /api/journal/equity-curve
func (h *JournalHandler) GetEquityCurve(c echo.Context) error {
	ctx := c.Request().Context()
	curve, err := h.pnlService.GetEquityCurve(ctx, repo.TradeFilter{
		Underlying: c.QueryParam("underlying"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count": len(curve),
		"data":  curve,
	})
}

// GetExcursions 平仓回合波动分析
// GET /api/journal/excursions
func (h *JournalHandler) GetExcursions(c echo.Context) error {
	ctx := c.Request().Context()
	excursions, err := h.excursionService.GetExcursions(ctx, c.QueryParam("underlying"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":      len(excursions),
		"excursions": excursions,
	})
}

// PushCandles 接收协作方推送的日线行情
// POST /api/journal/candles
func (h *JournalHandler) PushCandles(c echo.Context) error {
	ctx := c.Request().Context()

	var inputs []service.CandleInput
	if err := c.Bind(&inputs); err != nil {
		return xe.ErrInvalidParams
	}

	count, err := h.marketService.PushCandles(ctx, inputs)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"accepted": count,
	})
}

// GetCandles 查询日线行情
// GET /api/journal/candles/:underlying
func (h *JournalHandler) GetCandles(c echo.Context) error {
	ctx := c.Request().Context()

	var start, end time.Time
	if v := c.QueryParam("start"); v != "" {
		start, _ = time.Parse("2006-01-02", v)
	}
	if v := c.QueryParam("end"); v != "" {
		end, _ = time.Parse("2006-01-02", v)
	}

	candles, err := h.marketService.GetCandles(ctx, c.Param("underlying"), start, end)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":   len(candles),
		"candles": candles,
	})
}

// GetIndicators 标的技术指标上下文
// GET /api/journal/indicators/:underlying
func (h *JournalHandler) GetIndicators(c echo.Context) error {
	ctx := c.Request().Context()
	ic, err := h.marketService.GetIndicatorContext(ctx, c.Param("underlying"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ic)
}

// GetConfig 查询日志盘配置
// GET /api/journal/config
func (h *JournalHandler) GetConfig(c echo.Context) error {
	ctx := c.Request().Context()
	config, err := h.marketService.GetConfig(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, config)
}

// SaveConfig 保存日志盘配置
// PUT /api/journal/config
func (h *JournalHandler) SaveConfig(c echo.Context) error {
	ctx := c.Request().Context()

	var config models.JournalConfig
	if err := c.Bind(&config); err != nil {
		return xe.ErrInvalidParams
	}
	if err := h.marketService.SaveConfig(ctx, &config); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, config)
}

// GenerateReport 手动生成复盘报告
// POST /api/journal/reports
func (h *JournalHandler) GenerateReport(c echo.Context) error {
	ctx := c.Request().Context()

	period := c.QueryParam("period")
	if period == "" {
		period = "manual"
	}

	report, err := h.reportService.GenerateReport(ctx, period)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// GetReports 查询历史复盘报告
// GET /api/journal/reports
func (h *JournalHandler) GetReports(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 10
	if v := c.QueryParam("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}

	reports, err := h.reportService.GetReports(ctx, c.QueryParam("period"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":   len(reports),
		"reports": reports,
	})
}

// RegisterRoutes 注册路由
func (h *JournalHandler) RegisterRoutes(g *echo.Group) {
	journal := g.Group("/journal")

	// 账本
	journal.POST("/trade", h.AddTrade)
	journal.POST("/trades", h.ImportTrades)
	journal.GET("/trades", h.GetTrades)
	journal.DELETE("/trades", h.ClearTrades)
	journal.POST("/recompute", h.Recompute)

	// 派生视图
	journal.GET("/positions", h.GetPositions)
	journal.GET("/positions/:underlying", h.GetPosition)
	journal.GET("/strategies", h.GetStrategies)
	journal.GET("/stats", h.GetStats)
	journal.GET("/equity-curve", h.GetEquityCurve)
	journal.GET("/excursions", h.GetExcursions)

	// 行情
	journal.POST("/candles", h.PushCandles)
	journal.GET("/candles/:underlying", h.GetCandles)
	journal.GET("/indicators/:underlying", h.GetIndicators)

	// 配置与报告
	journal.GET("/config", h.GetConfig)
	journal.PUT("/config", h.SaveConfig)
	journal.POST("/reports", h.GenerateReport)
	journal.GET("/reports", h.GetReports)
}
