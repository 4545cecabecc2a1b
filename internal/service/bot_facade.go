package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dushixiang/tally/internal/repo"
	"go.uber.org/zap"
)

// BotFacade 把账本数据整理成机器人命令的回复文本
type BotFacade struct {
	logger *zap.Logger

	pnlService      *PnlService
	positionService *PositionService
	reportService   *ReportService
}

// NewBotFacade 创建机器人数据门面
func NewBotFacade(
	pnlService *PnlService,
	positionService *PositionService,
	reportService *ReportService,
	logger *zap.Logger,
) *BotFacade {
	return &BotFacade{
		logger:          logger,
		pnlService:      pnlService,
		positionService: positionService,
		reportService:   reportService,
	}
}

// StatusText 账本统计摘要
func (f *BotFacade) StatusText(ctx context.Context) string {
	stats, err := f.pnlService.GetStats(ctx, repo.TradeFilter{})
	if err != nil {
		f.logger.Error("bot status failed", zap.Error(err))
		return "查询失败，请稍后再试"
	}
	return formatStats(stats)
}

// PositionsText 当前持仓摘要
func (f *BotFacade) PositionsText(ctx context.Context) string {
	views, err := f.positionService.GetPositions(ctx)
	if err != nil {
		f.logger.Error("bot positions failed", zap.Error(err))
		return "查询失败，请稍后再试"
	}
	return formatPositions(views)
}

// LatestReportText 最近一期复盘报告
func (f *BotFacade) LatestReportText(ctx context.Context) string {
	reports, err := f.reportService.GetReports(ctx, "", 1)
	if err != nil {
		f.logger.Error("bot report failed", zap.Error(err))
		return "查询失败，请稍后再试"
	}
	if len(reports) == 0 {
		return "还没有生成过复盘报告"
	}
	r := reports[0]
	var b strings.Builder
	fmt.Fprintf(&b, "复盘报告（%s，%s）\n\n", r.Period, r.GeneratedAt.Format("2006-01-02 15:04"))
	b.WriteString(r.Content)
	return b.String()
}
