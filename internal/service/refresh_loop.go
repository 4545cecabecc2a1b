package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dushixiang/tally/internal/config"
	"github.com/dushixiang/tally/internal/telegram"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RefreshLoop 定时刷新调度器：回补行情 -> 全量重算 -> 生成复盘报告。
// 账本本身是事件源，刷新失败不会破坏任何数据，下次执行会完整重建。
type RefreshLoop struct {
	logger *zap.Logger

	conf          *config.Config
	marketService *MarketService
	pnlService    *PnlService
	reportService *ReportService
	tg            *telegram.Telegram

	isRunning bool
	stopChan  chan struct{}
	cron      *cron.Cron
	cancel    context.CancelFunc
}

// NewRefreshLoop 创建刷新调度器，tg 可以为 nil
func NewRefreshLoop(
	conf *config.Config,
	marketService *MarketService,
	pnlService *PnlService,
	reportService *ReportService,
	tg *telegram.Telegram,
	logger *zap.Logger,
) *RefreshLoop {
	return &RefreshLoop{
		logger:        logger,
		conf:          conf,
		marketService: marketService,
		pnlService:    pnlService,
		reportService: reportService,
		tg:            tg,
		stopChan:      make(chan struct{}),
	}
}

// Start 启动定时刷新，阻塞直到 Stop 或 ctx 取消
func (t *RefreshLoop) Start(ctx context.Context) error {
	if t.isRunning {
		return fmt.Errorf("refresh loop is already running")
	}
	t.isRunning = true
	ctx, t.cancel = context.WithCancel(ctx)

	refreshCron := t.conf.Journal.RefreshCron
	if refreshCron == "" {
		// 缺省每天 UTC 22:05，美股收盘之后
		refreshCron = "5 22 * * *"
	}

	t.cron = cron.New()
	_, err := t.cron.AddFunc(refreshCron, func() {
		if err := t.ExecuteCycle(context.Background()); err != nil {
			t.logger.Error("refresh cycle failed", zap.Error(err))
		}
	})
	if err != nil {
		t.isRunning = false
		return fmt.Errorf("failed to add refresh job: %w", err)
	}

	if t.conf.Report.Enabled && t.conf.Report.Cron != "" {
		_, err = t.cron.AddFunc(t.conf.Report.Cron, func() {
			t.generateReport(context.Background(), "daily")
		})
		if err != nil {
			t.isRunning = false
			return fmt.Errorf("failed to add report job: %w", err)
		}
	}

	t.logger.Info("refresh loop started",
		zap.String("refresh_cron", refreshCron),
		zap.Bool("report_enabled", t.conf.Report.Enabled))
	t.cron.Start()

	// 启动时先跑一轮，让重启后的派生数据立即就绪
	go func() {
		if err := t.ExecuteCycle(context.Background()); err != nil {
			t.logger.Error("initial refresh cycle failed", zap.Error(err))
		}
	}()

	select {
	case <-t.stopChan:
		t.logger.Info("refresh loop stopped by user")
		return nil
	case <-ctx.Done():
		t.logger.Info("refresh loop stopped by context")
		return ctx.Err()
	}
}

// Stop 停止定时刷新
func (t *RefreshLoop) Stop() {
	if !t.isRunning {
		return
	}
	if t.cron != nil {
		ctx := t.cron.Stop()
		<-ctx.Done() // 等待进行中的任务完成
	}
	if t.cancel != nil {
		t.cancel()
	}
	t.isRunning = false
	close(t.stopChan)
	t.logger.Info("refresh loop stopped")
}

// ExecuteCycle 执行一个完整的刷新周期
func (t *RefreshLoop) ExecuteCycle(ctx context.Context) error {
	start := time.Now()
	t.logger.Info("refresh cycle start")

	// 行情回补失败不阻塞重算，已有行情仍然可用
	if err := t.marketService.Backfill(ctx, t.conf.Journal.BackfillDays); err != nil {
		t.logger.Error("backfill failed", zap.Error(err))
	}

	summary, err := t.pnlService.Recompute(ctx)
	if err != nil {
		return fmt.Errorf("recompute failed: %w", err)
	}

	t.logger.Info("refresh cycle completed",
		zap.Int("trades", summary.Trades),
		zap.Int("round_trips", summary.RoundTrips),
		zap.Float64("total_pnl", summary.TotalPnl),
		zap.Duration("elapsed", time.Since(start)))

	t.notify(fmt.Sprintf("📒 账本刷新完成\n交易 %d 笔，平仓回合 %d 个\n已实现盈亏 %.2f",
		summary.Trades, summary.RoundTrips, summary.TotalPnl))
	return nil
}

func (t *RefreshLoop) generateReport(ctx context.Context, period string) {
	if t.reportService == nil || !t.reportService.Available() {
		return
	}
	report, err := t.reportService.GenerateReport(ctx, period)
	if err != nil {
		t.logger.Error("scheduled report failed", zap.Error(err))
		return
	}
	t.notify(fmt.Sprintf("📝 复盘报告已生成（%s）\n\n%s", period, report.Content))
}

func (t *RefreshLoop) notify(msg string) {
	if t.tg == nil || t.conf.Telegram.ChatID == "" {
		return
	}
	if err := t.tg.Notify(t.conf.Telegram.ChatID, msg); err != nil {
		t.logger.Error("telegram notify failed", zap.Error(err))
	}
}
