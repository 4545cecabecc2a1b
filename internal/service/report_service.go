package service

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dushixiang/tally/internal/config"
	"github.com/dushixiang/tally/internal/models"
	"github.com/dushixiang/tally/internal/repo"
	"github.com/dushixiang/tally/internal/xe"
	"github.com/go-orz/orz"
	"github.com/oklog/ulid/v2"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
	"github.com/valyala/fasttemplate"
	"go.uber.org/zap"
	"google.golang.org/genai"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

//go:embed templates/report_instructions.txt
var reportInstructionsTemplate string

//go:embed templates/report_prompt.txt
var reportPromptTemplate string

// ReportService AI复盘报告服务。
// 把账本统计、持仓快照和波动分析整理成提示词，
// 交给 LLM 生成复盘内容，支持 openai 与 google 两种后端。
type ReportService struct {
	logger *zap.Logger

	*orz.Service

	reportRepo       *repo.ReportRepo
	pnlService       *PnlService
	positionService  *PositionService
	excursionService *ExcursionService

	openAIClient *openai.Client
	genaiClient  *genai.Client
	llmConf      config.LlmConf
	currency     string
}

// NewReportService 创建复盘报告服务，两个LLM客户端都可以为 nil
func NewReportService(
	db *gorm.DB,
	logger *zap.Logger,
	pnlService *PnlService,
	positionService *PositionService,
	excursionService *ExcursionService,
	openAIClient *openai.Client,
	genaiClient *genai.Client,
	conf *config.Config,
) *ReportService {
	currency := conf.Journal.Currency
	if currency == "" {
		currency = "USD"
	}
	return &ReportService{
		logger:           logger,
		Service:          orz.NewService(db),
		reportRepo:       repo.NewReportRepo(db),
		pnlService:       pnlService,
		positionService:  positionService,
		excursionService: excursionService,
		openAIClient:     openAIClient,
		genaiClient:      genaiClient,
		llmConf:          conf.LLM,
		currency:         currency,
	}
}

// Available 是否配置了可用的LLM后端
func (s *ReportService) Available() bool {
	switch s.llmConf.Provider {
	case "openai":
		return s.openAIClient != nil
	case "google":
		return s.genaiClient != nil
	}
	return false
}

// GenerateReport 生成一期复盘报告并入库
func (s *ReportService) GenerateReport(ctx context.Context, period string) (*models.Report, error) {
	if !s.Available() {
		return nil, xe.ErrReportUnavailable
	}

	stats, err := s.pnlService.GetStats(ctx, repo.TradeFilter{})
	if err != nil {
		return nil, err
	}
	positions, err := s.positionService.GetPositions(ctx)
	if err != nil {
		return nil, err
	}
	excursions, err := s.excursionService.GetExcursions(ctx, "")
	if err != nil {
		return nil, err
	}
	// 只看最近的回合，避免提示词无限膨胀
	if len(excursions) > 20 {
		excursions = excursions[:20]
	}

	instructions := fasttemplate.New(reportInstructionsTemplate, "{{", "}}").
		ExecuteString(map[string]interface{}{
			"period":   period,
			"currency": s.currency,
		})
	prompt := fasttemplate.New(reportPromptTemplate, "{{", "}}").
		ExecuteString(map[string]interface{}{
			"current_time": time.Now().Format("2006-01-02 15:04:05"),
			"stats":        formatStats(stats),
			"positions":    formatPositions(positions),
			"excursions":   formatExcursions(excursions),
		})

	var (
		content          string
		promptTokens     int
		completionTokens int
	)
	switch s.llmConf.Provider {
	case "google":
		content, promptTokens, completionTokens, err = s.generateWithGenai(ctx, instructions, prompt)
	default:
		content, promptTokens, completionTokens, err = s.generateWithOpenAI(ctx, instructions, prompt)
	}
	if err != nil {
		return nil, err
	}

	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return nil, err
	}

	report := &models.Report{
		ID:               ulid.Make().String(),
		Period:           period,
		Content:          content,
		Stats:            datatypes.JSON(statsJSON),
		Model:            s.llmConf.Model,
		Provider:         s.llmConf.Provider,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		GeneratedAt:      time.Now(),
	}
	if report.Provider == "" {
		report.Provider = "openai"
	}
	if err := s.reportRepo.Create(ctx, report); err != nil {
		return nil, err
	}

	s.logger.Info("report generated",
		zap.String("period", period),
		zap.String("provider", report.Provider),
		zap.Int("prompt_tokens", promptTokens),
		zap.Int("completion_tokens", completionTokens))
	return report, nil
}

func (s *ReportService) generateWithOpenAI(ctx context.Context, instructions, prompt string) (string, int, int, error) {
	resp, err := s.openAIClient.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(s.llmConf.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(instructions),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", 0, 0, fmt.Errorf("failed to call OpenAI API: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", 0, 0, fmt.Errorf("empty response from OpenAI")
	}
	return resp.Choices[0].Message.Content,
		int(resp.Usage.PromptTokens),
		int(resp.Usage.CompletionTokens),
		nil
}

func (s *ReportService) generateWithGenai(ctx context.Context, instructions, prompt string) (string, int, int, error) {
	resp, err := s.genaiClient.Models.GenerateContent(ctx, s.llmConf.Model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(instructions, genai.RoleUser),
		})
	if err != nil {
		return "", 0, 0, fmt.Errorf("failed to call Gemini API: %w", err)
	}
	var promptTokens, completionTokens int
	if resp.UsageMetadata != nil {
		promptTokens = int(resp.UsageMetadata.PromptTokenCount)
		completionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return resp.Text(), promptTokens, completionTokens, nil
}

// GetReports 查询最近的复盘报告
func (s *ReportService) GetReports(ctx context.Context, period string, limit int) ([]models.Report, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.reportRepo.FindRecentReports(ctx, period, limit)
}

func formatStats(stats *Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- 交易总数：%d（其中平仓 %d 笔）\n", stats.TotalTrades, stats.ClosedTrades)
	fmt.Fprintf(&b, "- 已实现盈亏：%.2f\n", stats.TotalPnl)
	fmt.Fprintf(&b, "- 胜率：%.1f%%（%d胜 / %d负）\n", stats.WinRate*100, stats.WinCount, stats.LossCount)
	fmt.Fprintf(&b, "- 平均盈利：%.2f，平均亏损：%.2f\n", stats.AvgWin, stats.AvgLoss)
	fmt.Fprintf(&b, "- 盈亏比：%.2f，最大单笔盈利：%.2f，最大单笔亏损：%.2f\n",
		stats.ProfitFactor, stats.LargestWin, stats.LargestLoss)
	fmt.Fprintf(&b, "- 手续费合计：%.2f", stats.TotalFees)
	return b.String()
}

func formatPositions(views []PositionView) string {
	if len(views) == 0 {
		return "（当前空仓）"
	}
	var b strings.Builder
	for _, v := range views {
		fmt.Fprintf(&b, "- %s：策略=%s（%s，风险=%s）", v.Underlying, v.Strategy.Name, v.Strategy.Tag, v.Strategy.RiskTier)
		if v.HasStock() {
			fmt.Fprintf(&b, "，股票 %.0f 股 @ %.2f", v.StockQuantity, v.StockAvgCost)
		}
		for _, leg := range v.Legs {
			fmt.Fprintf(&b, "，%s %.0f 张 %s %.2f（%s）",
				legSide(leg.Quantity), abs64(leg.Quantity), leg.Right, leg.Strike,
				leg.Expiry.Format("2006-01-02"))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatExcursions(excursions []models.Excursion) string {
	if len(excursions) == 0 {
		return "（暂无已平仓回合）"
	}
	var b strings.Builder
	for _, e := range excursions {
		fmt.Fprintf(&b, "- %s %s：盈亏 %.2f，持有 %d 天", e.Symbol, e.Direction, e.RealizedPnl, e.HoldingDays)
		if e.MFE != nil && e.MAE != nil {
			fmt.Fprintf(&b, "，MFE %.1f%%，MAE %.1f%%", *e.MFE*100, *e.MAE*100)
		} else {
			b.WriteString("，行情缺失无波动指标")
		}
		if e.Efficiency != nil {
			fmt.Fprintf(&b, "，效率 %.2f", *e.Efficiency)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func legSide(qty float64) string {
	if qty < 0 {
		return "卖出"
	}
	return "买入"
}

func abs64(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
