package telegram

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
	"gopkg.in/telebot.v3/middleware"
)

// Settings 机器人配置
type Settings struct {
	Token  string
	Client *http.Client
}

// JournalProvider 提供机器人各命令需要的文本内容
type JournalProvider interface {
	// StatusText 账本统计摘要
	StatusText(ctx context.Context) string
	// PositionsText 当前持仓摘要
	PositionsText(ctx context.Context) string
	// LatestReportText 最近一期复盘报告
	LatestReportText(ctx context.Context) string
}

type Telegram struct {
	logger   *zap.Logger
	settings Settings
	client   *tele.Bot
	provider JournalProvider
}

type Option func(telegram *Telegram)

// WithProvider 注入命令内容提供方
func WithProvider(p JournalProvider) Option {
	return func(t *Telegram) {
		t.provider = p
	}
}

func NewTelegram(logger *zap.Logger, settings Settings, options ...Option) (*Telegram, error) {

	poller := &tele.LongPoller{Timeout: 10 * time.Second}

	userMiddleware := tele.NewMiddlewarePoller(poller, func(u *tele.Update) bool {

		return true
	})

	client, err := tele.NewBot(tele.Settings{
		ParseMode: tele.ModeMarkdown,
		Token:     settings.Token,
		Poller:    userMiddleware,
		Client:    settings.Client,
	})
	if err != nil {
		return nil, err
	}

	client.Use(middleware.AutoRespond())

	err = client.SetCommands([]tele.Command{
		{Text: "/start", Description: "启动机器人，显示帮助"},
		{Text: "/status", Description: "查看账本统计"},
		{Text: "/positions", Description: "查看当前持仓"},
		{Text: "/report", Description: "查看最近的复盘报告"},
	})
	if err != nil {
		return nil, err
	}

	bot := &Telegram{
		logger:   logger,
		settings: settings,
		client:   client,
	}

	for _, option := range options {
		option(bot)
	}

	bot.registerHandlers()

	return bot, nil
}

func (r *Telegram) registerHandlers() {
	r.client.Handle("/start", func(c tele.Context) error {
		return c.Send("期权交易日志机器人\n\n/status 账本统计\n/positions 当前持仓\n/report 最近复盘报告")
	})
	// 状态和持仓是纯文本，转义后按 MarkdownV2 发送；报告本身就是Markdown
	r.client.Handle("/status", r.replyPlain(func(ctx context.Context) string {
		return r.provider.StatusText(ctx)
	}))
	r.client.Handle("/positions", r.replyPlain(func(ctx context.Context) string {
		return r.provider.PositionsText(ctx)
	}))
	r.client.Handle("/report", r.reply(func(ctx context.Context) string {
		return r.provider.LatestReportText(ctx)
	}))
}

func (r *Telegram) replyPlain(text func(ctx context.Context) string) tele.HandlerFunc {
	return func(c tele.Context) error {
		if r.provider == nil {
			return c.Send("服务尚未就绪")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		msg := text(ctx)
		if msg == "" {
			msg = "暂无数据"
		}
		return c.Send(escapeMarkdownV2(msg), &tele.SendOptions{ParseMode: tele.ModeMarkdownV2})
	}
}

func (r *Telegram) reply(text func(ctx context.Context) string) tele.HandlerFunc {
	return func(c tele.Context) error {
		if r.provider == nil {
			return c.Send("服务尚未就绪")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		msg := text(ctx)
		if msg == "" {
			msg = "暂无数据"
		}
		return c.Send(msg)
	}
}

func (r *Telegram) Start() {
	go r.client.Start()
}

func (r *Telegram) Notify(chatId, msg string) error {
	_chatId := cast.ToInt(chatId)
	_, err := r.client.Send(tele.ChatID(_chatId), msg, &tele.SendOptions{ParseMode: tele.ModeMarkdown})
	return err
}
