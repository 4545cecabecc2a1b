//go:build wireinject
// +build wireinject

package internal

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/google/wire"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dushixiang/tally/internal/config"
	"github.com/dushixiang/tally/internal/handler"
	"github.com/dushixiang/tally/internal/service"
	"github.com/dushixiang/tally/internal/telegram"
	"github.com/dushixiang/tally/pkg/pricefeed"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"google.golang.org/genai"
)

const (
	telegramHTTPTimeout = 10 * time.Second
)

var (
	handlerSet = wire.NewSet(
		handler.NewJournalHandler,
		handler.NewAuthHandler,
		handler.NewSetupHandler,
	)

	journalSet = wire.NewSet(
		provideBinanceClient,
		provideOpenAIClient,
		provideGenaiClient,
		provideAuthService,
		service.NewLedgerService,
		service.NewExcursionService,
		service.NewPnlService,
		service.NewPositionService,
		service.NewMarketService,
		service.NewReportService,
		service.NewBotFacade,
		service.NewRefreshLoop,
	)
)

// InitializeApp 初始化应用
func InitializeApp(logger *zap.Logger, db *gorm.DB, conf *config.Config) (*AppComponents, error) {
	wire.Build(
		handlerSet,
		journalSet,
		provideTelegram,
		wire.Struct(new(AppComponents), "*"),
	)
	return nil, nil
}

// provideAuthService provides auth service with the configured JWT secret
func provideAuthService(logger *zap.Logger, db *gorm.DB, conf *config.Config) *service.AuthService {
	return service.NewAuthService(logger, db, conf.Journal.JwtSecret)
}

// provideTelegram provides telegram instance
func provideTelegram(logger *zap.Logger, conf *config.Config, facade *service.BotFacade) *telegram.Telegram {
	if !conf.Telegram.Enabled {
		return nil
	}

	httpClient := &http.Client{Timeout: telegramHTTPTimeout}

	tg, err := telegram.NewTelegram(logger, telegram.Settings{
		Token:  conf.Telegram.Token,
		Client: httpClient,
	}, telegram.WithProvider(facade))
	if err != nil {
		logger.Error("failed to init telegram", zap.Error(err))
		return nil
	}

	return tg
}

// provideBinanceClient provides Binance market data client
func provideBinanceClient(conf *config.Config, logger *zap.Logger) *pricefeed.BinanceClient {
	if !conf.Binance.Enabled {
		logger.Info("binance backfill disabled, candles must be pushed manually")
		return nil
	}

	client := pricefeed.NewBinanceClient("", "", conf.Binance.ProxyURL)
	logger.Info("Binance market data client initialized")
	return client
}

// provideOpenAIClient provides OpenAI client
func provideOpenAIClient(conf *config.Config, logger *zap.Logger) *openai.Client {
	if conf.LLM.Provider != "openai" || conf.LLM.APIKey == "" {
		return nil
	}

	var options = []option.RequestOption{
		option.WithBaseURL(conf.LLM.BaseURL),
		option.WithAPIKey(conf.LLM.APIKey),
	}
	if conf.LLM.ProxyURL != "" {
		u, err := url.Parse(conf.LLM.ProxyURL)
		if err != nil {
			logger.Fatal("failed to parse proxy URL", zap.Error(err))
		}
		httpClient := &http.Client{
			Timeout: time.Minute,
			Transport: &http.Transport{
				Proxy: http.ProxyURL(u),
			},
		}
		options = append(options, option.WithHTTPClient(httpClient))
	}

	client := openai.NewClient(options...)

	logger.Info("OpenAI client initialized",
		zap.String("model", conf.LLM.Model))
	return &client
}

// provideGenaiClient provides Gemini client
func provideGenaiClient(conf *config.Config, logger *zap.Logger) *genai.Client {
	if conf.LLM.Provider != "google" || conf.LLM.APIKey == "" {
		return nil
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  conf.LLM.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		logger.Error("failed to init gemini client", zap.Error(err))
		return nil
	}

	logger.Info("Gemini client initialized",
		zap.String("model", conf.LLM.Model))
	return client
}
