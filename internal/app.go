package internal

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dushixiang/tally/internal/config"
	"github.com/dushixiang/tally/internal/handler"
	mw "github.com/dushixiang/tally/internal/middleware"
	"github.com/dushixiang/tally/internal/models"
	"github.com/dushixiang/tally/internal/service"
	"github.com/dushixiang/tally/internal/telegram"
	"github.com/dushixiang/tally/pkg/nostd"
	"github.com/dushixiang/tally/web"
	"github.com/go-orz/orz"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func Run(configPath string) error {
	app := NewTallyApp()

	framework, err := orz.NewFramework(
		orz.WithConfig(configPath),
		orz.WithLoggerFromConfig(),
		orz.WithDatabase(),
		orz.WithHTTP(),
		orz.WithApplication(app),
	)
	if err != nil {
		return err
	}

	return framework.Run()
}

func NewTallyApp() orz.Application {
	return &TallyApp{}
}

var _ orz.Application = (*TallyApp)(nil)

type AppComponents struct {
	JournalHandler *handler.JournalHandler
	AuthHandler    *handler.AuthHandler
	SetupHandler   *handler.SetupHandler

	AuthService   *service.AuthService
	LedgerService *service.LedgerService
	PnlService    *service.PnlService
	MarketService *service.MarketService
	ReportService *service.ReportService
	RefreshLoop   *service.RefreshLoop

	Tg *telegram.Telegram
}

type TallyApp struct {
	components *AppComponents
	conf       *config.Config
}

// GetComponents 获取应用组件
func (r *TallyApp) GetComponents() *AppComponents {
	return r.components
}

func (r *TallyApp) Configure(app *orz.App) error {
	logger := app.Logger()
	e := app.GetEcho()
	db := app.GetDatabase()

	var conf config.Config
	err := app.GetConfig().App.Unmarshal(&conf)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %v", err)
	}

	components, err := InitializeApp(logger, db, &conf)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %v", err)
	}
	r.components = components
	r.conf = &conf

	if err := db.AutoMigrate(
		models.Trade{}, models.Candle{}, models.Excursion{},
		models.Report{}, models.JournalConfig{}, models.AdminUser{},
	); err != nil {
		logger.Fatal("database auto migrate failed", zap.Error(err))
	}

	if err := r.Init(logger); err != nil {
		logger.Fatal("app init failed", zap.Error(err))
	}

	e.HidePort = true
	e.HideBanner = true

	e.Use(middleware.Gzip())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		Skipper:      middleware.DefaultSkipper,
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
	}))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			sugar := logger.Sugar()
			sugar.Error(fmt.Sprintf("[PANIC RECOVER] %v %s\n", err, stack))
			return err
		},
	}))
	e.Use(WithErrorHandler(logger))
	customValidator := nostd.CustomValidator{Validator: validator.New()}
	if err := customValidator.TransInit(); err != nil {
		logger.Sugar().Fatal("failed to init custom validator", zap.Error(err))
	}
	e.Validator = &customValidator

	e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().RequestURI
			if strings.HasPrefix(path, "/api") {
				return true
			}
			return false
		},
		Root:       "",
		Index:      "index.html",
		HTML5:      true,
		Browse:     false,
		IgnoreBase: false,
		Filesystem: http.FS(web.Assets()),
	}))

	api := e.Group("/api")
	{
		// 公开接口
		components.SetupHandler.RegisterRoutes(api)
		components.AuthHandler.RegisterRoutes(api)

		// 需要登录的接口
		jwtAuth := mw.JWTAuth(mw.JWTAuthConfig{
			AuthService: components.AuthService,
			Logger:      logger,
		})

		authGroup := api.Group("/auth", jwtAuth)
		components.AuthHandler.RegisterProtectedRoutes(authGroup)

		protected := api.Group("", jwtAuth)
		components.JournalHandler.RegisterRoutes(protected)
	}

	return nil
}

func (r *TallyApp) Init(logger *zap.Logger) error {
	logger.Info("=================================================")
	logger.Info("Tally Options Journal Starting...")
	logger.Info("=================================================")

	components := r.GetComponents()
	if components == nil {
		return fmt.Errorf("components not initialized")
	}

	go func() {
		if err := components.RefreshLoop.Start(context.Background()); err != nil {
			logger.Error("refresh loop error", zap.Error(err))
		}
	}()

	if components.Tg != nil {
		components.Tg.Start()
		logger.Info("telegram bot started")
	}
	return nil
}
