package bootstrap

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Brownie44l1/imgclass-api/internal/classify"
	"github.com/Brownie44l1/imgclass-api/internal/config"
	"github.com/Brownie44l1/imgclass-api/internal/handlers"
	"github.com/Brownie44l1/imgclass-api/internal/model"
	"github.com/Brownie44l1/imgclass-api/internal/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"
)

var defaultCORSConfig = middleware.CORSConfig{
	AllowOrigins: []string{"*"},
	AllowMethods: []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodDelete,
		http.MethodOptions,
	},
	AllowHeaders: []string{
		"Accept",
		"Content-Type",
		"X-Requested-With",
	},
	MaxAge: 86400,
}

// multipart framing on top of the largest accepted upload
const bodySlack = 1 << 20

func NewEchoServer(cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(defaultCORSConfig))
	e.Use(middleware.BodyLimit(strconv.FormatInt(cfg.MaxUploadBytes+bodySlack, 10)))
	return e
}

func ProvideHandler(cfg *config.Config, service *classify.Service, classifier *model.Classifier, sessions *session.Store, logger *slog.Logger) *handlers.Handler {
	return handlers.NewHandler(service, classifier, sessions, classifier, handlers.Config{
		MaxUploadBytes: cfg.MaxUploadBytes,
		SecureCookies:  cfg.CookieSecure,
	}, logger.With("handler", "classifier"))
}

func RegisterRoutes(e *echo.Echo, h *handlers.Handler) {
	h.RegisterRoutes(e)
}

func StartServer(lc fx.Lifecycle, e *echo.Echo, cfg *config.Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("server starting", "addr", cfg.ServerAddr, "model", cfg.ModelPath)
			go func() {
				if err := e.Start(cfg.ServerAddr); err != nil && err != http.ErrServerClosed {
					e.Logger.Fatal(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("server stopping")
			return e.Shutdown(ctx)
		},
	})
}

var ServerModule = fx.Options(
	fx.Provide(
		NewEchoServer,
		ProvideHandler,
	),
	fx.Invoke(RegisterRoutes),
	fx.Invoke(StartServer),
)

func ProvideConfig() (*config.Config, error) {
	return config.LoadFromEnv()
}

// Options is the full application graph.
func Options() fx.Option {
	return fx.Options(
		fx.Provide(ProvideConfig),
		fx.WithLogger(fxLogger),
		InfrastructureModule,
		PipelineModule,
		ServerModule,
	)
}

func Run() {
	fx.New(Options()).Run()
}
