package bootstrap

import (
	"context"
	"log/slog"

	"github.com/Brownie44l1/imgclass-api/internal/classify"
	"github.com/Brownie44l1/imgclass-api/internal/config"
	"github.com/Brownie44l1/imgclass-api/internal/fetch"
	"github.com/Brownie44l1/imgclass-api/internal/model"
	"github.com/Brownie44l1/imgclass-api/internal/session"
	"go.uber.org/fx"
)

func ProvideFetcher(cfg *config.Config, cache fetch.Cache, logger *slog.Logger) fetch.Fetcher {
	client := fetch.NewHTTPClient(fetch.Config{
		Timeout:   cfg.FetchTimeout,
		MaxBytes:  cfg.FetchMaxBytes,
		UserAgent: cfg.UserAgent,
	}, logger.With("component", "fetch"))
	return fetch.NewCachingFetcher(client, cache, logger.With("component", "url_cache"))
}

// ProvideClassifier reads the model metadata now; the network itself is
// loaded on the first prediction.
func ProvideClassifier(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (*model.Classifier, error) {
	c, err := model.NewClassifier(model.Config{
		ModelPath:      cfg.ModelPath,
		MetadataPath:   cfg.MetadataPath,
		ORTLibraryPath: cfg.ORTLibraryPath,
	}, logger.With("component", "classifier"))
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			c.Close()
			return nil
		},
	})
	return c, nil
}

func ProvideService(cfg *config.Config, fetcher fetch.Fetcher, classifier *model.Classifier, logger *slog.Logger) *classify.Service {
	return classify.NewService(fetcher, classifier, classify.Settings{
		Defaults: classify.Params{
			TopK:       cfg.DefaultTopK,
			Threshold:  cfg.DefaultThreshold,
			CenterCrop: cfg.DefaultCenterCrop,
		},
		MaxTopK:   cfg.MaxTopK,
		MaxPixels: cfg.MaxImagePixels,
	}, logger.With("component", "pipeline"))
}

func ProvideSessionStore(cfg *config.Config, logger *slog.Logger) *session.Store {
	return session.NewStore(cfg.SessionIdleTTL, logger.With("component", "sessions"))
}

var PipelineModule = fx.Options(
	fx.Provide(
		ProvideFetcher,
		ProvideClassifier,
		ProvideService,
		ProvideSessionStore,
	),
)
