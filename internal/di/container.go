package di

import (
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/nb-spam-filter/internal/adapters/cache"
	"github.com/mikey/nb-spam-filter/internal/config"
	"github.com/mikey/nb-spam-filter/internal/core"
	"github.com/mikey/nb-spam-filter/internal/factory"
	"github.com/mikey/nb-spam-filter/internal/logging"
	"github.com/mikey/nb-spam-filter/internal/ports"
	"github.com/mikey/nb-spam-filter/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideFactories(container); err != nil {
		return nil, err
	}

	if err := provideClassifier(container); err != nil {
		return nil, err
	}

	// Register cache repository
	if err := container.Provide(func(f *factory.CacheFactory) (cache.Repository, error) {
		return f.CreateCacheRepository()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(repo cache.Repository) core.CacheRepository {
		if repo == nil {
			return nil
		}
		return repo
	}); err != nil {
		return nil, err
	}

	// Register cache TTL and enabled flag
	if err := container.Provide(func(f *factory.CacheFactory) (time.Duration, error) {
		return f.GetCacheTTL()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.CacheFactory) bool {
		return f.IsCacheEnabled()
	}); err != nil {
		return nil, err
	}

	// Register whitelisted domains
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) []string {
		whitelistedDomains := cfg.GetSpam().WhitelistedDomains
		if len(whitelistedDomains) > 0 {
			logger.Info("Loaded whitelisted domains", zap.Strings("domains", whitelistedDomains))
		}
		return whitelistedDomains
	}); err != nil {
		return nil, err
	}

	// Register spam threshold
	if err := container.Provide(func(cfg *config.Config) float64 {
		return cfg.GetSpam().Threshold
	}); err != nil {
		return nil, err
	}

	// Register spam filter service
	if err := container.Provide(core.NewSpamFilterService); err != nil {
		return nil, err
	}

	// Register email filter
	if err := container.Provide(func(f *factory.FilterFactory) (ports.EmailFilter, error) {
		return f.CreateEmailFilter()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideFactories registers the factories and the values they build that
// both containers share
func provideFactories(container *dig.Container) error {
	for _, ctor := range []interface{}{
		factory.NewModelStoreFactory,
		factory.NewClassifierFactory,
		factory.NewCacheFactory,
		factory.NewFilterFactory,
		factory.NewTextProcessorFactory,
	} {
		if err := container.Provide(ctor); err != nil {
			return err
		}
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}

	// Register model store
	return container.Provide(func(f *factory.ModelStoreFactory) ports.ModelStore {
		return f.CreateModelStore()
	})
}

// provideClassifier registers the artifact-backed classifier
func provideClassifier(container *dig.Container) error {
	return container.Provide(func(f *factory.ClassifierFactory) (core.Classifier, error) {
		return f.CreateClassifier()
	})
}
