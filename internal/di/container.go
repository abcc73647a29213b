package di

import (
	"context"
	"fmt"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/email-priority/internal/config"
	"github.com/mikey/email-priority/internal/contacts"
	"github.com/mikey/email-priority/internal/core"
	"github.com/mikey/email-priority/internal/factory"
	"github.com/mikey/email-priority/internal/logging"
	"github.com/mikey/email-priority/internal/ports"
	"github.com/mikey/email-priority/internal/utils"
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

	// Register factories
	if err := container.Provide(factory.NewSentimentFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewCalendarFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewFilterFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register sentiment analyzer
	if err := container.Provide(func(f *factory.SentimentFactory) (core.SentimentAnalyzer, error) {
		return f.CreateAnalyzer()
	}); err != nil {
		return nil, err
	}

	// Register the store, seeded with configured contacts
	if err := container.Provide(func(f *factory.StoreFactory, cfg *config.Config, logger *zap.Logger) (factory.Store, error) {
		st, err := f.CreateStore()
		if err != nil {
			return nil, err
		}
		seeder := contacts.NewSeeder(st, logger)
		if err := seeder.Seed(context.Background(), cfg.GetStringSlice("contacts.seed")); err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to seed contacts: %w", err)
		}
		return st, nil
	}); err != nil {
		return nil, err
	}

	// Register calendar checker
	if err := container.Provide(func(f *factory.CalendarFactory) (core.CalendarChecker, error) {
		return f.CreateChecker()
	}); err != nil {
		return nil, err
	}

	// Register score cache
	if err := container.Provide(func(f *factory.CacheFactory) (core.ScoreCache, error) {
		return f.CreateScoreCache()
	}); err != nil {
		return nil, err
	}

	// Register priority service
	if err := container.Provide(func(
		st factory.Store,
		sentiment core.SentimentAnalyzer,
		checker core.CalendarChecker,
		cache core.ScoreCache,
		cacheFactory *factory.CacheFactory,
		cfg *config.Config,
		logger *zap.Logger,
	) (*core.PriorityService, error) {
		cacheTTL, err := cacheFactory.GetCacheTTL()
		if err != nil {
			return nil, fmt.Errorf("invalid cache TTL: %w", err)
		}
		collaboratorTimeout, err := cfg.GetDuration("sentiment.timeout")
		if err != nil {
			return nil, fmt.Errorf("invalid sentiment timeout: %w", err)
		}
		return core.NewPriorityService(
			st,
			st,
			sentiment,
			checker,
			cache,
			logger,
			cacheFactory.IsCacheEnabled(),
			cacheTTL,
			collaboratorTimeout,
			cfg.GetInt("scoring.batch_workers"),
			cfg.GetBool("scoring.terse_breakdown"),
		), nil
	}); err != nil {
		return nil, err
	}

	// Register history store for the ingress
	if err := container.Provide(func(st factory.Store) core.SenderHistoryStore {
		return st
	}); err != nil {
		return nil, err
	}

	// Register email ingress
	if err := container.Provide(func(f *factory.FilterFactory) (ports.EmailIngress, error) {
		return f.CreateIngress()
	}); err != nil {
		return nil, err
	}

	return container, nil
}
