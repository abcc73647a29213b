package factory

import (
	"fmt"
	"time"

	"github.com/mikey/email-priority/internal/adapters/cache"
	"github.com/mikey/email-priority/internal/config"
	"github.com/mikey/email-priority/internal/core"
	"go.uber.org/zap"
)

// CacheFactory creates score caches based on configuration
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateScoreCache creates a score cache, or nil when caching is disabled
func (f *CacheFactory) CreateScoreCache() (core.ScoreCache, error) {
	if !f.IsCacheEnabled() {
		return nil, nil
	}

	cleanupFreq, err := f.cfg.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return nil, fmt.Errorf("invalid cache cleanup frequency: %w", err)
	}

	return cache.NewMemoryCache(f.logger, cleanupFreq), nil
}

// GetCacheTTL returns the configured cache TTL
func (f *CacheFactory) GetCacheTTL() (time.Duration, error) {
	return f.cfg.GetDuration("cache.ttl")
}

// IsCacheEnabled returns whether caching is enabled
func (f *CacheFactory) IsCacheEnabled() bool {
	return f.cfg.GetBool("cache.enabled")
}
