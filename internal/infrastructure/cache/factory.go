package cache

import (
	"fmt"

	"github.com/biz2bricks/backend/internal/domain/billing"
	"github.com/biz2bricks/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// SummaryCacheFactory creates summary caches based on configuration
type SummaryCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// SummaryCacheFactoryOption is a functional option for configuring the factory
type SummaryCacheFactoryOption func(*SummaryCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) SummaryCacheFactoryOption {
	return func(f *SummaryCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory cache
// when Redis is unavailable. Default is true (allow fallback).
func WithInMemoryFallback(allow bool) SummaryCacheFactoryOption {
	return func(f *SummaryCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewSummaryCacheFactory creates a new factory
func NewSummaryCacheFactory(cfg config.RedisConfig, opts ...SummaryCacheFactoryOption) *SummaryCacheFactory {
	f := &SummaryCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisCache creates a Redis-backed summary cache
func (f *SummaryCacheFactory) CreateRedisCache() (billing.SummaryCache, error) {
	redisCfg := RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}

	c, err := NewRedisSummaryCache(redisCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis summary cache: %w", err)
	}

	return c, nil
}

// CreateInMemoryCache creates an in-memory summary cache.
// Suitable for single-instance deployments and testing.
func (f *SummaryCacheFactory) CreateInMemoryCache() billing.SummaryCache {
	return NewInMemorySummaryCache()
}

// CreateCache creates a summary cache based on whether Redis is available.
// It tries Redis first and falls back to in-memory if Redis is unreachable
// and fallback is allowed.
func (f *SummaryCacheFactory) CreateCache() (billing.SummaryCache, error) {
	c, err := f.CreateRedisCache()
	if err == nil {
		f.logger.Info("using Redis summary cache")
		return c, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for summary cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory summary cache. "+
		"Sibling instances will not observe this instance's invalidations.",
		zap.Error(err),
	)
	return f.CreateInMemoryCache(), nil
}
