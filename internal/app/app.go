// Package app wires configuration into the services shared by the server and the CLI.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/cache"
	"github.com/pricelens/backend/internal/infrastructure/knowledgebase"
	"github.com/pricelens/backend/internal/infrastructure/marketplace"
	"github.com/pricelens/backend/internal/usecase"
)

// Services is the assembled application core
type Services struct {
	Store         *knowledgebase.XLSXStore
	Reconciler    *usecase.ReconciliationService
	KnowledgeBase *usecase.KnowledgeBaseService
	Platforms     []domain.Platform

	closers []func()
}

// Close releases caches and connections
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// Build assembles the store, listing cache, marketplace adapters and services
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Services, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	platforms, err := cfg.Pricing.Platforms()
	if err != nil {
		return nil, err
	}

	listingCache, closeCache, err := BuildCache(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}

	store := knowledgebase.NewXLSXStore(cfg.KnowledgeBase.Path, logger)
	adapters := BuildAdapters(cfg, listingCache, logger)

	return &Services{
		Store:         store,
		Reconciler:    usecase.NewReconciliationService(store, adapters, logger),
		KnowledgeBase: usecase.NewKnowledgeBaseService(store, logger),
		Platforms:     platforms,
		closers:       []func(){closeCache},
	}, nil
}

// BuildCache returns the configured listing cache and its closer
func BuildCache(ctx context.Context, cfg config.CacheConfig) (domain.CacheRepository, func(), error) {
	if cfg.Type == "redis" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisURL, "")
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis cache: %w", err)
		}
		return redisCache, func() { redisCache.Close() }, nil
	}

	memoryCache := cache.NewMemoryCache()
	return memoryCache, func() { memoryCache.Close() }, nil
}

// BuildAdapters creates the enabled marketplace adapters behind the listing cache.
// Without a crawler token only the knowledge base can answer.
func BuildAdapters(cfg *config.Config, listingCache domain.CacheRepository, logger *zap.Logger) []domain.SourceAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.CrawlerEnabled() {
		logger.Warn("crawler token not configured; marketplace lookups disabled (set PRICELENS_CRAWLER_TOKEN)")
		return nil
	}

	client := marketplace.NewClient(marketplace.ClientConfig{
		Token:             cfg.Crawler.Token,
		BaseURL:           cfg.Crawler.BaseURL,
		PageWait:          cfg.Crawler.PageWait,
		AjaxWait:          cfg.Crawler.AjaxWait,
		Timeout:           cfg.Crawler.Timeout,
		RequestsPerSecond: cfg.Crawler.RequestsPerSecond,
		Burst:             cfg.Crawler.Burst,
		MaxRetries:        cfg.Crawler.MaxRetries,
	}, logger)

	var adapters []domain.SourceAdapter
	if cfg.Marketplace.TokopediaEnabled {
		tokopedia := marketplace.NewTokopediaAdapter(client, marketplace.AdapterConfig{
			SearchURL:  cfg.Marketplace.TokopediaSearchURL,
			MinReviews: cfg.Marketplace.MinReviews,
		}, logger)
		adapters = append(adapters, marketplace.NewCachedAdapter(tokopedia, listingCache, cfg.Cache.TTL, logger))
	}
	if cfg.Marketplace.ShopeeEnabled {
		shopee := marketplace.NewShopeeAdapter(client, marketplace.AdapterConfig{
			SearchURL:  cfg.Marketplace.ShopeeSearchURL,
			MinReviews: cfg.Marketplace.MinReviews,
		}, logger)
		adapters = append(adapters, marketplace.NewCachedAdapter(shopee, listingCache, cfg.Cache.TTL, logger))
	}

	logger.Info("marketplace adapters ready", zap.Int("count", len(adapters)))
	return adapters
}
