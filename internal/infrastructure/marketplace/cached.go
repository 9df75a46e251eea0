package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/metrics"
)

const defaultListingTTL = 6 * time.Hour

// Cache lookup results
const (
	cacheHit   = "hit"
	cacheMiss  = "miss"
	cacheError = "error"
)

// CachedAdapter memoizes a SourceAdapter's successful lookups.
// Failures are never cached so a transient crawler outage does not stick.
type CachedAdapter struct {
	next   domain.SourceAdapter
	cache  domain.CacheRepository
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedAdapter wraps next with cache
func NewCachedAdapter(next domain.SourceAdapter, cache domain.CacheRepository, ttl time.Duration, logger *zap.Logger) *CachedAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = defaultListingTTL
	}
	return &CachedAdapter{next: next, cache: cache, ttl: ttl, logger: logger}
}

// Platform implements domain.SourceAdapter
func (a *CachedAdapter) Platform() domain.Platform {
	return a.next.Platform()
}

// FindHighestPricedListing implements domain.SourceAdapter
func (a *CachedAdapter) FindHighestPricedListing(ctx context.Context, query string) (string, error) {
	key := a.key("search", searchCacheKey(query))

	if cached, ok := a.get(ctx, key); ok {
		return string(cached), nil
	}

	listingURL, err := a.next.FindHighestPricedListing(ctx, query)
	if err != nil {
		return "", err
	}
	a.set(ctx, key, []byte(listingURL))
	return listingURL, nil
}

// FetchListingDetails implements domain.SourceAdapter
func (a *CachedAdapter) FetchListingDetails(ctx context.Context, pageURL string) (*domain.Listing, error) {
	key := a.key("detail", pageURL)

	if cached, ok := a.get(ctx, key); ok {
		var listing domain.Listing
		if err := json.Unmarshal(cached, &listing); err == nil {
			return &listing, nil
		}
		a.logger.Warn("dropping unreadable cached listing", zap.String("key", key))
		_ = a.cache.Delete(ctx, key)
	}

	listing, err := a.next.FetchListingDetails(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(listing); err == nil {
		a.set(ctx, key, data)
	}
	return listing, nil
}

// key builds "listing:{platform}:{kind}:{id}"
func (a *CachedAdapter) key(kind, id string) string {
	return fmt.Sprintf("listing:%s:%s:%s", strings.ToLower(string(a.next.Platform())), kind, id)
}

func (a *CachedAdapter) get(ctx context.Context, key string) ([]byte, bool) {
	data, err := a.cache.Get(ctx, key)
	switch {
	case err == nil:
		metrics.ListingCacheTotal.WithLabelValues(cacheHit).Inc()
		return data, true
	case errors.Is(err, domain.ErrCacheMiss):
		metrics.ListingCacheTotal.WithLabelValues(cacheMiss).Inc()
	default:
		metrics.ListingCacheTotal.WithLabelValues(cacheError).Inc()
		a.logger.Warn("listing cache read failed", zap.String("key", key), zap.Error(err))
	}
	return nil, false
}

func (a *CachedAdapter) set(ctx context.Context, key string, value []byte) {
	if err := a.cache.Set(ctx, key, value, a.ttl); err != nil {
		a.logger.Warn("listing cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// searchCacheKey keys a search by the query the marketplace will actually receive.
// Only case and surrounding space are folded; "c++ switch" and "c switch" stay distinct.
func searchCacheKey(query string) string {
	return url.QueryEscape(strings.ToLower(strings.TrimSpace(query)))
}
