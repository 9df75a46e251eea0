package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrProductNameNotFound is returned when no product name can be extracted from text
	ErrProductNameNotFound = errors.New("product name not found in text")

	// ErrPriceNotFound is returned when no currency-prefixed price can be parsed from text
	ErrPriceNotFound = errors.New("price not found in text")

	// ErrNoReferencePrice is returned when no platform produced an observation
	ErrNoReferencePrice = errors.New("no reference price found")

	// ErrUnknownPlatform is returned for platform labels outside KnownPlatforms
	ErrUnknownPlatform = errors.New("unknown platform")

	// ErrListingNotFound is returned when a marketplace search has no qualifying listing
	ErrListingNotFound = errors.New("no qualifying listing found")

	// ErrScrapeFailed is returned when a fetched page does not have the expected structure
	ErrScrapeFailed = errors.New("failed to scrape listing page")

	// ErrCrawlerFailure is returned when the crawling API request fails
	ErrCrawlerFailure = errors.New("crawling API request failed")

	// ErrKnowledgeBaseCorrupt is returned when the knowledge base file cannot be parsed
	ErrKnowledgeBaseCorrupt = errors.New("knowledge base file is corrupt")

	// ErrKnowledgeBaseIO is returned when the knowledge base file cannot be read or written
	ErrKnowledgeBaseIO = errors.New("knowledge base I/O failure")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")

	// ErrInvalidRole is returned when a role definition is incomplete
	ErrInvalidRole = errors.New("invalid role definition")
)
