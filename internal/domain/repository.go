package domain

import (
	"context"
	"io"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SourceAdapter retrieves live listings from one marketplace.
// Both lookups return ErrListingNotFound or ErrScrapeFailed instead of an absent value.
type SourceAdapter interface {
	Platform() Platform
	FindHighestPricedListing(ctx context.Context, query string) (string, error)
	FetchListingDetails(ctx context.Context, url string) (*Listing, error)
}

// KnowledgeBaseReader is the read side of the knowledge base the engine depends on
type KnowledgeBaseReader interface {
	FindByNameSubstring(ctx context.Context, name string) ([]KnowledgeBaseEntry, error)
}

// KnowledgeBaseRepository owns the persisted reference price table
type KnowledgeBaseRepository interface {
	KnowledgeBaseReader
	Load(ctx context.Context) ([]KnowledgeBaseEntry, error)
	Append(ctx context.Context, entry KnowledgeBaseEntry) error
	Import(ctx context.Context, r io.Reader) (int, error)
	ExportSnapshot(ctx context.Context) ([]byte, error)
	Clear(ctx context.Context) error
}
