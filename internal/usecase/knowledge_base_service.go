package usecase

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pricelens/backend/internal/domain"
)

// KnowledgeBaseService validates entries before they reach the store and
// builds entries from chat messages
type KnowledgeBaseService struct {
	repo      domain.KnowledgeBaseRepository
	extractor *ProductExtractor
	logger    *zap.Logger
}

// NewKnowledgeBaseService creates a new knowledge base service
func NewKnowledgeBaseService(repo domain.KnowledgeBaseRepository, logger *zap.Logger) *KnowledgeBaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KnowledgeBaseService{
		repo:      repo,
		extractor: NewProductExtractor(logger),
		logger:    logger,
	}
}

// ValidateEntry rejects entries the store must never see
func ValidateEntry(entry domain.KnowledgeBaseEntry) error {
	if strings.TrimSpace(entry.ProductName) == "" {
		return fmt.Errorf("%w: product name is required", domain.ErrInvalidRequest)
	}
	if entry.UnitPrice < 0 || math.IsNaN(entry.UnitPrice) || math.IsInf(entry.UnitPrice, 0) {
		return fmt.Errorf("%w: unit price must be a non-negative number", domain.ErrInvalidRequest)
	}
	if strings.TrimSpace(string(entry.Platform)) == "" {
		return fmt.Errorf("%w: platform is required", domain.ErrInvalidRequest)
	}
	return nil
}

// AddEntry validates and appends a manually entered product
func (s *KnowledgeBaseService) AddEntry(ctx context.Context, entry domain.KnowledgeBaseEntry) error {
	if err := ValidateEntry(entry); err != nil {
		return err
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		return err
	}
	s.logger.Info("knowledge base entry added",
		zap.String("product", entry.ProductName),
		zap.String("platform", string(entry.Platform)))
	return nil
}

// AddFromMessage builds an entry from a chat message mentioning a product and a price
func (s *KnowledgeBaseService) AddFromMessage(
	ctx context.Context,
	text string,
	platform domain.Platform,
	sourceURL string,
) (*domain.KnowledgeBaseEntry, error) {
	price, rest, hasPrice := StripPrice(text)
	name, ok := s.extractor.ExtractProductName(rest)
	if !ok {
		return nil, domain.ErrProductNameNotFound
	}
	if !hasPrice {
		return nil, domain.ErrPriceNotFound
	}

	entry := domain.KnowledgeBaseEntry{
		ProductName: name,
		UnitPrice:   price,
		Platform:    platform,
		SourceURL:   sourceURL,
	}
	if err := s.AddEntry(ctx, entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns every entry in insertion order
func (s *KnowledgeBaseService) List(ctx context.Context) ([]domain.KnowledgeBaseEntry, error) {
	return s.repo.Load(ctx)
}

// Search returns entries whose name contains name, case-insensitively
func (s *KnowledgeBaseService) Search(ctx context.Context, name string) ([]domain.KnowledgeBaseEntry, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domain.ErrInvalidRequest
	}
	return s.repo.FindByNameSubstring(ctx, name)
}

// Import bulk-appends rows from an uploaded spreadsheet
func (s *KnowledgeBaseService) Import(ctx context.Context, r io.Reader) (int, error) {
	n, err := s.repo.Import(ctx, r)
	if err != nil {
		return 0, err
	}
	s.logger.Info("knowledge base imported", zap.Int("rows", n))
	return n, nil
}

// Export returns the current table as a spreadsheet
func (s *KnowledgeBaseService) Export(ctx context.Context) ([]byte, error) {
	return s.repo.ExportSnapshot(ctx)
}

// Clear removes every entry
func (s *KnowledgeBaseService) Clear(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info("knowledge base cleared")
	return nil
}

// Stats summarizes platforms and price range
func (s *KnowledgeBaseService) Stats(ctx context.Context) (*domain.KnowledgeBaseStats, error) {
	entries, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return SummarizeEntries(entries), nil
}

// SummarizeEntries computes count, distinct platforms and min/max price
func SummarizeEntries(entries []domain.KnowledgeBaseEntry) *domain.KnowledgeBaseStats {
	stats := &domain.KnowledgeBaseStats{
		Entries:   len(entries),
		Platforms: []domain.Platform{},
	}
	if len(entries) == 0 {
		return stats
	}

	seen := make(map[domain.Platform]bool)
	stats.MinPrice = entries[0].UnitPrice
	stats.MaxPrice = entries[0].UnitPrice
	for _, e := range entries {
		if !seen[e.Platform] {
			seen[e.Platform] = true
			stats.Platforms = append(stats.Platforms, e.Platform)
		}
		stats.MinPrice = math.Min(stats.MinPrice, e.UnitPrice)
		stats.MaxPrice = math.Max(stats.MaxPrice, e.UnitPrice)
	}
	sort.Slice(stats.Platforms, func(i, j int) bool { return stats.Platforms[i] < stats.Platforms[j] })
	return stats
}
