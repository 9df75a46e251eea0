package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/metrics"
)

// ReconcileRequest asks for the ceiling price of one product.
// Margin is expected to be validated by the caller; it is used as given.
type ReconcileRequest struct {
	ProductName string
	Margin      float64
	Platforms   []domain.Platform
	QuotedPrice *float64
}

// ReconciliationService gathers price observations from the knowledge base and
// marketplace adapters and reduces them to a single ceiling price
type ReconciliationService struct {
	knowledgeBase domain.KnowledgeBaseReader
	adapters      map[domain.Platform]domain.SourceAdapter
	extractor     *ProductExtractor
	logger        *zap.Logger
}

// NewReconciliationService creates a new reconciliation service with dependencies.
// Live platforms without an adapter simply produce no observation.
func NewReconciliationService(
	knowledgeBase domain.KnowledgeBaseReader,
	adapters []domain.SourceAdapter,
	logger *zap.Logger,
) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}

	byPlatform := make(map[domain.Platform]domain.SourceAdapter, len(adapters))
	for _, a := range adapters {
		byPlatform[a.Platform()] = a
	}

	return &ReconciliationService{
		knowledgeBase: knowledgeBase,
		adapters:      byPlatform,
		extractor:     NewProductExtractor(logger),
		logger:        logger,
	}
}

// MarginAdjusted returns price * (1 + margin)
func MarginAdjusted(price, margin float64) float64 {
	return price * (1 + margin)
}

// Judge classifies a quote against a ceiling; a quote equal to the ceiling is reasonable
func Judge(quotedPrice, ceiling float64) domain.Verdict {
	if quotedPrice <= ceiling {
		return domain.VerdictReasonable
	}
	return domain.VerdictUnreasonable
}

// Reconcile gathers observations for every requested platform concurrently and
// returns the one with the highest margin-adjusted ceiling.
// Returns ErrNoReferencePrice when no platform produced an observation, unless the
// knowledge base lookup itself failed, in which case that error is returned.
func (s *ReconciliationService) Reconcile(
	ctx context.Context,
	request *ReconcileRequest,
) (*domain.ReconciliationResult, error) {
	if request == nil || strings.TrimSpace(request.ProductName) == "" {
		return nil, domain.ErrInvalidRequest
	}

	platforms := uniquePlatforms(request.Platforms)
	slots := make([][]domain.PriceObservation, len(platforms))
	lookupErrs := make([]error, len(platforms))

	// Each platform fills its own slot; failures are logged and never cancel siblings.
	var g errgroup.Group
	for i, platform := range platforms {
		g.Go(func() error {
			slots[i], lookupErrs[i] = s.gather(ctx, platform, request.ProductName)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		metrics.ReconcileTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, err
	}

	candidates := make([]domain.Candidate, 0, len(platforms))
	for _, observations := range slots {
		for _, obs := range observations {
			candidates = append(candidates, domain.Candidate{
				PriceObservation: obs,
				CeilingPrice:     MarginAdjusted(obs.Price, request.Margin),
			})
		}
	}

	best := pickHighestCeiling(candidates)
	if best == nil {
		// Nothing else answered, so a broken knowledge base is the real cause.
		if err := errors.Join(lookupErrs...); err != nil {
			metrics.ReconcileTotal.WithLabelValues(metrics.OutcomeError).Inc()
			return nil, fmt.Errorf("knowledge base lookup: %w", err)
		}
		s.logger.Info("no reference price found",
			zap.String("product", request.ProductName),
			zap.Any("platforms", platforms))
		metrics.ReconcileTotal.WithLabelValues(metrics.OutcomeNoReference).Inc()
		return nil, domain.ErrNoReferencePrice
	}

	result := &domain.ReconciliationResult{
		Platform:       best.Platform,
		CeilingPrice:   best.CeilingPrice,
		ReferencePrice: best.Price,
		Margin:         request.Margin,
		SourceURL:      best.SourceURL,
		ProductName:    best.ProductName,
		ReviewCount:    best.ReviewCount,
		Candidates:     candidates,
	}

	if request.QuotedPrice != nil {
		quote := *request.QuotedPrice
		verdict := Judge(quote, result.CeilingPrice)
		result.QuotedPrice = &quote
		result.Verdict = &verdict
	}

	s.logger.Info("reconciled",
		zap.String("product", request.ProductName),
		zap.String("platform", string(result.Platform)),
		zap.Float64("ceiling", result.CeilingPrice),
		zap.Int("candidates", len(candidates)))
	metrics.ReconcileTotal.WithLabelValues(metrics.OutcomeOK).Inc()

	return result, nil
}

// Research extracts the product name from a free-text query and reconciles it.
// The engine is not invoked when extraction fails.
func (s *ReconciliationService) Research(
	ctx context.Context,
	query string,
	margin float64,
	platforms []domain.Platform,
	quotedPrice *float64,
) (*domain.ReconciliationResult, error) {
	name, ok := s.extractor.ExtractProductName(query)
	if !ok {
		return nil, domain.ErrProductNameNotFound
	}

	return s.Reconcile(ctx, &ReconcileRequest{
		ProductName: name,
		Margin:      margin,
		Platforms:   platforms,
		QuotedPrice: quotedPrice,
	})
}

// ReviewOffer reads a vendor offer, extracts the product and the quoted price,
// and judges the quote against the reconciled ceiling
func (s *ReconciliationService) ReviewOffer(
	ctx context.Context,
	offerText string,
	margin float64,
	platforms []domain.Platform,
) (*domain.ReconciliationResult, error) {
	// The quote is cut out first so its digits never end up in the product name.
	quote, rest, hasQuote := StripPrice(offerText)

	name, ok := s.extractor.ExtractProductName(rest)
	if !ok {
		return nil, domain.ErrProductNameNotFound
	}
	if !hasQuote {
		return nil, domain.ErrPriceNotFound
	}

	return s.Reconcile(ctx, &ReconcileRequest{
		ProductName: name,
		Margin:      margin,
		Platforms:   platforms,
		QuotedPrice: &quote,
	})
}

// gather returns every observation one platform can contribute for the product.
// Marketplace failures are logged and swallowed; only a failed knowledge base lookup is returned.
func (s *ReconciliationService) gather(ctx context.Context, platform domain.Platform, productName string) ([]domain.PriceObservation, error) {
	start := time.Now()
	defer func() {
		metrics.AdapterDuration.WithLabelValues(string(platform)).Observe(time.Since(start).Seconds())
	}()

	if platform == domain.PlatformSummarySolution {
		return s.gatherKnowledgeBase(ctx, productName)
	}

	obs, err := s.gatherLive(ctx, platform, productName)
	if err != nil {
		outcome := metrics.ObservationFailed
		if errors.Is(err, domain.ErrListingNotFound) {
			outcome = metrics.ObservationNotFound
		}
		metrics.ObservationsTotal.WithLabelValues(string(platform), outcome).Inc()
		s.logger.Warn("platform produced no observation",
			zap.String("platform", string(platform)),
			zap.String("query", productName),
			zap.Error(err))
		return nil, nil
	}

	metrics.ObservationsTotal.WithLabelValues(string(platform), metrics.ObservationFound).Inc()
	return []domain.PriceObservation{*obs}, nil
}

// gatherKnowledgeBase wraps every matching entry; multiple hits are all kept as candidates
func (s *ReconciliationService) gatherKnowledgeBase(ctx context.Context, productName string) ([]domain.PriceObservation, error) {
	platform := string(domain.PlatformSummarySolution)

	if s.knowledgeBase == nil {
		metrics.ObservationsTotal.WithLabelValues(platform, metrics.ObservationNotFound).Inc()
		return nil, nil
	}

	entries, err := s.knowledgeBase.FindByNameSubstring(ctx, productName)
	if err != nil {
		metrics.ObservationsTotal.WithLabelValues(platform, metrics.ObservationFailed).Inc()
		s.logger.Error("knowledge base lookup failed",
			zap.String("query", productName),
			zap.Error(err))
		return nil, err
	}

	if len(entries) == 0 {
		metrics.ObservationsTotal.WithLabelValues(platform, metrics.ObservationNotFound).Inc()
		return nil, nil
	}

	observations := make([]domain.PriceObservation, 0, len(entries))
	for _, entry := range entries {
		observations = append(observations, domain.PriceObservation{
			ProductName: entry.ProductName,
			Price:       entry.UnitPrice,
			Platform:    entry.Platform,
			SourceURL:   entry.SourceURL,
			Origin:      domain.OriginKnowledgeBase,
		})
	}
	metrics.ObservationsTotal.WithLabelValues(platform, metrics.ObservationFound).Add(float64(len(observations)))
	return observations, nil
}

// gatherLive asks the platform's adapter for its top qualifying listing
func (s *ReconciliationService) gatherLive(ctx context.Context, platform domain.Platform, productName string) (*domain.PriceObservation, error) {
	adapter, ok := s.adapters[platform]
	if !ok {
		return nil, domain.ErrListingNotFound
	}

	url, err := adapter.FindHighestPricedListing(ctx, productName)
	if err != nil {
		return nil, err
	}

	listing, err := adapter.FetchListingDetails(ctx, url)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, domain.ErrScrapeFailed
	}

	name := listing.Name
	if name == "" {
		name = productName
	}
	sourceURL := listing.URL
	if sourceURL == "" {
		sourceURL = url
	}
	reviews := listing.PopularityCount

	return &domain.PriceObservation{
		ProductName: name,
		Price:       listing.Price,
		Platform:    platform,
		SourceURL:   sourceURL,
		ReviewCount: &reviews,
		Origin:      domain.OriginMarketplace,
	}, nil
}

// pickHighestCeiling returns the first candidate holding the maximum ceiling
func pickHighestCeiling(candidates []domain.Candidate) *domain.Candidate {
	var best *domain.Candidate
	for i := range candidates {
		if best == nil || candidates[i].CeilingPrice > best.CeilingPrice {
			best = &candidates[i]
		}
	}
	return best
}

// uniquePlatforms drops repeated platforms, keeping request order
func uniquePlatforms(platforms []domain.Platform) []domain.Platform {
	seen := make(map[domain.Platform]bool, len(platforms))
	out := make([]domain.Platform, 0, len(platforms))
	for _, p := range platforms {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
