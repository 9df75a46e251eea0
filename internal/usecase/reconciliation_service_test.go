package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/pricelens/backend/internal/domain"
)

// MockKnowledgeBase is a mock implementation of domain.KnowledgeBaseReader
type MockKnowledgeBase struct {
	entries []domain.KnowledgeBaseEntry
	err     error
	calls   int
	names   []string
}

func (m *MockKnowledgeBase) FindByNameSubstring(ctx context.Context, name string) ([]domain.KnowledgeBaseEntry, error) {
	m.calls++
	m.names = append(m.names, name)
	if m.err != nil {
		return nil, m.err
	}
	return m.entries, nil
}

// MockSourceAdapter is a mock implementation of domain.SourceAdapter
type MockSourceAdapter struct {
	platform  domain.Platform
	url       string
	listing   *domain.Listing
	findErr   error
	detailErr error

	mu      sync.Mutex
	queries []string
}

func (m *MockSourceAdapter) Platform() domain.Platform {
	return m.platform
}

func (m *MockSourceAdapter) FindHighestPricedListing(ctx context.Context, query string) (string, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()
	if m.findErr != nil {
		return "", m.findErr
	}
	return m.url, nil
}

func (m *MockSourceAdapter) FetchListingDetails(ctx context.Context, url string) (*domain.Listing, error) {
	if m.detailErr != nil {
		return nil, m.detailErr
	}
	return m.listing, nil
}

func tokopediaAdapter(price float64, reviews int) *MockSourceAdapter {
	return &MockSourceAdapter{
		platform: domain.PlatformTokopedia,
		url:      "https://www.tokopedia.com/shop/item",
		listing: &domain.Listing{
			Name:            "Ruijie RAP2200 Access Point",
			Price:           price,
			PopularityCount: reviews,
			URL:             "https://www.tokopedia.com/shop/item",
		},
	}
}

func floatPtr(f float64) *float64 {
	return &f
}

func TestMarginAdjusted(t *testing.T) {
	tests := []struct {
		price, margin, want float64
	}{
		{1000000, 0.2, 1200000},
		{1000000, 0, 1000000},
		{900000, 0.5, 1350000},
		{0, 0.3, 0},
	}

	for _, tt := range tests {
		got := MarginAdjusted(tt.price, tt.margin)
		if math.Abs(got-tt.want) > 1e-6 {
			t.Errorf("MarginAdjusted(%v, %v) = %v, want %v", tt.price, tt.margin, got, tt.want)
		}
	}
}

func TestJudge(t *testing.T) {
	ceiling := 1200000.0

	tests := []struct {
		name  string
		quote float64
		want  domain.Verdict
	}{
		{"below ceiling", 1000000, domain.VerdictReasonable},
		{"equal to ceiling", ceiling, domain.VerdictReasonable},
		{"just above ceiling", math.Nextafter(ceiling, math.Inf(1)), domain.VerdictUnreasonable},
		{"far above ceiling", 2000000, domain.VerdictUnreasonable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Judge(tt.quote, ceiling); got != tt.want {
				t.Errorf("Judge(%v, %v) = %v, want %v", tt.quote, ceiling, got, tt.want)
			}
		})
	}
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("knowledge base beats cheaper marketplace", func(t *testing.T) {
		kb := &MockKnowledgeBase{entries: []domain.KnowledgeBaseEntry{
			{ProductName: "Ruijie RAP2200", UnitPrice: 1000000, Platform: domain.PlatformSummarySolution, SourceURL: "https://summarysolution.id/rap2200"},
		}}
		shopee := &MockSourceAdapter{platform: domain.PlatformShopee, findErr: domain.ErrListingNotFound}
		service := NewReconciliationService(kb, []domain.SourceAdapter{tokopediaAdapter(900000, 120), shopee}, nil)

		result, err := service.Reconcile(ctx, &ReconcileRequest{
			ProductName: "ruijie rap2200",
			Margin:      0.2,
			Platforms:   []domain.Platform{domain.PlatformTokopedia, domain.PlatformShopee, domain.PlatformSummarySolution},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.Platform != domain.PlatformSummarySolution {
			t.Errorf("Platform = %v, want %v", result.Platform, domain.PlatformSummarySolution)
		}
		if math.Abs(result.CeilingPrice-1200000) > 1e-6 {
			t.Errorf("CeilingPrice = %v, want 1200000", result.CeilingPrice)
		}
		if result.ReferencePrice != 1000000 {
			t.Errorf("ReferencePrice = %v, want 1000000", result.ReferencePrice)
		}
		if result.SourceURL != "https://summarysolution.id/rap2200" {
			t.Errorf("SourceURL = %v", result.SourceURL)
		}
		if result.ReviewCount != nil {
			t.Errorf("ReviewCount = %v, want nil for knowledge base winner", *result.ReviewCount)
		}
		if len(result.Candidates) != 2 {
			t.Errorf("len(Candidates) = %d, want 2", len(result.Candidates))
		}
		if result.Verdict != nil {
			t.Errorf("Verdict = %v, want nil without a quote", *result.Verdict)
		}
	})

	t.Run("marketplace winner carries review count", func(t *testing.T) {
		service := NewReconciliationService(&MockKnowledgeBase{}, []domain.SourceAdapter{tokopediaAdapter(900000, 57)}, nil)

		result, err := service.Reconcile(ctx, &ReconcileRequest{
			ProductName: "ruijie rap2200",
			Margin:      0.1,
			Platforms:   []domain.Platform{domain.PlatformSummarySolution, domain.PlatformTokopedia},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Platform != domain.PlatformTokopedia {
			t.Errorf("Platform = %v, want Tokopedia", result.Platform)
		}
		if result.ReviewCount == nil || *result.ReviewCount != 57 {
			t.Errorf("ReviewCount = %v, want 57", result.ReviewCount)
		}
		if result.ProductName != "Ruijie RAP2200 Access Point" {
			t.Errorf("ProductName = %v", result.ProductName)
		}
	})

	t.Run("no observations", func(t *testing.T) {
		service := NewReconciliationService(&MockKnowledgeBase{}, []domain.SourceAdapter{
			&MockSourceAdapter{platform: domain.PlatformTokopedia, findErr: domain.ErrListingNotFound},
		}, nil)

		_, err := service.Reconcile(ctx, &ReconcileRequest{
			ProductName: "unobtainium",
			Margin:      0.2,
			Platforms:   []domain.Platform{domain.PlatformTokopedia, domain.PlatformShopee, domain.PlatformSummarySolution},
		})
		if !errors.Is(err, domain.ErrNoReferencePrice) {
			t.Errorf("error = %v, want ErrNoReferencePrice", err)
		}
	})

	t.Run("corrupt knowledge base with nothing else to fall back on", func(t *testing.T) {
		kb := &MockKnowledgeBase{err: fmt.Errorf("load: %w", domain.ErrKnowledgeBaseCorrupt)}
		service := NewReconciliationService(kb, nil, nil)

		_, err := service.Reconcile(ctx, &ReconcileRequest{
			ProductName: "ruijie rap2200",
			Margin:      0.2,
			Platforms:   []domain.Platform{domain.PlatformSummarySolution},
		})
		if !errors.Is(err, domain.ErrKnowledgeBaseCorrupt) {
			t.Errorf("error = %v, want ErrKnowledgeBaseCorrupt", err)
		}
		if errors.Is(err, domain.ErrNoReferencePrice) {
			t.Errorf("error = %v, must not be reported as a missing reference", err)
		}
	})

	t.Run("failing platforms do not hide the others", func(t *testing.T) {
		kb := &MockKnowledgeBase{err: domain.ErrKnowledgeBaseCorrupt}
		shopee := &MockSourceAdapter{platform: domain.PlatformShopee, url: "https://shopee.co.id/x", detailErr: domain.ErrScrapeFailed}
		service := NewReconciliationService(kb, []domain.SourceAdapter{tokopediaAdapter(900000, 3), shopee}, nil)

		result, err := service.Reconcile(ctx, &ReconcileRequest{
			ProductName: "ruijie rap2200",
			Margin:      0,
			Platforms:   domain.KnownPlatforms,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Platform != domain.PlatformTokopedia {
			t.Errorf("Platform = %v, want Tokopedia", result.Platform)
		}
		if len(result.Candidates) != 1 {
			t.Errorf("len(Candidates) = %d, want 1", len(result.Candidates))
		}
	})

	t.Run("every knowledge base hit is a candidate", func(t *testing.T) {
		kb := &MockKnowledgeBase{entries: []domain.KnowledgeBaseEntry{
			{ProductName: "Ruijie RAP2200 (old stock)", UnitPrice: 800000, Platform: domain.PlatformSummarySolution},
			{ProductName: "Ruijie RAP2200", UnitPrice: 1100000, Platform: domain.PlatformSummarySolution},
		}}
		service := NewReconciliationService(kb, nil, nil)

		result, err := service.Reconcile(ctx, &ReconcileRequest{
			ProductName: "rap2200",
			Margin:      0.2,
			Platforms:   []domain.Platform{domain.PlatformSummarySolution},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Candidates) != 2 {
			t.Errorf("len(Candidates) = %d, want 2", len(result.Candidates))
		}
		if result.ReferencePrice != 1100000 {
			t.Errorf("ReferencePrice = %v, want the higher entry", result.ReferencePrice)
		}
	})

	t.Run("ties keep the first maximal candidate", func(t *testing.T) {
		kb := &MockKnowledgeBase{entries: []domain.KnowledgeBaseEntry{
			{ProductName: "Ruijie RAP2200", UnitPrice: 900000, Platform: domain.PlatformSummarySolution},
		}}
		service := NewReconciliationService(kb, []domain.SourceAdapter{tokopediaAdapter(900000, 10)}, nil)

		result, err := service.Reconcile(ctx, &ReconcileRequest{
			ProductName: "ruijie rap2200",
			Margin:      0.2,
			Platforms:   []domain.Platform{domain.PlatformTokopedia, domain.PlatformSummarySolution},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Platform != domain.PlatformTokopedia {
			t.Errorf("Platform = %v, want Tokopedia (requested first)", result.Platform)
		}
	})

	t.Run("quoted price gets a verdict", func(t *testing.T) {
		service := NewReconciliationService(&MockKnowledgeBase{}, []domain.SourceAdapter{tokopediaAdapter(1000000, 1)}, nil)

		tests := []struct {
			quote float64
			want  domain.Verdict
		}{
			{1200000, domain.VerdictReasonable},
			{math.Nextafter(1200000, math.Inf(1)), domain.VerdictUnreasonable},
		}
		for _, tt := range tests {
			result, err := service.Reconcile(ctx, &ReconcileRequest{
				ProductName: "ruijie rap2200",
				Margin:      0.2,
				Platforms:   []domain.Platform{domain.PlatformTokopedia},
				QuotedPrice: floatPtr(tt.quote),
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Verdict == nil || *result.Verdict != tt.want {
				t.Errorf("quote %v: Verdict = %v, want %v", tt.quote, result.Verdict, tt.want)
			}
			if result.QuotedPrice == nil || *result.QuotedPrice != tt.quote {
				t.Errorf("QuotedPrice = %v, want %v", result.QuotedPrice, tt.quote)
			}
		}
	})

	t.Run("duplicate platforms are gathered once", func(t *testing.T) {
		adapter := tokopediaAdapter(500000, 1)
		service := NewReconciliationService(nil, []domain.SourceAdapter{adapter}, nil)

		result, err := service.Reconcile(ctx, &ReconcileRequest{
			ProductName: "switch",
			Margin:      0.2,
			Platforms:   []domain.Platform{domain.PlatformTokopedia, domain.PlatformTokopedia},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(adapter.queries) != 1 {
			t.Errorf("adapter called %d times, want 1", len(adapter.queries))
		}
		if len(result.Candidates) != 1 {
			t.Errorf("len(Candidates) = %d, want 1", len(result.Candidates))
		}
	})

	t.Run("invalid request", func(t *testing.T) {
		service := NewReconciliationService(nil, nil, nil)

		for _, req := range []*ReconcileRequest{nil, {ProductName: "   "}} {
			if _, err := service.Reconcile(ctx, req); !errors.Is(err, domain.ErrInvalidRequest) {
				t.Errorf("Reconcile(%+v) error = %v, want ErrInvalidRequest", req, err)
			}
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		service := NewReconciliationService(&MockKnowledgeBase{}, nil, nil)
		_, err := service.Reconcile(canceled, &ReconcileRequest{
			ProductName: "ruijie rap2200",
			Platforms:   []domain.Platform{domain.PlatformSummarySolution},
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})
}

func TestResearch(t *testing.T) {
	ctx := context.Background()
	adapter := tokopediaAdapter(900000, 12)
	service := NewReconciliationService(nil, []domain.SourceAdapter{adapter}, nil)

	result, err := service.Research(ctx, "berapa harga Ruijie RAP2200?", 0.2, []domain.Platform{domain.PlatformTokopedia}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(adapter.queries) != 1 || adapter.queries[0] != "ruijie rap2200" {
		t.Errorf("adapter queries = %v, want [ruijie rap2200]", adapter.queries)
	}
	if math.Abs(result.CeilingPrice-1080000) > 1e-6 {
		t.Errorf("CeilingPrice = %v, want 1080000", result.CeilingPrice)
	}

	_, err = service.Research(ctx, "halo, apa kabar", 0.2, []domain.Platform{domain.PlatformTokopedia}, nil)
	if !errors.Is(err, domain.ErrProductNameNotFound) {
		t.Errorf("error = %v, want ErrProductNameNotFound", err)
	}
	if len(adapter.queries) != 1 {
		t.Errorf("adapter should not be called when extraction fails, got %d calls", len(adapter.queries))
	}
}

func TestReviewOffer(t *testing.T) {
	ctx := context.Background()
	service := NewReconciliationService(nil, []domain.SourceAdapter{tokopediaAdapter(1000000, 4)}, nil)
	platforms := []domain.Platform{domain.PlatformTokopedia}

	t.Run("quote within ceiling", func(t *testing.T) {
		result, err := service.ReviewOffer(ctx, "beli Ruijie RAP2200, Rp 1.150.000", 0.2, platforms)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.QuotedPrice == nil || *result.QuotedPrice != 1150000 {
			t.Errorf("QuotedPrice = %v, want 1150000", result.QuotedPrice)
		}
		if result.Verdict == nil || *result.Verdict != domain.VerdictReasonable {
			t.Errorf("Verdict = %v, want Reasonable", result.Verdict)
		}
	})

	t.Run("quote above ceiling", func(t *testing.T) {
		result, err := service.ReviewOffer(ctx, "beli Ruijie RAP2200, IDR 1500000", 0.2, platforms)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Verdict == nil || *result.Verdict != domain.VerdictUnreasonable {
			t.Errorf("Verdict = %v, want Unreasonable", result.Verdict)
		}
	})

	t.Run("quote is cut out of the product name", func(t *testing.T) {
		offers := []string{
			"Harga Ruijie RAP2200 Rp 1.150.000",
			"Penawaran: beli Ruijie RAP2200 seharga Rp 1.150.000",
			"Product: Ruijie RAP2200 @ IDR 1150000\nTerima kasih",
		}
		for _, offer := range offers {
			kb := &MockKnowledgeBase{entries: []domain.KnowledgeBaseEntry{
				{ProductName: "Ruijie RAP2200", UnitPrice: 1000000, Platform: domain.PlatformSummarySolution},
			}}
			service := NewReconciliationService(kb, nil, nil)

			result, err := service.ReviewOffer(ctx, offer, 0.2, []domain.Platform{domain.PlatformSummarySolution})
			if err != nil {
				t.Fatalf("ReviewOffer(%q) unexpected error: %v", offer, err)
			}
			if len(kb.names) != 1 || kb.names[0] != "ruijie rap2200" {
				t.Errorf("ReviewOffer(%q) looked up %q, want [ruijie rap2200]", offer, kb.names)
			}
			if result.QuotedPrice == nil || *result.QuotedPrice != 1150000 {
				t.Errorf("ReviewOffer(%q) QuotedPrice = %v, want 1150000", offer, result.QuotedPrice)
			}
			if result.Verdict == nil || *result.Verdict != domain.VerdictReasonable {
				t.Errorf("ReviewOffer(%q) Verdict = %v, want Reasonable", offer, result.Verdict)
			}
		}
	})

	t.Run("missing price", func(t *testing.T) {
		_, err := service.ReviewOffer(ctx, "beli Ruijie RAP2200 segera", 0.2, platforms)
		if !errors.Is(err, domain.ErrPriceNotFound) {
			t.Errorf("error = %v, want ErrPriceNotFound", err)
		}
	})

	t.Run("missing product", func(t *testing.T) {
		_, err := service.ReviewOffer(ctx, "total Rp 1.000.000", 0.2, platforms)
		if !errors.Is(err, domain.ErrProductNameNotFound) {
			t.Errorf("error = %v, want ErrProductNameNotFound", err)
		}
	})
}
