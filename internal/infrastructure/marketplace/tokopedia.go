package marketplace

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pricelens/backend/internal/domain"
)

// AdapterConfig holds per-marketplace scraping settings
type AdapterConfig struct {
	// SearchURL is the search page prefix; the escaped query is appended to it
	SearchURL  string
	MinReviews int
}

const defaultTokopediaSearchURL = "https://www.tokopedia.com/search?st=product&q="

var (
	tokopediaCard        = elementWithAttr("a", "data-testid", "lnkProductName")
	tokopediaCardReviews = elementWithAttr("span", "data-testid", "lblProductReviewCount")
	tokopediaCardPrice   = elementWithAttr("span", "data-testid", "lblProductPrice")
	tokopediaDetailName  = elementWithAttr("h1", "data-testid", "lblPDPDetailProductName")
	tokopediaDetailPrice = elementWithAttr("div", "data-testid", "lblPDPDetailProductPrice")
	tokopediaDetailStats = elementWithClass("p", "css-19y0pwk-unf-heading")
)

// TokopediaAdapter scrapes Tokopedia search and product pages
type TokopediaAdapter struct {
	fetcher    Fetcher
	searchURL  string
	minReviews int
	logger     *zap.Logger
}

// NewTokopediaAdapter creates a Tokopedia adapter on top of a page fetcher
func NewTokopediaAdapter(fetcher Fetcher, cfg AdapterConfig, logger *zap.Logger) *TokopediaAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	searchURL := cfg.SearchURL
	if searchURL == "" {
		searchURL = defaultTokopediaSearchURL
	}
	return &TokopediaAdapter{
		fetcher:    fetcher,
		searchURL:  searchURL,
		minReviews: cfg.MinReviews,
		logger:     logger,
	}
}

// Platform implements domain.SourceAdapter
func (a *TokopediaAdapter) Platform() domain.Platform {
	return domain.PlatformTokopedia
}

// FindHighestPricedListing returns the URL of the most expensive search result
// with enough reviews
func (a *TokopediaAdapter) FindHighestPricedListing(ctx context.Context, query string) (string, error) {
	pageURL := searchPageURL(a.searchURL, query)

	body, err := a.fetcher.FetchPage(ctx, pageURL)
	if err != nil {
		return "", err
	}
	doc, err := parseHTML(body)
	if err != nil {
		return "", err
	}

	nodes := findAll(doc, tokopediaCard)
	cards := make([]listingCard, 0, len(nodes))
	for _, n := range nodes {
		price, err := parseListingPrice(textContent(findFirst(n, tokopediaCardPrice)))
		if err != nil {
			continue
		}
		cards = append(cards, listingCard{
			href:    resolveHref(pageURL, attr(n, "href")),
			price:   price,
			reviews: parsePopularity(textContent(findFirst(n, tokopediaCardReviews))),
		})
	}

	a.logger.Debug("tokopedia search parsed",
		zap.String("query", query),
		zap.Int("cards", len(nodes)),
		zap.Int("priced", len(cards)))

	return selectHighestPriced(cards, a.minReviews)
}

// FetchListingDetails reads name, price and sold count from a product page
func (a *TokopediaAdapter) FetchListingDetails(ctx context.Context, listingURL string) (*domain.Listing, error) {
	body, err := a.fetcher.FetchPage(ctx, listingURL)
	if err != nil {
		return nil, err
	}
	doc, err := parseHTML(body)
	if err != nil {
		return nil, err
	}

	nameNode := findFirst(doc, tokopediaDetailName)
	priceNode := findFirst(doc, tokopediaDetailPrice)
	if nameNode == nil || priceNode == nil {
		return nil, fmt.Errorf("%w: tokopedia product page missing name or price", domain.ErrScrapeFailed)
	}

	price, err := parseListingPrice(textContent(priceNode))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrScrapeFailed, err)
	}

	return &domain.Listing{
		Name:            textContent(nameNode),
		Price:           price,
		PopularityCount: parsePopularity(textContent(findFirst(doc, tokopediaDetailStats))),
		URL:             listingURL,
	}, nil
}
