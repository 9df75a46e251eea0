package marketplace

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pricelens/backend/internal/domain"
)

const defaultShopeeSearchURL = "https://shopee.co.id/search?keyword="

var (
	shopeeCard         = elementWithAttr("div", "data-sqe", "item")
	shopeeCardRating   = elementWithAttr("div", "data-sqe", "rating")
	shopeeCardPrice    = elementWithAttr("span", "data-sqe", "price")
	shopeeDetailName   = elementWithAttr("div", "data-sqe", "name")
	shopeeDetailPrice  = elementWithAttr("div", "data-sqe", "price")
	shopeeDetailRating = elementWithAttr("div", "data-sqe", "rating")
)

// ShopeeAdapter scrapes Shopee search and product pages
type ShopeeAdapter struct {
	fetcher    Fetcher
	searchURL  string
	minReviews int
	logger     *zap.Logger
}

// NewShopeeAdapter creates a Shopee adapter on top of a page fetcher
func NewShopeeAdapter(fetcher Fetcher, cfg AdapterConfig, logger *zap.Logger) *ShopeeAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	searchURL := cfg.SearchURL
	if searchURL == "" {
		searchURL = defaultShopeeSearchURL
	}
	return &ShopeeAdapter{
		fetcher:    fetcher,
		searchURL:  searchURL,
		minReviews: cfg.MinReviews,
		logger:     logger,
	}
}

// Platform implements domain.SourceAdapter
func (a *ShopeeAdapter) Platform() domain.Platform {
	return domain.PlatformShopee
}

// FindHighestPricedListing returns the URL of the most expensive search result
// with enough ratings
func (a *ShopeeAdapter) FindHighestPricedListing(ctx context.Context, query string) (string, error) {
	pageURL := searchPageURL(a.searchURL, query)

	body, err := a.fetcher.FetchPage(ctx, pageURL)
	if err != nil {
		return "", err
	}
	doc, err := parseHTML(body)
	if err != nil {
		return "", err
	}

	nodes := findAll(doc, shopeeCard)
	cards := make([]listingCard, 0, len(nodes))
	for _, n := range nodes {
		price, err := parseListingPrice(textContent(findFirst(n, shopeeCardPrice)))
		if err != nil {
			continue
		}
		link := findFirst(n, linkWithHref)
		if link == nil {
			continue
		}
		cards = append(cards, listingCard{
			href:    resolveHref(pageURL, attr(link, "href")),
			price:   price,
			reviews: parsePopularity(textContent(findFirst(n, shopeeCardRating))),
		})
	}

	a.logger.Debug("shopee search parsed",
		zap.String("query", query),
		zap.Int("cards", len(nodes)),
		zap.Int("priced", len(cards)))

	return selectHighestPriced(cards, a.minReviews)
}

// FetchListingDetails reads name, price and rating count from a product page
func (a *ShopeeAdapter) FetchListingDetails(ctx context.Context, listingURL string) (*domain.Listing, error) {
	body, err := a.fetcher.FetchPage(ctx, listingURL)
	if err != nil {
		return nil, err
	}
	doc, err := parseHTML(body)
	if err != nil {
		return nil, err
	}

	nameNode := findFirst(doc, shopeeDetailName)
	priceNode := findFirst(doc, shopeeDetailPrice)
	if nameNode == nil || priceNode == nil {
		return nil, fmt.Errorf("%w: shopee product page missing name or price", domain.ErrScrapeFailed)
	}

	price, err := parseListingPrice(textContent(priceNode))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrScrapeFailed, err)
	}

	return &domain.Listing{
		Name:            textContent(nameNode),
		Price:           price,
		PopularityCount: parsePopularity(textContent(findFirst(doc, shopeeDetailRating))),
		URL:             listingURL,
	}, nil
}
