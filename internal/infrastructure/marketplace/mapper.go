package marketplace

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

var (
	// Rupiah amounts on listing cards use "." as the thousands separator: "Rp1.250.000"
	listingPricePattern = regexp.MustCompile(`\d[\d.]*`)
	// Popularity labels such as "1.234 terjual", "2,5rb rating" or "15 ulasan"
	popularityPattern = regexp.MustCompile(`\d[\d.,]*`)
)

// listingCard is one search result before selection
type listingCard struct {
	href    string
	price   float64
	reviews int
}

// parseListingPrice reads the first amount in a price label. Ranges keep the lower bound.
func parseListingPrice(text string) (float64, error) {
	raw := listingPricePattern.FindString(text)
	if raw == "" {
		return 0, fmt.Errorf("no amount in %q", text)
	}
	digits := strings.ReplaceAll(strings.TrimRight(raw, "."), ".", "")
	value, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return value, nil
}

// parsePopularity returns the first integer in a label with separators dropped, or 0
func parsePopularity(text string) int {
	raw := popularityPattern.FindString(text)
	if raw == "" {
		return 0
	}
	digits := strings.NewReplacer(".", "", ",", "").Replace(raw)
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

// selectHighestPriced picks the most expensive card with at least minReviews reviews.
// The first card wins a tie.
func selectHighestPriced(cards []listingCard, minReviews int) (string, error) {
	var best *listingCard
	for i := range cards {
		c := &cards[i]
		if c.reviews < minReviews || c.href == "" {
			continue
		}
		if best == nil || c.price > best.price {
			best = c
		}
	}
	if best == nil {
		return "", domain.ErrListingNotFound
	}
	return best.href, nil
}

// resolveHref makes a card link absolute against the page it came from
func resolveHref(pageURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func searchPageURL(searchURL, query string) string {
	return searchURL + url.QueryEscape(strings.TrimSpace(query))
}
