package marketplace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricelens/backend/internal/domain"
)

func TestParseListingPrice(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"Rp1.250.000", 1250000},
		{"Rp 850.000", 850000},
		{"1.100.000", 1100000},
		{"Rp100.000 - Rp200.000", 100000},
		{"Rp999", 999},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseListingPrice(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := parseListingPrice("Harga tidak tersedia")
	assert.Error(t, err)
}

func TestParsePopularity(t *testing.T) {
	assert.Equal(t, 120, parsePopularity("(120)"))
	assert.Equal(t, 1234, parsePopularity("1.234 terjual"))
	assert.Equal(t, 15, parsePopularity("15 rating • 6 ulasan"))
	assert.Equal(t, 0, parsePopularity(""))
	assert.Equal(t, 0, parsePopularity("belum ada ulasan"))
}

func TestSelectHighestPriced(t *testing.T) {
	cards := []listingCard{
		{href: "a", price: 100, reviews: 5},
		{href: "b", price: 300, reviews: 0},
		{href: "c", price: 200, reviews: 2},
		{href: "d", price: 200, reviews: 9},
	}

	got, err := selectHighestPriced(cards, 1)
	require.NoError(t, err)
	assert.Equal(t, "c", got)

	got, err = selectHighestPriced(cards, 0)
	require.NoError(t, err)
	assert.Equal(t, "b", got)

	_, err = selectHighestPriced(cards, 10)
	assert.ErrorIs(t, err, domain.ErrListingNotFound)

	_, err = selectHighestPriced(nil, 0)
	assert.ErrorIs(t, err, domain.ErrListingNotFound)
}

func TestResolveHref(t *testing.T) {
	page := "https://www.tokopedia.com/search?st=product&q=x"

	assert.Equal(t, "https://www.tokopedia.com/shop/item", resolveHref(page, "/shop/item"))
	assert.Equal(t, "https://other.example/item", resolveHref(page, "https://other.example/item"))
	assert.Equal(t, "", resolveHref(page, "  "))
}

func TestSearchCacheKey(t *testing.T) {
	assert.Equal(t, "ruijie+rap-2200", searchCacheKey("  Ruijie RAP-2200 "))
	assert.Equal(t, "c%2B%2B+switch", searchCacheKey("C++ switch"))
	assert.NotEqual(t, searchCacheKey("c++ switch"), searchCacheKey("c switch"))
	assert.Equal(t, "", searchCacheKey(""))
}
