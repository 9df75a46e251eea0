package usecase

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Trigger patterns, in priority order. A query can match several of them with
// different captured spans; the first pattern that yields a non-empty name wins.
var productTriggerPatterns = []*regexp.Regexp{
	// "berapa harga X", "price of X", "cek harga produk X"
	regexp.MustCompile(`(?:berapa harga|harga dari|harga|price of|cek harga|check price of|cari harga|search price for)\s+(?:produk |product |barang |item |jasa |service )?(?P<name>[^?.,!]*)`),
	// "cari X", "please find X"
	regexp.MustCompile(`(?:cari|search for|find|tolong carikan|please find)\s+(?:produk |product |barang |item |jasa |service )?(?P<name>[^?.,!]*)`),
	// "beli X", "want to buy X"
	regexp.MustCompile(`(?:beli|purchase|buy|ingin membeli|want to buy)\s+(?P<name>[^?.,!]*)`),
	// "dari X"
	regexp.MustCompile(`(?:dari)\s+(?P<name>[^?.,!]*)`),
}

// Structured labels tried when no trigger phrase matches, e.g. "Product: Ruijie RAP2200"
var productLabels = []string{"product:", "nama produk:"}

// ProductExtractor pulls a canonical product name out of a free-text chat query
type ProductExtractor struct {
	logger *zap.Logger
}

// NewProductExtractor creates a new product name extractor
func NewProductExtractor(logger *zap.Logger) *ProductExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductExtractor{logger: logger}
}

// ExtractProductName returns the lowercased product name mentioned in query.
// ok is false when nothing usable was found; that is an expected outcome, not an error.
func (e *ProductExtractor) ExtractProductName(query string) (string, bool) {
	normalized := strings.TrimSpace(strings.ToLower(query))
	if normalized == "" {
		return "", false
	}

	for i, pattern := range productTriggerPatterns {
		match := pattern.FindStringSubmatch(normalized)
		if match == nil {
			continue
		}
		name := strings.TrimSpace(match[pattern.SubexpIndex("name")])
		if name == "" {
			continue
		}
		e.logger.Debug("product name extracted",
			zap.String("query", query),
			zap.Int("pattern", i),
			zap.String("name", name))
		return name, true
	}

	if name, ok := extractLabeledName(normalized); ok {
		e.logger.Debug("product name extracted from label",
			zap.String("query", query),
			zap.String("name", name))
		return name, true
	}

	e.logger.Debug("no product name in query", zap.String("query", query))
	return "", false
}

// extractLabeledName finds the text after the last "product:" or "nama produk:" label up to the line break
func extractLabeledName(normalized string) (string, bool) {
	for _, label := range productLabels {
		idx := strings.LastIndex(normalized, label)
		if idx < 0 {
			continue
		}
		rest := normalized[idx+len(label):]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[:nl]
		}
		if name := strings.TrimSpace(rest); name != "" {
			return name, true
		}
	}
	return "", false
}
