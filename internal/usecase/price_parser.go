package usecase

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Currency-prefixed numerals in Indonesian notation: "." groups thousands, "," starts decimals.
var (
	// Rp 1.234.567,89 / IDR 1.234.567. The trailing group stops the match from
	// splitting an ungrouped number like "500000" into "500".
	groupedPricePattern = regexp.MustCompile(`\b(?i:rp\.?|idr)\s*(\d{1,3}(?:\.\d{3})*(?:,\d+)?)(?:$|[^\d.,]|[.,](?:$|[^\d]))`)

	// Rp 1234567 / IDR 500000,50
	simplePricePattern = regexp.MustCompile(`\b(?i:rp\.?|idr)\s*(\d+(?:,\d+)?)`)
)

// ParsePrice returns the first currency-prefixed price found in text.
// ok is false when there is none or it does not convert to a finite non-negative number.
func ParsePrice(text string) (float64, bool) {
	price, _, _, ok := FindPrice(strings.TrimSpace(text))
	return price, ok
}

// FindPrice is ParsePrice that also reports the byte span text[start:end]
// holding the currency prefix and numeral
func FindPrice(text string) (price float64, start, end int, ok bool) {
	for _, pattern := range []*regexp.Regexp{groupedPricePattern, simplePricePattern} {
		loc := pattern.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		if price, ok := normalizePrice(text[loc[2]:loc[3]]); ok {
			return price, loc[0], loc[3], true
		}
	}
	return 0, 0, 0, false
}

// Words that introduce a quote, e.g. "seharga Rp 1.150.000" or "harga: IDR 500000"
var priceLeadIn = regexp.MustCompile(`(?i)[\s,:;=@-]*(?:\b(?:dengan harga|seharga|harga|sebesar|senilai|total|at|for)\b[\s,:;=@-]*)?$`)

// priceBreak replaces a removed quote. The newline ends a "Product:" label line
// and the period ends a trigger-phrase capture.
const priceBreak = "\n."

// StripPrice finds the first price in text and returns text with that quote and
// the words leading into it removed, so the product name can be extracted from the rest
func StripPrice(text string) (price float64, rest string, ok bool) {
	price, start, end, ok := FindPrice(text)
	if !ok {
		return 0, text, false
	}

	before := text[:start]
	if loc := priceLeadIn.FindStringIndex(before); loc != nil {
		before = before[:loc[0]]
	}
	return price, before + priceBreak + text[end:], true
}

// normalizePrice strips thousands separators and turns the decimal comma into a point
func normalizePrice(raw string) (float64, bool) {
	s := strings.ReplaceAll(raw, ".", "")
	s = strings.ReplaceAll(s, ",", ".")

	price, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(price, 0) || math.IsNaN(price) || price < 0 {
		return 0, false
	}
	return price, true
}
