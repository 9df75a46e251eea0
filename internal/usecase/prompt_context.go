package usecase

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pricelens/backend/internal/domain"
)

var rupiahPrinter = message.NewPrinter(language.English)

// FormatRupiah renders 1234567.5 as "Rp 1,234,567.50"
func FormatRupiah(amount float64) string {
	return "Rp " + rupiahPrinter.Sprintf("%.2f", amount)
}

// FormatKnowledgeBase renders entries as prompt context for the chat model
func FormatKnowledgeBase(entries []domain.KnowledgeBaseEntry) string {
	var b strings.Builder
	b.WriteString("=== KNOWLEDGE BASE PRODUCTS ===\n\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "Product: %s\n", e.ProductName)
		fmt.Fprintf(&b, "Price: %s\n", FormatRupiah(e.UnitPrice))
		fmt.Fprintf(&b, "Platform: %s\n", e.Platform)
		fmt.Fprintf(&b, "URL: %s\n", e.SourceURL)
		b.WriteString("---\n\n")
	}
	return b.String()
}

// FormatReconciliation renders a result as prompt context: one block per
// candidate followed by the chosen ceiling and, when a quote was given, the verdict
func FormatReconciliation(result *domain.ReconciliationResult) string {
	if result == nil {
		return ""
	}

	var b strings.Builder
	for _, c := range result.Candidates {
		fmt.Fprintf(&b, "=== %s PRODUCT ===\n", strings.ToUpper(string(c.Platform)))
		fmt.Fprintf(&b, "Name: %s\n", c.ProductName)
		fmt.Fprintf(&b, "Price: %s\n", FormatRupiah(c.Price))
		if c.ReviewCount != nil {
			fmt.Fprintf(&b, "Reviews: %d\n", *c.ReviewCount)
		}
		fmt.Fprintf(&b, "URL: %s\n\n", c.SourceURL)
	}

	fmt.Fprintf(&b, "Ceiling price (margin %.0f%%): %s from %s\n",
		result.Margin*100, FormatRupiah(result.CeilingPrice), result.Platform)
	if result.Verdict != nil && result.QuotedPrice != nil {
		fmt.Fprintf(&b, "Quoted price: %s => %s\n", FormatRupiah(*result.QuotedPrice), *result.Verdict)
	}
	return b.String()
}
