package domain

import "strings"

// Platform identifies where a price observation came from
type Platform string

const (
	PlatformTokopedia       Platform = "Tokopedia"
	PlatformShopee          Platform = "Shopee"
	PlatformSummarySolution Platform = "SummarySolution"
)

// KnownPlatforms lists the platforms the reconciliation engine can gather from
var KnownPlatforms = []Platform{PlatformTokopedia, PlatformShopee, PlatformSummarySolution}

// ParsePlatform maps user-facing labels ("tokopedia", "Summary Solution") to a known Platform
func ParsePlatform(s string) (Platform, error) {
	key := strings.ToLower(strings.Join(strings.Fields(s), ""))
	for _, p := range KnownPlatforms {
		if strings.ToLower(string(p)) == key {
			return p, nil
		}
	}
	return "", ErrUnknownPlatform
}

// IsLive reports whether observations for the platform come from a marketplace adapter
func (p Platform) IsLive() bool {
	return p == PlatformTokopedia || p == PlatformShopee
}

// ObservationOrigin tells whether an observation was read from the knowledge base or scraped live
type ObservationOrigin string

const (
	OriginKnowledgeBase ObservationOrigin = "knowledge_base"
	OriginMarketplace   ObservationOrigin = "marketplace"
)

// Verdict classifies a vendor quote against the ceiling price
type Verdict string

const (
	VerdictReasonable   Verdict = "Reasonable"
	VerdictUnreasonable Verdict = "Unreasonable"
)

// KnowledgeBaseEntry is one row of the persisted reference price table.
// Platform is kept verbatim so spreadsheets edited by hand round-trip unchanged.
type KnowledgeBaseEntry struct {
	ProductName string   `json:"productName"`
	UnitPrice   float64  `json:"unitPrice"`
	Platform    Platform `json:"platform"`
	SourceURL   string   `json:"sourceUrl"`
}

// Listing is what a Source Adapter returns for a single marketplace product page
type Listing struct {
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	PopularityCount int     `json:"popularityCount"`
	URL             string  `json:"url"`
}

// PriceObservation is one price data point for a product from one source
type PriceObservation struct {
	ProductName string            `json:"productName"`
	Price       float64           `json:"price"`
	Platform    Platform          `json:"platform"`
	SourceURL   string            `json:"sourceUrl"`
	ReviewCount *int              `json:"reviewCount,omitempty"`
	Origin      ObservationOrigin `json:"origin"`
}

// Candidate is a gathered observation together with its margin-adjusted ceiling
type Candidate struct {
	PriceObservation
	CeilingPrice float64 `json:"ceilingPrice"`
}

// ReconciliationResult is the authoritative ceiling picked across all gathered observations
type ReconciliationResult struct {
	Platform       Platform    `json:"platform"`
	CeilingPrice   float64     `json:"ceilingPrice"`
	ReferencePrice float64     `json:"referencePrice"`
	Margin         float64     `json:"margin"`
	SourceURL      string      `json:"sourceUrl"`
	ProductName    string      `json:"productName"`
	ReviewCount    *int        `json:"reviewCount,omitempty"`
	QuotedPrice    *float64    `json:"quotedPrice,omitempty"`
	Verdict        *Verdict    `json:"verdict,omitempty"`
	Candidates     []Candidate `json:"candidates"`
}

// KnowledgeBaseStats summarizes the persisted table
type KnowledgeBaseStats struct {
	Entries   int        `json:"entries"`
	Platforms []Platform `json:"platforms"`
	MinPrice  float64    `json:"minPrice"`
	MaxPrice  float64    `json:"maxPrice"`
}
