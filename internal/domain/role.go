package domain

import "fmt"

// RoleName is the closed set of assistant personas the orchestrator can run
type RoleName string

const (
	RolePriceResearcher      RoleName = "Price Researcher"
	RoleOfferingReviewer     RoleName = "Offering Reviewer"
	RoleProductScraper       RoleName = "Product Scraper"
	RoleKnowledgeBaseManager RoleName = "Knowledge Base Manager"
)

// Role is the fixed schema every persona must fill in
type Role struct {
	Name        RoleName `json:"name"`
	Prompt      string   `json:"prompt"`
	Icon        string   `json:"icon"`
	Description string   `json:"description"`
}

// Validate rejects roles with missing fields
func (r Role) Validate() error {
	switch r.Name {
	case RolePriceResearcher, RoleOfferingReviewer, RoleProductScraper, RoleKnowledgeBaseManager:
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidRole, r.Name)
	}
	if r.Prompt == "" || r.Icon == "" || r.Description == "" {
		return fmt.Errorf("%w: %q must have prompt, icon and description", ErrInvalidRole, r.Name)
	}
	return nil
}

// DefaultRoles returns the built-in personas, in menu order
func DefaultRoles() []Role {
	return []Role{
		{
			Name:        RolePriceResearcher,
			Prompt:      "Kamu adalah seorang peneliti harga. Tugas kamu adalah menemukan harga terbaik untuk produk di berbagai platform e-commerce.",
			Icon:        "💰",
			Description: "Finds reference prices for a product across e-commerce platforms.",
		},
		{
			Name:        RoleOfferingReviewer,
			Prompt:      "Kamu adalah seorang reviewer penawaran harga dari vendor. Tugas kamu adalah meninjau dan menganalisis penawaran bisnis dari vendor, memastikan penawaran tersebut memenuhi persyaratan pelanggan dan kompetitif di pasar berdasarkan platform e-commerce.",
			Icon:        "📄",
			Description: "Checks whether a vendor quote stays under the market ceiling.",
		},
		{
			Name:        RoleProductScraper,
			Prompt:      "Kamu adalah ilmuwan produk. Tugas kamu adalah memberikan informasi produk dari platform e-commerce seperti Tokopedia dan Shopee, termasuk detail produk, harga, dan ulasan.",
			Icon:        "🔍",
			Description: "Reports product details, prices and reviews from marketplaces.",
		},
		{
			Name:        RoleKnowledgeBaseManager,
			Prompt:      "Kamu adalah knowledge base manager. Tugas kamu adalah mengelola dan memelihara basis pengetahuan untuk chatbot, termasuk mengunggah dan memproses dokumen.",
			Icon:        "📚",
			Description: "Maintains the curated reference price table.",
		},
	}
}

// ValidateRoles checks every role and rejects duplicates
func ValidateRoles(roles []Role) error {
	seen := make(map[RoleName]bool, len(roles))
	for _, r := range roles {
		if err := r.Validate(); err != nil {
			return err
		}
		if seen[r.Name] {
			return fmt.Errorf("%w: duplicate role %q", ErrInvalidRole, r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}
