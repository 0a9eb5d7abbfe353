// Package listing implements the marketplace-listing bounded context: the
// Listing aggregate, its validation rules, and the repository contract for
// the reference corpus.  All business rules that concern listings live here;
// persistence and search concerns are handled by separate adapter layers.
package listing

import (
	"fmt"
	"strings"
	"time"

	"github.com/trustside/listing-sentinel/pkg/errors"
	"github.com/trustside/listing-sentinel/pkg/types/common"
)

// maxFieldLength bounds free-text fields so that a single malicious listing
// cannot blow up storage or embedding payloads.
const maxFieldLength = 10000

// Listing is a marketplace product listing: either a candidate submitted for
// analysis or a trusted reference stored in the corpus.
type Listing struct {
	// ID uniquely identifies the listing.  Generated on import when absent.
	ID string `json:"id"`

	// Title is the seller-facing product name.  Required.
	Title string `json:"title"`

	// Description is the seller's free-text product description.
	Description string `json:"description"`

	// Brand is the claimed brand name.  May be empty.
	Brand string `json:"brand"`

	// Price is the asking price in the marketplace currency.  A nil Price
	// means the listing did not state one; zero and negative values are kept
	// as-is because they are themselves evidence of a suspicious listing.
	Price *float64 `json:"price,omitempty"`

	// SourceURL points back to the original listing page.
	SourceURL string `json:"source_url,omitempty"`

	// Verified marks trusted reference listings that were manually reviewed.
	Verified bool `json:"verified"`

	// Embedding is the semantic vector for the listing text.  Populated by
	// the embedding adapter; references carry it into the similarity index.
	Embedding []float32 `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New constructs a Listing with a generated ID and creation timestamps.
func New(title, description, brand string, price *float64) *Listing {
	now := time.Now().UTC()
	return &Listing{
		ID:          common.GenerateID("lst"),
		Title:       title,
		Description: description,
		Brand:       brand,
		Price:       price,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// GenerateID produces a fresh listing identifier.
func GenerateID() string {
	return common.GenerateID("lst")
}

// Validate checks structural well-formedness of the listing.  Pricing
// anomalies are deliberately not rejected here: a free iPhone is a risk
// signal, not a malformed request.
func (l *Listing) Validate() error {
	if l == nil {
		return errors.InvalidInput("listing must not be nil")
	}
	if strings.TrimSpace(l.Title) == "" {
		return errors.InvalidInput("title must not be empty")
	}
	if len(l.Title) > maxFieldLength {
		return errors.InvalidInput(fmt.Sprintf("title exceeds %d characters", maxFieldLength))
	}
	if len(l.Description) > maxFieldLength {
		return errors.InvalidInput(fmt.Sprintf("description exceeds %d characters", maxFieldLength))
	}
	if len(l.Brand) > maxFieldLength {
		return errors.InvalidInput(fmt.Sprintf("brand exceeds %d characters", maxFieldLength))
	}
	return nil
}

// EmbeddingText renders the canonical text fed to the embedding adapter.
// The format is part of the corpus contract: references and candidates must
// be embedded from identical renderings for their similarities to be
// comparable.
func (l *Listing) EmbeddingText() string {
	return fmt.Sprintf("Title: %s. Description: %s. Brand: %s.", l.Title, l.Description, l.Brand)
}

// HasPrice reports whether the listing states a price.
func (l *Listing) HasPrice() bool {
	return l.Price != nil
}

// PriceValue returns the stated price, or 0 when absent.
func (l *Listing) PriceValue() float64 {
	if l.Price == nil {
		return 0
	}
	return *l.Price
}

// MarkVerified flags the listing as a manually reviewed reference.
func (l *Listing) MarkVerified() {
	l.Verified = true
	l.UpdatedAt = time.Now().UTC()
}

// NormalizedBrand returns the brand lowercased and trimmed for comparisons.
func (l *Listing) NormalizedBrand() string {
	return strings.ToLower(strings.TrimSpace(l.Brand))
}
