package signal

import (
	"context"
	"fmt"
	"strings"

	"github.com/trustside/listing-sentinel/internal/domain/listing"
)

// ─────────────────────────────────────────────────────────────────────────────
// Price plausibility
// ─────────────────────────────────────────────────────────────────────────────

// PricePlausibility flags listings priced implausibly low for their brand.
// Zero and negative prices are treated as maximal evidence.  Listings without
// a stated price, or for brands without a known price point, yield no signal.
type PricePlausibility struct {
	floorFraction  float64
	expectedPrices map[string]float64 // lowercase brand → typical price
}

// NewPricePlausibility constructs the extractor.  floorFraction is the
// fraction of the expected price below which a listing is flagged.
func NewPricePlausibility(floorFraction float64, expectedPrices map[string]float64) *PricePlausibility {
	normalized := make(map[string]float64, len(expectedPrices))
	for brand, price := range expectedPrices {
		normalized[strings.ToLower(strings.TrimSpace(brand))] = price
	}
	return &PricePlausibility{floorFraction: floorFraction, expectedPrices: normalized}
}

func (p *PricePlausibility) Name() string { return "price_plausibility" }

func (p *PricePlausibility) Extract(_ context.Context, l *listing.Listing) (*Signal, error) {
	if !l.HasPrice() {
		return nil, nil
	}
	price := l.PriceValue()

	if price <= 0 {
		return &Signal{
			Name:         p.Name(),
			Category:     CategoryPrice,
			Contribution: 1.0,
			Evidence:     fmt.Sprintf("stated price %.2f is zero or negative", price),
		}, nil
	}

	expected, ok := p.expectedPrices[l.NormalizedBrand()]
	if !ok || expected <= 0 {
		return nil, nil
	}

	floor := p.floorFraction * expected
	if price >= floor {
		return nil, nil
	}

	return &Signal{
		Name:         p.Name(),
		Category:     CategoryPrice,
		Contribution: clamp01(1 - price/floor),
		Evidence: fmt.Sprintf("price %.2f is below %.0f%% of the expected %.2f for brand %q",
			price, p.floorFraction*100, expected, l.Brand),
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Brand distortion
// ─────────────────────────────────────────────────────────────────────────────

// minBrandLength is the shortest name considered for near-miss matching.
// Below this, edit distance 1 trips on unrelated short words.
const minBrandLength = 4

// BrandDistortion flags brand names that are a near-miss of a known brand:
// "Aple" for "Apple", "Guci" for "Gucci".  Exact matches are clean; distance
// 1 is strong evidence, distance 2 is weaker.  When the brand field is empty
// the title tokens are scanned instead.
type BrandDistortion struct {
	knownBrands []string // lowercased
}

func NewBrandDistortion(knownBrands []string) *BrandDistortion {
	lowered := make([]string, 0, len(knownBrands))
	for _, b := range knownBrands {
		b = strings.ToLower(strings.TrimSpace(b))
		if b != "" {
			lowered = append(lowered, b)
		}
	}
	return &BrandDistortion{knownBrands: lowered}
}

func (b *BrandDistortion) Name() string { return "brand_distortion" }

func (b *BrandDistortion) Extract(_ context.Context, l *listing.Listing) (*Signal, error) {
	candidates := []string{l.NormalizedBrand()}
	if candidates[0] == "" {
		candidates = tokenize(l.Title)
	}

	for _, cand := range candidates {
		if len([]rune(cand)) < minBrandLength {
			continue
		}
		dist, closest := b.closestBrand(cand)
		switch dist {
		case 0:
			// Exact match on a known brand: nothing suspicious.
			continue
		case 1:
			return &Signal{
				Name:         b.Name(),
				Category:     CategoryBrand,
				Contribution: 1.0,
				Evidence:     fmt.Sprintf("brand %q is one edit away from known brand %q", cand, closest),
			}, nil
		case 2:
			return &Signal{
				Name:         b.Name(),
				Category:     CategoryBrand,
				Contribution: 0.8,
				Evidence:     fmt.Sprintf("brand %q is two edits away from known brand %q", cand, closest),
			}, nil
		}
	}
	return nil, nil
}

// closestBrand returns the minimum edit distance from cand to any known brand
// of comparable length, with the matched brand name.
func (b *BrandDistortion) closestBrand(cand string) (int, string) {
	best, bestBrand := int(^uint(0)>>1), ""
	for _, known := range b.knownBrands {
		if len([]rune(known)) < minBrandLength {
			continue
		}
		if d := levenshtein(cand, known); d < best {
			best, bestBrand = d, known
		}
	}
	return best, bestBrand
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
	return fields
}

// ─────────────────────────────────────────────────────────────────────────────
// Description quality
// ─────────────────────────────────────────────────────────────────────────────

// hypeTerms are phrases that disproportionately appear in counterfeit
// listings.  Each occurrence adds to the contribution.
var hypeTerms = []string{
	"replica", "1:1", "aaa quality", "mirror quality", "100% real",
	"best quality", "cheapest", "guarantee", "clearance", "hurry",
	"limited stock", "no box",
}

// DescriptionQuality flags thin or hype-laden descriptions.  Contributions
// accumulate across observed defects and are capped at 1.
type DescriptionQuality struct {
	minLength int
}

func NewDescriptionQuality(minLength int) *DescriptionQuality {
	return &DescriptionQuality{minLength: minLength}
}

func (d *DescriptionQuality) Name() string { return "description_quality" }

func (d *DescriptionQuality) Extract(_ context.Context, l *listing.Listing) (*Signal, error) {
	desc := strings.TrimSpace(l.Description)
	lower := strings.ToLower(desc)

	var score float64
	var reasons []string

	if len([]rune(desc)) < d.minLength {
		score += 0.5
		reasons = append(reasons, fmt.Sprintf("description shorter than %d characters", d.minLength))
	}

	matched := 0
	for _, term := range hypeTerms {
		if strings.Contains(lower, term) {
			matched++
			reasons = append(reasons, fmt.Sprintf("contains hype term %q", term))
		}
	}
	score += 0.2 * float64(matched)

	if strings.Count(desc, "!") >= 3 {
		score += 0.2
		reasons = append(reasons, "excessive exclamation marks")
	}

	if score == 0 {
		return nil, nil
	}
	return &Signal{
		Name:         d.Name(),
		Category:     CategoryDescription,
		Contribution: clamp01(score),
		Evidence:     strings.Join(reasons, "; "),
	}, nil
}
