package signal

import (
	"context"
	"fmt"
	"sort"

	"github.com/trustside/listing-sentinel/internal/domain/listing"
	"github.com/trustside/listing-sentinel/internal/engine/index"
)

// ─────────────────────────────────────────────────────────────────────────────
// Price deviation vs. neighbor median
// ─────────────────────────────────────────────────────────────────────────────

// PriceDeviation flags listings priced far below the median price of their
// nearest reference neighbors.  Neighbors without a stated price are ignored;
// with no priced neighbors or no candidate price the extractor stays silent.
type PriceDeviation struct {
	ratio float64
}

// NewPriceDeviation constructs the extractor.  ratio is the fraction of the
// neighbor median below which a listing is flagged.
func NewPriceDeviation(ratio float64) *PriceDeviation {
	return &PriceDeviation{ratio: ratio}
}

func (p *PriceDeviation) Name() string { return "price_deviation" }

func (p *PriceDeviation) Extract(_ context.Context, l *listing.Listing, neighbors []index.NeighborMatch) (*Signal, error) {
	if !l.HasPrice() || len(neighbors) == 0 {
		return nil, nil
	}

	med, ok := medianNeighborPrice(neighbors)
	if !ok || med <= 0 {
		return nil, nil
	}

	price := l.PriceValue()
	threshold := p.ratio * med
	if price >= threshold {
		return nil, nil
	}

	contribution := 1.0
	if price > 0 {
		contribution = clamp01(1 - price/threshold)
	}
	return &Signal{
		Name:         p.Name(),
		Category:     CategoryPrice,
		Contribution: contribution,
		Evidence: fmt.Sprintf("price %.2f is below %.0f%% of the neighbor median %.2f",
			price, p.ratio*100, med),
	}, nil
}

func medianNeighborPrice(neighbors []index.NeighborMatch) (float64, bool) {
	prices := make([]float64, 0, len(neighbors))
	for _, n := range neighbors {
		if n.Listing != nil && n.Listing.HasPrice() {
			prices = append(prices, n.Listing.PriceValue())
		}
	}
	if len(prices) == 0 {
		return 0, false
	}
	sort.Float64s(prices)
	mid := len(prices) / 2
	if len(prices)%2 == 1 {
		return prices[mid], true
	}
	return (prices[mid-1] + prices[mid]) / 2, true
}

// ─────────────────────────────────────────────────────────────────────────────
// Brand mismatch vs. similarity-weighted neighbor majority
// ─────────────────────────────────────────────────────────────────────────────

// BrandMismatch flags listings whose claimed brand disagrees with the
// similarity-weighted majority brand of their neighbors.  Negative
// similarities contribute no weight; listings or neighborhoods without brands
// yield no signal.
type BrandMismatch struct{}

func NewBrandMismatch() *BrandMismatch { return &BrandMismatch{} }

func (b *BrandMismatch) Name() string { return "brand_mismatch" }

func (b *BrandMismatch) Extract(_ context.Context, l *listing.Listing, neighbors []index.NeighborMatch) (*Signal, error) {
	brand := l.NormalizedBrand()
	if brand == "" || len(neighbors) == 0 {
		return nil, nil
	}

	weights := make(map[string]float64)
	var total float64
	for _, n := range neighbors {
		if n.Listing == nil {
			continue
		}
		nb := n.Listing.NormalizedBrand()
		if nb == "" {
			continue
		}
		w := n.Similarity
		if w <= 0 {
			continue
		}
		weights[nb] += w
		total += w
	}
	if total == 0 {
		return nil, nil
	}

	majority, majorityWeight := "", 0.0
	for nb, w := range weights {
		if w > majorityWeight {
			majority, majorityWeight = nb, w
		}
	}
	if majority == brand {
		return nil, nil
	}

	// Contribution is the weight share of neighbors that disagree with the
	// candidate's claimed brand.
	disagreeing := total - weights[brand]
	return &Signal{
		Name:         b.Name(),
		Category:     CategoryBrand,
		Contribution: clamp01(disagreeing / total),
		Evidence: fmt.Sprintf("claimed brand %q disagrees with neighbor majority brand %q (%.0f%% of similarity weight)",
			l.Brand, majority, 100*disagreeing/total),
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Semantic divergence
// ─────────────────────────────────────────────────────────────────────────────

// SemanticDivergence flags candidates whose best neighbor similarity falls
// below a floor: a listing that resembles nothing in the trusted corpus is
// itself suspicious.  With no neighbors at all the extractor stays silent and
// the analysis proceeds on heuristics alone.
type SemanticDivergence struct {
	floor float64
}

func NewSemanticDivergence(floor float64) *SemanticDivergence {
	return &SemanticDivergence{floor: floor}
}

func (s *SemanticDivergence) Name() string { return "semantic_divergence" }

func (s *SemanticDivergence) Extract(_ context.Context, _ *listing.Listing, neighbors []index.NeighborMatch) (*Signal, error) {
	if len(neighbors) == 0 || s.floor <= 0 {
		return nil, nil
	}

	top := neighbors[0].Similarity
	for _, n := range neighbors[1:] {
		if n.Similarity > top {
			top = n.Similarity
		}
	}
	if top >= s.floor {
		return nil, nil
	}
	if top < 0 {
		top = 0
	}

	return &Signal{
		Name:         s.Name(),
		Category:     CategoryDivergence,
		Contribution: clamp01((s.floor - top) / s.floor),
		Evidence: fmt.Sprintf("best neighbor similarity %.3f is below the %.2f floor",
			top, s.floor),
	}, nil
}
