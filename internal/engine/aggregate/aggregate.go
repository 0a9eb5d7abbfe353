// Package aggregate turns extracted risk signals into a single bounded score
// and a discrete risk tier.  Scoring is fully deterministic: identical
// signals always produce identical results.
package aggregate

import (
	"sort"
	"time"

	"github.com/trustside/listing-sentinel/internal/engine/index"
	"github.com/trustside/listing-sentinel/internal/engine/signal"
)

// Tier is the discrete risk classification derived from the score.
type Tier string

const (
	TierLow      Tier = "low"
	TierModerate Tier = "moderate"
	TierElevated Tier = "elevated"
	TierHigh     Tier = "high"
	TierCritical Tier = "critical"
)

// Tier boundaries.  Each boundary is inclusive on the lower side: a score of
// exactly 0.30 classifies as moderate, not low.
const (
	moderateFloor = 0.30
	elevatedFloor = 0.50
	highFloor     = 0.70
	criticalFloor = 0.85
)

// TierForScore maps a clamped score to its tier.
func TierForScore(score float64) Tier {
	switch {
	case score >= criticalFloor:
		return TierCritical
	case score >= highFloor:
		return TierHigh
	case score >= elevatedFloor:
		return TierElevated
	case score >= moderateFloor:
		return TierModerate
	default:
		return TierLow
	}
}

// Weights assigns the aggregation weight per signal category.  The weights
// deliberately sum to at most 1 and are never renormalized: when a category
// produced no evidence, its share of the score is simply absent.
type Weights struct {
	Price       float64 `json:"price"`
	Brand       float64 `json:"brand"`
	Description float64 `json:"description"`
	Divergence  float64 `json:"divergence"`
}

// DefaultWeights returns the standard weighting.
func DefaultWeights() Weights {
	return Weights{
		Price:       0.35,
		Brand:       0.30,
		Description: 0.15,
		Divergence:  0.20,
	}
}

func (w Weights) forCategory(c signal.Category) float64 {
	switch c {
	case signal.CategoryPrice:
		return w.Price
	case signal.CategoryBrand:
		return w.Brand
	case signal.CategoryDescription:
		return w.Description
	case signal.CategoryDivergence:
		return w.Divergence
	default:
		return 0
	}
}

// Explanation is optional LLM-generated prose attached to a result.  It never
// influences the deterministic score.
type Explanation struct {
	Summary         string   `json:"summary"`
	Warnings        []string `json:"warnings,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// AnalysisResult is the complete outcome of analyzing one listing.
type AnalysisResult struct {
	ListingID string `json:"listing_id"`

	// Score is the aggregated risk score in [0, 1].
	Score float64 `json:"score"`

	// Tier is the discrete classification of Score.
	Tier Tier `json:"tier"`

	// Signals holds every emitted signal, strongest contribution first.
	// Diagnostic placeholders from failed extractors are included.
	Signals []signal.Signal `json:"signals"`

	// Neighbors is the evidence neighborhood the comparative signals were
	// computed against.
	Neighbors []index.NeighborMatch `json:"neighbors,omitempty"`

	// Explanation is optional generated prose.  May be nil.
	Explanation *Explanation `json:"explanation,omitempty"`

	AnalyzedAt time.Time `json:"analyzed_at"`
}

// Aggregator combines signals into an AnalysisResult using fixed weights.
type Aggregator struct {
	weights Weights
}

// New constructs an Aggregator.  Zero-valued weights fall back to defaults.
func New(w Weights) *Aggregator {
	if w == (Weights{}) {
		w = DefaultWeights()
	}
	return &Aggregator{weights: w}
}

// Aggregate scores the given signals.  Per category, the strongest
// contribution wins; the score is the weight-scaled sum over categories,
// clamped to [0, 1].  No signals at all produce a zero score and the low
// tier.  Diagnostic signals are carried through but contribute nothing.
func (a *Aggregator) Aggregate(signals []*signal.Signal) *AnalysisResult {
	kept := make([]signal.Signal, 0, len(signals))
	strongest := make(map[signal.Category]float64)

	for _, s := range signals {
		if s == nil {
			continue
		}
		kept = append(kept, *s)
		if s.Diagnostic {
			continue
		}
		c := clamp01(s.Contribution)
		if c > strongest[s.Category] {
			strongest[s.Category] = c
		}
	}

	var score float64
	for category, contribution := range strongest {
		score += a.weights.forCategory(category) * contribution
	}
	score = clamp01(score)

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Contribution > kept[j].Contribution
	})

	return &AnalysisResult{
		Score:      score,
		Tier:       TierForScore(score),
		Signals:    kept,
		AnalyzedAt: time.Now().UTC(),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
