// Package signal implements risk-signal extraction for listing analysis.
// Heuristic extractors inspect a listing in isolation; comparative extractors
// weigh it against its nearest reference neighbors.  Every extractor emits at
// most one Signal per listing, with a contribution in [0, 1].
package signal

import (
	"context"

	"github.com/trustside/listing-sentinel/internal/domain/listing"
	"github.com/trustside/listing-sentinel/internal/engine/index"
)

// Category groups signals for weighting in the aggregator.
type Category string

const (
	CategoryPrice       Category = "price"
	CategoryBrand       Category = "brand"
	CategoryDescription Category = "description"
	CategoryDivergence  Category = "divergence"
)

// Signal is one piece of risk evidence extracted from a listing.
type Signal struct {
	// Name identifies the emitting extractor.
	Name string `json:"name"`

	// Category selects the aggregation weight applied to this signal.
	Category Category `json:"category"`

	// Contribution is the strength of the evidence in [0, 1].
	Contribution float64 `json:"contribution"`

	// Evidence is a human-readable account of what was observed.
	Evidence string `json:"evidence"`

	// Diagnostic marks a zero-contribution placeholder recorded when an
	// extractor failed.  Diagnostic signals never move the score; they exist
	// so operators can see which extractors did not run.
	Diagnostic bool `json:"diagnostic,omitempty"`
}

// Extractor inspects a listing in isolation.  A (nil, nil) return means the
// extractor found nothing suspicious.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, l *listing.Listing) (*Signal, error)
}

// ComparativeExtractor inspects a listing against its retrieved neighbors.
// A (nil, nil) return means the extractor found nothing suspicious.
type ComparativeExtractor interface {
	Name() string
	Extract(ctx context.Context, l *listing.Listing, neighbors []index.NeighborMatch) (*Signal, error)
}

// Diagnostic builds the zero-contribution placeholder recorded when the named
// extractor fails.  Failed extractors must never abort an analysis.
func Diagnostic(name string, category Category, reason string) *Signal {
	return &Signal{
		Name:         name,
		Category:     category,
		Contribution: 0,
		Evidence:     reason,
		Diagnostic:   true,
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
