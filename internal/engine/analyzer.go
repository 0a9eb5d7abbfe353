// Package engine orchestrates listing analysis: embedding, neighbor search,
// signal extraction, and aggregation.  The Analyzer walks a fixed pipeline of
// states per request; the Engine facade adds reference import and corpus
// bootstrap on top of it.
package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/trustside/listing-sentinel/internal/domain/listing"
	"github.com/trustside/listing-sentinel/internal/engine/aggregate"
	"github.com/trustside/listing-sentinel/internal/engine/index"
	"github.com/trustside/listing-sentinel/internal/engine/signal"
	"github.com/trustside/listing-sentinel/internal/infrastructure/monitoring/logging"
	"github.com/trustside/listing-sentinel/pkg/errors"
)

// State names the analysis pipeline phases, logged at each transition.
type State string

const (
	StateIdle      State = "idle"
	StateEmbedding State = "embedding"
	StateSearching State = "searching"
	StateScoring   State = "scoring"
	StateDone      State = "done"
	StateFailed    State = "failed"
)

// Embedder produces the semantic vector for a rendered listing text.  The
// model behind it is a black box; the engine only requires determinism:
// identical text yields an identical vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// ExplanationGenerator produces optional human-readable prose for a finished
// result.  Failures are logged and swallowed; prose never affects the score.
type ExplanationGenerator interface {
	Explain(ctx context.Context, l *listing.Listing, res *aggregate.AnalysisResult) (*aggregate.Explanation, error)
}

// MetricsRecorder receives analysis outcomes for exposition.  Implemented by
// the Prometheus adapter; a nil recorder disables instrumentation.
type MetricsRecorder interface {
	ObserveAnalysis(tier string, duration time.Duration)
	AddReferenceImport()
	SetIndexSize(n int)
}

// Analyzer runs the per-listing analysis pipeline.
type Analyzer struct {
	embedder     Embedder
	searcher     index.Searcher
	heuristics   []signal.Extractor
	comparatives []signal.ComparativeExtractor
	aggregator   *aggregate.Aggregator
	explainer    ExplanationGenerator
	metrics      MetricsRecorder
	topK         int
	log          logging.Logger
}

// AnalyzerOption customises Analyzer construction.
type AnalyzerOption func(*Analyzer)

// WithExplainer attaches the optional explanation generator.
func WithExplainer(e ExplanationGenerator) AnalyzerOption {
	return func(a *Analyzer) { a.explainer = e }
}

// WithMetrics attaches the metrics recorder.
func WithMetrics(m MetricsRecorder) AnalyzerOption {
	return func(a *Analyzer) { a.metrics = m }
}

// WithLogger replaces the default logger.
func WithLogger(l logging.Logger) AnalyzerOption {
	return func(a *Analyzer) { a.log = l }
}

// WithTopK overrides the neighbor count retrieved per analysis.
func WithTopK(k int) AnalyzerOption {
	return func(a *Analyzer) {
		if k > 0 {
			a.topK = k
		}
	}
}

// NewAnalyzer wires the pipeline.  embedder and searcher are required; the
// extractor slices may be empty, in which case analysis degenerates to a
// zero score.
func NewAnalyzer(
	embedder Embedder,
	searcher index.Searcher,
	heuristics []signal.Extractor,
	comparatives []signal.ComparativeExtractor,
	aggregator *aggregate.Aggregator,
	opts ...AnalyzerOption,
) (*Analyzer, error) {
	if embedder == nil {
		return nil, errors.InvalidParam("embedder is required")
	}
	if searcher == nil {
		return nil, errors.InvalidParam("searcher is required")
	}
	if aggregator == nil {
		aggregator = aggregate.New(aggregate.DefaultWeights())
	}

	a := &Analyzer{
		embedder:     embedder,
		searcher:     searcher,
		heuristics:   heuristics,
		comparatives: comparatives,
		aggregator:   aggregator,
		topK:         5,
		log:          logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.Named("analyzer")
	return a, nil
}

// Analyze runs the full pipeline for one candidate listing.
//
// Fatal failures — malformed input, embedding provider down, index down —
// abort the analysis with a typed error.  Individual extractor failures are
// swallowed into zero-contribution diagnostic signals so that one broken
// heuristic can never block a verdict.
func (a *Analyzer) Analyze(ctx context.Context, l *listing.Listing) (*aggregate.AnalysisResult, error) {
	started := time.Now()
	state := StateIdle

	fail := func(err error) (*aggregate.AnalysisResult, error) {
		a.log.Error("analysis failed",
			logging.String("state", string(state)),
			logging.Err(err))
		return nil, err
	}

	if err := l.Validate(); err != nil {
		state = StateFailed
		return fail(err)
	}
	listingID := l.ID

	// ── Embedding ─────────────────────────────────────────────────────────────
	state = StateEmbedding
	a.log.Debug("state transition", logging.String("state", string(state)), logging.String("listing_id", listingID))

	vector, err := a.embedder.Embed(ctx, l.EmbeddingText())
	if err != nil {
		state = StateFailed
		return fail(errors.EmbeddingUnavailable(err))
	}

	// ── Neighbor search ───────────────────────────────────────────────────────
	state = StateSearching
	a.log.Debug("state transition", logging.String("state", string(state)), logging.String("listing_id", listingID))

	neighbors, err := a.searcher.Query(ctx, vector, a.topK)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeEmbeddingInvalid) {
			// Dimensionality mismatch is a caller problem, not an outage.
			state = StateFailed
			return fail(err)
		}
		state = StateFailed
		return fail(errors.IndexUnavailable(err))
	}

	// ── Scoring ───────────────────────────────────────────────────────────────
	state = StateScoring
	a.log.Debug("state transition",
		logging.String("state", string(state)),
		logging.String("listing_id", listingID),
		logging.Int("neighbors", len(neighbors)))

	signals := a.extractAll(ctx, l, neighbors)
	result := a.aggregator.Aggregate(signals)
	result.ListingID = listingID
	result.Neighbors = neighbors

	if a.explainer != nil {
		if expl, err := a.explainer.Explain(ctx, l, result); err != nil {
			a.log.Warn("explanation generation failed",
				logging.String("listing_id", listingID),
				logging.Err(err))
		} else {
			result.Explanation = expl
		}
	}

	state = StateDone
	elapsed := time.Since(started)
	a.log.Info("analysis completed",
		logging.String("listing_id", listingID),
		logging.Float64("score", result.Score),
		logging.String("tier", string(result.Tier)),
		logging.Int("signals", len(result.Signals)),
		logging.Duration("took", elapsed))

	if a.metrics != nil {
		a.metrics.ObserveAnalysis(string(result.Tier), elapsed)
	}
	return result, nil
}

// extractAll runs every extractor concurrently.  Each slot collects either
// the extractor's signal, nil for "nothing suspicious", or a diagnostic
// placeholder when the extractor errored or panicked.
func (a *Analyzer) extractAll(ctx context.Context, l *listing.Listing, neighbors []index.NeighborMatch) []*signal.Signal {
	slots := make([]*signal.Signal, len(a.heuristics)+len(a.comparatives))
	g, gctx := errgroup.WithContext(ctx)

	for i, ext := range a.heuristics {
		i, ext := i, ext
		g.Go(func() error {
			slots[i] = a.runGuarded(gctx, ext.Name(), heuristicCategory(ext), func(c context.Context) (*signal.Signal, error) {
				return ext.Extract(c, l)
			})
			return nil
		})
	}
	offset := len(a.heuristics)
	for i, ext := range a.comparatives {
		i, ext := i, ext
		g.Go(func() error {
			slots[offset+i] = a.runGuarded(gctx, ext.Name(), comparativeCategory(ext), func(c context.Context) (*signal.Signal, error) {
				return ext.Extract(c, l, neighbors)
			})
			return nil
		})
	}

	// Workers never return errors; Wait only synchronises.
	_ = g.Wait()

	out := slots[:0]
	for _, s := range slots {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// runGuarded executes one extractor, converting errors and panics into
// diagnostic signals.
func (a *Analyzer) runGuarded(ctx context.Context, name string, category signal.Category, fn func(context.Context) (*signal.Signal, error)) (out *signal.Signal) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("extractor panicked",
				logging.String("extractor", name),
				logging.Any("panic", r))
			out = signal.Diagnostic(name, category, fmt.Sprintf("extractor panicked: %v", r))
		}
	}()

	sig, err := fn(ctx)
	if err != nil {
		a.log.Warn("extractor failed",
			logging.String("extractor", name),
			logging.Err(err))
		return signal.Diagnostic(name, category, "extractor failed: "+err.Error())
	}
	return sig
}

// heuristicCategory recovers the category an extractor emits into, for
// diagnostic placeholders.  Unknown extractors default to description.
func heuristicCategory(e signal.Extractor) signal.Category {
	switch e.Name() {
	case "price_plausibility":
		return signal.CategoryPrice
	case "brand_distortion":
		return signal.CategoryBrand
	default:
		return signal.CategoryDescription
	}
}

func comparativeCategory(e signal.ComparativeExtractor) signal.Category {
	switch e.Name() {
	case "price_deviation":
		return signal.CategoryPrice
	case "brand_mismatch":
		return signal.CategoryBrand
	default:
		return signal.CategoryDivergence
	}
}
