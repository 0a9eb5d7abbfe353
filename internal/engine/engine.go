package engine

import (
	"context"
	"strings"
	"time"

	"github.com/trustside/listing-sentinel/internal/config"
	"github.com/trustside/listing-sentinel/internal/domain/listing"
	"github.com/trustside/listing-sentinel/internal/engine/aggregate"
	"github.com/trustside/listing-sentinel/internal/engine/index"
	"github.com/trustside/listing-sentinel/internal/engine/signal"
	"github.com/trustside/listing-sentinel/internal/infrastructure/monitoring/logging"
	"github.com/trustside/listing-sentinel/pkg/errors"
)

// ReferenceSink receives verified reference listings for similarity search.
// Satisfied by the in-memory index and the Milvus adapter.
type ReferenceSink interface {
	Upsert(ctx context.Context, l *listing.Listing) error
}

// Engine is the service facade: candidate analysis, reference ingestion, and
// corpus bootstrap.  The repository is optional; without one, references live
// only in the sink.
type Engine struct {
	analyzer *Analyzer
	embedder Embedder
	sink     ReferenceSink
	repo     listing.Repository
	metrics  MetricsRecorder
	log      logging.Logger
}

// EngineOption customises Engine construction.
type EngineOption func(*Engine)

// WithRepository attaches durable reference storage.
func WithRepository(r listing.Repository) EngineOption {
	return func(e *Engine) { e.repo = r }
}

// WithEngineLogger replaces the default logger.
func WithEngineLogger(l logging.Logger) EngineOption {
	return func(e *Engine) { e.log = l }
}

// WithEngineMetrics attaches the metrics recorder.
func WithEngineMetrics(m MetricsRecorder) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine builds the facade around an already-wired analyzer.
func NewEngine(analyzer *Analyzer, embedder Embedder, sink ReferenceSink, opts ...EngineOption) (*Engine, error) {
	if analyzer == nil {
		return nil, errors.InvalidParam("analyzer is required")
	}
	if embedder == nil {
		return nil, errors.InvalidParam("embedder is required")
	}
	if sink == nil {
		return nil, errors.InvalidParam("reference sink is required")
	}

	e := &Engine{
		analyzer: analyzer,
		embedder: embedder,
		sink:     sink,
		log:      logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.Named("engine")
	return e, nil
}

// Analyze scores one candidate listing against the reference corpus.
func (e *Engine) Analyze(ctx context.Context, l *listing.Listing) (*aggregate.AnalysisResult, error) {
	if l == nil {
		return nil, errors.InvalidInput("listing is required")
	}
	if l.ID == "" {
		l.ID = listing.GenerateID()
	}
	return e.analyzer.Analyze(ctx, l)
}

// ImportReference validates, embeds, and stores one verified reference
// listing.  The embedding is computed only when the caller did not provide
// one.  Persistence to the repository happens after the sink accepted the
// listing so the index never lags behind storage.
func (e *Engine) ImportReference(ctx context.Context, l *listing.Listing) (*listing.Listing, error) {
	if l == nil {
		return nil, errors.InvalidInput("listing is required")
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	if l.ID == "" {
		l.ID = listing.GenerateID()
	}
	l.MarkVerified()

	if len(l.Embedding) == 0 {
		vector, err := e.embedder.Embed(ctx, l.EmbeddingText())
		if err != nil {
			return nil, errors.EmbeddingUnavailable(err)
		}
		l.Embedding = vector
	}

	if err := e.sink.Upsert(ctx, l); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeListingImportFailed, "failed to index reference listing")
	}
	if e.repo != nil {
		if err := e.repo.Save(ctx, l); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeListingImportFailed, "failed to persist reference listing")
		}
	}

	e.log.Info("reference listing imported",
		logging.String("listing_id", l.ID),
		logging.String("brand", l.Brand))
	if e.metrics != nil {
		e.metrics.AddReferenceImport()
		e.refreshIndexSize(ctx)
	}
	return l, nil
}

// Bootstrap reloads the reference corpus from the repository into the sink.
// Called at startup so the in-memory index survives restarts.  Listings whose
// stored embedding no longer matches the configured dimension are re-embedded.
func (e *Engine) Bootstrap(ctx context.Context) (int, error) {
	if e.repo == nil {
		return 0, nil
	}
	started := time.Now()

	refs, err := e.repo.ListAll(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load reference corpus")
	}

	loaded := 0
	for _, ref := range refs {
		if len(ref.Embedding) != e.embedder.Dimension() {
			vector, err := e.embedder.Embed(ctx, ref.EmbeddingText())
			if err != nil {
				return loaded, errors.EmbeddingUnavailable(err)
			}
			ref.Embedding = vector
		}
		if err := e.sink.Upsert(ctx, ref); err != nil {
			e.log.Warn("skipping unindexable reference listing",
				logging.String("listing_id", ref.ID),
				logging.Err(err))
			continue
		}
		loaded++
	}

	e.log.Info("reference corpus bootstrapped",
		logging.Int("loaded", loaded),
		logging.Int("total", len(refs)),
		logging.Duration("took", time.Since(started)))
	if e.metrics != nil {
		e.refreshIndexSize(ctx)
	}
	return loaded, nil
}

// RecentReferences returns the most recently imported verified listings.
func (e *Engine) RecentReferences(ctx context.Context, limit int) ([]*listing.Listing, error) {
	if e.repo == nil {
		return nil, nil
	}
	if limit < 1 {
		limit = 20
	}
	return e.repo.RecentVerified(ctx, limit)
}

func (e *Engine) refreshIndexSize(ctx context.Context) {
	if e.repo == nil {
		if sized, ok := e.sink.(interface{ Len() int }); ok {
			e.metrics.SetIndexSize(sized.Len())
		}
		return
	}
	n, err := e.repo.Count(ctx)
	if err != nil {
		e.log.Warn("failed to count reference corpus", logging.Err(err))
		return
	}
	e.metrics.SetIndexSize(int(n))
}

// DefaultExtractors builds the standard extractor sets from configuration.
func DefaultExtractors(cfg *config.EngineConfig) ([]signal.Extractor, []signal.ComparativeExtractor) {
	expected := make(map[string]float64, len(cfg.ExpectedPrices))
	for brand, price := range cfg.ExpectedPrices {
		expected[strings.ToLower(brand)] = price
	}

	heuristics := []signal.Extractor{
		signal.NewPricePlausibility(cfg.PriceFloorFraction, expected),
		signal.NewBrandDistortion(cfg.KnownBrands),
		signal.NewDescriptionQuality(cfg.MinDescriptionLength),
	}
	comparatives := []signal.ComparativeExtractor{
		signal.NewPriceDeviation(cfg.PriceDeviationRatio),
		signal.NewBrandMismatch(),
		signal.NewSemanticDivergence(cfg.SimilarityFloor),
	}
	return heuristics, comparatives
}

// WeightsFromConfig maps the configured category weights into the aggregator.
func WeightsFromConfig(cfg *config.EngineConfig) aggregate.Weights {
	return aggregate.Weights{
		Price:       cfg.PriceWeight,
		Brand:       cfg.BrandWeight,
		Description: cfg.DescriptionWeight,
		Divergence:  cfg.DivergenceWeight,
	}
}

var _ ReferenceSink = (*index.Index)(nil)
