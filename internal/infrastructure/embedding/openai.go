package embedding

import (
	"context"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/trustside/listing-sentinel/internal/config"
	"github.com/trustside/listing-sentinel/pkg/errors"
)

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint.  Any server
// speaking the protocol works through the base URL override.
type OpenAIEmbedder struct {
	embedder *embeddings.EmbedderImpl
	dim      int
	timeout  time.Duration
}

// NewOpenAIEmbedder builds the production embedder from configuration.
func NewOpenAIEmbedder(cfg *config.EmbeddingConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.InvalidParam("embedding API key is required")
	}
	if cfg.Dimension < 1 {
		return nil, errors.InvalidParam("embedding dimension must be >= 1")
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEmbeddingUnavailable, "failed to initialize embedding client")
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEmbeddingUnavailable, "failed to initialize embedder")
	}

	return &OpenAIEmbedder{
		embedder: embedder,
		dim:      cfg.Dimension,
		timeout:  cfg.Timeout,
	}, nil
}

// Dimension returns the configured vector length.
func (o *OpenAIEmbedder) Dimension() int { return o.dim }

// Embed produces the semantic vector for text.  The provider must return
// vectors of the configured dimension; a mismatch indicates a model change
// and is surfaced as an error rather than silently corrupting the index.
func (o *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	vector, err := o.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEmbeddingFailed, "embedding request failed")
	}
	if len(vector) != o.dim {
		return nil, errors.New(errors.ErrCodeEmbeddingFailed,
			"embedding dimension mismatch between model and configuration")
	}
	return vector, nil
}

// FromConfig selects the embedder implementation named by the configuration.
func FromConfig(cfg *config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case config.EmbeddingProviderOpenAI:
		return NewOpenAIEmbedder(cfg)
	case config.EmbeddingProviderHash, "":
		return NewHashEmbedder(cfg.Dimension)
	default:
		return nil, errors.InvalidParam("unknown embedding provider: " + cfg.Provider)
	}
}

// Embedder mirrors the engine port so this package can be constructed without
// importing the engine.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
