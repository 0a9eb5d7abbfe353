// Package explain generates optional human-readable analysis prose through an
// LLM.  The prose is advisory only: score and tier are computed before the
// explainer runs and are never altered by its output.
package explain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/trustside/listing-sentinel/internal/config"
	"github.com/trustside/listing-sentinel/internal/domain/listing"
	"github.com/trustside/listing-sentinel/internal/engine/aggregate"
	"github.com/trustside/listing-sentinel/internal/infrastructure/monitoring/logging"
	"github.com/trustside/listing-sentinel/pkg/errors"
)

const systemPrompt = `You are a product-authenticity analyst for an online marketplace.
You receive a candidate listing, the risk signals a deterministic engine extracted
from it, and the most similar verified reference listings.

Explain the engine's findings to a marketplace investigator. Do not re-score the
listing; the score is final. Respond in JSON with these fields:
- summary: a short prose explanation of the risk assessment
- warnings: list of specific red flags observed
- recommendations: list of suggested next steps for the investigator`

const maxNeighborsInPrompt = 3

// Explainer renders analysis results into prose through an OpenAI-compatible
// chat model.
type Explainer struct {
	model       llms.Model
	temperature float64
	timeout     time.Duration
	log         logging.Logger
}

// New builds the explainer from configuration.  Returns (nil, nil) when the
// explanation layer is disabled, so callers can pass the result straight to
// the analyzer option.
func New(cfg *config.ExplainConfig, log logging.Logger) (*Explainer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.APIKey == "" {
		return nil, errors.InvalidParam("explain API key is required when explanation is enabled")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExplanationFailed, "failed to initialize explanation model")
	}

	return &Explainer{
		model:       model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		log:         log.Named("explainer"),
	}, nil
}

// Explain generates prose for a finished analysis.
func (e *Explainer) Explain(ctx context.Context, l *listing.Listing, res *aggregate.AnalysisResult) (*aggregate.Explanation, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	prompt := buildPrompt(l, res)
	response, err := llms.GenerateFromSinglePrompt(ctx, e.model, prompt,
		llms.WithTemperature(e.temperature))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExplanationFailed, "explanation request failed")
	}

	expl := parseResponse(response)
	if expl == nil {
		return nil, errors.New(errors.ErrCodeExplanationFailed, "explanation response had no usable content")
	}
	return expl, nil
}

func buildPrompt(l *listing.Listing, res *aggregate.AnalysisResult) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nCANDIDATE LISTING:\n")
	fmt.Fprintf(&b, "Title: %s\n", l.Title)
	fmt.Fprintf(&b, "Description: %s\n", l.Description)
	fmt.Fprintf(&b, "Brand: %s\n", l.Brand)
	if l.HasPrice() {
		fmt.Fprintf(&b, "Price: $%.2f\n", l.PriceValue())
	} else {
		b.WriteString("Price: not stated\n")
	}

	fmt.Fprintf(&b, "\nENGINE VERDICT:\nScore: %.3f\nTier: %s\n", res.Score, res.Tier)

	b.WriteString("\nEXTRACTED SIGNALS:\n")
	if len(res.Signals) == 0 {
		b.WriteString("(none; no suspicious patterns found)\n")
	}
	for _, s := range res.Signals {
		if s.Diagnostic {
			fmt.Fprintf(&b, "- [%s] %s: did not run (%s)\n", s.Category, s.Name, s.Evidence)
			continue
		}
		fmt.Fprintf(&b, "- [%s] %s (contribution %.2f): %s\n", s.Category, s.Name, s.Contribution, s.Evidence)
	}

	b.WriteString("\nSIMILAR VERIFIED LISTINGS:\n")
	if len(res.Neighbors) == 0 {
		b.WriteString("(no reference listings available)\n")
	}
	for i, n := range res.Neighbors {
		if i >= maxNeighborsInPrompt {
			break
		}
		fmt.Fprintf(&b, "%d. %s", i+1, n.Listing.Title)
		if n.Listing.Brand != "" {
			fmt.Fprintf(&b, " (brand: %s)", n.Listing.Brand)
		}
		if n.Listing.HasPrice() {
			fmt.Fprintf(&b, " at $%.2f", n.Listing.PriceValue())
		}
		fmt.Fprintf(&b, ", similarity %.2f\n", n.Similarity)
	}

	b.WriteString("\nJSON RESPONSE:\n")
	return b.String()
}

type explanationPayload struct {
	Summary         string   `json:"summary"`
	Warnings        []string `json:"warnings"`
	Recommendations []string `json:"recommendations"`
}

// parseResponse extracts the explanation from the model output.  Models do
// not reliably emit bare JSON, so the outermost brace pair is tried first and
// the raw text kept as a plain summary when decoding fails.
func parseResponse(response string) *aggregate.Explanation {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start >= 0 && end > start {
		var payload explanationPayload
		if err := json.Unmarshal([]byte(response[start:end+1]), &payload); err == nil && payload.Summary != "" {
			return &aggregate.Explanation{
				Summary:         payload.Summary,
				Warnings:        payload.Warnings,
				Recommendations: payload.Recommendations,
			}
		}
	}

	text := strings.TrimSpace(response)
	if text == "" {
		return nil
	}
	return &aggregate.Explanation{Summary: text}
}
