package client

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Listing is a candidate or reference listing on the wire.
type Listing struct {
	ID          string   `json:"id,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Brand       string   `json:"brand,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	SourceURL   string   `json:"source_url,omitempty"`
	Verified    bool     `json:"verified,omitempty"`
}

// Signal is one piece of extracted risk evidence.
type Signal struct {
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Contribution float64 `json:"contribution"`
	Evidence     string  `json:"evidence"`
	Diagnostic   bool    `json:"diagnostic,omitempty"`
}

// Neighbor is one similar reference listing.
type Neighbor struct {
	Listing    *Listing `json:"listing"`
	Similarity float64  `json:"similarity"`
	Rank       int      `json:"rank"`
}

// Explanation is optional LLM-generated prose.
type Explanation struct {
	Summary         string   `json:"summary"`
	Warnings        []string `json:"warnings,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// AnalysisResult is the engine's verdict for one listing.
type AnalysisResult struct {
	ListingID   string       `json:"listing_id"`
	Score       float64      `json:"score"`
	Tier        string       `json:"tier"`
	Signals     []Signal     `json:"signals"`
	Neighbors   []Neighbor   `json:"neighbors"`
	Explanation *Explanation `json:"explanation,omitempty"`
	AnalyzedAt  time.Time    `json:"analyzed_at"`
}

// Analyze scores a candidate listing.
func (c *Client) Analyze(ctx context.Context, l *Listing) (*AnalysisResult, error) {
	res, err := doJSON[*AnalysisResult](ctx, c, http.MethodPost, "/api/v1/analyze", l)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ImportReference stores a verified reference listing.
func (c *Client) ImportReference(ctx context.Context, l *Listing) (*Listing, error) {
	return doJSON[*Listing](ctx, c, http.MethodPost, "/api/v1/references", l)
}

// RecentReferences lists the most recently imported reference listings.
func (c *Client) RecentReferences(ctx context.Context, limit int) ([]*Listing, error) {
	return doJSON[[]*Listing](ctx, c, http.MethodGet, fmt.Sprintf("/api/v1/references/recent?limit=%d", limit), nil)
}

// History returns past analysis results, newest first.
func (c *Client) History(ctx context.Context, limit int) ([]*AnalysisResult, error) {
	return doJSON[[]*AnalysisResult](ctx, c, http.MethodGet, fmt.Sprintf("/api/v1/history?limit=%d", limit), nil)
}
