package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustside/listing-sentinel/internal/config"
	"github.com/trustside/listing-sentinel/internal/domain/listing"
	"github.com/trustside/listing-sentinel/internal/engine/aggregate"
	"github.com/trustside/listing-sentinel/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockEngine struct {
	analyzeFn func(ctx context.Context, l *listing.Listing) (*aggregate.AnalysisResult, error)
	importFn  func(ctx context.Context, l *listing.Listing) (*listing.Listing, error)
	recentFn  func(ctx context.Context, limit int) ([]*listing.Listing, error)
}

func (m *mockEngine) Analyze(ctx context.Context, l *listing.Listing) (*aggregate.AnalysisResult, error) {
	return m.analyzeFn(ctx, l)
}

func (m *mockEngine) ImportReference(ctx context.Context, l *listing.Listing) (*listing.Listing, error) {
	return m.importFn(ctx, l)
}

func (m *mockEngine) RecentReferences(ctx context.Context, limit int) ([]*listing.Listing, error) {
	if m.recentFn != nil {
		return m.recentFn(ctx, limit)
	}
	return nil, nil
}

type mockResults struct {
	saved     []*aggregate.AnalysisResult
	historyFn func(ctx context.Context, limit int) ([]*aggregate.AnalysisResult, error)
}

func (m *mockResults) SaveResult(_ context.Context, res *aggregate.AnalysisResult) error {
	m.saved = append(m.saved, res)
	return nil
}

func (m *mockResults) CachedResult(context.Context, string) (*aggregate.AnalysisResult, error) {
	return nil, nil
}

func (m *mockResults) History(ctx context.Context, limit int) ([]*aggregate.AnalysisResult, error) {
	if m.historyFn != nil {
		return m.historyFn(ctx, limit)
	}
	return nil, nil
}

type healthFunc func(ctx context.Context) error

func (f healthFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func newTestServer(deps ServerDeps) *Server {
	return NewServer(config.ServerConfig{Port: 0, Mode: gin.TestMode}, deps)
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeEndpoint(t *testing.T) {
	t.Parallel()

	eng := &mockEngine{
		analyzeFn: func(_ context.Context, l *listing.Listing) (*aggregate.AnalysisResult, error) {
			return &aggregate.AnalysisResult{
				ListingID:  l.ID,
				Score:      0.72,
				Tier:       aggregate.TierHigh,
				AnalyzedAt: time.Now().UTC(),
			}, nil
		},
	}
	results := &mockResults{}
	s := newTestServer(ServerDeps{Engine: eng, ResultStore: results})

	rec := doRequest(s, http.MethodPost, "/api/v1/analyze",
		`{"title": "Aple iPhone 15 Pro", "brand": "Aple", "price": 99}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Score float64 `json:"score"`
			Tier  string  `json:"tier"`
		} `json:"data"`
		RequestID string `json:"request_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, 0.72, body.Data.Score)
	assert.Equal(t, "high", body.Data.Tier)
	assert.NotEmpty(t, body.RequestID)
	assert.Len(t, results.saved, 1)
}

func TestAnalyzeEndpoint_MissingTitle(t *testing.T) {
	t.Parallel()

	s := newTestServer(ServerDeps{Engine: &mockEngine{}})
	rec := doRequest(s, http.MethodPost, "/api/v1/analyze", `{"brand": "Apple"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeEndpoint_EmbeddingOutageMapsTo503(t *testing.T) {
	t.Parallel()

	eng := &mockEngine{
		analyzeFn: func(context.Context, *listing.Listing) (*aggregate.AnalysisResult, error) {
			return nil, errors.EmbeddingUnavailable(fmt.Errorf("connection refused"))
		},
	}
	s := newTestServer(ServerDeps{Engine: eng})

	rec := doRequest(s, http.MethodPost, "/api/v1/analyze", `{"title": "Apple iPhone 15"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, string(errors.ErrCodeEmbeddingUnavailable), body.Error.Code)
}

func TestImportReferenceEndpoint(t *testing.T) {
	t.Parallel()

	eng := &mockEngine{
		importFn: func(_ context.Context, l *listing.Listing) (*listing.Listing, error) {
			l.MarkVerified()
			return l, nil
		},
	}
	s := newTestServer(ServerDeps{Engine: eng})

	rec := doRequest(s, http.MethodPost, "/api/v1/references",
		`{"title": "Apple iPhone 15 Pro Max", "brand": "Apple", "price": 1199}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Data struct {
			ID       string `json:"id"`
			Verified bool   `json:"verified"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Data.ID)
	assert.True(t, body.Data.Verified)
}

func TestRecentReferencesEndpoint(t *testing.T) {
	t.Parallel()

	var gotLimit int
	eng := &mockEngine{
		recentFn: func(_ context.Context, limit int) ([]*listing.Listing, error) {
			gotLimit = limit
			return []*listing.Listing{listing.New("Apple iPhone 15", "", "Apple", nil)}, nil
		},
	}
	s := newTestServer(ServerDeps{Engine: eng})

	rec := doRequest(s, http.MethodGet, "/api/v1/references/recent?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, gotLimit)
}

func TestHistoryEndpoint(t *testing.T) {
	t.Parallel()

	results := &mockResults{
		historyFn: func(_ context.Context, limit int) ([]*aggregate.AnalysisResult, error) {
			return []*aggregate.AnalysisResult{
				{ListingID: "lst-1", Score: 0.9, Tier: aggregate.TierCritical},
			}, nil
		},
	}
	s := newTestServer(ServerDeps{Engine: &mockEngine{}, ResultStore: results})

	rec := doRequest(s, http.MethodGet, "/api/v1/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lst-1")
}

func TestHistoryEndpoint_NoStore(t *testing.T) {
	t.Parallel()

	s := newTestServer(ServerDeps{Engine: &mockEngine{}})
	rec := doRequest(s, http.MethodGet, "/api/v1/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	s := newTestServer(ServerDeps{
		Engine: &mockEngine{},
		Components: map[string]HealthChecker{
			"postgres": healthFunc(func(context.Context) error { return nil }),
		},
	})

	rec := doRequest(s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"up"`)
}

func TestHealthEndpoint_DegradedComponent(t *testing.T) {
	t.Parallel()

	s := newTestServer(ServerDeps{
		Engine: &mockEngine{},
		Components: map[string]HealthChecker{
			"redis": healthFunc(func(context.Context) error { return fmt.Errorf("connection refused") }),
		},
	})

	rec := doRequest(s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
}

func TestRequestIDPropagation(t *testing.T) {
	t.Parallel()

	s := newTestServer(ServerDeps{Engine: &mockEngine{}})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-fixed-42")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-fixed-42", rec.Header().Get(requestIDHeader))
	assert.Contains(t, rec.Body.String(), "req-fixed-42")
}
