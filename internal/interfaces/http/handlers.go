package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trustside/listing-sentinel/internal/domain/listing"
	"github.com/trustside/listing-sentinel/internal/engine/aggregate"
	"github.com/trustside/listing-sentinel/internal/infrastructure/monitoring/logging"
	"github.com/trustside/listing-sentinel/pkg/errors"
	"github.com/trustside/listing-sentinel/pkg/types/common"
)

// ResultStore is the result-cache surface the handlers need.  Matches the
// redis result store.
type ResultStore interface {
	SaveResult(ctx context.Context, res *aggregate.AnalysisResult) error
	CachedResult(ctx context.Context, listingID string) (*aggregate.AnalysisResult, error)
	History(ctx context.Context, limit int) ([]*aggregate.AnalysisResult, error)
}

// Importer is the engine surface the handlers need.
type Importer interface {
	Analyze(ctx context.Context, l *listing.Listing) (*aggregate.AnalysisResult, error)
	ImportReference(ctx context.Context, l *listing.Listing) (*listing.Listing, error)
	RecentReferences(ctx context.Context, limit int) ([]*listing.Listing, error)
}

type handler struct {
	engine     Importer
	results    ResultStore
	components map[string]HealthChecker
	log        logging.Logger
}

func newHandler(engine Importer, results ResultStore, components map[string]HealthChecker, log logging.Logger) *handler {
	return &handler{engine: engine, results: results, components: components, log: log}
}

// listingRequest is the candidate or reference payload.
type listingRequest struct {
	ID          string   `json:"id"`
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Brand       string   `json:"brand"`
	Price       *float64 `json:"price"`
	SourceURL   string   `json:"source_url"`
}

func (r *listingRequest) toListing() *listing.Listing {
	l := listing.New(r.Title, r.Description, r.Brand, r.Price)
	if r.ID != "" {
		l.ID = r.ID
	}
	l.SourceURL = r.SourceURL
	return l
}

// analyze scores a candidate listing.
func (h *handler) analyze(c *gin.Context) {
	var req listingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return
	}

	res, err := h.engine.Analyze(c.Request.Context(), req.toListing())
	if err != nil {
		respondError(c, err)
		return
	}

	if h.results != nil {
		if err := h.results.SaveResult(c.Request.Context(), res); err != nil {
			h.log.Warn("failed to cache analysis result",
				logging.String("listing_id", res.ListingID),
				logging.Err(err))
		}
	}
	respond(c, http.StatusOK, res)
}

// importReference stores a verified reference listing.
func (h *handler) importReference(c *gin.Context) {
	var req listingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return
	}

	stored, err := h.engine.ImportReference(c.Request.Context(), req.toListing())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, stored)
}

// recentReferences lists the most recently imported reference listings.
func (h *handler) recentReferences(c *gin.Context) {
	limit := queryInt(c, "limit", 20)
	refs, err := h.engine.RecentReferences(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if refs == nil {
		refs = []*listing.Listing{}
	}
	respond(c, http.StatusOK, refs)
}

// history returns past analysis results, newest first.
func (h *handler) history(c *gin.Context) {
	if h.results == nil {
		respond(c, http.StatusOK, []*aggregate.AnalysisResult{})
		return
	}

	limit := queryInt(c, "limit", 20)
	results, err := h.results.History(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if results == nil {
		results = []*aggregate.AnalysisResult{}
	}
	respond(c, http.StatusOK, results)
}

// health reports overall and per-component availability.
func (h *handler) health(c *gin.Context) {
	overall := common.HealthUp
	components := make([]common.ComponentHealth, 0, len(h.components))

	for name, checker := range h.components {
		started := time.Now()
		status := common.HealthUp
		message := ""
		if err := checker.HealthCheck(c.Request.Context()); err != nil {
			status = common.HealthDown
			overall = common.HealthDegraded
			message = err.Error()
		}
		components = append(components, common.ComponentHealth{
			Name:    name,
			Status:  status,
			Latency: time.Since(started),
			Message: message,
		})
	}

	code := http.StatusOK
	if overall != common.HealthUp {
		code = http.StatusServiceUnavailable
	}
	respond(c, code, gin.H{"status": overall, "components": components})
}

func queryInt(c *gin.Context, name string, fallback int) int {
	if v := c.Query(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func respond[T any](c *gin.Context, code int, data T) {
	body := common.NewSuccessResponse(data)
	body.RequestID = c.GetString(string(common.ContextKeyRequestID))
	c.JSON(code, body)
}

func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	body := common.NewErrorResponse(string(code), err.Error())
	body.RequestID = c.GetString(string(common.ContextKeyRequestID))
	c.JSON(errors.HTTPStatusForCode(code), body)
}
