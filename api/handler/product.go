package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/cardgrab/cache"
	"github.com/use-agent/cardgrab/models"
)

// ProductExtractor runs the marketplace adapter for a URL.
type ProductExtractor interface {
	ExtractSite(ctx context.Context, url string, site models.Site) (*models.ProductRecord, error)
}

// Product returns a handler for POST /api/v1/product.
//
// Flow:
//  1. Parse and validate the request, resolve the marketplace.
//  2. Serve from cache when max_age allows.
//  3. Extract through the worker pool.
//  4. Store in cache and respond.
func Product(ex ProductExtractor, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()
		timing := func() models.TimingInfo {
			return models.TimingInfo{TotalMs: time.Since(totalStart).Milliseconds()}
		}

		// ── 1. Parse request ────────────────────────────────────────
		var req models.ProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err), timing())
			return
		}
		site, ok := req.ResolveSite()
		if !ok {
			msg := fmt.Sprintf("no adapter for %q", req.URL)
			if req.Site != "" {
				msg = fmt.Sprintf("unknown site %q", req.Site)
			}
			respondError(c, models.NewScrapeError(models.ErrCodeUnsupported, msg, nil), timing())
			return
		}

		// ── 2. Cache lookup ─────────────────────────────────────────
		cacheKey := cache.Key(site, req.URL)
		if cc != nil && req.MaxAge > 0 {
			if rec, hit := cc.Get(cacheKey, req.MaxAge); hit {
				c.JSON(http.StatusOK, models.ProductResponse{
					Success:     true,
					Product:     rec,
					Timing:      timing(),
					CacheStatus: "hit",
				})
				return
			}
		}

		// ── 3. Extract ──────────────────────────────────────────────
		rec, err := ex.ExtractSite(c.Request.Context(), req.URL, site)
		if err != nil {
			respondError(c, err, timing())
			return
		}

		// ── 4. Cache store and respond ──────────────────────────────
		resp := models.ProductResponse{Success: true, Product: rec}
		if cc != nil && req.MaxAge > 0 {
			cc.Set(cacheKey, rec)
			resp.CacheStatus = "miss"
		}
		resp.Timing = timing()
		c.JSON(http.StatusOK, resp)
	}
}

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error, timing models.TimingInfo) {
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(scrapeErr), models.ProductResponse{
		Success: false,
		Error:   scrapeErr.ToDetail(),
		Timing:  timing,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeBrowserCrash:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeUnsupported:
		return http.StatusUnprocessableEntity // 422
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
