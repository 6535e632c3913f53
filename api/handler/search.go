package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/gather/cache"
	"github.com/use-agent/gather/models"
	"github.com/use-agent/gather/search"
)

// Search returns a handler for POST /api/v1/search.
//
// Orchestration flow:
//  1. Parse & validate request, apply defaults.
//  2. Cache lookup (when max_age_ms is set).
//  3. Pipeline.Search → normalized, filtered results.
//  4. Optional follow-up query derivation.
//  5. Fill Timing, cache store, return 200.
func Search(p *search.Pipeline, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		var req models.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.SearchResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		opts := req.Options()

		if cc != nil && req.MaxAge > 0 {
			cacheKey := cache.Key(opts)
			if cached, hit := cc.Get(cacheKey, req.MaxAge); hit {
				// Copy before mutating; the cached entry is shared across
				// concurrent hits.
				hitResp := *cached
				hitResp.CacheStatus = "hit"
				hitResp.Timing = models.TimingInfo{
					TotalMs: time.Since(totalStart).Milliseconds(),
				}
				c.JSON(http.StatusOK, hitResp)
				return
			}
		}

		extractStart := time.Now()
		results, err := p.Search(c.Request.Context(), opts)
		extractionMs := time.Since(extractStart).Milliseconds()

		if err != nil {
			respondError(c, err, models.TimingInfo{
				TotalMs:      time.Since(totalStart).Milliseconds(),
				ExtractionMs: extractionMs,
			})
			return
		}

		resp := &models.SearchResponse{
			Success:   true,
			Query:     opts.Query,
			Results:   results,
			Total:     len(results),
			StagesRun: p.StageNames(),
			Timing: models.TimingInfo{
				TotalMs:      time.Since(totalStart).Milliseconds(),
				ExtractionMs: extractionMs,
			},
		}
		if req.FollowUp {
			resp.FollowUpQueries = search.FollowUpQueries(opts.Query)
		}

		if cc != nil && req.MaxAge > 0 {
			stored := *resp
			cc.Set(cache.Key(opts), &stored)
			resp.CacheStatus = "miss"
		}

		c.JSON(http.StatusOK, resp)
	}
}

// respondError maps a SearchError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error, timing models.TimingInfo) {
	searchErr, ok := err.(*models.SearchError)
	if !ok {
		searchErr = models.NewSearchError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(searchErr), models.SearchResponse{
		Success: false,
		Error:   searchErr.ToDetail(),
		Timing:  timing,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.SearchError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeFetchFailed, models.ErrCodeRenderFailed:
		return http.StatusBadGateway // 502
	case models.ErrCodeExtractionExhausted:
		return http.StatusNotFound // 404
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
