package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/gather/models"
	"github.com/use-agent/gather/search"
)

// maxBatchQueries caps one batch request.
const maxBatchQueries = 25

// batchConcurrency bounds the worker count: each worker runs one complete
// pipeline invocation in isolation, and each invocation may hold a rendered
// session.
const batchConcurrency = 3

// batchStore holds all in-flight and completed batch jobs.
var batchStore sync.Map

func init() {
	// Background goroutine to expire batch jobs older than 1 hour.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-1 * time.Hour).Unix()
			batchStore.Range(func(key, value any) bool {
				job := value.(*batchJob)
				if job.createdAt < cutoff {
					batchStore.Delete(key)
				}
				return true
			})
		}
	}()
}

type batchJob struct {
	mu        sync.Mutex
	id        string
	status    string
	total     int
	completed int
	results   []*models.SearchResponse
	createdAt int64
}

func (j *batchJob) snapshot() models.BatchStatusResponse {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]*models.SearchResponse, len(j.results))
	copy(out, j.results)
	return models.BatchStatusResponse{
		ID:        j.id,
		Status:    j.status,
		Completed: j.completed,
		Total:     j.total,
		Results:   out,
	}
}

// PostBatch returns a handler for POST /api/v1/batch/search.
// It validates the request, creates a batch job, and runs the queries in the
// background with a bounded worker count.
func PostBatch(p *search.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchSearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		if len(req.Queries) > maxBatchQueries {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "maximum 25 queries per batch",
				},
			})
			return
		}

		jobID := "batch-" + randomID()
		job := &batchJob{
			id:        jobID,
			status:    "processing",
			total:     len(req.Queries),
			results:   make([]*models.SearchResponse, len(req.Queries)),
			createdAt: time.Now().Unix(),
		}
		batchStore.Store(jobID, job)

		go runBatch(p, job, req)

		c.JSON(http.StatusOK, models.BatchSearchResponse{
			ID:     jobID,
			Status: "processing",
			Total:  len(req.Queries),
		})
	}
}

// GetBatch returns a handler for GET /api/v1/batch/:id.
func GetBatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("id")
		val, ok := batchStore.Load(jobID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "batch job not found",
				},
			})
			return
		}

		c.JSON(http.StatusOK, val.(*batchJob).snapshot())
	}
}

// runBatch runs every query through its own pipeline invocation, bounded by
// a semaphore. Invocations share no mutable state.
func runBatch(p *search.Pipeline, job *batchJob, req models.BatchSearchRequest) {
	sem := make(chan struct{}, batchConcurrency)
	var wg sync.WaitGroup

	for i, query := range req.Queries {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, q string) {
			defer wg.Done()
			defer func() { <-sem }()

			opts := models.SearchOptions{
				Query:      q,
				Region:     req.Region,
				SafeSearch: req.SafeSearch,
				TimeRange:  req.TimeRange,
				MaxResults: req.MaxResults,
				Filters:    req.Filters,
			}
			opts.Defaults()

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			results, err := p.Search(ctx, opts)
			cancel()

			resp := &models.SearchResponse{
				Success: err == nil,
				Query:   q,
				Results: results,
				Total:   len(results),
			}
			if err != nil {
				if searchErr, ok := err.(*models.SearchError); ok {
					resp.Error = searchErr.ToDetail()
				} else {
					resp.Error = &models.ErrorDetail{
						Code:    models.ErrCodeInternal,
						Message: err.Error(),
					}
				}
				slog.Warn("batch query failed", "job", job.id, "query", q, "error", err)
			}

			job.mu.Lock()
			job.results[idx] = resp
			job.completed++
			if job.completed == job.total {
				job.status = "completed"
			}
			job.mu.Unlock()
		}(i, query)
	}

	wg.Wait()
}

// randomID returns 8 random hex bytes for job identifiers.
func randomID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return hex.EncodeToString([]byte(time.Now().String()))[:16]
	}
	return hex.EncodeToString(b)
}
