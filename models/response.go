package models

// SearchResponse is the response for POST /api/v1/search.
type SearchResponse struct {
	// Success indicates whether the search produced at least one result.
	Success bool `json:"success"`

	// Query echoes the searched query.
	Query string `json:"query"`

	// Results is the normalized, deduplicated result set in extraction order.
	Results []SearchResult `json:"results"`

	// Total is len(Results), for convenience.
	Total int `json:"total"`

	// FollowUpQueries contains templated query variants when requested.
	FollowUpQueries []string `json:"follow_up_queries,omitempty"`

	// StagesRun lists the pipeline stages that executed, in order.
	StagesRun []string `json:"stages_run,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// ExtractionMs is the time spent acquiring and extracting results
	// (all fallback stages combined, normalization included).
	ExtractionMs int64 `json:"extraction_ms"`
}

// BatchSearchResponse is the response for POST /api/v1/batch/search.
type BatchSearchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// BatchStatusResponse is the response for GET /api/v1/batch/:id.
type BatchStatusResponse struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	Completed int               `json:"completed"`
	Total     int               `json:"total"`
	Results   []*SearchResponse `json:"results"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the rendered-session pool.
type PoolStats struct {
	MaxSessions    int `json:"max_sessions"`
	ActiveSessions int `json:"active_sessions"`
}
