package models

// SearchRequest is the payload for POST /api/v1/search.
type SearchRequest struct {
	// Query is the search query. Required.
	Query string `json:"query" binding:"required,min=1"`

	// Region is the engine region code, e.g. "us-en".
	Region string `json:"region,omitempty"`

	// SafeSearch toggles the engine's safe-search mode. Default: false.
	SafeSearch bool `json:"safe_search,omitempty"`

	// TimeRange restricts results by recency: "d", "w", "m", or "y".
	TimeRange string `json:"time_range,omitempty" binding:"omitempty,oneof=d w m y"`

	// MaxResults is the result quota. Default: 10. Max: 50.
	MaxResults int `json:"max_results,omitempty" binding:"omitempty,min=1,max=50"`

	// Filters are URL substring include/exclude filters.
	Filters SearchFilters `json:"filters,omitempty"`

	// FollowUp requests templated follow-up query suggestions in the response.
	FollowUp bool `json:"follow_up,omitempty"`

	// MaxAge is the maximum acceptable cache age in milliseconds.
	// 0 (default) disables cache lookup for this request.
	MaxAge int `json:"max_age_ms,omitempty" binding:"omitempty,min=0"`
}

// Options converts the API request into pipeline options.
func (r *SearchRequest) Options() SearchOptions {
	opts := SearchOptions{
		Query:      r.Query,
		Region:     r.Region,
		SafeSearch: r.SafeSearch,
		TimeRange:  r.TimeRange,
		MaxResults: r.MaxResults,
		Filters:    r.Filters,
	}
	opts.Defaults()
	return opts
}

// BatchSearchRequest is the payload for POST /api/v1/batch/search.
type BatchSearchRequest struct {
	// Queries is the list of independent queries to run. Required.
	Queries []string `json:"queries" binding:"required,min=1"`

	// Region, SafeSearch, TimeRange, MaxResults and Filters apply to
	// every query in the batch.
	Region     string        `json:"region,omitempty"`
	SafeSearch bool          `json:"safe_search,omitempty"`
	TimeRange  string        `json:"time_range,omitempty" binding:"omitempty,oneof=d w m y"`
	MaxResults int           `json:"max_results,omitempty" binding:"omitempty,min=1,max=50"`
	Filters    SearchFilters `json:"filters,omitempty"`
}
