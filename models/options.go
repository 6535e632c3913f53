package models

// DefaultMaxResults is the result quota applied when the caller does not
// specify one.
const DefaultMaxResults = 10

// SearchFilters restricts results by URL substring.
type SearchFilters struct {
	// Include keeps a result only if its URL contains at least one of
	// these substrings. Empty means no include restriction.
	Include []string `json:"include,omitempty"`

	// Exclude drops a result if its URL contains any of these substrings.
	Exclude []string `json:"exclude,omitempty"`
}

// SearchOptions configures one pipeline invocation. The options are
// immutable for the duration of the invocation; stages receive them by value.
type SearchOptions struct {
	// Query is the search query. Required.
	Query string `json:"query"`

	// Region is the engine region code (e.g. "us-en").
	Region string `json:"region,omitempty"`

	// SafeSearch toggles the engine's safe-search mode.
	SafeSearch bool `json:"safe_search,omitempty"`

	// TimeRange is the engine time filter ("d", "w", "m", "y").
	TimeRange string `json:"time_range,omitempty"`

	// MaxResults is the result quota. Default: 10.
	MaxResults int `json:"max_results,omitempty"`

	// Filters are URL substring include/exclude filters applied after
	// normalization.
	Filters SearchFilters `json:"filters,omitempty"`
}

// Defaults applies default values to unset fields.
func (o *SearchOptions) Defaults() {
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}
}
