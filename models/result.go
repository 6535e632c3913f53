package models

// SearchResult is one extracted search-result candidate as it moves through
// the pipeline. Identity for deduplication purposes is the normalized URL
// (tracking parameters and near-empty fragments stripped), not the raw URL.
type SearchResult struct {
	// Title is the result headline. Never empty after normalization.
	Title string `json:"title"`

	// URL is the destination URL. After normalization it always parses
	// as an absolute URL.
	URL string `json:"url"`

	// Description is the result snippet. Never empty after normalization —
	// a synthesized placeholder is substituted when the source had none.
	Description string `json:"description"`

	// Icon is the favicon URL, when the engine exposed one.
	Icon string `json:"icon,omitempty"`

	// Provider is the display label derived from the destination host
	// (e.g. "example.com").
	Provider string `json:"provider,omitempty"`

	// Date is a display-normalized date string, not a strict timestamp.
	Date string `json:"date,omitempty"`
}

// PageCapture is a previously recorded page snapshot produced by the capture
// subsystem. The capture-analysis fallback reads it; it is never mutated.
type PageCapture struct {
	// TextContent is the page's visible text.
	TextContent string `json:"text_content"`

	// LinkCount is the number of anchors seen on the page.
	LinkCount int `json:"link_count"`

	// ScreenshotPath is where a screenshot was saved, if one was taken.
	ScreenshotPath string `json:"screenshot_path,omitempty"`
}
