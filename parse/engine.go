// Package parse extracts search results from raw result-page markup.
//
// It runs an engine-specific selector pass first and tops up with a generic
// link-heuristic pass when the engine markup under-produces (partially
// rendered or anti-scraping-mangled pages).
package parse

import (
	"net/url"
	"strings"

	"github.com/use-agent/gather/models"
)

// Result-page endpoints. The html endpoint serves server-rendered markup
// suitable for static parsing; the main endpoint needs JS rendering.
const (
	staticEndpoint   = "https://html.duckduckgo.com/html/"
	renderedEndpoint = "https://duckduckgo.com/"
)

// SearchURL builds the static (server-rendered) results-page URL for a query.
func SearchURL(opts models.SearchOptions) string {
	return buildURL(staticEndpoint, opts)
}

// RenderedSearchURL builds the JS-rendered results-page URL for a query.
func RenderedSearchURL(opts models.SearchOptions) string {
	return buildURL(renderedEndpoint, opts)
}

func buildURL(endpoint string, opts models.SearchOptions) string {
	q := url.Values{}
	q.Set("q", opts.Query)
	if opts.Region != "" {
		q.Set("kl", opts.Region)
	}
	if opts.SafeSearch {
		q.Set("kp", "1")
	} else {
		q.Set("kp", "-2")
	}
	if opts.TimeRange != "" {
		q.Set("df", opts.TimeRange)
	}
	return endpoint + "?" + q.Encode()
}

// ResolveRedirect unwraps the engine's redirect-URL wrapper
// (…duckduckgo.com/l/?uddg=<encoded destination>…) and returns the real
// destination URL. Non-wrapper URLs pass through unchanged, with
// scheme-relative URLs upgraded to https.
func ResolveRedirect(raw string) string {
	if raw == "" {
		return raw
	}
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	host := strings.ToLower(u.Hostname())
	isEngine := host == "duckduckgo.com" || strings.HasSuffix(host, ".duckduckgo.com")

	// Relative wrapper links ("/l/?uddg=…") have no host at all.
	// Query().Get already percent-decodes the parameter exactly once;
	// decoding again would corrupt destinations with their own escapes.
	if (isEngine || u.Host == "") && strings.HasPrefix(u.Path, "/l/") {
		if dest := u.Query().Get("uddg"); dest != "" {
			return dest
		}
	}

	return raw
}

// IsEngineInternal reports whether a URL points at the engine's own
// search/asset infrastructure rather than a result destination. The
// capture-analysis fallback uses it to skip obviously-non-result URLs.
func IsEngineInternal(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case host == "duckduckgo.com", strings.HasSuffix(host, ".duckduckgo.com"):
		return true
	case strings.HasSuffix(host, "duck.co"):
		return true
	}
	return false
}
