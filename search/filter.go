package search

import (
	"strings"

	"github.com/use-agent/gather/models"
)

// ApplyFilters keeps a result only if its URL contains at least one include
// substring (when any are specified) and none of the exclude substrings.
func ApplyFilters(results []models.SearchResult, filters models.SearchFilters) []models.SearchResult {
	if len(filters.Include) == 0 && len(filters.Exclude) == 0 {
		return results
	}

	kept := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		if !matchesInclude(r.URL, filters.Include) {
			continue
		}
		if matchesAny(r.URL, filters.Exclude) {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

func matchesInclude(url string, include []string) bool {
	constrained := false
	for _, s := range include {
		if s == "" {
			continue
		}
		constrained = true
		if strings.Contains(url, s) {
			return true
		}
	}
	return !constrained
}

func matchesAny(url string, substrings []string) bool {
	for _, s := range substrings {
		if s != "" && strings.Contains(url, s) {
			return true
		}
	}
	return false
}

// followUpTemplates derive query variants by suffix or wrapping. This is a
// deliberate placeholder for a content-aware generator: the variants are
// deterministic and template-driven, nothing more.
var followUpTemplates = []string{
	"%s causes",
	"%s statistics",
	"%s examples",
	"%s latest news",
	"how does %s work",
}

// FollowUpQueries derives a fixed set of templated follow-up query variants
// from the original query.
func FollowUpQueries(query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	out := make([]string, 0, len(followUpTemplates))
	for _, tmpl := range followUpTemplates {
		out = append(out, strings.Replace(tmpl, "%s", query, 1))
	}
	return out
}
