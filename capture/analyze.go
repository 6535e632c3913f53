// Package capture re-derives search results from previously captured page
// text. It is the last-resort extraction source, used when both static
// parsing and rendered extraction under-produce; its heuristics are
// deliberately permissive and lean on the downstream normalizer.
package capture

import (
	"regexp"
	"strings"

	"github.com/use-agent/gather/models"
	"github.com/use-agent/gather/normalize"
	"github.com/use-agent/gather/parse"
)

// minBlockLen is the minimum size for a structured text block to be worth
// mining.
const minBlockLen = 20

// minStructuredBlocks is the block count under which the numbered-pattern
// heuristic kicks in.
const minStructuredBlocks = 3

const (
	titleContextLen       = 150
	descriptionContextLen = 300
)

// likelyResultsLinkCount is the link-density threshold above which a capture
// is probably a results page. Advisory only: it gates nothing today.
const likelyResultsLinkCount = 30

var (
	reURL       = regexp.MustCompile(`https?://[^\s<>"'\)\]]+`)
	reSeparator = regexp.MustCompile(`\n\s*\n|\n\s*(?:[-=_*]{3,}|[•▪‣·])\s*`)
	reNumbered  = regexp.MustCompile(`(?m)^\s*\d{1,2}\.\s+`)
	reAssetPath = regexp.MustCompile(`\.(?:png|jpe?g|gif|svg|webp|ico|css|js|woff2?|ttf)(?:\?|$)`)
)

// Analyze mines a captured page for search results using three escalating
// heuristics: structured block splitting, numbered-pattern splitting, and a
// raw URL-context scan. Each tops up the accumulator until maxResults is
// reached or all heuristics are exhausted. The capture is read-only input.
func Analyze(capture models.PageCapture, maxResults int) []models.SearchResult {
	if maxResults <= 0 {
		maxResults = models.DefaultMaxResults
	}
	text := capture.TextContent
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var results []models.SearchResult
	seen := make(map[string]struct{})

	blocks := splitBlocks(text)
	results = appendBlockResults(results, seen, blocks, maxResults)

	if len(blocks) < minStructuredBlocks && len(results) < maxResults {
		results = appendBlockResults(results, seen, splitNumbered(text), maxResults)
	}

	if len(results) < maxResults {
		results = appendURLContextResults(results, seen, text, maxResults)
	}

	return results
}

// LikelyResultsPage reports whether the capture's link density suggests a
// search results page. Advisory: it produces no results by itself.
func LikelyResultsPage(capture models.PageCapture) bool {
	return capture.LinkCount >= likelyResultsLinkCount
}

// splitBlocks splits captured text on common visual separators (blank-line
// runs, rule characters, bullet glyphs) and keeps substantial blocks.
func splitBlocks(text string) []string {
	raw := reSeparator.Split(text, -1)
	blocks := make([]string, 0, len(raw))
	for _, b := range raw {
		b = strings.TrimSpace(b)
		if len(b) > minBlockLen {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// splitNumbered slices the text into windows around "N. " prefixed lines.
func splitNumbered(text string) []string {
	locs := reNumbered.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	blocks := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		block := strings.TrimSpace(text[loc[0]:end])
		if len(block) > minBlockLen {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

// appendBlockResults extracts one result per block: the first absolute URL,
// the preceding line(s) as title, the remainder as description.
func appendBlockResults(results []models.SearchResult, seen map[string]struct{}, blocks []string, maxResults int) []models.SearchResult {
	for _, block := range blocks {
		if len(results) >= maxResults {
			break
		}

		loc := reURL.FindStringIndex(block)
		if loc == nil {
			continue
		}
		rawURL := trimURL(block[loc[0]:loc[1]])
		if skipURL(rawURL, seen) {
			continue
		}

		title := lastLine(block[:loc[0]])
		description := strings.TrimSpace(block[loc[1]:])
		if title == "" {
			// Block may lead with the URL; use trailing text as title material.
			title = firstLine(description)
		}

		seen[rawURL] = struct{}{}
		results = append(results, models.SearchResult{
			Title:       title,
			URL:         rawURL,
			Description: description,
			Provider:    normalize.Provider(rawURL),
		})
	}
	return results
}

// appendURLContextResults is the most permissive heuristic: every absolute
// URL in the text becomes a candidate, with surrounding text as title and
// description.
func appendURLContextResults(results []models.SearchResult, seen map[string]struct{}, text string, maxResults int) []models.SearchResult {
	for _, loc := range reURL.FindAllStringIndex(text, -1) {
		if len(results) >= maxResults {
			break
		}

		rawURL := trimURL(text[loc[0]:loc[1]])
		if skipURL(rawURL, seen) {
			continue
		}

		start := loc[0] - titleContextLen
		if start < 0 {
			start = 0
		}
		title := lastLine(text[start:loc[0]])

		end := loc[1] + descriptionContextLen
		if end > len(text) {
			end = len(text)
		}
		description := firstLine(text[loc[1]:end])

		seen[rawURL] = struct{}{}
		results = append(results, models.SearchResult{
			Title:       title, // empty titles are synthesized from the URL path downstream
			URL:         rawURL,
			Description: description,
			Provider:    normalize.Provider(rawURL),
		})
	}
	return results
}

// skipURL filters duplicates and obviously-non-result URLs: the engine's own
// search/asset paths and static asset files.
func skipURL(rawURL string, seen map[string]struct{}) bool {
	if _, dup := seen[rawURL]; dup {
		return true
	}
	if parse.IsEngineInternal(rawURL) {
		return true
	}
	return reAssetPath.MatchString(strings.ToLower(rawURL))
}

// trimURL strips punctuation that text-flow attached to the end of the URL.
func trimURL(raw string) string {
	return strings.TrimRight(raw, ".,;:!?")
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

func firstLine(s string) string {
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
