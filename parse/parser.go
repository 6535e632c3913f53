package parse

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/use-agent/gather/models"
	"github.com/use-agent/gather/normalize"
)

// minAnchorTitleLen is the anchor-text length below which the generic pass
// synthesizes a title from nearby heading or paragraph text.
const minAnchorTitleLen = 10

// Selector candidate lists are ordered: the first match inside a container
// wins. Precompiled once so every Parse call reuses them.
var (
	containerMatcher = cascadia.MustCompile(`div.result, div.web-result, div.results_links, article[data-testid="result"]`)
	adMatcher        = cascadia.MustCompile(`.result--ad, .result--ad--small, .badge--ad, [data-testid="ad"]`)

	titleMatchers = compileAll(
		`h2.result__title a.result__a`,
		`a.result__a`,
		`a[data-testid="result-title-a"]`,
		`h2 a`,
		`h3 a`,
	)
	snippetMatchers = compileAll(
		`a.result__snippet`,
		`.result__snippet`,
		`[data-result="snippet"]`,
		`div.snippet`,
	)
	iconMatchers = compileAll(
		`img.result__icon__img`,
		`img.favicon`,
	)
	dateMatchers = compileAll(
		`.result__timestamp`,
		`span.timestamp`,
		`time`,
		`[data-testid="result-extras-date"]`,
	)

	excludedRegionMatcher = cascadia.MustCompile(`nav, header, footer, aside, .nav, .navbar, .menu, .header, .footer, .sidebar`)
	blockMatcher          = cascadia.MustCompile(`div, li, article, section, td`)
	headingMatcher        = cascadia.MustCompile(`h1, h2, h3, h4`)
	paragraphMatcher      = cascadia.MustCompile(`p`)
)

func compileAll(selectors ...string) []cascadia.Selector {
	out := make([]cascadia.Selector, len(selectors))
	for i, s := range selectors {
		out[i] = cascadia.MustCompile(s)
	}
	return out
}

// Parse extracts up to maxResults results from raw result-page markup.
//
// The engine-specific pass runs first; when it under-produces — partially
// rendered markup, layout experiments, bot-wall interstitials — a generic
// link-heuristic pass tops up the set. Both passes merge by URL identity,
// first-seen wins.
func Parse(markup string, maxResults int) ([]models.SearchResult, error) {
	if maxResults <= 0 {
		maxResults = models.DefaultMaxResults
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, models.NewSearchError(models.ErrCodeInternal, "parse result page markup", err)
	}

	results, containers := enginePass(doc, maxResults)

	if len(results) < maxResults {
		fallback, fallbackContainers := genericPass(doc, maxResults)
		results, containers = mergeByURL(results, containers, fallback, fallbackContainers, maxResults)
		slog.Debug("static parse used generic fallback",
			"engine", len(containers), "merged", len(results))
	}

	enhanceDates(results, containers)
	return results, nil
}

// enginePass iterates engine result containers, skipping recognized
// ad/sponsored containers, and extracts one candidate per container.
// It returns each result's source container so the metadata-enhancement
// step can look around it afterwards.
func enginePass(doc *goquery.Document, maxResults int) ([]models.SearchResult, []*goquery.Selection) {
	var results []models.SearchResult
	var containers []*goquery.Selection

	doc.FindMatcher(containerMatcher).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.IsMatcher(adMatcher) || s.FindMatcher(adMatcher).Length() > 0 {
			return true
		}

		titleSel := firstMatch(s, titleMatchers)
		if titleSel == nil {
			return true
		}

		href, _ := titleSel.Attr("href")
		resolved := ResolveRedirect(href)
		if resolved == "" || IsEngineInternal(resolved) {
			return true
		}

		r := models.SearchResult{
			Title:    strings.TrimSpace(titleSel.Text()),
			URL:      resolved,
			Provider: normalize.Provider(resolved),
		}
		if snippetSel := firstMatch(s, snippetMatchers); snippetSel != nil {
			r.Description = strings.TrimSpace(snippetSel.Text())
		}
		if iconSel := firstMatch(s, iconMatchers); iconSel != nil {
			if src, ok := iconSel.Attr("src"); ok {
				if strings.HasPrefix(src, "//") {
					src = "https:" + src
				}
				r.Icon = src
			}
		}

		results = append(results, r)
		containers = append(containers, s)
		return len(results) < maxResults
	})

	return results, containers
}

// genericPass scans all anchors outside navigation/header/footer regions and
// synthesizes results from them. It is deliberately permissive: the
// normalizer downstream cleans up whatever it produces.
func genericPass(doc *goquery.Document, maxResults int) ([]models.SearchResult, []*goquery.Selection) {
	var results []models.SearchResult
	var containers []*goquery.Selection

	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if a.ParentsMatcher(excludedRegionMatcher).Length() > 0 {
			return true
		}
		if a.ParentsMatcher(adMatcher).Length() > 0 {
			return true
		}

		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return true
		}

		resolved := ResolveRedirect(href)
		if !strings.HasPrefix(resolved, "http://") && !strings.HasPrefix(resolved, "https://") {
			return true
		}
		if IsEngineInternal(resolved) {
			return true
		}

		block := a.ClosestMatcher(blockMatcher)

		title := strings.TrimSpace(a.Text())
		if len(title) < minAnchorTitleLen {
			title = synthesizeTitle(a, block, title)
		}
		if title == "" {
			return true
		}

		r := models.SearchResult{
			Title:    title,
			URL:      resolved,
			Provider: normalize.Provider(resolved),
		}
		if block.Length() > 0 {
			if p := block.FindMatcher(paragraphMatcher).First(); p.Length() > 0 {
				r.Description = strings.TrimSpace(p.Text())
			}
		}

		results = append(results, r)
		if block.Length() > 0 {
			containers = append(containers, block)
		} else {
			containers = append(containers, a)
		}
		return len(results) < maxResults
	})

	return results, containers
}

// synthesizeTitle builds a title for a too-short anchor from the nearest
// heading in the anchor's block, a title attribute, or the start of nearby
// paragraph text.
func synthesizeTitle(a, block *goquery.Selection, anchorText string) string {
	if block.Length() > 0 {
		if h := block.FindMatcher(headingMatcher).First(); h.Length() > 0 {
			if t := strings.TrimSpace(h.Text()); t != "" {
				return t
			}
		}
	}
	if attr, ok := a.Attr("title"); ok {
		if t := strings.TrimSpace(attr); t != "" {
			return t
		}
	}
	if block.Length() > 0 {
		if p := block.FindMatcher(paragraphMatcher).First(); p.Length() > 0 {
			text := strings.TrimSpace(p.Text())
			if len(text) >= minAnchorTitleLen {
				if len(text) > 80 {
					text = text[:80]
				}
				return text
			}
		}
	}
	return anchorText
}

// mergeByURL appends extras onto base, skipping URLs already present.
// First-seen wins; output is capped at maxResults.
func mergeByURL(base []models.SearchResult, baseContainers []*goquery.Selection,
	extras []models.SearchResult, extraContainers []*goquery.Selection,
	maxResults int) ([]models.SearchResult, []*goquery.Selection) {

	seen := make(map[string]struct{}, len(base))
	for _, r := range base {
		seen[r.URL] = struct{}{}
	}

	for i, r := range extras {
		if len(base) >= maxResults {
			break
		}
		if _, dup := seen[r.URL]; dup {
			continue
		}
		seen[r.URL] = struct{}{}
		base = append(base, r)
		baseContainers = append(baseContainers, extraContainers[i])
	}

	return base, baseContainers
}

// enhanceDates attempts, per result, to locate a date element near the
// result's container and attach it. Best-effort: absence is fine.
func enhanceDates(results []models.SearchResult, containers []*goquery.Selection) {
	for i := range results {
		if results[i].Date != "" || i >= len(containers) {
			continue
		}
		if dateSel := firstMatch(containers[i], dateMatchers); dateSel != nil {
			if dt, ok := dateSel.Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
				results[i].Date = strings.TrimSpace(dt)
				continue
			}
			results[i].Date = strings.TrimSpace(dateSel.Text())
		}
	}
}

// firstMatch returns the first element matching any of the ordered candidate
// selectors, or nil when none match.
func firstMatch(s *goquery.Selection, matchers []cascadia.Selector) *goquery.Selection {
	for _, m := range matchers {
		if found := s.FindMatcher(m).First(); found.Length() > 0 {
			return found
		}
	}
	return nil
}
