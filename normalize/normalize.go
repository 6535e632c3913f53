// Package normalize cleans, deduplicates and truncates extracted search
// results. Normalization is idempotent: running it on its own output
// produces the same set.
package normalize

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/use-agent/gather/models"
)

const (
	maxTitleLen       = 100
	maxDescriptionLen = 300
	minDescriptionLen = 10
)

// trackingParams is the fixed list of query parameters stripped during URL
// normalization. Parameters with a "utm_" prefix are stripped regardless.
var trackingParams = map[string]struct{}{
	"gclid":   {},
	"fbclid":  {},
	"msclkid": {},
	"yclid":   {},
	"dclid":   {},
	"mc_cid":  {},
	"mc_eid":  {},
	"igshid":  {},
	"spm":     {},
	"ref_src": {},
	"_hsenc":  {},
	"_hsmi":   {},
}

// ctaPhrases is call-to-action boilerplate removed from descriptions.
var ctaPhrases = []string{
	"click here to learn more",
	"click here to read more",
	"click here",
	"read more »",
	"read more...",
	"read more",
	"learn more »",
	"learn more",
	"find out more",
	"sign up now",
	"subscribe now",
	"sign up today",
}

var (
	reTitlePrefix   = regexp.MustCompile(`(?i)^\s*search\s+results?\s*[:\-]\s*`)
	reTitleIndex    = regexp.MustCompile(`(?i)[\s\-–|]*(?:result\s*#?\d+|\(\d+\)|#\d+)\s*$`)
	reWhitespace    = regexp.MustCompile(`\s+`)
	reSentenceSplit = regexp.MustCompile(`[.!?]`)
)

// Normalize runs the full clean → dedup → truncate pass. Entries without a
// parseable absolute URL are dropped; duplicate normalized URLs are merged
// keeping the richer record; output preserves input relative order among
// survivors and never exceeds maxResults.
func Normalize(results []models.SearchResult, maxResults int) []models.SearchResult {
	if maxResults <= 0 {
		maxResults = models.DefaultMaxResults
	}

	type slot struct {
		result models.SearchResult
		order  int
	}
	byURL := make(map[string]*slot, len(results))
	order := 0

	for _, r := range results {
		if r.Title == "" && r.URL == "" {
			continue
		}

		normURL := URL(r.URL)
		if normURL == "" {
			continue
		}

		r.URL = normURL
		r.Title = Title(r.Title)
		if r.Title == "" {
			r.Title = titleFromURL(normURL)
		}
		r.Description = Description(r.Description, r.Title)
		if r.Provider == "" {
			r.Provider = Provider(normURL)
		}
		r.Date = Date(r.Date)

		existing, ok := byURL[normURL]
		if !ok {
			byURL[normURL] = &slot{result: r, order: order}
			order++
			continue
		}
		existing.result = richer(existing.result, r)
	}

	out := make([]models.SearchResult, order)
	for _, s := range byURL {
		out[s.order] = s.result
	}
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}

// richer picks the candidate with the longer title, or on a tie the longer
// description. The incumbent wins exact ties so ordering stays stable.
func richer(a, b models.SearchResult) models.SearchResult {
	if len(b.Title) > len(a.Title) {
		return mergeInto(b, a)
	}
	if len(b.Title) == len(a.Title) && len(b.Description) > len(a.Description) {
		return mergeInto(b, a)
	}
	return mergeInto(a, b)
}

// mergeInto keeps winner's fields but backfills optional metadata the loser had.
func mergeInto(winner, loser models.SearchResult) models.SearchResult {
	if winner.Icon == "" {
		winner.Icon = loser.Icon
	}
	if winner.Date == "" {
		winner.Date = loser.Date
	}
	return winner
}

// Title cleans a result title: strips redundant "search result:" prefixes
// and trailing result-index annotations, truncates over 100 chars with an
// ellipsis, and capitalizes the first letter.
func Title(s string) string {
	s = reWhitespace.ReplaceAllString(strings.TrimSpace(s), " ")
	s = reTitlePrefix.ReplaceAllString(s, "")
	s = reTitleIndex.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	runes := []rune(s)
	if len(runes) > maxTitleLen {
		s = string(runes[:maxTitleLen-3]) + "..."
	}

	runes = []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// Description cleans a result snippet. When the snippet is absent, too
// short, or identical to the title, a placeholder is synthesized instead.
func Description(desc, title string) string {
	desc = normalizeChars(desc)
	desc = stripCTA(desc)
	desc = reWhitespace.ReplaceAllString(strings.TrimSpace(desc), " ")

	if utf8.RuneCountInString(desc) < minDescriptionLen || strings.EqualFold(desc, title) {
		return "Information about " + title + "."
	}

	if utf8.RuneCountInString(desc) > maxDescriptionLen {
		desc = truncateAtSentence(desc, maxDescriptionLen)
	}

	if !strings.ContainsAny(desc[len(desc)-1:], ".!?") {
		desc += "."
	}
	return desc
}

// normalizeChars replaces typographic characters with plain ASCII
// equivalents: ellipsis, smart quotes, and em/en dashes.
func normalizeChars(s string) string {
	replacer := strings.NewReplacer(
		"…", "...",
		"“", `"`,
		"”", `"`,
		"‘", "'",
		"’", "'",
		"—", "-",
		"–", "-",
		" ", " ",
	)
	return replacer.Replace(s)
}

// reCTA matches any ctaPhrases entry case-insensitively. Alternation keeps
// the slice order, so longer phrases win over their prefixes.
var reCTA = func() *regexp.Regexp {
	quoted := make([]string, len(ctaPhrases))
	for i, p := range ctaPhrases {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)`)
}()

func stripCTA(s string) string {
	return reCTA.ReplaceAllString(s, "")
}

// truncateAtSentence cuts s to at most limit runes, preferring the last
// sentence boundary past the halfway point; otherwise cuts hard with an
// ellipsis. Slicing happens on rune boundaries so multibyte text survives
// intact.
func truncateAtSentence(s string, limit int) string {
	head := string([]rune(s)[:limit])
	locs := reSentenceSplit.FindAllStringIndex(head, -1)
	for i := len(locs) - 1; i >= 0; i-- {
		if end := locs[i][1]; end > len(head)/2 {
			return strings.TrimSpace(head[:end])
		}
	}
	return strings.TrimSpace(string([]rune(head)[:limit-3])) + "..."
}

// URL normalizes a result URL for use as dedup identity: tracking query
// parameters are stripped, near-empty fragments dropped, and an empty path
// canonicalized to "/". Returns "" when the input does not parse as an
// absolute http(s) URL.
func URL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}

	q := u.Query()
	for param := range q {
		lower := strings.ToLower(param)
		if strings.HasPrefix(lower, "utm_") {
			q.Del(param)
			continue
		}
		if _, tracked := trackingParams[lower]; tracked {
			q.Del(param)
		}
	}
	u.RawQuery = q.Encode()

	if len(u.Fragment) <= 1 {
		u.Fragment = ""
	}
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}

// Provider derives the display domain label from a URL ("www." stripped).
func Provider(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// Date display-normalizes a date string. It is not a strict timestamp:
// engine pages emit anything from "2024-01-02" to "3 days ago", so only
// whitespace and stray separators are tidied.
func Date(s string) string {
	s = reWhitespace.ReplaceAllString(strings.TrimSpace(s), " ")
	s = strings.Trim(s, "-–|· ")
	return s
}

// titleFromURL synthesizes a title from the last meaningful URL path
// segment, falling back to the host.
func titleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		if seg == "" {
			continue
		}
		seg = strings.TrimSuffix(seg, ".html")
		seg = strings.TrimSuffix(seg, ".htm")
		seg = strings.NewReplacer("-", " ", "_", " ", "+", " ").Replace(seg)
		seg = strings.TrimSpace(seg)
		if len(seg) > 2 {
			return Title(seg)
		}
	}
	return Title(strings.TrimPrefix(strings.ToLower(u.Hostname()), "www."))
}
