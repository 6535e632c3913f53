package capture

import (
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/use-agent/gather/models"
)

// minTextLength is the minimum readability TextContent length for the
// extraction to be considered valid. Below it we assume readability choked
// on the markup and fall back to a tag-stripping tokenizer walk.
const minTextLength = 50

// blockTags are elements whose boundaries emit line breaks during the
// tokenizer walk, so the flattened text keeps the page's block structure.
// The analyzer splits on blank-line runs; sibling blocks produce exactly
// that shape.
var blockTags = map[string]struct{}{
	"p": {}, "div": {}, "li": {}, "ul": {}, "ol": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"tr": {}, "table": {}, "article": {}, "section": {},
	"header": {}, "footer": {}, "blockquote": {}, "pre": {},
}

// FromHTML builds a PageCapture from raw markup. Readability extracts the
// visible text; when it fails or extracts too little (result pages are not
// articles, so it often does) a tokenizer walk flattens the document instead.
// Link count comes from a plain anchor scan.
func FromHTML(rawHTML, sourceURL string) models.PageCapture {
	linkCount := 0
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML)); err == nil {
		linkCount = doc.Find("a[href]").Length()
	}

	text := readableText(rawHTML, sourceURL)
	if text == "" {
		text = flattenText(rawHTML)
	}

	return models.PageCapture{
		TextContent: text,
		LinkCount:   linkCount,
	}
}

func readableText(rawHTML, sourceURL string) string {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		return ""
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Debug("readability: capture text extraction failed", "url", sourceURL, "error", err)
		return ""
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) < minTextLength {
		return ""
	}
	return text
}

// flattenText walks the markup token by token, dropping script/style/noscript
// content and emitting a newline at each block-element boundary.
func flattenText(rawHTML string) string {
	tok := html.NewTokenizer(strings.NewReader(rawHTML))
	var b strings.Builder
	skipDepth := 0

	for {
		switch tok.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.StartTagToken:
			name, _ := tok.TagName()
			tag := string(name)
			switch tag {
			case "script", "style", "noscript":
				skipDepth++
			case "br":
				b.WriteString("\n")
			default:
				if _, block := blockTags[tag]; block {
					b.WriteString("\n")
				}
			}
		case html.EndTagToken:
			name, _ := tok.TagName()
			tag := string(name)
			switch tag {
			case "script", "style", "noscript":
				if skipDepth > 0 {
					skipDepth--
				}
			default:
				if _, block := blockTags[tag]; block {
					b.WriteString("\n")
				}
			}
		case html.SelfClosingTagToken:
			if name, _ := tok.TagName(); string(name) == "br" {
				b.WriteString("\n")
			}
		case html.TextToken:
			if skipDepth == 0 {
				if t := strings.TrimSpace(string(tok.Text())); t != "" {
					b.WriteString(t)
					b.WriteString(" ")
				}
			}
		}
	}
}
