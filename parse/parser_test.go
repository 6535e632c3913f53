package parse

import (
	"fmt"
	"strings"
	"testing"
)

const engineMarkup = `<!DOCTYPE html>
<html><body>
<div id="links" class="results">
  <div class="result results_links results_links_deep web-result">
    <h2 class="result__title">
      <a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fa&amp;rut=abc">Example Page A</a>
    </h2>
    <a class="result__snippet" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fa">Snippet for page A.</a>
    <img class="result__icon__img" src="//external-content.duckduckgo.com/ip3/example.com.ico">
    <span class="result__timestamp">2024-05-01</span>
  </div>
  <div class="result result--ad results_links web-result">
    <h2 class="result__title">
      <a rel="nofollow" class="result__a" href="https://ads.example.net/click">Sponsored Thing</a>
    </h2>
  </div>
  <div class="result results_links web-result">
    <h2 class="result__title">
      <a rel="nofollow" class="result__a" href="https://example.org/b">Example Page B</a>
    </h2>
    <a class="result__snippet" href="https://example.org/b">Snippet for page B.</a>
  </div>
</div>
</body></html>`

func TestParse_EnginePass(t *testing.T) {
	results, err := Parse(engineMarkup, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("len = %d, want 2 (ad container skipped)", len(results))
	}

	first := results[0]
	if first.Title != "Example Page A" {
		t.Errorf("title = %q", first.Title)
	}
	if first.URL != "https://example.com/a" {
		t.Errorf("redirect not resolved: URL = %q", first.URL)
	}
	if first.Description != "Snippet for page A." {
		t.Errorf("description = %q", first.Description)
	}
	if first.Provider != "example.com" {
		t.Errorf("provider = %q", first.Provider)
	}
	if first.Icon != "https://external-content.duckduckgo.com/ip3/example.com.ico" {
		t.Errorf("icon = %q", first.Icon)
	}
	if first.Date != "2024-05-01" {
		t.Errorf("date = %q", first.Date)
	}

	for _, r := range results {
		if strings.Contains(r.Title, "Sponsored") {
			t.Errorf("ad result leaked into output: %+v", r)
		}
	}
}

func TestParse_RespectsMaxResults(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, `<div class="result web-result">
			<h2 class="result__title"><a class="result__a" href="https://example.com/p%d">Result %d title</a></h2>
		</div>`, i, i)
	}
	b.WriteString("</body></html>")

	results, err := Parse(b.String(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 5 {
		t.Errorf("len = %d, want 5", len(results))
	}
}

const genericMarkup = `<!DOCTYPE html>
<html><body>
<nav><a href="https://example.com/nav-link">Navigation entry text</a></nav>
<header><a href="https://example.com/header-link">Header entry text here</a></header>
<div class="content">
  <div class="entry">
    <h3>Interesting Article Heading</h3>
    <a href="https://example.com/article">go</a>
    <p>A paragraph describing the article contents in some detail.</p>
  </div>
  <div class="entry">
    <a href="https://example.org/long-anchor">A descriptive anchor text here</a>
    <p>Second paragraph description.</p>
  </div>
  <a href="#fragment">skip me</a>
  <a href="javascript:void(0)">skip me too</a>
  <a href="mailto:x@example.com">mail</a>
  <a href="https://duckduckgo.com/settings">engine internal</a>
</div>
</body></html>`

func TestParse_GenericFallback(t *testing.T) {
	results, err := Parse(genericMarkup, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("len = %d, want 2, got %+v", len(results), results)
	}

	if results[0].Title != "Interesting Article Heading" {
		t.Errorf("short anchor title not synthesized from heading: %q", results[0].Title)
	}
	if results[0].URL != "https://example.com/article" {
		t.Errorf("URL = %q", results[0].URL)
	}
	if results[0].Description != "A paragraph describing the article contents in some detail." {
		t.Errorf("description = %q", results[0].Description)
	}

	if results[1].Title != "A descriptive anchor text here" {
		t.Errorf("long anchor text should be kept as title: %q", results[1].Title)
	}

	for _, r := range results {
		if strings.Contains(r.URL, "nav-link") || strings.Contains(r.URL, "header-link") {
			t.Errorf("navigation/header anchor leaked: %s", r.URL)
		}
		if strings.Contains(r.URL, "duckduckgo.com") {
			t.Errorf("engine-internal anchor leaked: %s", r.URL)
		}
	}
}

func TestParse_MergeDeduplicatesAcrossPasses(t *testing.T) {
	// One engine container plus a plain anchor to the same URL elsewhere on
	// the page: the generic top-up must not duplicate it.
	markup := `<html><body>
	<div class="result web-result">
	  <h2 class="result__title"><a class="result__a" href="https://example.com/same">Engine Result Title</a></h2>
	</div>
	<div class="other">
	  <a href="https://example.com/same">Duplicate anchor text here</a>
	  <a href="https://example.com/other">Another anchor text here</a>
	</div>
	</body></html>`

	results, err := Parse(markup, 10)
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[string]int)
	for _, r := range results {
		seen[r.URL]++
	}
	if seen["https://example.com/same"] != 1 {
		t.Errorf("duplicate URL appears %d times", seen["https://example.com/same"])
	}
	if seen["https://example.com/other"] != 1 {
		t.Errorf("generic-only URL missing, results: %+v", results)
	}

	// First-seen wins: the engine pass title is kept.
	if results[0].Title != "Engine Result Title" {
		t.Errorf("title = %q, want engine pass title", results[0].Title)
	}
}

func TestParse_DatetimeAttributePreferred(t *testing.T) {
	markup := `<html><body>
	<div class="result web-result">
	  <h2 class="result__title"><a class="result__a" href="https://example.com/dated">Dated Result Title</a></h2>
	  <time datetime="2024-06-15">June 15th, 2024</time>
	</div>
	</body></html>`

	results, err := Parse(markup, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("no results")
	}
	if results[0].Date != "2024-06-15" {
		t.Errorf("date = %q, want datetime attribute value", results[0].Date)
	}
}

func TestParse_EmptyMarkup(t *testing.T) {
	results, err := Parse("", 10)
	if err != nil {
		t.Fatalf("empty markup should not error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("len = %d, want 0", len(results))
	}
}
