package parse

import (
	"net/url"
	"strings"
	"testing"

	"github.com/use-agent/gather/models"
)

func TestSearchURL(t *testing.T) {
	opts := models.SearchOptions{
		Query:      "go concurrency",
		Region:     "us-en",
		SafeSearch: true,
		TimeRange:  "w",
	}

	raw := SearchURL(opts)
	if !strings.HasPrefix(raw, "https://html.duckduckgo.com/html/?") {
		t.Fatalf("unexpected endpoint: %s", raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("built URL does not parse: %v", err)
	}
	q := u.Query()
	if q.Get("q") != "go concurrency" {
		t.Errorf("q = %q", q.Get("q"))
	}
	if q.Get("kl") != "us-en" {
		t.Errorf("kl = %q", q.Get("kl"))
	}
	if q.Get("kp") != "1" {
		t.Errorf("kp = %q, want 1 for safe search", q.Get("kp"))
	}
	if q.Get("df") != "w" {
		t.Errorf("df = %q", q.Get("df"))
	}
}

func TestSearchURL_SafeSearchOff(t *testing.T) {
	u, err := url.Parse(SearchURL(models.SearchOptions{Query: "x"}))
	if err != nil {
		t.Fatal(err)
	}
	if got := u.Query().Get("kp"); got != "-2" {
		t.Errorf("kp = %q, want -2", got)
	}
}

func TestRenderedSearchURL(t *testing.T) {
	raw := RenderedSearchURL(models.SearchOptions{Query: "x"})
	if !strings.HasPrefix(raw, "https://duckduckgo.com/?") {
		t.Errorf("unexpected endpoint: %s", raw)
	}
}

func TestResolveRedirect(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"absolute wrapper",
			"https://duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fa&rut=abc123",
			"https://example.com/a",
		},
		{
			"scheme-relative wrapper",
			"//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fb",
			"https://example.com/b",
		},
		{
			"hostless wrapper",
			"/l/?uddg=https%3A%2F%2Fexample.com%2Fc",
			"https://example.com/c",
		},
		{
			"destination keeps its own percent-encoding",
			"https://duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fa%2520b",
			"https://example.com/a%20b",
		},
		{
			"plain URL passes through",
			"https://example.com/plain",
			"https://example.com/plain",
		},
		{
			"scheme-relative non-wrapper upgraded",
			"//example.com/page",
			"https://example.com/page",
		},
		{
			"wrapper without uddg passes through",
			"https://duckduckgo.com/l/?other=1",
			"https://duckduckgo.com/l/?other=1",
		},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveRedirect(tt.in); got != tt.want {
				t.Errorf("ResolveRedirect(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsEngineInternal(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://duckduckgo.com/?q=x", true},
		{"https://html.duckduckgo.com/html/", true},
		{"https://improving.duckduckgo.com/t/x", true},
		{"https://duck.co/help", true},
		{"https://example.com/", false},
		{"https://notduckduckgo.example.org/", false},
	}

	for _, tt := range tests {
		if got := IsEngineInternal(tt.in); got != tt.want {
			t.Errorf("IsEngineInternal(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
