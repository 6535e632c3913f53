package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/use-agent/gather/config"
	"github.com/use-agent/gather/models"
)

func testFetchConfig() config.FetchConfig {
	return config.FetchConfig{
		Timeout:           2 * time.Second,
		RequestsPerSecond: 100,
		Burst:             100,
	}
}

func TestFetch(t *testing.T) {
	const page = `<!DOCTYPE html><html><body><div class="result">hello</div></body></html>`

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	f := NewFetcher(testFetchConfig())
	markup, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if markup != page {
		t.Errorf("markup = %q", markup)
	}
	if !strings.Contains(gotUA, "Chrome/") {
		t.Errorf("User-Agent = %q, want a Chrome UA", gotUA)
	}
}

func TestFetch_NonSuccessStatus(t *testing.T) {
	statuses := []int{http.StatusForbidden, http.StatusTooManyRequests, http.StatusInternalServerError}

	for _, status := range statuses {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))

		f := NewFetcher(testFetchConfig())
		_, err := f.Fetch(context.Background(), srv.URL)
		srv.Close()

		var se *models.SearchError
		if !errors.As(err, &se) || se.Code != models.ErrCodeFetchFailed {
			t.Errorf("status %d: err = %v, want %s", status, err, models.ErrCodeFetchFailed)
		}
	}
}

func TestFetch_NonHTMLResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"not":"html"}`))
	}))
	defer srv.Close()

	f := NewFetcher(testFetchConfig())
	_, err := f.Fetch(context.Background(), srv.URL)

	var se *models.SearchError
	if !errors.As(err, &se) || se.Code != models.ErrCodeFetchFailed {
		t.Errorf("err = %v, want %s", err, models.ErrCodeFetchFailed)
	}
}

func TestFetch_MissingContentTypeButHTMLBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header()["Content-Type"] = nil // suppress Go's auto-detection header
		_, _ = w.Write([]byte(`<html><body>bare</body></html>`))
	}))
	defer srv.Close()

	f := NewFetcher(testFetchConfig())
	if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
		t.Errorf("HTML body without content-type header should be accepted: %v", err)
	}
}

func TestFetch_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done() // hold the response until the client gives up
	}))
	defer srv.Close()

	f := NewFetcher(testFetchConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := f.Fetch(ctx, srv.URL)
	if err == nil {
		t.Fatal("want error on cancelled context")
	}
}

func TestLooksLikeHTML(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        bool
	}{
		{"html content type", "text/html", "whatever", true},
		{"xhtml content type", "application/xhtml+xml", "", true},
		{"doctype sniffed", "", "<!DOCTYPE html><html></html>", true},
		{"html tag sniffed", "application/octet-stream", "<HTML><body></body></HTML>", true},
		{"json rejected", "application/json", `{"a":1}`, false},
		{"plain text rejected", "text/plain", "just words", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := looksLikeHTML(tt.contentType, tt.body); got != tt.want {
				t.Errorf("looksLikeHTML(%q, ...) = %v, want %v", tt.contentType, got, tt.want)
			}
		})
	}
}
