package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/gather/cache"
	"github.com/use-agent/gather/models"
	"github.com/use-agent/gather/search"
)

type stubStage struct{}

func (stubStage) Name() string { return "stub" }

func (stubStage) Collect(_ context.Context, _ models.SearchOptions, _ int) ([]models.SearchResult, error) {
	return []models.SearchResult{
		{Title: "A result title", URL: "https://example.com/a"},
	}, nil
}

func newSearchRouter(cc *cache.Cache) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/search", Search(search.NewPipelineWithStages(stubStage{}), cc))
	return r
}

func doSearch(t *testing.T, r *gin.Engine, body string) models.SearchResponse {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp models.SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return resp
}

func TestSearch_CacheMissThenHit(t *testing.T) {
	cc := cache.New(10)
	r := newSearchRouter(cc)
	body := `{"query":"go","max_age_ms":60000}`

	first := doSearch(t, r, body)
	if first.CacheStatus != "miss" {
		t.Errorf("first request cache status = %q, want %q", first.CacheStatus, "miss")
	}

	second := doSearch(t, r, body)
	if second.CacheStatus != "hit" {
		t.Errorf("second request cache status = %q, want %q", second.CacheStatus, "hit")
	}
	if second.Total != first.Total {
		t.Errorf("cached response total = %d, want %d", second.Total, first.Total)
	}
}

func TestSearch_HitLeavesCachedEntryUntouched(t *testing.T) {
	cc := cache.New(10)
	r := newSearchRouter(cc)
	body := `{"query":"go","max_age_ms":60000}`

	doSearch(t, r, body) // miss, populates the cache
	doSearch(t, r, body) // hit

	opts := models.SearchOptions{Query: "go", MaxResults: models.DefaultMaxResults}
	stored, ok := cc.Get(cache.Key(opts), 60000)
	if !ok {
		t.Fatal("entry missing from cache")
	}
	if stored.CacheStatus == "hit" {
		t.Error("serving a hit mutated the shared cache entry")
	}
}
