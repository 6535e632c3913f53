package cache

import (
	"fmt"
	"testing"

	"github.com/use-agent/gather/models"
)

func TestKey(t *testing.T) {
	base := models.SearchOptions{Query: "go", Region: "us-en", MaxResults: 10}

	if Key(base) != Key(base) {
		t.Error("identical options produced different keys")
	}

	variants := []models.SearchOptions{
		{Query: "golang", Region: "us-en", MaxResults: 10},
		{Query: "go", Region: "de-de", MaxResults: 10},
		{Query: "go", Region: "us-en", MaxResults: 20},
		{Query: "go", Region: "us-en", MaxResults: 10, SafeSearch: true},
		{Query: "go", Region: "us-en", MaxResults: 10, TimeRange: "w"},
		{Query: "go", Region: "us-en", MaxResults: 10, Filters: models.SearchFilters{Include: []string{".edu"}}},
		{Query: "go", Region: "us-en", MaxResults: 10, Filters: models.SearchFilters{Exclude: []string{".com"}}},
	}
	for i, v := range variants {
		if Key(v) == Key(base) {
			t.Errorf("variant %d collides with the base key", i)
		}
	}
}

func TestGetSet(t *testing.T) {
	c := New(10)
	key := Key(models.SearchOptions{Query: "go"})
	resp := &models.SearchResponse{Success: true, Query: "go", Total: 3}

	if _, hit := c.Get(key, 60000); hit {
		t.Error("hit on empty cache")
	}

	c.Set(key, resp)

	got, hit := c.Get(key, 60000)
	if !hit {
		t.Fatal("want cache hit")
	}
	if got.Total != 3 {
		t.Errorf("Total = %d", got.Total)
	}
}

func TestGet_MaxAgeZeroBypasses(t *testing.T) {
	c := New(10)
	key := "k"
	c.Set(key, &models.SearchResponse{Success: true})

	if _, hit := c.Get(key, 0); hit {
		t.Error("maxAge 0 should bypass the cache")
	}
	if _, hit := c.Get(key, -1); hit {
		t.Error("negative maxAge should bypass the cache")
	}
}

func TestSet_EvictsAtCapacity(t *testing.T) {
	c := New(5)
	for i := 0; i < 20; i++ {
		c.Set(fmt.Sprintf("key-%d", i), &models.SearchResponse{})
	}

	c.mu.RLock()
	n := len(c.store)
	c.mu.RUnlock()
	if n > 5 {
		t.Errorf("store size = %d, want <= 5", n)
	}
}
