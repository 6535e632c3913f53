package capture

import (
	"sync"
	"time"

	"github.com/use-agent/gather/models"
)

// maxAge is how long a recorded capture stays usable as fallback input.
const maxAge = 15 * time.Minute

type entry struct {
	capture    models.PageCapture
	recordedAt time.Time
}

// Store keeps the most recent capture per query so the capture-analysis
// fallback has material when direct extraction under-produces.
// It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	entries    map[string]entry
	maxEntries int
}

// NewStore creates a Store capped at maxEntries captures.
func NewStore(maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	return &Store{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
	}
}

// Record stores the capture for a query, replacing any previous one.
// At capacity, a random entry is evicted (map iteration is random in Go).
func (s *Store) Record(query string, capture models.PageCapture) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[query]; !exists && len(s.entries) >= s.maxEntries {
		for k := range s.entries {
			delete(s.entries, k)
			break
		}
	}
	s.entries[query] = entry{capture: capture, recordedAt: time.Now()}
}

// Latest returns the freshest capture recorded for the query, if any.
func (s *Store) Latest(query string) (models.PageCapture, bool) {
	s.mu.RLock()
	e, ok := s.entries[query]
	s.mu.RUnlock()

	if !ok || time.Since(e.recordedAt) > maxAge {
		return models.PageCapture{}, false
	}
	return e.capture, true
}
