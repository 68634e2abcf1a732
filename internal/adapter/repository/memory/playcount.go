// Package memory provides in-memory adapters: the play counter cache and a
// fixture catalog for offline runs and tests.
package memory

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tejashwikalptaru/melodia/internal/ports"
)

// DefaultPlayCountCapacity is the number of counters kept before the least
// recently touched one is evicted.
const DefaultPlayCountCapacity = 1024

// PlayCountRepository keeps play counters in a bounded LRU cache.
// Nothing is persisted; an evicted counter is re-seeded from catalog data.
//
// Every Increment is stamped with a sequence number so that a server reply
// for an older registration cannot overwrite the result of a newer one.
// mu makes the read-modify-write operations atomic.
type PlayCountRepository struct {
	mu    sync.Mutex
	seq   uint64
	cache *lru.Cache[string, counter]
}

type counter struct {
	count int
	seq   uint64 // last registration
}

// NewPlayCountRepository creates a repository holding up to capacity counters.
// A non-positive capacity uses DefaultPlayCountCapacity.
func NewPlayCountRepository(capacity int) (*PlayCountRepository, error) {
	if capacity <= 0 {
		capacity = DefaultPlayCountCapacity
	}
	cache, err := lru.New[string, counter](capacity)
	if err != nil {
		return nil, err
	}
	return &PlayCountRepository{cache: cache}, nil
}

// Get returns the counter for trackID.
func (r *PlayCountRepository) Get(trackID string) (int, bool) {
	c, ok := r.cache.Get(trackID)
	return c.count, ok
}

// Set overwrites the counter for trackID.
func (r *PlayCountRepository) Set(trackID string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, _ := r.cache.Peek(trackID)
	c.count = count
	r.cache.Add(trackID, c)
}

// Increment bumps the counter for trackID, seeding it with base first when unknown.
func (r *PlayCountRepository) Increment(trackID string, base int) (int, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.cache.Get(trackID)
	if !ok {
		c.count = base
	}
	r.seq++
	c.count++
	c.seq = r.seq
	r.cache.Add(trackID, c)
	return c.count, c.seq
}

// Correct applies a server count if seq is still the latest registration.
func (r *PlayCountRepository) Correct(trackID string, seq uint64, count int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.cache.Peek(trackID)
	if !ok || c.seq != seq {
		return false
	}
	c.count = count
	r.cache.Add(trackID, c)
	return true
}

// Len returns the number of counters held.
func (r *PlayCountRepository) Len() int {
	return r.cache.Len()
}

var _ ports.PlayCountRepository = (*PlayCountRepository)(nil)
