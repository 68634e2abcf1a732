package service

import (
	"math/rand/v2"
	"sync"

	"github.com/tejashwikalptaru/melodia/internal/domain"
)

// Navigator picks the track that follows the current one.
// It never wraps around: reaching the end is reported, not looped.
type Navigator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewNavigator creates a navigator that shuffles with rng.
// A nil rng uses a randomly seeded PCG source.
func NewNavigator(rng *rand.Rand) *Navigator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Navigator{rng: rng}
}

// Next returns the track after current in queue.
//
// Sequentially that is the element after current's first occurrence; false
// when current is last or absent. With shuffle it is a uniformly random
// element whose id differs from current; false when there is none.
func (n *Navigator) Next(queue domain.Queue, current domain.Track, shuffle bool) (domain.Track, bool) {
	if !shuffle {
		return queue.After(current.ID)
	}

	candidates := make([]int, 0, len(queue))
	for i, t := range queue {
		if t.ID != current.ID {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return domain.Track{}, false
	}

	n.mu.Lock()
	pick := candidates[n.rng.IntN(len(candidates))]
	n.mu.Unlock()
	return queue[pick], true
}
