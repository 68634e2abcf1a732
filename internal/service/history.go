package service

import (
	"slices"

	"github.com/tejashwikalptaru/melodia/internal/domain"
)

// History is the stack of previously played tracks.
// It keeps duplicates and has no cap. It is not safe for concurrent use;
// the session controller owns it and serializes access.
type History struct {
	items []domain.Track
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// Push adds a track on top.
func (h *History) Push(track domain.Track) {
	h.items = append(h.items, track)
}

// Pop removes and returns the top track. It reports false on an empty stack.
func (h *History) Pop() (domain.Track, bool) {
	if len(h.items) == 0 {
		return domain.Track{}, false
	}
	last := len(h.items) - 1
	top := h.items[last]
	h.items[last] = domain.Track{}
	h.items = h.items[:last]
	return top, true
}

// Peek returns the top track without removing it.
func (h *History) Peek() (domain.Track, bool) {
	if len(h.items) == 0 {
		return domain.Track{}, false
	}
	return h.items[len(h.items)-1], true
}

// Len returns the stack depth.
func (h *History) Len() int {
	return len(h.items)
}

// Items returns a copy of the stack, bottom first.
func (h *History) Items() []domain.Track {
	return slices.Clone(h.items)
}

// Clear empties the stack.
func (h *History) Clear() {
	h.items = nil
}
