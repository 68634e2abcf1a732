package domain

// Queue is the ordered playback context that navigation operates over.
// Duplicates are allowed; lookups use the first occurrence.
type Queue []Track

// NewQueue copies tracks into a fresh queue.
func NewQueue(tracks ...Track) Queue {
	q := make(Queue, len(tracks))
	copy(q, tracks)
	return q
}

// Len returns the number of tracks.
func (q Queue) Len() int {
	return len(q)
}

// IsEmpty reports whether the queue has no tracks.
func (q Queue) IsEmpty() bool {
	return len(q) == 0
}

// At returns the track at index i.
func (q Queue) At(i int) (Track, bool) {
	if i < 0 || i >= len(q) {
		return Track{}, false
	}
	return q[i], true
}

// IndexOf returns the index of the first track with the given id, or -1.
func (q Queue) IndexOf(id string) int {
	for i, t := range q {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Contains reports whether a track with the given id is in the queue.
func (q Queue) Contains(id string) bool {
	return q.IndexOf(id) >= 0
}

// Before returns the track immediately preceding the first occurrence of id.
// It fails closed at index 0 and when id is absent.
func (q Queue) Before(id string) (Track, bool) {
	idx := q.IndexOf(id)
	if idx <= 0 {
		return Track{}, false
	}
	return q[idx-1], true
}

// After returns the track immediately following the first occurrence of id.
func (q Queue) After(id string) (Track, bool) {
	idx := q.IndexOf(id)
	if idx < 0 || idx+1 >= len(q) {
		return Track{}, false
	}
	return q[idx+1], true
}

// Clone returns an independent copy.
func (q Queue) Clone() Queue {
	if q == nil {
		return nil
	}
	return NewQueue(q...)
}

// IDs returns the track ids in order.
func (q Queue) IDs() []string {
	ids := make([]string, len(q))
	for i, t := range q {
		ids[i] = t.ID
	}
	return ids
}
