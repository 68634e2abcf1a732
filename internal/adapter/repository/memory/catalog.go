package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/tejashwikalptaru/melodia/internal/domain"
	"github.com/tejashwikalptaru/melodia/internal/ports"
)

// Catalog is an in-memory content catalog.
// It backs the demo mode and lets tests script failures and latency.
//
// Thread-safe: All operations protected by sync.RWMutex.
type Catalog struct {
	mu        sync.RWMutex
	tracks    map[string]domain.Track
	order     []string
	albums    map[string]albumEntry
	playlists map[string]domain.PlaylistSummary

	trackErrs   map[string]error
	holds       map[string]chan struct{}
	registerErr error
	plays       map[string]int
}

type albumEntry struct {
	album    domain.Album
	trackIDs []string
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		tracks:    make(map[string]domain.Track),
		albums:    make(map[string]albumEntry),
		playlists: make(map[string]domain.PlaylistSummary),
		trackErrs: make(map[string]error),
		holds:     make(map[string]chan struct{}),
		plays:     make(map[string]int),
	}
}

// AddTracks adds or replaces tracks.
func (c *Catalog) AddTracks(tracks ...domain.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tracks {
		if _, ok := c.tracks[t.ID]; !ok {
			c.order = append(c.order, t.ID)
		}
		c.tracks[t.ID] = t
		c.plays[t.ID] = t.PlayCount
	}
}

// AddAlbum adds an album with its tracklist; the tracks are added too.
func (c *Catalog) AddAlbum(album domain.Album, tracks ...domain.Track) {
	c.AddTracks(tracks...)

	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	album.TrackCount = len(tracks)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.albums[album.ID] = albumEntry{album: album, trackIDs: ids}
}

// AddPlaylist adds a playlist. Its ids may name tracks that do not exist;
// those are skipped when the playlist is resolved.
func (c *Catalog) AddPlaylist(p domain.PlaylistSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p.TrackIDs = slices.Clone(p.TrackIDs)
	c.playlists[p.ID] = p
}

// FailTrack makes lookups of a track id fail with err. A nil err clears it.
func (c *Catalog) FailTrack(id string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.trackErrs, id)
		return
	}
	c.trackErrs[id] = err
}

// HoldTrack makes TrackByID(id) block until release is called or the
// caller's context ends.
func (c *Catalog) HoldTrack(id string) (release func()) {
	gate := make(chan struct{})
	c.mu.Lock()
	c.holds[id] = gate
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			if c.holds[id] == gate {
				delete(c.holds, id)
			}
			c.mu.Unlock()
			close(gate)
		})
	}
}

// SetRegisterError makes RegisterPlay fail with err. A nil err clears it.
func (c *Catalog) SetRegisterError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registerErr = err
}

// SetServerPlayCount overwrites the server-side counter of a track.
func (c *Catalog) SetServerPlayCount(id string, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plays[id] = count
}

// ServerPlayCount returns the server-side counter of a track.
func (c *Catalog) ServerPlayCount(id string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.plays[id]
}

// TrackByID returns a track with its current server-side play count.
func (c *Catalog) TrackByID(ctx context.Context, id string) (domain.Track, error) {
	c.mu.RLock()
	gate := c.holds[id]
	c.mu.RUnlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.Track{}, ctx.Err()
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.trackLocked(id)
}

func (c *Catalog) trackLocked(id string) (domain.Track, error) {
	if err, ok := c.trackErrs[id]; ok {
		return domain.Track{}, err
	}
	t, ok := c.tracks[id]
	if !ok {
		return domain.Track{}, fmt.Errorf("track %q: %w", id, domain.ErrTrackNotFound)
	}
	t.PlayCount = c.plays[id]
	return t, nil
}

// AlbumTracks returns an album's tracklist in order.
func (c *Catalog) AlbumTracks(ctx context.Context, albumID string) ([]domain.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.albums[albumID]
	if !ok {
		return nil, fmt.Errorf("album %q: %w", albumID, domain.ErrAlbumNotFound)
	}
	tracks := make([]domain.Track, 0, len(entry.trackIDs))
	for _, id := range entry.trackIDs {
		t, err := c.trackLocked(id)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// PlaylistTracks returns a playlist's tracks in order, skipping ids that fail.
func (c *Catalog) PlaylistTracks(ctx context.Context, playlistID string) ([]domain.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.playlists[playlistID]
	if !ok {
		return nil, fmt.Errorf("playlist %q: %w", playlistID, domain.ErrPlaylistNotFound)
	}
	tracks := make([]domain.Track, 0, len(p.TrackIDs))
	for _, id := range p.TrackIDs {
		if t, err := c.trackLocked(id); err == nil {
			tracks = append(tracks, t)
		}
	}
	return tracks, nil
}

// Songs lists every track in insertion order.
func (c *Catalog) Songs(ctx context.Context) ([]domain.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Track, 0, len(c.order))
	for _, id := range c.order {
		t := c.tracks[id]
		t.PlayCount = c.plays[id]
		out = append(out, t)
	}
	return out, nil
}

// Albums lists every album sorted by title.
func (c *Catalog) Albums(ctx context.Context) ([]domain.Album, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Album, 0, len(c.albums))
	for _, e := range c.albums {
		out = append(out, e.album)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// Playlists lists every playlist sorted by name.
func (c *Catalog) Playlists(ctx context.Context) ([]domain.PlaylistSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.PlaylistSummary, 0, len(c.playlists))
	for _, p := range c.playlists {
		p.TrackIDs = slices.Clone(p.TrackIDs)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// RegisterPlay bumps the server-side counter and returns its new value.
func (c *Catalog) RegisterPlay(ctx context.Context, trackID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.registerErr != nil {
		return 0, c.registerErr
	}
	if _, ok := c.tracks[trackID]; !ok {
		return 0, fmt.Errorf("track %q: %w", trackID, domain.ErrTrackNotFound)
	}
	c.plays[trackID]++
	return c.plays[trackID], nil
}

var (
	_ ports.Catalog        = (*Catalog)(nil)
	_ ports.CatalogBrowser = (*Catalog)(nil)
	_ ports.PlayRegistrar  = (*Catalog)(nil)
)
