// Package ports define catalog and repository interfaces.
// The catalog is the remote content service; repositories hold local, in-memory state.
package ports

import (
	"context"

	"github.com/tejashwikalptaru/melodia/internal/domain"
)

// Catalog is the track lookup the resolver depends on.
// Implementations normalize whatever field names the backend uses into domain.Track.
//
// Thread-safety: Implementations must be thread-safe.
type Catalog interface {
	// TrackByID fetches one track.
	// Returns domain.ErrTrackNotFound when the id is unknown.
	TrackByID(ctx context.Context, id string) (domain.Track, error)

	// AlbumTracks returns the album's ordered tracklist.
	// Returns domain.ErrAlbumNotFound when the id is unknown.
	AlbumTracks(ctx context.Context, albumID string) ([]domain.Track, error)

	// PlaylistTracks returns the playlist's ordered tracks.
	// Tracks that can no longer be fetched are skipped.
	// Returns domain.ErrPlaylistNotFound when the id is unknown.
	PlaylistTracks(ctx context.Context, playlistID string) ([]domain.Track, error)
}

// CatalogBrowser lists catalog content for the browser views.
type CatalogBrowser interface {
	// Songs lists every song in the catalog.
	Songs(ctx context.Context) ([]domain.Track, error)

	// Albums lists every album.
	Albums(ctx context.Context) ([]domain.Album, error)

	// Playlists lists every playlist.
	Playlists(ctx context.Context) ([]domain.PlaylistSummary, error)
}

// PlayRegistrar records a play on the server.
type PlayRegistrar interface {
	// RegisterPlay increments the server-side counter for trackID and
	// returns the counter's new value. When the play was recorded but the
	// counter is unknown it returns domain.ErrNoPlayCount.
	RegisterPlay(ctx context.Context, trackID string) (int, error)
}

// PlayCountRepository holds the locally displayed play counters.
//
// Thread-safety: Implementations must be thread-safe.
type PlayCountRepository interface {
	// Get returns the counter for trackID and whether one is known.
	Get(trackID string) (int, bool)

	// Set overwrites the counter for trackID.
	Set(trackID string, count int)

	// Increment adds one to the counter for trackID, seeding it with base
	// when no counter is known. It returns the new value and the sequence
	// number of this registration.
	Increment(trackID string, base int) (count int, seq uint64)

	// Correct replaces the counter with a server-reported value, but only
	// when seq is still the newest registration of trackID. It reports
	// whether the counter was replaced.
	Correct(trackID string, seq uint64, count int) bool
}
