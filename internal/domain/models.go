// Package domain contains core business models and logic with no external dependencies.
// This package defines the fundamental entities of the Melodia playback client.
package domain

import (
	"time"
)

// Track is a playable catalog item.
// Two tracks are the same track when their IDs are equal.
type Track struct {
	// ID is the catalog identifier of the song
	ID string

	// Title is the display title
	Title string

	// AudioRef is an absolute URL of the audio resource
	AudioRef string

	// CoverRef is an absolute URL of the cover image (may be empty)
	CoverRef string

	// ArtistLabel is the display name of the performing artist (may be empty)
	ArtistLabel string

	// PlayCount is the play counter reported by the catalog
	PlayCount int
}

// Album is a catalog album as shown in the browser.
type Album struct {
	ID          string
	Title       string
	CoverRef    string
	ArtistLabel string
	TrackCount  int
}

// PlaylistSummary is a catalog playlist as shown in the browser.
type PlaylistSummary struct {
	ID          string
	Name        string
	Description string
	TrackIDs    []string
}

// StreamMetadata holds the tags embedded in an audio resource.
type StreamMetadata struct {
	Title    string
	Artist   string
	Album    string
	Artwork  []byte
	MIMEType string
}

// HasArtwork reports whether the stream carried an embedded picture.
func (m StreamMetadata) HasArtwork() bool {
	return len(m.Artwork) > 0
}

// SessionSnapshot is a copy of the session controller's state.
type SessionSnapshot struct {
	// CurrentTrack is the track designated as playing (nil when nothing was selected yet)
	CurrentTrack *Track

	// Queue is the current playback context
	Queue Queue

	// History lists previously played tracks, bottom first
	History []Track

	// ReplayTrigger increments on every transition that must (re)start playback
	ReplayTrigger uint64

	ShuffleEnabled bool
	RepeatEnabled  bool
}

// NowPlaying is the read-only projection that transport chrome renders.
type NowPlaying struct {
	CurrentTrack   *Track
	IsPlaying      bool
	ShuffleEnabled bool
	RepeatEnabled  bool
}

// TransportState is the audio transport's visual state.
type TransportState int

const (
	// TransportIdle means nothing is loaded.
	TransportIdle TransportState = iota

	// TransportLoading means a source is being fetched and decoded.
	TransportLoading

	// TransportPlaying means audio is being rendered.
	TransportPlaying

	// TransportPaused means a source is loaded but not rendering.
	TransportPaused
)

// String returns a human-readable representation of the transport state.
func (s TransportState) String() string {
	switch s {
	case TransportIdle:
		return "idle"
	case TransportLoading:
		return "loading"
	case TransportPlaying:
		return "playing"
	case TransportPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// TransportSnapshot is a copy of the audio transport's state.
type TransportSnapshot struct {
	State    TransportState
	Track    *Track
	Trigger  uint64
	Position time.Duration
	Duration time.Duration
	Volume   float64
	Dragging bool
}

// PlaybackStatus represents the audio engine's status for a handle.
type PlaybackStatus int

const (
	// StatusStopped indicates playback is stopped (or reached the end)
	StatusStopped PlaybackStatus = iota

	// StatusPlaying indicates playback is active
	StatusPlaying

	// StatusPaused indicates playback is paused
	StatusPaused
)

// String returns a human-readable representation of the playback status.
func (s PlaybackStatus) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// TrackHandle is an opaque handle to a loaded audio resource.
type TrackHandle int64

// InvalidTrackHandle represents an invalid or unloaded track.
const InvalidTrackHandle TrackHandle = 0

// IsValid returns true if the handle represents a loaded track.
func (h TrackHandle) IsValid() bool {
	return h != InvalidTrackHandle
}
