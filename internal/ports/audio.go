// Package ports define interfaces for dependency inversion.
// These interfaces allow the core playback logic to remain independent of external frameworks.
package ports

import (
	"context"
	"time"

	"github.com/tejashwikalptaru/melodia/internal/domain"
)

// AudioEngine is the interface for audio playback engines.
// This abstracts the underlying audio library (beep) and allows for testing with mocks.
//
// Implementations must be thread-safe as they may be called from multiple goroutines.
type AudioEngine interface {
	// Lifecycle methods

	// Initialize sets up the audio output.
	// sampleRate: output sample rate in Hz (e.g., 44100)
	Initialize(sampleRate int) error

	// Shutdown releases all audio engine resources.
	Shutdown() error

	// IsInitialized returns true if the engine has been successfully initialized.
	IsInitialized() bool

	// Track loading methods

	// Load fetches and decodes the audio resource at source (an absolute URL)
	// and returns a handle to it. Loading does not start playback.
	//
	// Cancelling ctx aborts the fetch.
	Load(ctx context.Context, source string) (domain.TrackHandle, error)

	// Unload releases resources for a previously loaded track.
	Unload(handle domain.TrackHandle) error

	// Playback control methods

	// Play starts or resumes playback. A track that reached its end
	// starts again from the beginning.
	Play(handle domain.TrackHandle) error

	// Pause pauses playback, preserving the position.
	Pause(handle domain.TrackHandle) error

	// Stop stops playback and unloads the track.
	Stop(handle domain.TrackHandle) error

	// State query methods

	// Status returns the current playback status. A track that played to its
	// end reports StatusStopped.
	Status(handle domain.TrackHandle) (domain.PlaybackStatus, error)

	// Position returns the current playback position within the track.
	Position(handle domain.TrackHandle) (time.Duration, error)

	// Duration returns the total duration of the track.
	Duration(handle domain.TrackHandle) (time.Duration, error)

	// Seek sets the playback position. The position must be within [0, Duration].
	Seek(handle domain.TrackHandle, position time.Duration) error

	// SetVolume sets the playback volume from 0.0 (silent) to 1.0 (full volume).
	SetVolume(handle domain.TrackHandle, volume float64) error

	// GetVolume returns the current volume level.
	GetVolume(handle domain.TrackHandle) (float64, error)

	// Metadata returns the tags embedded in the loaded resource.
	// Resources without tags return an empty StreamMetadata and no error.
	Metadata(handle domain.TrackHandle) (domain.StreamMetadata, error)
}
