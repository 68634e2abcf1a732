// Package domain defines domain-specific errors.
// These errors represent session and playback failures and are independent of infrastructure.
package domain

import (
	"errors"
	"fmt"
)

// Common errors that services can return.
var (
	// ErrTrackNotFound is returned when a requested track cannot be found in the catalog or a container.
	ErrTrackNotFound = errors.New("track not found")

	// ErrAlbumNotFound is returned when an album id is unknown to the catalog.
	ErrAlbumNotFound = errors.New("album not found")

	// ErrPlaylistNotFound is returned when a playlist id is unknown to the catalog.
	ErrPlaylistNotFound = errors.New("playlist not found")

	// ErrInvalidTrackHandle is returned when an invalid track handle is used.
	ErrInvalidTrackHandle = errors.New("invalid track handle")

	// ErrQueueEmpty is returned when a selection resolves to a container without playable tracks.
	ErrQueueEmpty = errors.New("queue is empty")

	// ErrEndOfQueue is returned when there is no next track to advance to.
	ErrEndOfQueue = errors.New("end of queue reached")

	// ErrStartOfQueue is returned when there is no earlier track to retreat to.
	ErrStartOfQueue = errors.New("start of queue reached")

	// ErrInvalidSelection is returned for a selection that names nothing playable.
	ErrInvalidSelection = errors.New("invalid selection")

	// ErrNoPlayCount is returned when a play was registered but the server did not report the new counter.
	ErrNoPlayCount = errors.New("server reported no play count")

	// ErrStaleSelection is returned when a resolution completes after a newer transition.
	ErrStaleSelection = errors.New("selection superseded")

	// ErrInvalidVolume is returned when the volume is out of valid range (0.0-1.0).
	ErrInvalidVolume = errors.New("invalid volume: must be between 0.0 and 1.0")

	// ErrInvalidPosition is returned when seeking to an invalid position.
	ErrInvalidPosition = errors.New("invalid playback position")

	// ErrNotInitialized is returned when an operation is attempted on an uninitialized component.
	ErrNotInitialized = errors.New("component not initialized")

	// ErrAlreadyInitialized is returned when attempting to initialize an already initialized component.
	ErrAlreadyInitialized = errors.New("component already initialized")

	// ErrUnsupportedFormat is returned when an audio resource cannot be decoded.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrNoTrackLoaded is returned when transport control is attempted with no track loaded.
	ErrNoTrackLoaded = errors.New("no track loaded")

	// ErrPlaybackFailed is returned when playback cannot be started.
	ErrPlaybackFailed = errors.New("playback failed")
)

// AudioEngineError represents an error from the audio engine.
// This wraps low-level audio library errors with additional context.
type AudioEngineError struct {
	Op      string // Operation that failed (e.g., "load", "play", "seek")
	Source  string // Audio reference (if applicable)
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AudioEngineError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("audio engine %s failed for '%s': %s", e.Op, e.Source, e.Message)
	}
	return fmt.Sprintf("audio engine %s failed: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *AudioEngineError) Unwrap() error {
	return e.Err
}

// NewAudioEngineError creates a new AudioEngineError.
func NewAudioEngineError(op, source, message string, err error) *AudioEngineError {
	return &AudioEngineError{
		Op:      op,
		Source:  source,
		Message: message,
		Err:     err,
	}
}

// ResolutionError is returned when a selection cannot be turned into a track and a queue.
// The session state is left untouched when one of these is produced.
type ResolutionError struct {
	Selection Selection
	Err       error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Selection, e.Err)
}

// Unwrap returns the underlying error.
func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// NewResolutionError creates a new ResolutionError.
func NewResolutionError(sel Selection, err error) *ResolutionError {
	return &ResolutionError{Selection: sel, Err: err}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string // Field that failed validation
	Value   any    // Value that failed validation
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ServiceError represents an error from a service layer operation.
type ServiceError struct {
	Service string // Service name (e.g., "SessionService", "TransportService")
	Op      string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("service %s.%s failed: %s", e.Service, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, op, message string, err error) *ServiceError {
	return &ServiceError{
		Service: service,
		Op:      op,
		Message: message,
		Err:     err,
	}
}
