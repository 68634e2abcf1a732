// Package domain defines events for the event-driven architecture.
// Commands flow from the UI to the session controller as events, and the
// core reports state changes back the same way.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
// All events must implement this interface to be published via the event bus.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Commands handled by the session controller
	EventPlayRequested    EventType = "session.play_requested"
	EventAdvanceRequested EventType = "session.advance_requested"
	EventRetreatRequested EventType = "session.retreat_requested"
	EventShuffleToggled   EventType = "session.shuffle_toggle"
	EventRepeatToggled    EventType = "session.repeat_toggle"
	EventTrackEnded       EventType = "track.ended"

	// Session notifications
	EventTrackChanged     EventType = "session.track_changed"
	EventEndOfQueue       EventType = "session.end_of_queue"
	EventModeChanged      EventType = "session.mode_changed"
	EventResolutionFailed EventType = "session.resolution_failed"
	EventPlayCountChanged EventType = "track.play_count_changed"

	// Transport notifications
	EventTransportStateChanged EventType = "transport.state_changed"
	EventTrackLoaded           EventType = "track.loaded"
	EventTrackProgress         EventType = "track.progress"
	EventPlaybackError         EventType = "track.error"
	EventVolumeChanged         EventType = "volume.changed"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// PlayRequestedEvent asks the session to play a selection.
type PlayRequestedEvent struct {
	baseEvent
	Selection Selection
}

// Type returns the event type.
func (e PlayRequestedEvent) Type() EventType { return EventPlayRequested }

// NewPlayRequestedEvent creates a new PlayRequestedEvent.
func NewPlayRequestedEvent(sel Selection) PlayRequestedEvent {
	return PlayRequestedEvent{baseEvent: newBaseEvent(), Selection: sel}
}

// AdvanceRequestedEvent asks the session to move to the next track.
type AdvanceRequestedEvent struct {
	baseEvent
}

// Type returns the event type.
func (e AdvanceRequestedEvent) Type() EventType { return EventAdvanceRequested }

// NewAdvanceRequestedEvent creates a new AdvanceRequestedEvent.
func NewAdvanceRequestedEvent() AdvanceRequestedEvent {
	return AdvanceRequestedEvent{baseEvent: newBaseEvent()}
}

// RetreatRequestedEvent asks the session to go back.
type RetreatRequestedEvent struct {
	baseEvent
}

// Type returns the event type.
func (e RetreatRequestedEvent) Type() EventType { return EventRetreatRequested }

// NewRetreatRequestedEvent creates a new RetreatRequestedEvent.
func NewRetreatRequestedEvent() RetreatRequestedEvent {
	return RetreatRequestedEvent{baseEvent: newBaseEvent()}
}

// ShuffleToggledEvent asks the session to flip shuffle mode.
type ShuffleToggledEvent struct {
	baseEvent
}

// Type returns the event type.
func (e ShuffleToggledEvent) Type() EventType { return EventShuffleToggled }

// NewShuffleToggledEvent creates a new ShuffleToggledEvent.
func NewShuffleToggledEvent() ShuffleToggledEvent {
	return ShuffleToggledEvent{baseEvent: newBaseEvent()}
}

// RepeatToggledEvent asks the session to flip repeat-one mode.
type RepeatToggledEvent struct {
	baseEvent
}

// Type returns the event type.
func (e RepeatToggledEvent) Type() EventType { return EventRepeatToggled }

// NewRepeatToggledEvent creates a new RepeatToggledEvent.
func NewRepeatToggledEvent() RepeatToggledEvent {
	return RepeatToggledEvent{baseEvent: newBaseEvent()}
}

// TrackEndedEvent is published when the audio for a track reaches its natural end.
// Trigger identifies which (re)start of the track ended.
type TrackEndedEvent struct {
	baseEvent
	Track   Track
	Trigger uint64
}

// Type returns the event type.
func (e TrackEndedEvent) Type() EventType { return EventTrackEnded }

// NewTrackEndedEvent creates a new TrackEndedEvent.
func NewTrackEndedEvent(track Track, trigger uint64) TrackEndedEvent {
	return TrackEndedEvent{baseEvent: newBaseEvent(), Track: track, Trigger: trigger}
}

// TransitionReason says why the current track changed.
type TransitionReason string

const (
	ReasonPlay         TransitionReason = "play"
	ReasonAdvance      TransitionReason = "advance"
	ReasonRepeat       TransitionReason = "repeat"
	ReasonRetreat      TransitionReason = "retreat"
	ReasonRetreatIndex TransitionReason = "retreat_index"
)

// TrackChangedEvent is published after every transition that (re)starts playback.
type TrackChangedEvent struct {
	baseEvent
	Track   Track
	Queue   Queue
	Trigger uint64
	Reason  TransitionReason
}

// Type returns the event type.
func (e TrackChangedEvent) Type() EventType { return EventTrackChanged }

// NewTrackChangedEvent creates a new TrackChangedEvent.
func NewTrackChangedEvent(track Track, queue Queue, trigger uint64, reason TransitionReason) TrackChangedEvent {
	return TrackChangedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
		Queue:     queue.Clone(),
		Trigger:   trigger,
		Reason:    reason,
	}
}

// EndOfQueueEvent is published when advancing finds nothing to play.
type EndOfQueueEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e EndOfQueueEvent) Type() EventType { return EventEndOfQueue }

// NewEndOfQueueEvent creates a new EndOfQueueEvent.
func NewEndOfQueueEvent(track Track) EndOfQueueEvent {
	return EndOfQueueEvent{baseEvent: newBaseEvent(), Track: track}
}

// ModeChangedEvent is published when shuffle or repeat is toggled.
type ModeChangedEvent struct {
	baseEvent
	Shuffle bool
	Repeat  bool
}

// Type returns the event type.
func (e ModeChangedEvent) Type() EventType { return EventModeChanged }

// NewModeChangedEvent creates a new ModeChangedEvent.
func NewModeChangedEvent(shuffle, repeat bool) ModeChangedEvent {
	return ModeChangedEvent{baseEvent: newBaseEvent(), Shuffle: shuffle, Repeat: repeat}
}

// ResolutionFailedEvent is published when a selection could not be resolved.
type ResolutionFailedEvent struct {
	baseEvent
	Selection Selection
	Err       error
}

// Type returns the event type.
func (e ResolutionFailedEvent) Type() EventType { return EventResolutionFailed }

// NewResolutionFailedEvent creates a new ResolutionFailedEvent.
func NewResolutionFailedEvent(sel Selection, err error) ResolutionFailedEvent {
	return ResolutionFailedEvent{baseEvent: newBaseEvent(), Selection: sel, Err: err}
}

// PlayCountChangedEvent is published when a track's local play count changes.
// Confirmed is false for the optimistic increment and true once the server answered.
type PlayCountChangedEvent struct {
	baseEvent
	TrackID   string
	Count     int
	Confirmed bool
}

// Type returns the event type.
func (e PlayCountChangedEvent) Type() EventType { return EventPlayCountChanged }

// NewPlayCountChangedEvent creates a new PlayCountChangedEvent.
func NewPlayCountChangedEvent(trackID string, count int, confirmed bool) PlayCountChangedEvent {
	return PlayCountChangedEvent{baseEvent: newBaseEvent(), TrackID: trackID, Count: count, Confirmed: confirmed}
}

// TransportStateChangedEvent is published on every transport state transition.
type TransportStateChangedEvent struct {
	baseEvent
	State TransportState
	Track *Track
}

// Type returns the event type.
func (e TransportStateChangedEvent) Type() EventType { return EventTransportStateChanged }

// NewTransportStateChangedEvent creates a new TransportStateChangedEvent.
func NewTransportStateChangedEvent(state TransportState, track *Track) TransportStateChangedEvent {
	return TransportStateChangedEvent{baseEvent: newBaseEvent(), State: state, Track: track}
}

// TrackLoadedEvent is published when an audio resource is loaded.
type TrackLoadedEvent struct {
	baseEvent
	Track    Track
	Duration time.Duration
	Metadata StreamMetadata
}

// Type returns the event type.
func (e TrackLoadedEvent) Type() EventType { return EventTrackLoaded }

// NewTrackLoadedEvent creates a new TrackLoadedEvent.
func NewTrackLoadedEvent(track Track, duration time.Duration, meta StreamMetadata) TrackLoadedEvent {
	return TrackLoadedEvent{baseEvent: newBaseEvent(), Track: track, Duration: duration, Metadata: meta}
}

// TrackProgressEvent is published periodically during playback.
type TrackProgressEvent struct {
	baseEvent
	Position time.Duration
	Duration time.Duration
}

// Type returns the event type.
func (e TrackProgressEvent) Type() EventType { return EventTrackProgress }

// NewTrackProgressEvent creates a new TrackProgressEvent.
func NewTrackProgressEvent(position, duration time.Duration) TrackProgressEvent {
	return TrackProgressEvent{baseEvent: newBaseEvent(), Position: position, Duration: duration}
}

// PlaybackErrorEvent is published when loading or starting audio fails.
type PlaybackErrorEvent struct {
	baseEvent
	Track Track
	Op    string
	Err   error
}

// Type returns the event type.
func (e PlaybackErrorEvent) Type() EventType { return EventPlaybackError }

// NewPlaybackErrorEvent creates a new PlaybackErrorEvent.
func NewPlaybackErrorEvent(track Track, op string, err error) PlaybackErrorEvent {
	return PlaybackErrorEvent{baseEvent: newBaseEvent(), Track: track, Op: op, Err: err}
}

// VolumeChangedEvent is published when the volume changes.
type VolumeChangedEvent struct {
	baseEvent
	Volume float64
}

// Type returns the event type.
func (e VolumeChangedEvent) Type() EventType { return EventVolumeChanged }

// NewVolumeChangedEvent creates a new VolumeChangedEvent.
func NewVolumeChangedEvent(volume float64) VolumeChangedEvent {
	return VolumeChangedEvent{baseEvent: newBaseEvent(), Volume: volume}
}
