// Package ports define the EventBus interface for event-driven communication.
package ports

import (
	"github.com/tejashwikalptaru/melodia/internal/domain"
)

// EventBus is the interface for publishing and subscribing to events.
// Commands from the UI reach the session controller through it, and the
// controller and transport report state changes back the same way.
//
// Thread-safety: Implementations must be thread-safe as events may be published and
// subscribed from multiple goroutines simultaneously.
//
// Example usage:
//
//	bus.Publish(domain.NewAdvanceRequestedEvent())
//
//	subID := bus.Subscribe(domain.EventTrackChanged, func(event domain.Event) {
//	    e := event.(domain.TrackChangedEvent)
//	    view.SetTrack(e.Track)
//	})
//	defer bus.Unsubscribe(subID)
type EventBus interface {
	// Publish delivers an event to all subscribers of its type.
	// Handlers must not block; long work belongs on a goroutine.
	Publish(event domain.Event)

	// Subscribe registers a handler for events of the specified type.
	Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID

	// Unsubscribe removes a subscription. Unknown ids are ignored.
	Unsubscribe(id domain.SubscriptionID)

	// SubscribeAll registers a handler for every event.
	SubscribeAll(handler domain.EventHandler) domain.SubscriptionID

	// HasSubscribers reports whether any handler listens to eventType.
	HasSubscribers(eventType domain.EventType) bool

	// Close releases the bus. Publishing after Close is a no-op.
	Close() error
}
