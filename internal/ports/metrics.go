package ports

import "github.com/tejashwikalptaru/melodia/internal/domain"

// Metrics receives counters from the core services.
type Metrics interface {
	TransitionObserved(reason domain.TransitionReason)
	ResolutionFailed()
	PlayRegistered(result string)
	PlaybackFailed(op string)
	HandlerPanicked(eventType domain.EventType)
}
