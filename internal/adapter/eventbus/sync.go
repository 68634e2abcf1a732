// Package eventbus provides the in-process event bus that connects the UI,
// the session controller and the audio transport.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/tejashwikalptaru/melodia/internal/domain"
	"github.com/tejashwikalptaru/melodia/internal/ports"
)

// ErrClosed is returned by Close on a bus that was already closed.
var ErrClosed = errors.New("event bus already closed")

// PanicHook is told about every handler panic that the bus recovered.
type PanicHook func(eventType domain.EventType, recovered any)

// SyncEventBus delivers events synchronously, in subscription order,
// on the publisher's goroutine. Typed subscribers run before wildcard ones.
//
// Thread-safety: Publish, Subscribe and Unsubscribe may be called concurrently.
// A handler may publish or unsubscribe re-entrantly; it sees the subscriber
// list as it was when the outer Publish started.
type SyncEventBus struct {
	logger  *slog.Logger
	onPanic PanicHook

	mu       sync.RWMutex
	byType   map[domain.EventType][]subscription
	wildcard []subscription
	closed   bool

	nextID atomic.Uint64
}

type subscription struct {
	id      domain.SubscriptionID
	handler domain.EventHandler
}

// NewSyncEventBus creates a new synchronous event bus.
func NewSyncEventBus() *SyncEventBus {
	return &SyncEventBus{
		byType: make(map[domain.EventType][]subscription),
	}
}

// SetLogger sets the logger for this event bus.
func (bus *SyncEventBus) SetLogger(logger *slog.Logger) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.logger = logger
}

// SetPanicHook registers a hook that is called after a handler panic was recovered.
func (bus *SyncEventBus) SetPanicHook(hook PanicHook) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.onPanic = hook
}

// Publish delivers event to its subscribers. Nil events and publishing on a
// closed bus are ignored. A panicking handler does not stop delivery.
func (bus *SyncEventBus) Publish(event domain.Event) {
	if event == nil {
		return
	}

	bus.mu.RLock()
	if bus.closed {
		bus.mu.RUnlock()
		return
	}
	targets := make([]subscription, 0, len(bus.byType[event.Type()])+len(bus.wildcard))
	targets = append(targets, bus.byType[event.Type()]...)
	targets = append(targets, bus.wildcard...)
	logger, hook := bus.logger, bus.onPanic
	bus.mu.RUnlock()

	for _, sub := range targets {
		bus.deliver(logger, hook, sub, event)
	}
}

func (bus *SyncEventBus) deliver(logger *slog.Logger, hook PanicHook, sub subscription, event domain.Event) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if logger != nil {
			logger.Error("event handler panicked",
				slog.Any("panic", r),
				slog.String("event_type", string(event.Type())),
				slog.String("subscription", string(sub.id)))
		}
		if hook != nil {
			hook(event.Type(), r)
		}
	}()

	if logger != nil && logger.Enabled(context.Background(), slog.LevelDebug) {
		logger.Debug("delivering event",
			slog.String("event_type", string(event.Type())),
			slog.String("handler", handlerName(sub.handler)))
	}
	sub.handler(event)
}

func handlerName(h domain.EventHandler) string {
	fn := runtime.FuncForPC(reflect.ValueOf(h).Pointer())
	if fn == nil {
		return "unknown"
	}
	return fn.Name()
}

// Subscribe registers a handler for events of the given type.
// It panics on a nil handler or a closed bus; both are programming errors.
func (bus *SyncEventBus) Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID {
	if handler == nil {
		panic("eventbus: nil handler")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	if bus.closed {
		panic("eventbus: subscribe on closed bus")
	}

	id := domain.SubscriptionID(fmt.Sprintf("%s#%d", eventType, bus.nextID.Add(1)))
	bus.byType[eventType] = append(bus.byType[eventType], subscription{id: id, handler: handler})
	return id
}

// SubscribeAll registers a handler that receives every event.
func (bus *SyncEventBus) SubscribeAll(handler domain.EventHandler) domain.SubscriptionID {
	if handler == nil {
		panic("eventbus: nil handler")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	if bus.closed {
		panic("eventbus: subscribe on closed bus")
	}

	id := domain.SubscriptionID(fmt.Sprintf("*#%d", bus.nextID.Add(1)))
	bus.wildcard = append(bus.wildcard, subscription{id: id, handler: handler})
	return id
}

// Unsubscribe removes a subscription, keeping the order of the others.
// Unknown ids are ignored.
func (bus *SyncEventBus) Unsubscribe(id domain.SubscriptionID) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	match := func(s subscription) bool { return s.id == id }
	for eventType, subs := range bus.byType {
		if i := slices.IndexFunc(subs, match); i >= 0 {
			bus.byType[eventType] = slices.Delete(slices.Clone(subs), i, i+1)
			return
		}
	}
	if i := slices.IndexFunc(bus.wildcard, match); i >= 0 {
		bus.wildcard = slices.Delete(slices.Clone(bus.wildcard), i, i+1)
	}
}

// HasSubscribers reports whether publishing eventType would reach any handler.
func (bus *SyncEventBus) HasSubscribers(eventType domain.EventType) bool {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	return len(bus.byType[eventType]) > 0 || len(bus.wildcard) > 0
}

// Close drops every subscription. Returns ErrClosed if already closed.
func (bus *SyncEventBus) Close() error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		return ErrClosed
	}
	bus.closed = true
	bus.byType = make(map[domain.EventType][]subscription)
	bus.wildcard = nil
	return nil
}

// SubscriberCount returns the number of live subscriptions.
func (bus *SyncEventBus) SubscriberCount() int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	n := len(bus.wildcard)
	for _, subs := range bus.byType {
		n += len(subs)
	}
	return n
}

var _ ports.EventBus = (*SyncEventBus)(nil)
