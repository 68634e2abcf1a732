// Package service provides the playback session logic for the Melodia client.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/melodia/internal/domain"
	"github.com/tejashwikalptaru/melodia/internal/metrics"
	"github.com/tejashwikalptaru/melodia/internal/ports"
)

// DefaultResolveTimeout bounds a selection's catalog lookups.
const DefaultResolveTimeout = 15 * time.Second

// PlayRegistration is the play-count side effect fired on every playback start.
type PlayRegistration interface {
	Register(track domain.Track) int
}

// SessionService owns the playback session: current track, queue, history,
// replay trigger and the shuffle/repeat modes. Every mutation goes through it
// and is serialized by its mutex.
//
// Each selection takes a sequence number before it is resolved, and every
// user transition bumps it. A resolution that completes after a newer user
// transition is discarded with domain.ErrStaleSelection. The automatic
// advance at the end of a track does not cancel a pending selection.
type SessionService struct {
	logger    *slog.Logger
	resolver  *Resolver
	navigator *Navigator
	plays     PlayRegistration
	bus       ports.EventBus
	metrics   ports.Metrics

	mu      sync.Mutex
	current *domain.Track
	queue   domain.Queue
	history *History
	trigger uint64
	shuffle bool
	repeat  bool
	seq     uint64

	resolveTimeout time.Duration
	subscriptions  []domain.SubscriptionID
	ctx            context.Context
	cancel         context.CancelFunc
	handlers       sync.WaitGroup
	closed         bool
}

// NewSessionService creates a session controller and subscribes it to the
// command events on bus.
func NewSessionService(
	logger *slog.Logger,
	resolver *Resolver,
	navigator *Navigator,
	plays PlayRegistration,
	bus ports.EventBus,
	m ports.Metrics,
) *SessionService {
	if m == nil {
		m = metrics.Nop{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &SessionService{
		logger:         logger,
		resolver:       resolver,
		navigator:      navigator,
		plays:          plays,
		bus:            bus,
		metrics:        m,
		history:        NewHistory(),
		resolveTimeout: DefaultResolveTimeout,
		ctx:            ctx,
		cancel:         cancel,
	}

	s.subscriptions = []domain.SubscriptionID{
		bus.Subscribe(domain.EventPlayRequested, s.onPlayRequested),
		bus.Subscribe(domain.EventAdvanceRequested, s.onAdvanceRequested),
		bus.Subscribe(domain.EventRetreatRequested, s.onRetreatRequested),
		bus.Subscribe(domain.EventShuffleToggled, s.onShuffleToggled),
		bus.Subscribe(domain.EventRepeatToggled, s.onRepeatToggled),
		bus.Subscribe(domain.EventTrackEnded, s.onTrackEnded),
	}

	logger.Debug("session service initialized")
	return s
}

// SetResolveTimeout changes the timeout applied to event-driven selections.
func (s *SessionService) SetResolveTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d > 0 {
		s.resolveTimeout = d
	}
}

// PlayRequested resolves sel and makes it the current track.
//
// The outgoing track, if any, is pushed to the history, even when sel names
// the same track again. On failure the session is left untouched.
func (s *SessionService) PlayRequested(ctx context.Context, sel domain.Selection) error {
	ticket, sessionQueue := s.beginSelection()
	return s.completeSelection(ctx, sel, ticket, sessionQueue)
}

// beginSelection takes a sequence number for a new selection.
func (s *SessionService) beginSelection() (uint64, domain.Queue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq, s.queue.Clone()
}

func (s *SessionService) completeSelection(ctx context.Context, sel domain.Selection, ticket uint64, sessionQueue domain.Queue) error {
	track, queue, err := s.resolver.Resolve(ctx, sel, sessionQueue)
	if err != nil {
		if s.isStale(ticket) {
			s.logger.Debug("dropping failure of superseded selection", slog.String("selection", sel.String()))
			return domain.ErrStaleSelection
		}
		s.metrics.ResolutionFailed()
		s.bus.Publish(domain.NewResolutionFailedEvent(sel, err))
		return err
	}

	s.mu.Lock()
	if s.seq != ticket {
		s.mu.Unlock()
		s.logger.Debug("dropping superseded selection",
			slog.String("selection", sel.String()),
			slog.String("track_id", track.ID))
		return domain.ErrStaleSelection
	}
	if s.current != nil {
		s.history.Push(*s.current)
	}
	s.queue = queue
	change := s.switchToLocked(track, domain.ReasonPlay, true)
	s.mu.Unlock()

	s.announce(change)
	return nil
}

// Advance moves to the next track.
//
// With repeat enabled the current track is re-triggered and nothing else
// changes. Otherwise the navigator picks the next track; at the end of the
// queue nothing changes and domain.ErrEndOfQueue is returned. A selection
// still resolving is superseded.
func (s *SessionService) Advance(_ context.Context) error {
	return s.advance(true)
}

func (s *SessionService) advance(supersede bool) error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return domain.ErrNoTrackLoaded
	}

	if s.repeat {
		change := s.switchToLocked(*s.current, domain.ReasonRepeat, supersede)
		s.mu.Unlock()
		s.announce(change)
		return nil
	}

	next, ok := s.navigator.Next(s.queue, *s.current, s.shuffle)
	if !ok {
		last := *s.current
		s.mu.Unlock()
		s.logger.Debug("end of queue reached", slog.String("track_id", last.ID))
		s.bus.Publish(domain.NewEndOfQueueEvent(last))
		return domain.ErrEndOfQueue
	}

	s.history.Push(*s.current)
	change := s.switchToLocked(next, domain.ReasonAdvance, supersede)
	s.mu.Unlock()

	s.announce(change)
	return nil
}

// TrackEnded handles the natural end of the track started by trigger.
// End notifications for an older trigger are ignored. Unlike Advance it does
// not supersede a selection that is still resolving.
func (s *SessionService) TrackEnded(_ context.Context, track domain.Track, trigger uint64) error {
	s.mu.Lock()
	stale := s.current == nil || s.trigger != trigger || s.current.ID != track.ID
	s.mu.Unlock()

	if stale {
		s.logger.Debug("ignoring end of superseded playback",
			slog.String("track_id", track.ID),
			slog.Uint64("trigger", trigger))
		return domain.ErrStaleSelection
	}
	return s.advance(false)
}

// Retreat goes back to the previous track.
//
// A non-empty history is popped; the track being left is not pushed anywhere.
// With an empty history the track before the current one in the queue is
// used; at index 0, or when the current track is not in the queue, nothing
// changes and domain.ErrStartOfQueue is returned.
func (s *SessionService) Retreat(_ context.Context) error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return domain.ErrNoTrackLoaded
	}

	if prev, ok := s.history.Pop(); ok {
		change := s.switchToLocked(prev, domain.ReasonRetreat, true)
		s.mu.Unlock()
		s.announce(change)
		return nil
	}

	prev, ok := s.queue.Before(s.current.ID)
	if !ok {
		s.mu.Unlock()
		return domain.ErrStartOfQueue
	}
	change := s.switchToLocked(prev, domain.ReasonRetreatIndex, true)
	s.mu.Unlock()

	s.announce(change)
	return nil
}

// ToggleShuffle flips shuffle mode and returns the new value.
func (s *SessionService) ToggleShuffle() bool {
	s.mu.Lock()
	s.shuffle = !s.shuffle
	shuffle, repeat := s.shuffle, s.repeat
	s.mu.Unlock()

	s.bus.Publish(domain.NewModeChangedEvent(shuffle, repeat))
	return shuffle
}

// ToggleRepeat flips repeat-one mode and returns the new value.
func (s *SessionService) ToggleRepeat() bool {
	s.mu.Lock()
	s.repeat = !s.repeat
	shuffle, repeat := s.shuffle, s.repeat
	s.mu.Unlock()

	s.bus.Publish(domain.NewModeChangedEvent(shuffle, repeat))
	return repeat
}

// Snapshot returns a copy of the session state.
func (s *SessionService) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := domain.SessionSnapshot{
		Queue:          s.queue.Clone(),
		History:        s.history.Items(),
		ReplayTrigger:  s.trigger,
		ShuffleEnabled: s.shuffle,
		RepeatEnabled:  s.repeat,
	}
	if s.current != nil {
		t := *s.current
		snap.CurrentTrack = &t
	}
	return snap
}

type transition struct {
	track   domain.Track
	queue   domain.Queue
	trigger uint64
	reason  domain.TransitionReason
}

// switchToLocked makes track current and bumps the trigger; supersede also
// invalidates pending selections. Caller holds s.mu.
func (s *SessionService) switchToLocked(track domain.Track, reason domain.TransitionReason, supersede bool) transition {
	s.current = &track
	s.trigger++
	if supersede {
		s.seq++
	}
	return transition{track: track, queue: s.queue.Clone(), trigger: s.trigger, reason: reason}
}

// announce runs the side effects of a transition outside the lock.
func (s *SessionService) announce(c transition) {
	s.logger.Info("track changed",
		slog.String("track_id", c.track.ID),
		slog.String("title", c.track.Title),
		slog.String("reason", string(c.reason)),
		slog.Uint64("trigger", c.trigger))

	s.metrics.TransitionObserved(c.reason)
	s.bus.Publish(domain.NewTrackChangedEvent(c.track, c.queue, c.trigger, c.reason))
	if s.plays != nil {
		s.plays.Register(c.track)
	}
}

func (s *SessionService) isStale(ticket uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq != ticket
}

// Event handlers. Selections take their sequence number on the publisher's
// goroutine, so the latest click wins, and resolve on a tracked goroutine.
// Navigation commands do no I/O and run inline.

func (s *SessionService) report(name string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrEndOfQueue),
		errors.Is(err, domain.ErrStartOfQueue),
		errors.Is(err, domain.ErrNoTrackLoaded),
		errors.Is(err, domain.ErrStaleSelection):
		s.logger.Debug("command had no effect", slog.String("command", name), slog.String("reason", err.Error()))
	default:
		s.logger.Warn("command failed", slog.String("command", name), slog.String("error", err.Error()))
	}
}

func (s *SessionService) onPlayRequested(event domain.Event) {
	e, ok := event.(domain.PlayRequestedEvent)
	if !ok {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.handlers.Add(1)
	timeout := s.resolveTimeout
	s.mu.Unlock()

	ticket, sessionQueue := s.beginSelection()
	go func() {
		defer s.handlers.Done()
		ctx, cancel := context.WithTimeout(s.ctx, timeout)
		defer cancel()
		s.report("play", s.completeSelection(ctx, e.Selection, ticket, sessionQueue))
	}()
}

func (s *SessionService) onAdvanceRequested(domain.Event) {
	s.report("advance", s.Advance(s.ctx))
}

func (s *SessionService) onRetreatRequested(domain.Event) {
	s.report("retreat", s.Retreat(s.ctx))
}

func (s *SessionService) onShuffleToggled(domain.Event) {
	s.ToggleShuffle()
}

func (s *SessionService) onRepeatToggled(domain.Event) {
	s.ToggleRepeat()
}

func (s *SessionService) onTrackEnded(event domain.Event) {
	e, ok := event.(domain.TrackEndedEvent)
	if !ok {
		return
	}
	s.report("track_ended", s.TrackEnded(s.ctx, e.Track, e.Trigger))
}

// Wait blocks until every selection in flight has finished resolving.
func (s *SessionService) Wait() {
	s.handlers.Wait()
}

// Shutdown unsubscribes from the bus, cancels pending resolutions and waits
// for running handlers.
func (s *SessionService) Shutdown() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	subs := s.subscriptions
	s.subscriptions = nil
	s.mu.Unlock()

	for _, id := range subs {
		s.bus.Unsubscribe(id)
	}
	s.cancel()
	s.handlers.Wait()

	s.logger.Info("session service shut down")
	return nil
}
