package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/melodia/internal/domain"
	"github.com/tejashwikalptaru/melodia/internal/metrics"
	"github.com/tejashwikalptaru/melodia/internal/ports"
)

// TransportConfig holds the transport's tunables.
type TransportConfig struct {
	// UpdateInterval is how often progress is polled and reported.
	UpdateInterval time.Duration

	// Volume is the starting volume (0.0-1.0).
	Volume float64
}

// DefaultTransportConfig returns 3 progress updates per second at 80% volume.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		UpdateInterval: 333 * time.Millisecond,
		Volume:         0.8,
	}
}

// TransportService drives the audio engine from the session's track changes.
//
// It reloads whenever the (track id, replay trigger) pair changes and walks
// idle -> loading -> playing, falling back to paused when autoplay fails and
// to idle when the source cannot be loaded. A load that completes after a
// newer change is thrown away.
//
// While the user drags the seek control, progress reporting is suppressed and
// the displayed position follows the drag. Releasing seeks the engine and
// resumes playback if it was playing when the drag started.
type TransportService struct {
	logger  *slog.Logger
	engine  ports.AudioEngine
	bus     ports.EventBus
	metrics ports.Metrics

	mu          sync.Mutex
	state       domain.TransportState
	track       *domain.Track
	trigger     uint64
	handle      domain.TrackHandle
	duration    time.Duration
	volume      float64
	generation  uint64
	cancelLoad  context.CancelFunc
	ended       bool
	dragging    bool
	dragPos     time.Duration
	dragGen     uint64
	dragResumes bool
	dragDropped bool

	subscription   domain.SubscriptionID
	updateInterval time.Duration
	stopUpdate     chan struct{}
	updateWg       sync.WaitGroup
	loaders        sync.WaitGroup
	closed         bool
}

// NewTransportService creates the transport, subscribes it to track changes
// and starts the progress loop.
func NewTransportService(
	logger *slog.Logger,
	engine ports.AudioEngine,
	bus ports.EventBus,
	m ports.Metrics,
	cfg TransportConfig,
) *TransportService {
	if m == nil {
		m = metrics.Nop{}
	}
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = DefaultTransportConfig().UpdateInterval
	}
	if cfg.Volume < 0 || cfg.Volume > 1 {
		cfg.Volume = DefaultTransportConfig().Volume
	}

	s := &TransportService{
		logger:         logger,
		engine:         engine,
		bus:            bus,
		metrics:        m,
		state:          domain.TransportIdle,
		handle:         domain.InvalidTrackHandle,
		volume:         cfg.Volume,
		updateInterval: cfg.UpdateInterval,
		stopUpdate:     make(chan struct{}),
	}
	s.subscription = bus.Subscribe(domain.EventTrackChanged, s.onTrackChanged)

	s.updateWg.Add(1)
	go s.updateLoop()

	logger.Debug("transport service initialized", slog.Duration("update_interval", cfg.UpdateInterval))
	return s
}

func (s *TransportService) onTrackChanged(event domain.Event) {
	e, ok := event.(domain.TrackChangedEvent)
	if !ok {
		return
	}
	s.Load(e.Track, e.Trigger)
}

// Load switches the transport to track for the given trigger. Triggers that
// are not newer than the last one seen are ignored.
func (s *TransportService) Load(track domain.Track, trigger uint64) {
	s.mu.Lock()
	if s.closed || trigger <= s.trigger {
		s.mu.Unlock()
		return
	}

	s.trigger = trigger
	s.generation++
	gen := s.generation
	if s.cancelLoad != nil {
		s.cancelLoad()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelLoad = cancel

	s.releaseHandleLocked()
	if s.dragging {
		s.dragging = false
		s.dragDropped = true
	}
	s.ended = false
	s.track = &track
	s.state = domain.TransportLoading
	s.loaders.Add(1)
	s.mu.Unlock()

	s.logger.Debug("loading track",
		slog.String("track_id", track.ID),
		slog.String("source", track.AudioRef),
		slog.Uint64("trigger", trigger))
	s.bus.Publish(domain.NewTransportStateChangedEvent(domain.TransportLoading, &track))

	go func() {
		defer s.loaders.Done()
		defer cancel()
		s.load(ctx, gen, track)
	}()
}

func (s *TransportService) load(ctx context.Context, gen uint64, track domain.Track) {
	handle, err := s.engine.Load(ctx, track.AudioRef)

	s.mu.Lock()
	if gen != s.generation || s.closed {
		s.mu.Unlock()
		if err == nil {
			_ = s.engine.Stop(handle)
		}
		s.logger.Debug("discarding superseded load", slog.String("track_id", track.ID))
		return
	}

	if err != nil {
		s.state = domain.TransportIdle
		s.mu.Unlock()

		s.metrics.PlaybackFailed("load")
		s.logger.Warn("failed to load track",
			slog.String("track_id", track.ID),
			slog.String("error", err.Error()))
		s.bus.Publish(domain.NewPlaybackErrorEvent(track, "load", err))
		s.bus.Publish(domain.NewTransportStateChangedEvent(domain.TransportIdle, &track))
		return
	}

	s.handle = handle
	if d, derr := s.engine.Duration(handle); derr == nil {
		s.duration = d
	} else {
		s.duration = 0
	}
	if verr := s.engine.SetVolume(handle, s.volume); verr != nil {
		s.logger.Warn("failed to apply volume", slog.String("error", verr.Error()))
	}
	meta, merr := s.engine.Metadata(handle)
	if merr != nil {
		s.logger.Debug("no stream metadata", slog.String("error", merr.Error()))
	}

	playErr := s.engine.Play(handle)
	if playErr != nil {
		s.state = domain.TransportPaused
	} else {
		s.state = domain.TransportPlaying
	}
	state, duration := s.state, s.duration
	s.mu.Unlock()

	s.bus.Publish(domain.NewTrackLoadedEvent(track, duration, meta))
	if playErr != nil {
		s.metrics.PlaybackFailed("play")
		s.logger.Warn("autoplay failed, waiting for the user",
			slog.String("track_id", track.ID),
			slog.String("error", playErr.Error()))
		s.bus.Publish(domain.NewPlaybackErrorEvent(track, "play", playErr))
	}
	s.bus.Publish(domain.NewTransportStateChangedEvent(state, &track))
}

// releaseHandleLocked stops and forgets the current handle. Caller holds s.mu.
func (s *TransportService) releaseHandleLocked() {
	if !s.handle.IsValid() {
		return
	}
	if err := s.engine.Stop(s.handle); err != nil {
		s.logger.Warn("failed to stop previous track", slog.String("error", err.Error()))
	}
	s.handle = domain.InvalidTrackHandle
	s.duration = 0
}

// TogglePlay switches between playing and paused without touching the
// source. A track that played to its end starts over.
func (s *TransportService) TogglePlay() error {
	s.mu.Lock()
	if !s.handle.IsValid() {
		s.mu.Unlock()
		return domain.ErrNoTrackLoaded
	}

	var err error
	switch s.state {
	case domain.TransportPlaying:
		if err = s.engine.Pause(s.handle); err == nil {
			s.state = domain.TransportPaused
		}
	case domain.TransportPaused:
		if err = s.engine.Play(s.handle); err == nil {
			s.state = domain.TransportPlaying
			s.ended = false
		}
	default:
		s.mu.Unlock()
		return nil
	}
	state, track := s.state, s.trackCopyLocked()
	s.mu.Unlock()

	if err != nil {
		s.metrics.PlaybackFailed("toggle")
		if track != nil {
			s.bus.Publish(domain.NewPlaybackErrorEvent(*track, "toggle", err))
		}
		return domain.NewServiceError("TransportService", "TogglePlay", "engine refused", err)
	}
	s.bus.Publish(domain.NewTransportStateChangedEvent(state, track))
	return nil
}

// BeginSeek starts a drag of the seek control.
func (s *TransportService) BeginSeek() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dragDropped = false
	s.beginSeekLocked()
}

func (s *TransportService) beginSeekLocked() {
	if s.dragging || !s.handle.IsValid() {
		return
	}
	s.dragging = true
	s.dragGen = s.generation
	s.dragResumes = s.state == domain.TransportPlaying
	if pos, err := s.engine.Position(s.handle); err == nil {
		s.dragPos = pos
	}
}

// UpdateSeek moves the displayed position during a drag.
func (s *TransportService) UpdateSeek(position time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dragDropped {
		return
	}
	s.beginSeekLocked()
	if s.dragging {
		s.dragPos = s.clampLocked(position)
	}
}

// EndSeek releases the drag at position. The engine seeks there, and
// playback resumes if it was playing when the drag began. Without a prior
// BeginSeek it acts as a click on the seek control. A release that belongs
// to a track that has since been replaced is dropped.
func (s *TransportService) EndSeek(position time.Duration) error {
	s.mu.Lock()
	if s.dragDropped {
		s.dragDropped = false
		s.mu.Unlock()
		return nil
	}
	s.beginSeekLocked()
	if !s.dragging {
		s.mu.Unlock()
		return domain.ErrNoTrackLoaded
	}
	s.dragging = false
	if s.dragGen != s.generation || !s.handle.IsValid() {
		s.mu.Unlock()
		return nil
	}

	target := s.clampLocked(position)
	if err := s.engine.Seek(s.handle, target); err != nil {
		s.mu.Unlock()
		return domain.NewServiceError("TransportService", "EndSeek", "seek failed", err)
	}

	resumed := false
	if s.dragResumes && s.state != domain.TransportPlaying {
		if err := s.engine.Play(s.handle); err == nil {
			s.state = domain.TransportPlaying
			resumed = true
		}
	}
	duration, track := s.duration, s.trackCopyLocked()
	s.mu.Unlock()

	s.bus.Publish(domain.NewTrackProgressEvent(target, duration))
	if resumed {
		s.bus.Publish(domain.NewTransportStateChangedEvent(domain.TransportPlaying, track))
	}
	return nil
}

func (s *TransportService) clampLocked(position time.Duration) time.Duration {
	if position < 0 {
		return 0
	}
	if s.duration > 0 && position > s.duration {
		return s.duration
	}
	return position
}

// SetVolume sets the volume for this and every later track. It is not persisted.
func (s *TransportService) SetVolume(volume float64) error {
	if volume < 0 || volume > 1 {
		return domain.NewValidationError("volume", volume, domain.ErrInvalidVolume.Error())
	}

	s.mu.Lock()
	s.volume = volume
	if s.handle.IsValid() {
		if err := s.engine.SetVolume(s.handle, volume); err != nil {
			s.logger.Warn("failed to apply volume", slog.String("error", err.Error()))
		}
	}
	s.mu.Unlock()

	s.bus.Publish(domain.NewVolumeChangedEvent(volume))
	return nil
}

// Snapshot returns a copy of the transport state. While dragging, Position
// is the dragged position.
func (s *TransportService) Snapshot() domain.TransportSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := domain.TransportSnapshot{
		State:    s.state,
		Track:    s.trackCopyLocked(),
		Trigger:  s.trigger,
		Duration: s.duration,
		Volume:   s.volume,
		Dragging: s.dragging,
	}
	switch {
	case s.dragging:
		snap.Position = s.dragPos
	case s.handle.IsValid():
		if pos, err := s.engine.Position(s.handle); err == nil {
			snap.Position = pos
		}
	}
	return snap
}

// IsPlaying reports whether audio is being rendered.
func (s *TransportService) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == domain.TransportPlaying
}

func (s *TransportService) trackCopyLocked() *domain.Track {
	if s.track == nil {
		return nil
	}
	t := *s.track
	return &t
}

func (s *TransportService) updateLoop() {
	defer s.updateWg.Done()

	ticker := time.NewTicker(s.updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Poll()
		case <-s.stopUpdate:
			return
		}
	}
}

// Poll reports progress once and detects the natural end of the track.
// The progress loop calls it on every tick.
func (s *TransportService) Poll() {
	s.mu.Lock()
	if s.state != domain.TransportPlaying || !s.handle.IsValid() {
		s.mu.Unlock()
		return
	}

	status, err := s.engine.Status(s.handle)
	if err != nil {
		s.mu.Unlock()
		return
	}

	if status == domain.StatusStopped {
		s.state = domain.TransportPaused
		s.ended = true
		track, trigger, duration := s.trackCopyLocked(), s.trigger, s.duration
		s.mu.Unlock()

		s.logger.Debug("track ended", slog.String("track_id", track.ID), slog.Uint64("trigger", trigger))
		s.bus.Publish(domain.NewTrackProgressEvent(duration, duration))
		s.bus.Publish(domain.NewTransportStateChangedEvent(domain.TransportPaused, track))
		s.bus.Publish(domain.NewTrackEndedEvent(*track, trigger))
		return
	}

	if s.dragging {
		s.mu.Unlock()
		return
	}
	pos, err := s.engine.Position(s.handle)
	duration := s.duration
	s.mu.Unlock()

	if err == nil {
		s.bus.Publish(domain.NewTrackProgressEvent(pos, duration))
	}
}

// WaitForLoad blocks until every pending load finished.
func (s *TransportService) WaitForLoad() {
	s.loaders.Wait()
}

// Shutdown stops the progress loop, cancels pending loads and releases the engine handle.
func (s *TransportService) Shutdown() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.cancelLoad != nil {
		s.cancelLoad()
	}
	s.mu.Unlock()

	s.bus.Unsubscribe(s.subscription)
	close(s.stopUpdate)
	s.updateWg.Wait()
	s.loaders.Wait()

	s.mu.Lock()
	s.releaseHandleLocked()
	s.state = domain.TransportIdle
	s.mu.Unlock()

	s.logger.Info("transport service shut down")
	return nil
}
