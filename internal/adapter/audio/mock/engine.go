// Package mock provides an in-memory AudioEngine for tests and headless runs.
package mock

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/melodia/internal/domain"
	"github.com/tejashwikalptaru/melodia/internal/ports"
)

// DefaultDuration is the length of every source without an explicit duration.
const DefaultDuration = 3 * time.Minute

// Engine simulates audio playback in memory without producing sound.
// Position only moves through SimulateProgress.
//
// Thread-safety: This implementation is thread-safe.
type Engine struct {
	logger *slog.Logger

	mu          sync.RWMutex
	initialized bool
	sampleRate  int
	tracks      map[domain.TrackHandle]*mockTrack
	nextHandle  domain.TrackHandle
	loads       []string

	// per-source behaviour
	durations map[string]time.Duration
	metadata  map[string]domain.StreamMetadata
	failingAt map[string]error

	failInitialize bool
	failLoad       bool
	failPlay       bool
	loadGate       chan struct{}
}

type mockTrack struct {
	source   string
	duration time.Duration
	position time.Duration
	volume   float64
	status   domain.PlaybackStatus
}

// NewEngine creates a new mock audio engine.
func NewEngine() *Engine {
	return &Engine{
		tracks:     make(map[domain.TrackHandle]*mockTrack),
		nextHandle: 1,
		durations:  make(map[string]time.Duration),
		metadata:   make(map[string]domain.StreamMetadata),
		failingAt:  make(map[string]error),
	}
}

// SetLogger sets the logger for this engine.
func (m *Engine) SetLogger(logger *slog.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = logger
}

// SetFailInitialize makes Initialize fail.
func (m *Engine) SetFailInitialize(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failInitialize = fail
}

// SetFailLoad makes every Load fail.
func (m *Engine) SetFailLoad(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failLoad = fail
}

// SetFailPlay makes Play fail, the way a blocked autoplay would.
func (m *Engine) SetFailPlay(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPlay = fail
}

// FailSource makes loads of one source fail with err.
func (m *Engine) FailSource(source string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failingAt[source] = err
}

// SetDuration sets the duration reported for a source.
func (m *Engine) SetDuration(source string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations[source] = d
}

// SetMetadata sets the embedded tags reported for a source.
func (m *Engine) SetMetadata(source string, meta domain.StreamMetadata) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[source] = meta
}

// HoldLoads makes every subsequent Load block until the returned release
// function is called or the load's context ends.
func (m *Engine) HoldLoads() (release func()) {
	gate := make(chan struct{})
	m.mu.Lock()
	m.loadGate = gate
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			if m.loadGate == gate {
				m.loadGate = nil
			}
			m.mu.Unlock()
			close(gate)
		})
	}
}

// Initialize initializes the mock audio engine.
func (m *Engine) Initialize(sampleRate int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failInitialize {
		return domain.NewAudioEngineError("initialize", "", "mock initialization failed", nil)
	}
	if m.initialized {
		return domain.ErrAlreadyInitialized
	}
	m.initialized = true
	m.sampleRate = sampleRate
	return nil
}

// Shutdown shuts down the mock audio engine.
func (m *Engine) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return domain.ErrNotInitialized
	}
	m.initialized = false
	m.tracks = make(map[domain.TrackHandle]*mockTrack)
	return nil
}

// IsInitialized returns true if the engine is initialized.
func (m *Engine) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// Load registers source and returns a handle to it.
func (m *Engine) Load(ctx context.Context, source string) (domain.TrackHandle, error) {
	m.mu.RLock()
	gate := m.loadGate
	m.mu.RUnlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.InvalidTrackHandle, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return domain.InvalidTrackHandle, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return domain.InvalidTrackHandle, domain.ErrNotInitialized
	}
	if source == "" {
		return domain.InvalidTrackHandle, domain.NewAudioEngineError("load", source, "empty source", domain.ErrUnsupportedFormat)
	}
	if m.failLoad {
		return domain.InvalidTrackHandle, domain.NewAudioEngineError("load", source, "mock load failed", nil)
	}
	if err, ok := m.failingAt[source]; ok {
		return domain.InvalidTrackHandle, domain.NewAudioEngineError("load", source, "mock load failed", err)
	}

	d, ok := m.durations[source]
	if !ok {
		d = DefaultDuration
	}

	handle := m.nextHandle
	m.nextHandle++
	m.tracks[handle] = &mockTrack{
		source:   source,
		duration: d,
		volume:   1.0,
		status:   domain.StatusStopped,
	}
	m.loads = append(m.loads, source)

	if m.logger != nil {
		m.logger.Debug("mock track loaded", slog.String("source", source), slog.Int64("handle", int64(handle)))
	}
	return handle, nil
}

func (m *Engine) track(handle domain.TrackHandle) (*mockTrack, error) {
	if !m.initialized {
		return nil, domain.ErrNotInitialized
	}
	t, ok := m.tracks[handle]
	if !ok {
		return nil, domain.ErrInvalidTrackHandle
	}
	return t, nil
}

// Unload releases a previously loaded track.
func (m *Engine) Unload(handle domain.TrackHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.track(handle); err != nil {
		return err
	}
	delete(m.tracks, handle)
	return nil
}

// Play starts or resumes playback. A track that was stopped starts over.
func (m *Engine) Play(handle domain.TrackHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.track(handle)
	if err != nil {
		return err
	}
	if m.failPlay {
		return domain.NewAudioEngineError("play", t.source, "mock autoplay refused", domain.ErrPlaybackFailed)
	}
	if t.status == domain.StatusStopped {
		t.position = 0
	}
	t.status = domain.StatusPlaying
	return nil
}

// Pause pauses playback.
func (m *Engine) Pause(handle domain.TrackHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.track(handle)
	if err != nil {
		return err
	}
	if t.status == domain.StatusPlaying {
		t.status = domain.StatusPaused
	}
	return nil
}

// Stop stops playback and unloads the track.
func (m *Engine) Stop(handle domain.TrackHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.track(handle); err != nil {
		return err
	}
	delete(m.tracks, handle)
	return nil
}

// Status returns the playback status.
func (m *Engine) Status(handle domain.TrackHandle) (domain.PlaybackStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.track(handle)
	if err != nil {
		return domain.StatusStopped, err
	}
	return t.status, nil
}

// Position returns the current playback position.
func (m *Engine) Position(handle domain.TrackHandle) (time.Duration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.track(handle)
	if err != nil {
		return 0, err
	}
	return t.position, nil
}

// Duration returns the total track duration.
func (m *Engine) Duration(handle domain.TrackHandle) (time.Duration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.track(handle)
	if err != nil {
		return 0, err
	}
	return t.duration, nil
}

// Seek sets the playback position.
func (m *Engine) Seek(handle domain.TrackHandle, position time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.track(handle)
	if err != nil {
		return err
	}
	if position < 0 || position > t.duration {
		return domain.ErrInvalidPosition
	}
	t.position = position
	return nil
}

// SetVolume sets the playback volume.
func (m *Engine) SetVolume(handle domain.TrackHandle, volume float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.track(handle)
	if err != nil {
		return err
	}
	if volume < 0.0 || volume > 1.0 {
		return domain.ErrInvalidVolume
	}
	t.volume = volume
	return nil
}

// GetVolume returns the current volume.
func (m *Engine) GetVolume(handle domain.TrackHandle) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.track(handle)
	if err != nil {
		return 0, err
	}
	return t.volume, nil
}

// Metadata returns the tags configured with SetMetadata for the track's source.
func (m *Engine) Metadata(handle domain.TrackHandle) (domain.StreamMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.track(handle)
	if err != nil {
		return domain.StreamMetadata{}, err
	}
	return m.metadata[t.source], nil
}

// LoadedTracks returns the number of currently loaded tracks.
func (m *Engine) LoadedTracks() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tracks)
}

// Loads returns every source loaded so far, in order.
func (m *Engine) Loads() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.loads))
	copy(out, m.loads)
	return out
}

// ActiveHandle returns the handle of the single loaded track.
func (m *Engine) ActiveHandle() (domain.TrackHandle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for h := range m.tracks {
		if len(m.tracks) == 1 {
			return h, true
		}
	}
	return domain.InvalidTrackHandle, false
}

// SimulateProgress advances a playing track by delta.
// Passing the end stops the track, as a real engine does at end of stream.
func (m *Engine) SimulateProgress(handle domain.TrackHandle, delta time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.track(handle)
	if err != nil {
		return err
	}
	if t.status != domain.StatusPlaying {
		return errors.New("track is not playing")
	}
	t.position += delta
	if t.position >= t.duration {
		t.position = t.duration
		t.status = domain.StatusStopped
	}
	return nil
}

var _ ports.AudioEngine = (*Engine)(nil)
