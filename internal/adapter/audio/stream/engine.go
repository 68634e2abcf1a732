// Package stream provides an AudioEngine that plays MP3, WAV, FLAC and Ogg
// Vorbis resources fetched over HTTP, decoded and mixed with gopxl/beep.
package stream

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/tejashwikalptaru/melodia/internal/domain"
	"github.com/tejashwikalptaru/melodia/internal/ports"
)

const (
	DefaultSampleRate = 44100

	// DownloadTimeout bounds fetching one audio resource.
	DownloadTimeout = 60 * time.Second

	// resampleQuality is beep's interpolation quality for rate conversion.
	resampleQuality = 4
)

// Engine plays tracks on the process-wide beep speaker.
//
// A loaded track stays silent until Play. The first Play builds its
// pipeline (resampler, volume, pause control) and hands it to the speaker;
// the pipeline's trailing callback marks the track finished.
//
// Thread-safety: e.mu guards the track table. Fields read by the speaker
// goroutine are only touched under speaker.Lock.
type Engine struct {
	logger     *slog.Logger
	httpClient *http.Client

	mu          sync.RWMutex
	initialized bool
	sampleRate  beep.SampleRate
	tracks      map[domain.TrackHandle]*track
	nextHandle  domain.TrackHandle
}

type track struct {
	source   string
	streamer beep.StreamSeekCloser
	format   beep.Format
	meta     domain.StreamMetadata
	volume   float64

	ctrl     *beep.Ctrl
	gain     *effects.Volume
	finished atomic.Bool
}

// NewEngine creates an engine that downloads with client. A nil client
// uses one limited to DownloadTimeout.
func NewEngine(logger *slog.Logger, client *http.Client) *Engine {
	if client == nil {
		client = &http.Client{Timeout: DownloadTimeout}
	}
	return &Engine{
		logger:     logger,
		httpClient: client,
		tracks:     make(map[domain.TrackHandle]*track),
		nextHandle: 1,
	}
}

// Initialize opens the speaker at sampleRate with a 100ms buffer.
func (e *Engine) Initialize(sampleRate int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return domain.ErrAlreadyInitialized
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	sr := beep.SampleRate(sampleRate)
	if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
		return domain.NewAudioEngineError("initialize", "", "failed to open audio device", err)
	}
	e.sampleRate = sr
	e.initialized = true

	e.logger.Info("audio device opened", slog.Int("sample_rate", sampleRate))
	return nil
}

// Shutdown stops every track and closes the speaker.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return domain.ErrNotInitialized
	}
	for handle, t := range e.tracks {
		e.release(t)
		delete(e.tracks, handle)
	}
	speaker.Clear()
	speaker.Close()
	e.initialized = false
	return nil
}

// IsInitialized reports whether the speaker is open.
func (e *Engine) IsInitialized() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.initialized
}

// Load fetches and decodes source. Nothing is audible until Play.
func (e *Engine) Load(ctx context.Context, source string) (domain.TrackHandle, error) {
	if !e.IsInitialized() {
		return domain.InvalidTrackHandle, domain.ErrNotInitialized
	}

	t, err := e.open(ctx, source)
	if err != nil {
		return domain.InvalidTrackHandle, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		_ = t.streamer.Close()
		return domain.InvalidTrackHandle, domain.ErrNotInitialized
	}
	handle := e.nextHandle
	e.nextHandle++
	e.tracks[handle] = t

	e.logger.Debug("track decoded",
		slog.String("source", source),
		slog.Int("sample_rate", int(t.format.SampleRate)),
		slog.Duration("duration", t.format.SampleRate.D(t.streamer.Len())))
	return handle, nil
}

func (e *Engine) open(ctx context.Context, source string) (*track, error) {
	data, err := fetch(ctx, e.httpClient, source)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.NewAudioEngineError("load", source, "cancelled", err)
	}

	container := sniffFormat(data)
	streamer, format, err := decode(container, data)
	if err != nil {
		return nil, domain.NewAudioEngineError("load", source, "not a decodable "+container+" stream", domain.ErrUnsupportedFormat)
	}

	return &track{
		source:   source,
		streamer: streamer,
		format:   format,
		meta:     readMetadata(data),
		volume:   1.0,
	}, nil
}

func (e *Engine) lookup(handle domain.TrackHandle) (*track, error) {
	if !e.initialized {
		return nil, domain.ErrNotInitialized
	}
	t, ok := e.tracks[handle]
	if !ok {
		return nil, domain.ErrInvalidTrackHandle
	}
	return t, nil
}

// release detaches t from the speaker and closes its decoder. Caller holds e.mu.
func (e *Engine) release(t *track) {
	speaker.Lock()
	if t.ctrl != nil {
		t.ctrl.Streamer = nil
	}
	speaker.Unlock()
	if err := t.streamer.Close(); err != nil {
		e.logger.Warn("failed to close decoder", slog.String("source", t.source), slog.String("error", err.Error()))
	}
}

// Unload releases a track.
func (e *Engine) Unload(handle domain.TrackHandle) error {
	return e.Stop(handle)
}

// Play starts or resumes playback. A track that ran to its end starts over.
func (e *Engine) Play(handle domain.TrackHandle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.lookup(handle)
	if err != nil {
		return err
	}

	if t.ctrl != nil && !t.finished.Load() {
		speaker.Lock()
		t.ctrl.Paused = false
		speaker.Unlock()
		return nil
	}

	speaker.Lock()
	if t.streamer.Position() >= t.streamer.Len() {
		if err := t.streamer.Seek(0); err != nil {
			speaker.Unlock()
			return domain.NewAudioEngineError("play", t.source, "failed to rewind", err)
		}
	}
	speaker.Unlock()

	t.finished.Store(false)
	resampled := beep.Resample(resampleQuality, t.format.SampleRate, e.sampleRate, t.streamer)
	t.gain = &effects.Volume{Streamer: resampled, Base: 2}
	applyVolume(t.gain, t.volume)
	t.ctrl = &beep.Ctrl{Streamer: t.gain}

	speaker.Play(beep.Seq(t.ctrl, beep.Callback(func() {
		t.finished.Store(true)
	})))
	return nil
}

// Pause pauses playback.
func (e *Engine) Pause(handle domain.TrackHandle) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	t, err := e.lookup(handle)
	if err != nil {
		return err
	}
	if t.ctrl != nil {
		speaker.Lock()
		t.ctrl.Paused = true
		speaker.Unlock()
	}
	return nil
}

// Stop stops playback and releases the track.
func (e *Engine) Stop(handle domain.TrackHandle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.lookup(handle)
	if err != nil {
		return err
	}
	e.release(t)
	delete(e.tracks, handle)
	return nil
}

// Status reports the track's playback status.
func (e *Engine) Status(handle domain.TrackHandle) (domain.PlaybackStatus, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	t, err := e.lookup(handle)
	if err != nil {
		return domain.StatusStopped, err
	}
	if t.ctrl == nil || t.finished.Load() {
		return domain.StatusStopped, nil
	}

	speaker.Lock()
	paused := t.ctrl.Paused
	speaker.Unlock()
	if paused {
		return domain.StatusPaused, nil
	}
	return domain.StatusPlaying, nil
}

// Position returns the playback position.
func (e *Engine) Position(handle domain.TrackHandle) (time.Duration, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	t, err := e.lookup(handle)
	if err != nil {
		return 0, err
	}
	speaker.Lock()
	pos := t.streamer.Position()
	speaker.Unlock()
	return t.format.SampleRate.D(pos), nil
}

// Duration returns the track length.
func (e *Engine) Duration(handle domain.TrackHandle) (time.Duration, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	t, err := e.lookup(handle)
	if err != nil {
		return 0, err
	}
	return t.format.SampleRate.D(t.streamer.Len()), nil
}

// Seek moves the playback position.
func (e *Engine) Seek(handle domain.TrackHandle, position time.Duration) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	t, err := e.lookup(handle)
	if err != nil {
		return err
	}
	n := t.format.SampleRate.N(position)
	if n < 0 || n > t.streamer.Len() {
		return domain.ErrInvalidPosition
	}

	speaker.Lock()
	defer speaker.Unlock()
	if err := t.streamer.Seek(n); err != nil {
		return domain.NewAudioEngineError("seek", t.source, "decoder refused seek", err)
	}
	return nil
}

// SetVolume sets the track's volume (0.0-1.0).
func (e *Engine) SetVolume(handle domain.TrackHandle, volume float64) error {
	if volume < 0 || volume > 1 {
		return domain.ErrInvalidVolume
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.lookup(handle)
	if err != nil {
		return err
	}
	t.volume = volume
	if t.gain != nil {
		speaker.Lock()
		applyVolume(t.gain, volume)
		speaker.Unlock()
	}
	return nil
}

// GetVolume returns the track's volume.
func (e *Engine) GetVolume(handle domain.TrackHandle) (float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	t, err := e.lookup(handle)
	if err != nil {
		return 0, err
	}
	return t.volume, nil
}

// Metadata returns the tags embedded in the track.
func (e *Engine) Metadata(handle domain.TrackHandle) (domain.StreamMetadata, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	t, err := e.lookup(handle)
	if err != nil {
		return domain.StreamMetadata{}, err
	}
	return t.meta, nil
}

// applyVolume maps a linear 0-1 level onto the base-2 gain exponent.
func applyVolume(v *effects.Volume, level float64) {
	v.Silent = level <= 0
	if v.Silent {
		v.Volume = 0
		return
	}
	v.Volume = gainExponent(level)
}

func gainExponent(level float64) float64 {
	return math.Log2(level)
}

var _ ports.AudioEngine = (*Engine)(nil)
