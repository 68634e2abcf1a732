// Package fyne provides the desktop UI on the Fyne toolkit.
package fyne

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tejashwikalptaru/melodia/internal/domain"
	"github.com/tejashwikalptaru/melodia/internal/ports"
	"github.com/tejashwikalptaru/melodia/internal/service"
)

// UIView is what the presenter drives. Calls may arrive on any goroutine;
// implementations marshal them onto the UI thread.
type UIView interface {
	SetNowPlaying(track *domain.Track)
	SetPlayCount(count int)
	SetPlayState(playing bool)
	SetLoading(loading bool)
	SetModes(shuffle, repeat bool)
	SetProgress(position, duration time.Duration)
	SetVolume(volume float64)
	SetArtwork(imageData []byte)
	ClearArtwork()
	SetQueue(queue domain.Queue, currentID string)
	ShowNotice(title, message string)
}

// Presenter turns bus events into view updates and view gestures into
// commands. Session commands go out as events; the transport is driven
// directly since it only owns the audio element.
//
// Thread-safety: All operations are thread-safe via sync.RWMutex.
type Presenter struct {
	logger    *slog.Logger
	bus       ports.EventBus
	session   *service.SessionService
	transport *service.TransportService
	catalog   ports.Catalog
	browser   ports.CatalogBrowser
	view      UIView

	mu            sync.RWMutex
	current       *domain.Track
	queue         domain.Queue
	subscriptions []domain.SubscriptionID
	shutdownOnce  sync.Once
}

// NewPresenter creates a presenter, subscribes it and pushes the current
// state to view.
func NewPresenter(
	logger *slog.Logger,
	bus ports.EventBus,
	session *service.SessionService,
	transport *service.TransportService,
	catalog ports.Catalog,
	browser ports.CatalogBrowser,
	view UIView,
) *Presenter {
	p := &Presenter{
		logger:    logger,
		bus:       bus,
		session:   session,
		transport: transport,
		catalog:   catalog,
		browser:   browser,
		view:      view,
	}
	p.subscribeToEvents()
	p.syncInitialState()
	return p
}

func (p *Presenter) subscribeToEvents() {
	subscriptions := map[domain.EventType]domain.EventHandler{
		domain.EventTrackChanged:          p.onTrackChanged,
		domain.EventTransportStateChanged: p.onTransportStateChanged,
		domain.EventTrackLoaded:           p.onTrackLoaded,
		domain.EventTrackProgress:         p.onTrackProgress,
		domain.EventModeChanged:           p.onModeChanged,
		domain.EventPlayCountChanged:      p.onPlayCountChanged,
		domain.EventVolumeChanged:         p.onVolumeChanged,
		domain.EventResolutionFailed:      p.onResolutionFailed,
		domain.EventPlaybackError:         p.onPlaybackError,
		domain.EventEndOfQueue:            p.onEndOfQueue,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for eventType, handler := range subscriptions {
		p.subscriptions = append(p.subscriptions, p.bus.Subscribe(eventType, handler))
	}
}

func (p *Presenter) syncInitialState() {
	snap := p.session.Snapshot()
	ts := p.transport.Snapshot()

	p.mu.Lock()
	p.current = snap.CurrentTrack
	p.queue = snap.Queue
	p.mu.Unlock()

	p.view.SetModes(snap.ShuffleEnabled, snap.RepeatEnabled)
	p.view.SetVolume(ts.Volume)
	p.view.SetNowPlaying(snap.CurrentTrack)
	p.view.SetPlayState(ts.State == domain.TransportPlaying)
	p.view.SetLoading(ts.State == domain.TransportLoading)
	p.view.SetProgress(ts.Position, ts.Duration)
	p.view.SetQueue(snap.Queue, currentID(snap.CurrentTrack))
	p.view.ClearArtwork()
}

func currentID(t *domain.Track) string {
	if t == nil {
		return ""
	}
	return t.ID
}

// Event handlers

func (p *Presenter) onTrackChanged(event domain.Event) {
	e, ok := event.(domain.TrackChangedEvent)
	if !ok {
		return
	}

	track := e.Track
	p.mu.Lock()
	p.current = &track
	p.queue = e.Queue
	p.mu.Unlock()

	p.view.SetNowPlaying(&track)
	p.view.SetQueue(e.Queue, track.ID)
	p.view.ClearArtwork()
	p.view.SetProgress(0, 0)
}

func (p *Presenter) onTransportStateChanged(event domain.Event) {
	e, ok := event.(domain.TransportStateChangedEvent)
	if !ok {
		return
	}
	p.view.SetPlayState(e.State == domain.TransportPlaying)
	p.view.SetLoading(e.State == domain.TransportLoading)
}

func (p *Presenter) onTrackLoaded(event domain.Event) {
	e, ok := event.(domain.TrackLoadedEvent)
	if !ok {
		return
	}
	p.view.SetProgress(0, e.Duration)
	if e.Metadata.HasArtwork() {
		p.view.SetArtwork(e.Metadata.Artwork)
	}
}

func (p *Presenter) onTrackProgress(event domain.Event) {
	e, ok := event.(domain.TrackProgressEvent)
	if !ok {
		return
	}
	p.view.SetProgress(e.Position, e.Duration)
}

func (p *Presenter) onModeChanged(event domain.Event) {
	e, ok := event.(domain.ModeChangedEvent)
	if !ok {
		return
	}
	p.view.SetModes(e.Shuffle, e.Repeat)
}

func (p *Presenter) onPlayCountChanged(event domain.Event) {
	e, ok := event.(domain.PlayCountChangedEvent)
	if !ok {
		return
	}

	p.mu.Lock()
	isCurrent := p.current != nil && p.current.ID == e.TrackID
	if isCurrent {
		p.current.PlayCount = e.Count
	}
	p.mu.Unlock()

	if isCurrent {
		p.view.SetPlayCount(e.Count)
	}
}

func (p *Presenter) onVolumeChanged(event domain.Event) {
	e, ok := event.(domain.VolumeChangedEvent)
	if !ok {
		return
	}
	p.view.SetVolume(e.Volume)
}

func (p *Presenter) onResolutionFailed(event domain.Event) {
	e, ok := event.(domain.ResolutionFailedEvent)
	if !ok {
		return
	}
	p.view.ShowNotice("Cannot play", describeResolution(e.Err))
}

func describeResolution(err error) string {
	switch {
	case errors.Is(err, domain.ErrTrackNotFound):
		return "That song is no longer available."
	case errors.Is(err, domain.ErrAlbumNotFound), errors.Is(err, domain.ErrPlaylistNotFound):
		return "That collection is no longer available."
	case errors.Is(err, domain.ErrQueueEmpty):
		return "There is nothing to play here."
	default:
		return "The catalog could not be reached. Try again."
	}
}

func (p *Presenter) onPlaybackError(event domain.Event) {
	e, ok := event.(domain.PlaybackErrorEvent)
	if !ok {
		return
	}
	switch e.Op {
	case "load":
		p.view.ShowNotice("Playback error", fmt.Sprintf("%q could not be loaded.", e.Track.Title))
	case "play":
		p.view.ShowNotice("Playback paused", "Press play to start.")
	}
}

func (p *Presenter) onEndOfQueue(domain.Event) {
	p.view.SetPlayState(false)
}

// UI command handlers (called by the view)

// OnPlayRequested asks the session to play sel.
func (p *Presenter) OnPlayRequested(sel domain.Selection) {
	p.logger.Debug("play requested", slog.String("selection", sel.String()))
	p.bus.Publish(domain.NewPlayRequestedEvent(sel))
}

// OnSongSelected plays a song from the flat catalog list on its own.
func (p *Presenter) OnSongSelected(track domain.Track) {
	p.OnPlayRequested(domain.SelectTrack(track, domain.Queue{track}))
}

// OnAlbumTrackSelected plays trackID within its album.
func (p *Presenter) OnAlbumTrackSelected(albumID, trackID string) {
	p.OnPlayRequested(domain.SelectAlbum(albumID, trackID))
}

// OnPlaylistTrackSelected plays trackID within its playlist.
func (p *Presenter) OnPlaylistTrackSelected(playlistID, trackID string) {
	p.OnPlayRequested(domain.SelectPlaylist(playlistID, trackID))
}

// OnQueueTrackSelected plays the index-th queue entry, keeping the queue.
func (p *Presenter) OnQueueTrackSelected(index int) {
	p.mu.RLock()
	track, ok := p.queue.At(index)
	p.mu.RUnlock()
	if !ok {
		return
	}
	p.OnPlayRequested(domain.SelectTrack(track, nil))
}

// OnNext advances the session.
func (p *Presenter) OnNext() {
	p.bus.Publish(domain.NewAdvanceRequestedEvent())
}

// OnPrevious steps the session back.
func (p *Presenter) OnPrevious() {
	p.bus.Publish(domain.NewRetreatRequestedEvent())
}

// OnEnded reports that the current track finished playing.
func (p *Presenter) OnEnded() {
	ts := p.transport.Snapshot()
	if ts.Track == nil {
		return
	}
	p.bus.Publish(domain.NewTrackEndedEvent(*ts.Track, ts.Trigger))
}

// OnToggleShuffle flips shuffle mode.
func (p *Presenter) OnToggleShuffle() {
	p.bus.Publish(domain.NewShuffleToggledEvent())
}

// OnToggleRepeat flips repeat mode.
func (p *Presenter) OnToggleRepeat() {
	p.bus.Publish(domain.NewRepeatToggledEvent())
}

// OnTogglePlay pauses or resumes the loaded track.
func (p *Presenter) OnTogglePlay() {
	err := p.transport.TogglePlay()
	if err == nil || errors.Is(err, domain.ErrNoTrackLoaded) {
		return
	}
	p.logger.Error("play/pause failed", slog.Any("error", err))
	p.view.ShowNotice("Playback error", "Playback could not be started.")
}

// OnSeekChanged follows the seek control while it is dragged (seconds).
func (p *Presenter) OnSeekChanged(seconds float64) {
	p.transport.UpdateSeek(secondsToDuration(seconds))
}

// OnSeekEnded commits the seek control's position (seconds).
func (p *Presenter) OnSeekEnded(seconds float64) {
	if err := p.transport.EndSeek(secondsToDuration(seconds)); err != nil && !errors.Is(err, domain.ErrNoTrackLoaded) {
		p.logger.Warn("seek failed", slog.Any("error", err))
	}
}

// OnVolumeChanged sets the volume from the slider (0-100).
func (p *Presenter) OnVolumeChanged(percent float64) {
	if err := p.transport.SetVolume(percent / 100.0); err != nil {
		p.logger.Warn("volume change failed", slog.Any("error", err))
	}
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// NowPlaying returns what the transport chrome should show.
func (p *Presenter) NowPlaying() domain.NowPlaying {
	snap := p.session.Snapshot()

	p.mu.RLock()
	current := snap.CurrentTrack
	if current != nil && p.current != nil && p.current.ID == current.ID {
		c := *p.current
		current = &c
	}
	p.mu.RUnlock()

	return domain.NowPlaying{
		CurrentTrack:   current,
		IsPlaying:      p.transport.IsPlaying(),
		ShuffleEnabled: snap.ShuffleEnabled,
		RepeatEnabled:  snap.RepeatEnabled,
	}
}

// Catalog browsing

// Songs lists catalog songs.
func (p *Presenter) Songs(ctx context.Context) ([]domain.Track, error) {
	return p.browser.Songs(ctx)
}

// Albums lists catalog albums.
func (p *Presenter) Albums(ctx context.Context) ([]domain.Album, error) {
	return p.browser.Albums(ctx)
}

// Playlists lists catalog playlists.
func (p *Presenter) Playlists(ctx context.Context) ([]domain.PlaylistSummary, error) {
	return p.browser.Playlists(ctx)
}

// AlbumTracks lists one album's tracks for its detail view.
func (p *Presenter) AlbumTracks(ctx context.Context, albumID string) ([]domain.Track, error) {
	return p.catalog.AlbumTracks(ctx, albumID)
}

// PlaylistTracks lists one playlist's tracks for its detail view.
func (p *Presenter) PlaylistTracks(ctx context.Context, playlistID string) ([]domain.Track, error) {
	return p.catalog.PlaylistTracks(ctx, playlistID)
}

// MatchSongs returns up to limit songs whose title or artist contains query,
// ignoring case. An empty query matches nothing.
func MatchSongs(songs []domain.Track, query string, limit int) []domain.Track {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	var out []domain.Track
	for _, s := range songs {
		if strings.Contains(strings.ToLower(s.Title), query) ||
			strings.Contains(strings.ToLower(s.ArtistLabel), query) {
			out = append(out, s)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}

// Shutdown unsubscribes the presenter.
// It's safe to call multiple times (idempotent).
func (p *Presenter) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		subs := p.subscriptions
		p.subscriptions = nil
		p.mu.Unlock()
		for _, id := range subs {
			p.bus.Unsubscribe(id)
		}
	})
}
