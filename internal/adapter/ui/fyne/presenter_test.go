package fyne

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/melodia/internal/adapter/audio/mock"
	"github.com/tejashwikalptaru/melodia/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/melodia/internal/adapter/repository/memory"
	"github.com/tejashwikalptaru/melodia/internal/domain"
	"github.com/tejashwikalptaru/melodia/internal/logger"
	"github.com/tejashwikalptaru/melodia/internal/service"
	"github.com/tejashwikalptaru/melodia/internal/testutil"
)

// fakeView records the latest value of every view setter.
type fakeView struct {
	mu        sync.Mutex
	track     *domain.Track
	playCount int
	playing   bool
	loading   bool
	shuffle   bool
	repeat    bool
	position  time.Duration
	duration  time.Duration
	volume    float64
	artwork   []byte
	queue     domain.Queue
	currentID string
	notices   []string
}

func (v *fakeView) SetNowPlaying(track *domain.Track) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.track = track
	if track != nil {
		v.playCount = track.PlayCount
	}
}

func (v *fakeView) SetPlayCount(count int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.playCount = count
}

func (v *fakeView) SetPlayState(playing bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.playing = playing
}

func (v *fakeView) SetLoading(loading bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.loading = loading
}

func (v *fakeView) SetModes(shuffle, repeat bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.shuffle, v.repeat = shuffle, repeat
}

func (v *fakeView) SetProgress(position, duration time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.position, v.duration = position, duration
}

func (v *fakeView) SetVolume(volume float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.volume = volume
}

func (v *fakeView) SetArtwork(imageData []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.artwork = imageData
}

func (v *fakeView) ClearArtwork() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.artwork = nil
}

func (v *fakeView) SetQueue(queue domain.Queue, currentID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.queue, v.currentID = queue, currentID
}

func (v *fakeView) ShowNotice(title, message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notices = append(v.notices, title+": "+message)
}

func (v *fakeView) snapshot() fakeView {
	v.mu.Lock()
	defer v.mu.Unlock()
	return fakeView{
		track: v.track, playCount: v.playCount, playing: v.playing, loading: v.loading,
		shuffle: v.shuffle, repeat: v.repeat, position: v.position, duration: v.duration,
		volume: v.volume, artwork: v.artwork, queue: v.queue, currentID: v.currentID,
		notices: append([]string(nil), v.notices...),
	}
}

type presenterFixture struct {
	presenter *Presenter
	view      *fakeView
	session   *service.SessionService
	transport *service.TransportService
	plays     *service.PlayCountService
	engine    *mock.Engine
	catalog   *memory.Catalog
}

// settle waits for resolutions, loads and play registrations in flight.
func (f *presenterFixture) settle() {
	f.session.Wait()
	f.transport.WaitForLoad()
	f.plays.Wait()
}

func newTestPresenter(t *testing.T) *presenterFixture {
	t.Helper()

	log := logger.NewTestLogger()
	bus := eventbus.NewSyncEventBus()
	catalog := memory.NewDemoCatalog("http://files.test")
	engine := mock.NewEngine()
	require.NoError(t, engine.Initialize(44100))

	repo, err := memory.NewPlayCountRepository(16)
	require.NoError(t, err)
	plays := service.NewPlayCountService(catalog, repo, bus, nil, log)
	session := service.NewSessionService(
		log,
		service.NewResolver(catalog, log),
		service.NewNavigator(rand.New(rand.NewPCG(3, 4))),
		plays,
		bus,
		nil,
	)
	transport := service.NewTransportService(log, engine, bus, nil, service.TransportConfig{
		UpdateInterval: time.Hour,
		Volume:         0.8,
	})

	view := &fakeView{}
	presenter := NewPresenter(log, bus, session, transport, catalog, catalog, view)

	t.Cleanup(func() {
		presenter.Shutdown()
		require.NoError(t, session.Shutdown())
		require.NoError(t, plays.Shutdown())
		require.NoError(t, transport.Shutdown())
		_ = bus.Close()
		_ = engine.Shutdown()
	})

	return &presenterFixture{
		presenter: presenter,
		view:      view,
		session:   session,
		transport: transport,
		plays:     plays,
		engine:    engine,
		catalog:   catalog,
	}
}

func TestPresenter_InitialState(t *testing.T) {
	testutil.VerifyNoLeaks(t)
	f := newTestPresenter(t)

	v := f.view.snapshot()
	assert.Nil(t, v.track)
	assert.False(t, v.playing)
	assert.InDelta(t, 0.8, v.volume, 1e-9)
	assert.Empty(t, v.queue)

	np := f.presenter.NowPlaying()
	assert.Nil(t, np.CurrentTrack)
	assert.False(t, np.IsPlaying)
}

func TestPresenter_AlbumSelectionPlays(t *testing.T) {
	testutil.VerifyNoLeaks(t)
	f := newTestPresenter(t)
	f.engine.SetDuration("http://files.test/files/audio/s-102.mp3", 3*time.Minute)
	f.engine.SetMetadata("http://files.test/files/audio/s-102.mp3", domain.StreamMetadata{Artwork: []byte{1, 2, 3}})

	f.presenter.OnAlbumTrackSelected("alb-1", "s-102")
	f.settle()

	v := f.view.snapshot()
	require.NotNil(t, v.track)
	assert.Equal(t, "s-102", v.track.ID)
	assert.Equal(t, 88, v.playCount, "the play is counted once")
	assert.True(t, v.playing)
	assert.False(t, v.loading)
	assert.Equal(t, 3*time.Minute, v.duration)
	assert.Equal(t, []byte{1, 2, 3}, v.artwork)
	assert.Equal(t, []string{"s-101", "s-102", "s-103"}, v.queue.IDs())
	assert.Equal(t, "s-102", v.currentID)

	np := f.presenter.NowPlaying()
	require.NotNil(t, np.CurrentTrack)
	assert.Equal(t, "s-102", np.CurrentTrack.ID)
	assert.Equal(t, 88, np.CurrentTrack.PlayCount)
	assert.True(t, np.IsPlaying)
}

func TestPresenter_SongSelectionIsSingleton(t *testing.T) {
	testutil.VerifyNoLeaks(t)
	f := newTestPresenter(t)

	songs, err := f.presenter.Songs(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, songs)

	f.presenter.OnSongSelected(songs[0])
	f.settle()

	v := f.view.snapshot()
	require.NotNil(t, v.track)
	assert.Equal(t, songs[0].ID, v.track.ID)
	assert.Equal(t, []string{songs[0].ID}, v.queue.IDs())
}

func TestPresenter_QueueSelectionKeepsQueue(t *testing.T) {
	testutil.VerifyNoLeaks(t)
	f := newTestPresenter(t)

	f.presenter.OnPlaylistTrackSelected("pl-1", "s-201")
	f.settle()
	f.presenter.OnQueueTrackSelected(2)
	f.settle()

	v := f.view.snapshot()
	require.NotNil(t, v.track)
	assert.Equal(t, "s-301", v.track.ID)
	assert.Equal(t, []string{"s-201", "s-101", "s-301", "s-103"}, v.queue.IDs())

	f.presenter.OnQueueTrackSelected(99)
	f.settle()
	assert.Equal(t, "s-301", f.view.snapshot().track.ID, "out of range index is ignored")
}

func TestPresenter_NextPreviousAndModes(t *testing.T) {
	testutil.VerifyNoLeaks(t)
	f := newTestPresenter(t)

	f.presenter.OnAlbumTrackSelected("alb-1", "s-101")
	f.settle()

	f.presenter.OnNext()
	f.settle()
	assert.Equal(t, "s-102", f.view.snapshot().track.ID)

	f.presenter.OnPrevious()
	f.settle()
	assert.Equal(t, "s-101", f.view.snapshot().track.ID)

	f.presenter.OnToggleShuffle()
	f.presenter.OnToggleRepeat()
	v := f.view.snapshot()
	assert.True(t, v.shuffle)
	assert.True(t, v.repeat)

	np := f.presenter.NowPlaying()
	assert.True(t, np.ShuffleEnabled)
	assert.True(t, np.RepeatEnabled)
}

func TestPresenter_TogglePlayAndVolume(t *testing.T) {
	testutil.VerifyNoLeaks(t)
	f := newTestPresenter(t)

	f.presenter.OnTogglePlay()
	assert.Empty(t, f.view.snapshot().notices, "toggling with nothing loaded is silent")

	f.presenter.OnAlbumTrackSelected("alb-2", "s-201")
	f.settle()
	require.True(t, f.view.snapshot().playing)

	f.presenter.OnTogglePlay()
	assert.False(t, f.view.snapshot().playing)
	assert.False(t, f.presenter.NowPlaying().IsPlaying)

	f.presenter.OnTogglePlay()
	assert.True(t, f.view.snapshot().playing)

	f.presenter.OnVolumeChanged(25)
	assert.InDelta(t, 0.25, f.view.snapshot().volume, 1e-9)

	f.presenter.OnVolumeChanged(250)
	assert.InDelta(t, 0.25, f.view.snapshot().volume, 1e-9, "out of range volume is rejected")
}

func TestPresenter_SeekDrag(t *testing.T) {
	testutil.VerifyNoLeaks(t)
	f := newTestPresenter(t)
	f.engine.SetDuration("http://files.test/files/audio/s-201.mp3", 2*time.Minute)

	f.presenter.OnAlbumTrackSelected("alb-2", "s-201")
	f.settle()

	f.presenter.OnSeekChanged(30)
	assert.Equal(t, 30*time.Second, f.transport.Snapshot().Position)
	assert.True(t, f.transport.Snapshot().Dragging)

	f.presenter.OnSeekEnded(45)
	snap := f.transport.Snapshot()
	assert.False(t, snap.Dragging)
	assert.Equal(t, 45*time.Second, snap.Position)
	assert.Equal(t, 45*time.Second, f.view.snapshot().position)
	assert.True(t, f.view.snapshot().playing)
}

func TestPresenter_EndedAdvances(t *testing.T) {
	testutil.VerifyNoLeaks(t)
	f := newTestPresenter(t)

	f.presenter.OnEnded()
	f.settle()
	assert.Nil(t, f.view.snapshot().track, "nothing to end")

	f.presenter.OnAlbumTrackSelected("alb-1", "s-101")
	f.settle()
	f.presenter.OnEnded()
	f.settle()
	assert.Equal(t, "s-102", f.view.snapshot().track.ID)
}

func TestPresenter_ResolutionFailureNotice(t *testing.T) {
	testutil.VerifyNoLeaks(t)
	f := newTestPresenter(t)

	f.presenter.OnAlbumTrackSelected("alb-404", "")
	f.settle()

	v := f.view.snapshot()
	assert.Nil(t, v.track)
	require.Len(t, v.notices, 1)
	assert.Contains(t, v.notices[0], "no longer available")
}

func TestPresenter_LoadFailureNotice(t *testing.T) {
	testutil.VerifyNoLeaks(t)
	f := newTestPresenter(t)
	f.engine.SetFailLoad(true)

	f.presenter.OnAlbumTrackSelected("alb-1", "s-103")
	f.settle()

	v := f.view.snapshot()
	require.NotNil(t, v.track)
	assert.False(t, v.playing)
	assert.False(t, v.loading)
	require.Len(t, v.notices, 1)
	assert.Contains(t, v.notices[0], "Sal y Cobre")
}

func TestPresenter_PlayCountForOtherTrackIgnored(t *testing.T) {
	testutil.VerifyNoLeaks(t)
	f := newTestPresenter(t)

	f.presenter.OnAlbumTrackSelected("alb-1", "s-101")
	f.settle()
	before := f.view.snapshot().playCount

	f.presenter.onPlayCountChanged(domain.NewPlayCountChangedEvent("s-999", 5000, true))
	assert.Equal(t, before, f.view.snapshot().playCount)

	f.presenter.onPlayCountChanged(domain.NewPlayCountChangedEvent("s-101", 5000, true))
	assert.Equal(t, 5000, f.view.snapshot().playCount)
	assert.Equal(t, 5000, f.presenter.NowPlaying().CurrentTrack.PlayCount)
}

func TestPresenter_ShutdownUnsubscribes(t *testing.T) {
	testutil.VerifyNoLeaks(t)
	f := newTestPresenter(t)

	f.presenter.Shutdown()
	f.presenter.Shutdown()

	f.presenter.OnToggleShuffle()
	assert.False(t, f.view.snapshot().shuffle, "view no longer follows the bus")
	assert.True(t, f.session.Snapshot().ShuffleEnabled)
}

func TestMatchSongs(t *testing.T) {
	songs := domain.Queue{
		{ID: "1", Title: "Niebla", ArtistLabel: "Marea Alta"},
		{ID: "2", Title: "Puerto Viejo", ArtistLabel: "Marea Alta"},
		{ID: "3", Title: "Azotea", ArtistLabel: "Los Faroles"},
	}

	tests := []struct {
		name  string
		query string
		limit int
		want  []string
	}{
		{"title", "niebla", 0, []string{"1"}},
		{"artist", "MAREA", 0, []string{"1", "2"}},
		{"limit", "a", 2, []string{"1", "2"}},
		{"blank", "   ", 0, []string{}},
		{"no match", "zzz", 0, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.Queue(MatchSongs(songs, tt.query, tt.limit)).IDs())
		})
	}
}
