package fyne

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // embedded artwork
	_ "image/png"
	"log/slog"
	"sync"
	"time"

	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	xwidget "fyne.io/x/fyne/widget"

	"github.com/tejashwikalptaru/melodia/internal/adapter/ui/fyne/widgets"
	"github.com/tejashwikalptaru/melodia/internal/domain"
)

const (
	// AppName is the window title.
	AppName = "Melodia"

	windowWidth  = 960
	windowHeight = 640
	coverSize    = 96
	searchLimit  = 8
	volumeStep   = 5

	catalogTimeout = 30 * time.Second
)

// MainWindow is the main UI window implementing the UIView interface.
//
// The MainWindow follows the MVP pattern:
// - It's a "dumb view" that just displays data
// - All business logic is in the Presenter
// - User interactions are forwarded to the Presenter
//
// View setters may be called from any goroutine and hop onto the UI thread
// with fyne.Do. Fields below "browser state" are only touched there.
type MainWindow struct {
	app     fyneapp.App
	window  fyneapp.Window
	logger  *slog.Logger
	version string

	// player bar
	cover          *canvas.Image
	titleLabel     *widget.Label
	artistLabel    *widget.Label
	playsLabel     *widget.Label
	loading        *widget.ProgressBarInfinite
	prevButton     *widget.Button
	playButton     *widget.Button
	nextButton     *widget.Button
	shuffleButton  *widget.Button
	repeatButton   *widget.Button
	currentTime    *widget.Label
	endTime        *widget.Label
	progressSlider *widget.Slider
	volumeSlider   *widget.Slider

	// browser
	search            *xwidget.CompletionEntry
	songList          *widget.List
	albumList         *widget.List
	albumTrackList    *widget.List
	playlistList      *widget.List
	playlistTrackList *widget.List
	queueList         *widget.List

	// browser state
	songs            []domain.Track
	searchHits       map[string]domain.Track
	albums           []domain.Album
	selectedAlbum    string
	albumTracks      []domain.Track
	playlists        []domain.PlaylistSummary
	selectedPlaylist string
	playlistTracks   []domain.Track
	queue            domain.Queue
	currentID        string

	closeOnce sync.Once

	// Presenter (set after construction)
	presenter *Presenter
}

// NewMainWindow creates the main window. version is shown in the about box.
func NewMainWindow(app fyneapp.App, logger *slog.Logger, version string) *MainWindow {
	w := &MainWindow{
		app:        app,
		logger:     logger,
		version:    version,
		searchHits: make(map[string]domain.Track),
	}

	w.window = app.NewWindow(AppName)
	w.buildUI()
	w.window.Resize(fyneapp.NewSize(windowWidth, windowHeight))
	return w
}

// SetPresenter connects the presenter to this view.
// This must be called before showing the window.
func (w *MainWindow) SetPresenter(presenter *Presenter) {
	w.presenter = presenter
	w.wirePresenterHandlers()
	w.addShortcuts()
}

func (w *MainWindow) buildUI() {
	tabs := container.NewAppTabs(
		container.NewTabItemWithIcon("Songs", theme.MediaMusicIcon(), w.buildSongsTab()),
		container.NewTabItemWithIcon("Albums", theme.FolderIcon(), w.buildAlbumsTab()),
		container.NewTabItemWithIcon("Playlists", theme.ListIcon(), w.buildPlaylistsTab()),
		container.NewTabItemWithIcon("Queue", theme.MediaPlayIcon(), w.buildQueueTab()),
	)
	tabs.SetTabLocation(container.TabLocationTop)

	w.window.SetContent(container.NewBorder(nil, w.buildPlayerBar(), nil, nil, tabs))
	w.window.SetMainMenu(fyneapp.NewMainMenu(w.createMenu()...))
}

// trackList builds a list of tracks whose rows play on double-tap.
func (w *MainWindow) trackList(items func() []domain.Track, play func(index int)) *widget.List {
	return widget.NewList(
		func() int { return len(items()) },
		func() fyneapp.CanvasObject {
			return widgets.NewDoubleTapLabel(play)
		},
		func(id widget.ListItemID, obj fyneapp.CanvasObject) {
			tracks := items()
			if id >= len(tracks) {
				return
			}
			t := tracks[id]
			obj.(*widgets.DoubleTapLabel).Bind(id, trackLine(t), t.ID == w.currentID)
		},
	)
}

func trackLine(t domain.Track) string {
	if t.ArtistLabel == "" {
		return t.Title
	}
	return fmt.Sprintf("%s - %s", t.Title, t.ArtistLabel)
}

func (w *MainWindow) buildSongsTab() fyneapp.CanvasObject {
	w.search = xwidget.NewCompletionEntry(nil)
	w.search.SetPlaceHolder("Search songs or artists")
	w.search.OnChanged = w.onSearchChanged
	w.search.OnSubmitted = func(text string) { w.playSearchHit(text) }

	w.songList = w.trackList(
		func() []domain.Track { return w.songs },
		func(index int) {
			if index < len(w.songs) && w.presenter != nil {
				w.presenter.OnSongSelected(w.songs[index])
			}
		},
	)
	return container.NewBorder(w.search, nil, nil, nil, w.songList)
}

// playSearchHit plays the song whose completion line is text. Each hit
// plays once so a chosen option does not replay on submit.
func (w *MainWindow) playSearchHit(text string) bool {
	t, ok := w.searchHits[text]
	if !ok {
		return false
	}
	delete(w.searchHits, text)
	w.search.HideCompletion()
	if w.presenter != nil {
		w.presenter.OnSongSelected(t)
	}
	return true
}

func (w *MainWindow) onSearchChanged(text string) {
	if w.playSearchHit(text) {
		return
	}

	hits := MatchSongs(w.songs, text, searchLimit)
	w.searchHits = make(map[string]domain.Track, len(hits))
	options := make([]string, 0, len(hits))
	for _, t := range hits {
		line := trackLine(t)
		w.searchHits[line] = t
		options = append(options, line)
	}
	if len(options) == 0 {
		w.search.HideCompletion()
		return
	}
	w.search.SetOptions(options)
	w.search.ShowCompletion()
}

func (w *MainWindow) buildAlbumsTab() fyneapp.CanvasObject {
	w.albumList = widget.NewList(
		func() int { return len(w.albums) },
		func() fyneapp.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, obj fyneapp.CanvasObject) {
			if id >= len(w.albums) {
				return
			}
			a := w.albums[id]
			text := a.Title
			if a.ArtistLabel != "" {
				text = fmt.Sprintf("%s (%s)", a.Title, a.ArtistLabel)
			}
			obj.(*widget.Label).SetText(text)
		},
	)
	w.albumList.OnSelected = func(id widget.ListItemID) {
		if id < len(w.albums) {
			w.openAlbum(w.albums[id].ID)
		}
	}

	w.albumTrackList = w.trackList(
		func() []domain.Track { return w.albumTracks },
		func(index int) {
			if index < len(w.albumTracks) && w.presenter != nil {
				w.presenter.OnAlbumTrackSelected(w.selectedAlbum, w.albumTracks[index].ID)
			}
		},
	)

	split := container.NewHSplit(w.albumList, w.albumTrackList)
	split.Offset = 0.4
	return split
}

func (w *MainWindow) buildPlaylistsTab() fyneapp.CanvasObject {
	w.playlistList = widget.NewList(
		func() int { return len(w.playlists) },
		func() fyneapp.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, obj fyneapp.CanvasObject) {
			if id >= len(w.playlists) {
				return
			}
			obj.(*widget.Label).SetText(w.playlists[id].Name)
		},
	)
	w.playlistList.OnSelected = func(id widget.ListItemID) {
		if id < len(w.playlists) {
			w.openPlaylist(w.playlists[id].ID)
		}
	}

	w.playlistTrackList = w.trackList(
		func() []domain.Track { return w.playlistTracks },
		func(index int) {
			if index < len(w.playlistTracks) && w.presenter != nil {
				w.presenter.OnPlaylistTrackSelected(w.selectedPlaylist, w.playlistTracks[index].ID)
			}
		},
	)

	split := container.NewHSplit(w.playlistList, w.playlistTrackList)
	split.Offset = 0.4
	return split
}

func (w *MainWindow) buildQueueTab() fyneapp.CanvasObject {
	w.queueList = w.trackList(
		func() []domain.Track { return w.queue },
		func(index int) {
			if w.presenter != nil {
				w.presenter.OnQueueTrackSelected(index)
			}
		},
	)
	return w.queueList
}

func (w *MainWindow) buildPlayerBar() fyneapp.CanvasObject {
	w.cover = canvas.NewImageFromResource(theme.MediaMusicIcon())
	w.cover.FillMode = canvas.ImageFillContain
	w.cover.SetMinSize(fyneapp.NewSize(coverSize, coverSize))

	w.titleLabel = widget.NewLabel("Nothing playing")
	w.titleLabel.TextStyle = fyneapp.TextStyle{Bold: true}
	w.titleLabel.Truncation = fyneapp.TextTruncateEllipsis
	w.artistLabel = widget.NewLabel("")
	w.artistLabel.Truncation = fyneapp.TextTruncateEllipsis
	w.playsLabel = widget.NewLabel("")
	w.loading = widget.NewProgressBarInfinite()
	w.loading.Hide()
	info := container.NewVBox(w.titleLabel, w.artistLabel, w.playsLabel)

	w.prevButton = widget.NewButtonWithIcon("", theme.MediaSkipPreviousIcon(), nil)
	w.playButton = widget.NewButtonWithIcon("", theme.MediaPlayIcon(), nil)
	w.nextButton = widget.NewButtonWithIcon("", theme.MediaSkipNextIcon(), nil)
	w.shuffleButton = widget.NewButton("Shuffle", nil)
	w.repeatButton = widget.NewButtonWithIcon("", theme.MediaReplayIcon(), nil)
	buttons := container.NewHBox(w.shuffleButton, w.prevButton, w.playButton, w.nextButton, w.repeatButton)

	w.volumeSlider = widget.NewSlider(0, 100)
	w.volumeSlider.Step = 1
	volIcon := canvas.NewImageFromResource(theme.VolumeUpIcon())
	volIcon.SetMinSize(fyneapp.NewSize(20, 20))
	volumeHolder := container.NewBorder(nil, nil, volIcon, nil, w.volumeSlider)

	w.progressSlider = widget.NewSlider(0, 1)
	w.progressSlider.Step = 0.1
	w.currentTime = widget.NewLabel(formatClock(0))
	w.endTime = widget.NewLabel(formatClock(0))
	sliderHolder := container.NewBorder(nil, nil, w.currentTime, w.endTime, w.progressSlider)

	controls := container.NewBorder(nil, nil, buttons, container.NewGridWrap(fyneapp.NewSize(160, 36), volumeHolder))
	center := container.NewVBox(controls, sliderHolder, w.loading)
	return container.NewPadded(container.NewBorder(nil, nil, container.NewHBox(w.cover, info), nil, center))
}

// wirePresenterHandlers connects UI events to presenter handlers.
func (w *MainWindow) wirePresenterHandlers() {
	if w.presenter == nil {
		return
	}

	w.playButton.OnTapped = w.presenter.OnTogglePlay
	w.nextButton.OnTapped = w.presenter.OnNext
	w.prevButton.OnTapped = w.presenter.OnPrevious
	w.shuffleButton.OnTapped = w.presenter.OnToggleShuffle
	w.repeatButton.OnTapped = w.presenter.OnToggleRepeat

	w.volumeSlider.OnChanged = w.presenter.OnVolumeChanged

	// Programmatic updates assign Value directly, so these only fire for the user.
	w.progressSlider.OnChanged = w.presenter.OnSeekChanged
	w.progressSlider.OnChangeEnded = w.presenter.OnSeekEnded
}

func (w *MainWindow) createMenu() []*fyneapp.Menu {
	reload := fyneapp.NewMenuItem("Reload Catalog", w.LoadCatalog)
	exitMenu := fyneapp.NewMenuItem("Exit", w.Close)
	fileMenu := fyneapp.NewMenu("File", reload, fyneapp.NewMenuItemSeparator(), exitMenu)

	about := fyneapp.NewMenuItem("About", func() {
		showAboutDialog(w.window, w.version)
	})
	helpMenu := fyneapp.NewMenu("Help", about)

	return []*fyneapp.Menu{fileMenu, helpMenu}
}

func (w *MainWindow) addShortcuts() {
	nudgeVolume := func(delta float64) {
		v := min(max(w.volumeSlider.Value+delta, 0), 100)
		w.volumeSlider.SetValue(v)
	}

	w.window.Canvas().AddShortcut(&desktop.CustomShortcut{
		KeyName:  fyneapp.KeyUp,
		Modifier: fyneapp.KeyModifierAlt,
	}, func(fyneapp.Shortcut) { nudgeVolume(volumeStep) })

	w.window.Canvas().AddShortcut(&desktop.CustomShortcut{
		KeyName:  fyneapp.KeyDown,
		Modifier: fyneapp.KeyModifierAlt,
	}, func(fyneapp.Shortcut) { nudgeVolume(-volumeStep) })

	w.window.Canvas().AddShortcut(&desktop.CustomShortcut{
		KeyName:  fyneapp.KeyRight,
		Modifier: fyneapp.KeyModifierAlt,
	}, func(fyneapp.Shortcut) { w.presenter.OnNext() })

	w.window.Canvas().AddShortcut(&desktop.CustomShortcut{
		KeyName:  fyneapp.KeyLeft,
		Modifier: fyneapp.KeyModifierAlt,
	}, func(fyneapp.Shortcut) { w.presenter.OnPrevious() })
}

// LoadCatalog fetches songs, albums and playlists in the background and
// fills the browser tabs.
func (w *MainWindow) LoadCatalog() {
	if w.presenter == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
		defer cancel()

		songs, err := w.presenter.Songs(ctx)
		if err != nil {
			w.catalogFailed("songs", err)
			return
		}
		albums, err := w.presenter.Albums(ctx)
		if err != nil {
			w.catalogFailed("albums", err)
			return
		}
		playlists, err := w.presenter.Playlists(ctx)
		if err != nil {
			w.catalogFailed("playlists", err)
			return
		}

		fyneapp.Do(func() {
			w.songs, w.albums, w.playlists = songs, albums, playlists
			w.songList.Refresh()
			w.albumList.Refresh()
			w.playlistList.Refresh()
		})
		w.logger.Info("catalog loaded",
			slog.Int("songs", len(songs)),
			slog.Int("albums", len(albums)),
			slog.Int("playlists", len(playlists)))
	}()
}

func (w *MainWindow) catalogFailed(what string, err error) {
	w.logger.Error("failed to load catalog", slog.String("listing", what), slog.Any("error", err))
	w.ShowNotice("Catalog unavailable", fmt.Sprintf("Could not load %s. Use File > Reload Catalog to retry.", what))
}

func (w *MainWindow) openAlbum(albumID string) {
	w.selectedAlbum = albumID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
		defer cancel()
		tracks, err := w.presenter.AlbumTracks(ctx, albumID)
		if err != nil {
			w.logger.Warn("failed to open album", slog.String("album_id", albumID), slog.Any("error", err))
		}
		fyneapp.Do(func() {
			if w.selectedAlbum != albumID {
				return
			}
			w.albumTracks = tracks
			w.albumTrackList.Refresh()
		})
	}()
}

func (w *MainWindow) openPlaylist(playlistID string) {
	w.selectedPlaylist = playlistID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
		defer cancel()
		tracks, err := w.presenter.PlaylistTracks(ctx, playlistID)
		if err != nil {
			w.logger.Warn("failed to open playlist", slog.String("playlist_id", playlistID), slog.Any("error", err))
		}
		fyneapp.Do(func() {
			if w.selectedPlaylist != playlistID {
				return
			}
			w.playlistTracks = tracks
			w.playlistTrackList.Refresh()
		})
	}()
}

// ShowAndRun shows the window, starts loading the catalog and runs the
// application until the window closes.
func (w *MainWindow) ShowAndRun() {
	w.LoadCatalog()
	w.window.ShowAndRun()
}

// Close closes the window.
// It's safe to call multiple times (idempotent).
func (w *MainWindow) Close() {
	w.closeOnce.Do(func() {
		w.window.Close()
	})
}

// GetWindow returns the underlying Fyne window.
func (w *MainWindow) GetWindow() fyneapp.Window {
	return w.window
}

// UIView interface implementation

// SetNowPlaying shows track in the player bar.
func (w *MainWindow) SetNowPlaying(track *domain.Track) {
	fyneapp.Do(func() {
		if track == nil {
			w.titleLabel.SetText("Nothing playing")
			w.artistLabel.SetText("")
			w.playsLabel.SetText("")
			return
		}
		w.titleLabel.SetText(track.Title)
		w.artistLabel.SetText(track.ArtistLabel)
		w.playsLabel.SetText(formatPlays(track.PlayCount))
	})
}

// SetPlayCount updates the current track's play counter.
func (w *MainWindow) SetPlayCount(count int) {
	fyneapp.Do(func() {
		w.playsLabel.SetText(formatPlays(count))
	})
}

// SetPlayState updates the play/pause button state.
func (w *MainWindow) SetPlayState(playing bool) {
	fyneapp.Do(func() {
		if playing {
			w.playButton.SetIcon(theme.MediaPauseIcon())
		} else {
			w.playButton.SetIcon(theme.MediaPlayIcon())
		}
	})
}

// SetLoading shows or hides the loading indicator.
func (w *MainWindow) SetLoading(loading bool) {
	fyneapp.Do(func() {
		if loading {
			w.loading.Show()
			w.loading.Start()
		} else {
			w.loading.Stop()
			w.loading.Hide()
		}
	})
}

// SetModes highlights the shuffle and repeat buttons when enabled.
func (w *MainWindow) SetModes(shuffle, repeat bool) {
	fyneapp.Do(func() {
		w.shuffleButton.Importance = toggleImportance(shuffle)
		w.shuffleButton.Refresh()
		w.repeatButton.Importance = toggleImportance(repeat)
		w.repeatButton.Refresh()
	})
}

func toggleImportance(on bool) widget.Importance {
	if on {
		return widget.HighImportance
	}
	return widget.MediumImportance
}

// SetProgress moves the seek control without triggering a seek.
func (w *MainWindow) SetProgress(position, duration time.Duration) {
	fyneapp.Do(func() {
		maxSeconds := duration.Seconds()
		if maxSeconds <= 0 {
			maxSeconds = 1
		}
		w.progressSlider.Max = maxSeconds
		w.progressSlider.Value = min(position.Seconds(), maxSeconds)
		w.progressSlider.Refresh()
		w.currentTime.SetText(formatClock(position))
		w.endTime.SetText(formatClock(duration))
	})
}

// SetVolume updates the volume slider.
func (w *MainWindow) SetVolume(volume float64) {
	fyneapp.Do(func() {
		// Convert from 0.0-1.0 to 0-100
		w.volumeSlider.Value = volume * 100.0
		w.volumeSlider.Refresh()
	})
}

// SetArtwork shows embedded cover art, falling back to the default icon
// when the picture cannot be decoded.
func (w *MainWindow) SetArtwork(imageData []byte) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		w.logger.Debug("artwork not decodable", slog.Any("error", err))
		w.ClearArtwork()
		return
	}
	fyneapp.Do(func() {
		w.cover.Resource = nil
		w.cover.Image = img
		w.cover.Refresh()
	})
}

// ClearArtwork resets the artwork to the default icon.
func (w *MainWindow) ClearArtwork() {
	fyneapp.Do(func() {
		w.cover.Image = nil
		w.cover.Resource = theme.MediaMusicIcon()
		w.cover.Refresh()
	})
}

// SetQueue shows the playback queue and marks the current track in every list.
func (w *MainWindow) SetQueue(queue domain.Queue, currentID string) {
	fyneapp.Do(func() {
		w.queue = queue
		w.currentID = currentID
		w.queueList.Refresh()
		w.songList.Refresh()
		w.albumTrackList.Refresh()
		w.playlistTrackList.Refresh()
	})
}

// ShowNotice displays a message in the window.
func (w *MainWindow) ShowNotice(title, message string) {
	fyneapp.Do(func() {
		showNoticeDialog(w.window, title, message)
	})
}

func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%.2d:%.2d", total/60, total%60)
}

func formatPlays(n int) string {
	if n == 1 {
		return "1 play"
	}
	return fmt.Sprintf("%d plays", n)
}

// Verify UIView implementation
var _ UIView = (*MainWindow)(nil)
