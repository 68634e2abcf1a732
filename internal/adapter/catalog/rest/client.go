// Package rest implements the catalog ports against the marketplace
// content service's JSON API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tejashwikalptaru/melodia/internal/domain"
	"github.com/tejashwikalptaru/melodia/internal/ports"
)

const (
	DefaultBaseURL  = "http://127.0.0.1:8080/api"
	DefaultFilesURL = "http://127.0.0.1:8080"
	DefaultTimeout  = 15 * time.Second

	// playlistFetchLimit bounds concurrent song lookups for one playlist.
	playlistFetchLimit = 4
)

// Config configures the content service client.
type Config struct {
	BaseURL   string
	FilesURL  string
	AuthToken string
	Timeout   time.Duration
}

// APIError is a non-2xx answer other than 404.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// errNotFound is mapped to the caller's domain sentinel.
var errNotFound = errors.New("not found")

// Client talks to the content service.
type Client struct {
	baseURL    string
	filesURL   string
	authToken  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client. Empty config fields take the defaults.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.FilesURL == "" {
		cfg.FilesURL = DefaultFilesURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		filesURL:   cfg.FilesURL,
		authToken:  cfg.AuthToken,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("content service call",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if out == nil {
		return nil
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
	}
	return nil
}

// list decodes either a bare array or an object wrapping one.
func (c *Client) list(ctx context.Context, path string) ([]document, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList(raw)
}

func decodeList(raw json.RawMessage) ([]document, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] != '[' {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("unexpected list payload: %w", err)
		}
		trimmed = nil
		for _, key := range []string{"items", "data", "results"} {
			if inner, ok := wrapper[key]; ok {
				trimmed = inner
				break
			}
		}
		if trimmed == nil {
			return nil, nil
		}
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var docs []document
	if err := dec.Decode(&docs); err != nil {
		return nil, fmt.Errorf("unexpected list payload: %w", err)
	}
	return docs, nil
}

func songPath(id string) string {
	return "/canciones/" + url.PathEscape(id)
}

// TrackByID fetches one song.
func (c *Client) TrackByID(ctx context.Context, id string) (domain.Track, error) {
	var doc document
	if err := c.do(ctx, http.MethodGet, songPath(id), nil, &doc); err != nil {
		if errors.Is(err, errNotFound) {
			return domain.Track{}, fmt.Errorf("%w: %s", domain.ErrTrackNotFound, id)
		}
		return domain.Track{}, err
	}
	return c.toTrack(doc), nil
}

// AlbumTracks fetches the album's tracklist in service order.
func (c *Client) AlbumTracks(ctx context.Context, albumID string) ([]domain.Track, error) {
	docs, err := c.list(ctx, "/albumes/"+url.PathEscape(albumID)+"/canciones")
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAlbumNotFound, albumID)
		}
		return nil, err
	}
	tracks := make([]domain.Track, 0, len(docs))
	for _, d := range docs {
		tracks = append(tracks, c.toTrack(d))
	}
	return tracks, nil
}

// PlaylistTracks fetches the playlist and then each of its songs, keeping
// the playlist order. Songs that cannot be fetched are skipped.
func (c *Client) PlaylistTracks(ctx context.Context, playlistID string) ([]domain.Track, error) {
	var doc document
	if err := c.do(ctx, http.MethodGet, "/playlists/"+url.PathEscape(playlistID), nil, &doc); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrPlaylistNotFound, playlistID)
		}
		return nil, err
	}
	ids := toPlaylist(doc).TrackIDs

	slots := make([]*domain.Track, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(playlistFetchLimit)
	for i, id := range ids {
		g.Go(func() error {
			track, err := c.TrackByID(gctx, id)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				c.logger.Warn("skipping playlist song",
					slog.String("playlist_id", playlistID),
					slog.String("track_id", id),
					slog.String("error", err.Error()))
				return nil
			}
			slots[i] = &track
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tracks := make([]domain.Track, 0, len(ids))
	for _, t := range slots {
		if t != nil {
			tracks = append(tracks, *t)
		}
	}
	return tracks, nil
}

// Songs lists the catalog's songs.
func (c *Client) Songs(ctx context.Context) ([]domain.Track, error) {
	docs, err := c.list(ctx, "/canciones")
	if err != nil {
		return nil, err
	}
	tracks := make([]domain.Track, 0, len(docs))
	for _, d := range docs {
		tracks = append(tracks, c.toTrack(d))
	}
	return tracks, nil
}

// Albums lists the catalog's albums.
func (c *Client) Albums(ctx context.Context) ([]domain.Album, error) {
	docs, err := c.list(ctx, "/albumes")
	if err != nil {
		return nil, err
	}
	albums := make([]domain.Album, 0, len(docs))
	for _, d := range docs {
		albums = append(albums, c.toAlbum(d))
	}
	return albums, nil
}

// Playlists lists the visible playlists.
func (c *Client) Playlists(ctx context.Context) ([]domain.PlaylistSummary, error) {
	docs, err := c.list(ctx, "/playlists")
	if err != nil {
		return nil, err
	}
	out := make([]domain.PlaylistSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, toPlaylist(d))
	}
	return out, nil
}

// RegisterPlay posts a play and returns the server's updated counter.
// A reply without a numeric counter yields domain.ErrNoPlayCount.
func (c *Client) RegisterPlay(ctx context.Context, trackID string) (int, error) {
	var doc document
	if err := c.do(ctx, http.MethodPost, songPath(trackID)+"/play", nil, &doc); err != nil {
		if errors.Is(err, errNotFound) {
			return 0, fmt.Errorf("%w: %s", domain.ErrTrackNotFound, trackID)
		}
		return 0, err
	}
	count, ok := doc.number(playCountKeys...)
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrNoPlayCount, trackID)
	}
	return count, nil
}

var (
	_ ports.Catalog        = (*Client)(nil)
	_ ports.CatalogBrowser = (*Client)(nil)
	_ ports.PlayRegistrar  = (*Client)(nil)
)
