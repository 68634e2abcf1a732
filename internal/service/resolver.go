package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tejashwikalptaru/melodia/internal/domain"
	"github.com/tejashwikalptaru/melodia/internal/ports"
)

// Resolver turns a selection into the track to play and the queue to play it in.
// It never mutates session state; failures come back as *domain.ResolutionError.
type Resolver struct {
	catalog ports.Catalog
	logger  *slog.Logger
}

// NewResolver creates a resolver backed by catalog.
func NewResolver(catalog ports.Catalog, logger *slog.Logger) *Resolver {
	return &Resolver{catalog: catalog, logger: logger}
}

// Resolve resolves sel. sessionQueue is the queue currently in use; it is
// reused for selections that carry no context of their own.
func (r *Resolver) Resolve(ctx context.Context, sel domain.Selection, sessionQueue domain.Queue) (domain.Track, domain.Queue, error) {
	track, queue, err := r.resolve(ctx, sel, sessionQueue)
	if err != nil {
		var resErr *domain.ResolutionError
		if !errors.As(err, &resErr) {
			err = domain.NewResolutionError(sel, err)
		}
		r.logger.Warn("selection could not be resolved",
			slog.String("selection", sel.String()),
			slog.String("error", err.Error()))
		return domain.Track{}, nil, err
	}

	r.logger.Debug("selection resolved",
		slog.String("selection", sel.String()),
		slog.String("track_id", track.ID),
		slog.Int("queue_len", queue.Len()))
	return track, queue, nil
}

func (r *Resolver) resolve(ctx context.Context, sel domain.Selection, sessionQueue domain.Queue) (domain.Track, domain.Queue, error) {
	switch sel.Kind {
	case domain.SelectionTrack:
		if sel.Track.ID == "" {
			return domain.Track{}, nil, domain.ErrInvalidSelection
		}
		if !sel.Context.IsEmpty() {
			return sel.Track, sel.Context.Clone(), nil
		}
		return sel.Track, fallbackQueue(sel.Track, sessionQueue), nil

	case domain.SelectionTrackID:
		if sel.TrackID == "" {
			return domain.Track{}, nil, domain.ErrInvalidSelection
		}
		track, err := r.catalog.TrackByID(ctx, sel.TrackID)
		if err != nil {
			return domain.Track{}, nil, err
		}
		return track, fallbackQueue(track, sessionQueue), nil

	case domain.SelectionAlbum:
		tracks, err := r.catalog.AlbumTracks(ctx, sel.ContainerID)
		if err != nil {
			return domain.Track{}, nil, err
		}
		return pickFromContainer(domain.NewQueue(tracks...), sel.TrackID)

	case domain.SelectionPlaylist:
		tracks, err := r.catalog.PlaylistTracks(ctx, sel.ContainerID)
		if err != nil {
			return domain.Track{}, nil, err
		}
		return pickFromContainer(domain.NewQueue(tracks...), sel.TrackID)

	default:
		return domain.Track{}, nil, domain.ErrInvalidSelection
	}
}

func fallbackQueue(track domain.Track, sessionQueue domain.Queue) domain.Queue {
	if !sessionQueue.IsEmpty() {
		return sessionQueue.Clone()
	}
	return domain.NewQueue(track)
}

func pickFromContainer(queue domain.Queue, trackID string) (domain.Track, domain.Queue, error) {
	if queue.IsEmpty() {
		return domain.Track{}, nil, domain.ErrQueueEmpty
	}
	if trackID == "" {
		return queue[0], queue, nil
	}
	idx := queue.IndexOf(trackID)
	if idx < 0 {
		return domain.Track{}, nil, domain.ErrTrackNotFound
	}
	return queue[idx], queue, nil
}
