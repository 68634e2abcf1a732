package domain

import "fmt"

// SelectionKind tells the resolver where a selection came from.
type SelectionKind int

const (
	// SelectionTrack carries an already-resolved track and an optional context queue.
	SelectionTrack SelectionKind = iota

	// SelectionTrackID carries only a track id.
	SelectionTrackID

	// SelectionAlbum plays a track inside an album's tracklist.
	SelectionAlbum

	// SelectionPlaylist plays a track inside a playlist.
	SelectionPlaylist
)

// String returns a human-readable representation of the kind.
func (k SelectionKind) String() string {
	switch k {
	case SelectionTrack:
		return "track"
	case SelectionTrackID:
		return "track-id"
	case SelectionAlbum:
		return "album"
	case SelectionPlaylist:
		return "playlist"
	default:
		return "unknown"
	}
}

// Selection is a user's choice of what to play.
// Build one with SelectTrack, SelectTrackID, SelectAlbum or SelectPlaylist.
type Selection struct {
	Kind SelectionKind

	// Track is set for SelectionTrack.
	Track Track

	// Context is the explicit queue for SelectionTrack (may be empty).
	Context Queue

	// TrackID names the selected track for every kind except SelectionTrack.
	// For albums and playlists an empty id means the first track.
	TrackID string

	// ContainerID is the album or playlist id.
	ContainerID string
}

// SelectTrack selects a resolved track, optionally inside a context queue.
func SelectTrack(track Track, context Queue) Selection {
	return Selection{Kind: SelectionTrack, Track: track, Context: context.Clone(), TrackID: track.ID}
}

// SelectTrackID selects a track by id only.
func SelectTrackID(id string) Selection {
	return Selection{Kind: SelectionTrackID, TrackID: id}
}

// SelectAlbum selects a track inside an album.
func SelectAlbum(albumID, trackID string) Selection {
	return Selection{Kind: SelectionAlbum, ContainerID: albumID, TrackID: trackID}
}

// SelectPlaylist selects a track inside a playlist.
func SelectPlaylist(playlistID, trackID string) Selection {
	return Selection{Kind: SelectionPlaylist, ContainerID: playlistID, TrackID: trackID}
}

// String implements fmt.Stringer for logging.
func (s Selection) String() string {
	switch s.Kind {
	case SelectionAlbum, SelectionPlaylist:
		return fmt.Sprintf("%s %q track %q", s.Kind, s.ContainerID, s.TrackID)
	default:
		return fmt.Sprintf("%s %q", s.Kind, s.TrackID)
	}
}
