package rest

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/tejashwikalptaru/melodia/internal/domain"
)

// document is one JSON object as returned by the content service. The
// service has used several field names for the same value over time, so
// fields are looked up by a list of candidates.
type document map[string]any

var (
	idKeys         = []string{"id", "_id", "idCancion", "idAlbum"}
	songTitleKeys  = []string{"nomCancion", "titulo", "title", "name"}
	albumTitleKeys = []string{"titulo", "nomAlbum", "title", "name"}
	audioKeys      = []string{"archivoMp3", "audio_url", "url"}
	coverKeys      = []string{"imgPortada", "portada", "imgSencillo", "cover", "coverPath"}
	playCountKeys  = []string{"numVisualizaciones", "reproducciones"}
	artistKeys     = []string{"artista", "artistas", "artista_emails"}
	trackListKeys  = []string{"canciones_ids", "song_ids"}
)

func (d document) str(keys ...string) string {
	for _, k := range keys {
		switch v := d[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func (d document) int(keys ...string) int {
	n, _ := d.number(keys...)
	return n
}

// number reports the first candidate holding a numeric value.
func (d document) number(keys ...string) (int, bool) {
	for _, k := range keys {
		switch v := d[k].(type) {
		case json.Number:
			if n, err := v.Int64(); err == nil {
				return int(n), true
			}
			if f, err := v.Float64(); err == nil {
				return int(f), true
			}
		case string:
			if n, err := strconv.Atoi(v); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func (d document) strings(keys ...string) []string {
	for _, k := range keys {
		list, ok := d[k].([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(list))
		for _, item := range list {
			switch v := item.(type) {
			case string:
				out = append(out, v)
			case json.Number:
				out = append(out, v.String())
			}
		}
		return out
	}
	return nil
}

// artistLabel picks the first artist. Email addresses are shown by their
// local part.
func (d document) artistLabel() string {
	label := d.str(artistKeys[0])
	if label == "" {
		if list := d.strings(artistKeys[1:]...); len(list) > 0 {
			label = list[0]
		}
	}
	if at := strings.IndexByte(label, '@'); at > 0 {
		label = label[:at]
	}
	return label
}

// fileURL turns a file reference into an absolute URL. Absolute URLs are
// kept, "/files/..." paths are prefixed with base and anything else is
// treated as a path under /files/.
func fileURL(base, raw string) string {
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	base = strings.TrimRight(base, "/")
	if strings.HasPrefix(raw, "/files/") {
		return base + raw
	}
	return base + "/files/" + strings.TrimLeft(raw, "/")
}

func (c *Client) toTrack(d document) domain.Track {
	return domain.Track{
		ID:          d.str(idKeys...),
		Title:       d.str(songTitleKeys...),
		AudioRef:    fileURL(c.filesURL, d.str(audioKeys...)),
		CoverRef:    fileURL(c.filesURL, d.str(coverKeys...)),
		ArtistLabel: d.artistLabel(),
		PlayCount:   d.int(playCountKeys...),
	}
}

func (c *Client) toAlbum(d document) domain.Album {
	return domain.Album{
		ID:          d.str(idKeys...),
		Title:       d.str(albumTitleKeys...),
		CoverRef:    fileURL(c.filesURL, d.str(coverKeys...)),
		ArtistLabel: d.artistLabel(),
		TrackCount:  len(d.strings(trackListKeys...)),
	}
}

func toPlaylist(d document) domain.PlaylistSummary {
	return domain.PlaylistSummary{
		ID:          d.str(idKeys...),
		Name:        d.str("name", "nombre"),
		Description: d.str("description", "descripcion"),
		TrackIDs:    d.strings(trackListKeys...),
	}
}
