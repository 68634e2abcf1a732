package memory

import (
	"fmt"
	"strings"

	"github.com/tejashwikalptaru/melodia/internal/domain"
)

// NewDemoCatalog builds a small catalog for offline runs. Audio and cover
// references are rooted at fileBase.
func NewDemoCatalog(fileBase string) *Catalog {
	base := strings.TrimRight(fileBase, "/")
	track := func(id, title, artist string, plays int) domain.Track {
		return domain.Track{
			ID:          id,
			Title:       title,
			ArtistLabel: artist,
			AudioRef:    fmt.Sprintf("%s/files/audio/%s.mp3", base, id),
			CoverRef:    fmt.Sprintf("%s/files/covers/%s.jpg", base, id),
			PlayCount:   plays,
		}
	}

	c := NewCatalog()

	c.AddAlbum(
		domain.Album{ID: "alb-1", Title: "Luz de Invierno", ArtistLabel: "Marea Alta"},
		track("s-101", "Niebla", "Marea Alta", 120),
		track("s-102", "Puerto Viejo", "Marea Alta", 87),
		track("s-103", "Sal y Cobre", "Marea Alta", 45),
	)
	c.AddAlbum(
		domain.Album{ID: "alb-2", Title: "Ciudad Dormida", ArtistLabel: "Los Faroles"},
		track("s-201", "Semaforo", "Los Faroles", 300),
		track("s-202", "Azotea", "Los Faroles", 12),
	)
	c.AddTracks(track("s-301", "Sencillo de Verano", "Duna", 9))

	c.AddPlaylist(domain.PlaylistSummary{
		ID:          "pl-1",
		Name:        "Para el camino",
		Description: "Mezcla de la casa",
		TrackIDs:    []string{"s-201", "s-101", "s-301", "s-103"},
	})
	return c
}
