// Package res holds static text shown by the UI.
package res

// AboutContent contains the Markdown content for the About dialog.
const AboutContent = `A desktop player for the Melodia music catalog.

**Features:**
- Browse songs, albums and playlists
- Shuffle, repeat and play history
- Play counts synced with the catalog
`
