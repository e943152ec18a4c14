// Package track defines the metadata describing a playing track.
package track

// Metadata contains the tags of a single track as reported by the player.
// The resolution pipeline treats it as read-only.
type Metadata struct {
	Artist       string
	AlbumArtist  string
	Album        string
	Title        string
	TrackNo      string
	Date         string
	DurationSecs int
	MBReleaseID  string // MUSICBRAINZ_ALBUMID tag, empty when not tagged
	Path         string // file path relative to the music root
}

// CacheKey identifies an (artist, album) pair for resolution memoization.
type CacheKey struct {
	Artist string
	Album  string
}

// CacheKeyFor derives the cache key for a track. The album artist wins over
// the track artist when both are tagged. Returns ok=false when either side
// of the key is missing, in which case no resolution should be attempted.
func CacheKeyFor(m Metadata) (CacheKey, bool) {
	artist := m.AlbumArtist
	if artist == "" {
		artist = m.Artist
	}

	if artist == "" || m.Album == "" {
		return CacheKey{}, false
	}

	return CacheKey{Artist: artist, Album: m.Album}, true
}
