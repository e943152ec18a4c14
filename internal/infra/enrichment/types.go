// Package enrichment resolves front-cover artwork records against the
// MusicBrainz and Cover Art Archive web services.
package enrichment

import "errors"

// ErrMalformedResponse indicates the search endpoint returned a payload that
// could not be decoded. It signals a service-contract change rather than a
// missing record, so callers get to see it instead of a silent "not found".
var ErrMalformedResponse = errors.New("malformed search response")

// Kind distinguishes a specific release from its abstract release group.
type Kind int

const (
	// KindRelease is a specific pressing/issue of an album.
	KindRelease Kind = iota

	// KindReleaseGroup is the abstract work grouping multiple releases.
	KindReleaseGroup
)

// Segment returns the URL path segment used by the Cover Art Archive for
// this kind of record.
func (k Kind) Segment() string {
	switch k {
	case KindReleaseGroup:
		return "release-group"
	default:
		return "release"
	}
}

// Record identifies an entry in the Cover Art Archive: a MusicBrainz ID
// together with which namespace it belongs to.
type Record struct {
	ID   string
	Kind Kind
}
