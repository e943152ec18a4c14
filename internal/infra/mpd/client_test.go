package mpd

import (
	"testing"

	"github.com/fhs/gompd/v2/mpd"
)

func TestMetadataFromAttrs(t *testing.T) {
	song := mpd.Attrs{
		"Artist":              "Some Artist",
		"AlbumArtist":         "Album Artist",
		"Album":               "Some Album",
		"Title":               "Some Title",
		"Track":               "7",
		"Date":                "2019",
		"duration":            "241.373",
		"MUSICBRAINZ_ALBUMID": "rel-1234",
		"file":                "Some Artist/Some Album/07 Some Title.flac",
	}

	m := MetadataFromAttrs(song)

	if m.Artist != "Some Artist" || m.AlbumArtist != "Album Artist" {
		t.Errorf("unexpected artists: %+v", m)
	}
	if m.Album != "Some Album" || m.Title != "Some Title" {
		t.Errorf("unexpected album/title: %+v", m)
	}
	if m.TrackNo != "7" || m.Date != "2019" {
		t.Errorf("unexpected trackno/date: %+v", m)
	}
	if m.DurationSecs != 241 {
		t.Errorf("unexpected duration: %d", m.DurationSecs)
	}
	if m.MBReleaseID != "rel-1234" {
		t.Errorf("unexpected mbid: %q", m.MBReleaseID)
	}
	if m.Path != "Some Artist/Some Album/07 Some Title.flac" {
		t.Errorf("unexpected path: %q", m.Path)
	}
}

func TestMetadataFromAttrs_TimeFallback(t *testing.T) {
	m := MetadataFromAttrs(mpd.Attrs{"Time": "180"})
	if m.DurationSecs != 180 {
		t.Errorf("expected Time fallback, got %d", m.DurationSecs)
	}
}

func TestMetadataFromAttrs_Empty(t *testing.T) {
	m := MetadataFromAttrs(mpd.Attrs{})
	if m.DurationSecs != 0 || m.Path != "" || m.MBReleaseID != "" {
		t.Errorf("expected zero metadata, got %+v", m)
	}
}
