package track

import "testing"

func TestCacheKeyFor_PrefersAlbumArtist(t *testing.T) {
	m := Metadata{
		Artist:      "Guest Artist",
		AlbumArtist: "Album Artist",
		Album:       "Some Album",
	}

	key, ok := CacheKeyFor(m)
	if !ok {
		t.Fatal("expected key to be derivable")
	}
	if key.Artist != "Album Artist" {
		t.Errorf("expected album artist, got %q", key.Artist)
	}
	if key.Album != "Some Album" {
		t.Errorf("unexpected album: %q", key.Album)
	}
}

func TestCacheKeyFor_FallsBackToArtist(t *testing.T) {
	m := Metadata{
		Artist: "Solo Artist",
		Album:  "Some Album",
	}

	key, ok := CacheKeyFor(m)
	if !ok {
		t.Fatal("expected key to be derivable")
	}
	if key.Artist != "Solo Artist" {
		t.Errorf("expected track artist, got %q", key.Artist)
	}
}

func TestCacheKeyFor_MissingFields(t *testing.T) {
	cases := []struct {
		name string
		meta Metadata
	}{
		{"no artist at all", Metadata{Album: "Some Album"}},
		{"no album", Metadata{Artist: "Solo Artist"}},
		{"empty metadata", Metadata{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := CacheKeyFor(tc.meta); ok {
				t.Error("expected no derivable key")
			}
		})
	}
}
