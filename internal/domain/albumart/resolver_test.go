package albumart

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/tmaury/mpdart/internal/domain/pending"
	"github.com/tmaury/mpdart/internal/domain/track"
	"github.com/tmaury/mpdart/internal/infra/enrichment"
)

type fakeLookup struct {
	lookupCalls int
	searchCalls int

	lookupRec   enrichment.Record
	lookupFound bool

	searchID  string
	searchErr error
}

func (f *fakeLookup) LookupRelease(ctx context.Context, mbid string) (enrichment.Record, bool) {
	f.lookupCalls++
	return f.lookupRec, f.lookupFound
}

func (f *fakeLookup) SearchReleaseGroup(ctx context.Context, artist, album string) (string, error) {
	f.searchCalls++
	return f.searchID, f.searchErr
}

type fakeProbe struct {
	calls  int
	exists bool
	probed []enrichment.Record
}

func (f *fakeProbe) Probe(ctx context.Context, rec enrichment.Record) (string, bool) {
	f.calls++
	f.probed = append(f.probed, rec)
	url := fmt.Sprintf("https://archive.test/%s/%s/front-250", rec.Kind.Segment(), rec.ID)
	return url, f.exists
}

type queuedEntry struct {
	mbid   string
	reason pending.Reason
}

type fakeRecorder struct {
	entries []queuedEntry
}

func (f *fakeRecorder) Record(ctx context.Context, m track.Metadata, mbid string, reason pending.Reason) {
	f.entries = append(f.entries, queuedEntry{mbid: mbid, reason: reason})
}

func taggedTrack() track.Metadata {
	return track.Metadata{
		Artist: "Some Artist",
		Album:  "Some Album",
		Title:  "Some Title",
		Path:   "Some Artist/Some Album/01 Some Title.flac",
	}
}

func TestResolve_MissingMetadataShortCircuits(t *testing.T) {
	lookup := &fakeLookup{}
	probe := &fakeProbe{}
	recorder := &fakeRecorder{}
	r := NewResolver(lookup, probe, recorder)

	for _, m := range []track.Metadata{
		{},
		{Artist: "Some Artist"},
		{Album: "Some Album"},
	} {
		url, err := r.Resolve(context.Background(), m)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if url != "" {
			t.Errorf("expected no URL, got %q", url)
		}
	}

	if lookup.lookupCalls != 0 || lookup.searchCalls != 0 {
		t.Error("expected no network calls for underspecified tracks")
	}
	if probe.calls != 0 {
		t.Error("expected no probe for underspecified tracks")
	}
	if len(recorder.entries) != 0 {
		t.Error("expected no queuing for underspecified tracks")
	}
}

func TestResolve_ExplicitIDWithFrontCover(t *testing.T) {
	// Scenario: MBID tagged, release confirmed to have a front cover,
	// archive probe succeeds.
	lookup := &fakeLookup{
		lookupRec:   enrichment.Record{ID: "rel-1234", Kind: enrichment.KindRelease},
		lookupFound: true,
	}
	probe := &fakeProbe{exists: true}
	recorder := &fakeRecorder{}
	r := NewResolver(lookup, probe, recorder)

	m := taggedTrack()
	m.MBReleaseID = "rel-1234"

	url, err := r.Resolve(context.Background(), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://archive.test/release/rel-1234/front-250" {
		t.Errorf("unexpected URL: %q", url)
	}
	if len(recorder.entries) != 0 {
		t.Errorf("expected no queuing, got %+v", recorder.entries)
	}

	// The resolution must now be cached under the (artist, album) pair.
	key, _ := track.CacheKeyFor(m)
	rec, ok := r.cache.Lookup(key)
	if !ok {
		t.Fatal("expected a cache entry")
	}
	if rec.ID != "rel-1234" || rec.Kind != enrichment.KindRelease {
		t.Errorf("unexpected cached record: %+v", rec)
	}
}

func TestResolve_GroupFallbackProbeMiss(t *testing.T) {
	// Scenario: MBID tagged but the release has no confirmed front cover,
	// so resolution fell back to the release group; the group has no art
	// either.
	lookup := &fakeLookup{
		lookupRec:   enrichment.Record{ID: "rg-5678", Kind: enrichment.KindReleaseGroup},
		lookupFound: true,
	}
	probe := &fakeProbe{exists: false}
	recorder := &fakeRecorder{}
	r := NewResolver(lookup, probe, recorder)

	m := taggedTrack()
	m.MBReleaseID = "rel-1234"

	url, err := r.Resolve(context.Background(), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "" {
		t.Errorf("expected no URL, got %q", url)
	}

	if len(recorder.entries) != 1 {
		t.Fatalf("expected one queued entry, got %d", len(recorder.entries))
	}
	if recorder.entries[0].reason != pending.ReasonMissingArchiveArt {
		t.Errorf("unexpected reason: %q", recorder.entries[0].reason)
	}
	if recorder.entries[0].mbid != "rel-1234" {
		t.Errorf("expected mbid re-derived from track tags, got %q", recorder.entries[0].mbid)
	}

	// The group mapping is cached even though the probe failed.
	key, _ := track.CacheKeyFor(m)
	rec, ok := r.cache.Lookup(key)
	if !ok {
		t.Fatal("expected a cache entry despite probe failure")
	}
	if rec.ID != "rg-5678" || rec.Kind != enrichment.KindReleaseGroup {
		t.Errorf("unexpected cached record: %+v", rec)
	}
}

func TestResolve_SearchNoResults(t *testing.T) {
	// Scenario: no MBID tag and the search comes back empty.
	lookup := &fakeLookup{}
	probe := &fakeProbe{}
	recorder := &fakeRecorder{}
	r := NewResolver(lookup, probe, recorder)

	m := taggedTrack()

	url, err := r.Resolve(context.Background(), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "" {
		t.Errorf("expected no URL, got %q", url)
	}
	if probe.calls != 0 {
		t.Error("expected no probe without a resolved record")
	}

	if len(recorder.entries) != 1 {
		t.Fatalf("expected one queued entry, got %d", len(recorder.entries))
	}
	if recorder.entries[0].reason != pending.ReasonNoMatch {
		t.Errorf("unexpected reason: %q", recorder.entries[0].reason)
	}
	if recorder.entries[0].mbid != "" {
		t.Errorf("expected empty mbid, got %q", recorder.entries[0].mbid)
	}

	// Absent lookups never create cache entries: a second call searches again.
	r.Resolve(context.Background(), m)
	if lookup.searchCalls != 2 {
		t.Errorf("expected a second search, got %d calls", lookup.searchCalls)
	}
}

func TestResolve_CacheMonotonicity(t *testing.T) {
	lookup := &fakeLookup{searchID: "rg-9999"}
	probe := &fakeProbe{exists: true}
	recorder := &fakeRecorder{}
	r := NewResolver(lookup, probe, recorder)

	m := taggedTrack()

	first, err := r.Resolve(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Resolve(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}

	if first != second {
		t.Errorf("expected stable URL, got %q then %q", first, second)
	}
	if lookup.searchCalls != 1 {
		t.Errorf("expected a single search, got %d", lookup.searchCalls)
	}
	if lookup.lookupCalls != 0 {
		t.Errorf("expected no release lookups, got %d", lookup.lookupCalls)
	}
	if probe.calls != 2 {
		t.Errorf("expected a probe per resolution, got %d", probe.calls)
	}
}

func TestResolve_SearchRecordProbedAsReleaseGroup(t *testing.T) {
	lookup := &fakeLookup{searchID: "rg-9999"}
	probe := &fakeProbe{exists: true}
	r := NewResolver(lookup, probe, &fakeRecorder{})

	url, err := r.Resolve(context.Background(), taggedTrack())
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://archive.test/release-group/rg-9999/front-250" {
		t.Errorf("unexpected URL: %q", url)
	}
	if len(probe.probed) != 1 || probe.probed[0].Kind != enrichment.KindReleaseGroup {
		t.Errorf("expected release-group probe, got %+v", probe.probed)
	}
}

func TestResolve_SearchMatchProbeMissQueuesWithoutMBID(t *testing.T) {
	// The queued mbid comes from the track tags, which are empty here even
	// though the probed record has an ID from the search match.
	lookup := &fakeLookup{searchID: "rg-9999"}
	probe := &fakeProbe{exists: false}
	recorder := &fakeRecorder{}
	r := NewResolver(lookup, probe, recorder)

	r.Resolve(context.Background(), taggedTrack())

	if len(recorder.entries) != 1 {
		t.Fatalf("expected one queued entry, got %d", len(recorder.entries))
	}
	if recorder.entries[0].reason != pending.ReasonMissingArchiveArt {
		t.Errorf("unexpected reason: %q", recorder.entries[0].reason)
	}
	if recorder.entries[0].mbid != "" {
		t.Errorf("expected empty mbid, got %q", recorder.entries[0].mbid)
	}
}

func TestResolve_MalformedSearchSurfaces(t *testing.T) {
	lookup := &fakeLookup{searchErr: fmt.Errorf("%w: boom", enrichment.ErrMalformedResponse)}
	probe := &fakeProbe{}
	recorder := &fakeRecorder{}
	r := NewResolver(lookup, probe, recorder)

	_, err := r.Resolve(context.Background(), taggedTrack())
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, enrichment.ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse, got %v", err)
	}
	if len(recorder.entries) != 0 {
		t.Errorf("expected no queuing on a surfaced error, got %+v", recorder.entries)
	}
}
