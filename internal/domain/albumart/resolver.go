// Package albumart resolves a front-cover URL for a playing track.
//
// Resolution order for a track:
//  1. Cache lookup for the (artist, album) pair
//  2. Release lookup by explicit MBID, or release-group search fallback
//  3. Existence probe against the Cover Art Archive
//  4. On failure, queue the track for cover triage
package albumart

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/tmaury/mpdart/internal/domain/pending"
	"github.com/tmaury/mpdart/internal/domain/track"
	"github.com/tmaury/mpdart/internal/infra/enrichment"
)

// RecordLookup resolves artwork records from a metadata service.
type RecordLookup interface {
	LookupRelease(ctx context.Context, mbid string) (enrichment.Record, bool)
	SearchReleaseGroup(ctx context.Context, artist, album string) (string, error)
}

// ArchiveProbe confirms whether a front cover exists for a record and
// returns its canonical URL.
type ArchiveProbe interface {
	Probe(ctx context.Context, rec enrichment.Record) (string, bool)
}

// PendingRecorder queues a track whose artwork could not be confirmed.
type PendingRecorder interface {
	Record(ctx context.Context, m track.Metadata, mbid string, reason pending.Reason)
}

// Resolver orchestrates cache, lookup, probe and pending queue for single
// track resolutions.
type Resolver struct {
	cache   *Cache
	lookup  RecordLookup
	probe   ArchiveProbe
	pending PendingRecorder
}

// NewResolver creates a resolver with an empty cache.
func NewResolver(lookup RecordLookup, probe ArchiveProbe, recorder PendingRecorder) *Resolver {
	return &Resolver{
		cache:   NewCache(),
		lookup:  lookup,
		probe:   probe,
		pending: recorder,
	}
}

// Resolve returns the confirmed front-cover URL for the track, or "" when
// none could be confirmed. Network and lookup problems degrade to "" with
// the track queued for triage as a side effect; the only errors returned
// are a malformed search response (a service-contract change) and a context
// cancelled before the search ran. Nothing is queued on an error.
func (r *Resolver) Resolve(ctx context.Context, m track.Metadata) (string, error) {
	key, ok := track.CacheKeyFor(m)
	if !ok {
		log.Debug().Str("path", m.Path).Msg("Track has no resolvable artist/album pair")
		return "", nil
	}

	rec, hit := r.cache.Lookup(key)
	if !hit {
		resolved, found, err := r.resolveRecord(ctx, m, key)
		if err != nil {
			return "", err
		}
		if !found {
			r.pending.Record(ctx, m, "", pending.ReasonNoMatch)
			return "", nil
		}
		rec = resolved

		// Cache the resolution before probing: even if the probe fails we
		// keep the mapping rather than repeat the expensive lookup/search.
		r.cache.Store(key, rec)
	}

	url, exists := r.probe.Probe(ctx, rec)
	if !exists {
		// The mbid here is re-derived from the track tags, not taken from
		// the record that was actually probed (which may have come from a
		// search match). Kept as observed in production.
		r.pending.Record(ctx, m, m.MBReleaseID, pending.ReasonMissingArchiveArt)
		return "", nil
	}

	log.Debug().
		Str("artist", key.Artist).
		Str("album", key.Album).
		Str("url", url).
		Msg("Resolved front cover")
	return url, nil
}

// resolveRecord determines the candidate record for a track: an explicit
// release MBID wins, otherwise a single-candidate release-group search on
// the cache key.
func (r *Resolver) resolveRecord(ctx context.Context, m track.Metadata, key track.CacheKey) (enrichment.Record, bool, error) {
	if m.MBReleaseID != "" {
		rec, found := r.lookup.LookupRelease(ctx, m.MBReleaseID)
		return rec, found, nil
	}

	id, err := r.lookup.SearchReleaseGroup(ctx, key.Artist, key.Album)
	if err != nil {
		return enrichment.Record{}, false, err
	}
	if id == "" {
		return enrichment.Record{}, false, nil
	}

	return enrichment.Record{ID: id, Kind: enrichment.KindReleaseGroup}, true, nil
}
