package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultMBBaseURL is the MusicBrainz API base URL
	DefaultMBBaseURL = "https://musicbrainz.org/ws/2"

	// DefaultUserAgent identifies this client per MusicBrainz guidelines
	DefaultUserAgent = "mpdart/1.0 (https://github.com/tmaury/mpdart)"

	// DefaultRateLimit is 1 request per second (MusicBrainz guideline)
	DefaultRateLimit = 1

	// DefaultTimeout for HTTP requests
	DefaultTimeout = 30 * time.Second
)

// MusicBrainzClient resolves artwork records via the MusicBrainz API.
type MusicBrainzClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rateLimiter
}

// MBOption is a functional option for configuring the MusicBrainz client.
type MBOption func(*MusicBrainzClient)

// WithMBBaseURL sets a custom base URL (useful for testing).
func WithMBBaseURL(url string) MBOption {
	return func(c *MusicBrainzClient) {
		c.baseURL = url
	}
}

// WithMBUserAgent sets a custom User-Agent header.
func WithMBUserAgent(ua string) MBOption {
	return func(c *MusicBrainzClient) {
		c.userAgent = ua
	}
}

// WithMBHTTPClient sets a custom HTTP client.
func WithMBHTTPClient(client *http.Client) MBOption {
	return func(c *MusicBrainzClient) {
		c.httpClient = client
	}
}

// NewMusicBrainzClient creates a new MusicBrainz API client.
func NewMusicBrainzClient(opts ...MBOption) *MusicBrainzClient {
	c := &MusicBrainzClient{
		baseURL:   DefaultMBBaseURL,
		userAgent: DefaultUserAgent,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: newRateLimiter(DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// mbRelease is the release lookup payload, limited to the fields we read.
type mbRelease struct {
	ID           string `json:"id"`
	ReleaseGroup struct {
		ID string `json:"id"`
	} `json:"release-group"`
	CoverArtArchive struct {
		Front bool `json:"front"`
	} `json:"cover-art-archive"`
}

// mbSearchResponse is the release-group search payload.
type mbSearchResponse struct {
	ReleaseGroups []struct {
		ID string `json:"id"`
	} `json:"release-groups"`
}

// LookupRelease looks up a release by its MBID, requesting its parent
// release group. When the release has a confirmed front cover the release
// itself is returned; otherwise resolution falls back one level to the
// release group, which may still carry community-contributed art.
//
// Any failure (unreachable service, non-200 status, undecodable body) is a
// soft miss: ok=false, never an error.
func (c *MusicBrainzClient) LookupRelease(ctx context.Context, mbid string) (Record, bool) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Record{}, false
	}

	reqURL := fmt.Sprintf("%s/release/%s?inc=release-groups", c.baseURL, url.PathEscape(mbid))

	log.Debug().Str("mbid", mbid).Str("url", reqURL).Msg("Looking up MusicBrainz release")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Record{}, false
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("mbid", mbid).Msg("MusicBrainz release lookup failed")
		return Record{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Debug().Str("mbid", mbid).Int("status", resp.StatusCode).Msg("MusicBrainz release lookup non-200")
		return Record{}, false
	}

	var release mbRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		log.Warn().Err(err).Str("mbid", mbid).Msg("Undecodable MusicBrainz release payload")
		return Record{}, false
	}

	rec := Record{ID: release.ReleaseGroup.ID, Kind: KindReleaseGroup}
	if release.CoverArtArchive.Front {
		rec = Record{ID: release.ID, Kind: KindRelease}
	}

	// A payload without the selected identifier is as malformed as one that
	// does not decode: a record with an empty ID must never reach the cache.
	if rec.ID == "" {
		log.Warn().Str("mbid", mbid).Msg("MusicBrainz release payload missing identifier")
		return Record{}, false
	}

	return rec, true
}

// SearchReleaseGroup searches for the single best release group matching an
// artist/album pair. Empty result lists, connection failures and non-200
// statuses all come back as ("", nil). An undecodable body returns
// ErrMalformedResponse: the service answered 200 with something we do not
// understand, which the caller should see. Context cancellation is also
// returned as an error so a track is never marked "no match" without the
// search having actually run.
func (c *MusicBrainzClient) SearchReleaseGroup(ctx context.Context, artist, album string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	query := fmt.Sprintf("artist:%s AND release:%s", artist, album)
	reqURL := fmt.Sprintf("%s/release-group/?query=%s&limit=1", c.baseURL, url.QueryEscape(query))

	log.Debug().
		Str("artist", artist).
		Str("album", album).
		Str("url", reqURL).
		Msg("Searching MusicBrainz for release group")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", nil
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("artist", artist).Str("album", album).Msg("MusicBrainz search failed")
		return "", nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Debug().
			Str("artist", artist).
			Str("album", album).
			Int("status", resp.StatusCode).
			Msg("MusicBrainz search non-200")
		return "", nil
	}

	var searchResp mbSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if len(searchResp.ReleaseGroups) == 0 {
		log.Debug().Str("artist", artist).Str("album", album).Msg("No MusicBrainz release group found")
		return "", nil
	}

	id := searchResp.ReleaseGroups[0].ID
	log.Debug().
		Str("artist", artist).
		Str("album", album).
		Str("mbid", id).
		Msg("Found MusicBrainz release group")
	return id, nil
}
