package enrichment

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultCAABaseURL is the Cover Art Archive base URL
	DefaultCAABaseURL = "https://coverartarchive.org"

	// thumbnailVariant is the fixed thumbnail size requested from the archive
	thumbnailVariant = "front-250"
)

// CAAClient checks front-cover existence against the Cover Art Archive.
type CAAClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	rateLimit  int
	limiter    *rateLimiter
}

// CAAOption is a functional option for configuring the CAA client
type CAAOption func(*CAAClient)

// WithBaseURL sets a custom base URL (useful for testing)
func WithBaseURL(url string) CAAOption {
	return func(c *CAAClient) {
		c.baseURL = url
	}
}

// WithUserAgent sets a custom User-Agent header
func WithUserAgent(ua string) CAAOption {
	return func(c *CAAClient) {
		c.userAgent = ua
	}
}

// WithRateLimit sets the rate limit in requests per second
func WithRateLimit(rps int) CAAOption {
	return func(c *CAAClient) {
		c.rateLimit = rps
		c.limiter = newRateLimiter(rps)
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) CAAOption {
	return func(c *CAAClient) {
		c.httpClient = client
	}
}

// NewCAAClient creates a new Cover Art Archive client
func NewCAAClient(opts ...CAAOption) *CAAClient {
	c := &CAAClient{
		baseURL:   DefaultCAABaseURL,
		userAgent: DefaultUserAgent,
		rateLimit: DefaultRateLimit,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.limiter == nil {
		c.limiter = newRateLimiter(c.rateLimit)
	}

	return c
}

// ArtURL returns the canonical thumbnail URL for a record.
func (c *CAAClient) ArtURL(rec Record) string {
	return fmt.Sprintf("%s/%s/%s/%s", c.baseURL, rec.Kind.Segment(), rec.ID, thumbnailVariant)
}

// Probe issues a HEAD request to confirm a front cover actually exists for
// the record. Returns the canonical URL and whether the archive answered
// with a success status. A network failure is not distinguished from a
// confirmed absence; both mean "no art available". No retries.
func (c *CAAClient) Probe(ctx context.Context, rec Record) (string, bool) {
	artURL := c.ArtURL(rec)

	if err := c.limiter.Wait(ctx); err != nil {
		return artURL, false
	}

	log.Debug().
		Str("mbid", rec.ID).
		Str("kind", rec.Kind.Segment()).
		Str("url", artURL).
		Msg("Probing Cover Art Archive")

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, artURL, nil)
	if err != nil {
		return artURL, false
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("mbid", rec.ID).Msg("Cover Art Archive probe failed")
		return artURL, false
	}
	defer resp.Body.Close()

	exists := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !exists {
		log.Debug().
			Str("mbid", rec.ID).
			Int("status", resp.StatusCode).
			Msg("No front cover in Cover Art Archive")
	}

	return artURL, exists
}

// rateLimiter implements a simple token bucket rate limiter
type rateLimiter struct {
	mu          sync.Mutex
	interval    time.Duration
	lastRequest time.Time
}

func newRateLimiter(requestsPerSecond int) *rateLimiter {
	interval := time.Second / time.Duration(requestsPerSecond)
	return &rateLimiter{
		interval: interval,
	}
}

// Wait blocks until a request can be made
func (r *rateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	nextAllowed := r.lastRequest.Add(r.interval)

	if now.Before(nextAllowed) {
		waitTime := nextAllowed.Sub(now)
		select {
		case <-time.After(waitTime):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.lastRequest = time.Now()
	return nil
}
