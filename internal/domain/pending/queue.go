// Package pending persists tracks whose artwork could not be confirmed so
// external triage tooling can fix them up later. Each entry is a best-effort
// extracted cover image plus a JSON sidecar in a shared directory; entries
// are never removed here.
package pending

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"

	"github.com/tmaury/mpdart/internal/domain/track"
)

// Reason is the sidecar code explaining why a track was queued.
type Reason string

const (
	// ReasonMissingArchiveArt means a record was resolved but the archive
	// could not confirm a front cover for it.
	ReasonMissingArchiveArt Reason = "missing_caa"

	// ReasonNoMatch means no record could be resolved at all.
	ReasonNoMatch Reason = "no_mb_match"
)

// Sidecar is the JSON document written alongside each pending entry.
type Sidecar struct {
	Reason       Reason  `json:"reason"`
	MBID         *string `json:"mbid"`
	Artist       string  `json:"artist"`
	Album        string  `json:"album"`
	Title        string  `json:"title"`
	TrackNo      string  `json:"trackno"`
	Date         string  `json:"date"`
	DurationSecs int     `json:"duration_secs"`
	SourcePath   string  `json:"source_path"`
	AddedAt      string  `json:"added_at"`
}

// Extractor pulls an embedded cover image out of an audio file.
type Extractor interface {
	Extract(ctx context.Context, srcPath, dstPath string) error
}

// FFmpegExtractor shells out to ffmpeg, discarding the audio stream and
// stream-copying the embedded image without re-encoding. Stdout and stderr
// stay detached so ffmpeg's diagnostics do not pollute our logs; only the
// exit status and the resulting file matter.
type FFmpegExtractor struct {
	// Binary overrides the ffmpeg executable path. Empty means "ffmpeg".
	Binary string
}

// Extract runs one ffmpeg process for the given source/destination pair.
func (e FFmpegExtractor) Extract(ctx context.Context, srcPath, dstPath string) error {
	bin := e.Binary
	if bin == "" {
		bin = "ffmpeg"
	}

	cmd := exec.CommandContext(ctx, bin,
		"-y", "-nostdin",
		"-i", srcPath,
		"-an",
		"-vcodec", "copy",
		dstPath,
	)
	// Stdout/Stderr left nil: exec connects them to /dev/null.
	return cmd.Run()
}

// Queue deduplicates and persists pending entries on the filesystem.
type Queue struct {
	dir       string
	musicRoot string
	extractor Extractor
	now       func() time.Time
}

// Option is a functional option for configuring the queue.
type Option func(*Queue)

// WithExtractor sets a custom cover extractor (useful for testing).
func WithExtractor(e Extractor) Option {
	return func(q *Queue) {
		q.extractor = e
	}
}

// WithNow sets a custom clock (useful for testing).
func WithNow(now func() time.Time) Option {
	return func(q *Queue) {
		q.now = now
	}
}

// NewQueue creates a pending queue rooted at dir. Source paths are resolved
// against musicRoot.
func NewQueue(dir, musicRoot string, opts ...Option) *Queue {
	q := &Queue{
		dir:       dir,
		musicRoot: musicRoot,
		extractor: FFmpegExtractor{},
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

// SanitizeToken turns an arbitrary metadata string into a filesystem-safe
// token: ASCII alphanumerics pass through, whitespace, hyphen and underscore
// become underscore, everything else is dropped. An empty result becomes
// the literal "unknown".
func SanitizeToken(s string) string {
	var out strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out.WriteRune(r)
		case unicode.IsSpace(r), r == '-', r == '_':
			out.WriteByte('_')
		}
	}

	if out.Len() == 0 {
		return "unknown"
	}
	return out.String()
}

// Key derives the deduplication key for a pending entry: the explicit
// release MBID verbatim when known, otherwise a sanitized artist/title pair.
func Key(m track.Metadata, mbid string) string {
	if mbid != "" {
		return mbid
	}
	return "nombid_" + SanitizeToken(m.Artist) + "_" + SanitizeToken(m.Title)
}

// Record durably notes that no artwork could be confirmed for the track.
// Repeated calls for the same derived key are no-ops. All failures are
// logged, never escalated: the caller's resolution result is unaffected.
func (q *Queue) Record(ctx context.Context, m track.Metadata, mbid string, reason Reason) {
	if err := os.MkdirAll(q.dir, 0o755); err != nil {
		log.Error().Err(err).Str("dir", q.dir).Msg("Failed to create pending queue dir")
		return
	}

	key := Key(m, mbid)
	imagePath := filepath.Join(q.dir, key+".jpg")
	sidecarPath := filepath.Join(q.dir, key+".json")

	// Existence of either file marks the entry as already queued.
	if fileExists(imagePath) || fileExists(sidecarPath) {
		log.Debug().Str("key", key).Msg("Pending entry already queued")
		return
	}

	sourcePath := filepath.Join(q.musicRoot, m.Path)

	err := q.extractor.Extract(ctx, sourcePath, imagePath)
	if err != nil || !fileExists(imagePath) {
		// Best effort only. Drop any partially written image and move on.
		os.Remove(imagePath)
		log.Debug().Err(err).Str("source", sourcePath).Msg("No embedded cover extracted")
	}

	var mbidPtr *string
	if mbid != "" {
		mbidPtr = &mbid
	}

	duration := m.DurationSecs
	if duration < 0 {
		duration = 0
	}

	sidecar := Sidecar{
		Reason:       reason,
		MBID:         mbidPtr,
		Artist:       m.Artist,
		Album:        m.Album,
		Title:        m.Title,
		TrackNo:      m.TrackNo,
		Date:         m.Date,
		DurationSecs: duration,
		SourcePath:   sourcePath,
		AddedAt:      q.now().UTC().Format(time.RFC3339),
	}

	data, err := json.MarshalIndent(sidecar, "", "  ")
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to encode pending sidecar")
		return
	}

	if err := os.WriteFile(sidecarPath, data, 0o644); err != nil {
		log.Error().Err(err).Str("path", sidecarPath).Msg("Failed to write pending sidecar")
		return
	}

	log.Info().Str("key", key).Str("reason", string(reason)).Msg("Queued track for cover triage")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
