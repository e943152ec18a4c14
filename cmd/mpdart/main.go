// Package main is the entry point for the mpdart album-art resolver daemon.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tmaury/mpdart/internal/config"
	"github.com/tmaury/mpdart/internal/domain/albumart"
	"github.com/tmaury/mpdart/internal/domain/pending"
	"github.com/tmaury/mpdart/internal/infra/enrichment"
	"github.com/tmaury/mpdart/internal/infra/mpd"
	"github.com/tmaury/mpdart/internal/transport/socketio"
	"github.com/tmaury/mpdart/internal/version"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (optional)")
	port := flag.String("port", "", "HTTP server port (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != "" {
		cfg.Port = *port
	}

	versionInfo := version.GetInfo()
	log.Info().Msgf("%s starting", versionInfo.String())
	log.Info().
		Str("port", cfg.Port).
		Str("mpd_host", cfg.MPD.Host).
		Int("mpd_port", cfg.MPD.Port).
		Str("music_root", cfg.MusicRoot).
		Str("pending_dir", cfg.PendingDir).
		Msg("Configuration")

	// Create MPD client
	mpdClient := mpd.NewClient(cfg.MPD.Host, cfg.MPD.Port, cfg.MPD.Password)
	if err := mpdClient.Connect(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MPD")
	}
	defer mpdClient.Close()

	if err := mpdClient.Ping(); err != nil {
		log.Fatal().Err(err).Msg("MPD ping failed")
	}
	log.Info().Msg("MPD connection verified")

	// Wire the resolution pipeline
	mbClient := enrichment.NewMusicBrainzClient(
		enrichment.WithMBBaseURL(cfg.MusicBrainzURL),
		enrichment.WithMBUserAgent(cfg.UserAgent),
	)
	caaClient := enrichment.NewCAAClient(
		enrichment.WithBaseURL(cfg.CoverArtURL),
		enrichment.WithUserAgent(cfg.UserAgent),
	)
	queue := pending.NewQueue(cfg.PendingDir, cfg.MusicRoot)
	resolver := albumart.NewResolver(mbClient, caaClient, queue)

	// Create Socket.io server
	artServer, err := socketio.NewServer()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Socket.io server")
	}
	defer artServer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := startTrackWatcher(ctx, mpdClient, resolver, artServer); err != nil {
		log.Fatal().Err(err).Msg("Failed to start MPD watcher")
	}

	// Setup HTTP server
	mux := http.NewServeMux()

	mux.Handle("/socket.io/", artServer)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := mpdClient.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"error","mpd":"disconnected"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","mpd":"connected"}`))
	})

	mux.HandleFunc("/api/v1/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		json.NewEncoder(w).Encode(version.GetInfo())
	})

	mux.HandleFunc("/api/v1/artwork", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		current := artServer.Current()
		if current == nil {
			current = map[string]interface{}{}
		}
		json.NewEncoder(w).Encode(current)
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info().Msg("Shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	log.Info().Str("addr", ":"+cfg.Port).Msg("HTTP server listening")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("HTTP server error")
	}

	log.Info().Msg("Server stopped")
}

// startTrackWatcher resolves artwork for the playing track on every player
// subsystem change and broadcasts the result. Resolutions run one at a time
// on a dedicated goroutine, keeping the blocking pending-queue work (process
// spawn, file I/O) off the server's request paths.
func startTrackWatcher(ctx context.Context, mpdClient *mpd.Client, resolver *albumart.Resolver, artServer *socketio.Server) error {
	events, err := mpdClient.Watch("player")
	if err != nil {
		return err
	}

	go func() {
		log.Info().Msg("MPD track watcher started")

		var lastPath string
		resolveCurrent := func() {
			m, err := mpdClient.CurrentTrack()
			if err != nil {
				log.Warn().Err(err).Msg("Failed to read current song")
				return
			}
			if m.Path == "" || m.Path == lastPath {
				return
			}
			lastPath = m.Path

			url, err := resolver.Resolve(ctx, m)
			if err != nil {
				// Unexpected service payload or shutdown mid-resolution;
				// the track stays art-less either way.
				log.Error().Err(err).Str("uri", m.Path).Msg("Artwork resolution failed")
			}
			artServer.BroadcastArtwork(m, url)
		}

		resolveCurrent()

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("MPD track watcher stopped")
				return
			case _, ok := <-events:
				if !ok {
					log.Warn().Msg("MPD watcher channel closed")
					return
				}
				resolveCurrent()
			}
		}
	}()

	return nil
}
