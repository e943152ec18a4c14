// Package config loads the daemon configuration from TOML files.
package config

import (
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds every externally supplied setting. Service endpoints and
// filesystem roots are injected here instead of living as constants next to
// the code that uses them.
type Config struct {
	MusicRoot  string `koanf:"music_root"`  // absolute path MPD's relative file paths resolve against
	PendingDir string `koanf:"pending_dir"` // where unresolved-cover entries are queued for triage

	MusicBrainzURL string `koanf:"musicbrainz_url"`
	CoverArtURL    string `koanf:"coverart_url"`
	UserAgent      string `koanf:"user_agent"`

	Port string `koanf:"port"` // HTTP listen port

	MPD MPDConfig `koanf:"mpd"`
}

// MPDConfig holds the MPD connection settings.
type MPDConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Password string `koanf:"password"`
}

// Load reads configuration. When path is non-empty only that file is used
// and a read failure is an error; otherwise the well-known locations are
// tried in order, last one wins, all optional. File values override the
// built-in defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, err
		}
	} else {
		for _, p := range defaultPaths() {
			if _, err := os.Stat(p); err == nil {
				if err := k.Load(file.Provider(p), toml.Parser()); err != nil {
					return nil, err
				}
			}
		}
	}

	cfg := &Config{
		MusicRoot:      "/var/lib/mpd/music",
		PendingDir:     "~/.local/share/mpdart/pending_covers",
		MusicBrainzURL: "https://musicbrainz.org/ws/2",
		CoverArtURL:    "https://coverartarchive.org",
		UserAgent:      "mpdart/1.0 (https://github.com/tmaury/mpdart)",
		Port:           "3002",
		MPD: MPDConfig{
			Host: "localhost",
			Port: 6600,
		},
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.MusicRoot = expandPath(cfg.MusicRoot)
	cfg.PendingDir = expandPath(cfg.PendingDir)

	return cfg, nil
}

func defaultPaths() []string {
	paths := []string{"/etc/mpdart/config.toml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "mpdart", "config.toml"))
	}

	// ./config.toml wins over the others
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
