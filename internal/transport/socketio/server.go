// Package socketio pushes artwork resolutions to connected UI clients.
package socketio

import (
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/tmaury/mpdart/internal/domain/track"
)

// Server handles Socket.io connections and pushes artwork updates.
type Server struct {
	io      *socket.Server
	mu      sync.RWMutex
	clients map[string]*socket.Socket
	current map[string]interface{}
}

// NewServer creates a new Socket.io server.
func NewServer() (*Server, error) {
	opts := socket.DefaultServerOptions()
	opts.SetPingTimeout(20 * time.Second)
	opts.SetPingInterval(25 * time.Second)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	server := socket.NewServer(nil, opts)

	s := &Server{
		io:      server,
		clients: make(map[string]*socket.Socket),
	}

	s.setupHandlers()

	return s, nil
}

// setupHandlers registers all Socket.io event handlers.
func (s *Server) setupHandlers() {
	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		clientID := string(client.Id())

		log.Info().Str("id", clientID).Msg("Client connected")

		s.mu.Lock()
		s.clients[clientID] = client
		s.mu.Unlock()

		client.On("disconnect", func(args ...any) {
			log.Info().Str("id", clientID).Msg("Client disconnected")

			s.mu.Lock()
			delete(s.clients, clientID)
			s.mu.Unlock()
		})

		client.On("getArtwork", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getArtwork")
			s.mu.RLock()
			current := s.current
			s.mu.RUnlock()
			if current != nil {
				client.Emit("pushArtwork", current)
			}
		})
	})
}

// BroadcastArtwork sends the artwork resolution for a track to every
// connected client and remembers it for late joiners. An empty URL means
// no cover could be confirmed.
func (s *Server) BroadcastArtwork(m track.Metadata, url string) {
	payload := map[string]interface{}{
		"artist":   m.Artist,
		"album":    m.Album,
		"title":    m.Title,
		"uri":      m.Path,
		"albumart": url,
	}

	s.mu.Lock()
	s.current = payload
	clientCount := len(s.clients)
	s.mu.Unlock()

	s.io.Emit("pushArtwork", payload)

	log.Debug().
		Str("uri", m.Path).
		Str("albumart", url).
		Int("clients", clientCount).
		Msg("Broadcast artwork")
}

// Current returns the most recently broadcast artwork payload, or nil.
func (s *Server) Current() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// ServeHTTP implements http.Handler for the Socket.io server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHandler(nil).ServeHTTP(w, r)
}

// Close closes the Socket.io server.
func (s *Server) Close() error {
	s.io.Close(nil)
	return nil
}
