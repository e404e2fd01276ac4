// Package stream broadcasts world snapshots to websocket clients, one JSON
// message per simulation step.
package stream

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/world"
)

// Server accepts websocket clients and fans world snapshots out to them.
type Server struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]bool

	commands chan Command
}

func NewServer() *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 8192,
			// Viewer pages are served from anywhere during development.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients:  map[*websocket.Conn]bool{},
		commands: make(chan Command, 16),
	}
}

// Handler upgrades requests to websocket connections and registers them for
// broadcasts. Incoming messages are decoded as Commands; anything else is
// discarded.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.clients[conn] = true
		s.mu.Unlock()

		go func() {
			defer s.drop(conn)
			for {
				var cmd Command
				if err := conn.ReadJSON(&cmd); err != nil {
					return
				}
				switch cmd.Type {
				case "pause", "resume", "reset":
					select {
					case s.commands <- cmd:
					default:
					}
				}
			}
		}()
	})
}

// Commands yields control messages received from clients.
func (s *Server) Commands() <-chan Command {
	return s.commands
}

func (s *Server) drop(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

// ClientCount reports connected clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Broadcast sends one snapshot to every client. A client that fails to
// accept the write is dropped.
func (s *Server) Broadcast(msg Snapshot) {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for c := range s.clients {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.SetWriteDeadline(time.Now().Add(time.Second))
		if err := c.WriteJSON(msg); err != nil {
			s.drop(c)
		}
	}
}

// Close disconnects every client.
func (s *Server) Close() {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for c := range s.clients {
		conns = append(conns, c)
	}
	s.clients = map[*websocket.Conn]bool{}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

// RunLoop steps the world in real time and broadcasts each step until the
// context is canceled. Client pause/resume commands gate stepping; reset
// swaps in a fresh world from the reset callback when one is given.
func RunLoop(ctx context.Context, w *world.World, cfg *config.Config, s *Server, reset func() (*world.World, error)) error {
	dt := cfg.Dt
	if dt <= 0 {
		dt = config.DefaultDt
	}
	ticker := time.NewTicker(time.Duration(float64(time.Second) * dt))
	defer ticker.Stop()

	paused := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-s.commands:
			switch cmd.Type {
			case "pause":
				paused = true
			case "resume":
				paused = false
			case "reset":
				if reset == nil {
					continue
				}
				fresh, err := reset()
				if err != nil {
					return err
				}
				w = fresh
			}
		case <-ticker.C:
			if paused {
				continue
			}
			info, err := w.Step(dt)
			if err != nil {
				return err
			}
			s.Broadcast(Encode(info.Step, info.Time, w.Snapshot(), w.Events()))
		}
	}
}
