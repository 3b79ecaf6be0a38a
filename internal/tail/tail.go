// Package tail streams adapter logs to connected WebSocket clients, the way
// an edge platform's log-tailing CLI does. The server implements io.Writer
// so it can sit behind a slog handler and broadcast every log line as it is
// written.
package tail

import (
	"bytes"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Server manages WebSocket connections for log tailing.
type Server struct {
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	upgrader websocket.Upgrader

	// ring buffers the most recent lines so a new tail session sees
	// context from before it connected.
	ring    [][]byte
	ringPos int
	ringLen int
}

// ringSize is the number of recent log lines replayed to new clients.
const ringSize = 64

// NewServer creates a log tail server.
func NewServer() *Server {
	return &Server{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Tail endpoint is operator-facing, not public
			},
		},
		ring: make([][]byte, ringSize),
	}
}

// HandleWebSocket handles WebSocket upgrade and connection.
func (s *Server) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}

	// gorilla/websocket permits one concurrent writer per connection, so
	// the connection joins the broadcast set only after the replay writes
	// below have finished.
	s.mu.Lock()
	replay := s.recentLocked()
	s.mu.Unlock()

	for _, line := range replay {
		if err := conn.WriteMessage(websocket.TextMessage, line); err != nil {
			conn.Close()
			return
		}
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	// Keep connection alive until client disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

// Write broadcasts a log line to all connected clients. It implements
// io.Writer so the server can back a slog handler:
//
//	logger := slog.New(slog.NewJSONHandler(io.MultiWriter(os.Stderr, tailSrv), nil))
//
// Write never fails; a slow or dead client is dropped instead of blocking
// the logger.
func (s *Server) Write(p []byte) (int, error) {
	line := bytes.TrimRight(p, "\n")
	if len(line) == 0 {
		return len(p), nil
	}

	// Copy: slog reuses its buffer after Write returns.
	msg := make([]byte, len(line))
	copy(msg, line)

	s.mu.Lock()
	s.ring[s.ringPos] = msg
	s.ringPos = (s.ringPos + 1) % ringSize
	if s.ringLen < ringSize {
		s.ringLen++
	}
	clients := make([]*websocket.Conn, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.mu.Unlock()

	for _, client := range clients {
		if err := client.WriteMessage(websocket.TextMessage, msg); err != nil {
			s.mu.Lock()
			delete(s.clients, client)
			s.mu.Unlock()
			client.Close()
		}
	}

	return len(p), nil
}

// recentLocked returns buffered lines oldest-first. Caller holds mu.
func (s *Server) recentLocked() [][]byte {
	out := make([][]byte, 0, s.ringLen)
	start := s.ringPos - s.ringLen
	if start < 0 {
		start += ringSize
	}
	for i := 0; i < s.ringLen; i++ {
		out = append(out, s.ring[(start+i)%ringSize])
	}
	return out
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Close closes all client connections.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for client := range s.clients {
		client.Close()
		delete(s.clients, client)
	}
}
