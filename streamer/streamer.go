// Package streamer implements the optional live-preview fan-out: a
// WebSocket endpoint that pushes whatever frame bytes it is handed to
// any number of subscribers, mirroring the teacher's server/hub.go
// screenHandler/registerScreen pattern (binary frames, non-blocking
// send, drop frames for slow clients rather than block the producer).
//
// streamer carries no acquisition semantics of its own — it is the
// wire boundary for the external GUI viewer named in spec.md §6, not
// the viewer. A driver callback (e.g. the async-push callback, or a
// ticker polling ring_buffer.peek_ptr()) calls Broadcast with whatever
// it wants previewed.
package streamer

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Streamer fans a sequence of opaque frame buffers out to any number
// of connected WebSocket clients. The zero value is not usable; build
// one with New.
type Streamer struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	backlog int
}

// New builds a Streamer. backlog is the per-client send buffer depth;
// a client that already has backlog frames pending has each further
// broadcast frame silently dropped for it (its pending frames are
// kept) rather than blocking Broadcast, exactly like the teacher's
// sendToClients non-blocking select.
func New(backlog int) *Streamer {
	if backlog <= 0 {
		backlog = 2
	}
	return &Streamer{clients: make(map[*client]struct{}), backlog: backlog}
}

func (s *Streamer) register(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *Streamer) unregister(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

// ClientCount reports the number of currently connected subscribers.
func (s *Streamer) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Broadcast sends buf as a binary frame to every connected client.
// Never blocks: a client whose send channel is full has this frame
// dropped for it, matching the ring buffer's own overwrite-on-full
// philosophy — a preview stream favors freshness over completeness.
func (s *Streamer) Broadcast(buf []byte) {
	s.mu.RLock()
	snapshot := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		snapshot = append(snapshot, c)
	}
	s.mu.RUnlock()

	for _, c := range snapshot {
		select {
		case c.send <- buf:
		default:
		}
	}
}

// ServeHTTP upgrades the request to a WebSocket and registers the
// connection as a preview subscriber until it disconnects.
func (s *Streamer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("streamer: upgrade error:", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, s.backlog)}
	s.register(c)

	go func() {
		defer s.unregister(c)
		defer conn.Close()
		for msg := range c.send {
			if err := conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				log.Println("streamer: write error:", err)
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.unregister(c)
			return
		}
	}
}
