package web

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// hub fans rendered overlays out to websocket viewers. Slow viewers are dropped.
type hub struct {
	mu      sync.Mutex
	clients map[*viewer]struct{}
}

type viewer struct {
	conn *websocket.Conn
	send chan []byte
}

func newHub() *hub {
	return &hub{clients: make(map[*viewer]struct{})}
}

func (h *hub) add(c *websocket.Conn) *viewer {
	v := &viewer{conn: c, send: make(chan []byte, 4)}
	h.mu.Lock()
	h.clients[v] = struct{}{}
	h.mu.Unlock()
	return v
}

func (h *hub) remove(v *viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[v]; ok {
		delete(h.clients, v)
		close(v.send)
	}
}

// offer queues data for one viewer if it is still registered and has room
func (h *hub) offer(v *viewer, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[v]; !ok {
		return
	}
	select {
	case v.send <- data:
	default:
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for v := range h.clients {
		select {
		case v.send <- data:
		default:
			delete(h.clients, v)
			close(v.send)
		}
	}
}

// run pumps messages to the connection until it closes. It blocks and only
// returns once the writer has stopped using the connection.
func (h *hub) run(v *viewer) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case msg, ok := <-v.send:
				v.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if !ok {
					v.conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := v.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
					return
				}
			case <-ticker.C:
				v.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	v.conn.SetReadDeadline(time.Now().Add(pongWait))
	v.conn.SetPongHandler(func(string) error {
		v.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(v)
	<-done
}
