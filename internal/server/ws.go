package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/orbit/internal/app"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second

	// clientSendBuf is the per-client queue. A client that falls this far
	// behind the frame loop is disconnected.
	clientSendBuf = 64
)

// Message types on the state WebSocket.
const (
	MessageStateInit = "state_init"
	MessageState     = "state"
)

// envelope is the wire format for state WebSocket messages.
type envelope struct {
	Type string     `json:"type"`
	Ts   time.Time  `json:"ts"`
	Data app.Status `json:"data"`
}

func encodeStatus(kind string, s app.Status) ([]byte, error) {
	return json.Marshal(envelope{Type: kind, Ts: s.UpdatedAt, Data: s})
}

// StateHub broadcasts every published status to connected WebSocket clients.
type StateHub struct {
	source  StateSource
	clients map[*wsClient]struct{}
	mu      sync.Mutex
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.send)
		c.conn.Close()
	})
}

// NewStateHub creates a hub fed by source. Call Run to start broadcasting.
func NewStateHub(source StateSource) *StateHub {
	return &StateHub{
		source:  source,
		clients: make(map[*wsClient]struct{}),
	}
}

// Run forwards statuses to clients until ctx is canceled, then disconnects everyone.
func (h *StateHub) Run(ctx context.Context) {
	updates, unsubscribe := h.source.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case s := <-updates:
			msg, err := encodeStatus(MessageState, s)
			if err != nil {
				log.Printf("encode state: %v", err)
				continue
			}
			h.broadcast(msg)
		}
	}
}

// broadcast queues msg for every client and drops the ones that cannot keep up.
func (h *StateHub) broadcast(msg []byte) {
	var slow []*wsClient

	h.mu.Lock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.remove(c, "slow client")
	}
}

// ClientCount returns the number of connected clients.
func (h *StateHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *StateHub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *StateHub) remove(c *wsClient, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		c.close()
		log.Printf("websocket client %s disconnected (%s), %d remaining", c.conn.RemoteAddr(), reason, n)
	}
}

func (h *StateHub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*wsClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.close()
	}
}

// ServeHTTP upgrades the request, sends the current status, then streams updates.
func (h *StateHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	c := &wsClient{
		conn: conn,
		send: make(chan []byte, clientSendBuf),
	}

	if msg, err := encodeStatus(MessageStateInit, h.source.Status()); err == nil {
		c.send <- msg
	}
	h.add(c)

	go c.writePump()
	c.readPump()

	h.remove(c, "closed")
}

// writePump writes queued messages and pings until send is closed or a write fails.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					log.Printf("websocket write error: %v", err)
				}
				c.conn.Close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}

// readPump discards incoming messages and returns when the connection ends.
func (c *wsClient) readPump() {
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
