package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/evetabi/matchsim/internal/domain"
	"github.com/evetabi/matchsim/internal/events"
	"github.com/gorilla/websocket"
)

// ──────────────────────────────────────────────────────────────────────────────
// Tunables
// ──────────────────────────────────────────────────────────────────────────────

const (
	writeDeadline  = 10 * time.Second
	pingInterval   = 30 * time.Second
	pongWait       = 35 * time.Second // must be > pingInterval
	maxMessageSize = 512              // bytes; clients only send pongs
	sendBufferSize = 256              // messages in each client send channel
)

// ──────────────────────────────────────────────────────────────────────────────
// Client
// ──────────────────────────────────────────────────────────────────────────────

// Client represents one connected WebSocket endpoint.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte // buffered outbound message queue
}

// ──────────────────────────────────────────────────────────────────────────────
// Hub
// ──────────────────────────────────────────────────────────────────────────────

// Hub maintains the set of active clients and routes broadcast messages.
// Run() must be called in a dedicated goroutine before ServeWs is used.
// Every Broadcast method is non-blocking: the simulation goroutine calls
// them directly.
type Hub struct {
	// Registered clients and their concurrency guard.
	mu      sync.RWMutex
	clients map[*Client]bool

	// channels consumed by Run()
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	// welcome returns the messages a client receives right after connecting.
	welcome func() []any

	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHub creates a Hub ready to be started with Run().  An empty
// allowedOrigins accepts every origin.
func NewHub(allowedOrigins []string, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 512),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true // dev mode: allow all
				}
				origin := r.Header.Get("Origin")
				for _, o := range allowedOrigins {
					if o == "*" || o == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// SetWelcome injects the source of the catch-up messages (current snapshot
// and odds board) sent to every new client.
func (h *Hub) SetWelcome(fn func() []any) { h.welcome = fn }

// Attach forwards every lifecycle event to clients as an events.Envelope.
func (h *Hub) Attach(bus *events.Bus) (detach func()) {
	return bus.SubscribeAll(func(e events.Event) {
		h.broadcastJSON(events.Wrap(e))
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Run: hub event loop
// ──────────────────────────────────────────────────────────────────────────────

// Run processes registration, unregistration, and broadcast events
// sequentially.  Call it once as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's buffer full: drop the message for this client.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// ConnectedCount returns the current number of connected clients.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ──────────────────────────────────────────────────────────────────────────────
// ServeWs: HTTP → WebSocket upgrade
// ──────────────────────────────────────────────────────────────────────────────

// ServeWs upgrades an HTTP request to a WebSocket connection, queues the
// welcome messages and starts the read/write pumps.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws.ServeWs: upgrade failed", "err", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	if h.welcome != nil {
		for _, msg := range h.welcome() {
			if data, err := json.Marshal(msg); err == nil {
				client.send <- data
			}
		}
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// ──────────────────────────────────────────────────────────────────────────────
// Client pumps
// ──────────────────────────────────────────────────────────────────────────────

// writePump drains the client's send channel and writes messages to the
// WebSocket connection.  It also sends ping frames every pingInterval.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				// Hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads frames from the WebSocket connection.  Only pong messages
// are handled (they reset the read deadline); the protocol is push-only.
// When the connection drops the client is unregistered.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("ws.readPump: unexpected close", "err", err)
			}
			return
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Broadcast helpers: implement scheduler.SnapshotHub and the service
// broadcaster interfaces
// ──────────────────────────────────────────────────────────────────────────────

// BroadcastSnapshot serialises and broadcasts a SnapshotMessage.
func (h *Hub) BroadcastSnapshot(snap domain.Snapshot) {
	h.broadcastJSON(SnapshotMessage{Type: MsgTypeSnapshot, Snapshot: snap})
}

// BroadcastOdds serialises and broadcasts an OddsMessage.
func (h *Hub) BroadcastOdds(board domain.OddsBoard) {
	h.broadcastJSON(OddsMessage{Type: MsgTypeOdds, Board: board})
}

// BroadcastSettlement serialises and broadcasts a SettlementMessage.
func (h *Hub) BroadcastSettlement(summary domain.SettlementSummary) {
	h.broadcastJSON(SettlementMessage{
		Type:      MsgTypeSettlement,
		Summary:   summary,
		Timestamp: time.Now().UTC(),
	})
}

// broadcastJSON is the common marshalling path.
func (h *Hub) broadcastJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("ws.Hub: marshal error", "err", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("ws.Hub: broadcast channel full, message dropped")
	}
}
