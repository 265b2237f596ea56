package httpapi

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

// allowedWSOrigins caches the parsed CORS_ALLOWED_ORIGINS for WebSocket
// origin checks.
var allowedWSOrigins []string

func init() {
	raw := os.Getenv("CORS_ALLOWED_ORIGINS")
	if raw == "" || raw == "*" {
		allowedWSOrigins = nil // nil means allow all
	} else {
		for _, o := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				allowedWSOrigins = append(allowedWSOrigins, trimmed)
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		if allowedWSOrigins == nil {
			return true // development mode: allow all
		}
		origin := r.Header.Get("Origin")
		for _, allowed := range allowedWSOrigins {
			if allowed == origin {
				return true
			}
		}
		slog.Warn("websocket origin rejected", "origin", origin)
		return false
	},
}

// wsClient is a single subscribed WebSocket connection.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// AlarmHub fans out alarm events to every subscribed WebSocket client. It is
// fed by an AlarmStreamer draining the alarms bus topic, rather than by the
// topic-generator tickers the pattern it's adapted from used — Warden's
// alarm events are already push-driven by the threshold engine, so the hub
// only needs a single Broadcast entry point.
type AlarmHub struct {
	mu         sync.RWMutex
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	stopCh     chan struct{}
}

// NewAlarmHub creates an AlarmHub. Call Start before serving connections.
func NewAlarmHub() *AlarmHub {
	return &AlarmHub{
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		stopCh:     make(chan struct{}),
	}
}

// Start begins the hub's run loop.
func (h *AlarmHub) Start() {
	go h.run()
}

// Stop shuts down the hub and disconnects every client.
func (h *AlarmHub) Stop() {
	close(h.stopCh)
}

func (h *AlarmHub) run() {
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
		case <-h.stopCh:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Broadcast fans payload out to every currently subscribed client. Slow
// clients are dropped from that message rather than blocking the hub.
func (h *AlarmHub) Broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
			// client too slow, drop message
		}
	}
}

// ServeWS upgrades the request to a WebSocket connection and subscribes it
// to every alarm event the hub broadcasts.
func (h *AlarmHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, 64)}
	h.register <- client

	go h.writePump(client)
	go h.readPump(client)
}

func (h *AlarmHub) writePump(client *wsClient) {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *AlarmHub) readPump(client *wsClient) {
	defer func() {
		h.unregister <- client
		client.conn.Close()
	}()
	client.conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		return nil
	})
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			break
		}
	}
}
