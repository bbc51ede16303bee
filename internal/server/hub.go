package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type MessageType string

const (
	MessageTypeLog MessageType = "log"
)

type Message struct {
	Type MessageType `json:"type"`
	Data any         `json:"data"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(msg)
}

type hub struct {
	logger *slog.Logger
	gauge  prometheus.Gauge

	mu      sync.Mutex
	clients map[*client]struct{}
}

func newHub(logger *slog.Logger, gauge prometheus.Gauge) *hub {
	return &hub{
		logger:  logger,
		gauge:   gauge,
		clients: make(map[*client]struct{}),
	}
}

func (h *hub) add(conn *websocket.Conn) *client {
	c := &client{conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.gauge.Set(float64(n))
	h.logger.Debug("websocket client connected", "clients", n)
	return c
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.conn.Close()
	h.gauge.Set(float64(n))
	h.logger.Debug("websocket client disconnected", "clients", n)
}

func (h *hub) broadcast(msg Message) {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.send(msg); err != nil {
			h.logger.Warn("websocket send failed", "error", err)
			h.remove(c)
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := s.hub.add(conn)
	defer s.hub.remove(c)

	if err := c.send(Message{Type: MessageTypeLog, Data: s.Controller.Status()}); err != nil {
		return
	}

	// Clients only listen; reading detects the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
