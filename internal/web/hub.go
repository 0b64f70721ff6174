package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/desertthunder/streamgrid/internal/metrics"
)

// Event types pushed to websocket clients.
const (
	EventStreams     = "streams"
	EventSuggestions = "suggestions"
	EventSession     = "session"
)

const (
	writeWait      = 5 * time.Second
	maxMessageSize = 4 << 10
)

// Event is the envelope written to every websocket client.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// SuggestionsPayload is the data of an [EventSuggestions] event.
type SuggestionsPayload struct {
	EntryID     string   `json:"entry_id"`
	Suggestions []string `json:"suggestions"`
}

// Incoming is a message sent by the page over the socket.
type Incoming struct {
	Type    string `json:"type"`
	EntryID string `json:"entry_id"`
	Value   string `json:"value"`
}

// IncomingFunc handles one decoded client message.
type IncomingFunc func(ctx context.Context, msg Incoming)

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// Hub fans grid events out to connected pages and hands their messages to an [IncomingFunc].
type Hub struct {
	upgrader websocket.Upgrader
	logger   *log.Logger
	metrics  *metrics.Metrics

	mu       sync.RWMutex
	clients  map[*wsClient]struct{}
	incoming IncomingFunc
	greeting func() []Event
}

// NewHub creates a hub with no clients.
func NewHub(logger *log.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		logger:   logger,
		metrics:  m,
		clients:  make(map[*wsClient]struct{}),
	}
}

// SetIncoming installs the handler for client messages.
func (h *Hub) SetIncoming(fn IncomingFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.incoming = fn
}

// SetGreeting installs a function whose events are sent to each client right after it connects.
func (h *Hub) SetGreeting(fn func() []Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.greeting = fn
}

// ServeHTTP upgrades the request and reads client messages until the socket closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	client := &wsClient{conn: conn}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	greeting := h.greeting
	h.mu.Unlock()

	h.metrics.AddWSClients(1)
	h.logger.Debug("websocket connected", "remote", r.RemoteAddr, "clients", count)

	if greeting != nil {
		for _, ev := range greeting() {
			if err := client.writeJSON(ev); err != nil {
				h.drop(client)
				return
			}
		}
	}

	h.readLoop(r.Context(), client)
}

func (h *Hub) readLoop(ctx context.Context, client *wsClient) {
	defer h.drop(client)

	for {
		msgType, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var msg Incoming
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Debug("ignoring malformed websocket message", "error", err)
			continue
		}

		h.mu.RLock()
		fn := h.incoming
		h.mu.RUnlock()
		if fn != nil {
			fn(ctx, msg)
		}
	}
}

func (h *Hub) drop(client *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		client.conn.Close()
		h.metrics.AddWSClients(-1)
		h.logger.Debug("websocket closed", "clients", count)
	}
}

// Broadcast writes ev to every client, dropping those that fail.
func (h *Hub) Broadcast(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to encode websocket event", "type", ev.Type, "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.writeJSON(json.RawMessage(payload)); err != nil {
			h.logger.Debug("removing websocket client after write error", "error", err)
			h.drop(c)
		}
	}
}

// SuggestionsChanged broadcasts one entry's suggestion list. It matches [search.ChangeFunc].
func (h *Hub) SuggestionsChanged(entryID string, suggestions []string) {
	h.Broadcast(Event{Type: EventSuggestions, Data: SuggestionsPayload{EntryID: entryID, Suggestions: suggestions}})
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.mu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Now().Add(writeWait))
		c.mu.Unlock()
		h.drop(c)
	}
}
