// Package ws implements the WebSocket adapter that streams approval and
// dispatch events to approver dashboards.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const writeTimeout = 5 * time.Second

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    string          `json:"type"`
	TS      time.Time       `json:"ts"`
	Payload json.RawMessage `json:"payload"`
}

// client is one dashboard connection. topics holds event type prefixes
// from the "events" query parameter; empty means every event.
type client struct {
	ws     *websocket.Conn
	cancel context.CancelFunc
	topics []string
}

func (c *client) wants(eventType string) bool {
	if len(c.topics) == 0 {
		return true
	}
	for _, t := range c.topics {
		if eventType == t || strings.HasPrefix(eventType, t+".") {
			return true
		}
	}
	return false
}

// parseTopics reads "?events=approval,dispatch.decision".
func parseTopics(r *http.Request) []string {
	var topics []string
	for _, t := range strings.Split(r.URL.Query().Get("events"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}

// Hub tracks dashboard connections and fans events out to them.
type Hub struct {
	originPatterns []string
	now            func() time.Time

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates a hub accepting connections from the given origin
// host patterns. An empty origin list allows same-origin clients only.
func NewHub(originPatterns ...string) *Hub {
	return &Hub{
		originPatterns: originPatterns,
		now:            time.Now,
		clients:        make(map[*client]struct{}),
	}
}

// HandleWS upgrades the request and registers the client. Clients only
// listen; inbound frames are read and dropped so close frames are seen.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Warn("websocket accept failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &client{ws: conn, cancel: cancel, topics: parseTopics(r)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	slog.Info("dashboard connected", "remote", r.RemoteAddr, "topics", c.topics)

	go func() {
		defer h.drop(c, websocket.StatusNormalClosure, "")
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()
}

// Broadcast writes msg to every client subscribed to its type. A client
// whose write fails is dropped.
func (h *Hub) Broadcast(ctx context.Context, msg Message) {
	if msg.TS.IsZero() {
		msg.TS = h.now().UTC()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("websocket marshal failed", "type", msg.Type, "error", err)
		return
	}

	h.mu.RLock()
	var targets []*client
	for c := range h.clients {
		if c.wants(msg.Type) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := c.ws.Write(wctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			slog.Debug("websocket write failed", "type", msg.Type, "error", err)
			h.drop(c, websocket.StatusPolicyViolation, "write failed")
		}
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	all := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		all = append(all, c)
	}
	h.mu.RUnlock()

	for _, c := range all {
		h.drop(c, websocket.StatusGoingAway, "server shutdown")
	}
}

// drop unregisters c and closes its socket once.
func (h *Hub) drop(c *client, code websocket.StatusCode, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if !ok {
		return
	}
	c.cancel()
	if c.ws != nil {
		_ = c.ws.Close(code, reason)
	}
	slog.Info("dashboard disconnected")
}
