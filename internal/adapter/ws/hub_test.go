package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/Strob0t/taskgate/internal/domain/approval"
	"github.com/Strob0t/taskgate/internal/port/broadcast"
)

func TestClientWants(t *testing.T) {
	tests := []struct {
		query string
		event string
		want  bool
	}{
		{"", broadcast.EventDispatchDecision, true},
		{"events=approval", broadcast.EventApprovalRequested, true},
		{"events=approval", broadcast.EventApprovalApproved, true},
		{"events=approval", broadcast.EventDispatchDecision, false},
		{"events=approv", broadcast.EventApprovalRequested, false},
		{"events=dispatch.decision,%20approval.approved", broadcast.EventApprovalApproved, true},
		{"events=,,", broadcast.EventDispatchDecision, true},
	}
	for _, tt := range tests {
		t.Run(tt.query+"/"+tt.event, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws?"+tt.query, http.NoBody)
			c := &client{topics: parseTopics(r)}
			if got := c.wants(tt.event); got != tt.want {
				t.Errorf("wants(%q) with %q = %v, want %v", tt.event, tt.query, got, tt.want)
			}
		})
	}
}

func TestHubWithoutClients(t *testing.T) {
	hub := NewHub()
	hub.BroadcastEvent(context.Background(), broadcast.EventDispatchDecision, map[string]string{"decision": "denied"})
	// Unmarshalable payloads are logged, never panic.
	hub.BroadcastEvent(context.Background(), "bad", make(chan int))
	hub.Close()
	if n := hub.ConnectionCount(); n != 0 {
		t.Errorf("connections = %d", n)
	}
}

// dial connects a dashboard with the given query and waits until the hub
// has registered it.
func dial(t *testing.T, ctx context.Context, hub *Hub, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	before := hub.ConnectionCount()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	if query != "" {
		u += "?" + query
	}
	c, _, err := websocket.Dial(ctx, u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(websocket.StatusNormalClosure, "") })

	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectionCount() == before {
		if time.Now().After(deadline) {
			t.Fatal("connection never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}
	return c
}

func readMessage(t *testing.T, ctx context.Context, c *websocket.Conn) Message {
	t.Helper()
	_, data, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return msg
}

func TestHubRoutesEventsByTopic(t *testing.T) {
	hub := NewHub()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	hub.now = func() time.Time { return fixed }
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()
	defer hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	approver := dial(t, ctx, hub, srv, "events="+url.QueryEscape("approval"))
	auditor := dial(t, ctx, hub, srv, "")

	hub.BroadcastEvent(ctx, broadcast.EventDispatchDecision, map[string]string{"decision": "denied"})
	hub.BroadcastEvent(ctx, broadcast.EventApprovalRequested, approval.Event{
		ApprovalID:  "a-1",
		Event:       approval.EventRequested,
		RequestedBy: "it01",
	})

	// The approver never sees the dispatch decision.
	msg := readMessage(t, ctx, approver)
	if msg.Type != broadcast.EventApprovalRequested || !msg.TS.Equal(fixed) {
		t.Fatalf("approver got %s at %v", msg.Type, msg.TS)
	}
	var ev approval.Event
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if ev.ApprovalID != "a-1" || ev.RequestedBy != "it01" {
		t.Errorf("event = %+v", ev)
	}

	first := readMessage(t, ctx, auditor)
	second := readMessage(t, ctx, auditor)
	if first.Type != broadcast.EventDispatchDecision || second.Type != broadcast.EventApprovalRequested {
		t.Errorf("auditor got %s then %s", first.Type, second.Type)
	}
}

func TestHubCloseDisconnects(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c := dial(t, ctx, hub, srv, "")

	hub.Close()
	if n := hub.ConnectionCount(); n != 0 {
		t.Errorf("connections after Close = %d", n)
	}
	if _, _, err := c.Read(ctx); err == nil {
		t.Error("read after Close succeeded")
	}
}
