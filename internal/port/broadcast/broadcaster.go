// Package broadcast defines the port for pushing real-time events to
// connected clients such as approver dashboards.
package broadcast

import "context"

// Event types pushed to clients.
const (
	EventApprovalRequested = "approval.requested"
	EventApprovalApproved  = "approval.approved"
	EventDispatchDecision  = "dispatch.decision"
)

// Broadcaster sends real-time events to all connected clients.
type Broadcaster interface {
	// BroadcastEvent sends a typed event to all connected clients.
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
