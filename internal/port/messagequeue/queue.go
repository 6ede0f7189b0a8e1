// Package messagequeue defines the message queue port (interface).
package messagequeue

import "context"

// Handler processes a message received from the queue.
// The context carries request-scoped values such as the trace ID.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue is the port interface for publishing and subscribing to messages.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Drain gracefully drains all subscriptions before closing.
	Drain() error

	// Close shuts down the queue connection immediately.
	Close() error

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool
}

// Subjects used by TaskGate.
const (
	SubjectAuditRecorded     = "taskgate.audit.recorded"     // one message per dispatch decision
	SubjectApprovalRequested = "taskgate.approvals.requested" // lifecycle: new pending approval
	SubjectApprovalApproved  = "taskgate.approvals.approved"  // lifecycle: approval granted
	SubjectApprovalDecide    = "taskgate.approvals.decide"    // inbound: remote approver decision
)
