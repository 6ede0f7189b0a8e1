package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Strob0t/taskgate/internal/adapter/otel"
	"github.com/Strob0t/taskgate/internal/domain/approval"
	"github.com/Strob0t/taskgate/internal/domain/audit"
	"github.com/Strob0t/taskgate/internal/port/broadcast"
	"github.com/Strob0t/taskgate/internal/port/database"
	"github.com/Strob0t/taskgate/internal/port/messagequeue"
)

// --- Approval listeners ---

// BroadcastApprovals pushes lifecycle events to connected approvers.
func BroadcastApprovals(b broadcast.Broadcaster) ApprovalListener {
	return func(ctx context.Context, ev approval.Event) {
		typ := broadcast.EventApprovalRequested
		if ev.Event == approval.EventApproved {
			typ = broadcast.EventApprovalApproved
		}
		b.BroadcastEvent(ctx, typ, ev)
	}
}

// PublishApprovals publishes lifecycle events to the message queue.
// Publish failures are logged.
func PublishApprovals(q messagequeue.Queue) ApprovalListener {
	return func(ctx context.Context, ev approval.Event) {
		subject := messagequeue.SubjectApprovalRequested
		if ev.Event == approval.EventApproved {
			subject = messagequeue.SubjectApprovalApproved
		}
		if err := publishJSON(ctx, q, subject, ev); err != nil {
			slog.Warn("approval event publish failed", "approval_id", ev.ApprovalID, "error", err)
		}
	}
}

// MeterApprovals tracks the pending-approval gauge.
func MeterApprovals(m *otel.Metrics) ApprovalListener {
	return func(ctx context.Context, ev approval.Event) {
		switch ev.Event {
		case approval.EventRequested:
			m.ApprovalRequested(ctx)
		case approval.EventApproved:
			m.ApprovalGranted(ctx)
		}
	}
}

func publishJSON(ctx context.Context, q messagequeue.Queue, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", subject, err)
	}
	return q.Publish(ctx, subject, data)
}

// --- Audit sinks ---

// AuditFanout writes every entry to all sinks. All sinks are attempted;
// failures are joined.
type AuditFanout struct {
	sinks []database.AuditSink
}

var _ database.AuditSink = (*AuditFanout)(nil)

// NewAuditFanout creates a fan-out over the non-nil sinks.
func NewAuditFanout(sinks ...database.AuditSink) *AuditFanout {
	f := &AuditFanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// WriteAudit implements database.AuditSink.
func (f *AuditFanout) WriteAudit(ctx context.Context, e audit.Entry) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.WriteAudit(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// QueueAuditSink publishes audit entries to the message queue.
type QueueAuditSink struct {
	Queue messagequeue.Queue
}

func (s QueueAuditSink) WriteAudit(ctx context.Context, e audit.Entry) error {
	return publishJSON(ctx, s.Queue, messagequeue.SubjectAuditRecorded, e)
}

// BroadcastAuditSink pushes audit entries to connected dashboards.
type BroadcastAuditSink struct {
	Broadcaster broadcast.Broadcaster
}

func (s BroadcastAuditSink) WriteAudit(ctx context.Context, e audit.Entry) error {
	s.Broadcaster.BroadcastEvent(ctx, broadcast.EventDispatchDecision, e)
	return nil
}
