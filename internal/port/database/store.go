// Package database defines the persistence ports for approvals and the
// dispatch audit trail.
package database

import (
	"context"

	"github.com/Strob0t/taskgate/internal/domain/approval"
	"github.com/Strob0t/taskgate/internal/domain/audit"
)

// ApprovalPersister stores the durable state of the approval set.
type ApprovalPersister interface {
	// Load returns every stored approval keyed by ID.
	Load(ctx context.Context) (map[string]approval.Approval, error)

	// Save makes changed durable. snapshot is the full set after the
	// change; file-based stores rewrite it, row-based stores upsert changed.
	Save(ctx context.Context, snapshot map[string]approval.Approval, changed approval.Approval) error
}

// ApprovalEventLog appends approval lifecycle events.
type ApprovalEventLog interface {
	Append(ctx context.Context, ev approval.Event) error
}

// AuditSink receives one entry per dispatch decision.
type AuditSink interface {
	WriteAudit(ctx context.Context, entry audit.Entry) error
}

// ApprovalHistory reads back the lifecycle events of one approval.
type ApprovalHistory interface {
	Events(ctx context.Context, approvalID string) ([]approval.Event, error)
}

// AuditReader reads back recent audit entries of one identity, newest first.
type AuditReader interface {
	AuditByUser(ctx context.Context, userID string, limit int) ([]audit.Entry, error)
}
