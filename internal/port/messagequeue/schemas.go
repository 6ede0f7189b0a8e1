package messagequeue

import (
	"github.com/Strob0t/taskgate/internal/domain/approval"
	"github.com/Strob0t/taskgate/internal/domain/audit"
)

// AuditPayload is the schema for audit.recorded messages.
type AuditPayload = audit.Entry

// ApprovalEventPayload is the schema for approval lifecycle messages.
type ApprovalEventPayload = approval.Event

// ApprovalDecidePayload is the schema for approvals.decide messages.
type ApprovalDecidePayload struct {
	ApprovalID string `json:"approval_id"`
	ApproverID string `json:"approver_id"`
}
