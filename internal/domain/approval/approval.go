// Package approval defines the human-approval record that gates high-risk
// tool calls, and its lifecycle events.
package approval

import (
	"fmt"
	"maps"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/Strob0t/taskgate/internal/domain/toolcall"
)

// Status of an approval. The only transition is pending -> approved.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
)

// Approval is a request for a human to allow one specific tool call.
type Approval struct {
	ID          string            `json:"id"`
	Status      Status            `json:"status"`
	RequestedBy string            `json:"requested_by"`
	ToolCall    toolcall.ToolCall `json:"toolcall"`
	RequestedAt time.Time         `json:"requested_at"`
	ApprovedBy  string            `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time        `json:"approved_at,omitempty"`
}

// Approve marks a pending approval as approved. It returns false, leaving
// the record untouched, when the approval was already approved.
func (a *Approval) Approve(approver string, now time.Time) bool {
	if a.Status == StatusApproved {
		return false
	}
	a.Status = StatusApproved
	a.ApprovedBy = approver
	a.ApprovedAt = &now
	return true
}

// IsApproved reports whether the approval has been granted.
func (a *Approval) IsApproved() bool {
	return a.Status == StatusApproved
}

// Covers reports whether the approval was requested by requester for exactly
// call. The approval_id parameter is not part of the comparison.
func (a *Approval) Covers(requester string, call toolcall.ToolCall) bool {
	if a.RequestedBy != requester || a.ToolCall.Tool != call.Tool || a.ToolCall.Action != call.Action {
		return false
	}
	return cmp.Equal(approvedParams(a.ToolCall), approvedParams(call), cmpopts.EquateEmpty())
}

func approvedParams(c toolcall.ToolCall) map[string]any {
	p := maps.Clone(c.Parameters)
	delete(p, toolcall.ParamApprovalID)
	return p
}

// EventType names an approval lifecycle event.
type EventType string

const (
	EventRequested EventType = "requested"
	EventApproved  EventType = "approved"
)

// Event is one line of the approval lifecycle log.
type Event struct {
	TS          time.Time         `json:"ts"`
	ApprovalID  string            `json:"approval_id"`
	Event       EventType         `json:"event"`
	RequestedBy string            `json:"requested_by"`
	ApprovedBy  string            `json:"approved_by,omitempty"`
	ToolCall    toolcall.ToolCall `json:"toolcall"`
}

// NewEvent builds the lifecycle event for a.
func NewEvent(a *Approval, typ EventType, ts time.Time) Event {
	return Event{
		TS:          ts,
		ApprovalID:  a.ID,
		Event:       typ,
		RequestedBy: a.RequestedBy,
		ApprovedBy:  a.ApprovedBy,
		ToolCall:    a.ToolCall,
	}
}

// PersistenceError reports that an approval state change took effect in
// memory but could not be made durable or logged.
type PersistenceError struct {
	ApprovalID string
	Op         string // "save" or "log"
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("approval %s: %s: %v", e.ApprovalID, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
