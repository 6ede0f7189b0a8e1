// Package audit defines the record written for every dispatch decision.
package audit

import (
	"time"

	"github.com/Strob0t/taskgate/internal/domain/toolcall"
)

// Decision mirrors the dispatch result status.
type Decision string

const (
	DecisionOK              Decision = "ok"
	DecisionDenied          Decision = "denied"
	DecisionPendingApproval Decision = "pending_approval"
	DecisionError           Decision = "error"
)

// Entry is one append-only audit record.
type Entry struct {
	TS       time.Time         `json:"ts"`
	User     string            `json:"user"`
	ToolCall toolcall.ToolCall `json:"toolcall"`
	Decision Decision          `json:"decision"`
	Message  string            `json:"message"`
	TraceID  string            `json:"trace_id,omitempty"`
}
