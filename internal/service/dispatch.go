package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Strob0t/taskgate/internal/adapter/otel"
	"github.com/Strob0t/taskgate/internal/domain/approval"
	"github.com/Strob0t/taskgate/internal/domain/audit"
	"github.com/Strob0t/taskgate/internal/domain/toolcall"
	"github.com/Strob0t/taskgate/internal/logger"
	"github.com/Strob0t/taskgate/internal/port/database"
	"github.com/Strob0t/taskgate/internal/port/toolbackend"
)

// DispatchService is the single entry point for executing tool calls. It
// enforces tool-level policy, gates high-risk actions behind approvals,
// runs the back-end and writes exactly one audit entry per call.
type DispatchService struct {
	policy    *PolicyService
	approvals *ApprovalService
	backends  *toolbackend.Registry
	audit     database.AuditSink
	metrics   *otel.Metrics
	now       func() time.Time
}

// NewDispatchService creates a DispatchService. audit may be nil.
func NewDispatchService(policy *PolicyService, approvals *ApprovalService, backends *toolbackend.Registry, audit database.AuditSink) *DispatchService {
	return &DispatchService{
		policy:    policy,
		approvals: approvals,
		backends:  backends,
		audit:     audit,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetMetrics enables dispatch metrics.
func (s *DispatchService) SetMetrics(m *otel.Metrics) {
	s.metrics = m
}

// Execute authorizes and runs call on behalf of identityID.
func (s *DispatchService) Execute(ctx context.Context, identityID string, call toolcall.ToolCall) toolcall.Result {
	ctx, span := otel.StartToolCallSpan(ctx, identityID, call.Tool, call.Action)
	defer span.End()

	start := time.Now()
	snapshot := call.Snapshot()
	res := s.execute(ctx, identityID, call)

	s.writeAudit(ctx, identityID, snapshot, res)
	s.metrics.RecordToolCall(ctx, call.Tool, string(res.Status), float64(time.Since(start).Microseconds())/1000)
	return res
}

func (s *DispatchService) execute(ctx context.Context, identityID string, call toolcall.ToolCall) toolcall.Result {
	tool, ok := toolcall.ParseTool(call.Tool)
	if !ok {
		return toolcall.Result{Status: toolcall.StatusError, Message: toolcall.MsgUnknownTool}
	}
	backend, ok := s.backends.Get(tool)
	if !ok {
		return toolcall.Result{Status: toolcall.StatusError, Message: toolcall.MsgUnknownTool}
	}

	if v := s.policy.CheckTool(identityID, call); !v.Allowed {
		slog.Info("tool call denied", "user", identityID, "tool", call.Tool, "action", call.Action, "reason", v.Reason)
		return toolcall.Result{Status: toolcall.StatusDenied, Message: toolcall.MsgNotAuthorized}
	}

	if s.policy.RequiresApproval(call) {
		if res, gated := s.approvalGate(ctx, identityID, call); gated {
			return res
		}
	}

	identity, _ := s.policy.Identity(identityID)
	data, err := backend.Execute(ctx, identity, call.Action, call.Snapshot().Parameters)
	if err != nil {
		var denied *toolbackend.DeniedError
		switch {
		case errors.As(err, &denied):
			return toolcall.Result{Status: toolcall.StatusDenied, Message: denied.Message}
		case errors.Is(err, toolbackend.ErrNotAuthorized):
			return toolcall.Result{Status: toolcall.StatusDenied, Message: toolcall.MsgNotAuthorized}
		default:
			slog.Error("tool back-end failed", "tool", call.Tool, "action", call.Action, "error", err)
			return toolcall.Result{Status: toolcall.StatusError, Message: "Tool execution failed: " + err.Error()}
		}
	}
	return toolcall.Result{Status: toolcall.StatusOK, Message: toolcall.MsgExecuted, Data: data}
}

// approvalGate returns the pending result when call may not run yet.
func (s *DispatchService) approvalGate(ctx context.Context, identityID string, call toolcall.ToolCall) (toolcall.Result, bool) {
	id := call.ApprovalID()
	if id == "" {
		newID, err := s.approvals.Create(ctx, identityID, call)
		var pe *approval.PersistenceError
		if errors.As(err, &pe) {
			slog.Warn("approval created but not persisted", "approval_id", newID, "op", pe.Op)
		}
		return toolcall.Result{
			Status:     toolcall.StatusPendingApproval,
			Message:    toolcall.MsgRequiresApproval,
			ApprovalID: newID,
		}, true
	}
	if !s.approvals.IsGranted(id, identityID, call) {
		return toolcall.Result{
			Status:     toolcall.StatusPendingApproval,
			Message:    toolcall.MsgApprovalPending,
			ApprovalID: id,
		}, true
	}
	return toolcall.Result{}, false
}

func (s *DispatchService) writeAudit(ctx context.Context, identityID string, call toolcall.ToolCall, res toolcall.Result) {
	if s.audit == nil {
		return
	}
	entry := audit.Entry{
		TS:       s.now(),
		User:     identityID,
		ToolCall: call,
		Decision: audit.Decision(res.Status),
		Message:  res.Message,
		TraceID:  logger.TraceID(ctx),
	}
	if err := s.audit.WriteAudit(ctx, entry); err != nil {
		slog.Error("audit write failed", "user", identityID, "tool", call.Tool, "error", err)
	}
}
