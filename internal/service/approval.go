package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/taskgate/internal/domain"
	"github.com/Strob0t/taskgate/internal/domain/approval"
	"github.com/Strob0t/taskgate/internal/domain/toolcall"
	"github.com/Strob0t/taskgate/internal/port/database"
	"github.com/Strob0t/taskgate/internal/port/messagequeue"
)

// ApprovalListener is notified after every approval lifecycle event.
type ApprovalListener func(ctx context.Context, ev approval.Event)

// ApprovalService owns the approval set. Create and Approve are serialized
// by a mutex; state changes take effect in memory even when persistence or
// event logging fails.
type ApprovalService struct {
	persister database.ApprovalPersister
	events    database.ApprovalEventLog

	mu        sync.Mutex
	approvals map[string]approval.Approval
	listeners []ApprovalListener

	now   func() time.Time
	newID func() string
}

// NewApprovalService creates an ApprovalService. persister and events may be
// nil, in which case the respective step is skipped.
func NewApprovalService(persister database.ApprovalPersister, events database.ApprovalEventLog) *ApprovalService {
	return &ApprovalService{
		persister: persister,
		events:    events,
		approvals: make(map[string]approval.Approval),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// AddListener registers a lifecycle listener. Listeners run synchronously
// after the state change, outside the lock.
func (s *ApprovalService) AddListener(l ApprovalListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Load replaces the in-memory set with the persisted one. A load failure
// leaves the service empty and is only logged.
func (s *ApprovalService) Load(ctx context.Context) {
	loaded := map[string]approval.Approval{}
	if s.persister != nil {
		m, err := s.persister.Load(ctx)
		if err != nil {
			slog.Warn("approval store unreadable, starting empty", "error", err)
		} else if m != nil {
			loaded = m
		}
	}

	s.mu.Lock()
	s.approvals = loaded
	s.mu.Unlock()
	slog.Info("approvals loaded", "count", len(loaded))
}

// Create records a pending approval for call requested by requester. The
// returned ID is always valid; a non-nil error is then a
// *approval.PersistenceError reporting that the record was not made durable.
func (s *ApprovalService) Create(ctx context.Context, requester string, call toolcall.ToolCall) (string, error) {
	s.mu.Lock()
	a := approval.Approval{
		ID:          s.newID(),
		Status:      approval.StatusPending,
		RequestedBy: requester,
		ToolCall:    call.Snapshot(),
		RequestedAt: s.now(),
	}
	s.approvals[a.ID] = a
	err := s.persistLocked(ctx, &a, approval.EventRequested)
	listeners := s.listeners
	s.mu.Unlock()

	slog.Info("approval requested", "approval_id", a.ID, "requested_by", requester,
		"tool", call.Tool, "action", call.Action)
	s.notify(ctx, listeners, approval.NewEvent(&a, approval.EventRequested, a.RequestedAt))
	return a.ID, err
}

// Approve grants approval id on behalf of approver. Unknown IDs return
// domain.ErrNotFound. Approving an already approved record succeeds without
// changing it. A *approval.PersistenceError reports a grant that was not
// made durable.
func (s *ApprovalService) Approve(ctx context.Context, id, approver string) (approval.Approval, error) {
	s.mu.Lock()
	a, ok := s.approvals[id]
	if !ok {
		s.mu.Unlock()
		return approval.Approval{}, fmt.Errorf("approval %s: %w", id, domain.ErrNotFound)
	}
	if !a.Approve(approver, s.now()) {
		s.mu.Unlock()
		return a, nil
	}
	s.approvals[id] = a
	err := s.persistLocked(ctx, &a, approval.EventApproved)
	listeners := s.listeners
	s.mu.Unlock()

	slog.Info("approval granted", "approval_id", id, "approved_by", approver)
	s.notify(ctx, listeners, approval.NewEvent(&a, approval.EventApproved, *a.ApprovedAt))
	return a, err
}

// persistLocked saves the set and appends the lifecycle event. Both are
// attempted; the first failure is returned.
func (s *ApprovalService) persistLocked(ctx context.Context, a *approval.Approval, typ approval.EventType) error {
	var first error
	if s.persister != nil {
		if err := s.persister.Save(ctx, s.snapshotLocked(), *a); err != nil {
			slog.Error("approval save failed", "approval_id", a.ID, "error", err)
			first = &approval.PersistenceError{ApprovalID: a.ID, Op: "save", Err: err}
		}
	}
	if s.events != nil {
		ts := a.RequestedAt
		if typ == approval.EventApproved && a.ApprovedAt != nil {
			ts = *a.ApprovedAt
		}
		if err := s.events.Append(ctx, approval.NewEvent(a, typ, ts)); err != nil {
			slog.Error("approval event log failed", "approval_id", a.ID, "error", err)
			if first == nil {
				first = &approval.PersistenceError{ApprovalID: a.ID, Op: "log", Err: err}
			}
		}
	}
	return first
}

func (s *ApprovalService) snapshotLocked() map[string]approval.Approval {
	out := make(map[string]approval.Approval, len(s.approvals))
	for k, v := range s.approvals {
		out[k] = v
	}
	return out
}

func (s *ApprovalService) notify(ctx context.Context, listeners []ApprovalListener, ev approval.Event) {
	for _, l := range listeners {
		l(ctx, ev)
	}
}

// Get returns the approval with the given ID.
func (s *ApprovalService) Get(id string) (approval.Approval, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.approvals[id]
	return a, ok
}

// History returns the logged lifecycle events of approval id. It is empty
// when the event log cannot be read back.
func (s *ApprovalService) History(ctx context.Context, id string) ([]approval.Event, error) {
	if _, ok := s.Get(id); !ok {
		return nil, fmt.Errorf("approval %s: %w", id, domain.ErrNotFound)
	}
	h, ok := s.events.(database.ApprovalHistory)
	if !ok {
		return []approval.Event{}, nil
	}
	events, err := h.Events(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("approval history %s: %w", id, err)
	}
	if events == nil {
		events = []approval.Event{}
	}
	return events, nil
}

// List returns approvals with the given status, oldest first. An empty
// status lists all.
func (s *ApprovalService) List(status approval.Status) []approval.Approval {
	s.mu.Lock()
	out := make([]approval.Approval, 0, len(s.approvals))
	for _, a := range s.approvals {
		if status == "" || a.Status == status {
			out = append(out, a)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].RequestedAt.Equal(out[j].RequestedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].RequestedAt.Before(out[j].RequestedAt)
	})
	return out
}

// IsGranted reports whether id names an approved approval that requester
// obtained for call.
func (s *ApprovalService) IsGranted(id, requester string, call toolcall.ToolCall) bool {
	a, ok := s.Get(id)
	return ok && a.IsApproved() && a.Covers(requester, call)
}

// HandleDecide is a message queue handler applying remote approve decisions.
// Unknown approvals are acknowledged and logged, not retried.
func (s *ApprovalService) HandleDecide(ctx context.Context, _ string, data []byte) error {
	var p messagequeue.ApprovalDecidePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode decide payload: %w", err)
	}
	_, err := s.Approve(ctx, p.ApprovalID, p.ApproverID)
	if err != nil {
		var pe *approval.PersistenceError
		switch {
		case errors.As(err, &pe):
			return nil
		case errors.Is(err, domain.ErrNotFound):
			slog.Warn("remote approve for unknown approval", "approval_id", p.ApprovalID)
			return nil
		}
		return err
	}
	return nil
}
