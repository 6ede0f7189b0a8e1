package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/taskgate/internal/domain/approval"
	"github.com/Strob0t/taskgate/internal/domain/audit"
	"github.com/Strob0t/taskgate/internal/port/database"
)

// Store implements the approval and audit persistence ports on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ database.ApprovalPersister = (*Store)(nil)
	_ database.ApprovalEventLog  = (*Store)(nil)
	_ database.ApprovalHistory   = (*Store)(nil)
	_ database.AuditSink         = (*Store)(nil)
	_ database.AuditReader       = (*Store)(nil)
)

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Approvals ---

const approvalColumns = `id, status, requested_by, toolcall, requested_at, COALESCE(approved_by, ''), approved_at`

func scanApproval(row scannable) (approval.Approval, error) {
	var (
		a          approval.Approval
		status     string
		rawCall    []byte
		approvedAt *time.Time
	)
	if err := row.Scan(&a.ID, &status, &a.RequestedBy, &rawCall, &a.RequestedAt, &a.ApprovedBy, &approvedAt); err != nil {
		return a, fmt.Errorf("scan approval: %w", err)
	}
	call, err := unmarshalToolCall(rawCall)
	if err != nil {
		return a, err
	}
	a.Status = approval.Status(status)
	a.ToolCall = call
	a.ApprovedAt = approvedAt
	return a, nil
}

// Load returns all approvals keyed by ID.
func (s *Store) Load(ctx context.Context) (map[string]approval.Approval, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+approvalColumns+` FROM approvals ORDER BY requested_at`)
	if err != nil {
		return nil, fmt.Errorf("load approvals: %w", err)
	}
	defer rows.Close()

	out := make(map[string]approval.Approval)
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

// Save upserts the changed approval. The snapshot is not needed for a
// row-based store.
func (s *Store) Save(ctx context.Context, _ map[string]approval.Approval, changed approval.Approval) error {
	call, err := marshalToolCall(changed.ToolCall)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO approvals (id, status, requested_by, toolcall, requested_at, approved_by, approved_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE
		 SET status = EXCLUDED.status, approved_by = EXCLUDED.approved_by, approved_at = EXCLUDED.approved_at`,
		changed.ID, string(changed.Status), changed.RequestedBy, call, changed.RequestedAt,
		nullIfEmpty(changed.ApprovedBy), changed.ApprovedAt)
	if err != nil {
		return fmt.Errorf("save approval %s: %w", changed.ID, err)
	}
	return nil
}

// Append inserts an approval lifecycle event.
func (s *Store) Append(ctx context.Context, ev approval.Event) error {
	call, err := marshalToolCall(ev.ToolCall)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO approval_events (approval_id, event, requested_by, approved_by, toolcall, ts)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.ApprovalID, string(ev.Event), ev.RequestedBy, nullIfEmpty(ev.ApprovedBy), call, ev.TS)
	if err != nil {
		return fmt.Errorf("append approval event %s: %w", ev.ApprovalID, err)
	}
	return nil
}

// Events returns the lifecycle events of one approval in order.
func (s *Store) Events(ctx context.Context, approvalID string) ([]approval.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT approval_id, event, requested_by, COALESCE(approved_by, ''), toolcall, ts
		 FROM approval_events WHERE approval_id = $1 ORDER BY id`, approvalID)
	if err != nil {
		return nil, fmt.Errorf("list approval events %s: %w", approvalID, err)
	}
	defer rows.Close()

	var events []approval.Event
	for rows.Next() {
		var (
			ev      approval.Event
			typ     string
			rawCall []byte
		)
		if err := rows.Scan(&ev.ApprovalID, &typ, &ev.RequestedBy, &ev.ApprovedBy, &rawCall, &ev.TS); err != nil {
			return nil, fmt.Errorf("scan approval event: %w", err)
		}
		if ev.ToolCall, err = unmarshalToolCall(rawCall); err != nil {
			return nil, err
		}
		ev.Event = approval.EventType(typ)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// --- Audit ---

// WriteAudit inserts one dispatch audit entry.
func (s *Store) WriteAudit(ctx context.Context, e audit.Entry) error {
	call, err := marshalToolCall(e.ToolCall)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO audit_entries (ts, user_id, toolcall, decision, message, trace_id)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.TS, e.User, call, string(e.Decision), e.Message, e.TraceID)
	if err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	return nil
}

// AuditByUser returns the most recent audit entries of one user, newest first.
func (s *Store) AuditByUser(ctx context.Context, userID string, limit int) ([]audit.Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT ts, user_id, toolcall, decision, message, trace_id
		 FROM audit_entries WHERE user_id = $1 ORDER BY ts DESC, id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var (
			e        audit.Entry
			rawCall  []byte
			decision string
		)
		if err := rows.Scan(&e.TS, &e.User, &rawCall, &decision, &e.Message, &e.TraceID); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if e.ToolCall, err = unmarshalToolCall(rawCall); err != nil {
			return nil, err
		}
		e.Decision = audit.Decision(decision)
		out = append(out, e)
	}
	return out, rows.Err()
}
