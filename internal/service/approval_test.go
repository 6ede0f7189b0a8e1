package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/taskgate/internal/domain"
	"github.com/Strob0t/taskgate/internal/domain/approval"
	"github.com/Strob0t/taskgate/internal/domain/toolcall"
)

type memPersister struct {
	mu      sync.Mutex
	saved   map[string]approval.Approval
	saves   int
	saveErr error
	loadErr error
}

func (p *memPersister) Load(context.Context) (map[string]approval.Approval, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loadErr != nil {
		return nil, p.loadErr
	}
	out := make(map[string]approval.Approval, len(p.saved))
	for k, v := range p.saved {
		out[k] = v
	}
	return out, nil
}

func (p *memPersister) Save(_ context.Context, snapshot map[string]approval.Approval, _ approval.Approval) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves++
	if p.saveErr != nil {
		return p.saveErr
	}
	p.saved = snapshot
	return nil
}

type memEventLog struct {
	mu     sync.Mutex
	events []approval.Event
	err    error
}

func (l *memEventLog) Append(_ context.Context, ev approval.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.events = append(l.events, ev)
	return nil
}

func (l *memEventLog) types() []approval.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]approval.EventType, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Event
	}
	return out
}

// newTestApprovals returns a service with deterministic IDs and a clock
// advancing one second per call.
func newTestApprovals(p *memPersister, l *memEventLog) *ApprovalService {
	svc := NewApprovalService(p, l)
	if p == nil {
		svc.persister = nil
	}
	if l == nil {
		svc.events = nil
	}
	var n int
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.newID = func() string {
		n++
		return fmt.Sprintf("ap-%d", n)
	}
	svc.now = func() time.Time {
		base = base.Add(time.Second)
		return base
	}
	return svc
}

func deployCall(env string) toolcall.ToolCall {
	return toolcall.ToolCall{
		Tool:       string(toolcall.ToolDeployment),
		Action:     "deploy",
		Parameters: map[string]any{"env": env},
	}
}

func TestApprovalCreateAndApprove(t *testing.T) {
	p := &memPersister{}
	l := &memEventLog{}
	svc := newTestApprovals(p, l)
	ctx := context.Background()

	id, err := svc.Create(ctx, "eng01", deployCall("production"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	a, ok := svc.Get(id)
	if !ok || a.Status != approval.StatusPending || a.RequestedBy != "eng01" {
		t.Fatalf("after create: %+v", a)
	}
	if svc.IsGranted(id, "eng01", deployCall("production")) {
		t.Fatal("pending approval must not be granted")
	}

	a, err = svc.Approve(ctx, id, "mgr01")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if a.Status != approval.StatusApproved || a.ApprovedBy != "mgr01" || a.ApprovedAt == nil {
		t.Fatalf("after approve: %+v", a)
	}
	if !svc.IsGranted(id, "eng01", deployCall("production")) {
		t.Error("approved approval must be granted")
	}

	if got := p.saved[id].Status; got != approval.StatusApproved {
		t.Errorf("persisted status = %s, want approved", got)
	}
	types := l.types()
	if len(types) != 2 || types[0] != approval.EventRequested || types[1] != approval.EventApproved {
		t.Errorf("events = %v", types)
	}
}

func TestApprovalCreateSnapshotsCall(t *testing.T) {
	svc := newTestApprovals(nil, nil)
	call := deployCall("staging")

	id, _ := svc.Create(context.Background(), "eng01", call)
	call.Parameters["env"] = "production"

	a, _ := svc.Get(id)
	if a.ToolCall.Parameters["env"] != "staging" {
		t.Errorf("stored call was mutated: %v", a.ToolCall.Parameters)
	}
}

func TestApprovalReapproveIsIdempotent(t *testing.T) {
	l := &memEventLog{}
	svc := newTestApprovals(&memPersister{}, l)
	ctx := context.Background()

	id, _ := svc.Create(ctx, "eng01", deployCall("production"))
	first, err := svc.Approve(ctx, id, "mgr01")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	second, err := svc.Approve(ctx, id, "someone-else")
	if err != nil {
		t.Fatalf("re-Approve: %v", err)
	}
	if second.ApprovedBy != "mgr01" || !second.ApprovedAt.Equal(*first.ApprovedAt) {
		t.Errorf("re-approve changed record: %+v", second)
	}
	if n := len(l.types()); n != 2 {
		t.Errorf("event count = %d, want 2", n)
	}
}

func TestApprovalApproveUnknown(t *testing.T) {
	svc := newTestApprovals(nil, nil)
	_, err := svc.Approve(context.Background(), "missing", "mgr01")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestApprovalPersistenceFailureStillCreates(t *testing.T) {
	p := &memPersister{saveErr: errors.New("disk full")}
	svc := newTestApprovals(p, &memEventLog{})

	id, err := svc.Create(context.Background(), "eng01", deployCall("production"))
	var pe *approval.PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *PersistenceError", err)
	}
	if pe.Op != "save" || pe.ApprovalID != id {
		t.Errorf("persistence error = %+v", pe)
	}
	if _, ok := svc.Get(id); !ok {
		t.Error("approval must exist in memory despite save failure")
	}
}

func TestApprovalEventLogFailure(t *testing.T) {
	svc := newTestApprovals(&memPersister{}, &memEventLog{err: errors.New("read-only")})

	_, err := svc.Create(context.Background(), "eng01", deployCall("production"))
	var pe *approval.PersistenceError
	if !errors.As(err, &pe) || pe.Op != "log" {
		t.Fatalf("err = %v, want log PersistenceError", err)
	}
}

func TestApprovalLoad(t *testing.T) {
	p := &memPersister{}
	ctx := context.Background()

	first := newTestApprovals(p, nil)
	id, _ := first.Create(ctx, "eng01", deployCall("production"))

	second := newTestApprovals(p, nil)
	second.Load(ctx)
	if _, ok := second.Get(id); !ok {
		t.Fatal("approval not reloaded")
	}

	p.loadErr = errors.New("corrupt")
	second.Load(ctx)
	if n := len(second.List("")); n != 0 {
		t.Errorf("after failed load: %d approvals, want 0", n)
	}
}

func TestApprovalListOrderAndFilter(t *testing.T) {
	svc := newTestApprovals(nil, nil)
	ctx := context.Background()

	a, _ := svc.Create(ctx, "eng01", deployCall("production"))
	b, _ := svc.Create(ctx, "it01", deployCall("staging"))
	c, _ := svc.Create(ctx, "eng01", deployCall("demo"))
	if _, err := svc.Approve(ctx, b, "mgr01"); err != nil {
		t.Fatal(err)
	}

	all := svc.List("")
	if len(all) != 3 || all[0].ID != a || all[1].ID != b || all[2].ID != c {
		t.Errorf("List order = %v", ids(all))
	}
	pending := svc.List(approval.StatusPending)
	if len(pending) != 2 || pending[0].ID != a || pending[1].ID != c {
		t.Errorf("pending = %v", ids(pending))
	}
	approved := svc.List(approval.StatusApproved)
	if len(approved) != 1 || approved[0].ID != b {
		t.Errorf("approved = %v", ids(approved))
	}
}

func ids(as []approval.Approval) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.ID
	}
	return out
}

func TestApprovalGrantIsBoundToCallAndRequester(t *testing.T) {
	svc := newTestApprovals(nil, nil)
	ctx := context.Background()

	id, _ := svc.Create(ctx, "eng01", deployCall("production"))
	if _, err := svc.Approve(ctx, id, "mgr01"); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name      string
		requester string
		call      toolcall.ToolCall
		want      bool
	}{
		{"same call", "eng01", deployCall("production"), true},
		{"same call with id attached", "eng01", deployCall("production").WithApproval(id), true},
		{"other tool", "eng01", toolcall.ToolCall{Tool: string(toolcall.ToolDB), Action: "migrate"}, false},
		{"other env", "eng01", deployCall("staging"), false},
		{"extra parameter", "eng01", toolcall.ToolCall{Tool: string(toolcall.ToolDeployment), Action: "deploy", Parameters: map[string]any{"env": "production", "force": true}}, false},
		{"other requester", "it01", deployCall("production"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.IsGranted(id, tt.requester, tt.call); got != tt.want {
				t.Errorf("IsGranted = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApprovalListeners(t *testing.T) {
	svc := newTestApprovals(nil, nil)
	var got []approval.EventType
	svc.AddListener(func(_ context.Context, ev approval.Event) {
		got = append(got, ev.Event)
	})
	ctx := context.Background()

	id, _ := svc.Create(ctx, "eng01", deployCall("production"))
	_, _ = svc.Approve(ctx, id, "mgr01")
	_, _ = svc.Approve(ctx, id, "mgr01")

	if len(got) != 2 || got[0] != approval.EventRequested || got[1] != approval.EventApproved {
		t.Errorf("listener events = %v", got)
	}
}

func TestApprovalConcurrentCreate(t *testing.T) {
	svc := NewApprovalService(nil, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Create(ctx, "eng01", deployCall("production"))
		}()
	}
	wg.Wait()

	if n := len(svc.List(approval.StatusPending)); n != 50 {
		t.Errorf("pending = %d, want 50", n)
	}
}

func TestHandleDecide(t *testing.T) {
	svc := newTestApprovals(nil, nil)
	ctx := context.Background()
	id, _ := svc.Create(ctx, "eng01", deployCall("production"))

	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"approve", fmt.Sprintf(`{"approval_id":%q,"approver_id":"mgr01"}`, id), false},
		{"unknown id acknowledged", `{"approval_id":"nope","approver_id":"mgr01"}`, false},
		{"malformed", `{`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.HandleDecide(ctx, "taskgate.approvals.decide", []byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Errorf("HandleDecide err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	a, _ := svc.Get(id)
	if !a.IsApproved() || a.ApprovedBy != "mgr01" {
		t.Errorf("approval after decide = %+v", a)
	}
}
