package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Strob0t/taskgate/internal/domain"
	"github.com/Strob0t/taskgate/internal/domain/agent"
	"github.com/Strob0t/taskgate/internal/domain/approval"
	"github.com/Strob0t/taskgate/internal/logger"
	"github.com/Strob0t/taskgate/internal/service"
)

// Response messages of the public API.
const (
	msgQueryRequired    = "user_id and prompt required"
	msgUnknownUser      = "Unknown user"
	msgApprovalRequired = "approval_id and approver_id required"
	msgUnknownApproval  = "Unknown approval id"
	msgApproveFailed    = "Failed to approve"
	msgApproved         = "Approved"
)

// Handlers holds the services behind the HTTP routes.
type Handlers struct {
	Queries   *service.QueryService
	Approvals *service.ApprovalService
	Router    *service.RouterService
	Audit     *service.AuditService
	Version   string
}

// queryRequest accepts loosely typed fields so that a non-string prompt is
// reported as a missing field rather than a malformed body.
type queryRequest struct {
	UserID any `json:"user_id"`
	Prompt any `json:"prompt"`
}

type queryResponse struct {
	agent.Response
	TraceID string `json:"trace_id"`
}

// Query handles POST /v1/query
func (h *Handlers) Query(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[queryRequest](w, r, maxRequestBodySize)
	if !ok {
		return
	}
	userID, _ := req.UserID.(string)
	prompt, isString := req.Prompt.(string)
	if userID == "" || !isString {
		writeError(w, http.StatusBadRequest, msgQueryRequired)
		return
	}

	resp, err := h.Queries.Handle(r.Context(), userID, prompt)
	if err != nil {
		writeDomainError(w, err, msgUnknownUser)
		return
	}
	writeJSON(w, queryStatus(resp.Status), queryResponse{Response: resp, TraceID: logger.TraceID(r.Context())})
}

func queryStatus(s agent.Status) int {
	switch s {
	case agent.StatusOK:
		return http.StatusOK
	case agent.StatusDenied:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

type approveRequest struct {
	ApprovalID string `json:"approval_id"`
	ApproverID string `json:"approver_id"`
}

type approveResponse struct {
	Status     string `json:"status"`
	ApprovalID string `json:"approval_id"`
	Message    string `json:"message"`
}

// Approve handles POST /v1/approvals
func (h *Handlers) Approve(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[approveRequest](w, r, maxRequestBodySize)
	if !ok {
		return
	}
	if req.ApprovalID == "" || req.ApproverID == "" {
		writeError(w, http.StatusBadRequest, msgApprovalRequired)
		return
	}

	_, err := h.Approvals.Approve(r.Context(), req.ApprovalID, req.ApproverID)
	var perr *approval.PersistenceError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, msgUnknownApproval)
		return
	case errors.As(err, &perr):
		slog.WarnContext(r.Context(), "approval granted but not persisted", "approval_id", req.ApprovalID, "error", err)
	case err != nil:
		slog.ErrorContext(r.Context(), "approve failed", "approval_id", req.ApprovalID, "error", err)
		writeError(w, http.StatusInternalServerError, msgApproveFailed)
		return
	}
	writeJSON(w, http.StatusOK, approveResponse{Status: "ok", ApprovalID: req.ApprovalID, Message: msgApproved})
}

// ListApprovals handles GET /v1/approvals?status=pending|approved
func (h *Handlers) ListApprovals(w http.ResponseWriter, r *http.Request) {
	status := approval.Status(r.URL.Query().Get("status"))
	switch status {
	case "", approval.StatusPending, approval.StatusApproved:
	default:
		writeError(w, http.StatusBadRequest, "status must be pending or approved")
		return
	}
	writeJSON(w, http.StatusOK, h.Approvals.List(status))
}

// GetApproval handles GET /v1/approvals/{id}
func (h *Handlers) GetApproval(w http.ResponseWriter, r *http.Request) {
	a, ok := h.Approvals.Get(urlParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, msgUnknownApproval)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ApprovalEvents handles GET /v1/approvals/{id}/events
func (h *Handlers) ApprovalEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Approvals.History(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, msgUnknownApproval)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// AuditTrail handles GET /v1/audit?user_id=...&limit=N
func (h *Handlers) AuditTrail(w http.ResponseWriter, r *http.Request) {
	if h.Audit == nil {
		writeError(w, http.StatusNotFound, "audit trail not available")
		return
	}
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	entries, err := h.Audit.Recent(r.Context(), q.Get("user_id"), limit)
	if err != nil {
		writeDomainError(w, err, msgUnknownUser)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type healthResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version,omitempty"`
	RouterReady     bool   `json:"router_ready"`
	DroppedOutcomes int64  `json:"dropped_outcomes"`
}

// Health handles GET /health. The service reports ok while the router is
// still warming up; routing then falls back to the linear scan.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok", Version: h.Version}
	if h.Router != nil {
		resp.RouterReady = h.Router.Ready()
		resp.DroppedOutcomes = h.Router.Dropped()
	}
	writeJSON(w, http.StatusOK, resp)
}
