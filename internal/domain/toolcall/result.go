package toolcall

// Status is the outcome of a dispatched tool call.
type Status string

const (
	StatusOK              Status = "ok"
	StatusDenied          Status = "denied"
	StatusPendingApproval Status = "pending_approval"
	StatusError           Status = "error"
)

// Result is returned by the dispatcher for every tool call.
type Result struct {
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	Data       any    `json:"result,omitempty"`
	ApprovalID string `json:"approval_id,omitempty"`
}

// Common result messages.
const (
	MsgNotAuthorized    = "Not authorized to perform tool call"
	MsgRequiresApproval = "Action requires approval"
	MsgApprovalPending  = "Approval not granted yet"
	MsgUnknownTool      = "Unknown tool"
	MsgExecuted         = "Executed"
)
