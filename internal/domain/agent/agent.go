// Package agent defines the response of the task-executing agent.
package agent

// Status of a task execution.
type Status string

const (
	StatusOK     Status = "ok"
	StatusDenied Status = "denied"
	StatusError  Status = "error"
)

// Response is the outcome of executing one routed task. Result carries the
// tool call results on success.
type Response struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
	Result  any    `json:"result,omitempty"`
}

// Messages produced by the agent.
const (
	MsgUnknownTask     = "Unknown task"
	MsgFeatureDone     = "Feature development executed (mock)"
	MsgMaintenanceDone = "Infrastructure maintenance executed (mock)"
	MsgLeadCreated     = "Lead created (mock)"
	MsgProposalDone    = "Proposal data retrieved (mock)"
)

// TaskExecuted is the message for diagnostic tasks, e.g.
// "Production_Support executed (mock)".
func TaskExecuted(task string) string {
	return task + " executed (mock)"
}
