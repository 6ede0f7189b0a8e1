// Package routing defines the prompt-to-task routing vocabulary.
package routing

import "time"

// ReferenceItem is one (task, text) entry of the routing corpus.
type ReferenceItem struct {
	Task string `json:"task"`
	Text string `json:"text"`
}

// Router error messages.
const (
	ErrNoMatch        = "no match"
	ErrBelowThreshold = "no match (below threshold)"
)

// DefaultThreshold is the minimum confidence for accepting a match.
const DefaultThreshold = 0.55

// Decision is the routing result for one prompt. Exactly one of Task and
// Error is set. Score is nil when nothing matched.
type Decision struct {
	Task    string   `json:"task,omitempty"`
	Score   *float64 `json:"score"`
	Error   string   `json:"error,omitempty"`
	Matched string   `json:"matched,omitempty"`
}

// OK reports whether a task was selected.
func (d Decision) OK() bool { return d.Task != "" }

// Outcome is a routing result recorded for training-data curation.
type Outcome struct {
	Prompt  string    `json:"prompt"`
	Task    string    `json:"task,omitempty"`
	Success bool      `json:"success"`
	Source  string    `json:"source"`
	TS      time.Time `json:"ts"`
}
