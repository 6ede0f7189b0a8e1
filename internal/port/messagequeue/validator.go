package messagequeue

import (
	"encoding/json"
	"fmt"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects only need valid JSON.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	var target any
	switch subject {
	case SubjectAuditRecorded:
		target = &AuditPayload{}
	case SubjectApprovalRequested, SubjectApprovalApproved:
		target = &ApprovalEventPayload{}
	case SubjectApprovalDecide:
		var p ApprovalDecidePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if p.ApprovalID == "" || p.ApproverID == "" {
			return fmt.Errorf("schema validation failed for %s: approval_id and approver_id required", subject)
		}
		return nil
	default:
		return nil
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", subject, err)
	}
	return nil
}
