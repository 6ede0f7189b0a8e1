package messagequeue

import (
	"strings"
	"testing"
)

func TestValidateAuditRecorded(t *testing.T) {
	data := []byte(`{"ts":"2026-01-01T00:00:00Z","user":"eng01","toolcall":{"tool":"GitHub","action":"read_repo","params":{"repo":"main"}},"decision":"ok","message":"Executed"}`)
	if err := Validate(SubjectAuditRecorded, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateApprovalEvent(t *testing.T) {
	data := []byte(`{"ts":"2026-01-01T00:00:00Z","approval_id":"a1","event":"requested","requested_by":"eng01","toolcall":{"tool":"Deployment","action":"deploy"}}`)
	for _, subj := range []string{SubjectApprovalRequested, SubjectApprovalApproved} {
		if err := Validate(subj, data); err != nil {
			t.Fatalf("%s: unexpected error: %v", subj, err)
		}
	}
}

func TestValidateApprovalDecide(t *testing.T) {
	if err := Validate(SubjectApprovalDecide, []byte(`{"approval_id":"a1","approver_id":"mgr01"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := Validate(SubjectApprovalDecide, []byte(`{"approval_id":"a1"}`))
	if err == nil || !strings.Contains(err.Error(), "approver_id") {
		t.Fatalf("expected missing approver error, got %v", err)
	}
}

func TestValidateInvalidJSON(t *testing.T) {
	err := Validate(SubjectAuditRecorded, []byte(`{not json`))
	if err == nil || !strings.Contains(err.Error(), "invalid JSON") {
		t.Fatalf("expected invalid JSON error, got %v", err)
	}
}

func TestValidateWrongFieldType(t *testing.T) {
	err := Validate(SubjectAuditRecorded, []byte(`{"user":42}`))
	if err == nil || !strings.Contains(err.Error(), "schema validation failed") {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestValidateUnknownSubject(t *testing.T) {
	if err := Validate("some.other.subject", []byte(`{"anything":true}`)); err != nil {
		t.Fatalf("unknown subjects should pass, got %v", err)
	}
}
