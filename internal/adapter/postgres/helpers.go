package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/Strob0t/taskgate/internal/domain/toolcall"
)

// scannable abstracts pgx.Row and pgx.Rows for shared scan helpers.
type scannable interface {
	Scan(dest ...any) error
}

// nullIfEmpty returns nil for empty strings (for nullable TEXT columns).
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func marshalToolCall(c toolcall.ToolCall) ([]byte, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal toolcall: %w", err)
	}
	return b, nil
}

func unmarshalToolCall(b []byte) (toolcall.ToolCall, error) {
	var c toolcall.ToolCall
	if err := json.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("unmarshal toolcall: %w", err)
	}
	return c, nil
}
