// Package toolbackend defines the port for the tool back-ends the dispatcher
// executes authorized tool calls against.
package toolbackend

import (
	"context"
	"errors"

	"github.com/Strob0t/taskgate/internal/domain/policy"
	"github.com/Strob0t/taskgate/internal/domain/toolcall"
)

// ErrNotAuthorized is returned by a back-end whose own authorization
// re-check rejects the call.
var ErrNotAuthorized = errors.New("toolbackend: not authorized")

// ErrUnknownAction is returned for actions the back-end does not implement.
var ErrUnknownAction = errors.New("toolbackend: unknown action")

// Backend executes actions of a single tool.
type Backend interface {
	// Tool returns the tool this back-end serves.
	Tool() toolcall.Tool

	// Execute runs action with params on behalf of identity.
	Execute(ctx context.Context, identity policy.Identity, action string, params map[string]any) (any, error)
}

// DeniedError is a back-end authorization rejection carrying the message
// returned to the caller. It matches ErrNotAuthorized with errors.Is.
type DeniedError struct {
	Message string
}

func (e *DeniedError) Error() string { return e.Message }

func (e *DeniedError) Is(target error) bool { return target == ErrNotAuthorized }
