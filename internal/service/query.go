package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Strob0t/taskgate/internal/domain"
	"github.com/Strob0t/taskgate/internal/domain/agent"
	"github.com/Strob0t/taskgate/internal/domain/routing"
)

// MsgTaskDenied is returned when the identity may not perform the routed task.
const MsgTaskDenied = "User not authorized for task"

// QueryService runs the full request flow: route the prompt, authorize the
// task, then let the agent execute it.
type QueryService struct {
	router    *RouterService
	policy    *PolicyService
	agent     *AgentService
	threshold float64
}

// NewQueryService creates a QueryService accepting routes at threshold.
func NewQueryService(router *RouterService, policy *PolicyService, agent *AgentService, threshold float64) *QueryService {
	return &QueryService{router: router, policy: policy, agent: agent, threshold: threshold}
}

// Handle processes prompt on behalf of userID. Missing input returns
// domain.ErrValidation and an unknown user domain.ErrNotFound; every other
// outcome is reported in the response status.
func (s *QueryService) Handle(ctx context.Context, userID, prompt string) (agent.Response, error) {
	if strings.TrimSpace(userID) == "" {
		return agent.Response{}, fmt.Errorf("user_id and prompt required: %w", domain.ErrValidation)
	}
	if _, ok := s.policy.Identity(userID); !ok {
		return agent.Response{}, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}

	d := s.router.Route(ctx, prompt, s.threshold)
	if !d.OK() {
		msg := d.Error
		if msg == "" {
			msg = routing.ErrNoMatch
		}
		return agent.Response{Status: agent.StatusError, Message: msg}, nil
	}

	if v := s.policy.CheckTask(userID, d.Task); !v.Allowed {
		slog.Info("task denied", "user", userID, "task", d.Task, "reason", v.Reason)
		return agent.Response{Status: agent.StatusDenied, Message: MsgTaskDenied}, nil
	}

	return s.agent.ExecuteTask(ctx, userID, prompt, d.Task), nil
}
