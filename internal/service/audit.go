package service

import (
	"context"
	"fmt"

	"github.com/Strob0t/taskgate/internal/domain"
	"github.com/Strob0t/taskgate/internal/domain/audit"
	"github.com/Strob0t/taskgate/internal/port/database"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// AuditService reads the dispatch audit trail back for one identity.
type AuditService struct {
	policy *PolicyService
	reader database.AuditReader
}

// NewAuditService creates an AuditService. A nil reader reports every
// trail as empty.
func NewAuditService(policy *PolicyService, reader database.AuditReader) *AuditService {
	return &AuditService{policy: policy, reader: reader}
}

// Recent returns up to limit entries of userID, newest first. limit <= 0
// selects the default; larger values are capped.
func (s *AuditService) Recent(ctx context.Context, userID string, limit int) ([]audit.Entry, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id required: %w", domain.ErrValidation)
	}
	if _, ok := s.policy.Identity(userID); !ok {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	switch {
	case limit <= 0:
		limit = defaultAuditLimit
	case limit > maxAuditLimit:
		limit = maxAuditLimit
	}
	if s.reader == nil {
		return []audit.Entry{}, nil
	}
	entries, err := s.reader.AuditByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("read audit trail: %w", err)
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	return entries, nil
}
