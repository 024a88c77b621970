package audit

import (
	"context"
	"strings"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/errors"
)

var knownEntityTypes = map[string]bool{
	EntityPayIn:       true,
	EntityLedgerEntry: true,
	EntityInvoice:     true,
	EntityAllocation:  true,
	EntityExpense:     true,
	EntityBankTxn:     true,
}

// Service exposes the audit trail to the external log viewer.
type Service struct {
	repo Repository
}

// NewService creates a new audit service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Trail returns the chronological audit history of one entity.
func (s *Service) Trail(ctx context.Context, entityType, entityID string) ([]Event, error) {
	entityType = strings.ToUpper(strings.TrimSpace(entityType))
	if !knownEntityTypes[entityType] {
		return nil, errors.NewValidationError("unknown audit entity type")
	}
	if strings.TrimSpace(entityID) == "" {
		return nil, errors.NewValidationError("entity id is required")
	}
	return s.repo.Trail(ctx, entityType, entityID)
}
