package bank

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/common/money"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/audit"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/errors"
)

// Service imports bank statements and answers the reconciliation queries
// over them.
type Service struct {
	repo Repository
}

// NewService creates a new bank statement service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ImportStatement loads a batch of statement lines. The bank's line
// reference is the idempotency key: lines seen in an earlier upload are
// counted as skipped, so re-importing an overlapping export is harmless.
func (s *Service) ImportStatement(ctx context.Context, actor audit.Actor, req *ImportStatementRequest) (*ImportResult, error) {
	if err := audit.RequireActor(actor); err != nil {
		return nil, err
	}
	if len(req.Lines) == 0 {
		return nil, errors.NewValidationError("statement has no lines")
	}

	batchID := uuid.NewString()
	now := time.Now().UTC()
	txns := make([]Transaction, 0, len(req.Lines))
	for i, line := range req.Lines {
		txn, err := parseLine(i, line, batchID, now)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *txn)
	}

	imported, skipped, err := s.repo.Import(ctx, txns)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{BatchID: batchID, Imported: imported, Skipped: skipped}
	evt := audit.NewEvent(actor, "bank.import_statement", audit.EntityBankTxn, batchID, nil, *result)
	if err := s.repo.AppendEvent(ctx, evt); err != nil {
		return nil, err
	}
	return result, nil
}

func parseLine(i int, line StatementLine, batchID string, now time.Time) (*Transaction, error) {
	if strings.TrimSpace(line.LineID) == "" {
		return nil, errors.NewValidationError(fmt.Sprintf("line %d: line id is required", i))
	}

	effectiveAt, err := time.Parse(time.RFC3339, line.EffectiveAt)
	if err != nil {
		return nil, errors.NewValidationError(
			fmt.Sprintf("line %d: effective time %q must be RFC 3339", i, line.EffectiveAt))
	}

	var debit, credit money.Amount
	if line.Debit != "" {
		if debit, err = money.Parse(line.Debit); err != nil {
			return nil, errors.NewValidationError(fmt.Sprintf("line %d: bad debit amount %q", i, line.Debit))
		}
	}
	if line.Credit != "" {
		if credit, err = money.Parse(line.Credit); err != nil {
			return nil, errors.NewValidationError(fmt.Sprintf("line %d: bad credit amount %q", i, line.Credit))
		}
	}
	if debit.IsNegative() || credit.IsNegative() {
		return nil, errors.NewValidationError(fmt.Sprintf("line %d: amounts must be positive", i))
	}
	if debit.IsPositive() == credit.IsPositive() {
		return nil, errors.NewValidationError(fmt.Sprintf("line %d: exactly one of debit and credit must be positive", i))
	}

	return &Transaction{
		TxnID:         line.LineID,
		Description:   line.Description,
		Debit:         debit,
		Credit:        credit,
		Unallocated:   debit, // credits carry no allocatable balance
		EffectiveAt:   effectiveAt.UTC(),
		Channel:       line.Channel,
		ImportBatchID: batchID,
		CreatedAt:     now,
	}, nil
}

// Get returns a bank transaction by ID.
func (s *Service) Get(ctx context.Context, txnID string) (*Transaction, error) {
	return s.repo.Get(ctx, txnID)
}

// ListDebits returns imported debit lines, optionally only those that still
// have unallocated money. Reconciliation is finished when this list is empty
// with unallocatedOnly set.
func (s *Service) ListDebits(ctx context.Context, unallocatedOnly bool) ([]Transaction, error) {
	return s.repo.ListDebits(ctx, unallocatedOnly)
}

// ListUnidentifiedCredits returns credit lines that no pay-in explains yet:
// money that arrived without anyone claiming it.
func (s *Service) ListUnidentifiedCredits(ctx context.Context) ([]Transaction, error) {
	return s.repo.ListUnidentifiedCredits(ctx)
}
