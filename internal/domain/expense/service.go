package expense

import (
	"context"
	"strings"
	"time"

	ulid "github.com/oklog/ulid/v2"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/common/money"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/allocation"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/audit"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/bank"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/errors"
)

// BankStore is the slice of the bank repository the expense side needs.
type BankStore interface {
	Get(ctx context.Context, txnID string) (*bank.Transaction, error)
}

// Service matches recorded expenses against imported bank debit lines. It
// is the outflow mirror of the payment allocation flow: same engine, same
// balance conditions, different source and target.
type Service struct {
	repo  Repository
	banks BankStore
}

// NewService creates a new expense service
func NewService(repo Repository, banks BankStore) *Service {
	return &Service{
		repo:  repo,
		banks: banks,
	}
}

// Create records a new expense with its full amount still unmatched.
func (s *Service) Create(ctx context.Context, actor audit.Actor, req *CreateExpenseRequest) (*Expense, error) {
	if err := audit.RequireActor(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, errors.NewValidationError("description is required")
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, errors.NewValidationError("amount must be positive")
	}

	expenseDate, err := time.ParseInLocation("2006-01-02", req.ExpenseDate, time.UTC)
	if err != nil {
		return nil, errors.NewValidationError("expense date must be formatted as YYYY-MM-DD")
	}

	now := time.Now().UTC()
	e := &Expense{
		ExpenseID:   ulid.Make().String(),
		Description: req.Description,
		VendorName:  req.VendorName,
		Category:    req.Category,
		Amount:      amount,
		Remaining:   amount,
		Status:      StatusPending,
		ExpenseDate: expenseDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	evt := audit.NewEvent(actor, "expense.create", audit.EntityExpense, e.ExpenseID, nil, *e)
	if err := s.repo.Create(ctx, e, evt); err != nil {
		return nil, err
	}
	return e, nil
}

// Get returns an expense by ID.
func (s *Service) Get(ctx context.Context, expenseID string) (*Expense, error) {
	return s.repo.Get(ctx, expenseID)
}

// List returns expenses, optionally narrowed to a status.
func (s *Service) List(ctx context.Context, statusFilter string) ([]Expense, error) {
	var status Status
	if statusFilter != "" {
		parsed, err := ParseStatus(statusFilter)
		if err != nil {
			return nil, err
		}
		status = parsed
	}
	return s.repo.List(ctx, status)
}

// AllocateToBankDebit matches part of a bank debit line against an expense.
// The debit's unallocated balance and the expense's remaining balance move
// together under one transaction.
func (s *Service) AllocateToBankDebit(ctx context.Context, actor audit.Actor, req *AllocateRequest) (*allocation.Allocation, error) {
	if err := audit.RequireActor(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ExpenseID) == "" {
		return nil, errors.NewValidationError("expense id is required")
	}
	if strings.TrimSpace(req.BankTxnID) == "" {
		return nil, errors.NewValidationError("bank transaction id is required")
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		return nil, err
	}

	e, err := s.repo.Get(ctx, req.ExpenseID)
	if err != nil {
		return nil, err
	}
	txn, err := s.banks.Get(ctx, req.BankTxnID)
	if err != nil {
		return nil, err
	}
	if !txn.IsDebit() {
		return nil, errors.NewValidationError("bank transaction is not a debit")
	}

	alloc, err := allocation.Plan(allocation.KindExpense, txn, e, amount, req.Note)
	if err != nil {
		return nil, err
	}

	updatedTxn := *txn
	updatedTxn.Unallocated = txn.Unallocated.Sub(amount)

	updatedExp := *e
	updatedExp.Remaining = e.Remaining.Sub(amount)
	updatedExp.Status = DeriveStatus(updatedExp.Remaining)
	updatedExp.UpdatedAt = time.Now().UTC()

	evt := audit.NewEvent(actor, "expense.allocate", audit.EntityAllocation, alloc.AllocationID, nil, *alloc)
	app := &Application{Allocation: alloc, Expense: &updatedExp, Txn: &updatedTxn}
	if err := s.repo.Allocate(ctx, app, evt); err != nil {
		return nil, err
	}
	return alloc, nil
}

// RemoveAllocation reverses an expense allocation, restoring the debit
// line's unallocated balance and the expense's remaining balance.
func (s *Service) RemoveAllocation(ctx context.Context, actor audit.Actor, allocationID, reason string) error {
	if err := audit.RequireActor(actor); err != nil {
		return err
	}

	alloc, err := s.repo.GetAllocation(ctx, allocationID)
	if err != nil {
		return err
	}
	if alloc.Kind != allocation.KindExpense {
		return errors.NewNotFoundError("expense allocation not found")
	}
	if !alloc.Active() {
		return errors.NewNotFoundError("allocation is already reversed")
	}

	txn, err := s.banks.Get(ctx, alloc.SourceID)
	if err != nil {
		return err
	}
	e, err := s.repo.Get(ctx, alloc.TargetID)
	if err != nil {
		return err
	}

	before := *alloc
	unallocated, remaining, err := allocation.Reverse(alloc, txn.Unallocated, e.Remaining)
	if err != nil {
		return err
	}

	updatedTxn := *txn
	updatedTxn.Unallocated = unallocated

	updatedExp := *e
	updatedExp.Remaining = remaining
	updatedExp.Status = DeriveStatus(remaining)
	updatedExp.UpdatedAt = time.Now().UTC()

	evt := audit.NewEvent(actor, "expense.remove_allocation", audit.EntityAllocation, alloc.AllocationID, before, *alloc)
	evt.Reason = reason
	rev := &Reversal{Allocation: alloc, Expense: &updatedExp, Txn: &updatedTxn}
	return s.repo.Reverse(ctx, rev, evt)
}

// ListAllocations returns expense allocations matching the filter.
func (s *Service) ListAllocations(ctx context.Context, f allocation.Filter) ([]allocation.Allocation, error) {
	f.Kind = allocation.KindExpense
	return s.repo.ListAllocations(ctx, f)
}
