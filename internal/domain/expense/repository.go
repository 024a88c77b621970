package expense

import (
	"context"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/allocation"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/audit"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/bank"
)

// Application bundles the writes of one expense allocation: the new record,
// the expense with its reduced remaining and the debit line with its reduced
// unallocated balance. The repository conditions both balance writes on the
// pre-allocation values.
type Application struct {
	Allocation *allocation.Allocation
	Expense    *Expense
	Txn        *bank.Transaction
}

// Reversal bundles the writes of one expense allocation reversal.
type Reversal struct {
	Allocation *allocation.Allocation
	Expense    *Expense
	Txn        *bank.Transaction
}

// Repository persists expenses and their bank-debit allocations.
type Repository interface {
	// Create stores a new expense. Fails with a ConflictError when an
	// expense with the same id already exists.
	Create(ctx context.Context, e *Expense, evt *audit.Event) error

	// Get looks an expense up by id.
	Get(ctx context.Context, expenseID string) (*Expense, error)

	// List returns expenses, optionally narrowed to a status.
	List(ctx context.Context, status Status) ([]Expense, error)

	// GetAllocation looks an expense allocation up by id.
	GetAllocation(ctx context.Context, allocationID string) (*allocation.Allocation, error)

	// ListAllocations returns expense allocations matching the filter.
	ListAllocations(ctx context.Context, f allocation.Filter) ([]allocation.Allocation, error)

	// Allocate writes the allocation, both balance updates and the audit
	// event in one transaction.
	Allocate(ctx context.Context, app *Application, evt *audit.Event) error

	// Reverse writes the reversal mark, both balance restorations and the
	// audit event in one transaction.
	Reverse(ctx context.Context, rev *Reversal, evt *audit.Event) error
}
