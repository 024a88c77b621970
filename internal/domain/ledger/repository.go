package ledger

import (
	"context"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/allocation"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/audit"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/invoice"
)

// Application bundles the writes of one payment allocation: the new record
// plus both rebalanced sides. Entry and Invoice carry the post-allocation
// balances; the repository conditions each write on the pre-allocation
// balance (new + allocated amount), so a concurrent allocation against
// either side cancels the whole transaction.
type Application struct {
	Allocation *allocation.Allocation
	Entry      *Entry
	Invoice    *invoice.Invoice
}

// Reversal bundles the writes of one payment reversal: the allocation with
// ReversedAt set plus both restored sides. Conditions mirror Application's,
// with the allocation itself additionally guarded against double reversal.
type Reversal struct {
	Allocation *allocation.Allocation
	Entry      *Entry
	Invoice    *invoice.Invoice
}

// Repository persists ledger entries and payment allocations.
//
// Entries are created by the pay-in repository at acceptance time; this side
// only ever adjusts Remaining, and always under an equality condition on the
// previously read balance.
type Repository interface {
	// GetEntry looks a ledger entry up by id.
	GetEntry(ctx context.Context, entryID string) (*Entry, error)

	// ListEntries returns all of a house's ledger entries, oldest received
	// first.
	ListEntries(ctx context.Context, houseID string) ([]Entry, error)

	// ListAllocatable returns the house's entries with remaining > 0,
	// oldest received first.
	ListAllocatable(ctx context.Context, houseID string) ([]Entry, error)

	// GetAllocation looks a payment allocation up by id.
	GetAllocation(ctx context.Context, allocationID string) (*allocation.Allocation, error)

	// ListAllocations returns payment allocations matching the filter.
	ListAllocations(ctx context.Context, f allocation.Filter) ([]allocation.Allocation, error)

	// Apply writes the allocation, both balance updates and the audit
	// event in one transaction.
	Apply(ctx context.Context, app *Application, evt *audit.Event) error

	// Reverse writes the reversal mark, both balance restorations and the
	// audit event in one transaction.
	Reverse(ctx context.Context, rev *Reversal, evt *audit.Event) error
}
