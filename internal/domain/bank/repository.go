package bank

import (
	"context"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/audit"
)

// Repository persists imported bank statement lines.
//
// Lines are write-once: Import must skip, not overwrite, a line whose id is
// already present, which is what makes re-uploading a statement safe. The
// unallocated balance of debit lines and the pay-in link of credit lines are
// only ever changed by the expense and pay-in repositories, under their own
// transactions.
type Repository interface {
	// Import stores the lines, skipping ones already imported. It reports
	// how many were written and how many skipped.
	Import(ctx context.Context, lines []Transaction) (imported, skipped int, err error)

	// AppendEvent records the audit event for a completed import.
	AppendEvent(ctx context.Context, evt *audit.Event) error

	// Get looks a transaction up by id.
	Get(ctx context.Context, txnID string) (*Transaction, error)

	// ListDebits returns debit lines, oldest effective first, optionally
	// only those with unallocated money left.
	ListDebits(ctx context.Context, unallocatedOnly bool) ([]Transaction, error)

	// ListUnidentifiedCredits returns credit lines no pay-in has claimed,
	// oldest effective first.
	ListUnidentifiedCredits(ctx context.Context) ([]Transaction, error)
}
