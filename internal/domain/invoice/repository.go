package invoice

import (
	"context"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/audit"
)

// Repository persists invoices and their credits.
//
// Mutating methods must write the audit event in the same transaction as the
// aggregate change. Cancel and ApplyCredit must condition on the outstanding
// balance the caller read, so a concurrent allocation or credit makes the
// write fail with a ConflictError instead of silently clobbering it.
type Repository interface {
	// Create stores a new invoice. Fails with a ConflictError when an
	// invoice with the same id already exists.
	Create(ctx context.Context, inv *Invoice, evt *audit.Event) error

	// Get looks an invoice up by id.
	Get(ctx context.Context, invoiceID string) (*Invoice, error)

	// List returns invoices matching the filter.
	List(ctx context.Context, f Filter) ([]Invoice, error)

	// Cancel replaces the invoice with its cancelled form, conditioned on
	// outstanding still equalling the full total.
	Cancel(ctx context.Context, inv *Invoice, evt *audit.Event) error

	// ApplyCredit stores the credit and the rebalanced invoice atomically,
	// conditioned on the outstanding balance the credit was planned against.
	ApplyCredit(ctx context.Context, inv *Invoice, credit *Credit, evt *audit.Event) error

	// ListCredits returns all credits ever applied to an invoice,
	// reversed ones included.
	ListCredits(ctx context.Context, invoiceID string) ([]Credit, error)

	// HasActiveAllocation reports whether any unreversed payment
	// allocation exists for the invoice. Distinguishes PAID from CREDITED
	// when outstanding reaches zero.
	HasActiveAllocation(ctx context.Context, invoiceID string) (bool, error)
}
