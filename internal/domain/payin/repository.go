package payin

import (
	"context"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/audit"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/bank"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/ledger"
)

// Repository defines the interface for pay-in data operations. Every
// mutation takes the audit event that must land in the same transaction.
//
// The one-open-submission-per-house rule is enforced here, not in the
// service: Create and CreateFromBankCredit fail with PAYIN_PENDING_EXISTS
// when the house's open slot is taken, regardless of what the caller
// read beforehand.
type Repository interface {
	// Create stores a new pay-in and claims the house's open slot.
	Create(ctx context.Context, p *PayIn, evt *audit.Event) error

	// Get returns a pay-in by ID.
	Get(ctx context.Context, payinID string) (*PayIn, error)

	// GetOpenByHouse returns the pay-in currently occupying the house's
	// open slot, or a not-found error.
	GetOpenByHouse(ctx context.Context, houseID string) (*PayIn, error)

	// ListByHouse returns the house's pay-ins, optionally filtered by status.
	ListByHouse(ctx context.Context, houseID string, status Status) ([]PayIn, error)

	// ListOpen returns all SUBMITTED pay-ins across houses, oldest first.
	ListOpen(ctx context.Context) ([]PayIn, error)

	// Update replaces the stored pay-in if its status is still expectedStatus.
	Update(ctx context.Context, p *PayIn, expectedStatus Status, evt *audit.Event) error

	// Accept marks the pay-in accepted, writes its ledger entry and releases
	// the open slot, all atomically. Fails unless the stored status is
	// still SUBMITTED.
	Accept(ctx context.Context, p *PayIn, entry *ledger.Entry, evt *audit.Event) error

	// Reject stores the rejected pay-in. The open slot stays claimed so the
	// resident can fix and resubmit.
	Reject(ctx context.Context, p *PayIn, evt *audit.Event) error

	// Remove physically deletes the pay-in and releases the open slot.
	Remove(ctx context.Context, p *PayIn, evt *audit.Event) error

	// CreateFromBankCredit stores a new pay-in, claims the open slot and
	// stamps the bank credit line with the pay-in ID, all atomically. Fails
	// if the line was already claimed.
	CreateFromBankCredit(ctx context.Context, p *PayIn, txn *bank.Transaction, evt *audit.Event) error
}

// BankStore is the slice of the bank repository the pay-in service needs.
type BankStore interface {
	Get(ctx context.Context, txnID string) (*bank.Transaction, error)
}
