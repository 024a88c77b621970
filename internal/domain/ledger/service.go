package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/common/money"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/allocation"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/audit"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/errors"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/invoice"
)

// InvoiceStore is the slice of the invoice repository the ledger side needs.
type InvoiceStore interface {
	Get(ctx context.Context, invoiceID string) (*invoice.Invoice, error)
}

// Service allocates confirmed house money against invoices and walks those
// allocations back. Both directions re-derive the invoice status from the
// resulting balances, never by hand.
type Service struct {
	repo     Repository
	invoices InvoiceStore
}

// NewService creates a new ledger service
func NewService(repo Repository, invoices InvoiceStore) *Service {
	return &Service{
		repo:     repo,
		invoices: invoices,
	}
}

// ListEntries returns a house's full ledger, oldest received first.
func (s *Service) ListEntries(ctx context.Context, houseID string) ([]Entry, error) {
	if strings.TrimSpace(houseID) == "" {
		return nil, errors.NewValidationError("house id is required")
	}
	return s.repo.ListEntries(ctx, houseID)
}

// ListAllocatable returns the house's entries that still have money to
// allocate, oldest received first. The ordering is a presentation bias
// toward first-in-first-out, not an enforced rule: the admin may allocate
// from any listed entry.
func (s *Service) ListAllocatable(ctx context.Context, houseID string) ([]Entry, error) {
	if strings.TrimSpace(houseID) == "" {
		return nil, errors.NewValidationError("house id is required")
	}
	return s.repo.ListAllocatable(ctx, houseID)
}

// GetEntry returns a ledger entry by ID.
func (s *Service) GetEntry(ctx context.Context, entryID string) (*Entry, error) {
	return s.repo.GetEntry(ctx, entryID)
}

// ApplyPayment allocates part of a ledger entry to an invoice. Validation
// runs against freshly read balances and the storage layer re-asserts both
// under the same transaction, so two admins racing over the same money
// cannot overspend it.
func (s *Service) ApplyPayment(ctx context.Context, actor audit.Actor, req *ApplyPaymentRequest) (*allocation.Allocation, error) {
	if err := audit.RequireActor(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.LedgerEntryID) == "" {
		return nil, errors.NewValidationError("ledger entry id is required")
	}
	if strings.TrimSpace(req.InvoiceID) == "" {
		return nil, errors.NewValidationError("invoice id is required")
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		return nil, err
	}

	entry, err := s.repo.GetEntry(ctx, req.LedgerEntryID)
	if err != nil {
		return nil, err
	}
	inv, err := s.invoices.Get(ctx, req.InvoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Cancelled() {
		return nil, errors.NewInvalidStateError("cancelled invoices cannot receive payments", string(inv.Status))
	}
	if entry.HouseID != inv.HouseID {
		return nil, errors.NewValidationError("ledger entry and invoice belong to different houses")
	}

	alloc, err := allocation.Plan(allocation.KindPayment, entry, inv, amount, req.Note)
	if err != nil {
		return nil, err
	}
	alloc.HouseID = entry.HouseID

	updatedEntry := *entry
	updatedEntry.Remaining = entry.Remaining.Sub(amount)

	updatedInv := *inv
	updatedInv.Outstanding = inv.Outstanding.Sub(amount)
	// This allocation is active cash, so a zero balance here is always PAID.
	updatedInv.Status = invoice.DeriveStatus(inv.TotalAmount, updatedInv.Outstanding, false, true)
	updatedInv.UpdatedAt = time.Now().UTC()

	evt := audit.NewEvent(actor, "ledger.apply_payment", audit.EntityAllocation, alloc.AllocationID, nil, *alloc)
	app := &Application{Allocation: alloc, Entry: &updatedEntry, Invoice: &updatedInv}
	if err := s.repo.Apply(ctx, app, evt); err != nil {
		return nil, err
	}
	return alloc, nil
}

// RemoveAllocation reverses a payment allocation, restoring the money to the
// ledger entry and the debt to the invoice. The allocation record survives
// with a reversal mark.
func (s *Service) RemoveAllocation(ctx context.Context, actor audit.Actor, allocationID, reason string) error {
	if err := audit.RequireActor(actor); err != nil {
		return err
	}

	alloc, err := s.repo.GetAllocation(ctx, allocationID)
	if err != nil {
		return err
	}
	if alloc.Kind != allocation.KindPayment {
		return errors.NewNotFoundError("payment allocation not found")
	}
	if !alloc.Active() {
		return errors.NewNotFoundError("allocation is already reversed")
	}

	entry, err := s.repo.GetEntry(ctx, alloc.SourceID)
	if err != nil {
		return err
	}
	inv, err := s.invoices.Get(ctx, alloc.TargetID)
	if err != nil {
		return err
	}

	before := *alloc
	remaining, outstanding, err := allocation.Reverse(alloc, entry.Remaining, inv.Outstanding)
	if err != nil {
		return err
	}

	updatedEntry := *entry
	updatedEntry.Remaining = remaining

	updatedInv := *inv
	updatedInv.Outstanding = outstanding
	// Outstanding is strictly positive after a reversal, so the cash flag
	// cannot matter here.
	updatedInv.Status = invoice.DeriveStatus(inv.TotalAmount, outstanding, inv.Cancelled(), false)
	updatedInv.UpdatedAt = time.Now().UTC()

	evt := audit.NewEvent(actor, "ledger.remove_allocation", audit.EntityAllocation, alloc.AllocationID, before, *alloc)
	evt.Reason = reason
	rev := &Reversal{Allocation: alloc, Entry: &updatedEntry, Invoice: &updatedInv}
	return s.repo.Reverse(ctx, rev, evt)
}

// ListAllocations returns payment allocations matching the filter. Reversed
// records are hidden unless the filter asks for them.
func (s *Service) ListAllocations(ctx context.Context, f allocation.Filter) ([]allocation.Allocation, error) {
	f.Kind = allocation.KindPayment
	return s.repo.ListAllocations(ctx, f)
}
