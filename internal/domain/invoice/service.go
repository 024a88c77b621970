package invoice

import (
	"context"
	"strings"
	"time"

	ulid "github.com/oklog/ulid/v2"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/common/money"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/audit"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/errors"
)

// Service provides invoice administration business logic
type Service struct {
	repo Repository
}

// NewService creates a new invoice service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create issues a new obligation for a house. The invoice starts with
// outstanding equal to the full total.
func (s *Service) Create(ctx context.Context, actor audit.Actor, req *CreateInvoiceRequest) (*Invoice, error) {
	if err := audit.RequireActor(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.HouseID) == "" {
		return nil, errors.NewValidationError("house id is required")
	}
	if _, err := time.Parse("2006-01", req.Cycle); err != nil {
		return nil, errors.NewValidationError("cycle must be formatted as YYYY-MM")
	}

	total, err := money.Parse(req.TotalAmount)
	if err != nil {
		return nil, err
	}
	if !total.IsPositive() {
		return nil, errors.NewValidationError("total amount must be positive")
	}

	dueDate, err := time.ParseInLocation("2006-01-02", req.DueDate, time.UTC)
	if err != nil {
		return nil, errors.NewValidationError("due date must be formatted as YYYY-MM-DD")
	}

	now := time.Now().UTC()
	inv := &Invoice{
		InvoiceID:   ulid.Make().String(),
		HouseID:     req.HouseID,
		Cycle:       req.Cycle,
		TotalAmount: total,
		Outstanding: total,
		DueDate:     dueDate,
		Status:      StatusIssued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	evt := audit.NewEvent(actor, "invoice.create", audit.EntityInvoice, inv.InvoiceID, nil, *inv)
	if err := s.repo.Create(ctx, inv, evt); err != nil {
		return nil, err
	}
	return inv, nil
}

// Get returns an invoice by ID.
func (s *Service) Get(ctx context.Context, invoiceID string) (*Invoice, error) {
	return s.repo.Get(ctx, invoiceID)
}

// List returns invoices, optionally narrowed to a house and/or a status.
func (s *Service) List(ctx context.Context, houseID, statusFilter string) ([]Invoice, error) {
	f := Filter{HouseID: houseID}
	if statusFilter != "" {
		status, err := ParseStatus(statusFilter)
		if err != nil {
			return nil, err
		}
		f.Status = status
	}
	return s.repo.List(ctx, f)
}

// Cancel withdraws an invoice that nothing has been applied to yet. An
// invoice with any active allocation or credit must have them reversed
// first; cancellation never hides money movements.
func (s *Service) Cancel(ctx context.Context, actor audit.Actor, invoiceID, reason string) (*Invoice, error) {
	if err := audit.RequireActor(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, errors.NewValidationError("cancel reason is required")
	}

	inv, err := s.repo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Cancelled() {
		return nil, errors.NewInvalidStateError("invoice is already cancelled", string(inv.Status))
	}
	if inv.Outstanding.LessThan(inv.TotalAmount) {
		return nil, errors.NewInvalidStateError("invoice with applied payments or credits cannot be cancelled", string(inv.Status))
	}

	before := *inv
	updated := *inv
	updated.Status = StatusCancelled
	updated.CancelReason = reason
	updated.UpdatedAt = time.Now().UTC()

	evt := audit.NewEvent(actor, "invoice.cancel", audit.EntityInvoice, inv.InvoiceID, before, updated)
	evt.Reason = reason
	if err := s.repo.Cancel(ctx, &updated, evt); err != nil {
		return nil, err
	}
	return &updated, nil
}

// ApplyCredit writes part of the invoice off without cash. When the credit
// brings outstanding to zero the status becomes PAID only if real money was
// allocated at some point, otherwise CREDITED.
func (s *Service) ApplyCredit(ctx context.Context, actor audit.Actor, invoiceID string, req *ApplyCreditRequest) (*Invoice, error) {
	if err := audit.RequireActor(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, errors.NewValidationError("credit reason is required")
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, errors.NewValidationError("credit amount must be positive")
	}

	inv, err := s.repo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Cancelled() {
		return nil, errors.NewInvalidStateError("cancelled invoices cannot be credited", string(inv.Status))
	}
	if amount.GreaterThan(inv.Outstanding) {
		return nil, errors.NewAmountExceedsAvailableError("credit amount exceeds outstanding balance").
			WithDetail("outstanding", inv.Outstanding.String())
	}

	outstanding := inv.Outstanding.Sub(amount)
	hasCash := false
	if outstanding.IsZero() {
		hasCash, err = s.repo.HasActiveAllocation(ctx, invoiceID)
		if err != nil {
			return nil, err
		}
	}

	before := *inv
	updated := *inv
	updated.Outstanding = outstanding
	updated.Status = DeriveStatus(inv.TotalAmount, outstanding, false, hasCash)
	updated.UpdatedAt = time.Now().UTC()

	credit := &Credit{
		CreditID:  ulid.Make().String(),
		InvoiceID: inv.InvoiceID,
		Amount:    amount,
		Reason:    req.Reason,
		CreatedAt: updated.UpdatedAt,
	}

	evt := audit.NewEvent(actor, "invoice.apply_credit", audit.EntityInvoice, inv.InvoiceID, before, updated)
	evt.Reason = req.Reason
	if err := s.repo.ApplyCredit(ctx, &updated, credit, evt); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Credits returns the credit history of an invoice, reversed entries
// included.
func (s *Service) Credits(ctx context.Context, invoiceID string) ([]Credit, error) {
	return s.repo.ListCredits(ctx, invoiceID)
}
