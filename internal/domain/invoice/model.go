package invoice

import (
	"fmt"
	"strings"
	"time"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/common/money"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/errors"
)

// Status represents the settlement state of an invoice
type Status string

const (
	// StatusIssued means no money or credit has been applied yet
	StatusIssued Status = "ISSUED"
	// StatusPartiallyPaid means some but not all of the total is settled
	StatusPartiallyPaid Status = "PARTIALLY_PAID"
	// StatusPaid means the invoice was settled with at least some cash
	StatusPaid Status = "PAID"
	// StatusCancelled means the invoice was withdrawn before any settlement
	StatusCancelled Status = "CANCELLED"
	// StatusCredited means the invoice was written down to zero by credits alone
	StatusCredited Status = "CREDITED"
)

// ParseStatus normalizes an invoice status string.
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch status {
	case StatusIssued, StatusPartiallyPaid, StatusPaid, StatusCancelled, StatusCredited:
		return status, nil
	}
	return "", errors.NewValidationError(fmt.Sprintf("unknown invoice status %q", s))
}

// DeriveStatus computes the status implied by the balances. It is the only
// place the status rules live: every mutation of outstanding re-derives
// through here, so a stored status can never drift from the numbers.
func DeriveStatus(total, outstanding money.Amount, cancelled, hasCashAllocation bool) Status {
	switch {
	case cancelled:
		return StatusCancelled
	case outstanding.IsZero() && hasCashAllocation:
		return StatusPaid
	case outstanding.IsZero():
		return StatusCredited
	case outstanding.LessThan(total):
		return StatusPartiallyPaid
	default:
		return StatusIssued
	}
}

// Invoice is an obligation owed by a house for one billing cycle.
// Outstanding = total − Σ active allocations − Σ active credits, maintained
// transactionally alongside every allocation and credit write.
type Invoice struct {
	InvoiceID    string       `json:"invoiceId"`
	HouseID      string       `json:"houseId"`
	Cycle        string       `json:"cycle"`
	TotalAmount  money.Amount `json:"totalAmount"`
	Outstanding  money.Amount `json:"outstanding"`
	DueDate      time.Time    `json:"dueDate"`
	Status       Status       `json:"status"`
	CancelReason string       `json:"cancelReason,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// AllocationTargetID implements allocation.Target.
func (i *Invoice) AllocationTargetID() string {
	return i.InvoiceID
}

// OutstandingAmount implements allocation.Target.
func (i *Invoice) OutstandingAmount() money.Amount {
	return i.Outstanding
}

// Cancelled reports whether the invoice has been withdrawn.
func (i *Invoice) Cancelled() bool {
	return i.Status == StatusCancelled
}

// Credit is a non-cash write-down of an invoice (waiver, discount,
// correction). Active credits reduce outstanding exactly like allocations;
// reversed credits are kept for the trail.
type Credit struct {
	CreditID   string       `json:"creditId"`
	InvoiceID  string       `json:"invoiceId"`
	Amount     money.Amount `json:"amount"`
	Reason     string       `json:"reason"`
	CreatedAt  time.Time    `json:"createdAt"`
	ReversedAt *time.Time   `json:"reversedAt,omitempty"`
}

// Active reports whether the credit still counts against outstanding.
func (c *Credit) Active() bool {
	return c.ReversedAt == nil
}

// CreateInvoiceRequest carries a new obligation for a house.
type CreateInvoiceRequest struct {
	HouseID     string `json:"houseId"`
	Cycle       string `json:"cycle"`
	TotalAmount string `json:"totalAmount"`
	DueDate     string `json:"dueDate"`
}

// ApplyCreditRequest writes part of an invoice off without cash.
type ApplyCreditRequest struct {
	Amount string `json:"amount"`
	Reason string `json:"reason"`
}

// Filter narrows invoice listings. OnlyOutstanding selects invoices with
// outstanding > 0 regardless of status, which is the aging report's input.
type Filter struct {
	HouseID         string
	Status          Status
	OnlyOutstanding bool
}
