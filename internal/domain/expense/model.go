package expense

import (
	"fmt"
	"strings"
	"time"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/common/money"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/errors"
)

// Status represents how much of an expense has been covered by bank debits
type Status string

const (
	// StatusPending means part of the expense is still unmatched
	StatusPending Status = "PENDING"
	// StatusPaid means bank debits cover the full expense amount
	StatusPaid Status = "PAID"
)

// ParseStatus normalizes an expense status string.
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch status {
	case StatusPending, StatusPaid:
		return status, nil
	}
	return "", errors.NewValidationError(fmt.Sprintf("unknown expense status %q", s))
}

// DeriveStatus computes the status implied by the remaining balance.
func DeriveStatus(remaining money.Amount) Status {
	if remaining.IsZero() {
		return StatusPaid
	}
	return StatusPending
}

// Expense is a village outflow obligation: something the juristic office
// spent money on and needs matched against bank debit lines. Remaining is
// the slice not yet covered by active allocations.
type Expense struct {
	ExpenseID   string       `json:"expenseId"`
	Description string       `json:"description"`
	VendorName  string       `json:"vendorName,omitempty"`
	Category    string       `json:"category,omitempty"`
	Amount      money.Amount `json:"amount"`
	Remaining   money.Amount `json:"remaining"`
	Status      Status       `json:"status"`
	ExpenseDate time.Time    `json:"expenseDate"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// AllocationTargetID implements allocation.Target.
func (e *Expense) AllocationTargetID() string {
	return e.ExpenseID
}

// OutstandingAmount implements allocation.Target.
func (e *Expense) OutstandingAmount() money.Amount {
	return e.Remaining
}

// CreateExpenseRequest records a new outflow obligation.
type CreateExpenseRequest struct {
	Description string `json:"description"`
	VendorName  string `json:"vendorName,omitempty"`
	Category    string `json:"category,omitempty"`
	Amount      string `json:"amount"`
	ExpenseDate string `json:"expenseDate"`
}

// AllocateRequest asks for amount of a bank debit line to be matched
// against an expense.
type AllocateRequest struct {
	ExpenseID string `json:"expenseId"`
	BankTxnID string `json:"bankTxnId"`
	Amount    string `json:"amount"`
	Note      string `json:"note,omitempty"`
}
