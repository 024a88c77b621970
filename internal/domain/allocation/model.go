package allocation

import (
	"time"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/common/money"
)

// Kind distinguishes the two allocation flavors the system supports. Both
// share one record shape and one engine; only the source/target entities
// differ.
type Kind string

const (
	// KindPayment matches resident money (a ledger entry) against an invoice.
	KindPayment Kind = "PAYMENT"
	// KindExpense matches a bank debit line against a recorded expense.
	KindExpense Kind = "EXPENSE"
)

// Allocation records that amount moved from a source's remaining balance
// into a target's outstanding balance. Allocations are never deleted:
// a reversal sets ReversedAt and restores both balances, keeping the full
// history queryable.
type Allocation struct {
	AllocationID string       `json:"allocationId"`
	Kind         Kind         `json:"kind"`
	SourceID     string       `json:"sourceId"`
	TargetID     string       `json:"targetId"`
	HouseID      string       `json:"houseId,omitempty"`
	Amount       money.Amount `json:"amount"`
	Note         string       `json:"note,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	ReversedAt   *time.Time   `json:"reversedAt,omitempty"`
}

// Active reports whether the allocation still counts against balances.
func (a *Allocation) Active() bool {
	return a.ReversedAt == nil
}

// Filter narrows allocation listings. At most one of SourceID, TargetID and
// HouseID is expected; reversed records are hidden unless asked for.
type Filter struct {
	Kind            Kind
	SourceID        string
	TargetID        string
	HouseID         string
	IncludeReversed bool
}
