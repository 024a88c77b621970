package allocation

import (
	"fmt"
	"time"

	ulid "github.com/oklog/ulid/v2"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/common/money"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/errors"
)

// Source is a pool of money that allocations consume: a ledger entry for
// payments, a bank debit line for expenses.
type Source interface {
	AllocationSourceID() string
	RemainingAmount() money.Amount
}

// Target is an obligation that allocations settle: an invoice for payments,
// an expense for bank debits.
type Target interface {
	AllocationTargetID() string
	OutstandingAmount() money.Amount
}

// Plan validates that amount can move from src to tgt and returns the
// resulting record. The checks run against the balances as read by the
// caller; the storage layer re-asserts them transactionally when the plan is
// applied, so a plan that raced a concurrent allocation fails there instead.
func Plan(kind Kind, src Source, tgt Target, amount money.Amount, note string) (*Allocation, error) {
	if !amount.IsPositive() {
		return nil, errors.NewValidationError("allocation amount must be positive")
	}
	if amount.GreaterThan(src.RemainingAmount()) {
		return nil, errors.NewAmountExceedsAvailableError(
			fmt.Sprintf("amount %s exceeds remaining %s", amount, src.RemainingAmount()),
		).WithDetail("remaining", src.RemainingAmount().String())
	}
	if amount.GreaterThan(tgt.OutstandingAmount()) {
		return nil, errors.NewAmountExceedsAvailableError(
			fmt.Sprintf("amount %s exceeds outstanding %s", amount, tgt.OutstandingAmount()),
		).WithDetail("outstanding", tgt.OutstandingAmount().String())
	}

	return &Allocation{
		AllocationID: ulid.Make().String(),
		Kind:         kind,
		SourceID:     src.AllocationSourceID(),
		TargetID:     tgt.AllocationTargetID(),
		Amount:       amount,
		Note:         note,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// Reverse marks the allocation reversed as of now and returns the balances
// both sides must be restored to. It fails if the allocation was already
// reversed, so a reversal can never be applied twice.
func Reverse(a *Allocation, srcRemaining, tgtOutstanding money.Amount) (newRemaining, newOutstanding money.Amount, err error) {
	if !a.Active() {
		return 0, 0, errors.NewNotFoundError("allocation is already reversed")
	}
	now := time.Now().UTC()
	a.ReversedAt = &now
	return srcRemaining.Add(a.Amount), tgtOutstanding.Add(a.Amount), nil
}
