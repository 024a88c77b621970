package bank

import (
	"time"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/common/money"
)

// Transaction is one imported bank statement line. Exactly one of Debit and
// Credit is non-zero. Debit lines carry an Unallocated balance consumed by
// expense allocations; credit lines may seed at most one pay-in, recorded in
// PayInID.
type Transaction struct {
	TxnID         string       `json:"txnId"`
	Description   string       `json:"description,omitempty"`
	Debit         money.Amount `json:"debit"`
	Credit        money.Amount `json:"credit"`
	Unallocated   money.Amount `json:"unallocated"`
	EffectiveAt   time.Time    `json:"effectiveAt"`
	Channel       string       `json:"channel,omitempty"`
	PayInID       string       `json:"payinId,omitempty"`
	ImportBatchID string       `json:"importBatchId"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// IsDebit reports whether the line is money leaving the account.
func (t *Transaction) IsDebit() bool {
	return t.Debit.IsPositive()
}

// IsCredit reports whether the line is money entering the account.
func (t *Transaction) IsCredit() bool {
	return t.Credit.IsPositive()
}

// Unidentified reports whether a credit line has not yet been claimed by a
// pay-in.
func (t *Transaction) Unidentified() bool {
	return t.IsCredit() && t.PayInID == ""
}

// AllocationSourceID implements allocation.Source for debit lines.
func (t *Transaction) AllocationSourceID() string {
	return t.TxnID
}

// RemainingAmount implements allocation.Source for debit lines.
func (t *Transaction) RemainingAmount() money.Amount {
	return t.Unallocated
}

// StatementLine is one row of an uploaded statement. LineID is the bank's
// own reference and doubles as the idempotency key: re-importing the same
// line is a no-op.
type StatementLine struct {
	LineID      string `json:"lineId"`
	Description string `json:"description,omitempty"`
	Debit       string `json:"debit,omitempty"`
	Credit      string `json:"credit,omitempty"`
	EffectiveAt string `json:"effectiveAt"`
	Channel     string `json:"channel,omitempty"`
}

// ImportStatementRequest carries a batch of statement lines.
type ImportStatementRequest struct {
	Lines []StatementLine `json:"lines"`
}

// ImportResult reports what an import did. Skipped counts lines that were
// already present from an earlier import.
type ImportResult struct {
	BatchID  string `json:"batchId"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
}
