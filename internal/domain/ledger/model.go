package ledger

import (
	"time"

	ulid "github.com/oklog/ulid/v2"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/common/money"
)

// Entry is confirmed house money: it exists from the moment a pay-in is
// accepted and is immutable except for Remaining, which only moves under
// allocations and their reversals.
type Entry struct {
	EntryID    string       `json:"entryId"`
	HouseID    string       `json:"houseId"`
	PayInID    string       `json:"payinId"`
	Amount     money.Amount `json:"amount"`
	Remaining  money.Amount `json:"remaining"`
	ReceivedAt time.Time    `json:"receivedAt"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// NewEntry creates the ledger entry for an accepted pay-in. ReceivedAt is
// the reported transfer time, not the acceptance time, so first-in ordering
// follows when the money actually arrived.
func NewEntry(payinID, houseID string, amount money.Amount, receivedAt time.Time) *Entry {
	return &Entry{
		EntryID:    ulid.Make().String(),
		HouseID:    houseID,
		PayInID:    payinID,
		Amount:     amount,
		Remaining:  amount,
		ReceivedAt: receivedAt,
		CreatedAt:  time.Now().UTC(),
	}
}

// AllocationSourceID implements allocation.Source.
func (e *Entry) AllocationSourceID() string {
	return e.EntryID
}

// RemainingAmount implements allocation.Source.
func (e *Entry) RemainingAmount() money.Amount {
	return e.Remaining
}

// ApplyPaymentRequest asks for amount of a ledger entry to be allocated to
// an invoice.
type ApplyPaymentRequest struct {
	InvoiceID     string `json:"invoiceId"`
	LedgerEntryID string `json:"ledgerEntryId"`
	Amount        string `json:"amount"`
	Note          string `json:"note,omitempty"`
}
