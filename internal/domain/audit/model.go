package audit

import (
	"time"

	ulid "github.com/oklog/ulid/v2"
)

// Entity types recorded in the audit trail.
const (
	EntityPayIn       = "PAYIN"
	EntityLedgerEntry = "LEDGER_ENTRY"
	EntityInvoice     = "INVOICE"
	EntityAllocation  = "ALLOCATION"
	EntityExpense     = "EXPENSE"
	EntityBankTxn     = "BANK_TXN"
)

// Event is one append-only audit record. Every mutating operation in the
// system writes exactly one Event in the same storage transaction as the
// mutation itself, so the trail can never disagree with the data.
type Event struct {
	EventID    string      `json:"eventId"`
	Actor      Actor       `json:"actor"`
	Action     string      `json:"action"`
	EntityType string      `json:"entityType"`
	EntityID   string      `json:"entityId"`
	Reason     string      `json:"reason,omitempty"`
	Before     interface{} `json:"before,omitempty"`
	After      interface{} `json:"after,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// NewEvent builds an audit event for an actor performing action on the given
// entity. Before/After are snapshots of the entity around the mutation; pass
// nil for creations and deletions respectively.
func NewEvent(actor Actor, action, entityType, entityID string, before, after interface{}) *Event {
	return &Event{
		EventID:    ulid.Make().String(),
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Before:     before,
		After:      after,
		Timestamp:  time.Now().UTC(),
	}
}
