package repository

import (
	"time"
)

// Index names on the single table.
const (
	gsi1 = "GSI1"
	gsi2 = "GSI2"
)

// Item type discriminators.
const (
	typePayIn      = "payin"
	typeOpenPayIn  = "open_payin"
	typeLedger     = "ledger_entry"
	typeInvoice    = "invoice"
	typeCredit     = "invoice_credit"
	typeAllocation = "allocation"
	typeExpense    = "expense"
	typeBankTxn    = "bank_txn"
	typeAuditEvent = "audit_event"
)

// sortableTime is a fixed-width timestamp layout whose lexicographic order
// matches chronological order, unlike RFC3339Nano which drops trailing
// zeros.
const sortableTime = "2006-01-02T15:04:05.000Z"

func timeKey(t time.Time) string {
	return t.UTC().Format(sortableTime)
}

func dateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Base table key builders. Everything belonging to a house shares its
// partition; expenses, bank lines and audit trails get partitions of their
// own.
func houseKey(houseID string) string { return "HOUSE#" + houseID }

func payinSK(payinID string) string { return "PAYIN#" + payinID }

// openPayInSK is the one-per-house guard item claimed by every blocking
// pay-in and released when it leaves a blocking status.
const openPayInSK = "OPEN_PAYIN"

func ledgerSK(entryID string) string { return "LEDGER#" + entryID }

func invoiceSK(invoiceID string) string { return "INVOICE#" + invoiceID }

// invoiceKey is the partition that groups an invoice's credits and payment
// allocations under the invoice itself.
func invoiceKey(invoiceID string) string { return "INVOICE#" + invoiceID }

func creditSK(creditID string) string { return "CREDIT#" + creditID }

func allocSK(allocationID string) string { return "ALLOC#" + allocationID }

const expensePartition = "EXPENSE"

func expenseSK(expenseID string) string { return "EXPENSE#" + expenseID }

// expenseKey is the partition that groups an expense's allocations.
func expenseKey(expenseID string) string { return "EXPENSE#" + expenseID }

const bankPartition = "BANK"

func bankTxnSK(txnID string) string { return "TXN#" + txnID }

func auditKey(entityType, entityID string) string {
	return "AUDIT#" + entityType + "#" + entityID
}

func auditEventSK(ts time.Time, eventID string) string {
	return "EVT#" + timeKey(ts) + "#" + eventID
}

// GSI1 resolves any entity by its bare id.
func payinGSI1(payinID string) (string, string) { return "PAYIN#" + payinID, "PAYIN" }

func ledgerGSI1(entryID string) (string, string) { return "LEDGER#" + entryID, "LEDGER_ENTRY" }

func invoiceGSI1(invoiceID string) (string, string) { return "INVOICE#" + invoiceID, "INVOICE" }

func allocGSI1(allocationID string) (string, string) { return "ALLOC#" + allocationID, "ALLOCATION" }

func expenseGSI1(expenseID string) (string, string) { return "EXPENSE#" + expenseID, "EXPENSE" }

func bankTxnGSI1(txnID string) (string, string) { return "BANKTXN#" + txnID, "BANK_TXN" }

// GSI2 carries the sparse work queues and reverse lookups: the admin review
// queue of submitted pay-ins, open invoices by due date, open expenses by
// date, and allocations by their source.
const (
	reviewQueuePK = "PAYIN#REVIEW"
	openInvoicePK = "INVOICE#OPEN"
	openExpensePK = "EXPENSE#OPEN"
)

func reviewQueueSK(createdAt time.Time, payinID string) string {
	return "TS#" + timeKey(createdAt) + "#" + payinID
}

func openInvoiceSK(dueDate time.Time, invoiceID string) string {
	return "DUE#" + dateKey(dueDate) + "#" + invoiceID
}

func openExpenseSK(expenseDate time.Time, expenseID string) string {
	return "DATE#" + dateKey(expenseDate) + "#" + expenseID
}

// allocSourcePK is the GSI2 partition that finds allocations by their
// source: LEDGER#<entryID> for payments, BANKTXN#<txnID> for expenses. The
// sort key reuses allocSK.
func allocSourcePK(kindPrefix, sourceID string) string {
	return kindPrefix + "#" + sourceID
}
