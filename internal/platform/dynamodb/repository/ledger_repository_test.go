package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/common/money"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/allocation"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/audit"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/errors"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/invoice"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/ledger"
)

func seedEntry(t *testing.T, c *TestClient, e *ledger.Entry) {
	t.Helper()
	item, err := ledgerEntryItem(e)
	require.NoError(t, err)
	c.seed(item)
}

func seedInvoice(t *testing.T, c *TestClient, inv *invoice.Invoice) {
	t.Helper()
	item, err := invoiceItem(inv)
	require.NoError(t, err)
	c.seed(item)
}

func testEntry(t *testing.T, id, houseID, amount string, receivedAt time.Time) *ledger.Entry {
	t.Helper()
	amt := mustAmount(t, amount)
	return &ledger.Entry{
		EntryID:    id,
		HouseID:    houseID,
		PayInID:    "PI-" + id,
		Amount:     amt,
		Remaining:  amt,
		ReceivedAt: receivedAt,
		CreatedAt:  receivedAt.Add(time.Hour),
	}
}

func testInvoice(t *testing.T, id, houseID, cycle, total string, due time.Time) *invoice.Invoice {
	t.Helper()
	amt := mustAmount(t, total)
	return &invoice.Invoice{
		InvoiceID:   id,
		HouseID:     houseID,
		Cycle:       cycle,
		TotalAmount: amt,
		Outstanding: amt,
		DueDate:     due,
		Status:      invoice.StatusIssued,
		CreatedAt:   due.AddDate(0, 0, -20),
		UpdatedAt:   due.AddDate(0, 0, -20),
	}
}

func allocEvent(action string, a *allocation.Allocation) *audit.Event {
	return audit.NewEvent(testActor, action, audit.EntityAllocation, a.AllocationID, nil, *a)
}

// applyPayment plans and applies an allocation the way the ledger service
// does, updating the caller's entry and invoice copies on success.
func applyPayment(t *testing.T, repo *DynamoDBLedgerRepository, entry *ledger.Entry, inv *invoice.Invoice, amount string) *allocation.Allocation {
	t.Helper()
	amt := mustAmount(t, amount)
	alloc, err := allocation.Plan(allocation.KindPayment, entry, inv, amt, "")
	require.NoError(t, err)
	alloc.HouseID = entry.HouseID

	updEntry := *entry
	updEntry.Remaining = entry.Remaining.Sub(amt)
	updInv := *inv
	updInv.Outstanding = inv.Outstanding.Sub(amt)
	updInv.Status = invoice.DeriveStatus(updInv.TotalAmount, updInv.Outstanding, false, true)
	updInv.UpdatedAt = time.Now().UTC()

	app := &ledger.Application{Allocation: alloc, Entry: &updEntry, Invoice: &updInv}
	require.NoError(t, repo.Apply(context.Background(), app, allocEvent("ledger.apply_payment", alloc)))

	*entry = updEntry
	*inv = updInv
	return alloc
}

func TestLedgerRepositoryApply(t *testing.T) {
	ctx := context.Background()
	received := time.Date(2026, 7, 15, 10, 0, 0, 0, time.UTC)
	due := time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC)

	t.Run("settles the invoice and drains the entry", func(t *testing.T) {
		c := newTestClient()
		repo := NewDynamoDBLedgerRepository(c, testTable, zap.NewNop())
		invRepo := NewDynamoDBInvoiceRepository(c, testTable, zap.NewNop())

		entry := testEntry(t, "LE-1", "H-101", "3000.00", received)
		inv := testInvoice(t, "INV-1", "H-101", "2026-07", "3000.00", due)
		seedEntry(t, c, entry)
		seedInvoice(t, c, inv)

		alloc := applyPayment(t, repo, entry, inv, "3000.00")

		stored, err := repo.GetEntry(ctx, "LE-1")
		require.NoError(t, err)
		assert.True(t, stored.Remaining.IsZero())

		settled, err := invRepo.Get(ctx, "INV-1")
		require.NoError(t, err)
		assert.True(t, settled.Outstanding.IsZero())
		assert.Equal(t, invoice.StatusPaid, settled.Status)

		open, err := invRepo.List(ctx, invoice.Filter{OnlyOutstanding: true})
		require.NoError(t, err)
		assert.Empty(t, open)

		got, err := repo.GetAllocation(ctx, alloc.AllocationID)
		require.NoError(t, err)
		assert.True(t, got.Active())
		assert.Equal(t, "LE-1", got.SourceID)
		assert.Equal(t, "INV-1", got.TargetID)
	})

	t.Run("stale entry balance cancels the whole transaction", func(t *testing.T) {
		c := newTestClient()
		repo := NewDynamoDBLedgerRepository(c, testTable, zap.NewNop())

		entry := testEntry(t, "LE-1", "H-101", "500.00", received)
		inv := testInvoice(t, "INV-1", "H-101", "2026-07", "3000.00", due)
		seedEntry(t, c, entry)
		seedInvoice(t, c, inv)

		// Plan as if the entry still had 800 remaining.
		staleEntry := *entry
		staleEntry.Remaining = mustAmount(t, "800.00")
		amt := mustAmount(t, "800.00")
		alloc, err := allocation.Plan(allocation.KindPayment, &staleEntry, inv, amt, "")
		require.NoError(t, err)

		updEntry := staleEntry
		updEntry.Remaining = staleEntry.Remaining.Sub(amt)
		updInv := *inv
		updInv.Outstanding = inv.Outstanding.Sub(amt)
		updInv.Status = invoice.DeriveStatus(updInv.TotalAmount, updInv.Outstanding, false, true)

		app := &ledger.Application{Allocation: alloc, Entry: &updEntry, Invoice: &updInv}
		err = repo.Apply(ctx, app, allocEvent("ledger.apply_payment", alloc))
		require.True(t, errors.HasCode(err, errors.CodeAmountExceedsAvailable))

		// Nothing moved.
		stored, err := repo.GetEntry(ctx, "LE-1")
		require.NoError(t, err)
		assert.Equal(t, mustAmount(t, "500.00"), stored.Remaining)
		_, err = repo.GetAllocation(ctx, alloc.AllocationID)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("stale invoice outstanding cancels the whole transaction", func(t *testing.T) {
		c := newTestClient()
		repo := NewDynamoDBLedgerRepository(c, testTable, zap.NewNop())
		invRepo := NewDynamoDBInvoiceRepository(c, testTable, zap.NewNop())

		entry := testEntry(t, "LE-1", "H-101", "3000.00", received)
		inv := testInvoice(t, "INV-1", "H-101", "2026-07", "3000.00", due)
		stored := *inv
		stored.Outstanding = mustAmount(t, "1000.00")
		stored.Status = invoice.StatusPartiallyPaid
		seedEntry(t, c, entry)
		seedInvoice(t, c, &stored)

		// Plan against the full outstanding that no longer holds.
		amt := mustAmount(t, "2500.00")
		alloc, err := allocation.Plan(allocation.KindPayment, entry, inv, amt, "")
		require.NoError(t, err)

		updEntry := *entry
		updEntry.Remaining = entry.Remaining.Sub(amt)
		updInv := *inv
		updInv.Outstanding = inv.Outstanding.Sub(amt)
		updInv.Status = invoice.DeriveStatus(updInv.TotalAmount, updInv.Outstanding, false, true)

		app := &ledger.Application{Allocation: alloc, Entry: &updEntry, Invoice: &updInv}
		err = repo.Apply(ctx, app, allocEvent("ledger.apply_payment", alloc))
		require.True(t, errors.HasCode(err, errors.CodeAmountExceedsAvailable))

		current, err := invRepo.Get(ctx, "INV-1")
		require.NoError(t, err)
		assert.Equal(t, mustAmount(t, "1000.00"), current.Outstanding)
		entryNow, err := repo.GetEntry(ctx, "LE-1")
		require.NoError(t, err)
		assert.Equal(t, mustAmount(t, "3000.00"), entryNow.Remaining)
	})
}

func TestLedgerRepositoryReverse(t *testing.T) {
	ctx := context.Background()
	received := time.Date(2026, 7, 15, 10, 0, 0, 0, time.UTC)
	due := time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC)

	c := newTestClient()
	repo := NewDynamoDBLedgerRepository(c, testTable, zap.NewNop())
	invRepo := NewDynamoDBInvoiceRepository(c, testTable, zap.NewNop())

	entry := testEntry(t, "LE-1", "H-101", "3000.00", received)
	inv := testInvoice(t, "INV-1", "H-101", "2026-07", "3000.00", due)
	seedEntry(t, c, entry)
	seedInvoice(t, c, inv)

	alloc := applyPayment(t, repo, entry, inv, "1200.00")

	newRemaining, newOutstanding, err := allocation.Reverse(alloc, entry.Remaining, inv.Outstanding)
	require.NoError(t, err)

	updEntry := *entry
	updEntry.Remaining = newRemaining
	updInv := *inv
	updInv.Outstanding = newOutstanding
	updInv.Status = invoice.DeriveStatus(updInv.TotalAmount, updInv.Outstanding, false, false)

	rev := &ledger.Reversal{Allocation: alloc, Entry: &updEntry, Invoice: &updInv}
	require.NoError(t, repo.Reverse(ctx, rev, allocEvent("ledger.remove_allocation", alloc)))

	restored, err := repo.GetEntry(ctx, "LE-1")
	require.NoError(t, err)
	assert.Equal(t, mustAmount(t, "3000.00"), restored.Remaining)

	reopened, err := invRepo.Get(ctx, "INV-1")
	require.NoError(t, err)
	assert.Equal(t, mustAmount(t, "3000.00"), reopened.Outstanding)
	assert.Equal(t, invoice.StatusIssued, reopened.Status)

	marked, err := repo.GetAllocation(ctx, alloc.AllocationID)
	require.NoError(t, err)
	assert.False(t, marked.Active())

	t.Run("reversing twice is not found", func(t *testing.T) {
		err := repo.Reverse(ctx, rev, allocEvent("ledger.remove_allocation", alloc))
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("reversed allocations are hidden unless asked for", func(t *testing.T) {
		active, err := repo.ListAllocations(ctx, allocation.Filter{TargetID: "INV-1"})
		require.NoError(t, err)
		assert.Empty(t, active)

		all, err := repo.ListAllocations(ctx, allocation.Filter{TargetID: "INV-1", IncludeReversed: true})
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestLedgerRepositoryListEntries(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	c := newTestClient()
	repo := NewDynamoDBLedgerRepository(c, testTable, zap.NewNop())

	// Received order differs from id order on purpose.
	late := testEntry(t, "LE-A", "H-101", "100.00", base.Add(48*time.Hour))
	early := testEntry(t, "LE-B", "H-101", "200.00", base)
	drained := testEntry(t, "LE-C", "H-101", "300.00", base.Add(24*time.Hour))
	drained.Remaining = money.Amount(0)
	other := testEntry(t, "LE-D", "H-202", "400.00", base)
	for _, e := range []*ledger.Entry{late, early, drained, other} {
		seedEntry(t, c, e)
	}

	t.Run("all entries oldest received first", func(t *testing.T) {
		entries, err := repo.ListEntries(ctx, "H-101")
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "LE-B", entries[0].EntryID)
		assert.Equal(t, "LE-C", entries[1].EntryID)
		assert.Equal(t, "LE-A", entries[2].EntryID)
	})

	t.Run("allocatable hides drained entries", func(t *testing.T) {
		open, err := repo.ListAllocatable(ctx, "H-101")
		require.NoError(t, err)
		require.Len(t, open, 2)
		assert.Equal(t, "LE-B", open[0].EntryID)
		assert.Equal(t, "LE-A", open[1].EntryID)
	})
}

func TestLedgerRepositoryListAllocationsFilters(t *testing.T) {
	ctx := context.Background()
	received := time.Date(2026, 7, 15, 10, 0, 0, 0, time.UTC)
	due := time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC)

	c := newTestClient()
	repo := NewDynamoDBLedgerRepository(c, testTable, zap.NewNop())

	e1 := testEntry(t, "LE-1", "H-101", "2000.00", received)
	e2 := testEntry(t, "LE-2", "H-101", "1000.00", received.Add(time.Hour))
	invA := testInvoice(t, "INV-A", "H-101", "2026-07", "1500.00", due)
	invB := testInvoice(t, "INV-B", "H-101", "2026-08", "900.00", due.AddDate(0, 1, 0))
	seedEntry(t, c, e1)
	seedEntry(t, c, e2)
	seedInvoice(t, c, invA)
	seedInvoice(t, c, invB)

	first := applyPayment(t, repo, e1, invA, "1000.00")
	second := applyPayment(t, repo, e2, invA, "500.00")
	third := applyPayment(t, repo, e1, invB, "900.00")

	t.Run("by target invoice", func(t *testing.T) {
		allocs, err := repo.ListAllocations(ctx, allocation.Filter{TargetID: "INV-A"})
		require.NoError(t, err)
		require.Len(t, allocs, 2)
		assert.Equal(t, first.AllocationID, allocs[0].AllocationID)
		assert.Equal(t, second.AllocationID, allocs[1].AllocationID)
	})

	t.Run("by source entry", func(t *testing.T) {
		allocs, err := repo.ListAllocations(ctx, allocation.Filter{SourceID: "LE-1"})
		require.NoError(t, err)
		require.Len(t, allocs, 2)
		assert.Equal(t, first.AllocationID, allocs[0].AllocationID)
		assert.Equal(t, third.AllocationID, allocs[1].AllocationID)
	})

	t.Run("by house fans out over the house entries", func(t *testing.T) {
		allocs, err := repo.ListAllocations(ctx, allocation.Filter{HouseID: "H-101"})
		require.NoError(t, err)
		assert.Len(t, allocs, 3)
	})

	t.Run("unfiltered listing scans payment allocations only", func(t *testing.T) {
		allocs, err := repo.ListAllocations(ctx, allocation.Filter{})
		require.NoError(t, err)
		assert.Len(t, allocs, 3)
		for _, a := range allocs {
			assert.Equal(t, allocation.KindPayment, a.Kind)
		}
	})
}
