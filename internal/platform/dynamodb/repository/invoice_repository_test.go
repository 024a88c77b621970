package repository

import (
	"context"
	"testing"
	"time"

	ulid "github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/allocation"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/audit"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/errors"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/invoice"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/ledger"
)

func invoiceEvent(action string, inv *invoice.Invoice) *audit.Event {
	return audit.NewEvent(testActor, action, audit.EntityInvoice, inv.InvoiceID, nil, *inv)
}

// applyCredit mirrors the service's credit flow against the repository,
// updating the caller's invoice copy on success.
func applyCredit(t *testing.T, repo *DynamoDBInvoiceRepository, inv *invoice.Invoice, amount, reason string) *invoice.Credit {
	t.Helper()
	amt := mustAmount(t, amount)
	updated := *inv
	updated.Outstanding = inv.Outstanding.Sub(amt)
	updated.Status = invoice.DeriveStatus(updated.TotalAmount, updated.Outstanding, false, false)
	updated.UpdatedAt = time.Now().UTC()

	credit := &invoice.Credit{
		CreditID:  ulid.Make().String(),
		InvoiceID: inv.InvoiceID,
		Amount:    amt,
		Reason:    reason,
		CreatedAt: updated.UpdatedAt,
	}
	require.NoError(t, repo.ApplyCredit(context.Background(), &updated, credit, invoiceEvent("invoice.apply_credit", &updated)))
	*inv = updated
	return credit
}

func TestInvoiceRepositoryCreate(t *testing.T) {
	ctx := context.Background()
	due := time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC)

	c := newTestClient()
	repo := NewDynamoDBInvoiceRepository(c, testTable, zap.NewNop())

	inv := testInvoice(t, "INV-1", "H-101", "2026-07", "3000.00", due)
	require.NoError(t, repo.Create(ctx, inv, invoiceEvent("invoice.create", inv)))

	t.Run("reads back by id", func(t *testing.T) {
		got, err := repo.Get(ctx, "INV-1")
		require.NoError(t, err)
		assert.Equal(t, "H-101", got.HouseID)
		assert.Equal(t, "2026-07", got.Cycle)
		assert.Equal(t, mustAmount(t, "3000.00"), got.TotalAmount)
		assert.Equal(t, mustAmount(t, "3000.00"), got.Outstanding)
		assert.Equal(t, invoice.StatusIssued, got.Status)
		assert.True(t, got.DueDate.Equal(due))
	})

	t.Run("duplicate id is refused", func(t *testing.T) {
		err := repo.Create(ctx, inv, invoiceEvent("invoice.create", inv))
		assert.True(t, errors.HasCode(err, errors.CodeConflict))
	})

	t.Run("missing id is not found", func(t *testing.T) {
		_, err := repo.Get(ctx, "INV-404")
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestInvoiceRepositoryList(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	c := newTestClient()
	repo := NewDynamoDBInvoiceRepository(c, testTable, zap.NewNop())

	july := testInvoice(t, "INV-JUL", "H-101", "2026-07", "3000.00", base.AddDate(0, -1, 4))
	august := testInvoice(t, "INV-AUG", "H-101", "2026-08", "3000.00", base.AddDate(0, 0, 4))
	settled := testInvoice(t, "INV-SET", "H-101", "2026-06", "3000.00", base.AddDate(0, -2, 4))
	settled.Outstanding = mustAmount(t, "0")
	settled.Status = invoice.StatusPaid
	cancelled := testInvoice(t, "INV-CXL", "H-202", "2026-08", "500.00", base.AddDate(0, 0, 4))
	cancelled.Status = invoice.StatusCancelled
	other := testInvoice(t, "INV-OTH", "H-202", "2026-07", "800.00", base.AddDate(0, -1, 4))
	for _, inv := range []*invoice.Invoice{august, settled, cancelled, july, other} {
		seedInvoice(t, c, inv)
	}

	t.Run("by house ordered by due date", func(t *testing.T) {
		got, err := repo.List(ctx, invoice.Filter{HouseID: "H-101"})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "INV-SET", got[0].InvoiceID)
		assert.Equal(t, "INV-JUL", got[1].InvoiceID)
		assert.Equal(t, "INV-AUG", got[2].InvoiceID)
	})

	t.Run("only outstanding skips settled and cancelled", func(t *testing.T) {
		got, err := repo.List(ctx, invoice.Filter{OnlyOutstanding: true})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "INV-JUL", got[0].InvoiceID)
		assert.Equal(t, "INV-OTH", got[1].InvoiceID)
		assert.Equal(t, "INV-AUG", got[2].InvoiceID)
	})

	t.Run("status filter over a full scan", func(t *testing.T) {
		got, err := repo.List(ctx, invoice.Filter{Status: invoice.StatusCancelled})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "INV-CXL", got[0].InvoiceID)
	})
}

func TestInvoiceRepositoryCancel(t *testing.T) {
	ctx := context.Background()
	due := time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC)

	t.Run("cancels an untouched invoice", func(t *testing.T) {
		c := newTestClient()
		repo := NewDynamoDBInvoiceRepository(c, testTable, zap.NewNop())
		auditRepo := NewDynamoDBAuditRepository(c, testTable, zap.NewNop())

		inv := testInvoice(t, "INV-1", "H-101", "2026-07", "3000.00", due)
		require.NoError(t, repo.Create(ctx, inv, invoiceEvent("invoice.create", inv)))

		updated := *inv
		updated.Status = invoice.StatusCancelled
		updated.CancelReason = "issued against the wrong house"
		updated.UpdatedAt = time.Now().UTC()
		require.NoError(t, repo.Cancel(ctx, &updated, invoiceEvent("invoice.cancel", &updated)))

		got, err := repo.Get(ctx, "INV-1")
		require.NoError(t, err)
		assert.Equal(t, invoice.StatusCancelled, got.Status)
		assert.Equal(t, "issued against the wrong house", got.CancelReason)

		open, err := repo.List(ctx, invoice.Filter{OnlyOutstanding: true})
		require.NoError(t, err)
		assert.Empty(t, open)

		trail, err := auditRepo.Trail(ctx, audit.EntityInvoice, "INV-1")
		require.NoError(t, err)
		require.Len(t, trail, 2)
		assert.Equal(t, "invoice.create", trail[0].Action)
		assert.Equal(t, "invoice.cancel", trail[1].Action)
	})

	t.Run("cancelling twice reports the current state", func(t *testing.T) {
		c := newTestClient()
		repo := NewDynamoDBInvoiceRepository(c, testTable, zap.NewNop())

		inv := testInvoice(t, "INV-1", "H-101", "2026-07", "3000.00", due)
		require.NoError(t, repo.Create(ctx, inv, invoiceEvent("invoice.create", inv)))

		updated := *inv
		updated.Status = invoice.StatusCancelled
		updated.CancelReason = "duplicate"
		require.NoError(t, repo.Cancel(ctx, &updated, invoiceEvent("invoice.cancel", &updated)))

		err := repo.Cancel(ctx, &updated, invoiceEvent("invoice.cancel", &updated))
		var appErr errors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, errors.CodeInvalidState, appErr.Code)
		assert.Equal(t, string(invoice.StatusCancelled), appErr.Details["currentStatus"])
	})

	t.Run("a concurrent credit blocks the cancel", func(t *testing.T) {
		c := newTestClient()
		repo := NewDynamoDBInvoiceRepository(c, testTable, zap.NewNop())

		inv := testInvoice(t, "INV-1", "H-101", "2026-07", "3000.00", due)
		require.NoError(t, repo.Create(ctx, inv, invoiceEvent("invoice.create", inv)))

		// Cancel is planned against the untouched invoice.
		stale := *inv
		stale.Status = invoice.StatusCancelled
		stale.CancelReason = "no longer applies"

		// A credit lands first.
		applyCredit(t, repo, inv, "500.00", "partial waiver")

		err := repo.Cancel(ctx, &stale, invoiceEvent("invoice.cancel", &stale))
		var appErr errors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, errors.CodeInvalidState, appErr.Code)
		assert.Equal(t, string(invoice.StatusPartiallyPaid), appErr.Details["currentStatus"])

		// The invoice kept the credited balance.
		got, err := repo.Get(ctx, "INV-1")
		require.NoError(t, err)
		assert.Equal(t, mustAmount(t, "2500.00"), got.Outstanding)
	})
}

func TestInvoiceRepositoryApplyCredit(t *testing.T) {
	ctx := context.Background()
	due := time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC)

	t.Run("reduces outstanding and records the credit", func(t *testing.T) {
		c := newTestClient()
		repo := NewDynamoDBInvoiceRepository(c, testTable, zap.NewNop())

		inv := testInvoice(t, "INV-1", "H-101", "2026-07", "3000.00", due)
		seedInvoice(t, c, inv)

		credit := applyCredit(t, repo, inv, "500.00", "senior discount")

		got, err := repo.Get(ctx, "INV-1")
		require.NoError(t, err)
		assert.Equal(t, mustAmount(t, "2500.00"), got.Outstanding)
		assert.Equal(t, invoice.StatusPartiallyPaid, got.Status)

		credits, err := repo.ListCredits(ctx, "INV-1")
		require.NoError(t, err)
		require.Len(t, credits, 1)
		assert.Equal(t, credit.CreditID, credits[0].CreditID)
		assert.Equal(t, "senior discount", credits[0].Reason)
		assert.True(t, credits[0].Active())
	})

	t.Run("crediting down to zero leaves the open index", func(t *testing.T) {
		c := newTestClient()
		repo := NewDynamoDBInvoiceRepository(c, testTable, zap.NewNop())

		inv := testInvoice(t, "INV-1", "H-101", "2026-07", "3000.00", due)
		seedInvoice(t, c, inv)

		applyCredit(t, repo, inv, "3000.00", "written off")

		got, err := repo.Get(ctx, "INV-1")
		require.NoError(t, err)
		assert.True(t, got.Outstanding.IsZero())
		assert.Equal(t, invoice.StatusCredited, got.Status)

		open, err := repo.List(ctx, invoice.Filter{OnlyOutstanding: true})
		require.NoError(t, err)
		assert.Empty(t, open)
	})

	t.Run("stale outstanding cancels the credit", func(t *testing.T) {
		c := newTestClient()
		repo := NewDynamoDBInvoiceRepository(c, testTable, zap.NewNop())

		inv := testInvoice(t, "INV-1", "H-101", "2026-07", "3000.00", due)
		seedInvoice(t, c, inv)

		// Planned against the full outstanding, but a credit lands first.
		stale := *inv
		applyCredit(t, repo, inv, "1000.00", "first credit")

		amt := mustAmount(t, "2000.00")
		updated := stale
		updated.Outstanding = stale.Outstanding.Sub(amt)
		updated.Status = invoice.DeriveStatus(updated.TotalAmount, updated.Outstanding, false, false)
		credit := &invoice.Credit{
			CreditID:  ulid.Make().String(),
			InvoiceID: stale.InvoiceID,
			Amount:    amt,
			Reason:    "second credit",
			CreatedAt: time.Now().UTC(),
		}
		err := repo.ApplyCredit(ctx, &updated, credit, invoiceEvent("invoice.apply_credit", &updated))
		require.True(t, errors.HasCode(err, errors.CodeAmountExceedsAvailable))

		// Balance and history still reflect only the first credit.
		got, err := repo.Get(ctx, "INV-1")
		require.NoError(t, err)
		assert.Equal(t, mustAmount(t, "2000.00"), got.Outstanding)
		credits, err := repo.ListCredits(ctx, "INV-1")
		require.NoError(t, err)
		assert.Len(t, credits, 1)
	})
}

func TestInvoiceRepositoryHasActiveAllocation(t *testing.T) {
	ctx := context.Background()
	received := time.Date(2026, 7, 15, 10, 0, 0, 0, time.UTC)
	due := time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC)

	c := newTestClient()
	repo := NewDynamoDBInvoiceRepository(c, testTable, zap.NewNop())
	ledgerRepo := NewDynamoDBLedgerRepository(c, testTable, zap.NewNop())

	entry := testEntry(t, "LE-1", "H-101", "3000.00", received)
	inv := testInvoice(t, "INV-1", "H-101", "2026-07", "3000.00", due)
	seedEntry(t, c, entry)
	seedInvoice(t, c, inv)

	has, err := repo.HasActiveAllocation(ctx, "INV-1")
	require.NoError(t, err)
	assert.False(t, has)

	alloc := applyPayment(t, ledgerRepo, entry, inv, "1000.00")

	has, err = repo.HasActiveAllocation(ctx, "INV-1")
	require.NoError(t, err)
	assert.True(t, has)

	newRemaining, newOutstanding, err := allocation.Reverse(alloc, entry.Remaining, inv.Outstanding)
	require.NoError(t, err)
	updEntry := *entry
	updEntry.Remaining = newRemaining
	updInv := *inv
	updInv.Outstanding = newOutstanding
	updInv.Status = invoice.DeriveStatus(updInv.TotalAmount, updInv.Outstanding, false, false)
	rev := &ledger.Reversal{Allocation: alloc, Entry: &updEntry, Invoice: &updInv}
	require.NoError(t, ledgerRepo.Reverse(ctx, rev, allocEvent("ledger.remove_allocation", alloc)))

	has, err = repo.HasActiveAllocation(ctx, "INV-1")
	require.NoError(t, err)
	assert.False(t, has)
}
