package bank

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/common/money"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/audit"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/errors"
)

// fakeRepo keeps statement lines in memory with write-once semantics on the
// line id, like the DynamoDB repository's conditional puts.
type fakeRepo struct {
	txns   map[string]Transaction
	events []audit.Event
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{txns: make(map[string]Transaction)}
}

func (f *fakeRepo) Import(_ context.Context, lines []Transaction) (int, int, error) {
	imported, skipped := 0, 0
	for _, txn := range lines {
		if _, ok := f.txns[txn.TxnID]; ok {
			skipped++
			continue
		}
		f.txns[txn.TxnID] = txn
		imported++
	}
	return imported, skipped, nil
}

func (f *fakeRepo) AppendEvent(_ context.Context, evt *audit.Event) error {
	f.events = append(f.events, *evt)
	return nil
}

func (f *fakeRepo) Get(_ context.Context, txnID string) (*Transaction, error) {
	txn, ok := f.txns[txnID]
	if !ok {
		return nil, errors.NewNotFoundError("bank transaction not found")
	}
	return &txn, nil
}

func (f *fakeRepo) ListDebits(_ context.Context, unallocatedOnly bool) ([]Transaction, error) {
	var out []Transaction
	for _, txn := range f.txns {
		if !txn.IsDebit() {
			continue
		}
		if unallocatedOnly && !txn.Unallocated.IsPositive() {
			continue
		}
		out = append(out, txn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EffectiveAt.Before(out[j].EffectiveAt) })
	return out, nil
}

func (f *fakeRepo) ListUnidentifiedCredits(_ context.Context) ([]Transaction, error) {
	var out []Transaction
	for _, txn := range f.txns {
		if txn.Unidentified() {
			out = append(out, txn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EffectiveAt.Before(out[j].EffectiveAt) })
	return out, nil
}

var admin = audit.Actor{ID: "admin-1", Role: audit.RoleAdmin, Name: "Khun A"}

func statement() *ImportStatementRequest {
	return &ImportStatementRequest{Lines: []StatementLine{
		{LineID: "SCB-001", Description: "TRANSFER IN", Credit: "1500.00", EffectiveAt: "2026-08-20T14:30:00+07:00"},
		{LineID: "SCB-002", Description: "POOL PUMP", Debit: "4500.00", EffectiveAt: "2026-08-21T09:00:00+07:00"},
	}}
}

func TestImportStatement(t *testing.T) {
	ctx := context.Background()

	t.Run("imports lines and audits the batch", func(t *testing.T) {
		repo := newFakeRepo()
		svc := NewService(repo)

		result, err := svc.ImportStatement(ctx, admin, statement())
		require.NoError(t, err)
		assert.Equal(t, 2, result.Imported)
		assert.Equal(t, 0, result.Skipped)
		assert.NotEmpty(t, result.BatchID)

		credit := repo.txns["SCB-001"]
		assert.True(t, credit.IsCredit())
		assert.True(t, credit.Unallocated.IsZero())
		assert.Equal(t, time.Date(2026, 8, 20, 7, 30, 0, 0, time.UTC), credit.EffectiveAt)

		debit := repo.txns["SCB-002"]
		assert.True(t, debit.IsDebit())
		assert.Equal(t, debit.Debit, debit.Unallocated)

		require.Len(t, repo.events, 1)
		assert.Equal(t, "bank.import_statement", repo.events[0].Action)
		assert.Equal(t, audit.EntityBankTxn, repo.events[0].EntityType)
		assert.Equal(t, result.BatchID, repo.events[0].EntityID)
	})

	t.Run("re-importing the same lines is a no-op", func(t *testing.T) {
		repo := newFakeRepo()
		svc := NewService(repo)

		_, err := svc.ImportStatement(ctx, admin, statement())
		require.NoError(t, err)

		again, err := svc.ImportStatement(ctx, admin, statement())
		require.NoError(t, err)
		assert.Equal(t, 0, again.Imported)
		assert.Equal(t, 2, again.Skipped)
		assert.Len(t, repo.txns, 2)
	})

	t.Run("overlapping export imports only the new lines", func(t *testing.T) {
		repo := newFakeRepo()
		svc := NewService(repo)

		_, err := svc.ImportStatement(ctx, admin, statement())
		require.NoError(t, err)

		req := statement()
		req.Lines = append(req.Lines, StatementLine{
			LineID: "SCB-003", Description: "GUARD PAY", Debit: "800.00", EffectiveAt: "2026-08-22T10:00:00+07:00",
		})
		result, err := svc.ImportStatement(ctx, admin, req)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Imported)
		assert.Equal(t, 2, result.Skipped)
	})

	t.Run("rejects a line with both sides set", func(t *testing.T) {
		svc := NewService(newFakeRepo())

		_, err := svc.ImportStatement(ctx, admin, &ImportStatementRequest{Lines: []StatementLine{
			{LineID: "X-1", Debit: "100.00", Credit: "100.00", EffectiveAt: "2026-08-20T14:30:00+07:00"},
		}})
		assert.True(t, errors.HasCode(err, errors.CodeValidation))
	})

	t.Run("rejects a line with neither side set", func(t *testing.T) {
		svc := NewService(newFakeRepo())

		_, err := svc.ImportStatement(ctx, admin, &ImportStatementRequest{Lines: []StatementLine{
			{LineID: "X-1", EffectiveAt: "2026-08-20T14:30:00+07:00"},
		}})
		assert.True(t, errors.HasCode(err, errors.CodeValidation))
	})

	t.Run("rejects malformed timestamps", func(t *testing.T) {
		svc := NewService(newFakeRepo())

		_, err := svc.ImportStatement(ctx, admin, &ImportStatementRequest{Lines: []StatementLine{
			{LineID: "X-1", Credit: "100.00", EffectiveAt: "20/08/2026 14:30"},
		}})
		assert.True(t, errors.HasCode(err, errors.CodeValidation))
	})

	t.Run("rejects an empty batch", func(t *testing.T) {
		svc := NewService(newFakeRepo())

		_, err := svc.ImportStatement(ctx, admin, &ImportStatementRequest{})
		assert.True(t, errors.HasCode(err, errors.CodeValidation))
	})
}

func TestReconciliationQueries(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewService(repo)

	_, err := svc.ImportStatement(ctx, admin, statement())
	require.NoError(t, err)

	t.Run("unidentified credits", func(t *testing.T) {
		out, err := svc.ListUnidentifiedCredits(ctx)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "SCB-001", out[0].TxnID)
	})

	t.Run("claimed credits disappear from the list", func(t *testing.T) {
		txn := repo.txns["SCB-001"]
		txn.PayInID = "payin-1"
		repo.txns["SCB-001"] = txn

		out, err := svc.ListUnidentifiedCredits(ctx)
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("unallocated debits", func(t *testing.T) {
		out, err := svc.ListDebits(ctx, true)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "SCB-002", out[0].TxnID)

		txn := repo.txns["SCB-002"]
		txn.Unallocated = money.Zero
		repo.txns["SCB-002"] = txn

		out, err = svc.ListDebits(ctx, true)
		require.NoError(t, err)
		assert.Empty(t, out)

		all, err := svc.ListDebits(ctx, false)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}
