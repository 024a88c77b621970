package allocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/common/money"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/errors"
)

type fakeSource struct {
	id        string
	remaining money.Amount
}

func (f fakeSource) AllocationSourceID() string { return f.id }
func (f fakeSource) RemainingAmount() money.Amount { return f.remaining }

type fakeTarget struct {
	id          string
	outstanding money.Amount
}

func (f fakeTarget) AllocationTargetID() string { return f.id }
func (f fakeTarget) OutstandingAmount() money.Amount { return f.outstanding }

func TestPlan(t *testing.T) {
	src := fakeSource{id: "LED1", remaining: money.MustParse("3000.00")}
	tgt := fakeTarget{id: "INV1", outstanding: money.MustParse("1200.00")}

	t.Run("creates a record within both balances", func(t *testing.T) {
		a, err := Plan(KindPayment, src, tgt, money.MustParse("1200.00"), "february dues")
		require.NoError(t, err)
		assert.Equal(t, "LED1", a.SourceID)
		assert.Equal(t, "INV1", a.TargetID)
		assert.Equal(t, KindPayment, a.Kind)
		assert.Equal(t, money.MustParse("1200.00"), a.Amount)
		assert.Equal(t, "february dues", a.Note)
		assert.NotEmpty(t, a.AllocationID)
		assert.True(t, a.Active())
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		_, err := Plan(KindPayment, src, tgt, money.Zero, "")
		assert.True(t, errors.HasCode(err, errors.CodeValidation))

		_, err = Plan(KindPayment, src, tgt, money.FromSatang(-100), "")
		assert.True(t, errors.HasCode(err, errors.CodeValidation))
	})

	t.Run("rejects amount above source remaining", func(t *testing.T) {
		small := fakeSource{id: "LED2", remaining: money.MustParse("100.00")}
		_, err := Plan(KindPayment, small, tgt, money.MustParse("100.01"), "")
		require.True(t, errors.HasCode(err, errors.CodeAmountExceedsAvailable))

		var appErr errors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, 400, appErr.StatusCode)
		assert.Equal(t, "100.00", appErr.Details["remaining"])
	})

	t.Run("rejects amount above target outstanding", func(t *testing.T) {
		_, err := Plan(KindPayment, src, tgt, money.MustParse("1200.01"), "")
		require.True(t, errors.HasCode(err, errors.CodeAmountExceedsAvailable))

		var appErr errors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "1200.00", appErr.Details["outstanding"])
	})

	t.Run("boundary amounts are allowed", func(t *testing.T) {
		_, err := Plan(KindExpense, src, tgt, money.MustParse("1200.00"), "")
		assert.NoError(t, err)
	})
}

func TestReverse(t *testing.T) {
	t.Run("restores both balances exactly", func(t *testing.T) {
		a := &Allocation{AllocationID: "A1", Amount: money.MustParse("450.00")}

		newRemaining, newOutstanding, err := Reverse(a, money.MustParse("50.00"), money.Zero)
		require.NoError(t, err)
		assert.Equal(t, money.MustParse("500.00"), newRemaining)
		assert.Equal(t, money.MustParse("450.00"), newOutstanding)
		assert.False(t, a.Active())
		assert.NotNil(t, a.ReversedAt)
	})

	t.Run("cannot reverse twice", func(t *testing.T) {
		a := &Allocation{AllocationID: "A2", Amount: money.MustParse("10.00")}
		_, _, err := Reverse(a, money.Zero, money.Zero)
		require.NoError(t, err)

		_, _, err = Reverse(a, money.Zero, money.Zero)
		assert.True(t, errors.HasCode(err, errors.CodeNotFound))
	})
}
