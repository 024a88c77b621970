package repository

import (
	"context"
	"testing"
	"time"

	ulid "github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/audit"
)

func TestAuditRepositoryTrail(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	c := newTestClient()
	repo := NewDynamoDBAuditRepository(c, testTable, zap.NewNop())
	writer := NewDynamoDBBankRepository(c, testTable, zap.NewNop())

	appendAt := func(t *testing.T, action string, ts time.Time) *audit.Event {
		t.Helper()
		evt := audit.NewEvent(testActor, action, audit.EntityPayIn, "PI-001", nil, map[string]string{"houseId": "H-101"})
		evt.Timestamp = ts
		require.NoError(t, writer.AppendEvent(ctx, evt))
		return evt
	}

	// Written out of chronological order on purpose.
	appendAt(t, "payin.accept", base.Add(2*time.Minute))
	appendAt(t, "payin.submit", base)
	appendAt(t, "payin.update", base.Add(time.Minute))

	other := audit.NewEvent(testActor, "payin.submit", audit.EntityPayIn, "PI-002", nil, nil)
	require.NoError(t, writer.AppendEvent(ctx, other))

	t.Run("returns the entity's events oldest first", func(t *testing.T) {
		trail, err := repo.Trail(ctx, audit.EntityPayIn, "PI-001")
		require.NoError(t, err)
		require.Len(t, trail, 3)
		assert.Equal(t, "payin.submit", trail[0].Action)
		assert.Equal(t, "payin.update", trail[1].Action)
		assert.Equal(t, "payin.accept", trail[2].Action)
	})

	t.Run("round trips actor and payload", func(t *testing.T) {
		trail, err := repo.Trail(ctx, audit.EntityPayIn, "PI-001")
		require.NoError(t, err)
		require.NotEmpty(t, trail)
		assert.Equal(t, testActor.ID, trail[0].Actor.ID)
		assert.Equal(t, testActor.Role, trail[0].Actor.Role)
		after, ok := trail[0].After.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "H-101", after["houseId"])
	})

	t.Run("an entity with no history has an empty trail", func(t *testing.T) {
		trail, err := repo.Trail(ctx, audit.EntityPayIn, "PI-404")
		require.NoError(t, err)
		assert.Empty(t, trail)
	})
}

func TestAuditRepositoryTrailSameInstant(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	c := newTestClient()
	repo := NewDynamoDBAuditRepository(c, testTable, zap.NewNop())
	writer := NewDynamoDBBankRepository(c, testTable, zap.NewNop())

	// Two events in the same millisecond fall back to event id order, and
	// ids are monotonic within a process.
	first := audit.NewEvent(testActor, "invoice.create", audit.EntityInvoice, "INV-1", nil, nil)
	second := audit.NewEvent(testActor, "invoice.cancel", audit.EntityInvoice, "INV-1", nil, nil)
	first.Timestamp = ts
	second.Timestamp = ts
	require.True(t, ulid.MustParse(first.EventID).Compare(ulid.MustParse(second.EventID)) < 0)

	require.NoError(t, writer.AppendEvent(ctx, second))
	require.NoError(t, writer.AppendEvent(ctx, first))

	trail, err := repo.Trail(ctx, audit.EntityInvoice, "INV-1")
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, "invoice.create", trail[0].Action)
	assert.Equal(t, "invoice.cancel", trail[1].Action)
}
