package audit

import (
	"context"
)

// Repository defines the read side of the audit trail. Writes do not go
// through this interface: each aggregate repository appends the event inside
// its own transaction.
type Repository interface {
	// Trail returns all events for one entity in chronological order.
	Trail(ctx context.Context, entityType, entityID string) ([]Event, error)
}
