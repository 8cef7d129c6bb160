package audit

import (
	"context"

	"github.com/google/uuid"
)

// Sink is the write side used by the unit store. Append seals ev against the
// unit's latest event and persists it durably before returning. When ctx
// carries a transaction the write joins it.
type Sink interface {
	Append(ctx context.Context, ev *Event) error
}

// System defines the public contract for audit operations.
type System interface {
	Sink
	Handler() *Handler

	// Events returns a tenant-scoped unit's events ordered by seq.
	Events(ctx context.Context, tenantID string, unitID uuid.UUID) ([]Event, error)
	// Trail returns the events together with their chain verification.
	// Returns ErrNotFound when the unit has no events for the tenant.
	Trail(ctx context.Context, tenantID string, unitID uuid.UUID) (*Trail, error)
}

func trailOf(events []Event) (*Trail, error) {
	if len(events) == 0 {
		return nil, ErrNotFound
	}
	return &Trail{Events: events, Verification: Verify(events)}, nil
}
