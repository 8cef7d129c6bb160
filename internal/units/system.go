package units

import (
	"context"

	"github.com/google/uuid"

	"github.com/mobby57/memoLib-sub019/internal/audit"
	"github.com/mobby57/memoLib-sub019/pkg/pagination"
)

// Store persists units. Every mutation carries the audit event describing it;
// the event is appended in the same atomic step, and if the append fails the
// mutation does not take effect.
type Store interface {
	// Insert creates u. Returns ErrDuplicate when (tenant, external id) already exists.
	Insert(ctx context.Context, u *Unit, ev *audit.Event) error
	// Transition persists u's new status and results provided the stored status
	// still equals from. Returns ErrStaleState otherwise.
	Transition(ctx context.Context, u *Unit, from Status, ev *audit.Event) error
	// Find returns a tenant's unit by id, verifying its checksum.
	Find(ctx context.Context, tenantID string, id uuid.UUID) (*Unit, error)
	// FindByKey returns a tenant's unit by external id.
	FindByKey(ctx context.Context, tenantID, externalID string) (*Unit, error)
}

// System defines the public contract for unit queries and persistence.
type System interface {
	Store
	Handler() *Handler

	List(
		ctx context.Context,
		tenantID string,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Unit], error)

	// ReviewQueue returns INCOMPLETE and AMBIGUOUS units, oldest first.
	ReviewQueue(
		ctx context.Context,
		tenantID string,
		page pagination.PageRequest,
	) (*pagination.PageResult[Unit], error)
}
