package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mobby57/memoLib-sub019/pkg/query"
	"github.com/mobby57/memoLib-sub019/pkg/repository"
)

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a Postgres-backed audit system.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "audit"),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *repo) Append(ctx context.Context, ev *Event) error {
	conn := repository.Using(ctx, r.db)

	lastQ, lastArgs := query.NewBuilder(projection).
		WhereEquals("UnitID", ev.UnitID).
		OrderByFields([]query.SortField{{Field: "Seq", Descending: true}}).
		ForUpdate().
		BuildSingleWhere()

	var prev *Event
	last, err := repository.QueryOne(ctx, conn, lastQ, lastArgs, scanEvent)
	switch {
	case err == nil:
		prev = &last
	case errors.Is(err, sql.ErrNoRows):
	default:
		return fmt.Errorf("%w: load chain head: %w", ErrWriteFailed, err)
	}

	ev.Seal(prev)

	insertQ := `
		INSERT INTO audit_events(
			id, unit_id, tenant_id, seq, from_status, to_status,
			actor, reason, occurred_at, prev_checksum, checksum
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = conn.ExecContext(ctx, insertQ,
		ev.ID, ev.UnitID, ev.TenantID, ev.Seq, ev.FromStatus, ev.ToStatus,
		ev.Actor, ev.Reason, ev.OccurredAt, ev.PrevChecksum, ev.Checksum,
	)
	if err != nil {
		return fmt.Errorf("%w: insert event: %w", ErrWriteFailed, err)
	}

	return nil
}

func (r *repo) Events(ctx context.Context, tenantID string, unitID uuid.UUID) ([]Event, error) {
	q, args := query.NewBuilder(projection, bySeq).
		WhereEquals("TenantID", tenantID).
		WhereEquals("UnitID", unitID).
		Build()

	events, err := repository.QueryMany(ctx, repository.Using(ctx, r.db), q, args, scanEvent)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	return events, nil
}

func (r *repo) Trail(ctx context.Context, tenantID string, unitID uuid.UUID) (*Trail, error) {
	events, err := r.Events(ctx, tenantID, unitID)
	if err != nil {
		return nil, err
	}
	return trailOf(events)
}
