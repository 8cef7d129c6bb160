package units

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mobby57/memoLib-sub019/internal/audit"
	"github.com/mobby57/memoLib-sub019/pkg/pagination"
	"github.com/mobby57/memoLib-sub019/pkg/query"
	"github.com/mobby57/memoLib-sub019/pkg/repository"
	"github.com/mobby57/memoLib-sub019/pkg/storage"
)

type repo struct {
	db         *sql.DB
	sink       audit.Sink
	storage    storage.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a Postgres-backed unit system. Audit events are appended
// through sink inside the same transaction as the unit write.
func New(
	db *sql.DB,
	sink audit.Sink,
	storage storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		sink:       sink,
		storage:    storage,
		logger:     logger.With("system", "units"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.storage, r.logger, r.pagination)
}

func (r *repo) Insert(ctx context.Context, u *Unit, ev *audit.Event) error {
	content, err := jsonArg(&u.Content)
	if err != nil {
		return fmt.Errorf("marshal content: %w", err)
	}

	q := `
		INSERT INTO information_units(
			id, tenant_id, external_id, source, status, raw_payload,
			content, storage_key, checksum, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = repository.WithTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) (struct{}, error) {
		_, err := tx.ExecContext(ctx, q,
			u.ID, u.TenantID, u.ExternalID, u.Source, u.Status, u.RawPayload,
			content, u.StorageKey, u.Checksum, u.CreatedAt, u.UpdatedAt,
		)
		if err != nil {
			return struct{}{}, repository.MapError(err, ErrNotFound, ErrDuplicate)
		}
		return struct{}{}, r.sink.Append(ctx, ev)
	})
	return err
}

func (r *repo) Transition(ctx context.Context, u *Unit, from Status, ev *audit.Event) error {
	classification, err := jsonArg(u.Classification)
	if err != nil {
		return fmt.Errorf("marshal classification: %w", err)
	}
	analysis, err := jsonArg(u.Analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	resolution, err := jsonArg(u.Resolution)
	if err != nil {
		return fmt.Errorf("marshal resolution: %w", err)
	}

	q := `
		UPDATE information_units
		SET status = $1, classification = $2, analysis = $3, resolution = $4,
			updated_at = $5, closed_at = $6
		WHERE id = $7 AND tenant_id = $8 AND status = $9`

	_, err = repository.WithTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) (struct{}, error) {
		err := repository.ExecExpectOne(ctx, tx, q,
			u.Status, classification, analysis, resolution,
			u.UpdatedAt, u.ClosedAt,
			u.ID, u.TenantID, from,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return struct{}{}, ErrStaleState
		}
		if err != nil {
			return struct{}{}, fmt.Errorf("update unit %s: %w", u.ID, err)
		}
		return struct{}{}, r.sink.Append(ctx, ev)
	})
	return err
}

func (r *repo) Find(ctx context.Context, tenantID string, id uuid.UUID) (*Unit, error) {
	q, args := query.NewBuilder(projection).
		WhereEquals("TenantID", tenantID).
		WhereEquals("ID", id).
		BuildSingleWhere()

	return r.findOne(ctx, q, args)
}

func (r *repo) FindByKey(ctx context.Context, tenantID, externalID string) (*Unit, error) {
	q, args := query.NewBuilder(projection).
		WhereEquals("TenantID", tenantID).
		WhereEquals("ExternalID", externalID).
		BuildSingleWhere()

	return r.findOne(ctx, q, args)
}

func (r *repo) findOne(ctx context.Context, q string, args []any) (*Unit, error) {
	u, err := repository.QueryOne(ctx, repository.Using(ctx, r.db), q, args, scanUnit)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	if err := u.VerifyChecksum(); err != nil {
		r.logger.Error("unit integrity check failed", "tenant_id", u.TenantID, "unit_id", u.ID)
		return nil, fmt.Errorf("unit %s: %w", u.ID, err)
	}
	return &u, nil
}

func (r *repo) List(
	ctx context.Context,
	tenantID string,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Unit], error) {
	qb := query.
		NewBuilder(projection, query.SortField{Field: "CreatedAt", Descending: true}, byID).
		WhereEquals("TenantID", tenantID).
		WhereSearch(page.Search, "Subject", "Sender", "ExternalID")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	return r.page(ctx, qb, page)
}

func (r *repo) ReviewQueue(
	ctx context.Context,
	tenantID string,
	page pagination.PageRequest,
) (*pagination.PageResult[Unit], error) {
	qb := query.
		NewBuilder(projection, byCreatedAt, byID).
		WhereEquals("TenantID", tenantID).
		WhereIn("Status", query.Values(ReviewStatuses))

	return r.page(ctx, qb, page)
}

func (r *repo) page(ctx context.Context, qb *query.Builder, page pagination.PageRequest) (*pagination.PageResult[Unit], error) {
	page.Normalize(r.pagination)

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count units: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanUnit)
	if err != nil {
		return nil, fmt.Errorf("query units: %w", err)
	}
	for i := range items {
		if err := items[i].VerifyChecksum(); err != nil {
			r.logger.Error("unit integrity check failed", "tenant_id", items[i].TenantID, "unit_id", items[i].ID)
			return nil, fmt.Errorf("unit %s: %w", items[i].ID, err)
		}
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}
