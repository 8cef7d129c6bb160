package units

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mobby57/memoLib-sub019/internal/audit"
	"github.com/mobby57/memoLib-sub019/pkg/pagination"
	"github.com/mobby57/memoLib-sub019/pkg/storage"
)

// Memory is an in-process System used by tests and the storage-less server
// profile. A write becomes visible only after its audit event was appended.
type Memory struct {
	mu         sync.RWMutex
	units      map[uuid.UUID]*Unit
	keys       map[string]uuid.UUID
	sink       audit.Sink
	storage    storage.System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewMemory creates an empty in-memory unit store.
func NewMemory(sink audit.Sink, storage storage.System, logger *slog.Logger, pagination pagination.Config) *Memory {
	return &Memory{
		units:      make(map[uuid.UUID]*Unit),
		keys:       make(map[string]uuid.UUID),
		sink:       sink,
		storage:    storage,
		logger:     logger.With("system", "units"),
		pagination: pagination,
	}
}

func (m *Memory) Handler() *Handler {
	return NewHandler(m, m.storage, m.logger, m.pagination)
}

func (m *Memory) Insert(ctx context.Context, u *Unit, ev *audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := unitKey(u.TenantID, u.ExternalID)
	if _, ok := m.keys[key]; ok {
		return ErrDuplicate
	}

	if err := m.sink.Append(ctx, ev); err != nil {
		return err
	}

	m.units[u.ID] = u.Clone()
	m.keys[key] = u.ID
	return nil
}

func (m *Memory) Transition(ctx context.Context, u *Unit, from Status, ev *audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.units[u.ID]
	if !ok || stored.TenantID != u.TenantID || stored.Status != from {
		return ErrStaleState
	}

	if err := m.sink.Append(ctx, ev); err != nil {
		return err
	}

	next := u.Clone()
	next.RawPayload = stored.RawPayload
	next.Content = stored.Content
	next.Checksum = stored.Checksum
	next.CreatedAt = stored.CreatedAt
	m.units[u.ID] = next
	return nil
}

func (m *Memory) Find(ctx context.Context, tenantID string, id uuid.UUID) (*Unit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.units[id]
	if !ok || u.TenantID != tenantID {
		return nil, ErrNotFound
	}
	if err := u.VerifyChecksum(); err != nil {
		return nil, err
	}
	return u.Clone(), nil
}

func (m *Memory) FindByKey(ctx context.Context, tenantID, externalID string) (*Unit, error) {
	m.mu.RLock()
	id, ok := m.keys[unitKey(tenantID, externalID)]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	return m.Find(ctx, tenantID, id)
}

func (m *Memory) List(
	ctx context.Context,
	tenantID string,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Unit], error) {
	items, err := m.collect(tenantID, func(u *Unit) bool {
		return filters.matches(u) && matchesSearch(u, page.Search)
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(items, func(a, b Unit) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})

	return m.page(items, page), nil
}

func (m *Memory) ReviewQueue(
	ctx context.Context,
	tenantID string,
	page pagination.PageRequest,
) (*pagination.PageResult[Unit], error) {
	items, err := m.collect(tenantID, func(u *Unit) bool {
		return u.Status.NeedsReview()
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(items, func(a, b Unit) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})

	return m.page(items, page), nil
}

// Len returns the number of stored units across all tenants.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.units)
}

// collect returns copies of the tenant's units accepted by keep. A unit
// whose checksum no longer matches fails the whole read.
func (m *Memory) collect(tenantID string, keep func(*Unit) bool) ([]Unit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []Unit
	for _, u := range m.units {
		if u.TenantID != tenantID || !keep(u) {
			continue
		}
		if err := u.VerifyChecksum(); err != nil {
			m.logger.Error("unit integrity check failed", "tenant_id", u.TenantID, "unit_id", u.ID)
			return nil, fmt.Errorf("unit %s: %w", u.ID, err)
		}
		items = append(items, *u.Clone())
	}
	return items, nil
}

func (m *Memory) page(items []Unit, page pagination.PageRequest) *pagination.PageResult[Unit] {
	page.Normalize(m.pagination)
	result := pagination.NewPageResult(pagination.Slice(items, page), len(items), page.Page, page.PageSize)
	return &result
}

func (f Filters) matches(u *Unit) bool {
	if f.Status != nil && string(u.Status) != *f.Status {
		return false
	}
	if f.Source != nil && string(u.Source) != *f.Source {
		return false
	}
	if f.Label != nil && (u.Classification == nil || u.Classification.Label != *f.Label) {
		return false
	}
	if f.CreatedAfter != nil && u.CreatedAt.Before(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && !u.CreatedAt.Before(*f.CreatedBefore) {
		return false
	}
	return true
}

func matchesSearch(u *Unit, search *string) bool {
	if search == nil || *search == "" {
		return true
	}
	s := strings.ToLower(*search)
	for _, v := range []string{u.Content.Subject, u.Content.Sender, u.ExternalID} {
		if strings.Contains(strings.ToLower(v), s) {
			return true
		}
	}
	return false
}

func unitKey(tenantID, externalID string) string {
	return tenantID + "\x00" + externalID
}
