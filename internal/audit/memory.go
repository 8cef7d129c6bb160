package audit

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process System. Events are kept per unit in append order.
type Memory struct {
	mu     sync.RWMutex
	events map[uuid.UUID][]Event
	logger *slog.Logger
}

// NewMemory creates an empty in-memory audit log.
func NewMemory(logger *slog.Logger) *Memory {
	return &Memory{
		events: make(map[uuid.UUID][]Event),
		logger: logger.With("system", "audit"),
	}
}

func (m *Memory) Handler() *Handler {
	return NewHandler(m, m.logger)
}

func (m *Memory) Append(ctx context.Context, ev *Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	chain := m.events[ev.UnitID]
	var prev *Event
	if n := len(chain); n > 0 {
		prev = &chain[n-1]
	}

	ev.Seal(prev)
	m.events[ev.UnitID] = append(chain, *ev)
	return nil
}

func (m *Memory) Events(ctx context.Context, tenantID string, unitID uuid.UUID) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chain := m.events[unitID]
	if len(chain) == 0 || chain[0].TenantID != tenantID {
		return []Event{}, nil
	}
	return slices.Clone(chain), nil
}

func (m *Memory) Trail(ctx context.Context, tenantID string, unitID uuid.UUID) (*Trail, error) {
	events, err := m.Events(ctx, tenantID, unitID)
	if err != nil {
		return nil, err
	}
	return trailOf(events)
}

// Count returns the total number of stored events.
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, chain := range m.events {
		n += len(chain)
	}
	return n
}
