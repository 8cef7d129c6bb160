package units

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobby57/memoLib-sub019/internal/audit"
	"github.com/mobby57/memoLib-sub019/pkg/pagination"
)

func TestMemoryReadsRejectTamperedUnits(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewMemory(audit.NewMemory(logger), nil, logger, pagination.Config{DefaultPageSize: 20, MaxPageSize: 100})

	u := NewUnit("acme", "msg-1", SourceEmail, []byte("hello"), Content{Subject: "Hello"}, "")
	ev := audit.NewEvent(u.TenantID, u.ID, "", string(u.Status), audit.SystemActor, "ingested")
	require.NoError(t, m.Insert(ctx, u, ev))

	next := u.Clone()
	next.Status = StatusAmbiguous
	require.NoError(t, m.Transition(ctx, next, StatusReceived,
		audit.NewEvent(u.TenantID, u.ID, string(StatusReceived), string(StatusAmbiguous), audit.SystemActor, "escalated")))

	queue, err := m.ReviewQueue(ctx, "acme", pagination.PageRequest{})
	require.NoError(t, err)
	require.Len(t, queue.Data, 1)

	m.mu.Lock()
	m.units[u.ID].RawPayload = []byte("rewritten")
	m.mu.Unlock()

	_, err = m.ReviewQueue(ctx, "acme", pagination.PageRequest{})
	assert.ErrorIs(t, err, ErrIntegrity)

	_, err = m.List(ctx, "acme", pagination.PageRequest{}, Filters{})
	assert.ErrorIs(t, err, ErrIntegrity)
}
