package audit_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobby57/memoLib-sub019/internal/audit"
)

func chain(t *testing.T, steps ...[2]string) []audit.Event {
	t.Helper()
	unitID := uuid.New()

	var events []audit.Event
	var prev *audit.Event
	for _, s := range steps {
		ev := audit.NewEvent("acme", unitID, s[0], s[1], audit.SystemActor, "")
		ev.Seal(prev)
		events = append(events, *ev)
		prev = &events[len(events)-1]
	}
	return events
}

func TestSealLinksChain(t *testing.T) {
	events := chain(t, [2]string{"", "RECEIVED"}, [2]string{"RECEIVED", "CLASSIFIED"})

	assert.Equal(t, 1, events[0].Seq)
	assert.Empty(t, events[0].PrevChecksum)
	assert.Equal(t, 2, events[1].Seq)
	assert.Equal(t, events[0].Checksum, events[1].PrevChecksum)
	assert.Len(t, events[0].Checksum, 64)
	assert.Equal(t, time.UTC, events[0].OccurredAt.Location())
}

func TestChecksumDeterministic(t *testing.T) {
	ev := audit.Event{
		UnitID:     uuid.MustParse("7d0f2a43-5c1e-4e8a-9f00-2b1b6c9d8e11"),
		TenantID:   "acme",
		Seq:        1,
		ToStatus:   "RECEIVED",
		Actor:      audit.SystemActor,
		OccurredAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}

	first := audit.ComputeChecksum(&ev)
	assert.Equal(t, first, audit.ComputeChecksum(&ev))

	local := ev
	local.OccurredAt = ev.OccurredAt.In(time.FixedZone("CET", 3600))
	assert.Equal(t, first, audit.ComputeChecksum(&local), "checksum must not depend on time zone")

	ev.Reason = "changed"
	assert.NotEqual(t, first, audit.ComputeChecksum(&ev))
}

func TestVerify(t *testing.T) {
	steps := [][2]string{
		{"", "RECEIVED"},
		{"RECEIVED", "CLASSIFIED"},
		{"CLASSIFIED", "ANALYZED"},
		{"ANALYZED", "RESOLVED"},
		{"RESOLVED", "CLOSED"},
	}

	t.Run("untampered", func(t *testing.T) {
		v := audit.Verify(chain(t, steps...))
		assert.True(t, v.Verified)
		assert.Nil(t, v.BrokenAt)
	})

	tests := []struct {
		name   string
		tamper func([]audit.Event) []audit.Event
		broken int
	}{
		{
			name: "field rewritten",
			tamper: func(e []audit.Event) []audit.Event {
				e[2].Actor = "mallory"
				return e
			},
			broken: 3,
		},
		{
			name: "event deleted",
			tamper: func(e []audit.Event) []audit.Event {
				return append(e[:1], e[2:]...)
			},
			broken: 2,
		},
		{
			name: "checksum recomputed without relinking",
			tamper: func(e []audit.Event) []audit.Event {
				e[1].Reason = "edited"
				e[1].Checksum = audit.ComputeChecksum(&e[1])
				return e
			},
			broken: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := audit.Verify(tt.tamper(chain(t, steps...)))
			assert.False(t, v.Verified)
			require.NotNil(t, v.BrokenAt)
			assert.Equal(t, tt.broken, *v.BrokenAt)
		})
	}
}

func TestVerifyHead(t *testing.T) {
	full := chain(t,
		[2]string{"", "RECEIVED"},
		[2]string{"RECEIVED", "CLASSIFIED"},
		[2]string{"CLASSIFIED", "ANALYZED"},
	)
	truncated := full[:2]

	t.Run("matches current status", func(t *testing.T) {
		v := audit.VerifyHead(full, audit.Verify(full), "ANALYZED")
		assert.True(t, v.Verified)
	})

	t.Run("trailing event removed", func(t *testing.T) {
		v := audit.Verify(truncated)
		require.True(t, v.Verified, "a truncated chain still links")

		v = audit.VerifyHead(truncated, v, "ANALYZED")
		assert.False(t, v.Verified)
		require.NotNil(t, v.BrokenAt)
		assert.Equal(t, 3, *v.BrokenAt)
	})

	t.Run("earlier break kept", func(t *testing.T) {
		broken := chain(t, [2]string{"", "RECEIVED"}, [2]string{"RECEIVED", "CLASSIFIED"})
		broken[0].Actor = "mallory"

		v := audit.VerifyHead(broken, audit.Verify(broken), "CLASSIFIED")
		require.NotNil(t, v.BrokenAt)
		assert.Equal(t, 1, *v.BrokenAt)
	})
}
