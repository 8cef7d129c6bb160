// Package audit implements the append-only transition log. Every event is
// sealed into a per-unit hash chain so that any rewrite or deletion is
// detectable by Verify.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SystemActor is the actor recorded for transitions made by the pipeline itself.
const SystemActor = "system"

// Event records one status transition of an information unit.
// FromStatus is empty for the creation event.
type Event struct {
	ID           uuid.UUID `json:"id"`
	UnitID       uuid.UUID `json:"unit_id"`
	TenantID     string    `json:"tenant_id"`
	Seq          int       `json:"seq"`
	FromStatus   string    `json:"from_status"`
	ToStatus     string    `json:"to_status"`
	Actor        string    `json:"actor"`
	Reason       string    `json:"reason"`
	OccurredAt   time.Time `json:"occurred_at"`
	PrevChecksum string    `json:"prev_checksum"`
	Checksum     string    `json:"checksum"`
}

// NewEvent builds an unsealed event. Seq and checksums are assigned by Seal.
func NewEvent(tenantID string, unitID uuid.UUID, from, to, actor, reason string) *Event {
	return &Event{
		ID:         uuid.New(),
		UnitID:     unitID,
		TenantID:   tenantID,
		FromStatus: from,
		ToStatus:   to,
		Actor:      actor,
		Reason:     reason,
		OccurredAt: time.Now(),
	}
}

// Seal links e to prev (nil for the first event of a unit) and computes its checksum.
// OccurredAt is normalized to UTC microseconds so the checksum survives a
// round trip through timestamptz.
func (e *Event) Seal(prev *Event) {
	e.Seq = 1
	e.PrevChecksum = ""
	if prev != nil {
		e.Seq = prev.Seq + 1
		e.PrevChecksum = prev.Checksum
	}
	e.OccurredAt = e.OccurredAt.UTC().Truncate(time.Microsecond)
	e.Checksum = ComputeChecksum(e)
}

// sealed is the canonical form hashed by ComputeChecksum. Field order is fixed.
type sealed struct {
	UnitID       string `json:"u"`
	TenantID     string `json:"t"`
	Seq          int    `json:"s"`
	FromStatus   string `json:"f"`
	ToStatus     string `json:"to"`
	Actor        string `json:"a"`
	Reason       string `json:"r"`
	OccurredAt   string `json:"o"`
	PrevChecksum string `json:"p"`
}

// ComputeChecksum returns the hex SHA-256 of the event's own fields, including PrevChecksum.
func ComputeChecksum(e *Event) string {
	data, _ := json.Marshal(sealed{
		UnitID:       e.UnitID.String(),
		TenantID:     e.TenantID,
		Seq:          e.Seq,
		FromStatus:   e.FromStatus,
		ToStatus:     e.ToStatus,
		Actor:        e.Actor,
		Reason:       e.Reason,
		OccurredAt:   e.OccurredAt.UTC().Format(time.RFC3339Nano),
		PrevChecksum: e.PrevChecksum,
	})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Verification is the result of checking a unit's trail.
// BrokenAt is the seq of the first event that fails verification.
type Verification struct {
	Verified bool `json:"verified"`
	BrokenAt *int `json:"broken_at,omitempty"`
}

// Verify walks events in order and checks sequence continuity, chain links, and checksums.
func Verify(events []Event) Verification {
	prev := ""
	for i := range events {
		e := &events[i]
		if e.Seq != i+1 || e.PrevChecksum != prev || e.Checksum != ComputeChecksum(e) {
			seq := i + 1
			return Verification{Verified: false, BrokenAt: &seq}
		}
		prev = e.Checksum
	}
	return Verification{Verified: true}
}

// VerifyHead checks that a verified trail ends at current, the unit's
// status as stored. A chain with its newest events removed still links, so a
// mismatch here is the only sign of it; BrokenAt is then the first missing seq.
func VerifyHead(events []Event, v Verification, current string) Verification {
	if !v.Verified || len(events) == 0 {
		return v
	}
	if events[len(events)-1].ToStatus != current {
		seq := len(events) + 1
		return Verification{Verified: false, BrokenAt: &seq}
	}
	return v
}

// Trail is a unit's ordered events with their verification result.
type Trail struct {
	Events []Event `json:"events"`
	Verification
}
