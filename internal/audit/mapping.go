package audit

import (
	"github.com/mobby57/memoLib-sub019/pkg/query"
	"github.com/mobby57/memoLib-sub019/pkg/repository"
)

var projection = query.
	NewProjection("public", "audit_events", "a").
	Select("id", "ID").
	Select("unit_id", "UnitID").
	Select("tenant_id", "TenantID").
	Select("seq", "Seq").
	Select("from_status", "FromStatus").
	Select("to_status", "ToStatus").
	Select("actor", "Actor").
	Select("reason", "Reason").
	Select("occurred_at", "OccurredAt").
	Select("prev_checksum", "PrevChecksum").
	Select("checksum", "Checksum")

var bySeq = query.SortField{Field: "Seq"}

func scanEvent(s repository.Scanner) (Event, error) {
	var e Event
	err := s.Scan(
		&e.ID,
		&e.UnitID,
		&e.TenantID,
		&e.Seq,
		&e.FromStatus,
		&e.ToStatus,
		&e.Actor,
		&e.Reason,
		&e.OccurredAt,
		&e.PrevChecksum,
		&e.Checksum,
	)
	return e, err
}
