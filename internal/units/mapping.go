package units

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/mobby57/memoLib-sub019/pkg/query"
	"github.com/mobby57/memoLib-sub019/pkg/repository"
)

var projection = query.
	NewProjection("public", "information_units", "u").
	Select("id", "ID").
	Select("tenant_id", "TenantID").
	Select("external_id", "ExternalID").
	Select("source", "Source").
	Select("status", "Status").
	Select("raw_payload", "RawPayload").
	Select("content", "Content").
	Select("storage_key", "StorageKey").
	Select("classification", "Classification").
	Select("analysis", "Analysis").
	Select("resolution", "Resolution").
	Select("checksum", "Checksum").
	Select("created_at", "CreatedAt").
	Select("updated_at", "UpdatedAt").
	Select("closed_at", "ClosedAt").
	Expose("classification->>'label'", "Label").
	Expose("content->>'subject'", "Subject").
	Expose("content->>'sender'", "Sender")

var (
	byCreatedAt = query.SortField{Field: "CreatedAt"}
	byID        = query.SortField{Field: "ID"}
)

// Filters contains optional filtering criteria for unit listings.
// Nil fields are ignored.
type Filters struct {
	Status        *string
	Source        *string
	Label         *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereEquals("Source", f.Source).
		WhereEquals("Label", f.Label).
		WhereCompare("CreatedAt", ">=", f.CreatedAfter).
		WhereCompare("CreatedAt", "<", f.CreatedBefore)
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Unparseable timestamps are ignored.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}
	if s := values.Get("source"); s != "" {
		f.Source = &s
	}
	if l := values.Get("label"); l != "" {
		f.Label = &l
	}
	if t, err := time.Parse(time.RFC3339, values.Get("created_after")); err == nil {
		f.CreatedAfter = &t
	}
	if t, err := time.Parse(time.RFC3339, values.Get("created_before")); err == nil {
		f.CreatedBefore = &t
	}

	return f
}

func scanUnit(s repository.Scanner) (Unit, error) {
	var u Unit
	var content, classification, analysis, resolution []byte

	err := s.Scan(
		&u.ID,
		&u.TenantID,
		&u.ExternalID,
		&u.Source,
		&u.Status,
		&u.RawPayload,
		&content,
		&u.StorageKey,
		&classification,
		&analysis,
		&resolution,
		&u.Checksum,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.ClosedAt,
	)
	if err != nil {
		return u, err
	}

	if err := unmarshalColumn("content", content, &u.Content); err != nil {
		return u, err
	}
	if u.Classification, err = unmarshalNullable[Classification]("classification", classification); err != nil {
		return u, err
	}
	if u.Analysis, err = unmarshalNullable[Analysis]("analysis", analysis); err != nil {
		return u, err
	}
	if u.Resolution, err = unmarshalNullable[Resolution]("resolution", resolution); err != nil {
		return u, err
	}

	return u, nil
}

func unmarshalColumn(name string, data []byte, dst any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal %s: %w", name, err)
	}
	return nil
}

func unmarshalNullable[T any](name string, data []byte) (*T, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var v T
	if err := unmarshalColumn(name, data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// jsonArg encodes v for a jsonb parameter, mapping nil pointers to SQL NULL.
func jsonArg[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
