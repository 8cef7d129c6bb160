package query

import (
	"fmt"
	"reflect"
	"strings"
)

// placeholder marks a parameter slot in a condition clause. Slots are
// numbered in order when the query is rendered.
const placeholder = "$%d"

type condition struct {
	clause string
	args   []any
}

// SortField is one ORDER BY term. Field is resolved through the Projection.
type SortField struct {
	Field      string
	Descending bool
}

// Builder accumulates conditions and ordering for one projection and renders
// parameterized SELECT statements.
type Builder struct {
	projection  *Projection
	conditions  []condition
	orderBy     []SortField
	defaultSort []SortField
	forUpdate   bool
}

// NewBuilder creates a Builder. defaultSort applies when OrderByFields keeps no field.
func NewBuilder(projection *Projection, defaultSort ...SortField) *Builder {
	return &Builder{
		projection:  projection,
		defaultSort: defaultSort,
	}
}

// ParseSortFields parses "name,-createdAt" into sort fields; a leading "-" sorts descending.
func ParseSortFields(s string) []SortField {
	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, desc := strings.CutPrefix(part, "-")
		fields = append(fields, SortField{Field: name, Descending: desc})
	}
	return fields
}

// Values converts a typed slice into query arguments for WhereIn.
func Values[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

// Build returns the full SELECT with conditions and ordering.
func (b *Builder) Build() (string, []any) {
	return b.render("")
}

// BuildCount returns a COUNT(*) over the current conditions.
func (b *Builder) BuildCount() (string, []any) {
	where, args := b.where()
	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", b.projection.From(), where), args
}

// BuildPage returns the SELECT for a 1-based page.
func (b *Builder) BuildPage(page, pageSize int) (string, []any) {
	return b.render(fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize))
}

// BuildSingleWhere returns the SELECT limited to the first matching row.
func (b *Builder) BuildSingleWhere() (string, []any) {
	return b.render(" LIMIT 1")
}

// ForUpdate locks the selected rows until the surrounding transaction ends.
func (b *Builder) ForUpdate() *Builder {
	b.forUpdate = true
	return b
}

// OrderByFields replaces the sort order. Fields the projection does not map
// are dropped so caller-supplied sort strings never reach the SQL text.
func (b *Builder) OrderByFields(fields []SortField) *Builder {
	kept := make([]SortField, 0, len(fields))
	for _, f := range fields {
		if b.projection.Has(f.Field) {
			kept = append(kept, f)
		}
	}
	b.orderBy = kept
	return b
}

// WhereEquals adds field = value. Nil values are skipped.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	return b.WhereCompare(field, "=", value)
}

// WhereCompare adds a comparison using one of =, <>, <, <=, >, >=. Nil values
// are skipped; any other operator panics.
func (b *Builder) WhereCompare(field, op string, value any) *Builder {
	switch op {
	case "=", "<>", "<", "<=", ">", ">=":
	default:
		panic(fmt.Sprintf("query: unsupported operator %q", op))
	}
	if isNil(value) {
		return b
	}
	return b.add(fmt.Sprintf("%s %s %s", b.projection.Column(field), op, placeholder), value)
}

// WhereIn adds field IN (...). Empty value lists are skipped.
func (b *Builder) WhereIn(field string, values []any) *Builder {
	if len(values) == 0 {
		return b
	}
	slots := strings.TrimSuffix(strings.Repeat(placeholder+", ", len(values)), ", ")
	return b.add(fmt.Sprintf("%s IN (%s)", b.projection.Column(field), slots), values...)
}

// WhereSearch adds a case-insensitive match of search against any of fields.
// Nil or empty searches are skipped.
func (b *Builder) WhereSearch(search *string, fields ...string) *Builder {
	if search == nil || *search == "" || len(fields) == 0 {
		return b
	}

	pattern := "%" + *search + "%"
	clauses := make([]string, len(fields))
	args := make([]any, len(fields))
	for i, field := range fields {
		clauses[i] = b.projection.Column(field) + " ILIKE " + placeholder
		args[i] = pattern
	}
	return b.add("("+strings.Join(clauses, " OR ")+")", args...)
}

func (b *Builder) add(clause string, args ...any) *Builder {
	b.conditions = append(b.conditions, condition{clause: clause, args: args})
	return b
}

func (b *Builder) render(limit string) (string, []any) {
	where, args := b.where()

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s%s%s%s", b.projection.Columns(), b.projection.From(), where, b.order(), limit)
	if b.forUpdate {
		sb.WriteString(" FOR UPDATE")
	}
	return sb.String(), args
}

func (b *Builder) order() string {
	fields := b.orderBy
	if len(fields) == 0 {
		fields = b.defaultSort
	}
	if len(fields) == 0 {
		return ""
	}

	parts := make([]string, len(fields))
	for i, f := range fields {
		dir := "ASC"
		if f.Descending {
			dir = "DESC"
		}
		parts[i] = b.projection.Column(f.Field) + " " + dir
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

func (b *Builder) where() (string, []any) {
	if len(b.conditions) == 0 {
		return "", nil
	}

	clauses := make([]string, len(b.conditions))
	var args []any
	for i, cond := range b.conditions {
		clause := cond.clause
		for _, arg := range cond.args {
			args = append(args, arg)
			clause = strings.Replace(clause, placeholder, fmt.Sprintf("$%d", len(args)), 1)
		}
		clauses[i] = clause
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	}
	return false
}
