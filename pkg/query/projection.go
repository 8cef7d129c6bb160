// Package query builds parameterized Postgres SELECT statements over a
// single aliased table whose columns are addressed by Go field names.
package query

import "strings"

// Projection names one table and translates field names into
// alias-qualified column expressions.
type Projection struct {
	table    string
	alias    string
	selected []string
	fields   map[string]string
}

// NewProjection starts a projection over schema.table aliased as alias.
func NewProjection(schema, table, alias string) *Projection {
	return &Projection{
		table:  schema + "." + table,
		alias:  alias,
		fields: map[string]string{},
	}
}

// Select maps field to column and adds the column to the SELECT list.
// Scan functions read columns in Select order.
func (p *Projection) Select(column, field string) *Projection {
	col := p.qualify(column)
	p.fields[field] = col
	p.selected = append(p.selected, col)
	return p
}

// Expose maps field to an expression over the table, such as a JSONB path,
// so it can be filtered and sorted on without being selected.
func (p *Projection) Expose(expr, field string) *Projection {
	p.fields[field] = p.qualify(expr)
	return p
}

func (p *Projection) qualify(expr string) string { return p.alias + "." + expr }

// Alias returns the table alias.
func (p *Projection) Alias() string { return p.alias }

// Table returns schema.table, the target for INSERT and UPDATE.
func (p *Projection) Table() string { return p.table }

// From returns "schema.table alias".
func (p *Projection) From() string { return p.table + " " + p.alias }

// Column resolves field. Unknown fields are returned as given.
func (p *Projection) Column(field string) string {
	if col, ok := p.fields[field]; ok {
		return col
	}
	return field
}

// Has reports whether field is mapped.
func (p *Projection) Has(field string) bool {
	_, ok := p.fields[field]
	return ok
}

// Columns returns the SELECT list.
func (p *Projection) Columns() string {
	return strings.Join(p.selected, ", ")
}
