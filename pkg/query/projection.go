// Package query maps logical field names to table columns and renders
// filtered, ordered selects through squirrel.
package query

// ProjectionMap binds a table to the logical field names callers filter
// and sort by. Only projected fields are ever rendered from caller input.
type ProjectionMap struct {
	table   string
	alias   string
	byField map[string]string
	columns []string
}

// NewProjectionMap creates a ProjectionMap over schema.table, selected
// under alias. An empty schema leaves the table unqualified.
func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	if schema != "" {
		table = schema + "." + table
	}
	return &ProjectionMap{
		table:   table,
		alias:   alias,
		byField: make(map[string]string),
	}
}

// Project selects column and exposes it under field.
func (p *ProjectionMap) Project(column, field string) *ProjectionMap {
	qualified := p.alias + "." + column
	p.byField[field] = qualified
	p.columns = append(p.columns, qualified)
	return p
}

// Table returns the FROM reference, "schema.table alias".
func (p *ProjectionMap) Table() string {
	return p.table + " " + p.alias
}

// Lookup returns the qualified column for field and whether it is projected.
func (p *ProjectionMap) Lookup(field string) (string, bool) {
	col, ok := p.byField[field]
	return col, ok
}

// Column returns the qualified column for field, or field unchanged when it
// is not projected. Use Lookup for names that come from a request.
func (p *ProjectionMap) Column(field string) string {
	if col, ok := p.byField[field]; ok {
		return col
	}
	return field
}

// ColumnList returns the selected columns in projection order.
func (p *ProjectionMap) ColumnList() []string {
	return p.columns
}
