package query

import (
	"reflect"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// SortField represents a single column in an ORDER BY clause.
// Field is the logical field name (mapped via ProjectionMap).
// Descending controls sort direction (false = ASC, true = DESC).
type SortField struct {
	Field      string
	Descending bool
}

// Builder accumulates filters and ordering over a ProjectionMap and renders
// them as Postgres statements with numbered placeholders.
type Builder struct {
	projection        *ProjectionMap
	conditions        []sq.Sqlizer
	orderByFields     []SortField
	defaultSortFields []SortField
}

// NewBuilder creates a Builder for the given projection with optional default sort fields.
func NewBuilder(projection *ProjectionMap, defaultSort ...SortField) *Builder {
	return &Builder{
		projection:        projection,
		defaultSortFields: defaultSort,
	}
}

// ParseSortFields parses a comma-separated sort string into a SortField slice.
// Fields prefixed with "-" are descending. Example: "name,-createdAt".
// Returns nil for empty input.
func ParseSortFields(s string) []SortField {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	fields := make([]SortField, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		field, desc := strings.CutPrefix(part, "-")
		fields = append(fields, SortField{Field: field, Descending: desc})
	}

	return fields
}

// Build returns a SELECT query with the current conditions and ordering.
func (b *Builder) Build() (string, []any) {
	return render(b.selectAll().OrderBy(b.orderBy()...))
}

// BuildCount returns a COUNT(*) query with the current conditions.
func (b *Builder) BuildCount() (string, []any) {
	return render(b.where(psql.Select("COUNT(*)").From(b.projection.Table())))
}

// BuildPage returns a paginated SELECT query with ordering, limit, and offset.
func (b *Builder) BuildPage(page, pageSize int) (string, []any) {
	return render(b.selectAll().
		OrderBy(b.orderBy()...).
		Limit(uint64(pageSize)).
		Offset(uint64((page - 1) * pageSize)))
}

// BuildSingle returns a SELECT query for a single record by ID.
// Accumulated conditions are ignored.
func (b *Builder) BuildSingle(idField string, id any) (string, []any) {
	return render(psql.
		Select(b.projection.ColumnList()...).
		From(b.projection.Table()).
		Where(b.projection.Column(idField)+" = ?", id))
}

// BuildFirst returns the first row, by the current ordering, matching the conditions.
func (b *Builder) BuildFirst() (string, []any) {
	return b.BuildLimit(1)
}

// BuildLimit returns an ordered SELECT capped at limit rows. Batch selectors
// use it to pull the oldest N candidates without a count query.
func (b *Builder) BuildLimit(limit int) (string, []any) {
	return render(b.selectAll().OrderBy(b.orderBy()...).Limit(uint64(limit)))
}

// OrderByFields sets the sort order, overriding default sort fields.
func (b *Builder) OrderByFields(fields []SortField) *Builder {
	b.orderByFields = fields
	return b
}

// WhereContains adds a case-insensitive ILIKE condition. No-op for nil or empty values.
func (b *Builder) WhereContains(field string, value *string) *Builder {
	if value == nil || *value == "" {
		return b
	}
	return b.add(b.projection.Column(field)+" ILIKE ?", "%"+*value+"%")
}

// WhereEquals adds an equality condition. No-op for nil values.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	if isNil(value) {
		return b
	}
	return b.add(b.projection.Column(field)+" = ?", value)
}

// WhereIn adds an IN condition for multiple values. No-op for empty slices.
func (b *Builder) WhereIn(field string, values []any) *Builder {
	if len(values) == 0 {
		return b
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
	return b.add(b.projection.Column(field)+" IN ("+marks+")", values...)
}

// WhereBefore adds a strict less-than condition, used for age cutoffs. No-op for nil values.
func (b *Builder) WhereBefore(field string, value any) *Builder {
	if isNil(value) {
		return b
	}
	return b.add(b.projection.Column(field)+" < ?", value)
}

// WhereSearch adds an OR condition across multiple fields with ILIKE. No-op for nil or empty search.
func (b *Builder) WhereSearch(search *string, fields ...string) *Builder {
	if search == nil || *search == "" || len(fields) == 0 {
		return b
	}

	clauses := make([]string, len(fields))
	args := make([]any, len(fields))
	pattern := "%" + *search + "%"

	for i, field := range fields {
		clauses[i] = b.projection.Column(field) + " ILIKE ?"
		args[i] = pattern
	}

	return b.add("("+strings.Join(clauses, " OR ")+")", args...)
}

func (b *Builder) add(clause string, args ...any) *Builder {
	b.conditions = append(b.conditions, sq.Expr(clause, args...))
	return b
}

func (b *Builder) selectAll() sq.SelectBuilder {
	return b.where(psql.Select(b.projection.ColumnList()...).From(b.projection.Table()))
}

func (b *Builder) where(sel sq.SelectBuilder) sq.SelectBuilder {
	for _, c := range b.conditions {
		sel = sel.Where(c)
	}
	return sel
}

func (b *Builder) orderBy() []string {
	fields := b.orderByFields
	if len(fields) == 0 {
		fields = b.defaultSortFields
	}

	parts := b.sortColumns(fields)
	if len(parts) == 0 && len(b.orderByFields) > 0 {
		parts = b.sortColumns(b.defaultSortFields)
	}
	return parts
}

// sortColumns renders fields that are projected and drops the rest, since
// sort fields arrive from query strings.
func (b *Builder) sortColumns(fields []SortField) []string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		col, ok := b.projection.Lookup(f.Field)
		if !ok {
			continue
		}
		dir := " ASC"
		if f.Descending {
			dir = " DESC"
		}
		parts = append(parts, col+dir)
	}
	return parts
}

// render only fails for a select without columns, which a ProjectionMap
// with at least one Project call never produces.
func render(sel sq.SelectBuilder) (string, []any) {
	sql, args, err := sel.ToSql()
	if err != nil {
		panic("query: " + err.Error())
	}
	return sql, args
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
