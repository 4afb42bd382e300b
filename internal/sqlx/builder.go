// Package sqlx assembles parameterised SQL for the metadata store's list
// endpoints and maps driver column types to generic families.
package sqlx

import "strings"

// Builder assembles a SELECT from optional filter fragments. Fragments are
// kept per clause so the bind order always follows the SQL text: base args,
// WHERE args, ORDER BY args, then LIMIT and OFFSET.
//
// Placeholders are always "?"; the builder targets the sqlite metadata store.
type Builder struct {
	base     string
	baseArgs []any

	where     []string
	whereArgs []any

	order     []string
	orderArgs []any

	paginate      bool
	limit, offset int
}

// New starts a query from a SELECT ... FROM ... [JOIN ...] prefix. args bind
// any placeholders inside the prefix itself.
func New(selectFrom string, args ...any) *Builder {
	return &Builder{base: strings.TrimSpace(selectFrom), baseArgs: args}
}

// Where ANDs a predicate onto the WHERE clause.
func (b *Builder) Where(clause string, args ...any) *Builder {
	b.where = append(b.where, clause)
	b.whereArgs = append(b.whereArgs, args...)
	return b
}

// WhereList ANDs a predicate whose first %s is replaced by one "?" per
// value, bound in slice order. Any other text, including literal % signs,
// is kept as written. Empty values add nothing.
func (b *Builder) WhereList(format string, values []any) *Builder {
	if len(values) == 0 {
		return b
	}
	return b.Where(strings.Replace(format, "%s", placeholders(len(values)), 1), values...)
}

// WhereIn is WhereList for the common "col IN (...)" shape.
func (b *Builder) WhereIn(column string, values []any) *Builder {
	return b.WhereList(column+" IN (%s)", values)
}

// OrderByMatch adds "(col LIKE ?) DESC" bound to %token%, ranking rows that
// contain token first. An empty token adds nothing.
func (b *Builder) OrderByMatch(column, token string) *Builder {
	if token == "" {
		return b
	}
	b.order = append(b.order, "("+column+" LIKE ?) DESC")
	b.orderArgs = append(b.orderArgs, "%"+token+"%")
	return b
}

// OrderBy adds a sort key in the given direction.
func (b *Builder) OrderBy(column string, desc bool) *Builder {
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	b.order = append(b.order, column+" "+dir)
	return b
}

// Paginate appends LIMIT ? OFFSET ?. Values are bound as given.
func (b *Builder) Paginate(limit, offset int) *Builder {
	b.paginate = true
	b.limit, b.offset = limit, offset
	return b
}

// Build returns the SQL text and its bind arguments.
func (b *Builder) Build() (string, []any) {
	var sb strings.Builder
	sb.WriteString(b.base)

	args := make([]any, 0, len(b.baseArgs)+len(b.whereArgs)+len(b.orderArgs)+2)
	args = append(args, b.baseArgs...)

	if len(b.where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.where, " AND "))
		args = append(args, b.whereArgs...)
	}
	if len(b.order) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(b.order, ", "))
		args = append(args, b.orderArgs...)
	}
	if b.paginate {
		sb.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, b.limit, b.offset)
	}
	return sb.String(), args
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = "?"
	}
	return strings.Join(ph, ", ")
}

// Args converts a typed slice to the []any the builder binds.
func Args[T any](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
