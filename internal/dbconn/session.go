package dbconn

import (
	"context"
	"database/sql"
	"strconv"

	"querydesk/internal/sqlx"
)

// ResultSet is the raw outcome of a statement. Types holds the generic
// family of each column (see sqlx.TypeFamily).
type ResultSet struct {
	Columns []string
	Types   []string
	Rows    [][]any
}

// Session is one open connection to a remote target.
type Session interface {
	Query(ctx context.Context, stmt string) (*ResultSet, error)
	Close() error
}

// SQLSession is a Session over database/sql.
type SQLSession struct {
	db     *sql.DB
	driver string
}

// NewSQLSession wraps an open handle. driver selects catalog query dialect.
func NewSQLSession(db *sql.DB, driver string) *SQLSession {
	return &SQLSession{db: db, driver: driver}
}

func (s *SQLSession) Close() error { return s.db.Close() }

// Query runs stmt and reads every row. Text-protocol drivers hand back
// numbers as []byte; those cells are decoded by column family so they are
// not mistaken for text.
func (s *SQLSession) Query(ctx context.Context, stmt string) (*ResultSet, error) {
	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	types := make([]string, len(cols))
	if cts, err := rows.ColumnTypes(); err == nil {
		for i, ct := range cts {
			types[i] = sqlx.TypeFamily(ct.DatabaseTypeName())
		}
	}

	rs := &ResultSet{Columns: cols, Types: types, Rows: [][]any{}}
	for rows.Next() {
		cells := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, c := range cells {
			if b, ok := c.([]byte); ok {
				cells[i] = decodeText(b, types[i])
			}
		}
		rs.Rows = append(rs.Rows, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}

// decodeText interprets a text-encoded cell by its column family. Numeric
// (decimal) columns stay as text so no precision is lost; cells that do not
// parse are returned unchanged.
func decodeText(b []byte, family string) any {
	switch family {
	case sqlx.FamilyInteger:
		if n, err := strconv.ParseInt(string(b), 10, 64); err == nil {
			return n
		}
		if n, err := strconv.ParseUint(string(b), 10, 64); err == nil {
			return n
		}
	case sqlx.FamilyFloat:
		if f, err := strconv.ParseFloat(string(b), 64); err == nil {
			return f
		}
	case sqlx.FamilyBoolean:
		if v, err := strconv.ParseBool(string(b)); err == nil {
			return v
		}
	}
	return b
}
