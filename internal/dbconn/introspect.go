package dbconn

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"querydesk/internal/sqlx"
)

// Column describes one table column.
type Column struct {
	Table      string `json:"table"`
	Name       string `json:"name"`
	DataType   string `json:"dataType"`
	Family     string `json:"family"`
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"primaryKey"`
	Position   int    `json:"position"`
	Length     *int   `json:"length,omitempty"`
	Precision  *int   `json:"precision,omitempty"`
	Scale      *int   `json:"scale,omitempty"`
}

// ForeignKey links a referencing column to the column it references.
type ForeignKey struct {
	Table     string `json:"table"`
	Column    string `json:"column"`
	RefTable  string `json:"refTable"`
	RefColumn string `json:"refColumn"`
}

// Introspector browses a target's catalog. Schema means dataset on BigQuery.
type Introspector interface {
	ListSchemas(ctx context.Context) ([]string, error)
	ListTables(ctx context.Context, schema string) ([]string, error)
	ListViews(ctx context.Context, schema string) ([]string, error)
	ListForeignKeys(ctx context.Context, schema string) ([]ForeignKey, error)
	ListColumns(ctx context.Context, schema, table string) ([]Column, error)
}

// Inspect returns the session's Introspector, if it has one.
func Inspect(s Session) (Introspector, error) {
	in, ok := s.(Introspector)
	if !ok {
		return nil, fmt.Errorf("session %T cannot browse its catalog", s)
	}
	return in, nil
}

// catalogDialect holds the per-engine pieces of the information_schema queries.
type catalogDialect struct {
	ph            func(n int) string
	systemSchemas []string
	fkQuery       string
}

var catalogDialects = map[string]catalogDialect{
	DriverPostgres: {
		ph: func(n int) string { return fmt.Sprintf("$%d", n) },
		systemSchemas: []string{"information_schema", "pg_catalog", "pg_toast",
			"pg_temp_1", "pg_toast_temp_1"},
		fkQuery: `SELECT kcu.table_name, kcu.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name AND tc.table_schema = ccu.table_schema
		WHERE tc.table_schema = $1 AND tc.constraint_type = 'FOREIGN KEY'
		ORDER BY kcu.table_name, kcu.column_name`,
	},
	DriverMySQL: {
		ph:            func(int) string { return "?" },
		systemSchemas: []string{"information_schema", "mysql", "performance_schema", "sys"},
		fkQuery: `SELECT kcu.TABLE_NAME, kcu.COLUMN_NAME, kcu.REFERENCED_TABLE_NAME, kcu.REFERENCED_COLUMN_NAME
		FROM information_schema.KEY_COLUMN_USAGE kcu
		WHERE kcu.TABLE_SCHEMA = ? AND kcu.REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY kcu.TABLE_NAME, kcu.COLUMN_NAME`,
	},
	DriverMSSQL: {
		ph: func(n int) string { return fmt.Sprintf("@p%d", n) },
		systemSchemas: []string{"information_schema", "sys", "guest", "db_owner",
			"db_accessadmin", "db_securityadmin", "db_ddladmin",
			"db_backupoperator", "db_datareader", "db_datawriter",
			"db_denydatareader", "db_denydatawriter"},
		fkQuery: `SELECT fk_kcu.TABLE_NAME, fk_kcu.COLUMN_NAME, pk_kcu.TABLE_NAME, pk_kcu.COLUMN_NAME
		FROM INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS rc
		JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE fk_kcu
			ON rc.CONSTRAINT_NAME = fk_kcu.CONSTRAINT_NAME AND rc.CONSTRAINT_SCHEMA = fk_kcu.CONSTRAINT_SCHEMA
		JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE pk_kcu
			ON rc.UNIQUE_CONSTRAINT_NAME = pk_kcu.CONSTRAINT_NAME
			AND rc.UNIQUE_CONSTRAINT_SCHEMA = pk_kcu.CONSTRAINT_SCHEMA
			AND fk_kcu.ORDINAL_POSITION = pk_kcu.ORDINAL_POSITION
		WHERE rc.CONSTRAINT_SCHEMA = @p1
		ORDER BY fk_kcu.TABLE_NAME, fk_kcu.COLUMN_NAME`,
	},
}

func (s *SQLSession) dialect() (catalogDialect, error) {
	d, ok := catalogDialects[s.driver]
	if !ok {
		return catalogDialect{}, fmt.Errorf("catalog browsing is not supported for %s", s.driver)
	}
	return d, nil
}

func (s *SQLSession) ListSchemas(ctx context.Context) ([]string, error) {
	if s.driver == DriverSQLite {
		return s.queryStrings(ctx, "SELECT name FROM pragma_database_list ORDER BY seq")
	}
	d, err := s.dialect()
	if err != nil {
		return nil, err
	}
	all, err := s.queryStrings(ctx, "SELECT schema_name FROM information_schema.schemata ORDER BY schema_name")
	if err != nil {
		return nil, fmt.Errorf("listing schemas: %w", err)
	}

	exclude := make(map[string]bool, len(d.systemSchemas))
	for _, e := range d.systemSchemas {
		exclude[e] = true
	}
	schemas := []string{}
	for _, name := range all {
		if !exclude[strings.ToLower(name)] {
			schemas = append(schemas, name)
		}
	}
	return schemas, nil
}

func (s *SQLSession) ListTables(ctx context.Context, schema string) ([]string, error) {
	return s.listRelations(ctx, schema, "BASE TABLE", "table")
}

func (s *SQLSession) ListViews(ctx context.Context, schema string) ([]string, error) {
	return s.listRelations(ctx, schema, "VIEW", "view")
}

func (s *SQLSession) listRelations(ctx context.Context, schema, infoType, sqliteType string) ([]string, error) {
	if s.driver == DriverSQLite {
		q := fmt.Sprintf("SELECT name FROM %s.sqlite_master WHERE type = ? AND name NOT LIKE 'sqlite_%%' ORDER BY name",
			quoteIdent(sqliteSchema(schema)))
		return s.queryStrings(ctx, q, sqliteType)
	}
	d, err := s.dialect()
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT table_name FROM information_schema.tables WHERE table_schema = %s AND table_type = %s ORDER BY table_name",
		d.ph(1), d.ph(2))
	names, err := s.queryStrings(ctx, q, schema, infoType)
	if err != nil {
		return nil, fmt.Errorf("listing %ss: %w", sqliteType, err)
	}
	return names, nil
}

func (s *SQLSession) ListForeignKeys(ctx context.Context, schema string) ([]ForeignKey, error) {
	if s.driver == DriverSQLite {
		return s.sqliteForeignKeys(ctx, schema)
	}
	d, err := s.dialect()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, d.fkQuery, schema)
	if err != nil {
		return nil, fmt.Errorf("querying foreign keys: %w", err)
	}
	defer rows.Close()

	fks := []ForeignKey{}
	for rows.Next() {
		var fk ForeignKey
		if err := rows.Scan(&fk.Table, &fk.Column, &fk.RefTable, &fk.RefColumn); err != nil {
			return nil, err
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

func (s *SQLSession) ListColumns(ctx context.Context, schema, table string) ([]Column, error) {
	if s.driver == DriverSQLite {
		return s.sqliteColumns(ctx, schema, table)
	}
	d, err := s.dialect()
	if err != nil {
		return nil, err
	}

	pkQuery := fmt.Sprintf(`SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = %s AND tc.table_name = %s AND tc.constraint_type = 'PRIMARY KEY'`,
		d.ph(1), d.ph(2))
	pkCols, err := s.queryStrings(ctx, pkQuery, schema, table)
	if err != nil {
		return nil, fmt.Errorf("querying primary keys: %w", err)
	}
	pk := make(map[string]bool, len(pkCols))
	for _, c := range pkCols {
		pk[c] = true
	}

	q := fmt.Sprintf(`SELECT column_name, data_type, is_nullable, ordinal_position,
		character_maximum_length, numeric_precision, numeric_scale
		FROM information_schema.columns
		WHERE table_schema = %s AND table_name = %s
		ORDER BY ordinal_position`, d.ph(1), d.ph(2))
	rows, err := s.db.QueryContext(ctx, q, schema, table)
	if err != nil {
		return nil, fmt.Errorf("querying columns: %w", err)
	}
	defer rows.Close()

	cols := []Column{}
	for rows.Next() {
		c := Column{Table: table}
		var nullable string
		if err := rows.Scan(&c.Name, &c.DataType, &nullable, &c.Position,
			&c.Length, &c.Precision, &c.Scale); err != nil {
			return nil, err
		}
		c.Nullable = strings.EqualFold(nullable, "YES")
		c.Family = sqlx.TypeFamily(c.DataType)
		c.PrimaryKey = pk[c.Name]
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// ---- sqlite ----

func (s *SQLSession) sqliteColumns(ctx context.Context, schema, table string) ([]Column, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cid, name, type, "notnull", pk FROM pragma_table_info(?, ?) ORDER BY cid`,
		table, sqliteSchema(schema))
	if err != nil {
		return nil, fmt.Errorf("querying columns: %w", err)
	}
	defer rows.Close()

	cols := []Column{}
	for rows.Next() {
		c := Column{Table: table}
		var notNull, pk int
		if err := rows.Scan(&c.Position, &c.Name, &c.DataType, &notNull, &pk); err != nil {
			return nil, err
		}
		c.Position++
		c.PrimaryKey = pk > 0
		c.Nullable = notNull == 0 && !c.PrimaryKey
		ct := sqlx.ParseType(c.DataType)
		c.Family, c.Length, c.Precision, c.Scale = ct.Family, ct.Length, ct.Precision, ct.Scale
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func (s *SQLSession) sqliteForeignKeys(ctx context.Context, schema string) ([]ForeignKey, error) {
	// Collect table names first; the session holds a single connection.
	tables, err := s.ListTables(ctx, schema)
	if err != nil {
		return nil, err
	}
	fks := []ForeignKey{}
	for _, t := range tables {
		rows, err := s.db.QueryContext(ctx,
			`SELECT "from", "table", "to" FROM pragma_foreign_key_list(?, ?) ORDER BY id, seq`,
			t, sqliteSchema(schema))
		if err != nil {
			return nil, fmt.Errorf("querying foreign keys: %w", err)
		}
		for rows.Next() {
			fk := ForeignKey{Table: t}
			var to sql.NullString
			if err := rows.Scan(&fk.Column, &fk.RefTable, &to); err != nil {
				rows.Close()
				return nil, err
			}
			fk.RefColumn = to.String
			fks = append(fks, fk)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return fks, nil
}

func sqliteSchema(schema string) string {
	if schema == "" {
		return "main"
	}
	return schema
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// queryStrings runs a single-column query.
func (s *SQLSession) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
