package sqlx

import (
	"strconv"
	"strings"
)

// Generic type families reported for result columns.
const (
	FamilyString    = "string"
	FamilyInteger   = "integer"
	FamilyFloat     = "float"
	FamilyNumeric   = "numeric"
	FamilyBoolean   = "boolean"
	FamilyDate      = "date"
	FamilyTime      = "time"
	FamilyTimestamp = "timestamp"
	FamilyUUID      = "uuid"
	FamilyJSON      = "json"
	FamilyBytes     = "bytes"
	FamilyOther     = "other"
)

var families = map[string][]string{
	FamilyString: {"VARCHAR", "CHAR", "CHARACTER", "TEXT", "STRING", "NVARCHAR", "NCHAR",
		"CHARACTER VARYING", "NVARCHAR2", "VARCHAR2", "CLOB", "NCLOB", "NTEXT",
		"LONGTEXT", "MEDIUMTEXT", "TINYTEXT", "ENUM", "SET", "NAME", "BPCHAR",
		"CIDR", "INET", "MACADDR", "TSQUERY", "TSVECTOR", "XML", "INTERVAL"},
	FamilyInteger: {"INT", "INTEGER", "INT2", "INT4", "INT8", "SMALLINT", "BIGINT",
		"TINYINT", "MEDIUMINT", "SERIAL", "SMALLSERIAL", "BIGSERIAL",
		"OID", "YEAR", "INT64", "UNSIGNED INT", "UNSIGNED BIGINT"},
	FamilyFloat: {"FLOAT", "REAL", "DOUBLE", "DOUBLE PRECISION", "FLOAT4", "FLOAT8",
		"FLOAT64", "MONEY", "SMALLMONEY"},
	FamilyNumeric: {"NUMERIC", "DECIMAL", "NUMBER", "BIGNUMERIC"},
	FamilyBoolean: {"BOOL", "BOOLEAN", "BIT"},
	FamilyDate:    {"DATE"},
	FamilyTime:    {"TIME", "TIME WITH TIME ZONE", "TIME WITHOUT TIME ZONE", "TIMETZ"},
	FamilyTimestamp: {"TIMESTAMP", "DATETIME", "DATETIME2", "SMALLDATETIME",
		"TIMESTAMP WITH TIME ZONE", "TIMESTAMP WITHOUT TIME ZONE",
		"TIMESTAMPTZ", "DATETIMEOFFSET"},
	FamilyUUID: {"UUID", "UNIQUEIDENTIFIER"},
	FamilyJSON: {"JSON", "JSONB"},
	FamilyBytes: {"BYTEA", "BINARY", "VARBINARY", "BLOB", "LONGBLOB", "MEDIUMBLOB",
		"TINYBLOB", "IMAGE", "BIT VARYING", "BYTES"},
}

var familyByName = func() map[string]string {
	m := make(map[string]string)
	for family, names := range families {
		for _, n := range names {
			m[n] = family
		}
	}
	return m
}()

// ColumnType is a driver type name reduced to its family and dimensions.
type ColumnType struct {
	Family    string `json:"family"`
	Length    *int   `json:"length,omitempty"`
	Precision *int   `json:"precision,omitempty"`
	Scale     *int   `json:"scale,omitempty"`
}

// TypeFamily maps a driver type name such as "varchar(255)", "INT8" or
// "numeric(10,2)" to its generic family. Unknown names map to "other"; an
// empty name maps to "string".
func TypeFamily(rawType string) string {
	return ParseType(rawType).Family
}

// ParseType is TypeFamily plus the parenthesised dimensions, if any.
func ParseType(rawType string) ColumnType {
	upper := strings.ToUpper(strings.TrimSpace(rawType))
	if upper == "" {
		return ColumnType{Family: FamilyString}
	}

	base, args := upper, ""
	if i := strings.Index(upper, "("); i >= 0 {
		base = strings.TrimSpace(upper[:i])
		if j := strings.LastIndex(upper, ")"); j > i {
			args = strings.TrimSpace(upper[i+1 : j])
		}
	}
	base = strings.Join(strings.Fields(base), " ")

	family, ok := familyByName[base]
	if !ok {
		family = guessFamily(base)
	}

	ct := ColumnType{Family: family}
	switch family {
	case FamilyString:
		ct.Length = parseDim(args, 0)
	case FamilyNumeric:
		ct.Precision = parseDim(args, 0)
		ct.Scale = parseDim(args, 1)
	}
	return ct
}

// IsNumeric reports whether values of the family are numbers.
func IsNumeric(family string) bool {
	switch family {
	case FamilyInteger, FamilyFloat, FamilyNumeric:
		return true
	}
	return false
}

func guessFamily(base string) string {
	switch {
	case strings.Contains(base, "INT"):
		return FamilyInteger
	case strings.Contains(base, "CHAR"), strings.Contains(base, "TEXT"), strings.Contains(base, "STRING"):
		return FamilyString
	case strings.Contains(base, "FLOAT"), strings.Contains(base, "DOUBLE"), strings.Contains(base, "REAL"):
		return FamilyFloat
	}
	return FamilyOther
}

// parseDim returns the idx-th comma separated integer in args. Lengths and
// precisions must be positive; scale (idx 1) may be zero.
func parseDim(args string, idx int) *int {
	if args == "" {
		return nil
	}
	parts := strings.Split(args, ",")
	if idx >= len(parts) {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(parts[idx]))
	if err != nil || v < 0 || (v == 0 && idx == 0) {
		return nil
	}
	return &v
}
