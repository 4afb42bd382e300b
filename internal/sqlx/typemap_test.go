package sqlx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeFamily_Strings(t *testing.T) {
	cases := []struct {
		raw     string
		wantLen *int
	}{
		{"varchar", nil},
		{"VARCHAR(255)", intPtr(255)},
		{"character varying(100)", intPtr(100)},
		{"character  varying", nil},
		{"text", nil},
		{"nvarchar(50)", intPtr(50)},
		{"char(1)", intPtr(1)},
		{"nvarchar(max)", nil},
		{"INTERVAL", nil},
		{"", nil},
	}
	for _, c := range cases {
		ct := ParseType(c.raw)
		assert.Equal(t, FamilyString, ct.Family, c.raw)
		assert.Equal(t, c.wantLen, ct.Length, c.raw)
	}
}

func TestTypeFamily_Numbers(t *testing.T) {
	cases := map[string]string{
		"int":              FamilyInteger,
		"BIGINT":           FamilyInteger,
		"INT8":             FamilyInteger,
		"bigserial":        FamilyInteger,
		"INT64":            FamilyInteger,
		"unsigned int":     FamilyInteger,
		"float":            FamilyFloat,
		"DOUBLE PRECISION": FamilyFloat,
		"FLOAT8":           FamilyFloat,
		"money":            FamilyFloat,
		"numeric":          FamilyNumeric,
		"DECIMAL(18,4)":    FamilyNumeric,
		"BIGNUMERIC":       FamilyNumeric,
	}
	for raw, want := range cases {
		assert.Equal(t, want, TypeFamily(raw), raw)
	}
}

func TestParseType_PrecisionScale(t *testing.T) {
	cases := []struct {
		raw   string
		wantP *int
		wantS *int
	}{
		{"numeric", nil, nil},
		{"NUMERIC(10,2)", intPtr(10), intPtr(2)},
		{"decimal(5)", intPtr(5), nil},
		{"decimal(5, 0)", intPtr(5), intPtr(0)},
	}
	for _, c := range cases {
		ct := ParseType(c.raw)
		assert.Equal(t, c.wantP, ct.Precision, c.raw)
		assert.Equal(t, c.wantS, ct.Scale, c.raw)
	}
}

func TestTypeFamily_Other(t *testing.T) {
	cases := map[string]string{
		"BOOL":             FamilyBoolean,
		"bit":              FamilyBoolean,
		"DATE":             FamilyDate,
		"TIMETZ":           FamilyTime,
		"DATETIME2":        FamilyTimestamp,
		"TIMESTAMPTZ":      FamilyTimestamp,
		"UNIQUEIDENTIFIER": FamilyUUID,
		"JSONB":            FamilyJSON,
		"bytea":            FamilyBytes,
		"VARBINARY(16)":    FamilyBytes,
		"geometry":         FamilyOther,
	}
	for raw, want := range cases {
		assert.Equal(t, want, TypeFamily(raw), raw)
	}
}

func TestIsNumeric(t *testing.T) {
	for _, f := range []string{FamilyInteger, FamilyFloat, FamilyNumeric} {
		assert.True(t, IsNumeric(f), f)
	}
	for _, f := range []string{FamilyString, FamilyBoolean, FamilyOther} {
		assert.False(t, IsNumeric(f), f)
	}
}

func intPtr(v int) *int { return &v }
