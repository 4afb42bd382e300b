package coerce

import (
	"database/sql"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceProbeOrder(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want Value
	}{
		{"small int", int64(42), IntValue(42)},
		{"int32 max", int64(math.MaxInt32), IntValue(math.MaxInt32)},
		{"beyond int32", int64(5_000_000_000), IntValue(5_000_000_000)},
		{"negative int16", int16(-7), IntValue(-7)},
		{"uint8", uint8(200), IntValue(200)},
		{"text", "alice", StringValue("alice")},
		{"empty text", "", StringValue("")},
		{"utf8 bytes", []byte("héllo"), StringValue("héllo")},
		{"bool", true, BoolValue(true)},
		{"float", 3.5, FloatValue(3.5)},
		{"float32", float32(0.25), FloatValue(0.25)},
		{"nil", nil, NullValue()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Coerce(tt.raw))
		})
	}
}

func TestCoerceUndecodableIsNull(t *testing.T) {
	cases := map[string]any{
		"timestamp":       time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		"nan":             math.NaN(),
		"inf":             math.Inf(1),
		"uint64 overflow": uint64(math.MaxUint64),
		"invalid utf8":    []byte{0xff, 0xfe},
		"nested":          []any{1, 2},
		"map":             map[string]any{"a": 1},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			v := Coerce(raw)
			assert.True(t, v.IsNull(), "got %v", v.Kind())
		})
	}
}

func TestCoerceUnwrapsValuer(t *testing.T) {
	assert.Equal(t, StringValue("x"), Coerce(sql.NullString{String: "x", Valid: true}))
	assert.True(t, Coerce(sql.NullString{}).IsNull())
	assert.Equal(t, IntValue(9), Coerce(sql.NullInt64{Int64: 9, Valid: true}))
	assert.Equal(t, BoolValue(false), Coerce(sql.NullBool{Valid: true}))
}

func TestCoerceRow(t *testing.T) {
	row := CoerceRow([]any{int64(1), "a", nil, 2.5})
	require.Len(t, row, 4)
	assert.Equal(t, Integer, row[0].Kind())
	assert.Equal(t, String, row[1].Kind())
	assert.Equal(t, Null, row[2].Kind())
	assert.Equal(t, Float, row[3].Kind())
}

func TestValueJSONAndString(t *testing.T) {
	row := []Value{IntValue(1), FloatValue(1.5), BoolValue(true), StringValue("x"), NullValue()}
	b, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `[1, 1.5, true, "x", null]`, string(b))

	assert.Equal(t, "1", row[0].String())
	assert.Equal(t, "1.5", row[1].String())
	assert.Equal(t, "true", row[2].String())
	assert.Equal(t, "x", row[3].String())
	assert.Equal(t, "NULL", row[4].String())
	assert.Equal(t, "boolean", Boolean.String())
}
