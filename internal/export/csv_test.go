package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querydesk/internal/coerce"
)

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	rows := [][]coerce.Value{
		{coerce.IntValue(1), coerce.StringValue("Ada, Countess"), coerce.BoolValue(true)},
		{coerce.IntValue(2), coerce.NullValue(), coerce.FloatValue(2.5)},
	}
	require.NoError(t, WriteCSV(&buf, []string{"id", "name", "flag"}, rows))
	assert.Equal(t, "id,name,flag\n1,\"Ada, Countess\",true\n2,,2.5\n", buf.String())
}

func TestWriteCSV_EmptyResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []string{}, nil))
	assert.Equal(t, "\n", buf.String())
}

func TestWriteCSV_RaggedRow(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, []string{"a", "b"}, [][]coerce.Value{{coerce.IntValue(1)}})
	assert.ErrorContains(t, err, "row 1 has 1 cells")
}
