package dbconn

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querydesk/internal/sqlx"
)

func TestSQLSession_QueryDecodesTextCells(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	rows := mock.NewRowsWithColumnDefinition(
		mock.NewColumn("id").OfType("BIGINT", int64(0)),
		mock.NewColumn("ratio").OfType("DOUBLE", float64(0)),
		mock.NewColumn("active").OfType("BOOL", false),
		mock.NewColumn("price").OfType("DECIMAL", ""),
		mock.NewColumn("name").OfType("VARCHAR", ""),
	).
		AddRow([]byte("42"), []byte("0.5"), []byte("1"), []byte("10.25"), []byte("widget")).
		AddRow(int64(7), nil, true, nil, "gadget")
	mock.ExpectQuery("SELECT * FROM items").WillReturnRows(rows)
	mock.ExpectClose()

	s := NewSQLSession(db, DriverMySQL)
	rs, err := s.Query(context.Background(), "SELECT * FROM items")
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "ratio", "active", "price", "name"}, rs.Columns)
	assert.Equal(t, []string{sqlx.FamilyInteger, sqlx.FamilyFloat, sqlx.FamilyBoolean,
		sqlx.FamilyNumeric, sqlx.FamilyString}, rs.Types)
	require.Len(t, rs.Rows, 2)
	assert.Equal(t, []any{int64(42), 0.5, true, []byte("10.25"), []byte("widget")}, rs.Rows[0])
	assert.Equal(t, []any{int64(7), nil, true, nil, "gadget"}, rs.Rows[1])

	require.NoError(t, s.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSession_QueryEmptyResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id FROM empty").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rs, err := NewSQLSession(db, DriverPostgres).Query(context.Background(), "SELECT id FROM empty")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, rs.Columns)
	assert.NotNil(t, rs.Rows)
	assert.Empty(t, rs.Rows)
}

func TestSQLSession_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELEC").WillReturnError(assert.AnError)

	_, err = NewSQLSession(db, DriverPostgres).Query(context.Background(), "SELEC 1")
	assert.ErrorIs(t, err, assert.AnError)
}

func TestDecodeText(t *testing.T) {
	assert.Equal(t, int64(-3), decodeText([]byte("-3"), sqlx.FamilyInteger))
	assert.Equal(t, uint64(18446744073709551615), decodeText([]byte("18446744073709551615"), sqlx.FamilyInteger))
	assert.Equal(t, []byte("n/a"), decodeText([]byte("n/a"), sqlx.FamilyInteger))
	assert.Equal(t, 1.5, decodeText([]byte("1.5"), sqlx.FamilyFloat))
	assert.Equal(t, false, decodeText([]byte("0"), sqlx.FamilyBoolean))
	assert.Equal(t, []byte("2024-01-01"), decodeText([]byte("2024-01-01"), sqlx.FamilyDate))
}
