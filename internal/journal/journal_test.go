package journal

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"querydesk/internal/coerce"
	"querydesk/internal/dbconn"
	"querydesk/internal/store"
	"querydesk/internal/vault"
)

type fakeResolver struct {
	desc dbconn.Descriptor
	err  error
}

func (f fakeResolver) Resolve(context.Context, int64) (dbconn.Descriptor, error) {
	return f.desc, f.err
}

type mockOpener struct {
	db  *sql.DB
	err error
}

func (o mockOpener) Open(context.Context, dbconn.Descriptor) (dbconn.Session, error) {
	if o.err != nil {
		return nil, o.err
	}
	return dbconn.NewSQLSession(o.db, dbconn.DriverPostgres), nil
}

type action struct {
	userID  int64
	kind    string
	details string
}

type fakeRecorder struct {
	history    []store.HistoryEntry
	actions    []action
	historyErr error
	actionErr  error
}

func (r *fakeRecorder) InsertHistory(_ context.Context, h store.HistoryEntry) (int64, error) {
	if r.historyErr != nil {
		return 0, r.historyErr
	}
	r.history = append(r.history, h)
	return int64(len(r.history)), nil
}

func (r *fakeRecorder) LogAction(_ context.Context, userID int64, kind, details string) error {
	if r.actionErr != nil {
		return r.actionErr
	}
	r.actions = append(r.actions, action{userID, kind, details})
	return nil
}

var owner = dbconn.Descriptor{ProfileID: 3, OwnerID: 11, Driver: dbconn.DriverPostgres}

// steppingClock returns start, then start+step, start+2*step, ...
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

func newTestExecutor(t *testing.T, opener Opener, rec *fakeRecorder, log *zap.SugaredLogger) *Executor {
	t.Helper()
	if log == nil {
		log = zaptest.NewLogger(t).Sugar()
	}
	e := NewExecutor(fakeResolver{desc: owner}, opener, rec, log)
	e.now = steppingClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), 25*time.Millisecond)
	e.newID = func() string { return "exec-1" }
	return e
}

func TestExecute_Success(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	mock.ExpectQuery("SELECT id, name, score, ok FROM users").WillReturnRows(
		sqlmock.NewRows([]string{"id", "name", "score", "ok"}).
			AddRow(int64(1), "ada", 9.5, true).
			AddRow(int64(2), nil, 7.25, false))
	mock.ExpectClose()

	rec := &fakeRecorder{}
	out, err := newTestExecutor(t, mockOpener{db: db}, rec, nil).
		Execute(context.Background(), 3, "SELECT id, name, score, ok FROM users")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, store.StatusSuccess, out.Status)
	assert.Equal(t, "exec-1", out.ExecutionID)
	assert.Equal(t, []string{"id", "name", "score", "ok"}, out.Columns)
	assert.Equal(t, 2, out.RowCount)
	assert.Equal(t, []coerce.Value{coerce.IntValue(1), coerce.StringValue("ada"), coerce.FloatValue(9.5), coerce.BoolValue(true)}, out.Rows[0])
	assert.True(t, out.Rows[1][1].IsNull())
	assert.Equal(t, int64(25), out.ExecutionTimeMs)
	assert.NoError(t, out.Err())

	require.Len(t, rec.history, 1)
	h := rec.history[0]
	assert.Equal(t, int64(3), h.ConnectionID)
	assert.Equal(t, store.StatusSuccess, h.Status)
	assert.Equal(t, int64(25), h.ExecutionTimeMs)
	assert.Nil(t, h.ErrorMessage)
	assert.Equal(t, "exec-1", h.ExecutionID)

	require.Len(t, rec.actions, 1)
	assert.Equal(t, action{11, store.ActionExecuteQuery, "SELECT id, name, score, ok FROM users"}, rec.actions[0])
}

func TestExecute_EmptyResultHasNoColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectQuery("SELECT id FROM users WHERE false").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectClose()

	rec := &fakeRecorder{}
	out, err := newTestExecutor(t, mockOpener{db: db}, rec, nil).
		Execute(context.Background(), 3, "SELECT id FROM users WHERE false")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, store.StatusSuccess, out.Status)
	assert.Empty(t, out.Columns)
	assert.Empty(t, out.Rows)
	assert.Zero(t, out.RowCount)
	assert.Len(t, rec.history, 1)
}

func TestExecute_StatementErrorIsData(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectQuery("SELECT \\* FROM nonexistent_table").
		WillReturnError(errors.New(`relation "nonexistent_table" does not exist`))
	mock.ExpectClose()

	rec := &fakeRecorder{}
	out, err := newTestExecutor(t, mockOpener{db: db}, rec, nil).
		Execute(context.Background(), 3, "SELECT * FROM nonexistent_table")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, store.StatusError, out.Status)
	assert.Equal(t, `relation "nonexistent_table" does not exist`, out.Error)
	assert.Empty(t, out.Rows)
	assert.True(t, IsStatementError(out.Err()))

	require.Len(t, rec.history, 1)
	assert.Equal(t, store.StatusError, rec.history[0].Status)
	require.NotNil(t, rec.history[0].ErrorMessage)
	assert.Equal(t, out.Error, *rec.history[0].ErrorMessage)

	require.Len(t, rec.actions, 1)
	assert.Equal(t, action{11, store.ActionQueryError, out.Error}, rec.actions[0])
}

func TestExecute_ResolveAndConnectFailuresWriteNothing(t *testing.T) {
	tests := []struct {
		name     string
		resolver fakeResolver
		opener   mockOpener
		is       error
	}{
		{"not found", fakeResolver{err: store.ErrNotFound}, mockOpener{}, store.ErrNotFound},
		{"decrypt", fakeResolver{err: vault.ErrDecrypt}, mockOpener{}, vault.ErrDecrypt},
		{"connect", fakeResolver{desc: owner},
			mockOpener{err: &dbconn.ConnectError{Target: "x", Err: assert.AnError}}, assert.AnError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecorder{}
			e := NewExecutor(tt.resolver, tt.opener, rec, zaptest.NewLogger(t).Sugar())
			_, err := e.Execute(context.Background(), 3, "SELECT 1")
			assert.ErrorIs(t, err, tt.is)
			assert.Empty(t, rec.history)
			assert.Empty(t, rec.actions)
		})
	}
}

func TestExecute_HistoryFailureIsLoggedNotReturned(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(int64(1)))
	mock.ExpectClose()

	core, logs := observer.New(zapcore.DebugLevel)
	rec := &fakeRecorder{historyErr: &store.PersistenceError{Op: "insert history", Err: errors.New("disk full")}}
	out, err := newTestExecutor(t, mockOpener{db: db}, rec, zap.New(core).Sugar()).
		Execute(context.Background(), 3, "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusSuccess, out.Status)
	assert.Equal(t, 1, out.RowCount)

	errs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errs, 1)
	assert.Equal(t, "record query history", errs[0].Message)
	assert.Len(t, rec.actions, 1)
}

func TestExecute_AuditFailureIsSwallowed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(int64(1)))
	mock.ExpectClose()

	core, logs := observer.New(zapcore.DebugLevel)
	rec := &fakeRecorder{actionErr: errors.New("locked")}
	out, err := newTestExecutor(t, mockOpener{db: db}, rec, zap.New(core).Sugar()).
		Execute(context.Background(), 3, "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusSuccess, out.Status)
	assert.Len(t, rec.history, 1)
	assert.Empty(t, logs.FilterLevelExact(zapcore.ErrorLevel).All())
	assert.Len(t, logs.FilterMessage("record user action").All(), 1)
}

func TestPreview(t *testing.T) {
	exactly50 := strings.Repeat("a", 50)
	assert.Equal(t, exactly50, Preview(exactly50))

	long := strings.Repeat("b", 51)
	got := Preview(long)
	assert.Equal(t, strings.Repeat("b", 47)+"...", got)

	multibyte := strings.Repeat("é", 60)
	assert.Equal(t, strings.Repeat("é", 47)+"...", Preview(multibyte))

	assert.Equal(t, "SELECT 1", Preview("SELECT 1"))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "connection not found", Describe(store.ErrNotFound))
	assert.Equal(t, "stored credentials could not be decrypted", Describe(vault.ErrDecrypt))
	assert.Contains(t, Describe(&dbconn.ConnectError{Target: "t", Err: errors.New("refused")}), "refused")
}
