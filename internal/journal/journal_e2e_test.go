package journal

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"querydesk/internal/coerce"
	"querydesk/internal/dbconn"
	"querydesk/internal/store"
	"querydesk/internal/vault"
)

// TestExecuteEndToEnd wires the real store, vault, resolver and dialer with
// a sqlite file standing in for the remote target.
func TestExecuteEndToEnd(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	log := zaptest.NewLogger(t).Sugar()

	meta, err := store.OpenDB(filepath.Join(dir, "app.db"))
	require.NoError(t, err)
	defer meta.Close()
	require.NoError(t, store.Migrate(meta, log))
	repo := store.NewRepo(meta)

	target := filepath.Join(dir, "target.db")
	tdb, err := sql.Open("sqlite", target)
	require.NoError(t, err)
	_, err = tdb.Exec(`CREATE TABLE t (id INTEGER, label TEXT, big INTEGER, ratio REAL);
		INSERT INTO t VALUES (1, 'one', 9000000000, 0.5), (2, NULL, -1, NULL);`)
	require.NoError(t, err)
	require.NoError(t, tdb.Close())

	v, err := vault.New(vault.PassphraseKey{Passphrase: "test"})
	require.NoError(t, err)
	secret, err := v.Conceal("unused")
	require.NoError(t, err)

	user, err := repo.EnsureUser(ctx, "admin")
	require.NoError(t, err)
	connID, err := repo.CreateConnection(ctx, store.ConnectionProfile{
		UserID: user.ID, Name: "local", Driver: dbconn.DriverSQLite, Database: target, SecretEncrypted: secret,
	})
	require.NoError(t, err)

	exec := NewExecutor(dbconn.NewResolver(repo, v), dbconn.NewDialer(5*time.Second, log), repo, log)

	out, err := exec.Execute(ctx, connID, "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusSuccess, out.Status)
	assert.Equal(t, []string{"1"}, out.Columns)
	assert.Equal(t, [][]coerce.Value{{coerce.IntValue(1)}}, out.Rows)

	out, err = exec.Execute(ctx, connID, "SELECT id, label, big, ratio FROM t ORDER BY id")
	require.NoError(t, err)
	require.Equal(t, 2, out.RowCount)
	assert.Equal(t, []coerce.Value{coerce.IntValue(1), coerce.StringValue("one"), coerce.IntValue(9000000000), coerce.FloatValue(0.5)}, out.Rows[0])
	assert.True(t, out.Rows[1][1].IsNull())
	assert.True(t, out.Rows[1][3].IsNull())

	out, err = exec.Execute(ctx, connID, "SELECT * FROM nonexistent_table")
	require.NoError(t, err)
	assert.Equal(t, store.StatusError, out.Status)
	assert.Contains(t, out.Error, "nonexistent_table")

	_, err = exec.Execute(ctx, connID+1000, "SELECT 1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	history, err := repo.ListQueryHistory(ctx, store.HistoryFilter{UserID: user.ID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, history, 3)
	statuses := map[string]int{}
	for _, h := range history {
		statuses[h.Status]++
		assert.NotEmpty(t, h.ExecutionID)
	}
	assert.Equal(t, map[string]int{store.StatusSuccess: 2, store.StatusError: 1}, statuses)

	failed, err := repo.ListQueryHistory(ctx, store.HistoryFilter{UserID: user.ID, Statuses: []string{store.StatusError}, Limit: 10})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "SELECT * FROM nonexistent_table", failed[0].QueryText)
	require.NotNil(t, failed[0].ErrorMessage)
	assert.Equal(t, out.Error, *failed[0].ErrorMessage)

	logs, err := repo.ListActionLogs(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	kinds := map[string]int{}
	for _, l := range logs {
		kinds[l.ActionType]++
	}
	assert.Equal(t, map[string]int{store.ActionExecuteQuery: 2, store.ActionQueryError: 1}, kinds)
}
