package dbconn

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querydesk/internal/store"
	"querydesk/internal/vault"
)

type fakeProfiles map[int64]store.ConnectionProfile

func (f fakeProfiles) GetConnection(_ context.Context, id int64) (store.ConnectionProfile, error) {
	p, ok := f[id]
	if !ok {
		return store.ConnectionProfile{}, store.ErrNotFound
	}
	return p, nil
}

type failingProfiles struct{}

func (failingProfiles) GetConnection(context.Context, int64) (store.ConnectionProfile, error) {
	return store.ConnectionProfile{}, &store.PersistenceError{Op: "get connection", Err: errors.New("disk I/O error")}
}

func testVault(t *testing.T) *vault.AESVault {
	t.Helper()
	v, err := vault.NewAESVault(bytes.Repeat([]byte{1}, vault.KeySize))
	require.NoError(t, err)
	return v
}

func TestResolveAppliesDefaults(t *testing.T) {
	v := testVault(t)
	secret, err := v.Conceal("hunter2")
	require.NoError(t, err)

	r := NewResolver(fakeProfiles{
		1: {ID: 1, UserID: 9, Host: "db.local", Database: "app", Username: "alice", SecretEncrypted: secret},
	}, v)

	d, err := r.Resolve(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, Descriptor{
		ProfileID: 1, OwnerID: 9, Driver: DriverPostgres, Host: "db.local", Port: 5432,
		Database: "app", Username: "alice", Secret: "hunter2", SSLMode: "prefer",
	}, d)
}

func TestResolveKeepsExplicitValues(t *testing.T) {
	v := testVault(t)
	secret, err := v.Conceal("pw")
	require.NoError(t, err)
	port, mode := 13306, "require"

	r := NewResolver(fakeProfiles{
		2: {ID: 2, Driver: DriverMySQL, Host: "h", Port: &port, SSLMode: &mode, SecretEncrypted: secret},
	}, v)
	d, err := r.Resolve(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 13306, d.Port)
	assert.Equal(t, "require", d.SSLMode)
	assert.Equal(t, DriverMySQL, d.Driver)
}

func TestResolveDefaultPortPerDriver(t *testing.T) {
	r := NewResolver(fakeProfiles{
		3: {ID: 3, Driver: DriverMSSQL, Host: "h"},
	}, testVault(t))
	d, err := r.Resolve(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 1433, d.Port)
	assert.Empty(t, d.Secret)
}

func TestResolveErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewResolver(fakeProfiles{}, testVault(t)).Resolve(ctx, 42)
	assert.ErrorIs(t, err, store.ErrNotFound)

	r := NewResolver(fakeProfiles{5: {ID: 5, SecretEncrypted: "not-a-ciphertext"}}, testVault(t))
	d, err := r.Resolve(ctx, 5)
	assert.ErrorIs(t, err, vault.ErrDecrypt)
	assert.Empty(t, d.Secret)

	_, err = NewResolver(failingProfiles{}, testVault(t)).Resolve(ctx, 1)
	var pe *store.PersistenceError
	assert.True(t, errors.As(err, &pe))
}
