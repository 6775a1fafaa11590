package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_Contract(t *testing.T) {
	testStoreContract(t, newTestSQLiteStore(t))
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_WrittenAtFromClock(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	ts := time.Date(2024, 2, 29, 12, 0, 0, 123, time.UTC)
	setNow(t, ts)

	require.NoError(t, st.Put(ctx, "abn_51824753556", []byte("{}")))
	e, err := st.Get(ctx, "abn_51824753556")
	require.NoError(t, err)
	assert.True(t, ts.Equal(e.WrittenAt))
}

func TestSQLite_Prune(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	setNow(t, base)
	require.NoError(t, st.Put(ctx, "abn_11111111111", []byte("old")))
	setNow(t, base.Add(48*time.Hour))
	require.NoError(t, st.Put(ctx, "abn_22222222222", []byte("new")))

	n, err := st.Prune(ctx, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = st.Get(ctx, "abn_11111111111")
	assert.True(t, errors.Is(err, ErrNotFound))
	e, err := st.Get(ctx, "abn_22222222222")
	require.NoError(t, err)
	assert.Equal(t, "new", string(e.Value))
}

func TestSQLite_GetBeforeMigrate(t *testing.T) {
	st, err := NewSQLite(filepath.Join(t.TempDir(), "raw.db"))
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	_, err = st.Get(context.Background(), "abn_51824753556")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "sqlite: get cache entry")
}
