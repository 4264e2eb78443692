package approval

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T, path string) *SQLiteStore {
	t.Helper()

	st, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSQLiteStore_Contract(t *testing.T) {
	t.Parallel()
	runStoreContract(t, openTestSQLite(t, filepath.Join(t.TempDir(), "sessions.db")))
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "sessions.db")

	first, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, "s1", StateWrongCode))
	require.NoError(t, first.Close())

	second := openTestSQLite(t, path)
	got, err := second.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, StateWrongCode, got)
	require.NoError(t, second.Ping(ctx))
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	t.Parallel()

	_, err := OpenSQLite("")
	assert.Error(t, err)
}
