package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLite_MigrateIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "appeal.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))
	require.NoError(t, st.Migrate(ctx))
}

func TestSQLite_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "appeal.db")
	ctx := context.Background()

	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))
	group, _, err := st.CreateUpload(ctx, "3f2c1a9e-5b7d-4c8e-9f10-111213141516", uploadDoc())
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st, err = NewSQLite(dbPath)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	got, err := st.GetDocumentGroup(ctx, group.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, group.UserID, got.UserID)
}

func TestSQLite_ClosedStore(t *testing.T) {
	st, err := NewSQLite(filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, err = st.GetDocumentGroup(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite: get document group")
}
