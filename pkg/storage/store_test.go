package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krzsas/security-manager/pkg/types"
)

// newTestDB opens a fresh privilege database in a temp directory
func newTestDB(t *testing.T) *PrivilegeDB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "privilege.db")
	db, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenAppliesSchemaAndVersion(t *testing.T) {
	db := newTestDB(t)

	var version int
	err := db.db.QueryRow("PRAGMA user_version").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)

	// Reopening the same file is idempotent
	path := filepath.Join(t.TempDir(), "reopen.db")
	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	assert.NoError(t, second.Close())
}

func TestOpenFailsOnUnusablePath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "no", "such", "dir", "privilege.db"))
	require.Error(t, err)
	assert.True(t, types.IsIO(err), "expected IO error, got %v", err)
}

func TestQueryCacheReusable(t *testing.T) {
	db := newTestDB(t)

	// The same handle must be usable for bind → execute → reset cycles
	// back to back, with no state leaking from the first use.
	stmt1 := db.getQuery(QGetUserApps)
	stmt2 := db.getQuery(QGetUserApps)
	assert.Same(t, stmt1, stmt2)

	require.NoError(t, db.AddApplication("app1", "pkgA", 5000))

	for i := 0; i < 2; i++ {
		apps, err := db.GetUserApps(5000)
		require.NoError(t, err)
		assert.Equal(t, []string{"app1"}, apps)
	}
}

func TestTransactionStateMachine(t *testing.T) {
	db := newTestDB(t)

	// Idle → InTransaction
	require.NoError(t, db.BeginTransaction())

	// Nested begin is forbidden
	err := db.BeginTransaction()
	require.Error(t, err)
	assert.True(t, types.IsInternal(err))

	// InTransaction → Idle
	require.NoError(t, db.CommitTransaction())

	// Commit without begin
	err = db.CommitTransaction()
	require.Error(t, err)
	assert.True(t, types.IsInternal(err))

	// Rollback without begin
	err = db.RollbackTransaction()
	require.Error(t, err)
	assert.True(t, types.IsInternal(err))

	// Rollback path leaves the store usable
	require.NoError(t, db.BeginTransaction())
	require.NoError(t, db.AddApplication("app1", "pkgA", 5000))
	require.NoError(t, db.RollbackTransaction())

	_, err = db.GetAppPkgID("app1")
	assert.ErrorIs(t, err, types.ErrNotFound)

	require.NoError(t, db.BeginTransaction())
	require.NoError(t, db.AddApplication("app1", "pkgA", 5000))
	require.NoError(t, db.CommitTransaction())

	pkgID, err := db.GetAppPkgID("app1")
	require.NoError(t, err)
	assert.Equal(t, "pkgA", pkgID)
}
