// Package repotest opens throwaway migrated stores for tests.
package repotest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/gophvault/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// OpenSQLite returns a migrated private in-memory SQLite store that is
// closed when the test ends.
func OpenSQLite(t testing.TB) (*sql.DB, repomanager.RepositoryManager) {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, m, err := repomanager.Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db, m
}
