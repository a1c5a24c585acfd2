// Package repomanager vends dialect-specific repositories bound to a DBTX,
// runs the embedded goose migrations and takes whole-store snapshots.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"

	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/vaults"
	"github.com/pressly/goose/v3"
)

type RepositoryManager interface {
	Dialect() dbx.Dialect
	RunMigrations(ctx context.Context, db *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Vaults(db dbx.DBTX) vaults.Repository

	// Snapshot writes a consistent copy of the whole store to path as a
	// standalone SQLite database. path must not exist.
	Snapshot(ctx context.Context, db *sql.DB, path string) error

	// RotationTxOptions are the options for transactions that must see a
	// stable vault set for an account.
	RotationTxOptions() *sql.TxOptions
}

// gooseUp is a seam for testing migrations without a live database.
var gooseUp = func(ctx context.Context, dialect goose.Dialect, db *sql.DB, fsys fs.FS) error {
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}

// Open connects to the store named by dsn and applies migrations. DSNs with
// a postgres:// or postgresql:// scheme select PostgreSQL; anything else is
// treated as an SQLite file path or "file:" URI.
func Open(ctx context.Context, dsn string) (*sql.DB, RepositoryManager, error) {
	var (
		db  *sql.DB
		m   RepositoryManager
		err error
	)

	if IsPostgresDSN(dsn) {
		db, err = sql.Open("pgx", dsn)
		m = NewPostgresRepositoryManager()
	} else {
		db, err = openSQLite(dsn)
		m = NewSQLiteRepositoryManager()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", m.Dialect(), err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", m.Dialect(), err)
	}

	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}

	return db, m, nil
}

func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}
