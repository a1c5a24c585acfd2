package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/server/migrations"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/vaults"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type PostgresRepositoryManager struct{}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Dialect() dbx.Dialect { return dbx.Postgres }

func (m *PostgresRepositoryManager) Accounts(db dbx.DBTX) accounts.Repository {
	return accounts.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Vaults(db dbx.DBTX) vaults.Repository {
	return vaults.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations.Postgres, "postgres")
	if err != nil {
		return err
	}
	return gooseUp(ctx, goose.DialectPostgres, db, fsys)
}

// Serializable isolation makes a concurrent vault insert abort the rotation
// instead of leaving a vault wrapped under the old key.
func (m *PostgresRepositoryManager) RotationTxOptions() *sql.TxOptions {
	return &sql.TxOptions{Isolation: sql.LevelSerializable}
}

// Snapshot copies every account and vault into a fresh SQLite file, so
// backups have the same format regardless of the live backend.
func (m *PostgresRepositoryManager) Snapshot(ctx context.Context, db *sql.DB, path string) (err error) {
	dst, err := openSQLite(path)
	if err != nil {
		return fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer func() {
		if cerr := dst.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := NewSQLiteRepositoryManager().RunMigrations(ctx, dst); err != nil {
		return fmt.Errorf("snapshot migrations: %w", err)
	}

	src, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() { _ = src.Rollback() }()

	err = dbx.WithTx(ctx, dst, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := copyAccounts(ctx, src, tx); err != nil {
			return err
		}
		return copyVaults(ctx, src, tx)
	})
	if err != nil {
		return err
	}

	return src.Commit()
}

func copyAccounts(ctx context.Context, src *sql.Tx, dst dbx.DBTX) error {
	rows, err := src.QueryContext(ctx, `SELECT id, email, auth_key FROM accounts ORDER BY id`)
	if err != nil {
		return fmt.Errorf("read accounts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id             int64
			email, authKey string
		)
		if err := rows.Scan(&id, &email, &authKey); err != nil {
			return fmt.Errorf("scan account: %w", err)
		}
		_, err := dst.ExecContext(ctx,
			`INSERT INTO accounts (id, email, auth_key) VALUES (?, ?, ?)`,
			id, email, authKey)
		if err != nil {
			return fmt.Errorf("write account %d: %w", id, err)
		}
	}
	return rows.Err()
}

func copyVaults(ctx context.Context, src *sql.Tx, dst dbx.DBTX) error {
	rows, err := src.QueryContext(ctx,
		`SELECT id, account_id, name, wrapped_key, ciphertext FROM vaults ORDER BY id`)
	if err != nil {
		return fmt.Errorf("read vaults: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, accountID          int64
			name                   string
			wrappedKey, ciphertext []byte
		)
		if err := rows.Scan(&id, &accountID, &name, &wrappedKey, &ciphertext); err != nil {
			return fmt.Errorf("scan vault: %w", err)
		}
		_, err := dst.ExecContext(ctx,
			`INSERT INTO vaults (id, account_id, name, wrapped_key, ciphertext) VALUES (?, ?, ?, ?, ?)`,
			id, accountID, name, wrappedKey, ciphertext)
		if err != nil {
			return fmt.Errorf("write vault %d: %w", id, err)
		}
	}
	return rows.Err()
}
