// Package vaults persists wrapped vault records.
package vaults

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
)

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLiteRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, dialect: dbx.SQLite}
}

func NewPostgresRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, dialect: dbx.Postgres}
}

// ValidateName rejects empty and oversized vault names. An empty name is
// reported as both a duplicate-name and a validation failure.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: %w: vault name must not be empty", common.ErrorDuplicateName, common.ErrorValidation)
	}
	if len(name) > common.MaxVaultNameLength {
		return fmt.Errorf("%w: vault name longer than %d bytes", common.ErrorValidation, common.MaxVaultNameLength)
	}
	return nil
}

func (r *SQLRepository) Create(ctx context.Context, v *models.Vault) (*models.Vault, error) {
	if err := ValidateName(v.Name); err != nil {
		return nil, err
	}
	if len(v.WrappedKey) == 0 || len(v.Ciphertext) == 0 {
		return nil, fmt.Errorf("%w: vault %q: wrapped key and ciphertext are required", common.ErrorValidation, v.Name)
	}

	query := r.dialect.Rebind(
		`INSERT INTO vaults (account_id, name, wrapped_key, ciphertext)
		 VALUES (?, ?, ?, ?)
		 RETURNING id`)

	created := *v
	err := r.db.QueryRowContext(ctx, query, v.AccountID, v.Name, v.WrappedKey, v.Ciphertext).Scan(&created.ID)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: vault %q already exists", common.ErrorDuplicateName, v.Name)
		}
		return nil, fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}
	return &created, nil
}

// List returns the names of the account's vaults ordered by name. An account
// without vaults yields an empty, non-nil slice.
func (r *SQLRepository) List(ctx context.Context, accountID int64) ([]string, error) {
	query := r.dialect.Rebind(
		`SELECT name FROM vaults
		 WHERE account_id = ?
		 ORDER BY name`)

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrorStorage, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}
	return names, nil
}

func (r *SQLRepository) Get(ctx context.Context, accountID int64, name string) (*models.Vault, error) {
	query := r.dialect.Rebind(
		`SELECT id, account_id, name, wrapped_key, ciphertext FROM vaults
		 WHERE account_id = ? AND name = ?`)

	v := &models.Vault{}
	err := r.db.QueryRowContext(ctx, query, accountID, name).
		Scan(&v.ID, &v.AccountID, &v.Name, &v.WrappedKey, &v.Ciphertext)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(name)
		}
		return nil, fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}
	return v, nil
}

func (r *SQLRepository) UpdateCiphertext(ctx context.Context, accountID int64, name string, ciphertext []byte) error {
	if len(ciphertext) == 0 {
		return fmt.Errorf("%w: vault %q: ciphertext is required", common.ErrorValidation, name)
	}

	query := r.dialect.Rebind(
		`UPDATE vaults SET ciphertext = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE account_id = ? AND name = ?`)

	return r.exec(ctx, name, query, ciphertext, accountID, name)
}

func (r *SQLRepository) UpdateWrappedKey(ctx context.Context, accountID int64, name string, wrappedKey []byte) error {
	if len(wrappedKey) == 0 {
		return fmt.Errorf("%w: vault %q: wrapped key is required", common.ErrorValidation, name)
	}

	query := r.dialect.Rebind(
		`UPDATE vaults SET wrapped_key = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE account_id = ? AND name = ?`)

	return r.exec(ctx, name, query, wrappedKey, accountID, name)
}

func (r *SQLRepository) Rename(ctx context.Context, accountID int64, name, newName string) error {
	if err := ValidateName(newName); err != nil {
		return err
	}

	query := r.dialect.Rebind(
		`UPDATE vaults SET name = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE account_id = ? AND name = ?`)

	res, err := r.db.ExecContext(ctx, query, newName, accountID, name)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return fmt.Errorf("%w: vault %q already exists", common.ErrorDuplicateName, newName)
		}
		return fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}
	return expectOne(res, name)
}

func (r *SQLRepository) Delete(ctx context.Context, accountID int64, name string) error {
	query := r.dialect.Rebind(`DELETE FROM vaults WHERE account_id = ? AND name = ?`)
	return r.exec(ctx, name, query, accountID, name)
}

// DeleteAll removes every vault of the account and reports how many rows
// were deleted. Zero is not an error.
func (r *SQLRepository) DeleteAll(ctx context.Context, accountID int64) (int64, error) {
	query := r.dialect.Rebind(`DELETE FROM vaults WHERE account_id = ?`)

	res, err := r.db.ExecContext(ctx, query, accountID)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}
	return n, nil
}

func (r *SQLRepository) exec(ctx context.Context, name, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}
	return expectOne(res, name)
}

func expectOne(res sql.Result, name string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}
	if n == 0 {
		return notFound(name)
	}
	return nil
}

func notFound(name string) error {
	return fmt.Errorf("%w: vault %q", common.ErrorNotFound, name)
}
