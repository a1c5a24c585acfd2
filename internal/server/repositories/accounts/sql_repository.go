// Package accounts persists account records.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
)

// SQLRepository implements Repository for both SQLite and PostgreSQL.
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

func (r *SQLRepository) Create(ctx context.Context, email, authKey string) (*models.Account, error) {
	query := r.dialect.Rebind(
		`INSERT INTO accounts (email, auth_key)
		 VALUES (?, ?)
		 RETURNING id`)

	account := &models.Account{Email: email, AuthKey: authKey}
	err := r.db.QueryRowContext(ctx, query, email, authKey).Scan(&account.ID)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: account with email %s already exists", common.ErrorDuplicateName, email)
		}
		return nil, fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}

	return account, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := r.dialect.Rebind(
		`SELECT id, email, auth_key FROM accounts
		 WHERE id = ?`)

	return r.getOne(ctx, query, id, fmt.Sprintf("account %d", id))
}

func (r *SQLRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := r.dialect.Rebind(
		`SELECT id, email, auth_key FROM accounts
		 WHERE email = ?`)

	return r.getOne(ctx, query, email, "account with email "+email)
}

func (r *SQLRepository) getOne(ctx context.Context, query string, arg any, what string) (*models.Account, error) {
	account := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&account.ID, &account.Email, &account.AuthKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", common.ErrorNotFound, what)
		}
		return nil, fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}
	return account, nil
}

// UpdateEmail replaces email and auth key together; both derive from the
// email, so they never change independently.
func (r *SQLRepository) UpdateEmail(ctx context.Context, id int64, email, authKey string) error {
	query := r.dialect.Rebind(
		`UPDATE accounts SET email = ?, auth_key = ?
		 WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query, email, authKey, id)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return fmt.Errorf("%w: account with email %s already exists", common.ErrorDuplicateName, email)
		}
		return fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}
	return expectOne(res, id)
}

func (r *SQLRepository) UpdateAuthKey(ctx context.Context, id int64, authKey string) error {
	query := r.dialect.Rebind(
		`UPDATE accounts SET auth_key = ?
		 WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query, authKey, id)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}
	return expectOne(res, id)
}

func (r *SQLRepository) Delete(ctx context.Context, id int64) error {
	query := r.dialect.Rebind(`DELETE FROM accounts WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}
	return expectOne(res, id)
}

// expectOne maps "no row matched" to ErrorNotFound. Rows whose value is
// unchanged still count as matched, so no-op updates succeed.
func expectOne(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: account %d", common.ErrorNotFound, id)
	}
	return nil
}
