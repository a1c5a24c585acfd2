// Package services contains server-side business logic. KeeperService owns
// every account and vault operation; each mutating method runs in its own
// transaction and reports failures as common sentinel errors.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/cryptox"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/repomanager"
)

type KeeperService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager

	dummyOnce sync.Once
	dummyHash string
}

func NewKeeperService(db *sql.DB, m repomanager.RepositoryManager) *KeeperService {
	return &KeeperService{db: db, repomanager: m}
}

func (s *KeeperService) withTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return dbx.WithTx(ctx, s.db, nil, fn)
}

func validateEmail(email string) error {
	if len(email) < common.MinEmailLength {
		return fmt.Errorf("%w: email must be at least %d bytes", common.ErrorValidation, common.MinEmailLength)
	}
	if len(email) > common.MaxEmailLength {
		return fmt.Errorf("%w: email longer than %d bytes", common.ErrorValidation, common.MaxEmailLength)
	}
	return nil
}

func validateAuthValue(v []byte) error {
	if len(v) != cryptox.KeyLength {
		return fmt.Errorf("%w: auth value must be %d bytes", common.ErrorValidation, cryptox.KeyLength)
	}
	return nil
}

func hashAuthValue(v []byte) (string, error) {
	if err := validateAuthValue(v); err != nil {
		return "", err
	}
	h, err := cryptox.HashPassword(v)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	return h, nil
}

// checkAuth compares authValue with the account's stored hash. Any mismatch,
// including a malformed candidate, is ErrorInvalidCredentials.
func checkAuth(account *models.Account, authValue []byte) error {
	if len(authValue) != cryptox.KeyLength {
		return common.ErrorInvalidCredentials
	}
	ok, err := cryptox.VerifyPassword(authValue, account.AuthKey)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	if !ok {
		return common.ErrorInvalidCredentials
	}
	return nil
}

// burnVerify spends the same work as a real verification so that a lookup of
// an unknown email takes as long as a wrong password.
func (s *KeeperService) burnVerify(authValue []byte) {
	s.dummyOnce.Do(func() {
		h, err := cryptox.HashPassword(common.GenerateRandByteArray(cryptox.KeyLength))
		if err == nil {
			s.dummyHash = h
		}
	})
	if s.dummyHash != "" {
		_, _ = cryptox.VerifyPassword(authValue, s.dummyHash)
	}
}

// verifyAccount loads the account and checks authValue outside any
// transaction. The returned hash must be re-checked inside the transaction
// that acts on it with stillCurrent.
func (s *KeeperService) verifyAccount(ctx context.Context, accountID int64, authValue []byte) (*models.Account, error) {
	if len(authValue) != cryptox.KeyLength {
		return nil, common.ErrorInvalidCredentials
	}
	account, err := s.repomanager.Accounts(s.db).GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.burnVerify(authValue)
			return nil, common.ErrorInvalidCredentials
		}
		return nil, err
	}
	if err := checkAuth(account, authValue); err != nil {
		return nil, err
	}
	return account, nil
}

// stillCurrent fails when the account's credential changed after it was
// verified.
func (s *KeeperService) stillCurrent(ctx context.Context, tx dbx.DBTX, verified *models.Account) error {
	account, err := s.repomanager.Accounts(tx).GetByID(ctx, verified.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorInvalidCredentials
		}
		return err
	}
	if account.AuthKey != verified.AuthKey {
		return common.ErrorInvalidCredentials
	}
	return nil
}
