package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/cryptox"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
)

// Register stores a new account with the hash of its auth value.
func (s *KeeperService) Register(ctx context.Context, email string, authValue []byte) (*models.Account, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	authKey, err := hashAuthValue(authValue)
	if err != nil {
		return nil, err
	}

	var account *models.Account
	err = s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		account, err = s.repomanager.Accounts(tx).Create(ctx, email, authKey)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Authenticate returns the account when authValue matches. Unknown emails and
// wrong values both yield ErrorInvalidCredentials after the same amount of
// hashing work.
func (s *KeeperService) Authenticate(ctx context.Context, email string, authValue []byte) (*models.Account, error) {
	// Rejected before the lookup so that the answer does not depend on
	// whether the email exists.
	if len(authValue) != cryptox.KeyLength {
		return nil, common.ErrorInvalidCredentials
	}

	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, email)
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

// VerifyAuth checks authValue against the stored credential of accountID.
func (s *KeeperService) VerifyAuth(ctx context.Context, accountID int64, authValue []byte) error {
	_, err := s.verifyAccount(ctx, accountID, authValue)
	return err
}

// ChangeEmail replaces the email and the credential together, since the data
// key and therefore the auth value depend on the email.
func (s *KeeperService) ChangeEmail(ctx context.Context, accountID int64, newEmail string, newAuthValue []byte) error {
	if err := validateEmail(newEmail); err != nil {
		return err
	}
	authKey, err := hashAuthValue(newAuthValue)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Accounts(tx).UpdateEmail(ctx, accountID, newEmail, authKey)
	})
}

func (s *KeeperService) ChangeAuthKey(ctx context.Context, accountID int64, newAuthValue []byte) error {
	authKey, err := hashAuthValue(newAuthValue)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Accounts(tx).UpdateAuthKey(ctx, accountID, authKey)
	})
}

// DeleteAccount re-verifies authValue, then removes the account's vaults and
// the account itself in one transaction.
func (s *KeeperService) DeleteAccount(ctx context.Context, accountID int64, authValue []byte) error {
	verified, err := s.verifyAccount(ctx, accountID, authValue)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.stillCurrent(ctx, tx, verified); err != nil {
			return err
		}
		if _, err := s.repomanager.Vaults(tx).DeleteAll(ctx, accountID); err != nil {
			return err
		}
		return s.repomanager.Accounts(tx).Delete(ctx, accountID)
	})
}

// RotateKeysRequest carries a complete, client-staged key rotation.
type RotateKeysRequest struct {
	AccountID    int64
	AuthValue    []byte
	NewEmail     string // empty keeps the current email
	NewAuthValue []byte
	WrappedKeys  []models.WrappedKeyUpdate
}

// RotateKeys applies every re-wrapped vault key and the new credential in one
// transaction. The request must cover exactly the account's current vaults;
// otherwise nothing changes and ErrorStaleVaultList is returned.
func (s *KeeperService) RotateKeys(ctx context.Context, req RotateKeysRequest) error {
	if req.NewEmail != "" {
		if err := validateEmail(req.NewEmail); err != nil {
			return err
		}
	}
	seen := make(map[string]struct{}, len(req.WrappedKeys))
	for _, wk := range req.WrappedKeys {
		if _, dup := seen[wk.VaultName]; dup {
			return fmt.Errorf("%w: vault %q listed twice", common.ErrorValidation, wk.VaultName)
		}
		if len(wk.WrappedKey) == 0 {
			return fmt.Errorf("%w: vault %q: wrapped key is required", common.ErrorValidation, wk.VaultName)
		}
		seen[wk.VaultName] = struct{}{}
	}

	verified, err := s.verifyAccount(ctx, req.AccountID, req.AuthValue)
	if err != nil {
		return err
	}
	authKey, err := hashAuthValue(req.NewAuthValue)
	if err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, s.repomanager.RotationTxOptions(), func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.stillCurrent(ctx, tx, verified); err != nil {
			return err
		}

		vaults := s.repomanager.Vaults(tx)
		names, err := vaults.List(ctx, req.AccountID)
		if err != nil {
			return err
		}
		if len(names) != len(seen) {
			return common.ErrorStaleVaultList
		}
		for _, name := range names {
			if _, ok := seen[name]; !ok {
				return common.ErrorStaleVaultList
			}
		}

		for _, wk := range req.WrappedKeys {
			if err := vaults.UpdateWrappedKey(ctx, req.AccountID, wk.VaultName, wk.WrappedKey); err != nil {
				return err
			}
		}

		accounts := s.repomanager.Accounts(tx)
		if req.NewEmail != "" {
			return accounts.UpdateEmail(ctx, req.AccountID, req.NewEmail, authKey)
		}
		return accounts.UpdateAuthKey(ctx, req.AccountID, authKey)
	})
}
