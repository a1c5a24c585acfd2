package services

import (
	"context"

	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
)

// ListVaults returns the account's vault names; read-only, no transaction.
func (s *KeeperService) ListVaults(ctx context.Context, accountID int64) ([]string, error) {
	return s.repomanager.Vaults(s.db).List(ctx, accountID)
}

func (s *KeeperService) GetVault(ctx context.Context, accountID int64, name string) (*models.Vault, error) {
	return s.repomanager.Vaults(s.db).Get(ctx, accountID, name)
}

func (s *KeeperService) CreateVault(ctx context.Context, accountID int64, name string, wrappedKey, ciphertext []byte) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Accounts(tx).GetByID(ctx, accountID); err != nil {
			return err
		}
		_, err := s.repomanager.Vaults(tx).Create(ctx, &models.Vault{
			AccountID:  accountID,
			Name:       name,
			WrappedKey: wrappedKey,
			Ciphertext: ciphertext,
		})
		return err
	})
}

func (s *KeeperService) SaveVault(ctx context.Context, accountID int64, name string, ciphertext []byte) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Vaults(tx).UpdateCiphertext(ctx, accountID, name, ciphertext)
	})
}

func (s *KeeperService) UpdateVaultKey(ctx context.Context, accountID int64, name string, wrappedKey []byte) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Vaults(tx).UpdateWrappedKey(ctx, accountID, name, wrappedKey)
	})
}

func (s *KeeperService) RenameVault(ctx context.Context, accountID int64, name, newName string) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Vaults(tx).Rename(ctx, accountID, name, newName)
	})
}

func (s *KeeperService) DeleteVault(ctx context.Context, accountID int64, name string) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Vaults(tx).Delete(ctx, accountID, name)
	})
}
