package vaults

import (
	"context"

	"github.com/dmitrijs2005/gophvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, v *models.Vault) (*models.Vault, error)
	List(ctx context.Context, accountID int64) ([]string, error)
	Get(ctx context.Context, accountID int64, name string) (*models.Vault, error)
	UpdateCiphertext(ctx context.Context, accountID int64, name string, ciphertext []byte) error
	UpdateWrappedKey(ctx context.Context, accountID int64, name string, wrappedKey []byte) error
	Rename(ctx context.Context, accountID int64, name, newName string) error
	Delete(ctx context.Context, accountID int64, name string) error
	DeleteAll(ctx context.Context, accountID int64) (int64, error)
}
