package client

import (
	"context"

	"github.com/dmitrijs2005/gophvault/internal/protocol"
)

// Client issues protocol commands to the server. Account-scoped methods only
// succeed after Auth on the same client.
type Client interface {
	Register(ctx context.Context, email string, authValue []byte) error
	Auth(ctx context.Context, email string, authValue []byte) (*protocol.Account, error)
	GetVaults(ctx context.Context, accountID int64) ([]string, error)
	GetVault(ctx context.Context, accountID int64, name string) (*protocol.Vault, error)
	CreateVault(ctx context.Context, accountID int64, name string, wrappedKey, ciphertext []byte) error
	SaveVault(ctx context.Context, accountID int64, name string, ciphertext []byte) error
	UpdateVaultKey(ctx context.Context, accountID int64, name string, wrappedKey []byte) error
	RenameVault(ctx context.Context, accountID int64, name, newName string) error
	DeleteVault(ctx context.Context, accountID int64, name string) error
	ChangeEmail(ctx context.Context, accountID int64, newEmail string, newAuthValue []byte) error
	ChangeAuthKey(ctx context.Context, accountID int64, newAuthValue []byte) error
	DeleteAccount(ctx context.Context, accountID int64, authValue []byte) error
	RotateKeys(ctx context.Context, req *protocol.RotateKeys) error
	Ping(ctx context.Context) error
	Close() error
}
