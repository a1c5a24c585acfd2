package session

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophvault/internal/client/vault"
	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/cryptox"
)

func (s *Session) ListVaults(ctx context.Context) ([]string, error) {
	if err := s.requireAccount(); err != nil {
		return nil, err
	}
	names, err := s.client.GetVaults(ctx, s.accountID)
	if err != nil {
		return nil, fmt.Errorf("list vaults: %w", err)
	}
	return names, nil
}

// CreateVault stores a new empty vault under a fresh key. It does not open
// it.
func (s *Session) CreateVault(ctx context.Context, name string) error {
	if err := s.requireAccount(); err != nil {
		return err
	}

	vaultKey, err := cryptox.GenerateVaultKey()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(vaultKey)

	empty, err := emptyContents(ctx)
	if err != nil {
		return err
	}
	ciphertext, err := seal(empty, vaultKey)
	if err != nil {
		return err
	}
	wrapped, err := wrapKey(vaultKey, s.dataKey)
	if err != nil {
		return err
	}

	if err := s.client.CreateVault(ctx, s.accountID, name, wrapped, ciphertext); err != nil {
		return fmt.Errorf("create vault %q: %w", name, err)
	}
	return nil
}

func emptyContents(ctx context.Context) ([]byte, error) {
	store, err := vault.New(ctx)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Dump(ctx)
}

// OpenVault fetches, decrypts and loads the named vault, replacing the one
// currently open. On failure the session keeps its previous state.
func (s *Session) OpenVault(ctx context.Context, name string) error {
	if err := s.requireAccount(); err != nil {
		return err
	}

	v, err := s.client.GetVault(ctx, s.accountID, name)
	if err != nil {
		return fmt.Errorf("open vault %q: %w", name, err)
	}

	vaultKey, err := unwrapKey(v.WrappedKey, s.dataKey)
	if err != nil {
		return fmt.Errorf("open vault %q: %w", name, err)
	}

	store, err := loadContents(ctx, v.Ciphertext, vaultKey)
	if err != nil {
		common.WipeByteArray(vaultKey)
		return fmt.Errorf("open vault %q: %w", name, err)
	}

	// The previous store is released even if closing it reports an error.
	_ = s.closeVault()
	s.vaultName = name
	s.vaultKey = vaultKey
	s.store = store
	return nil
}

func loadContents(ctx context.Context, ciphertext, vaultKey []byte) (*vault.Store, error) {
	plaintext, err := unseal(ciphertext, vaultKey)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(plaintext)
	return vault.Load(ctx, plaintext)
}

// Vault returns the contents of the open vault. Changes stay local until
// SaveVault.
func (s *Session) Vault() (*vault.Store, error) {
	if err := s.require(VaultOpen); err != nil {
		return nil, err
	}
	return s.store, nil
}

func (s *Session) VaultName() string { return s.vaultName }

// SaveVault re-encrypts the open vault with its existing key and uploads it.
func (s *Session) SaveVault(ctx context.Context) error {
	if err := s.require(VaultOpen); err != nil {
		return err
	}

	plaintext, err := s.store.Dump(ctx)
	if err != nil {
		return err
	}
	ciphertext, err := seal(plaintext, s.vaultKey)
	if err != nil {
		return err
	}

	if err := s.client.SaveVault(ctx, s.accountID, s.vaultName, ciphertext); err != nil {
		return fmt.Errorf("save vault %q: %w", s.vaultName, err)
	}
	return nil
}

// CloseVault discards the open vault without saving it.
func (s *Session) CloseVault() error {
	if err := s.require(VaultOpen); err != nil {
		return err
	}
	return s.closeVault()
}

func (s *Session) closeVault() error {
	var err error
	if s.store != nil {
		err = s.store.Close()
	}
	common.WipeByteArray(s.vaultKey)
	s.store = nil
	s.vaultKey = nil
	s.vaultName = ""
	return err
}

// RenameVault renames a vault; the key and contents are untouched.
func (s *Session) RenameVault(ctx context.Context, name, newName string) error {
	if err := s.requireAccount(); err != nil {
		return err
	}
	if err := s.client.RenameVault(ctx, s.accountID, name, newName); err != nil {
		return fmt.Errorf("rename vault %q: %w", name, err)
	}
	if s.store != nil && s.vaultName == name {
		s.vaultName = newName
	}
	return nil
}

// DeleteVault deletes a vault, closing it first if it is the open one.
func (s *Session) DeleteVault(ctx context.Context, name string) error {
	if err := s.requireAccount(); err != nil {
		return err
	}
	if err := s.client.DeleteVault(ctx, s.accountID, name); err != nil {
		return fmt.Errorf("delete vault %q: %w", name, err)
	}
	if s.store != nil && s.vaultName == name {
		return s.closeVault()
	}
	return nil
}
