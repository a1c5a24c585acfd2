package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/protocol"
)

// ChangeMasterPassword re-wraps every vault key under the data key derived
// from newPassword and replaces the account credential, all in one server
// transaction. Vault contents are not re-encrypted.
func (s *Session) ChangeMasterPassword(ctx context.Context, oldPassword, newPassword []byte) error {
	if err := s.requireAccount(); err != nil {
		return err
	}
	return s.rotate(ctx, oldPassword, newPassword, "")
}

// ChangeEmail moves the account to newEmail. The data key depends on the
// email, so this is a full key rotation with the unchanged password.
func (s *Session) ChangeEmail(ctx context.Context, password []byte, newEmail string) error {
	if err := s.requireAccount(); err != nil {
		return err
	}
	if newEmail == "" {
		return fmt.Errorf("%w: new email is empty", common.ErrorValidation)
	}
	return s.rotate(ctx, password, password, newEmail)
}

// rotate stages every re-wrapped vault key locally and commits them with the
// new credential in a single rotate_keys request. Nothing is sent before all
// vaults have been re-wrapped, so a failure leaves the account usable with
// the old password.
func (s *Session) rotate(ctx context.Context, oldPassword, newPassword []byte, newEmail string) error {
	oldCreds, err := deriveCredentials(oldPassword, s.email)
	if err != nil {
		return common.ErrorInvalidCredentials
	}
	defer oldCreds.wipe()

	targetEmail := s.email
	if newEmail != "" {
		targetEmail = newEmail
	}
	newCreds, err := deriveCredentials(newPassword, targetEmail)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorValidation, err)
	}
	committed := false
	defer func() {
		if !committed {
			newCreds.wipe()
		}
	}()

	// A failed auth unbinds the connection on the server side.
	if _, err := s.client.Auth(ctx, s.email, oldCreds.authValue); err != nil {
		if errors.Is(err, common.ErrorInvalidCredentials) {
			_ = s.Logout()
		}
		return fmt.Errorf("re-authenticate: %w", err)
	}

	wrapped, err := s.rewrapAll(ctx, oldCreds.dataKey, newCreds.dataKey)
	if err != nil {
		return err
	}

	req := &protocol.RotateKeys{
		AccountID:    s.accountID,
		AuthValue:    oldCreds.authValue,
		NewEmail:     newEmail,
		NewAuthValue: newCreds.authValue,
		WrappedKeys:  wrapped,
	}
	if err := s.client.RotateKeys(ctx, req); err != nil {
		return fmt.Errorf("rotate keys: %w", err)
	}

	committed = true
	common.WipeByteArray(newCreds.authValue)
	common.WipeByteArray(s.dataKey)
	s.dataKey = newCreds.dataKey
	s.email = targetEmail
	return nil
}

func (s *Session) rewrapAll(ctx context.Context, oldKey, newKey []byte) ([]protocol.WrappedKey, error) {
	names, err := s.client.GetVaults(ctx, s.accountID)
	if err != nil {
		return nil, fmt.Errorf("list vaults: %w", err)
	}

	wrapped := make([]protocol.WrappedKey, 0, len(names))
	for _, name := range names {
		v, err := s.client.GetVault(ctx, s.accountID, name)
		if err != nil {
			return nil, fmt.Errorf("fetch vault %q: %w", name, err)
		}
		rewrapped, err := rewrap(v.WrappedKey, oldKey, newKey)
		if err != nil {
			return nil, fmt.Errorf("re-wrap vault %q: %w", name, err)
		}
		wrapped = append(wrapped, protocol.WrappedKey{VaultName: name, WrappedKey: rewrapped})
	}
	return wrapped, nil
}

func rewrap(wrapped, oldKey, newKey []byte) ([]byte, error) {
	vaultKey, err := unwrapKey(wrapped, oldKey)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(vaultKey)
	return wrapKey(vaultKey, newKey)
}
