package grpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/protocol"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
	"github.com/dmitrijs2005/gophvault/internal/server/services"
)

// dispatch runs one command and builds its response. Account-scoped commands
// are refused unless the connection authenticated as that account.
func (s *GRPCServer) dispatch(ctx context.Context, c *conn, cmd protocol.Command) *protocol.Response {
	if scoped, ok := cmd.(protocol.Scoped); ok && !c.authorized(scoped.Account()) {
		c.log.Warn(ctx, "unauthorized command", "command", cmd.Name(), "account_id", scoped.Account())
		return protocol.Failure(common.ErrorUnauthorized)
	}

	var (
		resp *protocol.Response
		err  error
	)

	switch cmd := cmd.(type) {
	case *protocol.Register:
		err = s.handleRegister(ctx, cmd)
	case *protocol.Auth:
		resp, err = s.handleAuth(ctx, c, cmd)
	case *protocol.GetVaults:
		resp, err = s.handleGetVaults(ctx, cmd)
	case *protocol.GetVault:
		resp, err = s.handleGetVault(ctx, cmd)
	case *protocol.CreateVault:
		err = s.keeper.CreateVault(ctx, cmd.AccountID, cmd.VaultName, cmd.WrappedKey, cmd.Ciphertext)
	case *protocol.SaveVault:
		err = s.keeper.SaveVault(ctx, cmd.AccountID, cmd.VaultName, cmd.Ciphertext)
	case *protocol.UpdateVaultKey:
		err = s.keeper.UpdateVaultKey(ctx, cmd.AccountID, cmd.VaultName, cmd.WrappedKey)
	case *protocol.UpdateVaultName:
		err = s.keeper.RenameVault(ctx, cmd.AccountID, cmd.VaultName, cmd.NewName)
	case *protocol.DeleteVault:
		err = s.keeper.DeleteVault(ctx, cmd.AccountID, cmd.VaultName)
	case *protocol.ChangeEmail:
		err = s.keeper.ChangeEmail(ctx, cmd.AccountID, cmd.NewEmail, cmd.NewAuthValue)
	case *protocol.ChangeAuthKey:
		err = s.keeper.ChangeAuthKey(ctx, cmd.AccountID, cmd.NewAuthValue)
	case *protocol.DeleteAccount:
		err = s.handleDeleteAccount(ctx, c, cmd)
	case *protocol.RotateKeys:
		err = s.handleRotateKeys(ctx, cmd)
	case *protocol.Ping:
	default:
		err = fmt.Errorf("%w: unhandled command %s", common.ErrorProtocol, cmd.Name())
	}

	if err != nil {
		s.logFailure(ctx, c, cmd, err)
		return protocol.Failure(err)
	}
	if resp == nil {
		resp = protocol.Success()
	}
	return resp
}

func (s *GRPCServer) logFailure(ctx context.Context, c *conn, cmd protocol.Command, err error) {
	switch protocol.Code(err) {
	case protocol.CodeStorage, protocol.CodeInternal:
		c.log.Error(ctx, "command failed", "command", cmd.Name(), "error", err)
	case protocol.CodeInvalidCredentials:
		c.log.Info(ctx, "authentication failed", "command", cmd.Name())
	default:
		c.log.Info(ctx, "command rejected", "command", cmd.Name(), "error", err)
	}
}

func (s *GRPCServer) handleRegister(ctx context.Context, cmd *protocol.Register) error {
	account, err := s.keeper.Register(ctx, cmd.Email, cmd.AuthValue)
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "Registered", "account_id", account.ID)
	return nil
}

// handleAuth binds the connection to the account on success. A failed
// attempt drops any previous binding.
func (s *GRPCServer) handleAuth(ctx context.Context, c *conn, cmd *protocol.Auth) (*protocol.Response, error) {
	account, err := s.keeper.Authenticate(ctx, cmd.Email, cmd.AuthValue)
	if err != nil {
		c.unbind()
		return nil, err
	}

	c.bind(account.ID)
	c.log.Info(ctx, "authenticated", "account_id", account.ID)

	resp := protocol.Success()
	resp.Account = &protocol.Account{ID: account.ID, Email: account.Email}
	return resp, nil
}

func (s *GRPCServer) handleGetVaults(ctx context.Context, cmd *protocol.GetVaults) (*protocol.Response, error) {
	names, err := s.keeper.ListVaults(ctx, cmd.AccountID)
	if err != nil {
		return nil, err
	}

	resp := protocol.Success()
	resp.Vaults = make([]protocol.VaultInfo, 0, len(names))
	for _, name := range names {
		resp.Vaults = append(resp.Vaults, protocol.VaultInfo{Name: name})
	}
	return resp, nil
}

func (s *GRPCServer) handleGetVault(ctx context.Context, cmd *protocol.GetVault) (*protocol.Response, error) {
	v, err := s.keeper.GetVault(ctx, cmd.AccountID, cmd.VaultName)
	if err != nil {
		return nil, err
	}

	resp := protocol.Success()
	resp.Vault = &protocol.Vault{Name: v.Name, WrappedKey: v.WrappedKey, Ciphertext: v.Ciphertext}
	return resp, nil
}

func (s *GRPCServer) handleDeleteAccount(ctx context.Context, c *conn, cmd *protocol.DeleteAccount) error {
	if err := s.keeper.DeleteAccount(ctx, cmd.AccountID, cmd.AuthValue); err != nil {
		return err
	}
	c.unbind()
	c.log.Info(ctx, "account deleted", "account_id", cmd.AccountID)
	return nil
}

func (s *GRPCServer) handleRotateKeys(ctx context.Context, cmd *protocol.RotateKeys) error {
	keys := make([]models.WrappedKeyUpdate, 0, len(cmd.WrappedKeys))
	for _, wk := range cmd.WrappedKeys {
		keys = append(keys, models.WrappedKeyUpdate{VaultName: wk.VaultName, WrappedKey: wk.WrappedKey})
	}

	err := s.keeper.RotateKeys(ctx, services.RotateKeysRequest{
		AccountID:    cmd.AccountID,
		AuthValue:    cmd.AuthValue,
		NewEmail:     cmd.NewEmail,
		NewAuthValue: cmd.NewAuthValue,
		WrappedKeys:  keys,
	})
	if errors.Is(err, common.ErrorStaleVaultList) {
		return fmt.Errorf("%w: retry the rotation", err)
	}
	return err
}
