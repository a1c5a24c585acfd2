package protocol

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophvault/internal/codec"
	"github.com/dmitrijs2005/gophvault/internal/common"
)

var (
	ErrUnknownCommand = fmt.Errorf("%w: unknown command", common.ErrorProtocol)
	ErrMalformed      = fmt.Errorf("%w: malformed request", common.ErrorProtocol)
)

type commandSpec struct {
	new      func() Command
	required []string
}

var commands = map[string]commandSpec{
	CmdRegister:        {func() Command { return &Register{} }, []string{"email", "auth_value"}},
	CmdAuth:            {func() Command { return &Auth{} }, []string{"email", "auth_value"}},
	CmdGetVaults:       {func() Command { return &GetVaults{} }, []string{"account_id"}},
	CmdGetVault:        {func() Command { return &GetVault{} }, []string{"account_id", "vault_name"}},
	CmdCreateVault:     {func() Command { return &CreateVault{} }, []string{"account_id", "vault_name", "wrapped_key", "ciphertext"}},
	CmdSaveVault:       {func() Command { return &SaveVault{} }, []string{"account_id", "vault_name", "ciphertext"}},
	CmdUpdateVaultKey:  {func() Command { return &UpdateVaultKey{} }, []string{"account_id", "vault_name", "wrapped_key"}},
	CmdUpdateVaultName: {func() Command { return &UpdateVaultName{} }, []string{"account_id", "vault_name", "new_name"}},
	CmdDeleteVault:     {func() Command { return &DeleteVault{} }, []string{"account_id", "vault_name"}},
	CmdChangeEmail:     {func() Command { return &ChangeEmail{} }, []string{"account_id", "new_email", "new_auth_value"}},
	CmdChangeAuthKey:   {func() Command { return &ChangeAuthKey{} }, []string{"account_id", "new_auth_value"}},
	CmdDeleteAccount:   {func() Command { return &DeleteAccount{} }, []string{"account_id", "auth_value"}},
	CmdRotateKeys:      {func() Command { return &RotateKeys{} }, []string{"account_id", "auth_value", "new_auth_value", "wrapped_keys"}},
	CmdPing:            {func() Command { return &Ping{} }, nil},
}

// Parse decodes the body of req into the command it names. Every required
// field must be present; unknown fields, duplicate keys and mistyped values
// are rejected. All failures wrap common.ErrorProtocol.
func Parse(req Request) (Command, error) {
	spec, ok := commands[req.Command]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownCommand, req.Command)
	}

	cmd := spec.new()
	if len(req.Body) == 0 && len(spec.required) == 0 {
		return cmd, nil
	}

	var fields map[string]codec.RawMessage
	if err := codec.Unmarshal(req.Body, &fields); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, req.Command, err)
	}
	for _, name := range spec.required {
		if _, ok := fields[name]; !ok {
			return nil, fmt.Errorf("%w: %s: missing field %q", ErrMalformed, req.Command, name)
		}
	}

	if err := codec.Unmarshal(req.Body, cmd); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, req.Command, err)
	}
	return cmd, nil
}

// DecodeRequest strictly decodes a request envelope. Failures wrap
// ErrMalformed.
func DecodeRequest(frame []byte) (Request, error) {
	var req Request
	if err := codec.Unmarshal(frame, &req); err != nil {
		return Request{}, fmt.Errorf("%w: envelope: %w", ErrMalformed, err)
	}
	return req, nil
}

// NewRequest encodes cmd into a request envelope.
func NewRequest(cmd Command) (Request, error) {
	body, err := codec.Marshal(cmd)
	if err != nil {
		return Request{}, err
	}
	return Request{Command: cmd.Name(), Body: body}, nil
}

// IsProtocolError reports whether err must terminate the connection.
func IsProtocolError(err error) bool {
	return errors.Is(err, common.ErrorProtocol)
}
