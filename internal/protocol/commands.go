package protocol

// Command is one decoded request. The set of implementations is closed:
// Parse only ever returns the types declared in this file.
type Command interface {
	Name() string
	command()
}

// Scoped is implemented by commands that act on one account. The server only
// runs them for the account its connection authenticated as.
type Scoped interface {
	Command
	Account() int64
}

const (
	CmdRegister        = "register"
	CmdAuth            = "auth"
	CmdGetVaults       = "get_vaults"
	CmdGetVault        = "get_vault"
	CmdCreateVault     = "create_vault"
	CmdSaveVault       = "save_vault"
	CmdUpdateVaultKey  = "update_vault_key"
	CmdUpdateVaultName = "update_vault_name"
	CmdDeleteVault     = "delete_vault"
	CmdChangeEmail     = "change_email"
	CmdChangeAuthKey   = "change_auth_key"
	CmdDeleteAccount   = "delete_account"
	CmdRotateKeys      = "rotate_keys"
	CmdPing            = "ping"
)

type Register struct {
	Email     string `cbor:"email"`
	AuthValue []byte `cbor:"auth_value"`
}

type Auth struct {
	Email     string `cbor:"email"`
	AuthValue []byte `cbor:"auth_value"`
}

type GetVaults struct {
	AccountID int64 `cbor:"account_id"`
}

type GetVault struct {
	AccountID int64  `cbor:"account_id"`
	VaultName string `cbor:"vault_name"`
}

type CreateVault struct {
	AccountID  int64  `cbor:"account_id"`
	VaultName  string `cbor:"vault_name"`
	WrappedKey []byte `cbor:"wrapped_key"`
	Ciphertext []byte `cbor:"ciphertext"`
}

type SaveVault struct {
	AccountID  int64  `cbor:"account_id"`
	VaultName  string `cbor:"vault_name"`
	Ciphertext []byte `cbor:"ciphertext"`
}

type UpdateVaultKey struct {
	AccountID  int64  `cbor:"account_id"`
	VaultName  string `cbor:"vault_name"`
	WrappedKey []byte `cbor:"wrapped_key"`
}

type UpdateVaultName struct {
	AccountID int64  `cbor:"account_id"`
	VaultName string `cbor:"vault_name"`
	NewName   string `cbor:"new_name"`
}

type DeleteVault struct {
	AccountID int64  `cbor:"account_id"`
	VaultName string `cbor:"vault_name"`
}

type ChangeEmail struct {
	AccountID    int64  `cbor:"account_id"`
	NewEmail     string `cbor:"new_email"`
	NewAuthValue []byte `cbor:"new_auth_value"`
}

type ChangeAuthKey struct {
	AccountID    int64  `cbor:"account_id"`
	NewAuthValue []byte `cbor:"new_auth_value"`
}

type DeleteAccount struct {
	AccountID int64  `cbor:"account_id"`
	AuthValue []byte `cbor:"auth_value"`
}

// WrappedKey is one re-wrapped vault key inside a RotateKeys request.
type WrappedKey struct {
	VaultName  string `cbor:"vault_name"`
	WrappedKey []byte `cbor:"wrapped_key"`
}

// RotateKeys replaces every vault's wrapped key and the account credential
// (and optionally the email) in one step.
type RotateKeys struct {
	AccountID    int64        `cbor:"account_id"`
	AuthValue    []byte       `cbor:"auth_value"`
	NewEmail     string       `cbor:"new_email,omitempty"`
	NewAuthValue []byte       `cbor:"new_auth_value"`
	WrappedKeys  []WrappedKey `cbor:"wrapped_keys"`
}

type Ping struct{}

func (*Register) Name() string        { return CmdRegister }
func (*Auth) Name() string            { return CmdAuth }
func (*GetVaults) Name() string       { return CmdGetVaults }
func (*GetVault) Name() string        { return CmdGetVault }
func (*CreateVault) Name() string     { return CmdCreateVault }
func (*SaveVault) Name() string       { return CmdSaveVault }
func (*UpdateVaultKey) Name() string  { return CmdUpdateVaultKey }
func (*UpdateVaultName) Name() string { return CmdUpdateVaultName }
func (*DeleteVault) Name() string     { return CmdDeleteVault }
func (*ChangeEmail) Name() string     { return CmdChangeEmail }
func (*ChangeAuthKey) Name() string   { return CmdChangeAuthKey }
func (*DeleteAccount) Name() string   { return CmdDeleteAccount }
func (*RotateKeys) Name() string      { return CmdRotateKeys }
func (*Ping) Name() string            { return CmdPing }

func (*Register) command()        {}
func (*Auth) command()            {}
func (*GetVaults) command()       {}
func (*GetVault) command()        {}
func (*CreateVault) command()     {}
func (*SaveVault) command()       {}
func (*UpdateVaultKey) command()  {}
func (*UpdateVaultName) command() {}
func (*DeleteVault) command()     {}
func (*ChangeEmail) command()     {}
func (*ChangeAuthKey) command()   {}
func (*DeleteAccount) command()   {}
func (*RotateKeys) command()      {}
func (*Ping) command()            {}

func (c *GetVaults) Account() int64       { return c.AccountID }
func (c *GetVault) Account() int64        { return c.AccountID }
func (c *CreateVault) Account() int64     { return c.AccountID }
func (c *SaveVault) Account() int64       { return c.AccountID }
func (c *UpdateVaultKey) Account() int64  { return c.AccountID }
func (c *UpdateVaultName) Account() int64 { return c.AccountID }
func (c *DeleteVault) Account() int64     { return c.AccountID }
func (c *ChangeEmail) Account() int64     { return c.AccountID }
func (c *ChangeAuthKey) Account() int64   { return c.AccountID }
func (c *DeleteAccount) Account() int64   { return c.AccountID }
func (c *RotateKeys) Account() int64      { return c.AccountID }
