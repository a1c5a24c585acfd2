package models

// Vault is a server-resident vault record. The server can read neither
// field: WrappedKey is the vault key sealed under the account's data key and
// Ciphertext is the vault contents sealed under the vault key.
type Vault struct {
	ID         int64
	AccountID  int64
	Name       string
	WrappedKey []byte
	Ciphertext []byte
}

// WrappedKeyUpdate pairs a vault name with its re-wrapped key during a key
// rotation.
type WrappedKeyUpdate struct {
	VaultName  string
	WrappedKey []byte
}
