package session

import (
	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/cryptox"
)

// Associated data keeps a wrapped vault key and vault contents from being
// swapped for one another.
var (
	wrappedKeyAAD = []byte("gophvault/wrapped-key")
	contentsAAD   = []byte("gophvault/vault-contents")
)

type credentials struct {
	dataKey   []byte
	authValue []byte
}

func deriveCredentials(password []byte, email string) (*credentials, error) {
	dataKey, err := cryptox.DeriveDataKey(password, email)
	if err != nil {
		return nil, err
	}
	authValue, err := cryptox.DeriveAuthValue(password, dataKey)
	if err != nil {
		common.WipeByteArray(dataKey)
		return nil, err
	}
	return &credentials{dataKey: dataKey, authValue: authValue}, nil
}

func (c *credentials) wipe() {
	if c == nil {
		return
	}
	common.WipeByteArray(c.dataKey)
	common.WipeByteArray(c.authValue)
}

func wrapKey(vaultKey, dataKey []byte) ([]byte, error) {
	return cryptox.Encrypt(vaultKey, dataKey, wrappedKeyAAD)
}

func unwrapKey(wrapped, dataKey []byte) ([]byte, error) {
	return cryptox.Decrypt(wrapped, dataKey, wrappedKeyAAD)
}

// seal encrypts a serialized store and wipes the plaintext.
func seal(plaintext, vaultKey []byte) ([]byte, error) {
	defer common.WipeByteArray(plaintext)
	return cryptox.Encrypt(plaintext, vaultKey, contentsAAD)
}

func unseal(ciphertext, vaultKey []byte) ([]byte, error) {
	return cryptox.Decrypt(ciphertext, vaultKey, contentsAAD)
}
