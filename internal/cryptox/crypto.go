// Package cryptox implements the key hierarchy primitives: password hashing
// for stored credentials, the two domain-separated key derivations, vault
// key generation and AES-256-GCM sealing.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. The derivation parameters are part of the key
// schedule: changing them invalidates every data key in existence.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4

	// KeyLength is the size of every symmetric key and derived value.
	KeyLength = 32
	// NonceLength is the AES-GCM nonce size.
	NonceLength = 12
	// MinSaltLength is the shortest accepted KDF salt (email or data key).
	MinSaltLength = common.MinEmailLength

	hashSaltLength = 16
)

var (
	dataKeyDomain   = []byte("gophvault/data-key\x00")
	authValueDomain = []byte("gophvault/auth-value\x00")
)

var (
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrInvalidKeyLength = errors.New("invalid key length")
	ErrSaltTooShort     = fmt.Errorf("salt must be at least %d bytes", MinSaltLength)
	ErrMalformedHash    = errors.New("malformed password hash")
)

// HashPassword hashes secret with Argon2id and a random salt and returns the
// encoded form "$argon2id$v=19$m=...,t=...,p=...$salt$hash".
func HashPassword(secret []byte) (string, error) {
	salt := make([]byte, hashSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	hash := argon2.IDKey(secret, salt, argonTime, argonMemory, argonThreads, KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword reports whether secret matches encoded. A mismatch is not an
// error; only an unparseable hash is.
func VerifyPassword(secret []byte, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return false, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, ErrMalformedHash
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, ErrMalformedHash
	}
	if memory == 0 || time == 0 || threads == 0 {
		return false, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrMalformedHash
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false, ErrMalformedHash
	}

	got := argon2.IDKey(secret, salt, time, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// GenerateVaultKey returns a fresh random 256-bit vault key.
func GenerateVaultKey() ([]byte, error) {
	key := make([]byte, KeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating vault key: %w", err)
	}
	return key, nil
}

// DeriveDataKey derives the key that wraps vault keys. It never leaves the
// client.
func DeriveDataKey(password []byte, email string) ([]byte, error) {
	if len(email) < MinSaltLength {
		return nil, ErrSaltTooShort
	}
	return derive(password, dataKeyDomain, []byte(email)), nil
}

// DeriveAuthValue derives the value sent to the server for authentication.
// It is salted with the data key, so it reveals nothing about it.
func DeriveAuthValue(password, dataKey []byte) ([]byte, error) {
	if len(dataKey) < MinSaltLength {
		return nil, ErrSaltTooShort
	}
	return derive(password, authValueDomain, dataKey), nil
}

func derive(password, domain, salt []byte) []byte {
	s := make([]byte, 0, len(domain)+len(salt))
	s = append(s, domain...)
	s = append(s, salt...)
	return argon2.IDKey(password, s, argonTime, argonMemory, argonThreads, KeyLength)
}

// Encrypt seals plaintext under key and returns nonce || ciphertext || tag.
func Encrypt(plaintext, key, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, NonceLength, NonceLength+len(plaintext)+gcm.Overhead())
	if _, err := rand.Read(out); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return gcm.Seal(out, out[:NonceLength], plaintext, aad), nil
}

// Decrypt opens data produced by Encrypt. Any failure, including a key of the
// wrong size, yields ErrDecryptionFailed and no plaintext.
func Decrypt(sealed, key, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	if len(sealed) < NonceLength+gcm.Overhead() {
		return nil, ErrDecryptionFailed
	}

	plaintext, err := gcm.Open(nil, sealed[:NonceLength], sealed[NonceLength:], aad)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeyLength {
		return nil, ErrInvalidKeyLength
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
