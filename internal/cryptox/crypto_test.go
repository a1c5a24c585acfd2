package cryptox

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_VerifyRoundTrip(t *testing.T) {
	hash, err := HashPassword([]byte("secret-value"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=4$"))

	ok, err := VerifyPassword([]byte("secret-value"), hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword([]byte("other-value"), hash)
	require.NoError(t, err, "mismatch must not be an error")
	assert.False(t, ok)
}

func TestHashPassword_SaltedPerCall(t *testing.T) {
	a, err := HashPassword([]byte("same"))
	require.NoError(t, err)
	b, err := HashPassword([]byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyPassword_Malformed(t *testing.T) {
	for _, h := range []string{
		"",
		"plain",
		"$argon2i$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=x,t=3,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=4$!!!$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$",
	} {
		_, err := VerifyPassword([]byte("x"), h)
		assert.ErrorIs(t, err, ErrMalformedHash, "hash %q", h)
	}
}

func TestDeriveDataKey_Deterministic(t *testing.T) {
	k1, err := DeriveDataKey([]byte("password"), "alice@example.com")
	require.NoError(t, err)
	k2, err := DeriveDataKey([]byte("password"), "alice@example.com")
	require.NoError(t, err)

	assert.Len(t, k1, KeyLength)
	assert.Equal(t, k1, k2)
}

func TestDeriveDataKey_DependsOnEmailAndPassword(t *testing.T) {
	base, err := DeriveDataKey([]byte("password"), "alice@example.com")
	require.NoError(t, err)

	otherEmail, err := DeriveDataKey([]byte("password"), "bob@example.com")
	require.NoError(t, err)
	otherPassword, err := DeriveDataKey([]byte("password2"), "alice@example.com")
	require.NoError(t, err)

	assert.NotEqual(t, base, otherEmail)
	assert.NotEqual(t, base, otherPassword)
}

func TestDeriveDataKey_ShortSalt(t *testing.T) {
	_, err := DeriveDataKey([]byte("password"), "a@b.c")
	require.ErrorIs(t, err, ErrSaltTooShort)

	_, err = DeriveAuthValue([]byte("password"), []byte("short"))
	require.ErrorIs(t, err, ErrSaltTooShort)
}

func TestDerivedValues_Independent(t *testing.T) {
	password := []byte("correct horse battery staple")
	dataKey, err := DeriveDataKey(password, "alice@example.com")
	require.NoError(t, err)
	authValue, err := DeriveAuthValue(password, dataKey)
	require.NoError(t, err)

	assert.NotEqual(t, dataKey, authValue)

	// Same bytes under the two domains must not collide either.
	direct := derive(password, dataKeyDomain, dataKey)
	assert.NotEqual(t, direct, authValue)

	hash, err := HashPassword(authValue)
	require.NoError(t, err)
	assert.NotContains(t, hash, string(dataKey))
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key, err := GenerateVaultKey()
	require.NoError(t, err)

	for _, pt := range [][]byte{nil, []byte("x"), bytes.Repeat([]byte("data"), 4096)} {
		sealed, err := Encrypt(pt, key, nil)
		require.NoError(t, err)
		assert.Len(t, sealed, NonceLength+len(pt)+16)

		got, err := Decrypt(sealed, key, nil)
		require.NoError(t, err)
		assert.Equal(t, len(pt), len(got))
		assert.True(t, bytes.Equal(pt, got))
	}
}

func TestEncrypt_FreshNonce(t *testing.T) {
	key, err := GenerateVaultKey()
	require.NoError(t, err)

	a, err := Encrypt([]byte("same"), key, nil)
	require.NoError(t, err)
	b, err := Encrypt([]byte("same"), key, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a[:NonceLength], b[:NonceLength])
}

func TestDecrypt_FailsClosed(t *testing.T) {
	key, err := GenerateVaultKey()
	require.NoError(t, err)
	other, err := GenerateVaultKey()
	require.NoError(t, err)

	sealed, err := Encrypt([]byte("payload"), key, []byte("aad"))
	require.NoError(t, err)

	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 0x01

	cases := map[string]struct {
		data []byte
		key  []byte
		aad  []byte
	}{
		"wrong key": {sealed, other, []byte("aad")},
		"wrong aad": {sealed, key, []byte("other")},
		"tampered":  {tampered, key, []byte("aad")},
		"truncated": {sealed[:NonceLength+4], key, []byte("aad")},
		"empty":     {nil, key, []byte("aad")},
		"short key": {sealed, key[:16], []byte("aad")},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			pt, err := Decrypt(tc.data, tc.key, tc.aad)
			require.ErrorIs(t, err, ErrDecryptionFailed)
			assert.Nil(t, pt)
		})
	}
}

func TestEncrypt_InvalidKey(t *testing.T) {
	_, err := Encrypt([]byte("x"), []byte("short"), nil)
	require.ErrorIs(t, err, ErrInvalidKeyLength)
}
