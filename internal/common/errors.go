// Package common defines shared constants and sentinel errors used across
// client and server layers of GophVault. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorDuplicateName = errors.New("duplicate name")
	ErrorStorage       = errors.New("storage error")

	// Service-level errors.
	ErrorInternal           = errors.New("internal error")
	ErrorInvalidCredentials = errors.New("invalid credentials")
	ErrorUnauthorized       = errors.New("unauthorized")
	ErrorValidation         = errors.New("validation error")

	// ErrorStaleVaultList is returned when a key rotation does not cover
	// exactly the vaults the account currently owns.
	ErrorStaleVaultList = errors.New("vault list changed during key rotation")

	// Protocol errors terminate the connection.
	ErrorProtocol = errors.New("protocol error")
)
