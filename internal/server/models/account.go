// Package models defines server-side records persisted in the database.
package models

// Account is a registered user. AuthKey is an encoded Argon2id hash of the
// client's derived auth value, never of the master password itself.
type Account struct {
	ID      int64
	Email   string
	AuthKey string
}
