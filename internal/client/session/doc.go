// Package session is the client side of the key hierarchy. A Session derives
// the data key and auth value from the master password, talks to the server
// through a client.Client and owns the decrypt, mutate, encrypt and save
// cycle of one open vault at a time.
//
// States:
//
//	Anonymous --Register/Authenticate--> Authenticated --OpenVault--> VaultOpen
//	    ^                                     |  ^                      |
//	    +------------Logout/DeleteAccount-----+  +------CloseVault------+
//
// Operations called in the wrong state fail with ErrInvalidState. Key
// material held by the session is wiped on Logout, Close and whenever it is
// replaced. A Session is not safe for concurrent use.
package session
