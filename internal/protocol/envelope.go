// Package protocol defines the wire protocol between clients and the server:
// request and response envelopes, the closed set of commands, the mapping of
// failures to wire codes and the gRPC stream that carries them.
package protocol

import "github.com/dmitrijs2005/gophvault/internal/codec"

// Request is the envelope of every client message. Body holds the CBOR map of
// the command's fields and is decoded by Parse.
type Request struct {
	Command string           `cbor:"command"`
	Body    codec.RawMessage `cbor:"body,omitempty"`
}

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Response is the envelope of every server message. Exactly one of the
// payload fields is set on success, depending on the command.
type Response struct {
	Status  Status      `cbor:"status"`
	Error   string      `cbor:"error,omitempty"`
	Code    ErrorCode   `cbor:"code,omitempty"`
	Account *Account    `cbor:"account,omitempty"`
	Vaults  []VaultInfo `cbor:"vaults,omitempty"`
	Vault   *Vault      `cbor:"vault,omitempty"`
}

// Account is the account record returned by auth. The stored credential
// hash is never sent back.
type Account struct {
	ID    int64  `cbor:"id"`
	Email string `cbor:"email"`
}

type VaultInfo struct {
	Name string `cbor:"name"`
}

type Vault struct {
	Name       string `cbor:"name"`
	WrappedKey []byte `cbor:"wrapped_key"`
	Ciphertext []byte `cbor:"ciphertext"`
}

func Success() *Response {
	return &Response{Status: StatusSuccess}
}

// Failure builds a failed response carrying the wire code of err.
func Failure(err error) *Response {
	code := Code(err)
	return &Response{Status: StatusFailed, Code: code, Error: Message(code, err)}
}
