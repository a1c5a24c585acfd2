// Package client is the client side of the gophvault protocol.
//
// GRPCClient keeps one Session stream open to the server and sends one
// request at a time over it; the server binds the stream to the account that
// authenticated on it. Failed responses come back as errors matching the
// sentinels in the common package (errors.Is), transport failures as
// ErrUnavailable. Once the stream breaks the client stays unusable and a new
// one has to be created and authenticated.
package client
