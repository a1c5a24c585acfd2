package protocol

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophvault/internal/common"
)

// ErrorCode is the machine-readable failure class of a response.
type ErrorCode string

const (
	CodeInvalidCredentials ErrorCode = "invalid_credentials"
	CodeNotFound           ErrorCode = "not_found"
	CodeDuplicateName      ErrorCode = "duplicate_name"
	CodeValidation         ErrorCode = "validation"
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeStorage            ErrorCode = "storage"
	CodeProtocol           ErrorCode = "protocol"
	CodeStaleVaultList     ErrorCode = "stale_vault_list"
	CodeInternal           ErrorCode = "internal"
)

// codes is ordered: the first matching sentinel wins, so an empty vault
// name (both duplicate and validation) reports duplicate_name.
var codes = []struct {
	err  error
	code ErrorCode
}{
	{common.ErrorProtocol, CodeProtocol},
	{common.ErrorInvalidCredentials, CodeInvalidCredentials},
	{common.ErrorUnauthorized, CodeUnauthorized},
	{common.ErrorStaleVaultList, CodeStaleVaultList},
	{common.ErrorDuplicateName, CodeDuplicateName},
	{common.ErrorNotFound, CodeNotFound},
	{common.ErrorValidation, CodeValidation},
	{common.ErrorStorage, CodeStorage},
	{common.ErrorInternal, CodeInternal},
}

func Code(err error) ErrorCode {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// Message is the text sent to the client for err. Credential and internal
// failures are reported generically; the rest carry their diagnostic detail.
func Message(code ErrorCode, err error) string {
	switch code {
	case CodeInvalidCredentials:
		return common.ErrorInvalidCredentials.Error()
	case CodeInternal:
		return common.ErrorInternal.Error()
	default:
		return err.Error()
	}
}

// Err converts a failed response back into an error matching the sentinel of
// its code.
func (r *Response) Err() error {
	if r.Status == StatusSuccess {
		return nil
	}
	sentinel := common.ErrorInternal
	for _, c := range codes {
		if c.code == r.Code {
			sentinel = c.err
			break
		}
	}
	if r.Error == "" || r.Error == sentinel.Error() {
		return sentinel
	}
	return &RemoteError{Code: r.Code, Message: r.Error, sentinel: sentinel}
}

// RemoteError is a failure reported by the server.
type RemoteError struct {
	Code     ErrorCode
	Message  string
	sentinel error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("server: %s", e.Message)
}

func (e *RemoteError) Unwrap() error { return e.sentinel }
