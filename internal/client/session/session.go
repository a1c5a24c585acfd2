package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophvault/internal/client/client"
	"github.com/dmitrijs2005/gophvault/internal/client/vault"
	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/protocol"
)

type State int

const (
	Anonymous State = iota
	Authenticated
	VaultOpen
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	case VaultOpen:
		return "vault_open"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var ErrInvalidState = errors.New("operation not allowed in the current session state")

type Session struct {
	client client.Client

	accountID int64
	email     string
	dataKey   []byte

	vaultName string
	vaultKey  []byte
	store     *vault.Store
}

func New(c client.Client) *Session {
	return &Session{client: c}
}

func (s *Session) State() State {
	switch {
	case s.store != nil:
		return VaultOpen
	case s.dataKey != nil:
		return Authenticated
	default:
		return Anonymous
	}
}

func (s *Session) AccountID() int64 { return s.accountID }
func (s *Session) Email() string    { return s.email }

func (s *Session) require(states ...State) error {
	current := s.State()
	for _, st := range states {
		if st == current {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidState, current)
}

func (s *Session) requireAccount() error {
	return s.require(Authenticated, VaultOpen)
}

// Register creates the account and authenticates as it.
func (s *Session) Register(ctx context.Context, email string, password []byte) (*protocol.Account, error) {
	if err := s.require(Anonymous); err != nil {
		return nil, err
	}

	creds, err := deriveCredentials(password, email)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorValidation, err)
	}

	if err := s.client.Register(ctx, email, creds.authValue); err != nil {
		creds.wipe()
		return nil, fmt.Errorf("register: %w", err)
	}
	return s.login(ctx, email, creds)
}

// Authenticate logs in. Unknown email and wrong password are not told apart.
func (s *Session) Authenticate(ctx context.Context, email string, password []byte) (*protocol.Account, error) {
	if err := s.require(Anonymous); err != nil {
		return nil, err
	}

	creds, err := deriveCredentials(password, email)
	if err != nil {
		// Too short to be registered.
		return nil, common.ErrorInvalidCredentials
	}
	return s.login(ctx, email, creds)
}

func (s *Session) login(ctx context.Context, email string, creds *credentials) (*protocol.Account, error) {
	account, err := s.client.Auth(ctx, email, creds.authValue)
	common.WipeByteArray(creds.authValue)
	if err != nil {
		common.WipeByteArray(creds.dataKey)
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	s.accountID = account.ID
	s.email = account.Email
	s.dataKey = creds.dataKey
	return account, nil
}

// DeleteAccount removes the account and all its vaults after the server has
// re-verified password. The session ends anonymous.
func (s *Session) DeleteAccount(ctx context.Context, password []byte) error {
	if err := s.requireAccount(); err != nil {
		return err
	}

	creds, err := deriveCredentials(password, s.email)
	if err != nil {
		return common.ErrorInvalidCredentials
	}
	defer creds.wipe()

	if err := s.client.DeleteAccount(ctx, s.accountID, creds.authValue); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return s.Logout()
}

// Logout closes the open vault and forgets every key. The connection stays
// open but the server still considers it bound until the next auth.
func (s *Session) Logout() error {
	err := s.closeVault()
	common.WipeByteArray(s.dataKey)
	s.dataKey = nil
	s.accountID = 0
	s.email = ""
	return err
}

// Close logs out and closes the client.
func (s *Session) Close() error {
	return errors.Join(s.Logout(), s.client.Close())
}
