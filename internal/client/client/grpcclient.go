package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/gophvault/internal/client/config"
	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/protocol"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	conn *grpc.ClientConn

	mu     sync.Mutex
	stream grpc.BidiStreamingClient[protocol.Request, protocol.Response]
	cancel context.CancelFunc
	broken error
	closed bool
}

// NewGRPCClient connects to cfg.ServerEndpointAddr, over TLS when
// cfg.CACertFile is set. The stream is opened on the first call.
func NewGRPCClient(cfg *config.Config) (*GRPCClient, error) {
	creds := insecure.NewCredentials()
	if cfg.CACertFile != "" {
		tlsCreds, err := credentials.NewClientTLSFromFile(cfg.CACertFile, "")
		if err != nil {
			return nil, fmt.Errorf("load CA certificate: %w", err)
		}
		creds = tlsCreds
	}

	conn, err := grpc.NewClient(cfg.ServerEndpointAddr, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// New wraps an existing connection. The client owns conn and closes it.
func New(conn *grpc.ClientConn) *GRPCClient {
	return &GRPCClient{conn: conn}
}

// do sends cmd and waits for its response. Calls are serialized: the
// protocol has one request in flight per stream.
func (c *GRPCClient) do(ctx context.Context, cmd protocol.Command) (*protocol.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req, err := protocol.NewRequest(cmd)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", cmd.Name(), err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	stream, err := c.openLocked()
	if err != nil {
		return nil, err
	}

	// A call cancelled mid-flight leaves the stream out of step, so it ends
	// the stream.
	stop := context.AfterFunc(ctx, c.cancel)
	resp, err := c.exchangeLocked(ctx, stream, &req)
	if !stop() && c.broken == nil {
		c.broken = ctx.Err()
	}
	if err != nil {
		return nil, err
	}

	if resp.Code == protocol.CodeProtocol {
		// The server closes the stream after a protocol failure.
		c.broken = resp.Err()
		c.cancel()
	}
	return resp, resp.Err()
}

func (c *GRPCClient) exchangeLocked(ctx context.Context, stream grpc.BidiStreamingClient[protocol.Request, protocol.Response], req *protocol.Request) (*protocol.Response, error) {
	if err := stream.Send(req); err != nil {
		return nil, c.breakLocked(ctx, recvError(stream, err))
	}
	resp, err := stream.Recv()
	if err != nil {
		return nil, c.breakLocked(ctx, err)
	}
	return resp, nil
}

func (c *GRPCClient) openLocked() (grpc.BidiStreamingClient[protocol.Request, protocol.Response], error) {
	if c.closed {
		return nil, ErrClosed
	}
	if c.broken != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, c.broken)
	}
	if c.stream != nil {
		return c.stream, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := protocol.OpenSession(ctx, c.conn)
	if err != nil {
		cancel()
		return nil, mapError(err)
	}
	c.stream, c.cancel = stream, cancel
	return stream, nil
}

func (c *GRPCClient) breakLocked(ctx context.Context, err error) error {
	c.cancel()
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	} else {
		err = mapError(err)
	}
	c.broken = err
	return err
}

// recvError returns the stream status behind a failed Send; grpc reports it
// only from Recv.
func recvError(stream grpc.BidiStreamingClient[protocol.Request, protocol.Response], err error) error {
	if !errors.Is(err, io.EOF) {
		return err
	}
	if _, rerr := stream.Recv(); rerr != nil {
		return rerr
	}
	return err
}

func mapError(err error) error {
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: stream closed by server", ErrUnavailable)
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrorProtocol, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

func (c *GRPCClient) exec(ctx context.Context, cmd protocol.Command) error {
	_, err := c.do(ctx, cmd)
	return err
}

func (c *GRPCClient) Register(ctx context.Context, email string, authValue []byte) error {
	return c.exec(ctx, &protocol.Register{Email: email, AuthValue: authValue})
}

func (c *GRPCClient) Auth(ctx context.Context, email string, authValue []byte) (*protocol.Account, error) {
	resp, err := c.do(ctx, &protocol.Auth{Email: email, AuthValue: authValue})
	if err != nil {
		return nil, err
	}
	if resp.Account == nil {
		return nil, fmt.Errorf("%w: auth response without account", common.ErrorProtocol)
	}
	return resp.Account, nil
}

func (c *GRPCClient) GetVaults(ctx context.Context, accountID int64) ([]string, error) {
	resp, err := c.do(ctx, &protocol.GetVaults{AccountID: accountID})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Vaults))
	for _, v := range resp.Vaults {
		names = append(names, v.Name)
	}
	return names, nil
}

func (c *GRPCClient) GetVault(ctx context.Context, accountID int64, name string) (*protocol.Vault, error) {
	resp, err := c.do(ctx, &protocol.GetVault{AccountID: accountID, VaultName: name})
	if err != nil {
		return nil, err
	}
	if resp.Vault == nil {
		return nil, fmt.Errorf("%w: get_vault response without vault", common.ErrorProtocol)
	}
	return resp.Vault, nil
}

func (c *GRPCClient) CreateVault(ctx context.Context, accountID int64, name string, wrappedKey, ciphertext []byte) error {
	return c.exec(ctx, &protocol.CreateVault{AccountID: accountID, VaultName: name, WrappedKey: wrappedKey, Ciphertext: ciphertext})
}

func (c *GRPCClient) SaveVault(ctx context.Context, accountID int64, name string, ciphertext []byte) error {
	return c.exec(ctx, &protocol.SaveVault{AccountID: accountID, VaultName: name, Ciphertext: ciphertext})
}

func (c *GRPCClient) UpdateVaultKey(ctx context.Context, accountID int64, name string, wrappedKey []byte) error {
	return c.exec(ctx, &protocol.UpdateVaultKey{AccountID: accountID, VaultName: name, WrappedKey: wrappedKey})
}

func (c *GRPCClient) RenameVault(ctx context.Context, accountID int64, name, newName string) error {
	return c.exec(ctx, &protocol.UpdateVaultName{AccountID: accountID, VaultName: name, NewName: newName})
}

func (c *GRPCClient) DeleteVault(ctx context.Context, accountID int64, name string) error {
	return c.exec(ctx, &protocol.DeleteVault{AccountID: accountID, VaultName: name})
}

func (c *GRPCClient) ChangeEmail(ctx context.Context, accountID int64, newEmail string, newAuthValue []byte) error {
	return c.exec(ctx, &protocol.ChangeEmail{AccountID: accountID, NewEmail: newEmail, NewAuthValue: newAuthValue})
}

func (c *GRPCClient) ChangeAuthKey(ctx context.Context, accountID int64, newAuthValue []byte) error {
	return c.exec(ctx, &protocol.ChangeAuthKey{AccountID: accountID, NewAuthValue: newAuthValue})
}

func (c *GRPCClient) DeleteAccount(ctx context.Context, accountID int64, authValue []byte) error {
	return c.exec(ctx, &protocol.DeleteAccount{AccountID: accountID, AuthValue: authValue})
}

func (c *GRPCClient) RotateKeys(ctx context.Context, req *protocol.RotateKeys) error {
	return c.exec(ctx, req)
}

func (c *GRPCClient) Ping(ctx context.Context) error {
	return c.exec(ctx, &protocol.Ping{})
}

// Close ends the stream and the connection. Further calls return ErrClosed.
func (c *GRPCClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.stream != nil {
		_ = c.stream.CloseSend()
		c.cancel()
		c.stream = nil
	}
	return c.conn.Close()
}
