// Package grpc serves the vault protocol: one bidirectional Session stream
// per client, each running its own request/response loop.
package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/protocol"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
	"github.com/dmitrijs2005/gophvault/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// Keeper is the business layer the handlers call.
type Keeper interface {
	Register(ctx context.Context, email string, authValue []byte) (*models.Account, error)
	Authenticate(ctx context.Context, email string, authValue []byte) (*models.Account, error)
	ListVaults(ctx context.Context, accountID int64) ([]string, error)
	GetVault(ctx context.Context, accountID int64, name string) (*models.Vault, error)
	CreateVault(ctx context.Context, accountID int64, name string, wrappedKey, ciphertext []byte) error
	SaveVault(ctx context.Context, accountID int64, name string, ciphertext []byte) error
	UpdateVaultKey(ctx context.Context, accountID int64, name string, wrappedKey []byte) error
	RenameVault(ctx context.Context, accountID int64, name, newName string) error
	DeleteVault(ctx context.Context, accountID int64, name string) error
	ChangeEmail(ctx context.Context, accountID int64, newEmail string, newAuthValue []byte) error
	ChangeAuthKey(ctx context.Context, accountID int64, newAuthValue []byte) error
	DeleteAccount(ctx context.Context, accountID int64, authValue []byte) error
	RotateKeys(ctx context.Context, req services.RotateKeysRequest) error
}

var _ Keeper = (*services.KeeperService)(nil)

// shutdownGrace bounds how long Run waits for open sessions after ctx is
// cancelled before closing them forcibly.
var shutdownGrace = 5 * time.Second

type GRPCServer struct {
	address  string
	certFile string
	keyFile  string
	keeper   Keeper
	logger   logging.Logger
}

// NewGRPCServer creates a server for address. TLS is enabled when both
// certFile and keyFile are set.
func NewGRPCServer(address, certFile, keyFile string, l logging.Logger, k Keeper) *GRPCServer {
	return &GRPCServer{
		address:  address,
		certFile: certFile,
		keyFile:  keyFile,
		keeper:   k,
		logger:   l.With("module", "grpc_server"),
	}
}

func (s *GRPCServer) newServer() (*grpc.Server, error) {
	opts := protocol.ServerOptions()
	opts = append(opts, grpc.ChainStreamInterceptor(s.streamInterceptor))

	if s.certFile != "" || s.keyFile != "" {
		creds, err := credentials.NewServerTLSFromFile(s.certFile, s.keyFile)
		if err != nil {
			return nil, fmt.Errorf("load TLS credentials: %w", err)
		}
		opts = append(opts, grpc.Creds(creds))
	}

	srv := grpc.NewServer(opts...)
	protocol.RegisterSessionServer(srv, s)
	return srv, nil
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts sessions on lis until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv, err := s.newServer()
	if err != nil {
		_ = lis.Close()
		return err
	}

	served := make(chan struct{})
	defer close(served)

	go func() {
		select {
		case <-ctx.Done():
		case <-served:
			return
		}
		// Both may be ready at once; a finished Serve wins.
		select {
		case <-served:
			return
		default:
		}
		s.logger.Info(ctx, "Stopping gRPC server...")

		stopped := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(stopped)
		}()

		select {
		case <-stopped:
		case <-time.After(shutdownGrace):
			s.logger.Warn(ctx, "Closing open sessions")
			srv.Stop()
		}
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String(), "tls", s.certFile != "")

	return srv.Serve(lis)
}
