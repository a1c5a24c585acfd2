// Package clienttest runs a real keeper server over an in-memory listener for
// client-side tests.
package clienttest

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/client/client"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	servergrpc "github.com/dmitrijs2005/gophvault/internal/server/grpc"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/repotest"
	"github.com/dmitrijs2005/gophvault/internal/server/services"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

// Server is a running keeper server backed by a fresh SQLite store.
type Server struct {
	t   testing.TB
	lis *bufconn.Listener
}

func StartServer(t testing.TB) *Server {
	t.Helper()

	db, m := repotest.OpenSQLite(t)
	lis := bufconn.Listen(1 << 20)
	srv := servergrpc.NewGRPCServer("bufnet", "", "", logging.NewNop(), services.NewKeeperService(db, m))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("server did not stop")
		}
	})

	return &Server{t: t, lis: lis}
}

// Dial returns a new client with its own connection and stream. It is closed
// when the test ends.
func (s *Server) Dial() *client.GRPCClient {
	s.t.Helper()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return s.lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(s.t, err)

	c := client.New(conn)
	s.t.Cleanup(func() { _ = c.Close() })
	return c
}
