package grpc

import (
	"context"
	"errors"
	"io"

	"github.com/dmitrijs2005/gophvault/internal/codec"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/protocol"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// conn is the per-stream state. It is owned by the stream's goroutine.
type conn struct {
	id        string
	accountID int64
	log       logging.Logger
}

func (c *conn) bind(accountID int64) { c.accountID = accountID }
func (c *conn) unbind()              { c.accountID = 0 }

func (c *conn) authorized(accountID int64) bool {
	return c.accountID != 0 && c.accountID == accountID
}

// Session runs the read-dispatch-reply loop for one client. It returns when
// the client closes its side, the stream breaks or a protocol error occurs.
func (s *GRPCServer) Session(stream grpc.BidiStreamingServer[codec.Frame, protocol.Response]) error {
	ctx := stream.Context()

	c := &conn{id: uuid.NewString()}
	c.log = s.logger.With("conn_id", c.id, "peer", peerAddr(ctx))
	c.log.Info(ctx, "connection opened")
	defer c.log.Info(ctx, "connection closed")

	for {
		frame, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		req, err := protocol.DecodeRequest(*frame)
		if err != nil {
			return s.closeWithProtocolError(ctx, c, stream, err)
		}
		cmd, err := protocol.Parse(req)
		if err != nil {
			return s.closeWithProtocolError(ctx, c, stream, err)
		}

		c.log.Debug(ctx, "request", "command", cmd.Name())
		resp := s.dispatch(ctx, c, cmd)

		if err := stream.Send(resp); err != nil {
			return err
		}
		if resp.Code == protocol.CodeProtocol {
			return status.Error(codes.InvalidArgument, resp.Error)
		}
	}
}

func (s *GRPCServer) closeWithProtocolError(ctx context.Context, c *conn, stream grpc.BidiStreamingServer[codec.Frame, protocol.Response], err error) error {
	c.log.Warn(ctx, "protocol error, closing connection", "error", err)
	resp := protocol.Failure(err)
	if resp.Code != protocol.CodeProtocol {
		resp = &protocol.Response{Status: protocol.StatusFailed, Code: protocol.CodeProtocol, Error: "protocol error: malformed envelope"}
	}
	_ = stream.Send(resp)
	return status.Error(codes.InvalidArgument, resp.Error)
}

func peerAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return "unknown"
}
