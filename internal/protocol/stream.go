package protocol

import (
	"context"

	"github.com/dmitrijs2005/gophvault/internal/codec"
	"google.golang.org/grpc"
)

const (
	ServiceName       = "gophvault.Keeper"
	SessionMethod     = "Session"
	SessionFullMethod = "/" + ServiceName + "/" + SessionMethod

	// MaxMessageSize bounds a single envelope in either direction.
	MaxMessageSize = 32 << 20
)

// SessionServer is implemented by the server side of the Session stream.
// Requests arrive as raw frames and are decoded with DecodeRequest, so a
// malformed envelope is answered like any other protocol error.
type SessionServer interface {
	Session(stream grpc.BidiStreamingServer[codec.Frame, Response]) error
}

var sessionStreamDesc = grpc.StreamDesc{
	StreamName:    SessionMethod,
	ServerStreams: true,
	ClientStreams: true,
}

// ServiceDesc describes the Keeper service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SessionServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    SessionMethod,
			ServerStreams: true,
			ClientStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				return srv.(SessionServer).Session(&grpc.GenericServerStream[codec.Frame, Response]{ServerStream: stream})
			},
		},
	},
	Metadata: "gophvault/keeper",
}

func RegisterSessionServer(s grpc.ServiceRegistrar, srv SessionServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServerOptions force the CBOR codec and the message size limit on a server.
func ServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.ForceServerCodec(codec.GRPCCodec{}),
		grpc.MaxRecvMsgSize(MaxMessageSize),
		grpc.MaxSendMsgSize(MaxMessageSize),
	}
}

// OpenSession starts the Session stream on conn.
func OpenSession(ctx context.Context, conn grpc.ClientConnInterface) (grpc.BidiStreamingClient[Request, Response], error) {
	stream, err := conn.NewStream(ctx, &sessionStreamDesc, SessionFullMethod,
		grpc.ForceCodec(codec.GRPCCodec{}),
		grpc.MaxCallRecvMsgSize(MaxMessageSize),
		grpc.MaxCallSendMsgSize(MaxMessageSize),
	)
	if err != nil {
		return nil, err
	}
	return &grpc.GenericClientStream[Request, Response]{ClientStream: stream}, nil
}
