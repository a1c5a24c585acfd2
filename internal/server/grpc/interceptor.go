package grpc

import (
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// streamInterceptor logs every stream and turns a handler panic into
// codes.Internal so one connection cannot take the process down.
func (s *GRPCServer) streamInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
	ctx := ss.Context()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, "panic in stream handler", "method", info.FullMethod, "panic", r)
			err = status.Error(codes.Internal, "internal error")
		}
		s.logger.Debug(ctx, "stream finished", "method", info.FullMethod,
			"duration", time.Since(start), "code", status.Code(err).String())
	}()

	return handler(srv, ss)
}
