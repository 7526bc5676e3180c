package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/nexus-wings/wings/pkg/auth"
	"github.com/nexus-wings/wings/pkg/metrics"
)

func authorize(ctx context.Context, creds auth.Credentials) error {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}
	for _, v := range md.Get("authorization") {
		if creds.AcceptHeader(v) {
			return nil
		}
	}
	return status.Error(codes.Unauthenticated, "invalid bearer token")
}

// AuthUnaryInterceptor rejects unary RPCs lacking a valid bearer token
// and records per-method request metrics.
func AuthUnaryInterceptor(creds auth.Credentials) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if err := authorize(ctx, creds); err != nil {
			metrics.GRPCRequestsTotal.WithLabelValues(info.FullMethod, codes.Unauthenticated.String()).Inc()
			return nil, err
		}
		resp, err := handler(ctx, req)
		metrics.GRPCRequestsTotal.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		return resp, err
	}
}

// AuthStreamInterceptor is the streaming counterpart of
// AuthUnaryInterceptor.
func AuthStreamInterceptor(creds auth.Credentials) grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if err := authorize(ss.Context(), creds); err != nil {
			metrics.GRPCRequestsTotal.WithLabelValues(info.FullMethod, codes.Unauthenticated.String()).Inc()
			return err
		}
		err := handler(srv, ss)
		metrics.GRPCRequestsTotal.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		return err
	}
}
