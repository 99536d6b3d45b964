package grpc

import (
	"context"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/msto63/dolmetscher/pkg/core/logging"
)

var interceptorLogger = logging.New("grpc")

type contextKey string

const (
	RequestIDKey    contextKey = "request_id"
	RequestIDHeader string     = "x-request-id"
)

// unaryInterceptor tags each call with a request id, turns handler panics
// into codes.Internal and logs the outcome at debug level
func unaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		requestID := extractRequestID(ctx)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		ctx = context.WithValue(ctx, RequestIDKey, requestID)

		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				interceptorLogger.Error("gRPC panic recovered", "method", info.FullMethod, "panic", r, "stack", string(debug.Stack()))
				err = status.Errorf(codes.Internal, "internal server error")
			}
			interceptorLogger.Debug("gRPC request",
				"request_id", requestID,
				"method", info.FullMethod,
				"status", status.Code(err).String(),
				"duration", time.Since(start),
			)
		}()
		return handler(ctx, req)
	}
}

// streamInterceptor counts open streams (health Watch calls of remote
// observers) in active and recovers from handler panics
func streamInterceptor(active *atomic.Int32) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		n := active.Add(1)
		interceptorLogger.Debug("gRPC stream opened", "method", info.FullMethod, "active", n)

		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				interceptorLogger.Error("gRPC stream panic recovered", "method", info.FullMethod, "panic", r, "stack", string(debug.Stack()))
				err = status.Errorf(codes.Internal, "internal server error")
			}
			interceptorLogger.Debug("gRPC stream closed",
				"method", info.FullMethod,
				"status", status.Code(err).String(),
				"duration", time.Since(start),
				"active", active.Add(-1),
			)
		}()
		return handler(srv, ss)
	}
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return extractRequestID(ctx)
}

func extractRequestID(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(RequestIDHeader); len(values) > 0 {
		return values[0]
	}
	return ""
}
