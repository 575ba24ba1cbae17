package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"liyu1981.xyz/battery-rental-service/pkg/auth"
	"liyu1981.xyz/battery-rental-service/pkg/common"
)

// CreateRateLimitInterceptor limits the listed methods per authenticated user. It must
// run after the auth interceptor.
func (s *UsageServer) CreateRateLimitInterceptor(targetMethods []string) grpc.UnaryServerInterceptor {
	targets := common.Reducer(targetMethods,
		func(m map[string]bool, method string) map[string]bool {
			m[method] = true
			return m
		},
		map[string]bool{},
	)

	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if targets[info.FullMethod] {
			if p, ok := auth.FromContext(ctx); ok && !s.CheckUserLimiter(p.UserID) {
				return nil, status.Errorf(codes.ResourceExhausted, "rate limit exceeded")
			}
		}

		return handler(ctx, req)
	}
}
