package grpc

import (
	"liyu1981.xyz/battery-rental-service/pkg/rental"
)

type UsageServer struct {
	Rental           *rental.Rental
	RateLimiterStore *rental.RateLimiterStore
}

var _ UsageServiceServer = (*UsageServer)(nil)

// CheckUserLimiter allows everything when no store is configured.
func (s *UsageServer) CheckUserLimiter(userID string) bool {
	if s.RateLimiterStore == nil {
		return true
	}
	return s.RateLimiterStore.Allow(userID)
}
