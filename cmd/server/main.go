package main

import (
	"log"
	"net"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"liyu1981.xyz/battery-rental-service/pkg/auth"
	"liyu1981.xyz/battery-rental-service/pkg/common"
	"liyu1981.xyz/battery-rental-service/pkg/db"
	rentalGrpc "liyu1981.xyz/battery-rental-service/pkg/grpc"
	rentalHttp "liyu1981.xyz/battery-rental-service/pkg/http"
	"liyu1981.xyz/battery-rental-service/pkg/metrics"
	"liyu1981.xyz/battery-rental-service/pkg/rental"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Fatal("Error loading .env file, copy .env.example to .env first if in development")
	}

	cfg, err := common.LoadServerConfig()
	if err != nil {
		log.Fatalf("Invalid server config: %v", err)
	}

	logger := common.GetLogger()
	logger.Info("Loaded config", zap.Stringer("config", cfg))

	var dbInstance *db.DB
	switch cfg.DBType {
	case "file":
		dbInstance = db.GetInstance(db.UseSqliteDialector())
	case "memory":
		dbInstance = db.GetInstance(db.UseMemorySqliteDialector())
	}

	recorder, err := metrics.NewPromRecorder()
	if err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}

	rentalCore := rental.New(dbInstance).WithServices(rental.ServiceOpts{
		Recorder: recorder,
		Config: &rental.PointsConfig{
			OrderCreated:   cfg.PointsOrderCreated,
			OrderCompleted: cfg.PointsOrderCompleted,
			Review:         cfg.PointsReview,
		},
	})

	if cfg.GrpcHostPort != "" {
		go func() {
			usageServer := &rentalGrpc.UsageServer{
				Rental:           rentalCore,
				RateLimiterStore: rental.NewRateLimiterStore(rate.Limit(cfg.PollRate), cfg.PollBurst),
			}
			s := grpc.NewServer(grpc.ChainUnaryInterceptor(
				auth.NewUnaryAuthInterceptor(cfg.JWTSecret),
				usageServer.CreateRateLimitInterceptor([]string{rentalGrpc.MethodCurrentUsage}),
			))
			rentalGrpc.RegisterUsageServiceServer(s, usageServer)

			listener, err := net.Listen("tcp", cfg.GrpcHostPort)
			if err != nil {
				log.Fatalf("failed to listen: %v", err)
			}

			logger.Info("start gRPC server on " + cfg.GrpcHostPort)
			if err := s.Serve(listener); err != nil {
				log.Fatalf("grpc server failed to serve: %v", err)
			}
		}()
	}

	rs := &rentalHttp.RestfulServer{
		Server:           gin.Default(),
		Rental:           rentalCore,
		RateLimiterStore: rental.NewRateLimiterStore(rate.Limit(cfg.PollRate), cfg.PollBurst),
		JWTSecret:        cfg.JWTSecret,
		Gatherer:         prometheus.DefaultGatherer,
	}
	rs.Setup()

	logger.Info("Starting HTTP server on: "+cfg.HttpHostPort,
		zap.Float64("poll_rate", cfg.PollRate), zap.Int("poll_burst", cfg.PollBurst))
	if err := rs.Server.Run(cfg.HttpHostPort); err != nil {
		log.Fatalf("http server failed to serve: %v", err)
	}
}
