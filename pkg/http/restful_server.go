package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"liyu1981.xyz/battery-rental-service/pkg/auth"
	"liyu1981.xyz/battery-rental-service/pkg/rental"
)

type RestfulServer struct {
	Server           *gin.Engine
	Rental           *rental.Rental
	RateLimiterStore *rental.RateLimiterStore
	JWTSecret        string
	// Gatherer backs /metrics; nil means the default Prometheus registry.
	Gatherer prometheus.Gatherer
}

func (rs *RestfulServer) CheckUserLimiter(userID string) bool {
	if rs.RateLimiterStore == nil {
		return true
	}
	return rs.RateLimiterStore.Allow(userID)
}

func (rs *RestfulServer) SetLimiter(userID string, userRate float64, userBurst int) {
	if rs.RateLimiterStore == nil {
		return
	}
	rs.RateLimiterStore.SetLimiter(userID, rate.Limit(userRate), userBurst)
}

func (rs *RestfulServer) metricsHandler() gin.HandlerFunc {
	gatherer := rs.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}

func (rs *RestfulServer) Setup() {
	rs.Server.GET("/healthz", rs.HealthCheck)
	rs.Server.GET("/metrics", rs.metricsHandler())

	rs.Server.GET("/categories", rs.ListCategories)
	rs.Server.GET("/batteries", rs.ListBatteries)
	rs.Server.GET("/batteries/:battery_id", rs.GetBatteryDetail)
	rs.Server.GET("/stations/nearby", rs.NearbyStations)

	authed := rs.Server.Group("/", auth.GinMiddleware(rs.JWTSecret))
	{
		authed.POST("/batteries/:battery_id/orders", rs.CreateOrder)
		authed.POST("/batteries/:battery_id/reviews", rs.UpsertReview)
		authed.POST("/reviews/:review_id/replies", rs.AddReply)

		orders := authed.Group("/orders")
		{
			orders.GET("", rs.ListOrders)
			orders.GET("/:order_id", rs.GetOrder)
			orders.POST("/:order_id/confirm", rs.ConfirmOrder)
			orders.POST("/:order_id/cancel", rs.CancelOrder)
			orders.POST("/:order_id/activate", rs.ActivateOrder)
			orders.POST("/:order_id/complete", rs.CompleteOrder)
		}

		usage := authed.Group("/usage")
		{
			usage.GET("/current", rs.CurrentUsage)
			usage.GET("/history", rs.UsageHistory)
			usage.POST("/:usage_id/discharge", rs.ToggleDischarge)
			usage.POST("/:usage_id/charge", rs.SetCharge)
		}

		authed.POST("/stations/:station_id/rentals", rs.RentFromStation)
		authed.GET("/station-rentals", rs.ListStationRentals)
		authed.POST("/station-rentals/:rental_id/return", rs.ReturnToStation)

		me := authed.Group("/me")
		{
			me.GET("/points", rs.PointsSummary)
			me.GET("/messages", rs.ListMessages)
			me.POST("/messages/:message_id/read", rs.MarkMessageRead)
		}
	}
}
