package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"

	"liyu1981.xyz/battery-rental-service/pkg/auth"
	"liyu1981.xyz/battery-rental-service/pkg/rental"
)

type OrderRequest struct {
	StartDate  time.Time `json:"start_date" zog:"start_date"`
	RentalDays int       `json:"rental_days" zog:"rental_days"`
	Notes      string    `json:"notes" zog:"notes"`
}

var orderRequestSchema = z.Struct(z.Shape{
	"startDate":  z.Time(),
	"rentalDays": z.Int().Required().GTE(rental.MinRentalDays).LTE(rental.MaxRentalDays),
	"notes":      z.String().Trim().Max(500),
})

type PageQuery struct {
	Page int `zog:"page"`
}

var pageQuerySchema = z.Struct(z.Shape{
	"page": z.Int().GTE(0),
})

func parsePage(c *gin.Context) (int, bool) {
	var q PageQuery
	if err := pageQuerySchema.Parse(zhttp.Request(c.Request), &q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return 0, false
	}
	return q.Page, true
}

func (rs *RestfulServer) CreateOrder(c *gin.Context) {
	batteryID, ok := idParam(c, "battery_id")
	if !ok {
		return
	}

	var req OrderRequest
	if err := orderRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	order, err := rs.Rental.Order.CreateOrder(c.Request.Context(), auth.UserID(c), batteryID, rental.OrderInput{
		StartDate:  req.StartDate,
		RentalDays: req.RentalDays,
		Notes:      req.Notes,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (rs *RestfulServer) ListOrders(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}

	orders, err := rs.Rental.Order.ListOrders(c.Request.Context(), auth.UserID(c), page)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (rs *RestfulServer) GetOrder(c *gin.Context) {
	orderAction(c, rs.Rental.Order.GetOrder)
}

func (rs *RestfulServer) ConfirmOrder(c *gin.Context) {
	orderAction(c, rs.Rental.Order.ConfirmOrder)
}

func (rs *RestfulServer) CancelOrder(c *gin.Context) {
	orderAction(c, rs.Rental.Order.CancelOrder)
}

func (rs *RestfulServer) ActivateOrder(c *gin.Context) {
	orderAction(c, rs.Rental.Order.ActivateOrder)
}

func (rs *RestfulServer) CompleteOrder(c *gin.Context) {
	orderAction(c, rs.Rental.Order.CompleteOrder)
}

// orderAction runs one order operation on the :order_id of the authenticated user.
func orderAction[T any](c *gin.Context, action func(ctx context.Context, userID string, orderID uint) (*T, error)) {
	orderID, ok := idParam(c, "order_id")
	if !ok {
		return
	}

	result, err := action(c.Request.Context(), auth.UserID(c), orderID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
