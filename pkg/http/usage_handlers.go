package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"

	"liyu1981.xyz/battery-rental-service/pkg/auth"
)

type DischargeRequest struct {
	Action string `json:"action"`
}

var dischargeRequestSchema = z.Struct(z.Shape{
	"action": z.String().Required().OneOf([]string{"start", "stop"}),
})

// ChargeRequest binds through gin since 0 is a valid charge and must not read as missing.
type ChargeRequest struct {
	Charge *int `json:"charge" binding:"required"`
}

// CurrentUsage is the poll that reconciles the user's open session.
func (rs *RestfulServer) CurrentUsage(c *gin.Context) {
	userID := auth.UserID(c)

	if !rs.CheckUserLimiter(userID) {
		c.Status(http.StatusTooManyRequests)
		return
	}

	snapshot, err := rs.Rental.Usage.CurrentUsage(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	// usage is null when the user has no open session
	c.JSON(http.StatusOK, gin.H{"usage": snapshot})
}

func (rs *RestfulServer) UsageHistory(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}

	history, err := rs.Rental.Usage.UsageHistory(c.Request.Context(), auth.UserID(c), page)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (rs *RestfulServer) ToggleDischarge(c *gin.Context) {
	usageID, ok := idParam(c, "usage_id")
	if !ok {
		return
	}

	var req DischargeRequest
	if err := dischargeRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	snapshot, err := rs.Rental.Usage.ToggleDischarge(c.Request.Context(), auth.UserID(c), usageID, req.Action)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (rs *RestfulServer) SetCharge(c *gin.Context) {
	usageID, ok := idParam(c, "usage_id")
	if !ok {
		return
	}

	var req ChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snapshot, err := rs.Rental.Usage.SetCharge(c.Request.Context(), auth.UserID(c), usageID, *req.Charge)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
