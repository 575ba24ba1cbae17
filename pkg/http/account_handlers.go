package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"

	"liyu1981.xyz/battery-rental-service/pkg/auth"
	"liyu1981.xyz/battery-rental-service/pkg/models"
	"liyu1981.xyz/battery-rental-service/pkg/rental"
)

type ReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

var reviewRequestSchema = z.Struct(z.Shape{
	"rating":  z.Int().Required().GTE(rental.MinRating).LTE(rental.MaxRating),
	"comment": z.String().Required().Trim().Min(10).Max(500),
})

func (rs *RestfulServer) UpsertReview(c *gin.Context) {
	batteryID, ok := idParam(c, "battery_id")
	if !ok {
		return
	}

	var req ReviewRequest
	if err := reviewRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	review, created, err := rs.Rental.Review.UpsertReview(c.Request.Context(), auth.UserID(c), batteryID, req.Rating, req.Comment)
	if err != nil {
		abortWithError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, review)
}

type ReplyRequest struct {
	Content       string `json:"content"`
	ParentReplyID int    `json:"parent_reply_id" zog:"parent_reply_id"`
}

var replyRequestSchema = z.Struct(z.Shape{
	"content":       z.String().Required().Trim().Min(2).Max(500),
	"parentReplyID": z.Int().GTE(0),
})

func (rs *RestfulServer) AddReply(c *gin.Context) {
	reviewID, ok := idParam(c, "review_id")
	if !ok {
		return
	}

	var req ReplyRequest
	if err := replyRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	var parent *uint
	if req.ParentReplyID > 0 {
		id := uint(req.ParentReplyID)
		parent = &id
	}

	reply, err := rs.Rental.Review.AddReply(c.Request.Context(), auth.UserID(c), reviewID, parent, req.Content)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reply)
}

type StationRentalRequest struct {
	BatteryID  int `json:"battery_id" zog:"battery_id"`
	RentalDays int `json:"rental_days" zog:"rental_days"`
}

var stationRentalRequestSchema = z.Struct(z.Shape{
	"batteryID":  z.Int().Required().GT(0),
	"rentalDays": z.Int().Required().GTE(rental.MinRentalDays).LTE(rental.MaxRentalDays),
})

func (rs *RestfulServer) RentFromStation(c *gin.Context) {
	stationID, ok := idParam(c, "station_id")
	if !ok {
		return
	}

	var req StationRentalRequest
	if err := stationRentalRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	stationRental, err := rs.Rental.Station.RentFromStation(c.Request.Context(), auth.UserID(c), stationID, uint(req.BatteryID), req.RentalDays)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stationRental)
}

type ReturnRequest struct {
	StationID int    `json:"station_id" zog:"station_id"`
	Condition string `json:"condition"`
	Notes     string `json:"notes"`
}

var returnRequestSchema = z.Struct(z.Shape{
	"stationID": z.Int().GTE(0),
	"condition": z.String().OneOf([]string{
		"", string(models.BatteryConditionExcellent), string(models.BatteryConditionGood),
		string(models.BatteryConditionFair), string(models.BatteryConditionPoor),
	}),
	"notes": z.String().Trim().Max(500),
})

func (rs *RestfulServer) ReturnToStation(c *gin.Context) {
	rentalID, ok := idParam(c, "rental_id")
	if !ok {
		return
	}

	var req ReturnRequest
	if err := returnRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	receipt, err := rs.Rental.Station.ReturnToStation(c.Request.Context(), auth.UserID(c), rentalID, rental.ReturnInput{
		StationID: uint(req.StationID),
		Condition: models.BatteryCondition(req.Condition),
		Notes:     req.Notes,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (rs *RestfulServer) ListStationRentals(c *gin.Context) {
	rentals, err := rs.Rental.Station.ListStationRentals(c.Request.Context(), auth.UserID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rentals)
}

func (rs *RestfulServer) PointsSummary(c *gin.Context) {
	summary, err := rs.Rental.Ledger.Summary(c.Request.Context(), auth.UserID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (rs *RestfulServer) ListMessages(c *gin.Context) {
	messages, err := rs.Rental.Messages.ListMessages(c.Request.Context(), auth.UserID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (rs *RestfulServer) MarkMessageRead(c *gin.Context) {
	messageID, ok := idParam(c, "message_id")
	if !ok {
		return
	}

	message, err := rs.Rental.Messages.MarkRead(c.Request.Context(), auth.UserID(c), messageID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, message)
}
